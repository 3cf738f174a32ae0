package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rideshare/internal/ride/app"
	"rideshare/internal/ride/repo"
	"rideshare/internal/shared/jwt"
	"rideshare/internal/shared/models"
	"rideshare/internal/shared/util"
)

type nopPublisher struct{}

func (nopPublisher) Publish(context.Context, string, any) error { return nil }

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	service := app.NewRideService(repo.NewMemory(), nopPublisher{}, util.New())
	handler := NewHandler(service, util.New())
	mux := http.NewServeMux()
	handler.RegisterRoutes(mux)
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func bearer(t *testing.T, userID, role string) string {
	t.Helper()
	token, err := jwt.GenerateToken(userID, role)
	require.NoError(t, err)
	return "Bearer " + token
}

func doJSON(t *testing.T, method, url, auth string, body any) *http.Response {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req, err := http.NewRequest(method, url, &buf)
	require.NoError(t, err)
	if auth != "" {
		req.Header.Set("Authorization", auth)
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	return resp
}

func publishRide(t *testing.T, srv *httptest.Server, driverID string, seats int) rideResponse {
	t.Helper()
	resp := doJSON(t, http.MethodPost, srv.URL+"/rides", bearer(t, driverID, models.RoleDriver), map[string]any{
		"departure_city":   "Astana",
		"destination_city": "Almaty",
		"departure_date":   "2026-10-01",
		"total_seats":      seats,
		"price_per_seat":   4500,
	})
	defer resp.Body.Close()
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var ride rideResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&ride))
	return ride
}

func TestPublishRideEndpoint(t *testing.T) {
	srv := newTestServer(t)

	ride := publishRide(t, srv, "driver-1", 3)
	assert.NotEmpty(t, ride.ID)
	assert.Equal(t, "SCHEDULED", ride.Status)
	assert.Equal(t, 3, ride.AvailableSeats)
	assert.Equal(t, "driver-1", ride.DriverID)
}

func TestPublishRequiresDriverRole(t *testing.T) {
	srv := newTestServer(t)

	resp := doJSON(t, http.MethodPost, srv.URL+"/rides", "", map[string]any{"total_seats": 2})
	resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp = doJSON(t, http.MethodPost, srv.URL+"/rides",
		bearer(t, "passenger-1", models.RolePassenger), map[string]any{"total_seats": 2})
	resp.Body.Close()
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
}

func TestPublishRejectsUnknownFields(t *testing.T) {
	srv := newTestServer(t)

	resp := doJSON(t, http.MethodPost, srv.URL+"/rides",
		bearer(t, "driver-1", models.RoleDriver), map[string]any{
			"departure_city": "Astana",
			"bogus":          true,
		})
	resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestAdjustSeatsEndpoint(t *testing.T) {
	srv := newTestServer(t)
	ride := publishRide(t, srv, "driver-1", 2)

	resp := doJSON(t, http.MethodPost, srv.URL+"/rides/"+ride.ID+"/seats", "", map[string]int{"delta": -2})
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var out adjustSeatsResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	assert.Equal(t, 0, out.AvailableSeats)

	resp = doJSON(t, http.MethodPost, srv.URL+"/rides/"+ride.ID+"/seats", "", map[string]int{"delta": -1})
	resp.Body.Close()
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
}

func TestOwnershipEndpoint(t *testing.T) {
	srv := newTestServer(t)
	ride := publishRide(t, srv, "driver-1", 2)

	resp, err := http.Get(srv.URL + "/rides/" + ride.ID + "/ownership?driver_id=driver-1")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var out ownershipResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	assert.True(t, out.Owner)

	resp, err = http.Get(srv.URL + "/rides/" + ride.ID + "/ownership")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestSearchEndpoint(t *testing.T) {
	srv := newTestServer(t)
	publishRide(t, srv, "driver-1", 2)

	resp, err := http.Get(srv.URL + "/rides/search?departure=astana&destination=almaty&date=2026-10-01")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var rides []rideResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&rides))
	assert.Len(t, rides, 1)

	resp, err = http.Get(srv.URL + "/rides/search?date=not-a-date")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestModifyAndDeleteEndpoints(t *testing.T) {
	srv := newTestServer(t)
	ride := publishRide(t, srv, "driver-1", 2)

	resp := doJSON(t, http.MethodPut, srv.URL+"/rides/"+ride.ID,
		bearer(t, "driver-2", models.RoleDriver), map[string]any{"price_per_seat": 6000})
	resp.Body.Close()
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	resp = doJSON(t, http.MethodPut, srv.URL+"/rides/"+ride.ID,
		bearer(t, "driver-1", models.RoleDriver), map[string]any{"price_per_seat": 6000})
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var updated rideResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&updated))
	assert.Equal(t, 6000.0, updated.PricePerSeat)

	resp = doJSON(t, http.MethodDelete, srv.URL+"/rides/"+ride.ID,
		bearer(t, "driver-1", models.RoleDriver), nil)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	getResp, err := http.Get(srv.URL + "/rides/" + ride.ID)
	require.NoError(t, err)
	defer getResp.Body.Close()
	var got rideResponse
	require.NoError(t, json.NewDecoder(getResp.Body).Decode(&got))
	assert.Equal(t, "CANCELLED", got.Status)
}

func TestGetRideNotFound(t *testing.T) {
	srv := newTestServer(t)

	resp, err := http.Get(srv.URL + "/rides/nope")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestDriverRidesEndpoint(t *testing.T) {
	srv := newTestServer(t)
	publishRide(t, srv, "driver-1", 2)
	publishRide(t, srv, "driver-1", 4)
	publishRide(t, srv, "driver-2", 1)

	resp, err := http.Get(srv.URL + "/rides/driver/driver-1")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var rides []rideResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&rides))
	assert.Len(t, rides, 2)
}
