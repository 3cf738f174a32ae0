package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rideshare/internal/booking/adapter/rideclient"
	"rideshare/internal/booking/app"
	bookingrepo "rideshare/internal/booking/repo"
	rideapi "rideshare/internal/ride/api"
	rideapp "rideshare/internal/ride/app"
	riderepo "rideshare/internal/ride/repo"
	"rideshare/internal/shared/jwt"
	"rideshare/internal/shared/models"
	"rideshare/internal/shared/util"
)

type nopPublisher struct{}

func (nopPublisher) Publish(context.Context, string, any) error { return nil }

type testStack struct {
	rideSrv    *httptest.Server
	bookingSrv *httptest.Server
	hub        *PassengerHub
}

// newStack runs both services over loopback HTTP, the ledger reaching the
// registry through its real client.
func newStack(t *testing.T) *testStack {
	t.Helper()
	logger := util.New()

	rideService := rideapp.NewRideService(riderepo.NewMemory(), nopPublisher{}, logger)
	rideMux := http.NewServeMux()
	rideapi.NewHandler(rideService, logger).RegisterRoutes(rideMux)
	rideSrv := httptest.NewServer(rideMux)
	t.Cleanup(rideSrv.Close)

	gateway := rideclient.New(rideSrv.URL, time.Second)
	hub := NewPassengerHub(logger)
	bookingService := app.NewBookingService(bookingrepo.NewMemory(), gateway, nopPublisher{}, hub, logger)
	bookingMux := http.NewServeMux()
	NewHandler(bookingService, hub, logger).RegisterRoutes(bookingMux)
	bookingSrv := httptest.NewServer(bookingMux)
	t.Cleanup(bookingSrv.Close)

	return &testStack{rideSrv: rideSrv, bookingSrv: bookingSrv, hub: hub}
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

func (s *testStack) publishRide(t *testing.T, driverID string, seats int) string {
	t.Helper()
	resp := doJSON(t, http.MethodPost, s.rideSrv.URL+"/rides", bearer(t, driverID, models.RoleDriver), map[string]any{
		"departure_city":   "Astana",
		"destination_city": "Almaty",
		"departure_date":   "2026-10-01",
		"total_seats":      seats,
		"price_per_seat":   4500,
	})
	defer resp.Body.Close()
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var ride struct {
		ID string `json:"id"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&ride))
	return ride.ID
}

func (s *testStack) requestBooking(t *testing.T, passengerID, rideID string, seats int) bookingResponse {
	t.Helper()
	resp := doJSON(t, http.MethodPost, s.bookingSrv.URL+"/bookings",
		bearer(t, passengerID, models.RolePassenger), requestBookingRequest{RideID: rideID, Seats: seats})
	defer resp.Body.Close()
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var booking bookingResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&booking))
	return booking
}

func (s *testStack) rideSeats(t *testing.T, rideID string) int {
	t.Helper()
	resp, err := http.Get(s.rideSrv.URL + "/rides/" + rideID)
	require.NoError(t, err)
	defer resp.Body.Close()
	var ride struct {
		AvailableSeats int `json:"available_seats"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&ride))
	return ride.AvailableSeats
}

func TestBookingLifecycleOverHTTP(t *testing.T) {
	s := newStack(t)
	rideID := s.publishRide(t, "driver-1", 3)

	booking := s.requestBooking(t, "passenger-1", rideID, 2)
	assert.Equal(t, "PENDING", booking.Status)
	assert.Equal(t, 3, s.rideSeats(t, rideID))

	resp := doJSON(t, http.MethodPost, s.bookingSrv.URL+"/bookings/"+booking.ID+"/accept",
		bearer(t, "driver-1", models.RoleDriver), nil)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var accepted bookingResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&accepted))
	assert.Equal(t, "ACCEPTED", accepted.Status)
	assert.Equal(t, 1, s.rideSeats(t, rideID))

	resp = doJSON(t, http.MethodDelete, s.bookingSrv.URL+"/bookings/"+booking.ID,
		bearer(t, "passenger-1", models.RolePassenger), nil)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var cancelled bookingResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&cancelled))
	assert.Equal(t, "CANCELLED", cancelled.Status)
	assert.Equal(t, 3, s.rideSeats(t, rideID))
}

func TestAcceptOverCapacityRejects(t *testing.T) {
	s := newStack(t)
	rideID := s.publishRide(t, "driver-1", 2)

	first := s.requestBooking(t, "passenger-1", rideID, 2)
	second := s.requestBooking(t, "passenger-2", rideID, 2)

	resp := doJSON(t, http.MethodPost, s.bookingSrv.URL+"/bookings/"+first.ID+"/accept",
		bearer(t, "driver-1", models.RoleDriver), nil)
	resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp = doJSON(t, http.MethodPost, s.bookingSrv.URL+"/bookings/"+second.ID+"/accept",
		bearer(t, "driver-1", models.RoleDriver), nil)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var rejected bookingResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&rejected))
	assert.Equal(t, "REJECTED", rejected.Status)
	assert.Equal(t, "capacity exhausted", rejected.Reason)
}

func TestRequestOverAdvisoryCapacity(t *testing.T) {
	s := newStack(t)
	rideID := s.publishRide(t, "driver-1", 2)

	resp := doJSON(t, http.MethodPost, s.bookingSrv.URL+"/bookings",
		bearer(t, "passenger-1", models.RolePassenger), requestBookingRequest{RideID: rideID, Seats: 5})
	resp.Body.Close()
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
}

func TestBookingRoleEnforcement(t *testing.T) {
	s := newStack(t)
	rideID := s.publishRide(t, "driver-1", 2)
	booking := s.requestBooking(t, "passenger-1", rideID, 1)

	// Drivers cannot request, passengers cannot accept.
	resp := doJSON(t, http.MethodPost, s.bookingSrv.URL+"/bookings",
		bearer(t, "driver-1", models.RoleDriver), requestBookingRequest{RideID: rideID, Seats: 1})
	resp.Body.Close()
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	resp = doJSON(t, http.MethodPost, s.bookingSrv.URL+"/bookings/"+booking.ID+"/accept",
		bearer(t, "passenger-1", models.RolePassenger), nil)
	resp.Body.Close()
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	// Only the owning driver may decide.
	resp = doJSON(t, http.MethodPost, s.bookingSrv.URL+"/bookings/"+booking.ID+"/accept",
		bearer(t, "driver-2", models.RoleDriver), nil)
	resp.Body.Close()
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
}

func TestBookingQueries(t *testing.T) {
	s := newStack(t)
	rideID := s.publishRide(t, "driver-1", 4)

	s.requestBooking(t, "passenger-1", rideID, 1)
	s.requestBooking(t, "passenger-1", rideID, 2)
	s.requestBooking(t, "passenger-2", rideID, 1)

	resp, err := http.Get(s.bookingSrv.URL + "/bookings/passenger/passenger-1")
	require.NoError(t, err)
	defer resp.Body.Close()
	var mine []bookingResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&mine))
	assert.Len(t, mine, 2)

	resp, err = http.Get(s.bookingSrv.URL + "/bookings/ride/" + rideID)
	require.NoError(t, err)
	defer resp.Body.Close()
	var byRide []bookingResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&byRide))
	assert.Len(t, byRide, 3)

	resp, err = http.Get(s.bookingSrv.URL + "/bookings/driver/driver-1/pending")
	require.NoError(t, err)
	defer resp.Body.Close()
	var pending []bookingResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&pending))
	assert.Len(t, pending, 3)
}

func TestCancelUnknownBooking(t *testing.T) {
	s := newStack(t)

	resp := doJSON(t, http.MethodDelete, s.bookingSrv.URL+"/bookings/nope",
		bearer(t, "passenger-1", models.RolePassenger), nil)
	resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}
