package api

import (
	"fmt"
	"net/http"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rideshare/internal/booking/domain"
	"rideshare/internal/shared/jwt"
	"rideshare/internal/shared/models"
)

func wsURL(httpURL, path string) string {
	return "ws" + strings.TrimPrefix(httpURL, "http") + path
}

func TestPassengerReceivesBookingUpdates(t *testing.T) {
	s := newStack(t)
	rideID := s.publishRide(t, "driver-1", 2)

	token, err := jwt.GenerateToken("passenger-1", models.RolePassenger)
	require.NoError(t, err)

	conn, resp, err := websocket.DefaultDialer.Dial(
		wsURL(s.bookingSrv.URL, "/ws/passengers/passenger-1?token="+token), nil)
	require.NoError(t, err)
	defer conn.Close()
	resp.Body.Close()

	booking := s.requestBooking(t, "passenger-1", rideID, 1)

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var msg wsMessage
	require.NoError(t, conn.ReadJSON(&msg))
	assert.Equal(t, "booking_update", msg.Type)
	assert.Equal(t, booking.ID, msg.Booking.ID)
	assert.Equal(t, "PENDING", msg.Booking.Status)

	acceptResp := doJSON(t, http.MethodPost, s.bookingSrv.URL+"/bookings/"+booking.ID+"/accept",
		bearer(t, "driver-1", models.RoleDriver), nil)
	acceptResp.Body.Close()
	require.Equal(t, http.StatusOK, acceptResp.StatusCode)

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	require.NoError(t, conn.ReadJSON(&msg))
	assert.Equal(t, "ACCEPTED", msg.Booking.Status)
}

func TestConcurrentPushesToOnePassenger(t *testing.T) {
	s := newStack(t)

	token, err := jwt.GenerateToken("passenger-1", models.RolePassenger)
	require.NoError(t, err)

	conn, resp, err := websocket.DefaultDialer.Dial(
		wsURL(s.bookingSrv.URL, "/ws/passengers/passenger-1?token="+token), nil)
	require.NoError(t, err)
	defer conn.Close()
	resp.Body.Close()

	const pushes = 32
	var wg sync.WaitGroup
	for i := 0; i < pushes; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			s.hub.BookingChanged(domain.Booking{
				ID:          fmt.Sprintf("b-%d", i),
				PassengerID: "passenger-1",
				Status:      domain.StatusPending,
				Seats:       1,
			})
		}(i)
	}
	wg.Wait()

	// Every push arrives intact; concurrent writers must not tear frames
	// or kill the socket.
	seen := make(map[string]bool)
	for i := 0; i < pushes; i++ {
		conn.SetReadDeadline(time.Now().Add(2 * time.Second))
		var msg wsMessage
		require.NoError(t, conn.ReadJSON(&msg))
		assert.Equal(t, "booking_update", msg.Type)
		seen[msg.Booking.ID] = true
	}
	assert.Len(t, seen, pushes)
}

func TestWSRejectsBadToken(t *testing.T) {
	s := newStack(t)

	_, resp, err := websocket.DefaultDialer.Dial(
		wsURL(s.bookingSrv.URL, "/ws/passengers/passenger-1?token=garbage"), nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestWSRejectsTokenForAnotherPassenger(t *testing.T) {
	s := newStack(t)

	token, err := jwt.GenerateToken("passenger-2", models.RolePassenger)
	require.NoError(t, err)

	_, resp, err := websocket.DefaultDialer.Dial(
		wsURL(s.bookingSrv.URL, "/ws/passengers/passenger-1?token="+token), nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}
