package api

import (
	"net/http"

	"rideshare/internal/shared/middleware"
	"rideshare/internal/shared/models"
)

// RegisterRoutes wires the ledger's surface. Lifecycle verbs go through
// auth with the role they belong to; reads and the websocket are open,
// the socket authenticating through its own token check.
func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	passenger := func(handler http.HandlerFunc) http.Handler {
		return middleware.Auth(middleware.RequireRole(models.RolePassenger, handler))
	}
	driver := func(handler http.HandlerFunc) http.Handler {
		return middleware.Auth(middleware.RequireRole(models.RoleDriver, handler))
	}

	mux.Handle("POST /bookings", passenger(h.RequestBookingHandler))
	mux.Handle("DELETE /bookings/{bookingId}", passenger(h.CancelBookingHandler))

	mux.Handle("POST /bookings/{bookingId}/accept", driver(h.AcceptBookingHandler))
	mux.Handle("POST /bookings/{bookingId}/reject", driver(h.RejectBookingHandler))

	mux.HandleFunc("GET /bookings/passenger/{passengerId}", h.PassengerBookingsHandler)
	mux.HandleFunc("GET /bookings/ride/{rideId}", h.RideBookingsHandler)
	mux.HandleFunc("GET /bookings/driver/{driverId}/pending", h.DriverPendingHandler)

	mux.HandleFunc("GET /ws/passengers/{passengerId}", h.PassengerWSHandler)
}
