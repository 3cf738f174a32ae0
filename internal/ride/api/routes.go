package api

import (
	"net/http"

	"rideshare/internal/shared/middleware"
	"rideshare/internal/shared/models"
)

// RegisterRoutes wires the registry's surface. Seat adjustment and the
// ownership check are internal endpoints consumed by the booking ledger;
// everything driver-facing goes through auth.
func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	driver := func(handler http.HandlerFunc) http.Handler {
		return middleware.Auth(middleware.RequireRole(models.RoleDriver, handler))
	}

	mux.Handle("POST /rides", driver(h.PublishRideHandler))
	mux.Handle("PUT /rides/{rideId}", driver(h.ModifyRideHandler))
	mux.Handle("DELETE /rides/{rideId}", driver(h.DeleteRideHandler))

	mux.HandleFunc("GET /rides/search", h.SearchRidesHandler)
	mux.HandleFunc("GET /rides/{rideId}", h.GetRideHandler)
	mux.HandleFunc("GET /rides/driver/{driverId}", h.DriverRidesHandler)

	mux.HandleFunc("POST /rides/{rideId}/seats", h.AdjustSeatsHandler)
	mux.HandleFunc("GET /rides/{rideId}/ownership", h.OwnershipHandler)
}
