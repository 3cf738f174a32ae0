package api

import (
	"encoding/json"
	"net/http"
	"time"

	"rideshare/internal/booking/app"
	"rideshare/internal/shared/middleware"
	"rideshare/internal/shared/util"
)

type Handler struct {
	service *app.BookingService
	hub     *PassengerHub
	logger  *util.Logger
}

func NewHandler(service *app.BookingService, hub *PassengerHub, logger *util.Logger) *Handler {
	return &Handler{service: service, hub: hub, logger: logger}
}

func (h *Handler) RequestBookingHandler(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	passengerID := middleware.CallerID(r.Context())

	var req requestBookingRequest
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&req); err != nil {
		util.WriteJSONError(w, "invalid JSON body", http.StatusBadRequest)
		return
	}

	booking, err := h.service.Request(r.Context(), passengerID, req.RideID, req.Seats)
	if err != nil {
		util.ErrResponseInJson(w, err)
		return
	}

	util.ResponseInJson(w, http.StatusCreated, toBookingResponse(*booking))
	h.logger.HTTP(http.StatusCreated, time.Since(start), middleware.GetRequestID(r.Context()), r.Method, r.URL.Path)
}

// AcceptBookingHandler answers 200 even when the registry turned the
// acceptance into a rejection; the body's status carries the outcome.
func (h *Handler) AcceptBookingHandler(w http.ResponseWriter, r *http.Request) {
	bookingID := r.PathValue("bookingId")
	driverID := middleware.CallerID(r.Context())

	booking, err := h.service.Accept(r.Context(), bookingID, driverID)
	if err != nil {
		util.ErrResponseInJson(w, err)
		return
	}

	util.ResponseInJson(w, http.StatusOK, toBookingResponse(*booking))
}

func (h *Handler) RejectBookingHandler(w http.ResponseWriter, r *http.Request) {
	bookingID := r.PathValue("bookingId")
	driverID := middleware.CallerID(r.Context())

	booking, err := h.service.Reject(r.Context(), bookingID, driverID)
	if err != nil {
		util.ErrResponseInJson(w, err)
		return
	}

	util.ResponseInJson(w, http.StatusOK, toBookingResponse(*booking))
}

func (h *Handler) CancelBookingHandler(w http.ResponseWriter, r *http.Request) {
	bookingID := r.PathValue("bookingId")
	passengerID := middleware.CallerID(r.Context())

	booking, err := h.service.Cancel(r.Context(), bookingID, passengerID)
	if err != nil {
		util.ErrResponseInJson(w, err)
		return
	}

	util.ResponseInJson(w, http.StatusOK, toBookingResponse(*booking))
}

func (h *Handler) PassengerBookingsHandler(w http.ResponseWriter, r *http.Request) {
	bookings, err := h.service.ByPassenger(r.Context(), r.PathValue("passengerId"))
	if err != nil {
		util.ErrResponseInJson(w, err)
		return
	}
	util.ResponseInJson(w, http.StatusOK, toBookingResponses(bookings))
}

func (h *Handler) RideBookingsHandler(w http.ResponseWriter, r *http.Request) {
	bookings, err := h.service.ByRide(r.Context(), r.PathValue("rideId"))
	if err != nil {
		util.ErrResponseInJson(w, err)
		return
	}
	util.ResponseInJson(w, http.StatusOK, toBookingResponses(bookings))
}

func (h *Handler) DriverPendingHandler(w http.ResponseWriter, r *http.Request) {
	bookings, err := h.service.PendingByDriver(r.Context(), r.PathValue("driverId"))
	if err != nil {
		util.ErrResponseInJson(w, err)
		return
	}
	util.ResponseInJson(w, http.StatusOK, toBookingResponses(bookings))
}
