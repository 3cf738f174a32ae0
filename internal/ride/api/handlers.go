package api

import (
	"encoding/json"
	"net/http"
	"time"

	"rideshare/internal/ride/app"
	"rideshare/internal/ride/domain"
	"rideshare/internal/shared/apperrors"
	"rideshare/internal/shared/middleware"
	"rideshare/internal/shared/util"
)

type Handler struct {
	service *app.RideService
	logger  *util.Logger
}

func NewHandler(service *app.RideService, logger *util.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

func (h *Handler) PublishRideHandler(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	driverID := middleware.CallerID(r.Context())

	var req publishRideRequest
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&req); err != nil {
		util.WriteJSONError(w, "invalid JSON body", http.StatusBadRequest)
		return
	}

	input := domain.PublishRideInput{
		DepartureCity:   domain.City{Name: req.DepartureCity},
		DestinationCity: domain.City{Name: req.DestinationCity},
		TotalSeats:      req.TotalSeats,
		PricePerSeat:    req.PricePerSeat,
	}
	if req.DepartureDate != "" {
		date, err := time.Parse(dateLayout, req.DepartureDate)
		if err != nil {
			util.ErrResponseInJson(w, apperrors.Validation("departure_date", "must be YYYY-MM-DD"))
			return
		}
		input.DepartureDate = date
	}

	ride, err := h.service.Publish(r.Context(), driverID, input)
	if err != nil {
		util.ErrResponseInJson(w, err)
		return
	}

	util.ResponseInJson(w, http.StatusCreated, toRideResponse(*ride))
	h.logger.HTTP(http.StatusCreated, time.Since(start), middleware.GetRequestID(r.Context()), r.Method, r.URL.Path)
}

func (h *Handler) ModifyRideHandler(w http.ResponseWriter, r *http.Request) {
	rideID := r.PathValue("rideId")
	driverID := middleware.CallerID(r.Context())

	var req modifyRideRequest
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&req); err != nil {
		util.WriteJSONError(w, "invalid JSON body", http.StatusBadRequest)
		return
	}

	var input domain.ModifyRideInput
	if req.DepartureCity != nil {
		input.DepartureCity = &domain.City{Name: *req.DepartureCity}
	}
	if req.DestinationCity != nil {
		input.DestinationCity = &domain.City{Name: *req.DestinationCity}
	}
	if req.DepartureDate != nil {
		date, err := time.Parse(dateLayout, *req.DepartureDate)
		if err != nil {
			util.ErrResponseInJson(w, apperrors.Validation("departure_date", "must be YYYY-MM-DD"))
			return
		}
		input.DepartureDate = &date
	}
	input.PricePerSeat = req.PricePerSeat
	if req.Status != nil {
		status := domain.RideStatus(*req.Status)
		input.Status = &status
	}

	ride, err := h.service.Modify(r.Context(), rideID, driverID, input)
	if err != nil {
		util.ErrResponseInJson(w, err)
		return
	}

	util.ResponseInJson(w, http.StatusOK, toRideResponse(*ride))
}

func (h *Handler) DeleteRideHandler(w http.ResponseWriter, r *http.Request) {
	rideID := r.PathValue("rideId")
	driverID := middleware.CallerID(r.Context())

	if err := h.service.Delete(r.Context(), rideID, driverID); err != nil {
		util.ErrResponseInJson(w, err)
		return
	}

	util.ResponseInJson(w, http.StatusOK, map[string]string{
		"ride_id": rideID,
		"message": "ride deleted",
	})
}

// AdjustSeatsHandler is the internal endpoint the booking ledger calls when
// accepting or cancelling bookings.
func (h *Handler) AdjustSeatsHandler(w http.ResponseWriter, r *http.Request) {
	rideID := r.PathValue("rideId")

	var req adjustSeatsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		util.WriteJSONError(w, "invalid JSON body", http.StatusBadRequest)
		return
	}

	available, err := h.service.AdjustSeats(r.Context(), rideID, req.Delta)
	if err != nil {
		util.ErrResponseInJson(w, err)
		return
	}

	util.ResponseInJson(w, http.StatusOK, adjustSeatsResponse{
		RideID:         rideID,
		AvailableSeats: available,
	})
}

func (h *Handler) OwnershipHandler(w http.ResponseWriter, r *http.Request) {
	rideID := r.PathValue("rideId")
	driverID := r.URL.Query().Get("driver_id")
	if driverID == "" {
		util.ErrResponseInJson(w, apperrors.Validation("driver_id", "query parameter required"))
		return
	}

	owner, err := h.service.CheckOwnership(r.Context(), rideID, driverID)
	if err != nil {
		util.ErrResponseInJson(w, err)
		return
	}

	util.ResponseInJson(w, http.StatusOK, ownershipResponse{
		RideID:   rideID,
		DriverID: driverID,
		Owner:    owner,
	})
}

func (h *Handler) SearchRidesHandler(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filters := domain.SearchFilters{
		Departure:   q.Get("departure"),
		Destination: q.Get("destination"),
	}
	if d := q.Get("date"); d != "" {
		date, err := time.Parse(dateLayout, d)
		if err != nil {
			util.ErrResponseInJson(w, apperrors.Validation("date", "must be YYYY-MM-DD"))
			return
		}
		filters.Date = &date
	}

	rides, err := h.service.Search(r.Context(), filters)
	if err != nil {
		util.ErrResponseInJson(w, err)
		return
	}

	util.ResponseInJson(w, http.StatusOK, toRideResponses(rides))
}

func (h *Handler) GetRideHandler(w http.ResponseWriter, r *http.Request) {
	ride, err := h.service.GetRide(r.Context(), r.PathValue("rideId"))
	if err != nil {
		util.ErrResponseInJson(w, err)
		return
	}
	util.ResponseInJson(w, http.StatusOK, toRideResponse(*ride))
}

func (h *Handler) DriverRidesHandler(w http.ResponseWriter, r *http.Request) {
	rides, err := h.service.RidesByDriver(r.Context(), r.PathValue("driverId"))
	if err != nil {
		util.ErrResponseInJson(w, err)
		return
	}
	util.ResponseInJson(w, http.StatusOK, toRideResponses(rides))
}
