package api

import (
	"time"

	"rideshare/internal/booking/domain"
)

type requestBookingRequest struct {
	RideID string `json:"ride_id"`
	Seats  int    `json:"seats"`
}

type bookingResponse struct {
	ID          string     `json:"id"`
	RideID      string     `json:"ride_id"`
	PassengerID string     `json:"passenger_id"`
	Seats       int        `json:"seats"`
	Status      string     `json:"status"`
	Reason      string     `json:"reason,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   *time.Time `json:"updated_at,omitempty"`
}

func toBookingResponse(b domain.Booking) bookingResponse {
	return bookingResponse{
		ID:          b.ID,
		RideID:      b.RideID,
		PassengerID: b.PassengerID,
		Seats:       b.Seats,
		Status:      string(b.Status),
		Reason:      b.Reason,
		CreatedAt:   b.CreatedAt,
		UpdatedAt:   b.UpdatedAt,
	}
}

func toBookingResponses(bookings []domain.Booking) []bookingResponse {
	out := make([]bookingResponse, 0, len(bookings))
	for _, b := range bookings {
		out = append(out, toBookingResponse(b))
	}
	return out
}
