package api

import (
	"time"

	"rideshare/internal/ride/domain"
)

const dateLayout = "2006-01-02"

type publishRideRequest struct {
	DepartureCity   string  `json:"departure_city"`
	DestinationCity string  `json:"destination_city"`
	DepartureDate   string  `json:"departure_date"` // YYYY-MM-DD
	TotalSeats      int     `json:"total_seats"`
	PricePerSeat    float64 `json:"price_per_seat"`
}

type modifyRideRequest struct {
	DepartureCity   *string  `json:"departure_city"`
	DestinationCity *string  `json:"destination_city"`
	DepartureDate   *string  `json:"departure_date"`
	PricePerSeat    *float64 `json:"price_per_seat"`
	Status          *string  `json:"status"`
}

type adjustSeatsRequest struct {
	Delta int `json:"delta"`
}

type adjustSeatsResponse struct {
	RideID         string `json:"ride_id"`
	AvailableSeats int    `json:"available_seats"`
}

type ownershipResponse struct {
	RideID   string `json:"ride_id"`
	DriverID string `json:"driver_id"`
	Owner    bool   `json:"owner"`
}

type rideResponse struct {
	ID              string     `json:"id"`
	DepartureCity   string     `json:"departure_city"`
	DestinationCity string     `json:"destination_city"`
	DepartureDate   string     `json:"departure_date"`
	TotalSeats      int        `json:"total_seats"`
	AvailableSeats  int        `json:"available_seats"`
	PricePerSeat    float64    `json:"price_per_seat"`
	Status          string     `json:"status"`
	DriverID        string     `json:"driver_id"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       *time.Time `json:"updated_at,omitempty"`
}

func toRideResponse(r domain.Ride) rideResponse {
	return rideResponse{
		ID:              r.ID,
		DepartureCity:   r.DepartureCity.Name,
		DestinationCity: r.DestinationCity.Name,
		DepartureDate:   r.DepartureDate.Format(dateLayout),
		TotalSeats:      r.TotalSeats,
		AvailableSeats:  r.AvailableSeats,
		PricePerSeat:    r.PricePerSeat,
		Status:          string(r.Status),
		DriverID:        r.DriverID,
		CreatedAt:       r.CreatedAt,
		UpdatedAt:       r.UpdatedAt,
	}
}

func toRideResponses(rides []domain.Ride) []rideResponse {
	out := make([]rideResponse, 0, len(rides))
	for _, r := range rides {
		out = append(out, toRideResponse(r))
	}
	return out
}
