package domain

import "time"

type RideStatus string

const (
	StatusScheduled RideStatus = "SCHEDULED"
	StatusFull      RideStatus = "FULL"
	StatusCancelled RideStatus = "CANCELLED"
	StatusCompleted RideStatus = "COMPLETED"
)

// Terminal reports whether no further seat arithmetic applies to the ride.
func (s RideStatus) Terminal() bool {
	return s == StatusCancelled || s == StatusCompleted
}

type City struct {
	Name string `json:"name"`
}

type Ride struct {
	ID              string
	DepartureCity   City
	DestinationCity City
	DepartureDate   time.Time // date only, midnight UTC
	TotalSeats      int       // immutable after publish
	AvailableSeats  int
	PricePerSeat    float64
	Status          RideStatus
	DriverID        string
	CreatedAt       time.Time
	UpdatedAt       *time.Time
}

type PublishRideInput struct {
	DepartureCity   City
	DestinationCity City
	DepartureDate   time.Time
	TotalSeats      int
	PricePerSeat    float64
}

// ModifyRideInput applies only the fields that are set. Seat counts are not
// modifiable: total_seats is fixed at publish and available_seats moves only
// through AdjustSeats.
type ModifyRideInput struct {
	DepartureCity   *City
	DestinationCity *City
	DepartureDate   *time.Time
	PricePerSeat    *float64
	Status          *RideStatus
}

type SearchFilters struct {
	Departure   string // case-insensitive substring
	Destination string // case-insensitive substring
	Date        *time.Time
}
