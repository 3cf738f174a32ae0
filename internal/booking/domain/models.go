package domain

import "time"

type BookingStatus string

const (
	StatusPending   BookingStatus = "PENDING"
	StatusAccepted  BookingStatus = "ACCEPTED"
	StatusRejected  BookingStatus = "REJECTED"
	StatusCancelled BookingStatus = "CANCELLED"
)

type Booking struct {
	ID          string
	RideID      string
	PassengerID string
	Seats       int
	Status      BookingStatus
	Reason      string // set when a booking is rejected for capacity
	CreatedAt   time.Time
	UpdatedAt   *time.Time
}

// RideView is the ledger's read of a ride: enough to validate a request.
// Capacity truth stays with the registry; these numbers are advisory here.
type RideView struct {
	ID             string
	DriverID       string
	Status         string
	TotalSeats     int
	AvailableSeats int
}

// SeatRelease is a durably queued seat return that could not reach the
// registry synchronously.
type SeatRelease struct {
	ID        int64
	BookingID string
	RideID    string
	Seats     int
	Attempts  int
	NextTry   time.Time
}
