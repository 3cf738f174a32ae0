package domain

import (
	"context"
	"time"
)

type BookingRepository interface {
	Create(ctx context.Context, booking Booking) error
	GetByID(ctx context.Context, bookingID string) (*Booking, error)

	// Transition moves the booking from one of the given states to the next
	// one, compare-and-swap style: it reports a conflict when the current
	// status is not in from, so concurrent transitions cannot both win.
	Transition(ctx context.Context, bookingID string, from []BookingStatus, to BookingStatus, reason string) (*Booking, error)

	ByPassenger(ctx context.Context, passengerID string) ([]Booking, error)
	ByRide(ctx context.Context, rideID string) ([]Booking, error)
	PendingByRides(ctx context.Context, rideIDs []string) ([]Booking, error)

	// Durable seat-release queue.
	EnqueueSeatRelease(ctx context.Context, bookingID, rideID string, seats int, nextTry time.Time) error
	DueSeatReleases(ctx context.Context, now time.Time, limit int) ([]SeatRelease, error)
	MarkReleaseDone(ctx context.Context, id int64) error
	RescheduleRelease(ctx context.Context, id int64, attempts int, nextTry time.Time) error
}

// RideGateway is the ledger's only path to the registry. Implementations
// carry bounded timeouts; a registry that cannot be reached surfaces as an
// unavailable error, never as a domain error.
type RideGateway interface {
	GetRide(ctx context.Context, rideID string) (*RideView, error)
	VerifyOwnership(ctx context.Context, rideID, driverID string) error
	AdjustSeats(ctx context.Context, rideID string, delta int) (int, error)
	RideIDsByDriver(ctx context.Context, driverID string) ([]string, error)
}

type Publisher interface {
	Publish(ctx context.Context, routingKey string, payload any) error
}

// Notifier pushes booking changes to connected passengers. Best effort.
type Notifier interface {
	BookingChanged(b Booking)
}
