package domain

import "context"

type RideRepository interface {
	Create(ctx context.Context, ride Ride) error
	GetByID(ctx context.Context, rideID string) (*Ride, error)
	Update(ctx context.Context, ride Ride) error

	// AdjustSeats atomically adds delta to available_seats, clamped above by
	// total_seats. A delta that would drive the count negative fails with a
	// capacity error and leaves the ride untouched. FULL/SCHEDULED is derived
	// in the same step. Returns the new available_seats.
	AdjustSeats(ctx context.Context, rideID string, delta int) (int, error)

	// SetStatus moves the ride to status only when its current status is one
	// of from. Reports a conflict otherwise.
	SetStatus(ctx context.Context, rideID string, from []RideStatus, to RideStatus) error

	Search(ctx context.Context, f SearchFilters) ([]Ride, error)
	ByDriver(ctx context.Context, driverID string) ([]Ride, error)

	// Booking reference projection, fed by the ledger's lifecycle events.
	UpsertBookingRef(ctx context.Context, bookingID, rideID string, live bool) error
	OpenBookingCount(ctx context.Context, rideID string) (int, error)
}

type Publisher interface {
	Publish(ctx context.Context, routingKey string, payload any) error
}
