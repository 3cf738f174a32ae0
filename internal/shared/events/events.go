package events

import "time"

// Exchange is the topic exchange both services publish on. The notification
// service (external) binds its own queues against these keys.
const Exchange = "rideshare_topic"

const (
	KeyBookingRequested = "booking.requested"
	KeyBookingAccepted  = "booking.accepted"
	KeyBookingRejected  = "booking.rejected"
	KeyBookingCancelled = "booking.cancelled"

	KeyRidePublished = "ride.published"
	KeyRideCancelled = "ride.cancelled"
	KeyRideCompleted = "ride.completed"
)

// BookingQueue is the durable queue the ride registry consumes booking
// lifecycle events from, to keep its open-booking projection current.
const BookingQueue = "ride_registry_booking_refs"

type BookingEvent struct {
	BookingID   string    `json:"booking_id"`
	RideID      string    `json:"ride_id"`
	PassengerID string    `json:"passenger_id"`
	Seats       int       `json:"seats"`
	Status      string    `json:"status"`
	Reason      string    `json:"reason,omitempty"`
	Timestamp   time.Time `json:"timestamp"`
}

type RideEvent struct {
	RideID    string    `json:"ride_id"`
	DriverID  string    `json:"driver_id"`
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
}
