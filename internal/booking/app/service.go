package app

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"rideshare/internal/booking/domain"
	"rideshare/internal/shared/apperrors"
	"rideshare/internal/shared/events"
	"rideshare/internal/shared/util"
)

type BookingService struct {
	repo   domain.BookingRepository
	rides  domain.RideGateway
	pub    domain.Publisher
	notif  domain.Notifier
	logger *util.Logger
}

func NewBookingService(repo domain.BookingRepository, rides domain.RideGateway, pub domain.Publisher, notif domain.Notifier, logger *util.Logger) *BookingService {
	return &BookingService{repo: repo, rides: rides, pub: pub, notif: notif, logger: logger}
}

// Request records a PENDING booking after an advisory read of the registry.
// The read gives early feedback only; concurrent requests may all pass it.
// Capacity is enforced at accept time, through the registry's seat
// adjustment.
func (s *BookingService) Request(ctx context.Context, passengerID, rideID string, seats int) (*domain.Booking, error) {
	instance := "BookingService.Request"

	if seats < 1 {
		return nil, apperrors.Validation("seats", "must be at least 1")
	}

	ride, err := s.rides.GetRide(ctx, rideID)
	if err != nil {
		if apperrors.IsUnavailable(err) {
			s.logger.Warn(instance, fmt.Sprintf("ride registry unavailable: %v", err))
		}
		return nil, err
	}
	if ride.Status != "SCHEDULED" {
		return nil, apperrors.Conflict(fmt.Sprintf("ride %s is %s, not open for booking", rideID, ride.Status))
	}
	if ride.AvailableSeats < seats {
		return nil, apperrors.Capacity(fmt.Sprintf(
			"ride %s has %d available seats, requested %d", rideID, ride.AvailableSeats, seats))
	}

	booking := domain.Booking{
		ID:          uuid.NewString(),
		RideID:      rideID,
		PassengerID: passengerID,
		Seats:       seats,
		Status:      domain.StatusPending,
		CreatedAt:   time.Now().UTC(),
	}
	if err := s.repo.Create(ctx, booking); err != nil {
		s.logger.Error(instance, err)
		return nil, err
	}

	s.emit(ctx, events.KeyBookingRequested, booking)
	s.logger.OK(instance, fmt.Sprintf("booking %s pending: %d seats on ride %s", booking.ID, seats, rideID))
	return &booking, nil
}

// Accept decides a pending booking. The seat decrement through the registry
// is the authoritative capacity gate: when it reports capacity exhausted the
// booking flips to REJECTED instead, and the caller sees that outcome. The
// booking is never left ACCEPTED without the decrement applied.
func (s *BookingService) Accept(ctx context.Context, bookingID, driverID string) (*domain.Booking, error) {
	instance := "BookingService.Accept"

	booking, err := s.repo.GetByID(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if booking.Status != domain.StatusPending {
		return nil, apperrors.NotFound("pending booking", bookingID)
	}

	if err := s.rides.VerifyOwnership(ctx, booking.RideID, driverID); err != nil {
		if apperrors.IsForbidden(err) {
			s.logger.Warn(instance, fmt.Sprintf("driver %s denied on booking %s", driverID, bookingID))
		}
		return nil, err
	}

	_, err = s.rides.AdjustSeats(ctx, booking.RideID, -booking.Seats)
	if err != nil {
		switch {
		case apperrors.IsCapacity(err):
			rejected, terr := s.repo.Transition(ctx, bookingID,
				[]domain.BookingStatus{domain.StatusPending}, domain.StatusRejected,
				"capacity exhausted")
			if terr != nil {
				return nil, terr
			}
			s.emit(ctx, events.KeyBookingRejected, *rejected)
			s.logger.Info(instance, fmt.Sprintf("booking %s rejected: ride %s out of seats", bookingID, booking.RideID))
			return rejected, nil
		case apperrors.IsUnavailable(err):
			// Booking stays PENDING; the decision can be retried.
			s.logger.Warn(instance, fmt.Sprintf("seat adjustment unavailable for booking %s: %v", bookingID, err))
			return nil, err
		default:
			return nil, err
		}
	}

	accepted, err := s.repo.Transition(ctx, bookingID,
		[]domain.BookingStatus{domain.StatusPending}, domain.StatusAccepted, "")
	if err != nil {
		// Lost a race, typically against a passenger cancel. The decrement
		// already applied, so give the seats back.
		s.returnSeats(ctx, bookingID, booking.RideID, booking.Seats)
		return nil, err
	}

	s.emit(ctx, events.KeyBookingAccepted, *accepted)
	s.logger.OK(instance, fmt.Sprintf("booking %s accepted by driver %s", bookingID, driverID))
	return accepted, nil
}

func (s *BookingService) Reject(ctx context.Context, bookingID, driverID string) (*domain.Booking, error) {
	instance := "BookingService.Reject"

	booking, err := s.repo.GetByID(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if booking.Status != domain.StatusPending {
		return nil, apperrors.NotFound("pending booking", bookingID)
	}

	if err := s.rides.VerifyOwnership(ctx, booking.RideID, driverID); err != nil {
		return nil, err
	}

	rejected, err := s.repo.Transition(ctx, bookingID,
		[]domain.BookingStatus{domain.StatusPending}, domain.StatusRejected, "rejected by driver")
	if err != nil {
		return nil, err
	}

	s.emit(ctx, events.KeyBookingRejected, *rejected)
	s.logger.OK(instance, "booking rejected: "+bookingID)
	return rejected, nil
}

// Cancel withdraws a booking on behalf of its passenger. Cancelling an
// ACCEPTED booking returns its seats to the ride; when the registry cannot
// be reached the release is queued durably and the booking is cancelled
// locally regardless. Repeat cancels are no-ops.
func (s *BookingService) Cancel(ctx context.Context, bookingID, requesterID string) (*domain.Booking, error) {
	instance := "BookingService.Cancel"

	booking, err := s.repo.GetByID(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if booking.PassengerID != requesterID {
		s.logger.Warn(instance, fmt.Sprintf("requester %s tried to cancel booking %s", requesterID, bookingID))
		return nil, apperrors.Forbidden("only the requesting passenger may cancel a booking")
	}

	switch booking.Status {
	case domain.StatusCancelled:
		return booking, nil
	case domain.StatusRejected:
		return nil, apperrors.Conflict(fmt.Sprintf("booking %s is already rejected", bookingID))
	}

	wasAccepted := booking.Status == domain.StatusAccepted

	cancelled, err := s.repo.Transition(ctx, bookingID,
		[]domain.BookingStatus{domain.StatusPending, domain.StatusAccepted},
		domain.StatusCancelled, "cancelled by passenger")
	if err != nil {
		if apperrors.IsConflict(err) {
			// Raced with another cancel; fetch the settled record.
			current, gerr := s.repo.GetByID(ctx, bookingID)
			if gerr == nil && current.Status == domain.StatusCancelled {
				return current, nil
			}
		}
		return nil, err
	}

	if wasAccepted {
		s.returnSeats(ctx, bookingID, booking.RideID, booking.Seats)
	}

	s.emit(ctx, events.KeyBookingCancelled, *cancelled)
	s.logger.OK(instance, "booking cancelled: "+bookingID)
	return cancelled, nil
}

func (s *BookingService) ByPassenger(ctx context.Context, passengerID string) ([]domain.Booking, error) {
	return s.repo.ByPassenger(ctx, passengerID)
}

func (s *BookingService) ByRide(ctx context.Context, rideID string) ([]domain.Booking, error) {
	return s.repo.ByRide(ctx, rideID)
}

// PendingByDriver lists pending bookings across the driver's rides.
func (s *BookingService) PendingByDriver(ctx context.Context, driverID string) ([]domain.Booking, error) {
	rideIDs, err := s.rides.RideIDsByDriver(ctx, driverID)
	if err != nil {
		return nil, err
	}
	return s.repo.PendingByRides(ctx, rideIDs)
}

// returnSeats gives seats back to the ride, falling back to the durable
// queue when the registry cannot apply the release now.
func (s *BookingService) returnSeats(ctx context.Context, bookingID, rideID string, seats int) {
	instance := "BookingService.returnSeats"

	_, err := s.rides.AdjustSeats(ctx, rideID, seats)
	if err == nil {
		return
	}
	if apperrors.IsNotFound(err) {
		// Ride is gone; nothing to return seats to.
		s.logger.Warn(instance, fmt.Sprintf("ride %s not found while releasing %d seats", rideID, seats))
		return
	}

	// Due immediately; the reconciler's sweep cadence spaces the retries.
	s.logger.Warn(instance, fmt.Sprintf("queueing seat release for booking %s: %v", bookingID, err))
	qerr := s.repo.EnqueueSeatRelease(ctx, bookingID, rideID, seats, time.Now())
	if qerr != nil {
		s.logger.Error(instance, qerr)
	}
}

func (s *BookingService) emit(ctx context.Context, key string, b domain.Booking) {
	ev := events.BookingEvent{
		BookingID:   b.ID,
		RideID:      b.RideID,
		PassengerID: b.PassengerID,
		Seats:       b.Seats,
		Status:      string(b.Status),
		Reason:      b.Reason,
		Timestamp:   time.Now().UTC(),
	}
	if err := s.pub.Publish(ctx, key, ev); err != nil {
		s.logger.Warn("BookingService.emit", fmt.Sprintf("failed to publish %s: %v", key, err))
	}
	if s.notif != nil {
		s.notif.BookingChanged(b)
	}
}
