package app

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"rideshare/internal/ride/domain"
	"rideshare/internal/shared/apperrors"
	"rideshare/internal/shared/events"
	"rideshare/internal/shared/util"
)

type RideService struct {
	repo   domain.RideRepository
	pub    domain.Publisher
	logger *util.Logger
}

func NewRideService(repo domain.RideRepository, pub domain.Publisher, logger *util.Logger) *RideService {
	return &RideService{repo: repo, pub: pub, logger: logger}
}

func (s *RideService) Publish(ctx context.Context, driverID string, input domain.PublishRideInput) (*domain.Ride, error) {
	instance := "RideService.Publish"

	if input.TotalSeats < 1 {
		s.logger.Warn(instance, fmt.Sprintf("invalid capacity: %d", input.TotalSeats))
		return nil, apperrors.Validation("total_seats", "must be at least 1")
	}
	if input.DepartureCity.Name == "" {
		return nil, apperrors.Validation("departure_city", "cannot be empty")
	}
	if input.DestinationCity.Name == "" {
		return nil, apperrors.Validation("destination_city", "cannot be empty")
	}
	if input.DepartureDate.IsZero() {
		return nil, apperrors.Validation("departure_date", "cannot be empty")
	}
	if input.PricePerSeat < 0 {
		return nil, apperrors.Validation("price_per_seat", "must be non-negative")
	}

	ride := domain.Ride{
		ID:              uuid.NewString(),
		DepartureCity:   input.DepartureCity,
		DestinationCity: input.DestinationCity,
		DepartureDate:   input.DepartureDate,
		TotalSeats:      input.TotalSeats,
		AvailableSeats:  input.TotalSeats,
		PricePerSeat:    input.PricePerSeat,
		Status:          domain.StatusScheduled,
		DriverID:        driverID,
		CreatedAt:       time.Now().UTC(),
	}

	if err := s.repo.Create(ctx, ride); err != nil {
		s.logger.Error(instance, err)
		return nil, err
	}

	s.publishRideEvent(ctx, events.KeyRidePublished, ride)
	s.logger.OK(instance, fmt.Sprintf("ride %s published by driver %s (%d seats)", ride.ID, driverID, ride.TotalSeats))

	return &ride, nil
}

func (s *RideService) Modify(ctx context.Context, rideID, driverID string, input domain.ModifyRideInput) (*domain.Ride, error) {
	instance := "RideService.Modify"

	ride, err := s.repo.GetByID(ctx, rideID)
	if err != nil {
		return nil, err
	}
	if ride.DriverID != driverID {
		s.logger.Warn(instance, fmt.Sprintf("driver %s tried to modify ride %s owned by %s", driverID, rideID, ride.DriverID))
		return nil, apperrors.Forbidden("only the owning driver may modify a ride")
	}

	if input.DepartureCity != nil {
		if input.DepartureCity.Name == "" {
			return nil, apperrors.Validation("departure_city", "cannot be empty")
		}
		ride.DepartureCity = *input.DepartureCity
	}
	if input.DestinationCity != nil {
		if input.DestinationCity.Name == "" {
			return nil, apperrors.Validation("destination_city", "cannot be empty")
		}
		ride.DestinationCity = *input.DestinationCity
	}
	if input.DepartureDate != nil {
		ride.DepartureDate = *input.DepartureDate
	}
	if input.PricePerSeat != nil {
		if *input.PricePerSeat < 0 {
			return nil, apperrors.Validation("price_per_seat", "must be non-negative")
		}
		ride.PricePerSeat = *input.PricePerSeat
	}
	if input.Status != nil {
		// Drivers may only close out a ride. Everything else is the
		// registry's own business.
		if *input.Status != domain.StatusCompleted || ride.Status != domain.StatusScheduled {
			return nil, apperrors.Validation("status",
				fmt.Sprintf("cannot move ride from %s to %s", ride.Status, *input.Status))
		}
		ride.Status = domain.StatusCompleted
	}

	if err := s.repo.Update(ctx, *ride); err != nil {
		s.logger.Error(instance, err)
		return nil, err
	}

	if input.Status != nil {
		s.publishRideEvent(ctx, events.KeyRideCompleted, *ride)
	}
	s.logger.OK(instance, "ride modified: "+rideID)
	return ride, nil
}

// Delete soft-retires a ride. It refuses while any booking against the ride
// is still live, or while accepted seats are outstanding.
func (s *RideService) Delete(ctx context.Context, rideID, driverID string) error {
	instance := "RideService.Delete"

	ride, err := s.repo.GetByID(ctx, rideID)
	if err != nil {
		return err
	}
	if ride.DriverID != driverID {
		s.logger.Warn(instance, fmt.Sprintf("driver %s tried to delete ride %s owned by %s", driverID, rideID, ride.DriverID))
		return apperrors.Forbidden("only the owning driver may delete a ride")
	}

	open, err := s.repo.OpenBookingCount(ctx, rideID)
	if err != nil {
		s.logger.Error(instance, err)
		return err
	}
	if open > 0 {
		return apperrors.Conflict(fmt.Sprintf("ride %s has %d outstanding bookings", rideID, open))
	}
	if ride.AvailableSeats < ride.TotalSeats {
		return apperrors.Conflict(fmt.Sprintf("ride %s has %d accepted seats outstanding",
			rideID, ride.TotalSeats-ride.AvailableSeats))
	}

	err = s.repo.SetStatus(ctx, rideID,
		[]domain.RideStatus{domain.StatusScheduled, domain.StatusFull}, domain.StatusCancelled)
	if err != nil {
		return err
	}

	ride.Status = domain.StatusCancelled
	s.publishRideEvent(ctx, events.KeyRideCancelled, *ride)
	s.logger.OK(instance, "ride deleted: "+rideID)
	return nil
}

// AdjustSeats applies delta to the ride's available seats. The repository
// makes the read-modify-write atomic per ride.
func (s *RideService) AdjustSeats(ctx context.Context, rideID string, delta int) (int, error) {
	instance := "RideService.AdjustSeats"

	if delta == 0 {
		return 0, apperrors.Validation("delta", "must be non-zero")
	}

	available, err := s.repo.AdjustSeats(ctx, rideID, delta)
	if err != nil {
		if apperrors.IsCapacity(err) {
			s.logger.Warn(instance, err.Error())
		} else {
			s.logger.Error(instance, err)
		}
		return 0, err
	}

	s.logger.Info(instance, fmt.Sprintf("ride %s seats adjusted by %+d, now %d", rideID, delta, available))
	return available, nil
}

func (s *RideService) Search(ctx context.Context, f domain.SearchFilters) ([]domain.Ride, error) {
	return s.repo.Search(ctx, f)
}

func (s *RideService) GetRide(ctx context.Context, rideID string) (*domain.Ride, error) {
	return s.repo.GetByID(ctx, rideID)
}

func (s *RideService) RidesByDriver(ctx context.Context, driverID string) ([]domain.Ride, error) {
	return s.repo.ByDriver(ctx, driverID)
}

// CheckOwnership is the capability check the booking ledger calls before
// letting a driver act on a booking.
func (s *RideService) CheckOwnership(ctx context.Context, rideID, driverID string) (bool, error) {
	ride, err := s.repo.GetByID(ctx, rideID)
	if err != nil {
		return false, err
	}
	return ride.DriverID == driverID, nil
}

// HandleBookingEvent keeps the open-booking projection current from the
// ledger's lifecycle events.
func (s *RideService) HandleBookingEvent(ctx context.Context, ev events.BookingEvent) error {
	live := ev.Status == "PENDING" || ev.Status == "ACCEPTED"
	return s.repo.UpsertBookingRef(ctx, ev.BookingID, ev.RideID, live)
}

func (s *RideService) publishRideEvent(ctx context.Context, key string, ride domain.Ride) {
	ev := events.RideEvent{
		RideID:    ride.ID,
		DriverID:  ride.DriverID,
		Status:    string(ride.Status),
		Timestamp: time.Now().UTC(),
	}
	if err := s.pub.Publish(ctx, key, ev); err != nil {
		s.logger.Warn("RideService.publishRideEvent", fmt.Sprintf("failed to publish %s: %v", key, err))
	}
}
