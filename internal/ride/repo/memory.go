package repo

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"rideshare/internal/ride/domain"
	"rideshare/internal/shared/apperrors"
)

// Memory is an in-memory RideRepository with the same semantics as the
// Postgres one. Exclusion is scoped per ride: each entry carries its own
// lock, so seat arithmetic on different rides never serializes.
type Memory struct {
	mu    sync.RWMutex
	rides map[string]*rideEntry
	refs  map[string]bookingRef
}

type rideEntry struct {
	mu   sync.Mutex
	ride domain.Ride
}

type bookingRef struct {
	rideID string
	live   bool
}

func NewMemory() *Memory {
	return &Memory{
		rides: make(map[string]*rideEntry),
		refs:  make(map[string]bookingRef),
	}
}

func (m *Memory) entry(rideID string) (*rideEntry, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	e, ok := m.rides[rideID]
	return e, ok
}

func (m *Memory) Create(_ context.Context, ride domain.Ride) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.rides[ride.ID]; exists {
		return apperrors.Conflict("ride " + ride.ID + " already exists")
	}
	m.rides[ride.ID] = &rideEntry{ride: ride}
	return nil
}

func (m *Memory) GetByID(_ context.Context, rideID string) (*domain.Ride, error) {
	e, ok := m.entry(rideID)
	if !ok {
		return nil, apperrors.NotFound("ride", rideID)
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	ride := e.ride
	return &ride, nil
}

func (m *Memory) Update(_ context.Context, ride domain.Ride) error {
	e, ok := m.entry(ride.ID)
	if !ok {
		return apperrors.NotFound("ride", ride.ID)
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	now := time.Now()
	ride.TotalSeats = e.ride.TotalSeats
	ride.AvailableSeats = e.ride.AvailableSeats
	ride.UpdatedAt = &now
	e.ride = ride
	return nil
}

func (m *Memory) AdjustSeats(_ context.Context, rideID string, delta int) (int, error) {
	e, ok := m.entry(rideID)
	if !ok {
		return 0, apperrors.NotFound("ride", rideID)
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if e.ride.Status.Terminal() {
		return 0, apperrors.Conflict(fmt.Sprintf("ride %s is %s", rideID, e.ride.Status))
	}

	next := e.ride.AvailableSeats + delta
	if next < 0 {
		return 0, apperrors.Capacity(fmt.Sprintf(
			"ride %s has %d available seats, cannot apply delta %d", rideID, e.ride.AvailableSeats, delta))
	}
	if next > e.ride.TotalSeats {
		next = e.ride.TotalSeats
	}

	e.ride.AvailableSeats = next
	if next == 0 {
		e.ride.Status = domain.StatusFull
	} else {
		e.ride.Status = domain.StatusScheduled
	}
	now := time.Now()
	e.ride.UpdatedAt = &now
	return next, nil
}

func (m *Memory) SetStatus(_ context.Context, rideID string, from []domain.RideStatus, to domain.RideStatus) error {
	e, ok := m.entry(rideID)
	if !ok {
		return apperrors.NotFound("ride", rideID)
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	for _, s := range from {
		if e.ride.Status == s {
			e.ride.Status = to
			now := time.Now()
			e.ride.UpdatedAt = &now
			return nil
		}
	}
	return apperrors.Conflict(fmt.Sprintf("ride %s is %s, cannot move to %s", rideID, e.ride.Status, to))
}

func (m *Memory) Search(_ context.Context, f domain.SearchFilters) ([]domain.Ride, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []domain.Ride
	for _, e := range m.rides {
		e.mu.Lock()
		ride := e.ride
		e.mu.Unlock()

		if ride.Status != domain.StatusScheduled || ride.AvailableSeats == 0 {
			continue
		}
		if f.Departure != "" &&
			!strings.Contains(strings.ToLower(ride.DepartureCity.Name), strings.ToLower(f.Departure)) {
			continue
		}
		if f.Destination != "" &&
			!strings.Contains(strings.ToLower(ride.DestinationCity.Name), strings.ToLower(f.Destination)) {
			continue
		}
		if f.Date != nil && !ride.DepartureDate.Equal(*f.Date) {
			continue
		}
		out = append(out, ride)
	}
	return out, nil
}

func (m *Memory) ByDriver(_ context.Context, driverID string) ([]domain.Ride, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []domain.Ride
	for _, e := range m.rides {
		e.mu.Lock()
		if e.ride.DriverID == driverID {
			out = append(out, e.ride)
		}
		e.mu.Unlock()
	}
	return out, nil
}

func (m *Memory) UpsertBookingRef(_ context.Context, bookingID, rideID string, live bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.refs[bookingID] = bookingRef{rideID: rideID, live: live}
	return nil
}

func (m *Memory) OpenBookingCount(_ context.Context, rideID string) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	count := 0
	for _, ref := range m.refs {
		if ref.rideID == rideID && ref.live {
			count++
		}
	}
	return count, nil
}
