package repo

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"rideshare/internal/booking/domain"
	"rideshare/internal/shared/apperrors"
)

// Memory mirrors the Postgres repository for tests. Transitions hold the
// lock across the read-compare-write, matching the SQL guard.
type Memory struct {
	mu       sync.Mutex
	bookings map[string]domain.Booking
	queue    []domain.SeatRelease
	nextID   int64
}

func NewMemory() *Memory {
	return &Memory{bookings: make(map[string]domain.Booking)}
}

func (m *Memory) Create(_ context.Context, b domain.Booking) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.bookings[b.ID]; exists {
		return apperrors.Conflict("booking " + b.ID + " already exists")
	}
	m.bookings[b.ID] = b
	return nil
}

func (m *Memory) GetByID(_ context.Context, bookingID string) (*domain.Booking, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.bookings[bookingID]
	if !ok {
		return nil, apperrors.NotFound("booking", bookingID)
	}
	return &b, nil
}

func (m *Memory) Transition(_ context.Context, bookingID string, from []domain.BookingStatus, to domain.BookingStatus, reason string) (*domain.Booking, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	b, ok := m.bookings[bookingID]
	if !ok {
		return nil, apperrors.NotFound("booking", bookingID)
	}

	matched := false
	for _, s := range from {
		if b.Status == s {
			matched = true
			break
		}
	}
	if !matched {
		return nil, apperrors.Conflict(fmt.Sprintf("booking %s is %s, cannot move to %s", bookingID, b.Status, to))
	}

	b.Status = to
	b.Reason = reason
	now := time.Now()
	b.UpdatedAt = &now
	m.bookings[bookingID] = b
	return &b, nil
}

func (m *Memory) ByPassenger(_ context.Context, passengerID string) ([]domain.Booking, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.Booking
	for _, b := range m.bookings {
		if b.PassengerID == passengerID {
			out = append(out, b)
		}
	}
	sortByCreated(out)
	return out, nil
}

func (m *Memory) ByRide(_ context.Context, rideID string) ([]domain.Booking, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.Booking
	for _, b := range m.bookings {
		if b.RideID == rideID {
			out = append(out, b)
		}
	}
	sortByCreated(out)
	return out, nil
}

func (m *Memory) PendingByRides(_ context.Context, rideIDs []string) ([]domain.Booking, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	ids := make(map[string]bool, len(rideIDs))
	for _, id := range rideIDs {
		ids[id] = true
	}
	var out []domain.Booking
	for _, b := range m.bookings {
		if b.Status == domain.StatusPending && ids[b.RideID] {
			out = append(out, b)
		}
	}
	sortByCreated(out)
	return out, nil
}

func (m *Memory) EnqueueSeatRelease(_ context.Context, bookingID, rideID string, seats int, nextTry time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	m.queue = append(m.queue, domain.SeatRelease{
		ID:        m.nextID,
		BookingID: bookingID,
		RideID:    rideID,
		Seats:     seats,
		NextTry:   nextTry,
	})
	return nil
}

func (m *Memory) DueSeatReleases(_ context.Context, now time.Time, limit int) ([]domain.SeatRelease, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.SeatRelease
	for _, sr := range m.queue {
		if !sr.NextTry.After(now) {
			out = append(out, sr)
			if len(out) == limit {
				break
			}
		}
	}
	return out, nil
}

func (m *Memory) MarkReleaseDone(_ context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, sr := range m.queue {
		if sr.ID == id {
			m.queue = append(m.queue[:i], m.queue[i+1:]...)
			return nil
		}
	}
	return nil
}

func (m *Memory) RescheduleRelease(_ context.Context, id int64, attempts int, nextTry time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.queue {
		if m.queue[i].ID == id {
			m.queue[i].Attempts = attempts
			m.queue[i].NextTry = nextTry
			return nil
		}
	}
	return nil
}

// QueueLen reports outstanding seat releases. Test helper.
func (m *Memory) QueueLen() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.queue)
}

func sortByCreated(bookings []domain.Booking) {
	sort.Slice(bookings, func(i, j int) bool {
		return bookings[i].CreatedAt.Before(bookings[j].CreatedAt)
	})
}
