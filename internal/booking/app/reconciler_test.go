package app

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rideshare/internal/booking/domain"
	bookingrepo "rideshare/internal/booking/repo"
	riderepo "rideshare/internal/ride/repo"
	"rideshare/internal/shared/util"
)

func TestSweepAppliesDueRelease(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	rideID := f.seedRide(t, "driver-1", 2)

	booking, err := f.svc.Request(ctx, "passenger-1", rideID, 2)
	require.NoError(t, err)
	_, err = f.svc.Accept(ctx, booking.ID, "driver-1")
	require.NoError(t, err)

	f.gateway.down.Store(true)
	_, err = f.svc.Cancel(ctx, booking.ID, "passenger-1")
	require.NoError(t, err)
	require.Equal(t, 1, f.bookings.QueueLen())

	f.gateway.down.Store(false)
	rec := NewReconciler(f.bookings, f.gateway, util.New())
	rec.Sweep(ctx)

	assert.Equal(t, 0, f.bookings.QueueLen())
	ride, err := f.gateway.GetRide(ctx, rideID)
	require.NoError(t, err)
	assert.Equal(t, 2, ride.AvailableSeats)
	assert.Equal(t, "SCHEDULED", ride.Status)
}

func TestSweepReschedulesWhileRegistryDown(t *testing.T) {
	bookings := bookingrepo.NewMemory()
	gateway := &memGateway{rides: riderepo.NewMemory()}
	gateway.down.Store(true)

	require.NoError(t, bookings.EnqueueSeatRelease(context.Background(), "b1", "r1", 2, time.Now().Add(-time.Second)))

	rec := NewReconciler(bookings, gateway, util.New())
	rec.Sweep(context.Background())

	// The entry stays queued with a later due time.
	assert.Equal(t, 1, bookings.QueueLen())
	due, err := bookings.DueSeatReleases(context.Background(), time.Now(), 10)
	require.NoError(t, err)
	assert.Empty(t, due)
}

func TestSweepDropsReleaseForMissingRide(t *testing.T) {
	bookings := bookingrepo.NewMemory()
	gateway := &memGateway{rides: riderepo.NewMemory()}

	require.NoError(t, bookings.EnqueueSeatRelease(context.Background(), "b1", "gone", 1, time.Now().Add(-time.Second)))

	rec := NewReconciler(bookings, gateway, util.New())
	rec.Sweep(context.Background())

	assert.Equal(t, 0, bookings.QueueLen())
}

func TestSweepSkipsFutureEntries(t *testing.T) {
	bookings := bookingrepo.NewMemory()
	gateway := &memGateway{rides: riderepo.NewMemory()}

	require.NoError(t, bookings.EnqueueSeatRelease(context.Background(), "b1", "r1", 1, time.Now().Add(time.Hour)))

	rec := NewReconciler(bookings, gateway, util.New())
	rec.Sweep(context.Background())

	assert.Equal(t, 1, bookings.QueueLen())
}

func TestBackoffCaps(t *testing.T) {
	assert.Equal(t, 30*time.Second, backoff(1))
	assert.Equal(t, time.Minute, backoff(2))
	assert.Equal(t, 2*time.Minute, backoff(3))
	assert.Equal(t, 4*time.Minute, backoff(4))
	assert.Equal(t, 5*time.Minute, backoff(5))
	assert.Equal(t, 5*time.Minute, backoff(12))
}

var _ domain.RideGateway = (*memGateway)(nil)
