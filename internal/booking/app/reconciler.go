package app

import (
	"context"
	"fmt"
	"time"

	"rideshare/internal/booking/domain"
	"rideshare/internal/shared/apperrors"
	"rideshare/internal/shared/util"
)

const (
	reconcileInterval = 15 * time.Second
	reconcileBatch    = 50
	backoffBase       = 30 * time.Second
	backoffCap        = 5 * time.Minute
)

// Reconciler drains the durable seat-release queue. Releases land there when
// the registry was unreachable at cancel time; each is retried with backoff
// until the registry applies it or reports the ride gone.
type Reconciler struct {
	repo   domain.BookingRepository
	rides  domain.RideGateway
	logger *util.Logger
}

func NewReconciler(repo domain.BookingRepository, rides domain.RideGateway, logger *util.Logger) *Reconciler {
	return &Reconciler{repo: repo, rides: rides, logger: logger}
}

// Run blocks until ctx is cancelled, sweeping the queue on a fixed tick.
func (r *Reconciler) Run(ctx context.Context) {
	ticker := time.NewTicker(reconcileInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.Sweep(ctx)
		}
	}
}

// Sweep processes one batch of due releases.
func (r *Reconciler) Sweep(ctx context.Context) {
	instance := "Reconciler.Sweep"

	due, err := r.repo.DueSeatReleases(ctx, time.Now(), reconcileBatch)
	if err != nil {
		r.logger.Error(instance, err)
		return
	}

	for _, release := range due {
		r.apply(ctx, release)
	}
}

func (r *Reconciler) apply(ctx context.Context, release domain.SeatRelease) {
	instance := "Reconciler.apply"

	_, err := r.rides.AdjustSeats(ctx, release.RideID, release.Seats)
	switch {
	case err == nil:
		if derr := r.repo.MarkReleaseDone(ctx, release.ID); derr != nil {
			r.logger.Error(instance, derr)
			return
		}
		r.logger.OK(instance, fmt.Sprintf(
			"released %d seats to ride %s for booking %s", release.Seats, release.RideID, release.BookingID))
	case apperrors.IsNotFound(err), apperrors.IsConflict(err):
		// Ride deleted or already terminal; the seats have nowhere to go.
		r.logger.Warn(instance, fmt.Sprintf(
			"dropping release for booking %s: %v", release.BookingID, err))
		if derr := r.repo.MarkReleaseDone(ctx, release.ID); derr != nil {
			r.logger.Error(instance, derr)
		}
	default:
		attempts := release.Attempts + 1
		next := time.Now().Add(backoff(attempts))
		if rerr := r.repo.RescheduleRelease(ctx, release.ID, attempts, next); rerr != nil {
			r.logger.Error(instance, rerr)
			return
		}
		r.logger.Warn(instance, fmt.Sprintf(
			"release for booking %s failed (attempt %d), retrying at %s: %v",
			release.BookingID, attempts, next.Format(time.RFC3339), err))
	}
}

func backoff(attempts int) time.Duration {
	d := backoffBase
	for i := 1; i < attempts; i++ {
		d *= 2
		if d >= backoffCap {
			return backoffCap
		}
	}
	return d
}
