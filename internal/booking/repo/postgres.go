package repo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"rideshare/internal/booking/domain"
	"rideshare/internal/shared/apperrors"
)

// Schema holds the ledger's bootstrap statements, applied via db.Migrate.
var Schema = []string{
	`CREATE TABLE IF NOT EXISTS bookings (
		id TEXT PRIMARY KEY,
		ride_id TEXT NOT NULL,
		passenger_id TEXT NOT NULL,
		seats INT NOT NULL CHECK (seats >= 1),
		status TEXT NOT NULL,
		reason TEXT NOT NULL DEFAULT '',
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at TIMESTAMPTZ
	)`,
	`CREATE INDEX IF NOT EXISTS idx_bookings_passenger ON bookings (passenger_id)`,
	`CREATE INDEX IF NOT EXISTS idx_bookings_ride ON bookings (ride_id)`,
	`CREATE TABLE IF NOT EXISTS seat_release_queue (
		id BIGSERIAL PRIMARY KEY,
		booking_id TEXT NOT NULL,
		ride_id TEXT NOT NULL,
		seats INT NOT NULL,
		attempts INT NOT NULL DEFAULT 0,
		next_try TIMESTAMPTZ NOT NULL,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_seat_release_due ON seat_release_queue (next_try)`,
}

type BookingRepo struct {
	db *pgxpool.Pool
}

func NewBookingRepo(db *pgxpool.Pool) *BookingRepo {
	return &BookingRepo{db: db}
}

func (r *BookingRepo) Create(ctx context.Context, b domain.Booking) error {
	_, err := r.db.Exec(ctx, `
		INSERT INTO bookings (id, ride_id, passenger_id, seats, status, reason, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, b.ID, b.RideID, b.PassengerID, b.Seats, b.Status, b.Reason, b.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert booking: %w", err)
	}
	return nil
}

func (r *BookingRepo) GetByID(ctx context.Context, bookingID string) (*domain.Booking, error) {
	row := r.db.QueryRow(ctx, `
		SELECT id, ride_id, passenger_id, seats, status, reason, created_at, updated_at
		FROM bookings
		WHERE id = $1
	`, bookingID)

	b, err := scanBooking(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NotFound("booking", bookingID)
		}
		return nil, fmt.Errorf("select booking: %w", err)
	}
	return b, nil
}

// Transition applies the status change only when the current status is one
// of from; the guard in the WHERE clause makes it a compare-and-swap at the
// store, so a concurrent accept and cancel cannot both apply.
func (r *BookingRepo) Transition(ctx context.Context, bookingID string, from []domain.BookingStatus, to domain.BookingStatus, reason string) (*domain.Booking, error) {
	states := make([]string, len(from))
	for i, s := range from {
		states[i] = string(s)
	}

	row := r.db.QueryRow(ctx, `
		UPDATE bookings
		SET status = $2, reason = $3, updated_at = NOW()
		WHERE id = $1 AND status = ANY($4)
		RETURNING id, ride_id, passenger_id, seats, status, reason, created_at, updated_at
	`, bookingID, to, reason, states)

	b, err := scanBooking(row)
	if err == nil {
		return b, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("transition booking: %w", err)
	}

	var current string
	err = r.db.QueryRow(ctx, `SELECT status FROM bookings WHERE id = $1`, bookingID).Scan(&current)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperrors.NotFound("booking", bookingID)
	}
	if err != nil {
		return nil, fmt.Errorf("transition status check: %w", err)
	}
	return nil, apperrors.Conflict(fmt.Sprintf("booking %s is %s, cannot move to %s", bookingID, current, to))
}

func (r *BookingRepo) ByPassenger(ctx context.Context, passengerID string) ([]domain.Booking, error) {
	rows, err := r.db.Query(ctx, `
		SELECT id, ride_id, passenger_id, seats, status, reason, created_at, updated_at
		FROM bookings
		WHERE passenger_id = $1
		ORDER BY created_at DESC
	`, passengerID)
	if err != nil {
		return nil, fmt.Errorf("bookings by passenger: %w", err)
	}
	defer rows.Close()
	return collectBookings(rows)
}

func (r *BookingRepo) ByRide(ctx context.Context, rideID string) ([]domain.Booking, error) {
	rows, err := r.db.Query(ctx, `
		SELECT id, ride_id, passenger_id, seats, status, reason, created_at, updated_at
		FROM bookings
		WHERE ride_id = $1
		ORDER BY created_at
	`, rideID)
	if err != nil {
		return nil, fmt.Errorf("bookings by ride: %w", err)
	}
	defer rows.Close()
	return collectBookings(rows)
}

func (r *BookingRepo) PendingByRides(ctx context.Context, rideIDs []string) ([]domain.Booking, error) {
	if len(rideIDs) == 0 {
		return nil, nil
	}
	rows, err := r.db.Query(ctx, `
		SELECT id, ride_id, passenger_id, seats, status, reason, created_at, updated_at
		FROM bookings
		WHERE ride_id = ANY($1) AND status = 'PENDING'
		ORDER BY created_at
	`, rideIDs)
	if err != nil {
		return nil, fmt.Errorf("pending bookings by rides: %w", err)
	}
	defer rows.Close()
	return collectBookings(rows)
}

func (r *BookingRepo) EnqueueSeatRelease(ctx context.Context, bookingID, rideID string, seats int, nextTry time.Time) error {
	_, err := r.db.Exec(ctx, `
		INSERT INTO seat_release_queue (booking_id, ride_id, seats, next_try)
		VALUES ($1, $2, $3, $4)
	`, bookingID, rideID, seats, nextTry)
	if err != nil {
		return fmt.Errorf("enqueue seat release: %w", err)
	}
	return nil
}

func (r *BookingRepo) DueSeatReleases(ctx context.Context, now time.Time, limit int) ([]domain.SeatRelease, error) {
	rows, err := r.db.Query(ctx, `
		SELECT id, booking_id, ride_id, seats, attempts, next_try
		FROM seat_release_queue
		WHERE next_try <= $1
		ORDER BY next_try
		LIMIT $2
	`, now, limit)
	if err != nil {
		return nil, fmt.Errorf("due seat releases: %w", err)
	}
	defer rows.Close()

	var out []domain.SeatRelease
	for rows.Next() {
		var sr domain.SeatRelease
		if err := rows.Scan(&sr.ID, &sr.BookingID, &sr.RideID, &sr.Seats, &sr.Attempts, &sr.NextTry); err != nil {
			return nil, fmt.Errorf("scan seat release: %w", err)
		}
		out = append(out, sr)
	}
	return out, rows.Err()
}

func (r *BookingRepo) MarkReleaseDone(ctx context.Context, id int64) error {
	_, err := r.db.Exec(ctx, `DELETE FROM seat_release_queue WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("mark release done: %w", err)
	}
	return nil
}

func (r *BookingRepo) RescheduleRelease(ctx context.Context, id int64, attempts int, nextTry time.Time) error {
	_, err := r.db.Exec(ctx, `
		UPDATE seat_release_queue SET attempts = $2, next_try = $3 WHERE id = $1
	`, id, attempts, nextTry)
	if err != nil {
		return fmt.Errorf("reschedule release: %w", err)
	}
	return nil
}

func scanBooking(row pgx.Row) (*domain.Booking, error) {
	var (
		b         domain.Booking
		updatedAt *time.Time
	)
	err := row.Scan(&b.ID, &b.RideID, &b.PassengerID, &b.Seats, &b.Status, &b.Reason, &b.CreatedAt, &updatedAt)
	if err != nil {
		return nil, err
	}
	b.UpdatedAt = updatedAt
	return &b, nil
}

func collectBookings(rows pgx.Rows) ([]domain.Booking, error) {
	var bookings []domain.Booking
	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			return nil, fmt.Errorf("scan booking: %w", err)
		}
		bookings = append(bookings, *b)
	}
	return bookings, rows.Err()
}
