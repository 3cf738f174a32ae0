package repo

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"rideshare/internal/ride/domain"
	"rideshare/internal/shared/apperrors"
)

// Schema holds the registry's bootstrap statements, applied via db.Migrate.
var Schema = []string{
	`CREATE TABLE IF NOT EXISTS rides (
		id TEXT PRIMARY KEY,
		departure_city TEXT NOT NULL,
		destination_city TEXT NOT NULL,
		departure_date DATE NOT NULL,
		total_seats INT NOT NULL CHECK (total_seats >= 1),
		available_seats INT NOT NULL CHECK (available_seats >= 0 AND available_seats <= total_seats),
		price_per_seat NUMERIC(10,2) NOT NULL DEFAULT 0,
		status TEXT NOT NULL,
		driver_id TEXT NOT NULL,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at TIMESTAMPTZ
	)`,
	`CREATE INDEX IF NOT EXISTS idx_rides_driver ON rides (driver_id)`,
	`CREATE INDEX IF NOT EXISTS idx_rides_search ON rides (status, departure_date)`,
	`CREATE TABLE IF NOT EXISTS booking_refs (
		booking_id TEXT PRIMARY KEY,
		ride_id TEXT NOT NULL,
		live BOOLEAN NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_booking_refs_ride ON booking_refs (ride_id) WHERE live`,
}

type RideRepo struct {
	db *pgxpool.Pool
}

func NewRideRepo(db *pgxpool.Pool) *RideRepo {
	return &RideRepo{db: db}
}

func (r *RideRepo) Create(ctx context.Context, ride domain.Ride) error {
	_, err := r.db.Exec(ctx, `
		INSERT INTO rides (id, departure_city, destination_city, departure_date,
			total_seats, available_seats, price_per_seat, status, driver_id, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`,
		ride.ID, ride.DepartureCity.Name, ride.DestinationCity.Name, ride.DepartureDate,
		ride.TotalSeats, ride.AvailableSeats, ride.PricePerSeat, ride.Status, ride.DriverID, ride.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert ride: %w", err)
	}
	return nil
}

func (r *RideRepo) GetByID(ctx context.Context, rideID string) (*domain.Ride, error) {
	row := r.db.QueryRow(ctx, `
		SELECT id, departure_city, destination_city, departure_date,
		       total_seats, available_seats, price_per_seat, status, driver_id, created_at, updated_at
		FROM rides
		WHERE id = $1
	`, rideID)

	ride, err := scanRide(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NotFound("ride", rideID)
		}
		return nil, fmt.Errorf("select ride: %w", err)
	}
	return ride, nil
}

func (r *RideRepo) Update(ctx context.Context, ride domain.Ride) error {
	cmd, err := r.db.Exec(ctx, `
		UPDATE rides
		SET departure_city = $2,
		    destination_city = $3,
		    departure_date = $4,
		    price_per_seat = $5,
		    status = $6,
		    updated_at = NOW()
		WHERE id = $1
	`,
		ride.ID, ride.DepartureCity.Name, ride.DestinationCity.Name,
		ride.DepartureDate, ride.PricePerSeat, ride.Status,
	)
	if err != nil {
		return fmt.Errorf("update ride: %w", err)
	}
	if cmd.RowsAffected() == 0 {
		return apperrors.NotFound("ride", ride.ID)
	}
	return nil
}

// AdjustSeats is the single mutation path for capacity. The guard lives in
// the WHERE clause so two concurrent decrements can never both pass: the
// database serializes the row update, and an undershoot matches no row.
// Overshoot on release is clamped to total_seats.
func (r *RideRepo) AdjustSeats(ctx context.Context, rideID string, delta int) (int, error) {
	var available int
	err := r.db.QueryRow(ctx, `
		UPDATE rides
		SET available_seats = LEAST(available_seats + $2, total_seats),
		    status = CASE WHEN LEAST(available_seats + $2, total_seats) = 0
		                  THEN 'FULL' ELSE 'SCHEDULED' END,
		    updated_at = NOW()
		WHERE id = $1
		  AND status IN ('SCHEDULED', 'FULL')
		  AND available_seats + $2 >= 0
		RETURNING available_seats
	`, rideID, delta).Scan(&available)
	if err == nil {
		return available, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return 0, fmt.Errorf("adjust seats: %w", err)
	}

	// No row matched: tell the caller why.
	var status string
	var current int
	err = r.db.QueryRow(ctx, `
		SELECT status, available_seats FROM rides WHERE id = $1
	`, rideID).Scan(&status, &current)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, apperrors.NotFound("ride", rideID)
	}
	if err != nil {
		return 0, fmt.Errorf("adjust seats status check: %w", err)
	}
	if domain.RideStatus(status).Terminal() {
		return 0, apperrors.Conflict(fmt.Sprintf("ride %s is %s", rideID, status))
	}
	return 0, apperrors.Capacity(fmt.Sprintf(
		"ride %s has %d available seats, cannot apply delta %d", rideID, current, delta))
}

func (r *RideRepo) SetStatus(ctx context.Context, rideID string, from []domain.RideStatus, to domain.RideStatus) error {
	states := make([]string, len(from))
	for i, s := range from {
		states[i] = string(s)
	}

	cmd, err := r.db.Exec(ctx, `
		UPDATE rides
		SET status = $2, updated_at = NOW()
		WHERE id = $1 AND status = ANY($3)
	`, rideID, to, states)
	if err != nil {
		return fmt.Errorf("set ride status: %w", err)
	}
	if cmd.RowsAffected() == 1 {
		return nil
	}

	var current string
	err = r.db.QueryRow(ctx, `SELECT status FROM rides WHERE id = $1`, rideID).Scan(&current)
	if errors.Is(err, pgx.ErrNoRows) {
		return apperrors.NotFound("ride", rideID)
	}
	if err != nil {
		return fmt.Errorf("set ride status check: %w", err)
	}
	return apperrors.Conflict(fmt.Sprintf("ride %s is %s, cannot move to %s", rideID, current, to))
}

func (r *RideRepo) Search(ctx context.Context, f domain.SearchFilters) ([]domain.Ride, error) {
	var (
		conds []string
		args  []any
	)
	conds = append(conds, "status = 'SCHEDULED'", "available_seats > 0")

	if f.Departure != "" {
		args = append(args, "%"+f.Departure+"%")
		conds = append(conds, fmt.Sprintf("departure_city ILIKE $%d", len(args)))
	}
	if f.Destination != "" {
		args = append(args, "%"+f.Destination+"%")
		conds = append(conds, fmt.Sprintf("destination_city ILIKE $%d", len(args)))
	}
	if f.Date != nil {
		args = append(args, *f.Date)
		conds = append(conds, fmt.Sprintf("departure_date = $%d", len(args)))
	}

	query := `
		SELECT id, departure_city, destination_city, departure_date,
		       total_seats, available_seats, price_per_seat, status, driver_id, created_at, updated_at
		FROM rides
		WHERE ` + strings.Join(conds, " AND ") + `
		ORDER BY departure_date, created_at`

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("search rides: %w", err)
	}
	defer rows.Close()

	return collectRides(rows)
}

func (r *RideRepo) ByDriver(ctx context.Context, driverID string) ([]domain.Ride, error) {
	rows, err := r.db.Query(ctx, `
		SELECT id, departure_city, destination_city, departure_date,
		       total_seats, available_seats, price_per_seat, status, driver_id, created_at, updated_at
		FROM rides
		WHERE driver_id = $1
		ORDER BY departure_date
	`, driverID)
	if err != nil {
		return nil, fmt.Errorf("rides by driver: %w", err)
	}
	defer rows.Close()

	return collectRides(rows)
}

func (r *RideRepo) UpsertBookingRef(ctx context.Context, bookingID, rideID string, live bool) error {
	_, err := r.db.Exec(ctx, `
		INSERT INTO booking_refs (booking_id, ride_id, live, updated_at)
		VALUES ($1, $2, $3, NOW())
		ON CONFLICT (booking_id)
		DO UPDATE SET live = $3, updated_at = NOW()
	`, bookingID, rideID, live)
	if err != nil {
		return fmt.Errorf("upsert booking ref: %w", err)
	}
	return nil
}

func (r *RideRepo) OpenBookingCount(ctx context.Context, rideID string) (int, error) {
	var count int
	err := r.db.QueryRow(ctx, `
		SELECT COUNT(*) FROM booking_refs WHERE ride_id = $1 AND live
	`, rideID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("open booking count: %w", err)
	}
	return count, nil
}

func scanRide(row pgx.Row) (*domain.Ride, error) {
	var (
		ride      domain.Ride
		dep, dest string
		updatedAt *time.Time
	)
	err := row.Scan(&ride.ID, &dep, &dest, &ride.DepartureDate,
		&ride.TotalSeats, &ride.AvailableSeats, &ride.PricePerSeat,
		&ride.Status, &ride.DriverID, &ride.CreatedAt, &updatedAt)
	if err != nil {
		return nil, err
	}
	ride.DepartureCity = domain.City{Name: dep}
	ride.DestinationCity = domain.City{Name: dest}
	ride.UpdatedAt = updatedAt
	return &ride, nil
}

func collectRides(rows pgx.Rows) ([]domain.Ride, error) {
	var rides []domain.Ride
	for rows.Next() {
		ride, err := scanRide(rows)
		if err != nil {
			return nil, fmt.Errorf("scan ride: %w", err)
		}
		rides = append(rides, *ride)
	}
	return rides, rows.Err()
}
