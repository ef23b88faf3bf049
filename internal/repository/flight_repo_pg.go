package repository

import (
	"context"
	"errors"
	"time"

	"github.com/Domenick1991/fareledger/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const flightColumns = `id, flight_no, origin, destination, departure_time, arrival_time, base_fare_cents, total_seats, available_seats, status, aircraft_type, created_at, updated_at`

type PGFlightRepository struct {
	db *pgxpool.Pool
}

func NewFlightRepository(db *pgxpool.Pool) *PGFlightRepository {
	return &PGFlightRepository{db: db}
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanFlight(row rowScanner) (*domain.Flight, error) {
	var f domain.Flight
	if err := row.Scan(&f.ID, &f.FlightNo, &f.Origin, &f.Destination, &f.DepartureTime, &f.ArrivalTime,
		&f.BaseFareCents, &f.TotalSeats, &f.SeatsAvailable, &f.Status, &f.AircraftType, &f.CreatedAt, &f.UpdatedAt); err != nil {
		return nil, err
	}
	return &f, nil
}

func (r *PGFlightRepository) List(ctx context.Context) ([]domain.Flight, error) {
	rows, err := r.db.Query(ctx, `SELECT `+flightColumns+` FROM flights ORDER BY departure_time, id`)
	if err != nil {
		return nil, err
	}
	return collectFlights(rows)
}

func (r *PGFlightRepository) Search(ctx context.Context, origin, destination string, date time.Time) ([]domain.Flight, error) {
	rows, err := r.db.Query(ctx, `SELECT `+flightColumns+` FROM flights
		WHERE origin=$1 AND destination=$2 AND (departure_time AT TIME ZONE 'UTC')::date=$3::date
		ORDER BY departure_time, id`,
		origin, destination, date.UTC().Format(time.DateOnly))
	if err != nil {
		return nil, err
	}
	return collectFlights(rows)
}

func collectFlights(rows pgx.Rows) ([]domain.Flight, error) {
	defer rows.Close()

	flights := make([]domain.Flight, 0)
	for rows.Next() {
		f, err := scanFlight(rows)
		if err != nil {
			return nil, err
		}
		flights = append(flights, *f)
	}
	return flights, rows.Err()
}

func (r *PGFlightRepository) GetByID(ctx context.Context, id int64) (*domain.Flight, error) {
	f, err := scanFlight(r.db.QueryRow(ctx, `SELECT `+flightColumns+` FROM flights WHERE id=$1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.Errorf(domain.ErrFlightNotFound, "flight %d not found", id)
	}
	return f, err
}

// CreateFlight inserts a scheduled flight with every seat available.
func (r *PGFlightRepository) CreateFlight(ctx context.Context, f *domain.Flight) error {
	if f.Status == "" {
		f.Status = domain.FlightStatusScheduled
	}
	return r.db.QueryRow(ctx, `INSERT INTO flights (flight_no, origin, destination, departure_time, arrival_time, base_fare_cents, total_seats, available_seats, status, aircraft_type)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $7, $8, $9)
		ON CONFLICT (flight_no) DO UPDATE SET updated_at = flights.updated_at
		RETURNING id, available_seats, created_at, updated_at`,
		f.FlightNo, f.Origin, f.Destination, f.DepartureTime, f.ArrivalTime, f.BaseFareCents, f.TotalSeats, f.Status, f.AircraftType).
		Scan(&f.ID, &f.SeatsAvailable, &f.CreatedAt, &f.UpdatedAt)
}

var _ FlightRepository = (*PGFlightRepository)(nil)
