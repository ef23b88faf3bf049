package repository

import (
	"context"
	"time"

	"github.com/Domenick1991/fareledger/internal/domain"
	"github.com/jackc/pgx/v5/pgxpool"
)

type PGFareHistoryRepository struct {
	db *pgxpool.Pool
}

func NewFareHistoryRepository(db *pgxpool.Pool) FareHistoryRepository {
	return &PGFareHistoryRepository{db: db}
}

func (r *PGFareHistoryRepository) RecordFare(ctx context.Context, rec *domain.FareHistoryRecord) error {
	return r.db.QueryRow(ctx, `INSERT INTO fare_history (flight_id, fare_cents, seats_remaining, demand_level, hours_to_departure, seat_factor, time_factor, demand_factor, recorded_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9) RETURNING id`,
		rec.FlightID, rec.FareCents, rec.SeatsRemaining, rec.DemandLevel, rec.HoursToDeparture,
		rec.SeatFactor, rec.TimeFactor, rec.DemandFactor, rec.RecordedAt).Scan(&rec.ID)
}

func (r *PGFareHistoryRepository) FareTrends(ctx context.Context, flightID int64, since time.Time) ([]domain.FareHistoryRecord, error) {
	rows, err := r.db.Query(ctx, `SELECT id, flight_id, fare_cents, seats_remaining, demand_level, hours_to_departure, seat_factor, time_factor, demand_factor, recorded_at
		FROM fare_history WHERE flight_id=$1 AND recorded_at >= $2 ORDER BY recorded_at, id`, flightID, since)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	trend := make([]domain.FareHistoryRecord, 0)
	for rows.Next() {
		var rec domain.FareHistoryRecord
		if err := rows.Scan(&rec.ID, &rec.FlightID, &rec.FareCents, &rec.SeatsRemaining, &rec.DemandLevel,
			&rec.HoursToDeparture, &rec.SeatFactor, &rec.TimeFactor, &rec.DemandFactor, &rec.RecordedAt); err != nil {
			return nil, err
		}
		trend = append(trend, rec)
	}
	return trend, rows.Err()
}

var _ FareHistoryRepository = (*PGFareHistoryRepository)(nil)
