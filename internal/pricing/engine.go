// Package pricing computes dynamic fares from occupancy, time to departure
// and simulated demand. Factors compose multiplicatively:
//
//	fare = base × seat × time × demand
//
// rounded half away from zero to whole cents.
package pricing

import (
	"context"
	"math"
	"time"

	"github.com/Domenick1991/fareledger/internal/clock"
	"github.com/Domenick1991/fareledger/internal/domain"
	"go.uber.org/zap"
)

// FareRecorder persists fare snapshots for analytics.
type FareRecorder interface {
	RecordFare(ctx context.Context, rec *domain.FareHistoryRecord) error
}

type Engine struct {
	clock    clock.Clock
	demand   DemandSampler
	recorder FareRecorder
	logger   *zap.Logger
}

type EngineOption func(*Engine)

func WithRecorder(r FareRecorder) EngineOption {
	return func(e *Engine) { e.recorder = r }
}

func WithLogger(l *zap.Logger) EngineOption {
	return func(e *Engine) { e.logger = l }
}

func NewEngine(c clock.Clock, demand DemandSampler, opts ...EngineOption) *Engine {
	e := &Engine{clock: c, demand: demand, logger: zap.NewNop()}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Now exposes the engine clock so callers price and validate against the
// same instant.
func (e *Engine) Now() time.Time {
	return e.clock.Now()
}

// Quote prices the flight as of now. It has no side effects beyond drawing
// a demand sample.
func (e *Engine) Quote(f domain.Flight, now time.Time) domain.FareQuote {
	level := e.demand.Sample(f.ID)
	seat := seatHundredths(f.SeatsAvailable, f.TotalSeats)
	tf := timeHundredths(f.DepartureTime, now)
	demand := levelHundredths(level)

	fare := fareCents(f.BaseFareCents, seat, tf, demand)

	hours := math.Floor(f.DepartureTime.Sub(now).Hours())
	if hours < 0 {
		hours = 0
	}

	var increase float64
	if f.BaseFareCents > 0 {
		increase = round1(float64(fare-f.BaseFareCents) / float64(f.BaseFareCents) * 100)
	}

	return domain.FareQuote{
		FlightID:         f.ID,
		BaseFareCents:    f.BaseFareCents,
		FareCents:        fare,
		SeatFactor:       float64(seat) / factorScale,
		TimeFactor:       float64(tf) / factorScale,
		DemandFactor:     float64(demand) / factorScale,
		DemandLevel:      level,
		OccupancyPercent: round1(f.OccupancyRate() * 100),
		SeatsRemaining:   f.SeatsAvailable,
		HoursToDeparture: int(hours),
		IncreasePercent:  increase,
		Bookable:         f.Bookable(now),
		QuotedAt:         now,
	}
}

// QuoteAndRecord prices the flight at the engine clock and appends a fare
// history record. Recording failures are logged, never returned.
func (e *Engine) QuoteAndRecord(ctx context.Context, f domain.Flight) domain.FareQuote {
	q := e.Quote(f, e.clock.Now())
	e.Record(ctx, q)
	return q
}

// Record appends the quote to fare history on a best-effort basis.
func (e *Engine) Record(ctx context.Context, q domain.FareQuote) {
	if e.recorder == nil {
		return
	}
	rec := q.HistoryRecord()
	if err := e.recorder.RecordFare(ctx, &rec); err != nil {
		e.logger.Warn("fare history write failed",
			zap.Int64("flight_id", q.FlightID),
			zap.Int64("fare_cents", q.FareCents),
			zap.Error(err))
	}
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}
