package pricing

import (
	"context"
	"errors"
	"math/big"
	"testing"
	"time"

	"github.com/Domenick1991/fareledger/internal/clock"
	"github.com/Domenick1991/fareledger/internal/domain"
	"github.com/Domenick1991/fareledger/internal/entropy"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockFareRecorder struct {
	mock.Mock
}

func (m *MockFareRecorder) RecordFare(ctx context.Context, rec *domain.FareHistoryRecord) error {
	args := m.Called(ctx, rec)
	return args.Error(0)
}

var now = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func flight(base int64, total, available int, departIn time.Duration) domain.Flight {
	return domain.Flight{
		ID:             7,
		FlightNo:       "AI101",
		BaseFareCents:  base,
		TotalSeats:     total,
		SeatsAvailable: available,
		DepartureTime:  now.Add(departIn),
		ArrivalTime:    now.Add(departIn + 2*time.Hour),
		Status:         domain.FlightStatusScheduled,
	}
}

func TestSeatFactor_Bands(t *testing.T) {
	testCases := []struct {
		name      string
		available int
		total     int
		want      float64
	}{
		{name: "empty cabin", available: 100, total: 100, want: 0.95},
		{name: "just below mild", available: 71, total: 100, want: 0.95},
		{name: "mild lower bound", available: 70, total: 100, want: 1.1},
		{name: "moderate lower bound", available: 50, total: 100, want: 1.2},
		{name: "just below surge", available: 21, total: 100, want: 1.2},
		{name: "surge lower bound", available: 20, total: 100, want: 1.5},
		{name: "surge lower bound 180 seats", available: 36, total: 180, want: 1.5},
		{name: "sold out", available: 0, total: 100, want: 1.5},
		{name: "no seats configured", available: 0, total: 0, want: 1.0},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, SeatFactor(tc.available, tc.total))
		})
	}
}

func TestTimeFactor_Bands(t *testing.T) {
	testCases := []struct {
		name     string
		departIn time.Duration
		want     float64
	}{
		{name: "departed", departIn: -time.Minute, want: 0},
		{name: "departing now", departIn: 0, want: 1.4},
		{name: "under a day", departIn: 23 * time.Hour, want: 1.4},
		{name: "exactly a day", departIn: 24 * time.Hour, want: 1.2},
		{name: "under three days", departIn: 71 * time.Hour, want: 1.2},
		{name: "exactly three days", departIn: 72 * time.Hour, want: 1.1},
		{name: "under a week", departIn: 167 * time.Hour, want: 1.1},
		{name: "a week out", departIn: 168 * time.Hour, want: 1.0},
		{name: "a month out", departIn: 720 * time.Hour, want: 1.0},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, TimeFactor(now.Add(tc.departIn), now))
		})
	}
}

func TestSeatFactor_MonotonicInOccupancy(t *testing.T) {
	const total = 100
	prev := 0.0
	for occupied := 20; occupied <= 85; occupied++ {
		f := SeatFactor(total-occupied, total)
		assert.GreaterOrEqual(t, f, prev, "occupancy %d%%", occupied)
		prev = f
	}
}

func TestTimeFactor_MonotonicTowardsDeparture(t *testing.T) {
	prev := 0.0
	for hours := 200; hours >= 10; hours-- {
		f := TimeFactor(now.Add(time.Duration(hours)*time.Hour), now)
		assert.GreaterOrEqual(t, f, prev, "%d hours out", hours)
		prev = f
	}
}

func TestWeightedDemand_Weights(t *testing.T) {
	testCases := []struct {
		draw float64
		want domain.DemandLevel
	}{
		{draw: 0, want: domain.DemandLow},
		{draw: 0.299, want: domain.DemandLow},
		{draw: 0.3, want: domain.DemandMedium},
		{draw: 0.799, want: domain.DemandMedium},
		{draw: 0.8, want: domain.DemandHigh},
		{draw: 0.999, want: domain.DemandHigh},
	}
	for _, tc := range testCases {
		d := NewWeightedDemand(entropy.Fixed{F: tc.draw})
		assert.Equal(t, tc.want, d.Sample(1), "draw %v", tc.draw)
	}
}

func TestWeightedDemand_Distribution(t *testing.T) {
	d := NewWeightedDemand(entropy.New(1))
	counts := map[domain.DemandLevel]int{}
	const n = 20000
	for i := 0; i < n; i++ {
		counts[d.Sample(1)]++
	}
	assert.InDelta(t, 0.3, float64(counts[domain.DemandLow])/n, 0.02)
	assert.InDelta(t, 0.5, float64(counts[domain.DemandMedium])/n, 0.02)
	assert.InDelta(t, 0.2, float64(counts[domain.DemandHigh])/n, 0.02)
}

func TestDemandFactor(t *testing.T) {
	assert.Equal(t, 1.0, DemandFactor(domain.DemandLow))
	assert.Equal(t, 1.15, DemandFactor(domain.DemandMedium))
	assert.Equal(t, 1.3, DemandFactor(domain.DemandHigh))
	assert.Equal(t, 1.0, DemandFactor("UNKNOWN"))
}

func TestEngine_Quote_SurgeScenario(t *testing.T) {
	e := NewEngine(clock.NewManual(now), FixedDemand(domain.DemandMedium))

	q := e.Quote(flight(500000, 180, 30, 10*time.Hour), now)

	assert.Equal(t, 1.5, q.SeatFactor)
	assert.Equal(t, 1.4, q.TimeFactor)
	assert.Equal(t, 1.15, q.DemandFactor)
	assert.Equal(t, domain.DemandMedium, q.DemandLevel)
	assert.Equal(t, int64(1207500), q.FareCents)
	assert.Equal(t, 83.3, q.OccupancyPercent)
	assert.Equal(t, 30, q.SeatsRemaining)
	assert.Equal(t, 10, q.HoursToDeparture)
	assert.Equal(t, 141.5, q.IncreasePercent)
	assert.True(t, q.Bookable)
	assert.Equal(t, now, q.QuotedAt)
}

func TestEngine_Quote_DiscountScenario(t *testing.T) {
	e := NewEngine(clock.NewManual(now), FixedDemand(domain.DemandLow))

	q := e.Quote(flight(450000, 180, 180, 200*time.Hour), now)

	assert.Equal(t, int64(427500), q.FareCents)
	assert.Equal(t, -5.0, q.IncreasePercent)
	assert.Equal(t, 0.0, q.OccupancyPercent)
	assert.Equal(t, 200, q.HoursToDeparture)
}

func TestEngine_Quote_Departed(t *testing.T) {
	e := NewEngine(clock.NewManual(now), FixedDemand(domain.DemandHigh))

	q := e.Quote(flight(500000, 180, 90, -90*time.Minute), now)

	assert.Equal(t, 0.0, q.TimeFactor)
	assert.Equal(t, int64(0), q.FareCents)
	assert.False(t, q.Bookable)
	assert.Equal(t, 0, q.HoursToDeparture)
	assert.Equal(t, -100.0, q.IncreasePercent)
}

func TestEngine_Quote_BookableAgreesWithFlight(t *testing.T) {
	e := NewEngine(clock.NewManual(now), FixedDemand(domain.DemandLow))

	atDeparture := flight(100000, 100, 50, 0)
	q := e.Quote(atDeparture, now)
	assert.False(t, atDeparture.Bookable(now))
	assert.False(t, q.Bookable)

	cancelled := flight(100000, 100, 50, 48*time.Hour)
	cancelled.Status = domain.FlightStatusCancelled
	assert.False(t, e.Quote(cancelled, now).Bookable)

	assert.True(t, e.Quote(flight(100000, 100, 50, time.Minute), now).Bookable)
}

func TestEngine_Quote_FloorsHours(t *testing.T) {
	e := NewEngine(clock.NewManual(now), FixedDemand(domain.DemandLow))

	q := e.Quote(flight(100000, 100, 100, 47*time.Hour+59*time.Minute), now)

	assert.Equal(t, 47, q.HoursToDeparture)
}

func TestEngine_Quote_RoundsHalfAwayFromZero(t *testing.T) {
	e := NewEngine(clock.NewManual(now), FixedDemand(domain.DemandLow))

	// 1 cent × 0.95 × 1.0 × 1.0 = 0.95 → 1
	q := e.Quote(flight(1, 100, 100, 300*time.Hour), now)
	assert.Equal(t, int64(1), q.FareCents)

	// 10 cents × 0.95 = 9.5 → 10
	q = e.Quote(flight(10, 100, 100, 300*time.Hour), now)
	assert.Equal(t, int64(10), q.FareCents)
}

func TestEngine_Quote_HalfCentRoundsUp(t *testing.T) {
	e := NewEngine(clock.NewManual(now), FixedDemand(domain.DemandMedium))

	// 100 × 1.5 × 1.4 × 1.15 = 241.5
	q := e.Quote(flight(100, 100, 10, 12*time.Hour), now)
	assert.Equal(t, int64(242), q.FareCents)

	// 500 × 1.5 × 1.0 × 1.15 = 862.5
	q = e.Quote(flight(500, 100, 10, 300*time.Hour), now)
	assert.Equal(t, int64(863), q.FareCents)
}

// exactFare is base × seat × time × demand in exact rational arithmetic,
// rounded half up to whole cents.
func exactFare(base int64, seat, tf, demand float64) int64 {
	r := new(big.Rat).SetInt64(base)
	for _, f := range []float64{seat, tf, demand} {
		hundredths := new(big.Rat).SetFrac64(int64(f*100+0.5), 100)
		r.Mul(r, hundredths)
	}
	r.Add(r, big.NewRat(1, 2))
	return new(big.Int).Quo(r.Num(), r.Denom()).Int64()
}

func TestEngine_Quote_MatchesExactRounding(t *testing.T) {
	seatCases := []int{10, 40, 60, 90}
	timeCases := []time.Duration{12 * time.Hour, 48 * time.Hour, 100 * time.Hour, 300 * time.Hour}
	levels := []domain.DemandLevel{domain.DemandLow, domain.DemandMedium, domain.DemandHigh}

	mismatches := 0
	for _, level := range levels {
		e := NewEngine(clock.NewManual(now), FixedDemand(level))
		for _, available := range seatCases {
			for _, departIn := range timeCases {
				for base := int64(1); base <= 20000; base++ {
					q := e.Quote(flight(base, 100, available, departIn), now)
					want := exactFare(base, q.SeatFactor, q.TimeFactor, q.DemandFactor)
					if q.FareCents != want {
						mismatches++
						if mismatches <= 5 {
							t.Errorf("base=%d seat=%v time=%v demand=%v got=%d want=%d",
								base, q.SeatFactor, q.TimeFactor, q.DemandFactor, q.FareCents, want)
						}
					}
				}
			}
		}
	}
	assert.Zero(t, mismatches)
}

func TestFareCents_LargeBase(t *testing.T) {
	// 5000.00 × 1.5 × 1.4 × 1.3 stays well inside int64
	assert.Equal(t, int64(1365000), fareCents(500000, 150, 140, 130))
	assert.Equal(t, int64(0), fareCents(500000, 150, departedTimeHundredths, 130))
}

func TestEngine_Quote_FareMonotonicInOccupancy(t *testing.T) {
	e := NewEngine(clock.NewManual(now), FixedDemand(domain.DemandMedium))
	var prev int64
	for available := 80; available >= 15; available-- {
		q := e.Quote(flight(500000, 100, available, 100*time.Hour), now)
		assert.GreaterOrEqual(t, q.FareCents, prev)
		prev = q.FareCents
	}
}

func TestEngine_QuoteAndRecord_WritesHistory(t *testing.T) {
	recorder := &MockFareRecorder{}
	e := NewEngine(clock.NewManual(now), FixedDemand(domain.DemandHigh), WithRecorder(recorder))
	ctx := context.Background()

	recorder.On("RecordFare", ctx, mock.MatchedBy(func(rec *domain.FareHistoryRecord) bool {
		return rec.FlightID == 7 && rec.DemandLevel == domain.DemandHigh && rec.SeatsRemaining == 30 &&
			rec.RecordedAt.Equal(now)
	})).Return(nil).Once()

	q := e.QuoteAndRecord(ctx, flight(500000, 180, 30, 10*time.Hour))

	assert.Equal(t, int64(1365000), q.FareCents)
	recorder.AssertExpectations(t)
}

func TestEngine_QuoteAndRecord_RecorderFailureIsSwallowed(t *testing.T) {
	recorder := &MockFareRecorder{}
	e := NewEngine(clock.NewManual(now), FixedDemand(domain.DemandLow), WithRecorder(recorder))
	ctx := context.Background()

	recorder.On("RecordFare", ctx, mock.Anything).Return(errors.New("fare_history unavailable")).Once()

	q := e.QuoteAndRecord(ctx, flight(100000, 100, 100, 300*time.Hour))

	assert.Equal(t, int64(95000), q.FareCents)
	recorder.AssertExpectations(t)
}

func TestEngine_Project(t *testing.T) {
	e := NewEngine(clock.NewManual(now), FixedDemand(domain.DemandLow))
	f := flight(100000, 100, 25, 30*time.Hour)

	points := e.Project(f, now, 24, 6)
	require.Len(t, points, 5)

	wantSeats := []int{25, 25, 24, 24, 23}
	for i, p := range points {
		assert.Equal(t, i*6, p.HoursFromNow)
		assert.Equal(t, wantSeats[i], p.SeatsRemaining)
		assert.Equal(t, domain.DemandLow, p.DemandLevel)
	}
	// 30h out: 1.2 ×1.2; from hour 12 the flight is under a day away: 1.2 × 1.4
	assert.Equal(t, int64(144000), points[0].FareCents)
	assert.Equal(t, int64(168000), points[2].FareCents)
}

func TestEngine_Project_DefaultStep(t *testing.T) {
	e := NewEngine(clock.NewManual(now), FixedDemand(domain.DemandLow))
	points := e.Project(flight(100000, 100, 100, 300*time.Hour), now, 12, 0)
	assert.Len(t, points, 3)
}
