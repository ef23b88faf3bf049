package pricing

import (
	"time"

	"github.com/Domenick1991/fareledger/internal/domain"
)

const (
	DefaultProjectionHours = 24
	DefaultProjectionStep  = 6
	// one seat is assumed sold every seatDrainHours simulated hours
	seatDrainHours = 12
)

// Project simulates how the fare may move over the next hoursAhead hours,
// sampling every step hours. Each point draws its own demand level.
func (e *Engine) Project(f domain.Flight, now time.Time, hoursAhead, step int) []domain.FareProjection {
	if hoursAhead < 0 {
		hoursAhead = 0
	}
	if step <= 0 {
		step = DefaultProjectionStep
	}

	out := make([]domain.FareProjection, 0, hoursAhead/step+1)
	for hour := 0; hour <= hoursAhead; hour += step {
		sim := f
		sim.SeatsAvailable = max(0, f.SeatsAvailable-hour/seatDrainHours)
		q := e.Quote(sim, now.Add(time.Duration(hour)*time.Hour))
		out = append(out, domain.FareProjection{
			HoursFromNow:   hour,
			FareCents:      q.FareCents,
			SeatsRemaining: sim.SeatsAvailable,
			DemandLevel:    q.DemandLevel,
		})
	}
	return out
}
