package pricing

import (
	"time"

	"github.com/Domenick1991/fareledger/internal/domain"
	"github.com/Domenick1991/fareledger/internal/entropy"
)

// Factors are kept in hundredths so fares compose exactly in integers.
const factorScale = 100

type seatTier struct {
	minOccupancy float64
	hundredths   int64
}

// Ordered by occupancy, highest first; lower bounds are inclusive.
var seatTiers = []seatTier{
	{minOccupancy: 0.8, hundredths: 150},
	{minOccupancy: 0.5, hundredths: 120},
	{minOccupancy: 0.3, hundredths: 110},
}

const lowOccupancyHundredths = 95

type timeTier struct {
	maxHours   float64
	hundredths int64
}

// Ordered by hours left, nearest first; upper bounds are exclusive.
var timeTiers = []timeTier{
	{maxHours: 24, hundredths: 140},
	{maxHours: 72, hundredths: 120},
	{maxHours: 168, hundredths: 110},
}

const (
	baselineTimeHundredths = 100
	departedTimeHundredths = 0

	// DepartedTimeFactor zeroes the fare of a flight that already left.
	DepartedTimeFactor = 0.0
)

var demandHundredths = map[domain.DemandLevel]int64{
	domain.DemandLow:    100,
	domain.DemandMedium: 115,
	domain.DemandHigh:   130,
}

func seatHundredths(seatsAvailable, totalSeats int) int64 {
	if totalSeats <= 0 {
		return factorScale
	}
	occupancy := float64(totalSeats-seatsAvailable) / float64(totalSeats)
	for _, t := range seatTiers {
		if occupancy >= t.minOccupancy {
			return t.hundredths
		}
	}
	return lowOccupancyHundredths
}

func timeHundredths(departure, now time.Time) int64 {
	hoursLeft := departure.Sub(now).Hours()
	if hoursLeft < 0 {
		return departedTimeHundredths
	}
	for _, t := range timeTiers {
		if hoursLeft < t.maxHours {
			return t.hundredths
		}
	}
	return baselineTimeHundredths
}

func levelHundredths(level domain.DemandLevel) int64 {
	if h, ok := demandHundredths[level]; ok {
		return h
	}
	return demandHundredths[domain.DemandLow]
}

// SeatFactor prices occupancy. An aircraft with no seats is priced at 1.0.
func SeatFactor(seatsAvailable, totalSeats int) float64 {
	return float64(seatHundredths(seatsAvailable, totalSeats)) / factorScale
}

// TimeFactor prices proximity to departure. It returns DepartedTimeFactor
// once the flight has left.
func TimeFactor(departure, now time.Time) float64 {
	return float64(timeHundredths(departure, now)) / factorScale
}

// DemandFactor maps a demand level to its multiplier.
func DemandFactor(level domain.DemandLevel) float64 {
	return float64(levelHundredths(level)) / factorScale
}

// fareCents multiplies base by three hundredth-scaled factors and rounds
// half away from zero to whole cents.
func fareCents(base, seat, tf, demand int64) int64 {
	const divisor = factorScale * factorScale * factorScale
	n := base * seat * tf * demand
	if n < 0 {
		return -((-n + divisor/2) / divisor)
	}
	return (n + divisor/2) / divisor
}

// DemandSampler picks the current demand level for a flight.
type DemandSampler interface {
	Sample(flightID int64) domain.DemandLevel
}

// WeightedDemand draws LOW/MEDIUM/HIGH with 30/50/20 weights.
type WeightedDemand struct {
	src entropy.Source
}

func NewWeightedDemand(src entropy.Source) *WeightedDemand {
	return &WeightedDemand{src: src}
}

func (w *WeightedDemand) Sample(int64) domain.DemandLevel {
	r := w.src.Float64()
	switch {
	case r < 0.3:
		return domain.DemandLow
	case r < 0.8:
		return domain.DemandMedium
	default:
		return domain.DemandHigh
	}
}

// FixedDemand always reports the same level.
type FixedDemand domain.DemandLevel

func (f FixedDemand) Sample(int64) domain.DemandLevel { return domain.DemandLevel(f) }
