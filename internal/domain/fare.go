package domain

import "time"

type DemandLevel string

const (
	DemandLow    DemandLevel = "LOW"
	DemandMedium DemandLevel = "MEDIUM"
	DemandHigh   DemandLevel = "HIGH"
)

// FareQuote is a freshly computed price for a flight. It is never persisted
// as is; FareHistoryRecord is its audit snapshot.
type FareQuote struct {
	FlightID         int64       `json:"flight_id"`
	BaseFareCents    int64       `json:"base_fare_cents"`
	FareCents        int64       `json:"fare_cents"`
	SeatFactor       float64     `json:"seat_factor"`
	TimeFactor       float64     `json:"time_factor"`
	DemandFactor     float64     `json:"demand_factor"`
	DemandLevel      DemandLevel `json:"demand_level"`
	OccupancyPercent float64     `json:"occupancy_percent"`
	SeatsRemaining   int         `json:"seats_remaining"`
	HoursToDeparture int         `json:"hours_to_departure"`
	IncreasePercent  float64     `json:"increase_percent"`
	Bookable         bool        `json:"bookable"`
	QuotedAt         time.Time   `json:"quoted_at"`
}

type FareHistoryRecord struct {
	ID               int64       `json:"id"`
	FlightID         int64       `json:"flight_id"`
	FareCents        int64       `json:"fare_cents"`
	SeatsRemaining   int         `json:"seats_remaining"`
	DemandLevel      DemandLevel `json:"demand_level"`
	HoursToDeparture int         `json:"hours_to_departure"`
	SeatFactor       float64     `json:"seat_factor"`
	TimeFactor       float64     `json:"time_factor"`
	DemandFactor     float64     `json:"demand_factor"`
	RecordedAt       time.Time   `json:"recorded_at"`
}

// FlightOffer is a search hit: the flight with its current price.
type FlightOffer struct {
	Flight Flight    `json:"flight"`
	Fare   FareQuote `json:"fare"`
}

// FareProjection is one simulated point of a flight's future price.
type FareProjection struct {
	HoursFromNow   int         `json:"hours_from_now"`
	FareCents      int64       `json:"fare_cents"`
	SeatsRemaining int         `json:"seats_remaining"`
	DemandLevel    DemandLevel `json:"demand_level"`
}

// HistoryRecord converts the quote into its audit snapshot.
func (q FareQuote) HistoryRecord() FareHistoryRecord {
	return FareHistoryRecord{
		FlightID:         q.FlightID,
		FareCents:        q.FareCents,
		SeatsRemaining:   q.SeatsRemaining,
		DemandLevel:      q.DemandLevel,
		HoursToDeparture: q.HoursToDeparture,
		SeatFactor:       q.SeatFactor,
		TimeFactor:       q.TimeFactor,
		DemandFactor:     q.DemandFactor,
		RecordedAt:       q.QuotedAt,
	}
}
