package domain

import "time"

type FlightStatus string

const (
	FlightStatusScheduled FlightStatus = "SCHEDULED"
	FlightStatusDelayed   FlightStatus = "DELAYED"
	FlightStatusCancelled FlightStatus = "CANCELLED"
)

type Flight struct {
	ID             int64        `json:"id"`
	FlightNo       string       `json:"flight_no"`
	Origin         string       `json:"origin"`
	Destination    string       `json:"destination"`
	DepartureTime  time.Time    `json:"departure_time"`
	ArrivalTime    time.Time    `json:"arrival_time"`
	BaseFareCents  int64        `json:"base_fare_cents"`
	TotalSeats     int          `json:"total_seats"`
	SeatsAvailable int          `json:"seats_available"`
	Status         FlightStatus `json:"status"`
	AircraftType   string       `json:"aircraft_type"`
	CreatedAt      time.Time    `json:"created_at"`
	UpdatedAt      time.Time    `json:"updated_at"`
}

// OccupancyRate is the booked share of the cabin in [0, 1].
func (f Flight) OccupancyRate() float64 {
	if f.TotalSeats <= 0 {
		return 0
	}
	return float64(f.TotalSeats-f.SeatsAvailable) / float64(f.TotalSeats)
}

// Departed reports whether the flight left at or before now.
func (f Flight) Departed(now time.Time) bool {
	return !f.DepartureTime.After(now)
}

// Bookable reports whether new bookings may be taken, ignoring seat counts.
func (f Flight) Bookable(now time.Time) bool {
	return f.Status != FlightStatusCancelled && !f.Departed(now)
}

// Duration is the scheduled block time.
func (f Flight) Duration() time.Duration {
	return f.ArrivalTime.Sub(f.DepartureTime)
}
