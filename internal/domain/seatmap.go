package domain

import (
	"fmt"
	"strconv"
	"strings"
)

type CabinClass string

const (
	CabinBusiness CabinClass = "business"
	CabinEconomy  CabinClass = "economy"
)

// Cabin layout: business rows 1-5 seat A-D, economy rows 6-30 seat A-F.
const (
	firstBusinessRow = 1
	lastBusinessRow  = 5
	firstEconomyRow  = 6
	lastEconomyRow   = 30
	businessLetters  = "ABCD"
	economyLetters   = "ABCDEF"
)

type Seat struct {
	Number    string     `json:"number"`
	Class     CabinClass `json:"type"`
	Available bool       `json:"available"`
}

type SeatMap struct {
	FlightID  int64  `json:"flight_id"`
	Business  []Seat `json:"business"`
	Economy   []Seat `json:"economy"`
	Available int    `json:"available"`
}

// LayoutSize is the number of seats in the fixed cabin layout.
func LayoutSize() int {
	return (lastBusinessRow-firstBusinessRow+1)*len(businessLetters) +
		(lastEconomyRow-firstEconomyRow+1)*len(economyLetters)
}

// LayoutSeats lists every seat identifier in layout order.
func LayoutSeats() []string {
	seats := make([]string, 0, LayoutSize())
	for row := firstBusinessRow; row <= lastBusinessRow; row++ {
		for _, l := range businessLetters {
			seats = append(seats, fmt.Sprintf("%d%c", row, l))
		}
	}
	for row := firstEconomyRow; row <= lastEconomyRow; row++ {
		for _, l := range economyLetters {
			seats = append(seats, fmt.Sprintf("%d%c", row, l))
		}
	}
	return seats
}

// ParseSeat normalizes a seat identifier like " 12a" to "12A" and checks it
// against the cabin layout.
func ParseSeat(s string) (string, CabinClass, error) {
	s = strings.ToUpper(strings.TrimSpace(s))
	if len(s) < 2 {
		return "", "", NewInvalidInput(fmt.Sprintf("invalid seat %q", s))
	}
	row, err := strconv.Atoi(s[:len(s)-1])
	if err != nil {
		return "", "", NewInvalidInput(fmt.Sprintf("invalid seat %q", s))
	}
	letter := s[len(s)-1:]
	switch {
	case row >= firstBusinessRow && row <= lastBusinessRow && strings.Contains(businessLetters, letter):
		return fmt.Sprintf("%d%s", row, letter), CabinBusiness, nil
	case row >= firstEconomyRow && row <= lastEconomyRow && strings.Contains(economyLetters, letter):
		return fmt.Sprintf("%d%s", row, letter), CabinEconomy, nil
	}
	return "", "", NewInvalidInput(fmt.Sprintf("seat %s does not exist", s))
}

// BuildSeatMap marks every layout seat against the taken identifiers.
func BuildSeatMap(flightID int64, taken []string) SeatMap {
	held := make(map[string]struct{}, len(taken))
	for _, s := range taken {
		held[s] = struct{}{}
	}

	m := SeatMap{FlightID: flightID}
	for _, number := range LayoutSeats() {
		_, isTaken := held[number]
		_, class, _ := ParseSeat(number)
		seat := Seat{Number: number, Class: class, Available: !isTaken}
		if class == CabinBusiness {
			m.Business = append(m.Business, seat)
		} else {
			m.Economy = append(m.Economy, seat)
		}
		if seat.Available {
			m.Available++
		}
	}
	return m
}
