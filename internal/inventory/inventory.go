// Package inventory owns a flight's seat counters: the per-flight lock and
// the reserve/release contract. Both calls must run inside the booking
// ledger's unit of work.
package inventory

import (
	"context"
	"fmt"

	"github.com/Domenick1991/fareledger/internal/domain"
)

// SeatCounter is the transactional storage primitive. ReserveSeat must check
// availability and decrement in one step, returning domain.ErrNoSeatsAvailable
// when nothing is left. Both calls return the new seats_available.
type SeatCounter interface {
	ReserveSeat(ctx context.Context, flightID int64) (int, error)
	ReleaseSeat(ctx context.Context, flightID int64) (int, error)
}

// Reserve takes one seat from f and keeps f in sync with storage.
func Reserve(ctx context.Context, c SeatCounter, f *domain.Flight) error {
	if f.SeatsAvailable <= 0 {
		return domain.Errorf(domain.ErrNoSeatsAvailable, "no seats available on flight %s", f.FlightNo)
	}
	left, err := c.ReserveSeat(ctx, f.ID)
	if err != nil {
		return err
	}
	if left < 0 || left > f.TotalSeats {
		return fmt.Errorf("inventory: flight %d reports %d seats after reserve", f.ID, left)
	}
	f.SeatsAvailable = left
	return nil
}

// Release returns one seat to f. Releasing into a full cabin is an
// inventory fault.
func Release(ctx context.Context, c SeatCounter, f *domain.Flight) error {
	if f.SeatsAvailable >= f.TotalSeats {
		return fmt.Errorf("inventory: flight %d already has all %d seats free", f.ID, f.TotalSeats)
	}
	left, err := c.ReleaseSeat(ctx, f.ID)
	if err != nil {
		return err
	}
	if left < 0 || left > f.TotalSeats {
		return fmt.Errorf("inventory: flight %d reports %d seats after release", f.ID, left)
	}
	f.SeatsAvailable = left
	return nil
}
