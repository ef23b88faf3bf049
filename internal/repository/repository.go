package repository

import (
	"context"
	"time"

	"github.com/Domenick1991/fareledger/internal/domain"
)

type FlightRepository interface {
	List(ctx context.Context) ([]domain.Flight, error)
	// Search returns flights on the route whose departure falls on date (UTC),
	// ordered by departure time.
	Search(ctx context.Context, origin, destination string, date time.Time) ([]domain.Flight, error)
	GetByID(ctx context.Context, id int64) (*domain.Flight, error)
}

// BookingRepository holds the unlocked reads and the audit writes that live
// outside a unit of work.
type BookingRepository interface {
	GetByPNR(ctx context.Context, pnr string) (*domain.Booking, error)
	ConfirmedSeats(ctx context.Context, flightID int64) ([]string, error)
	History(ctx context.Context, pnr string) ([]domain.BookingHistory, error)
	Transactions(ctx context.Context, pnr string) ([]domain.PaymentTransaction, error)
	RecordPayment(ctx context.Context, p *domain.PaymentTransaction) error
}

type FareHistoryRepository interface {
	RecordFare(ctx context.Context, rec *domain.FareHistoryRecord) error
	FareTrends(ctx context.Context, flightID int64, since time.Time) ([]domain.FareHistoryRecord, error)
}

// Tx is the set of writes available inside one atomic unit of work. Row
// locks taken through LockFlight/LockBooking are held until the unit ends.
//
// InsertBooking enforces PNR uniqueness across all flights and returns
// domain.ErrDuplicateReference on conflict; the unit stays usable so the
// caller may retry with another code. AppendHistory failures likewise leave
// the unit usable.
type Tx interface {
	LockFlight(ctx context.Context, flightID int64) (*domain.Flight, error)
	LockBooking(ctx context.Context, pnr string) (*domain.Booking, error)
	SeatTaken(ctx context.Context, flightID int64, seat string) (bool, error)
	PNRExists(ctx context.Context, pnr string) (bool, error)
	InsertBooking(ctx context.Context, b *domain.Booking) error
	UpdateBookingStatus(ctx context.Context, pnr string, status domain.BookingStatus, payment domain.PaymentStatus, at time.Time) error
	ReserveSeat(ctx context.Context, flightID int64) (int, error)
	ReleaseSeat(ctx context.Context, flightID int64) (int, error)
	InsertPayment(ctx context.Context, p *domain.PaymentTransaction) error
	AppendHistory(ctx context.Context, h *domain.BookingHistory) error
}

// TxManager runs fn as one all-or-nothing unit: it commits when fn returns
// nil and rolls everything back otherwise.
type TxManager interface {
	WithinTx(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error
}
