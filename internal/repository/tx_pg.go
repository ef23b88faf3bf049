package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Domenick1991/fareledger/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

const (
	pgUniqueViolation = "23505"
	pgCheckViolation  = "23514"

	constraintBookingPNR    = "bookings_pnr_key"
	constraintConfirmedSeat = "bookings_confirmed_seat_idx"
)

type PGTxManager struct {
	db *pgxpool.Pool
}

func NewTxManager(db *pgxpool.Pool) *PGTxManager {
	return &PGTxManager{db: db}
}

func (m *PGTxManager) WithinTx(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error {
	tx, err := m.db.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.ReadCommitted})
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	if err := fn(ctx, &pgTx{tx: tx}); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

type pgTx struct {
	tx pgx.Tx
}

// savepoint runs fn in a nested transaction so a failing statement does not
// abort the enclosing one.
func (t *pgTx) savepoint(ctx context.Context, fn func(pgx.Tx) error) error {
	sp, err := t.tx.Begin(ctx)
	if err != nil {
		return err
	}
	if err := fn(sp); err != nil {
		_ = sp.Rollback(ctx)
		return err
	}
	return sp.Commit(ctx)
}

func (t *pgTx) LockFlight(ctx context.Context, flightID int64) (*domain.Flight, error) {
	f, err := scanFlight(t.tx.QueryRow(ctx, `SELECT `+flightColumns+` FROM flights WHERE id=$1 FOR UPDATE`, flightID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.Errorf(domain.ErrFlightNotFound, "flight %d not found", flightID)
	}
	return f, err
}

func (t *pgTx) LockBooking(ctx context.Context, pnr string) (*domain.Booking, error) {
	b, err := scanBooking(t.tx.QueryRow(ctx, `SELECT `+bookingColumns+` FROM bookings WHERE pnr=$1 FOR UPDATE`, pnr))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.Errorf(domain.ErrBookingNotFound, "booking %s not found", pnr)
	}
	return b, err
}

func (t *pgTx) SeatTaken(ctx context.Context, flightID int64, seat string) (bool, error) {
	var taken bool
	err := t.tx.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM bookings WHERE flight_id=$1 AND seat_number=$2 AND status=$3)`,
		flightID, seat, domain.BookingStatusConfirmed).Scan(&taken)
	return taken, err
}

func (t *pgTx) PNRExists(ctx context.Context, pnr string) (bool, error) {
	var exists bool
	err := t.tx.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM bookings WHERE pnr=$1)`, pnr).Scan(&exists)
	return exists, err
}

func (t *pgTx) InsertBooking(ctx context.Context, b *domain.Booking) error {
	err := t.savepoint(ctx, func(sp pgx.Tx) error {
		return sp.QueryRow(ctx, `INSERT INTO bookings (pnr, flight_id, passenger_name, passenger_age, passenger_phone, passenger_email, special_requests,
			seat_number, status, payment_status, payment_method, final_fare_cents, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
			RETURNING id`,
			b.PNR, b.FlightID, b.Passenger.Name, b.Passenger.Age, b.Passenger.Phone, b.Passenger.Email, b.Passenger.SpecialRequests,
			b.SeatNumber, b.Status, b.PaymentStatus, b.PaymentMethod, b.FinalFareCents, b.CreatedAt, b.UpdatedAt).
			Scan(&b.ID)
	})
	return mapConstraintError(err, b)
}

func mapConstraintError(err error, b *domain.Booking) error {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) || pgErr.Code != pgUniqueViolation {
		return err
	}
	switch pgErr.ConstraintName {
	case constraintBookingPNR:
		return domain.Errorf(domain.ErrDuplicateReference, "booking reference %s already exists", b.PNR)
	case constraintConfirmedSeat:
		return domain.Errorf(domain.ErrSeatAlreadyTaken, "seat %s is already booked", b.SeatNumber)
	}
	return err
}

func (t *pgTx) UpdateBookingStatus(ctx context.Context, pnr string, status domain.BookingStatus, payment domain.PaymentStatus, at time.Time) error {
	tag, err := t.tx.Exec(ctx, `UPDATE bookings SET status=$1, payment_status=$2, updated_at=$3 WHERE pnr=$4`, status, payment, at, pnr)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.Errorf(domain.ErrBookingNotFound, "booking %s not found", pnr)
	}
	return nil
}

func (t *pgTx) ReserveSeat(ctx context.Context, flightID int64) (int, error) {
	var available int
	err := t.tx.QueryRow(ctx, `UPDATE flights SET available_seats = available_seats - 1, updated_at = now()
		WHERE id=$1 AND available_seats > 0 RETURNING available_seats`, flightID).Scan(&available)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, domain.Errorf(domain.ErrNoSeatsAvailable, "no seats available on flight %d", flightID)
	}
	return available, err
}

func (t *pgTx) ReleaseSeat(ctx context.Context, flightID int64) (int, error) {
	var available int
	err := t.tx.QueryRow(ctx, `UPDATE flights SET available_seats = available_seats + 1, updated_at = now()
		WHERE id=$1 RETURNING available_seats`, flightID).Scan(&available)
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == pgCheckViolation {
		return 0, fmt.Errorf("flight %d: seats_available would exceed total_seats", flightID)
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, domain.Errorf(domain.ErrFlightNotFound, "flight %d not found", flightID)
	}
	return available, err
}

func (t *pgTx) InsertPayment(ctx context.Context, p *domain.PaymentTransaction) error {
	_, err := t.tx.Exec(ctx, insertPaymentSQL, paymentArgs(p)...)
	return err
}

func (t *pgTx) AppendHistory(ctx context.Context, h *domain.BookingHistory) error {
	return t.savepoint(ctx, func(sp pgx.Tx) error {
		return sp.QueryRow(ctx, `INSERT INTO booking_history (pnr, action, description, performed_by, performed_at)
			VALUES ($1, $2, $3, $4, $5) RETURNING id`,
			h.PNR, h.Action, h.Description, h.PerformedBy, h.PerformedAt).Scan(&h.ID)
	})
}

var (
	_ TxManager = (*PGTxManager)(nil)
	_ Tx        = (*pgTx)(nil)
)
