package repository

import (
	"context"
	"errors"

	"github.com/Domenick1991/fareledger/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const bookingColumns = `id, pnr, flight_id, passenger_name, passenger_age, passenger_phone, passenger_email, special_requests,
	seat_number, status, payment_status, payment_method, final_fare_cents, created_at, updated_at`

const paymentColumns = `transaction_id, COALESCE(pnr, ''), flight_id, amount_cents, method, status, gateway_response, created_at, updated_at`

type PGBookingRepository struct {
	db *pgxpool.Pool
}

func NewBookingRepository(db *pgxpool.Pool) BookingRepository {
	return &PGBookingRepository{db: db}
}

func scanBooking(row rowScanner) (*domain.Booking, error) {
	var b domain.Booking
	if err := row.Scan(&b.ID, &b.PNR, &b.FlightID, &b.Passenger.Name, &b.Passenger.Age, &b.Passenger.Phone,
		&b.Passenger.Email, &b.Passenger.SpecialRequests, &b.SeatNumber, &b.Status, &b.PaymentStatus,
		&b.PaymentMethod, &b.FinalFareCents, &b.CreatedAt, &b.UpdatedAt); err != nil {
		return nil, err
	}
	return &b, nil
}

func (r *PGBookingRepository) GetByPNR(ctx context.Context, pnr string) (*domain.Booking, error) {
	b, err := scanBooking(r.db.QueryRow(ctx, `SELECT `+bookingColumns+` FROM bookings WHERE pnr=$1`, pnr))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.Errorf(domain.ErrBookingNotFound, "booking %s not found", pnr)
	}
	return b, err
}

func (r *PGBookingRepository) ConfirmedSeats(ctx context.Context, flightID int64) ([]string, error) {
	rows, err := r.db.Query(ctx, `SELECT seat_number FROM bookings WHERE flight_id=$1 AND status=$2 ORDER BY seat_number`,
		flightID, domain.BookingStatusConfirmed)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, pgx.RowTo[string])
}

func (r *PGBookingRepository) History(ctx context.Context, pnr string) ([]domain.BookingHistory, error) {
	rows, err := r.db.Query(ctx, `SELECT id, pnr, action, description, performed_by, performed_at
		FROM booking_history WHERE pnr=$1 ORDER BY performed_at, id`, pnr)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	history := make([]domain.BookingHistory, 0)
	for rows.Next() {
		var h domain.BookingHistory
		if err := rows.Scan(&h.ID, &h.PNR, &h.Action, &h.Description, &h.PerformedBy, &h.PerformedAt); err != nil {
			return nil, err
		}
		history = append(history, h)
	}
	return history, rows.Err()
}

func (r *PGBookingRepository) Transactions(ctx context.Context, pnr string) ([]domain.PaymentTransaction, error) {
	rows, err := r.db.Query(ctx, `SELECT `+paymentColumns+` FROM payment_transactions WHERE pnr=$1 ORDER BY created_at, transaction_id`, pnr)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	txs := make([]domain.PaymentTransaction, 0)
	for rows.Next() {
		var (
			p       domain.PaymentTransaction
			gateway []byte
		)
		if err := rows.Scan(&p.TransactionID, &p.PNR, &p.FlightID, &p.AmountCents, &p.Method, &p.Status,
			&gateway, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, err
		}
		p.GatewayResponse = gateway
		txs = append(txs, p)
	}
	return txs, rows.Err()
}

// RecordPayment stores a transaction outside any unit of work, used for
// declined attempts that never produced a booking.
func (r *PGBookingRepository) RecordPayment(ctx context.Context, p *domain.PaymentTransaction) error {
	_, err := r.db.Exec(ctx, insertPaymentSQL, paymentArgs(p)...)
	return err
}

const insertPaymentSQL = `INSERT INTO payment_transactions (transaction_id, pnr, flight_id, amount_cents, method, status, gateway_response, created_at, updated_at)
	VALUES ($1, NULLIF($2, ''), $3, $4, $5, $6, $7, $8, $9)`

func paymentArgs(p *domain.PaymentTransaction) []any {
	var gateway any
	if len(p.GatewayResponse) > 0 {
		gateway = string(p.GatewayResponse)
	}
	return []any{p.TransactionID, p.PNR, p.FlightID, p.AmountCents, p.Method, p.Status, gateway, p.CreatedAt, p.UpdatedAt}
}

var _ BookingRepository = (*PGBookingRepository)(nil)
