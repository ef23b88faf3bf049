package domain

import "time"

type BookingStatus string

const (
	BookingStatusPending   BookingStatus = "PENDING"
	BookingStatusConfirmed BookingStatus = "CONFIRMED"
	BookingStatusCancelled BookingStatus = "CANCELLED"
)

type Booking struct {
	ID             int64         `json:"id"`
	PNR            string        `json:"pnr"`
	FlightID       int64         `json:"flight_id"`
	Passenger      Passenger     `json:"passenger"`
	SeatNumber     string        `json:"seat_number"`
	Status         BookingStatus `json:"status"`
	PaymentStatus  PaymentStatus `json:"payment_status"`
	PaymentMethod  PaymentMethod `json:"payment_method"`
	FinalFareCents int64         `json:"final_fare_cents"`
	CreatedAt      time.Time     `json:"created_at"`
	UpdatedAt      time.Time     `json:"updated_at"`
}

// Active reports whether the booking currently holds its seat.
func (b Booking) Active() bool {
	return b.Status == BookingStatusConfirmed && b.PaymentStatus == PaymentStatusSuccess
}

type HistoryAction string

const (
	HistoryCreated        HistoryAction = "CREATED"
	HistoryConfirmed      HistoryAction = "CONFIRMED"
	HistoryCancelled      HistoryAction = "CANCELLED"
	HistoryModified       HistoryAction = "MODIFIED"
	HistoryPaymentSuccess HistoryAction = "PAYMENT_SUCCESS"
	HistoryPaymentFailed  HistoryAction = "PAYMENT_FAILED"
)

// BookingHistory is an append-only audit entry for a booking.
type BookingHistory struct {
	ID          int64         `json:"id"`
	PNR         string        `json:"pnr"`
	Action      HistoryAction `json:"action"`
	Description string        `json:"description"`
	PerformedBy string        `json:"performed_by"`
	PerformedAt time.Time     `json:"performed_at"`
}
