package booking

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Domenick1991/fareledger/internal/domain"
	"github.com/Domenick1991/fareledger/internal/entropy"
	"github.com/Domenick1991/fareledger/internal/inventory"
	"github.com/Domenick1991/fareledger/internal/kafka"
	"github.com/Domenick1991/fareledger/internal/payment"
	"github.com/Domenick1991/fareledger/internal/pnr"
	"github.com/Domenick1991/fareledger/internal/pricing"
	"github.com/Domenick1991/fareledger/internal/repository"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	DefaultCancellationCutoff = 2 * time.Hour
	DefaultPNRMaxAttempts     = 10
	DefaultPaymentTimeout     = 2 * time.Second

	defaultCancelReason = "Customer request"
	performedBySystem   = "SYSTEM"
)

type BookingUseCase interface {
	CreateBooking(ctx context.Context, input CreateBookingInput) (*domain.Booking, error)
	CancelBooking(ctx context.Context, pnr, reason string) (*domain.Booking, error)
	GetBookingDetails(ctx context.Context, pnr string) (*Details, error)
	GenerateSeatMap(ctx context.Context, flightID int64) (*domain.SeatMap, error)
}

type Producer interface {
	Publish(ctx context.Context, topic, key string, value interface{}) error
}

type PNRGenerator interface {
	Generate() string
}

// CacheInvalidator drops cached flight listings whose seat counts changed.
type CacheInvalidator interface {
	InvalidateFlights(ctx context.Context) error
}

type CreateBookingInput struct {
	FlightID      int64            `json:"flight_id"`
	Passenger     domain.Passenger `json:"passenger"`
	SeatNumber    string           `json:"seat_number"`
	PaymentMethod string           `json:"payment_method"`
}

// Details is a read-only view of a booking with its audit trail and the
// fare the same seat would cost right now.
type Details struct {
	Booking              domain.Booking              `json:"booking"`
	Flight               domain.Flight               `json:"flight"`
	CurrentFare          domain.FareQuote            `json:"current_fare"`
	PriceDifferenceCents int64                       `json:"price_difference_cents"`
	History              []domain.BookingHistory     `json:"history"`
	Transactions         []domain.PaymentTransaction `json:"transactions"`
	CanCancel            bool                        `json:"can_cancel"`
}

type BookingService struct {
	bookings repository.BookingRepository
	flights  repository.FlightRepository
	txm      repository.TxManager
	pricing  *pricing.Engine
	gateway  payment.Gateway
	locker   inventory.Locker
	pnrs     PNRGenerator
	producer Producer
	cache    CacheInvalidator
	logger   *zap.Logger

	bookingTopic       string
	notificationsTopic string
	cancellationCutoff time.Duration
	pnrMaxAttempts     int
	paymentTimeout     time.Duration
}

type BookingServiceOption func(*BookingService)

func WithLocker(l inventory.Locker) BookingServiceOption {
	return func(s *BookingService) { s.locker = l }
}

func WithPNRGenerator(g PNRGenerator) BookingServiceOption {
	return func(s *BookingService) { s.pnrs = g }
}

func WithProducer(p Producer, bookingTopic string) BookingServiceOption {
	return func(s *BookingService) {
		s.producer = p
		s.bookingTopic = bookingTopic
	}
}

func WithCacheInvalidator(c CacheInvalidator) BookingServiceOption {
	return func(s *BookingService) { s.cache = c }
}

func WithNotificationsTopic(topic string) BookingServiceOption {
	return func(s *BookingService) { s.notificationsTopic = topic }
}

func WithCancellationCutoff(d time.Duration) BookingServiceOption {
	return func(s *BookingService) { s.cancellationCutoff = d }
}

func WithPNRMaxAttempts(n int) BookingServiceOption {
	return func(s *BookingService) { s.pnrMaxAttempts = n }
}

func WithPaymentTimeout(d time.Duration) BookingServiceOption {
	return func(s *BookingService) { s.paymentTimeout = d }
}

func WithLogger(l *zap.Logger) BookingServiceOption {
	return func(s *BookingService) { s.logger = l }
}

func NewBookingService(
	bookings repository.BookingRepository,
	flights repository.FlightRepository,
	txm repository.TxManager,
	engine *pricing.Engine,
	gateway payment.Gateway,
	opts ...BookingServiceOption,
) *BookingService {
	service := &BookingService{
		bookings:           bookings,
		flights:            flights,
		txm:                txm,
		pricing:            engine,
		gateway:            gateway,
		locker:             inventory.NewLocalLocker(),
		logger:             zap.NewNop(),
		cancellationCutoff: DefaultCancellationCutoff,
		pnrMaxAttempts:     DefaultPNRMaxAttempts,
		paymentTimeout:     DefaultPaymentTimeout,
	}
	for _, opt := range opts {
		opt(service)
	}
	if service.pnrs == nil {
		service.pnrs = pnr.NewGenerator(entropy.NewTimeSeeded())
	}
	if service.pnrMaxAttempts <= 0 {
		service.pnrMaxAttempts = DefaultPNRMaxAttempts
	}
	return service
}

// CreateBooking prices, charges and confirms one seat as a single unit of
// work. Nothing is persisted unless payment is approved, except a record of
// the declined charge.
func (s *BookingService) CreateBooking(ctx context.Context, input CreateBookingInput) (*domain.Booking, error) {
	if input.FlightID <= 0 {
		return nil, domain.NewInvalidInput("flight_id is required")
	}
	passenger, err := input.Passenger.Normalize()
	if err != nil {
		return nil, err
	}
	seat, _, err := domain.ParseSeat(input.SeatNumber)
	if err != nil {
		return nil, err
	}
	method, err := domain.ParsePaymentMethod(strings.ToUpper(strings.TrimSpace(input.PaymentMethod)))
	if err != nil {
		return nil, err
	}

	unlock, err := s.locker.Lock(ctx, input.FlightID)
	if err != nil {
		return nil, fmt.Errorf("lock flight %d: %w", input.FlightID, err)
	}
	defer unlock()

	var (
		booking  *domain.Booking
		quote    *domain.FareQuote
		declined *domain.PaymentTransaction
	)
	err = s.txm.WithinTx(ctx, func(ctx context.Context, tx repository.Tx) error {
		flight, err := tx.LockFlight(ctx, input.FlightID)
		if err != nil {
			return err
		}

		now := s.pricing.Now()
		if !flight.Bookable(now) {
			return domain.Errorf(domain.ErrFlightNotBookable, "flight %s is not available for booking", flight.FlightNo)
		}
		if flight.SeatsAvailable <= 0 {
			return domain.Errorf(domain.ErrNoSeatsAvailable, "no seats available on flight %s", flight.FlightNo)
		}
		taken, err := tx.SeatTaken(ctx, flight.ID, seat)
		if err != nil {
			return fmt.Errorf("check seat %s: %w", seat, err)
		}
		if taken {
			return domain.Errorf(domain.ErrSeatAlreadyTaken, "seat %s is already booked", seat)
		}

		q := s.pricing.Quote(*flight, now)
		quote = &q

		result, err := s.charge(ctx, payment.Request{
			FlightID:    flight.ID,
			AmountCents: q.FareCents,
			Method:      method,
			Passenger:   passenger.Name,
		})
		if err != nil {
			return err
		}
		if !result.Approved {
			declined = &domain.PaymentTransaction{
				TransactionID:   payment.NewTransactionID(),
				FlightID:        flight.ID,
				AmountCents:     q.FareCents,
				Method:          method,
				Status:          domain.PaymentStatusFailed,
				GatewayResponse: result.Response,
				CreatedAt:       now,
				UpdatedAt:       now,
			}
			return domain.Errorf(domain.ErrPaymentDeclined, "payment of %s declined", formatCents(q.FareCents))
		}

		b := &domain.Booking{
			FlightID:       flight.ID,
			Passenger:      passenger,
			SeatNumber:     seat,
			Status:         domain.BookingStatusConfirmed,
			PaymentStatus:  domain.PaymentStatusSuccess,
			PaymentMethod:  method,
			FinalFareCents: q.FareCents,
			CreatedAt:      now,
			UpdatedAt:      now,
		}
		if err := s.insertWithUniquePNR(ctx, tx, b); err != nil {
			return err
		}
		if err := inventory.Reserve(ctx, tx, flight); err != nil {
			return err
		}
		if err := tx.InsertPayment(ctx, &domain.PaymentTransaction{
			TransactionID:   payment.NewTransactionID(),
			PNR:             b.PNR,
			FlightID:        flight.ID,
			AmountCents:     q.FareCents,
			Method:          method,
			Status:          domain.PaymentStatusSuccess,
			GatewayResponse: result.Response,
			CreatedAt:       now,
			UpdatedAt:       now,
		}); err != nil {
			return fmt.Errorf("record payment: %w", err)
		}

		s.appendHistory(ctx, tx, b.PNR, domain.HistoryCreated,
			fmt.Sprintf("Booking created for %s on flight %s, seat %s", passenger, flight.FlightNo, seat), now)
		s.appendHistory(ctx, tx, b.PNR, domain.HistoryPaymentSuccess,
			fmt.Sprintf("Payment of %s processed via %s", formatCents(q.FareCents), method), now)

		booking = b
		return nil
	})

	// audit writes happen after the unit so they never hold the flight row
	auditCtx := context.WithoutCancel(ctx)
	if quote != nil {
		s.pricing.Record(auditCtx, *quote)
	}
	if declined != nil {
		if recErr := s.bookings.RecordPayment(auditCtx, declined); recErr != nil {
			s.logger.Warn("failed to record declined payment",
				zap.Int64("flight_id", input.FlightID), zap.String("transaction_id", declined.TransactionID), zap.Error(recErr))
		}
	}
	if err != nil {
		// reference exhaustion is an internal fault
		if domain.IsBusiness(err) && !errors.Is(err, domain.ErrDuplicateReference) {
			s.logger.Info("booking rejected", zap.Int64("flight_id", input.FlightID), zap.String("seat", seat), zap.Error(err))
		} else {
			s.logger.Error("booking failed", zap.Int64("flight_id", input.FlightID), zap.String("seat", seat), zap.Error(err))
		}
		return nil, err
	}

	s.logger.Info("booking confirmed",
		zap.String("pnr", booking.PNR),
		zap.Int64("flight_id", booking.FlightID),
		zap.String("seat", booking.SeatNumber),
		zap.Int64("fare_cents", booking.FinalFareCents))
	s.invalidateFlights(ctx)
	s.publish(ctx, kafka.EventBookingCreated, booking, "")
	return booking, nil
}

func (s *BookingService) charge(ctx context.Context, req payment.Request) (payment.Result, error) {
	if s.paymentTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.paymentTimeout)
		defer cancel()
	}
	result, err := s.gateway.Charge(ctx, req)
	if err != nil {
		return payment.Result{}, fmt.Errorf("charge payment: %w", err)
	}
	return result, nil
}

// insertWithUniquePNR draws codes until one inserts. The existence check
// skips known codes cheaply; the storage constraint settles races between
// flights that do not share a lock.
func (s *BookingService) insertWithUniquePNR(ctx context.Context, tx repository.Tx, b *domain.Booking) error {
	for attempt := 1; attempt <= s.pnrMaxAttempts; attempt++ {
		code := s.pnrs.Generate()
		exists, err := tx.PNRExists(ctx, code)
		if err != nil {
			return fmt.Errorf("check booking reference: %w", err)
		}
		if exists {
			continue
		}

		b.PNR = code
		err = tx.InsertBooking(ctx, b)
		if errors.Is(err, domain.ErrDuplicateReference) {
			s.logger.Debug("booking reference collision", zap.String("pnr", code), zap.Int("attempt", attempt))
			continue
		}
		if err != nil {
			b.PNR = ""
			return err
		}
		return nil
	}
	b.PNR = ""
	return domain.Errorf(domain.ErrDuplicateReference, "no unique booking reference after %d attempts", s.pnrMaxAttempts)
}

// CancelBooking releases the seat and refunds the fare, provided departure
// is further away than the cancellation cutoff.
func (s *BookingService) CancelBooking(ctx context.Context, pnrCode, reason string) (*domain.Booking, error) {
	pnrCode = strings.ToUpper(strings.TrimSpace(pnrCode))
	if pnrCode == "" {
		return nil, domain.NewInvalidInput("pnr is required")
	}
	reason = strings.TrimSpace(reason)
	if reason == "" {
		reason = defaultCancelReason
	}

	current, err := s.bookings.GetByPNR(ctx, pnrCode)
	if err != nil {
		return nil, err
	}
	if current.Status == domain.BookingStatusCancelled {
		return nil, domain.Errorf(domain.ErrAlreadyCancelled, "booking %s is already cancelled", pnrCode)
	}

	unlock, err := s.locker.Lock(ctx, current.FlightID)
	if err != nil {
		return nil, fmt.Errorf("lock flight %d: %w", current.FlightID, err)
	}
	defer unlock()

	var cancelled *domain.Booking
	err = s.txm.WithinTx(ctx, func(ctx context.Context, tx repository.Tx) error {
		flight, err := tx.LockFlight(ctx, current.FlightID)
		if err != nil {
			return err
		}
		b, err := tx.LockBooking(ctx, pnrCode)
		if err != nil {
			return err
		}
		switch b.Status {
		case domain.BookingStatusCancelled:
			return domain.Errorf(domain.ErrAlreadyCancelled, "booking %s is already cancelled", pnrCode)
		case domain.BookingStatusConfirmed:
		default:
			return domain.Errorf(domain.ErrBookingNotFound, "booking %s is not confirmed", pnrCode)
		}

		now := s.pricing.Now()
		if !s.cancellable(*flight, now) {
			return domain.Errorf(domain.ErrCancellationWindowClosed,
				"cancellation is allowed up to %s before departure", s.cancellationCutoff)
		}

		if err := tx.UpdateBookingStatus(ctx, b.PNR, domain.BookingStatusCancelled, domain.PaymentStatusRefunded, now); err != nil {
			return fmt.Errorf("cancel booking: %w", err)
		}
		if err := inventory.Release(ctx, tx, flight); err != nil {
			return err
		}
		if err := tx.InsertPayment(ctx, &domain.PaymentTransaction{
			TransactionID: payment.NewTransactionID(),
			PNR:           b.PNR,
			FlightID:      b.FlightID,
			AmountCents:   -b.FinalFareCents,
			Method:        b.PaymentMethod,
			Status:        domain.PaymentStatusRefunded,
			CreatedAt:     now,
			UpdatedAt:     now,
		}); err != nil {
			return fmt.Errorf("record refund: %w", err)
		}
		s.appendHistory(ctx, tx, b.PNR, domain.HistoryCancelled, "Booking cancelled. Reason: "+reason, now)

		b.Status = domain.BookingStatusCancelled
		b.PaymentStatus = domain.PaymentStatusRefunded
		b.UpdatedAt = now
		cancelled = b
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("booking cancelled", zap.String("pnr", cancelled.PNR), zap.String("reason", reason))
	s.invalidateFlights(ctx)
	s.publish(ctx, kafka.EventBookingCancelled, cancelled, reason)
	return cancelled, nil
}

func (s *BookingService) cancellable(f domain.Flight, now time.Time) bool {
	return f.DepartureTime.Sub(now) > s.cancellationCutoff
}

func (s *BookingService) GetBookingDetails(ctx context.Context, pnrCode string) (*Details, error) {
	pnrCode = strings.ToUpper(strings.TrimSpace(pnrCode))
	b, err := s.bookings.GetByPNR(ctx, pnrCode)
	if err != nil {
		return nil, err
	}
	flight, err := s.flights.GetByID(ctx, b.FlightID)
	if err != nil {
		return nil, err
	}
	history, err := s.bookings.History(ctx, pnrCode)
	if err != nil {
		return nil, fmt.Errorf("load booking history: %w", err)
	}
	txs, err := s.bookings.Transactions(ctx, pnrCode)
	if err != nil {
		return nil, fmt.Errorf("load payment transactions: %w", err)
	}

	quote := s.pricing.QuoteAndRecord(ctx, *flight)
	return &Details{
		Booking:              *b,
		Flight:               *flight,
		CurrentFare:          quote,
		PriceDifferenceCents: quote.FareCents - b.FinalFareCents,
		History:              history,
		Transactions:         txs,
		CanCancel:            b.Active() && s.cancellable(*flight, quote.QuotedAt),
	}, nil
}

// GenerateSeatMap marks layout seats held by confirmed bookings.
func (s *BookingService) GenerateSeatMap(ctx context.Context, flightID int64) (*domain.SeatMap, error) {
	if _, err := s.flights.GetByID(ctx, flightID); err != nil {
		return nil, err
	}
	taken, err := s.bookings.ConfirmedSeats(ctx, flightID)
	if err != nil {
		return nil, fmt.Errorf("load confirmed seats: %w", err)
	}
	m := domain.BuildSeatMap(flightID, taken)
	return &m, nil
}

func (s *BookingService) appendHistory(ctx context.Context, tx repository.Tx, pnrCode string, action domain.HistoryAction, description string, at time.Time) {
	entry := &domain.BookingHistory{
		PNR:         pnrCode,
		Action:      action,
		Description: description,
		PerformedBy: performedBySystem,
		PerformedAt: at,
	}
	if err := tx.AppendHistory(ctx, entry); err != nil {
		s.logger.Warn("failed to append booking history",
			zap.String("pnr", pnrCode), zap.String("action", string(action)), zap.Error(err))
	}
}

func (s *BookingService) invalidateFlights(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if err := s.cache.InvalidateFlights(ctx); err != nil {
		s.logger.Warn("failed to invalidate flight cache", zap.Error(err))
	}
}

func (s *BookingService) publish(ctx context.Context, eventType string, b *domain.Booking, reason string) {
	if s.producer == nil || s.bookingTopic == "" {
		return
	}
	event := kafka.BookingEvent{
		ID:         uuid.NewString(),
		Type:       eventType,
		PNR:        b.PNR,
		FlightID:   b.FlightID,
		SeatNumber: b.SeatNumber,
		Passenger:  b.Passenger.Name,
		Email:      b.Passenger.Email,
		Status:     string(b.Status),
		FareCents:  b.FinalFareCents,
		Reason:     reason,
		OccurredAt: b.UpdatedAt,
	}
	topics := []string{s.bookingTopic}
	if s.notificationsTopic != "" {
		topics = append(topics, s.notificationsTopic)
	}
	for _, topic := range topics {
		if err := s.producer.Publish(ctx, topic, b.PNR, event); err != nil {
			s.logger.Warn("failed to publish booking event",
				zap.String("type", eventType), zap.String("pnr", b.PNR), zap.String("topic", topic), zap.Error(err))
		}
	}
}

func formatCents(cents int64) string {
	sign := ""
	if cents < 0 {
		sign = "-"
		cents = -cents
	}
	return fmt.Sprintf("%s%d.%02d", sign, cents/100, cents%100)
}

var _ BookingUseCase = (*BookingService)(nil)
