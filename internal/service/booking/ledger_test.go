package booking

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/Domenick1991/fareledger/internal/clock"
	"github.com/Domenick1991/fareledger/internal/domain"
	"github.com/Domenick1991/fareledger/internal/entropy"
	"github.com/Domenick1991/fareledger/internal/payment"
	"github.com/Domenick1991/fareledger/internal/pnr"
	"github.com/Domenick1991/fareledger/internal/pricing"
	"github.com/Domenick1991/fareledger/internal/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

type fixture struct {
	store   *repository.MemoryStore
	clock   *clock.Manual
	service *BookingService
}

func newFixture(t *testing.T, gateway payment.Gateway, opts ...BookingServiceOption) *fixture {
	t.Helper()
	return newFixtureWithTx(t, gateway, nil, opts...)
}

// newFixtureWithTx lets a test wrap the memory store's unit of work.
func newFixtureWithTx(t *testing.T, gateway payment.Gateway, wrap func(repository.TxManager) repository.TxManager, opts ...BookingServiceOption) *fixture {
	t.Helper()
	store := repository.NewMemoryStore()
	clk := clock.NewManual(testNow)
	engine := pricing.NewEngine(clk, pricing.FixedDemand(domain.DemandMedium), pricing.WithRecorder(store))

	var txm repository.TxManager = store
	if wrap != nil {
		txm = wrap(store)
	}
	opts = append([]BookingServiceOption{WithPNRGenerator(pnr.NewGenerator(entropy.New(42)))}, opts...)
	return &fixture{
		store:   store,
		clock:   clk,
		service: NewBookingService(store, store, txm, engine, gateway, opts...),
	}
}

func (f *fixture) addFlight(t *testing.T, no string, seats int, departsIn time.Duration) domain.Flight {
	t.Helper()
	flight, err := f.store.AddFlight(domain.Flight{
		FlightNo:       no,
		Origin:         "DEL",
		Destination:    "BOM",
		DepartureTime:  testNow.Add(departsIn),
		ArrivalTime:    testNow.Add(departsIn + 2*time.Hour),
		BaseFareCents:  500000,
		TotalSeats:     seats,
		SeatsAvailable: seats,
	})
	require.NoError(t, err)
	return flight
}

func (f *fixture) book(flightID int64, seat string) (*domain.Booking, error) {
	return f.service.CreateBooking(context.Background(), CreateBookingInput{
		FlightID:      flightID,
		Passenger:     domain.Passenger{Name: "asha rao", Age: 29, Phone: "9876543210", Email: "asha@example.com"},
		SeatNumber:    seat,
		PaymentMethod: "upi",
	})
}

func (f *fixture) seatsLeft(t *testing.T, flightID int64) int {
	t.Helper()
	flight, err := f.store.GetByID(context.Background(), flightID)
	require.NoError(t, err)
	return flight.SeatsAvailable
}

func TestLedger_CreateBooking(t *testing.T) {
	f := newFixture(t, payment.Approver{})
	flight := f.addFlight(t, "AI101", 100, 48*time.Hour)

	booking, err := f.book(flight.ID, " 12c")

	require.NoError(t, err)
	assert.True(t, pnr.Valid(booking.PNR))
	assert.Equal(t, "12C", booking.SeatNumber)
	assert.Equal(t, "Asha Rao", booking.Passenger.Name)
	assert.Equal(t, domain.BookingStatusConfirmed, booking.Status)
	assert.Equal(t, domain.PaymentStatusSuccess, booking.PaymentStatus)
	assert.Equal(t, domain.PaymentUPI, booking.PaymentMethod)
	// 500000 × 0.95 × 1.2 × 1.15
	assert.Equal(t, int64(655500), booking.FinalFareCents)
	assert.Equal(t, 99, f.seatsLeft(t, flight.ID))

	history, _ := f.store.History(context.Background(), booking.PNR)
	require.Len(t, history, 2)
	assert.Equal(t, domain.HistoryCreated, history[0].Action)
	assert.Equal(t, domain.HistoryPaymentSuccess, history[1].Action)

	txs, _ := f.store.Transactions(context.Background(), booking.PNR)
	require.Len(t, txs, 1)
	assert.Equal(t, domain.PaymentStatusSuccess, txs[0].Status)
	assert.Equal(t, booking.FinalFareCents, txs[0].AmountCents)
	assert.Len(t, txs[0].TransactionID, 12)

	trend, _ := f.store.FareTrends(context.Background(), flight.ID, testNow.Add(-time.Hour))
	assert.Len(t, trend, 1)
}

func TestLedger_NoOversell(t *testing.T) {
	const seats, requests = 20, 60
	f := newFixture(t, payment.Approver{})
	flight := f.addFlight(t, "AI102", seats, 48*time.Hour)
	layout := domain.LayoutSeats()

	var (
		wg        sync.WaitGroup
		succeeded atomic.Int32
		soldOut   atomic.Int32
	)
	for i := 0; i < requests; i++ {
		wg.Add(1)
		go func(seat string) {
			defer wg.Done()
			_, err := f.book(flight.ID, seat)
			switch {
			case err == nil:
				succeeded.Add(1)
			case errors.Is(err, domain.ErrNoSeatsAvailable):
				soldOut.Add(1)
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}(layout[i])
	}
	wg.Wait()

	assert.Equal(t, int32(seats), succeeded.Load())
	assert.Equal(t, int32(requests-seats), soldOut.Load())
	assert.Equal(t, 0, f.seatsLeft(t, flight.ID))
	assert.Len(t, f.store.Bookings(), seats)
}

func TestLedger_SeatUniquenessUnderConcurrency(t *testing.T) {
	const requests = 30
	f := newFixture(t, payment.Approver{})
	flight := f.addFlight(t, "AI103", 100, 48*time.Hour)

	var (
		wg        sync.WaitGroup
		succeeded atomic.Int32
		taken     atomic.Int32
	)
	for i := 0; i < requests; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.book(flight.ID, "14D")
			if err == nil {
				succeeded.Add(1)
			} else if errors.Is(err, domain.ErrSeatAlreadyTaken) {
				taken.Add(1)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), succeeded.Load())
	assert.Equal(t, int32(requests-1), taken.Load())
	assert.Equal(t, 99, f.seatsLeft(t, flight.ID))
}

func TestLedger_DistinctReferencesAcrossFlights(t *testing.T) {
	if testing.Short() {
		t.Skip("books 10,000 seats")
	}
	const flights, perFlight = 60, 167
	const total = 10000
	f := newFixture(t, payment.Approver{}, WithPaymentTimeout(0))
	layout := domain.LayoutSeats()

	ids := make([]int64, flights)
	for i := range ids {
		ids[i] = f.addFlight(t, fmt.Sprintf("QP%03d", i), domain.LayoutSize(), 30*24*time.Hour).ID
	}

	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		pnrs = make(map[string]struct{}, total)
	)
	for i, id := range ids {
		n := perFlight
		if remaining := total - i*perFlight; remaining < n {
			n = remaining
		}
		wg.Add(1)
		go func(flightID int64, n int) {
			defer wg.Done()
			for s := 0; s < n; s++ {
				b, err := f.book(flightID, layout[s])
				if !assert.NoError(t, err) {
					return
				}
				mu.Lock()
				pnrs[b.PNR] = struct{}{}
				mu.Unlock()
			}
		}(id, n)
	}
	wg.Wait()

	assert.Len(t, pnrs, total)
}

func TestLedger_CancelRoundTrip(t *testing.T) {
	f := newFixture(t, payment.Approver{})
	flight := f.addFlight(t, "AI104", 50, 48*time.Hour)

	booking, err := f.book(flight.ID, "9B")
	require.NoError(t, err)
	require.Equal(t, 49, f.seatsLeft(t, flight.ID))

	cancelled, err := f.service.CancelBooking(context.Background(), booking.PNR, "plans changed")
	require.NoError(t, err)
	assert.Equal(t, domain.BookingStatusCancelled, cancelled.Status)
	assert.Equal(t, domain.PaymentStatusRefunded, cancelled.PaymentStatus)
	assert.Equal(t, 50, f.seatsLeft(t, flight.ID))

	txs, _ := f.store.Transactions(context.Background(), booking.PNR)
	require.Len(t, txs, 2)
	assert.Equal(t, -booking.FinalFareCents, txs[1].AmountCents)
	assert.Equal(t, domain.PaymentStatusRefunded, txs[1].Status)
	assert.Equal(t, domain.PaymentUPI, txs[1].Method)

	history, _ := f.store.History(context.Background(), booking.PNR)
	require.Len(t, history, 3)
	assert.Equal(t, "Booking cancelled. Reason: plans changed", history[2].Description)

	seatMap, err := f.service.GenerateSeatMap(context.Background(), flight.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.LayoutSize(), seatMap.Available)

	_, err = f.service.CancelBooking(context.Background(), booking.PNR, "")
	assert.ErrorIs(t, err, domain.ErrAlreadyCancelled)
	assert.Equal(t, 50, f.seatsLeft(t, flight.ID))

	// the seat can be sold again
	_, err = f.book(flight.ID, "9B")
	assert.NoError(t, err)
}

func TestLedger_CancellationCutoff(t *testing.T) {
	f := newFixture(t, payment.Approver{})
	flight := f.addFlight(t, "AI105", 10, 3*time.Hour)

	booking, err := f.book(flight.ID, "6A")
	require.NoError(t, err)

	f.clock.Advance(2 * time.Hour)
	_, err = f.service.CancelBooking(context.Background(), booking.PNR, "")
	assert.ErrorIs(t, err, domain.ErrCancellationWindowClosed)
	assert.Equal(t, 9, f.seatsLeft(t, flight.ID))

	stored, _ := f.store.GetByPNR(context.Background(), booking.PNR)
	assert.Equal(t, domain.BookingStatusConfirmed, stored.Status)

	f.clock.Set(testNow)
	cancelled, err := f.service.CancelBooking(context.Background(), booking.PNR, "")
	require.NoError(t, err)
	assert.Equal(t, domain.BookingStatusCancelled, cancelled.Status)
}

func TestLedger_LastSeat(t *testing.T) {
	f := newFixture(t, payment.Approver{})
	flight := f.addFlight(t, "AI106", 1, 48*time.Hour)

	_, err := f.book(flight.ID, "1A")
	require.NoError(t, err)
	assert.Equal(t, 0, f.seatsLeft(t, flight.ID))

	_, err = f.book(flight.ID, "1B")
	assert.ErrorIs(t, err, domain.ErrNoSeatsAvailable)
}

func TestLedger_FlightNotBookable(t *testing.T) {
	f := newFixture(t, payment.Approver{})
	departed := f.addFlight(t, "AI107", 10, -time.Minute)
	grounded, err := f.store.AddFlight(domain.Flight{FlightNo: "AI108", TotalSeats: 10, SeatsAvailable: 10,
		BaseFareCents: 100000, DepartureTime: testNow.Add(48 * time.Hour), Status: domain.FlightStatusCancelled})
	require.NoError(t, err)

	_, err = f.book(departed.ID, "6A")
	assert.ErrorIs(t, err, domain.ErrFlightNotBookable)
	_, err = f.book(grounded.ID, "6A")
	assert.ErrorIs(t, err, domain.ErrFlightNotBookable)
	_, err = f.book(999, "6A")
	assert.ErrorIs(t, err, domain.ErrFlightNotFound)
}

func TestLedger_PaymentDeclinedLeavesNoTrace(t *testing.T) {
	gateway := payment.NewSimulator(0.9, 0, entropy.Fixed{F: 0.99})
	f := newFixture(t, gateway)
	flight := f.addFlight(t, "AI109", 10, 48*time.Hour)

	booking, err := f.book(flight.ID, "6A")

	assert.Nil(t, booking)
	assert.ErrorIs(t, err, domain.ErrPaymentDeclined)
	assert.Equal(t, 10, f.seatsLeft(t, flight.ID))
	assert.Empty(t, f.store.Bookings())

	payments := f.store.Payments()
	require.Len(t, payments, 1)
	assert.Equal(t, domain.PaymentStatusFailed, payments[0].Status)
	assert.Empty(t, payments[0].PNR)
	assert.Contains(t, string(payments[0].GatewayResponse), "INSUFFICIENT_FUNDS")
}

func TestLedger_PaymentTimeoutRollsBack(t *testing.T) {
	gateway := payment.NewSimulator(1, time.Second, entropy.New(1))
	f := newFixture(t, gateway, WithPaymentTimeout(10*time.Millisecond))
	flight := f.addFlight(t, "AI110", 10, 48*time.Hour)

	_, err := f.book(flight.ID, "6A")

	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.False(t, domain.IsBusiness(err))
	assert.Equal(t, 10, f.seatsLeft(t, flight.ID))
	assert.Empty(t, f.store.Payments())
}

type constantPNR string

func (c constantPNR) Generate() string { return string(c) }

func TestLedger_ReferenceExhaustion(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	f := newFixture(t, payment.Approver{}, WithPNRGenerator(constantPNR("AB1234")), WithPNRMaxAttempts(5), WithLogger(zap.New(core)))
	flight := f.addFlight(t, "AI111", 10, 48*time.Hour)

	first, err := f.book(flight.ID, "6A")
	require.NoError(t, err)
	assert.Equal(t, "AB1234", first.PNR)

	_, err = f.book(flight.ID, "6B")
	assert.ErrorIs(t, err, domain.ErrDuplicateReference)
	assert.Equal(t, 9, f.seatsLeft(t, flight.ID))
	assert.Len(t, f.store.Bookings(), 1)

	failed := logs.FilterMessage("booking failed").All()
	require.Len(t, failed, 1)
	assert.Equal(t, zap.ErrorLevel, failed[0].Level)
	assert.Zero(t, logs.FilterMessage("booking rejected").Len())
}

func TestLedger_BusinessRejectionLoggedAtInfo(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	f := newFixture(t, payment.Approver{}, WithLogger(zap.New(core)))
	flight := f.addFlight(t, "AI112", 10, 48*time.Hour)

	_, err := f.book(flight.ID, "6A")
	require.NoError(t, err)
	_, err = f.book(flight.ID, "6A")
	require.ErrorIs(t, err, domain.ErrSeatAlreadyTaken)

	rejected := logs.FilterMessage("booking rejected").All()
	require.Len(t, rejected, 1)
	assert.Equal(t, zap.InfoLevel, rejected[0].Level)
	assert.Zero(t, logs.FilterMessage("booking failed").Len())
}

// sequencePNR hands out codes in order; the tx wrapper below reports every
// code as free so the retry has to come from InsertBooking.
type sequencePNR struct {
	mu    sync.Mutex
	codes []string
}

func (s *sequencePNR) Generate() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	code := s.codes[0]
	if len(s.codes) > 1 {
		s.codes = s.codes[1:]
	}
	return code
}

type blindTxManager struct{ repository.TxManager }

func (m blindTxManager) WithinTx(ctx context.Context, fn func(ctx context.Context, tx repository.Tx) error) error {
	return m.TxManager.WithinTx(ctx, func(ctx context.Context, tx repository.Tx) error {
		return fn(ctx, blindTx{tx})
	})
}

type blindTx struct{ repository.Tx }

func (blindTx) PNRExists(context.Context, string) (bool, error) { return false, nil }

func TestLedger_RetriesOnReferenceConflict(t *testing.T) {
	gen := &sequencePNR{codes: []string{"AB1234", "AB1234", "CD5678"}}
	f := newFixtureWithTx(t, payment.Approver{},
		func(txm repository.TxManager) repository.TxManager { return blindTxManager{txm} },
		WithPNRGenerator(gen))
	flight := f.addFlight(t, "AI112", 10, 48*time.Hour)

	first, err := f.book(flight.ID, "6A")
	require.NoError(t, err)
	second, err := f.book(flight.ID, "6B")
	require.NoError(t, err)

	assert.Equal(t, "AB1234", first.PNR)
	assert.Equal(t, "CD5678", second.PNR)
}

type failingHistoryTxManager struct{ repository.TxManager }

func (m failingHistoryTxManager) WithinTx(ctx context.Context, fn func(ctx context.Context, tx repository.Tx) error) error {
	return m.TxManager.WithinTx(ctx, func(ctx context.Context, tx repository.Tx) error {
		return fn(ctx, failingHistoryTx{tx})
	})
}

type failingHistoryTx struct{ repository.Tx }

func (failingHistoryTx) AppendHistory(context.Context, *domain.BookingHistory) error {
	return errors.New("booking_history unavailable")
}

func TestLedger_HistoryFailureIsSwallowed(t *testing.T) {
	f := newFixtureWithTx(t, payment.Approver{},
		func(txm repository.TxManager) repository.TxManager { return failingHistoryTxManager{txm} })
	flight := f.addFlight(t, "AI113", 10, 48*time.Hour)

	booking, err := f.book(flight.ID, "6A")
	require.NoError(t, err)

	_, err = f.service.CancelBooking(context.Background(), booking.PNR, "")
	require.NoError(t, err)

	history, _ := f.store.History(context.Background(), booking.PNR)
	assert.Empty(t, history)
	assert.Equal(t, 10, f.seatsLeft(t, flight.ID))
}

func TestLedger_GetBookingDetails(t *testing.T) {
	f := newFixture(t, payment.Approver{})
	flight := f.addFlight(t, "AI114", 10, 48*time.Hour)

	booking, err := f.book(flight.ID, "6A")
	require.NoError(t, err)

	details, err := f.service.GetBookingDetails(context.Background(), booking.PNR)
	require.NoError(t, err)
	assert.Equal(t, booking.PNR, details.Booking.PNR)
	assert.Equal(t, flight.FlightNo, details.Flight.FlightNo)
	// 500000 × 0.95 × 1.2 × 1.15 both times, one seat taken of ten
	assert.Equal(t, int64(0), details.PriceDifferenceCents)
	assert.True(t, details.CanCancel)
	require.Len(t, details.History, 2)
	assert.Equal(t, "Booking created for Asha Rao (29) on flight AI114, seat 6A", details.History[0].Description)
	assert.Len(t, details.Transactions, 1)

	f.clock.Advance(47 * time.Hour)
	details, err = f.service.GetBookingDetails(context.Background(), booking.PNR)
	require.NoError(t, err)
	assert.False(t, details.CanCancel)
	assert.Positive(t, details.PriceDifferenceCents)

	_, err = f.service.GetBookingDetails(context.Background(), "ZZ9999")
	assert.ErrorIs(t, err, domain.ErrBookingNotFound)
}
