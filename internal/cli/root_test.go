package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/Domenick1991/fareledger/internal/clock"
	"github.com/Domenick1991/fareledger/internal/domain"
	"github.com/Domenick1991/fareledger/internal/payment"
	"github.com/Domenick1991/fareledger/internal/pricing"
	"github.com/Domenick1991/fareledger/internal/repository"
	"github.com/Domenick1991/fareledger/internal/service/booking"
	"github.com/Domenick1991/fareledger/internal/service/flights"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// memoryFactory shares one store across command runs.
func memoryFactory(t *testing.T) ServiceFactory {
	t.Helper()
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	store := repository.NewMemoryStore()
	_, err := store.AddFlight(domain.Flight{
		FlightNo:       "FL101",
		Origin:         "JFK",
		Destination:    "LAX",
		DepartureTime:  now.Add(72 * time.Hour),
		ArrivalTime:    now.Add(78 * time.Hour),
		BaseFareCents:  50000,
		TotalSeats:     170,
		SeatsAvailable: 170,
	})
	require.NoError(t, err)

	engine := pricing.NewEngine(clock.NewManual(now), pricing.FixedDemand(domain.DemandLow), pricing.WithRecorder(store))
	s := &Services{
		Flights:  flights.NewFlightService(store, store, engine),
		Bookings: booking.NewBookingService(store, store, store, engine, payment.Approver{}),
	}
	return func(context.Context, *RootOptions) (*Services, error) { return s, nil }
}

func execute(t *testing.T, factory ServiceFactory, args ...string) (string, error) {
	t.Helper()
	cmd := NewRootCommand(factory)
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestCommandPresence(t *testing.T) {
	cmd := NewRootCommand(nil)
	for _, name := range []string{"flights", "search", "quote", "project", "trends", "seatmap", "book", "cancel", "booking"} {
		t.Run(name, func(t *testing.T) {
			sub, _, err := cmd.Find([]string{name})
			require.NoError(t, err)
			assert.Equal(t, name, sub.Name())
		})
	}
}

func TestInvalidFormat(t *testing.T) {
	_, err := execute(t, memoryFactory(t), "flights", "--format", "yaml")
	assert.ErrorContains(t, err, "invalid format")
}

func TestFlightsText(t *testing.T) {
	out, err := execute(t, memoryFactory(t), "flights")
	require.NoError(t, err)
	assert.Contains(t, out, "FL101")
	assert.Contains(t, out, "JFK-LAX")
	assert.Contains(t, out, "500.00")
}

func TestSearchText(t *testing.T) {
	out, err := execute(t, memoryFactory(t), "search", "jfk", "lax", "2026-03-04", "--sort", "fare")
	require.NoError(t, err)
	assert.Contains(t, out, "FL101")
	// 500.00 × 0.95 × 1.1 × 1.0
	assert.Contains(t, out, "522.50")

	out, err = execute(t, memoryFactory(t), "search", "JFK", "LAX", "2026-03-04", "--max-price", "50000", "--format", "json")
	require.NoError(t, err)
	var offers []domain.FlightOffer
	require.NoError(t, json.Unmarshal([]byte(out), &offers))
	assert.Empty(t, offers)
}

func TestSearchRejectsBadInput(t *testing.T) {
	_, err := execute(t, memoryFactory(t), "search", "JFK", "LAX", "tomorrow")
	assert.ErrorContains(t, err, "invalid date")

	_, err = execute(t, memoryFactory(t), "search", "JFK", "jfk", "2026-03-04")
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestQuoteJSON(t *testing.T) {
	out, err := execute(t, memoryFactory(t), "quote", "1", "--format", "json")
	require.NoError(t, err)

	var q domain.FareQuote
	require.NoError(t, json.Unmarshal([]byte(out), &q))
	assert.Equal(t, int64(1), q.FlightID)
	assert.Positive(t, q.FareCents)
}

func TestQuoteRejectsBadID(t *testing.T) {
	_, err := execute(t, memoryFactory(t), "quote", "abc")
	assert.ErrorContains(t, err, "invalid flight id")
}

func TestBookCancelAndShow(t *testing.T) {
	factory := memoryFactory(t)

	out, err := execute(t, factory, "book", "1", "3c", "--name", "grace hopper", "--age", "45", "--phone", "+1 555 010 0100", "--format", "json")
	require.NoError(t, err)
	var b domain.Booking
	require.NoError(t, json.Unmarshal([]byte(out), &b))
	assert.Equal(t, "3C", b.SeatNumber)

	out, err = execute(t, factory, "seatmap", "1")
	require.NoError(t, err)
	assert.Contains(t, out, "169 seats available")

	out, err = execute(t, factory, "booking", b.PNR)
	require.NoError(t, err)
	assert.Contains(t, out, "Grace Hopper")
	assert.Contains(t, out, "cancellable: true")

	out, err = execute(t, factory, "cancel", b.PNR, "--reason", "duplicate")
	require.NoError(t, err)
	assert.True(t, strings.Contains(out, "CANCELLED"))

	_, err = execute(t, factory, "cancel", b.PNR)
	assert.ErrorIs(t, err, domain.ErrAlreadyCancelled)
}

func TestBookRequiresPassenger(t *testing.T) {
	_, err := execute(t, memoryFactory(t), "book", "1", "3C")
	assert.Error(t, err)
}

func TestMoney(t *testing.T) {
	assert.Equal(t, "655.50", money(65550))
	assert.Equal(t, "-0.05", money(-5))
	assert.Equal(t, "0.00", money(0))
}
