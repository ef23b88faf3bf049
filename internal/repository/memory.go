package repository

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/Domenick1991/fareledger/internal/domain"
	"github.com/Domenick1991/fareledger/internal/inventory"
)

// MemoryStore is a process-local implementation of every repository. Row
// locks are emulated with a keyed mutex and writes are staged per unit of
// work, then applied under a single critical section on commit.
type MemoryStore struct {
	mu       sync.RWMutex
	flights  map[int64]domain.Flight
	bookings map[string]domain.Booking
	history  []domain.BookingHistory
	payments []domain.PaymentTransaction
	fares    []domain.FareHistoryRecord
	// PNRs inserted by open units of work, the equivalent of a pending
	// unique index entry
	claimed map[string]struct{}
	// confirmed seat -> holding PNR
	seats map[seatKey]string

	rows *inventory.KeyedMutex

	nextFlightID  int64
	nextBookingID int64
	nextHistoryID int64
	nextFareID    int64
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		flights:  make(map[int64]domain.Flight),
		bookings: make(map[string]domain.Booking),
		claimed:  make(map[string]struct{}),
		seats:    make(map[seatKey]string),
		rows:     inventory.NewKeyedMutex(),
	}
}

// AddFlight schedules a flight. A zero ID is assigned automatically.
func (s *MemoryStore) AddFlight(f domain.Flight) (domain.Flight, error) {
	if f.TotalSeats < 0 || f.SeatsAvailable < 0 || f.SeatsAvailable > f.TotalSeats {
		return domain.Flight{}, fmt.Errorf("flight %s: seats_available %d outside [0, %d]", f.FlightNo, f.SeatsAvailable, f.TotalSeats)
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.flights {
		if existing.FlightNo == f.FlightNo && existing.ID != f.ID {
			return domain.Flight{}, fmt.Errorf("flight number %s already scheduled", f.FlightNo)
		}
	}
	if f.ID == 0 {
		s.nextFlightID++
		f.ID = s.nextFlightID
	} else if f.ID > s.nextFlightID {
		s.nextFlightID = f.ID
	}
	if f.Status == "" {
		f.Status = domain.FlightStatusScheduled
	}
	if f.CreatedAt.IsZero() {
		f.CreatedAt = time.Now().UTC()
		f.UpdatedAt = f.CreatedAt
	}
	s.flights[f.ID] = f
	return f, nil
}

func (s *MemoryStore) List(ctx context.Context) ([]domain.Flight, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	flights := make([]domain.Flight, 0, len(s.flights))
	for _, f := range s.flights {
		flights = append(flights, f)
	}
	sortByDeparture(flights)
	return flights, nil
}

func (s *MemoryStore) Search(ctx context.Context, origin, destination string, date time.Time) ([]domain.Flight, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	day := date.UTC().Format(time.DateOnly)
	flights := make([]domain.Flight, 0)
	for _, f := range s.flights {
		if f.Origin != origin || f.Destination != destination {
			continue
		}
		if f.DepartureTime.UTC().Format(time.DateOnly) != day {
			continue
		}
		flights = append(flights, f)
	}
	sortByDeparture(flights)
	return flights, nil
}

func sortByDeparture(flights []domain.Flight) {
	sort.Slice(flights, func(i, j int) bool {
		if flights[i].DepartureTime.Equal(flights[j].DepartureTime) {
			return flights[i].ID < flights[j].ID
		}
		return flights[i].DepartureTime.Before(flights[j].DepartureTime)
	})
}

func (s *MemoryStore) GetByID(ctx context.Context, id int64) (*domain.Flight, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	f, ok := s.flights[id]
	if !ok {
		return nil, domain.Errorf(domain.ErrFlightNotFound, "flight %d not found", id)
	}
	return &f, nil
}

func (s *MemoryStore) GetByPNR(ctx context.Context, pnr string) (*domain.Booking, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	b, ok := s.bookings[pnr]
	if !ok {
		return nil, domain.Errorf(domain.ErrBookingNotFound, "booking %s not found", pnr)
	}
	return &b, nil
}

func (s *MemoryStore) ConfirmedSeats(ctx context.Context, flightID int64) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	seats := make([]string, 0)
	for _, b := range s.bookings {
		if b.FlightID == flightID && b.Status == domain.BookingStatusConfirmed {
			seats = append(seats, b.SeatNumber)
		}
	}
	sort.Strings(seats)
	return seats, nil
}

func (s *MemoryStore) History(ctx context.Context, pnr string) ([]domain.BookingHistory, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]domain.BookingHistory, 0)
	for _, h := range s.history {
		if h.PNR == pnr {
			out = append(out, h)
		}
	}
	return out, nil
}

func (s *MemoryStore) Transactions(ctx context.Context, pnr string) ([]domain.PaymentTransaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]domain.PaymentTransaction, 0)
	for _, p := range s.payments {
		if p.PNR == pnr {
			out = append(out, p)
		}
	}
	return out, nil
}

// Payments returns every recorded payment transaction, including declined
// attempts that never produced a booking.
func (s *MemoryStore) Payments() []domain.PaymentTransaction {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]domain.PaymentTransaction(nil), s.payments...)
}

// Bookings returns every booking in no particular order.
func (s *MemoryStore) Bookings() []domain.Booking {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.Booking, 0, len(s.bookings))
	for _, b := range s.bookings {
		out = append(out, b)
	}
	return out
}

func (s *MemoryStore) RecordPayment(ctx context.Context, p *domain.PaymentTransaction) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.payments = append(s.payments, *p)
	return nil
}

func (s *MemoryStore) RecordFare(ctx context.Context, rec *domain.FareHistoryRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextFareID++
	rec.ID = s.nextFareID
	s.fares = append(s.fares, *rec)
	return nil
}

func (s *MemoryStore) FareTrends(ctx context.Context, flightID int64, since time.Time) ([]domain.FareHistoryRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]domain.FareHistoryRecord, 0)
	for _, r := range s.fares {
		if r.FlightID == flightID && !r.RecordedAt.Before(since) {
			out = append(out, r)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].RecordedAt.Before(out[j].RecordedAt) })
	return out, nil
}

func (s *MemoryStore) WithinTx(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error {
	tx := &memTx{
		s:        s,
		flights:  make(map[int64]domain.Flight),
		bookings: make(map[string]domain.Booking),
		locked:   make(map[string]bool),
	}
	if err := fn(ctx, tx); err != nil {
		tx.rollback()
		return err
	}
	tx.commit()
	return nil
}

type seatKey struct {
	flightID int64
	seat     string
}

type memTx struct {
	s        *MemoryStore
	flights  map[int64]domain.Flight
	bookings map[string]domain.Booking
	history  []domain.BookingHistory
	payments []domain.PaymentTransaction
	claimed  []string
	locked   map[string]bool
	unlocks  []func()
}

func (t *memTx) lockRow(ctx context.Context, key string) error {
	if t.locked[key] {
		return nil
	}
	unlock, err := t.s.rows.Lock(ctx, key)
	if err != nil {
		return err
	}
	t.locked[key] = true
	t.unlocks = append(t.unlocks, unlock)
	return nil
}

func (t *memTx) LockFlight(ctx context.Context, flightID int64) (*domain.Flight, error) {
	if err := t.lockRow(ctx, inventory.FlightKey(flightID)); err != nil {
		return nil, err
	}
	if f, ok := t.flights[flightID]; ok {
		return &f, nil
	}
	t.s.mu.RLock()
	f, ok := t.s.flights[flightID]
	t.s.mu.RUnlock()
	if !ok {
		return nil, domain.Errorf(domain.ErrFlightNotFound, "flight %d not found", flightID)
	}
	t.flights[flightID] = f
	return &f, nil
}

func (t *memTx) LockBooking(ctx context.Context, pnr string) (*domain.Booking, error) {
	if err := t.lockRow(ctx, "booking:"+pnr); err != nil {
		return nil, err
	}
	if b, ok := t.bookings[pnr]; ok {
		return &b, nil
	}
	t.s.mu.RLock()
	b, ok := t.s.bookings[pnr]
	t.s.mu.RUnlock()
	if !ok {
		return nil, domain.Errorf(domain.ErrBookingNotFound, "booking %s not found", pnr)
	}
	t.bookings[pnr] = b
	return &b, nil
}

func (t *memTx) SeatTaken(ctx context.Context, flightID int64, seat string) (bool, error) {
	for _, b := range t.bookings {
		if b.FlightID == flightID && b.SeatNumber == seat && b.Status == domain.BookingStatusConfirmed {
			return true, nil
		}
	}
	t.s.mu.RLock()
	defer t.s.mu.RUnlock()
	return t.s.seatTakenLocked(flightID, seat, t.bookings), nil
}

// seatTakenLocked checks committed bookings, skipping those overridden by
// the staged set. Callers hold s.mu.
func (s *MemoryStore) seatTakenLocked(flightID int64, seat string, staged map[string]domain.Booking) bool {
	holder, ok := s.seats[seatKey{flightID, seat}]
	if !ok {
		return false
	}
	_, overridden := staged[holder]
	return !overridden
}

func (t *memTx) PNRExists(ctx context.Context, pnr string) (bool, error) {
	if _, ok := t.bookings[pnr]; ok {
		return true, nil
	}
	t.s.mu.RLock()
	defer t.s.mu.RUnlock()
	_, committed := t.s.bookings[pnr]
	_, claimed := t.s.claimed[pnr]
	return committed || claimed, nil
}

func (t *memTx) InsertBooking(ctx context.Context, b *domain.Booking) error {
	t.s.mu.Lock()
	defer t.s.mu.Unlock()

	_, committed := t.s.bookings[b.PNR]
	_, claimed := t.s.claimed[b.PNR]
	if committed || claimed {
		return domain.Errorf(domain.ErrDuplicateReference, "booking reference %s already exists", b.PNR)
	}
	if b.Status == domain.BookingStatusConfirmed && t.s.seatTakenLocked(b.FlightID, b.SeatNumber, t.bookings) {
		return domain.Errorf(domain.ErrSeatAlreadyTaken, "seat %s is already booked", b.SeatNumber)
	}

	t.s.claimed[b.PNR] = struct{}{}
	t.claimed = append(t.claimed, b.PNR)
	t.s.nextBookingID++
	b.ID = t.s.nextBookingID
	t.bookings[b.PNR] = *b
	return nil
}

func (t *memTx) UpdateBookingStatus(ctx context.Context, pnr string, status domain.BookingStatus, payment domain.PaymentStatus, at time.Time) error {
	b, ok := t.bookings[pnr]
	if !ok {
		t.s.mu.RLock()
		b, ok = t.s.bookings[pnr]
		t.s.mu.RUnlock()
	}
	if !ok {
		return domain.Errorf(domain.ErrBookingNotFound, "booking %s not found", pnr)
	}
	b.Status = status
	b.PaymentStatus = payment
	b.UpdatedAt = at
	t.bookings[pnr] = b
	return nil
}

func (t *memTx) ReserveSeat(ctx context.Context, flightID int64) (int, error) {
	f, err := t.LockFlight(ctx, flightID)
	if err != nil {
		return 0, err
	}
	if f.SeatsAvailable <= 0 {
		return 0, domain.Errorf(domain.ErrNoSeatsAvailable, "no seats available on flight %s", f.FlightNo)
	}
	f.SeatsAvailable--
	f.UpdatedAt = time.Now().UTC()
	t.flights[flightID] = *f
	return f.SeatsAvailable, nil
}

func (t *memTx) ReleaseSeat(ctx context.Context, flightID int64) (int, error) {
	f, err := t.LockFlight(ctx, flightID)
	if err != nil {
		return 0, err
	}
	if f.SeatsAvailable >= f.TotalSeats {
		return 0, fmt.Errorf("flight %d: seats_available would exceed total_seats", flightID)
	}
	f.SeatsAvailable++
	f.UpdatedAt = time.Now().UTC()
	t.flights[flightID] = *f
	return f.SeatsAvailable, nil
}

func (t *memTx) InsertPayment(ctx context.Context, p *domain.PaymentTransaction) error {
	t.payments = append(t.payments, *p)
	return nil
}

func (t *memTx) AppendHistory(ctx context.Context, h *domain.BookingHistory) error {
	t.history = append(t.history, *h)
	return nil
}

func (t *memTx) commit() {
	t.s.mu.Lock()
	for id, f := range t.flights {
		t.s.flights[id] = f
	}
	for pnr, b := range t.bookings {
		t.s.bookings[pnr] = b
		key := seatKey{b.FlightID, b.SeatNumber}
		if b.Status == domain.BookingStatusConfirmed {
			t.s.seats[key] = pnr
		} else if t.s.seats[key] == pnr {
			delete(t.s.seats, key)
		}
	}
	for _, h := range t.history {
		t.s.nextHistoryID++
		h.ID = t.s.nextHistoryID
		t.s.history = append(t.s.history, h)
	}
	t.s.payments = append(t.s.payments, t.payments...)
	for _, pnr := range t.claimed {
		delete(t.s.claimed, pnr)
	}
	t.s.mu.Unlock()
	t.release()
}

func (t *memTx) rollback() {
	t.s.mu.Lock()
	for _, pnr := range t.claimed {
		delete(t.s.claimed, pnr)
	}
	t.s.mu.Unlock()
	t.release()
}

func (t *memTx) release() {
	for i := len(t.unlocks) - 1; i >= 0; i-- {
		t.unlocks[i]()
	}
}

var (
	_ FlightRepository      = (*MemoryStore)(nil)
	_ BookingRepository     = (*MemoryStore)(nil)
	_ FareHistoryRepository = (*MemoryStore)(nil)
	_ TxManager             = (*MemoryStore)(nil)
	_ Tx                    = (*memTx)(nil)
)
