package flights

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/Domenick1991/fareledger/internal/domain"
	"github.com/Domenick1991/fareledger/internal/pricing"
	"github.com/Domenick1991/fareledger/internal/repository"
	"go.uber.org/zap"
)

const (
	DefaultTrendDays = 7
	MaxTrendDays     = 90
	MaxProjection    = 7 * 24
)

const (
	SortByDeparture = "departure"
	SortByFare      = "fare"
	SortByDuration  = "duration"
)

// SearchQuery selects flights on one route and UTC departure date.
// MaxPriceCents of zero means no price ceiling.
type SearchQuery struct {
	Origin        string
	Destination   string
	Date          time.Time
	MaxPriceCents int64
	SortBy        string
}

type FlightUseCase interface {
	List(ctx context.Context) ([]domain.Flight, error)
	Search(ctx context.Context, q SearchQuery) ([]domain.FlightOffer, error)
	GetByID(ctx context.Context, id int64) (*domain.Flight, error)
	QuoteFare(ctx context.Context, id int64) (*domain.FareQuote, error)
	ProjectFares(ctx context.Context, id int64, hours int) ([]domain.FareProjection, error)
	FareTrends(ctx context.Context, id int64, days int) ([]domain.FareHistoryRecord, error)
}

type FlightCache interface {
	GetFlights(ctx context.Context) ([]domain.Flight, error)
	SetFlights(ctx context.Context, flights []domain.Flight) error
}

type FlightService struct {
	repo    repository.FlightRepository
	fares   repository.FareHistoryRepository
	pricing *pricing.Engine
	cache   FlightCache
	logger  *zap.Logger
}

type FlightServiceOption func(*FlightService)

func WithCache(c FlightCache) FlightServiceOption {
	return func(s *FlightService) { s.cache = c }
}

func WithLogger(l *zap.Logger) FlightServiceOption {
	return func(s *FlightService) { s.logger = l }
}

func NewFlightService(repo repository.FlightRepository, fares repository.FareHistoryRepository, engine *pricing.Engine, opts ...FlightServiceOption) *FlightService {
	s := &FlightService{repo: repo, fares: fares, pricing: engine, logger: zap.NewNop()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// List serves from the cache when it can; cache failures fall through to
// storage.
func (s *FlightService) List(ctx context.Context) ([]domain.Flight, error) {
	if s.cache != nil {
		cached, err := s.cache.GetFlights(ctx)
		if err == nil && cached != nil {
			return cached, nil
		}
		if err != nil {
			s.logger.Warn("flight cache read failed", zap.Error(err))
		}
	}

	flights, err := s.repo.List(ctx)
	if err != nil {
		return nil, err
	}
	if s.cache != nil {
		if err := s.cache.SetFlights(ctx, flights); err != nil {
			s.logger.Warn("flight cache write failed", zap.Error(err))
		}
	}
	return flights, nil
}

// Search prices every bookable flight on the route and day, drops those
// above the ceiling and orders the rest.
func (s *FlightService) Search(ctx context.Context, q SearchQuery) ([]domain.FlightOffer, error) {
	origin := strings.ToUpper(strings.TrimSpace(q.Origin))
	destination := strings.ToUpper(strings.TrimSpace(q.Destination))
	switch {
	case origin == "" || destination == "":
		return nil, domain.NewInvalidInput("origin and destination are required")
	case origin == destination:
		return nil, domain.NewInvalidInput("origin and destination must differ")
	case q.Date.IsZero():
		return nil, domain.NewInvalidInput("date is required")
	case q.MaxPriceCents < 0:
		return nil, domain.NewInvalidInput("max price must not be negative")
	}
	sortBy := q.SortBy
	if sortBy == "" {
		sortBy = SortByDeparture
	}
	if sortBy != SortByDeparture && sortBy != SortByFare && sortBy != SortByDuration {
		return nil, domain.NewInvalidInput("sort must be departure, fare or duration")
	}

	list, err := s.repo.Search(ctx, origin, destination, q.Date)
	if err != nil {
		return nil, err
	}

	now := s.pricing.Now()
	offers := make([]domain.FlightOffer, 0, len(list))
	for _, f := range list {
		if !f.Bookable(now) {
			continue
		}
		quote := s.pricing.Quote(f, now)
		if q.MaxPriceCents > 0 && quote.FareCents > q.MaxPriceCents {
			continue
		}
		offers = append(offers, domain.FlightOffer{Flight: f, Fare: quote})
	}

	sort.SliceStable(offers, func(i, j int) bool {
		a, b := offers[i], offers[j]
		if sortBy == SortByFare && a.Fare.FareCents != b.Fare.FareCents {
			return a.Fare.FareCents < b.Fare.FareCents
		}
		if sortBy == SortByDuration && a.Flight.Duration() != b.Flight.Duration() {
			return a.Flight.Duration() < b.Flight.Duration()
		}
		if !a.Flight.DepartureTime.Equal(b.Flight.DepartureTime) {
			return a.Flight.DepartureTime.Before(b.Flight.DepartureTime)
		}
		return a.Flight.ID < b.Flight.ID
	})
	return offers, nil
}

func (s *FlightService) GetByID(ctx context.Context, id int64) (*domain.Flight, error) {
	return s.repo.GetByID(ctx, id)
}

// QuoteFare prices the flight now and records the quote in fare history.
func (s *FlightService) QuoteFare(ctx context.Context, id int64) (*domain.FareQuote, error) {
	f, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	q := s.pricing.QuoteAndRecord(ctx, *f)
	return &q, nil
}

func (s *FlightService) ProjectFares(ctx context.Context, id int64, hours int) ([]domain.FareProjection, error) {
	if hours == 0 {
		hours = pricing.DefaultProjectionHours
	}
	if hours < 0 || hours > MaxProjection {
		return nil, domain.NewInvalidInput("hours must be between 1 and 168")
	}
	f, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.pricing.Project(*f, s.pricing.Now(), hours, pricing.DefaultProjectionStep), nil
}

// FareTrends returns recorded fares for the last days, oldest first.
func (s *FlightService) FareTrends(ctx context.Context, id int64, days int) ([]domain.FareHistoryRecord, error) {
	if days == 0 {
		days = DefaultTrendDays
	}
	if days < 0 || days > MaxTrendDays {
		return nil, domain.NewInvalidInput("days must be between 1 and 90")
	}
	if _, err := s.repo.GetByID(ctx, id); err != nil {
		return nil, err
	}
	since := s.pricing.Now().Add(-time.Duration(days) * 24 * time.Hour)
	return s.fares.FareTrends(ctx, id, since)
}

// SnapshotFares records the current fare of every bookable flight so
// trends have data between quotes. It reads storage directly, not the
// listing cache.
func (s *FlightService) SnapshotFares(ctx context.Context) (int, error) {
	list, err := s.repo.List(ctx)
	if err != nil {
		return 0, err
	}
	now := s.pricing.Now()
	recorded := 0
	for _, f := range list {
		if ctx.Err() != nil {
			return recorded, ctx.Err()
		}
		if !f.Bookable(now) {
			continue
		}
		s.pricing.Record(ctx, s.pricing.Quote(f, now))
		recorded++
	}
	return recorded, nil
}

var _ FlightUseCase = (*FlightService)(nil)
