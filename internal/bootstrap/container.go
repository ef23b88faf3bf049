package bootstrap

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/Domenick1991/fareledger/config"
	"github.com/Domenick1991/fareledger/internal/cache"
	"github.com/Domenick1991/fareledger/internal/clock"
	"github.com/Domenick1991/fareledger/internal/domain"
	"github.com/Domenick1991/fareledger/internal/entropy"
	"github.com/Domenick1991/fareledger/internal/kafka"
	"github.com/Domenick1991/fareledger/internal/payment"
	"github.com/Domenick1991/fareledger/internal/pricing"
	"github.com/Domenick1991/fareledger/internal/repository"
	"github.com/Domenick1991/fareledger/internal/service/booking"
	"github.com/Domenick1991/fareledger/internal/service/flights"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

// App holds the wired services shared by the binaries.
type App struct {
	Flights  *flights.FlightService
	Bookings *booking.BookingService
	Engine   *pricing.Engine
	Checks   map[string]HealthCheck

	closers []func()
}

type storage struct {
	flights  repository.FlightRepository
	bookings repository.BookingRepository
	fares    repository.FareHistoryRepository
	txm      repository.TxManager
}

// Build connects storage, cache and messaging from cfg. Redis and Kafka
// are optional: an empty address leaves them out.
func Build(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*App, error) {
	app := &App{Checks: make(map[string]HealthCheck)}

	store, err := app.openStorage(ctx, cfg, logger)
	if err != nil {
		app.Close()
		return nil, err
	}

	var bookingOpts []booking.BookingServiceOption
	var flightOpts []flights.FlightServiceOption

	if cfg.Redis.Addr != "" {
		redisCache := cache.NewRedisCache(cfg.Redis, cfg.Booking.FlightsCacheTTL)
		app.closers = append(app.closers, func() { _ = redisCache.Close() })
		app.Checks["redis"] = redisCache.Ping

		if err := redisCache.Ping(ctx); err != nil {
			if cfg.Booking.UseRedisLock {
				app.Close()
				return nil, fmt.Errorf("connect redis: %w", err)
			}
			logger.Warn("redis unavailable, flight cache disabled", zap.Error(err))
		} else {
			flightOpts = append(flightOpts, flights.WithCache(redisCache))
			bookingOpts = append(bookingOpts, booking.WithCacheInvalidator(redisCache))
		}
		if cfg.Booking.UseRedisLock {
			bookingOpts = append(bookingOpts, booking.WithLocker(redisCache.Locker(cfg.Booking.LockTTL).WithLogger(logger)))
		}
	}

	if len(cfg.Kafka.Brokers) > 0 {
		producer := kafka.NewProducer(cfg.Kafka.Brokers, logger)
		app.closers = append(app.closers, func() { _ = producer.Close() })
		app.Checks["kafka"] = producer.CheckConnection
		if err := producer.CheckConnection(ctx); err != nil {
			logger.Warn("kafka unavailable, booking events will be dropped", zap.Error(err))
		}
		bookingOpts = append(bookingOpts,
			booking.WithProducer(producer, cfg.Kafka.BookingTopic),
			booking.WithNotificationsTopic(cfg.Kafka.NotificationsTopic),
		)
	}

	app.Engine = pricing.NewEngine(clock.System(), pricing.NewWeightedDemand(entropy.NewTimeSeeded()),
		pricing.WithRecorder(store.fares),
		pricing.WithLogger(logger.Named("pricing")),
	)
	gateway := payment.NewSimulator(cfg.Payment.Rate(), cfg.Payment.Latency, entropy.NewTimeSeeded())

	app.Flights = flights.NewFlightService(store.flights, store.fares, app.Engine,
		append(flightOpts, flights.WithLogger(logger.Named("flights")))...)
	app.Bookings = booking.NewBookingService(store.bookings, store.flights, store.txm, app.Engine, gateway,
		append(bookingOpts,
			booking.WithCancellationCutoff(cfg.Booking.CancellationCutoff),
			booking.WithPNRMaxAttempts(cfg.Booking.PNRMaxAttempts),
			booking.WithPaymentTimeout(cfg.Payment.Timeout),
			booking.WithLogger(logger.Named("booking")),
		)...)

	return app, nil
}

func (a *App) openStorage(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*storage, error) {
	now := time.Now().UTC()

	if cfg.Database.Driver == "memory" {
		mem := repository.NewMemoryStore()
		for _, s := range cfg.Database.Seed {
			if _, err := mem.AddFlight(SeedToFlight(s, now)); err != nil {
				return nil, fmt.Errorf("seed flight %s: %w", s.FlightNo, err)
			}
		}
		logger.Info("using in-memory storage", zap.Int("flights", len(cfg.Database.Seed)))
		return &storage{flights: mem, bookings: mem, fares: mem, txm: mem}, nil
	}

	pool, err := pgxpool.New(ctx, cfg.Database.DSN())
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	a.closers = append(a.closers, pool.Close)
	a.Checks["postgres"] = pool.Ping

	if err := pool.Ping(ctx); err != nil {
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	if cfg.Database.AutoMigrate {
		if err := repository.Migrate(ctx, pool); err != nil {
			return nil, fmt.Errorf("migrate: %w", err)
		}
	}

	flightRepo := repository.NewFlightRepository(pool)
	for _, s := range cfg.Database.Seed {
		f := SeedToFlight(s, now)
		if err := flightRepo.CreateFlight(ctx, &f); err != nil {
			return nil, fmt.Errorf("seed flight %s: %w", s.FlightNo, err)
		}
	}

	return &storage{
		flights:  flightRepo,
		bookings: repository.NewBookingRepository(pool),
		fares:    repository.NewFareHistoryRepository(pool),
		txm:      repository.NewTxManager(pool),
	}, nil
}

// Close releases connections in reverse order of opening.
func (a *App) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}

// SeedToFlight schedules a seed relative to now, on the hour.
func SeedToFlight(s config.SeedFlight, now time.Time) domain.Flight {
	departs := now.Truncate(time.Hour).Add(time.Duration(s.DepartsInHours) * time.Hour)
	duration := time.Duration(s.DurationMins) * time.Minute
	if duration <= 0 {
		duration = 3 * time.Hour
	}
	return domain.Flight{
		FlightNo:       s.FlightNo,
		Origin:         s.Origin,
		Destination:    s.Destination,
		DepartureTime:  departs,
		ArrivalTime:    departs.Add(duration),
		BaseFareCents:  int64(math.Round(s.BaseFare * 100)),
		TotalSeats:     s.TotalSeats,
		SeatsAvailable: s.TotalSeats,
		Status:         domain.FlightStatusScheduled,
		AircraftType:   s.AircraftType,
	}
}
