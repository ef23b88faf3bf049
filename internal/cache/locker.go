package cache

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/Domenick1991/fareledger/internal/inventory"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const defaultLockRetry = 25 * time.Millisecond

// releases the key only while it still holds our token
var unlockScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0`)

// FlightLocker serializes booking writes for one flight across processes.
// The key expires after ttl so a crashed holder cannot block the flight
// forever; ttl must exceed the longest booking unit of work.
type FlightLocker struct {
	client *redis.Client
	ttl    time.Duration
	retry  time.Duration
	logger *zap.Logger
}

func NewFlightLocker(client *redis.Client, ttl time.Duration) *FlightLocker {
	return &FlightLocker{client: client, ttl: ttl, retry: defaultLockRetry, logger: zap.NewNop()}
}

func (l *FlightLocker) WithLogger(logger *zap.Logger) *FlightLocker {
	l.logger = logger
	return l
}

// Lock polls SET NX until it wins or ctx ends.
func (l *FlightLocker) Lock(ctx context.Context, flightID int64) (func(), error) {
	key := flightLockKey(flightID)
	token := uuid.NewString()

	for {
		ok, err := l.client.SetNX(ctx, key, token, l.ttl).Result()
		if err != nil {
			return nil, fmt.Errorf("acquire %s: %w", key, err)
		}
		if ok {
			break
		}

		timer := time.NewTimer(l.retry)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, ctx.Err()
		case <-timer.C:
		}
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			releaseCtx, cancel := context.WithTimeout(context.Background(), time.Second)
			defer cancel()
			if err := unlockScript.Run(releaseCtx, l.client, []string{key}, token).Err(); err != nil {
				l.logger.Warn("failed to release flight lock", zap.String("key", key), zap.Error(err))
			}
		})
	}, nil
}

var _ inventory.Locker = (*FlightLocker)(nil)
