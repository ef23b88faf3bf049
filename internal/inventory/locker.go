package inventory

import (
	"context"
	"fmt"
	"sync"
)

// Locker provides the per-flight mutual exclusion scope held for the whole
// validate, price, pay and commit sequence. The returned unlock func must be
// called exactly once.
type Locker interface {
	Lock(ctx context.Context, flightID int64) (unlock func(), err error)
}

// KeyedMutex is an in-process lock table. Waiting honours ctx cancellation.
// Entries are reference counted and dropped when no goroutine holds or
// waits on them.
type KeyedMutex struct {
	mu    sync.Mutex
	slots map[string]*slot
}

type slot struct {
	ch   chan struct{}
	refs int
}

func NewKeyedMutex() *KeyedMutex {
	return &KeyedMutex{slots: make(map[string]*slot)}
}

func (k *KeyedMutex) Lock(ctx context.Context, key string) (func(), error) {
	k.mu.Lock()
	s, ok := k.slots[key]
	if !ok {
		s = &slot{ch: make(chan struct{}, 1)}
		k.slots[key] = s
	}
	s.refs++
	k.mu.Unlock()

	select {
	case s.ch <- struct{}{}:
	case <-ctx.Done():
		k.release(key, s)
		return nil, fmt.Errorf("lock %s: %w", key, ctx.Err())
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			<-s.ch
			k.release(key, s)
		})
	}, nil
}

func (k *KeyedMutex) release(key string, s *slot) {
	k.mu.Lock()
	defer k.mu.Unlock()
	s.refs--
	if s.refs == 0 {
		delete(k.slots, key)
	}
}

// Len returns the number of keys currently held or awaited.
func (k *KeyedMutex) Len() int {
	k.mu.Lock()
	defer k.mu.Unlock()
	return len(k.slots)
}

// LocalLocker serializes writers of the same flight within one process.
type LocalLocker struct {
	keys *KeyedMutex
}

func NewLocalLocker() *LocalLocker {
	return &LocalLocker{keys: NewKeyedMutex()}
}

func (l *LocalLocker) Lock(ctx context.Context, flightID int64) (func(), error) {
	return l.keys.Lock(ctx, FlightKey(flightID))
}

func FlightKey(flightID int64) string {
	return fmt.Sprintf("flight:%d", flightID)
}

var _ Locker = (*LocalLocker)(nil)
