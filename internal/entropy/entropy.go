// Package entropy provides the seedable random source shared by demand
// simulation, payment simulation and reference generation.
package entropy

import (
	"math/rand/v2"
	"sync"
	"time"
)

// Source is the subset of *rand.Rand the engine draws from.
type Source interface {
	Float64() float64
	IntN(n int) int
}

// Locked wraps a PCG generator with a mutex so it can be shared across
// goroutines.
type Locked struct {
	mu  sync.Mutex
	rng *rand.Rand
}

// New returns a deterministic source for the given seed.
func New(seed uint64) *Locked {
	return &Locked{rng: rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))}
}

// NewTimeSeeded returns a source seeded from the current time.
func NewTimeSeeded() *Locked {
	return New(uint64(time.Now().UnixNano()))
}

func (l *Locked) Float64() float64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.rng.Float64()
}

func (l *Locked) IntN(n int) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.rng.IntN(n)
}

// Fixed always returns the same draws. Float64 returns F; IntN returns
// I modulo n.
type Fixed struct {
	F float64
	I int
}

func (f Fixed) Float64() float64 { return f.F }

func (f Fixed) IntN(n int) int { return f.I % n }
