package game

import (
	"crypto/rand"
	"sync/atomic"

	"github.com/jonboulle/clockwork"
)

// Env supplies the block-style execution metadata the randomness derivation
// mixes in: a timestamp, a height and an entropy word.
type Env interface {
	Timestamp() uint64
	Height() uint64
	Entropy() [32]byte
}

// ClockEnv is the production Env. Heights advance with a fixed slot length
// measured on the injected clock, entropy comes from the OS.
type ClockEnv struct {
	clock      clockwork.Clock
	slotLength uint64
}

// NewClockEnv creates an Env over a clock. slotSeconds is the nominal slot
// length; zero defaults to 2.
func NewClockEnv(clock clockwork.Clock, slotSeconds uint64) *ClockEnv {
	if slotSeconds == 0 {
		slotSeconds = 2
	}
	return &ClockEnv{clock: clock, slotLength: slotSeconds}
}

func (e *ClockEnv) Timestamp() uint64 {
	return uint64(e.clock.Now().Unix())
}

func (e *ClockEnv) Height() uint64 {
	return e.Timestamp() / e.slotLength
}

func (e *ClockEnv) Entropy() [32]byte {
	var out [32]byte
	// rand.Read never fails on supported platforms
	_, _ = rand.Read(out[:])
	return out
}

// FakeEnv is a fully controllable Env for tests. Each Entropy read advances
// a counter so successive reads differ unless pinned.
type FakeEnv struct {
	Time   uint64
	Block  uint64
	Seed   [32]byte
	Pinned bool

	reads atomic.Uint64
}

func (e *FakeEnv) Timestamp() uint64 { return e.Time }
func (e *FakeEnv) Height() uint64    { return e.Block }

func (e *FakeEnv) Entropy() [32]byte {
	if e.Pinned {
		return e.Seed
	}
	n := e.reads.Add(1)
	return hashFields(e.Seed, n)
}

// Advance moves the fake timestamp forward
func (e *FakeEnv) Advance(seconds uint64) {
	e.Time += seconds
	e.Block = e.Time / 2
}
