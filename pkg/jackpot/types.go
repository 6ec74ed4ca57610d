package jackpot

import (
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// Update is one observed value of the shared jackpot pool.
type Update struct {
	Pool      decimal.Decimal `json:"pool"`
	Delta     decimal.Decimal `json:"delta"`
	Timestamp time.Time       `json:"timestamp"`
}

// PoolSource reads the authoritative pool value. The registry core
// satisfies it; replica processes run without one and rely on buffered
// updates alone.
type PoolSource interface {
	JackpotPool() uint64
}

// ServiceConfig configures the jackpot streaming service.
type ServiceConfig struct {
	// BroadcastInterval controls how often the buffered update is flushed
	// to listeners.
	BroadcastInterval time.Duration

	// RefreshInterval controls how often the pool value is re-read from
	// the source. Zero disables source refresh.
	RefreshInterval time.Duration

	// Source is optional; if set, refreshes and Current() read from it.
	Source PoolSource

	// Clock defaults to the real clock.
	Clock clockwork.Clock

	Logger zerolog.Logger
}
