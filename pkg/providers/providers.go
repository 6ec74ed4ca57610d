package providers

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// PriceQuote is one oracle reading for a feed. The core consumes it purely
// as entropy input; no staleness check is applied to PublishTime.
type PriceQuote struct {
	Price       int64  `json:"price"`
	Conf        uint64 `json:"conf"`
	Expo        int32  `json:"expo"`
	PublishTime uint64 `json:"publish_time"`
}

// PriceOracle is the external price-feed read interface.
type PriceOracle interface {
	GetPriceUnsafe(ctx context.Context, feedID string) (PriceQuote, error)
}

// MachineSnapshot is the persisted view of one machine's mutable state.
// Enough to rebuild dashboards and survive restarts; the in-memory machine
// remains authoritative while the process lives.
type MachineSnapshot struct {
	Address          string    `json:"address"`
	Owner            string    `json:"owner"`
	JackpotShareBPS  uint64    `json:"jackpot_share_bps"`
	HouseEdgeBPS     uint64    `json:"house_edge_bps"`
	RefreshInterval  uint64    `json:"refresh_interval"`
	SpinCount        uint64    `json:"spin_count"`
	BaseRandomness   string    `json:"base_randomness"`
	LastRefreshTime  uint64    `json:"last_refresh_time"`
	ValidBetAmounts  []uint64  `json:"valid_bet_amounts"`
	PayoutTable      []uint64  `json:"payout_table"`
	UpdatedAt        time.Time `json:"updated_at"`
}

// SpinHistoryEntry is one settled spin as persisted per player.
type SpinHistoryEntry struct {
	Machine   string          `json:"machine"`
	Player    string          `json:"player"`
	Reels     [3]int          `json:"reels"`
	Bet       decimal.Decimal `json:"bet"`
	Payout    decimal.Decimal `json:"payout"`
	Jackpot   bool            `json:"jackpot"`
	Seed      string          `json:"seed"`
	Timestamp uint64          `json:"timestamp"`
}

// SnapshotStore persists machine snapshots and per-player spin history.
// Persistence is best effort: a store failure never fails a settled spin.
type SnapshotStore interface {
	SaveMachine(ctx context.Context, snap *MachineSnapshot) error
	GetMachine(ctx context.Context, address string) (*MachineSnapshot, error)
	AppendHistory(ctx context.Context, entry *SpinHistoryEntry) error
	GetHistory(ctx context.Context, machine, player string, limit int) ([]SpinHistoryEntry, error)
}

// MachineDeployedEvent records a new machine created by the registry.
type MachineDeployedEvent struct {
	Machine      string    `json:"machine"`
	Owner        string    `json:"owner"`
	OracleFeedID string    `json:"oracle_feed_id"`
	Timestamp    time.Time `json:"timestamp"`
}

// SpinSettledEvent records one fully settled spin.
type SpinSettledEvent struct {
	Machine   string          `json:"machine"`
	Player    string          `json:"player"`
	Reels     [3]int          `json:"reels"`
	Bet       decimal.Decimal `json:"bet"`
	Payout    decimal.Decimal `json:"payout"`
	Jackpot   bool            `json:"jackpot"`
	Seed      string          `json:"seed"`
	Timestamp time.Time       `json:"timestamp"`
}

// JackpotWonEvent records a jackpot pool drain.
type JackpotWonEvent struct {
	Machine   string          `json:"machine"`
	Player    string          `json:"player"`
	Payout    decimal.Decimal `json:"payout"`
	Timestamp time.Time       `json:"timestamp"`
}

// PoolUpdatedEvent records a new shared jackpot pool value after a
// contribution, manual funding or win.
type PoolUpdatedEvent struct {
	Pool      decimal.Decimal `json:"pool"`
	Delta     decimal.Decimal `json:"delta"`
	Timestamp time.Time       `json:"timestamp"`
}

// EventSink receives settlement records from the core. Implementations must
// not block settlement; failures are logged, never propagated into a spin.
type EventSink interface {
	MachineDeployed(ctx context.Context, ev *MachineDeployedEvent)
	SpinSettled(ctx context.Context, ev *SpinSettledEvent)
	JackpotWon(ctx context.Context, ev *JackpotWonEvent)
	PoolUpdated(ctx context.Context, ev *PoolUpdatedEvent)
}

// NopSink is an EventSink that drops everything.
type NopSink struct{}

func (NopSink) MachineDeployed(context.Context, *MachineDeployedEvent) {}
func (NopSink) SpinSettled(context.Context, *SpinSettledEvent)         {}
func (NopSink) JackpotWon(context.Context, *JackpotWonEvent)           {}
func (NopSink) PoolUpdated(context.Context, *PoolUpdatedEvent)         {}
