package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	coreredis "github.com/Digital-Creators-Team/slot-machine-registry/db/redis"
	"github.com/Digital-Creators-Team/slot-machine-registry/errors"
	"github.com/Digital-Creators-Team/slot-machine-registry/pkg/providers"
	"github.com/rs/zerolog"
	"github.com/samber/lo"
)

const historyMaxLen = 100

// SnapshotProvider implements providers.SnapshotStore using Redis
type SnapshotProvider struct {
	redis  *coreredis.Client
	logger zerolog.Logger
}

// NewSnapshotProvider creates a new Redis-backed snapshot store
func NewSnapshotProvider(redisClient *coreredis.Client, logger zerolog.Logger) *SnapshotProvider {
	return &SnapshotProvider{
		redis:  redisClient,
		logger: logger.With().Str("component", "snapshot_provider").Logger(),
	}
}

func (p *SnapshotProvider) machineKey(address string) string {
	return fmt.Sprintf("slot:machine:%s", address)
}

func (p *SnapshotProvider) historyKey(machine, player string) string {
	return fmt.Sprintf("slot:history:%s:%s", machine, player)
}

// SaveMachine persists a machine snapshot. Snapshots never expire; machines
// outlive any session.
func (p *SnapshotProvider) SaveMachine(ctx context.Context, snap *providers.MachineSnapshot) error {
	snap.UpdatedAt = time.Now().UTC()
	if err := p.redis.SetJSON(ctx, p.machineKey(snap.Address), snap, 0); err != nil {
		return errors.Wrap(err, errors.ErrStoreError, "failed to save machine snapshot")
	}
	return nil
}

// GetMachine retrieves a machine snapshot. Returns nil without error when no
// snapshot exists.
func (p *SnapshotProvider) GetMachine(ctx context.Context, address string) (*providers.MachineSnapshot, error) {
	var snap providers.MachineSnapshot
	err := p.redis.GetJSON(ctx, p.machineKey(address), &snap)
	if err == coreredis.ErrNotFound {
		p.logger.Debug().Str("machine", address).Msg("No snapshot found")
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrStoreError, "failed to load machine snapshot")
	}
	return &snap, nil
}

// AppendHistory prepends a spin to the player's capped history log
func (p *SnapshotProvider) AppendHistory(ctx context.Context, entry *providers.SpinHistoryEntry) error {
	data, err := json.Marshal(entry)
	if err != nil {
		return errors.Wrap(err, errors.ErrStoreError, "failed to marshal history entry")
	}
	key := p.historyKey(entry.Machine, entry.Player)
	if err := p.redis.LPushTrim(ctx, key, data, historyMaxLen); err != nil {
		return errors.Wrap(err, errors.ErrStoreError, "failed to append history")
	}
	return nil
}

// GetHistory returns the most recent spins of a player on a machine
func (p *SnapshotProvider) GetHistory(ctx context.Context, machine, player string, limit int) ([]providers.SpinHistoryEntry, error) {
	if limit <= 0 || limit > historyMaxLen {
		limit = historyMaxLen
	}
	raws, err := p.redis.LRange(ctx, p.historyKey(machine, player), 0, int64(limit-1))
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrStoreError, "failed to load history")
	}

	entries := lo.FilterMap(raws, func(raw string, _ int) (providers.SpinHistoryEntry, bool) {
		var e providers.SpinHistoryEntry
		if err := json.Unmarshal([]byte(raw), &e); err != nil {
			p.logger.Warn().Err(err).Msg("Skipping malformed history entry")
			return providers.SpinHistoryEntry{}, false
		}
		return e, true
	})
	return entries, nil
}
