package game

import (
	"context"
	"sync"
	"time"

	"github.com/Digital-Creators-Team/slot-machine-registry/errors"
	"github.com/Digital-Creators-Team/slot-machine-registry/ledger"
	"github.com/Digital-Creators-Team/slot-machine-registry/pkg/providers"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// Registry is the central coordinator: it creates machines, holds the
// shared jackpot pool, arbitrates jackpot wins across all machines and
// aggregates platform statistics. One Registry per deployment; tests build
// their own.
type Registry struct {
	mu sync.Mutex

	address ledger.Address
	owner   ledger.Address
	asset   ledger.Ledger
	env     Env
	sink    providers.EventSink
	store   providers.SnapshotStore
	logger  zerolog.Logger

	// immutable ceilings, basis points
	maxJackpotShareBPS uint64
	maxHouseEdgeBPS    uint64

	// mutable defaults applied to machines created later
	defJackpotShareBPS uint64
	defHouseEdgeBPS    uint64
	spinsPerRefresh    uint64

	houseWallet ledger.Address

	template  *Machine
	machines  []*Machine
	byAddress map[ledger.Address]*Machine

	jackpotPool      uint64
	totalVolume      uint64
	totalSpins       uint64
	totalJackpotWins uint64
}

// Stats is the aggregate counter snapshot of a registry.
type Stats struct {
	TotalVolume      uint64 `json:"total_volume"`
	TotalSpins       uint64 `json:"total_spins"`
	TotalJackpotWins uint64 `json:"total_jackpot_wins"`
	MachineCount     int    `json:"machine_count"`
	JackpotPool      uint64 `json:"jackpot_pool"`
}

// NewRegistry constructs a registry. The template machine it creates is
// never initialized and its owner slot is the burn address, so it can never
// settle a spin; it exists only as the clone-default source.
func NewRegistry(cfg RegistryConfig, asset ledger.Ledger, env Env, sink providers.EventSink, store providers.SnapshotStore, logger zerolog.Logger) (*Registry, error) {
	if asset == nil || env == nil {
		return nil, errors.New(errors.ErrInvalidRequest, "missing collaborator")
	}
	if cfg.Owner.IsZero() || cfg.HouseWallet.IsZero() {
		return nil, errors.New(errors.ErrEmptyAddress, "empty owner or house wallet")
	}
	if cfg.MaxJackpotShareBPS > BasisPoints || cfg.MaxHouseEdgeBPS > BasisPoints {
		return nil, errors.New(errors.ErrInvalidRequest, "ceiling above 10000 basis points")
	}
	if cfg.DefaultJackpotShare > cfg.MaxJackpotShareBPS {
		return nil, errors.Newf(errors.ErrCeilingExceeded, "default jackpot share %d above ceiling %d",
			cfg.DefaultJackpotShare, cfg.MaxJackpotShareBPS)
	}
	if cfg.DefaultHouseEdge > cfg.MaxHouseEdgeBPS {
		return nil, errors.Newf(errors.ErrCeilingExceeded, "default house edge %d above ceiling %d",
			cfg.DefaultHouseEdge, cfg.MaxHouseEdgeBPS)
	}
	if cfg.SpinsPerRefresh == 0 {
		return nil, errors.New(errors.ErrInvalidRequest, "refresh interval must be greater than zero")
	}
	if sink == nil {
		sink = providers.NopSink{}
	}

	r := &Registry{
		address:            ledger.NewAddress(),
		owner:              cfg.Owner,
		asset:              asset,
		env:                env,
		sink:               sink,
		store:              store,
		logger:             logger.With().Str("component", "registry").Logger(),
		maxJackpotShareBPS: cfg.MaxJackpotShareBPS,
		maxHouseEdgeBPS:    cfg.MaxHouseEdgeBPS,
		defJackpotShareBPS: cfg.DefaultJackpotShare,
		defHouseEdgeBPS:    cfg.DefaultHouseEdge,
		spinsPerRefresh:    cfg.SpinsPerRefresh,
		houseWallet:        cfg.HouseWallet,
		byAddress:          make(map[ledger.Address]*Machine),
	}

	template := newMachine(env, sink, store, logger)
	template.owner = ledger.BurnAddress
	r.template = template

	return r, nil
}

// CreateMachine clones the template into a new machine, initializes it with
// the registry's asset and house wallet, and registers it. Owner-only.
func (r *Registry) CreateMachine(ctx context.Context, caller ledger.Address, oracle providers.PriceOracle, oracleFeedID string, cloneOwner ledger.Address) (*Machine, error) {
	if err := r.requireOwner(caller); err != nil {
		return nil, err
	}
	if oracle == nil {
		return nil, errors.New(errors.ErrInvalidRequest, "missing oracle")
	}
	if cloneOwner.IsZero() {
		return nil, errors.New(errors.ErrEmptyAddress, "empty machine owner")
	}

	m := r.cloneTemplate()
	if err := m.Initialize(ctx, r, r.asset, oracle, oracleFeedID, cloneOwner, r.HouseWallet()); err != nil {
		return nil, err
	}

	r.mu.Lock()
	r.machines = append(r.machines, m)
	r.byAddress[m.address] = m
	r.mu.Unlock()

	r.sink.MachineDeployed(ctx, &providers.MachineDeployedEvent{
		Machine:      string(m.address),
		Owner:        string(cloneOwner),
		OracleFeedID: oracleFeedID,
		Timestamp:    time.Now().UTC(),
	})
	if r.store != nil {
		m.mu.Lock()
		snap := m.snapshotLocked()
		m.mu.Unlock()
		if err := r.store.SaveMachine(ctx, snap); err != nil {
			r.logger.Warn().Err(err).Msg("Machine snapshot save failed")
		}
	}

	r.logger.Info().
		Str("machine", string(m.address)).
		Str("owner", string(cloneOwner)).
		Str("feed_id", oracleFeedID).
		Msg("Machine deployed")

	return m, nil
}

// cloneTemplate copies the template's payout table into a fresh machine
func (r *Registry) cloneTemplate() *Machine {
	m := newMachine(r.env, r.sink, r.store, r.logger)
	r.mu.Lock()
	m.payoutTable = r.template.payoutTable
	r.mu.Unlock()
	return m
}

// DepositToJackpot pulls a contribution from a registered machine into the
// shared pool. The machine must have approved the pull beforehand.
func (r *Registry) DepositToJackpot(ctx context.Context, machine ledger.Address, amount uint64) error {
	if amount == 0 {
		return errors.New(errors.ErrZeroAmount, "contribution must be greater than zero")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.byAddress[machine]; !ok {
		return errors.New(errors.ErrNotMachine, "caller is not a registered machine")
	}
	if err := r.asset.TransferFrom(ctx, r.address, machine, r.address, amount); err != nil {
		return err
	}
	r.jackpotPool += amount

	r.emitPoolLocked(ctx, int64(amount))
	return nil
}

// TryJackpotWin adjudicates one jackpot draw for a registered machine. On a
// win the whole pool moves to the machine and the pool zeroes in the same
// step, so no observer can sequence between the two.
func (r *Registry) TryJackpotWin(ctx context.Context, player ledger.Address, betAmount uint64, machine ledger.Address) (bool, uint64, error) {
	ctx, err := enterGuard(ctx, guardJackpot)
	if err != nil {
		return false, 0, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.byAddress[machine]; !ok {
		return false, 0, errors.New(errors.ErrNotMachine, "caller is not a registered machine")
	}

	odds := jackpotOdds(betAmount)
	draw := jackpotDraw(r.env.Entropy(), r.env.Timestamp(), player, betAmount, r.jackpotPool)
	if draw >= odds || r.jackpotPool == 0 {
		return false, 0, nil
	}

	payout := r.jackpotPool
	r.jackpotPool = 0
	if err := r.asset.Transfer(ctx, r.address, machine, payout); err != nil {
		// the pool is always backed by the registry balance; a failure here
		// means the ledger itself is broken
		r.jackpotPool = payout
		return false, 0, err
	}
	r.totalJackpotWins++

	r.sink.JackpotWon(ctx, &providers.JackpotWonEvent{
		Machine:   string(machine),
		Player:    string(player),
		Payout:    ledger.ToDecimal(payout),
		Timestamp: time.Now().UTC(),
	})
	r.emitPoolLocked(ctx, -int64(payout))

	r.logger.Info().
		Str("machine", string(machine)).
		Str("player", string(player)).
		Uint64("payout", payout).
		Msg("Jackpot won")

	return true, payout, nil
}

// FundJackpot is the owner's manual top-up. The owner must have approved
// the registry for the amount.
func (r *Registry) FundJackpot(ctx context.Context, caller ledger.Address, amount uint64) error {
	if err := r.requireOwner(caller); err != nil {
		return err
	}
	if amount == 0 {
		return errors.New(errors.ErrZeroAmount, "funding amount must be greater than zero")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.asset.TransferFrom(ctx, r.address, caller, r.address, amount); err != nil {
		return err
	}
	r.jackpotPool += amount
	r.emitPoolLocked(ctx, int64(amount))
	return nil
}

// UpdateConfiguration changes the defaults applied to machines created from
// now on. Existing machines are untouched.
func (r *Registry) UpdateConfiguration(caller ledger.Address, jackpotShareBPS, houseEdgeBPS, spinsPerRefresh uint64) error {
	if err := r.requireOwner(caller); err != nil {
		return err
	}
	if jackpotShareBPS > r.maxJackpotShareBPS {
		return errors.Newf(errors.ErrCeilingExceeded, "jackpot share %d above ceiling %d",
			jackpotShareBPS, r.maxJackpotShareBPS)
	}
	if houseEdgeBPS > r.maxHouseEdgeBPS {
		return errors.Newf(errors.ErrCeilingExceeded, "house edge %d above ceiling %d",
			houseEdgeBPS, r.maxHouseEdgeBPS)
	}
	if spinsPerRefresh == 0 {
		return errors.New(errors.ErrInvalidRequest, "refresh interval must be greater than zero")
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.defJackpotShareBPS = jackpotShareBPS
	r.defHouseEdgeBPS = houseEdgeBPS
	r.spinsPerRefresh = spinsPerRefresh
	return nil
}

// UpdateStats adds a machine's settled volume to the aggregate counters.
// Registration is the only check; the caller's arithmetic is trusted.
func (r *Registry) UpdateStats(ctx context.Context, machine ledger.Address, volume, spins uint64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.byAddress[machine]; !ok {
		return errors.New(errors.ErrNotMachine, "caller is not a registered machine")
	}
	r.totalVolume += volume
	r.totalSpins += spins
	return nil
}

// WithdrawAsset moves free registry balance to the house wallet. The pool
// is never touchable this way: the withdrawable amount is the balance minus
// the pool backing.
func (r *Registry) WithdrawAsset(ctx context.Context, caller ledger.Address, amount uint64) error {
	if err := r.requireOwner(caller); err != nil {
		return err
	}
	if amount == 0 {
		return errors.New(errors.ErrZeroAmount, "withdraw amount must be greater than zero")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	free := r.asset.BalanceOf(ctx, r.address) - r.jackpotPool
	if amount > free {
		return errors.Newf(errors.ErrInsufficientBalance, "free balance %d below requested %d", free, amount)
	}
	return r.asset.Transfer(ctx, r.address, r.houseWallet, amount)
}

// SetHouseWallet changes the destination for house revenue of machines
// created from now on
func (r *Registry) SetHouseWallet(caller, wallet ledger.Address) error {
	if err := r.requireOwner(caller); err != nil {
		return err
	}
	if wallet.IsZero() {
		return errors.New(errors.ErrEmptyAddress, "empty house wallet")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.houseWallet = wallet
	return nil
}

func (r *Registry) requireOwner(caller ledger.Address) error {
	if caller != r.owner {
		return errors.New(errors.ErrNotOwner, "caller is not the registry owner")
	}
	return nil
}

func (r *Registry) emitPoolLocked(ctx context.Context, delta int64) {
	r.sink.PoolUpdated(ctx, &providers.PoolUpdatedEvent{
		Pool:      ledger.ToDecimal(r.jackpotPool),
		Delta:     decimal.New(delta, -ledger.Decimals),
		Timestamp: time.Now().UTC(),
	})
}

// Address returns the registry's ledger address
func (r *Registry) Address() ledger.Address { return r.address }

// Owner returns the registry controller address
func (r *Registry) Owner() ledger.Address { return r.owner }

// HouseWallet returns the current house revenue destination
func (r *Registry) HouseWallet() ledger.Address {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.houseWallet
}

// MaxJackpotShareBPS returns the immutable jackpot share ceiling
func (r *Registry) MaxJackpotShareBPS() uint64 { return r.maxJackpotShareBPS }

// MaxHouseEdgeBPS returns the immutable house edge ceiling
func (r *Registry) MaxHouseEdgeBPS() uint64 { return r.maxHouseEdgeBPS }

// JackpotPool returns the current shared pool balance
func (r *Registry) JackpotPool() uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.jackpotPool
}

// IsMachine reports whether the address is a registered machine
func (r *Registry) IsMachine(addr ledger.Address) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.byAddress[addr]
	return ok
}

// GetMachine looks up a registered machine by address
func (r *Registry) GetMachine(addr ledger.Address) (*Machine, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	m, ok := r.byAddress[addr]
	return m, ok
}

// Machines returns the registered machines in creation order
func (r *Registry) Machines() []*Machine {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]*Machine(nil), r.machines...)
}

// GetStats returns the aggregate counter snapshot
func (r *Registry) GetStats() Stats {
	r.mu.Lock()
	defer r.mu.Unlock()
	return Stats{
		TotalVolume:      r.totalVolume,
		TotalSpins:       r.totalSpins,
		TotalJackpotWins: r.totalJackpotWins,
		MachineCount:     len(r.machines),
		JackpotPool:      r.jackpotPool,
	}
}

func (r *Registry) defaultJackpotShare() uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.defJackpotShareBPS
}

func (r *Registry) defaultHouseEdgeBPS() uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.defHouseEdgeBPS
}

func (r *Registry) defaultSpinsPerRefresh() uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.spinsPerRefresh
}
