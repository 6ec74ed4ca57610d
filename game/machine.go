package game

import (
	"context"
	"sync"
	"time"

	"github.com/Digital-Creators-Team/slot-machine-registry/errors"
	"github.com/Digital-Creators-Team/slot-machine-registry/ledger"
	"github.com/Digital-Creators-Team/slot-machine-registry/pkg/providers"
	"github.com/rs/zerolog"
)

const historyKeep = 100

// Machine is one gaming unit. It owns its bet configuration, payout table
// and randomness state, keeps per-player history, and settles every spin
// against the shared ledger. Created only through Registry.CreateMachine.
type Machine struct {
	mu sync.Mutex

	address      ledger.Address
	registry     *Registry
	asset        ledger.Ledger
	oracle       providers.PriceOracle
	oracleFeedID string
	owner        ledger.Address
	houseWallet  ledger.Address

	env    Env
	sink   providers.EventSink
	store  providers.SnapshotStore
	logger zerolog.Logger

	initialized     bool
	jackpotShareBPS uint64
	houseEdgeBPS    uint64
	refreshInterval uint64

	spinCount       uint64
	baseRandomness  [32]byte
	lastRefreshTime uint64

	validBetAmounts []uint64
	payoutTable     PayoutTable

	lastSpin      map[ledger.Address]*SpinRecord
	history       map[ledger.Address][]SpinRecord
	totalWinnings map[ledger.Address]uint64
}

func newMachine(env Env, sink providers.EventSink, store providers.SnapshotStore, logger zerolog.Logger) *Machine {
	addr := ledger.NewAddress()
	return &Machine{
		address:       addr,
		env:           env,
		sink:          sink,
		store:         store,
		logger:        logger.With().Str("component", "machine").Str("machine", string(addr)).Logger(),
		payoutTable:   DefaultPayoutTable(),
		lastSpin:      make(map[ledger.Address]*SpinRecord),
		history:       make(map[ledger.Address][]SpinRecord),
		totalWinnings: make(map[ledger.Address]uint64),
	}
}

// Initialize wires the machine into a registry. One-time: a second call
// fails and changes nothing. Seeds the default bet ladder and performs the
// first randomness refresh.
func (m *Machine) Initialize(ctx context.Context, registry *Registry, asset ledger.Ledger, oracle providers.PriceOracle, oracleFeedID string, owner, houseWallet ledger.Address) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.initialized {
		return errors.New(errors.ErrAlreadyInitialized, "machine already initialized")
	}
	if registry == nil || asset == nil || oracle == nil {
		return errors.New(errors.ErrInvalidRequest, "missing collaborator")
	}
	if oracleFeedID == "" {
		return errors.New(errors.ErrInvalidRequest, "empty oracle feed id")
	}
	if owner.IsZero() || houseWallet.IsZero() {
		return errors.New(errors.ErrEmptyAddress, "empty owner or house wallet")
	}

	m.registry = registry
	m.asset = asset
	m.oracle = oracle
	m.oracleFeedID = oracleFeedID
	m.houseWallet = houseWallet
	m.jackpotShareBPS = registry.defaultJackpotShare()
	m.houseEdgeBPS = registry.defaultHouseEdgeBPS()
	m.refreshInterval = registry.defaultSpinsPerRefresh()
	m.validBetAmounts = append([]uint64(nil), DefaultBetLadder...)

	if err := m.refreshRandomnessLocked(ctx, owner); err != nil {
		// leave the machine uninitialized so the caller can retry cleanly
		m.registry = nil
		m.asset = nil
		m.oracle = nil
		m.oracleFeedID = ""
		m.houseWallet = ledger.ZeroAddress
		m.validBetAmounts = nil
		return err
	}

	m.owner = owner
	m.initialized = true
	return nil
}

// Spin settles one bet for player. The whole operation is all-or-nothing:
// any failure after the player debit refunds the debit before returning.
func (m *Machine) Spin(ctx context.Context, player ledger.Address, amount uint64) (*SpinRecord, error) {
	ctx, err := enterGuard(ctx, guardSpin)
	if err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.initialized {
		return nil, errors.New(errors.ErrNotInitialized, "machine not initialized")
	}
	if player.IsZero() {
		return nil, errors.New(errors.ErrEmptyAddress, "empty player address")
	}
	if amount == 0 {
		return nil, errors.New(errors.ErrZeroAmount, "bet amount must be greater than zero")
	}
	if !m.isValidBetLocked(amount) {
		return nil, errors.Newf(errors.ErrInvalidBetAmount, "bet amount %d not in the valid set", amount)
	}

	// Debit before anything outcome-related so the player cannot renege
	// after seeing a result.
	if err := m.asset.TransferFrom(ctx, m.address, player, m.address, amount); err != nil {
		return nil, err
	}

	if m.spinCount%m.refreshInterval == 0 {
		if err := m.refreshRandomnessLocked(ctx, player); err != nil {
			m.refund(ctx, player, amount)
			return nil, err
		}
	}

	ts := m.env.Timestamp()
	seed := deriveSpinSeed(m.baseRandomness, ts, player, m.address, m.spinCount)
	reels := reelsFromSeed(seed)
	raw := rawPayout(reels, m.payoutTable, amount)

	contribution := amount * m.jackpotShareBPS / BasisPoints
	houseFee := amount * m.houseEdgeBPS / BasisPoints

	// Every transfer past this point must succeed, so the bankroll has to
	// cover the worst case up front. The bet itself is already part of the
	// machine balance.
	required := contribution + houseFee + raw
	if m.asset.BalanceOf(ctx, m.address) < required {
		m.refund(ctx, player, amount)
		return nil, errors.Newf(errors.ErrInsufficientBankroll,
			"bankroll cannot cover %d", required)
	}

	m.spinCount++

	if contribution > 0 {
		if err := m.asset.Approve(ctx, m.address, m.registry.Address(), contribution); err != nil {
			m.spinCount--
			m.refund(ctx, player, amount)
			return nil, err
		}
		if err := m.registry.DepositToJackpot(ctx, m.address, contribution); err != nil {
			m.spinCount--
			m.refund(ctx, player, amount)
			return nil, err
		}
	}
	if houseFee > 0 {
		// infallible: covered by the bankroll check
		_ = m.asset.Transfer(ctx, m.address, m.houseWallet, houseFee)
	}

	finalPayout := raw
	jackpotWin := false
	won, jackpotPayout, err := m.registry.TryJackpotWin(ctx, player, amount, m.address)
	if err != nil {
		m.logger.Error().Err(err).Msg("Jackpot draw failed")
		return nil, err
	}
	switch {
	case won:
		jackpotWin = true
		finalPayout = jackpotPayout
	case raw > 0:
		cut := raw * m.houseEdgeBPS / BasisPoints
		if cut > 0 {
			_ = m.asset.Transfer(ctx, m.address, m.houseWallet, cut)
		}
		finalPayout = raw - cut
	}

	if finalPayout > 0 {
		if err := m.asset.Transfer(ctx, m.address, player, finalPayout); err != nil {
			m.logger.Error().Err(err).Msg("Payout transfer failed")
			return nil, err
		}
		m.totalWinnings[player] += finalPayout
	}

	rec := SpinRecord{
		Player:     player,
		Reels:      reels,
		Bet:        amount,
		Payout:     finalPayout,
		JackpotWin: jackpotWin,
		Seed:       seedHex(seed),
		Timestamp:  ts,
		SettledAt:  time.Now().UTC(),
	}
	m.lastSpin[player] = &rec
	hist := append(m.history[player], rec)
	if len(hist) > historyKeep {
		hist = hist[len(hist)-historyKeep:]
	}
	m.history[player] = hist

	if err := m.registry.UpdateStats(ctx, m.address, amount, 1); err != nil {
		m.logger.Error().Err(err).Msg("Stats report failed")
	}

	m.emitSpinLocked(ctx, &rec)
	m.persistLocked(ctx, &rec)

	m.logger.Debug().
		Str("player", string(player)).
		Uint64("bet", amount).
		Uint64("payout", finalPayout).
		Bool("jackpot", jackpotWin).
		Msg("Spin settled")

	return &rec, nil
}

// refund returns a debited bet after a post-debit failure
func (m *Machine) refund(ctx context.Context, player ledger.Address, amount uint64) {
	if err := m.asset.Transfer(ctx, m.address, player, amount); err != nil {
		m.logger.Error().Err(err).Str("player", string(player)).Msg("Refund failed")
	}
}

// RefreshRandomness re-derives the base randomness from a fresh oracle
// reading and environment entropy. Callable by anyone at any time.
func (m *Machine) RefreshRandomness(ctx context.Context, origin ledger.Address) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.initialized {
		return errors.New(errors.ErrNotInitialized, "machine not initialized")
	}
	return m.refreshRandomnessLocked(ctx, origin)
}

func (m *Machine) refreshRandomnessLocked(ctx context.Context, origin ledger.Address) error {
	quote, err := m.oracle.GetPriceUnsafe(ctx, m.oracleFeedID)
	if err != nil {
		return errors.Wrap(err, errors.ErrOracleError, "oracle read failed")
	}
	ts := m.env.Timestamp()
	m.baseRandomness = deriveBaseRandomness(quote, ts, m.env.Entropy(), m.env.Height(), m.spinCount, origin)
	m.lastRefreshTime = ts
	return nil
}

// UpdateConfiguration tunes the jackpot share and house edge, bounded by
// the registry ceilings read live at call time.
func (m *Machine) UpdateConfiguration(caller ledger.Address, jackpotShareBPS, houseEdgeBPS uint64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.requireOwnerLocked(caller); err != nil {
		return err
	}
	if jackpotShareBPS > m.registry.MaxJackpotShareBPS() {
		return errors.Newf(errors.ErrCeilingExceeded, "jackpot share %d above ceiling %d",
			jackpotShareBPS, m.registry.MaxJackpotShareBPS())
	}
	if houseEdgeBPS > m.registry.MaxHouseEdgeBPS() {
		return errors.Newf(errors.ErrCeilingExceeded, "house edge %d above ceiling %d",
			houseEdgeBPS, m.registry.MaxHouseEdgeBPS())
	}
	m.jackpotShareBPS = jackpotShareBPS
	m.houseEdgeBPS = houseEdgeBPS
	return nil
}

// UpdatePayoutTable replaces the multiplier table. Owner trust is total
// here: no bounds are enforced.
func (m *Machine) UpdatePayoutTable(caller ledger.Address, table PayoutTable) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.requireOwnerLocked(caller); err != nil {
		return err
	}
	m.payoutTable = table
	return nil
}

// UpdateValidBetAmounts replaces the bet denomination set
func (m *Machine) UpdateValidBetAmounts(caller ledger.Address, amounts []uint64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.requireOwnerLocked(caller); err != nil {
		return err
	}
	if len(amounts) == 0 {
		return errors.New(errors.ErrInvalidRequest, "bet amount set must not be empty")
	}
	for _, a := range amounts {
		if a == 0 {
			return errors.New(errors.ErrZeroAmount, "bet amount set must not contain zero")
		}
	}
	m.validBetAmounts = append([]uint64(nil), amounts...)
	return nil
}

// WithdrawAsset moves part of the machine bankroll to the owner
func (m *Machine) WithdrawAsset(ctx context.Context, caller ledger.Address, amount uint64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.requireOwnerLocked(caller); err != nil {
		return err
	}
	if amount == 0 {
		return errors.New(errors.ErrZeroAmount, "withdraw amount must be greater than zero")
	}
	if bal := m.asset.BalanceOf(ctx, m.address); bal < amount {
		return errors.Newf(errors.ErrInsufficientBalance, "balance %d below requested %d", bal, amount)
	}
	return m.asset.Transfer(ctx, m.address, m.owner, amount)
}

// TransferOwnership hands control of the machine to a new address
func (m *Machine) TransferOwnership(caller, newOwner ledger.Address) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.requireOwnerLocked(caller); err != nil {
		return err
	}
	if newOwner.IsZero() {
		return errors.New(errors.ErrEmptyAddress, "empty new owner")
	}
	m.owner = newOwner
	return nil
}

func (m *Machine) requireOwnerLocked(caller ledger.Address) error {
	if !m.initialized {
		return errors.New(errors.ErrNotInitialized, "machine not initialized")
	}
	if caller != m.owner {
		return errors.New(errors.ErrNotOwner, "caller is not the machine owner")
	}
	return nil
}

// IsValidBetAmount reports whether amount is in the valid bet set
func (m *Machine) IsValidBetAmount(amount uint64) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.isValidBetLocked(amount)
}

// Linear scan; the set stays single-digit sized in practice.
func (m *Machine) isValidBetLocked(amount uint64) bool {
	for _, a := range m.validBetAmounts {
		if a == amount {
			return true
		}
	}
	return false
}

// Address returns the machine's ledger address
func (m *Machine) Address() ledger.Address { return m.address }

// Owner returns the current machine owner
func (m *Machine) Owner() ledger.Address {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.owner
}

// SpinCount returns the number of settled spins
func (m *Machine) SpinCount() uint64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.spinCount
}

// LastSpin returns the player's most recent spin, or nil
func (m *Machine) LastSpin(player ledger.Address) *SpinRecord {
	m.mu.Lock()
	defer m.mu.Unlock()
	if rec, ok := m.lastSpin[player]; ok {
		cp := *rec
		return &cp
	}
	return nil
}

// History returns up to limit most recent spins of a player, newest first
func (m *Machine) History(player ledger.Address, limit int) []SpinRecord {
	m.mu.Lock()
	defer m.mu.Unlock()
	hist := m.history[player]
	if limit <= 0 || limit > len(hist) {
		limit = len(hist)
	}
	out := make([]SpinRecord, 0, limit)
	for i := len(hist) - 1; i >= len(hist)-limit; i-- {
		out = append(out, hist[i])
	}
	return out
}

// TotalWinnings returns the player's cumulative payouts on this machine
func (m *Machine) TotalWinnings(player ledger.Address) uint64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.totalWinnings[player]
}

// ValidBetAmounts returns a copy of the bet denomination set
func (m *Machine) ValidBetAmounts() []uint64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]uint64(nil), m.validBetAmounts...)
}

// PayoutTable returns the current multiplier table
func (m *Machine) PayoutTable() PayoutTable {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.payoutTable
}

// Summary is the read-model view of a machine exposed over the API.
type Summary struct {
	Address         ledger.Address `json:"address"`
	Owner           ledger.Address `json:"owner"`
	OracleFeedID    string         `json:"oracle_feed_id"`
	JackpotShareBPS uint64         `json:"jackpot_share_bps"`
	HouseEdgeBPS    uint64         `json:"house_edge_bps"`
	RefreshInterval uint64         `json:"refresh_interval"`
	SpinCount       uint64         `json:"spin_count"`
	LastRefreshTime uint64         `json:"last_refresh_time"`
	ValidBetAmounts []uint64       `json:"valid_bet_amounts"`
	PayoutTable     PayoutTable    `json:"payout_table"`
}

// Summary returns a consistent snapshot of the machine's public state
func (m *Machine) Summary() Summary {
	m.mu.Lock()
	defer m.mu.Unlock()
	return Summary{
		Address:         m.address,
		Owner:           m.owner,
		OracleFeedID:    m.oracleFeedID,
		JackpotShareBPS: m.jackpotShareBPS,
		HouseEdgeBPS:    m.houseEdgeBPS,
		RefreshInterval: m.refreshInterval,
		SpinCount:       m.spinCount,
		LastRefreshTime: m.lastRefreshTime,
		ValidBetAmounts: append([]uint64(nil), m.validBetAmounts...),
		PayoutTable:     m.payoutTable,
	}
}

func (m *Machine) emitSpinLocked(ctx context.Context, rec *SpinRecord) {
	if m.sink == nil {
		return
	}
	ev := &providers.SpinSettledEvent{
		Machine:   string(m.address),
		Player:    string(rec.Player),
		Reels:     [3]int{int(rec.Reels[0]), int(rec.Reels[1]), int(rec.Reels[2])},
		Bet:       ledger.ToDecimal(rec.Bet),
		Payout:    ledger.ToDecimal(rec.Payout),
		Jackpot:   rec.JackpotWin,
		Seed:      rec.Seed,
		Timestamp: rec.SettledAt,
	}
	m.sink.SpinSettled(ctx, ev)
}

// persistLocked is best effort; a store failure never fails a settled spin.
func (m *Machine) persistLocked(ctx context.Context, rec *SpinRecord) {
	if m.store == nil {
		return
	}
	if err := m.store.SaveMachine(ctx, m.snapshotLocked()); err != nil {
		m.logger.Warn().Err(err).Msg("Snapshot save failed")
	}
	entry := &providers.SpinHistoryEntry{
		Machine:   string(m.address),
		Player:    string(rec.Player),
		Reels:     [3]int{int(rec.Reels[0]), int(rec.Reels[1]), int(rec.Reels[2])},
		Bet:       ledger.ToDecimal(rec.Bet),
		Payout:    ledger.ToDecimal(rec.Payout),
		Jackpot:   rec.JackpotWin,
		Seed:      rec.Seed,
		Timestamp: rec.Timestamp,
	}
	if err := m.store.AppendHistory(ctx, entry); err != nil {
		m.logger.Warn().Err(err).Msg("History append failed")
	}
}

func (m *Machine) snapshotLocked() *providers.MachineSnapshot {
	t := m.payoutTable
	return &providers.MachineSnapshot{
		Address:         string(m.address),
		Owner:           string(m.owner),
		JackpotShareBPS: m.jackpotShareBPS,
		HouseEdgeBPS:    m.houseEdgeBPS,
		RefreshInterval: m.refreshInterval,
		SpinCount:       m.spinCount,
		BaseRandomness:  seedHex(m.baseRandomness),
		LastRefreshTime: m.lastRefreshTime,
		ValidBetAmounts: append([]uint64(nil), m.validBetAmounts...),
		PayoutTable: []uint64{
			t.ThreeBar, t.TwoBar, t.OneBar,
			t.ThreeCherries, t.ThreeWatermelon, t.ThreeLogo,
		},
	}
}
