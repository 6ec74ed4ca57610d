package game

import (
	"context"
	"sync"
	"testing"

	"github.com/Digital-Creators-Team/slot-machine-registry/errors"
	"github.com/Digital-Creators-Team/slot-machine-registry/ledger"
	"github.com/Digital-Creators-Team/slot-machine-registry/pkg/providers"
	"github.com/rs/zerolog"
)

func testAddr(name string) ledger.Address {
	return ledger.Address("0x" + name)
}

// fakeOracle counts reads and bumps the publish time on each, so every
// refresh sees a distinct quote.
type fakeOracle struct {
	mu    sync.Mutex
	reads uint64
	err   error
}

func (o *fakeOracle) GetPriceUnsafe(ctx context.Context, feedID string) (providers.PriceQuote, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.err != nil {
		return providers.PriceQuote{}, o.err
	}
	o.reads++
	return providers.PriceQuote{
		Price:       45_000_00000000,
		Conf:        1_00000000,
		Expo:        -8,
		PublishTime: 1_700_000_000 + o.reads,
	}, nil
}

func (o *fakeOracle) readCount() uint64 {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.reads
}

func (o *fakeOracle) fail(err error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.err = err
}

type testRig struct {
	reg    *Registry
	asset  *ledger.MemoryLedger
	env    *FakeEnv
	oracle *fakeOracle

	admin  ledger.Address
	house  ledger.Address
	player ledger.Address
}

const (
	testJackpotShare = 500 // 5%
	testHouseEdge    = 200 // 2%
	testRefreshEvery = 10
)

func newTestRig(t *testing.T) *testRig {
	t.Helper()

	rig := &testRig{
		asset:  ledger.NewMemoryLedger(),
		env:    &FakeEnv{Time: 1_700_000_000, Block: 850_000_000},
		oracle: &fakeOracle{},
		admin:  testAddr("admin"),
		house:  testAddr("house"),
		player: testAddr("player"),
	}

	reg, err := NewRegistry(RegistryConfig{
		MaxJackpotShareBPS:  1000,
		MaxHouseEdgeBPS:     1000,
		DefaultJackpotShare: testJackpotShare,
		DefaultHouseEdge:    testHouseEdge,
		SpinsPerRefresh:     testRefreshEvery,
		HouseWallet:         rig.house,
		Owner:               rig.admin,
	}, rig.asset, rig.env, providers.NopSink{}, nil, zerolog.Nop())
	if err != nil {
		t.Fatalf("new registry: %v", err)
	}
	rig.reg = reg
	return rig
}

// newMachine deploys a machine with a funded bankroll and a funded,
// machine-approved player.
func (rig *testRig) newMachine(t *testing.T, bankroll uint64) *Machine {
	t.Helper()
	ctx := context.Background()

	m, err := rig.reg.CreateMachine(ctx, rig.admin, rig.oracle, "feed-main", testAddr("operator"))
	if err != nil {
		t.Fatalf("create machine: %v", err)
	}
	if bankroll > 0 {
		if err := rig.asset.Mint(ctx, m.Address(), bankroll); err != nil {
			t.Fatalf("fund bankroll: %v", err)
		}
	}
	if err := rig.asset.Mint(ctx, rig.player, 10_000*MinBetUnit); err != nil {
		t.Fatalf("fund player: %v", err)
	}
	if err := rig.asset.Approve(ctx, rig.player, m.Address(), 10_000*MinBetUnit); err != nil {
		t.Fatalf("approve machine: %v", err)
	}
	return m
}

func TestSpinBetGating(t *testing.T) {
	rig := newTestRig(t)
	m := rig.newMachine(t, 1_000*MinBetUnit)
	ctx := context.Background()

	tests := []struct {
		name     string
		amount   uint64
		wantCode int
	}{
		{name: "zero bet", amount: 0, wantCode: errors.ErrZeroAmount},
		{name: "off-ladder amount", amount: 3 * MinBetUnit, wantCode: errors.ErrInvalidBetAmount},
		{name: "multiple of a valid entry", amount: 2 * MinBetUnit, wantCode: errors.ErrInvalidBetAmount},
		{name: "sub-unit amount", amount: MinBetUnit / 2, wantCode: errors.ErrInvalidBetAmount},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			before := rig.asset.BalanceOf(ctx, rig.player)
			_, err := m.Spin(ctx, rig.player, tt.amount)
			if !errors.HasCode(err, tt.wantCode) {
				t.Fatalf("expected code %d, got %v", tt.wantCode, err)
			}
			if got := rig.asset.BalanceOf(ctx, rig.player); got != before {
				t.Errorf("rejected spin moved funds: %d -> %d", before, got)
			}
			if m.SpinCount() != 0 {
				t.Errorf("rejected spin advanced the counter")
			}
		})
	}
}

func TestSpinSplitAdditivity(t *testing.T) {
	rig := newTestRig(t)
	m := rig.newMachine(t, 1_000*MinBetUnit)
	ctx := context.Background()

	// zero the payout table so the split arithmetic is the whole story
	if err := m.UpdatePayoutTable(testAddr("operator"), PayoutTable{}); err != nil {
		t.Fatalf("update payout table: %v", err)
	}

	bet := MinBetUnit
	playerBefore := rig.asset.BalanceOf(ctx, rig.player)
	houseBefore := rig.asset.BalanceOf(ctx, rig.house)
	machineBefore := rig.asset.BalanceOf(ctx, m.Address())
	poolBefore := rig.reg.JackpotPool()

	rec, err := m.Spin(ctx, rig.player, bet)
	if err != nil {
		t.Fatalf("spin: %v", err)
	}
	if rec.Payout != 0 || rec.JackpotWin {
		t.Fatalf("expected a losing spin, got payout=%d jackpot=%v", rec.Payout, rec.JackpotWin)
	}

	contribution := bet * testJackpotShare / BasisPoints
	fee := bet * testHouseEdge / BasisPoints

	if got := rig.asset.BalanceOf(ctx, rig.player); got != playerBefore-bet {
		t.Errorf("player balance = %d, want %d", got, playerBefore-bet)
	}
	if got := rig.asset.BalanceOf(ctx, rig.house); got != houseBefore+fee {
		t.Errorf("house balance = %d, want %d", got, houseBefore+fee)
	}
	if got := rig.reg.JackpotPool(); got != poolBefore+contribution {
		t.Errorf("pool = %d, want %d", got, poolBefore+contribution)
	}
	// the retained margin stays in the machine bankroll
	if got := rig.asset.BalanceOf(ctx, m.Address()); got != machineBefore+bet-contribution-fee {
		t.Errorf("machine balance = %d, want %d", got, machineBefore+bet-contribution-fee)
	}
}

func TestSpinWinningsHouseCut(t *testing.T) {
	rig := newTestRig(t)
	m := rig.newMachine(t, 100_000*MinBetUnit)
	ctx := context.Background()

	table := m.PayoutTable()
	bet := MinBetUnit

	// spin until the payout table produces a win; every spin reseeds
	var rec *SpinRecord
	for i := 0; i < 200; i++ {
		r, err := m.Spin(ctx, rig.player, bet)
		if err != nil {
			t.Fatalf("spin %d: %v", i, err)
		}
		if r.Payout > 0 && !r.JackpotWin {
			rec = r
			break
		}
	}
	if rec == nil {
		t.Fatal("no table win in 200 spins")
	}

	raw := rawPayout(rec.Reels, table, bet)
	cut := raw * testHouseEdge / BasisPoints
	if want := raw - cut; rec.Payout != want {
		t.Errorf("final payout = %d, want %d (raw %d, cut %d)", rec.Payout, want, raw, cut)
	}
	if got := m.TotalWinnings(rig.player); got < rec.Payout {
		t.Errorf("lifetime winnings %d below final payout %d", got, rec.Payout)
	}
}

func TestSpinSeedNonRepetition(t *testing.T) {
	rig := newTestRig(t)
	m := rig.newMachine(t, 1_000*MinBetUnit)
	ctx := context.Background()

	// same timestamp, same refresh window: only the spin counter varies
	r1, err := m.Spin(ctx, rig.player, MinBetUnit)
	if err != nil {
		t.Fatalf("spin 1: %v", err)
	}
	r2, err := m.Spin(ctx, rig.player, MinBetUnit)
	if err != nil {
		t.Fatalf("spin 2: %v", err)
	}
	if r1.Seed == r2.Seed {
		t.Error("consecutive spins reused a seed")
	}
}

func TestRefreshCadence(t *testing.T) {
	rig := newTestRig(t)
	m := rig.newMachine(t, 10_000*MinBetUnit)
	ctx := context.Background()

	// one oracle read at initialization
	if got := rig.oracle.readCount(); got != 1 {
		t.Fatalf("reads after init = %d, want 1", got)
	}

	baseAtZero := m.baseRandomness

	// the first spin sits on the cadence boundary (count 0)
	if _, err := m.Spin(ctx, rig.player, MinBetUnit); err != nil {
		t.Fatalf("spin: %v", err)
	}
	if got := rig.oracle.readCount(); got != 2 {
		t.Fatalf("reads after first spin = %d, want 2", got)
	}

	for i := 1; i < testRefreshEvery; i++ {
		if _, err := m.Spin(ctx, rig.player, MinBetUnit); err != nil {
			t.Fatalf("spin %d: %v", i, err)
		}
	}
	if got := rig.oracle.readCount(); got != 2 {
		t.Fatalf("reads inside the window = %d, want 2", got)
	}
	if m.SpinCount() != testRefreshEvery {
		t.Fatalf("spin count = %d, want %d", m.SpinCount(), testRefreshEvery)
	}
	if m.baseRandomness == baseAtZero {
		t.Error("base randomness unchanged after a full refresh window")
	}

	// crossing the boundary refreshes again
	if _, err := m.Spin(ctx, rig.player, MinBetUnit); err != nil {
		t.Fatalf("boundary spin: %v", err)
	}
	if got := rig.oracle.readCount(); got != 3 {
		t.Fatalf("reads after boundary spin = %d, want 3", got)
	}
}

func TestSpinRefundOnOracleFailure(t *testing.T) {
	rig := newTestRig(t)
	m := rig.newMachine(t, 1_000*MinBetUnit)
	ctx := context.Background()

	rig.oracle.fail(errors.New(errors.ErrOracleError, "feed unavailable"))

	playerBefore := rig.asset.BalanceOf(ctx, rig.player)
	machineBefore := rig.asset.BalanceOf(ctx, m.Address())

	// the first spin needs a cadence refresh, which now fails
	_, err := m.Spin(ctx, rig.player, MinBetUnit)
	if !errors.HasCode(err, errors.ErrOracleError) {
		t.Fatalf("expected oracle error, got %v", err)
	}

	if got := rig.asset.BalanceOf(ctx, rig.player); got != playerBefore {
		t.Errorf("player not refunded: %d, want %d", got, playerBefore)
	}
	if got := rig.asset.BalanceOf(ctx, m.Address()); got != machineBefore {
		t.Errorf("machine balance changed: %d, want %d", got, machineBefore)
	}
	if m.SpinCount() != 0 {
		t.Errorf("failed spin advanced the counter")
	}
}

func TestSpinInsufficientBankrollRefunds(t *testing.T) {
	rig := newTestRig(t)
	m := rig.newMachine(t, 0)
	ctx := context.Background()

	// multipliers far beyond anything the retained margin can cover, so the
	// first winning combination must trip the bankroll check
	huge := PayoutTable{
		ThreeBar: 100_000, TwoBar: 100_000, OneBar: 100_000,
		ThreeCherries: 100_000, ThreeWatermelon: 100_000, ThreeLogo: 100_000,
	}
	if err := m.UpdatePayoutTable(testAddr("operator"), huge); err != nil {
		t.Fatalf("update payout table: %v", err)
	}

	playerBefore := rig.asset.BalanceOf(ctx, rig.player)

	sawBankrollFailure := false
	for i := 0; i < 200; i++ {
		rig.env.Advance(1)
		countBefore := m.SpinCount()
		_, err := m.Spin(ctx, rig.player, MinBetUnit)
		if err == nil {
			continue
		}
		if !errors.HasCode(err, errors.ErrInsufficientBankroll) {
			t.Fatalf("unexpected error: %v", err)
		}
		sawBankrollFailure = true
		if m.SpinCount() != countBefore {
			t.Fatalf("failed spin advanced the counter")
		}
		break
	}
	if !sawBankrollFailure {
		t.Fatal("no bankroll failure in 200 spins on an unfunded machine")
	}

	// the losing bets stayed with the machine, the failed bet was refunded
	spent := m.SpinCount() * MinBetUnit
	if got := rig.asset.BalanceOf(ctx, rig.player); got != playerBefore-spent {
		t.Errorf("player balance = %d, want %d", got, playerBefore-spent)
	}
}

func TestSpinReentrancyGuard(t *testing.T) {
	rig := newTestRig(t)
	m := rig.newMachine(t, 1_000*MinBetUnit)

	ctx, err := enterGuard(context.Background(), guardSpin)
	if err != nil {
		t.Fatalf("enter guard: %v", err)
	}
	_, err = m.Spin(ctx, rig.player, MinBetUnit)
	if !errors.HasCode(err, errors.ErrReentrancy) {
		t.Fatalf("expected reentrancy error, got %v", err)
	}
}

func TestInitializeIsIdempotent(t *testing.T) {
	rig := newTestRig(t)
	m := rig.newMachine(t, 0)
	ctx := context.Background()

	ownerBefore := m.Owner()
	err := m.Initialize(ctx, rig.reg, rig.asset, rig.oracle, "feed-other", testAddr("intruder"), rig.house)
	if !errors.HasCode(err, errors.ErrAlreadyInitialized) {
		t.Fatalf("expected already-initialized error, got %v", err)
	}
	if m.Owner() != ownerBefore {
		t.Error("re-initialization changed the owner")
	}
}

func TestMachineConfigurationCeilings(t *testing.T) {
	rig := newTestRig(t)
	m := rig.newMachine(t, 0)
	operator := testAddr("operator")

	if err := m.UpdateConfiguration(operator, 1001, 100); !errors.HasCode(err, errors.ErrCeilingExceeded) {
		t.Errorf("jackpot share above ceiling accepted: %v", err)
	}
	if err := m.UpdateConfiguration(operator, 100, 1001); !errors.HasCode(err, errors.ErrCeilingExceeded) {
		t.Errorf("house edge above ceiling accepted: %v", err)
	}
	if err := m.UpdateConfiguration(testAddr("stranger"), 100, 100); !errors.HasCode(err, errors.ErrNotOwner) {
		t.Errorf("non-owner configuration accepted: %v", err)
	}
	if err := m.UpdateConfiguration(operator, 1000, 1000); err != nil {
		t.Errorf("in-bounds configuration rejected: %v", err)
	}
}

func TestUpdateValidBetAmounts(t *testing.T) {
	rig := newTestRig(t)
	m := rig.newMachine(t, 1_000*MinBetUnit)
	ctx := context.Background()
	operator := testAddr("operator")

	if err := m.UpdateValidBetAmounts(operator, nil); !errors.HasCode(err, errors.ErrInvalidRequest) {
		t.Errorf("empty set accepted: %v", err)
	}
	if err := m.UpdateValidBetAmounts(operator, []uint64{MinBetUnit, 0}); !errors.HasCode(err, errors.ErrZeroAmount) {
		t.Errorf("zero entry accepted: %v", err)
	}

	if err := m.UpdateValidBetAmounts(operator, []uint64{7 * MinBetUnit}); err != nil {
		t.Fatalf("update: %v", err)
	}
	if _, err := m.Spin(ctx, rig.player, MinBetUnit); !errors.HasCode(err, errors.ErrInvalidBetAmount) {
		t.Errorf("old ladder entry still accepted: %v", err)
	}
	if !m.IsValidBetAmount(7 * MinBetUnit) {
		t.Error("new entry not accepted")
	}
}

func TestTransferOwnership(t *testing.T) {
	rig := newTestRig(t)
	m := rig.newMachine(t, 0)
	operator := testAddr("operator")
	next := testAddr("next-operator")

	if err := m.TransferOwnership(testAddr("stranger"), next); !errors.HasCode(err, errors.ErrNotOwner) {
		t.Errorf("non-owner transfer accepted: %v", err)
	}
	if err := m.TransferOwnership(operator, ledger.ZeroAddress); !errors.HasCode(err, errors.ErrEmptyAddress) {
		t.Errorf("empty new owner accepted: %v", err)
	}
	if err := m.TransferOwnership(operator, next); err != nil {
		t.Fatalf("transfer: %v", err)
	}
	if m.Owner() != next {
		t.Errorf("owner = %s, want %s", m.Owner(), next)
	}
	// the old owner has no power left
	if err := m.UpdatePayoutTable(operator, PayoutTable{}); !errors.HasCode(err, errors.ErrNotOwner) {
		t.Errorf("previous owner still in control: %v", err)
	}
}

func TestMachineWithdrawAsset(t *testing.T) {
	rig := newTestRig(t)
	m := rig.newMachine(t, 50*MinBetUnit)
	ctx := context.Background()
	operator := testAddr("operator")

	if err := m.WithdrawAsset(ctx, operator, 100*MinBetUnit); !errors.HasCode(err, errors.ErrInsufficientBalance) {
		t.Errorf("over-balance withdrawal accepted: %v", err)
	}
	if err := m.WithdrawAsset(ctx, operator, 20*MinBetUnit); err != nil {
		t.Fatalf("withdraw: %v", err)
	}
	if got := rig.asset.BalanceOf(ctx, operator); got != 20*MinBetUnit {
		t.Errorf("operator balance = %d, want %d", got, 20*MinBetUnit)
	}
}

func TestSpinHistoryRecorded(t *testing.T) {
	rig := newTestRig(t)
	m := rig.newMachine(t, 1_000*MinBetUnit)
	ctx := context.Background()

	if m.LastSpin(rig.player) != nil {
		t.Fatal("fresh machine has a last spin")
	}

	rec, err := m.Spin(ctx, rig.player, MinBetUnit)
	if err != nil {
		t.Fatalf("spin: %v", err)
	}

	last := m.LastSpin(rig.player)
	if last == nil || last.Seed != rec.Seed {
		t.Errorf("last spin not recorded")
	}
	hist := m.History(rig.player, 10)
	if len(hist) != 1 || hist[0].Seed != rec.Seed {
		t.Errorf("history = %d entries, want the settled spin", len(hist))
	}
}
