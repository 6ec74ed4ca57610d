package game

import (
	"context"
	"testing"

	"github.com/Digital-Creators-Team/slot-machine-registry/errors"
	"github.com/Digital-Creators-Team/slot-machine-registry/ledger"
	"github.com/Digital-Creators-Team/slot-machine-registry/pkg/providers"
	"github.com/rs/zerolog"
)

func TestNewRegistryValidation(t *testing.T) {
	asset := ledger.NewMemoryLedger()
	env := &FakeEnv{Time: 1_700_000_000}

	base := RegistryConfig{
		MaxJackpotShareBPS:  1000,
		MaxHouseEdgeBPS:     1000,
		DefaultJackpotShare: 500,
		DefaultHouseEdge:    200,
		SpinsPerRefresh:     10,
		HouseWallet:         testAddr("house"),
		Owner:               testAddr("admin"),
	}

	tests := []struct {
		name     string
		mutate   func(*RegistryConfig)
		wantCode int
	}{
		{
			name:     "default share above ceiling",
			mutate:   func(c *RegistryConfig) { c.DefaultJackpotShare = 1001 },
			wantCode: errors.ErrCeilingExceeded,
		},
		{
			name:     "default edge above ceiling",
			mutate:   func(c *RegistryConfig) { c.DefaultHouseEdge = 1001 },
			wantCode: errors.ErrCeilingExceeded,
		},
		{
			name:     "zero refresh interval",
			mutate:   func(c *RegistryConfig) { c.SpinsPerRefresh = 0 },
			wantCode: errors.ErrInvalidRequest,
		},
		{
			name:     "empty owner",
			mutate:   func(c *RegistryConfig) { c.Owner = ledger.ZeroAddress },
			wantCode: errors.ErrEmptyAddress,
		},
		{
			name:     "empty house wallet",
			mutate:   func(c *RegistryConfig) { c.HouseWallet = ledger.ZeroAddress },
			wantCode: errors.ErrEmptyAddress,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := base
			tt.mutate(&cfg)
			_, err := NewRegistry(cfg, asset, env, providers.NopSink{}, nil, zerolog.Nop())
			if !errors.HasCode(err, tt.wantCode) {
				t.Fatalf("expected code %d, got %v", tt.wantCode, err)
			}
		})
	}
}

func TestCreateMachineAuthorization(t *testing.T) {
	rig := newTestRig(t)
	ctx := context.Background()

	if _, err := rig.reg.CreateMachine(ctx, testAddr("stranger"), rig.oracle, "feed", testAddr("op")); !errors.HasCode(err, errors.ErrNotOwner) {
		t.Errorf("non-owner deploy accepted: %v", err)
	}
	if _, err := rig.reg.CreateMachine(ctx, rig.admin, rig.oracle, "feed", ledger.ZeroAddress); !errors.HasCode(err, errors.ErrEmptyAddress) {
		t.Errorf("empty clone owner accepted: %v", err)
	}
	if _, err := rig.reg.CreateMachine(ctx, rig.admin, nil, "feed", testAddr("op")); !errors.HasCode(err, errors.ErrInvalidRequest) {
		t.Errorf("missing oracle accepted: %v", err)
	}

	m, err := rig.reg.CreateMachine(ctx, rig.admin, rig.oracle, "feed", testAddr("op"))
	if err != nil {
		t.Fatalf("create machine: %v", err)
	}
	if !rig.reg.IsMachine(m.Address()) {
		t.Error("created machine not registered")
	}
	if got := rig.reg.GetStats().MachineCount; got != 1 {
		t.Errorf("machine count = %d, want 1", got)
	}
}

func TestTemplateMachineIsUnusable(t *testing.T) {
	rig := newTestRig(t)
	ctx := context.Background()

	template := rig.reg.template
	if rig.reg.IsMachine(template.Address()) {
		t.Error("template is registered as a machine")
	}
	if _, err := template.Spin(ctx, rig.player, MinBetUnit); !errors.HasCode(err, errors.ErrNotInitialized) {
		t.Errorf("template accepted a spin: %v", err)
	}
	if template.owner != ledger.BurnAddress {
		t.Errorf("template owner = %s, want burn address", template.owner)
	}
}

func TestDepositToJackpotGating(t *testing.T) {
	rig := newTestRig(t)
	m := rig.newMachine(t, 0)
	ctx := context.Background()

	if err := rig.reg.DepositToJackpot(ctx, testAddr("stranger"), 100); !errors.HasCode(err, errors.ErrNotMachine) {
		t.Errorf("unregistered caller accepted: %v", err)
	}
	if err := rig.reg.DepositToJackpot(ctx, m.Address(), 0); !errors.HasCode(err, errors.ErrZeroAmount) {
		t.Errorf("zero contribution accepted: %v", err)
	}

	// a registered machine with balance and approval can contribute
	if err := rig.asset.Mint(ctx, m.Address(), 1_000); err != nil {
		t.Fatalf("mint: %v", err)
	}
	if err := rig.asset.Approve(ctx, m.Address(), rig.reg.Address(), 1_000); err != nil {
		t.Fatalf("approve: %v", err)
	}
	if err := rig.reg.DepositToJackpot(ctx, m.Address(), 1_000); err != nil {
		t.Fatalf("deposit: %v", err)
	}
	if got := rig.reg.JackpotPool(); got != 1_000 {
		t.Errorf("pool = %d, want 1000", got)
	}
}

func TestPoolConservation(t *testing.T) {
	rig := newTestRig(t)
	m := rig.newMachine(t, 0)
	ctx := context.Background()

	var contributed, funded, paidOut uint64

	if err := rig.asset.Mint(ctx, m.Address(), 100_000); err != nil {
		t.Fatalf("mint: %v", err)
	}
	if err := rig.asset.Approve(ctx, m.Address(), rig.reg.Address(), 100_000); err != nil {
		t.Fatalf("approve: %v", err)
	}
	for i := uint64(1); i <= 10; i++ {
		if err := rig.reg.DepositToJackpot(ctx, m.Address(), i*100); err != nil {
			t.Fatalf("deposit %d: %v", i, err)
		}
		contributed += i * 100
	}

	if err := rig.asset.Mint(ctx, rig.admin, 50_000); err != nil {
		t.Fatalf("mint admin: %v", err)
	}
	if err := rig.asset.Approve(ctx, rig.admin, rig.reg.Address(), 50_000); err != nil {
		t.Fatalf("approve admin: %v", err)
	}
	if err := rig.reg.FundJackpot(ctx, rig.admin, 50_000); err != nil {
		t.Fatalf("fund: %v", err)
	}
	funded += 50_000

	// draw until a win drains the pool
	for i := 0; i < 100_000; i++ {
		rig.env.Advance(1)
		won, payout, err := rig.reg.TryJackpotWin(ctx, rig.player, 100*MinBetUnit, m.Address())
		if err != nil {
			t.Fatalf("draw: %v", err)
		}
		if won {
			paidOut += payout
			break
		}
	}
	if paidOut == 0 {
		t.Fatal("no jackpot win in 100000 draws at capped odds")
	}

	if got := rig.reg.JackpotPool(); got != contributed+funded-paidOut {
		t.Errorf("pool = %d, want %d", got, contributed+funded-paidOut)
	}
}

func TestJackpotWinDrainsAtomically(t *testing.T) {
	rig := newTestRig(t)
	m := rig.newMachine(t, 0)
	ctx := context.Background()

	const pool = 777_000_000
	if err := rig.asset.Mint(ctx, rig.admin, pool); err != nil {
		t.Fatalf("mint: %v", err)
	}
	if err := rig.asset.Approve(ctx, rig.admin, rig.reg.Address(), pool); err != nil {
		t.Fatalf("approve: %v", err)
	}
	if err := rig.reg.FundJackpot(ctx, rig.admin, pool); err != nil {
		t.Fatalf("fund: %v", err)
	}

	machineBefore := rig.asset.BalanceOf(ctx, m.Address())

	for i := 0; i < 100_000; i++ {
		rig.env.Advance(1)
		won, payout, err := rig.reg.TryJackpotWin(ctx, rig.player, 100*MinBetUnit, m.Address())
		if err != nil {
			t.Fatalf("draw: %v", err)
		}
		if !won {
			if payout != 0 {
				t.Fatalf("losing draw returned payout %d", payout)
			}
			if rig.reg.JackpotPool() != pool {
				t.Fatalf("losing draw mutated the pool")
			}
			continue
		}
		// the payout is the pool value before the call, and the pool is
		// zero by the time the call returns
		if payout != pool {
			t.Fatalf("payout = %d, want %d", payout, pool)
		}
		if got := rig.reg.JackpotPool(); got != 0 {
			t.Fatalf("pool after win = %d, want 0", got)
		}
		if got := rig.asset.BalanceOf(ctx, m.Address()); got != machineBefore+pool {
			t.Fatalf("machine balance = %d, want %d", got, machineBefore+pool)
		}
		if got := rig.reg.GetStats().TotalJackpotWins; got != 1 {
			t.Fatalf("win counter = %d, want 1", got)
		}
		return
	}
	t.Fatal("no jackpot win in 100000 draws at capped odds")
}

func TestTryJackpotWinEmptyPool(t *testing.T) {
	rig := newTestRig(t)
	m := rig.newMachine(t, 0)
	ctx := context.Background()

	// even a certain draw cannot win an empty pool
	for i := 0; i < 1_000; i++ {
		rig.env.Advance(1)
		won, payout, err := rig.reg.TryJackpotWin(ctx, rig.player, 100*MinBetUnit, m.Address())
		if err != nil {
			t.Fatalf("draw: %v", err)
		}
		if won || payout != 0 {
			t.Fatalf("won an empty pool: payout %d", payout)
		}
	}
}

func TestTryJackpotWinReentrancyGuard(t *testing.T) {
	rig := newTestRig(t)
	m := rig.newMachine(t, 0)

	ctx, err := enterGuard(context.Background(), guardJackpot)
	if err != nil {
		t.Fatalf("enter guard: %v", err)
	}
	_, _, err = rig.reg.TryJackpotWin(ctx, rig.player, MinBetUnit, m.Address())
	if !errors.HasCode(err, errors.ErrReentrancy) {
		t.Fatalf("expected reentrancy error, got %v", err)
	}
}

func TestRegistryConfigurationCeilings(t *testing.T) {
	rig := newTestRig(t)

	if err := rig.reg.UpdateConfiguration(rig.admin, 1001, 100, 10); !errors.HasCode(err, errors.ErrCeilingExceeded) {
		t.Errorf("jackpot share above ceiling accepted: %v", err)
	}
	if err := rig.reg.UpdateConfiguration(rig.admin, 100, 1001, 10); !errors.HasCode(err, errors.ErrCeilingExceeded) {
		t.Errorf("house edge above ceiling accepted: %v", err)
	}
	if err := rig.reg.UpdateConfiguration(rig.admin, 100, 100, 0); !errors.HasCode(err, errors.ErrInvalidRequest) {
		t.Errorf("zero refresh interval accepted: %v", err)
	}
	if err := rig.reg.UpdateConfiguration(testAddr("stranger"), 100, 100, 10); !errors.HasCode(err, errors.ErrNotOwner) {
		t.Errorf("non-owner update accepted: %v", err)
	}

	// new defaults apply to machines created afterwards, not existing ones
	before := rig.newMachine(t, 0)
	if err := rig.reg.UpdateConfiguration(rig.admin, 900, 900, 5); err != nil {
		t.Fatalf("update: %v", err)
	}
	after := rig.newMachine(t, 0)

	if got := before.Summary().JackpotShareBPS; got != testJackpotShare {
		t.Errorf("existing machine share changed to %d", got)
	}
	if got := after.Summary().JackpotShareBPS; got != 900 {
		t.Errorf("new machine share = %d, want 900", got)
	}
	if got := after.Summary().RefreshInterval; got != 5 {
		t.Errorf("new machine refresh interval = %d, want 5", got)
	}
}

func TestUpdateStatsGating(t *testing.T) {
	rig := newTestRig(t)
	m := rig.newMachine(t, 0)
	ctx := context.Background()

	if err := rig.reg.UpdateStats(ctx, testAddr("stranger"), 100, 1); !errors.HasCode(err, errors.ErrNotMachine) {
		t.Errorf("unregistered stats update accepted: %v", err)
	}
	if err := rig.reg.UpdateStats(ctx, m.Address(), 500, 2); err != nil {
		t.Fatalf("stats update: %v", err)
	}
	stats := rig.reg.GetStats()
	if stats.TotalVolume != 500 || stats.TotalSpins != 2 {
		t.Errorf("stats = %+v, want volume 500 spins 2", stats)
	}
}

func TestWithdrawAssetProtectsPool(t *testing.T) {
	rig := newTestRig(t)
	ctx := context.Background()

	// fund the pool and give the registry some free balance on top
	if err := rig.asset.Mint(ctx, rig.admin, 1_000_000); err != nil {
		t.Fatalf("mint: %v", err)
	}
	if err := rig.asset.Approve(ctx, rig.admin, rig.reg.Address(), 1_000_000); err != nil {
		t.Fatalf("approve: %v", err)
	}
	if err := rig.reg.FundJackpot(ctx, rig.admin, 1_000_000); err != nil {
		t.Fatalf("fund: %v", err)
	}
	if err := rig.asset.Mint(ctx, rig.reg.Address(), 300_000); err != nil {
		t.Fatalf("mint free: %v", err)
	}

	if err := rig.reg.WithdrawAsset(ctx, rig.admin, 300_001); !errors.HasCode(err, errors.ErrInsufficientBalance) {
		t.Errorf("withdrawal into pool backing accepted: %v", err)
	}
	if err := rig.reg.WithdrawAsset(ctx, testAddr("stranger"), 100); !errors.HasCode(err, errors.ErrNotOwner) {
		t.Errorf("non-owner withdrawal accepted: %v", err)
	}
	if err := rig.reg.WithdrawAsset(ctx, rig.admin, 300_000); err != nil {
		t.Fatalf("withdraw: %v", err)
	}
	if got := rig.asset.BalanceOf(ctx, rig.house); got != 300_000 {
		t.Errorf("house balance = %d, want 300000", got)
	}
	if got := rig.reg.JackpotPool(); got != 1_000_000 {
		t.Errorf("pool touched by withdrawal: %d", got)
	}
}

func TestSetHouseWallet(t *testing.T) {
	rig := newTestRig(t)

	if err := rig.reg.SetHouseWallet(testAddr("stranger"), testAddr("other")); !errors.HasCode(err, errors.ErrNotOwner) {
		t.Errorf("non-owner change accepted: %v", err)
	}
	if err := rig.reg.SetHouseWallet(rig.admin, ledger.ZeroAddress); !errors.HasCode(err, errors.ErrEmptyAddress) {
		t.Errorf("empty wallet accepted: %v", err)
	}
	next := testAddr("house-2")
	if err := rig.reg.SetHouseWallet(rig.admin, next); err != nil {
		t.Fatalf("set: %v", err)
	}
	if rig.reg.HouseWallet() != next {
		t.Errorf("house wallet = %s, want %s", rig.reg.HouseWallet(), next)
	}
}

func TestFundJackpotValidation(t *testing.T) {
	rig := newTestRig(t)
	ctx := context.Background()

	if err := rig.reg.FundJackpot(ctx, testAddr("stranger"), 100); !errors.HasCode(err, errors.ErrNotOwner) {
		t.Errorf("non-owner funding accepted: %v", err)
	}
	if err := rig.reg.FundJackpot(ctx, rig.admin, 0); !errors.HasCode(err, errors.ErrZeroAmount) {
		t.Errorf("zero funding accepted: %v", err)
	}
	// without balance or approval the ledger rejects the pull
	if err := rig.reg.FundJackpot(ctx, rig.admin, 100); !errors.HasCode(err, errors.ErrInsufficientAllowance) {
		t.Errorf("unapproved funding accepted: %v", err)
	}
}
