package ledger

import (
	"context"
	"testing"

	"github.com/Digital-Creators-Team/slot-machine-registry/errors"
	"github.com/shopspring/decimal"
)

func TestMemoryLedgerTransfer(t *testing.T) {
	ctx := context.Background()
	alice := Address("0xalice")
	bob := Address("0xbob")

	tests := []struct {
		name     string
		mint     uint64
		amount   uint64
		from     Address
		to       Address
		wantCode int
	}{
		{
			name:   "simple transfer",
			mint:   100,
			amount: 40,
			from:   alice,
			to:     bob,
		},
		{
			name:     "insufficient balance",
			mint:     10,
			amount:   40,
			from:     alice,
			to:       bob,
			wantCode: errors.ErrInsufficientBalance,
		},
		{
			name:     "zero amount",
			mint:     100,
			amount:   0,
			from:     alice,
			to:       bob,
			wantCode: errors.ErrZeroAmount,
		},
		{
			name:     "empty destination",
			mint:     100,
			amount:   10,
			from:     alice,
			to:       ZeroAddress,
			wantCode: errors.ErrEmptyAddress,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l := NewMemoryLedger()
			if tt.mint > 0 {
				if err := l.Mint(ctx, alice, tt.mint); err != nil {
					t.Fatalf("mint: %v", err)
				}
			}

			err := l.Transfer(ctx, tt.from, tt.to, tt.amount)

			if tt.wantCode != 0 {
				if !errors.HasCode(err, tt.wantCode) {
					t.Fatalf("expected code %d, got %v", tt.wantCode, err)
				}
				// failed transfer must not move anything
				if got := l.BalanceOf(ctx, alice); got != tt.mint {
					t.Errorf("balance changed on failed transfer: %d", got)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got := l.BalanceOf(ctx, alice); got != tt.mint-tt.amount {
				t.Errorf("from balance = %d, want %d", got, tt.mint-tt.amount)
			}
			if got := l.BalanceOf(ctx, bob); got != tt.amount {
				t.Errorf("to balance = %d, want %d", got, tt.amount)
			}
		})
	}
}

func TestMemoryLedgerTransferFrom(t *testing.T) {
	ctx := context.Background()
	owner := Address("0xowner")
	spender := Address("0xspender")
	sink := Address("0xsink")

	l := NewMemoryLedger()
	if err := l.Mint(ctx, owner, 100); err != nil {
		t.Fatalf("mint: %v", err)
	}

	// no allowance yet
	err := l.TransferFrom(ctx, spender, owner, sink, 10)
	if !errors.HasCode(err, errors.ErrInsufficientAllowance) {
		t.Fatalf("expected allowance error, got %v", err)
	}

	if err := l.Approve(ctx, owner, spender, 50); err != nil {
		t.Fatalf("approve: %v", err)
	}
	if err := l.TransferFrom(ctx, spender, owner, sink, 30); err != nil {
		t.Fatalf("transferFrom: %v", err)
	}

	if got := l.BalanceOf(ctx, sink); got != 30 {
		t.Errorf("sink balance = %d, want 30", got)
	}
	if got := l.Allowance(ctx, owner, spender); got != 20 {
		t.Errorf("remaining allowance = %d, want 20", got)
	}

	// exceeding the remaining allowance fails and consumes nothing
	err = l.TransferFrom(ctx, spender, owner, sink, 25)
	if !errors.HasCode(err, errors.ErrInsufficientAllowance) {
		t.Fatalf("expected allowance error, got %v", err)
	}
	if got := l.Allowance(ctx, owner, spender); got != 20 {
		t.Errorf("allowance consumed on failed transferFrom: %d", got)
	}

	// allowance present but balance too low: allowance must survive
	if err := l.Approve(ctx, owner, spender, 500); err != nil {
		t.Fatalf("approve: %v", err)
	}
	err = l.TransferFrom(ctx, spender, owner, sink, 200)
	if !errors.HasCode(err, errors.ErrInsufficientBalance) {
		t.Fatalf("expected balance error, got %v", err)
	}
	if got := l.Allowance(ctx, owner, spender); got != 500 {
		t.Errorf("allowance consumed on failed transferFrom: %d", got)
	}
}

func TestAmountConversion(t *testing.T) {
	tests := []struct {
		name    string
		in      string
		want    uint64
		wantErr bool
	}{
		{name: "whole token", in: "1", want: 1_000_000},
		{name: "fractional", in: "2.5", want: 2_500_000},
		{name: "smallest unit", in: "0.000001", want: 1},
		{name: "zero", in: "0", want: 0},
		{name: "too precise", in: "0.0000001", wantErr: true},
		{name: "negative", in: "-1", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d, err := decimal.NewFromString(tt.in)
			if err != nil {
				t.Fatalf("parse: %v", err)
			}
			got, err := FromDecimal(d)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("expected error for %s", tt.in)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("FromDecimal(%s) = %d, want %d", tt.in, got, tt.want)
			}
			if back := ToDecimal(got); !back.Equal(d) {
				t.Errorf("ToDecimal(%d) = %s, want %s", got, back, d)
			}
		})
	}
}
