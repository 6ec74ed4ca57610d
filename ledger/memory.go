package ledger

import (
	"context"
	"sync"

	"github.com/Digital-Creators-Team/slot-machine-registry/errors"
)

// MemoryLedger is an in-process Ledger implementation backed by maps.
// All operations are serialized by a single mutex, so each call observes a
// consistent snapshot and leaves the ledger consistent.
type MemoryLedger struct {
	mu         sync.Mutex
	balances   map[Address]uint64
	allowances map[Address]map[Address]uint64
}

// NewMemoryLedger creates an empty in-memory ledger.
func NewMemoryLedger() *MemoryLedger {
	return &MemoryLedger{
		balances:   make(map[Address]uint64),
		allowances: make(map[Address]map[Address]uint64),
	}
}

// Mint credits newly created tokens to an account. Used for dev faucets and
// machine bankroll funding; there is no burn.
func (l *MemoryLedger) Mint(ctx context.Context, account Address, amount uint64) error {
	if account.IsZero() {
		return errors.New(errors.ErrEmptyAddress, "mint to empty address")
	}
	if amount == 0 {
		return errors.New(errors.ErrZeroAmount, "mint amount must be greater than zero")
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.balances[account] += amount
	return nil
}

// BalanceOf returns the balance of an account.
func (l *MemoryLedger) BalanceOf(ctx context.Context, account Address) uint64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.balances[account]
}

// Transfer moves amount from one account to another.
func (l *MemoryLedger) Transfer(ctx context.Context, from, to Address, amount uint64) error {
	if from.IsZero() || to.IsZero() {
		return errors.New(errors.ErrEmptyAddress, "transfer with empty address")
	}
	if amount == 0 {
		return errors.New(errors.ErrZeroAmount, "transfer amount must be greater than zero")
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.move(from, to, amount)
}

// Approve sets the allowance of spender over owner's balance.
func (l *MemoryLedger) Approve(ctx context.Context, owner, spender Address, amount uint64) error {
	if owner.IsZero() || spender.IsZero() {
		return errors.New(errors.ErrEmptyAddress, "approve with empty address")
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.allowances[owner] == nil {
		l.allowances[owner] = make(map[Address]uint64)
	}
	l.allowances[owner][spender] = amount
	return nil
}

// Allowance returns the remaining allowance of spender over owner.
func (l *MemoryLedger) Allowance(ctx context.Context, owner, spender Address) uint64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.allowances[owner][spender]
}

// TransferFrom moves amount from `from` to `to`, consuming spender's
// allowance over `from`. Allowance and balance are checked and updated under
// one lock so the call is all-or-nothing.
func (l *MemoryLedger) TransferFrom(ctx context.Context, spender, from, to Address, amount uint64) error {
	if spender.IsZero() || from.IsZero() || to.IsZero() {
		return errors.New(errors.ErrEmptyAddress, "transferFrom with empty address")
	}
	if amount == 0 {
		return errors.New(errors.ErrZeroAmount, "transferFrom amount must be greater than zero")
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	allowed := l.allowances[from][spender]
	if allowed < amount {
		return errors.Newf(errors.ErrInsufficientAllowance,
			"allowance %d below requested %d", allowed, amount)
	}
	if err := l.move(from, to, amount); err != nil {
		return err
	}
	l.allowances[from][spender] = allowed - amount
	return nil
}

// move performs the balance update. Caller must hold the lock.
func (l *MemoryLedger) move(from, to Address, amount uint64) error {
	bal := l.balances[from]
	if bal < amount {
		return errors.Newf(errors.ErrInsufficientBalance,
			"balance %d below requested %d", bal, amount)
	}
	l.balances[from] = bal - amount
	l.balances[to] += amount
	return nil
}
