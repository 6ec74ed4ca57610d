package ledger

import (
	"context"
	"crypto/sha256"
	"encoding/hex"

	"github.com/google/uuid"
)

// Address identifies an account on the ledger. Player addresses come from
// auth claims; machine and registry addresses are generated at creation.
type Address string

// ZeroAddress is the empty address; transfers to/from it are rejected.
const ZeroAddress Address = ""

// BurnAddress is an unusable sink address. Ownership transferred here can
// never act again.
const BurnAddress Address = "0x000000000000000000000000000000000000dEaD"

// NewAddress generates a fresh 20-byte hex address.
func NewAddress() Address {
	sum := sha256.Sum256([]byte(uuid.NewString()))
	return Address("0x" + hex.EncodeToString(sum[:20]))
}

// IsZero reports whether the address is empty.
func (a Address) IsZero() bool {
	return a == ZeroAddress
}

// Ledger is the fungible-token ledger all bets, payouts and fees settle
// against. Amounts are denominated in the token's smallest unit (6 decimal
// places). Every mutating call is atomic: it either fully applies or leaves
// the ledger untouched.
type Ledger interface {
	// BalanceOf returns the balance of an account.
	BalanceOf(ctx context.Context, account Address) uint64

	// Transfer moves amount from one account to another.
	Transfer(ctx context.Context, from, to Address, amount uint64) error

	// Approve sets the allowance of spender over owner's balance.
	Approve(ctx context.Context, owner, spender Address, amount uint64) error

	// Allowance returns the remaining allowance of spender over owner.
	Allowance(ctx context.Context, owner, spender Address) uint64

	// TransferFrom moves amount from `from` to `to` on behalf of spender,
	// consuming spender's allowance over `from`.
	TransferFrom(ctx context.Context, spender, from, to Address, amount uint64) error
}
