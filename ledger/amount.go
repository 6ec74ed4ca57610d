package ledger

import (
	"github.com/Digital-Creators-Team/slot-machine-registry/errors"
	"github.com/shopspring/decimal"
)

// Decimals is the number of decimal places of the ledger token.
// All core arithmetic runs on smallest units; decimals exist only at the
// API/event boundary.
const Decimals = 6

// UnitsPerToken is the number of smallest units in one whole token.
const UnitsPerToken uint64 = 1_000_000

// ToDecimal converts smallest units to a whole-token decimal amount.
func ToDecimal(units uint64) decimal.Decimal {
	return decimal.New(int64(units), -Decimals)
}

// FromDecimal converts a whole-token decimal amount to smallest units.
// Rejects negative amounts and amounts with more precision than the token
// carries.
func FromDecimal(d decimal.Decimal) (uint64, error) {
	if d.IsNegative() {
		return 0, errors.New(errors.ErrInvalidRequest, "amount must not be negative")
	}
	units := d.Shift(Decimals)
	if !units.IsInteger() {
		return 0, errors.Newf(errors.ErrInvalidRequest,
			"amount %s has more than %d decimal places", d.String(), Decimals)
	}
	return uint64(units.IntPart()), nil
}
