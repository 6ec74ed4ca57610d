package game

import (
	"time"

	"github.com/Digital-Creators-Team/slot-machine-registry/ledger"
)

// Symbol is one reel symbol.
type Symbol int

const (
	SymbolBar Symbol = iota
	SymbolCherries
	SymbolWatermelon
	SymbolLogo

	symbolCount = 4
)

// String returns the display name of the symbol
func (s Symbol) String() string {
	switch s {
	case SymbolBar:
		return "bar"
	case SymbolCherries:
		return "cherries"
	case SymbolWatermelon:
		return "watermelon"
	case SymbolLogo:
		return "logo"
	default:
		return "unknown"
	}
}

// BasisPoints is the denominator for share and edge fractions.
const BasisPoints uint64 = 10_000

// MultiplierUnit is the denominator for payout multipliers; a stored value of
// 1500 means 15x.
const MultiplierUnit uint64 = 100

// MinBetUnit is the minimum bet denomination in smallest units (one whole
// token). Jackpot odds scale from this unit.
const MinBetUnit uint64 = 1_000_000

// DefaultBetLadder is the bet denomination ladder seeded into every new
// machine: 1, 5, 10, 50 and 100 whole tokens.
var DefaultBetLadder = []uint64{
	1 * MinBetUnit,
	5 * MinBetUnit,
	10 * MinBetUnit,
	50 * MinBetUnit,
	100 * MinBetUnit,
}

// PayoutTable holds the six combination multipliers, in hundredths.
type PayoutTable struct {
	ThreeBar        uint64 `json:"three_bar"`
	TwoBar          uint64 `json:"two_bar"`
	OneBar          uint64 `json:"one_bar"`
	ThreeCherries   uint64 `json:"three_cherries"`
	ThreeWatermelon uint64 `json:"three_watermelon"`
	ThreeLogo       uint64 `json:"three_logo"`
}

// DefaultPayoutTable returns the stock multiplier set
func DefaultPayoutTable() PayoutTable {
	return PayoutTable{
		ThreeBar:        1500,
		TwoBar:          800,
		OneBar:          300,
		ThreeCherries:   600,
		ThreeWatermelon: 400,
		ThreeLogo:       1200,
	}
}

// SpinRecord is one settled spin as kept in a machine's per-player history.
type SpinRecord struct {
	Player     ledger.Address `json:"player"`
	Reels      [3]Symbol      `json:"reels"`
	Bet        uint64         `json:"bet"`
	Payout     uint64         `json:"payout"`
	JackpotWin bool           `json:"jackpot_win"`
	Seed       string         `json:"seed"`
	Timestamp  uint64         `json:"timestamp"`
	SettledAt  time.Time      `json:"settled_at"`
}

// RegistryConfig carries the fixed ceilings and initial defaults of a
// registry deployment. Ceilings are immutable after construction.
type RegistryConfig struct {
	MaxJackpotShareBPS  uint64
	MaxHouseEdgeBPS     uint64
	DefaultJackpotShare uint64
	DefaultHouseEdge    uint64
	SpinsPerRefresh     uint64
	HouseWallet         ledger.Address
	Owner               ledger.Address
}
