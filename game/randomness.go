package game

import (
	"encoding/binary"
	"encoding/hex"

	"github.com/Digital-Creators-Team/slot-machine-registry/ledger"
	"github.com/Digital-Creators-Team/slot-machine-registry/pkg/providers"
	"github.com/holiman/uint256"
	"golang.org/x/crypto/sha3"
)

// jackpotDrawRange is the denominator of the jackpot draw: values are drawn
// uniformly in [0, 1,000,000).
const jackpotDrawRange = 1_000_000

// maxJackpotOdds caps the win threshold at 1-in-100,000 regardless of bet
// size.
const maxJackpotOdds = 10_000

// hashFields keccak-hashes a mixed sequence of uint64, [32]byte and address
// fields in order.
func hashFields(fields ...interface{}) [32]byte {
	h := sha3.NewLegacyKeccak256()
	var buf [8]byte
	for _, f := range fields {
		switch v := f.(type) {
		case uint64:
			binary.BigEndian.PutUint64(buf[:], v)
			h.Write(buf[:])
		case int64:
			binary.BigEndian.PutUint64(buf[:], uint64(v))
			h.Write(buf[:])
		case int32:
			binary.BigEndian.PutUint64(buf[:], uint64(v))
			h.Write(buf[:])
		case [32]byte:
			h.Write(v[:])
		case ledger.Address:
			h.Write([]byte(v))
		case string:
			h.Write([]byte(v))
		}
	}
	var out [32]byte
	h.Sum(out[:0])
	return out
}

// deriveBaseRandomness mixes an oracle reading with environment entropy into
// a new 256-bit seed root.
func deriveBaseRandomness(quote providers.PriceQuote, timestamp uint64, entropy [32]byte, height, spinCount uint64, origin ledger.Address) [32]byte {
	return hashFields(
		quote.Price,
		quote.Conf,
		quote.Expo,
		quote.PublishTime,
		timestamp,
		entropy,
		height,
		spinCount,
		origin,
	)
}

// deriveSpinSeed derives the per-spin seed from the current seed root. The
// spin counter guarantees distinct seeds within one refresh window.
func deriveSpinSeed(base [32]byte, timestamp uint64, player, machine ledger.Address, spinCount uint64) [32]byte {
	return hashFields(base, timestamp, player, machine, spinCount)
}

// reelsFromSeed extracts the three reel symbols: reel i is byte lane 8*i of
// the seed taken mod 4.
func reelsFromSeed(seed [32]byte) [3]Symbol {
	s := new(uint256.Int).SetBytes(seed[:])
	var reels [3]Symbol
	for i := 0; i < 3; i++ {
		lane := new(uint256.Int).Rsh(s, uint(8*i))
		reels[i] = Symbol(lane.Uint64() % symbolCount)
	}
	return reels
}

// jackpotDraw derives a value in [0, 1,000,000) from environment entropy,
// the player, the bet and the current pool size.
func jackpotDraw(entropy [32]byte, timestamp uint64, player ledger.Address, betAmount, pool uint64) uint64 {
	sum := hashFields(entropy, timestamp, player, betAmount, pool)
	v := new(uint256.Int).SetBytes(sum[:])
	return new(uint256.Int).Mod(v, uint256.NewInt(jackpotDrawRange)).Uint64()
}

// jackpotOdds computes the win threshold for a bet: the square of the number
// of minimum units wagered, capped. A minimum bet wins at 1-in-1,000,000; a
// 100x-minimum bet reaches the 1-in-100,000 cap.
func jackpotOdds(betAmount uint64) uint64 {
	units := betAmount / MinBetUnit
	if units == 0 {
		return 0
	}
	if units >= 100 {
		return maxJackpotOdds
	}
	odds := units * units
	if odds > maxJackpotOdds {
		return maxJackpotOdds
	}
	return odds
}

// seedHex renders a seed for records and events
func seedHex(seed [32]byte) string {
	return "0x" + hex.EncodeToString(seed[:])
}
