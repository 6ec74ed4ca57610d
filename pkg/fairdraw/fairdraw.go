// Package fairdraw generates small verifiable pseudo-random digit vectors.
// Given a transaction id, a player address and a timestamp it returns digits
// plus a commitment hash, so a third party can recompute both and confirm
// the output was not altered after the fact. The service is stateless.
package fairdraw

import (
	"encoding/binary"
	"encoding/hex"

	"golang.org/x/crypto/sha3"
)

// NumDigits is the fixed length of every draw.
const NumDigits = 4

// Draw is one digit vector with its commitment.
type Draw struct {
	Digits     [NumDigits]int `json:"digits"`
	Commitment string         `json:"commitment"`
}

// commit keccak-hashes the three inputs in a fixed order
func commit(txID, player string, timestamp uint64) [32]byte {
	h := sha3.NewLegacyKeccak256()
	h.Write([]byte(txID))
	h.Write([]byte(player))
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], timestamp)
	h.Write(buf[:])
	var out [32]byte
	h.Sum(out[:0])
	return out
}

// New derives the digit vector for the given inputs. The same inputs always
// produce the same draw.
func New(txID, player string, timestamp uint64) Draw {
	sum := commit(txID, player, timestamp)
	var d Draw
	for i := 0; i < NumDigits; i++ {
		d.Digits[i] = int(sum[i]) % 10
	}
	d.Commitment = "0x" + hex.EncodeToString(sum[:])
	return d
}

// Verify recomputes a draw from its inputs and reports whether it matches
func Verify(txID, player string, timestamp uint64, d Draw) bool {
	return New(txID, player, timestamp) == d
}
