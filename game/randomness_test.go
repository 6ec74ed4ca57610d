package game

import (
	"testing"

	"github.com/Digital-Creators-Team/slot-machine-registry/pkg/providers"
)

func TestJackpotOddsScaling(t *testing.T) {
	tests := []struct {
		name string
		bet  uint64
		want uint64
	}{
		{name: "below minimum unit", bet: MinBetUnit / 2, want: 0},
		{name: "minimum bet", bet: MinBetUnit, want: 1},
		{name: "double minimum", bet: 2 * MinBetUnit, want: 4},
		{name: "ten times minimum", bet: 10 * MinBetUnit, want: 100},
		{name: "hundred times minimum hits cap", bet: 100 * MinBetUnit, want: 10_000},
		{name: "beyond the cap stays capped", bet: 500 * MinBetUnit, want: 10_000},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := jackpotOdds(tt.bet); got != tt.want {
				t.Errorf("jackpotOdds(%d) = %d, want %d", tt.bet, got, tt.want)
			}
		})
	}
}

func TestReelsFromSeedRange(t *testing.T) {
	var seed [32]byte
	for i := 0; i < 256; i++ {
		seed = hashFields(seed, uint64(i))
		reels := reelsFromSeed(seed)
		for j, r := range reels {
			if r < 0 || r >= symbolCount {
				t.Fatalf("reel %d out of range: %d (seed %s)", j, r, seedHex(seed))
			}
		}
	}
}

func TestSpinSeedDiffersBySpinCount(t *testing.T) {
	var base [32]byte
	base[0] = 0xab
	player := testAddr("player")
	machine := testAddr("machine")

	s1 := deriveSpinSeed(base, 1700000000, player, machine, 0)
	s2 := deriveSpinSeed(base, 1700000000, player, machine, 1)
	if s1 == s2 {
		t.Error("consecutive spin counts produced identical seeds")
	}
}

func TestJackpotDrawRange(t *testing.T) {
	env := &FakeEnv{Time: 1700000000}
	for i := 0; i < 512; i++ {
		draw := jackpotDraw(env.Entropy(), env.Timestamp(), testAddr("player"), MinBetUnit, uint64(i))
		if draw >= jackpotDrawRange {
			t.Fatalf("draw %d outside [0, %d)", draw, jackpotDrawRange)
		}
	}
}

func TestBaseRandomnessDependsOnQuote(t *testing.T) {
	q1 := providers.PriceQuote{Price: 45_000_00000000, Conf: 1_00000000, Expo: -8, PublishTime: 1700000000}
	q2 := q1
	q2.PublishTime++

	var entropy [32]byte
	r1 := deriveBaseRandomness(q1, 1700000000, entropy, 100, 0, testAddr("origin"))
	r2 := deriveBaseRandomness(q2, 1700000000, entropy, 100, 0, testAddr("origin"))
	if r1 == r2 {
		t.Error("distinct oracle readings produced identical base randomness")
	}
}
