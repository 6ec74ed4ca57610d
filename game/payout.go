package game

// countSymbol returns how many of the three reels show the symbol
func countSymbol(reels [3]Symbol, s Symbol) int {
	n := 0
	for _, r := range reels {
		if r == s {
			n++
		}
	}
	return n
}

// multiplierFor selects the payout multiplier for a reel combination.
// Precedence is fixed: Bar counts are checked first, then the non-Bar
// triples; the first match wins and combinations never stack.
func multiplierFor(reels [3]Symbol, table PayoutTable) uint64 {
	switch countSymbol(reels, SymbolBar) {
	case 3:
		return table.ThreeBar
	case 2:
		return table.TwoBar
	case 1:
		return table.OneBar
	}
	switch {
	case countSymbol(reels, SymbolCherries) == 3:
		return table.ThreeCherries
	case countSymbol(reels, SymbolWatermelon) == 3:
		return table.ThreeWatermelon
	case countSymbol(reels, SymbolLogo) == 3:
		return table.ThreeLogo
	}
	return 0
}

// rawPayout computes the pre-cut payout for a bet. Multipliers are in
// hundredths, so a 1500 multiplier on a 1,000,000-unit bet pays 15,000,000.
func rawPayout(reels [3]Symbol, table PayoutTable, betAmount uint64) uint64 {
	return betAmount * multiplierFor(reels, table) / MultiplierUnit
}
