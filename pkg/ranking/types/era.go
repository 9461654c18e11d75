package types

// Era is a monotonically increasing epoch identifier for chain staking accounting.
type Era uint32

// PerbillInt is a parts-per-billion integer, as the chain reports commission.
type PerbillInt uint32

// Percent converts a parts-per-billion value to a percentage with 2 decimal
// places of precision (e.g. 70_000_000 perbill -> 7.0 percent).
func (p PerbillInt) Percent() float64 {
	return roundTo2(float64(p) / 1e7)
}

func roundTo2(v float64) float64 {
	return float64(int64(v*100+0.5)) / 100
}
