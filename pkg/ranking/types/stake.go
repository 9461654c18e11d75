// Package types defines the domain types shared by every stage of the
// ranking pipeline: chain-native stake quantities, identity records, staking
// exposure, and the pre- and post-scoring validator records.
package types

import "math/big"

// Stake is an arbitrary-precision, non-negative chain-native token quantity.
// All arithmetic on balances is exact; there is no suitable third-party
// big-integer library in the pack that improves on the standard library's
// math/big for this (see DESIGN.md).
type Stake = *big.Int

// ZeroStake returns a fresh zero-valued Stake.
func ZeroStake() Stake {
	return big.NewInt(0)
}

// SubStake returns a - b without mutating either argument.
func SubStake(a, b Stake) Stake {
	return new(big.Int).Sub(a, b)
}

// MinStake returns the smaller of a and b.
func MinStake(a, b Stake) Stake {
	if a.Cmp(b) <= 0 {
		return a
	}
	return b
}
