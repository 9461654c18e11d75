// Package dominance implements the non-strict Pareto dominance check applied
// to the ranked validator set: pure comparison logic, no I/O.
package dominance

import "github.com/canopy-network/validator-ranker/pkg/ranking/types"

// Mark sets Dominated on every validator for which some other validator is
// at least as good on all four dimensions (relativePerformance, selfStake,
// activeEras, totalRating). Every comparison is non-strict ">=" with no
// additional "strictly better on at least one" requirement, so two
// validators tied on all four dimensions dominate each other and both end
// up marked Dominated - a deliberate "ties dominate" reading, not the usual
// strict-Pareto definition. O(n^2) over the ranked set, matching the cost
// the validator-set scale can afford.
func Mark(ranked []types.RankedValidator) {
	for i := range ranked {
		for j := range ranked {
			if i == j {
				continue
			}
			if dominates(ranked[j], ranked[i]) {
				ranked[i].Dominated = true
				break
			}
		}
	}
}

// dominates reports whether b is at least as good as a on every dimension.
func dominates(b, a types.RankedValidator) bool {
	return b.RelativePerformance >= a.RelativePerformance &&
		b.SelfStake.Cmp(a.SelfStake) >= 0 &&
		b.ActiveEras >= a.ActiveEras &&
		b.TotalRating >= a.TotalRating
}
