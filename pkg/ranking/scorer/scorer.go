// Package scorer implements the pure, deterministic scoring function that
// turns one chain snapshot into a fully rated, ranked validator set. No I/O;
// the standard library is correct here (see DESIGN.md).
package scorer

import (
	"math"
	"math/big"
	"sort"

	"github.com/canopy-network/validator-ranker/pkg/ranking/types"
)

// Params are the configuration values the scoring formulas depend on.
type Params struct {
	BlockHeight                      uint64
	ErasPerDay                       uint32
	TokenDecimals                    uint32
	MaxNominatorRewardedPerValidator int
}

// AccountAge is the creation-block data the AccountAgeResolver produced for
// one stash and, if present, its identity parent.
type AccountAge struct {
	StashBlock  uint64
	ParentBlock *uint64
}

// ScoreAll scores every validator in the snapshot, applying every rating
// dimension, then normalizes relativePerformance across the whole set and
// assigns the final dense rank. Validators that fail a schema invariant
// (e.g. a missing exposure for an active validator) are dropped rather than
// aborting the run.
func ScoreAll(snapshot types.Snapshot, ages map[string]AccountAge, included map[string]bool, p Params) []types.RankedValidator {
	type partial struct {
		rv           types.RankedValidator
		eraPointsSum uint64
	}

	partials := make([]partial, 0, len(snapshot.Validators))
	for _, v := range snapshot.Validators {
		history := snapshot.History[v.StashID]
		rv, pointsSum, ok := scoreBase(v, history, snapshot, ages[v.StashID], p)
		if !ok {
			continue
		}
		rv.IncludedThousandValidators = included[v.StashID]
		partials = append(partials, partial{rv: rv, eraPointsSum: pointsSum})
	}

	var totalPoints uint64
	for _, pt := range partials {
		totalPoints += pt.eraPointsSum
	}
	var avgPoints float64
	if len(partials) > 0 {
		avgPoints = float64(totalPoints) / float64(len(partials))
	}

	ranked := make([]types.RankedValidator, len(partials))
	for i, pt := range partials {
		rv := pt.rv
		if float64(pt.eraPointsSum) > avgPoints {
			rv.EraPointsRating = 2
		} else {
			rv.EraPointsRating = 0
		}
		rv.TotalRating = rv.ActiveRating + rv.AddressCreationRating + rv.IdentityRating +
			rv.SubAccountsRating + rv.NominatorsRating + rv.CommissionRating +
			rv.EraPointsRating + rv.SlashRating + rv.GovernanceRating + rv.PayoutRating
		ranked[i] = rv
	}

	applyRelativePerformance(ranked)
	sortAndRank(ranked)
	return ranked
}

// scoreBase computes every rating dimension except eraPointsRating (which
// needs the cross-validator average) and totalRating (which needs it too).
// Returns ok=false when a schema invariant is violated.
func scoreBase(v types.ValidatorRecord, history types.ValidatorHistory, snapshot types.Snapshot, age AccountAge, p Params) (types.RankedValidator, uint64, bool) {
	if v.Active && v.Exposure == nil {
		// Schema invariant violation: skip this validator rather than abort.
		return types.RankedValidator{}, 0, false
	}

	rv := types.RankedValidator{
		ValidatorRecord:      v,
		StashCreatedAtBlock:  age.StashBlock,
		ParentCreatedAtBlock: age.ParentBlock,
		Name:                 v.Identity.Name(),
	}

	scoreStake(&rv, v)
	scoreActive(&rv, v)
	scoreAddressCreation(&rv, p.BlockHeight)
	scoreIdentity(&rv, v.Identity)
	scoreSubAccounts(&rv, v.Identity)
	scoreNominators(&rv, v, snapshot, p)
	scoreCommission(&rv, v, history)
	scoreGovernance(&rv, v, snapshot)

	pointsSum := scorePerformanceAndPayout(&rv, v, history, p)
	scoreSlash(&rv, history)

	return rv, pointsSum, true
}

func scoreStake(rv *types.RankedValidator, v types.ValidatorRecord) {
	if v.Active {
		rv.SelfStake = v.Exposure.Own
		rv.TotalStake = v.Exposure.Total
		rv.OtherStake = types.SubStake(rv.TotalStake, rv.SelfStake)
		return
	}
	rv.SelfStake = v.StakingLedger.Total
	rv.TotalStake = rv.SelfStake
	rv.OtherStake = types.ZeroStake()
}

func scoreActive(rv *types.RankedValidator, v types.ValidatorRecord) {
	if v.Active {
		rv.ActiveRating = 2
	}
}

// scoreAddressCreation rates the best (earliest) of the stash's and its
// identity parent's creation blocks against the four H-relative bands.
func scoreAddressCreation(rv *types.RankedValidator, blockHeight uint64) {
	best := rv.StashCreatedAtBlock
	if rv.ParentCreatedAtBlock != nil && *rv.ParentCreatedAtBlock < best {
		best = *rv.ParentCreatedAtBlock
	}

	h := blockHeight
	switch {
	case best <= h/4:
		rv.AddressCreationRating = 3
	case best <= h/2:
		rv.AddressCreationRating = 2
	case best <= 3*h/4:
		rv.AddressCreationRating = 1
	default:
		rv.AddressCreationRating = 0
	}
}

func scoreIdentity(rv *types.RankedValidator, id types.Identity) {
	verified := id.Verified()
	allFields := id.AllFieldsSet()
	switch {
	case verified && allFields:
		rv.IdentityRating = 3
	case verified:
		rv.IdentityRating = 2
	case rv.Name != "":
		rv.IdentityRating = 1
	default:
		rv.IdentityRating = 0
	}
}

func scoreSubAccounts(rv *types.RankedValidator, id types.Identity) {
	if id.HasSubIdentity() {
		rv.SubAccountsRating = 2
	}
}

func scoreNominators(rv *types.RankedValidator, v types.ValidatorRecord, snapshot types.Snapshot, p Params) {
	if v.Active {
		rv.NominatorCount = len(v.Exposure.Others)
	} else {
		rv.NominatorCount = snapshot.TargetCount(v.StashID)
	}
	if rv.NominatorCount > 0 && rv.NominatorCount <= p.MaxNominatorRewardedPerValidator {
		rv.NominatorsRating = 2
	}
}

// scoreCommission builds commissionHistory (one entry per era in which the
// validator has recorded preferences or era points, with a null commission
// when that era has points but no preferences; eras with neither are not
// listed) and rates
// the current commission, comparing numeric commissions - not object
// identity - for the trending-down upgrade.
func scoreCommission(rv *types.RankedValidator, v types.ValidatorRecord, history types.ValidatorHistory) {
	prefsByEra := make(map[types.Era]types.Prefs, len(history.EraPrefs))
	for _, e := range history.EraPrefs {
		prefsByEra[e.Era] = e.Prefs
	}

	eras := make([]types.Era, 0, len(history.EraPoints)+len(history.EraPrefs))
	seen := make(map[types.Era]bool)
	for _, e := range history.EraPrefs {
		if !seen[e.Era] {
			seen[e.Era] = true
			eras = append(eras, e.Era)
		}
	}
	for _, e := range history.EraPoints {
		if !seen[e.Era] {
			seen[e.Era] = true
			eras = append(eras, e.Era)
		}
	}
	sort.Slice(eras, func(i, j int) bool { return eras[i] < eras[j] })

	var oldest, newest *float64
	entries := make([]types.CommissionHistoryEntry, 0, len(eras))
	for _, era := range eras {
		var entry types.CommissionHistoryEntry
		entry.Era = era
		if prefs, ok := prefsByEra[era]; ok {
			pct := prefs.Commission.Percent()
			entry.Commission = &pct
			if oldest == nil {
				oldest = &pct
			}
			newest = &pct
		}
		entries = append(entries, entry)
	}
	rv.CommissionHistory = entries

	commission := v.ValidatorPrefs.Commission.Percent()

	switch {
	case commission == 0 || commission == 100:
		rv.CommissionRating = 0
	case commission > 10:
		rv.CommissionRating = 1
	case commission >= 5:
		rv.CommissionRating = 2
		if oldest != nil && newest != nil && *oldest > *newest {
			rv.CommissionRating = 3
		}
	default:
		rv.CommissionRating = 3
	}
}

func scoreGovernance(rv *types.RankedValidator, v types.ValidatorRecord, snapshot types.Snapshot) {
	parent := v.Identity.Parent

	_, rv.CouncilBacking = snapshot.CouncilVoted[v.StashID]
	if !rv.CouncilBacking && parent != "" {
		if _, ok := snapshot.CouncilVoted[parent]; ok {
			rv.CouncilBacking = true
		}
	}

	_, stashGov := snapshot.GovActive[v.StashID]
	rv.ActiveInGovernance = stashGov
	if !rv.ActiveInGovernance && parent != "" {
		if _, ok := snapshot.GovActive[parent]; ok {
			rv.ActiveInGovernance = true
		}
	}

	switch {
	case rv.CouncilBacking && rv.ActiveInGovernance:
		rv.GovernanceRating = 3
	case rv.CouncilBacking || rv.ActiveInGovernance:
		rv.GovernanceRating = 2
	default:
		rv.GovernanceRating = 0
	}
}

// scorePerformanceAndPayout walks the eras in which the validator has an
// exposure or era points, building eraPointsHistory and payoutHistory,
// accumulates performance, and returns the era-points sum used later for the
// cross-validator average. An era with points but no exposure contributes
// zero and is recorded as inactive in both histories; eras with neither an
// exposure nor points are not listed.
func scorePerformanceAndPayout(rv *types.RankedValidator, v types.ValidatorRecord, history types.ValidatorHistory, p Params) uint64 {
	pointsByEra := make(map[types.Era]uint64, len(history.EraPoints))
	for _, e := range history.EraPoints {
		pointsByEra[e.Era] = e.Points
	}

	commissionFraction := v.ValidatorPrefs.Commission.Percent() / 100

	var pointsHistory []types.EraPointsHistoryEntry
	var payoutHistory []types.PayoutHistoryEntry
	var performance float64
	var pointsSum uint64
	activeEras := 0

	eras := make([]types.Era, 0, len(history.Exposures)+len(history.EraPoints))
	seen := make(map[types.Era]bool)
	addEra := func(e types.Era) {
		if !seen[e] {
			seen[e] = true
			eras = append(eras, e)
		}
	}
	for e := range history.Exposures {
		addEra(e)
	}
	for _, e := range history.EraPoints {
		addEra(e.Era)
	}
	sort.Slice(eras, func(i, j int) bool { return eras[i] < eras[j] })

	for _, era := range eras {
		exposure, active := history.Exposures[era]
		if !active {
			pointsHistory = append(pointsHistory, types.EraPointsHistoryEntry{Era: era, Points: 0, Status: "inactive"})
			payoutHistory = append(payoutHistory, types.PayoutHistoryEntry{Era: era, Status: types.PayoutInactive})
			continue
		}

		activeEras++
		points := pointsByEra[era]
		pointsSum += points
		pointsHistory = append(pointsHistory, types.EraPointsHistoryEntry{Era: era, Points: points, Status: "active"})

		if v.StakingLedger.ClaimedReward(era) {
			payoutHistory = append(payoutHistory, types.PayoutHistoryEntry{Era: era, Status: types.PayoutPaid})
		} else {
			payoutHistory = append(payoutHistory, types.PayoutHistoryEntry{Era: era, Status: types.PayoutPending})
		}

		eraTotalStakeNormalized := normalizeStake(exposure.Total, p.TokenDecimals)
		if eraTotalStakeNormalized > 0 {
			performance += (float64(points) * (1 - commissionFraction)) / eraTotalStakeNormalized
		}
	}

	rv.EraPointsHistory = pointsHistory
	rv.PayoutHistory = payoutHistory
	rv.Performance = performance
	rv.ActiveEras = activeEras

	pending := 0
	for _, e := range payoutHistory {
		if e.Status == types.PayoutPending {
			pending++
		}
	}
	erasPerDay := p.ErasPerDay
	switch {
	case pending <= int(erasPerDay):
		rv.PayoutRating = 3
	case pending <= int(3*erasPerDay):
		rv.PayoutRating = 2
	case pending < int(7*erasPerDay):
		rv.PayoutRating = 1
	default:
		rv.PayoutRating = 0
	}

	return pointsSum
}

func scoreSlash(rv *types.RankedValidator, history types.ValidatorHistory) {
	rv.Slashes = history.Slashes
	if len(history.Slashes) == 0 {
		rv.SlashRating = 2
	}
}

// normalizeStake converts a raw Stake quantity to a float64 divided by
// 10^tokenDecimals, per the performance formula's eraTotalStake normalization.
func normalizeStake(s types.Stake, tokenDecimals uint32) float64 {
	f := new(big.Float).SetInt(s)
	divisor := new(big.Float).SetFloat64(math.Pow(10, float64(tokenDecimals)))
	f.Quo(f, divisor)
	result, _ := f.Float64()
	return result
}

// applyRelativePerformance normalizes performance into [0,1] across the
// whole ranked set. minPerf is deliberately initialized to 0, not +Inf: if
// every performance is non-negative, the minimum used is min(0, actual min),
// biasing relativePerformance upward. This is intentional, not a bug. When
// every performance is equal (including a single validator), every
// relativePerformance is 0.
func applyRelativePerformance(ranked []types.RankedValidator) {
	if len(ranked) == 0 {
		return
	}

	minPerf := 0.0
	maxPerf := ranked[0].Performance
	allEqual := true
	for _, rv := range ranked {
		if rv.Performance != ranked[0].Performance {
			allEqual = false
		}
		if rv.Performance < minPerf {
			minPerf = rv.Performance
		}
		if rv.Performance > maxPerf {
			maxPerf = rv.Performance
		}
	}

	for i := range ranked {
		if allEqual || maxPerf == minPerf {
			ranked[i].RelativePerformance = 0
			continue
		}
		rel := (ranked[i].Performance - minPerf) / (maxPerf - minPerf)
		ranked[i].RelativePerformance = math.Round(rel*1e6) / 1e6
	}
}

// sortAndRank sorts descending by totalRating (stable, ties broken by input
// order) and assigns the dense 1-based rank.
func sortAndRank(ranked []types.RankedValidator) {
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].TotalRating > ranked[j].TotalRating
	})
	for i := range ranked {
		ranked[i].Rank = i + 1
	}
}
