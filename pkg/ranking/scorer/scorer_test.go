package scorer

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/canopy-network/validator-ranker/pkg/ranking/types"
)

func perbill(percent float64) types.PerbillInt {
	return types.PerbillInt(percent * 1e7)
}

func TestScoreAddressCreation_Bands(t *testing.T) {
	const h = 1000
	cases := []struct {
		name  string
		block uint64
		want  int
	}{
		{"within first quarter", h / 4, 3},
		{"within second quarter", h / 2, 2},
		{"within third quarter", 3 * h / 4, 1},
		{"past third quarter", h, 0},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			rv := &types.RankedValidator{StashCreatedAtBlock: c.block}
			scoreAddressCreation(rv, h)
			assert.Equal(t, c.want, rv.AddressCreationRating)
		})
	}
}

func TestScoreAddressCreation_UsesBetterOfStashAndParent(t *testing.T) {
	const h = 1000
	parentBlock := uint64(10)
	rv := &types.RankedValidator{StashCreatedAtBlock: h, ParentCreatedAtBlock: &parentBlock}
	scoreAddressCreation(rv, h)
	assert.Equal(t, 3, rv.AddressCreationRating)
}

func TestScoreIdentity_Bands(t *testing.T) {
	cases := []struct {
		name string
		id   types.Identity
		want int
	}{
		{"verified and all fields", types.Identity{
			Display: "a", Legal: "b", Web: "c", Email: "d", Twitter: "e", Riot: "f",
			Judgements: []types.Judgement{{Kind: types.JudgementKnownGood}},
		}, 3},
		{"verified only", types.Identity{
			Display:    "a",
			Judgements: []types.Judgement{{Kind: types.JudgementReasonable}},
		}, 2},
		{"name set, not verified", types.Identity{Display: "a"}, 1},
		{"nothing set", types.Identity{}, 0},
		{"fee paid judgement does not count as verified", types.Identity{
			Display:    "a",
			Judgements: []types.Judgement{{Kind: types.JudgementFeePaid}},
		}, 1},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			rv := &types.RankedValidator{Name: c.id.Name()}
			scoreIdentity(rv, c.id)
			assert.Equal(t, c.want, rv.IdentityRating)
		})
	}
}

func TestScoreSubAccounts(t *testing.T) {
	rv := &types.RankedValidator{}
	scoreSubAccounts(rv, types.Identity{DisplayParent: "parent"})
	assert.Equal(t, 2, rv.SubAccountsRating)

	rv = &types.RankedValidator{}
	scoreSubAccounts(rv, types.Identity{})
	assert.Equal(t, 0, rv.SubAccountsRating)
}

func TestScoreNominators_ActiveUsesExposureOthers(t *testing.T) {
	v := types.ValidatorRecord{
		Active: true,
		Exposure: &types.Exposure{
			Others: []types.Nominee{{Who: "a"}, {Who: "b"}},
		},
	}
	rv := &types.RankedValidator{}
	scoreNominators(rv, v, types.Snapshot{}, Params{MaxNominatorRewardedPerValidator: 512})
	assert.Equal(t, 2, rv.NominatorCount)
	assert.Equal(t, 2, rv.NominatorsRating)
}

func TestScoreNominators_WaitingUsesTargetCount(t *testing.T) {
	v := types.ValidatorRecord{StashID: "v1", Active: false}
	snapshot := types.Snapshot{Nominations: []types.NominatorEntry{
		{Nominator: "n1", Targets: []string{"v1"}},
		{Nominator: "n2", Targets: []string{"v2"}},
	}}
	rv := &types.RankedValidator{}
	scoreNominators(rv, v, snapshot, Params{MaxNominatorRewardedPerValidator: 512})
	assert.Equal(t, 1, rv.NominatorCount)
	assert.Equal(t, 2, rv.NominatorsRating)
}

func TestScoreNominators_ZeroOrOverMaxRatesZero(t *testing.T) {
	v := types.ValidatorRecord{Active: true, Exposure: &types.Exposure{Others: []types.Nominee{{Who: "a"}, {Who: "b"}, {Who: "c"}}}}
	rv := &types.RankedValidator{}
	scoreNominators(rv, v, types.Snapshot{}, Params{MaxNominatorRewardedPerValidator: 2})
	assert.Equal(t, 0, rv.NominatorsRating)

	v = types.ValidatorRecord{Active: true, Exposure: &types.Exposure{}}
	rv = &types.RankedValidator{}
	scoreNominators(rv, v, types.Snapshot{}, Params{MaxNominatorRewardedPerValidator: 512})
	assert.Equal(t, 0, rv.NominatorsRating)
}

func TestScoreCommission_Bands(t *testing.T) {
	cases := []struct {
		name    string
		current float64
		want    int
	}{
		{"zero is 0", 0, 0},
		{"one hundred is 0", 100, 0},
		{"above ten", 15, 1},
		{"exactly ten", 10, 2},
		{"exactly five", 5, 2},
		{"below five", 3, 3},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			v := types.ValidatorRecord{ValidatorPrefs: types.Prefs{Commission: perbill(c.current)}}
			rv := &types.RankedValidator{}
			scoreCommission(rv, v, types.ValidatorHistory{})
			assert.Equal(t, c.want, rv.CommissionRating)
		})
	}
}

func TestScoreCommission_TrendingDownUpgradesMidBandToThree(t *testing.T) {
	v := types.ValidatorRecord{ValidatorPrefs: types.Prefs{Commission: perbill(7)}}
	history := types.ValidatorHistory{
		EraPrefs: []types.EraPrefsEntry{
			{Era: 1, Prefs: types.Prefs{Commission: perbill(9)}},
			{Era: 2, Prefs: types.Prefs{Commission: perbill(7)}},
		},
	}
	rv := &types.RankedValidator{}
	scoreCommission(rv, v, history)
	assert.Equal(t, 3, rv.CommissionRating)
	require.Len(t, rv.CommissionHistory, 2)
	assert.Equal(t, 9.0, *rv.CommissionHistory[0].Commission)
	assert.Equal(t, 7.0, *rv.CommissionHistory[1].Commission)
}

func TestScoreCommission_TrendingUpStaysAtTwo(t *testing.T) {
	v := types.ValidatorRecord{ValidatorPrefs: types.Prefs{Commission: perbill(8)}}
	history := types.ValidatorHistory{
		EraPrefs: []types.EraPrefsEntry{
			{Era: 1, Prefs: types.Prefs{Commission: perbill(6)}},
			{Era: 2, Prefs: types.Prefs{Commission: perbill(8)}},
		},
	}
	rv := &types.RankedValidator{}
	scoreCommission(rv, v, history)
	assert.Equal(t, 2, rv.CommissionRating)
}

func TestScoreCommission_EraAbsentFromPrefsIsNilInHistory(t *testing.T) {
	v := types.ValidatorRecord{ValidatorPrefs: types.Prefs{Commission: perbill(3)}}
	history := types.ValidatorHistory{
		EraPoints: []types.EraPointsEntry{{Era: 5, Points: 100}},
	}
	rv := &types.RankedValidator{}
	scoreCommission(rv, v, history)
	require.Len(t, rv.CommissionHistory, 1)
	assert.Nil(t, rv.CommissionHistory[0].Commission)
}

func TestScoreGovernance_Combinations(t *testing.T) {
	cases := []struct {
		name     string
		council  bool
		govActiv bool
		want     int
	}{
		{"neither", false, false, 0},
		{"council only", true, false, 2},
		{"governance only", false, true, 2},
		{"both", true, true, 3},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			snapshot := types.Snapshot{CouncilVoted: map[string]struct{}{}, GovActive: map[string]struct{}{}}
			if c.council {
				snapshot.CouncilVoted["v1"] = struct{}{}
			}
			if c.govActiv {
				snapshot.GovActive["v1"] = struct{}{}
			}
			v := types.ValidatorRecord{StashID: "v1"}
			rv := &types.RankedValidator{}
			scoreGovernance(rv, v, snapshot)
			assert.Equal(t, c.want, rv.GovernanceRating)
		})
	}
}

func TestScoreGovernance_FallsBackToIdentityParent(t *testing.T) {
	snapshot := types.Snapshot{
		CouncilVoted: map[string]struct{}{"parent1": {}},
		GovActive:    map[string]struct{}{},
	}
	v := types.ValidatorRecord{StashID: "sub1", Identity: types.Identity{Parent: "parent1"}}
	rv := &types.RankedValidator{}
	scoreGovernance(rv, v, snapshot)
	assert.True(t, rv.CouncilBacking)
	assert.Equal(t, 2, rv.GovernanceRating)
}

func TestScoreSlash(t *testing.T) {
	rv := &types.RankedValidator{}
	scoreSlash(rv, types.ValidatorHistory{})
	assert.Equal(t, 2, rv.SlashRating)

	rv = &types.RankedValidator{}
	scoreSlash(rv, types.ValidatorHistory{Slashes: []types.SlashEntry{{Era: 1, Amount: big.NewInt(5)}}})
	assert.Equal(t, 0, rv.SlashRating)
}

func TestScorePerformanceAndPayout_PayoutBands(t *testing.T) {
	buildHistory := func(pendingEras int) types.ValidatorHistory {
		exposures := make(map[types.Era]types.Exposure, pendingEras)
		points := make([]types.EraPointsEntry, 0, pendingEras)
		for i := 0; i < pendingEras; i++ {
			era := types.Era(i)
			exposures[era] = types.Exposure{Total: big.NewInt(1_000_000_000_000)}
			points = append(points, types.EraPointsEntry{Era: era, Points: 100})
		}
		return types.ValidatorHistory{Exposures: exposures, EraPoints: points}
	}

	cases := []struct {
		name          string
		pendingEras   int
		erasPerDay    uint32
		wantRating    int
	}{
		{"at or below erasPerDay is 3", 4, 4, 3},
		{"above erasPerDay up to 3x is 2", 10, 4, 2},
		{"above 3x up to 7x is 1", 20, 4, 1},
		{"at or above 7x is 0", 28, 4, 0},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			v := types.ValidatorRecord{StakingLedger: types.StakingLedger{}}
			rv := &types.RankedValidator{}
			scorePerformanceAndPayout(rv, v, buildHistory(c.pendingEras), Params{ErasPerDay: c.erasPerDay, TokenDecimals: 12})
			assert.Equal(t, c.wantRating, rv.PayoutRating)
			assert.Equal(t, c.pendingEras, rv.ActiveEras)
		})
	}
}

func TestScorePerformanceAndPayout_ClaimedRewardMarksPaid(t *testing.T) {
	v := types.ValidatorRecord{StakingLedger: types.StakingLedger{ClaimedRewards: []types.Era{1}}}
	history := types.ValidatorHistory{
		Exposures: map[types.Era]types.Exposure{1: {Total: big.NewInt(1_000_000_000_000)}},
		EraPoints: []types.EraPointsEntry{{Era: 1, Points: 50}},
	}
	rv := &types.RankedValidator{}
	scorePerformanceAndPayout(rv, v, history, Params{ErasPerDay: 4, TokenDecimals: 12})
	require.Len(t, rv.PayoutHistory, 1)
	assert.Equal(t, types.PayoutPaid, rv.PayoutHistory[0].Status)
}

func TestScorePerformanceAndPayout_InactiveEraContributesZero(t *testing.T) {
	v := types.ValidatorRecord{}
	history := types.ValidatorHistory{
		Exposures: map[types.Era]types.Exposure{2: {Total: big.NewInt(1_000_000_000_000)}},
		EraPoints: []types.EraPointsEntry{{Era: 1, Points: 999}, {Era: 2, Points: 100}},
	}
	rv := &types.RankedValidator{}
	scorePerformanceAndPayout(rv, v, history, Params{ErasPerDay: 4, TokenDecimals: 12})
	require.Len(t, rv.EraPointsHistory, 2)
	assert.Equal(t, "inactive", rv.EraPointsHistory[0].Status)
	assert.Equal(t, uint64(0), rv.EraPointsHistory[0].Points)
	assert.Equal(t, 1, rv.ActiveEras)
}

// TestScoreAll_TinyWorldTwoValidators covers a minimal two-validator world:
// one at least as good as the other on every dimension and strictly better
// on several should rank first,
// totalRating must equal the sum of its own components, and rank is dense
// and 1-based.
func TestScoreAll_TinyWorldTwoValidators(t *testing.T) {
	strong := types.ValidatorRecord{
		StashID: "strong",
		Active:  true,
		Identity: types.Identity{
			Display: "a", Legal: "b", Web: "c", Email: "d", Twitter: "e", Riot: "f",
			Judgements: []types.Judgement{{Kind: types.JudgementKnownGood}},
		},
		Exposure: &types.Exposure{
			Own:   big.NewInt(1000),
			Total: big.NewInt(1100),
			Others: []types.Nominee{
				{Who: "n1", Value: big.NewInt(100)},
			},
		},
		ValidatorPrefs: types.Prefs{Commission: perbill(3)},
	}
	weak := types.ValidatorRecord{
		StashID: "weak",
		Active:  true,
		Exposure: &types.Exposure{
			Own:   big.NewInt(10),
			Total: big.NewInt(10),
		},
		ValidatorPrefs: types.Prefs{Commission: perbill(100)},
	}

	snapshot := types.Snapshot{
		BlockHeight: 1000,
		Validators:  []types.ValidatorRecord{strong, weak},
		History:     map[string]types.ValidatorHistory{},
	}
	ages := map[string]AccountAge{
		"strong": {StashBlock: 1},
		"weak":   {StashBlock: 999},
	}

	ranked := ScoreAll(snapshot, ages, nil, Params{BlockHeight: 1000, ErasPerDay: 4, TokenDecimals: 12, MaxNominatorRewardedPerValidator: 512})

	require.Len(t, ranked, 2)
	assert.Equal(t, "strong", ranked[0].StashID)
	assert.Equal(t, 1, ranked[0].Rank)
	assert.Equal(t, "weak", ranked[1].StashID)
	assert.Equal(t, 2, ranked[1].Rank)
	assert.Greater(t, ranked[0].TotalRating, ranked[1].TotalRating)

	for _, rv := range ranked {
		want := rv.ActiveRating + rv.AddressCreationRating + rv.IdentityRating +
			rv.SubAccountsRating + rv.NominatorsRating + rv.CommissionRating +
			rv.EraPointsRating + rv.SlashRating + rv.GovernanceRating + rv.PayoutRating
		assert.Equal(t, want, rv.TotalRating)
	}
}

// TestScoreAll_CommissionExactlyOneHundredPercentRatesZero covers the
// commission-at-the-upper-boundary case: a validator charging exactly 100%
// commission gets commissionRating 0, not the >10% band's rating of 1.
func TestScoreAll_CommissionExactlyOneHundredPercentRatesZero(t *testing.T) {
	v := types.ValidatorRecord{
		StashID:        "v1",
		Active:         true,
		Exposure:       &types.Exposure{Own: big.NewInt(10), Total: big.NewInt(10)},
		ValidatorPrefs: types.Prefs{Commission: perbill(100)},
	}
	snapshot := types.Snapshot{BlockHeight: 100, Validators: []types.ValidatorRecord{v}}

	ranked := ScoreAll(snapshot, map[string]AccountAge{}, nil, Params{BlockHeight: 100, ErasPerDay: 4, TokenDecimals: 12, MaxNominatorRewardedPerValidator: 512})

	require.Len(t, ranked, 1)
	assert.Equal(t, 0, ranked[0].CommissionRating)
}

func TestScoreAll_SkipsActiveValidatorMissingExposure(t *testing.T) {
	snapshot := types.Snapshot{
		BlockHeight: 100,
		Validators: []types.ValidatorRecord{
			{StashID: "broken", Active: true, Exposure: nil},
			{StashID: "ok", Active: false, StakingLedger: types.StakingLedger{Total: big.NewInt(1)}},
		},
	}
	ranked := ScoreAll(snapshot, map[string]AccountAge{}, nil, Params{BlockHeight: 100, ErasPerDay: 4, TokenDecimals: 12, MaxNominatorRewardedPerValidator: 512})
	require.Len(t, ranked, 1)
	assert.Equal(t, "ok", ranked[0].StashID)
}

func TestApplyRelativePerformance_MinInitializedToZeroNotNegativeInfinity(t *testing.T) {
	ranked := []types.RankedValidator{
		{Performance: 10},
		{Performance: 20},
	}
	applyRelativePerformance(ranked)
	// True min(0, 10, 20) is 0, not 10, so 10 does not map to 0.
	assert.InDelta(t, 0.5, ranked[0].RelativePerformance, 1e-9)
	assert.InDelta(t, 1.0, ranked[1].RelativePerformance, 1e-9)
}

func TestApplyRelativePerformance_AllEqualIsZero(t *testing.T) {
	ranked := []types.RankedValidator{{Performance: 5}, {Performance: 5}}
	applyRelativePerformance(ranked)
	assert.Equal(t, 0.0, ranked[0].RelativePerformance)
	assert.Equal(t, 0.0, ranked[1].RelativePerformance)
}

func TestSortAndRank_DenseOneBasedDescending(t *testing.T) {
	ranked := []types.RankedValidator{
		{TotalRating: 5},
		{TotalRating: 10},
		{TotalRating: 5},
	}
	sortAndRank(ranked)
	assert.Equal(t, 10, ranked[0].TotalRating)
	assert.Equal(t, 1, ranked[0].Rank)
	assert.Equal(t, 2, ranked[1].Rank)
	assert.Equal(t, 3, ranked[2].Rank)
}
