package pipeline

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/canopy-network/validator-ranker/pkg/ranking/types"
)

func TestComputeTotals_CountsAndMinimumNominationValue(t *testing.T) {
	snapshot := types.Snapshot{
		CurrentEra:  42,
		Nominations: []types.NominatorEntry{{Nominator: "n1", Targets: []string{"v1"}}},
		Validators: []types.ValidatorRecord{
			{
				StashID: "v1",
				Active:  true,
				Exposure: &types.Exposure{
					Own:   big.NewInt(100),
					Total: big.NewInt(150),
					Others: []types.Nominee{
						{Who: "n1", Value: big.NewInt(50)},
						{Who: "n2", Value: big.NewInt(10)},
					},
				},
			},
			{StashID: "v2", Active: false, StakingLedger: types.StakingLedger{Total: big.NewInt(200)}},
		},
	}

	totals := computeTotals(snapshot)

	assert.Equal(t, 1, totals.ActiveValidatorCount)
	assert.Equal(t, 1, totals.WaitingValidatorCount)
	assert.Equal(t, 1, totals.NominatorCount)
	assert.Equal(t, types.Era(42), totals.CurrentEra)
	assert.Equal(t, "10", totals.MinimumStake.String())
}

func TestComputeTotals_NoActiveExposuresYieldsZeroMinimum(t *testing.T) {
	snapshot := types.Snapshot{
		Validators: []types.ValidatorRecord{{StashID: "v1", Active: false}},
	}
	totals := computeTotals(snapshot)
	assert.Equal(t, "0", totals.MinimumStake.String())
}
