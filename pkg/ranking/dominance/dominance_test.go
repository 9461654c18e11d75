package dominance

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/canopy-network/validator-ranker/pkg/ranking/types"
)

func validator(relPerf float64, selfStake int64, activeEras, totalRating int) types.RankedValidator {
	return types.RankedValidator{
		RelativePerformance: relPerf,
		SelfStake:           big.NewInt(selfStake),
		ActiveEras:          activeEras,
		TotalRating:         totalRating,
	}
}

func TestMark_StrictlyBetterDominatesWorse(t *testing.T) {
	ranked := []types.RankedValidator{
		validator(0.9, 100, 10, 20),
		validator(0.5, 50, 5, 10),
	}
	Mark(ranked)
	assert.False(t, ranked[0].Dominated)
	assert.True(t, ranked[1].Dominated)
}

func TestMark_TiesDominateEachOther(t *testing.T) {
	ranked := []types.RankedValidator{
		validator(0.5, 100, 5, 10),
		validator(0.5, 100, 5, 10),
	}
	Mark(ranked)
	assert.True(t, ranked[0].Dominated)
	assert.True(t, ranked[1].Dominated)
}

func TestMark_IncomparableNeitherDominated(t *testing.T) {
	ranked := []types.RankedValidator{
		validator(0.9, 10, 1, 1),
		validator(0.1, 1000, 50, 30),
	}
	Mark(ranked)
	assert.False(t, ranked[0].Dominated)
	assert.False(t, ranked[1].Dominated)
}
