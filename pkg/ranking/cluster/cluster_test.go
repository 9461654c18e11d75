package cluster

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/canopy-network/validator-ranker/pkg/ranking/types"
)

func displayParentValidator(parent string) types.RankedValidator {
	return types.RankedValidator{
		ValidatorRecord: types.ValidatorRecord{
			Identity: types.Identity{DisplayParent: parent, Display: "sub"},
		},
	}
}

func TestAnalyze_ClusterSizeTwelveHidesExactlyFive(t *testing.T) {
	ranked := make([]types.RankedValidator, 12)
	for i := range ranked {
		ranked[i] = displayParentValidator("Big Cluster")
	}

	Analyze(ranked)

	hidden := 0
	for _, rv := range ranked {
		require.Equal(t, 12, rv.ClusterMembers)
		require.True(t, rv.PartOfCluster)
		if !rv.ShowClusterMember {
			hidden++
		}
	}
	assert.Equal(t, 5, hidden)
}

func TestAnalyze_SingletonNeverPartOfCluster(t *testing.T) {
	ranked := []types.RankedValidator{
		{ValidatorRecord: types.ValidatorRecord{Identity: types.Identity{Display: "Solo"}}},
	}
	Analyze(ranked)
	assert.False(t, ranked[0].PartOfCluster)
	assert.True(t, ranked[0].ShowClusterMember)
}

func TestAnalyze_NoDisplayHasEmptyClusterName(t *testing.T) {
	ranked := []types.RankedValidator{{}}
	Analyze(ranked)
	assert.Equal(t, "", ranked[0].ClusterName)
	assert.Equal(t, 0, ranked[0].ClusterMembers)
}

func TestAnalyze_PrefixClusterGroupsByFirstSixRunes(t *testing.T) {
	ranked := []types.RankedValidator{
		{ValidatorRecord: types.ValidatorRecord{Identity: types.Identity{Display: "Stakin1"}}},
		{ValidatorRecord: types.ValidatorRecord{Identity: types.Identity{Display: "Stakin2"}}},
		{ValidatorRecord: types.ValidatorRecord{Identity: types.Identity{Display: "Other"}}},
	}
	Analyze(ranked)
	assert.Equal(t, 2, ranked[0].ClusterMembers)
	assert.Equal(t, "Stakin", ranked[0].ClusterName)
	assert.Equal(t, 1, ranked[2].ClusterMembers)
}

func TestAnalyze_PrefixClusterWithDistinctNamesHidesByTrueMembership(t *testing.T) {
	ranked := []types.RankedValidator{
		{ValidatorRecord: types.ValidatorRecord{Identity: types.Identity{Display: "StakinA"}}},
		{ValidatorRecord: types.ValidatorRecord{Identity: types.Identity{Display: "StakinB"}}},
		{ValidatorRecord: types.ValidatorRecord{Identity: types.Identity{Display: "StakinC"}}},
	}

	Analyze(ranked)

	hidden := 0
	for _, rv := range ranked {
		require.Equal(t, 3, rv.ClusterMembers)
		require.True(t, rv.PartOfCluster)
		if !rv.ShowClusterMember {
			hidden++
		}
	}
	assert.Equal(t, 1, hidden)
}

func TestAnalyze_DisplayParentAndPrefixClustersDoNotMerge(t *testing.T) {
	ranked := []types.RankedValidator{
		displayParentValidator("Prefix1"),
		displayParentValidator("Prefix1"),
		{ValidatorRecord: types.ValidatorRecord{Identity: types.Identity{Display: "Prefix1"}}},
	}

	Analyze(ranked)

	assert.Equal(t, 2, ranked[0].ClusterMembers)
	assert.Equal(t, 2, ranked[1].ClusterMembers)
	assert.Equal(t, 1, ranked[2].ClusterMembers)
	assert.False(t, ranked[2].PartOfCluster)
}

func TestShow_Bands(t *testing.T) {
	cases := []struct {
		size int
		want int
	}{
		{2, 2},
		{10, 8},
		{12, 7},
		{20, 12},
		{50, 20},
		{100, 20},
	}
	for _, c := range cases {
		t.Run(fmt.Sprintf("size=%d", c.size), func(t *testing.T) {
			assert.Equal(t, c.want, show(c.size))
		})
	}
}
