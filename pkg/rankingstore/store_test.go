package rankingstore

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/canopy-network/validator-ranker/pkg/ranking/types"
)

func TestToRow_ColumnCountMatchesSchema(t *testing.T) {
	rv := types.RankedValidator{
		ValidatorRecord: types.ValidatorRecord{StashID: "stash1"},
		SelfStake:       types.ZeroStake(),
		TotalStake:      types.ZeroStake(),
		OtherStake:      types.ZeroStake(),
	}
	row, err := toRow(100, rv, time.Now())
	require.NoError(t, err)
	assert.Len(t, row, len(RankingColumns))
}

func TestStakeString_NilIsZero(t *testing.T) {
	assert.Equal(t, "0", stakeString(nil))
}

func TestColumnList_JoinsNamesWithCommaSpace(t *testing.T) {
	cols := []ColumnDef{{Name: "a"}, {Name: "b"}, {Name: "c"}}
	assert.Equal(t, "a, b, c", columnList(cols))
}
