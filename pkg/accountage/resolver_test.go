package accountage

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestResolveAll_EmptyStashListNeverTouchesDB(t *testing.T) {
	r := NewResolver(nil, zap.NewNop())
	results, err := r.ResolveAll(context.Background(), nil, nil)
	require.NoError(t, err)
	assert.Empty(t, results)
}
