package scheduler

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

func TestScheduler_RunsAfterStartDelayThenOnEveryInterval(t *testing.T) {
	var count atomic.Int32
	ctx, cancel := context.WithCancel(context.Background())

	s := New(5*time.Millisecond, 5*time.Millisecond, func(ctx context.Context) error {
		count.Add(1)
		return nil
	}, zap.NewNop())

	s.Start(ctx)
	time.Sleep(40 * time.Millisecond)
	cancel()
	s.Stop()

	assert.GreaterOrEqual(t, int(count.Load()), 2)
}

func TestScheduler_ReArmsAfterRunError(t *testing.T) {
	var count atomic.Int32
	ctx, cancel := context.WithCancel(context.Background())

	s := New(0, 5*time.Millisecond, func(ctx context.Context) error {
		count.Add(1)
		return assert.AnError
	}, zap.NewNop())

	s.Start(ctx)
	time.Sleep(25 * time.Millisecond)
	cancel()
	s.Stop()

	assert.GreaterOrEqual(t, int(count.Load()), 2)
}

func TestScheduler_StopsPromptlyOnCancelDuringStartDelay(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	ran := false

	s := New(time.Hour, time.Hour, func(ctx context.Context) error {
		ran = true
		return nil
	}, zap.NewNop())

	s.Start(ctx)
	cancel()
	s.Stop()

	assert.False(t, ran)
}
