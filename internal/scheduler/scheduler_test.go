package scheduler

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingReaper struct {
	calls int32
	idle  atomic.Value
}

func (r *countingReaper) ReapIdle(_ context.Context, idle time.Duration) int {
	atomic.AddInt32(&r.calls, 1)
	r.idle.Store(idle)
	return 2
}

func TestReapOnce(t *testing.T) {
	r := &countingReaper{}
	n := ReapOnce(context.Background(), r, 30*time.Minute, zerolog.Nop())
	assert.Equal(t, 2, n)
	assert.Equal(t, 30*time.Minute, r.idle.Load())
}

func TestReapOnceSkipsAfterShutdown(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	r := &countingReaper{}
	assert.Zero(t, ReapOnce(ctx, r, time.Minute, zerolog.Nop()))
	assert.Zero(t, atomic.LoadInt32(&r.calls))
}

func TestSchedulerRunsReaper(t *testing.T) {
	r := &countingReaper{}
	s := New(context.Background(), zerolog.Nop())
	require.NoError(t, s.AddIdleReaper("@every 1s", r, time.Minute))
	require.Error(t, s.AddIdleReaper("not a spec", r, time.Minute))

	s.Start()
	defer s.Stop()

	assert.Eventually(t, func() bool {
		return atomic.LoadInt32(&r.calls) > 0
	}, 3*time.Second, 50*time.Millisecond)
}
