package workerpool

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRun_AllTasksCompleteExactlyOnce(t *testing.T) {
	for _, n := range []int{0, 1, 4, 5, 6, 50} {
		tasks := make([]int, n)
		for i := range tasks {
			tasks[i] = i * 10
		}

		var calls atomic.Int64
		out, err := Run(context.Background(), tasks, 5, func(_ context.Context, idx int, task int) int {
			calls.Add(1)
			return task + 1
		})
		require.NoError(t, err)
		require.Len(t, out.Completed, n)
		assert.Empty(t, out.Pending)
		assert.Equal(t, int64(n), calls.Load())

		// Results arrive in submission order with the right values.
		for i, tr := range out.Completed {
			assert.Equal(t, i, tr.Index)
			assert.Equal(t, i*10+1, tr.Value)
		}
	}
}

func TestRun_ConcurrencyBoundHolds(t *testing.T) {
	const limit = 3
	const n = 60

	var inFlight atomic.Int64
	var maxSeen atomic.Int64
	tasks := make([]struct{}, n)

	out, err := Run(context.Background(), tasks, limit, func(_ context.Context, idx int, _ struct{}) int {
		cur := inFlight.Add(1)
		for {
			prev := maxSeen.Load()
			if cur <= prev || maxSeen.CompareAndSwap(prev, cur) {
				break
			}
		}
		time.Sleep(time.Millisecond)
		inFlight.Add(-1)
		return idx
	})
	require.NoError(t, err)
	require.Len(t, out.Completed, n)
	assert.LessOrEqual(t, maxSeen.Load(), int64(limit))
	assert.LessOrEqual(t, out.MaxInFlight, limit)
	assert.GreaterOrEqual(t, out.MaxInFlight, 1)
}

func TestRun_LimitLargerThanTasks(t *testing.T) {
	out, err := Run(context.Background(), []int{1, 2}, 100, func(_ context.Context, idx int, task int) int {
		return task
	})
	require.NoError(t, err)
	assert.Len(t, out.Completed, 2)
	assert.LessOrEqual(t, out.MaxInFlight, 2)
}

func TestRun_ZeroLimitMeansSerial(t *testing.T) {
	out, err := Run(context.Background(), []int{1, 2, 3}, 0, func(_ context.Context, idx int, task int) int {
		return task
	})
	require.NoError(t, err)
	assert.Len(t, out.Completed, 3)
	assert.Equal(t, 1, out.MaxInFlight)
}

func TestRun_CancellationPartitionsTasks(t *testing.T) {
	const n = 20
	ctx, cancel := context.WithCancel(context.Background())

	var started atomic.Int64
	firstWave := make(chan struct{})
	release := make(chan struct{})
	go func() {
		// Cancel once the first wave is running, then let it finish.
		<-firstWave
		cancel()
		close(release)
	}()

	tasks := make([]int, n)
	out, err := Run(ctx, tasks, 2, func(_ context.Context, idx int, _ int) int {
		if started.Add(1) == 2 {
			close(firstWave)
		}
		<-release
		return idx
	})
	require.NoError(t, err)

	// Every submitted task is accounted for exactly once, and in-flight
	// tasks at cancellation finished and kept their results.
	assert.Equal(t, n, len(out.Completed)+len(out.Pending))
	assert.NotEmpty(t, out.Completed)
	assert.NotEmpty(t, out.Pending)

	seen := map[int]bool{}
	for _, tr := range out.Completed {
		assert.False(t, seen[tr.Index])
		seen[tr.Index] = true
		assert.Equal(t, tr.Index, tr.Value)
	}
	for _, idx := range out.Pending {
		assert.False(t, seen[idx])
		seen[idx] = true
	}
	assert.Len(t, seen, n)
}

func TestRun_PreCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var calls atomic.Int64
	out, err := Run(ctx, make([]int, 10), 3, func(_ context.Context, idx int, _ int) int {
		calls.Add(1)
		return idx
	})
	require.NoError(t, err)
	// The feeder may or may not have raced a task in; the partition still
	// covers every index.
	assert.Equal(t, 10, len(out.Completed)+len(out.Pending))
	assert.Equal(t, int64(len(out.Completed)), calls.Load())
}

func TestRun_ResultsIndexedNotHandleMatched(t *testing.T) {
	// All tasks carry identical payloads; correctness must come from the
	// index, not from distinguishing task values.
	tasks := make([]string, 8)
	for i := range tasks {
		tasks[i] = "same"
	}
	out, err := Run(context.Background(), tasks, 4, func(_ context.Context, idx int, task string) int {
		return idx * idx
	})
	require.NoError(t, err)
	require.Len(t, out.Completed, 8)
	for i, tr := range out.Completed {
		assert.Equal(t, i*i, tr.Value)
	}
}
