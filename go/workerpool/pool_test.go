package workerpool

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPool_RunsAllFunctions(t *testing.T) {
	p := New(3)
	var count atomic.Int64
	for i := 0; i < 25; i++ {
		p.Go(func() { count.Add(1) })
	}
	p.Wait()
	assert.Equal(t, int64(25), count.Load())
}

func TestPool_BoundHolds(t *testing.T) {
	p := New(2)
	var inFlight, maxSeen atomic.Int64
	for i := 0; i < 20; i++ {
		p.Go(func() {
			cur := inFlight.Add(1)
			for {
				prev := maxSeen.Load()
				if cur <= prev || maxSeen.CompareAndSwap(prev, cur) {
					break
				}
			}
			time.Sleep(time.Millisecond)
			inFlight.Add(-1)
		})
	}
	p.Wait()
	assert.LessOrEqual(t, maxSeen.Load(), int64(2))
}

func TestPool_PanicsAfterWait(t *testing.T) {
	p := New(1)
	p.Go(func() {})
	p.Wait()

	require.Panics(t, func() { p.Go(func() {}) })
	require.Panics(t, func() { p.Wait() })
}
