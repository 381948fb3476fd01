package services

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSessionClock_TicksAndPokes(t *testing.T) {
	var wg sync.WaitGroup
	var checks atomic.Int32

	c := startSessionClock(context.Background(), &wg, time.Hour, func(context.Context) { checks.Add(1) })

	c.poke()
	require.Eventually(t, func() bool { return checks.Load() == 1 }, time.Second, time.Millisecond)

	c.stop()
	wg.Wait()

	c.poke()
	assert.Equal(t, int32(1), checks.Load())
}

func TestSessionClock_StopsWithParent(t *testing.T) {
	var wg sync.WaitGroup
	ctx, cancel := context.WithCancel(context.Background())

	c := startSessionClock(ctx, &wg, time.Millisecond, func(context.Context) {})
	cancel()
	wg.Wait()

	select {
	case <-c.done:
	default:
		t.Fatal("clock goroutine still running")
	}
}

func TestSessionClock_CheckMayStopItself(t *testing.T) {
	var wg sync.WaitGroup
	var c *sessionClock
	ready := make(chan struct{})

	c = startSessionClock(context.Background(), &wg, time.Millisecond, func(context.Context) {
		<-ready
		c.stop()
	})
	close(ready)
	wg.Wait()
}
