package services

import (
	"context"
	"sync"
	"time"
)

// sessionClock drives revalidation while a user is authenticated: on every
// tick and whenever it is poked by a focus event.
type sessionClock struct {
	cancel context.CancelFunc
	wake   chan struct{}
	done   chan struct{}
}

func startSessionClock(parent context.Context, wg *sync.WaitGroup, interval time.Duration, check func(context.Context)) *sessionClock {
	ctx, cancel := context.WithCancel(parent)
	c := &sessionClock{
		cancel: cancel,
		wake:   make(chan struct{}, 1),
		done:   make(chan struct{}),
	}

	wg.Add(1)
	go func() {
		defer wg.Done()
		defer close(c.done)
		c.run(ctx, interval, check)
	}()
	return c
}

func (c *sessionClock) run(ctx context.Context, interval time.Duration, check func(context.Context)) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		case <-c.wake:
		}
		if ctx.Err() != nil {
			return
		}
		check(ctx)
	}
}

// poke requests an immediate check. Pokes arriving while one is pending
// are merged.
func (c *sessionClock) poke() {
	select {
	case c.wake <- struct{}{}:
	default:
	}
}

// stop cancels the clock without waiting for it; the check itself may be
// the caller.
func (c *sessionClock) stop() {
	c.cancel()
}
