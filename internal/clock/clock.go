// Package clock drives the simulation: it publishes TickElapsed on the actor
// bus at the configured rate, to every shard that subscribed.
package clock

import (
	"context"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
)

// TickElapsed announces one simulation step. Delta is the nominal tick
// length, so a replay of the same ticks simulates the same world.
type TickElapsed struct {
	Tick  uint64
	Delta time.Duration
	At    time.Time
}

// Publisher is the part of actor.Bus the clock needs.
type Publisher interface {
	Publish(ctx context.Context, event any) int
}

type Clock struct {
	bus  Publisher
	rate time.Duration
	tick atomic.Uint64
	log  *zap.Logger
}

func New(bus Publisher, rate time.Duration, log *zap.Logger) *Clock {
	if rate <= 0 {
		rate = 100 * time.Millisecond
	}
	return &Clock{bus: bus, rate: rate, log: log}
}

// Tick returns the last published tick.
func (c *Clock) Tick() uint64 { return c.tick.Load() }

// Run publishes ticks until ctx is done. The counter starts at 1 and never
// goes back.
func (c *Clock) Run(ctx context.Context) error {
	t := time.NewTicker(c.rate)
	defer t.Stop()
	c.log.Info("clock started", zap.Duration("rate", c.rate))
	for {
		select {
		case <-ctx.Done():
			c.log.Info("clock stopped", zap.Uint64("tick", c.tick.Load()))
			return nil
		case now := <-t.C:
			n := c.tick.Add(1)
			if got := c.bus.Publish(ctx, TickElapsed{Tick: n, Delta: c.rate, At: now}); got == 0 && n%100 == 1 {
				c.log.Debug("tick with no subscribers", zap.Uint64("tick", n))
			}
		}
	}
}
