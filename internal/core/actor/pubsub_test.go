package actor

import (
	"context"
	"reflect"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type tickEvent struct{ N int }
type otherEvent struct{}

func TestPublishFansOutByType(t *testing.T) {
	sys := newTestSystem(t)
	bus := NewBus(sys, 0, time.Minute, zap.NewNop())

	got := make(chan int, 8)
	for _, id := range []ID{"shard/1", "shard/2"} {
		_, err := sys.Spawn(id, func(_ context.Context, env Envelope) error {
			if ev, ok := env.Message.(tickEvent); ok {
				got <- ev.N
			}
			return nil
		})
		require.NoError(t, err)
		_, err = Subscribe[tickEvent](bus, id, 4, DropOldest)
		require.NoError(t, err)
	}

	assert.Equal(t, 2, bus.Publish(context.Background(), tickEvent{N: 7}))
	assert.Equal(t, 0, bus.Publish(context.Background(), otherEvent{}))

	for i := 0; i < 2; i++ {
		select {
		case n := <-got:
			assert.Equal(t, 7, n)
		case <-time.After(2 * time.Second):
			t.Fatal("event not delivered")
		}
	}
}

func TestSubscribeUnknownActor(t *testing.T) {
	sys := newTestSystem(t)
	bus := NewBus(sys, 0, time.Minute, zap.NewNop())
	_, err := Subscribe[tickEvent](bus, "ghost", 1, Block)
	assert.ErrorIs(t, err, ErrUnknownActor)
}

func TestDropOldestKeepsNewest(t *testing.T) {
	sub := newSubscription("slow", reflect.TypeOf(tickEvent{}), 2, DropOldest, time.Now())
	for i := 1; i <= 5; i++ {
		assert.True(t, sub.offer(context.Background(), tickEvent{N: i}))
	}
	assert.Equal(t, uint64(3), sub.dropped.Load())
	assert.Equal(t, tickEvent{N: 4}, <-sub.queue)
	assert.Equal(t, tickEvent{N: 5}, <-sub.queue)
}

func TestBlockPolicyWaitsForSpace(t *testing.T) {
	sub := newSubscription("slow", reflect.TypeOf(tickEvent{}), 1, Block, time.Now())
	require.True(t, sub.offer(context.Background(), tickEvent{N: 1}))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	assert.False(t, sub.offer(ctx, tickEvent{N: 2}), "full queue blocks until ctx ends")

	<-sub.queue
	assert.True(t, sub.offer(context.Background(), tickEvent{N: 3}))
}

func TestSweepPrunesDeadSubscribersAfterInactivity(t *testing.T) {
	sys := newTestSystem(t)
	bus := NewBus(sys, 0, 10*time.Second, zap.NewNop())
	base := time.Unix(1_000, 0)
	bus.now = func() time.Time { return base }

	_, err := sys.Spawn("shard/9", func(context.Context, Envelope) error { return nil })
	require.NoError(t, err)
	id, err := Subscribe[tickEvent](bus, "shard/9", 1, DropOldest)
	require.NoError(t, err)

	assert.Equal(t, 0, bus.Sweep(base.Add(time.Hour)), "live actors are never pruned")

	<-sys.Stop("shard/9")
	assert.Equal(t, 0, bus.Sweep(base.Add(5*time.Second)), "not idle long enough")
	assert.Equal(t, 1, bus.Sweep(base.Add(11*time.Second)))

	_, ok := bus.Stats(id)
	assert.False(t, ok)
	assert.Equal(t, 0, bus.Subscribers(reflect.TypeOf(tickEvent{})))
}

func TestUnsubscribe(t *testing.T) {
	sys := newTestSystem(t)
	bus := NewBus(sys, 0, time.Minute, zap.NewNop())
	_, err := sys.Spawn("a", func(context.Context, Envelope) error { return nil })
	require.NoError(t, err)
	id, err := Subscribe[tickEvent](bus, "a", 1, Block)
	require.NoError(t, err)

	assert.True(t, bus.Unsubscribe(id))
	assert.False(t, bus.Unsubscribe(id))
	assert.Equal(t, 0, bus.Publish(context.Background(), tickEvent{}))
}
