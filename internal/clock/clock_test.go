package clock

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type collector struct {
	mu    sync.Mutex
	ticks []TickElapsed
}

func (c *collector) Publish(_ context.Context, ev any) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.ticks = append(c.ticks, ev.(TickElapsed))
	return 1
}

func (c *collector) count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.ticks)
}

func TestRunPublishesMonotonicTicks(t *testing.T) {
	col := &collector{}
	clk := New(col, 2*time.Millisecond, zap.NewNop())
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() { done <- clk.Run(ctx) }()
	require.Eventually(t, func() bool { return col.count() >= 5 }, 2*time.Second, time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("clock did not stop")
	}

	col.mu.Lock()
	defer col.mu.Unlock()
	for i, ev := range col.ticks {
		assert.Equal(t, uint64(i+1), ev.Tick)
		assert.Equal(t, 2*time.Millisecond, ev.Delta)
	}
	assert.Equal(t, uint64(len(col.ticks)), clk.Tick())
}

func TestDefaultRate(t *testing.T) {
	clk := New(&collector{}, 0, zap.NewNop())
	assert.Equal(t, 100*time.Millisecond, clk.rate)
}
