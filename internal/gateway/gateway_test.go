package gateway

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/l1jgo/worldcore/internal/core/actor"
	"github.com/l1jgo/worldcore/internal/shard"
	"github.com/l1jgo/worldcore/internal/world"
)

type chanSink chan []world.Outbound

func (c chanSink) Deliver(_ uint32, _ uint64, batch []world.Outbound) { c <- batch }

func TestSummaryCountsByProtocol(t *testing.T) {
	batch := []world.Outbound{
		{Protocol: world.ProtoMoveSync},
		{Protocol: world.ProtoDamage},
		{Protocol: world.ProtoMoveSync},
	}
	assert.Equal(t, "move_sync=2 damage=1", Summary(batch))
	assert.Equal(t, "", Summary(nil))
}

func TestGatewayHandsBatchesToSink(t *testing.T) {
	sys := actor.NewSystem(context.Background(), 8, zap.NewNop())
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = sys.Shutdown(ctx)
	}()
	sink := make(chanSink, 4)
	g, err := Spawn(sys, sink)
	require.NoError(t, err)

	items := []world.Outbound{{Protocol: world.ProtoSpawn, Recipients: []world.PlayerID{1}}}
	require.True(t, sys.SendFrom(context.Background(), "shard/1", ID, shard.OutboundBatch{Shard: 1, Tick: 9, Items: items}))
	require.True(t, sys.Send(context.Background(), ID, "junk"))

	select {
	case got := <-sink:
		assert.Equal(t, items, got)
	case <-time.After(2 * time.Second):
		t.Fatal("batch not delivered")
	}
	require.Eventually(t, func() bool { return g.Batches() == 1 }, time.Second, time.Millisecond)
	assert.Equal(t, uint64(1), g.Messages())

	_, err = Spawn(sys, sink)
	assert.ErrorIs(t, err, actor.ErrDuplicateActor)
}

func TestLogSinkAcceptsBatches(t *testing.T) {
	NewLogSink(zap.NewNop()).Deliver(1, 1, []world.Outbound{{Protocol: world.ProtoDeath}})
}
