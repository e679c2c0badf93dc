package shard

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/l1jgo/worldcore/internal/clock"
	"github.com/l1jgo/worldcore/internal/config"
	"github.com/l1jgo/worldcore/internal/core/actor"
	"github.com/l1jgo/worldcore/internal/data"
	"github.com/l1jgo/worldcore/internal/geom"
	"github.com/l1jgo/worldcore/internal/nav"
	"github.com/l1jgo/worldcore/internal/region"
	"github.com/l1jgo/worldcore/internal/world"
)

const sinkID actor.ID = "sink"

func emptyTables() *data.Tables {
	return &data.Tables{
		Skills:   data.NewSkillTable(),
		Buffs:    data.NewBuffTable(),
		Monsters: data.NewMonsterTable(),
		Loot:     data.NewLootTable(nil),
	}
}

func setup(t *testing.T) (*actor.System, *actor.Bus, *Shard, chan OutboundBatch) {
	t.Helper()
	sys := actor.NewSystem(context.Background(), 16, zap.NewNop())
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = sys.Shutdown(ctx)
	})
	bus := actor.NewBus(sys, 0, time.Minute, zap.NewNop())

	got := make(chan OutboundBatch, 16)
	_, err := sys.Spawn(sinkID, func(_ context.Context, env actor.Envelope) error {
		got <- env.Message.(OutboundBatch)
		return nil
	})
	require.NoError(t, err)

	cfg := config.Defaults()
	s, err := Spawn(sys, bus, cfg, config.ShardConfig{ID: 7, Kind: "region"}, region.Deps{
		Tables: emptyTables(),
		Volume: nav.Flat(32, 32, 1),
	}, sinkID, zap.NewNop())
	require.NoError(t, err)
	return sys, bus, s, got
}

func player(pid world.PlayerID, x float32) region.SpawnPlayer {
	return region.SpawnPlayer{Player: pid, Name: "p", Pos: geom.V(x, 0, 5), HP: 10, Speed: 4}
}

func stats(t *testing.T, sys *actor.System, s *Shard) region.Stats {
	t.Helper()
	reply := make(chan region.Stats, 1)
	require.True(t, sys.Send(context.Background(), s.ID(), StatsRequest{Reply: reply}))
	select {
	case st := <-reply:
		return st
	case <-time.After(2 * time.Second):
		t.Fatal("no stats reply")
	}
	return region.Stats{}
}

func TestTickFlushesOneBatchToGateway(t *testing.T) {
	sys, bus, s, got := setup(t)
	assert.Equal(t, actor.ID("shard/7"), s.ID())

	ctx := context.Background()
	require.True(t, sys.Send(ctx, s.ID(), player(1, 5)))
	require.True(t, sys.Send(ctx, s.ID(), player(2, 6)))
	assert.Equal(t, 1, bus.Publish(ctx, clock.TickElapsed{Tick: 1, Delta: 100 * time.Millisecond}))

	select {
	case b := <-got:
		assert.Equal(t, uint32(7), b.Shard)
		assert.Equal(t, uint64(1), b.Tick)
		require.NotEmpty(t, b.Items)
		for _, o := range b.Items {
			assert.NotEmpty(t, o.Recipients)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("no batch")
	}
}

func TestStaleTicksAreIgnored(t *testing.T) {
	sys, _, s, _ := setup(t)
	ctx := context.Background()
	require.True(t, sys.Send(ctx, s.ID(), clock.TickElapsed{Tick: 5, Delta: 100 * time.Millisecond}))
	require.True(t, sys.Send(ctx, s.ID(), clock.TickElapsed{Tick: 3, Delta: 100 * time.Millisecond}))
	require.True(t, sys.Send(ctx, s.ID(), clock.TickElapsed{Tick: 5, Delta: 100 * time.Millisecond}))

	assert.Equal(t, uint64(1), stats(t, sys, s).Ticks)
}

func TestUnexpectedMessageDoesNotStopShard(t *testing.T) {
	sys, _, s, _ := setup(t)
	require.True(t, sys.Send(context.Background(), s.ID(), "hello"))
	require.True(t, sys.Send(context.Background(), s.ID(), player(1, 5)))
	require.True(t, sys.Send(context.Background(), s.ID(), clock.TickElapsed{Tick: 1}))

	st := stats(t, sys, s)
	assert.Equal(t, uint64(1), st.Intents)
	assert.Equal(t, uint64(1), s.Ref().Failures())
	assert.Equal(t, actor.StateRunning, s.Ref().State())
}
