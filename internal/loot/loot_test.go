package loot

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/l1jgo/worldcore/internal/core/ecs"
	"github.com/l1jgo/worldcore/internal/data"
	"github.com/l1jgo/worldcore/internal/world"
)

const (
	gold  int32 = 40308
	sword int32 = 7
)

func newManager(t *testing.T) (*Manager, *world.Context) {
	t.Helper()
	ctx := world.NewContext(world.Options{ShardID: 1, TickMs: 100}, zap.NewNop())
	table := data.NewLootTable(map[int32][]data.LootItem{
		1: {
			{ItemID: gold, Min: 10, Max: 20, Chance: 1_000_000},
			{ItemID: sword, Min: 1, Max: 1, Chance: 1_000_000},
			{ItemID: gold, Min: 1, Max: 1, Chance: 1_000_000},
		},
		2: {{ItemID: sword, Min: 1, Max: 1, Chance: 0}},
	})
	ctx.BeginTick(10)
	return NewManager(ctx, table, 3*time.Second, 42, zap.NewNop()), ctx
}

var corpse = ecs.EntityID(99)

func TestOpenMergesDrops(t *testing.T) {
	m, ctx := newManager(t)
	require.True(t, m.Open(corpse, 1, []world.PlayerID{2, 1}))

	s, ok := m.Session(corpse)
	require.True(t, ok)
	assert.Equal(t, []world.PlayerID{1, 2}, s.Eligible)
	assert.Equal(t, uint64(40), s.Deadline)
	items := s.Items()
	require.Len(t, items, 2)
	assert.Equal(t, gold, items[0].Item)
	assert.GreaterOrEqual(t, items[0].Count, int32(11))
	assert.LessOrEqual(t, items[0].Count, int32(21))
	assert.Equal(t, 1, ctx.Batch().Len())
	assert.Equal(t, world.ProtoLootOpened, ctx.Batch().Items()[0].Protocol)

	assert.False(t, m.Open(corpse+1, 2, []world.PlayerID{1}), "nothing dropped")
	assert.False(t, m.Open(corpse+1, 1, nil), "nobody eligible")
}

func TestChooseResults(t *testing.T) {
	m, _ := newManager(t)
	require.True(t, m.Open(corpse, 1, []world.PlayerID{1, 2}))

	assert.Equal(t, UnknownItem, m.Choose(corpse+1, 1, gold, Roll))
	assert.Equal(t, UnknownItem, m.Choose(corpse, 1, 12345, Roll))
	assert.Equal(t, NotEligible, m.Choose(corpse, 3, gold, Roll))
	assert.Equal(t, Accepted, m.Choose(corpse, 1, gold, Roll))
	assert.Equal(t, AlreadyResolved, m.Choose(corpse, 1, gold, Pass), "choices are final")

	_, open := m.Session(corpse)
	require.True(t, open)
	assert.Equal(t, Accepted, m.Choose(corpse, 2, gold, Pass))
	s, _ := m.Session(corpse)
	winner, ok := s.Winner(gold)
	require.True(t, ok)
	assert.Equal(t, world.PlayerID(1), winner)
	assert.Equal(t, AlreadyResolved, m.Choose(corpse, 2, gold, Roll))
	assert.Equal(t, "already resolved", AlreadyResolved.String())
}

func TestEverybodyPassesLeavesItemUnclaimed(t *testing.T) {
	m, ctx := newManager(t)
	require.True(t, m.Open(corpse, 1, []world.PlayerID{1, 2}))
	before := ctx.Batch().Len()

	m.Choose(corpse, 1, sword, Pass)
	m.Choose(corpse, 2, sword, Pass)

	s, _ := m.Session(corpse)
	winner, ok := s.Winner(sword)
	require.True(t, ok)
	assert.Zero(t, winner)
	require.Equal(t, before+1, ctx.Batch().Len())
	res := ctx.Batch().Items()[before].Payload.(world.LootResultPayload)
	assert.Zero(t, res.Roll)
	assert.False(t, s.Resolved(), "gold is still open")
}

func TestTimeoutResolvesWithChoicesSoFar(t *testing.T) {
	m, ctx := newManager(t)
	require.True(t, m.Open(corpse, 1, []world.PlayerID{1, 2}))
	m.Choose(corpse, 2, sword, Roll)

	ctx.BeginTick(39)
	m.Update()
	assert.Equal(t, 1, m.Len())

	ctx.BeginTick(40)
	m.Update()
	assert.Zero(t, m.Len())

	var results []world.LootResultPayload
	for _, o := range ctx.Batch().Items() {
		if o.Protocol == world.ProtoLootResult {
			results = append(results, o.Payload.(world.LootResultPayload))
		}
	}
	require.Len(t, results, 2)
	for _, r := range results {
		switch r.Item {
		case sword:
			assert.Equal(t, world.PlayerID(2), r.Winner)
			assert.Positive(t, r.Roll)
		case gold:
			assert.Zero(t, r.Winner)
		}
	}
	assert.Equal(t, UnknownItem, m.Choose(corpse, 1, sword, Roll))
}

func TestTiesGoToLowerPlayer(t *testing.T) {
	m, _ := newManager(t)
	s := &Session{Source: corpse, Eligible: []world.PlayerID{3, 5}}
	e := &entry{item: world.LootItem{Item: sword, Count: 1}, choices: map[world.PlayerID]int{5: 50, 3: 50}}
	s.items = []*entry{e}
	m.resolve(s, e)
	assert.Equal(t, world.PlayerID(3), e.winner)
	assert.Equal(t, 50, e.roll)
}
