package ai

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/l1jgo/worldcore/internal/component"
	"github.com/l1jgo/worldcore/internal/config"
	"github.com/l1jgo/worldcore/internal/core/ecs"
	"github.com/l1jgo/worldcore/internal/geom"
	"github.com/l1jgo/worldcore/internal/world"
)

type straightPaths struct{ calls int }

func (p *straightPaths) FindPath(start, goal geom.Vec3) ([]geom.Vec3, bool) {
	p.calls++
	return []geom.Vec3{start, goal}, true
}

type fakeCombat struct {
	casts   []int32
	targets []ecs.EntityID
	busy    bool
	cooling map[int32]bool
	broke   map[int32]bool // skills the agent cannot pay for
}

func (c *fakeCombat) Cast(_ ecs.EntityID, skill int32, target ecs.EntityID) bool {
	c.casts = append(c.casts, skill)
	c.targets = append(c.targets, target)
	c.cooling[skill] = true
	return true
}
func (c *fakeCombat) Casting(ecs.EntityID) bool { return c.busy }
func (c *fakeCombat) CanCast(_ ecs.EntityID, skill int32) bool {
	return !c.cooling[skill] && !c.broke[skill]
}

type aiFixture struct {
	ctx     *world.Context
	sys     *System
	combat  *fakeCombat
	paths   *straightPaths
	monster ecs.EntityID
}

func newAIFixture(t *testing.T, aggressive bool) *aiFixture {
	t.Helper()
	ctx := world.NewContext(world.Options{ShardID: 1, CellSize: 10, AOIRadius: 1, TickMs: 100}, zap.NewNop())
	cfg := config.Defaults().AI
	cfg.IdleMin, cfg.IdleMax = time.Hour, time.Hour
	f := &aiFixture{ctx: ctx, combat: &fakeCombat{cooling: map[int32]bool{}}, paths: &straightPaths{}}

	var err error
	f.sys, err = NewSystem(ctx, cfg, f.combat, f.paths, 7, zap.NewNop())
	require.NoError(t, err)

	f.monster, err = ctx.AddEntity(world.Spawn{
		Identity:  component.Identity{Kind: component.KindMonster, Name: "goblin", TemplateID: 45001},
		Transform: component.Transform{Pos: geom.V(0, 0, 0)},
		Combat:    component.Combat{HP: 50, MaxHP: 50},
		Skills:    []int32{1},
		AI:        &component.AITag{Aggressive: aggressive, SightRange: 12, AttackRange: 2, Leash: 20},
		Monster:   &component.MonsterTag{TemplateID: 45001, Home: geom.V(0, 0, 0), Exp: 100},
	})
	require.NoError(t, err)
	_, ok := f.sys.Add(f.monster)
	require.True(t, ok)
	return f
}

func (f *aiFixture) player(t *testing.T, pid uint64, pos geom.Vec3) ecs.EntityID {
	t.Helper()
	id, err := f.ctx.AddEntity(world.Spawn{
		Identity:  component.Identity{Kind: component.KindPlayer, Name: "p", PlayerID: pid},
		Transform: component.Transform{Pos: pos},
		Combat:    component.Combat{HP: 100, MaxHP: 100},
	})
	require.NoError(t, err)
	return id
}

func (f *aiFixture) step(tick uint64) {
	f.ctx.BeginTick(tick)
	f.ctx.UpdateVisibility()
	f.sys.Update(100 * time.Millisecond)
}

func TestAggroOrdering(t *testing.T) {
	a := NewAggro()
	a.Add(5, 10)
	a.Add(3, 10)
	a.Add(9, 4)
	top, _ := a.Top()
	assert.Equal(t, ecs.EntityID(3), top, "ties go to the lower id")

	a.Add(9, 20)
	top, _ = a.Top()
	assert.Equal(t, ecs.EntityID(9), top)

	assert.False(t, a.Notice(9))
	assert.True(t, a.Notice(11))
	assert.Equal(t, 1.0, a.Threat(11))

	require.True(t, a.Remove(9))
	top, _ = a.Top()
	assert.Equal(t, ecs.EntityID(3), top)

	assert.Equal(t, 1, a.Prune(func(id ecs.EntityID) bool { return id != 3 }))
	top, _ = a.Top()
	assert.Equal(t, ecs.EntityID(5), top)
	assert.Equal(t, []ecs.EntityID{5, 11}, a.IDs())
	assert.Equal(t, 11.0, a.Total())
}

func TestPerceptionCone(t *testing.T) {
	p := Perception{Sight: 10, FOV: 90}
	origin := geom.V(0, 0, 0)
	assert.True(t, p.Sees(origin, 0, geom.V(0, 0, 8)))
	assert.True(t, p.Sees(origin, 0, geom.V(3, 0, 5)), "31° off axis")
	assert.False(t, p.Sees(origin, 0, geom.V(5, 0, 3)), "59° off axis")
	assert.False(t, p.Sees(origin, 0, geom.V(0, 0, -8)))
	assert.True(t, p.Sees(origin, 0, geom.V(0, 0, -1.5)), "close range ignores the cone")
	assert.False(t, p.Sees(origin, 0, geom.V(0, 0, 11)))
}

func TestAggressiveMonsterChasesThenAttacks(t *testing.T) {
	f := newAIFixture(t, true)
	p := f.player(t, 1, geom.V(0, 0, 8))

	f.step(1)
	a, _ := f.sys.Agent(f.monster)
	assert.Equal(t, p, a.Target)
	assert.Equal(t, "chase", a.State())
	mv, _ := f.ctx.Movement.Get(f.monster)
	require.NotEmpty(t, mv.Path)
	assert.Equal(t, geom.V(0, 0, 8), mv.Path[len(mv.Path)-1])

	f.ctx.MoveEntity(f.monster, geom.V(0, 0, 6.5))
	f.step(2)
	assert.Equal(t, "maneuver", a.State())
	assert.Empty(t, mv.Path, "engaging stops the walk")

	f.step(3)
	assert.Equal(t, "attack", a.State())
	assert.Equal(t, []int32{1}, f.combat.casts)
	assert.Equal(t, []ecs.EntityID{p}, f.combat.targets)

	f.step(4)
	assert.Equal(t, "maneuver", a.State(), "back to maneuver while the skill cools down")
	assert.Len(t, f.combat.casts, 1)
}

func TestPassiveMonsterIgnoresPlayersUntilHit(t *testing.T) {
	f := newAIFixture(t, false)
	p := f.player(t, 1, geom.V(0, 0, 5))

	f.step(1)
	a, _ := f.sys.Agent(f.monster)
	assert.Equal(t, "idle", a.State())

	f.sys.OnDamage(world.DamageEvent{Source: p, Target: f.monster, Amount: 7})
	f.step(2)
	assert.Equal(t, p, a.Target)
	assert.Equal(t, 7.0, a.Aggro.Threat(p))
	assert.Equal(t, "chase", a.State())
}

func TestLeashSendsMonsterHome(t *testing.T) {
	f := newAIFixture(t, true)
	f.player(t, 1, geom.V(0, 0, 8))
	f.step(1)
	a, _ := f.sys.Agent(f.monster)
	cb, _ := f.ctx.Combat.Get(f.monster)
	cb.HP = 10

	f.ctx.MoveEntity(f.monster, geom.V(0, 0, 25))
	f.step(2)
	assert.Equal(t, "return_home", a.State())
	assert.Equal(t, 0, a.Aggro.Len())
	mv, _ := f.ctx.Movement.Get(f.monster)
	require.NotEmpty(t, mv.Path)

	// still returning even though the player is in sight
	f.ctx.MoveEntity(f.monster, geom.V(0, 0, 1))
	f.step(3)
	assert.Equal(t, "return_home", a.State())
	assert.Equal(t, ecs.EntityID(0), a.Target)

	mv.Path = nil
	f.step(4)
	assert.Equal(t, int32(50), cb.HP, "healed on arrival")
	f.step(5)
	assert.NotEqual(t, "return_home", a.State())
}

func TestKillCreditSplitsExperience(t *testing.T) {
	f := newAIFixture(t, false)
	p1 := f.player(t, 1, geom.V(0, 0, 3))
	p2 := f.player(t, 2, geom.V(0, 0, 4))
	f.sys.OnDamage(world.DamageEvent{Source: p1, Target: f.monster, Amount: 30})
	f.sys.OnDamage(world.DamageEvent{Source: p2, Target: f.monster, Amount: 10})

	credits := f.sys.OnDeath(f.monster)
	require.Len(t, credits, 2)
	assert.Equal(t, world.PlayerID(1), credits[0].Player)
	assert.Equal(t, int64(75), credits[0].Exp)
	assert.Equal(t, int64(25), credits[1].Exp)

	a, _ := f.sys.Agent(f.monster)
	assert.Equal(t, 0, a.Aggro.Len())
	assert.Equal(t, 2, f.ctx.Batch().Len())
}

func TestIdleThenPatrolWithinRadius(t *testing.T) {
	f := newAIFixture(t, false)
	f.sys.cfg.IdleMin, f.sys.cfg.IdleMax = 0, 0
	f.sys.Forget(f.monster)
	a, ok := f.sys.Add(f.monster)
	require.True(t, ok)

	f.step(1)
	assert.Equal(t, "patrol", a.State())
	mv, _ := f.ctx.Movement.Get(f.monster)
	require.NotEmpty(t, mv.Path)
	goal := mv.Path[len(mv.Path)-1]
	assert.LessOrEqual(t, geom.FlatDist(goal, a.Home), f.sys.cfg.PatrolRadius+1e-3)

	mv.Path = nil
	f.step(2)
	assert.Equal(t, "idle", a.State())
}

func TestUnaffordableSkillIsSkipped(t *testing.T) {
	f := newAIFixture(t, true)
	book, _ := f.ctx.SkillBook.Get(f.monster)
	book.Skills = []int32{4, 1}
	f.sys.Forget(f.monster)
	_, ok := f.sys.Add(f.monster)
	require.True(t, ok)
	f.combat.broke = map[int32]bool{4: true}

	p := f.player(t, 1, geom.V(0, 0, 1.5))
	for i := uint64(1); i <= 5; i++ {
		f.step(i)
	}
	assert.Equal(t, []int32{1}, f.combat.casts)
	assert.Equal(t, []ecs.EntityID{p}, f.combat.targets)
}
