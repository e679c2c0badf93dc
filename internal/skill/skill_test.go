package skill

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/l1jgo/worldcore/internal/component"
	"github.com/l1jgo/worldcore/internal/core/ecs"
	"github.com/l1jgo/worldcore/internal/core/event"
	"github.com/l1jgo/worldcore/internal/data"
	"github.com/l1jgo/worldcore/internal/geom"
	"github.com/l1jgo/worldcore/internal/world"
)

const tick = 100 * time.Millisecond

const (
	skillNova   int32 = 1 // 30 mana, 2s cooldown, self
	skillStrike int32 = 2 // damage at 0.3s on an entity
	skillLong   int32 = 3 // 5s, locks movement
	skillDash   int32 = 4
	skillPoison int32 = 5

	buffVenom int32 = 100
	buffRegen int32 = 101
	buffMight int32 = 102
	buffWard  int32 = 103
	buffHaste int32 = 104
)

type fixture struct {
	ctx     *world.Context
	sys     *System
	player  ecs.EntityID
	monster ecs.EntityID
}

func testSkills() *data.SkillTable {
	return data.NewSkillTable(
		&data.SkillInfo{SkillID: skillNova, Action: data.ActionCast, Target: data.TargetSelf, MpCost: 30, Cooldown: 2, Duration: time.Second},
		&data.SkillInfo{SkillID: skillStrike, Action: data.ActionAttack, Target: data.TargetEntity, Range: 3, Duration: 600 * time.Millisecond,
			Events: []data.SkillEvent{{At: 300 * time.Millisecond, Type: data.EventDamage, Power: 10}}},
		&data.SkillInfo{SkillID: skillLong, Action: data.ActionCast, Target: data.TargetSelf, Duration: 5 * time.Second,
			Phases: []data.SkillPhase{{Type: data.PhaseMoveLock, Start: 0, End: 5 * time.Second}}},
		&data.SkillInfo{SkillID: skillDash, Action: data.ActionRoll, Target: data.TargetDirection, Duration: 500 * time.Millisecond,
			Phases: []data.SkillPhase{{Type: data.PhaseDash, Start: 0, End: 400 * time.Millisecond, Speed: 10}}},
		&data.SkillInfo{SkillID: skillPoison, Action: data.ActionAttack, Target: data.TargetEntity, Range: 3, Duration: 200 * time.Millisecond,
			Events: []data.SkillEvent{{At: 0, Type: data.EventApplyBuff, BuffID: buffVenom}}},
	)
}

func testBuffs() *data.BuffTable {
	return data.NewBuffTable(
		&data.BuffInfo{BuffID: buffVenom, Duration: 3 * time.Second, Interval: time.Second, Stack: data.StackAdd, MaxStacks: 3, Dispellable: true, DamagePerTick: 3},
		&data.BuffInfo{BuffID: buffRegen, Duration: 2 * time.Second, Interval: time.Second, Stack: data.StackRefresh, MaxStacks: 1, HealPerTick: 5},
		&data.BuffInfo{BuffID: buffMight, Duration: 10 * time.Second, Stack: data.StackAdd, MaxStacks: 3, Dispellable: true, Attack: 4},
		&data.BuffInfo{BuffID: buffWard, Duration: 10 * time.Second, Stack: data.StackIgnore, MaxStacks: 1, Defense: 2},
		&data.BuffInfo{BuffID: buffHaste, Duration: 4 * time.Second, Stack: data.StackReplace, MaxStacks: 3, Attack: 5},
	)
}

// wallAt rejects every position at or beyond Z.
type wallAt float32

func (w wallAt) Project(p geom.Vec3) (geom.Vec3, bool) { return p, p.Z < float32(w) }

func newFixture(t *testing.T) *fixture {
	t.Helper()
	return newFixtureOn(t, nil)
}

func newFixtureOn(t *testing.T, terrain world.Terrain) *fixture {
	t.Helper()
	ctx := world.NewContext(world.Options{ShardID: 1, CellSize: 10, AOIRadius: 1, TickMs: 100, Terrain: terrain}, zap.NewNop())
	f := &fixture{ctx: ctx, sys: NewSystem(ctx, testSkills(), testBuffs(), nil, zap.NewNop())}

	var err error
	f.player, err = ctx.AddEntity(world.Spawn{
		Identity:  component.Identity{Kind: component.KindPlayer, Name: "hero", PlayerID: 1},
		Transform: component.Transform{Pos: geom.V(0, 0, 0)},
		Combat:    component.Combat{HP: 100, MaxHP: 100, MP: 100, MaxMP: 100},
		Skills:    []int32{skillNova, skillStrike, skillLong, skillDash, skillPoison},
	})
	require.NoError(t, err)
	f.monster, err = ctx.AddEntity(world.Spawn{
		Identity:  component.Identity{Kind: component.KindMonster, Name: "goblin"},
		Transform: component.Transform{Pos: geom.V(2, 0, 0)},
		Combat:    component.Combat{HP: 50, MaxHP: 50, Defense: 4},
	})
	require.NoError(t, err)
	return f
}

func (f *fixture) mp() int32 {
	cb, _ := f.ctx.Combat.Get(f.player)
	return cb.MP
}

func TestCooldownAndManaScenario(t *testing.T) {
	f := newFixture(t)

	f.ctx.BeginTick(1000)
	ok, reason := f.sys.TryCastSkill(f.player, CastData{Skill: skillNova})
	require.True(t, ok, reason)
	assert.Equal(t, int32(70), f.mp())
	assert.Equal(t, uint64(1020), f.sys.ReadyAt(f.player, skillNova))

	f.ctx.BeginTick(1010)
	ok, reason = f.sys.TryCastSkill(f.player, CastData{Skill: skillNova})
	assert.False(t, ok)
	assert.Equal(t, ReasonCoolingDown, reason)
	assert.Equal(t, int32(70), f.mp(), "rejection has no side effect")

	f.ctx.BeginTick(1021)
	ok, _ = f.sys.TryCastSkill(f.player, CastData{Skill: skillNova})
	assert.True(t, ok)
	assert.Equal(t, int32(40), f.mp())
}

func TestCooldownMonotonic(t *testing.T) {
	f := newFixture(t)
	cb, _ := f.ctx.Combat.Get(f.player)
	cb.MP = 10_000

	const start = 500
	f.ctx.BeginTick(start)
	ok, _ := f.sys.TryCastSkill(f.player, CastData{Skill: skillNova})
	require.True(t, ok)

	for tk := uint64(start); tk < start+20; tk++ {
		f.ctx.BeginTick(tk)
		ok, reason := f.sys.TryCastSkill(f.player, CastData{Skill: skillNova})
		require.False(t, ok, "tick %d", tk)
		require.Equal(t, ReasonCoolingDown, reason)
	}
	f.ctx.BeginTick(start + 20)
	ok, _ = f.sys.TryCastSkill(f.player, CastData{Skill: skillNova})
	assert.True(t, ok)
}

func TestValidationReasons(t *testing.T) {
	f := newFixture(t)
	f.ctx.BeginTick(1)

	ok, reason := f.sys.TryCastSkill(f.player, CastData{Skill: 999})
	assert.False(t, ok)
	assert.Equal(t, ReasonUnknownSkill, reason)

	ok, reason = f.sys.TryCastSkill(f.monster, CastData{Skill: skillNova})
	assert.False(t, ok)
	assert.Equal(t, ReasonNotLearned, reason)

	ok, reason = f.sys.TryCastSkill(f.player, CastData{Skill: skillStrike})
	assert.False(t, ok)
	assert.Equal(t, ReasonInvalidTarget, reason)

	f.ctx.MoveEntity(f.monster, geom.V(9, 0, 0))
	ok, reason = f.sys.TryCastSkill(f.player, CastData{Skill: skillStrike, Target: f.monster})
	assert.False(t, ok)
	assert.Equal(t, ReasonOutOfRange, reason)

	cb, _ := f.ctx.Combat.Get(f.player)
	cb.MP = 10
	ok, reason = f.sys.TryCastSkill(f.player, CastData{Skill: skillNova})
	assert.False(t, ok)
	assert.Equal(t, ReasonNotEnoughMana, reason)

	cb.Dead = true
	ok, reason = f.sys.TryCastSkill(f.player, CastData{Skill: skillNova})
	assert.False(t, ok)
	assert.Equal(t, ReasonCasterDead, reason)
	assert.Equal(t, uint64(6), f.sys.Stats().Rejected)
}

func TestTimelineFiresEventsOnSchedule(t *testing.T) {
	f := newFixture(t)
	var hits []world.DamageEvent
	event.Subscribe(f.ctx.Events, func(ev world.DamageEvent) { hits = append(hits, ev) })

	f.ctx.BeginTick(1)
	ok, _ := f.sys.TryCastSkill(f.player, CastData{Skill: skillStrike, Target: f.monster})
	require.True(t, ok)

	f.sys.Advance(tick)
	f.sys.Advance(tick)
	f.ctx.Events.Drain()
	assert.Empty(t, hits)

	f.sys.Advance(tick) // 0.3s
	f.ctx.Events.Drain()
	require.Len(t, hits, 1)
	assert.Equal(t, int32(8), hits[0].Amount) // 10 + 0 - 4/2
	assert.Equal(t, int32(42), hits[0].HP)

	f.sys.Advance(tick)
	f.sys.Advance(tick)
	assert.True(t, f.sys.IsCasting(f.player))
	done := f.sys.Advance(tick) // 0.6s
	require.Len(t, done, 1)
	assert.False(t, done[0].Interrupted)
	assert.False(t, f.sys.IsCasting(f.player))
}

func TestNewCastInterruptsRunningInstance(t *testing.T) {
	f := newFixture(t)
	f.ctx.BeginTick(1)
	mv, _ := f.ctx.Movement.Get(f.player)

	ok, _ := f.sys.TryCastSkill(f.player, CastData{Skill: skillLong})
	require.True(t, ok)
	first, _ := f.sys.Active(f.player)
	assert.Equal(t, 1, mv.MoveLocks)

	ok, _ = f.sys.TryCastSkill(f.player, CastData{Skill: skillNova})
	require.True(t, ok)
	assert.True(t, first.Done())
	assert.True(t, first.Interrupted())
	assert.Equal(t, 0, mv.MoveLocks, "interrupt closes open phases")

	second, ok := f.sys.Active(f.player)
	require.True(t, ok)
	assert.Equal(t, skillNova, second.Info().SkillID)

	done := f.sys.Advance(tick)
	require.Len(t, done, 1)
	assert.Equal(t, skillLong, done[0].Skill)
	assert.True(t, done[0].Interrupted)
	assert.True(t, f.sys.IsCasting(f.player), "the replacement keeps running")
}

func TestInterruptIsIdempotent(t *testing.T) {
	f := newFixture(t)
	f.ctx.BeginTick(1)
	ok, _ := f.sys.TryCastSkill(f.player, CastData{Skill: skillLong})
	require.True(t, ok)
	inst, _ := f.sys.Active(f.player)

	inst.Interrupt()
	inst.Interrupt()
	inst.Update(10 * time.Second)

	mv, _ := f.ctx.Movement.Get(f.player)
	assert.Equal(t, 0, mv.MoveLocks)
	done := f.sys.Advance(tick)
	assert.Len(t, done, 1)
	assert.False(t, f.sys.IsCasting(f.player))
}

func TestUpdateAfterInterruptFiresNothing(t *testing.T) {
	f := newFixture(t)
	var hits []world.DamageEvent
	event.Subscribe(f.ctx.Events, func(ev world.DamageEvent) { hits = append(hits, ev) })

	f.ctx.BeginTick(1)
	ok, _ := f.sys.TryCastSkill(f.player, CastData{Skill: skillStrike, Target: f.monster})
	require.True(t, ok)
	inst, _ := f.sys.Active(f.player)

	inst.Interrupt()
	inst.Update(time.Second)
	f.ctx.Events.Drain()
	assert.Empty(t, hits, "damage event after the interrupt")
	assert.Zero(t, inst.Elapsed())
	assert.Zero(t, inst.OpenPhases())
}

func TestDashMovesAlongDirection(t *testing.T) {
	f := newFixture(t)
	f.ctx.BeginTick(1)
	ok, _ := f.sys.TryCastSkill(f.player, CastData{Skill: skillDash, TargetDir: geom.V(0, 0, 1)})
	require.True(t, ok)

	for i := 0; i < 5; i++ {
		f.sys.Advance(tick)
	}
	pos, _ := f.ctx.Position(f.player)
	assert.InDelta(t, 4.0, pos.Z, 1e-3, "10 m/s for 0.4s")
	tr, _ := f.ctx.Transform.Get(f.player)
	assert.InDelta(t, 0.0, tr.Yaw, 1e-3)
}

func TestDashStopsAtTerrain(t *testing.T) {
	f := newFixtureOn(t, wallAt(2.5))
	f.ctx.BeginTick(1)
	ok, _ := f.sys.TryCastSkill(f.player, CastData{Skill: skillDash, TargetDir: geom.V(0, 0, 1)})
	require.True(t, ok)

	for i := 0; i < 5; i++ {
		f.sys.Advance(tick)
	}
	pos, _ := f.ctx.Position(f.player)
	assert.InDelta(t, 2.0, pos.Z, 1e-3)
}

func TestBuffStackCapAndModifiers(t *testing.T) {
	f := newFixture(t)
	for i := 0; i < 5; i++ {
		assert.True(t, f.sys.Buffs.Apply(f.player, f.player, buffMight))
	}
	b, ok := f.sys.Buffs.Get(f.player, buffMight)
	require.True(t, ok)
	assert.Equal(t, 3, b.Stacks)
	cb, _ := f.ctx.Combat.Get(f.player)
	assert.Equal(t, int32(12), cb.AttackBonus)

	assert.Equal(t, 1, f.sys.Buffs.Dispel(f.player, true))
	assert.Equal(t, int32(0), cb.AttackBonus, "modifiers revert on removal")
}

func TestBuffRefreshAndIgnore(t *testing.T) {
	f := newFixture(t)
	require.True(t, f.sys.Buffs.Apply(f.player, f.player, buffRegen))
	f.sys.Buffs.Update(time.Second)
	b, _ := f.sys.Buffs.Get(f.player, buffRegen)
	assert.Equal(t, time.Second, b.Remaining)

	require.True(t, f.sys.Buffs.Apply(f.player, f.player, buffRegen))
	b, _ = f.sys.Buffs.Get(f.player, buffRegen)
	assert.Equal(t, 2*time.Second, b.Remaining)
	assert.Equal(t, 1, b.Stacks)

	require.True(t, f.sys.Buffs.Apply(f.player, f.player, buffWard))
	assert.False(t, f.sys.Buffs.Apply(f.player, f.player, buffWard))
	cb, _ := f.ctx.Combat.Get(f.player)
	assert.Equal(t, int32(2), cb.DefenseBonus)
}

func TestBuffReplaceStartsFreshInstance(t *testing.T) {
	f := newFixture(t)
	var removed []world.BuffRemovedEvent
	event.Subscribe(f.ctx.Events, func(ev world.BuffRemovedEvent) { removed = append(removed, ev) })

	require.True(t, f.sys.Buffs.Apply(f.player, f.player, buffHaste))
	f.sys.Buffs.Update(time.Second)
	old, _ := f.sys.Buffs.Get(f.player, buffHaste)
	assert.Equal(t, 3*time.Second, old.Remaining)

	require.True(t, f.sys.Buffs.Apply(f.player, f.monster, buffHaste))
	f.ctx.Events.Drain()
	require.Len(t, removed, 1)
	assert.Equal(t, RemovedReplaced, removed[0].Reason)
	assert.Equal(t, buffHaste, removed[0].Buff)

	b, ok := f.sys.Buffs.Get(f.player, buffHaste)
	require.True(t, ok)
	assert.Equal(t, 4*time.Second, b.Remaining, "full duration")
	assert.Equal(t, 1, b.Stacks)
	assert.Equal(t, f.monster, b.Source)
	assert.Equal(t, 1, f.sys.Buffs.Count(f.player))

	cb, _ := f.ctx.Combat.Get(f.player)
	assert.Equal(t, int32(5), cb.AttackBonus, "old modifiers reverted before the new ones apply")
}

func TestPeriodicDamageExpiresAndKills(t *testing.T) {
	f := newFixture(t)
	var deaths []world.DeathEvent
	event.Subscribe(f.ctx.Events, func(ev world.DeathEvent) { deaths = append(deaths, ev) })

	f.ctx.BeginTick(1)
	ok, _ := f.sys.TryCastSkill(f.player, CastData{Skill: skillPoison, Target: f.monster})
	require.True(t, ok)
	b, ok := f.sys.Buffs.Get(f.monster, buffVenom)
	require.True(t, ok)
	assert.Equal(t, f.player, b.Source)

	for i := 0; i < 3; i++ {
		f.sys.Buffs.Update(time.Second)
	}
	cb, _ := f.ctx.Combat.Get(f.monster)
	assert.Equal(t, int32(41), cb.HP)
	assert.Equal(t, 0, f.sys.Buffs.Count(f.monster))

	cb.HP = 2
	f.sys.Buffs.Apply(f.monster, f.player, buffVenom)
	f.sys.Buffs.Update(time.Second)
	assert.True(t, cb.Dead)
	assert.Equal(t, int32(0), cb.HP)
	f.ctx.Events.Drain()
	require.Len(t, deaths, 1)
	assert.Equal(t, f.player, deaths[0].Killer)

	f.sys.OnDeath(f.monster)
	assert.Equal(t, 0, f.sys.Buffs.Count(f.monster))
}

func TestAreaBuffPulsesAllies(t *testing.T) {
	f := newFixture(t)
	ally, err := f.ctx.AddEntity(world.Spawn{
		Identity:  component.Identity{Kind: component.KindPlayer, Name: "friend", PlayerID: 2},
		Transform: component.Transform{Pos: geom.V(0, 0, 3)},
		Combat:    component.Combat{HP: 10, MaxHP: 100},
	})
	require.NoError(t, err)

	f.sys.Areas.Add(f.player, geom.V(0, 0, 0), 5, buffRegen, time.Second, 2*time.Second)
	f.sys.Areas.Update(tick)

	_, ok := f.sys.Buffs.Get(ally, buffRegen)
	assert.True(t, ok)
	_, ok = f.sys.Buffs.Get(f.player, buffRegen)
	assert.True(t, ok)
	_, ok = f.sys.Buffs.Get(f.monster, buffRegen)
	assert.False(t, ok, "beneficial zones skip hostiles")

	for i := 0; i < 20; i++ {
		f.sys.Areas.Update(tick)
	}
	assert.Equal(t, 0, f.sys.Areas.Len())
}

func TestCanCastChecksCooldownAndMana(t *testing.T) {
	f := newFixture(t)
	f.ctx.BeginTick(1)
	assert.True(t, f.sys.CanCast(f.player, skillNova))
	assert.False(t, f.sys.CanCast(f.monster, skillNova), "not learned")
	assert.False(t, f.sys.CanCast(f.player, 99))

	ok, _ := f.sys.TryCastSkill(f.player, CastData{Skill: skillNova})
	require.True(t, ok)
	assert.False(t, f.sys.CanCast(f.player, skillNova), "cooling down")

	cb, _ := f.ctx.Combat.Get(f.player)
	cb.MP = 29
	f.ctx.BeginTick(100)
	assert.False(t, f.sys.CanCast(f.player, skillNova), "30 mana needed")
	cb.MP = 30
	assert.True(t, f.sys.CanCast(f.player, skillNova))
}
