// Package region is the per-shard tick orchestrator. A World owns the entity
// context of one region or dungeon instance, the skill, behaviour and AI
// systems acting on it, and the queue of intents waiting for the next tick.
package region

import (
	"errors"
	"fmt"
	"math/rand"
	"time"

	"go.uber.org/zap"

	"github.com/l1jgo/worldcore/internal/ai"
	"github.com/l1jgo/worldcore/internal/behavior"
	"github.com/l1jgo/worldcore/internal/config"
	"github.com/l1jgo/worldcore/internal/core/event"
	coresys "github.com/l1jgo/worldcore/internal/core/system"
	"github.com/l1jgo/worldcore/internal/data"
	"github.com/l1jgo/worldcore/internal/loot"
	"github.com/l1jgo/worldcore/internal/nav"
	"github.com/l1jgo/worldcore/internal/scripting"
	"github.com/l1jgo/worldcore/internal/skill"
	"github.com/l1jgo/worldcore/internal/system"
	"github.com/l1jgo/worldcore/internal/world"
)

// Deps are the shared, read-only inputs of a shard.
type Deps struct {
	Tables  *data.Tables
	Scripts *scripting.Engine // optional; built-in formulas without it
	Volume  *nav.Volume
	Gateway world.Gateway
}

// Stats counts shard activity.
type Stats struct {
	Ticks         uint64
	Intents       uint64
	Carried       uint64 // intents pushed to a later tick by the per-tick cap
	MovesRejected uint64
	StaleMoves    uint64
	CastsRejected uint64
	Spawned       uint64
	Respawned     uint64
	SlowTicks     uint64 // ticks whose systems ran longer than the tick rate
}

type respawn struct {
	index int
	at    uint64
}

// World is one Region or Dungeon. Not safe for concurrent use: the shard
// actor is the only caller.
type World struct {
	id   uint32
	kind Kind
	name string

	ctx      *world.Context
	runner   *coresys.Runner
	skills   *skill.System
	behavior *behavior.System
	ai       *ai.System
	loot     *loot.Manager
	paths    *nav.Pathfinder
	volume   *nav.Volume
	tables   *data.Tables
	spawns   []data.SpawnEntry

	intents    []Intent
	maxIntents int
	budget     time.Duration // wall time one tick may take

	moveTolerance float32
	corpseTicks   int64
	respawns      []respawn
	monsters      int // living monsters
	cleared       bool

	rng   *rand.Rand
	stats Stats
	log   *zap.Logger
}

// New builds a shard, registers its systems in tick order and places the
// monsters of its spawn list.
func New(cfg *config.Config, shard config.ShardConfig, deps Deps, log *zap.Logger) (*World, error) {
	kind, err := ParseKind(shard.Kind)
	if err != nil {
		return nil, fmt.Errorf("shard %d: %w", shard.ID, err)
	}
	if deps.Tables == nil {
		return nil, fmt.Errorf("shard %d: no data tables", shard.ID)
	}
	if deps.Volume == nil {
		return nil, errors.New("shard needs a nav volume")
	}

	ctx := world.NewContext(world.Options{
		ShardID:   shard.ID,
		CellSize:  cfg.AOI.CellSize,
		AOIRadius: cfg.AOI.Radius,
		TickMs:    cfg.Simulation.TickMs(),
		Terrain:   deps.Volume,
	}, log)
	log = ctx.Log().With(zap.String("kind", kind.String()))

	w := &World{
		id:            shard.ID,
		kind:          kind,
		name:          shard.Name,
		ctx:           ctx,
		runner:        coresys.NewRunner(),
		volume:        deps.Volume,
		paths:         nav.NewPathfinder(deps.Volume, navOptions(cfg.Nav)),
		tables:        deps.Tables,
		spawns:        deps.Tables.SpawnsFor(shard.ID),
		maxIntents:    cfg.Simulation.MaxIntentsPerTick,
		budget:        cfg.Simulation.TickRate,
		moveTolerance: cfg.Simulation.MoveTolerance,
		corpseTicks:   ctx.TicksFor(cfg.Simulation.CorpseDelay),
		rng:           rand.New(rand.NewSource(cfg.Simulation.Seed ^ int64(shard.ID))),
		log:           log,
	}
	w.skills = skill.NewSystem(ctx, deps.Tables.Skills, deps.Tables.Buffs, deps.Scripts, log)
	w.behavior, err = behavior.NewSystem(ctx, w.skills, log)
	if err != nil {
		return nil, fmt.Errorf("shard %d: %w", shard.ID, err)
	}
	w.ai, err = ai.NewSystem(ctx, cfg.AI, combat{w}, w.paths, cfg.Simulation.Seed^int64(shard.ID)<<16, log)
	if err != nil {
		return nil, fmt.Errorf("shard %d: %w", shard.ID, err)
	}
	w.loot = loot.NewManager(ctx, deps.Tables.Loot, cfg.Simulation.LootTimeout, cfg.Simulation.Seed+int64(shard.ID), log)

	// translators first so Death reaches watchers before KillCredit
	events := system.NewEventSystem(ctx)
	event.Subscribe(ctx.Events, w.ai.OnDamage)
	event.Subscribe(ctx.Events, w.onDeath)

	w.runner.Register(system.NewInputSystem(w))
	w.runner.Register(system.Func{P: coresys.PhaseInput, Fn: w.upkeep})
	w.runner.Register(system.NewCombatSystem(w.skills, w.loot, log))
	w.runner.Register(system.NewAISystem(w.ai))
	w.runner.Register(system.NewBehaviorSystem(w.behavior))
	w.runner.Register(events)
	w.runner.Register(system.NewVisibilitySystem(ctx))
	w.runner.Register(system.NewSyncSystem(ctx))
	w.runner.Register(system.NewOutputSystem(ctx, deps.Gateway))
	w.runner.Register(system.NewCleanupSystem(ctx, w.skills, w.behavior, w.ai))

	w.populate()
	log.Info("shard ready",
		zap.String("name", shard.Name),
		zap.Int("monsters", w.monsters),
	)
	return w, nil
}

func navOptions(c config.NavConfig) nav.Options {
	return nav.Options{
		Mode:            nav.NeighborMode(c.NeighborMode),
		MaxExpansions:   c.MaxExpansions,
		HeuristicScale:  c.HeuristicScale,
		LOSStep:         c.LOSStep,
		SnapMaxDelta:    c.SnapMaxDelta,
		DirectTolerance: c.DirectTolerance,
		CacheSize:       c.PathCacheSize,
	}
}

func (w *World) ID() uint32                  { return w.id }
func (w *World) Kind() Kind                  { return w.kind }
func (w *World) Name() string                { return w.name }
func (w *World) Context() *world.Context     { return w.ctx }
func (w *World) Skills() *skill.System       { return w.skills }
func (w *World) Behavior() *behavior.System  { return w.behavior }
func (w *World) AI() *ai.System              { return w.ai }
func (w *World) Loot() *loot.Manager         { return w.loot }
func (w *World) Pathfinder() *nav.Pathfinder { return w.paths }
func (w *World) Stats() Stats                { return w.stats }
func (w *World) Pending() int                { return len(w.intents) }
func (w *World) Monsters() int               { return w.monsters }
func (w *World) Cleared() bool               { return w.cleared }

// Enqueue queues an intent for the next tick.
func (w *World) Enqueue(in Intent) {
	w.intents = append(w.intents, in)
}

// Tick simulates one step: intents, combat, AI, behaviour, events,
// visibility, sync, then the single outbound flush and cleanup.
func (w *World) Tick(tick uint64, dt time.Duration) {
	w.ctx.BeginTick(tick)
	took := w.runner.Tick(dt)
	w.stats.Ticks++
	if w.budget > 0 && took > w.budget {
		w.stats.SlowTicks++
		slow := w.runner.Slowest()
		w.log.Warn("tick over budget",
			zap.Uint64("tick", tick),
			zap.Duration("took", took),
			zap.Stringer("phase", slow),
			zap.Duration("phase_took", w.runner.Spent(slow)),
		)
	}
}

// ApplyIntents drains the queue in arrival order, at most maxIntents of
// them; the rest wait for the next tick with their order kept.
func (w *World) ApplyIntents() int {
	todo := w.intents
	if w.maxIntents > 0 && len(todo) > w.maxIntents {
		todo = todo[:w.maxIntents]
	}
	rest := w.intents[len(todo):]
	w.intents = append(make([]Intent, 0, len(rest)), rest...)
	w.stats.Carried += uint64(len(rest))

	for _, in := range todo {
		w.apply(in)
	}
	w.stats.Intents += uint64(len(todo))
	return len(todo)
}

func (w *World) apply(in Intent) {
	switch in := in.(type) {
	case SpawnPlayer:
		w.spawnPlayer(in)
	case SpawnMonster:
		w.spawnAdHoc(in)
	case Despawn:
		w.applyDespawn(in)
	case Move:
		w.applyMove(in)
	case CastSkill:
		w.applyCast(in)
	case LootChoice:
		w.applyLoot(in)
	default:
		w.log.Warn("unknown intent", zap.String("type", fmt.Sprintf("%T", in)))
	}
}
