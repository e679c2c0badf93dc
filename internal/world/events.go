package world

import (
	"github.com/l1jgo/worldcore/internal/core/ecs"
	"github.com/l1jgo/worldcore/internal/geom"
)

// In-tick world events. Emitted on Context.Events by the simulation systems
// and translated into AOI-scoped outbound messages when the queue drains.

// DamageEvent is emitted after HP changed. Heal events carry Heal=true.
type DamageEvent struct {
	Source ecs.EntityID
	Target ecs.EntityID
	Skill  int32
	Amount int32
	HP     int32
	Heal   bool
}

// DeathEvent is emitted once when an entity's HP reaches zero.
type DeathEvent struct {
	Entity ecs.EntityID
	Killer ecs.EntityID
}

// SkillExecutedEvent is emitted for every successful cast.
type SkillExecutedEvent struct {
	Caster    ecs.EntityID
	Skill     int32
	Target    ecs.EntityID
	TargetPos geom.Vec3
	Dir       geom.Vec3
}

type BuffAppliedEvent struct {
	Target    ecs.EntityID
	Source    ecs.EntityID
	Buff      int32
	Stacks    int
	Remaining float32
}

type BuffRemovedEvent struct {
	Target ecs.EntityID
	Buff   int32
	Reason string // "expired", "dispel", "replaced", "death"
}
