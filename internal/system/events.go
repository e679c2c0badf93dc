package system

import (
	"time"

	"github.com/l1jgo/worldcore/internal/core/event"
	coresys "github.com/l1jgo/worldcore/internal/core/system"
	"github.com/l1jgo/worldcore/internal/world"
)

// EventSystem drains the world-event queue. The translators registered here
// turn each event into an outbound message for the players watching its
// subject; other subscribers (death handling, threat) run from the same
// drain. Phase 4 (Events).
type EventSystem struct {
	ctx     *world.Context
	drained uint64
}

func NewEventSystem(ctx *world.Context) *EventSystem {
	s := &EventSystem{ctx: ctx}
	event.Subscribe(ctx.Events, s.onDamage)
	event.Subscribe(ctx.Events, s.onDeath)
	event.Subscribe(ctx.Events, s.onSkill)
	event.Subscribe(ctx.Events, s.onBuffApplied)
	event.Subscribe(ctx.Events, s.onBuffRemoved)
	return s
}

func (s *EventSystem) Phase() coresys.Phase { return coresys.PhaseEvents }
func (s *EventSystem) Drained() uint64      { return s.drained }

func (s *EventSystem) Update(_ time.Duration) {
	s.drained += uint64(s.ctx.Events.Drain())
}

func (s *EventSystem) onDamage(ev world.DamageEvent) {
	s.ctx.Broadcast(ev.Target, world.ProtoDamage, world.DamagePayload{
		Source: ev.Source,
		Target: ev.Target,
		Skill:  ev.Skill,
		Amount: ev.Amount,
		HP:     ev.HP,
		Heal:   ev.Heal,
	})
}

func (s *EventSystem) onDeath(ev world.DeathEvent) {
	s.ctx.Broadcast(ev.Entity, world.ProtoDeath, world.DeathPayload{Entity: ev.Entity, Killer: ev.Killer})
}

func (s *EventSystem) onSkill(ev world.SkillExecutedEvent) {
	s.ctx.Broadcast(ev.Caster, world.ProtoSkillExecution, world.SkillExecutionPayload{
		Caster:    ev.Caster,
		Skill:     ev.Skill,
		Target:    ev.Target,
		TargetPos: ev.TargetPos,
		Dir:       ev.Dir,
	})
}

func (s *EventSystem) onBuffApplied(ev world.BuffAppliedEvent) {
	s.ctx.Broadcast(ev.Target, world.ProtoBuffApplied, world.BuffPayload{
		Target:    ev.Target,
		Buff:      ev.Buff,
		Stacks:    ev.Stacks,
		Remaining: ev.Remaining,
	})
}

func (s *EventSystem) onBuffRemoved(ev world.BuffRemovedEvent) {
	s.ctx.Broadcast(ev.Target, world.ProtoBuffRemoved, world.BuffPayload{
		Target: ev.Target,
		Buff:   ev.Buff,
		Reason: ev.Reason,
	})
}
