package skill

import (
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/l1jgo/worldcore/internal/core/ecs"
	"github.com/l1jgo/worldcore/internal/core/event"
	"github.com/l1jgo/worldcore/internal/data"
	"github.com/l1jgo/worldcore/internal/scripting"
	"github.com/l1jgo/worldcore/internal/world"
)

// Buff removal reasons carried by BuffRemovedEvent.
const (
	RemovedExpired  = "expired"
	RemovedDispel   = "dispel"
	RemovedReplaced = "replaced"
	RemovedDeath    = "death"
)

// Buff is one timed effect on a target.
type Buff struct {
	Info      *data.BuffInfo
	Source    ecs.EntityID
	Stacks    int
	Remaining time.Duration
	nextTick  time.Duration
}

// BuffSystem owns every active buff of a shard. Unlike skill instances a
// target may carry any number of buffs; stacking is per buff config.
type BuffSystem struct {
	ctx     *world.Context
	table   *data.BuffTable
	damage  *Damage
	scripts *scripting.Engine
	active  map[ecs.EntityID][]*Buff
	log     *zap.Logger
}

func NewBuffSystem(ctx *world.Context, table *data.BuffTable, damage *Damage, scripts *scripting.Engine, log *zap.Logger) *BuffSystem {
	return &BuffSystem{
		ctx:     ctx,
		table:   table,
		damage:  damage,
		scripts: scripts,
		active:  make(map[ecs.EntityID][]*Buff),
		log:     log,
	}
}

// Apply lands buffID on target following the buff's stack policy. Returns
// false when nothing changed.
func (s *BuffSystem) Apply(target, source ecs.EntityID, buffID int32) bool {
	info := s.table.Get(buffID)
	if info == nil {
		s.log.Debug("apply unknown buff", zap.Int32("buff", buffID))
		return false
	}
	if s.ctx.Dead(target) {
		return false
	}

	if b := s.find(target, buffID); b != nil {
		switch info.Stack {
		case data.StackIgnore:
			return false
		case data.StackReplace:
			s.remove(target, b, RemovedReplaced)
			s.add(target, source, info)
		case data.StackAdd:
			if b.Stacks < info.MaxStacks {
				b.Stacks++
				s.modify(target, info, 1)
			}
			b.Source = source
			b.Remaining = info.Duration
		default: // refresh
			b.Source = source
			b.Remaining = info.Duration
		}
		s.emitApplied(target, s.find(target, buffID))
		return true
	}

	s.add(target, source, info)
	s.emitApplied(target, s.find(target, buffID))
	return true
}

func (s *BuffSystem) add(target, source ecs.EntityID, info *data.BuffInfo) {
	b := &Buff{
		Info:      info,
		Source:    source,
		Stacks:    1,
		Remaining: info.Duration,
		nextTick:  info.Interval,
	}
	s.active[target] = append(s.active[target], b)
	s.modify(target, info, 1)
}

func (s *BuffSystem) emitApplied(target ecs.EntityID, b *Buff) {
	event.Emit(s.ctx.Events, world.BuffAppliedEvent{
		Target:    target,
		Source:    b.Source,
		Buff:      b.Info.BuffID,
		Stacks:    b.Stacks,
		Remaining: float32(b.Remaining.Seconds()),
	})
}

// modify applies (stacks>0) or reverts (stacks<0) flat stat modifiers.
func (s *BuffSystem) modify(target ecs.EntityID, info *data.BuffInfo, stacks int) {
	n := int32(stacks)
	if cb, ok := s.ctx.Combat.Get(target); ok {
		cb.AttackBonus += info.Attack * n
		cb.DefenseBonus += info.Defense * n
	}
	if info.MoveSpeed != 0 {
		if mv, ok := s.ctx.Movement.Get(target); ok {
			d := info.MoveSpeed * float32(stacks)
			mv.SpeedBonus += d
			mv.Speed += d
		}
	}
}

func (s *BuffSystem) find(target ecs.EntityID, buffID int32) *Buff {
	for _, b := range s.active[target] {
		if b.Info.BuffID == buffID {
			return b
		}
	}
	return nil
}

// remove reverts b's modifiers and drops it from target.
func (s *BuffSystem) remove(target ecs.EntityID, b *Buff, reason string) {
	list := s.active[target]
	for i, cur := range list {
		if cur != b {
			continue
		}
		list = append(list[:i], list[i+1:]...)
		break
	}
	if len(list) == 0 {
		delete(s.active, target)
	} else {
		s.active[target] = list
	}
	s.modify(target, b.Info, -b.Stacks)
	event.Emit(s.ctx.Events, world.BuffRemovedEvent{Target: target, Buff: b.Info.BuffID, Reason: reason})
}

// Update ticks periodic effects and expires buffs.
func (s *BuffSystem) Update(dt time.Duration) {
	for _, target := range s.targets() {
		for _, b := range append([]*Buff(nil), s.active[target]...) {
			if s.ctx.Dead(target) {
				break
			}
			if b.Info.Interval > 0 {
				b.nextTick -= dt
				for b.nextTick <= 0 && !s.ctx.Dead(target) {
					s.pulse(target, b)
					b.nextTick += b.Info.Interval
				}
			}
			b.Remaining -= dt
			if b.Remaining <= 0 {
				s.remove(target, b, RemovedExpired)
			}
		}
	}
}

func (s *BuffSystem) pulse(target ecs.EntityID, b *Buff) {
	if b.Info.DamagePerTick > 0 {
		s.damage.Deal(b.Source, target, 0, s.tickAmount(b.Info.DamagePerTick, b.Stacks), false)
	}
	if b.Info.HealPerTick > 0 {
		s.damage.Deal(b.Source, target, 0, s.tickAmount(b.Info.HealPerTick, b.Stacks), true)
	}
}

func (s *BuffSystem) tickAmount(power int32, stacks int) int32 {
	if s.scripts != nil {
		return s.scripts.CalcBuffTick(power, int32(stacks))
	}
	return power * int32(stacks)
}

// Dispel removes dispellable buffs from target: all of them, or only the
// most recently applied one. Returns how many were removed.
func (s *BuffSystem) Dispel(target ecs.EntityID, all bool) int {
	list := s.active[target]
	removed := 0
	for i := len(list) - 1; i >= 0; i-- {
		b := list[i]
		if !b.Info.Dispellable {
			continue
		}
		s.remove(target, b, RemovedDispel)
		removed++
		if !all {
			break
		}
	}
	return removed
}

// ClearTarget drops every buff of target, reverting modifiers.
func (s *BuffSystem) ClearTarget(target ecs.EntityID, reason string) {
	list := append([]*Buff(nil), s.active[target]...)
	for i := len(list) - 1; i >= 0; i-- {
		s.remove(target, list[i], reason)
	}
}

// Forget drops target's buffs without reverting or emitting. Used once the
// entity itself is gone.
func (s *BuffSystem) Forget(target ecs.EntityID) { delete(s.active, target) }

// Get returns a copy of target's buffID, if active.
func (s *BuffSystem) Get(target ecs.EntityID, buffID int32) (Buff, bool) {
	if b := s.find(target, buffID); b != nil {
		return *b, true
	}
	return Buff{}, false
}

// Count returns the number of buffs on target.
func (s *BuffSystem) Count(target ecs.EntityID) int { return len(s.active[target]) }

func (s *BuffSystem) targets() []ecs.EntityID {
	ids := make([]ecs.EntityID, 0, len(s.active))
	for id := range s.active {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}
