package skill

import (
	"math"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/l1jgo/worldcore/internal/core/ecs"
	"github.com/l1jgo/worldcore/internal/core/event"
	"github.com/l1jgo/worldcore/internal/data"
	"github.com/l1jgo/worldcore/internal/geom"
	"github.com/l1jgo/worldcore/internal/scripting"
	"github.com/l1jgo/worldcore/internal/world"
)

// rangeSlack absorbs float error and one tick of target drift.
const rangeSlack = 0.5

type cooldownKey struct {
	caster ecs.EntityID
	skill  int32
}

// Stats counts cast outcomes.
type Stats struct {
	Casts       uint64
	Rejected    uint64
	Interrupted uint64
	Completed   uint64
}

// System runs skill casts for one shard: validation, cooldowns, at most one
// running Instance per caster, plus the buff and area-buff systems.
// A new valid cast always interrupts the caster's running instance; casts
// are never queued.
type System struct {
	ctx    *world.Context
	skills *data.SkillTable

	Buffs  *BuffSystem
	Areas  *AreaBuffSystem
	Damage *Damage

	active    map[ecs.EntityID]*Instance
	cooldowns map[cooldownKey]uint64 // tick at which the skill is ready again
	finished  []Finished
	runners   map[string]phaseRunner

	stats Stats
	log   *zap.Logger
}

func NewSystem(ctx *world.Context, skills *data.SkillTable, buffs *data.BuffTable, scripts *scripting.Engine, log *zap.Logger) *System {
	dmg := NewDamage(ctx, scripts)
	bs := NewBuffSystem(ctx, buffs, dmg, scripts, log)
	s := &System{
		ctx:       ctx,
		skills:    skills,
		Buffs:     bs,
		Areas:     NewAreaBuffSystem(ctx, bs),
		Damage:    dmg,
		active:    make(map[ecs.EntityID]*Instance),
		cooldowns: make(map[cooldownKey]uint64),
		log:       log,
	}
	s.runners = map[string]phaseRunner{
		data.PhaseChannel:  channelPhase{},
		data.PhaseMoveLock: moveLockPhase{},
		data.PhaseDash:     dashPhase{},
	}
	return s
}

func (s *System) Skills() *data.SkillTable { return s.skills }
func (s *System) Stats() Stats             { return s.stats }

// TryCastSkill validates and starts a cast. Validation has no side effects;
// on success the previous instance is interrupted, mana is paid, the
// cooldown is written and a SkillExecutedEvent is emitted.
func (s *System) TryCastSkill(caster ecs.EntityID, cd CastData) (bool, Reason) {
	ok, reason, center, dir := s.validate(caster, cd)
	if !ok {
		s.stats.Rejected++
		s.log.Debug("cast rejected",
			zap.Uint64("caster", uint64(caster)),
			zap.Int32("skill", cd.Skill),
			zap.String("reason", reason.String()),
		)
		return false, reason
	}
	info := s.skills.Get(cd.Skill)

	if old := s.active[caster]; old != nil {
		old.Interrupt()
		delete(s.active, caster)
	}

	cb, _ := s.ctx.Combat.Get(caster)
	cb.MP -= info.MpCost

	tick := s.ctx.Tick()
	s.cooldowns[cooldownKey{caster, info.SkillID}] = tick + s.cooldownTicks(info.Cooldown)

	if !dir.IsZero() {
		if tr, ok := s.ctx.Transform.Get(caster); ok {
			if mv, ok := s.ctx.Movement.Get(caster); !ok || mv.CanTurn() {
				tr.Yaw = geom.YawOf(dir)
				tr.Dir = dir
			}
		}
	}

	event.Emit(s.ctx.Events, world.SkillExecutedEvent{
		Caster:    caster,
		Skill:     info.SkillID,
		Target:    cd.Target,
		TargetPos: center,
		Dir:       dir,
	})

	inst := &Instance{caster: caster, info: info, cast: cd, center: center, dir: dir, sys: s}
	s.active[caster] = inst
	s.stats.Casts++
	inst.Start()
	return true, ReasonOK
}

// cooldownTicks converts seconds to whole ticks, rounding up.
func (s *System) cooldownTicks(seconds float64) uint64 {
	if seconds <= 0 {
		return 0
	}
	return uint64(math.Ceil(seconds*1000/float64(s.ctx.TickMs()) - 1e-9))
}

func (s *System) validate(caster ecs.EntityID, cd CastData) (bool, Reason, geom.Vec3, geom.Vec3) {
	var zero geom.Vec3
	info := s.skills.Get(cd.Skill)
	if info == nil {
		return false, ReasonUnknownSkill, zero, zero
	}
	cb, ok := s.ctx.Combat.Get(caster)
	if !ok || s.ctx.Dead(caster) {
		return false, ReasonCasterDead, zero, zero
	}
	if book, ok := s.ctx.SkillBook.Get(caster); !ok || !book.Knows(cd.Skill) {
		return false, ReasonNotLearned, zero, zero
	}
	if !s.Ready(caster, cd.Skill) {
		return false, ReasonCoolingDown, zero, zero
	}
	if cb.MP < info.MpCost {
		return false, ReasonNotEnoughMana, zero, zero
	}

	pos, _ := s.ctx.Position(caster)
	switch info.Target {
	case data.TargetEntity:
		if cd.Target == 0 || s.ctx.Dead(cd.Target) {
			return false, ReasonInvalidTarget, zero, zero
		}
		tpos, _ := s.ctx.Position(cd.Target)
		if geom.Dist(pos, tpos) > info.Range+rangeSlack {
			return false, ReasonOutOfRange, zero, zero
		}
		return true, ReasonOK, tpos, tpos.Sub(pos).Flat().Normalize()
	case data.TargetPosition:
		if geom.Dist(pos, cd.TargetPos) > info.Range+rangeSlack {
			return false, ReasonOutOfRange, zero, zero
		}
		return true, ReasonOK, cd.TargetPos, cd.TargetPos.Sub(pos).Flat().Normalize()
	case data.TargetDirection:
		dir := cd.TargetDir.Flat().Normalize()
		if dir.IsZero() {
			if tr, ok := s.ctx.Transform.Get(caster); ok {
				dir = geom.Forward(tr.Yaw)
			}
		}
		return true, ReasonOK, pos, dir
	default:
		return true, ReasonOK, pos, zero
	}
}

// Ready reports whether caster may cast skill at the current tick as far as
// cooldowns go.
func (s *System) Ready(caster ecs.EntityID, skill int32) bool {
	return s.ctx.Tick() >= s.cooldowns[cooldownKey{caster, skill}]
}

// CanCast reports whether caster knows skill, has it off cooldown and can
// pay its mana. Range and target are left to TryCastSkill.
func (s *System) CanCast(caster ecs.EntityID, skill int32) bool {
	info := s.skills.Get(skill)
	if info == nil || !s.Ready(caster, skill) {
		return false
	}
	if book, ok := s.ctx.SkillBook.Get(caster); !ok || !book.Knows(skill) {
		return false
	}
	cb, ok := s.ctx.Combat.Get(caster)
	return ok && cb.MP >= info.MpCost
}

// ReadyAt returns the tick at which skill comes off cooldown for caster.
func (s *System) ReadyAt(caster ecs.EntityID, skill int32) uint64 {
	return s.cooldowns[cooldownKey{caster, skill}]
}

// IsCasting reports whether caster has a running instance.
func (s *System) IsCasting(caster ecs.EntityID) bool {
	_, ok := s.active[caster]
	return ok
}

// Active returns caster's running instance, if any.
func (s *System) Active(caster ecs.EntityID) (*Instance, bool) {
	inst, ok := s.active[caster]
	return inst, ok
}

// Interrupt ends caster's running instance early.
func (s *System) Interrupt(caster ecs.EntityID) bool {
	inst, ok := s.active[caster]
	if !ok {
		return false
	}
	inst.Interrupt()
	delete(s.active, caster)
	return true
}

// Advance steps every running instance, then buffs, then area buffs, and
// returns the finish notifications of this tick.
func (s *System) Advance(dt time.Duration) []Finished {
	casters := make([]ecs.EntityID, 0, len(s.active))
	for id := range s.active {
		casters = append(casters, id)
	}
	sort.Slice(casters, func(i, j int) bool { return casters[i] < casters[j] })
	for _, id := range casters {
		if inst := s.active[id]; inst != nil {
			inst.Update(dt)
		}
	}
	s.Buffs.Update(dt)
	s.Areas.Update(dt)
	return s.drainFinished()
}

func (s *System) drainFinished() []Finished {
	out := s.finished
	s.finished = nil
	for _, f := range out {
		if f.Interrupted {
			s.stats.Interrupted++
		} else {
			s.stats.Completed++
		}
		if cur := s.active[f.Caster]; cur == f.inst {
			delete(s.active, f.Caster)
		}
	}
	return out
}

// OnDeath stops everything the dead entity was doing or suffering.
func (s *System) OnDeath(id ecs.EntityID) {
	s.Interrupt(id)
	s.Buffs.ClearTarget(id, RemovedDeath)
}

// Forget drops all state of a destroyed entity.
func (s *System) Forget(id ecs.EntityID) {
	s.Interrupt(id)
	s.Buffs.Forget(id)
	for k := range s.cooldowns {
		if k.caster == id {
			delete(s.cooldowns, k)
		}
	}
}

func (s *System) runnerFor(kind string) phaseRunner { return s.runners[kind] }

// fire executes one instantaneous timeline event.
func (s *System) fire(inst *Instance, ev *data.SkillEvent) {
	switch ev.Type {
	case data.EventDamage:
		for _, t := range s.hostiles(inst, ev.Radius) {
			s.Damage.Apply(inst.caster, t, inst.info.SkillID, ev.Power, false)
		}
	case data.EventHeal:
		for _, t := range s.allies(inst, ev.Radius) {
			s.Damage.Apply(inst.caster, t, inst.info.SkillID, ev.Power, true)
		}
	case data.EventApplyBuff:
		targets := s.hostiles(inst, ev.Radius)
		if inst.info.Target == data.TargetSelf || len(targets) == 0 && !s.harmful(ev.BuffID) {
			targets = s.allies(inst, ev.Radius)
		}
		for _, t := range targets {
			s.Buffs.Apply(t, inst.caster, ev.BuffID)
		}
	case data.EventAreaBuff:
		s.Areas.Add(inst.caster, inst.center, ev.Radius, ev.BuffID, ev.Interval, ev.Duration)
	case data.EventDispel:
		for _, t := range s.allies(inst, ev.Radius) {
			s.Buffs.Dispel(t, ev.All)
		}
	}
}

func (s *System) harmful(buffID int32) bool {
	info := s.Buffs.table.Get(buffID)
	return info != nil && (info.DamagePerTick > 0 || info.Attack < 0 || info.Defense < 0 || info.MoveSpeed < 0)
}

// hostiles resolves the enemies an event hits: everything hostile within
// radius of the instance centre, or the primary target alone.
func (s *System) hostiles(inst *Instance, radius float32) []ecs.EntityID {
	if radius > 0 {
		return s.around(inst.center, radius, func(id ecs.EntityID) bool { return s.ctx.Hostile(inst.caster, id) })
	}
	t := inst.cast.Target
	if inst.info.Target != data.TargetEntity || t == 0 || s.ctx.Dead(t) || !s.ctx.Hostile(inst.caster, t) {
		return nil
	}
	return []ecs.EntityID{t}
}

// allies is hostiles' counterpart for beneficial effects. Without a radius
// it is the primary friendly target, else the caster.
func (s *System) allies(inst *Instance, radius float32) []ecs.EntityID {
	if radius > 0 {
		return s.around(inst.center, radius, func(id ecs.EntityID) bool { return !s.ctx.Hostile(inst.caster, id) })
	}
	t := inst.cast.Target
	if inst.info.Target == data.TargetEntity && t != 0 && !s.ctx.Dead(t) && !s.ctx.Hostile(inst.caster, t) {
		return []ecs.EntityID{t}
	}
	if s.ctx.Dead(inst.caster) {
		return nil
	}
	return []ecs.EntityID{inst.caster}
}

func (s *System) around(center geom.Vec3, radius float32, keep func(ecs.EntityID) bool) []ecs.EntityID {
	var out []ecs.EntityID
	for _, id := range s.ctx.EntitiesNear(center, radius) {
		if !s.ctx.Dead(id) && keep(id) {
			out = append(out, id)
		}
	}
	return out
}

// --- phases ---

// channelPhase pulses damage (or healing) around the caster every interval.
type channelPhase struct{}

func (channelPhase) Begin(*Instance, *openPhase) {}
func (channelPhase) End(*Instance, *openPhase)   {}

func (channelPhase) Update(inst *Instance, p *openPhase, dt time.Duration) {
	if p.def.Interval <= 0 {
		return
	}
	p.acc += dt
	for p.acc >= p.def.Interval {
		p.acc -= p.def.Interval
		pos, ok := inst.sys.ctx.Position(inst.caster)
		if !ok {
			return
		}
		c := *inst
		c.center = pos
		if p.def.Heal {
			for _, t := range inst.sys.allies(&c, p.def.Radius) {
				inst.sys.Damage.Apply(inst.caster, t, inst.info.SkillID, p.def.Power, true)
			}
			continue
		}
		for _, t := range inst.sys.hostiles(&c, p.def.Radius) {
			inst.sys.Damage.Apply(inst.caster, t, inst.info.SkillID, p.def.Power, false)
		}
	}
}

// moveLockPhase holds a movement lock for the phase window.
type moveLockPhase struct{}

func (moveLockPhase) Begin(inst *Instance, _ *openPhase) {
	if mv, ok := inst.sys.ctx.Movement.Get(inst.caster); ok {
		mv.MoveLocks++
	}
}

func (moveLockPhase) Update(*Instance, *openPhase, time.Duration) {}

func (moveLockPhase) End(inst *Instance, _ *openPhase) {
	if mv, ok := inst.sys.ctx.Movement.Get(inst.caster); ok && mv.MoveLocks > 0 {
		mv.MoveLocks--
	}
}

// dashPhase moves the caster along the cast direction, stopping at the first
// step the terrain rejects.
type dashPhase struct{}

func (dashPhase) Begin(*Instance, *openPhase) {}
func (dashPhase) End(*Instance, *openPhase)   {}

func (dashPhase) Update(inst *Instance, p *openPhase, dt time.Duration) {
	if p.stopped || inst.dir.IsZero() {
		return
	}
	ctx := inst.sys.ctx
	pos, ok := ctx.Position(inst.caster)
	if !ok {
		return
	}
	next := pos.Add(inst.dir.Scale(p.def.Speed * float32(dt.Seconds())))
	if t := ctx.Terrain(); t != nil {
		projected, ok := t.Project(next)
		if !ok {
			p.stopped = true
			return
		}
		next = projected
	}
	ctx.MoveEntity(inst.caster, next)
	if mv, ok := ctx.Movement.Get(inst.caster); ok {
		mv.LastMoveTick = ctx.Tick()
		mv.LastAccepted = next
		mv.LastAcceptedAt = ctx.Tick()
	}
	if tr, ok := ctx.Transform.Get(inst.caster); ok {
		tr.Dir = inst.dir
	}
}
