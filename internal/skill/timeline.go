package skill

import (
	"time"

	"github.com/l1jgo/worldcore/internal/core/ecs"
	"github.com/l1jgo/worldcore/internal/data"
	"github.com/l1jgo/worldcore/internal/geom"
)

// CastData is a validated cast request.
type CastData struct {
	Skill      int32
	Input      uint8 // client input slot, passed through for logging
	Target     ecs.EntityID
	TargetPos  geom.Vec3
	TargetDir  geom.Vec3
	ClientTick uint64
}

// Finished is posted when an instance completes or is interrupted. The
// owning System drains these once per tick.
type Finished struct {
	Caster      ecs.EntityID
	Skill       int32
	Interrupted bool

	inst *Instance
}

// phaseRunner executes one phase type. Begin and End are called exactly once
// per opened phase, Update once per tick while it is open.
type phaseRunner interface {
	Begin(inst *Instance, p *openPhase)
	Update(inst *Instance, p *openPhase, dt time.Duration)
	End(inst *Instance, p *openPhase)
}

type openPhase struct {
	def     *data.SkillPhase
	runner  phaseRunner
	acc     time.Duration // channel pulse accumulator
	stopped bool          // dash blocked by terrain
}

// Instance is one running cast: a timeline of instantaneous events and
// durable phases driven by Update.
type Instance struct {
	caster ecs.EntityID
	info   *data.SkillInfo
	cast   CastData
	center geom.Vec3 // resolved target position
	dir    geom.Vec3 // resolved flat direction

	elapsed   time.Duration
	nextEvent int
	nextPhase int
	open      []*openPhase

	done        bool
	interrupted bool

	sys *System
}

func (i *Instance) Caster() ecs.EntityID   { return i.caster }
func (i *Instance) Info() *data.SkillInfo  { return i.info }
func (i *Instance) Elapsed() time.Duration { return i.elapsed }
func (i *Instance) Done() bool             { return i.done }
func (i *Instance) Interrupted() bool      { return i.interrupted }
func (i *Instance) OpenPhases() int        { return len(i.open) }

// Start fires every event at t<=0 and opens every phase starting at t<=0.
func (i *Instance) Start() {
	i.fireDue()
	i.openDue()
	if i.info.Duration <= 0 {
		i.finish(false)
	}
}

// Update advances the timeline by dt: due events fire, due phases open, open
// phases update, expired phases close. Reaching the duration finalizes.
func (i *Instance) Update(dt time.Duration) {
	if i.done {
		return
	}
	i.elapsed += dt
	i.fireDue()
	i.openDue()
	for _, p := range i.open {
		p.runner.Update(i, p, dt)
	}
	kept := i.open[:0]
	for _, p := range i.open {
		if p.def.End > 0 && p.def.End <= i.elapsed {
			p.runner.End(i, p)
			continue
		}
		kept = append(kept, p)
	}
	i.open = kept
	if i.elapsed >= i.info.Duration {
		i.finish(false)
	}
}

// Interrupt force-closes all open phases and finalizes. A second call, or a
// call after normal completion, does nothing.
func (i *Instance) Interrupt() {
	i.finish(true)
}

func (i *Instance) fireDue() {
	for i.nextEvent < len(i.info.Events) && i.info.Events[i.nextEvent].At <= i.elapsed {
		ev := &i.info.Events[i.nextEvent]
		i.nextEvent++
		i.sys.fire(i, ev)
		if i.done {
			return
		}
	}
}

func (i *Instance) openDue() {
	for i.nextPhase < len(i.info.Phases) && i.info.Phases[i.nextPhase].Start <= i.elapsed {
		def := &i.info.Phases[i.nextPhase]
		i.nextPhase++
		runner := i.sys.runnerFor(def.Type)
		if runner == nil {
			continue
		}
		p := &openPhase{def: def, runner: runner}
		i.open = append(i.open, p)
		runner.Begin(i, p)
	}
}

func (i *Instance) finish(interrupted bool) {
	if i.done {
		return
	}
	i.done = true
	i.interrupted = interrupted
	for _, p := range i.open {
		p.runner.End(i, p)
	}
	i.open = nil
	i.sys.finished = append(i.sys.finished, Finished{
		Caster:      i.caster,
		Skill:       i.info.SkillID,
		Interrupted: interrupted,
		inst:        i,
	})
}
