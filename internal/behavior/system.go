// Package behavior runs the per-entity state machine that turns skill casts,
// movement and death into the entity's visible state.
package behavior

import (
	"fmt"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/l1jgo/worldcore/internal/core/ecs"
	"github.com/l1jgo/worldcore/internal/geom"
	"github.com/l1jgo/worldcore/internal/hfsm"
	"github.com/l1jgo/worldcore/internal/world"
)

// Casting answers whether an entity has a running skill instance.
// skill.System implements it.
type Casting interface {
	IsCasting(id ecs.EntityID) bool
}

// Entity is the machine context of one entity.
type Entity struct {
	ID ecs.EntityID

	sys        *System
	machine    *hfsm.Machine[*Entity]
	action     string
	actionTick uint64
	dead       bool
	moveLocked bool
	turnLocked bool
}

// System owns one machine per entity, all sharing a single definition.
type System struct {
	ctx     *world.Context
	casting Casting
	def     *hfsm.Definition[*Entity]
	states  States
	ents    map[ecs.EntityID]*Entity
	log     *zap.Logger
}

func NewSystem(ctx *world.Context, casting Casting, log *zap.Logger) (*System, error) {
	s := &System{
		ctx:     ctx,
		casting: casting,
		ents:    make(map[ecs.EntityID]*Entity),
		log:     log,
	}
	def, err := s.build()
	if err != nil {
		return nil, fmt.Errorf("build entity machine: %w", err)
	}
	s.def = def
	return s, nil
}

func (s *System) States() States { return s.states }
func (s *System) Len() int       { return len(s.ents) }

// Add creates and starts the machine for id.
func (s *System) Add(id ecs.EntityID) {
	if _, ok := s.ents[id]; ok {
		return
	}
	e := &Entity{ID: id, sys: s, machine: hfsm.NewMachine(s.def)}
	s.ents[id] = e
	e.machine.Start(e)
	s.syncTag(e)
}

// Forget drops the machine of a despawned entity.
func (s *System) Forget(id ecs.EntityID) { delete(s.ents, id) }

// Machine exposes the machine of id for inspection.
func (s *System) Machine(id ecs.EntityID) (*hfsm.Machine[*Entity], bool) {
	e, ok := s.ents[id]
	if !ok {
		return nil, false
	}
	return e.machine, true
}

// RequestAction enters the Action child for a skill action (attack, roll,
// cast). Called right after a successful cast.
func (s *System) RequestAction(id ecs.EntityID, action string) bool {
	e, ok := s.ents[id]
	if !ok || e.dead {
		return false
	}
	e.action = action
	return e.machine.Request(s.states.ForAction(action))
}

// Kill moves the entity to Dead. Dead is terminal.
func (s *System) Kill(id ecs.EntityID) {
	e, ok := s.ents[id]
	if !ok || e.dead {
		return
	}
	e.dead = true
	e.machine.Request(s.states.Dead)
}

// Leaf returns the visible state of id.
func (s *System) Leaf(id ecs.EntityID) string {
	e, ok := s.ents[id]
	if !ok {
		return ""
	}
	return e.machine.LeafName()
}

// Update ticks every machine in entity id order.
func (s *System) Update(dt time.Duration) {
	ids := make([]ecs.EntityID, 0, len(s.ents))
	for id := range s.ents {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	for _, id := range ids {
		e := s.ents[id]
		e.machine.Update(e, dt)
		s.syncTag(e)
	}
}

func (s *System) syncTag(e *Entity) {
	if tag, ok := s.ctx.State.Get(e.ID); ok {
		if name := e.machine.LeafName(); name != "" {
			tag.Name = name
		}
	}
}

func (s *System) moving(e *Entity) bool {
	mv, ok := s.ctx.Movement.Get(e.ID)
	return ok && mv.Moving(s.ctx.Tick())
}

func (s *System) stopMoving(e *Entity) {
	if mv, ok := s.ctx.Movement.Get(e.ID); ok {
		mv.Path = nil
	}
}

// follow walks the entity along Movement.Path at its current speed.
func (s *System) follow(e *Entity, dt time.Duration) {
	mv, ok := s.ctx.Movement.Get(e.ID)
	if !ok || !mv.CanMove() || len(mv.Path) == 0 {
		return
	}
	tr, ok := s.ctx.Transform.Get(e.ID)
	if !ok {
		return
	}
	from := tr.Pos
	pos := from
	budget := mv.Speed * float32(dt.Seconds())
	for budget > 0 && len(mv.Path) > 0 {
		next := mv.Path[0]
		d := geom.Dist(pos, next)
		if d <= budget {
			pos = next
			budget -= d
			mv.Path = mv.Path[1:]
			continue
		}
		pos = pos.Add(next.Sub(pos).Scale(budget / d))
		budget = 0
	}
	if len(mv.Path) == 0 {
		mv.Path = nil
	}

	dir := pos.Sub(from).Flat().Normalize()
	s.ctx.MoveEntity(e.ID, pos)
	mv.LastMoveTick = s.ctx.Tick()
	if !dir.IsZero() {
		tr.Dir = dir
		if mv.CanTurn() {
			tr.Yaw = geom.YawOf(dir)
		}
	}
}
