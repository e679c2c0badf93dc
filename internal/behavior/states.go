package behavior

import (
	"github.com/l1jgo/worldcore/internal/data"
	"github.com/l1jgo/worldcore/internal/hfsm"
)

// State names double as the externally visible state tag.
const (
	StateRoot       = "root"
	StateAlive      = "alive"
	StateLocomotion = "locomotion"
	StateIdle       = "idle"
	StateMove       = "move"
	StateAction     = "action"
	StateAttack     = "attack"
	StateRoll       = "roll"
	StateCast       = "cast"
	StateDead       = "dead"
)

// States holds the node ids of the entity machine.
type States struct {
	Root, Alive, Dead       hfsm.StateID
	Locomotion, Idle, Move  hfsm.StateID
	Action                  hfsm.StateID
	Attack, Roll, CastSkill hfsm.StateID
}

// ForAction maps a skill action to the Action child entered for it.
func (st States) ForAction(action string) hfsm.StateID {
	switch action {
	case data.ActionAttack:
		return st.Attack
	case data.ActionRoll:
		return st.Roll
	default:
		return st.CastSkill
	}
}

// build assembles Root{Alive{Locomotion{Idle,Move},Action{Attack,Roll,CastSkill}},Dead}.
func (s *System) build() (*hfsm.Definition[*Entity], error) {
	b := hfsm.NewBuilder[*Entity]()
	st := &s.states

	st.Root = b.Root(hfsm.State[*Entity]{
		Name: StateRoot,
		Transition: func(e *Entity) (hfsm.StateID, bool) {
			return st.Dead, e.dead
		},
	})
	st.Alive = b.Add(st.Root, hfsm.State[*Entity]{Name: StateAlive})
	st.Dead = b.Add(st.Root, hfsm.State[*Entity]{
		Name:    StateDead,
		OnEnter: func(e *Entity) { s.stopMoving(e) },
	})

	st.Locomotion = b.Add(st.Alive, hfsm.State[*Entity]{Name: StateLocomotion})
	st.Idle = b.Add(st.Locomotion, hfsm.State[*Entity]{
		Name: StateIdle,
		Transition: func(e *Entity) (hfsm.StateID, bool) {
			return st.Move, s.moving(e)
		},
	})
	st.Move = b.Add(st.Locomotion, hfsm.State[*Entity]{
		Name: StateMove,
		Transition: func(e *Entity) (hfsm.StateID, bool) {
			return st.Idle, !s.moving(e)
		},
		OnUpdate: s.follow,
	})

	// An action child stays active through the tick it was entered on, so an
	// instant cast still shows its tag to the sync phase once.
	entered := func(e *Entity) { e.actionTick = s.ctx.Tick() }
	st.Action = b.Add(st.Alive, hfsm.State[*Entity]{
		Name:    StateAction,
		Initial: func(e *Entity) hfsm.StateID { return st.ForAction(e.action) },
		Transition: func(e *Entity) (hfsm.StateID, bool) {
			done := !s.casting.IsCasting(e.ID) && s.ctx.Tick() > e.actionTick
			return st.Locomotion, done
		},
		Activities: []hfsm.Activity[*Entity]{moveLock{}},
	})
	st.Attack = b.Add(st.Action, hfsm.State[*Entity]{
		Name:       StateAttack,
		OnEnter:    entered,
		Activities: []hfsm.Activity[*Entity]{turnLock{}},
	})
	st.Roll = b.Add(st.Action, hfsm.State[*Entity]{
		Name:       StateRoll,
		OnEnter:    entered,
		Activities: []hfsm.Activity[*Entity]{turnLock{}},
	})
	st.CastSkill = b.Add(st.Action, hfsm.State[*Entity]{
		Name:    StateCast,
		OnEnter: entered,
	})

	return b.Build()
}

// moveLock holds a movement lock while Action is active.
type moveLock struct{}

func (moveLock) Activate(e *Entity, _ *hfsm.Token) bool {
	if !e.moveLocked {
		if mv, ok := e.sys.ctx.Movement.Get(e.ID); ok {
			mv.MoveLocks++
			mv.Path = nil
			e.moveLocked = true
		}
	}
	return true
}

func (moveLock) Deactivate(e *Entity, _ *hfsm.Token) bool {
	if e.moveLocked {
		if mv, ok := e.sys.ctx.Movement.Get(e.ID); ok && mv.MoveLocks > 0 {
			mv.MoveLocks--
		}
		e.moveLocked = false
	}
	return true
}

// turnLock holds a turning lock while Attack or Roll is active.
type turnLock struct{}

func (turnLock) Activate(e *Entity, _ *hfsm.Token) bool {
	if !e.turnLocked {
		if mv, ok := e.sys.ctx.Movement.Get(e.ID); ok {
			mv.TurnLocks++
			e.turnLocked = true
		}
	}
	return true
}

func (turnLock) Deactivate(e *Entity, _ *hfsm.Token) bool {
	if e.turnLocked {
		if mv, ok := e.sys.ctx.Movement.Get(e.ID); ok && mv.TurnLocks > 0 {
			mv.TurnLocks--
		}
		e.turnLocked = false
	}
	return true
}
