package ai

import (
	"time"

	"github.com/l1jgo/worldcore/internal/geom"
	"github.com/l1jgo/worldcore/internal/hfsm"
)

// States holds the node ids of the AI machine.
type States struct {
	Root                  hfsm.StateID
	Combat, Chase, Engage hfsm.StateID
	Attack, Maneuver      hfsm.StateID
	Peace, Idle, Patrol   hfsm.StateID
	ReturnHome            hfsm.StateID
}

// build assembles Root{Combat{Chase,Engage{Attack,Maneuver}},Peace{Idle,Patrol},ReturnHome}.
// Root re-evaluates the priority every tick: leash, then aggro, then peace.
func (s *System) build() (*hfsm.Definition[*Agent], error) {
	b := hfsm.NewBuilder[*Agent]()
	st := &s.states

	st.Root = b.Root(hfsm.State[*Agent]{
		Name:       "root",
		Initial:    func(*Agent) hfsm.StateID { return st.Peace },
		Transition: s.choosePriority,
	})

	st.Combat = b.Add(st.Root, hfsm.State[*Agent]{
		Name: "combat",
		Transition: func(a *Agent) (hfsm.StateID, bool) {
			if s.inAttackRange(a) {
				return st.Engage, true
			}
			return st.Chase, true
		},
	})
	st.Chase = b.Add(st.Combat, hfsm.State[*Agent]{
		Name:     "chase",
		OnEnter:  func(a *Agent) { a.planned = false },
		OnUpdate: s.chase,
	})
	st.Engage = b.Add(st.Combat, hfsm.State[*Agent]{
		Name:    "engage",
		Initial: func(*Agent) hfsm.StateID { return st.Maneuver },
		OnEnter: func(a *Agent) { s.clearPath(a) },
		Transition: func(a *Agent) (hfsm.StateID, bool) {
			if _, ok := s.readySkill(a); ok {
				return st.Attack, true
			}
			return st.Maneuver, true
		},
	})
	st.Attack = b.Add(st.Engage, hfsm.State[*Agent]{
		Name:    "attack",
		OnEnter: s.attack,
		OnUpdate: func(a *Agent, _ time.Duration) {
			if a.castTick != s.ctx.Tick() && !s.combat.Casting(a.ID) {
				s.attack(a)
			}
		},
	})
	st.Maneuver = b.Add(st.Engage, hfsm.State[*Agent]{
		Name:     "maneuver",
		OnUpdate: func(a *Agent, _ time.Duration) { s.faceTarget(a) },
	})

	st.Peace = b.Add(st.Root, hfsm.State[*Agent]{Name: "peace"})
	st.Idle = b.Add(st.Peace, hfsm.State[*Agent]{
		Name:    "idle",
		OnEnter: func(a *Agent) { a.idleLeft = s.idleDwell(a) },
		OnUpdate: func(a *Agent, dt time.Duration) {
			a.idleLeft -= dt
		},
		Transition: func(a *Agent) (hfsm.StateID, bool) {
			return st.Patrol, a.idleLeft <= 0
		},
	})
	st.Patrol = b.Add(st.Peace, hfsm.State[*Agent]{
		Name:    "patrol",
		OnEnter: s.startPatrol,
		Transition: func(a *Agent) (hfsm.StateID, bool) {
			return st.Idle, a.patrolFailed || !s.walking(a)
		},
	})

	st.ReturnHome = b.Add(st.Root, hfsm.State[*Agent]{
		Name:     "return_home",
		OnEnter:  s.goHome,
		OnUpdate: s.checkHome,
	})

	return b.Build()
}

func (s *System) choosePriority(a *Agent) (hfsm.StateID, bool) {
	st := &s.states
	if a.returning {
		return st.ReturnHome, true
	}
	if s.leashBroken(a) {
		a.returning = true
		a.Aggro.Clear()
		a.Target = 0
		return st.ReturnHome, true
	}
	if a.Target != 0 {
		return st.Combat, true
	}
	return st.Peace, true
}

func (s *System) leashBroken(a *Agent) bool {
	pos, ok := s.ctx.Position(a.ID)
	return ok && a.leash > 0 && geom.FlatDist(pos, a.Home) > a.leash
}

func (s *System) inAttackRange(a *Agent) bool {
	pos, ok1 := s.ctx.Position(a.ID)
	tpos, ok2 := s.ctx.Position(a.Target)
	return ok1 && ok2 && geom.Dist(pos, tpos) <= a.attackRange
}
