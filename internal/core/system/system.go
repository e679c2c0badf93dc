package system

import "time"

// Phase defines execution ordering within a single shard tick.
type Phase int

const (
	PhaseInput      Phase = iota // 0: drain pending intents
	PhaseCombat                  // 1: skills, buffs, area buffs
	PhaseAI                      // 2: perception → aggro → AI HFSM
	PhaseBehavior                // 3: entity HFSM
	PhaseEvents                  // 4: world events → outbound
	PhaseVisibility              // 5: AOI enter/leave
	PhaseSync                    // 6: snapshot diff → move sync
	PhaseOutput                  // 7: flush the tick batch
	PhaseCleanup                 // 8: destroy queued entities
)

func (p Phase) String() string {
	switch p {
	case PhaseInput:
		return "input"
	case PhaseCombat:
		return "combat"
	case PhaseAI:
		return "ai"
	case PhaseBehavior:
		return "behavior"
	case PhaseEvents:
		return "events"
	case PhaseVisibility:
		return "visibility"
	case PhaseSync:
		return "sync"
	case PhaseOutput:
		return "output"
	case PhaseCleanup:
		return "cleanup"
	}
	return "unknown"
}

// System is the interface every per-tick system implements.
type System interface {
	Phase() Phase
	Update(dt time.Duration)
}
