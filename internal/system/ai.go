package system

import (
	"time"

	"github.com/l1jgo/worldcore/internal/ai"
	coresys "github.com/l1jgo/worldcore/internal/core/system"
)

// AISystem runs perception, aggro and the AI machines. Phase 2 (AI).
type AISystem struct {
	agents *ai.System
}

func NewAISystem(agents *ai.System) *AISystem { return &AISystem{agents: agents} }

func (s *AISystem) Phase() coresys.Phase    { return coresys.PhaseAI }
func (s *AISystem) Update(dt time.Duration) { s.agents.Update(dt) }
