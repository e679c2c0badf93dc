package system

import (
	"time"

	coresys "github.com/l1jgo/worldcore/internal/core/system"
	"github.com/l1jgo/worldcore/internal/world"
)

// VisibilitySystem recomputes AOI membership for dirty cells and queues the
// spawn/despawn messages of every enter/leave. Phase 5 (Visibility).
type VisibilitySystem struct {
	ctx    *world.Context
	deltas uint64
}

func NewVisibilitySystem(ctx *world.Context) *VisibilitySystem {
	return &VisibilitySystem{ctx: ctx}
}

func (s *VisibilitySystem) Phase() coresys.Phase { return coresys.PhaseVisibility }
func (s *VisibilitySystem) Deltas() uint64       { return s.deltas }

func (s *VisibilitySystem) Update(_ time.Duration) {
	s.deltas += uint64(len(s.ctx.UpdateVisibility()))
}
