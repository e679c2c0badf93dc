package system

import (
	"time"

	"github.com/l1jgo/worldcore/internal/core/ecs"
	coresys "github.com/l1jgo/worldcore/internal/core/system"
	"github.com/l1jgo/worldcore/internal/world"
)

// Forgetter drops per-entity state kept outside the component stores.
type Forgetter interface {
	Forget(id ecs.EntityID)
}

// CleanupSystem flushes the deferred entity destruction queue at tick end.
// Every Forgetter hears about each destroyed entity before its components
// go. Phase 8 (Cleanup).
type CleanupSystem struct {
	ctx       *world.Context
	destroyed uint64
}

func NewCleanupSystem(ctx *world.Context, forgetters ...Forgetter) *CleanupSystem {
	for _, f := range forgetters {
		ctx.ECS().OnDestroy(f.Forget)
	}
	return &CleanupSystem{ctx: ctx}
}

func (s *CleanupSystem) Phase() coresys.Phase { return coresys.PhaseCleanup }
func (s *CleanupSystem) Destroyed() uint64    { return s.destroyed }

func (s *CleanupSystem) Update(_ time.Duration) {
	s.destroyed += uint64(s.ctx.FlushDestroyed())
}
