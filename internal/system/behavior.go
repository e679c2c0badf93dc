package system

import (
	"time"

	"github.com/l1jgo/worldcore/internal/behavior"
	coresys "github.com/l1jgo/worldcore/internal/core/system"
)

// BehaviorSystem advances every entity machine and path following.
// Phase 3 (Behavior).
type BehaviorSystem struct {
	entities *behavior.System
}

func NewBehaviorSystem(entities *behavior.System) *BehaviorSystem {
	return &BehaviorSystem{entities: entities}
}

func (s *BehaviorSystem) Phase() coresys.Phase    { return coresys.PhaseBehavior }
func (s *BehaviorSystem) Update(dt time.Duration) { s.entities.Update(dt) }
