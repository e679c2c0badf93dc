package system

import (
	"time"

	coresys "github.com/l1jgo/worldcore/internal/core/system"
)

// IntentSource applies the intents queued for this tick and reports how
// many were applied.
type IntentSource interface {
	ApplyIntents() int
}

// InputSystem drains the shard's pending-intent queue before anything is
// simulated. Phase 0 (Input).
type InputSystem struct {
	src     IntentSource
	applied uint64
}

func NewInputSystem(src IntentSource) *InputSystem {
	return &InputSystem{src: src}
}

func (s *InputSystem) Phase() coresys.Phase { return coresys.PhaseInput }
func (s *InputSystem) Applied() uint64      { return s.applied }

func (s *InputSystem) Update(_ time.Duration) {
	s.applied += uint64(s.src.ApplyIntents())
}
