package system

import (
	"time"

	coresys "github.com/l1jgo/worldcore/internal/core/system"
	"github.com/l1jgo/worldcore/internal/world"
)

// OutputSystem hands the tick's whole outbound batch to the gateway in one
// call. Phase 7 (Output).
type OutputSystem struct {
	ctx     *world.Context
	gw      world.Gateway
	flushes uint64
	sent    uint64
}

func NewOutputSystem(ctx *world.Context, gw world.Gateway) *OutputSystem {
	return &OutputSystem{ctx: ctx, gw: gw}
}

func (s *OutputSystem) Phase() coresys.Phase { return coresys.PhaseOutput }
func (s *OutputSystem) Flushes() uint64      { return s.flushes }
func (s *OutputSystem) Sent() uint64         { return s.sent }

func (s *OutputSystem) Update(_ time.Duration) {
	if n := s.ctx.Flush(s.gw); n > 0 {
		s.flushes++
		s.sent += uint64(n)
	}
}
