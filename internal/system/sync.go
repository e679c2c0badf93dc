package system

import (
	"time"

	coresys "github.com/l1jgo/worldcore/internal/core/system"
	"github.com/l1jgo/worldcore/internal/world"
)

// SyncSystem diffs every entity's (state, position, yaw, direction) against
// what its watchers were last told and queues a MoveSync only on change.
// Phase 6 (Sync).
type SyncSystem struct {
	ctx  *world.Context
	sent uint64
}

func NewSyncSystem(ctx *world.Context) *SyncSystem {
	return &SyncSystem{ctx: ctx}
}

func (s *SyncSystem) Phase() coresys.Phase { return coresys.PhaseSync }
func (s *SyncSystem) Sent() uint64         { return s.sent }

func (s *SyncSystem) Update(_ time.Duration) {
	for _, id := range s.ctx.Transform.SortedIDs() {
		if !s.ctx.Alive(id) {
			continue
		}
		snap, ok := s.ctx.SnapshotOf(id)
		if !ok || !s.ctx.SnapshotChanged(id, snap) {
			continue
		}
		s.ctx.Broadcast(id, world.ProtoMoveSync, world.MoveSyncPayload{
			Entity: id,
			State:  snap.State,
			Pos:    snap.Pos,
			Yaw:    snap.Yaw,
			Dir:    snap.Dir,
		})
		s.sent++
	}
}
