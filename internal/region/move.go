package region

import (
	"go.uber.org/zap"

	"github.com/l1jgo/worldcore/internal/component"
	"github.com/l1jgo/worldcore/internal/core/ecs"
	"github.com/l1jgo/worldcore/internal/geom"
	"github.com/l1jgo/worldcore/internal/world"
)

// moveSlack scales the distance a player may cover between two accepted
// moves, on top of the configured tolerance.
const moveSlack = 1.5

// applyMove validates a client position against the nav volume and the
// player's speed. Reports older than the last accepted one are dropped
// silently; invalid ones are answered with the authoritative pose.
func (w *World) applyMove(in Move) {
	id, ok := w.ctx.PlayerEntity(in.Player)
	if !ok {
		return
	}
	tr, ok1 := w.ctx.Transform.Get(id)
	mv, ok2 := w.ctx.Movement.Get(id)
	if !ok1 || !ok2 {
		return
	}
	if in.ClientTick != 0 && in.ClientTick < mv.LastClientTick {
		w.stats.StaleMoves++
		return
	}
	if w.ctx.Dead(id) || !mv.CanMove() {
		w.rejectMove(in.Player, id, tr, "locked")
		return
	}
	pos, ok := w.volume.Project(in.Pos)
	if !ok {
		w.rejectMove(in.Player, id, tr, "not walkable")
		return
	}
	if d, limit := geom.Dist(mv.LastAccepted, pos), w.moveLimit(mv); d > limit {
		w.rejectMove(in.Player, id, tr, "too fast")
		return
	}

	tick := w.ctx.Tick()
	w.ctx.MoveEntity(id, pos)
	if mv.CanTurn() {
		tr.Yaw = in.Yaw
	}
	tr.Dir = in.Dir.Flat().Normalize()
	mv.Path = nil
	mv.LastAccepted = pos
	mv.LastAcceptedAt = tick
	mv.LastClientTick = in.ClientTick
	mv.LastMoveTick = tick
}

// moveLimit is how far the player may be from its last accepted position:
// speed over the elapsed ticks (at least one) with slack and tolerance.
func (w *World) moveLimit(mv *component.Movement) float32 {
	ticks := int64(w.ctx.Tick()) - int64(mv.LastAcceptedAt)
	if ticks < 1 {
		ticks = 1
	}
	elapsed := float32(ticks*w.ctx.TickMs()) / 1000
	return mv.Speed*elapsed*moveSlack + w.moveTolerance
}

func (w *World) rejectMove(pid world.PlayerID, id ecs.EntityID, tr *component.Transform, why string) {
	w.stats.MovesRejected++
	w.log.Debug("move rejected",
		zap.Uint64("player", uint64(pid)),
		zap.String("reason", why),
	)
	w.ctx.SendTo(pid, world.ProtoMoveRejected, world.MoveRejectedPayload{Entity: id, Pos: tr.Pos, Yaw: tr.Yaw})
}
