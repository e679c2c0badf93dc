package ai

import (
	"github.com/l1jgo/worldcore/internal/core/ecs"
	"github.com/l1jgo/worldcore/internal/geom"
)

// closeRange is the radius inside which perception ignores the view cone.
const closeRange = 2

// Perception is a view cone test: within Sight metres and within half of
// FOV degrees of the facing direction, or simply very close.
type Perception struct {
	Sight float32
	FOV   float32
}

// Sees reports whether an observer at pos facing yaw perceives a point.
func (p Perception) Sees(pos geom.Vec3, yaw float32, other geom.Vec3) bool {
	d := geom.Dist(pos, other)
	if d <= closeRange {
		return true
	}
	if d > p.Sight {
		return false
	}
	if p.FOV >= 360 {
		return true
	}
	return geom.AngleBetween(geom.Forward(yaw), other.Sub(pos)) <= p.FOV/2
}

// perceive returns the hostile, living entities the agent currently sees.
// Candidates come from the AOI visible set, never from a world scan.
func (s *System) perceive(a *Agent) []ecs.EntityID {
	tr, ok := s.ctx.Transform.Get(a.ID)
	if !ok {
		return nil
	}
	var out []ecs.EntityID
	for _, id := range s.ctx.Visible(a.ID) {
		if s.ctx.Dead(id) || !s.ctx.Hostile(a.ID, id) {
			continue
		}
		pos, ok := s.ctx.Position(id)
		if !ok || !a.perception.Sees(tr.Pos, tr.Yaw, pos) {
			continue
		}
		out = append(out, id)
	}
	return out
}
