package world

import (
	"github.com/l1jgo/worldcore/internal/core/ecs"
	"github.com/l1jgo/worldcore/internal/geom"
)

// Snapshot is what watchers were last told about an entity.
type Snapshot struct {
	State string
	Pos   geom.Vec3
	Yaw   float32
	Dir   geom.Vec3
}

// SnapshotOf builds the current snapshot of id.
func (c *Context) SnapshotOf(id ecs.EntityID) (Snapshot, bool) {
	tr, ok := c.Transform.Get(id)
	if !ok {
		return Snapshot{}, false
	}
	s := Snapshot{Pos: tr.Pos, Yaw: tr.Yaw, Dir: tr.Dir}
	if st, ok := c.State.Get(id); ok {
		s.State = st.Name
	}
	return s, true
}

// SnapshotChanged compares cur with the cached snapshot, stores cur, and
// reports whether it differed. The first call for an entity only primes the
// cache, since the spawn message already carried the pose.
func (c *Context) SnapshotChanged(id ecs.EntityID, cur Snapshot) bool {
	prev, ok := c.snapshots[id]
	c.snapshots[id] = cur
	return ok && prev != cur
}

// PrimeSnapshot stores the current pose without reporting a change.
func (c *Context) PrimeSnapshot(id ecs.EntityID) {
	if s, ok := c.SnapshotOf(id); ok {
		c.snapshots[id] = s
	}
}
