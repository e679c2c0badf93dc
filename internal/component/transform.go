package component

import "github.com/l1jgo/worldcore/internal/geom"

// Transform is the authoritative pose of an entity.
type Transform struct {
	Pos geom.Vec3
	Yaw float32   // degrees, 0 = +Z
	Dir geom.Vec3 // last movement direction (flat, normalised or zero)
}

// Movement drives locomotion. Path is consumed by the Move state; players
// move by validated client intents instead and leave Path empty.
type Movement struct {
	Speed      float32 // metres per second, after buffs
	SpeedBonus float32
	Path       []geom.Vec3

	// 鎖定計數：Action 狀態與技能階段各自加減，>0 即鎖定
	MoveLocks int
	TurnLocks int

	LastMoveTick   uint64    // tick of the last accepted or simulated movement
	LastClientTick uint64    // newest client tick accepted for a move intent
	LastAccepted   geom.Vec3 // position of the last accepted client move
	LastAcceptedAt uint64    // server tick of that move
}

// CanMove reports whether nothing currently locks movement.
func (m *Movement) CanMove() bool { return m.MoveLocks == 0 }

// CanTurn reports whether nothing currently locks turning.
func (m *Movement) CanTurn() bool { return m.TurnLocks == 0 }

// Moving reports whether the entity is following a path or moved within the
// last two ticks.
func (m *Movement) Moving(tick uint64) bool {
	return len(m.Path) > 0 || (m.LastMoveTick != 0 && m.LastMoveTick+2 > tick)
}
