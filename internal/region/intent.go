package region

import (
	"github.com/l1jgo/worldcore/internal/core/ecs"
	"github.com/l1jgo/worldcore/internal/geom"
	"github.com/l1jgo/worldcore/internal/loot"
	"github.com/l1jgo/worldcore/internal/world"
)

// Intent is an inbound request queued on the shard and applied at the start
// of the next tick.
type Intent interface {
	intent()
}

// SpawnPlayer brings a character into the shard.
type SpawnPlayer struct {
	Player  world.PlayerID
	Session uint64
	Name    string
	Pos     geom.Vec3
	Yaw     float32
	Level   int32
	HP      int32
	MP      int32
	Attack  int32
	Defense int32
	Speed   float32
	Skills  []int32
}

// SpawnMonster places one monster from a template outside the spawn list.
type SpawnMonster struct {
	Template int32
	Pos      geom.Vec3
}

// Despawn removes a player's character, or any entity when Player is zero.
type Despawn struct {
	Player world.PlayerID
	Entity ecs.EntityID
}

// Move is a client position report.
type Move struct {
	Player     world.PlayerID
	ClientTick uint64
	Pos        geom.Vec3
	Yaw        float32
	Dir        geom.Vec3
}

// CastSkill is a client cast request.
type CastSkill struct {
	Player     world.PlayerID
	ClientTick uint64
	Skill      int32
	Input      uint8
	Target     ecs.EntityID
	TargetPos  geom.Vec3
	TargetDir  geom.Vec3
}

// LootChoice answers one item of a loot session.
type LootChoice struct {
	Player world.PlayerID
	Source ecs.EntityID
	Item   int32
	Choice loot.Choice
}

func (SpawnPlayer) intent()  {}
func (SpawnMonster) intent() {}
func (Despawn) intent()      {}
func (Move) intent()         {}
func (CastSkill) intent()    {}
func (LootChoice) intent()   {}
