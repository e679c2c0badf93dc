package component

import "github.com/l1jgo/worldcore/internal/geom"

// AITag marks an entity driven by an AI agent.
type AITag struct {
	Aggressive  bool
	SightRange  float32
	AttackRange float32
	Leash       float32
}

// MonsterTag carries spawn bookkeeping for monsters.
type MonsterTag struct {
	TemplateID   int32
	SpawnIndex   int // index into the spawn list, -1 for ad-hoc spawns
	Home         geom.Vec3
	LootTable    int32
	RespawnDelay int64 // ticks
	Exp          int64
	DiedAt       uint64 // tick, 0 while alive
}

// StateTag is the externally visible animation/state label, taken from the
// active leaf of the entity's state machine.
type StateTag struct {
	Name string
}
