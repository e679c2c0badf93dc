package component

// Kind classifies an entity for targeting, visibility and outbound routing.
type Kind uint8

const (
	KindPlayer Kind = iota + 1
	KindMonster
	KindNPC
)

func (k Kind) String() string {
	switch k {
	case KindPlayer:
		return "player"
	case KindMonster:
		return "monster"
	case KindNPC:
		return "npc"
	}
	return "unknown"
}

// Identity names an entity. Pure data, zero behaviour.
type Identity struct {
	Kind       Kind
	Name       string
	TemplateID int32  // monster/npc template, 0 for players
	PlayerID   uint64 // 0 for non-players
}

// WorldRef records which shard owns the entity.
type WorldRef struct {
	ShardID   uint32
	SpawnTick uint64
}

// Profile holds the base (unbuffed) stats an entity spawned with.
type Profile struct {
	Level       int32
	BaseAttack  int32
	BaseDefense int32
	BaseSpeed   float32 // metres per second
}
