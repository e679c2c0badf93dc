package world

import (
	"github.com/l1jgo/worldcore/internal/core/ecs"
	"github.com/l1jgo/worldcore/internal/geom"
)

// PlayerID addresses a player across shards. Outbound messages are routed by
// player id, never by socket.
type PlayerID uint64

// Protocol tags an outbound payload.
type Protocol uint16

const (
	ProtoSpawn Protocol = iota + 1
	ProtoDespawn
	ProtoMoveSync
	ProtoDamage
	ProtoDeath
	ProtoSkillExecution
	ProtoBuffApplied
	ProtoBuffRemoved
	ProtoCastRejected
	ProtoMoveRejected
	ProtoLootOpened
	ProtoLootResult
	ProtoLootRejected
	ProtoKillCredit
	ProtoDungeonCleared
)

var protoNames = map[Protocol]string{
	ProtoSpawn:          "spawn",
	ProtoDespawn:        "despawn",
	ProtoMoveSync:       "move_sync",
	ProtoDamage:         "damage",
	ProtoDeath:          "death",
	ProtoSkillExecution: "skill_execution",
	ProtoBuffApplied:    "buff_applied",
	ProtoBuffRemoved:    "buff_removed",
	ProtoCastRejected:   "cast_rejected",
	ProtoMoveRejected:   "move_rejected",
	ProtoLootOpened:     "loot_opened",
	ProtoLootResult:     "loot_result",
	ProtoLootRejected:   "loot_rejected",
	ProtoKillCredit:     "kill_credit",
	ProtoDungeonCleared: "dungeon_cleared",
}

func (p Protocol) String() string {
	if n, ok := protoNames[p]; ok {
		return n
	}
	return "unknown"
}

// Outbound is one protocol-tagged payload for a set of players.
type Outbound struct {
	Protocol   Protocol
	Recipients []PlayerID
	Payload    any
}

// Gateway receives the whole outbound batch of one tick in a single call.
// The batch slice is owned by the receiver after the call.
type Gateway interface {
	Deliver(shard uint32, tick uint64, batch []Outbound)
}

// Batch accumulates outbound messages during a tick.
type Batch struct {
	items []Outbound
}

func (b *Batch) Add(o Outbound) {
	if len(o.Recipients) == 0 {
		return
	}
	b.items = append(b.items, o)
}

func (b *Batch) Len() int          { return len(b.items) }
func (b *Batch) Items() []Outbound { return b.items }

// take hands the buffered items over and starts a fresh buffer.
func (b *Batch) take() []Outbound {
	out := b.items
	b.items = make([]Outbound, 0, cap(out))
	return out
}

// --- payloads ---

type SpawnPayload struct {
	Entity ecs.EntityID
	Kind   string
	Name   string
	Pos    geom.Vec3
	Yaw    float32
	State  string
	HP     int32
	MaxHP  int32
}

type DespawnPayload struct {
	Entity ecs.EntityID
}

type MoveSyncPayload struct {
	Entity ecs.EntityID
	State  string
	Pos    geom.Vec3
	Yaw    float32
	Dir    geom.Vec3
}

type DamagePayload struct {
	Source ecs.EntityID
	Target ecs.EntityID
	Skill  int32
	Amount int32
	HP     int32
	Heal   bool
}

type DeathPayload struct {
	Entity ecs.EntityID
	Killer ecs.EntityID
}

type SkillExecutionPayload struct {
	Caster    ecs.EntityID
	Skill     int32
	Target    ecs.EntityID
	TargetPos geom.Vec3
	Dir       geom.Vec3
}

type BuffPayload struct {
	Target    ecs.EntityID
	Buff      int32
	Stacks    int
	Remaining float32 // seconds
	Reason    string  // removal reason, empty on apply
}

type CastRejectedPayload struct {
	Entity ecs.EntityID
	Skill  int32
	Reason string
}

type MoveRejectedPayload struct {
	Entity ecs.EntityID
	Pos    geom.Vec3
	Yaw    float32
}

type LootItem struct {
	Item  int32
	Count int32
}

type LootOpenedPayload struct {
	Source ecs.EntityID
	Items  []LootItem
}

type LootResultPayload struct {
	Source ecs.EntityID
	Item   int32
	Winner PlayerID // 0 when everybody passed
	Roll   int
}

type LootRejectedPayload struct {
	Source ecs.EntityID
	Item   int32
	Reason string
}

type KillCreditPayload struct {
	Killer   PlayerID
	Victim   ecs.EntityID
	Template int32
	Exp      int64
}

type DungeonClearedPayload struct {
	Shard uint32
	Tick  uint64
}
