package world

import (
	"fmt"
	"math"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/l1jgo/worldcore/internal/component"
	"github.com/l1jgo/worldcore/internal/core/ecs"
	"github.com/l1jgo/worldcore/internal/core/event"
	"github.com/l1jgo/worldcore/internal/geom"
)

// Terrain answers walkability for movement validation. nav.Volume implements it.
type Terrain interface {
	Project(p geom.Vec3) (geom.Vec3, bool)
}

// Context is the authoritative entity registry of one shard: component
// stores, player and session indices, AOI state, the broadcast snapshot
// cache, the world-event queue and the outbound batch of the current tick.
// Owned by the shard actor goroutine, so no locks.
type Context struct {
	shardID uint32
	ecs     *ecs.World

	Identity  *ecs.PtrComponentStore[component.Identity]
	Transform *ecs.PtrComponentStore[component.Transform]
	Movement  *ecs.PtrComponentStore[component.Movement]
	Combat    *ecs.PtrComponentStore[component.Combat]
	SkillBook *ecs.PtrComponentStore[component.SkillBook]
	WorldRef  *ecs.PtrComponentStore[component.WorldRef]
	Profile   *ecs.PtrComponentStore[component.Profile]
	AI        *ecs.PtrComponentStore[component.AITag]
	Monster   *ecs.PtrComponentStore[component.MonsterTag]
	State     *ecs.PtrComponentStore[component.StateTag]
	Session   *ecs.PtrComponentStore[component.SessionRef]

	players   map[PlayerID]ecs.EntityID
	sessions  map[PlayerID]uint64
	snapshots map[ecs.EntityID]Snapshot

	grid *Grid
	vis  *Visibility

	Events *event.Queue
	batch  Batch

	tick    uint64
	tickMs  int64
	terrain Terrain

	log *zap.Logger
}

// Options configure a Context.
type Options struct {
	ShardID   uint32
	CellSize  float32
	AOIRadius int
	TickMs    int64
	Terrain   Terrain
}

func NewContext(opts Options, log *zap.Logger) *Context {
	if opts.TickMs <= 0 {
		opts.TickMs = 100
	}
	grid := NewGrid(opts.CellSize, opts.AOIRadius)
	c := &Context{
		shardID:   opts.ShardID,
		ecs:       ecs.NewWorld(),
		Identity:  ecs.NewPtrComponentStore[component.Identity](),
		Transform: ecs.NewPtrComponentStore[component.Transform](),
		Movement:  ecs.NewPtrComponentStore[component.Movement](),
		Combat:    ecs.NewPtrComponentStore[component.Combat](),
		SkillBook: ecs.NewPtrComponentStore[component.SkillBook](),
		WorldRef:  ecs.NewPtrComponentStore[component.WorldRef](),
		Profile:   ecs.NewPtrComponentStore[component.Profile](),
		AI:        ecs.NewPtrComponentStore[component.AITag](),
		Monster:   ecs.NewPtrComponentStore[component.MonsterTag](),
		State:     ecs.NewPtrComponentStore[component.StateTag](),
		Session:   ecs.NewPtrComponentStore[component.SessionRef](),
		players:   make(map[PlayerID]ecs.EntityID),
		sessions:  make(map[PlayerID]uint64),
		snapshots: make(map[ecs.EntityID]Snapshot),
		grid:      grid,
		vis:       NewVisibility(grid),
		Events:    event.NewQueue(),
		tickMs:    opts.TickMs,
		terrain:   opts.Terrain,
		log:       log.With(zap.Uint32("shard", opts.ShardID)),
	}
	reg := c.ecs.Registry()
	reg.Register("identity", c.Identity)
	reg.Register("transform", c.Transform)
	reg.Register("movement", c.Movement)
	reg.Register("combat", c.Combat)
	reg.Register("skill_book", c.SkillBook)
	reg.Register("world_ref", c.WorldRef)
	reg.Register("profile", c.Profile)
	reg.Register("ai", c.AI)
	reg.Register("monster", c.Monster)
	reg.Register("state", c.State)
	reg.Register("session", c.Session)
	return c
}

func (c *Context) ShardID() uint32         { return c.shardID }
func (c *Context) ECS() *ecs.World         { return c.ecs }
func (c *Context) Grid() *Grid             { return c.grid }
func (c *Context) Visibility() *Visibility { return c.vis }
func (c *Context) Tick() uint64            { return c.tick }
func (c *Context) TickMs() int64           { return c.tickMs }
func (c *Context) Terrain() Terrain        { return c.terrain }
func (c *Context) Log() *zap.Logger        { return c.log }
func (c *Context) Batch() *Batch           { return &c.batch }

// BeginTick records the tick being simulated.
func (c *Context) BeginTick(tick uint64) { c.tick = tick }

// TicksFor converts a duration to whole ticks, rounding up.
func (c *Context) TicksFor(d time.Duration) int64 {
	if d <= 0 {
		return 0
	}
	return int64(math.Ceil(float64(d.Milliseconds())/float64(c.tickMs) - 1e-9))
}

// Spawn describes a new entity. Optional parts are nil.
type Spawn struct {
	Identity  component.Identity
	Transform component.Transform
	Combat    component.Combat
	Profile   component.Profile
	Skills    []int32
	SessionID uint64
	AI        *component.AITag
	Monster   *component.MonsterTag
}

// AddEntity creates an entity with all its components, places it in the AOI
// grid and indexes players.
func (c *Context) AddEntity(s Spawn) (ecs.EntityID, error) {
	if s.Identity.Kind == component.KindPlayer {
		pid := PlayerID(s.Identity.PlayerID)
		if pid == 0 {
			return 0, fmt.Errorf("spawn %q: player id is zero", s.Identity.Name)
		}
		if _, dup := c.players[pid]; dup {
			return 0, fmt.Errorf("spawn player %d: already in shard %d", pid, c.shardID)
		}
	}
	id := c.ecs.CreateEntity()

	ident := s.Identity
	tr := s.Transform
	cb := s.Combat
	prof := s.Profile
	speed := prof.BaseSpeed
	if speed <= 0 {
		speed = 4
	}
	errs := []error{
		c.Identity.Add(id, &ident),
		c.Transform.Add(id, &tr),
		c.Movement.Add(id, &component.Movement{Speed: speed}),
		c.Combat.Add(id, &cb),
		c.SkillBook.Add(id, &component.SkillBook{Skills: append([]int32(nil), s.Skills...)}),
		c.WorldRef.Add(id, &component.WorldRef{ShardID: c.shardID, SpawnTick: c.tick}),
		c.Profile.Add(id, &prof),
		c.State.Add(id, &component.StateTag{Name: "idle"}),
	}
	if s.AI != nil {
		tag := *s.AI
		errs = append(errs, c.AI.Add(id, &tag))
	}
	if s.Monster != nil {
		tag := *s.Monster
		errs = append(errs, c.Monster.Add(id, &tag))
	}
	if ident.Kind == component.KindPlayer {
		errs = append(errs, c.Session.Add(id, &component.SessionRef{PlayerID: ident.PlayerID, SessionID: s.SessionID}))
	}
	for _, err := range errs {
		if err != nil {
			c.ecs.MarkForDestruction(id)
			return 0, fmt.Errorf("spawn %q: %w", ident.Name, err)
		}
	}
	if ident.Kind == component.KindPlayer {
		pid := PlayerID(ident.PlayerID)
		c.players[pid] = id
		c.sessions[pid] = s.SessionID
	}

	c.grid.Add(id, tr.Pos)
	c.vis.Track(id)
	c.PrimeSnapshot(id)
	return id, nil
}

// Despawn removes an entity from AOI and indices immediately, tells its
// watchers, and queues it for destruction at the end of the tick.
func (c *Context) Despawn(id ecs.EntityID) bool {
	if !c.Alive(id) {
		return false
	}
	watchers := c.vis.Forget(id)
	recips := c.playerIDs(watchers)
	c.batch.Add(Outbound{Protocol: ProtoDespawn, Recipients: recips, Payload: DespawnPayload{Entity: id}})

	if k, ok := c.grid.Remove(id); ok {
		c.vis.MarkDirty(k)
	}
	if ident, ok := c.Identity.Get(id); ok && ident.Kind == component.KindPlayer {
		pid := PlayerID(ident.PlayerID)
		delete(c.players, pid)
		delete(c.sessions, pid)
	}
	delete(c.snapshots, id)
	c.ecs.MarkForDestruction(id)
	return true
}

// Alive reports whether id names a live entity not queued for destruction.
func (c *Context) Alive(id ecs.EntityID) bool {
	return c.ecs.Alive(id) && !c.ecs.Pending(id)
}

// Dead reports whether the entity is missing or has zero HP.
func (c *Context) Dead(id ecs.EntityID) bool {
	cb, ok := c.Combat.Get(id)
	return !ok || cb.Dead || !c.Alive(id)
}

// MoveEntity sets the position and keeps the AOI grid in step.
func (c *Context) MoveEntity(id ecs.EntityID, pos geom.Vec3) {
	tr, ok := c.Transform.Get(id)
	if !ok {
		return
	}
	tr.Pos = pos
	if _, tracked := c.grid.Cell(id); !tracked {
		return
	}
	from, to, changed := c.grid.Move(id, pos)
	if changed {
		c.vis.MarkDirty(from)
		c.vis.MarkDirty(to)
	}
}

// Position returns the entity position.
func (c *Context) Position(id ecs.EntityID) (geom.Vec3, bool) {
	tr, ok := c.Transform.Get(id)
	if !ok {
		return geom.Vec3{}, false
	}
	return tr.Pos, true
}

// PlayerEntity resolves a player to its entity in this shard.
func (c *Context) PlayerEntity(pid PlayerID) (ecs.EntityID, bool) {
	id, ok := c.players[pid]
	return id, ok
}

// SessionOf returns the session currently driving pid.
func (c *Context) SessionOf(pid PlayerID) (uint64, bool) {
	s, ok := c.sessions[pid]
	return s, ok
}

// PlayerOf returns the player id behind an entity, if it is a player.
func (c *Context) PlayerOf(id ecs.EntityID) (PlayerID, bool) {
	ident, ok := c.Identity.Get(id)
	if !ok || ident.Kind != component.KindPlayer {
		return 0, false
	}
	return PlayerID(ident.PlayerID), true
}

// PlayerCount returns the number of players in the shard.
func (c *Context) PlayerCount() int { return len(c.players) }

// Players returns the player ids in the shard, ascending.
func (c *Context) Players() []PlayerID {
	out := make([]PlayerID, 0, len(c.players))
	for pid := range c.players {
		out = append(out, pid)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Visible returns what id saw at the last AOI update.
func (c *Context) Visible(id ecs.EntityID) []ecs.EntityID { return c.vis.Visible(id) }

// Watchers returns the players that receive updates about id: every player
// who sees it, plus id itself when it is a player.
func (c *Context) Watchers(id ecs.EntityID) []PlayerID {
	recips := c.playerIDs(c.vis.Watchers(id))
	if pid, ok := c.PlayerOf(id); ok {
		recips = append(recips, pid)
		sort.Slice(recips, func(i, j int) bool { return recips[i] < recips[j] })
	}
	return recips
}

func (c *Context) playerIDs(ids []ecs.EntityID) []PlayerID {
	var out []PlayerID
	for _, id := range ids {
		if pid, ok := c.PlayerOf(id); ok {
			out = append(out, pid)
		}
	}
	return out
}

// EntitiesNear returns live entities within dist metres of pos, ascending.
func (c *Context) EntitiesNear(pos geom.Vec3, dist float32) []ecs.EntityID {
	return c.grid.Around(pos, dist, c.Position)
}

// Hostile reports whether a and b fight each other: players fight monsters.
// NPCs are neutral.
func (c *Context) Hostile(a, b ecs.EntityID) bool {
	ia, ok1 := c.Identity.Get(a)
	ib, ok2 := c.Identity.Get(b)
	if !ok1 || !ok2 {
		return false
	}
	return (ia.Kind == component.KindPlayer && ib.Kind == component.KindMonster) ||
		(ia.Kind == component.KindMonster && ib.Kind == component.KindPlayer)
}

// Broadcast queues payload for every watcher of subject.
func (c *Context) Broadcast(subject ecs.EntityID, proto Protocol, payload any) {
	c.batch.Add(Outbound{Protocol: proto, Recipients: c.Watchers(subject), Payload: payload})
}

// SendTo queues payload for a single player.
func (c *Context) SendTo(pid PlayerID, proto Protocol, payload any) {
	c.batch.Add(Outbound{Protocol: proto, Recipients: []PlayerID{pid}, Payload: payload})
}

// SendToMany queues payload for a set of players.
func (c *Context) SendToMany(pids []PlayerID, proto Protocol, payload any) {
	c.batch.Add(Outbound{Protocol: proto, Recipients: append([]PlayerID(nil), pids...), Payload: payload})
}

// Flush hands the tick's batch to gw in one call. Empty batches are skipped.
func (c *Context) Flush(gw Gateway) int {
	n := c.batch.Len()
	if n == 0 || gw == nil {
		return 0
	}
	gw.Deliver(c.shardID, c.tick, c.batch.take())
	return n
}

// UpdateVisibility recomputes AOI for dirty cells and queues spawn/despawn
// messages for player watchers.
func (c *Context) UpdateVisibility() []Delta {
	deltas := c.vis.Update()
	for _, d := range deltas {
		pid, ok := c.PlayerOf(d.Watcher)
		if !ok {
			continue
		}
		if d.Entered {
			c.SendTo(pid, ProtoSpawn, c.spawnPayload(d.Target))
		} else {
			c.SendTo(pid, ProtoDespawn, DespawnPayload{Entity: d.Target})
		}
	}
	return deltas
}

func (c *Context) spawnPayload(id ecs.EntityID) SpawnPayload {
	p := SpawnPayload{Entity: id}
	if ident, ok := c.Identity.Get(id); ok {
		p.Kind = ident.Kind.String()
		p.Name = ident.Name
	}
	if tr, ok := c.Transform.Get(id); ok {
		p.Pos = tr.Pos
		p.Yaw = tr.Yaw
	}
	if st, ok := c.State.Get(id); ok {
		p.State = st.Name
	}
	if cb, ok := c.Combat.Get(id); ok {
		p.HP = cb.HP
		p.MaxHP = cb.MaxHP
	}
	return p
}

// FlushDestroyed destroys entities queued this tick.
func (c *Context) FlushDestroyed() int { return c.ecs.FlushDestroyQueue() }
