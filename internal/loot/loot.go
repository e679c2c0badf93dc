// Package loot runs need-or-pass rolls over the drops of dead monsters.
package loot

import (
	"math/rand"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/l1jgo/worldcore/internal/core/ecs"
	"github.com/l1jgo/worldcore/internal/data"
	"github.com/l1jgo/worldcore/internal/world"
)

// Choice is a player's answer for one dropped item.
type Choice uint8

const (
	Roll Choice = iota + 1
	Pass
)

// Result is the outcome of Choose.
type Result uint8

const (
	Accepted Result = iota
	AlreadyResolved
	NotEligible
	UnknownItem
)

func (r Result) String() string {
	switch r {
	case Accepted:
		return "accepted"
	case AlreadyResolved:
		return "already resolved"
	case NotEligible:
		return "not eligible"
	case UnknownItem:
		return "unknown item"
	}
	return "unknown"
}

const passed = -1

type entry struct {
	item     world.LootItem
	choices  map[world.PlayerID]int // roll value, or passed
	resolved bool
	winner   world.PlayerID
	roll     int
}

// Session is the loot of one dead monster.
type Session struct {
	Source   ecs.EntityID
	Eligible []world.PlayerID // ascending
	Deadline uint64           // tick after which open items resolve with what was chosen
	items    []*entry
}

func (s *Session) eligible(pid world.PlayerID) bool {
	i := sort.Search(len(s.Eligible), func(i int) bool { return s.Eligible[i] >= pid })
	return i < len(s.Eligible) && s.Eligible[i] == pid
}

func (s *Session) find(item int32) *entry {
	for _, e := range s.items {
		if e.item.Item == item {
			return e
		}
	}
	return nil
}

// Resolved reports whether every item has a result.
func (s *Session) Resolved() bool {
	for _, e := range s.items {
		if !e.resolved {
			return false
		}
	}
	return true
}

// Winner returns the result of item.
func (s *Session) Winner(item int32) (world.PlayerID, bool) {
	e := s.find(item)
	if e == nil || !e.resolved {
		return 0, false
	}
	return e.winner, true
}

// Items lists the drops.
func (s *Session) Items() []world.LootItem {
	out := make([]world.LootItem, len(s.items))
	for i, e := range s.items {
		out[i] = e.item
	}
	return out
}

// Manager owns the loot sessions of one shard.
type Manager struct {
	ctx      *world.Context
	table    *data.LootTable
	timeout  int64 // ticks
	rng      *rand.Rand
	sessions map[ecs.EntityID]*Session
	log      *zap.Logger
}

func NewManager(ctx *world.Context, table *data.LootTable, timeout time.Duration, seed int64, log *zap.Logger) *Manager {
	return &Manager{
		ctx:      ctx,
		table:    table,
		timeout:  ctx.TicksFor(timeout),
		rng:      rand.New(rand.NewSource(seed)),
		sessions: make(map[ecs.EntityID]*Session),
		log:      log,
	}
}

func (m *Manager) Len() int { return len(m.sessions) }

// Session returns the session opened for source.
func (m *Manager) Session(source ecs.EntityID) (*Session, bool) {
	s, ok := m.sessions[source]
	return s, ok
}

// Open rolls the drops of lootID and offers them to eligible players.
// Nothing is opened when nothing dropped or nobody is eligible.
func (m *Manager) Open(source ecs.EntityID, lootID int32, eligible []world.PlayerID) bool {
	if len(eligible) == 0 || m.table == nil {
		return false
	}
	items := m.drop(lootID)
	if len(items) == 0 {
		return false
	}
	s := &Session{
		Source:   source,
		Eligible: append([]world.PlayerID(nil), eligible...),
		Deadline: m.ctx.Tick() + uint64(m.timeout),
	}
	sort.Slice(s.Eligible, func(i, j int) bool { return s.Eligible[i] < s.Eligible[j] })
	for _, it := range items {
		s.items = append(s.items, &entry{item: it, choices: make(map[world.PlayerID]int)})
	}
	m.sessions[source] = s
	m.ctx.SendToMany(s.Eligible, world.ProtoLootOpened, world.LootOpenedPayload{Source: source, Items: s.Items()})
	m.log.Debug("loot opened",
		zap.Uint64("source", uint64(source)),
		zap.Int("items", len(items)),
		zap.Int("eligible", len(s.Eligible)),
	)
	return true
}

// drop rolls every table line. Equal item ids are merged.
func (m *Manager) drop(lootID int32) []world.LootItem {
	var out []world.LootItem
	for _, li := range m.table.Get(lootID) {
		if m.rng.Intn(1_000_000) >= li.Chance {
			continue
		}
		count := li.Min
		if li.Max > li.Min {
			count += int32(m.rng.Intn(int(li.Max-li.Min) + 1))
		}
		if count <= 0 {
			continue
		}
		merged := false
		for i := range out {
			if out[i].Item == li.ItemID {
				out[i].Count += count
				merged = true
				break
			}
		}
		if !merged {
			out = append(out, world.LootItem{Item: li.ItemID, Count: count})
		}
	}
	return out
}

// Choose records a roll or pass. A player's choice is final: a second
// choice for the same item is AlreadyResolved.
func (m *Manager) Choose(source ecs.EntityID, pid world.PlayerID, item int32, c Choice) Result {
	s, ok := m.sessions[source]
	if !ok {
		return UnknownItem
	}
	e := s.find(item)
	if e == nil {
		return UnknownItem
	}
	if !s.eligible(pid) {
		return NotEligible
	}
	if e.resolved {
		return AlreadyResolved
	}
	if _, chose := e.choices[pid]; chose {
		return AlreadyResolved
	}
	if c == Roll {
		e.choices[pid] = 1 + m.rng.Intn(100)
	} else {
		e.choices[pid] = passed
	}
	if len(e.choices) == len(s.Eligible) {
		m.resolve(s, e)
	}
	return Accepted
}

// resolve picks the highest roll; ties go to the lower player id. If every
// choice was a pass the item stays unclaimed.
func (m *Manager) resolve(s *Session, e *entry) {
	e.resolved = true
	e.roll = passed
	for _, pid := range s.Eligible {
		r, ok := e.choices[pid]
		if !ok || r == passed {
			continue
		}
		if r > e.roll {
			e.roll = r
			e.winner = pid
		}
	}
	if e.winner == 0 {
		e.roll = 0
	}
	m.ctx.SendToMany(s.Eligible, world.ProtoLootResult, world.LootResultPayload{
		Source: s.Source,
		Item:   e.item.Item,
		Winner: e.winner,
		Roll:   e.roll,
	})
}

// Update resolves items whose deadline passed and drops expired sessions.
// A resolved session is kept until its deadline so late choices are
// answered with AlreadyResolved.
func (m *Manager) Update() {
	now := m.ctx.Tick()
	ids := make([]ecs.EntityID, 0, len(m.sessions))
	for id := range m.sessions {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	for _, id := range ids {
		s := m.sessions[id]
		if now < s.Deadline {
			continue
		}
		for _, e := range s.items {
			if !e.resolved {
				m.resolve(s, e)
			}
		}
		delete(m.sessions, id)
	}
}
