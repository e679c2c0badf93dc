package hfsm

import "time"

// Stats counts machine activity.
type Stats struct {
	Transitions uint64 // completed transitions (including the initial entry)
	Superseded  uint64 // pending requests replaced before they started
}

type request struct {
	target StateID
	tok    *Token
}

type stage uint8

const (
	stageExit stage = iota
	stageEnter
)

// transition is the sequencer's in-flight work: exit leaf→LCA, then enter
// LCA→target and further down through Initial.
type transition struct {
	target  StateID
	tok     *Token
	exits   []StateID
	enters  []StateID
	stage   stage
	i       int
	started bool // current node's OnEnter/OnExit bookkeeping begun
}

// Machine is one running instance of a Definition. Not safe for concurrent
// use; each entity owns its machine and drives it from the shard tick.
type Machine[C any] struct {
	def *Definition[C]

	on       []bool    // node is on the active path
	child    []StateID // active child per node
	activity [][]ActivityStatus
	enters   []int
	exits    []int

	started bool
	seq     *transition
	pending *request
	lastTok *Token
	stats   Stats
}

func NewMachine[C any](def *Definition[C]) *Machine[C] {
	n := len(def.nodes)
	m := &Machine[C]{
		def:      def,
		on:       make([]bool, n),
		child:    make([]StateID, n),
		activity: make([][]ActivityStatus, n),
		enters:   make([]int, n),
		exits:    make([]int, n),
	}
	for i := range m.child {
		m.child[i] = None
		m.activity[i] = make([]ActivityStatus, len(def.nodes[i].state.Activities))
	}
	return m
}

func (m *Machine[C]) Definition() *Definition[C] { return m.def }
func (m *Machine[C]) Stats() Stats               { return m.stats }
func (m *Machine[C]) InTransition() bool         { return m.seq != nil }
func (m *Machine[C]) Enters(id StateID) int      { return m.enters[id] }
func (m *Machine[C]) Exits(id StateID) int       { return m.exits[id] }

// IsActive reports whether id is on the active path.
func (m *Machine[C]) IsActive(id StateID) bool {
	return id >= 0 && int(id) < len(m.on) && m.on[id]
}

// ActiveChild returns the active child of a composite state.
func (m *Machine[C]) ActiveChild(id StateID) (StateID, bool) {
	c := m.child[id]
	return c, c != None
}

// ActivityStatus returns the status of the i-th activity of id.
func (m *Machine[C]) ActivityStatus(id StateID, i int) ActivityStatus {
	return m.activity[id][i]
}

// Path returns the active states from the root down.
func (m *Machine[C]) Path() []StateID {
	if !m.on[0] {
		return nil
	}
	path := []StateID{0}
	for cur := m.child[0]; cur != None; cur = m.child[cur] {
		path = append(path, cur)
	}
	return path
}

// Leaf returns the deepest active state, None before the first entry.
func (m *Machine[C]) Leaf() StateID {
	if !m.on[0] {
		return None
	}
	cur := StateID(0)
	for m.child[cur] != None {
		cur = m.child[cur]
	}
	return cur
}

// LeafName is the name of the deepest active state.
func (m *Machine[C]) LeafName() string { return m.def.Name(m.Leaf()) }

// Start enters the root and its initial descendants. Called implicitly by
// the first Update.
func (m *Machine[C]) Start(c C) {
	if m.started {
		return
	}
	m.started = true
	m.begin(request{target: 0, tok: &Token{}})
	m.advance(c)
}

// Request asks for a transition to target. While another transition is in
// flight the request is queued; a later request replaces (and cancels) an
// earlier queued one. Requests for an already active state are ignored.
func (m *Machine[C]) Request(target StateID) bool {
	if target < 0 || int(target) >= len(m.def.nodes) {
		return false
	}
	if m.seq != nil {
		if m.pending != nil {
			m.pending.tok.Cancel()
			m.stats.Superseded++
		}
		m.pending = &request{target: target, tok: &Token{}}
		return true
	}
	if m.IsActive(target) {
		return false
	}
	m.begin(request{target: target, tok: &Token{}})
	return true
}

func (m *Machine[C]) begin(r request) {
	if m.lastTok != nil {
		m.lastTok.Cancel()
	}
	m.lastTok = r.tok

	t := &transition{target: r.target, tok: r.tok}
	stop := None
	if leaf := m.Leaf(); leaf != None {
		stop = m.def.lca(leaf, r.target)
		for cur := leaf; cur != stop; cur = m.def.nodes[cur].parent {
			t.exits = append(t.exits, cur)
		}
	}
	for cur := r.target; cur != stop; cur = m.def.nodes[cur].parent {
		t.enters = append(t.enters, cur)
	}
	for i, j := 0, len(t.enters)-1; i < j; i, j = i+1, j-1 {
		t.enters[i], t.enters[j] = t.enters[j], t.enters[i]
	}
	if len(t.exits) == 0 {
		t.stage = stageEnter
	}
	m.seq = t
}

// advance drives the sequencer as far as activities allow this tick.
func (m *Machine[C]) advance(c C) {
	for {
		if m.seq == nil {
			if m.pending == nil {
				return
			}
			p := *m.pending
			m.pending = nil
			if m.IsActive(p.target) {
				continue
			}
			m.begin(p)
		}
		if !m.step(c) {
			return
		}
	}
}

// step makes progress on the in-flight transition. It returns false when
// waiting on an activity, true when the caller may continue.
func (m *Machine[C]) step(c C) bool {
	t := m.seq
	switch t.stage {
	case stageExit:
		id := t.exits[t.i]
		acts := m.def.nodes[id].state.Activities
		if !t.started {
			for i, st := range m.activity[id] {
				if st == Active || st == Activating {
					m.activity[id][i] = Deactivating
				}
			}
			t.started = true
		}
		waiting := false
		for i, a := range acts {
			if m.activity[id][i] != Deactivating {
				continue
			}
			if a.Deactivate(c, t.tok) {
				m.activity[id][i] = Inactive
			} else {
				waiting = true
			}
		}
		if waiting {
			return false
		}
		if fn := m.def.nodes[id].state.OnExit; fn != nil {
			fn(c)
		}
		m.exits[id]++
		m.on[id] = false
		m.child[id] = None
		if p := m.def.nodes[id].parent; p != None {
			m.child[p] = None
		}
		t.i++
		t.started = false
		if t.i == len(t.exits) {
			t.stage = stageEnter
			t.i = 0
		}
		return true

	default:
		if t.i == len(t.enters) {
			// target reached; keep descending through Initial
			last := t.target
			if len(t.enters) > 0 {
				last = t.enters[len(t.enters)-1]
			}
			if next := m.def.initialChild(last, c); next != None {
				t.enters = append(t.enters, next)
				return true
			}
			m.seq = nil
			m.stats.Transitions++
			return true
		}
		id := t.enters[t.i]
		acts := m.def.nodes[id].state.Activities
		if !t.started {
			if p := m.def.nodes[id].parent; p != None {
				m.child[p] = id
			}
			m.on[id] = true
			m.enters[id]++
			if fn := m.def.nodes[id].state.OnEnter; fn != nil {
				fn(c)
			}
			for i := range acts {
				m.activity[id][i] = Activating
			}
			t.started = true
		}
		waiting := false
		for i, a := range acts {
			if m.activity[id][i] != Activating {
				continue
			}
			if a.Activate(c, t.tok) {
				m.activity[id][i] = Active
			} else {
				waiting = true
			}
		}
		if waiting {
			return false
		}
		t.i++
		t.started = false
		return true
	}
}

// Update advances the sequencer, then (when idle) evaluates Transition hooks
// from the root down, then runs OnUpdate on the active path.
func (m *Machine[C]) Update(c C, dt time.Duration) {
	if !m.started {
		m.Start(c)
	}
	m.advance(c)
	if m.seq != nil {
		return
	}
	for _, id := range m.Path() {
		fn := m.def.nodes[id].state.Transition
		if fn == nil {
			continue
		}
		if target, ok := fn(c); ok && target != None && !m.IsActive(target) {
			m.Request(target)
			m.advance(c)
			break
		}
	}
	if m.seq != nil {
		return
	}
	for _, id := range m.Path() {
		if fn := m.def.nodes[id].state.OnUpdate; fn != nil {
			fn(c, dt)
		}
	}
}
