// Package hfsm is a generic hierarchical state machine. States live in an
// arena addressed by StateID; parent/child links are indices. Transitions
// exit from the active leaf up to the lowest common ancestor and enter down
// to the target, driven through a sequencer so that per-state activities
// (asynchronous resource acquire/release) complete deterministically on tick.
package hfsm

import (
	"errors"
	"fmt"
	"time"
)

// StateID addresses a state in a Definition. None means "no state".
type StateID int

const None StateID = -1

// Token is handed to activities for one transition attempt. A cancelled
// token tells a long-running activity to give up; its result is discarded.
type Token struct {
	cancelled bool
}

func (t *Token) Cancel()         { t.cancelled = true }
func (t *Token) Cancelled() bool { return t.cancelled }

// ActivityStatus is the lifecycle of one state activity.
type ActivityStatus uint8

const (
	Inactive ActivityStatus = iota
	Activating
	Active
	Deactivating
)

func (s ActivityStatus) String() string {
	switch s {
	case Inactive:
		return "inactive"
	case Activating:
		return "activating"
	case Active:
		return "active"
	case Deactivating:
		return "deactivating"
	}
	return "unknown"
}

// Activity is a phase-style side effect bound to a state. Activate is polled
// once per tick while the state is being entered, Deactivate while it is
// being exited; each returns true when done.
type Activity[C any] interface {
	Activate(c C, tok *Token) bool
	Deactivate(c C, tok *Token) bool
}

// State declares the hooks of one node. Every hook is optional.
type State[C any] struct {
	Name string

	// Initial picks the child entered after this state; nil = first child.
	Initial func(c C) StateID
	// Transition is evaluated every idle tick before descending into children.
	Transition func(c C) (StateID, bool)

	OnEnter  func(c C)
	OnExit   func(c C)
	OnUpdate func(c C, dt time.Duration)

	Activities []Activity[C]
}

type node[C any] struct {
	state    State[C]
	parent   StateID
	children []StateID
	depth    int
}

// Builder assembles a Definition. The first added state is the root.
type Builder[C any] struct {
	nodes []node[C]
	err   error
}

func NewBuilder[C any]() *Builder[C] {
	return &Builder[C]{}
}

// Root adds the root state.
func (b *Builder[C]) Root(s State[C]) StateID {
	if len(b.nodes) != 0 {
		b.err = errors.New("hfsm: root already defined")
		return None
	}
	b.nodes = append(b.nodes, node[C]{state: s, parent: None})
	return 0
}

// Add adds s as a child of parent.
func (b *Builder[C]) Add(parent StateID, s State[C]) StateID {
	if parent < 0 || int(parent) >= len(b.nodes) {
		b.err = fmt.Errorf("hfsm: state %q has unknown parent %d", s.Name, parent)
		return None
	}
	id := StateID(len(b.nodes))
	b.nodes = append(b.nodes, node[C]{state: s, parent: parent, depth: b.nodes[parent].depth + 1})
	b.nodes[parent].children = append(b.nodes[parent].children, id)
	return id
}

// Build freezes the hierarchy. A Definition is immutable and shared by all
// machines built from it.
func (b *Builder[C]) Build() (*Definition[C], error) {
	if b.err != nil {
		return nil, b.err
	}
	if len(b.nodes) == 0 {
		return nil, errors.New("hfsm: empty definition")
	}
	return &Definition[C]{nodes: b.nodes}, nil
}

// Definition is a built state hierarchy.
type Definition[C any] struct {
	nodes []node[C]
}

func (d *Definition[C]) Len() int { return len(d.nodes) }

// Name returns the state name.
func (d *Definition[C]) Name(id StateID) string {
	if id < 0 || int(id) >= len(d.nodes) {
		return ""
	}
	return d.nodes[id].state.Name
}

// Parent returns the parent of id, None for the root.
func (d *Definition[C]) Parent(id StateID) StateID { return d.nodes[id].parent }

// IsAncestor reports whether a is b or an ancestor of b.
func (d *Definition[C]) IsAncestor(a, b StateID) bool {
	for cur := b; cur != None; cur = d.nodes[cur].parent {
		if cur == a {
			return true
		}
	}
	return false
}

// lca returns the lowest common ancestor of a and b.
func (d *Definition[C]) lca(a, b StateID) StateID {
	for d.nodes[a].depth > d.nodes[b].depth {
		a = d.nodes[a].parent
	}
	for d.nodes[b].depth > d.nodes[a].depth {
		b = d.nodes[b].parent
	}
	for a != b {
		a = d.nodes[a].parent
		b = d.nodes[b].parent
	}
	return a
}

func (d *Definition[C]) initialChild(id StateID, c C) StateID {
	n := &d.nodes[id]
	if len(n.children) == 0 {
		return None
	}
	if n.state.Initial != nil {
		if child := n.state.Initial(c); child != None && d.nodes[child].parent == id {
			return child
		}
	}
	return n.children[0]
}
