package ecs

import (
	"errors"
	"sort"
)

// ErrComponentExists is returned by Add when the entity already holds a
// component of that type. An entity carries at most one instance per type.
var ErrComponentExists = errors.New("ecs: component already attached")

// Removable is implemented by all component stores so the Registry can
// bulk-remove an entity's data from every store on destroy.
type Removable interface {
	Remove(id EntityID)
}

// PtrComponentStore is a generic typed map store for ECS components.
// Pure generics, no reflect.
type PtrComponentStore[T any] struct {
	data map[EntityID]*T
}

func NewPtrComponentStore[T any]() *PtrComponentStore[T] {
	return &PtrComponentStore[T]{
		data: make(map[EntityID]*T, 256),
	}
}

// Add attaches c to id, refusing to replace an existing component.
func (s *PtrComponentStore[T]) Add(id EntityID, c *T) error {
	if _, ok := s.data[id]; ok {
		return ErrComponentExists
	}
	s.data[id] = c
	return nil
}

func (s *PtrComponentStore[T]) Set(id EntityID, c *T) {
	s.data[id] = c
}

func (s *PtrComponentStore[T]) Get(id EntityID) (*T, bool) {
	c, ok := s.data[id]
	return c, ok
}

func (s *PtrComponentStore[T]) Remove(id EntityID) {
	delete(s.data, id)
}

func (s *PtrComponentStore[T]) Has(id EntityID) bool {
	_, ok := s.data[id]
	return ok
}

func (s *PtrComponentStore[T]) Len() int {
	return len(s.data)
}

// Each visits components in map order. Use SortedIDs when order matters.
func (s *PtrComponentStore[T]) Each(fn func(EntityID, *T)) {
	for id, c := range s.data {
		fn(id, c)
	}
}

// SortedIDs returns the ids holding this component in ascending order.
// The simulation iterates in this order so a tick is reproducible.
func (s *PtrComponentStore[T]) SortedIDs() []EntityID {
	ids := make([]EntityID, 0, len(s.data))
	for id := range s.data {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}
