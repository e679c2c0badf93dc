package ecs

// Store is a component store as seen by the registry.
type Store interface {
	Removable
	Has(id EntityID) bool
}

type namedStore struct {
	name  string
	store Store
}

// Registry names every component store of a world so destroy can strip an
// entity from all of them, and tests can check that nothing was left behind.
type Registry struct {
	stores []namedStore
}

func NewRegistry() *Registry { return &Registry{} }

// Register adds a store under name. Names are informational only.
func (r *Registry) Register(name string, s Store) {
	r.stores = append(r.stores, namedStore{name: name, store: s})
}

func (r *Registry) Len() int { return len(r.stores) }

// RemoveAll strips id from every store.
func (r *Registry) RemoveAll(id EntityID) {
	for _, ns := range r.stores {
		ns.store.Remove(id)
	}
}

// Holding lists the names of the stores that still hold a component of id,
// in registration order.
func (r *Registry) Holding(id EntityID) []string {
	var names []string
	for _, ns := range r.stores {
		if ns.store.Has(id) {
			names = append(names, ns.name)
		}
	}
	return names
}
