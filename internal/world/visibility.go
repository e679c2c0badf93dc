package world

import (
	"sort"

	"github.com/l1jgo/worldcore/internal/core/ecs"
)

// Delta is one visibility change: Target entered or left Watcher's view.
type Delta struct {
	Watcher ecs.EntityID
	Target  ecs.EntityID
	Entered bool
}

// Visibility keeps, per entity, the set of entities it currently sees, and
// the reverse (who sees it). Sets change only in Update, so between updates
// they reflect the grid at the last update.
type Visibility struct {
	grid     *Grid
	known    map[ecs.EntityID]map[ecs.EntityID]struct{}
	watchers map[ecs.EntityID]map[ecs.EntityID]struct{}
	dirty    map[CellKey]struct{}
}

func NewVisibility(grid *Grid) *Visibility {
	return &Visibility{
		grid:     grid,
		known:    make(map[ecs.EntityID]map[ecs.EntityID]struct{}),
		watchers: make(map[ecs.EntityID]map[ecs.EntityID]struct{}),
		dirty:    make(map[CellKey]struct{}),
	}
}

// Track starts visibility bookkeeping for an entity already in the grid.
func (v *Visibility) Track(id ecs.EntityID) {
	if _, ok := v.known[id]; !ok {
		v.known[id] = make(map[ecs.EntityID]struct{})
	}
	if k, ok := v.grid.Cell(id); ok {
		v.dirty[k] = struct{}{}
	}
}

// MarkDirty flags a cell whose membership changed since the last Update.
func (v *Visibility) MarkDirty(k CellKey) { v.dirty[k] = struct{}{} }

// Forget drops an entity from every set and returns the entities that could
// see it, ascending.
func (v *Visibility) Forget(id ecs.EntityID) []ecs.EntityID {
	ws := sortedSet(v.watchers[id])
	for _, w := range ws {
		delete(v.known[w], id)
	}
	for t := range v.known[id] {
		delete(v.watchers[t], id)
	}
	delete(v.known, id)
	delete(v.watchers, id)
	return ws
}

// Update recomputes the visible set of every tracked entity whose
// neighbourhood touches a dirty cell and returns the changes, ordered by
// watcher then target.
func (v *Visibility) Update() []Delta {
	if len(v.dirty) == 0 {
		return nil
	}
	ids := make([]ecs.EntityID, 0, len(v.known))
	for id := range v.known {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	var deltas []Delta
	for _, id := range ids {
		center, ok := v.grid.Cell(id)
		if !ok || !v.touchesDirty(center) {
			continue
		}
		current := make(map[ecs.EntityID]struct{})
		for _, other := range v.grid.Nearby(center) {
			if other == id {
				continue
			}
			if _, tracked := v.known[other]; !tracked {
				continue
			}
			current[other] = struct{}{}
		}

		known := v.known[id]
		var left []ecs.EntityID
		for t := range known {
			if _, still := current[t]; !still {
				left = append(left, t)
			}
		}
		sort.Slice(left, func(i, j int) bool { return left[i] < left[j] })
		for _, t := range left {
			delete(known, t)
			delete(v.watchers[t], id)
			deltas = append(deltas, Delta{Watcher: id, Target: t})
		}
		for _, t := range sortedSet(current) {
			if _, had := known[t]; had {
				continue
			}
			known[t] = struct{}{}
			ws := v.watchers[t]
			if ws == nil {
				ws = make(map[ecs.EntityID]struct{})
				v.watchers[t] = ws
			}
			ws[id] = struct{}{}
			deltas = append(deltas, Delta{Watcher: id, Target: t, Entered: true})
		}
	}
	clear(v.dirty)
	return deltas
}

func (v *Visibility) touchesDirty(center CellKey) bool {
	for k := range v.dirty {
		if v.grid.InNeighborhood(center, k) {
			return true
		}
	}
	return false
}

// Visible returns what id saw at the last update, ascending.
func (v *Visibility) Visible(id ecs.EntityID) []ecs.EntityID { return sortedSet(v.known[id]) }

// Watchers returns who saw id at the last update, ascending.
func (v *Visibility) Watchers(id ecs.EntityID) []ecs.EntityID { return sortedSet(v.watchers[id]) }

// Sees reports whether target is in watcher's visible set.
func (v *Visibility) Sees(watcher, target ecs.EntityID) bool {
	_, ok := v.known[watcher][target]
	return ok
}

func sortedSet(m map[ecs.EntityID]struct{}) []ecs.EntityID {
	out := make([]ecs.EntityID, 0, len(m))
	for id := range m {
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
