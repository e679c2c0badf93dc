package ai

import (
	"container/heap"
	"sort"

	"github.com/l1jgo/worldcore/internal/core/ecs"
)

type threatEntry struct {
	id     ecs.EntityID
	threat float64
	index  int
}

// threatHeap is a max-heap on threat; equal threat ranks the lower id first.
type threatHeap []*threatEntry

func (h threatHeap) Len() int { return len(h) }
func (h threatHeap) Less(i, j int) bool {
	if h[i].threat != h[j].threat {
		return h[i].threat > h[j].threat
	}
	return h[i].id < h[j].id
}
func (h threatHeap) Swap(i, j int) {
	h[i], h[j] = h[j], h[i]
	h[i].index = i
	h[j].index = j
}
func (h *threatHeap) Push(x any) {
	e := x.(*threatEntry)
	e.index = len(*h)
	*h = append(*h, e)
}
func (h *threatHeap) Pop() any {
	old := *h
	n := len(old)
	e := old[n-1]
	old[n-1] = nil
	*h = old[:n-1]
	e.index = -1
	return e
}

// Aggro is a threat table: a priority queue with an index for in-place
// updates. 仇恨表：單線程存取，無需鎖。
type Aggro struct {
	h    threatHeap
	byID map[ecs.EntityID]*threatEntry
}

func NewAggro() *Aggro {
	return &Aggro{byID: make(map[ecs.EntityID]*threatEntry)}
}

// Add accumulates threat for id.
func (a *Aggro) Add(id ecs.EntityID, amount float64) {
	if id == 0 || amount <= 0 {
		return
	}
	if e, ok := a.byID[id]; ok {
		e.threat += amount
		heap.Fix(&a.h, e.index)
		return
	}
	e := &threatEntry{id: id, threat: amount}
	a.byID[id] = e
	heap.Push(&a.h, e)
}

// Notice adds one point of threat the first time id is seen.
func (a *Aggro) Notice(id ecs.EntityID) bool {
	if _, ok := a.byID[id]; ok {
		return false
	}
	a.Add(id, 1)
	return true
}

// Remove drops id from the table.
func (a *Aggro) Remove(id ecs.EntityID) bool {
	e, ok := a.byID[id]
	if !ok {
		return false
	}
	heap.Remove(&a.h, e.index)
	delete(a.byID, id)
	return true
}

// Top returns the highest-threat entity.
func (a *Aggro) Top() (ecs.EntityID, bool) {
	if len(a.h) == 0 {
		return 0, false
	}
	return a.h[0].id, true
}

func (a *Aggro) Len() int { return len(a.h) }

func (a *Aggro) Has(id ecs.EntityID) bool {
	_, ok := a.byID[id]
	return ok
}

func (a *Aggro) Threat(id ecs.EntityID) float64 {
	if e, ok := a.byID[id]; ok {
		return e.threat
	}
	return 0
}

// Total is the summed threat, used to split experience.
func (a *Aggro) Total() float64 {
	var t float64
	for _, e := range a.h {
		t += e.threat
	}
	return t
}

// IDs returns every entity on the table, ascending.
func (a *Aggro) IDs() []ecs.EntityID {
	out := make([]ecs.EntityID, 0, len(a.h))
	for _, e := range a.h {
		out = append(out, e.id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Prune removes every entity keep rejects.
func (a *Aggro) Prune(keep func(ecs.EntityID) bool) int {
	n := 0
	for _, id := range a.IDs() {
		if !keep(id) {
			a.Remove(id)
			n++
		}
	}
	return n
}

// Clear empties the table (death, respawn, leash).
func (a *Aggro) Clear() {
	a.h = nil
	clear(a.byID)
}
