package world

import (
	"math"
	"sort"

	"github.com/l1jgo/worldcore/internal/core/ecs"
	"github.com/l1jgo/worldcore/internal/geom"
)

// Grid implements a cell-based Area of Interest index on the X/Z plane.
// Cell size and radius are chosen so that the (2r+1)² neighbourhood of cells
// covers the visibility range. An entity occupies exactly one cell.
// Accessed only from the shard goroutine, so no locks.
type Grid struct {
	cellSize float32
	radius   int32
	cells    map[CellKey]map[ecs.EntityID]struct{} // cell → set of entities
	where    map[ecs.EntityID]CellKey
}

// CellKey addresses one AOI cell.
type CellKey struct {
	X, Z int32
}

func NewGrid(cellSize float32, radius int) *Grid {
	if cellSize <= 0 {
		cellSize = 20
	}
	if radius < 0 {
		radius = 0
	}
	return &Grid{
		cellSize: cellSize,
		radius:   int32(radius),
		cells:    make(map[CellKey]map[ecs.EntityID]struct{}),
		where:    make(map[ecs.EntityID]CellKey),
	}
}

func (g *Grid) Radius() int       { return int(g.radius) }
func (g *Grid) CellSize() float32 { return g.cellSize }
func (g *Grid) Len() int          { return len(g.where) }
func (g *Grid) toCell(v float32) int32 {
	return int32(math.Floor(float64(v / g.cellSize)))
}

// CellOf returns the cell containing pos.
func (g *Grid) CellOf(pos geom.Vec3) CellKey {
	return CellKey{X: g.toCell(pos.X), Z: g.toCell(pos.Z)}
}

// Cell returns the cell an entity currently occupies.
func (g *Grid) Cell(id ecs.EntityID) (CellKey, bool) {
	k, ok := g.where[id]
	return k, ok
}

// Add places an entity into the grid, moving it if already present.
func (g *Grid) Add(id ecs.EntityID, pos geom.Vec3) CellKey {
	if _, ok := g.where[id]; ok {
		_, to, _ := g.Move(id, pos)
		return to
	}
	k := g.CellOf(pos)
	g.insert(id, k)
	return k
}

func (g *Grid) insert(id ecs.EntityID, k CellKey) {
	cell := g.cells[k]
	if cell == nil {
		cell = make(map[ecs.EntityID]struct{})
		g.cells[k] = cell
	}
	cell[id] = struct{}{}
	g.where[id] = k
}

// Remove takes an entity out of the grid.
func (g *Grid) Remove(id ecs.EntityID) (CellKey, bool) {
	k, ok := g.where[id]
	if !ok {
		return CellKey{}, false
	}
	delete(g.where, id)
	if cell := g.cells[k]; cell != nil {
		delete(cell, id)
		if len(cell) == 0 {
			delete(g.cells, k)
		}
	}
	return k, true
}

// Move updates an entity's cell when its position changes.
func (g *Grid) Move(id ecs.EntityID, pos geom.Vec3) (from, to CellKey, changed bool) {
	to = g.CellOf(pos)
	from, ok := g.where[id]
	if ok && from == to {
		return from, to, false
	}
	if ok {
		g.Remove(id)
	}
	g.insert(id, to)
	return from, to, ok
}

// InNeighborhood reports whether other lies within radius cells of center.
func (g *Grid) InNeighborhood(center, other CellKey) bool {
	dx := center.X - other.X
	dz := center.Z - other.Z
	return dx >= -g.radius && dx <= g.radius && dz >= -g.radius && dz <= g.radius
}

// Nearby returns every entity in the neighbourhood of center, ascending.
func (g *Grid) Nearby(center CellKey) []ecs.EntityID {
	return g.within(center, g.radius)
}

func (g *Grid) within(center CellKey, r int32) []ecs.EntityID {
	var result []ecs.EntityID
	for dz := -r; dz <= r; dz++ {
		for dx := -r; dx <= r; dx++ {
			for id := range g.cells[CellKey{center.X + dx, center.Z + dz}] {
				result = append(result, id)
			}
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i] < result[j] })
	return result
}

// Around returns entities within dist metres (flat) of pos, ascending.
func (g *Grid) Around(pos geom.Vec3, dist float32, positions func(ecs.EntityID) (geom.Vec3, bool)) []ecs.EntityID {
	r := int32(math.Ceil(float64(dist / g.cellSize)))
	cands := g.within(g.CellOf(pos), r)
	out := cands[:0]
	for _, id := range cands {
		p, ok := positions(id)
		if ok && geom.FlatDist(p, pos) <= dist {
			out = append(out, id)
		}
	}
	return out
}
