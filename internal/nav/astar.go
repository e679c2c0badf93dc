package nav

import (
	"container/heap"
	"math"

	"github.com/l1jgo/worldcore/internal/geom"
)

// NeighborMode selects the grid topology used by the search.
type NeighborMode int

const (
	Neighbors6  NeighborMode = 6
	Neighbors18 NeighborMode = 18
	Neighbors26 NeighborMode = 26
)

type offset struct {
	dx, dy, dz int32
	cost       float32
}

// neighborOffsets lists offsets in a fixed order so expansion is deterministic.
func neighborOffsets(mode NeighborMode) []offset {
	out := make([]offset, 0, 26)
	for dz := int32(-1); dz <= 1; dz++ {
		for dy := int32(-1); dy <= 1; dy++ {
			for dx := int32(-1); dx <= 1; dx++ {
				n := abs32(dx) + abs32(dy) + abs32(dz)
				if n == 0 {
					continue
				}
				switch mode {
				case Neighbors6:
					if n != 1 {
						continue
					}
				case Neighbors18:
					if n > 2 {
						continue
					}
				}
				out = append(out, offset{dx, dy, dz, float32(math.Sqrt(float64(n)))})
			}
		}
	}
	return out
}

func abs32(v int32) int32 {
	if v < 0 {
		return -v
	}
	return v
}

// Options tune a Pathfinder.
type Options struct {
	Mode            NeighborMode
	MaxExpansions   int
	HeuristicScale  float32
	LOSStep         float32 // metres between line-of-sight samples
	SnapMaxDelta    int     // voxels searched when snapping endpoints
	DirectTolerance float32 // endpoints closer than this skip the search
	CacheSize       int
}

func DefaultOptions() Options {
	return Options{
		Mode:            Neighbors26,
		MaxExpansions:   20000,
		HeuristicScale:  1,
		LOSStep:         0.5,
		SnapMaxDelta:    4,
		DirectTolerance: 0.5,
		CacheSize:       256,
	}
}

// Stats counts pathfinder outcomes.
type Stats struct {
	Requests  uint64
	Direct    uint64
	Searched  uint64
	CacheHits uint64
	Failed    uint64
	Capped    uint64
}

// Pathfinder runs A* over a shared Volume. Each shard owns its own
// Pathfinder (and cache); the Volume itself is shared read-only.
type Pathfinder struct {
	vol     *Volume
	opts    Options
	offsets []offset
	cache   *PathCache
	stats   Stats
}

func NewPathfinder(vol *Volume, opts Options) *Pathfinder {
	switch opts.Mode {
	case Neighbors6, Neighbors18, Neighbors26:
	default:
		opts.Mode = Neighbors26
	}
	if opts.MaxExpansions <= 0 {
		opts.MaxExpansions = DefaultOptions().MaxExpansions
	}
	if opts.HeuristicScale <= 0 {
		opts.HeuristicScale = 1
	}
	if opts.LOSStep <= 0 {
		opts.LOSStep = vol.voxel / 2
	}
	return &Pathfinder{
		vol:     vol,
		opts:    opts,
		offsets: neighborOffsets(opts.Mode),
		cache:   NewPathCache(opts.CacheSize),
	}
}

func (p *Pathfinder) Volume() *Volume { return p.vol }
func (p *Pathfinder) Stats() Stats    { return p.stats }

// HasLineOfSight samples at the configured step.
func (p *Pathfinder) HasLineOfSight(a, b geom.Vec3) bool {
	return p.vol.HasLineOfSight(a, b, p.opts.LOSStep)
}

// Snap projects a world point onto the walkable floor.
func (p *Pathfinder) Snap(pt geom.Vec3) (geom.Vec3, Cell, bool) {
	c, ok := p.vol.ProjectHeight(pt, p.opts.SnapMaxDelta)
	if !ok {
		return pt, Cell{}, false
	}
	return geom.Vec3{X: pt.X, Y: p.vol.FloorY(c.Y), Z: pt.Z}, c, true
}

// FindPath returns waypoints from start to goal, both snapped to the floor.
// ok is false for invalid endpoints, unreachable goals and searches that hit
// the expansion cap; no partial path is ever returned.
func (p *Pathfinder) FindPath(start, goal geom.Vec3) ([]geom.Vec3, bool) {
	p.stats.Requests++
	s, sc, ok := p.Snap(start)
	if !ok {
		p.stats.Failed++
		return nil, false
	}
	g, gc, ok := p.Snap(goal)
	if !ok {
		p.stats.Failed++
		return nil, false
	}
	if sc == gc || geom.Dist(s, g) <= p.opts.DirectTolerance || p.HasLineOfSight(s, g) {
		p.stats.Direct++
		return []geom.Vec3{s, g}, true
	}

	key := pathKey{start: sc, goal: gc, mode: p.opts.Mode}
	cells, hit := p.cache.Get(key)
	if hit {
		p.stats.CacheHits++
	} else {
		var found bool
		cells, found = p.search(sc, gc)
		if !found {
			p.stats.Failed++
			return nil, false
		}
		p.cache.Put(key, cells)
		p.stats.Searched++
	}

	// exact endpoints bracket the cell centres; every raw segment then stays
	// inside two neighbouring walkable voxels
	pts := make([]geom.Vec3, 0, len(cells)+2)
	pts = append(pts, s)
	for _, c := range cells {
		pts = append(pts, p.vol.CellToWorld(c))
	}
	pts = append(pts, g)
	return p.simplify(pts), true
}

type openNode struct {
	idx  int
	f, h float32
	seq  uint64
}

// openHeap orders by f, then h, then insertion sequence.
type openHeap []openNode

func (h openHeap) Len() int { return len(h) }
func (h openHeap) Less(i, j int) bool {
	if h[i].f != h[j].f {
		return h[i].f < h[j].f
	}
	if h[i].h != h[j].h {
		return h[i].h < h[j].h
	}
	return h[i].seq < h[j].seq
}
func (h openHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }
func (h *openHeap) Push(x any)   { *h = append(*h, x.(openNode)) }
func (h *openHeap) Pop() any {
	old := *h
	n := len(old)
	item := old[n-1]
	*h = old[:n-1]
	return item
}

func (p *Pathfinder) heuristic(a, b Cell) float32 {
	dx := float64(a.X - b.X)
	dy := float64(a.Y - b.Y)
	dz := float64(a.Z - b.Z)
	return p.opts.HeuristicScale * float32(math.Sqrt(dx*dx+dy*dy+dz*dz))
}

// search runs grid A* and returns the cell path including both endpoints.
func (p *Pathfinder) search(start, goal Cell) ([]Cell, bool) {
	vol := p.vol
	startIdx := vol.index(start)
	goalIdx := vol.index(goal)

	gScore := map[int]float32{startIdx: 0}
	bestF := make(map[int]float32)
	cameFrom := make(map[int]int)
	closed := make(map[int]struct{})

	open := &openHeap{}
	var seq uint64
	h0 := p.heuristic(start, goal)
	heap.Push(open, openNode{idx: startIdx, f: h0, h: h0, seq: seq})
	bestF[startIdx] = h0

	expansions := 0
	for open.Len() > 0 {
		cur := heap.Pop(open).(openNode)
		if _, done := closed[cur.idx]; done {
			continue
		}
		if f, ok := bestF[cur.idx]; ok && cur.f > f {
			continue // stale entry superseded by a cheaper push
		}
		if cur.idx == goalIdx {
			return reconstruct(vol, cameFrom, startIdx, goalIdx), true
		}
		closed[cur.idx] = struct{}{}
		expansions++
		if expansions > p.opts.MaxExpansions {
			p.stats.Capped++
			return nil, false
		}

		cell := vol.cellAt(cur.idx)
		from := vol.CellToWorld(cell)
		for _, o := range p.offsets {
			next := cell.add(o.dx, o.dy, o.dz)
			if !vol.IsValid(next) {
				continue
			}
			nIdx := vol.index(next)
			if _, done := closed[nIdx]; done {
				continue
			}
			// diagonal steps must not clip blocked corners
			if o.cost > 1 && !vol.HasLineOfSight(from, vol.CellToWorld(next), p.opts.LOSStep) {
				continue
			}
			tentative := gScore[cur.idx] + o.cost
			if g, ok := gScore[nIdx]; ok && tentative >= g {
				continue
			}
			gScore[nIdx] = tentative
			cameFrom[nIdx] = cur.idx
			h := p.heuristic(next, goal)
			f := tentative + h
			bestF[nIdx] = f
			seq++
			heap.Push(open, openNode{idx: nIdx, f: f, h: h, seq: seq})
		}
	}
	return nil, false
}

func reconstruct(vol *Volume, cameFrom map[int]int, startIdx, goalIdx int) []Cell {
	var rev []Cell
	for idx := goalIdx; ; idx = cameFrom[idx] {
		rev = append(rev, vol.cellAt(idx))
		if idx == startIdx {
			break
		}
	}
	out := make([]Cell, len(rev))
	for i, c := range rev {
		out[len(rev)-1-i] = c
	}
	return out
}

// simplify drops waypoints by greedy line-of-sight skipping, then removes any
// remaining waypoint whose neighbours can see each other, so every kept
// interior point is needed.
func (p *Pathfinder) simplify(pts []geom.Vec3) []geom.Vec3 {
	if len(pts) <= 2 {
		return pts
	}
	kept := []geom.Vec3{pts[0]}
	last := pts[0]
	for i := 1; i < len(pts)-1; i++ {
		if p.HasLineOfSight(last, pts[i+1]) {
			continue
		}
		kept = append(kept, pts[i])
		last = pts[i]
	}
	kept = append(kept, pts[len(pts)-1])

	for changed := true; changed && len(kept) > 2; {
		changed = false
		for i := 1; i < len(kept)-1; i++ {
			if p.HasLineOfSight(kept[i-1], kept[i+1]) {
				kept = append(kept[:i], kept[i+1:]...)
				changed = true
				break
			}
		}
	}
	return kept
}
