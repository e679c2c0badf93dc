package nav

import (
	"errors"
	"math"

	"github.com/l1jgo/worldcore/internal/geom"
)

var ErrBadVolume = errors.New("nav: malformed volume")

// Cell addresses one voxel.
type Cell struct {
	X, Y, Z int32
}

func (c Cell) add(dx, dy, dz int32) Cell { return Cell{c.X + dx, c.Y + dy, c.Z + dz} }

// Volume is a walkability grid plus its world transform. A walkable voxel is
// one an agent may stand in; its floor is the bottom face of the voxel.
// Built once (baked or loaded) and read-only afterwards, so shards share it.
type Volume struct {
	sizeX, sizeY, sizeZ int32
	origin              geom.Vec3
	voxel               float32
	bits                []uint64
}

// NewVolume returns an all-blocked volume.
func NewVolume(sizeX, sizeY, sizeZ int, origin geom.Vec3, voxel float32) *Volume {
	n := sizeX * sizeY * sizeZ
	return &Volume{
		sizeX:  int32(sizeX),
		sizeY:  int32(sizeY),
		sizeZ:  int32(sizeZ),
		origin: origin,
		voxel:  voxel,
		bits:   make([]uint64, (n+63)/64),
	}
}

// Flat returns a volume with a single walkable floor layer at y=0.
func Flat(sizeX, sizeZ int, voxel float32) *Volume {
	v := NewVolume(sizeX, 1, sizeZ, geom.Vec3{}, voxel)
	for z := 0; z < sizeZ; z++ {
		for x := 0; x < sizeX; x++ {
			v.Set(Cell{int32(x), 0, int32(z)}, true)
		}
	}
	return v
}

func (v *Volume) Size() (x, y, z int) { return int(v.sizeX), int(v.sizeY), int(v.sizeZ) }
func (v *Volume) Origin() geom.Vec3   { return v.origin }
func (v *Volume) VoxelSize() float32  { return v.voxel }
func (v *Volume) cellCount() int      { return int(v.sizeX) * int(v.sizeY) * int(v.sizeZ) }
func (v *Volume) index(c Cell) int    { return int(c.X) + int(v.sizeX)*(int(c.Y)+int(v.sizeY)*int(c.Z)) }
func (v *Volume) cellAt(idx int) Cell {
	x := idx % int(v.sizeX)
	rest := idx / int(v.sizeX)
	return Cell{int32(x), int32(rest % int(v.sizeY)), int32(rest / int(v.sizeY))}
}

// InBounds reports whether c lies inside the grid.
func (v *Volume) InBounds(c Cell) bool {
	return c.X >= 0 && c.Y >= 0 && c.Z >= 0 && c.X < v.sizeX && c.Y < v.sizeY && c.Z < v.sizeZ
}

// Set marks a voxel walkable or blocked. Only for building a volume.
func (v *Volume) Set(c Cell, walkable bool) {
	if !v.InBounds(c) {
		return
	}
	i := v.index(c)
	if walkable {
		v.bits[i>>6] |= 1 << (uint(i) & 63)
	} else {
		v.bits[i>>6] &^= 1 << (uint(i) & 63)
	}
}

// IsValid reports whether c is inside the grid and walkable.
func (v *Volume) IsValid(c Cell) bool {
	if !v.InBounds(c) {
		return false
	}
	i := v.index(c)
	return v.bits[i>>6]&(1<<(uint(i)&63)) != 0
}

// WorldToCell maps a world position to the voxel containing it.
func (v *Volume) WorldToCell(p geom.Vec3) Cell {
	return Cell{
		X: int32(math.Floor(float64((p.X - v.origin.X) / v.voxel))),
		Y: int32(math.Floor(float64((p.Y - v.origin.Y) / v.voxel))),
		Z: int32(math.Floor(float64((p.Z - v.origin.Z) / v.voxel))),
	}
}

// CellToWorld returns the floor centre of c.
func (v *Volume) CellToWorld(c Cell) geom.Vec3 {
	return geom.Vec3{
		X: v.origin.X + (float32(c.X)+0.5)*v.voxel,
		Y: v.origin.Y + float32(c.Y)*v.voxel,
		Z: v.origin.Z + (float32(c.Z)+0.5)*v.voxel,
	}
}

// FloorY is the world height of the floor of cell row y.
func (v *Volume) FloorY(y int32) float32 {
	return v.origin.Y + float32(y)*v.voxel
}

// ProjectHeight snaps p to the nearest walkable voxel in its column, searching
// at most maxDelta voxels; the same level wins, then below, then above.
func (v *Volume) ProjectHeight(p geom.Vec3, maxDelta int) (Cell, bool) {
	c := v.WorldToCell(p)
	if c.X < 0 || c.Z < 0 || c.X >= v.sizeX || c.Z >= v.sizeZ {
		return Cell{}, false
	}
	if v.IsValid(c) {
		return c, true
	}
	for d := int32(1); d <= int32(maxDelta); d++ {
		if down := c.add(0, -d, 0); v.IsValid(down) {
			return down, true
		}
		if up := c.add(0, d, 0); v.IsValid(up) {
			return up, true
		}
	}
	return Cell{}, false
}

// Project implements world.Terrain: p with its height snapped to the floor.
func (v *Volume) Project(p geom.Vec3) (geom.Vec3, bool) {
	c, ok := v.ProjectHeight(p, 2)
	if !ok {
		return p, false
	}
	return geom.Vec3{X: p.X, Y: v.FloorY(c.Y), Z: p.Z}, true
}

// standable accepts a sample inside a walkable voxel or just above one, so
// segments climbing a one-voxel step stay valid.
func (v *Volume) standable(p geom.Vec3) bool {
	c := v.WorldToCell(p)
	return v.IsValid(c) || v.IsValid(c.add(0, -1, 0))
}

// HasLineOfSight samples the segment a→b every step metres (both ends
// included) and requires every sample to be standable.
func (v *Volume) HasLineOfSight(a, b geom.Vec3, step float32) bool {
	if step <= 0 {
		step = v.voxel / 2
	}
	dist := geom.Dist(a, b)
	n := int(math.Ceil(float64(dist / step)))
	if n < 1 {
		n = 1
	}
	for i := 0; i <= n; i++ {
		if !v.standable(geom.Lerp(a, b, float32(i)/float32(n))) {
			return false
		}
	}
	return true
}
