package nav

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/l1jgo/worldcore/internal/geom"
)

// wallVolume is a 10x10 floor with a wall at x=5 leaving a gap at z=gapZ
// (gapZ < 0 closes the wall completely).
func wallVolume(gapZ int32) *Volume {
	v := Flat(10, 10, 1)
	for z := int32(0); z < 10; z++ {
		if z != gapZ {
			v.Set(Cell{5, 0, z}, false)
		}
	}
	return v
}

func TestDirectPathOnEmptyGrid(t *testing.T) {
	pf := NewPathfinder(Flat(10, 10, 1), DefaultOptions())
	path, ok := pf.FindPath(geom.V(0, 0, 0), geom.V(5, 0, 0))
	require.True(t, ok)
	assert.Equal(t, []geom.Vec3{geom.V(0, 0, 0), geom.V(5, 0, 0)}, path)
	assert.Equal(t, uint64(1), pf.Stats().Direct)
}

func TestPathAroundWallIsSimplifiedAndVisible(t *testing.T) {
	for _, mode := range []NeighborMode{Neighbors6, Neighbors18, Neighbors26} {
		opts := DefaultOptions()
		opts.Mode = mode
		pf := NewPathfinder(wallVolume(9), opts)

		start, goal := geom.V(1.5, 0, 1.5), geom.V(8.5, 0, 1.5)
		path, ok := pf.FindPath(start, goal)
		require.True(t, ok, "mode %d", mode)
		require.GreaterOrEqual(t, len(path), 3)
		assert.Equal(t, start, path[0])
		assert.Equal(t, goal, path[len(path)-1])

		for i := 0; i+1 < len(path); i++ {
			assert.True(t, pf.HasLineOfSight(path[i], path[i+1]), "segment %d blocked (mode %d)", i, mode)
		}
		for i := 1; i+1 < len(path); i++ {
			assert.False(t, pf.HasLineOfSight(path[i-1], path[i+1]), "waypoint %d is redundant (mode %d)", i, mode)
		}
	}
}

func TestFindPathIsDeterministic(t *testing.T) {
	vol := wallVolume(7)
	pf := NewPathfinder(vol, DefaultOptions())
	first, ok := pf.FindPath(geom.V(0.5, 0, 0.5), geom.V(9.5, 0, 0.5))
	require.True(t, ok)

	second, ok := pf.FindPath(geom.V(0.5, 0, 0.5), geom.V(9.5, 0, 0.5))
	require.True(t, ok)
	assert.Equal(t, first, second)
	assert.Equal(t, uint64(1), pf.Stats().CacheHits)

	fresh := NewPathfinder(vol, DefaultOptions())
	third, ok := fresh.FindPath(geom.V(0.5, 0, 0.5), geom.V(9.5, 0, 0.5))
	require.True(t, ok)
	assert.Equal(t, first, third)
}

func TestFindPathFailures(t *testing.T) {
	pf := NewPathfinder(wallVolume(-1), DefaultOptions())

	_, ok := pf.FindPath(geom.V(1.5, 0, 1.5), geom.V(8.5, 0, 1.5))
	assert.False(t, ok, "wall without a gap is unreachable")

	_, ok = pf.FindPath(geom.V(1.5, 0, 1.5), geom.V(5.5, 0, 1.5))
	assert.False(t, ok, "goal inside a wall fails fast")

	_, ok = pf.FindPath(geom.V(-3, 0, 1), geom.V(2, 0, 2))
	assert.False(t, ok, "start outside the volume")

	opts := DefaultOptions()
	opts.MaxExpansions = 3
	capped := NewPathfinder(wallVolume(9), opts)
	path, ok := capped.FindPath(geom.V(1.5, 0, 1.5), geom.V(8.5, 0, 1.5))
	assert.False(t, ok)
	assert.Nil(t, path, "capped searches return no partial path")
	assert.Equal(t, uint64(1), capped.Stats().Capped)
}

func TestProjectHeightPrefersSameLevelThenBelow(t *testing.T) {
	v := NewVolume(2, 4, 2, geom.Vec3{}, 1)
	v.Set(Cell{0, 1, 0}, true)
	v.Set(Cell{0, 3, 0}, true)

	c, ok := v.ProjectHeight(geom.V(0.5, 2.2, 0.5), 2)
	require.True(t, ok)
	assert.Equal(t, Cell{0, 1, 0}, c)

	_, ok = v.ProjectHeight(geom.V(1.5, 2.2, 1.5), 4)
	assert.False(t, ok, "empty column")
}

func TestVolumeBlobRoundTrip(t *testing.T) {
	src := wallVolume(3)
	var buf bytes.Buffer
	require.NoError(t, WriteVolume(&buf, src))

	got, err := ReadVolume(&buf)
	require.NoError(t, err)
	x, y, z := got.Size()
	assert.Equal(t, []int{10, 1, 10}, []int{x, y, z})
	for cz := int32(0); cz < 10; cz++ {
		for cx := int32(0); cx < 10; cx++ {
			c := Cell{cx, 0, cz}
			assert.Equal(t, src.IsValid(c), got.IsValid(c), "cell %v", c)
		}
	}
}

func TestReadVolumeRejectsBadMagic(t *testing.T) {
	v := Flat(2, 2, 1)
	var buf bytes.Buffer
	require.NoError(t, WriteVolume(&buf, v))

	// re-encode with a corrupted header
	raw, err := decompress(buf.Bytes())
	require.NoError(t, err)
	raw[0] = 'X'
	_, err = ReadVolume(bytes.NewReader(compress(t, raw)))
	assert.ErrorIs(t, err, ErrBadVolume)
}
