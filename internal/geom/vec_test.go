package geom

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMoveTowards(t *testing.T) {
	p, reached := MoveTowards(V(0, 0, 0), V(10, 0, 0), 4)
	assert.False(t, reached)
	assert.InDelta(t, 4, p.X, 1e-5)

	p, reached = MoveTowards(V(0, 0, 0), V(3, 0, 0), 4)
	assert.True(t, reached)
	assert.Equal(t, V(3, 0, 0), p)
}

func TestYawRoundTrip(t *testing.T) {
	for _, yaw := range []float32{0, 45, 90, 180, 270, 315} {
		got := YawOf(Forward(yaw))
		assert.InDelta(t, yaw, got, 1e-3, "yaw %v", yaw)
	}
}

func TestAngleBetween(t *testing.T) {
	assert.InDelta(t, 90, AngleBetween(V(1, 0, 0), V(0, 0, 1)), 1e-3)
	assert.InDelta(t, 0, AngleBetween(V(1, 5, 0), V(2, 0, 0)), 1e-3)
	assert.Equal(t, float32(0), AngleBetween(Vec3{}, V(1, 0, 0)))
}

func TestFlatDist(t *testing.T) {
	assert.InDelta(t, 5, FlatDist(V(0, 10, 0), V(3, 0, 4)), 1e-5)
}
