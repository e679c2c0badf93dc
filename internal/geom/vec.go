package geom

import "math"

// Vec3 is a world-space position or direction. Y is up.
type Vec3 struct {
	X, Y, Z float32
}

func V(x, y, z float32) Vec3 { return Vec3{X: x, Y: y, Z: z} }

func (a Vec3) Add(b Vec3) Vec3      { return Vec3{a.X + b.X, a.Y + b.Y, a.Z + b.Z} }
func (a Vec3) Sub(b Vec3) Vec3      { return Vec3{a.X - b.X, a.Y - b.Y, a.Z - b.Z} }
func (a Vec3) Scale(s float32) Vec3 { return Vec3{a.X * s, a.Y * s, a.Z * s} }
func (a Vec3) Dot(b Vec3) float32   { return a.X*b.X + a.Y*b.Y + a.Z*b.Z }

func (a Vec3) Len() float32 {
	return float32(math.Sqrt(float64(a.X*a.X + a.Y*a.Y + a.Z*a.Z)))
}

// Flat drops the vertical component.
func (a Vec3) Flat() Vec3 { return Vec3{a.X, 0, a.Z} }

func (a Vec3) Normalize() Vec3 {
	l := a.Len()
	if l < 1e-6 {
		return Vec3{}
	}
	return a.Scale(1 / l)
}

func (a Vec3) IsZero() bool { return a.X == 0 && a.Y == 0 && a.Z == 0 }

// Dist returns the euclidean distance between two points.
func Dist(a, b Vec3) float32 { return a.Sub(b).Len() }

// FlatDist ignores height; used for ranges and leash checks.
func FlatDist(a, b Vec3) float32 { return a.Sub(b).Flat().Len() }

// Lerp interpolates between a and b by t in [0,1].
func Lerp(a, b Vec3, t float32) Vec3 {
	return Vec3{a.X + (b.X-a.X)*t, a.Y + (b.Y-a.Y)*t, a.Z + (b.Z-a.Z)*t}
}

// MoveTowards steps from a to b by at most maxStep and reports whether b was reached.
func MoveTowards(a, b Vec3, maxStep float32) (Vec3, bool) {
	d := b.Sub(a)
	l := d.Len()
	if l <= maxStep || l < 1e-6 {
		return b, true
	}
	return a.Add(d.Scale(maxStep / l)), false
}

// YawOf returns the heading in degrees [0,360) of a flat direction, 0 = +Z.
func YawOf(dir Vec3) float32 {
	if dir.X == 0 && dir.Z == 0 {
		return 0
	}
	deg := math.Atan2(float64(dir.X), float64(dir.Z)) * 180 / math.Pi
	if deg < 0 {
		deg += 360
	}
	return float32(deg)
}

// Forward is the flat unit vector for a yaw in degrees.
func Forward(yaw float32) Vec3 {
	r := float64(yaw) * math.Pi / 180
	return Vec3{float32(math.Sin(r)), 0, float32(math.Cos(r))}
}

// AngleBetween returns the unsigned angle in degrees between two flat directions.
func AngleBetween(a, b Vec3) float32 {
	a, b = a.Flat().Normalize(), b.Flat().Normalize()
	if a.IsZero() || b.IsZero() {
		return 0
	}
	c := float64(a.Dot(b))
	if c > 1 {
		c = 1
	} else if c < -1 {
		c = -1
	}
	return float32(math.Acos(c) * 180 / math.Pi)
}
