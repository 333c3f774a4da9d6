package math

import (
	"strconv"
	"strings"
)

// Vec3f is a three component vector, used for positions, sizes and scales.
// Units are meters unless stated otherwise.
type Vec3f struct {
	X float32 `json:"x"`
	Y float32 `json:"y"`
	Z float32 `json:"z"`
}

// Vec4f is a four component vector, mostly used for quaternions (x/y/z/w)
type Vec4f struct {
	X float32 `json:"x"`
	Y float32 `json:"y"`
	Z float32 `json:"z"`
	W float32 `json:"w"`
}

// Uniform returns a vector with all three components set to v
func Uniform(v float32) Vec3f {
	return Vec3f{v, v, v}
}

// MaxComponent returns the largest of the three components
func (v Vec3f) MaxComponent() float32 {
	m := v.X
	if v.Y > m {
		m = v.Y
	}
	if v.Z > m {
		m = v.Z
	}
	return m
}

// Min returns the component-wise minimum
func (v Vec3f) Min(o Vec3f) Vec3f {
	return Vec3f{min32(v.X, o.X), min32(v.Y, o.Y), min32(v.Z, o.Z)}
}

// Max returns the component-wise maximum
func (v Vec3f) Max(o Vec3f) Vec3f {
	return Vec3f{max32(v.X, o.X), max32(v.Y, o.Y), max32(v.Z, o.Z)}
}

// Sub returns v-o
func (v Vec3f) Sub(o Vec3f) Vec3f {
	return Vec3f{v.X - o.X, v.Y - o.Y, v.Z - o.Z}
}

// String formats the vector the way the web viewer expects attribute values,
// e.g. "0.4 0.4 0.4" or "1 1 1".
func (v Vec3f) String() string {
	return strings.Join([]string{
		formatComponent(v.X),
		formatComponent(v.Y),
		formatComponent(v.Z),
	}, " ")
}

func formatComponent(c float32) string {
	return strconv.FormatFloat(float64(c), 'f', -1, 32)
}

func min32(a, b float32) float32 {
	if a < b {
		return a
	}
	return b
}

func max32(a, b float32) float32 {
	if a > b {
		return a
	}
	return b
}
