package math

import gomath "math"

// Box is an axis aligned bounding box
type Box struct {
	Min Vec3f `json:"min"`
	Max Vec3f `json:"max"`
}

// EmptyBox returns a box which contains nothing. Extending it with the first
// point yields a box of zero size at that point.
func EmptyBox() Box {
	inf := float32(gomath.Inf(1))
	return Box{
		Min: Uniform(inf),
		Max: Uniform(-inf),
	}
}

// IsEmpty reports whether no point was added to the box
func (b Box) IsEmpty() bool {
	return b.Min.X > b.Max.X || b.Min.Y > b.Max.Y || b.Min.Z > b.Max.Z
}

// Extend grows the box to contain p
func (b Box) Extend(p Vec3f) Box {
	return Box{Min: b.Min.Min(p), Max: b.Max.Max(p)}
}

// Union returns the smallest box containing b and o
func (b Box) Union(o Box) Box {
	if o.IsEmpty() {
		return b
	}
	if b.IsEmpty() {
		return o
	}
	return Box{Min: b.Min.Min(o.Min), Max: b.Max.Max(o.Max)}
}

// Size returns the extent of the box along each axis. An empty box has size 0.
func (b Box) Size() Vec3f {
	if b.IsEmpty() {
		return Vec3f{}
	}
	return b.Max.Sub(b.Min)
}

// Transform returns the axis aligned box around the eight transformed corners
func (b Box) Transform(m Mat4) Box {
	if b.IsEmpty() {
		return b
	}
	out := EmptyBox()
	for i := 0; i < 8; i++ {
		corner := b.Min
		if i&1 != 0 {
			corner.X = b.Max.X
		}
		if i&2 != 0 {
			corner.Y = b.Max.Y
		}
		if i&4 != 0 {
			corner.Z = b.Max.Z
		}
		out = out.Extend(m.TransformPoint(corner))
	}
	return out
}
