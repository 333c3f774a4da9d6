package math

// Mat4 is a column-major 4x4 matrix, the layout used by glTF
type Mat4 [16]float64

// Identity returns the identity matrix
func Identity() Mat4 {
	return Mat4{
		1, 0, 0, 0,
		0, 1, 0, 0,
		0, 0, 1, 0,
		0, 0, 0, 1,
	}
}

// FromColumnMajor converts a glTF node matrix
func FromColumnMajor(m [16]float32) Mat4 {
	var out Mat4
	for i, v := range m {
		out[i] = float64(v)
	}
	return out
}

// FromTRS composes translation, rotation (unit quaternion x/y/z/w) and scale
// into T * R * S.
func FromTRS(t Vec3f, r Vec4f, s Vec3f) Mat4 {
	x, y, z, w := float64(r.X), float64(r.Y), float64(r.Z), float64(r.W)
	sx, sy, sz := float64(s.X), float64(s.Y), float64(s.Z)

	return Mat4{
		(1 - 2*(y*y+z*z)) * sx, (2 * (x*y + z*w)) * sx, (2 * (x*z - y*w)) * sx, 0,
		(2 * (x*y - z*w)) * sy, (1 - 2*(x*x+z*z)) * sy, (2 * (y*z + x*w)) * sy, 0,
		(2 * (x*z + y*w)) * sz, (2 * (y*z - x*w)) * sz, (1 - 2*(x*x+y*y)) * sz, 0,
		float64(t.X), float64(t.Y), float64(t.Z), 1,
	}
}

// Mul returns m*o
func (m Mat4) Mul(o Mat4) Mat4 {
	var out Mat4
	for col := 0; col < 4; col++ {
		for row := 0; row < 4; row++ {
			var sum float64
			for k := 0; k < 4; k++ {
				sum += m[k*4+row] * o[col*4+k]
			}
			out[col*4+row] = sum
		}
	}
	return out
}

// TransformPoint applies the affine part of m to p
func (m Mat4) TransformPoint(p Vec3f) Vec3f {
	x, y, z := float64(p.X), float64(p.Y), float64(p.Z)
	return Vec3f{
		float32(m[0]*x + m[4]*y + m[8]*z + m[12]),
		float32(m[1]*x + m[5]*y + m[9]*z + m[13]),
		float32(m[2]*x + m[6]*y + m[10]*z + m[14]),
	}
}
