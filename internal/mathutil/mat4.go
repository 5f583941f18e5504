package mathutil

import "github.com/go-gl/mathgl/mgl64"

// FromEggMatrix converts an egg <Matrix4> (row-major, row vectors, translation in the last row)
// into a column-vector matrix. mgl64 stores column-major, so the 16 values copy straight across.
func FromEggMatrix(m [16]float64) mgl64.Mat4 {
	return mgl64.Mat4(m)
}

// IsIdentity checks if the matrix is approximately identity.
func IsIdentity(m mgl64.Mat4) bool {
	id := mgl64.Ident4()
	for i := 0; i < 16; i++ {
		d := m[i] - id[i]
		if d > 1e-8 || d < -1e-8 {
			return false
		}
	}
	return true
}
