package mathutil

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

// Deg2Rad converts degrees to radians.
func Deg2Rad(d float64) float64 {
	return d * math.Pi / 180
}

// ConvertPosition maps an egg position to the destination convention: (x, y, z) -> (x, z, y).
func ConvertPosition(p mgl64.Vec3) mgl64.Vec3 {
	return mgl64.Vec3{p[0], p[2], p[1]}
}

// ConvertNormal applies the same swap as ConvertPosition. The result is not renormalized.
func ConvertNormal(n mgl64.Vec3) mgl64.Vec3 {
	return mgl64.Vec3{n[0], n[2], n[1]}
}

// ConvertUV flips v: egg textures have their origin at the bottom-left.
func ConvertUV(uv mgl64.Vec2) mgl64.Vec2 {
	return mgl64.Vec2{uv[0], 1 - uv[1]}
}

// ConvertMatrix re-expresses a transform in the destination basis: S·M·S with S = AxisSwap.
func ConvertMatrix(m mgl64.Mat4) mgl64.Mat4 {
	return AxisSwap.Mul4(m).Mul4(AxisSwap)
}

// ApplyRootBasis returns the bone-0 transform with RootBasisCorrection pre-multiplied.
func ApplyRootBasis(m mgl64.Mat4) mgl64.Mat4 {
	return RootBasisCorrection.Mul4(m)
}
