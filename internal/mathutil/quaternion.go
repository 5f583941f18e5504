package mathutil

import "github.com/go-gl/mathgl/mgl64"

var (
	axisX = mgl64.Vec3{1, 0, 0}
	axisY = mgl64.Vec3{0, 1, 0}
	axisZ = mgl64.Vec3{0, 0, 1}
)

// ComposeEuler builds a rotation from egg heading/pitch/roll (radians).
// The angles are placed as Euler (x=roll, y=pitch, z=heading) and composed in the
// destination's YXZ order: Ry(pitch) · Rx(roll) · Rz(heading).
func ComposeEuler(heading, pitch, roll float64) mgl64.Quat {
	qy := mgl64.QuatRotate(pitch, axisY)
	qx := mgl64.QuatRotate(roll, axisX)
	qz := mgl64.QuatRotate(heading, axisZ)
	return qy.Mul(qx).Mul(qz)
}

// FirstTrackCorrection is the root-frame fix applied to the first rotation track of a clip:
// swap the X and Y components, renormalize, then post-multiply FirstTrackFlip.
// Empirically derived; kept isolated so it can be revisited.
func FirstTrackCorrection(q mgl64.Quat) mgl64.Quat {
	q.V[0], q.V[1] = q.V[1], q.V[0]
	return q.Normalize().Mul(FirstTrackFlip)
}

// QuatArray flattens q as (x, y, z, w).
func QuatArray(q mgl64.Quat) [4]float64 {
	return [4]float64{q.V[0], q.V[1], q.V[2], q.W}
}
