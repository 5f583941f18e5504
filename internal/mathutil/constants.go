package mathutil

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

// Correction constants between the egg convention (Z-up) and the destination (Y-up).
var (
	// AxisSwap exchanges the second and third axes, (x, y, z) -> (x, z, y).
	// It is its own inverse.
	AxisSwap = mgl64.Mat4{
		1, 0, 0, 0,
		0, 0, 1, 0,
		0, 1, 0, 0,
		0, 0, 0, 1,
	}

	// ChiralityScale is the instance-level scale that undoes the handedness flip of AxisSwap.
	// Applied once per converted mesh instance, never per vertex.
	ChiralityScale = mgl64.Vec3{1, 1, -1}

	// RootBasisCorrection is Rx(-90°), applied to bone 0 of every skeleton only.
	// The root bone has no parent frame to inherit the axis convention from.
	RootBasisCorrection = mgl64.HomogRotate3DX(Deg2Rad(-90))

	// FirstTrackFlip is the 180° turn about the vertical axis applied to the first rotation track.
	FirstTrackFlip = mgl64.QuatRotate(math.Pi, mgl64.Vec3{0, 1, 0})
)

// FirstTrackRollOffset is subtracted from the roll (degrees) of the first rotation track of a clip.
// Empirical value; the root frame of exported rigs is off by this much.
const FirstTrackRollOffset = 110.0
