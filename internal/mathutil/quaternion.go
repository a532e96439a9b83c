package mathutil

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

// EulerToQuat converts engine Euler angles in degrees to a rotation.
// Rotation order is yaw (Y), then pitch (X), then roll (Z), so a camera with
// positive pitch looks up and positive yaw turns left.
func EulerToQuat(pitch, yaw, roll float64) mgl64.Quat {
	qy := mgl64.QuatRotate(Deg2Rad(yaw), mgl64.Vec3{0, 1, 0})
	qx := mgl64.QuatRotate(Deg2Rad(pitch), mgl64.Vec3{1, 0, 0})
	qz := mgl64.QuatRotate(Deg2Rad(roll), mgl64.Vec3{0, 0, 1})
	return qy.Mul(qx).Mul(qz).Normalize()
}

// ForwardToYawPitch decomposes a view direction into the yaw and pitch
// (degrees) that EulerToQuat would need to face it. Returns ok=false for a
// zero-length direction.
func ForwardToYawPitch(fwd mgl64.Vec3) (yaw, pitch float64, ok bool) {
	l := fwd.Len()
	if l < 1e-12 {
		return 0, 0, false
	}
	f := fwd.Mul(1 / l)
	yaw = Rad2Deg(math.Atan2(-f.X(), -f.Z()))
	pitch = Rad2Deg(math.Asin(Clamp(f.Y(), -1, 1)))
	return yaw, pitch, true
}
