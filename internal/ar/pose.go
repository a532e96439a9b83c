package ar

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"

	"splatviewer/internal/mathutil"
	"splatviewer/internal/scene"
)

// DefaultBlendEpsilon is the half-width of the cos(yaw) band over which the
// pitch sign is faded through zero.
const DefaultBlendEpsilon = 0.2

// SignBlend is 1 above eps, -1 below -eps and linear in between.
func SignBlend(t, eps float64) float64 {
	switch {
	case t > eps:
		return 1
	case t < -eps:
		return -1
	case eps <= 0:
		return 0
	default:
		return t / eps
	}
}

// StabilizedAngles converts an AR camera forward vector into the Euler angles
// (degrees) written to the default camera. ok is false for a degenerate
// forward vector.
func StabilizedAngles(fwd mgl64.Vec3, eps float64) (pitch, yaw float64, ok bool) {
	if fwd.LenSqr() < 1e-6 {
		return 0, 0, false
	}
	f := fwd.Normalize()
	yawRad := math.Atan2(f.X(), f.Z())
	yaw = -mathutil.Rad2Deg(yawRad)

	base := math.Atan2(f.Y(), math.Hypot(f.X(), f.Z()))
	pitch = mathutil.Rad2Deg(base * SignBlend(math.Cos(yawRad), eps))
	return pitch, yaw, true
}

// PoseMapper writes AR tracking onto the default camera while a session is
// active. The camera stays pinned where it was on the first mapped frame.
type PoseMapper struct {
	Epsilon float64

	pinned   mgl64.Vec3
	isPinned bool
}

func NewPoseMapper() *PoseMapper {
	return &PoseMapper{Epsilon: DefaultBlendEpsilon}
}

// Apply pins cam and orients it from the AR camera's forward vector.
// It reports whether the orientation was updated.
func (m *PoseMapper) Apply(cam *scene.Entity, arForward mgl64.Vec3) bool {
	if !m.isPinned {
		m.pinned = cam.Position()
		m.isPinned = true
	}
	cam.SetPosition(m.pinned)

	pitch, yaw, ok := StabilizedAngles(arForward, m.Epsilon)
	if !ok {
		return false
	}
	cam.SetEulerAngles(pitch, yaw, 0)
	return true
}

// Pinned returns the pinned position, if any.
func (m *PoseMapper) Pinned() (mgl64.Vec3, bool) { return m.pinned, m.isPinned }

// Reset forgets the pinned position so the next session captures a new one.
func (m *PoseMapper) Reset() {
	m.isPinned = false
	m.pinned = mgl64.Vec3{}
}
