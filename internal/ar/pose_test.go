package ar

import (
	"math"
	"testing"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/stretchr/testify/assert"

	"splatviewer/internal/scene"
)

func TestSignBlend(t *testing.T) {
	tests := []struct {
		in, want float64
	}{
		{1, 1},
		{0.21, 1},
		{0.2, 1},
		{0.1, 0.5},
		{0, 0},
		{-0.1, -0.5},
		{-0.2, -1},
		{-0.9, -1},
	}
	for _, tc := range tests {
		assert.InDelta(t, tc.want, SignBlend(tc.in, 0.2), 1e-12, "t=%v", tc.in)
	}
}

func TestStabilizedAngles(t *testing.T) {
	// Looking along +Z and slightly up: cos(yaw) = 1 keeps pitch.
	p, y, ok := StabilizedAngles(mgl64.Vec3{0, 1, 1}, DefaultBlendEpsilon)
	assert.True(t, ok)
	assert.InDelta(t, 45, p, 1e-9)
	assert.InDelta(t, 0, y, 1e-9)

	// Along -Z the sign flips.
	p, y, _ = StabilizedAngles(mgl64.Vec3{0, 1, -1}, DefaultBlendEpsilon)
	assert.InDelta(t, -45, p, 1e-9)
	assert.InDelta(t, 180, math.Abs(y), 1e-9)

	// Sideways (cos(yaw) = 0) levels the pitch.
	p, y, _ = StabilizedAngles(mgl64.Vec3{1, 1, 0}, DefaultBlendEpsilon)
	assert.InDelta(t, 0, p, 1e-9)
	assert.InDelta(t, -90, y, 1e-9)

	_, _, ok = StabilizedAngles(mgl64.Vec3{}, DefaultBlendEpsilon)
	assert.False(t, ok)
}

func TestPoseMapperDegenerateForwardKeepsRotation(t *testing.T) {
	cam := scene.NewEntity("cam")
	cam.SetEulerAngles(10, 20, 0)
	before := cam.Rotation()

	m := NewPoseMapper()
	assert.False(t, m.Apply(cam, mgl64.Vec3{}))
	assert.True(t, cam.Rotation().ApproxEqual(before))
	_, pinned := m.Pinned()
	assert.True(t, pinned)
}
