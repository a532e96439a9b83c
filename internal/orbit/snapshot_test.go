package orbit

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func newSnapshot() (*TouchSnapshot, *Controller) {
	c := NewController(DefaultConfig())
	c.SetDistanceLimits(1, 50)
	return NewTouchSnapshot(NewInput(c)), c
}

func TestTouchSnapshotRotates(t *testing.T) {
	s, c := newSnapshot()
	yaw := c.State().YawTarget

	s.Update([]Touch{{ID: 1, X: 100, Y: 100}})
	assert.Equal(t, yaw, c.State().YawTarget, "touch down does not rotate")

	s.Update([]Touch{{ID: 1, X: 120, Y: 100}})
	assert.NotEqual(t, yaw, c.State().YawTarget)
}

func TestTouchSnapshotPinch(t *testing.T) {
	s, c := newSnapshot()
	d := c.State().DistanceTarget

	s.Update([]Touch{{ID: 1, X: 100, Y: 100}})
	s.Update([]Touch{{ID: 1, X: 100, Y: 100}, {ID: 2, X: 200, Y: 100}})
	s.Update([]Touch{{ID: 2, X: 300, Y: 100}, {ID: 1, X: 100, Y: 100}})
	assert.Less(t, c.State().DistanceTarget, d, "spreading fingers zooms in")

	// Lifting the moving finger re-anchors on the one that stayed.
	yaw := c.State().YawTarget
	s.Update([]Touch{{ID: 1, X: 100, Y: 100}})
	assert.Equal(t, yaw, c.State().YawTarget)
	s.Update([]Touch{{ID: 1, X: 110, Y: 100}})
	assert.InDelta(t, yaw-10*c.cfg.TouchRotationSensitivity, c.State().YawTarget, 1e-9)
}

func TestTouchSnapshotStillFrameIsQuiet(t *testing.T) {
	s, c := newSnapshot()
	s.Update([]Touch{{ID: 3, X: 10, Y: 10}})
	before := c.State()
	s.Update([]Touch{{ID: 3, X: 10, Y: 10}})
	assert.Equal(t, before, c.State())
	s.Update(nil)
	assert.Empty(t, s.prev)
}
