package orbit

import "math"

// MouseButton identifies a pointer button; only the primary one orbits.
type MouseButton int

const (
	MouseLeft MouseButton = iota
	MouseRight
	MouseMiddle
)

// Touch is one active contact point in screen pixels.
type Touch struct {
	ID   int
	X, Y float64
}

// touchDeadZone ignores single-finger jitter below half a pixel per axis.
const touchDeadZone = 0.5

// pinchScale converts pinch pixels into the same units as wheel ticks.
const pinchScale = 0.01

// Input turns raw mouse and touch events into controller updates.
type Input struct {
	c *Controller

	dragging bool

	touching    bool
	zooming     bool
	lastTouch   Touch
	lastPinch   float64
	pinchActive bool
}

// NewInput binds a gesture adapter to c.
func NewInput(c *Controller) *Input {
	return &Input{c: c}
}

func (in *Input) MouseDown(b MouseButton) {
	if b != MouseLeft {
		return
	}
	in.dragging = true
	in.c.MarkInput()
}

func (in *Input) MouseUp(b MouseButton) {
	if b == MouseLeft {
		in.dragging = false
	}
}

// MouseMove applies a drag delta while the primary button is held.
func (in *Input) MouseMove(dx, dy float64) {
	if !in.dragging {
		return
	}
	in.c.OnPointerDrag(dx, dy)
}

// Wheel zooms by wheel ticks.
func (in *Input) Wheel(delta float64) {
	in.c.OnPinchOrWheel(delta, in.c.cfg.MouseZoomSensitivity)
}

// TouchStart is called with the full set of current touches whenever a
// finger goes down.
func (in *Input) TouchStart(touches []Touch) {
	in.touching = true
	in.c.MarkInput()
	switch len(touches) {
	case 1:
		in.zooming = false
		in.lastTouch = touches[0]
	case 2:
		in.zooming = true
		in.lastPinch = pinchDistance(touches)
		in.pinchActive = true
	}
}

// TouchMove is called with the full set of current touches after movement.
func (in *Input) TouchMove(touches []Touch) {
	in.c.MarkInput()
	switch {
	case len(touches) == 2:
		in.zooming = true
		d := pinchDistance(touches)
		if !in.pinchActive {
			in.lastPinch = d
			in.pinchActive = true
			return
		}
		in.c.OnPinchOrWheel(d-in.lastPinch, in.c.cfg.TouchZoomSensitivity*pinchScale)
		in.lastPinch = d
	case len(touches) == 1 && !in.zooming:
		t := touches[0]
		dx := t.X - in.lastTouch.X
		dy := t.Y - in.lastTouch.Y
		if math.Abs(dx) < touchDeadZone && math.Abs(dy) < touchDeadZone {
			return
		}
		in.c.rotate(dx, dy, in.c.cfg.TouchRotationSensitivity)
		in.lastTouch = t
	}
}

// TouchEnd is called with the touches that remain after a finger lifts.
func (in *Input) TouchEnd(remaining []Touch) {
	switch {
	case len(remaining) == 0:
		in.Reset()
	case len(remaining) == 1 && in.zooming:
		in.zooming = false
		in.pinchActive = false
		in.lastTouch = remaining[0]
	}
}

// Reset drops any in-progress touch gesture.
func (in *Input) Reset() {
	in.zooming = false
	in.touching = false
	in.pinchActive = false
	in.lastPinch = 0
}

// Zooming reports whether a two-finger gesture is in progress.
func (in *Input) Zooming() bool { return in.zooming }

func pinchDistance(t []Touch) float64 {
	return math.Hypot(t[0].X-t[1].X, t[0].Y-t[1].Y)
}
