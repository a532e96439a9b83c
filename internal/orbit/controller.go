// Package orbit implements the damped orbit camera: a look-at point, yaw,
// pitch and distance that each chase a target value every frame.
package orbit

import (
	"math"
	"time"

	"github.com/go-gl/mathgl/mgl64"

	"splatviewer/internal/mathutil"
	"splatviewer/internal/scene"
)

// Config holds the tunables of a Controller.
type Config struct {
	RotationSpeed   float64       `mapstructure:"rotation_speed"`
	ZoomSpeed       float64       `mapstructure:"zoom_speed"`
	LerpFactor      float64       `mapstructure:"lerp_factor"`
	MinPitch        float64       `mapstructure:"min_pitch"`
	MaxPitch        float64       `mapstructure:"max_pitch"`
	AutoRotateSpeed float64       `mapstructure:"auto_rotate_speed"` // degrees per second
	AutoRotateDelay time.Duration `mapstructure:"auto_rotate_delay"`

	MouseZoomSensitivity     float64 `mapstructure:"mouse_zoom_sensitivity"`
	TouchRotationSensitivity float64 `mapstructure:"touch_rotation_sensitivity"`
	TouchZoomSensitivity     float64 `mapstructure:"touch_zoom_sensitivity"`

	HomeTarget   []float64 `mapstructure:"home_target"`
	InitialPitch float64   `mapstructure:"initial_pitch"`
	InitialYaw   float64   `mapstructure:"initial_yaw"`
	Distance     float64   `mapstructure:"distance"`
}

func DefaultConfig() Config {
	return Config{
		RotationSpeed:            0.3,
		ZoomSpeed:                0.5,
		LerpFactor:               0.05,
		MinPitch:                 25,
		MaxPitch:                 60,
		AutoRotateSpeed:          7,
		AutoRotateDelay:          3 * time.Second,
		MouseZoomSensitivity:     0.5,
		TouchRotationSensitivity: 0.6,
		TouchZoomSensitivity:     5,
		HomeTarget:               []float64{0.45, 0, 0.246},
		InitialPitch:             30,
		InitialYaw:               -2,
		Distance:                 5,
	}
}

// Home returns HomeTarget as a vector; missing components are zero.
func (c Config) Home() mgl64.Vec3 {
	var v mgl64.Vec3
	copy(v[:], c.HomeTarget)
	return v
}

// State is a snapshot of the controller. Angles are in degrees.
type State struct {
	Target, TargetGoal       mgl64.Vec3
	Pitch, PitchTarget       float64
	Yaw, YawTarget           float64
	Distance, DistanceTarget float64
	MinDistance, MaxDistance float64
	Position                 mgl64.Vec3
}

// Controller is the damped orbit camera. It is not safe for concurrent use;
// input handlers and Advance run on the same update loop.
type Controller struct {
	cfg Config
	now func() time.Time

	target     mgl64.Vec3
	targetGoal mgl64.Vec3

	pitch, pitchTarget       float64
	yaw, yawTarget           float64
	distance, distanceTarget float64
	minDistance, maxDistance float64

	position  mgl64.Vec3
	lastInput time.Time
}

// Option customises a Controller.
type Option func(*Controller)

// WithClock replaces time.Now for idle tracking.
func WithClock(now func() time.Time) Option {
	return func(c *Controller) { c.now = now }
}

// NewController builds a controller at the configured home pose. Distance
// bounds start unbounded until a profile or SetDistanceLimits narrows them.
func NewController(cfg Config, opts ...Option) *Controller {
	c := &Controller{
		cfg:         cfg,
		now:         time.Now,
		minDistance: 0,
		maxDistance: math.Inf(1),
	}
	for _, o := range opts {
		o(c)
	}
	home := cfg.Home()
	c.target, c.targetGoal = home, home
	c.pitch = mathutil.Clamp(cfg.InitialPitch, cfg.MinPitch, cfg.MaxPitch)
	c.pitchTarget = c.pitch
	c.yaw, c.yawTarget = cfg.InitialYaw, cfg.InitialYaw
	d := cfg.Distance
	if d <= 0 {
		d = 5
	}
	c.distance, c.distanceTarget = d, d
	c.lastInput = c.now()
	c.updatePosition()
	return c
}

// Config returns the tunables the controller was built with.
func (c *Controller) Config() Config { return c.cfg }

// MarkInput resets the idle timer.
func (c *Controller) MarkInput() { c.lastInput = c.now() }

// OnPointerDrag rotates the target orientation by a pointer delta in pixels.
func (c *Controller) OnPointerDrag(dx, dy float64) {
	c.rotate(dx, dy, c.cfg.RotationSpeed)
}

func (c *Controller) rotate(dx, dy, speed float64) {
	c.MarkInput()
	c.pitchTarget = mathutil.Clamp(c.pitchTarget+dy*speed, c.cfg.MinPitch, c.cfg.MaxPitch)
	c.yawTarget -= dx * speed
}

// OnPinchOrWheel zooms: positive delta moves the camera closer.
func (c *Controller) OnPinchOrWheel(delta, sensitivity float64) {
	c.MarkInput()
	c.distanceTarget = c.clampDistance(c.distanceTarget - delta*c.cfg.ZoomSpeed*sensitivity)
}

// FocusOn makes p the new look-at goal. The look-at point damps toward it.
func (c *Controller) FocusOn(p mgl64.Vec3) {
	c.targetGoal = p
	c.MarkInput()
}

// FocusOnDistance is FocusOn with a new target distance.
func (c *Controller) FocusOnDistance(p mgl64.Vec3, distance float64) {
	c.distanceTarget = c.clampDistance(distance)
	c.FocusOn(p)
}

// LookAtSmoothly aims the target orientation at p from the current camera
// position. Pitch uses the orbit convention (camera above = positive) and is
// clamped; yaw is unwrapped to within 180 degrees of the current target yaw.
func (c *Controller) LookAtSmoothly(p mgl64.Vec3) {
	dir := p.Sub(c.position)
	if dir.Len() < 1e-9 {
		return
	}
	dir = dir.Normalize()
	yaw := mathutil.Rad2Deg(math.Atan2(-dir.X(), -dir.Z()))
	pitch := mathutil.Rad2Deg(math.Asin(mathutil.Clamp(-dir.Y(), -1, 1)))

	c.pitchTarget = mathutil.Clamp(pitch, c.cfg.MinPitch, c.cfg.MaxPitch)
	c.yawTarget = mathutil.UnwrapNear(yaw, c.yawTarget)
}

// SetDistanceLimits replaces the zoom bounds and clamps current and target
// distance into them immediately.
func (c *Controller) SetDistanceLimits(min, max float64) {
	if min > max {
		min, max = max, min
	}
	c.minDistance, c.maxDistance = min, max
	c.distanceTarget = c.clampDistance(c.distanceTarget)
	c.distance = c.clampDistance(c.distance)
}

// ApplyProfile installs a profile's bounds and target distance.
func (c *Controller) ApplyProfile(p Profile) {
	c.SetDistanceLimits(p.MinDistance, p.MaxDistance)
	c.distanceTarget = c.clampDistance(p.Distance)
}

func (c *Controller) clampDistance(d float64) float64 {
	return mathutil.Clamp(d, c.minDistance, c.maxDistance)
}

// Idle reports how long it has been since the last input.
func (c *Controller) Idle() time.Duration {
	return c.now().Sub(c.lastInput)
}

// Advance steps the controller by one frame. The blend toward targets is a
// fixed fraction per call, so motion speed follows the frame rate.
func (c *Controller) Advance(dt float64) {
	if c.Idle() > c.cfg.AutoRotateDelay {
		c.yawTarget -= c.cfg.AutoRotateSpeed * dt
	}

	t := c.cfg.LerpFactor
	c.pitch += (c.pitchTarget - c.pitch) * t
	c.yaw = mathutil.LerpAngle(c.yaw, c.yawTarget, t)
	c.distance += (c.distanceTarget - c.distance) * t
	c.target = c.target.Add(c.targetGoal.Sub(c.target).Mul(t))

	c.updatePosition()
}

func (c *Controller) updatePosition() {
	pitch := mathutil.Deg2Rad(c.pitch)
	yaw := mathutil.Deg2Rad(c.yaw)
	offset := mgl64.Vec3{
		c.distance * math.Cos(pitch) * math.Sin(yaw),
		c.distance * math.Sin(pitch),
		c.distance * math.Cos(pitch) * math.Cos(yaw),
	}
	c.position = c.target.Add(offset)
}

// Apply writes the camera pose to e.
func (c *Controller) Apply(e *scene.Entity) {
	if e == nil {
		return
	}
	e.SetPosition(c.position)
	e.LookAt(c.target)
}

func (c *Controller) Position() mgl64.Vec3 { return c.position }
func (c *Controller) Target() mgl64.Vec3   { return c.target }

// State returns a copy of the controller state.
func (c *Controller) State() State {
	return State{
		Target:         c.target,
		TargetGoal:     c.targetGoal,
		Pitch:          c.pitch,
		PitchTarget:    c.pitchTarget,
		Yaw:            c.yaw,
		YawTarget:      c.yawTarget,
		Distance:       c.distance,
		DistanceTarget: c.distanceTarget,
		MinDistance:    c.minDistance,
		MaxDistance:    c.maxDistance,
		Position:       c.position,
	}
}

// Clone returns an independent copy, used to render offline sequences
// without disturbing the live camera.
func (c *Controller) Clone() *Controller {
	cp := *c
	return &cp
}

// Settle snaps every damped value onto its target.
func (c *Controller) Settle() {
	c.pitch = c.pitchTarget
	c.yaw = c.yawTarget
	c.distance = c.distanceTarget
	c.target = c.targetGoal
	c.updatePosition()
}

// SetYaw places the camera at an absolute yaw without damping.
func (c *Controller) SetYaw(yaw float64) {
	c.yaw, c.yawTarget = yaw, yaw
	c.updatePosition()
}
