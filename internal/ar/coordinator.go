// Package ar coordinates the augmented-reality session lifecycle: which
// camera is live, which optional capabilities are running, and which events
// the rest of the viewer hears about.
package ar

import (
	"errors"
	"fmt"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"splatviewer/internal/events"
	"splatviewer/internal/metrics"
	"splatviewer/internal/scene"
	"splatviewer/internal/xr"
)

// State is the coordinator's session state.
type State int

const (
	StateInactive State = iota
	StateStarting
	StateActive
)

func (s State) String() string {
	switch s {
	case StateStarting:
		return "starting"
	case StateActive:
		return "active"
	default:
		return "inactive"
	}
}

// Authority names the single writer of the default camera transform.
type Authority int

const (
	AuthorityOrbit Authority = iota
	AuthorityARPose
)

func (a Authority) String() string {
	if a == AuthorityARPose {
		return "ar-pose"
	}
	return "orbit"
}

// Options selects the session's reference space and optional features.
type Options struct {
	Space           xr.Space
	HitTest         bool
	LightEstimation bool
}

func DefaultOptions() Options {
	return Options{Space: xr.SpaceLocalFloor, HitTest: true}
}

var errInvalidCamera = errors.New("ar: entity has no camera")

// Coordinator drives one XR device on behalf of the viewer. All methods must
// be called from the update loop.
type Coordinator struct {
	dev        xr.Device
	bus        *events.Bus
	log        zerolog.Logger
	opts       Options
	defaultCam *scene.Entity
	arCam      *scene.Entity
	mapper     *PoseMapper

	err       error
	state     State
	authority Authority
	sessionID string
	// generation increments on every session end so late device callbacks
	// for a finished session can be recognised.
	generation   int
	hitSource    xr.HitTestSource
	hitResolved  bool
	lightStarted bool
	tracking     bool
	unsubscribe  func()
}

// NewCoordinator wires the coordinator to dev and subscribes it to the AR
// request commands on bus. If either entity lacks a camera the error is
// logged and the returned coordinator ignores every request.
func NewCoordinator(dev xr.Device, bus *events.Bus, defaultCam, arCam *scene.Entity, opts Options, log zerolog.Logger) *Coordinator {
	c := &Coordinator{
		dev:        dev,
		bus:        bus,
		log:        log.With().Str("component", "ar").Logger(),
		opts:       opts,
		defaultCam: defaultCam,
		arCam:      arCam,
		mapper:     NewPoseMapper(),
	}
	switch {
	case defaultCam == nil || defaultCam.Camera == nil:
		c.err = fmt.Errorf("default camera: %w", errInvalidCamera)
	case arCam == nil || arCam.Camera == nil:
		c.err = fmt.Errorf("ar camera: %w", errInvalidCamera)
	case dev == nil:
		c.err = fmt.Errorf("ar: no device: %w", xr.ErrNotSupported)
	}
	if c.err != nil {
		c.log.Error().Err(c.err).Msg("AR coordinator disabled")
		return c
	}

	defaultCam.Enabled = true
	arCam.Enabled = false
	dev.SetHandler(c)
	c.unsubscribe = bus.SubscribeMultiple(
		[]events.Type{events.ARRequestStart, events.ARRequestEnd},
		func(e events.Event) {
			if e.Type == events.ARRequestStart {
				c.RequestStart()
			} else {
				c.RequestEnd()
			}
		},
	)
	return c
}

// Err reports the configuration error that made the coordinator inert.
func (c *Coordinator) Err() error { return c.err }

func (c *Coordinator) State() State                 { return c.state }
func (c *Coordinator) Authority() Authority         { return c.authority }
func (c *Coordinator) SessionID() string            { return c.sessionID }
func (c *Coordinator) Options() Options             { return c.opts }
func (c *Coordinator) Mapper() *PoseMapper          { return c.mapper }
func (c *Coordinator) DefaultCamera() *scene.Entity { return c.defaultCam }
func (c *Coordinator) ARCamera() *scene.Entity      { return c.arCam }

// RequestStart swaps to the AR camera and asks the device for a session.
// It is ignored unless the coordinator is inactive.
func (c *Coordinator) RequestStart() {
	if c.err != nil {
		return
	}
	if c.state != StateInactive {
		c.log.Debug().Str("state", c.state.String()).Msg("start ignored")
		return
	}

	c.defaultCam.Enabled = false
	c.arCam.Enabled = true
	c.state = StateStarting
	c.sessionID = uuid.NewString()

	var opts xr.Options
	if c.opts.HitTest {
		opts.RequiredFeatures = append(opts.RequiredFeatures, xr.FeatureHitTest)
	}
	if c.opts.LightEstimation {
		opts.OptionalFeatures = append(opts.OptionalFeatures, xr.FeatureLightEstimation)
	}
	c.log.Info().Str("session", c.sessionID).Str("space", string(c.opts.Space)).Msg("requesting AR session")
	c.dev.Start(xr.ModeAR, c.opts.Space, opts)
}

// RequestEnd asks the device to close the session. The state changes only
// when the device reports the end.
func (c *Coordinator) RequestEnd() {
	if c.err != nil || c.state == StateInactive {
		return
	}
	c.dev.End()
}

// XRStarted implements xr.Handler.
func (c *Coordinator) XRStarted() {
	if c.err != nil || c.state == StateActive {
		return
	}
	if c.state == StateInactive {
		// Session opened without a request from this side.
		c.defaultCam.Enabled = false
		c.arCam.Enabled = true
		c.sessionID = uuid.NewString()
	}
	c.state = StateActive
	c.authority = AuthorityARPose
	c.tracking = false
	c.hitResolved = false
	c.mapper.Reset()
	c.log.Info().Str("session", c.sessionID).Msg("AR session started")
	metrics.ARSessions.WithLabelValues("started").Inc()
	c.publish(events.Event{Type: events.AROnStart})

	caps := c.dev.Capabilities()
	if c.opts.LightEstimation && caps.LightEstimation != nil {
		caps.LightEstimation.Start()
		c.lightStarted = true
	}

	if !c.opts.HitTest || caps.HitTest == nil {
		c.resolveHitTest(nil, xr.ErrNotSupported)
		return
	}
	gen := c.generation
	caps.HitTest.Start(xr.SpaceViewer, func(src xr.HitTestSource, err error) {
		if gen != c.generation || c.state != StateActive {
			if src != nil {
				_ = src.Stop()
			}
			return
		}
		c.resolveHitTest(src, err)
	})
}

func (c *Coordinator) resolveHitTest(src xr.HitTestSource, err error) {
	if c.hitResolved {
		if src != nil {
			_ = src.Stop()
		}
		return
	}
	c.hitResolved = true

	if err != nil || src == nil {
		if err != nil && !errors.Is(err, xr.ErrNotSupported) {
			c.log.Error().Err(err).Msg("hit-test unavailable")
		}
		metrics.ARSessions.WithLabelValues("hit_test_disabled").Inc()
		c.publish(events.Event{Type: events.ARHitDisabled})
		return
	}

	c.hitSource = src
	gen := c.generation
	src.OnResult(func(pos mgl64.Vec3, rot mgl64.Quat) {
		if gen != c.generation {
			return
		}
		c.publish(events.Event{Type: events.ARHit, Position: pos, Rotation: rot})
	})
	src.OnNotFound(func() {
		if gen != c.generation {
			return
		}
		c.publish(events.Event{Type: events.ARHitNotFound})
	})
	c.publish(events.Event{Type: events.ARHitStart})
}

// XRUpdate implements xr.Handler. It moves the AR camera to the tracked pose.
func (c *Coordinator) XRUpdate(f xr.Frame) {
	if c.err != nil || c.state != StateActive {
		return
	}
	c.arCam.SetPosition(f.Position)
	c.arCam.SetRotation(f.Rotation)
	if !c.tracking {
		c.tracking = true
		c.publish(events.Event{Type: events.AROnTracking})
	}
}

// XRError implements xr.Handler. The device is expected to follow up with
// XREnded when the error is fatal.
func (c *Coordinator) XRError(err error) {
	c.log.Error().Err(err).Str("state", c.state.String()).Msg("XR error")
	metrics.ARSessions.WithLabelValues("error").Inc()
}

// XREnded implements xr.Handler. Calling it without a session is a no-op.
func (c *Coordinator) XREnded() {
	if c.err != nil || c.state == StateInactive {
		return
	}
	if c.hitSource != nil {
		if err := c.hitSource.Stop(); err != nil {
			c.log.Debug().Err(err).Msg("hit-test source stop")
		}
		c.hitSource = nil
	}
	if c.lightStarted {
		if le := c.dev.Capabilities().LightEstimation; le != nil {
			le.End()
		}
		c.lightStarted = false
	}

	c.publish(events.Event{Type: events.AROnEnd})
	c.log.Info().Str("session", c.sessionID).Msg("AR session ended")
	metrics.ARSessions.WithLabelValues("ended").Inc()

	c.defaultCam.Enabled = true
	c.arCam.Enabled = false
	c.state = StateInactive
	c.authority = AuthorityOrbit
	c.generation++
	c.sessionID = ""
	c.tracking = false
	c.mapper.Reset()
}

// SyncCamera maps the current AR pose onto the default camera. It is a no-op
// unless the coordinator holds camera authority.
func (c *Coordinator) SyncCamera() {
	if c.err != nil || c.authority != AuthorityARPose {
		return
	}
	c.mapper.Apply(c.defaultCam, c.arCam.Forward())
}

// ActiveCamera returns whichever camera is enabled, preferring the default.
func (c *Coordinator) ActiveCamera() *scene.Camera {
	if c.err != nil {
		if c.defaultCam != nil {
			return c.defaultCam.Camera
		}
		return nil
	}
	if c.arCam.Enabled && !c.defaultCam.Enabled {
		return c.arCam.Camera
	}
	return c.defaultCam.Camera
}

// Close detaches the coordinator from the bus.
func (c *Coordinator) Close() {
	if c.unsubscribe != nil {
		c.unsubscribe()
		c.unsubscribe = nil
	}
}

func (c *Coordinator) publish(e events.Event) {
	e.SessionID = c.sessionID
	c.bus.Publish(e)
}
