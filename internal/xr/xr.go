// Package xr describes the augmented-reality device the viewer drives.
// Implementations deliver every callback on the caller's update loop.
package xr

import (
	"errors"

	"github.com/go-gl/mathgl/mgl64"
)

// Mode is the session type.
type Mode string

const ModeAR Mode = "immersive-ar"

// Space is a reference space for poses.
type Space string

const (
	SpaceViewer     Space = "viewer"
	SpaceLocal      Space = "local"
	SpaceLocalFloor Space = "local-floor"
)

// ParseSpace accepts the names above and defaults to local-floor.
func ParseSpace(s string) Space {
	switch Space(s) {
	case SpaceViewer, SpaceLocal, SpaceLocalFloor:
		return Space(s)
	}
	return SpaceLocalFloor
}

// Feature names an optional or required session capability.
type Feature string

const (
	FeatureHitTest         Feature = "hit-test"
	FeatureLightEstimation Feature = "light-estimation"
)

// Options carries the feature lists requested at session start.
type Options struct {
	RequiredFeatures []Feature
	OptionalFeatures []Feature
}

// Frame is a per-frame viewer pose.
type Frame struct {
	Position mgl64.Vec3
	Rotation mgl64.Quat
}

var (
	ErrNotSupported  = errors.New("xr: not supported")
	ErrSourceStopped = errors.New("xr: hit-test source already stopped")
)

// Handler receives session lifecycle signals.
type Handler interface {
	XRStarted()
	XREnded()
	XRError(err error)
	XRUpdate(f Frame)
}

// Device is a session-capable XR runtime.
type Device interface {
	SetHandler(h Handler)
	// Start asks the runtime to negotiate a session. The outcome arrives
	// later as XRStarted, or XRError followed by XREnded.
	Start(mode Mode, space Space, opts Options)
	// End asks the runtime to close the session; XREnded follows.
	End()
	Active() bool
	// Capabilities reports what the running session supports.
	Capabilities() Capabilities
}

// Capabilities lists optional subsystems. Nil means unsupported.
type Capabilities struct {
	LightEstimation LightEstimation
	HitTest         HitTester
}

type LightEstimation interface {
	Start()
	End()
}

// HitTester starts hit-test subscriptions.
type HitTester interface {
	// Start requests a source anchored to space; cb receives either a
	// source or an error, exactly once.
	Start(space Space, cb func(HitTestSource, error))
}

// HitTestSource yields surface hits until stopped.
type HitTestSource interface {
	OnResult(func(pos mgl64.Vec3, rot mgl64.Quat))
	OnNotFound(func())
	// Stop releases the source. Stopping twice returns ErrSourceStopped.
	Stop() error
}

// Poller is implemented by devices that buffer runtime signals and replay
// them when the update loop asks.
type Poller interface {
	Poll()
}
