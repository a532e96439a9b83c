// Package viewer assembles the scene, cameras and controllers and steps
// them in a fixed order once per frame.
package viewer

import (
	"errors"
	"fmt"
	"time"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/rs/zerolog"

	"splatviewer/internal/ar"
	"splatviewer/internal/config"
	"splatviewer/internal/crossfade"
	"splatviewer/internal/events"
	"splatviewer/internal/orbit"
	"splatviewer/internal/overlay"
	"splatviewer/internal/scene"
	"splatviewer/internal/xr"
)

// ErrNoHit is returned by Place before any surface has been hit.
var ErrNoHit = errors.New("viewer: no surface hit yet")

// Options supplies the pieces an App is built from. Model is required;
// Device, Previous and Dependent may be nil.
type Options struct {
	Config    config.Config
	Device    xr.Device
	Model     *scene.Entity
	Previous  *scene.Entity
	Dependent *scene.Entity
	Clock     func() time.Time
}

// App owns the live scene.
type App struct {
	cfg config.Config
	log zerolog.Logger
	bus *events.Bus

	root       *scene.Entity
	model      *scene.Entity
	defaultCam *scene.Entity
	arCam      *scene.Entity
	reticle    *scene.Entity

	device  xr.Device
	orbit   *orbit.Controller
	input   *orbit.Input
	coord   *ar.Coordinator
	fade    *crossfade.Presenter
	overlay *overlay.Synchronizer
	watcher *overlay.Watcher

	mode     orbit.Mode
	portrait bool
	viewport overlay.Rect
	labels   []*Label
	dataset  *overlay.Dataset
	selected int

	hitPos mgl64.Vec3
	hitRot mgl64.Quat
	hasHit bool

	unsubscribe []func()
}

// New builds the scene graph around opts.Model and wires every component to
// a fresh event bus.
func New(opts Options, log zerolog.Logger) (*App, error) {
	if opts.Model == nil {
		return nil, errors.New("viewer: no model")
	}
	cfg := opts.Config
	a := &App{
		cfg:      cfg,
		log:      log.With().Str("component", "viewer").Logger(),
		bus:      events.NewBus(),
		root:     scene.NewEntity("root"),
		model:    opts.Model,
		device:   opts.Device,
		overlay:  overlay.NewSynchronizer(),
		selected: -1,
	}

	if len(cfg.Scene.Position) == 3 {
		a.model.SetLocalPosition(mgl64.Vec3{cfg.Scene.Position[0], cfg.Scene.Position[1], cfg.Scene.Position[2]})
	}
	a.root.AddChild(a.model)
	for _, e := range []*scene.Entity{opts.Model, opts.Previous, opts.Dependent} {
		if e != nil && e.Material == nil {
			e.Material = scene.NewMaterial()
		}
	}
	if opts.Previous != nil {
		a.root.AddChild(opts.Previous)
	}
	if opts.Dependent != nil {
		opts.Dependent.Enabled = false
		a.root.AddChild(opts.Dependent)
	}

	a.defaultCam = scene.NewEntity("camera")
	scene.AttachCamera(a.defaultCam, cfg.Scene.FOV)
	a.arCam = scene.NewEntity("ar-camera")
	scene.AttachCamera(a.arCam, cfg.Scene.FOV)
	a.reticle = scene.NewEntity("reticle")
	a.reticle.Enabled = false
	a.root.AddChild(a.defaultCam)
	a.root.AddChild(a.arCam)
	a.root.AddChild(a.reticle)

	var clockOpts []orbit.Option
	if opts.Clock != nil {
		clockOpts = append(clockOpts, orbit.WithClock(opts.Clock))
	}
	a.orbit = orbit.NewController(cfg.Orbit, clockOpts...)
	a.input = orbit.NewInput(a.orbit)
	a.orbit.ApplyProfile(cfg.Profiles.Select(a.portrait, a.mode))
	a.orbit.Apply(a.defaultCam)

	a.fade = crossfade.New(cfg.Crossfade)
	a.fade.SetSubjects(opts.Model, opts.Previous)
	a.fade.SetDependent(opts.Dependent)
	a.fade.OnGate(func() { a.log.Debug().Msg("crossfade complete") })

	a.coord = ar.NewCoordinator(opts.Device, a.bus, a.defaultCam, a.arCam, ar.Options{
		Space:           xr.ParseSpace(cfg.AR.Space),
		HitTest:         cfg.AR.HitTest,
		LightEstimation: cfg.AR.LightEstimation,
	}, log)

	a.unsubscribe = append(a.unsubscribe,
		a.bus.Subscribe(events.ARHit, a.onHit),
		a.bus.SubscribeMultiple([]events.Type{events.ARHitNotFound, events.AROnEnd}, func(events.Event) {
			a.reticle.Enabled = false
		}),
	)

	if cfg.Overlay.Watch {
		w, err := overlay.NewWatcher(cfg.Overlay.DataDir, log)
		if err != nil {
			a.log.Warn().Err(err).Msg("dataset watching disabled")
		} else {
			a.watcher = w
		}
	}
	return a, nil
}

func (a *App) Bus() *events.Bus                { return a.bus }
func (a *App) Root() *scene.Entity             { return a.root }
func (a *App) Model() *scene.Entity            { return a.model }
func (a *App) Reticle() *scene.Entity          { return a.reticle }
func (a *App) Orbit() *orbit.Controller        { return a.orbit }
func (a *App) Input() *orbit.Input             { return a.input }
func (a *App) Coordinator() *ar.Coordinator    { return a.coord }
func (a *App) Crossfade() *crossfade.Presenter { return a.fade }
func (a *App) Mode() orbit.Mode                { return a.mode }
func (a *App) Labels() []*Label                { return a.labels }
func (a *App) Selected() int                   { return a.selected }
func (a *App) Viewport() overlay.Rect          { return a.viewport }

// Camera returns the camera currently rendering.
func (a *App) Camera() *scene.Camera { return a.coord.ActiveCamera() }

// Resize records the viewport and reselects the distance profile for the
// new orientation.
func (a *App) Resize(width, height int) {
	a.viewport = overlay.Rect{W: float64(width), H: float64(height)}
	if height > 0 {
		aspect := float64(width) / float64(height)
		a.defaultCam.Camera.Aspect = aspect
		a.arCam.Camera.Aspect = aspect
	}
	portrait := orbit.IsPortrait(width, height)
	if portrait != a.portrait {
		a.log.Debug().Bool("portrait", portrait).Msg("orientation changed")
	}
	a.portrait = portrait
	a.orbit.ApplyProfile(a.cfg.Profiles.Select(a.portrait, a.mode))
}

// Update advances one frame: device signals, camera authority, crossfade,
// then overlay placement.
func (a *App) Update(dt float64) {
	a.drainReloads()

	if p, ok := a.device.(xr.Poller); ok {
		p.Poll()
	}

	if a.coord.Authority() == ar.AuthorityARPose {
		a.coord.SyncCamera()
	} else {
		a.orbit.Advance(dt)
		a.orbit.Apply(a.defaultCam)
	}

	cam := a.coord.ActiveCamera()
	a.fade.Update(dt, cam)
	if cam != nil {
		a.overlay.Sync(cam, a.viewport)
	}
}

func (a *App) drainReloads() {
	if a.watcher == nil {
		return
	}
	for {
		select {
		case path := <-a.watcher.Changes():
			if a.mode != orbit.ModeDetail {
				continue
			}
			a.log.Info().Str("path", path).Msg("dataset changed")
			if err := a.loadPoints(); err != nil {
				a.log.Warn().Err(err).Msg("dataset reload failed")
			}
		default:
			return
		}
	}
}

// ToggleAR requests a session start when none is running and an end
// otherwise.
func (a *App) ToggleAR() {
	if a.coord.State() == ar.StateInactive {
		a.bus.Fire(events.ARRequestStart)
		return
	}
	a.bus.Fire(events.ARRequestEnd)
}

// EnterDetail switches to point-of-interest mode and loads the dataset for
// the configured language.
func (a *App) EnterDetail() error {
	a.mode = orbit.ModeDetail
	return a.loadPoints()
}

func (a *App) loadPoints() error {
	ds, err := overlay.LoadDataset(a.cfg.Overlay.DataDir, a.cfg.Overlay.Lang, a.log)
	if err != nil {
		return fmt.Errorf("viewer: load points: %w", err)
	}
	a.overlay.Clear()
	a.dataset = ds
	a.labels = make([]*Label, len(ds.Entries))
	pts := make([]overlay.Point, len(ds.Entries))
	for i, e := range ds.Entries {
		a.labels[i] = NewLabel(e)
		pts[i] = overlay.Point{World: e.Position, Element: a.labels[i]}
	}
	a.overlay.SetPoints(pts)
	a.selected = -1
	a.log.Info().Str("lang", ds.Lang).Int("points", len(pts)).Msg("points of interest loaded")
	a.bus.Publish(events.Event{Type: events.OverlayReloaded, Index: len(pts)})
	return nil
}

// Select focuses the camera on point i.
func (a *App) Select(i int) error {
	if a.mode != orbit.ModeDetail {
		return errors.New("viewer: select outside detail mode")
	}
	pts := a.overlay.Points()
	if i < 0 || i >= len(pts) {
		return fmt.Errorf("viewer: point %d out of range [0, %d)", i, len(pts))
	}
	p := pts[i].World
	a.orbit.ApplyProfile(a.cfg.Profiles.Select(a.portrait, orbit.ModeDetail))
	a.orbit.FocusOn(p)
	a.orbit.LookAtSmoothly(p)
	a.input.Reset()
	a.selected = i
	a.bus.Publish(events.Event{Type: events.OverlaySelected, Index: i, Position: p})
	return nil
}

// PickAt selects the label under window pixel (x, y), if any.
func (a *App) PickAt(x, y float64) bool {
	i := a.overlay.Pick(x, y)
	if i < 0 {
		return false
	}
	return a.Select(i) == nil
}

// ExitDetail clears the points and returns the camera to the home target.
func (a *App) ExitDetail() {
	a.overlay.Clear()
	a.labels = nil
	a.dataset = nil
	a.selected = -1
	a.mode = orbit.ModeNormal
	home := a.cfg.Orbit.Home()
	a.orbit.ApplyProfile(a.cfg.Profiles.Select(a.portrait, a.mode))
	a.orbit.FocusOn(home)
	a.orbit.LookAtSmoothly(home)
}

func (a *App) onHit(e events.Event) {
	a.hitPos, a.hitRot, a.hasHit = e.Position, e.Rotation, true
	a.reticle.SetPosition(e.Position)
	a.reticle.SetRotation(e.Rotation)
	a.reticle.Enabled = true
}

// Place moves the model onto the most recent surface hit.
func (a *App) Place() error {
	if !a.hasHit {
		return ErrNoHit
	}
	a.model.SetPosition(a.hitPos)
	a.model.SetRotation(a.hitRot)
	a.model.Enabled = true
	a.log.Info().Floats64("position", a.hitPos[:]).Msg("model placed")
	return nil
}

// Close releases the watcher and detaches every subscriber.
func (a *App) Close() error {
	for _, off := range a.unsubscribe {
		off()
	}
	a.unsubscribe = nil
	a.coord.Close()
	if a.watcher != nil {
		return a.watcher.Close()
	}
	return nil
}
