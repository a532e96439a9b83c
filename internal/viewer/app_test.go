package viewer

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"splatviewer/internal/ar"
	"splatviewer/internal/config"
	"splatviewer/internal/crossfade"
	"splatviewer/internal/events"
	"splatviewer/internal/orbit"
	"splatviewer/internal/scene"
	"splatviewer/internal/xr"
)

var approx = cmpopts.EquateApprox(0, 1e-9)

// pollDevice replays queued runtime signals on Poll.
type pollDevice struct {
	handler xr.Handler
	queue   []func(xr.Handler)
	source  *stubSource
	starts  int
	ends    int
	active  bool
}

func (d *pollDevice) SetHandler(h xr.Handler) { d.handler = h }
func (d *pollDevice) Start(xr.Mode, xr.Space, xr.Options) {
	d.starts++
	d.queue = append(d.queue, func(h xr.Handler) {
		d.active = true
		h.XRStarted()
	})
}
func (d *pollDevice) End() {
	d.ends++
	d.queue = append(d.queue, func(h xr.Handler) {
		d.active = false
		h.XREnded()
	})
}
func (d *pollDevice) Active() bool { return d.active }
func (d *pollDevice) Capabilities() xr.Capabilities {
	return xr.Capabilities{HitTest: hitTester{d}}
}
func (d *pollDevice) Poll() {
	q := d.queue
	d.queue = nil
	for _, f := range q {
		f(d.handler)
	}
}

type hitTester struct{ d *pollDevice }

func (h hitTester) Start(_ xr.Space, cb func(xr.HitTestSource, error)) {
	h.d.source = &stubSource{}
	cb(h.d.source, nil)
}

type stubSource struct {
	result   func(mgl64.Vec3, mgl64.Quat)
	notFound func()
}

func (s *stubSource) OnResult(f func(mgl64.Vec3, mgl64.Quat)) { s.result = f }
func (s *stubSource) OnNotFound(f func())                     { s.notFound = f }
func (s *stubSource) Stop() error                             { return nil }

func testConfig(t *testing.T) config.Config {
	t.Helper()
	cfg := config.Default()
	cfg.Overlay.DataDir = t.TempDir()
	cfg.Scene.Position = nil
	return cfg
}

func newApp(t *testing.T, cfg config.Config, dev xr.Device) *App {
	t.Helper()
	now := time.Unix(0, 0)
	a, err := New(Options{
		Config: cfg,
		Device: dev,
		Model:  scene.NewEntity("model"),
		Clock:  func() time.Time { return now },
	}, zerolog.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { a.Close() })
	return a
}

func TestNewRequiresModel(t *testing.T) {
	_, err := New(Options{Config: config.Default()}, zerolog.Nop())
	assert.Error(t, err)
}

func TestUpdateOrbitDrivesCamera(t *testing.T) {
	a := newApp(t, testConfig(t), nil)
	a.Resize(800, 600)
	a.Orbit().OnPointerDrag(40, 0)
	for i := 0; i < 10; i++ {
		a.Update(1.0 / 60)
	}
	cam := a.Camera()
	require.NotNil(t, cam)
	assert.Empty(t, cmp.Diff(a.Orbit().Position(), cam.Entity().Position(), approx))
	assert.Equal(t, ar.AuthorityOrbit, a.Coordinator().Authority())
}

func TestResizeSelectsProfile(t *testing.T) {
	cfg := testConfig(t)
	a := newApp(t, cfg, nil)

	a.Resize(400, 800)
	assert.Equal(t, cfg.Profiles.Portrait.MaxDistance, a.Orbit().State().MaxDistance)
	assert.InDelta(t, 0.5, a.Camera().Aspect, 1e-9)

	a.Resize(800, 400)
	assert.Equal(t, cfg.Profiles.Landscape.MaxDistance, a.Orbit().State().MaxDistance)
}

func TestCrossfadeRunsOnUpdate(t *testing.T) {
	cfg := testConfig(t)
	prev := scene.NewEntity("previous")
	dep := scene.NewEntity("dependent")
	a, err := New(Options{Config: cfg, Model: scene.NewEntity("model"), Previous: prev, Dependent: dep}, zerolog.Nop())
	require.NoError(t, err)
	defer a.Close()

	assert.False(t, dep.Enabled)
	a.Update(2)
	assert.False(t, prev.Enabled)
	mode, ok := prev.Material.Parameter(crossfade.ParamMode)
	require.True(t, ok)
	assert.Equal(t, crossfade.ModeFade, mode)
	a.Update(3)
	assert.True(t, dep.Enabled)
	assert.True(t, a.Crossfade().GateFired())
}

func writeDataset(t *testing.T, dir, lang, body string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "dataAmenities_"+lang+".csv"), []byte(body), 0o644))
}

func TestDetailModeLifecycle(t *testing.T) {
	cfg := testConfig(t)
	cfg.Overlay.Lang = "de-DE"
	writeDataset(t, cfg.Overlay.DataDir, "en", "pool.png;Pool;0.45;0;0.246\nbehind.png;Behind;0;0;500\n")
	a := newApp(t, cfg, nil)
	a.Resize(800, 600)

	var reloaded, selected []events.Event
	a.Bus().Subscribe(events.OverlayReloaded, func(e events.Event) { reloaded = append(reloaded, e) })
	a.Bus().Subscribe(events.OverlaySelected, func(e events.Event) { selected = append(selected, e) })

	require.NoError(t, a.EnterDetail())
	assert.Equal(t, orbit.ModeDetail, a.Mode())
	require.Len(t, a.Labels(), 2)
	require.Len(t, reloaded, 1)
	assert.Equal(t, 2, reloaded[0].Index)

	a.Update(1.0 / 60)
	pool := a.Labels()[0]
	require.True(t, pool.Visible)
	assert.InDelta(t, 400, pool.Left+pool.w/2, 1)
	assert.InDelta(t, 300, pool.Top+pool.h/2, 1)

	assert.False(t, a.PickAt(1, 1))
	cx, cy := pool.Center()
	require.True(t, a.PickAt(cx, cy))
	assert.Equal(t, 0, a.Selected())
	require.Len(t, selected, 1)
	assert.Equal(t, cfg.Profiles.DetailLandscape.MaxDistance, a.Orbit().State().MaxDistance)
	assert.Empty(t, cmp.Diff(mgl64.Vec3{0.45, 0, 0.246}, a.Orbit().State().TargetGoal, approx))

	a.ExitDetail()
	assert.Equal(t, orbit.ModeNormal, a.Mode())
	assert.Empty(t, a.Labels())
	assert.False(t, pool.Visible)
	assert.Equal(t, -1, a.Selected())
	assert.Equal(t, cfg.Profiles.Landscape.MaxDistance, a.Orbit().State().MaxDistance)
	assert.Empty(t, cmp.Diff(cfg.Orbit.Home(), a.Orbit().State().TargetGoal, approx))
}

func TestSelectValidation(t *testing.T) {
	cfg := testConfig(t)
	writeDataset(t, cfg.Overlay.DataDir, "en", "a.png;A;0;0;0\n")
	a := newApp(t, cfg, nil)

	assert.Error(t, a.Select(0), "normal mode")
	require.NoError(t, a.EnterDetail())
	assert.Error(t, a.Select(1))
	assert.NoError(t, a.Select(0))
}

func TestEnterDetailWithoutDataset(t *testing.T) {
	a := newApp(t, testConfig(t), nil)
	assert.Error(t, a.EnterDetail())
	assert.Empty(t, a.Labels())
}

func TestARSessionTakesCameraAuthority(t *testing.T) {
	dev := &pollDevice{}
	a := newApp(t, testConfig(t), dev)
	a.Resize(800, 600)
	a.Update(1.0 / 60)
	before := a.Orbit().Position()

	a.ToggleAR()
	assert.Equal(t, 1, dev.starts)
	assert.Equal(t, ar.StateStarting, a.Coordinator().State())

	a.Update(1.0 / 60)
	assert.Equal(t, ar.StateActive, a.Coordinator().State())
	assert.Equal(t, ar.AuthorityARPose, a.Coordinator().Authority())
	assert.Empty(t, cmp.Diff(before, a.Coordinator().DefaultCamera().Position(), approx))

	rot := mgl64.QuatRotate(mgl64.DegToRad(30), mgl64.Vec3{0, 1, 0})
	dev.source.result(mgl64.Vec3{1, 0, -2}, rot)
	assert.True(t, a.Reticle().Enabled)
	assert.Empty(t, cmp.Diff(mgl64.Vec3{1, 0, -2}, a.Reticle().Position(), approx))

	require.NoError(t, a.Place())
	assert.Empty(t, cmp.Diff(mgl64.Vec3{1, 0, -2}, a.Model().Position(), approx))

	dev.source.notFound()
	assert.False(t, a.Reticle().Enabled)

	a.ToggleAR()
	a.Update(1.0 / 60)
	assert.Equal(t, 1, dev.ends)
	assert.Equal(t, ar.StateInactive, a.Coordinator().State())
	assert.Equal(t, ar.AuthorityOrbit, a.Coordinator().Authority())
	assert.True(t, a.Coordinator().DefaultCamera().Enabled)
}

func TestPlaceWithoutHit(t *testing.T) {
	a := newApp(t, testConfig(t), nil)
	assert.ErrorIs(t, a.Place(), ErrNoHit)
}

func TestWatcherReloadsOnUpdate(t *testing.T) {
	cfg := testConfig(t)
	cfg.Overlay.Watch = true
	writeDataset(t, cfg.Overlay.DataDir, "en", "a.png;A;0;0;0\n")
	a := newApp(t, cfg, nil)
	require.NoError(t, a.EnterDetail())
	require.Len(t, a.Labels(), 1)

	writeDataset(t, cfg.Overlay.DataDir, "en", "a.png;A;0;0;0\nb.png;B;1;0;0\n")
	require.Eventually(t, func() bool {
		a.Update(1.0 / 60)
		return len(a.Labels()) == 2
	}, 2*time.Second, 20*time.Millisecond)
}
