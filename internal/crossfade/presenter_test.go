package crossfade

import (
	"testing"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"splatviewer/internal/scene"
)

func subject(name string) *scene.Entity {
	e := scene.NewEntity(name)
	e.Material = scene.NewMaterial()
	return e
}

func TestRevealAndFadeCurves(t *testing.T) {
	c := DefaultConfig()
	assert.Equal(t, 0.0, c.Reveal(0.5))
	assert.InDelta(t, 0.25, c.Reveal(1), 1e-12)
	assert.InDelta(t, 0.5, c.Fade(0.5), 1e-12)
	assert.Equal(t, 1.0, c.Fade(1.2))
}

func TestUpdateWritesParameters(t *testing.T) {
	cur, prev := subject("current"), subject("previous")
	p := New(DefaultConfig())
	p.SetSubjects(cur, prev)

	p.Update(0.5, nil)
	assert.Equal(t, 0.0, cur.Material.Float(ParamTime))
	assert.Equal(t, 0.5, prev.Material.Float(ParamTime))
	mode, _ := cur.Material.Parameter(ParamMode)
	assert.Equal(t, ModeReveal, mode)
	mode, _ = prev.Material.Parameter(ParamMode)
	assert.Equal(t, ModeFade, mode)
	assert.True(t, prev.Enabled)

	p.Update(0.7, nil)
	assert.InDelta(t, 1.2, p.Elapsed(), 1e-12)
	assert.Equal(t, 1.0, prev.Material.Float(ParamTime))
	assert.False(t, prev.Enabled)
	assert.Equal(t, 1.0, cur.Material.Float(ParamScaleFactor))
}

func TestParametersAreMonotonic(t *testing.T) {
	cur, prev := subject("current"), subject("previous")
	p := New(DefaultConfig())
	p.SetSubjects(cur, prev)

	lastReveal, lastFade := -1.0, -1.0
	for i := 0; i < 400; i++ {
		p.Update(1.0/60, nil)
		r, f := cur.Material.Float(ParamTime), prev.Material.Float(ParamTime)
		require.GreaterOrEqual(t, r, lastReveal)
		require.GreaterOrEqual(t, f, lastFade)
		require.GreaterOrEqual(t, r, 0.0)
		require.LessOrEqual(t, f, 1.0)
		lastReveal, lastFade = r, f
	}
}

func TestGateFiresOnce(t *testing.T) {
	glass := scene.NewEntity("glass")
	glass.Enabled = false
	p := New(DefaultConfig())
	p.SetDependent(glass)
	fired := 0
	p.OnGate(func() { fired++ })
	p.SetSubjects(subject("current"), nil)

	p.Update(4.9, nil)
	assert.False(t, glass.Enabled)
	assert.False(t, p.GateFired())

	p.Update(0.1, nil)
	assert.True(t, glass.Enabled)
	p.Update(1, nil)
	p.Update(1, nil)
	assert.Equal(t, 1, fired)

	// A new pair re-arms the gate.
	p.SetSubjects(subject("next"), nil)
	assert.Zero(t, p.Elapsed())
	assert.False(t, p.GateFired())
	p.Update(5, nil)
	assert.Equal(t, 2, fired)
}

func TestWVPInverse(t *testing.T) {
	camEnt := scene.NewEntity("cam")
	cam := scene.AttachCamera(camEnt, 60)
	camEnt.SetPosition(mgl64.Vec3{0, 0, 5})

	cur := subject("current")
	cur.SetPosition(mgl64.Vec3{1, 0, 0})
	p := New(DefaultConfig())
	p.SetSubjects(cur, nil)
	p.Update(0.1, cam)

	v, ok := cur.Material.Parameter(ParamWVPInv)
	require.True(t, ok)
	inv := v.(mgl64.Mat4)
	wvp := cam.ViewProjection().Mul4(cur.WorldTransform())
	assert.True(t, inv.Mul4(wvp).ApproxEqualThreshold(mgl64.Ident4(), 1e-9))
}

func TestMissingMaterialIsSkipped(t *testing.T) {
	cur := scene.NewEntity("bare")
	prev := scene.NewEntity("bare-prev")
	p := New(DefaultConfig())
	p.SetSubjects(cur, prev)
	assert.NotPanics(t, func() { p.Update(2, nil) })
	assert.False(t, prev.Enabled)
}
