package raster

import (
	"image"
	"image/color"
	"math"
	"testing"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"splatviewer/internal/crossfade"
	"splatviewer/internal/scene"
)

func TestFrameBufferInit(t *testing.T) {
	fb := NewFrameBuffer(3, 2)
	assert.Len(t, fb.Color, 24)
	for _, z := range fb.ZBuf {
		assert.True(t, math.IsInf(z, -1))
	}
	fb.Fill(1, 2, 3, 4)
	assert.Equal(t, color.NRGBA{1, 2, 3, 4}, fb.Image().NRGBAAt(2, 1))
}

func TestSplatDepthTest(t *testing.T) {
	lc := DefaultLightConfig()
	fb := NewFrameBuffer(9, 9)

	near := Splat{X: 4.5, Y: 4.5, Z: 1, Radius: 3, R: 255, Alpha: 1, Shade: 1}
	far := Splat{X: 4.5, Y: 4.5, Z: 0.1, Radius: 3, B: 255, Alpha: 1, Shade: 1}
	RasterizeSplat(fb, near, &lc)
	RasterizeSplat(fb, far, &lc)

	c := fb.Image().NRGBAAt(4, 4)
	assert.Greater(t, c.R, uint8(200))
	assert.Zero(t, c.B, "farther splat is rejected at the covered center")
	assert.Equal(t, 1.0, fb.ZBuf[4*9+4])
	assert.Zero(t, fb.Image().NRGBAAt(0, 0).A, "outside the disc stays empty")
}

func TestSplatClipsToBuffer(t *testing.T) {
	lc := DefaultLightConfig()
	fb := NewFrameBuffer(4, 4)
	assert.NotPanics(t, func() {
		RasterizeSplat(fb, Splat{X: -1, Y: 2, Z: 1, Radius: 3, G: 255, Alpha: 1, Shade: 1}, &lc)
		RasterizeSplat(fb, Splat{X: 100, Y: 100, Z: 1, Radius: 3, Alpha: 1, Shade: 1}, &lc)
	})
	assert.NotZero(t, fb.Image().NRGBAAt(0, 2).A)
}

func TestBlitIcon(t *testing.T) {
	icon := image.NewNRGBA(image.Rect(0, 0, 2, 2))
	for i := 0; i < 4; i++ {
		icon.SetNRGBA(i%2, i/2, color.NRGBA{R: 255, A: 255})
	}
	fb := NewFrameBuffer(10, 10)
	BlitIcon(fb, icon, 2, 2, 4, 4)

	img := fb.Image()
	assert.Equal(t, color.NRGBA{R: 255, A: 255}, img.NRGBAAt(3, 3))
	assert.Zero(t, img.NRGBAAt(1, 1).A)
	assert.Zero(t, img.NRGBAAt(7, 7).A)

	assert.NotPanics(t, func() { BlitIcon(fb, nil, 0, 0, 4, 4) })
}

func TestSubjectOpacity(t *testing.T) {
	assert.Equal(t, 1.0, SubjectOpacity(nil))
	m := scene.NewMaterial()
	assert.Equal(t, 1.0, SubjectOpacity(m))

	m.SetParameter(crossfade.ParamMode, crossfade.ModeReveal)
	m.SetParameter(crossfade.ParamTime, 0.25)
	assert.Equal(t, 0.25, SubjectOpacity(m))

	m.SetParameter(crossfade.ParamMode, crossfade.ModeFade)
	m.SetParameter(crossfade.ParamTime, 1.0)
	assert.Equal(t, 0.0, SubjectOpacity(m))
}

func TestRenderScene(t *testing.T) {
	root := scene.NewEntity("root")
	cloud := scene.NewEntity("cloud")
	cloud.Points = []mgl64.Vec3{{0, 0, 0}}
	cloud.Material = scene.NewMaterial()
	cloud.Material.SetParameter(ParamColor, mgl64.Vec3{1, 0, 0})
	root.AddChild(cloud)

	hidden := scene.NewEntity("hidden")
	hidden.Points = []mgl64.Vec3{{0.5, 0, 0}}
	hidden.Enabled = false
	root.AddChild(hidden)

	camEnt := scene.NewEntity("cam")
	cam := scene.AttachCamera(camEnt, 60)
	camEnt.SetPosition(mgl64.Vec3{0, 0, 5})

	img := RenderScene(root, cam, Options{
		Width: 32, Height: 32, Supersample: 2, PointSize: 0.2,
		Light: DefaultLightConfig(),
	})
	require.Equal(t, image.Rect(0, 0, 64, 64), img.Bounds())

	center := img.NRGBAAt(32, 32)
	assert.Greater(t, center.R, uint8(100))
	assert.Zero(t, center.G)
	assert.Zero(t, img.NRGBAAt(0, 0).A)
}

func TestRenderSceneNilCamera(t *testing.T) {
	img := RenderScene(scene.NewEntity("root"), nil, Options{Width: 4, Height: 4, Background: [4]uint8{9, 9, 9, 255}})
	assert.Equal(t, color.NRGBA{9, 9, 9, 255}, img.NRGBAAt(0, 0))
}

func TestSampleIconClampsEdges(t *testing.T) {
	icon := image.NewNRGBA(image.Rect(0, 0, 2, 1))
	icon.SetNRGBA(0, 0, color.NRGBA{R: 255, A: 255})
	icon.SetNRGBA(1, 0, color.NRGBA{B: 255, A: 255})

	assert.Equal(t, color.NRGBA{R: 255, A: 255}, sampleIcon(icon, 0.01, 0.5))
	assert.Equal(t, color.NRGBA{B: 255, A: 255}, sampleIcon(icon, 0.99, 0.5))
	mid := sampleIcon(icon, 0.5, 0.5)
	assert.Equal(t, uint8(128), mid.R)
	assert.Equal(t, uint8(128), mid.B)
}
