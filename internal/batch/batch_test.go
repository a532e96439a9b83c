package batch

import (
	"encoding/json"
	"image"
	"image/color"
	"os"
	"path/filepath"
	"testing"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"splatviewer/internal/orbit"
	"splatviewer/internal/overlay"
	"splatviewer/internal/raster"
	"splatviewer/internal/scene"
)

type solidIcons struct{}

func (solidIcons) Resolve(string) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, 2, 2))
	for i := 0; i < 4; i++ {
		img.SetNRGBA(i%2, i/2, color.NRGBA{G: 255, A: 255})
	}
	return img
}

func testConfig(dir string) Config {
	return Config{
		OutputDir:   dir,
		Frames:      4,
		Width:       24,
		Height:      16,
		Supersample: 2,
		Workers:     2,
		FOV:         60,
		PointSize:   0.05,
		IconSize:    4,
		Light:       raster.DefaultLightConfig(),
	}
}

func TestPlanFullRevolution(t *testing.T) {
	ctrl := orbit.NewController(orbit.DefaultConfig())
	before := ctrl.State()
	cfg := testConfig(t.TempDir())

	frames := Plan(ctrl, cfg)
	require.Len(t, frames, 4)
	assert.Equal(t, before, ctrl.State(), "live controller is untouched")

	for i, f := range frames {
		assert.Equal(t, i, f.Index)
		assert.InDelta(t, before.YawTarget-float64(i)*90, f.Yaw, 1e-9)
		assert.InDelta(t, 1.5, f.Camera.Aspect, 1e-12)
		// Every camera looks at the orbit target from the same distance.
		pos := f.Camera.Entity().Position()
		assert.InDelta(t, before.DistanceTarget, pos.Sub(before.TargetGoal).Len(), 1e-9)
	}
	assert.Nil(t, Plan(ctrl, Config{}))
}

func TestRunWritesFramesAndManifest(t *testing.T) {
	dir := t.TempDir()
	cfg := testConfig(dir)

	root := scene.NewEntity("root")
	cloud := scene.NewEntity("cloud")
	cloud.Points = []mgl64.Vec3{{0.45, 0, 0.246}, {0.45, 0.5, 0.246}}
	root.AddChild(cloud)

	ctrl := orbit.NewController(orbit.DefaultConfig())
	frames := Plan(ctrl, cfg)
	sc := Scene{
		Root:  root,
		POIs:  []overlay.Entry{{Icon: "pool.png", Title: "Pool", Position: mgl64.Vec3{0.45, 0, 0.246}}},
		Icons: solidIcons{},
	}

	results := Run(cfg, sc, frames, zerolog.Nop())
	require.Len(t, results, 4)
	for _, r := range results {
		require.True(t, r.Success, r.Error)
		assert.Equal(t, []string{"Pool"}, r.Visible)
		_, err := os.Stat(filepath.Join(dir, frameName(r.Frame)))
		require.NoError(t, err)
	}

	m := BuildManifest(cfg, "s1", frames, results)
	path := filepath.Join(dir, "manifest.json")
	require.NoError(t, WriteManifest(path, m))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	var got Manifest
	require.NoError(t, json.Unmarshal(data, &got))
	assert.Equal(t, 24, got.Width)
	require.Len(t, got.Frames, 4)
	assert.Equal(t, "frame_002.webp", got.Frames[2].Image)
}

func TestDrawIconsSkipsHiddenPoints(t *testing.T) {
	cfg := testConfig(t.TempDir())
	frames := Plan(orbit.NewController(orbit.DefaultConfig()), cfg)

	// Far behind the camera of frame 0.
	behind := frames[0].Camera.Entity().Position().Sub(frames[0].Camera.Entity().Forward().Mul(10))
	sc := Scene{POIs: []overlay.Entry{{Title: "Behind", Position: behind}}}
	pix := make([]uint8, 48*32*4)
	vis := drawIcons(48, 32, 2, cfg, sc, frames[0], pix)
	assert.Empty(t, vis)
}
