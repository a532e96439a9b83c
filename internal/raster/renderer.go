package raster

import (
	"image"
	"math"

	"github.com/go-gl/mathgl/mgl64"

	"splatviewer/internal/crossfade"
	"splatviewer/internal/mathutil"
	"splatviewer/internal/scene"
)

// ParamColor is the material parameter holding an entity's splat color as
// an mgl64.Vec3 in 0..1.
const ParamColor = "color"

// Options controls a point-cloud render.
type Options struct {
	Width       int
	Height      int
	Supersample int
	PointSize   float64 // world-space splat radius
	Background  [4]uint8
	Light       LightConfig
}

// RenderScene splats every enabled entity's points as seen from cam into
// an image Supersample times larger than Width×Height.
func RenderScene(root *scene.Entity, cam *scene.Camera, opts Options) *image.NRGBA {
	ss := opts.Supersample
	if ss < 1 {
		ss = 1
	}
	w, h := opts.Width*ss, opts.Height*ss
	fb := NewFrameBuffer(w, h)
	bg := opts.Background
	fb.Fill(bg[0], bg[1], bg[2], bg[3])
	if root == nil || cam == nil || w == 0 || h == 0 {
		return fb.Image()
	}

	vp := cam.ViewProjection()
	// Pixels per world unit at depth 1.
	focal := float64(h) / 2 / math.Tan(mathutil.Deg2Rad(cam.FOV)/2)
	lc := opts.Light

	root.Walk(func(e *scene.Entity) {
		if len(e.Points) == 0 || !e.EnabledInHierarchy() {
			return
		}
		alpha := SubjectOpacity(e.Material)
		if alpha <= 0 {
			return
		}
		r, g, b := entityColor(e.Material)
		world := e.WorldTransform()
		for _, p := range e.Points {
			wp := world.Mul4x1(p.Vec4(1)).Vec3()
			sp := scene.ProjectVP(vp, wp, float64(w), float64(h))
			depth := sp.Z()
			if depth <= cam.Near || !mathutil.IsFinite(sp.X()) || !mathutil.IsFinite(sp.Y()) {
				continue
			}
			RasterizeSplat(fb, Splat{
				X: sp.X(), Y: sp.Y(), Z: 1 / depth,
				Radius: math.Max(0.75, opts.PointSize*focal/depth),
				R:      r, G: g, B: b,
				Alpha: alpha,
				Shade: lc.DepthShade(depth),
			}, &lc)
		}
	})

	return fb.Image()
}

// SubjectOpacity converts crossfade material parameters into an opacity.
// A revealing subject becomes opaque as its time reaches 1; a fading one
// becomes transparent. Materials without crossfade parameters are opaque.
func SubjectOpacity(m *scene.Material) float64 {
	if m == nil {
		return 1
	}
	mode, ok := m.Parameter(crossfade.ParamMode)
	if !ok {
		return 1
	}
	t := mathutil.Clamp(m.Float(crossfade.ParamTime), 0, 1)
	if mode == crossfade.ModeFade {
		return 1 - t
	}
	return t
}

func entityColor(m *scene.Material) (uint8, uint8, uint8) {
	if m != nil {
		if v, ok := m.Parameter(ParamColor); ok {
			if c, ok := v.(mgl64.Vec3); ok {
				return clamp255(c.X() * 255), clamp255(c.Y() * 255), clamp255(c.Z() * 255)
			}
		}
	}
	return 200, 200, 210
}
