package batch

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/HugoSmits86/nativewebp"
	"github.com/rs/zerolog"

	"splatviewer/internal/metrics"
	"splatviewer/internal/orbit"
	"splatviewer/internal/overlay"
	"splatviewer/internal/postprocess"
	"splatviewer/internal/raster"
	"splatviewer/internal/scene"
	"splatviewer/internal/texture"
)

// Config holds all shared settings for a turntable run.
type Config struct {
	OutputDir   string
	Frames      int
	Width       int
	Height      int
	Supersample int
	Workers     int
	FOV         float64
	PointSize   float64
	IconSize    float64
	Background  [4]uint8
	Despeckle   float64 // minimum cluster ratio; 0 disables
	Light       raster.LightConfig
}

// Scene is the read-only content shared by all workers.
type Scene struct {
	Root  *scene.Entity
	POIs  []overlay.Entry
	Icons texture.Resolver
}

// Frame is one planned camera pose.
type Frame struct {
	Index    int
	Yaw      float64
	Pitch    float64
	Distance float64
	Camera   *scene.Camera
}

// Result holds the outcome of rendering one frame.
type Result struct {
	Frame   int
	Success bool
	Visible []string
	Error   string
}

// Plan steps a copy of ctrl through a full revolution, one settled pose
// per frame, starting at its current yaw. The live controller is untouched.
func Plan(ctrl *orbit.Controller, cfg Config) []Frame {
	n := cfg.Frames
	if n <= 0 {
		return nil
	}
	c := ctrl.Clone()
	c.Settle()
	start := c.State().Yaw
	aspect := float64(cfg.Width) / float64(cfg.Height)

	frames := make([]Frame, n)
	for i := range frames {
		c.SetYaw(start - float64(i)*360/float64(n))
		st := c.State()

		e := scene.NewEntity(fmt.Sprintf("turntable-%03d", i))
		cam := scene.AttachCamera(e, cfg.FOV)
		cam.Aspect = aspect
		c.Apply(e)

		frames[i] = Frame{Index: i, Yaw: st.Yaw, Pitch: st.Pitch, Distance: st.Distance, Camera: cam}
	}
	return frames
}

// Run renders all frames using a worker pool.
func Run(cfg Config, sc Scene, frames []Frame, log zerolog.Logger) []Result {
	total := len(frames)
	results := make([]Result, total)
	var processed atomic.Int64

	workers := cfg.Workers
	if workers < 1 {
		workers = 1
	}
	start := time.Now()

	// Progress reporter
	done := make(chan struct{})
	go func() {
		ticker := time.NewTicker(2 * time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-done:
				return
			case <-ticker.C:
				p := processed.Load()
				if p > 0 {
					rate := float64(p) / time.Since(start).Seconds()
					log.Info().Int64("done", p).Int("total", total).Float64("fps", rate).Msg("turntable progress")
				}
			}
		}
	}()

	frameChan := make(chan int, workers*2)
	var wg sync.WaitGroup

	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for idx := range frameChan {
				t0 := time.Now()
				r := processFrame(cfg, sc, frames[idx])
				metrics.TurntableFrameDuration.Observe(time.Since(t0).Seconds())
				status := "ok"
				if !r.Success {
					status = "failed"
				}
				metrics.TurntableFrames.WithLabelValues(status).Inc()
				results[idx] = r
				processed.Add(1)
			}
		}()
	}

	for i := range frames {
		frameChan <- i
	}
	close(frameChan)

	wg.Wait()
	close(done)

	return results
}

// iconLabel records where the synchronizer put a POI.
type iconLabel struct {
	size      float64
	visible   bool
	left, top float64
}

func (l *iconLabel) SetVisible(v bool)       { l.visible = v }
func (l *iconLabel) Place(left, top float64) { l.left, l.top = left, top }
func (l *iconLabel) Size() (w, h float64)    { return l.size, l.size }

func processFrame(cfg Config, sc Scene, f Frame) Result {
	ss := cfg.Supersample
	if ss < 1 {
		ss = 1
	}
	img := raster.RenderScene(sc.Root, f.Camera, raster.Options{
		Width:       cfg.Width,
		Height:      cfg.Height,
		Supersample: ss,
		PointSize:   cfg.PointSize,
		Background:  cfg.Background,
		Light:       cfg.Light,
	})

	visible := drawIcons(img.Bounds().Dx(), img.Bounds().Dy(), float64(ss), cfg, sc, f, img.Pix)

	if ss > 1 {
		img = postprocess.Downsample(img, cfg.Width, cfg.Height)
	}
	if cfg.Despeckle > 0 && cfg.Background[3] == 0 {
		img = postprocess.RemoveSmallClusters(img, cfg.Despeckle, 8)
	}

	outPath := filepath.Join(cfg.OutputDir, frameName(f.Index))
	if err := os.MkdirAll(filepath.Dir(outPath), 0755); err != nil {
		return Result{Frame: f.Index, Error: err.Error()}
	}

	out, err := os.Create(outPath)
	if err != nil {
		return Result{Frame: f.Index, Error: err.Error()}
	}
	defer out.Close()

	if err := nativewebp.Encode(out, img, nil); err != nil {
		return Result{Frame: f.Index, Error: fmt.Sprintf("WebP encode: %v", err)}
	}

	return Result{Frame: f.Index, Success: true, Visible: visible}
}

// drawIcons projects the POIs for this frame and blits their icons into
// pix, which must be a w×h NRGBA buffer. It returns the visible titles.
func drawIcons(w, h int, scale float64, cfg Config, sc Scene, f Frame, pix []uint8) []string {
	if len(sc.POIs) == 0 {
		return nil
	}
	labels := make([]*iconLabel, len(sc.POIs))
	pts := make([]overlay.Point, len(sc.POIs))
	for i, e := range sc.POIs {
		labels[i] = &iconLabel{size: cfg.IconSize * scale}
		pts[i] = overlay.Point{World: e.Position, Element: labels[i]}
	}
	syncer := overlay.NewSynchronizer()
	syncer.SetPoints(pts)
	syncer.Sync(f.Camera, overlay.Rect{W: float64(w), H: float64(h)})

	fb := &raster.FrameBuffer{Width: w, Height: h, Color: pix}
	var visible []string
	for i, l := range labels {
		if !l.visible {
			continue
		}
		visible = append(visible, sc.POIs[i].Title)
		if sc.Icons != nil {
			raster.BlitIcon(fb, sc.Icons.Resolve(sc.POIs[i].Icon), l.left, l.top, l.size, l.size)
		}
	}
	return visible
}
