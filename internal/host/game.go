// Package host runs the viewer in a desktop window.
package host

import (
	"fmt"
	"image/color"
	"math"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/ebitenutil"
	"github.com/hajimehoshi/ebiten/v2/inpututil"
	"github.com/hajimehoshi/ebiten/v2/vector"
	"github.com/rs/zerolog"

	"splatviewer/internal/config"
	"splatviewer/internal/logging"
	"splatviewer/internal/orbit"
	"splatviewer/internal/raster"
	"splatviewer/internal/scene"
	"splatviewer/internal/viewer"
)

// clickSlop is how far a press may travel and still count as a click.
const clickSlop = 4

const historyLines = 5

var (
	labelFill   = color.NRGBA{R: 20, G: 24, B: 32, A: 200}
	reticleLine = color.NRGBA{R: 80, G: 220, B: 120, A: 255}
)

// Game adapts a viewer.App to ebiten.
type Game struct {
	app     *viewer.App
	log     zerolog.Logger
	history *logging.History
	render  raster.Options
	reticle float64
	scale   float64

	frame  *ebiten.Image
	width  int
	height int

	touches    *orbit.TouchSnapshot
	pressed    bool
	pressX     int
	pressY     int
	lastX      int
	lastY      int
	travelled  float64
	showStatus bool
}

// NewGame wraps app. history may be nil.
func NewGame(app *viewer.App, cfg config.Config, history *logging.History, log zerolog.Logger) *Game {
	return &Game{
		app:     app,
		log:     log.With().Str("component", "host").Logger(),
		history: history,
		render: raster.Options{
			Supersample: 1,
			PointSize:   cfg.Scene.PointSize,
			Background:  [4]uint8{16, 18, 24, 255},
			Light:       raster.DefaultLightConfig(),
		},
		reticle:    cfg.Scene.Reticle,
		scale:      cfg.Window.RenderScale,
		touches:    orbit.NewTouchSnapshot(app.Input()),
		showStatus: true,
	}
}

// Run opens the window and blocks until it closes.
func Run(g *Game, win config.WindowConfig) error {
	ebiten.SetWindowTitle(win.Title)
	ebiten.SetWindowSize(win.Width, win.Height)
	ebiten.SetWindowResizingMode(ebiten.WindowResizingModeEnabled)
	ebiten.SetTPS(60)
	if err := ebiten.RunGame(g); err != nil {
		return fmt.Errorf("host: %w", err)
	}
	return nil
}

func (g *Game) Update() error {
	g.pollKeys()
	g.pollMouse()
	g.pollTouches()
	g.app.Update(1 / float64(ebiten.TPS()))
	return nil
}

func (g *Game) pollKeys() {
	switch {
	case inpututil.IsKeyJustPressed(ebiten.KeyA):
		g.app.ToggleAR()
	case inpututil.IsKeyJustPressed(ebiten.KeyD):
		if g.app.Mode() == orbit.ModeDetail {
			g.app.ExitDetail()
		} else if err := g.app.EnterDetail(); err != nil {
			g.log.Warn().Err(err).Msg("points of interest unavailable")
		}
	case inpututil.IsKeyJustPressed(ebiten.KeyEscape):
		if g.app.Mode() == orbit.ModeDetail {
			g.app.ExitDetail()
		}
	case inpututil.IsKeyJustPressed(ebiten.KeyP):
		if err := g.app.Place(); err != nil {
			g.log.Info().Err(err).Msg("place")
		}
	case inpututil.IsKeyJustPressed(ebiten.KeyTab):
		g.showStatus = !g.showStatus
	}
}

func (g *Game) pollMouse() {
	in := g.app.Input()
	x, y := ebiten.CursorPosition()

	if inpututil.IsMouseButtonJustPressed(ebiten.MouseButtonLeft) {
		in.MouseDown(orbit.MouseLeft)
		g.pressed = true
		g.pressX, g.pressY = x, y
		g.travelled = 0
	} else if g.pressed && (x != g.lastX || y != g.lastY) {
		dx, dy := float64(x-g.lastX), float64(y-g.lastY)
		in.MouseMove(dx, dy)
		g.travelled += math.Hypot(dx, dy)
	}
	if g.pressed && inpututil.IsMouseButtonJustReleased(ebiten.MouseButtonLeft) {
		in.MouseUp(orbit.MouseLeft)
		g.pressed = false
		if g.travelled < clickSlop {
			g.app.PickAt(float64(g.pressX), float64(g.pressY))
		}
	}
	g.lastX, g.lastY = x, y

	if _, wy := ebiten.Wheel(); wy != 0 {
		in.Wheel(wy)
	}
}

func (g *Game) pollTouches() {
	ids := ebiten.AppendTouchIDs(nil)
	cur := make([]orbit.Touch, 0, len(ids))
	for _, id := range ids {
		x, y := ebiten.TouchPosition(id)
		cur = append(cur, orbit.Touch{ID: int(id), X: float64(x), Y: float64(y)})
	}
	g.touches.Update(cur)

	for _, id := range inpututil.AppendJustReleasedTouchIDs(nil) {
		if inpututil.TouchPressDuration(id) < 10 {
			x, y := inpututil.TouchPositionInPreviousTick(id)
			g.app.PickAt(float64(x), float64(y))
		}
	}
}

func (g *Game) Draw(screen *ebiten.Image) {
	if g.width == 0 || g.height == 0 {
		return
	}
	cam := g.app.Camera()
	rw, rh := scaled(g.width, g.scale), scaled(g.height, g.scale)
	opts := g.render
	opts.Width, opts.Height = rw, rh
	img := raster.RenderScene(g.app.Root(), cam, opts)
	if g.frame == nil || g.frame.Bounds().Dx() != rw || g.frame.Bounds().Dy() != rh {
		if g.frame != nil {
			g.frame.Deallocate()
		}
		g.frame = ebiten.NewImage(rw, rh)
	}
	g.frame.WritePixels(img.Pix)
	op := &ebiten.DrawImageOptions{}
	op.GeoM.Scale(float64(g.width)/float64(rw), float64(g.height)/float64(rh))
	op.Filter = ebiten.FilterLinear
	screen.DrawImage(g.frame, op)

	g.drawReticle(screen, cam)
	for _, l := range g.app.Labels() {
		if !l.Visible {
			continue
		}
		w, h := l.Size()
		vector.DrawFilledRect(screen, float32(l.Left), float32(l.Top), float32(w), float32(h), labelFill, false)
		ebitenutil.DebugPrintAt(screen, l.Entry.Title, int(l.Left)+4, int(l.Top)+4)
	}
	if g.showStatus {
		g.drawStatus(screen)
	}
}

func scaled(n int, s float64) int {
	if s <= 0 {
		s = 1
	}
	return max(1, int(float64(n)*s))
}

func (g *Game) drawReticle(screen *ebiten.Image, cam *scene.Camera) {
	r := g.app.Reticle()
	if cam == nil || !r.EnabledInHierarchy() {
		return
	}
	p := r.Position()
	c := cam.WorldToScreen(p, float64(g.width), float64(g.height))
	if c.Z() <= 0 {
		return
	}
	edge := cam.WorldToScreen(p.Add(r.Rotation().Rotate(mgl64.Vec3{1, 0, 0}).Mul(g.reticle)), float64(g.width), float64(g.height))
	radius := math.Max(4, math.Hypot(edge.X()-c.X(), edge.Y()-c.Y()))
	vector.StrokeCircle(screen, float32(c.X()), float32(c.Y()), float32(radius), 2, reticleLine, true)
}

func (g *Game) drawStatus(screen *ebiten.Image) {
	coord := g.app.Coordinator()
	status := fmt.Sprintf("%s | AR %s (%s) | %.0f fps\n[A] AR  [D] points  [P] place  [Tab] status",
		g.app.Mode(), coord.State(), coord.Authority(), ebiten.ActualFPS())
	ebitenutil.DebugPrintAt(screen, status, 8, 8)

	if g.history == nil {
		return
	}
	lines := g.history.Recent(historyLines)
	for i, e := range lines {
		y := g.height - (len(lines)-i)*16 - 8
		ebitenutil.DebugPrintAt(screen, fmt.Sprintf("%s %-5s %s", e.Time.Format("15:04:05"), e.Level, e.Message), 8, y)
	}
}

func (g *Game) Layout(outsideWidth, outsideHeight int) (int, int) {
	if outsideWidth != g.width || outsideHeight != g.height {
		g.width, g.height = outsideWidth, outsideHeight
		g.app.Resize(outsideWidth, outsideHeight)
	}
	return outsideWidth, outsideHeight
}
