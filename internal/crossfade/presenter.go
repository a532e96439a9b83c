// Package crossfade hands visual prominence from one splat representation of
// the subject to the next by animating their material parameters.
package crossfade

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"

	"splatviewer/internal/scene"
)

// Material parameter names.
const (
	ParamTime        = "time"
	ParamMode        = "mode"
	ParamWVPInv      = "wvpInv"
	ParamScaleFactor = "scaleFactor"
)

// Modes written to ParamMode.
const (
	ModeReveal = 0
	ModeFade   = 1
)

// Config holds the timing constants in seconds.
type Config struct {
	RevealRate   float64 `mapstructure:"reveal_rate"`
	RevealOffset float64 `mapstructure:"reveal_offset"`
	FadeRate     float64 `mapstructure:"fade_rate"`
	HideAfter    float64 `mapstructure:"hide_after"`
	GateAt       float64 `mapstructure:"gate_at"`
	ScaleFactor  float64 `mapstructure:"scale_factor"`
}

func DefaultConfig() Config {
	return Config{
		RevealRate:   0.75,
		RevealOffset: 0.5,
		FadeRate:     1,
		HideAfter:    1,
		GateAt:       5,
		ScaleFactor:  1,
	}
}

// Reveal is the current subject's time parameter at elapsed.
func (c Config) Reveal(elapsed float64) float64 {
	return math.Max(0, elapsed*c.RevealRate-c.RevealOffset)
}

// Fade is the previous subject's time parameter at elapsed.
func (c Config) Fade(elapsed float64) float64 {
	return math.Min(1, elapsed*c.FadeRate)
}

// Presenter animates a current/previous pair. It does not own the entities.
type Presenter struct {
	cfg       Config
	current   *scene.Entity
	previous  *scene.Entity
	dependent *scene.Entity
	onGate    func()

	elapsed   float64
	gateFired bool
}

func New(cfg Config) *Presenter {
	return &Presenter{cfg: cfg}
}

// SetDependent sets the entity enabled when the gate fires.
func (p *Presenter) SetDependent(e *scene.Entity) { p.dependent = e }

// OnGate registers a callback run once per subject pair when the gate fires.
func (p *Presenter) OnGate(f func()) { p.onGate = f }

// SetSubjects starts a new handoff. previous may be nil.
func (p *Presenter) SetSubjects(current, previous *scene.Entity) {
	p.current = current
	p.previous = previous
	p.elapsed = 0
	p.gateFired = false
}

func (p *Presenter) Elapsed() float64        { return p.elapsed }
func (p *Presenter) GateFired() bool         { return p.gateFired }
func (p *Presenter) Current() *scene.Entity  { return p.current }
func (p *Presenter) Previous() *scene.Entity { return p.previous }

// Update advances the clock by dt and writes both subjects' parameters.
// cam may be nil, in which case wvpInv is not written.
func (p *Presenter) Update(dt float64, cam *scene.Camera) {
	p.elapsed += dt

	var vp mgl64.Mat4
	haveVP := cam != nil
	if haveVP {
		vp = cam.ViewProjection()
	}

	if p.current != nil {
		p.write(p.current, p.cfg.Reveal(p.elapsed), ModeReveal, vp, haveVP)
	}
	if p.previous != nil {
		p.write(p.previous, p.cfg.Fade(p.elapsed), ModeFade, vp, haveVP)
		if p.elapsed > p.cfg.HideAfter {
			p.previous.Enabled = false
		}
	}

	if !p.gateFired && p.elapsed >= p.cfg.GateAt {
		p.gateFired = true
		if p.dependent != nil {
			p.dependent.Enabled = true
		}
		if p.onGate != nil {
			p.onGate()
		}
	}
}

func (p *Presenter) write(e *scene.Entity, t float64, mode int, vp mgl64.Mat4, haveVP bool) {
	m := e.Material
	if m == nil {
		return
	}
	m.SetParameter(ParamTime, t)
	m.SetParameter(ParamMode, mode)
	m.SetParameter(ParamScaleFactor, p.cfg.ScaleFactor)
	if haveVP {
		m.SetParameter(ParamWVPInv, vp.Mul4(e.WorldTransform()).Inv())
	}
}
