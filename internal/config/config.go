// Package config loads viewer settings: built-in defaults, then an optional
// YAML/JSON/TOML file, then SPLATVIEW_* environment variables, then flags.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"runtime"
	"strings"

	"github.com/spf13/viper"

	"splatviewer/internal/crossfade"
	"splatviewer/internal/logging"
	"splatviewer/internal/orbit"
)

// EnvPrefix is prepended to environment overrides, e.g.
// SPLATVIEW_ORBIT_LERP_FACTOR.
const EnvPrefix = "SPLATVIEW"

// Config holds every section.
type Config struct {
	Orbit     orbit.Config     `mapstructure:"orbit"`
	Profiles  orbit.Profiles   `mapstructure:"profiles"`
	AR        ARConfig         `mapstructure:"ar"`
	Overlay   OverlayConfig    `mapstructure:"overlay"`
	Crossfade crossfade.Config `mapstructure:"crossfade"`
	Scene     SceneConfig      `mapstructure:"scene"`
	Turntable TurntableConfig  `mapstructure:"turntable"`
	Window    WindowConfig     `mapstructure:"window"`
	Log       logging.Config   `mapstructure:"log"`

	// BaseDir anchors relative paths; it is the config file's directory or
	// the working directory.
	BaseDir string `mapstructure:"-"`
}

type ARConfig struct {
	Space           string `mapstructure:"space"` // viewer, local, local-floor
	HitTest         bool   `mapstructure:"hit_test"`
	LightEstimation bool   `mapstructure:"light_estimation"`
	Listen          string `mapstructure:"listen"` // bridge address; empty disables AR
	Path            string `mapstructure:"path"`
}

type OverlayConfig struct {
	DataDir string `mapstructure:"data_dir"`
	IconDir string `mapstructure:"icon_dir"`
	Lang    string `mapstructure:"lang"`
	Watch   bool   `mapstructure:"watch"`
}

type SceneConfig struct {
	Model     string    `mapstructure:"model"`
	Previous  string    `mapstructure:"previous"`  // optional model faded out on start
	Dependent string    `mapstructure:"dependent"` // optional model shown after the crossfade
	Reticle   float64   `mapstructure:"reticle"`   // reticle radius in world units
	MaxPoints int       `mapstructure:"max_points"`
	FOV       float64   `mapstructure:"fov"`
	PointSize float64   `mapstructure:"point_size"`
	Position  []float64 `mapstructure:"position"`
}

type TurntableConfig struct {
	OutputDir   string  `mapstructure:"output_dir"`
	Frames      int     `mapstructure:"frames"`
	Width       int     `mapstructure:"width"`
	Height      int     `mapstructure:"height"`
	Supersample int     `mapstructure:"supersample"`
	Workers     int     `mapstructure:"workers"`
	IconSize    float64 `mapstructure:"icon_size"`
	Despeckle   float64 `mapstructure:"despeckle"`
	Transparent bool    `mapstructure:"transparent"`
	Elapsed     float64 `mapstructure:"elapsed"` // crossfade time the frames are rendered at
}

type WindowConfig struct {
	Title  string `mapstructure:"title"`
	Width  int    `mapstructure:"width"`
	Height int    `mapstructure:"height"`
	// RenderScale is the point-cloud resolution relative to the window;
	// the frame is stretched to fit.
	RenderScale float64 `mapstructure:"render_scale"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Orbit:    orbit.DefaultConfig(),
		Profiles: orbit.DefaultProfiles(),
		AR: ARConfig{
			Space:   "local-floor",
			HitTest: true,
			Listen:  ":8765",
			Path:    "/xr",
		},
		Overlay: OverlayConfig{
			DataDir: "assets/data",
			IconDir: "assets/icons",
			Lang:    "en",
		},
		Crossfade: crossfade.DefaultConfig(),
		Scene: SceneConfig{
			Model:     "assets/model.glb",
			Reticle:   0.15,
			MaxPoints: 20000,
			FOV:       45,
			PointSize: 0.02,
			Position:  []float64{0.215, -2, 0.246},
		},
		Turntable: TurntableConfig{
			OutputDir:   "turntable",
			Frames:      36,
			Width:       512,
			Height:      512,
			Supersample: 2,
			IconSize:    24,
			Elapsed:     5,
		},
		Window: WindowConfig{Title: "Splat Viewer", Width: 1280, Height: 720, RenderScale: 1},
		Log:    logging.DefaultConfig(),
	}
}

// Load reads path (optional) over the defaults and applies environment
// overrides.
func Load(path string) (Config, error) {
	cfg := Default()
	v := viper.New()
	setDefaults(v, "", reflect.ValueOf(cfg))

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("config: read %s: %w", path, err)
		}
		cfg.BaseDir = filepath.Dir(path)
	}

	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("config: decode: %w", err)
	}
	return cfg, nil
}

// setDefaults registers every leaf field so AutomaticEnv can override it.
func setDefaults(v *viper.Viper, prefix string, rv reflect.Value) {
	rt := rv.Type()
	for i := 0; i < rt.NumField(); i++ {
		f := rt.Field(i)
		tag := f.Tag.Get("mapstructure")
		if tag == "" || tag == "-" || !f.IsExported() {
			continue
		}
		key := tag
		if prefix != "" {
			key = prefix + "." + tag
		}
		fv := rv.Field(i)
		if fv.Kind() == reflect.Struct {
			setDefaults(v, key, fv)
			continue
		}
		v.SetDefault(key, fv.Interface())
	}
}

// Flags holds CLI flag values that override file and environment settings.
type Flags struct {
	Model     string
	OutputDir string
	Lang      string
	LogLevel  string
	Listen    string
	Frames    int
	Workers   int
}

// Resolve applies flags, fills auto-detected defaults and anchors relative
// paths at BaseDir.
func (c *Config) Resolve(flags Flags) {
	if flags.Model != "" {
		c.Scene.Model = flags.Model
	}
	if flags.OutputDir != "" {
		c.Turntable.OutputDir = flags.OutputDir
	}
	if flags.Lang != "" {
		c.Overlay.Lang = flags.Lang
	}
	if flags.LogLevel != "" {
		c.Log.Level = flags.LogLevel
	}
	if flags.Listen != "" {
		c.AR.Listen = flags.Listen
	}
	if flags.Frames > 0 {
		c.Turntable.Frames = flags.Frames
	}
	if flags.Workers > 0 {
		c.Turntable.Workers = flags.Workers
	}

	if c.BaseDir == "" {
		c.BaseDir, _ = os.Getwd()
	}
	for _, p := range []*string{
		&c.Scene.Model, &c.Scene.Previous, &c.Scene.Dependent,
		&c.Overlay.DataDir, &c.Overlay.IconDir,
		&c.Turntable.OutputDir, &c.Log.Dir,
	} {
		if *p != "" && !filepath.IsAbs(*p) {
			*p = filepath.Join(c.BaseDir, *p)
		}
	}

	if c.Turntable.Workers <= 0 {
		c.Turntable.Workers = runtime.NumCPU()
	}
	if c.Turntable.Supersample <= 0 {
		c.Turntable.Supersample = 1
	}
}

// Validate reports every inconsistent setting.
func (c *Config) Validate() error {
	var errs []error
	o := c.Orbit
	if o.LerpFactor <= 0 || o.LerpFactor > 1 {
		errs = append(errs, fmt.Errorf("orbit.lerp_factor %v outside (0, 1]", o.LerpFactor))
	}
	if o.MinPitch > o.MaxPitch {
		errs = append(errs, fmt.Errorf("orbit.min_pitch %v > max_pitch %v", o.MinPitch, o.MaxPitch))
	}
	if len(o.HomeTarget) != 3 {
		errs = append(errs, fmt.Errorf("orbit.home_target needs 3 components, got %d", len(o.HomeTarget)))
	}
	for name, p := range map[string]orbit.Profile{
		"portrait":         c.Profiles.Portrait,
		"landscape":        c.Profiles.Landscape,
		"detail_portrait":  c.Profiles.DetailPortrait,
		"detail_landscape": c.Profiles.DetailLandscape,
	} {
		if p.MinDistance > p.MaxDistance {
			errs = append(errs, fmt.Errorf("profiles.%s: min_distance %v > max_distance %v", name, p.MinDistance, p.MaxDistance))
		}
	}
	switch c.AR.Space {
	case "viewer", "local", "local-floor":
	default:
		errs = append(errs, fmt.Errorf("ar.space %q: want viewer, local or local-floor", c.AR.Space))
	}
	if c.Scene.FOV <= 0 || c.Scene.FOV >= 180 {
		errs = append(errs, fmt.Errorf("scene.fov %v outside (0, 180)", c.Scene.FOV))
	}
	if len(c.Scene.Position) != 0 && len(c.Scene.Position) != 3 {
		errs = append(errs, fmt.Errorf("scene.position needs 3 components, got %d", len(c.Scene.Position)))
	}
	if c.Window.RenderScale <= 0 || c.Window.RenderScale > 2 {
		errs = append(errs, fmt.Errorf("window.render_scale %v outside (0, 2]", c.Window.RenderScale))
	}
	if c.Turntable.Frames <= 0 || c.Turntable.Width <= 0 || c.Turntable.Height <= 0 {
		errs = append(errs, errors.New("turntable frames, width and height must be positive"))
	}
	return errors.Join(errs...)
}
