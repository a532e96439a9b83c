package main

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"splatviewer/internal/batch"
	"splatviewer/internal/config"
	"splatviewer/internal/crossfade"
	"splatviewer/internal/orbit"
	"splatviewer/internal/overlay"
	"splatviewer/internal/raster"
	"splatviewer/internal/scene"
	"splatviewer/internal/texture"
)

func newTurntableCmd(rf *rootFlags) *cobra.Command {
	var (
		flags config.Flags
		pois  bool
	)
	cmd := &cobra.Command{
		Use:   "turntable",
		Short: "Render a full revolution of the model to WebP frames",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := setup(rf, flags)
			if err != nil {
				return err
			}
			defer logger.Close()
			log := logger.Zerolog()
			tt := cfg.Turntable

			model, err := scene.LoadGLTF(cfg.Scene.Model, cfg.Scene.MaxPoints)
			if err != nil {
				return err
			}
			if len(cfg.Scene.Position) == 3 {
				model.SetLocalPosition(mgl64.Vec3{cfg.Scene.Position[0], cfg.Scene.Position[1], cfg.Scene.Position[2]})
			}
			model.Material = scene.NewMaterial()
			fade := crossfade.New(cfg.Crossfade)
			fade.SetSubjects(model, nil)
			fade.Update(tt.Elapsed, nil)

			root := scene.NewEntity("root")
			root.AddChild(model)

			ctrl := orbit.NewController(cfg.Orbit)
			ctrl.ApplyProfile(cfg.Profiles.Select(orbit.IsPortrait(tt.Width, tt.Height), orbit.ModeNormal))

			sc := batch.Scene{Root: root}
			if pois {
				ds, err := overlay.LoadDataset(cfg.Overlay.DataDir, cfg.Overlay.Lang, log)
				if err != nil {
					return err
				}
				idx := texture.BuildIndex(cfg.Overlay.IconDir)
				log.Info().Int("icons", idx.Len()).Int("points", len(ds.Entries)).Msg("points of interest loaded")
				sc.POIs = ds.Entries
				sc.Icons = texture.NewCache(idx, log)
			}

			bg := [4]uint8{16, 18, 24, 255}
			if tt.Transparent {
				bg = [4]uint8{}
			}
			bcfg := batch.Config{
				OutputDir:   tt.OutputDir,
				Frames:      tt.Frames,
				Width:       tt.Width,
				Height:      tt.Height,
				Supersample: tt.Supersample,
				Workers:     tt.Workers,
				FOV:         cfg.Scene.FOV,
				PointSize:   cfg.Scene.PointSize,
				IconSize:    tt.IconSize,
				Background:  bg,
				Despeckle:   tt.Despeckle,
				Light:       raster.DefaultLightConfig(),
			}

			session := uuid.NewString()
			frames := batch.Plan(ctrl, bcfg)
			log.Info().Str("session", session).Int("frames", len(frames)).Int("workers", tt.Workers).
				Str("output", tt.OutputDir).Msg("turntable started")

			start := time.Now()
			results := batch.Run(bcfg, sc, frames, log)

			failed := 0
			for _, r := range results {
				if !r.Success {
					failed++
					log.Warn().Int("frame", r.Frame).Str("error", r.Error).Msg("frame failed")
				}
			}
			manifest := filepath.Join(tt.OutputDir, "manifest.json")
			if err := batch.WriteManifest(manifest, batch.BuildManifest(bcfg, session, frames, results)); err != nil {
				return err
			}
			log.Debug().Str("manifest", manifest).Msg("manifest written")
			printSummary(os.Stdout, summary{
				Session:  session,
				Output:   tt.OutputDir,
				Rendered: len(results) - failed,
				Total:    len(results),
				Elapsed:  time.Since(start),
				Results:  results,
			})
			if failed > 0 {
				return fmt.Errorf("%d of %d frames failed", failed, len(results))
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&flags.OutputDir, "output", "", "output directory (overrides turntable.output_dir)")
	cmd.Flags().IntVar(&flags.Frames, "frames", 0, "frames per revolution")
	cmd.Flags().IntVar(&flags.Workers, "workers", 0, "worker goroutines (default: NumCPU)")
	cmd.Flags().BoolVar(&pois, "pois", false, "draw point-of-interest icons")
	return cmd
}
