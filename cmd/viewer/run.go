package main

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"splatviewer/internal/config"
	"splatviewer/internal/host"
	"splatviewer/internal/scene"
	"splatviewer/internal/viewer"
	"splatviewer/internal/xr"
	"splatviewer/internal/xr/wsbridge"
)

func newRunCmd(rf *rootFlags) *cobra.Command {
	var listen string
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Open the interactive viewer window",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := setup(rf, config.Flags{Listen: listen})
			if err != nil {
				return err
			}
			defer logger.Close()
			log := logger.Zerolog()

			model, err := scene.LoadGLTF(cfg.Scene.Model, cfg.Scene.MaxPoints)
			if err != nil {
				return err
			}
			previous, err := loadOptional(cfg.Scene.Previous, cfg.Scene.MaxPoints)
			if err != nil {
				return err
			}
			dependent, err := loadOptional(cfg.Scene.Dependent, cfg.Scene.MaxPoints)
			if err != nil {
				return err
			}

			var dev xr.Device
			if cfg.AR.Listen != "" {
				bridge := wsbridge.New(log)
				defer bridge.Close()
				mux := http.NewServeMux()
				mux.Handle(cfg.AR.Path, bridge)
				mux.Handle("/metrics", promhttp.Handler())
				srv := &http.Server{Addr: cfg.AR.Listen, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
				go func() {
					if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
						log.Error().Err(err).Msg("XR bridge server stopped")
					}
				}()
				defer func() {
					ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
					defer cancel()
					_ = srv.Shutdown(ctx)
				}()
				log.Info().Str("addr", cfg.AR.Listen).Str("path", cfg.AR.Path).Msg("XR bridge listening")
				dev = bridge
			}

			app, err := viewer.New(viewer.Options{
				Config:    cfg,
				Device:    dev,
				Model:     model,
				Previous:  previous,
				Dependent: dependent,
			}, log)
			if err != nil {
				return err
			}
			defer app.Close()

			return host.Run(host.NewGame(app, cfg, logger.History(), log), cfg.Window)
		},
	}
	cmd.Flags().StringVar(&listen, "listen", "", "XR bridge address (overrides ar.listen)")
	return cmd
}
