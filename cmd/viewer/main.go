// Command viewer shows a point-cloud product model with an orbit camera,
// points of interest and an optional AR session, or exports a turntable.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"splatviewer/internal/config"
	"splatviewer/internal/logging"
	"splatviewer/internal/scene"
)

var version = "dev"

// rootFlags are shared by every subcommand.
type rootFlags struct {
	configFile string
	logLevel   string
	model      string
	lang       string
}

func main() {
	var rf rootFlags
	root := &cobra.Command{
		Use:           "viewer",
		Short:         "Interactive 3D/AR product viewer",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&rf.configFile, "config", "", "path to a YAML, JSON or TOML config file")
	root.PersistentFlags().StringVar(&rf.logLevel, "log-level", "", "debug, info, warn or error")
	root.PersistentFlags().StringVar(&rf.model, "model", "", "glTF/GLB model to show")
	root.PersistentFlags().StringVar(&rf.lang, "lang", "", "points-of-interest language")

	root.AddCommand(newRunCmd(&rf), newTurntableCmd(&rf))

	if err := root.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// setup loads and validates configuration and opens the logger.
func setup(rf *rootFlags, extra config.Flags) (config.Config, *logging.Logger, error) {
	cfg, err := config.Load(rf.configFile)
	if err != nil {
		return config.Config{}, nil, err
	}
	extra.Model = rf.model
	extra.Lang = rf.lang
	extra.LogLevel = rf.logLevel
	cfg.Resolve(extra)
	if err := cfg.Validate(); err != nil {
		return config.Config{}, nil, fmt.Errorf("invalid config: %w", err)
	}
	logger, err := logging.New(cfg.Log)
	if err != nil {
		return config.Config{}, nil, err
	}
	return cfg, logger, nil
}

// loadOptional loads path when set.
func loadOptional(path string, maxPoints int) (*scene.Entity, error) {
	if path == "" {
		return nil, nil
	}
	return scene.LoadGLTF(path, maxPoints)
}
