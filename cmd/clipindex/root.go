package main

import (
	"errors"
	"io/fs"
	"log/slog"
	"os"

	"github.com/lmittmann/tint"
	"github.com/spf13/cobra"

	"github.com/bdougie/clipindex/internal/config"
	"github.com/bdougie/clipindex/internal/encoder"
)

var version = "dev"

type appContext struct {
	cfg    *config.Config
	logger *slog.Logger
}

func newRootCommand() *cobra.Command {
	var configPath string
	app := &appContext{}

	root := &cobra.Command{
		Use:           "clipindex",
		Short:         "Build and query a similarity index over a folder of video clips",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				// Only the conventional location may be absent; an
				// explicitly passed path must exist.
				if !cmd.Flags().Changed("config") && errors.Is(err, fs.ErrNotExist) {
					def := config.Default()
					cfg = &def
				} else {
					return err
				}
			}
			app.cfg = cfg
			app.logger = newLogger(cfg.Logging.Level)
			return nil
		},
	}

	root.PersistentFlags().StringVar(&configPath, "config", config.DefaultPath(), "path to the TOML config file")

	root.AddCommand(
		newIngestCommand(app),
		newSearchCommand(app),
		newAnnotateCommand(app),
		newConfigCommand(),
	)
	return root
}

func newLogger(level string) *slog.Logger {
	lvl := slog.LevelInfo
	switch level {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	}
	return slog.New(tint.NewHandler(os.Stderr, &tint.Options{
		Level:      lvl,
		TimeFormat: "15:04:05",
	}))
}

// buildEncoder constructs the configured encoder. The returned value is
// acquired once per run and shared; model weights stay loaded in the
// daemon between calls.
func buildEncoder(cfg *config.Config) encoder.Encoder {
	if cfg.Encoder.Provider == "stub" {
		return encoder.NewStubEncoder(cfg.Encoder.Dimensions)
	}
	return encoder.NewOllamaEncoder(cfg.Encoder.BaseURL, cfg.Encoder.Model, cfg.Encoder.Dimensions)
}
