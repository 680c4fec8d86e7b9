package main

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/gofrs/flock"
	"github.com/spf13/cobra"

	"github.com/bdougie/clipindex/internal/config"
	"github.com/bdougie/clipindex/internal/encoder"
	"github.com/bdougie/clipindex/internal/fileutil"
	"github.com/bdougie/clipindex/internal/ingest"
	"github.com/bdougie/clipindex/internal/preflight"
	"github.com/bdougie/clipindex/internal/storage"
)

func newIngestCommand(app *appContext) *cobra.Command {
	var (
		assetsDir string
		outputDir string
		model     string
		workers   int
	)

	cmd := &cobra.Command{
		Use:   "ingest",
		Short: "Scan the assets directory and build the clip index",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := *app.cfg
			if assetsDir != "" {
				cfg.Paths.AssetsDir = assetsDir
			}
			if outputDir != "" {
				cfg.Paths.OutputDir = outputDir
			}
			if model != "" {
				cfg.Encoder.Model = model
			}
			if workers > 0 {
				cfg.Ingest.Workers = workers
			}
			return runIngest(cmd.Context(), app, &cfg)
		},
	}

	cmd.Flags().StringVar(&assetsDir, "assets", "", "override paths.assets_dir")
	cmd.Flags().StringVar(&outputDir, "output", "", "override paths.output_dir")
	cmd.Flags().StringVar(&model, "model", "", "override encoder.model")
	cmd.Flags().IntVar(&workers, "workers", 0, "override ingest.workers")
	return cmd
}

func runIngest(ctx context.Context, app *appContext, cfg *config.Config) error {
	enc := buildEncoder(cfg)

	results := []preflight.Result{
		preflight.CheckAssetsDir(cfg.Paths.AssetsDir),
		preflight.CheckOutputDir(cfg.Paths.OutputDir),
		preflight.CheckBinary("ffprobe", ""),
		preflight.CheckBinary("ffmpeg", ""),
	}
	if pinger, ok := enc.(preflight.Pinger); ok {
		results = append(results, preflight.CheckEncoder(ctx, pinger))
	}
	for _, r := range results {
		app.logger.Debug("preflight", "check", r.Name, "passed", r.Passed, "detail", r.Detail)
	}
	if err := preflight.Error(results); err != nil {
		return err
	}

	// One ingestion run per output directory at a time; a second run
	// blocks here instead of interleaving writes.
	lock := flock.New(filepath.Join(cfg.Paths.OutputDir, ".ingest.lock"))
	locked, err := lock.TryLock()
	if err != nil {
		return fmt.Errorf("lock output dir: %w", err)
	}
	if !locked {
		return fmt.Errorf("another ingestion run owns %s", cfg.Paths.OutputDir)
	}
	defer lock.Unlock()

	sink, err := buildSink(ctx, cfg, enc)
	if err != nil {
		return err
	}
	defer sink.Close()

	pipeline := ingest.New(ingest.Options{
		AssetsDir:     cfg.Paths.AssetsDir,
		KeyframeCount: cfg.Keyframes.Count,
		MinDuration:   cfg.Keyframes.MinDuration,
		Workers:       cfg.Ingest.Workers,
	}, enc, sink, app.logger)

	summary, err := pipeline.Run(ctx)
	if err != nil {
		return err
	}

	if len(summary.Skips) > 0 {
		app.logger.Warn("run finished with skipped clips", "ingested", summary.Ingested, "skipped", len(summary.Skips))
		for _, skip := range summary.Skips {
			app.logger.Warn("skipped", "path", skip.Path, "reason", skip.Reason)
		}
	} else {
		app.logger.Info("run finished", "ingested", summary.Ingested)
	}
	return nil
}

func buildSink(ctx context.Context, cfg *config.Config, enc encoder.Encoder) (storage.Sink, error) {
	switch cfg.Store.Backend {
	case "postgres":
		return storage.NewPostgresSink(ctx, cfg.Store.PostgresDSN, enc.Model(), enc.Dimensions())
	default:
		if err := fileutil.EnsureDir(cfg.Paths.OutputDir); err != nil {
			return nil, err
		}
		return storage.NewFilesSink(cfg.Paths.OutputDir, enc.Model(), enc.Dimensions()), nil
	}
}
