package main

import (
	"context"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/bdougie/clipindex/internal/annotate"
	"github.com/bdougie/clipindex/internal/index"
	"github.com/bdougie/clipindex/internal/media"
	"github.com/bdougie/clipindex/internal/preflight"
	"github.com/bdougie/clipindex/internal/storage"
)

func newAnnotateCommand(app *appContext) *cobra.Command {
	var outputDir string

	cmd := &cobra.Command{
		Use:   "annotate",
		Short: "Fill the library's tag and description fields with a vision model",
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := app.cfg.Paths.OutputDir
			if outputDir != "" {
				dir = outputDir
			}
			return runAnnotate(cmd.Context(), app, dir)
		},
	}

	cmd.Flags().StringVar(&outputDir, "output", "", "index directory (defaults to paths.output_dir)")
	return cmd
}

func runAnnotate(ctx context.Context, app *appContext, dir string) error {
	if err := preflight.Error([]preflight.Result{preflight.CheckBinary("ffmpeg", "")}); err != nil {
		return err
	}

	lib, closeLib, err := openAnnotateLibrary(ctx, app, dir)
	if err != nil {
		return err
	}
	closed := false
	closeOnce := func() {
		if !closed {
			closed = true
			closeLib()
		}
	}
	defer closeOnce()

	var annotator annotate.Annotator
	if app.cfg.Annotate.Provider == "stub" {
		annotator = annotate.StubAnnotator{}
	} else {
		annotator, err = annotate.NewAgentAnnotator(ctx, app.logger, app.cfg.Annotate.BaseURL, app.cfg.Annotate.ChatModel)
		if err != nil {
			return err
		}
	}

	runner := &annotate.Runner{
		Library:   lib,
		Annotator: annotator,
		Frames: func(ctx context.Context, path string, duration float64) ([]byte, error) {
			frame, err := media.ExtractKeyframe(ctx, "", path, duration/2)
			if err != nil {
				return nil, err
			}
			return frame.JPEG, nil
		},
		Logger: app.logger,
	}

	summary, err := runner.Run(ctx)
	if err != nil {
		return err
	}
	if app.cfg.Store.Backend != "postgres" {
		// The library was rewritten in place; reseal the manifest so
		// search still accepts the trio.
		closeOnce()
		if err := index.RefreshLibraryChecksum(dir); err != nil {
			return err
		}
	}
	app.logger.Info("annotation finished", "annotated", summary.Annotated, "skipped", len(summary.Skipped))
	return nil
}

// openAnnotateLibrary returns the clip table the configured backend
// holds: the on-disk SQLite library, or the Postgres table.
func openAnnotateLibrary(ctx context.Context, app *appContext, dir string) (annotate.Library, func(), error) {
	if app.cfg.Store.Backend == "postgres" {
		enc := buildEncoder(app.cfg)
		sink, err := storage.NewPostgresSink(ctx, app.cfg.Store.PostgresDSN, enc.Model(), enc.Dimensions())
		if err != nil {
			return nil, nil, err
		}
		return sink, sink.Close, nil
	}
	lib, err := index.OpenLibrary(filepath.Join(dir, index.LibraryFile))
	if err != nil {
		return nil, nil, err
	}
	return lib, func() { lib.Close() }, nil
}
