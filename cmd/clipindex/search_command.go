package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/bdougie/clipindex/internal/index"
	"github.com/bdougie/clipindex/internal/models"
	"github.com/bdougie/clipindex/internal/storage"
)

func newSearchCommand(app *appContext) *cobra.Command {
	var (
		outputDir string
		topK      int
		asJSON    bool
		byClipID  bool
	)

	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Find the clips most similar to a text query or an indexed clip",
		Long: `Search embeds the query text with the configured encoder and returns
the top-K most similar clips by cosine similarity. With --by-id the
argument is treated as a clip ID and that clip's own indexed vector is
used as the query instead.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := app.cfg.Paths.OutputDir
			if outputDir != "" {
				dir = outputDir
			}
			return runSearch(cmd.Context(), app, dir, args[0], topK, byClipID, asJSON)
		},
	}

	cmd.Flags().StringVar(&outputDir, "output", "", "index directory (defaults to paths.output_dir)")
	cmd.Flags().IntVarP(&topK, "top", "k", 5, "number of results")
	cmd.Flags().BoolVar(&asJSON, "json", false, "emit results as JSON")
	cmd.Flags().BoolVar(&byClipID, "by-id", false, "treat the query as a clip ID")
	return cmd
}

type searchResult struct {
	models.Match
	Clip models.Clip `json:"clip"`
}

func runSearch(ctx context.Context, app *appContext, dir, query string, k int, byClipID, asJSON bool) error {
	if app.cfg.Store.Backend == "postgres" {
		return runSearchPostgres(ctx, app, query, k, byClipID, asJSON)
	}
	ix, err := index.Load(ctx, dir)
	if err != nil {
		return err
	}

	var vector []float32
	if byClipID {
		vec, ok := ix.VectorByID(strings.TrimSpace(query))
		if !ok {
			return fmt.Errorf("clip %s not in index", query)
		}
		vector = vec
	} else {
		enc := buildEncoder(app.cfg)
		if err := ix.CheckEncoder(enc); err != nil {
			return err
		}
		vector, err = enc.EmbedText(ctx, query)
		if err != nil {
			return err
		}
	}

	matches, err := ix.Search(vector, k)
	if err != nil {
		return err
	}

	lib, err := index.OpenLibrary(filepath.Join(dir, index.LibraryFile))
	if err != nil {
		return err
	}
	defer lib.Close()

	results := make([]searchResult, 0, len(matches))
	for _, m := range matches {
		clip, err := lib.ClipByID(ctx, m.ID)
		if err != nil {
			return err
		}
		results = append(results, searchResult{Match: m, Clip: clip})
	}

	if asJSON {
		return json.NewEncoder(os.Stdout).Encode(results)
	}
	renderResults(results)
	return nil
}

// runSearchPostgres serves the query from the database the ingestion
// run wrote to; the on-disk trio is not consulted.
func runSearchPostgres(ctx context.Context, app *appContext, query string, k int, byClipID, asJSON bool) error {
	enc := buildEncoder(app.cfg)
	sink, err := storage.NewPostgresSink(ctx, app.cfg.Store.PostgresDSN, enc.Model(), enc.Dimensions())
	if err != nil {
		return err
	}
	defer sink.Close()

	var vector []float32
	if byClipID {
		vector, err = sink.VectorByID(ctx, strings.TrimSpace(query))
	} else {
		vector, err = enc.EmbedText(ctx, query)
	}
	if err != nil {
		return err
	}

	matches, err := sink.Search(ctx, vector, enc.Model(), k)
	if err != nil {
		return err
	}

	results := make([]searchResult, 0, len(matches))
	for _, m := range matches {
		clip, err := sink.ClipByID(ctx, m.ID)
		if err != nil {
			return err
		}
		results = append(results, searchResult{Match: m, Clip: clip})
	}

	if asJSON {
		return json.NewEncoder(os.Stdout).Encode(results)
	}
	renderResults(results)
	return nil
}

func renderResults(results []searchResult) {
	t := table.NewWriter()
	t.SetOutputMirror(os.Stdout)
	t.AppendHeader(table.Row{"#", "Similarity", "ID", "Title", "Duration", "Resolution", "Tags"})
	for i, r := range results {
		t.AppendRow(table.Row{
			i + 1,
			fmt.Sprintf("%.4f", r.Similarity),
			r.ID,
			r.Clip.Title,
			fmt.Sprintf("%.1fs", r.Clip.Duration),
			r.Clip.Resolution(),
			r.Clip.Tags,
		})
	}
	t.SetStyle(table.StyleLight)
	t.Render()
}
