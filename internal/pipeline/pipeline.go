// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package pipeline chains the five stages into a single run: search, fetch,
// extract, analyze, synthesize. The collection file is the only state shared
// between stages; it is saved after every stage so an interrupted run can
// resume where it stopped.
package pipeline

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/pdiddy/paper-pipeline/internal/analyze"
	"github.com/pdiddy/paper-pipeline/internal/extract"
	"github.com/pdiddy/paper-pipeline/internal/fetch"
	"github.com/pdiddy/paper-pipeline/internal/retry"
	"github.com/pdiddy/paper-pipeline/internal/search"
	"github.com/pdiddy/paper-pipeline/internal/synthesize"
	"github.com/pdiddy/paper-pipeline/pkg/types"
)

// Summary aggregates per-stage counts for one run.
type Summary struct {
	RunID      string
	Found      int
	Fetch      fetch.BatchResult
	Extract    extract.BatchResult
	Analyze    analyze.BatchResult
	Synthesize synthesize.BatchResult
	References []types.Reference
}

// Runner executes the full pipeline.
type Runner struct {
	Cfg    types.PipelineConfig
	Client *http.Client
	Logger zerolog.Logger

	// Backends overrides the config-derived search backends when non-nil.
	Backends []search.Backend
}

// CollectionPath returns the canonical collection file location under the
// data root.
func CollectionPath(dataDir string) string {
	return filepath.Join(dataDir, types.MetadataDir, types.CollectionFile)
}

// Backends returns the search backends enabled in the config.
func Backends(cfg types.SearchConfig, client *http.Client) []search.Backend {
	var backends []search.Backend
	if cfg.EnableSemanticScholar {
		backends = append(backends, &search.SemanticScholarBackend{
			Client: client,
			APIKey: cfg.SemanticScholarAPIKey,
			Retry:  retry.FromConfig(types.RetryConfig{}),
		})
	}
	if cfg.EnableArxiv {
		backends = append(backends, &search.ArxivBackend{Client: client})
	}
	return backends
}

// Run executes all five stages in order. Per-record failures are absorbed by
// each stage; Run returns an error only for batch-fatal conditions, such as
// a corrupt collection file or an unwritable data directory. The collection
// on disk always reflects the last completed stage.
func (r *Runner) Run(ctx context.Context, query types.Query, w io.Writer) (*Summary, error) {
	runID := uuid.NewString()
	log := r.Logger.With().Str("run_id", runID).Logger()
	summary := &Summary{RunID: runID}

	colPath := CollectionPath(r.Cfg.DataDir)
	col, err := types.LoadCollection(colPath)
	if err != nil {
		return nil, fmt.Errorf("loading collection: %w", err)
	}

	log.Info().Str("topic", query.Topic).Int("existing", len(col.Records)).Msg("run started")
	fmt.Fprintf(w, "run %s\n\n== Search ==\n", runID)

	backends := r.Backends
	if backends == nil {
		backends = Backends(r.Cfg.Search, r.Client)
	}
	out, err := search.Search(ctx, query, backends, r.Cfg.Search, w)
	if err != nil {
		return nil, fmt.Errorf("search: %w", err)
	}
	summary.Found = len(out.Records)
	added := col.Merge(out.Records)
	log.Info().Int("found", len(out.Records)).Int("added", added).Msg("search complete")
	fmt.Fprintf(w, "found %d papers (%d new)\n", len(out.Records), added)
	if err := col.Save(colPath); err != nil {
		return nil, fmt.Errorf("saving collection: %w", err)
	}

	fmt.Fprintf(w, "\n== Fetch ==\n")
	f := fetch.New(r.Client, r.Cfg.Fetch, r.Cfg.DataDir, log)
	summary.Fetch = f.FetchBatch(ctx, col, w)
	if err := col.Save(colPath); err != nil {
		return nil, fmt.Errorf("saving collection: %w", err)
	}

	fmt.Fprintf(w, "\n== Extract ==\n")
	e := extract.New(r.Cfg.Extract, r.Cfg.DataDir, log)
	summary.Extract = e.ExtractBatch(col, w)
	if err := col.Save(colPath); err != nil {
		return nil, fmt.Errorf("saving collection: %w", err)
	}

	fmt.Fprintf(w, "\n== Analyze ==\n")
	summary.Analyze = analyze.AnalyzeBatch(col, r.Cfg.Analyze, log, w)
	if err := col.Save(colPath); err != nil {
		return nil, fmt.Errorf("saving collection: %w", err)
	}

	fmt.Fprintf(w, "\n== Synthesize ==\n")
	s := synthesize.New(r.Cfg.Synthesize, r.Client, log)
	summary.Synthesize = s.SynthesizeBatch(ctx, col, w)
	summary.References = synthesize.References(col)
	if err := col.Save(colPath); err != nil {
		return nil, fmt.Errorf("saving collection: %w", err)
	}

	log.Info().
		Int("fetched", summary.Fetch.Downloaded).
		Int("extracted", summary.Extract.Extracted).
		Int("analyzed", summary.Analyze.Analyzed).
		Int("drafted", summary.Synthesize.Drafted).
		Msg("run complete")

	printSummary(w, summary)
	return summary, nil
}

func printSummary(w io.Writer, s *Summary) {
	fmt.Fprintf(w, "\n== Run %s ==\n", s.RunID)
	fmt.Fprintf(w, "%-12s %8s %8s %8s\n", "stage", "done", "skipped", "failed")
	fmt.Fprintf(w, "%-12s %8d %8s %8s\n", "search", s.Found, "-", "-")
	fmt.Fprintf(w, "%-12s %8d %8d %8d\n", "fetch", s.Fetch.Downloaded, s.Fetch.Skipped, s.Fetch.Failed)
	fmt.Fprintf(w, "%-12s %8d %8d %8d\n", "extract", s.Extract.Extracted, s.Extract.Skipped, s.Extract.Failed)
	fmt.Fprintf(w, "%-12s %8d %8d %8d\n", "analyze", s.Analyze.Analyzed, s.Analyze.Skipped, s.Analyze.Failed)
	fmt.Fprintf(w, "%-12s %8d %8d %8d\n", "synthesize", s.Synthesize.Drafted, s.Synthesize.Skipped, s.Synthesize.Failed)

	if len(s.References) > 0 {
		fmt.Fprintf(w, "\nReferences:\n")
		for _, ref := range s.References {
			fmt.Fprintf(w, "  %s\n", ref.Formatted)
		}
	}
}
