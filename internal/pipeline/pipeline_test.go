// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package pipeline

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/pdiddy/paper-pipeline/internal/search"
	"github.com/pdiddy/paper-pipeline/pkg/types"
)

var pdfBody = []byte("%PDF-1.4\nminimal body\n%%EOF\n")

type stubBackend struct {
	results []search.Result
}

func (s *stubBackend) Name() string { return "stub" }

func (s *stubBackend) Search(context.Context, types.Query, types.SearchConfig) ([]search.Result, error) {
	return s.results, nil
}

func testConfig(dataDir string) types.PipelineConfig {
	return types.PipelineConfig{
		DataDir: dataDir,
		Search:  types.SearchConfig{MaxResults: 10},
		Fetch: types.FetchConfig{
			HTTPConfig: types.HTTPConfig{Timeout: 5 * time.Second, UserAgent: "paper-pipeline-test/0.1"},
			Retry: types.RetryConfig{
				MaxAttempts: 2,
				BaseDelay:   time.Millisecond,
				MaxDelay:    2 * time.Millisecond,
				Multiplier:  2.0,
			},
			Workers:       2,
			RatePerSecond: 1000,
		},
	}
}

func TestRunEndToEnd(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write(pdfBody)
	}))
	defer srv.Close()

	dataDir := t.TempDir()

	// Pre-seed one record that is already extracted, so the analyze and
	// synthesize stages have real text to work with.
	txtPath := filepath.Join(dataDir, "seeded.txt")
	text := "Attention networks weigh sequence positions. Attention networks translate sentences accurately."
	if err := os.WriteFile(txtPath, []byte(text), 0o644); err != nil {
		t.Fatal(err)
	}
	seeded := types.Collection{Records: []types.PaperRecord{{
		PaperID:          "paper-seeded",
		Title:            "Seeded Paper",
		Year:             2020,
		DownloadStatus:   types.DownloadSuccess,
		PDFPath:          filepath.Join(dataDir, "seeded.pdf"),
		TextPath:         txtPath,
		ExtractionStatus: types.ExtractionSuccess,
	}}}
	colPath := CollectionPath(dataDir)
	if err := os.MkdirAll(filepath.Dir(colPath), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := seeded.Save(colPath); err != nil {
		t.Fatal(err)
	}

	runner := &Runner{
		Cfg:    testConfig(dataDir),
		Client: http.DefaultClient,
		Logger: zerolog.Nop(),
		Backends: []search.Backend{&stubBackend{results: []search.Result{
			{Record: types.PaperRecord{
				PaperID:        "paper-new",
				Title:          "A New Paper",
				Year:           2023,
				PDFURL:         srv.URL + "/new.pdf",
				RelevanceScore: 1.0,
				DownloadStatus: types.DownloadPending,
			}},
			{Record: types.PaperRecord{
				PaperID:        "paper-nolink",
				Title:          "No Link Paper",
				RelevanceScore: 0.5,
				DownloadStatus: types.DownloadPending,
			}},
		}}},
	}

	var buf bytes.Buffer
	summary, err := runner.Run(context.Background(), types.Query{Topic: "attention"}, &buf)
	if err != nil {
		t.Fatalf("Run() error: %v\noutput:\n%s", err, buf.String())
	}

	if summary.RunID == "" {
		t.Error("summary has no run ID")
	}
	if summary.Found != 2 {
		t.Errorf("Found = %d, want 2", summary.Found)
	}
	if summary.Fetch.Downloaded != 1 || summary.Fetch.Failed != 1 || summary.Fetch.Skipped != 1 {
		t.Errorf("Fetch = %+v, want 1 downloaded, 1 failed, 1 skipped", summary.Fetch)
	}
	// The stored stub PDF is not parseable, so extraction fails for it but
	// must not stop the run.
	if summary.Extract.Failed != 1 {
		t.Errorf("Extract = %+v, want 1 failed", summary.Extract)
	}
	if summary.Analyze.Analyzed != 1 {
		t.Errorf("Analyze = %+v, want 1 analyzed (seeded record)", summary.Analyze)
	}
	if summary.Synthesize.Drafted != 1 {
		t.Errorf("Synthesize = %+v, want 1 drafted", summary.Synthesize)
	}
	if len(summary.References) != 3 {
		t.Errorf("References has %d entries, want 3", len(summary.References))
	}

	// The collection on disk reflects every stage.
	col, err := types.LoadCollection(colPath)
	if err != nil {
		t.Fatalf("loading saved collection: %v", err)
	}
	if col.Total != 3 {
		t.Fatalf("saved collection Total = %d, want 3", col.Total)
	}
	newRec := col.Find("paper-new")
	if newRec == nil || newRec.DownloadStatus != types.DownloadSuccess {
		t.Fatalf("paper-new = %+v, want downloaded", newRec)
	}
	if newRec.ExtractionStatus != types.ExtractionFailed {
		t.Errorf("paper-new extraction = %q, want failed", newRec.ExtractionStatus)
	}
	seededRec := col.Find("paper-seeded")
	if seededRec.Metrics == nil || seededRec.Draft == nil {
		t.Fatalf("seeded record not carried through analyze/synthesize: %+v", seededRec)
	}
	if col.Find("paper-nolink").DownloadStatus != types.DownloadFailed {
		t.Error("paper-nolink not marked failed")
	}

	if !strings.Contains(buf.String(), "== Run "+summary.RunID+" ==") {
		t.Errorf("output missing summary table:\n%s", buf.String())
	}
}

func TestRunIdempotentRerun(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write(pdfBody)
	}))
	defer srv.Close()

	dataDir := t.TempDir()
	runner := &Runner{
		Cfg:    testConfig(dataDir),
		Client: http.DefaultClient,
		Logger: zerolog.Nop(),
		Backends: []search.Backend{&stubBackend{results: []search.Result{
			{Record: types.PaperRecord{
				PaperID:        "paper-a",
				Title:          "A Paper",
				PDFURL:         srv.URL + "/a.pdf",
				RelevanceScore: 1.0,
				DownloadStatus: types.DownloadPending,
			}},
		}}},
	}

	ctx := context.Background()
	if _, err := runner.Run(ctx, types.Query{Topic: "x"}, new(bytes.Buffer)); err != nil {
		t.Fatalf("first Run() error: %v", err)
	}

	second, err := runner.Run(ctx, types.Query{Topic: "x"}, new(bytes.Buffer))
	if err != nil {
		t.Fatalf("second Run() error: %v", err)
	}
	if second.Fetch.Downloaded != 0 || second.Fetch.Skipped != 1 {
		t.Errorf("second run fetch = %+v, want 1 skipped", second.Fetch)
	}

	col, err := types.LoadCollection(CollectionPath(dataDir))
	if err != nil {
		t.Fatal(err)
	}
	if col.Total != 1 {
		t.Errorf("collection grew to %d records on re-run", col.Total)
	}
}

func TestRunCorruptCollectionIsFatal(t *testing.T) {
	dataDir := t.TempDir()
	colPath := CollectionPath(dataDir)
	if err := os.MkdirAll(filepath.Dir(colPath), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(colPath, []byte("{not json"), 0o644); err != nil {
		t.Fatal(err)
	}

	runner := &Runner{
		Cfg:      testConfig(dataDir),
		Client:   http.DefaultClient,
		Logger:   zerolog.Nop(),
		Backends: []search.Backend{&stubBackend{}},
	}
	if _, err := runner.Run(context.Background(), types.Query{Topic: "x"}, new(bytes.Buffer)); err == nil {
		t.Fatal("Run() on corrupt collection did not fail")
	}
}

func TestBackendsFromConfig(t *testing.T) {
	cfg := types.SearchConfig{EnableSemanticScholar: true, EnableArxiv: true}
	if got := len(Backends(cfg, http.DefaultClient)); got != 2 {
		t.Errorf("Backends() returned %d, want 2", got)
	}
	if got := len(Backends(types.SearchConfig{EnableArxiv: true}, nil)); got != 1 {
		t.Errorf("Backends() returned %d, want 1", got)
	}
	if got := len(Backends(types.SearchConfig{}, nil)); got != 0 {
		t.Errorf("Backends() returned %d, want 0", got)
	}
}
