// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package fetch

import (
	"bytes"
	"context"
	"crypto/sha256"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/pdiddy/paper-pipeline/pkg/types"
)

var pdfBody = []byte("%PDF-1.4\n1 0 obj\n<< /Type /Catalog >>\nendobj\ntrailer\n%%EOF\n")

func testFetchConfig() types.FetchConfig {
	return types.FetchConfig{
		HTTPConfig: types.HTTPConfig{
			Timeout:   5 * time.Second,
			UserAgent: "paper-pipeline-test/0.1",
		},
		Retry: types.RetryConfig{
			MaxAttempts: 3,
			BaseDelay:   time.Millisecond,
			MaxDelay:    5 * time.Millisecond,
			Multiplier:  2.0,
		},
		Workers:       2,
		RatePerSecond: 1000,
		MaxBytes:      1 << 20,
	}
}

func newTestFetcher(t *testing.T, cfg types.FetchConfig) *Fetcher {
	t.Helper()
	return New(http.DefaultClient, cfg, t.TempDir(), zerolog.Nop())
}

// hitCounter counts requests per path so tests can assert network activity.
type hitCounter struct {
	hits map[string]*atomic.Int64
}

func newHitCounter(paths ...string) *hitCounter {
	h := &hitCounter{hits: make(map[string]*atomic.Int64)}
	for _, p := range paths {
		h.hits[p] = &atomic.Int64{}
	}
	return h
}

func (h *hitCounter) count(path string) int64 {
	if c, ok := h.hits[path]; ok {
		return c.Load()
	}
	return 0
}

func (h *hitCounter) total() int64 {
	var n int64
	for _, c := range h.hits {
		n += c.Load()
	}
	return n
}

func (h *hitCounter) inc(path string) {
	if c, ok := h.hits[path]; ok {
		c.Add(1)
	}
}

func TestFetchBatchMixedOutcomes(t *testing.T) {
	hits := newHitCounter("/good.pdf", "/landing.html")
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.inc(r.URL.Path)
		switch r.URL.Path {
		case "/good.pdf":
			w.Header().Set("Content-Type", "application/pdf")
			w.Write(pdfBody)
		case "/landing.html":
			w.Header().Set("Content-Type", "text/html")
			fmt.Fprint(w, "<html><body>No direct link here</body></html>")
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	col := &types.Collection{Records: []types.PaperRecord{
		{PaperID: "paper-a", PDFURL: srv.URL + "/good.pdf", DownloadStatus: types.DownloadPending},
		{PaperID: "paper-b", PDFURL: srv.URL + "/landing.html", DownloadStatus: types.DownloadPending},
		{PaperID: "paper-c", DownloadStatus: types.DownloadPending},
	}}

	f := newTestFetcher(t, testFetchConfig())
	var buf bytes.Buffer
	result := f.FetchBatch(context.Background(), col, &buf)

	if result.Downloaded != 1 || result.Failed != 2 || result.Skipped != 0 {
		t.Fatalf("FetchBatch result = %+v, want 1 downloaded, 2 failed", result)
	}
	if result.Total() != 3 {
		t.Errorf("Total() = %d, want 3", result.Total())
	}
	if !result.HasFailures() {
		t.Error("HasFailures() = false, want true")
	}

	a := col.Find("paper-a")
	if a.DownloadStatus != types.DownloadSuccess {
		t.Fatalf("paper-a status = %q, want success", a.DownloadStatus)
	}
	wantDigest := fmt.Sprintf("%x", sha256.Sum256(pdfBody))
	if a.SHA256 != wantDigest {
		t.Errorf("paper-a SHA256 = %q, want %q", a.SHA256, wantDigest)
	}
	if a.FileSize != int64(len(pdfBody)) {
		t.Errorf("paper-a FileSize = %d, want %d", a.FileSize, len(pdfBody))
	}
	stored, err := os.ReadFile(a.PDFPath)
	if err != nil {
		t.Fatalf("reading stored PDF: %v", err)
	}
	if !bytes.Equal(stored, pdfBody) {
		t.Error("stored PDF does not match served bytes")
	}

	b := col.Find("paper-b")
	if b.DownloadStatus != types.DownloadFailed {
		t.Errorf("paper-b status = %q, want failed", b.DownloadStatus)
	}
	if b.FetchError == "" {
		t.Error("paper-b FetchError is empty")
	}
	if b.PDFPath != "" {
		t.Errorf("paper-b PDFPath = %q, want empty", b.PDFPath)
	}

	c := col.Find("paper-c")
	if c.DownloadStatus != types.DownloadFailed {
		t.Errorf("paper-c status = %q, want failed", c.DownloadStatus)
	}
	if c.FetchError != "no pdf link" {
		t.Errorf("paper-c FetchError = %q, want %q", c.FetchError, "no pdf link")
	}

	// A non-PDF landing page burns one permanent attempt, never three.
	if got := hits.count("/landing.html"); got != 1 {
		t.Errorf("landing page requested %d times, want 1", got)
	}

	out := buf.String()
	for _, want := range []string{"downloaded: paper-a", "failed:  paper-b", "failed:  paper-c (no pdf link)"} {
		if !strings.Contains(out, want) {
			t.Errorf("progress output missing %q:\n%s", want, out)
		}
	}
}

func TestFetchBatchIdempotent(t *testing.T) {
	hits := newHitCounter("/good.pdf")
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.inc(r.URL.Path)
		w.Write(pdfBody)
	}))
	defer srv.Close()

	col := &types.Collection{Records: []types.PaperRecord{
		{PaperID: "paper-a", PDFURL: srv.URL + "/good.pdf", DownloadStatus: types.DownloadPending},
		{PaperID: "paper-b", DownloadStatus: types.DownloadPending},
	}}

	f := newTestFetcher(t, testFetchConfig())
	first := f.FetchBatch(context.Background(), col, new(bytes.Buffer))
	if first.Downloaded != 1 || first.Failed != 1 {
		t.Fatalf("first run = %+v, want 1 downloaded, 1 failed", first)
	}
	afterFirst := hits.total()

	second := f.FetchBatch(context.Background(), col, new(bytes.Buffer))
	if second.Skipped != 2 || second.Downloaded != 0 || second.Failed != 0 {
		t.Fatalf("second run = %+v, want 2 skipped", second)
	}
	if hits.total() != afterFirst {
		t.Errorf("second run made %d network requests, want 0", hits.total()-afterFirst)
	}
}

func TestFetchBatchForceRedownloads(t *testing.T) {
	hits := newHitCounter("/good.pdf")
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.inc(r.URL.Path)
		w.Write(pdfBody)
	}))
	defer srv.Close()

	col := &types.Collection{Records: []types.PaperRecord{
		{PaperID: "paper-a", PDFURL: srv.URL + "/good.pdf", DownloadStatus: types.DownloadPending},
	}}

	f := newTestFetcher(t, testFetchConfig())
	f.FetchBatch(context.Background(), col, new(bytes.Buffer))

	f.Cfg.Force = true
	result := f.FetchBatch(context.Background(), col, new(bytes.Buffer))
	if result.Downloaded != 1 {
		t.Fatalf("forced run = %+v, want 1 downloaded", result)
	}
	if got := hits.count("/good.pdf"); got != 2 {
		t.Errorf("server hit %d times, want 2 (one per run)", got)
	}
}

func TestFetchRejectsMislabeledHTML(t *testing.T) {
	// Content-Type claims PDF but the bytes are markup; the signature rules.
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/pdf")
		fmt.Fprint(w, "<!DOCTYPE html><html><body>Please log in</body></html>")
	}))
	defer srv.Close()

	col := &types.Collection{Records: []types.PaperRecord{
		{PaperID: "paper-a", PDFURL: srv.URL + "/fake.pdf", DownloadStatus: types.DownloadPending},
	}}

	f := newTestFetcher(t, testFetchConfig())
	result := f.FetchBatch(context.Background(), col, new(bytes.Buffer))
	if result.Failed != 1 {
		t.Fatalf("result = %+v, want 1 failed", result)
	}
	rec := col.Find("paper-a")
	if !strings.Contains(rec.FetchError, "not a PDF") {
		t.Errorf("FetchError = %q, want validation reason", rec.FetchError)
	}
}

func TestFetchDerivedLinkRetry(t *testing.T) {
	hits := newHitCounter("/abs/42", "/files/42.pdf")
	var srvURL string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.inc(r.URL.Path)
		switch r.URL.Path {
		case "/abs/42":
			w.Header().Set("Content-Type", "text/html")
			fmt.Fprintf(w, `<html><a href="%s/files/42.pdf">PDF</a></html>`, srvURL)
		case "/files/42.pdf":
			w.Write(pdfBody)
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()
	srvURL = srv.URL

	col := &types.Collection{Records: []types.PaperRecord{
		{PaperID: "paper-a", PDFURL: srv.URL + "/abs/42", DownloadStatus: types.DownloadPending},
	}}

	f := newTestFetcher(t, testFetchConfig())
	result := f.FetchBatch(context.Background(), col, new(bytes.Buffer))
	if result.Downloaded != 1 {
		t.Fatalf("result = %+v, want 1 downloaded via derived link", result)
	}
	rec := col.Find("paper-a")
	if rec.DownloadStatus != types.DownloadSuccess {
		t.Fatalf("status = %q, want success", rec.DownloadStatus)
	}
	// Exactly one probe of the landing page and one of the derived link.
	if got := hits.count("/abs/42"); got != 1 {
		t.Errorf("landing page hit %d times, want 1", got)
	}
	if got := hits.count("/files/42.pdf"); got != 1 {
		t.Errorf("derived link hit %d times, want 1", got)
	}
}

func TestFetchRetriesTransientErrors(t *testing.T) {
	var calls atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			http.Error(w, "overloaded", http.StatusServiceUnavailable)
			return
		}
		w.Write(pdfBody)
	}))
	defer srv.Close()

	col := &types.Collection{Records: []types.PaperRecord{
		{PaperID: "paper-a", PDFURL: srv.URL + "/flaky.pdf", DownloadStatus: types.DownloadPending},
	}}

	f := newTestFetcher(t, testFetchConfig())
	result := f.FetchBatch(context.Background(), col, new(bytes.Buffer))
	if result.Downloaded != 1 {
		t.Fatalf("result = %+v, want recovery after transient errors", result)
	}
	if got := calls.Load(); got != 3 {
		t.Errorf("server called %d times, want 3", got)
	}
}

func TestFetchClientErrorNotRetried(t *testing.T) {
	var calls atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		http.NotFound(w, r)
	}))
	defer srv.Close()

	col := &types.Collection{Records: []types.PaperRecord{
		{PaperID: "paper-a", PDFURL: srv.URL + "/gone.pdf", DownloadStatus: types.DownloadPending},
	}}

	f := newTestFetcher(t, testFetchConfig())
	result := f.FetchBatch(context.Background(), col, new(bytes.Buffer))
	if result.Failed != 1 {
		t.Fatalf("result = %+v, want 1 failed", result)
	}
	if got := calls.Load(); got != 1 {
		t.Errorf("server called %d times, want 1 (no retry on 404)", got)
	}
}

func TestFetchEnforcesSizeCap(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write(pdfBody)
		w.Write(bytes.Repeat([]byte("A"), 4096))
	}))
	defer srv.Close()

	cfg := testFetchConfig()
	cfg.MaxBytes = 512

	col := &types.Collection{Records: []types.PaperRecord{
		{PaperID: "paper-a", PDFURL: srv.URL + "/big.pdf", DownloadStatus: types.DownloadPending},
	}}

	f := newTestFetcher(t, cfg)
	result := f.FetchBatch(context.Background(), col, new(bytes.Buffer))
	if result.Failed != 1 {
		t.Fatalf("result = %+v, want 1 failed over size cap", result)
	}
	rec := col.Find("paper-a")
	if !strings.Contains(rec.FetchError, "byte cap") {
		t.Errorf("FetchError = %q, want size cap reason", rec.FetchError)
	}
}

func TestFetchWritesMetadataSidecar(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write(pdfBody)
	}))
	defer srv.Close()

	col := &types.Collection{Records: []types.PaperRecord{
		{PaperID: "arxiv:1706.03762", Title: "Attention Is All You Need", PDFURL: srv.URL + "/p.pdf", DownloadStatus: types.DownloadPending},
	}}

	f := newTestFetcher(t, testFetchConfig())
	result := f.FetchBatch(context.Background(), col, new(bytes.Buffer))
	if result.Downloaded != 1 {
		t.Fatalf("result = %+v, want 1 downloaded", result)
	}

	data, err := os.ReadFile(f.MetaDir + "/arxiv-1706.03762.yaml")
	if err != nil {
		t.Fatalf("reading sidecar: %v", err)
	}
	if !strings.Contains(string(data), "Attention Is All You Need") {
		t.Error("sidecar missing paper title")
	}
}

func TestSlug(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"arxiv:1706.03762", "arxiv-1706.03762"},
		{"10.1000/xyz 123", "10.1000-xyz_123"},
		{"plain-id", "plain-id"},
	}
	for _, tt := range tests {
		if got := slug(tt.in); got != tt.want {
			t.Errorf("slug(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
