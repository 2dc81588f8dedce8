// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package fetch downloads candidate PDFs, validates them structurally, and
// records storage metadata on each paper record. Failures are isolated per
// record: the batch always runs to completion.
package fetch

import (
	"context"
	"crypto/sha256"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/rs/zerolog"
	"go.yaml.in/yaml/v3"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/pdiddy/paper-pipeline/internal/retry"
	"github.com/pdiddy/paper-pipeline/pkg/types"
)

// sniffLen is how many leading bytes are read before the signature check.
const sniffLen = 8

// BatchResult holds the outcome of a batch fetch run.
type BatchResult struct {
	Downloaded int
	Skipped    int
	Failed     int
}

// Total returns the number of records processed.
func (r BatchResult) Total() int {
	return r.Downloaded + r.Skipped + r.Failed
}

// HasFailures reports whether any records failed.
func (r BatchResult) HasFailures() bool {
	return r.Failed > 0
}

// Fetcher downloads PDFs for a collection.
type Fetcher struct {
	Client  *http.Client
	Cfg     types.FetchConfig
	PDFDir  string
	MetaDir string
	Policy  retry.Policy
	Limiter *rate.Limiter
	Logger  zerolog.Logger
}

// New builds a Fetcher rooted at dataDir with the shared retry policy and a
// client-side rate limiter spanning all workers.
func New(client *http.Client, cfg types.FetchConfig, dataDir string, logger zerolog.Logger) *Fetcher {
	rps := cfg.RatePerSecond
	if rps <= 0 {
		rps = 1
	}
	return &Fetcher{
		Client:  client,
		Cfg:     cfg,
		PDFDir:  filepath.Join(dataDir, types.PDFDir),
		MetaDir: filepath.Join(dataDir, types.MetadataDir),
		Policy:  retry.FromConfig(cfg.Retry),
		Limiter: rate.NewLimiter(rate.Limit(rps), 1),
		Logger:  logger,
	}
}

// FetchBatch processes every record in the collection with a bounded worker
// pool, mutating records in place. Each record has exactly one writer; the
// progress writer is serialized. A per-record failure never stops the batch.
func (f *Fetcher) FetchBatch(ctx context.Context, col *types.Collection, w io.Writer) BatchResult {
	for _, dir := range []string{f.PDFDir, f.MetaDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			fmt.Fprintf(w, "failed:  creating %s (%v)\n", dir, err)
			return BatchResult{Failed: len(col.Records)}
		}
	}

	workers := f.Cfg.Workers
	if workers <= 0 {
		workers = 1
	}

	sw := &syncWriter{w: w}
	var downloaded, skipped, failed atomic.Int64

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)

	for i := range col.Records {
		rec := &col.Records[i]
		g.Go(func() error {
			switch f.fetchRecord(gctx, rec, sw) {
			case outcomeDownloaded:
				downloaded.Add(1)
			case outcomeSkipped:
				skipped.Add(1)
			case outcomeFailed:
				failed.Add(1)
			}
			return nil
		})
	}
	g.Wait()

	result := BatchResult{
		Downloaded: int(downloaded.Load()),
		Skipped:    int(skipped.Load()),
		Failed:     int(failed.Load()),
	}
	fmt.Fprintf(w, "\nFetch summary: %d downloaded, %d skipped, %d failed (total: %d)\n",
		result.Downloaded, result.Skipped, result.Failed, result.Total())
	return result
}

type outcome int

const (
	outcomeDownloaded outcome = iota
	outcomeSkipped
	outcomeFailed
)

// fetchRecord handles one record: idempotent skip, bounded-retry download,
// structural validation with a single derived-link retry, and the one-shot
// pending → success/failed transition.
func (f *Fetcher) fetchRecord(ctx context.Context, rec *types.PaperRecord, w io.Writer) outcome {
	log := f.Logger.With().Str("stage", "fetch").Str("paper_id", rec.PaperID).Logger()

	if !f.Cfg.Force {
		switch rec.DownloadStatus {
		case types.DownloadSuccess:
			fmt.Fprintf(w, "skipped: %s (already downloaded)\n", rec.PaperID)
			return outcomeSkipped
		case types.DownloadFailed:
			fmt.Fprintf(w, "skipped: %s (previously failed)\n", rec.PaperID)
			return outcomeSkipped
		}
	}

	if rec.PDFURL == "" {
		f.fail(rec, "no pdf link")
		log.Warn().Str("reason", "no pdf link").Msg("fetch failed")
		fmt.Fprintf(w, "failed:  %s (no pdf link)\n", rec.PaperID)
		return outcomeFailed
	}

	dest := filepath.Join(f.PDFDir, slug(rec.PaperID)+".pdf")
	fmt.Fprintf(w, "downloading: %s\n", rec.PaperID)

	var dl downloadResult
	err := f.Policy.Do(ctx, func(attempt int) error {
		if err := f.Limiter.Wait(ctx); err != nil {
			return retry.Permanent(err)
		}
		var attemptErr error
		dl, attemptErr = f.downloadOnce(ctx, rec.PDFURL, dest)
		logAttempt(log, rec.PDFURL, attempt, attemptErr)
		return attemptErr
	})

	// A validation failure is terminal for the original link, but a
	// heuristically derived link earns exactly one more attempt.
	var ve *ValidationError
	if errors.As(err, &ve) && ve.DerivedURL != "" && ve.DerivedURL != rec.PDFURL {
		log.Info().Str("derived_url", ve.DerivedURL).Msg("retrying derived link")
		dl, err = f.downloadOnce(ctx, ve.DerivedURL, dest)
		logAttempt(log, ve.DerivedURL, f.Policy.MaxAttempts+1, err)
	}

	if err != nil {
		f.fail(rec, err.Error())
		log.Warn().Err(err).Msg("fetch failed")
		fmt.Fprintf(w, "failed:  %s (%v)\n", rec.PaperID, err)
		return outcomeFailed
	}

	rec.PDFPath = dest
	rec.SHA256 = dl.digest
	rec.FileSize = dl.size
	rec.DownloadStatus = types.DownloadSuccess
	rec.FetchError = ""

	if err := f.writeMetadata(rec); err != nil {
		// The PDF landed; a sidecar write problem is not a fetch failure.
		log.Warn().Err(err).Msg("writing metadata sidecar")
	}

	log.Info().Str("path", dest).Str("sha256", dl.digest).Int64("bytes", dl.size).Msg("downloaded")
	fmt.Fprintf(w, "downloaded: %s (%d bytes)\n", rec.PaperID, dl.size)
	return outcomeDownloaded
}

// fail records a terminal failure. The pending → failed transition happens
// at most once; a record that already reached success is never reverted.
func (f *Fetcher) fail(rec *types.PaperRecord, reason string) {
	if rec.DownloadStatus == types.DownloadSuccess && !f.Cfg.Force {
		return
	}
	rec.DownloadStatus = types.DownloadFailed
	rec.FetchError = reason
}

type downloadResult struct {
	digest string
	size   int64
}

// downloadOnce performs a single GET, validates the leading signature, and
// streams the body to dest via a temp file. Network and server-side errors
// come back retryable; client errors and validation failures are permanent.
func (f *Fetcher) downloadOnce(ctx context.Context, rawURL, dest string) (downloadResult, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return downloadResult{}, retry.Permanent(fmt.Errorf("creating request: %w", err))
	}
	req.Header.Set("User-Agent", f.Cfg.UserAgent)
	req.Header.Set("Accept", "application/pdf")

	resp, err := f.Client.Do(req)
	if err != nil {
		return downloadResult{}, fmt.Errorf("HTTP request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		err := fmt.Errorf("HTTP %d from %s", resp.StatusCode, rawURL)
		if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
			return downloadResult{}, err
		}
		return downloadResult{}, retry.Permanent(err)
	}

	head := make([]byte, sniffLen)
	n, err := io.ReadFull(resp.Body, head)
	if err != nil && err != io.ErrUnexpectedEOF {
		return downloadResult{}, fmt.Errorf("reading response: %w", err)
	}
	head = head[:n]

	if !HasPDFSignature(head) {
		ve := &ValidationError{URL: rawURL, Reason: "missing PDF signature"}
		if looksLikeHTML(head) || !strings.Contains(resp.Header.Get("Content-Type"), "pdf") {
			body, _ := io.ReadAll(io.LimitReader(resp.Body, maxHTMLSniff))
			ve.Reason = "response is not a PDF"
			ve.DerivedURL = derivePDFLink(rawURL, append(head, body...))
		}
		return downloadResult{}, retry.Permanent(ve)
	}

	maxBytes := f.Cfg.MaxBytes
	if maxBytes <= 0 {
		maxBytes = 50 << 20
	}

	tmp, err := os.CreateTemp(filepath.Dir(dest), ".fetch-*.tmp")
	if err != nil {
		return downloadResult{}, retry.Permanent(fmt.Errorf("creating temp file: %w", err))
	}
	tmpPath := tmp.Name()

	hash := sha256.New()
	out := io.MultiWriter(tmp, hash)

	written, copyErr := out.Write(head)
	size := int64(written)
	if copyErr == nil {
		var n int64
		n, copyErr = io.Copy(out, io.LimitReader(resp.Body, maxBytes-size+1))
		size += n
	}
	closeErr := tmp.Close()

	switch {
	case copyErr != nil:
		os.Remove(tmpPath)
		return downloadResult{}, fmt.Errorf("writing download: %w", copyErr)
	case closeErr != nil:
		os.Remove(tmpPath)
		return downloadResult{}, fmt.Errorf("closing temp file: %w", closeErr)
	case size > maxBytes:
		os.Remove(tmpPath)
		return downloadResult{}, retry.Permanent(&ValidationError{URL: rawURL, Reason: fmt.Sprintf("exceeds %d byte cap", maxBytes)})
	}

	if err := os.Rename(tmpPath, dest); err != nil {
		os.Remove(tmpPath)
		return downloadResult{}, retry.Permanent(fmt.Errorf("renaming temp file: %w", err))
	}

	return downloadResult{
		digest: fmt.Sprintf("%x", hash.Sum(nil)),
		size:   size,
	}, nil
}

// writeMetadata writes the record's YAML sidecar next to the collection.
func (f *Fetcher) writeMetadata(rec *types.PaperRecord) error {
	data, err := yaml.Marshal(rec)
	if err != nil {
		return fmt.Errorf("marshaling metadata: %w", err)
	}
	path := filepath.Join(f.MetaDir, slug(rec.PaperID)+".yaml")
	return os.WriteFile(path, data, 0o644)
}

func logAttempt(log zerolog.Logger, url string, attempt int, err error) {
	ev := log.Info()
	outcome := "ok"
	if err != nil {
		ev = log.Warn().Err(err)
		outcome = "error"
	}
	ev.Str("url", url).Int("attempt", attempt).Str("outcome", outcome).Msg("download attempt")
}

// slug returns a filesystem-safe filename stem for a paper ID.
func slug(paperID string) string {
	return strings.NewReplacer("/", "-", ":", "-", "\\", "-", " ", "_").Replace(paperID)
}

// syncWriter serializes progress lines from concurrent workers.
type syncWriter struct {
	mu sync.Mutex
	w  io.Writer
}

func (s *syncWriter) Write(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.w.Write(p)
}
