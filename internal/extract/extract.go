// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package extract converts stored PDFs into normalized plain text files.
// Extraction is local and deterministic; a malformed PDF fails its own
// record without stopping the batch.
package extract

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"

	"github.com/pdiddy/paper-pipeline/pkg/types"
)

// BatchResult holds the outcome of a batch extraction run.
type BatchResult struct {
	Extracted int
	Skipped   int
	Failed    int
}

// Total returns the number of records processed.
func (r BatchResult) Total() int {
	return r.Extracted + r.Skipped + r.Failed
}

// HasFailures reports whether any records failed.
func (r BatchResult) HasFailures() bool {
	return r.Failed > 0
}

// Extractor turns downloaded PDFs into text files under the data root.
type Extractor struct {
	Cfg    types.ExtractConfig
	OutDir string
	Logger zerolog.Logger
}

// New builds an Extractor writing under dataDir.
func New(cfg types.ExtractConfig, dataDir string, logger zerolog.Logger) *Extractor {
	return &Extractor{
		Cfg:    cfg,
		OutDir: filepath.Join(dataDir, types.ExtractedDir),
		Logger: logger,
	}
}

// ExtractBatch processes every record in the collection in order, mutating
// records in place. Records without a stored PDF are skipped, not failed.
func (e *Extractor) ExtractBatch(col *types.Collection, w io.Writer) BatchResult {
	if err := os.MkdirAll(e.OutDir, 0o755); err != nil {
		fmt.Fprintf(w, "failed:  creating %s (%v)\n", e.OutDir, err)
		return BatchResult{Failed: len(col.Records)}
	}

	var result BatchResult
	for i := range col.Records {
		switch e.extractRecord(&col.Records[i], w) {
		case outcomeExtracted:
			result.Extracted++
		case outcomeSkipped:
			result.Skipped++
		case outcomeFailed:
			result.Failed++
		}
	}

	fmt.Fprintf(w, "\nExtract summary: %d extracted, %d skipped, %d failed (total: %d)\n",
		result.Extracted, result.Skipped, result.Failed, result.Total())
	return result
}

type outcome int

const (
	outcomeExtracted outcome = iota
	outcomeSkipped
	outcomeFailed
)

func (e *Extractor) extractRecord(rec *types.PaperRecord, w io.Writer) outcome {
	log := e.Logger.With().Str("stage", "extract").Str("paper_id", rec.PaperID).Logger()

	if !rec.Extractable() {
		fmt.Fprintf(w, "skipped: %s (no stored pdf)\n", rec.PaperID)
		return outcomeSkipped
	}

	base := strings.TrimSuffix(filepath.Base(rec.PDFPath), filepath.Ext(rec.PDFPath))
	txtPath := filepath.Join(e.OutDir, base+".txt")

	if rec.ExtractionStatus == types.ExtractionSuccess && !e.Cfg.Force {
		existing := rec.TextPath
		if existing == "" {
			existing = txtPath
		}
		if _, err := os.Stat(existing); err == nil {
			fmt.Fprintf(w, "skipped: %s (already extracted)\n", rec.PaperID)
			return outcomeSkipped
		}
	}

	fmt.Fprintf(w, "extracting: %s\n", rec.PaperID)

	text, err := ExtractText(rec.PDFPath, e.Cfg.MaxPages)
	if err == nil && strings.TrimSpace(text) == "" {
		err = fmt.Errorf("no extractable text in %s", filepath.Base(rec.PDFPath))
	}
	if err != nil {
		rec.ExtractionStatus = types.ExtractionFailed
		rec.ExtractionError = err.Error()
		log.Warn().Err(err).Msg("extraction failed")
		fmt.Fprintf(w, "failed:  %s (%v)\n", rec.PaperID, err)
		return outcomeFailed
	}

	text = normalizeText(text)
	if err := os.WriteFile(txtPath, []byte(text), 0o644); err != nil {
		rec.ExtractionStatus = types.ExtractionFailed
		rec.ExtractionError = err.Error()
		log.Warn().Err(err).Msg("writing text file")
		fmt.Fprintf(w, "failed:  %s (%v)\n", rec.PaperID, err)
		return outcomeFailed
	}

	rec.TextPath = txtPath
	rec.ExtractionStatus = types.ExtractionSuccess
	rec.ExtractionError = ""
	log.Info().Str("path", txtPath).Int("chars", len(text)).Msg("extracted")
	fmt.Fprintf(w, "extracted: %s (%d chars)\n", rec.PaperID, len(text))
	return outcomeExtracted
}
