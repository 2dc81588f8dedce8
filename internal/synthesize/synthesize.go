// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package synthesize

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/rs/zerolog"

	"github.com/pdiddy/paper-pipeline/internal/critique"
	"github.com/pdiddy/paper-pipeline/pkg/types"
)

// BatchResult holds the outcome of a batch synthesis run.
type BatchResult struct {
	Drafted  int
	Skipped  int
	Failed   int
	FellBack int
}

// Total returns the number of records processed.
func (r BatchResult) Total() int {
	return r.Drafted + r.Skipped + r.Failed
}

// HasFailures reports whether any records failed.
func (r BatchResult) HasFailures() bool {
	return r.Failed > 0
}

// Synthesizer drafts and critiques analyzed records.
type Synthesizer struct {
	Gen      Generator
	Fallback Generator
	Cfg      types.SynthesizeConfig
	Logger   zerolog.Logger
}

// New builds a Synthesizer, selecting the generation strategy from config.
// The template strategy is always kept as the fallback.
func New(cfg types.SynthesizeConfig, client *http.Client, logger zerolog.Logger) *Synthesizer {
	return &Synthesizer{
		Gen:      NewGenerator(cfg.LLM, client, logger),
		Fallback: &TemplateGenerator{},
		Cfg:      cfg,
		Logger:   logger,
	}
}

// SynthesizeBatch drafts every analyzed record in order, attaching the draft
// and its critique in place. Generation-service errors demote the record to
// the template strategy rather than failing it.
func (s *Synthesizer) SynthesizeBatch(ctx context.Context, col *types.Collection, w io.Writer) BatchResult {
	var result BatchResult
	for i := range col.Records {
		rec := &col.Records[i]
		log := s.Logger.With().Str("stage", "synthesize").Str("paper_id", rec.PaperID).Logger()

		if rec.Metrics == nil {
			fmt.Fprintf(w, "skipped: %s (not analyzed)\n", rec.PaperID)
			result.Skipped++
			continue
		}

		draft, err := s.Gen.GenerateDraft(ctx, rec)
		if err != nil && s.Gen.Name() != s.Fallback.Name() {
			log.Warn().Err(err).Msg("generation service failed, falling back to template")
			result.FellBack++
			draft, err = s.Fallback.GenerateDraft(ctx, rec)
		}
		if err != nil {
			log.Warn().Err(err).Msg("draft generation failed")
			fmt.Fprintf(w, "failed:  %s (%v)\n", rec.PaperID, err)
			result.Failed++
			continue
		}

		rec.Draft = &draft
		rec.Critique = critique.Critique(draft, rec, s.Cfg.MinSectionLength)
		log.Info().Str("generator", draft.Generator).Int("annotations", len(rec.Critique)).Msg("drafted")
		fmt.Fprintf(w, "drafted: %s (%s, %d annotations)\n", rec.PaperID, draft.Generator, len(rec.Critique))
		result.Drafted++
	}

	fmt.Fprintf(w, "\nSynthesize summary: %d drafted, %d skipped, %d failed (total: %d)\n",
		result.Drafted, result.Skipped, result.Failed, result.Total())
	return result
}

// References builds the aggregated cross-paper reference list in an APA-like
// "Authors (Year). Title. Venue." format, in collection order. Records
// without a title are left out.
func References(col *types.Collection) []types.Reference {
	refs := []types.Reference{}
	for i := range col.Records {
		rec := &col.Records[i]
		if rec.Title == "" {
			continue
		}
		refs = append(refs, types.Reference{
			PaperID:   rec.PaperID,
			Formatted: formatReference(rec),
		})
	}
	return refs
}

func formatReference(rec *types.PaperRecord) string {
	var sb strings.Builder
	if len(rec.Authors) > 0 {
		sb.WriteString(formatAuthors(rec.Authors))
		sb.WriteString(" ")
	}
	if rec.Year > 0 {
		fmt.Fprintf(&sb, "(%d). ", rec.Year)
	} else {
		sb.WriteString("(n.d.). ")
	}
	sb.WriteString(rec.Title)
	sb.WriteString(".")
	if rec.Venue != "" {
		sb.WriteString(" ")
		sb.WriteString(rec.Venue)
		sb.WriteString(".")
	}
	return sb.String()
}

// formatAuthors joins up to three author names, eliding the rest.
func formatAuthors(authors []string) string {
	if len(authors) > 3 {
		return strings.Join(authors[:3], ", ") + ", et al."
	}
	return strings.Join(authors, ", ")
}
