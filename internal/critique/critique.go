// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package critique applies rule-based quality checks to generated drafts.
// Every rule is a pure threshold over the draft and its metrics; the draft
// itself is never modified.
package critique

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/pdiddy/paper-pipeline/pkg/types"
)

// DefaultMinSectionLength is the character floor below which a section is
// flagged as too short.
const DefaultMinSectionLength = 40

// Critique evaluates a draft against its record and metrics and returns
// annotations for every rule that fires. A clean draft yields an empty,
// non-nil slice.
func Critique(draft types.Draft, rec *types.PaperRecord, minSectionLength int) []types.Annotation {
	if minSectionLength <= 0 {
		minSectionLength = DefaultMinSectionLength
	}

	anns := []types.Annotation{}

	if m := rec.Metrics; m != nil && m.Words > 0 {
		if m.FleschReading < 40 {
			anns = append(anns, types.Annotation{
				Location:   "draft",
				Issue:      "hard_to_read",
				Suggestion: "Improve readability (shorter sentences, simpler words).",
			})
		}
		if m.FleschKincaid > 14 {
			anns = append(anns, types.Annotation{
				Location:   "draft",
				Issue:      "high_grade_level",
				Suggestion: "Lower grade level: shorter sentences, simpler phrasing.",
			})
		}
		if m.AvgSentenceLen > 25 {
			anns = append(anns, types.Annotation{
				Location:   "draft",
				Issue:      "long_sentences",
				Suggestion: "Split long sentences to improve clarity.",
			})
		}
		if len(m.TopTerms) < 3 {
			anns = append(anns, types.Annotation{
				Location:   "draft",
				Issue:      "thin_keywords",
				Suggestion: "Highlight more domain-specific terms.",
			})
		}
	}

	if strings.TrimSpace(rec.Abstract) == "" {
		anns = append(anns, types.Annotation{
			Location:   "abstract",
			Issue:      "missing_abstract",
			Suggestion: "Add an abstract excerpt to ground the draft.",
		})
	}

	var full strings.Builder
	for _, sec := range draft.Sections() {
		full.WriteString(sec.Text)
		switch {
		case strings.TrimSpace(sec.Text) == "":
			anns = append(anns, types.Annotation{
				Location:   sec.Name,
				Issue:      "missing_section",
				Suggestion: fmt.Sprintf("Add a concise %s summary.", sec.Name),
			})
		case len(sec.Text) < minSectionLength:
			anns = append(anns, types.Annotation{
				Location:   sec.Name,
				Issue:      "short_section",
				Suggestion: fmt.Sprintf("Strengthen the %s section with specifics.", sec.Name),
			})
		}
	}

	if rec.CitationCount > 0 && !strings.Contains(full.String(), strconv.Itoa(rec.CitationCount)) {
		anns = append(anns, types.Annotation{
			Location:   "draft",
			Issue:      "missing_citation_context",
			Suggestion: "Mention citation impact (e.g. citation count or key prior work).",
		})
	}

	return anns
}
