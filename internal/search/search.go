// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package search queries bibliographic APIs and returns unified, deduplicated
// paper records ready for the fetch stage.
package search

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"
	"unicode"

	"github.com/pdiddy/paper-pipeline/pkg/types"
)

// Backend searches a single bibliographic API. Each backend (Semantic
// Scholar, arXiv) implements this interface per the Strategy pattern.
type Backend interface {
	Name() string
	Search(ctx context.Context, query types.Query, cfg types.SearchConfig) ([]Result, error)
}

// Result is one backend hit: the candidate record plus the external
// identifiers used for cross-backend dedup.
type Result struct {
	Record  types.PaperRecord
	ArxivID string
	DOI     string
}

// Output holds the merged results and per-backend statistics.
type Output struct {
	Records       []types.PaperRecord
	DupsRemoved   int
	FilteredOut   int
	BackendErrors []string
}

// Search fans the query out to all backends concurrently, deduplicates and
// filters the hits, ranks them, and returns the top MaxResults records. A
// failing backend is reported as a warning, not an error; Search fails only
// when the query is empty, no backends are configured, or every backend
// fails.
func Search(ctx context.Context, query types.Query, backends []Backend, cfg types.SearchConfig, w io.Writer) (Output, error) {
	if query.IsEmpty() {
		return Output{}, fmt.Errorf("query is empty: provide a topic or author")
	}
	if len(backends) == 0 {
		return Output{}, fmt.Errorf("no search backends configured")
	}

	type backendResult struct {
		results []Result
		err     error
		name    string
	}

	ch := make(chan backendResult, len(backends))
	var wg sync.WaitGroup

	for _, b := range backends {
		wg.Add(1)
		go func(b Backend) {
			defer wg.Done()
			results, err := b.Search(ctx, query, cfg)
			ch <- backendResult{results: results, err: err, name: b.Name()}
		}(b)
	}

	go func() {
		wg.Wait()
		close(ch)
	}()

	var all []Result
	var backendErrors []string
	for br := range ch {
		if br.err != nil {
			backendErrors = append(backendErrors, fmt.Sprintf("%s: %v", br.name, br.err))
			fmt.Fprintf(w, "warning: backend %s failed: %v\n", br.name, br.err)
			continue
		}
		all = append(all, br.results...)
	}

	if len(backendErrors) == len(backends) {
		return Output{BackendErrors: backendErrors}, fmt.Errorf("all search backends failed")
	}

	deduped, removed := deduplicate(all)
	filtered, dropped := applyFilters(deduped, query)

	sort.SliceStable(filtered, func(i, j int) bool {
		return filtered[i].RelevanceScore > filtered[j].RelevanceScore
	})

	if cfg.MaxResults > 0 && len(filtered) > cfg.MaxResults {
		filtered = filtered[:cfg.MaxResults]
	}

	return Output{
		Records:       filtered,
		DupsRemoved:   removed,
		FilteredOut:   dropped,
		BackendErrors: backendErrors,
	}, nil
}

// deduplicate merges hits that share an external identifier or a normalized
// title, preferring filled fields and the higher relevance score.
func deduplicate(results []Result) ([]types.PaperRecord, int) {
	seen := make(map[string]int) // dedup key → index in deduped
	var deduped []types.PaperRecord
	removed := 0

	for _, r := range results {
		var keys []string
		if r.ArxivID != "" {
			keys = append(keys, "arxiv:"+r.ArxivID)
		}
		if r.DOI != "" {
			keys = append(keys, "doi:"+strings.ToLower(r.DOI))
		}
		if t := normalizeTitle(r.Record.Title); t != "" {
			keys = append(keys, "title:"+t)
		}

		idx := -1
		for _, k := range keys {
			if i, ok := seen[k]; ok {
				idx = i
				break
			}
		}

		if idx >= 0 {
			mergeInto(&deduped[idx], r.Record)
			removed++
		} else {
			idx = len(deduped)
			deduped = append(deduped, r.Record)
		}

		for _, k := range keys {
			seen[k] = idx
		}
	}
	return deduped, removed
}

// mergeInto fills empty fields of dst from src and keeps the higher score.
func mergeInto(dst *types.PaperRecord, src types.PaperRecord) {
	if dst.Title == "" {
		dst.Title = src.Title
	}
	if len(dst.Authors) == 0 {
		dst.Authors = src.Authors
	}
	if dst.Abstract == "" {
		dst.Abstract = src.Abstract
	}
	if dst.Year == 0 {
		dst.Year = src.Year
	}
	if dst.Venue == "" {
		dst.Venue = src.Venue
	}
	if dst.CitationCount == 0 {
		dst.CitationCount = src.CitationCount
	}
	if dst.InfluentialCitationCount == 0 {
		dst.InfluentialCitationCount = src.InfluentialCitationCount
	}
	if dst.PDFURL == "" {
		dst.PDFURL = src.PDFURL
	}
	if dst.URL == "" {
		dst.URL = src.URL
	}
	if src.RelevanceScore > dst.RelevanceScore {
		dst.RelevanceScore = src.RelevanceScore
	}
	if dst.Source != src.Source && src.Source != "" && !strings.Contains(dst.Source, src.Source) {
		dst.Source = dst.Source + "," + src.Source
	}
}

// applyFilters drops records failing the year-range or citation filters.
// Records with unknown year or citation data fail an active filter, matching
// the search API's own behavior for structured filters.
func applyFilters(records []types.PaperRecord, q types.Query) ([]types.PaperRecord, int) {
	if q.YearMin == 0 && q.YearMax == 0 && q.MinCitations == 0 {
		return records, 0
	}

	kept := records[:0]
	dropped := 0
	for _, r := range records {
		if q.YearMin > 0 && r.Year < q.YearMin {
			dropped++
			continue
		}
		if q.YearMax > 0 && (r.Year == 0 || r.Year > q.YearMax) {
			dropped++
			continue
		}
		if q.MinCitations > 0 && r.CitationCount < q.MinCitations {
			dropped++
			continue
		}
		kept = append(kept, r)
	}
	return kept, dropped
}

// normalizeTitle returns a lowercased, punctuation-stripped version of the title.
func normalizeTitle(title string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(title) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || unicode.IsSpace(r) {
			b.WriteRune(r)
		}
	}
	return strings.Join(strings.Fields(b.String()), " ")
}

// positionScore assigns a rank-based relevance score in [0.1, 1.0].
func positionScore(i, total int) float64 {
	if total <= 1 {
		return 1.0
	}
	return 1.0 - float64(i)/float64(total-1)*0.9
}

// FormatTable writes records as a human-readable table to w.
func FormatTable(out Output, w io.Writer) {
	if len(out.Records) == 0 {
		fmt.Fprintln(w, "No results found.")
		return
	}

	fmt.Fprintf(w, "%-4s  %-60s  %-20s  %-4s  %-5s  %-6s  %s\n",
		"Rank", "Title", "Authors", "Year", "Cites", "Score", "Source")
	fmt.Fprintln(w, strings.Repeat("-", 116))

	for i, r := range out.Records {
		title := r.Title
		if len(title) > 60 {
			title = title[:57] + "..."
		}
		year := ""
		if r.Year > 0 {
			year = fmt.Sprintf("%d", r.Year)
		}
		fmt.Fprintf(w, "%-4d  %-60s  %-20s  %-4s  %-5d  %-6.2f  %s\n",
			i+1, title, formatAuthors(r.Authors), year, r.CitationCount, r.RelevanceScore, r.Source)
	}

	fmt.Fprintf(w, "\n%d results", len(out.Records))
	if out.DupsRemoved > 0 {
		fmt.Fprintf(w, " (%d duplicates removed)", out.DupsRemoved)
	}
	if out.FilteredOut > 0 {
		fmt.Fprintf(w, " (%d filtered out)", out.FilteredOut)
	}
	fmt.Fprintln(w)
}

// FormatJSON writes records as indented JSON to w.
func FormatJSON(out Output, w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(out.Records)
}

func formatAuthors(authors []string) string {
	switch len(authors) {
	case 0:
		return ""
	case 1:
		return truncate(authors[0], 20)
	default:
		return truncate(authors[0], 14) + " et al."
	}
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max-3] + "..."
}
