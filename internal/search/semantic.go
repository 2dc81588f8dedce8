// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package search

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/pdiddy/paper-pipeline/internal/retry"
	"github.com/pdiddy/paper-pipeline/pkg/types"
)

// semanticAPIBase is the Semantic Scholar paper search endpoint. Declared
// as a var so tests can substitute an httptest server.
var semanticAPIBase = "https://api.semanticscholar.org/graph/v1/paper/search"

const semanticFields = "paperId,title,abstract,authors,year,venue,citationCount,influentialCitationCount,externalIds,openAccessPdf,url"

// SemanticScholarBackend queries the Semantic Scholar graph API. It is the
// default backend: its paperId becomes the record's stable PaperID.
type SemanticScholarBackend struct {
	Client *http.Client
	APIKey string
	Retry  retry.Policy
}

// Name returns the backend identifier.
func (b *SemanticScholarBackend) Name() string { return "semantic_scholar" }

// Search queries the Semantic Scholar API and returns results. HTTP 429 and
// 5xx responses are retried under the shared policy; other failures are not.
func (b *SemanticScholarBackend) Search(ctx context.Context, query types.Query, cfg types.SearchConfig) ([]Result, error) {
	q := buildSemanticQuery(query)
	if q == "" {
		return nil, fmt.Errorf("empty Semantic Scholar query")
	}

	maxResults := cfg.MaxResults
	if maxResults <= 0 {
		maxResults = 20
	}

	params := url.Values{
		"query": {q},
		// Over-fetch so client-side filters still leave enough results.
		"limit":  {fmt.Sprintf("%d", maxResults*2)},
		"fields": {semanticFields},
	}
	if yr := buildYearRange(query.YearMin, query.YearMax); yr != "" {
		params.Set("year", yr)
	}

	reqURL := semanticAPIBase + "?" + params.Encode()

	var sr semanticResponse
	err := b.Retry.Do(ctx, func(attempt int) error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
		if err != nil {
			return retry.Permanent(fmt.Errorf("creating request: %w", err))
		}
		req.Header.Set("User-Agent", cfg.UserAgent)
		if b.APIKey != "" {
			req.Header.Set("x-api-key", b.APIKey)
		}

		resp, err := b.Client.Do(req)
		if err != nil {
			return fmt.Errorf("Semantic Scholar API request: %w", err)
		}
		defer resp.Body.Close()

		if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
			return fmt.Errorf("Semantic Scholar API returned HTTP %d", resp.StatusCode)
		}
		if resp.StatusCode != http.StatusOK {
			return retry.Permanent(fmt.Errorf("Semantic Scholar API returned HTTP %d", resp.StatusCode))
		}

		if err := json.NewDecoder(resp.Body).Decode(&sr); err != nil {
			return retry.Permanent(fmt.Errorf("parsing Semantic Scholar response: %w", err))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	total := len(sr.Data)
	var results []Result
	for i, paper := range sr.Data {
		if paper.PaperID == "" {
			continue
		}

		rec := types.PaperRecord{
			PaperID:                  paper.PaperID,
			Title:                    strings.TrimSpace(paper.Title),
			Abstract:                 strings.TrimSpace(paper.Abstract),
			Year:                     paper.Year,
			Venue:                    paper.Venue,
			CitationCount:            paper.CitationCount,
			InfluentialCitationCount: paper.InfluentialCitationCount,
			URL:                      paper.URL,
			Source:                   "semantic_scholar",
			DownloadStatus:           types.DownloadPending,
			RelevanceScore:           positionScore(i, total),
		}

		for _, a := range paper.Authors {
			rec.Authors = append(rec.Authors, a.Name)
		}

		// Resolve a candidate PDF link: open-access location first, then
		// the arXiv PDF endpoint when an arXiv ID is known.
		if paper.OpenAccessPDF != nil && paper.OpenAccessPDF.URL != "" {
			rec.PDFURL = paper.OpenAccessPDF.URL
		} else if paper.ExternalIDs.ArXiv != "" {
			rec.PDFURL = arxivPDFBase + paper.ExternalIDs.ArXiv
		}

		results = append(results, Result{
			Record:  rec,
			ArxivID: paper.ExternalIDs.ArXiv,
			DOI:     paper.ExternalIDs.DOI,
		})
	}
	return results, nil
}

// buildSemanticQuery combines topic and author into a search string.
func buildSemanticQuery(q types.Query) string {
	var parts []string
	if q.Topic != "" {
		parts = append(parts, q.Topic)
	}
	if q.Author != "" {
		parts = append(parts, q.Author)
	}
	return strings.Join(parts, " ")
}

// buildYearRange formats the year filter for the API ("2018-2022", "2018-", "-2022").
func buildYearRange(yearMin, yearMax int) string {
	switch {
	case yearMin > 0 && yearMax > 0:
		return fmt.Sprintf("%d-%d", yearMin, yearMax)
	case yearMin > 0:
		return fmt.Sprintf("%d-", yearMin)
	case yearMax > 0:
		return fmt.Sprintf("-%d", yearMax)
	default:
		return ""
	}
}

// Semantic Scholar API JSON structures.
type semanticResponse struct {
	Total int             `json:"total"`
	Data  []semanticPaper `json:"data"`
}

type semanticPaper struct {
	PaperID                  string              `json:"paperId"`
	Title                    string              `json:"title"`
	Abstract                 string              `json:"abstract"`
	Year                     int                 `json:"year"`
	Venue                    string              `json:"venue"`
	CitationCount            int                 `json:"citationCount"`
	InfluentialCitationCount int                 `json:"influentialCitationCount"`
	URL                      string              `json:"url"`
	Authors                  []semanticAuthor    `json:"authors"`
	ExternalIDs              semanticExternalIDs `json:"externalIds"`
	OpenAccessPDF            *semanticOpenAccess `json:"openAccessPdf"`
}

type semanticAuthor struct {
	Name string `json:"name"`
}

type semanticExternalIDs struct {
	ArXiv string `json:"ArXiv"`
	DOI   string `json:"DOI"`
}

type semanticOpenAccess struct {
	URL string `json:"url"`
}
