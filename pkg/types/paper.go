// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package types defines shared data structures for the paper-pipeline stages.
// A PaperRecord is the unit entity: created by search, filled in by fetch,
// extract, analyze, and synthesize, and never deleted. Collections of records
// are persisted as JSON envelopes under the data root.
package types

// DownloadStatus tracks PDF acquisition for a record. It transitions
// pending → success or pending → failed exactly once and is never reverted.
type DownloadStatus string

const (
	DownloadPending DownloadStatus = "pending"
	DownloadSuccess DownloadStatus = "success"
	DownloadFailed  DownloadStatus = "failed"
)

// ExtractionStatus tracks text extraction for a record.
type ExtractionStatus string

const (
	ExtractionNone    ExtractionStatus = ""
	ExtractionSuccess ExtractionStatus = "success"
	ExtractionFailed  ExtractionStatus = "failed"
)

// PaperRecord holds everything the pipeline knows about one paper.
// Descriptive fields are set by search and immutable afterwards; acquisition
// fields are set by fetch; derived fields by extract, analyze, and synthesize.
type PaperRecord struct {
	// PaperID is the stable identifier assigned by the search API. It is
	// the dedup and join key across all stages.
	PaperID string `json:"paper_id" yaml:"paper_id"`

	// Title is the paper title.
	Title string `json:"title" yaml:"title"`

	// Authors lists the paper authors in source order.
	Authors []string `json:"authors,omitempty" yaml:"authors,omitempty"`

	// Abstract is the paper abstract as reported by the search API.
	Abstract string `json:"abstract,omitempty" yaml:"abstract,omitempty"`

	// Year is the publication year (0 if unknown).
	Year int `json:"year,omitempty" yaml:"year,omitempty"`

	// Venue is the journal or conference name.
	Venue string `json:"venue,omitempty" yaml:"venue,omitempty"`

	// CitationCount is the total citation count at search time.
	CitationCount int `json:"citation_count" yaml:"citation_count"`

	// InfluentialCitationCount is the influential-citation count at search time.
	InfluentialCitationCount int `json:"influential_citation_count,omitempty" yaml:"influential_citation_count,omitempty"`

	// Source identifies which backend(s) produced the record
	// (e.g. "semantic_scholar", "arxiv", "semantic_scholar,arxiv").
	Source string `json:"source,omitempty" yaml:"source,omitempty"`

	// URL is the landing page for the paper, when the API reports one.
	URL string `json:"url,omitempty" yaml:"url,omitempty"`

	// RelevanceScore is the search ranking score in [0, 1].
	RelevanceScore float64 `json:"relevance_score,omitempty" yaml:"relevance_score,omitempty"`

	// PDFURL is the candidate download link, empty when none is resolvable.
	PDFURL string `json:"pdf_url,omitempty" yaml:"pdf_url,omitempty"`

	// PDFPath is the local path of the stored PDF, set by fetch on success.
	PDFPath string `json:"pdf_path,omitempty" yaml:"pdf_path,omitempty"`

	// DownloadStatus tracks acquisition: pending, success, or failed.
	DownloadStatus DownloadStatus `json:"download_status" yaml:"download_status"`

	// FetchError records why acquisition failed. Empty on success.
	FetchError string `json:"fetch_error,omitempty" yaml:"fetch_error,omitempty"`

	// SHA256 is the hex content digest of the stored PDF.
	SHA256 string `json:"sha256,omitempty" yaml:"sha256,omitempty"`

	// FileSize is the stored PDF size in bytes.
	FileSize int64 `json:"file_size,omitempty" yaml:"file_size,omitempty"`

	// TextPath is the local path of the extracted plain text.
	TextPath string `json:"text_path,omitempty" yaml:"text_path,omitempty"`

	// ExtractionStatus tracks text extraction: success or failed.
	ExtractionStatus ExtractionStatus `json:"extraction_status,omitempty" yaml:"extraction_status,omitempty"`

	// ExtractionError records why extraction failed. Empty on success.
	ExtractionError string `json:"extraction_error,omitempty" yaml:"extraction_error,omitempty"`

	// Metrics holds the lexical and readability statistics from analyze.
	Metrics *Metrics `json:"metrics,omitempty" yaml:"metrics,omitempty"`

	// Draft holds the templated section text from synthesize.
	Draft *Draft `json:"draft,omitempty" yaml:"draft,omitempty"`

	// Critique lists rule-based annotations over the draft.
	Critique []Annotation `json:"critique,omitempty" yaml:"critique,omitempty"`
}

// Downloadable reports whether fetch should attempt this record: it has a
// candidate link and has not already reached a terminal download state.
func (p *PaperRecord) Downloadable() bool {
	return p.PDFURL != "" && p.DownloadStatus == DownloadPending
}

// Extractable reports whether extract and later stages may process this record.
func (p *PaperRecord) Extractable() bool {
	return p.DownloadStatus == DownloadSuccess && p.PDFPath != ""
}
