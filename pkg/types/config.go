// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import "time"

// HTTPConfig holds shared HTTP settings used by stages that make network requests.
type HTTPConfig struct {
	// Timeout is the HTTP request timeout.
	Timeout time.Duration `json:"timeout" yaml:"timeout" mapstructure:"timeout"`

	// UserAgent is the User-Agent header sent with HTTP requests
	// (e.g. "paper-pipeline/0.1").
	UserAgent string `json:"user_agent" yaml:"user_agent" mapstructure:"user_agent"`
}

// RetryConfig is the single backoff policy shared by fetch and the LLM
// client: bounded attempts with exponential backoff and jitter.
type RetryConfig struct {
	// MaxAttempts is the total number of tries, including the first (default 3).
	MaxAttempts int `json:"max_attempts" yaml:"max_attempts" mapstructure:"max_attempts"`

	// BaseDelay is the delay before the second attempt (default 1s).
	BaseDelay time.Duration `json:"base_delay" yaml:"base_delay" mapstructure:"base_delay"`

	// MaxDelay caps the backoff (default 30s).
	MaxDelay time.Duration `json:"max_delay" yaml:"max_delay" mapstructure:"max_delay"`

	// Multiplier scales the delay between attempts (default 2.0).
	Multiplier float64 `json:"multiplier" yaml:"multiplier" mapstructure:"multiplier"`

	// Jitter is the fraction of the delay randomized per attempt (default 0.1).
	Jitter float64 `json:"jitter" yaml:"jitter" mapstructure:"jitter"`
}

// SearchConfig holds settings for the search stage.
type SearchConfig struct {
	HTTPConfig `yaml:",inline" mapstructure:",squash"`

	// MaxResults is the maximum number of records to return (default 20).
	MaxResults int `json:"max_results" yaml:"max_results" mapstructure:"max_results"`

	// EnableSemanticScholar controls whether the Semantic Scholar backend is used.
	EnableSemanticScholar bool `json:"enable_semantic_scholar" yaml:"enable_semantic_scholar" mapstructure:"enable_semantic_scholar"`

	// EnableArxiv controls whether the arXiv backend is used.
	EnableArxiv bool `json:"enable_arxiv" yaml:"enable_arxiv" mapstructure:"enable_arxiv"`

	// SemanticScholarAPIKey is an optional API key for higher rate limits.
	SemanticScholarAPIKey string `json:"semantic_scholar_api_key,omitempty" yaml:"semantic_scholar_api_key,omitempty" mapstructure:"semantic_scholar_api_key"`
}

// Query holds the user-facing search parameters.
type Query struct {
	// Topic is the free-text research topic.
	Topic string `json:"topic" yaml:"topic"`

	// Author filters by author name (optional).
	Author string `json:"author,omitempty" yaml:"author,omitempty"`

	// YearMin and YearMax bound the publication year (0 means unbounded).
	YearMin int `json:"year_min,omitempty" yaml:"year_min,omitempty"`
	YearMax int `json:"year_max,omitempty" yaml:"year_max,omitempty"`

	// MinCitations drops results below this citation count (0 means no filter).
	MinCitations int `json:"min_citations,omitempty" yaml:"min_citations,omitempty"`
}

// IsEmpty reports whether the query contains no searchable terms.
func (q Query) IsEmpty() bool {
	return q.Topic == "" && q.Author == ""
}

// FetchConfig holds settings for the fetch stage.
type FetchConfig struct {
	HTTPConfig `yaml:",inline" mapstructure:",squash"`

	// Retry is the bounded-retry policy for downloads.
	Retry RetryConfig `json:"retry" yaml:"retry" mapstructure:"retry"`

	// Workers is the size of the download worker pool (default 1).
	Workers int `json:"workers" yaml:"workers" mapstructure:"workers"`

	// RatePerSecond caps the request rate shared across workers (default 1).
	RatePerSecond float64 `json:"rate_per_second" yaml:"rate_per_second" mapstructure:"rate_per_second"`

	// MaxBytes caps a single download size (default 50 MiB).
	MaxBytes int64 `json:"max_bytes" yaml:"max_bytes" mapstructure:"max_bytes"`

	// Force re-downloads records that already succeeded.
	Force bool `json:"force" yaml:"force" mapstructure:"force"`
}

// ExtractConfig holds settings for the extract stage.
type ExtractConfig struct {
	// MaxPages bounds how many pages are read per PDF (0 means all).
	MaxPages int `json:"max_pages" yaml:"max_pages" mapstructure:"max_pages"`

	// Force re-extracts records that already have text.
	Force bool `json:"force" yaml:"force" mapstructure:"force"`
}

// AnalyzeConfig holds settings for the analyze stage.
type AnalyzeConfig struct {
	// TopTerms is how many frequency-ranked terms to keep (default 10).
	TopTerms int `json:"top_terms" yaml:"top_terms" mapstructure:"top_terms"`

	// TopPhrases is how many n-grams and noun phrases to keep (default 5).
	TopPhrases int `json:"top_phrases" yaml:"top_phrases" mapstructure:"top_phrases"`
}

// LLMConfig holds settings for the optional generation service. The service
// is a drop-in replacement for the deterministic template path; absence of a
// credential is an expected, non-fatal condition.
type LLMConfig struct {
	// BaseURL is the chat-completions endpoint base
	// (default "https://api.openai.com/v1").
	BaseURL string `json:"base_url" yaml:"base_url" mapstructure:"base_url"`

	// Model is the model identifier (e.g. "gpt-4.1-mini").
	Model string `json:"model" yaml:"model" mapstructure:"model"`

	// APIKey authenticates requests. Empty selects the template path.
	APIKey string `json:"api_key,omitempty" yaml:"api_key,omitempty" mapstructure:"api_key"`

	// MaxTokens bounds the generated text per section (default 800).
	MaxTokens int `json:"max_tokens" yaml:"max_tokens" mapstructure:"max_tokens"`

	// Timeout is the per-request timeout (default 30s).
	Timeout time.Duration `json:"timeout" yaml:"timeout" mapstructure:"timeout"`

	// Retry is the bounded-retry policy for generation calls.
	Retry RetryConfig `json:"retry" yaml:"retry" mapstructure:"retry"`
}

// SynthesizeConfig holds settings for the synthesize stage.
type SynthesizeConfig struct {
	// LLM configures the optional generation service.
	LLM LLMConfig `json:"llm" yaml:"llm" mapstructure:"llm"`

	// MinSectionLength is the critique threshold for short sections (default 40).
	MinSectionLength int `json:"min_section_length" yaml:"min_section_length" mapstructure:"min_section_length"`
}

// IndexConfig holds settings for the SQLite index.
type IndexConfig struct {
	// MaxResults is the default maximum number of query results (default 20).
	MaxResults int `json:"max_results" yaml:"max_results" mapstructure:"max_results"`
}

// PipelineConfig groups all stage configurations plus the data root layout.
type PipelineConfig struct {
	// DataDir is the root directory for pipeline state
	// (contains pdfs/, extracted/, metadata/, index/, logs/).
	DataDir string `json:"data_dir" yaml:"data_dir" mapstructure:"data_dir"`

	Search     SearchConfig     `json:"search" yaml:"search" mapstructure:"search"`
	Fetch      FetchConfig      `json:"fetch" yaml:"fetch" mapstructure:"fetch"`
	Extract    ExtractConfig    `json:"extract" yaml:"extract" mapstructure:"extract"`
	Analyze    AnalyzeConfig    `json:"analyze" yaml:"analyze" mapstructure:"analyze"`
	Synthesize SynthesizeConfig `json:"synthesize" yaml:"synthesize" mapstructure:"synthesize"`
	Index      IndexConfig      `json:"index" yaml:"index" mapstructure:"index"`
}

// Data layout subdirectories under DataDir.
const (
	PDFDir       = "pdfs"
	ExtractedDir = "extracted"
	MetadataDir  = "metadata"
	IndexDir     = "index"
	LogDir       = "logs"

	// CollectionFile is the JSON collection name under MetadataDir.
	CollectionFile = "papers.json"
)
