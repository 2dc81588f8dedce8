// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

// TermCount pairs a term with its frequency.
type TermCount struct {
	Term  string `json:"term" yaml:"term"`
	Count int    `json:"count" yaml:"count"`
}

// Metrics holds the deterministic text statistics computed by analyze.
// All fields have defined zero values; empty input text produces a fully
// populated struct rather than an error.
type Metrics struct {
	Characters      int     `json:"characters" yaml:"characters"`
	Words           int     `json:"words" yaml:"words"`
	Sentences       int     `json:"sentences" yaml:"sentences"`
	Syllables       int     `json:"syllables" yaml:"syllables"`
	AvgWordLength   float64 `json:"avg_word_length" yaml:"avg_word_length"`
	AvgSentenceLen  float64 `json:"avg_sentence_length" yaml:"avg_sentence_length"`
	TypeTokenRatio  float64 `json:"type_token_ratio" yaml:"type_token_ratio"`
	FleschReading   float64 `json:"flesch_reading_ease" yaml:"flesch_reading_ease"`
	FleschKincaid   float64 `json:"flesch_kincaid_grade" yaml:"flesch_kincaid_grade"`

	// TopTerms are the most frequent words after stopword filtering.
	TopTerms []TermCount `json:"top_terms" yaml:"top_terms"`

	// TopBigrams and TopTrigrams are the most frequent word n-grams.
	TopBigrams  []TermCount `json:"top_bigrams" yaml:"top_bigrams"`
	TopTrigrams []TermCount `json:"top_trigrams" yaml:"top_trigrams"`

	// NounPhrases are heuristic noun-phrase candidates (alphabetic n-grams).
	NounPhrases []string `json:"noun_phrases" yaml:"noun_phrases"`

	// SectionHits records which canonical section headings (abstract,
	// methods, results, ...) were spotted in the text. Best-effort only;
	// no downstream stage depends on it.
	SectionHits []string `json:"section_hits,omitempty" yaml:"section_hits,omitempty"`
}
