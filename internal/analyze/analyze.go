// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package analyze computes deterministic readability and vocabulary metrics
// for extracted paper text. Everything here is pure computation over the
// input string: no network, no randomness, no filesystem beyond the batch
// driver reading text files.
package analyze

import (
	"fmt"
	"io"
	"math"
	"os"
	"regexp"
	"sort"
	"strings"

	"github.com/rs/zerolog"

	"github.com/pdiddy/paper-pipeline/pkg/types"
)

var (
	wordPattern     = regexp.MustCompile(`[a-zA-Z']+`)
	sentencePattern = regexp.MustCompile(`[.!?]+\s+`)
	alphaPattern    = regexp.MustCompile(`^[a-z]+$`)
)

// sectionPatterns maps canonical section names to the heading words that
// signal them. Detection is best-effort over plain text.
var sectionPatterns = []struct {
	name    string
	pattern *regexp.Regexp
}{
	{"abstract", regexp.MustCompile(`abstract`)},
	{"introduction", regexp.MustCompile(`introduction`)},
	{"methods", regexp.MustCompile(`method|methodology|approach`)},
	{"results", regexp.MustCompile(`result|discussion|findings`)},
	{"conclusion", regexp.MustCompile(`conclusion|future work`)},
}

// Analyze computes the full metrics struct for one text. Empty or trivial
// input yields a fully populated zero-value struct, never an error.
func Analyze(text string, cfg types.AnalyzeConfig) types.Metrics {
	topTerms := cfg.TopTerms
	if topTerms <= 0 {
		topTerms = 10
	}
	topPhrases := cfg.TopPhrases
	if topPhrases <= 0 {
		topPhrases = 5
	}

	words := wordPattern.FindAllString(strings.ToLower(text), -1)
	sentences := splitSentences(text)

	m := types.Metrics{
		Characters:  len(text),
		Words:       len(words),
		Sentences:   len(sentences),
		TopTerms:    []types.TermCount{},
		TopBigrams:  []types.TermCount{},
		TopTrigrams: []types.TermCount{},
		NounPhrases: []string{},
		SectionHits: sectionHits(text),
	}
	if len(words) == 0 {
		return m
	}

	var charSum, syllables int
	for _, w := range words {
		charSum += len(w)
		syllables += estimateSyllables(w)
	}
	m.Syllables = syllables
	m.AvgWordLength = round2(float64(charSum) / float64(len(words)))
	m.TypeTokenRatio = round3(float64(distinct(words)) / float64(len(words)))

	if len(sentences) > 0 {
		m.AvgSentenceLen = round2(float64(len(words)) / float64(len(sentences)))
		wps := float64(len(words)) / float64(len(sentences))
		spw := float64(syllables) / float64(len(words))
		m.FleschReading = round2(206.835 - 1.015*wps - 84.6*spw)
		m.FleschKincaid = round2(0.39*wps + 11.8*spw - 15.59)
	}

	m.TopTerms = topCounts(contentWords(words), topTerms)
	m.TopBigrams = topCounts(ngrams(words, 2), topPhrases)
	m.TopTrigrams = topCounts(ngrams(words, 3), topPhrases)
	m.NounPhrases = terms(topCounts(nounPhraseCandidates(words), topPhrases))
	return m
}

// splitSentences splits on terminal punctuation followed by whitespace and
// drops empty fragments.
func splitSentences(text string) []string {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}
	parts := sentencePattern.Split(text, -1)
	out := parts[:0]
	for _, p := range parts {
		if strings.TrimSpace(p) != "" {
			out = append(out, p)
		}
	}
	return out
}

// estimateSyllables counts vowel groups with a silent trailing-e adjustment.
// Every word counts as at least one syllable.
func estimateSyllables(word string) int {
	word = strings.ToLower(word)
	count := 0
	prevVowel := false
	for _, ch := range word {
		isVowel := strings.ContainsRune("aeiouy", ch)
		if isVowel && !prevVowel {
			count++
		}
		prevVowel = isVowel
	}
	if strings.HasSuffix(word, "e") && count > 1 {
		count--
	}
	if count < 1 {
		count = 1
	}
	return count
}

// contentWords drops stopwords and very short tokens before term ranking.
func contentWords(words []string) []string {
	out := make([]string, 0, len(words))
	for _, w := range words {
		if len(w) > 2 && !stopwords[w] {
			out = append(out, w)
		}
	}
	return out
}

func ngrams(words []string, n int) []string {
	if len(words) < n {
		return nil
	}
	out := make([]string, 0, len(words)-n+1)
	for i := 0; i+n <= len(words); i++ {
		out = append(out, strings.Join(words[i:i+n], " "))
	}
	return out
}

// nounPhraseCandidates keeps bigrams and trigrams whose words are all
// alphabetic and longer than two characters. A crude stand-in for real
// phrase chunking, but deterministic and dependency-free.
func nounPhraseCandidates(words []string) []string {
	var out []string
	for _, n := range []int{2, 3} {
		for i := 0; i+n <= len(words); i++ {
			ok := true
			for _, w := range words[i : i+n] {
				if len(w) <= 2 || !alphaPattern.MatchString(w) {
					ok = false
					break
				}
			}
			if ok {
				out = append(out, strings.Join(words[i:i+n], " "))
			}
		}
	}
	return out
}

// topCounts ranks items by frequency. Ties break lexicographically so the
// output is stable across runs.
func topCounts(items []string, k int) []types.TermCount {
	counts := make(map[string]int, len(items))
	for _, it := range items {
		counts[it]++
	}
	ranked := make([]types.TermCount, 0, len(counts))
	for term, n := range counts {
		ranked = append(ranked, types.TermCount{Term: term, Count: n})
	}
	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].Count != ranked[j].Count {
			return ranked[i].Count > ranked[j].Count
		}
		return ranked[i].Term < ranked[j].Term
	})
	if len(ranked) > k {
		ranked = ranked[:k]
	}
	return ranked
}

func terms(tc []types.TermCount) []string {
	out := make([]string, len(tc))
	for i, t := range tc {
		out[i] = t.Term
	}
	return out
}

// sectionHits reports which canonical paper sections appear in the text, in
// canonical order. Best-effort: headings in running text also match.
func sectionHits(text string) []string {
	lower := strings.ToLower(text)
	hits := []string{}
	for _, sp := range sectionPatterns {
		if sp.pattern.MatchString(lower) {
			hits = append(hits, sp.name)
		}
	}
	return hits
}

func distinct(words []string) int {
	seen := make(map[string]struct{}, len(words))
	for _, w := range words {
		seen[w] = struct{}{}
	}
	return len(seen)
}

func round2(x float64) float64 { return math.Round(x*100) / 100 }
func round3(x float64) float64 { return math.Round(x*1000) / 1000 }

// BatchResult holds the outcome of a batch analysis run.
type BatchResult struct {
	Analyzed int
	Skipped  int
	Failed   int
}

// Total returns the number of records processed.
func (r BatchResult) Total() int {
	return r.Analyzed + r.Skipped + r.Failed
}

// HasFailures reports whether any records failed.
func (r BatchResult) HasFailures() bool {
	return r.Failed > 0
}

// AnalyzeBatch computes metrics for every record with extracted text,
// mutating records in place. Records without text are skipped; an unreadable
// text file fails only its own record.
func AnalyzeBatch(col *types.Collection, cfg types.AnalyzeConfig, logger zerolog.Logger, w io.Writer) BatchResult {
	var result BatchResult
	for i := range col.Records {
		rec := &col.Records[i]
		log := logger.With().Str("stage", "analyze").Str("paper_id", rec.PaperID).Logger()

		if rec.ExtractionStatus != types.ExtractionSuccess || rec.TextPath == "" {
			fmt.Fprintf(w, "skipped: %s (no extracted text)\n", rec.PaperID)
			result.Skipped++
			continue
		}

		data, err := os.ReadFile(rec.TextPath)
		if err != nil {
			log.Warn().Err(err).Msg("reading extracted text")
			fmt.Fprintf(w, "failed:  %s (%v)\n", rec.PaperID, err)
			result.Failed++
			continue
		}

		m := Analyze(string(data), cfg)
		rec.Metrics = &m
		log.Info().Int("words", m.Words).Float64("reading_ease", m.FleschReading).Msg("analyzed")
		fmt.Fprintf(w, "analyzed: %s (%d words)\n", rec.PaperID, m.Words)
		result.Analyzed++
	}

	fmt.Fprintf(w, "\nAnalyze summary: %d analyzed, %d skipped, %d failed (total: %d)\n",
		result.Analyzed, result.Skipped, result.Failed, result.Total())
	return result
}
