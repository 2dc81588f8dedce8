// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package analyze

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"

	"github.com/pdiddy/paper-pipeline/pkg/types"
)

func TestAnalyzeBasicCounts(t *testing.T) {
	text := "Transformers process sequences. Transformers attend globally."
	m := Analyze(text, types.AnalyzeConfig{})

	if m.Characters != len(text) {
		t.Errorf("Characters = %d, want %d", m.Characters, len(text))
	}
	if m.Words != 6 {
		t.Errorf("Words = %d, want 6", m.Words)
	}
	if m.Sentences != 2 {
		t.Errorf("Sentences = %d, want 2", m.Sentences)
	}
	if m.Syllables != 16 {
		t.Errorf("Syllables = %d, want 16", m.Syllables)
	}
	if m.AvgWordLength != 9.0 {
		t.Errorf("AvgWordLength = %v, want 9.0", m.AvgWordLength)
	}
	if m.AvgSentenceLen != 3.0 {
		t.Errorf("AvgSentenceLen = %v, want 3.0", m.AvgSentenceLen)
	}
	if m.TypeTokenRatio != 0.833 {
		t.Errorf("TypeTokenRatio = %v, want 0.833", m.TypeTokenRatio)
	}
	if m.FleschReading != -21.81 {
		t.Errorf("FleschReading = %v, want -21.81", m.FleschReading)
	}
	if m.FleschKincaid != 17.05 {
		t.Errorf("FleschKincaid = %v, want 17.05", m.FleschKincaid)
	}
}

func TestAnalyzeTermRanking(t *testing.T) {
	text := "Transformers process sequences. Transformers attend globally."
	m := Analyze(text, types.AnalyzeConfig{})

	if len(m.TopTerms) != 5 {
		t.Fatalf("TopTerms has %d entries, want 5", len(m.TopTerms))
	}
	if m.TopTerms[0].Term != "transformers" || m.TopTerms[0].Count != 2 {
		t.Errorf("TopTerms[0] = %+v, want transformers x2", m.TopTerms[0])
	}
	// Ties break alphabetically so output is stable.
	if m.TopTerms[1].Term != "attend" {
		t.Errorf("TopTerms[1] = %+v, want attend", m.TopTerms[1])
	}

	if len(m.TopBigrams) != 5 {
		t.Errorf("TopBigrams has %d entries, want 5", len(m.TopBigrams))
	}
	if len(m.TopTrigrams) != 4 {
		t.Errorf("TopTrigrams has %d entries, want 4", len(m.TopTrigrams))
	}
}

func TestAnalyzeFiltersStopwords(t *testing.T) {
	m := Analyze("the model and the data with the model", types.AnalyzeConfig{})
	for _, tc := range m.TopTerms {
		if stopwords[tc.Term] {
			t.Errorf("TopTerms contains stopword %q", tc.Term)
		}
	}
	if len(m.TopTerms) == 0 || m.TopTerms[0].Term != "model" || m.TopTerms[0].Count != 2 {
		t.Errorf("TopTerms = %+v, want model x2 first", m.TopTerms)
	}
}

func TestAnalyzeEmptyText(t *testing.T) {
	for _, text := range []string{"", "   ", "\n\t\n"} {
		m := Analyze(text, types.AnalyzeConfig{})
		if m.Words != 0 || m.Sentences != 0 || m.Syllables != 0 {
			t.Errorf("Analyze(%q) produced nonzero counts: %+v", text, m)
		}
		if m.FleschReading != 0 || m.FleschKincaid != 0 {
			t.Errorf("Analyze(%q) produced nonzero readability: %+v", text, m)
		}
		if m.TopTerms == nil || m.TopBigrams == nil || m.TopTrigrams == nil || m.NounPhrases == nil || m.SectionHits == nil {
			t.Errorf("Analyze(%q) left a nil slice: %+v", text, m)
		}
	}
}

func TestAnalyzeDeterministic(t *testing.T) {
	text := "Neural networks learn representations. Deep neural networks learn hierarchies of features."
	first := Analyze(text, types.AnalyzeConfig{})
	for i := 0; i < 5; i++ {
		again := Analyze(text, types.AnalyzeConfig{})
		if len(again.TopTerms) != len(first.TopTerms) {
			t.Fatalf("run %d: TopTerms length changed", i)
		}
		for j := range first.TopTerms {
			if again.TopTerms[j] != first.TopTerms[j] {
				t.Fatalf("run %d: TopTerms[%d] = %+v, want %+v", i, j, again.TopTerms[j], first.TopTerms[j])
			}
		}
	}
}

func TestEstimateSyllables(t *testing.T) {
	tests := []struct {
		word string
		want int
	}{
		{"cat", 1},
		{"hello", 2},
		{"code", 1},     // silent trailing e
		{"the", 1},      // trailing e kept when it is the only syllable
		{"idea", 2},     // adjacent vowels form one group
		{"bcd", 1},      // floor of one
		{"rhythm", 1},   // y counts as a vowel
		{"network", 2},
		{"attention", 3},
	}
	for _, tt := range tests {
		if got := estimateSyllables(tt.word); got != tt.want {
			t.Errorf("estimateSyllables(%q) = %d, want %d", tt.word, got, tt.want)
		}
	}
}

func TestSectionHits(t *testing.T) {
	text := "Abstract\nWe study attention.\n1 Introduction\n2 Methodology\n3 Results\n4 Conclusion\n"
	hits := sectionHits(text)
	want := []string{"abstract", "introduction", "methods", "results", "conclusion"}
	if len(hits) != len(want) {
		t.Fatalf("sectionHits = %v, want %v", hits, want)
	}
	for i := range want {
		if hits[i] != want[i] {
			t.Errorf("sectionHits[%d] = %q, want %q", i, hits[i], want[i])
		}
	}

	if got := sectionHits("nothing structural in this text"); len(got) != 0 {
		t.Errorf("sectionHits on plain text = %v, want empty", got)
	}
}

func TestNounPhraseCandidates(t *testing.T) {
	words := []string{"deep", "learning", "models", "it's", "ok"}
	cands := nounPhraseCandidates(words)
	for _, c := range cands {
		if c == "models it's" || c == "it's ok" {
			t.Errorf("candidate %q contains a non-alphabetic or short token", c)
		}
	}
	found := false
	for _, c := range cands {
		if c == "deep learning models" {
			found = true
		}
	}
	if !found {
		t.Errorf("candidates %v missing %q", cands, "deep learning models")
	}
}

func TestAnalyzeBatch(t *testing.T) {
	dir := t.TempDir()
	txtPath := filepath.Join(dir, "paper-a.txt")
	if err := os.WriteFile(txtPath, []byte("Attention mechanisms weigh inputs. Attention scales well."), 0o644); err != nil {
		t.Fatal(err)
	}

	col := &types.Collection{Records: []types.PaperRecord{
		{PaperID: "paper-a", ExtractionStatus: types.ExtractionSuccess, TextPath: txtPath},
		{PaperID: "paper-b", ExtractionStatus: types.ExtractionFailed},
		{PaperID: "paper-c", ExtractionStatus: types.ExtractionSuccess, TextPath: filepath.Join(dir, "missing.txt")},
	}}

	var buf bytes.Buffer
	result := AnalyzeBatch(col, types.AnalyzeConfig{}, zerolog.Nop(), &buf)

	if result.Analyzed != 1 || result.Skipped != 1 || result.Failed != 1 {
		t.Fatalf("result = %+v, want 1/1/1", result)
	}
	a := col.Find("paper-a")
	if a.Metrics == nil || a.Metrics.Words != 7 {
		t.Errorf("paper-a metrics = %+v, want 7 words", a.Metrics)
	}
	if col.Find("paper-b").Metrics != nil {
		t.Error("skipped record gained metrics")
	}
	if col.Find("paper-c").Metrics != nil {
		t.Error("failed record gained metrics")
	}
}
