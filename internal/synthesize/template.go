// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package synthesize

import (
	"bytes"
	"context"
	"fmt"
	"strconv"
	"strings"
	"text/template"

	"github.com/pdiddy/paper-pipeline/pkg/types"
)

// Section templates for the deterministic strategy. Substitution only: all
// selection logic lives in buildView so output is reproducible byte for byte.
var (
	abstractTmpl = template.Must(template.New("abstract").Parse(
		`{{.Title}} ({{.Year}}){{if .Citations}} (citations: {{.Citations}}){{end}}. ` +
			`Content profile: ~{{.Words}} words; avg sentence {{.AvgSentenceLen}} words; Flesch {{.FleschReading}}. ` +
			`Key terms: {{.KeyTerms}}. Abstract: {{.Abstract}}`))

	methodsTmpl = template.Must(template.New("methods").Parse(
		`This work addresses {{.MainPhrase}}{{if .Secondary}} with focus on {{.Secondary}}{{end}}. ` +
			`{{if .MethodTerms}}The method centers on {{.MethodTerms}}.{{else}}The paper applies standard deep learning and NLP techniques.{{end}}`))

	resultsTmpl = template.Must(template.New("results").Parse(
		`Findings are summarized from the extracted text ({{.Sentences}} sentences, reading ease {{.FleschReading}}). ` +
			`Highlight key results and evaluation metrics where the source text provides them.`))
)

// templateView is the flattened data handed to the section templates.
type templateView struct {
	Title          string
	Year           string
	Citations      int
	Abstract       string
	Words          int
	Sentences      int
	AvgSentenceLen float64
	FleschReading  float64
	KeyTerms       string
	MainPhrase     string
	Secondary      string
	MethodTerms    string
}

// TemplateGenerator is the deterministic offline strategy.
type TemplateGenerator struct{}

func (g *TemplateGenerator) Name() string { return "template" }

// GenerateDraft renders all three sections from metadata and metrics. It
// never errors: missing fields fall back to fixed placeholder phrases.
func (g *TemplateGenerator) GenerateDraft(_ context.Context, rec *types.PaperRecord) (types.Draft, error) {
	view := buildView(rec)

	draft := types.Draft{Generator: g.Name()}
	for _, sec := range []struct {
		tmpl *template.Template
		out  *string
	}{
		{abstractTmpl, &draft.Abstract},
		{methodsTmpl, &draft.Methods},
		{resultsTmpl, &draft.Results},
	} {
		var buf bytes.Buffer
		if err := sec.tmpl.Execute(&buf, view); err != nil {
			return types.Draft{}, fmt.Errorf("rendering %s template: %w", sec.tmpl.Name(), err)
		}
		*sec.out = buf.String()
	}
	return draft, nil
}

func buildView(rec *types.PaperRecord) templateView {
	v := templateView{
		Title:     rec.Title,
		Year:      "n.d.",
		Citations: rec.CitationCount,
		Abstract:  rec.Abstract,
	}
	if v.Title == "" {
		v.Title = "Untitled"
	}
	if rec.Year > 0 {
		v.Year = strconv.Itoa(rec.Year)
	}
	if v.Abstract == "" {
		v.Abstract = "Abstract not available."
	}

	keyTerms := []string{}
	if m := rec.Metrics; m != nil {
		v.Words = m.Words
		v.Sentences = m.Sentences
		v.AvgSentenceLen = m.AvgSentenceLen
		v.FleschReading = m.FleschReading

		for _, t := range m.TopTerms {
			keyTerms = append(keyTerms, t.Term)
			if len(keyTerms) == 5 {
				break
			}
		}
		if len(m.NounPhrases) > 0 {
			v.MainPhrase = m.NounPhrases[0]
		}

		methodTerms := []string{}
		for _, b := range m.TopBigrams {
			methodTerms = append(methodTerms, b.Term)
			if len(methodTerms) == 2 {
				break
			}
		}
		v.MethodTerms = strings.Join(methodTerms, ", ")
	}

	v.KeyTerms = strings.Join(keyTerms, ", ")
	if v.KeyTerms == "" {
		v.KeyTerms = "(no dominant terms)"
	}
	if v.MainPhrase == "" {
		if len(keyTerms) > 0 {
			v.MainPhrase = keyTerms[0]
		} else {
			v.MainPhrase = "the main topic"
		}
	}
	if len(keyTerms) > 1 {
		end := 3
		if end > len(keyTerms) {
			end = len(keyTerms)
		}
		v.Secondary = strings.Join(keyTerms[1:end], ", ")
	}
	return v
}
