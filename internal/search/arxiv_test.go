// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package search

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/pdiddy/paper-pipeline/pkg/types"
)

const arxivFixture = `<?xml version="1.0" encoding="UTF-8"?>
<feed xmlns="http://www.w3.org/2005/Atom">
  <entry>
    <id>http://arxiv.org/abs/1706.03762v7</id>
    <title>Attention Is All You Need</title>
    <summary>The dominant sequence transduction models are based on...</summary>
    <published>2017-06-12T17:57:34Z</published>
    <author><name>Ashish Vaswani</name></author>
    <author><name>Noam Shazeer</name></author>
  </entry>
  <entry>
    <id>http://arxiv.org/abs/2301.07041v1</id>
    <title>Some Newer Paper</title>
    <summary>Abstract text.</summary>
    <published>2023-01-17T12:00:00Z</published>
    <author><name>Jane Doe</name></author>
  </entry>
</feed>`

func arxivServer(t *testing.T, handler http.HandlerFunc) *httptest.Server {
	t.Helper()
	ts := httptest.NewServer(handler)
	t.Cleanup(ts.Close)

	old := arxivAPIBase
	arxivAPIBase = ts.URL
	t.Cleanup(func() { arxivAPIBase = old })
	return ts
}

func TestArxivSearchParsesFeed(t *testing.T) {
	ts := arxivServer(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, arxivFixture)
	})

	b := &ArxivBackend{Client: ts.Client()}
	results, err := b.Search(context.Background(), types.Query{Topic: "attention"}, testCfg())
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("got %d results, want 2", len(results))
	}

	first := results[0]
	if first.Record.PaperID != "arxiv:1706.03762" {
		t.Errorf("PaperID = %q", first.Record.PaperID)
	}
	if first.ArxivID != "1706.03762" {
		t.Errorf("ArxivID = %q", first.ArxivID)
	}
	if first.Record.PDFURL != arxivPDFBase+"1706.03762" {
		t.Errorf("PDFURL = %q", first.Record.PDFURL)
	}
	if first.Record.Year != 2017 {
		t.Errorf("Year = %d", first.Record.Year)
	}
	if len(first.Record.Authors) != 2 {
		t.Errorf("Authors = %v", first.Record.Authors)
	}

	// Position scoring: first entry outranks the second.
	if !(first.Record.RelevanceScore > results[1].Record.RelevanceScore) {
		t.Errorf("scores not descending: %v, %v", first.Record.RelevanceScore, results[1].Record.RelevanceScore)
	}
}

func TestArxivSearchHTTPError(t *testing.T) {
	ts := arxivServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	})

	b := &ArxivBackend{Client: ts.Client()}
	if _, err := b.Search(context.Background(), types.Query{Topic: "x"}, testCfg()); err == nil {
		t.Fatal("expected error for HTTP 503")
	}
}

func TestExtractArxivID(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"http://arxiv.org/abs/2301.07041v1", "2301.07041"},
		{"http://arxiv.org/abs/1706.03762v7", "1706.03762"},
		{"http://arxiv.org/abs/2301.07041", "2301.07041"},
		{"http://example.org/nothing", ""},
	}
	for _, tt := range tests {
		if got := extractArxivID(tt.in); got != tt.want {
			t.Errorf("extractArxivID(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestBuildArxivQuery(t *testing.T) {
	tests := []struct {
		name  string
		query types.Query
		want  string
	}{
		{"topic only", types.Query{Topic: "attention models"}, "all:attention+models"},
		{"author only", types.Query{Author: "Vaswani"}, "au:Vaswani"},
		{"topic and author", types.Query{Topic: "attention", Author: "Vaswani"}, "all:attention+AND+au:Vaswani"},
		{"empty", types.Query{}, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := buildArxivQuery(tt.query); got != tt.want {
				t.Errorf("buildArxivQuery() = %q, want %q", got, tt.want)
			}
		})
	}
}
