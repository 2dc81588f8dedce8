// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package fetch

import (
	"strings"
	"testing"
)

func TestHasPDFSignature(t *testing.T) {
	tests := []struct {
		name string
		data string
		want bool
	}{
		{"valid header", "%PDF-1.4\n%binary", true},
		{"valid minimal", "%PDF-", true},
		{"html page", "<!DOCTYPE html><html>", false},
		{"truncated", "%PDF", false},
		{"empty", "", false},
		{"signature offset", " %PDF-1.4", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := HasPDFSignature([]byte(tt.data)); got != tt.want {
				t.Errorf("HasPDFSignature(%q) = %v, want %v", tt.data, got, tt.want)
			}
		})
	}
}

func TestLooksLikeHTML(t *testing.T) {
	tests := []struct {
		name string
		data string
		want bool
	}{
		{"doctype", "<!DOCTYPE html>", true},
		{"doctype lowercase", "<!doctype html>", true},
		{"html tag", "<html lang=\"en\">", true},
		{"leading whitespace", "\n\t <html>", true},
		{"xml prolog", "<?xml version=\"1.0\"?>", true},
		{"pdf bytes", "%PDF-1.7", false},
		{"plain text", "not a web page", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := looksLikeHTML([]byte(tt.data)); got != tt.want {
				t.Errorf("looksLikeHTML(%q) = %v, want %v", tt.data, got, tt.want)
			}
		})
	}
}

func TestDerivePDFLink(t *testing.T) {
	tests := []struct {
		name string
		url  string
		body string
		want string
	}{
		{
			name: "relative href resolved against base",
			url:  "https://example.org/papers/view/42",
			body: `<html><a href="/files/paper42.pdf">Download</a></html>`,
			want: "https://example.org/files/paper42.pdf",
		},
		{
			name: "absolute href kept",
			url:  "https://example.org/view",
			body: `<a href='https://cdn.example.org/p.pdf'>PDF</a>`,
			want: "https://cdn.example.org/p.pdf",
		},
		{
			name: "first href wins",
			url:  "https://example.org/",
			body: `<a href="/a.pdf">a</a><a href="/b.pdf">b</a>`,
			want: "https://example.org/a.pdf",
		},
		{
			name: "arxiv abstract rewrite when no href",
			url:  "https://arxiv.org/abs/1706.03762",
			body: "<html><body>Abstract page</body></html>",
			want: "https://arxiv.org/pdf/1706.03762",
		},
		{
			name: "nothing derivable",
			url:  "https://example.org/landing",
			body: "<html><body>No direct link here</body></html>",
			want: "",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := derivePDFLink(tt.url, []byte(tt.body)); got != tt.want {
				t.Errorf("derivePDFLink() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestDerivePDFLinkSniffCap(t *testing.T) {
	// A link buried past the sniff cap must not be found.
	body := strings.Repeat("x", maxHTMLSniff) + `<a href="/late.pdf">late</a>`
	if got := derivePDFLink("https://example.org/", []byte(body)); got != "" {
		t.Errorf("derivePDFLink() = %q, want empty past sniff cap", got)
	}
}

func TestRewriteAbstractURL(t *testing.T) {
	tests := []struct {
		url  string
		want string
	}{
		{"https://arxiv.org/abs/2301.00001v2", "https://arxiv.org/pdf/2301.00001v2"},
		{"http://arxiv.org/abs/1706.03762", "http://arxiv.org/pdf/1706.03762"},
		{"https://example.org/abs/123", ""},
		{"https://arxiv.org/pdf/1706.03762", ""},
	}
	for _, tt := range tests {
		if got := rewriteAbstractURL(tt.url); got != tt.want {
			t.Errorf("rewriteAbstractURL(%q) = %q, want %q", tt.url, got, tt.want)
		}
	}
}
