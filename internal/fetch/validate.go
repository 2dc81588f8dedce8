// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package fetch

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"
)

// pdfSignature is the leading file signature every stored PDF must carry.
// Validation is structural: the declared Content-Type is never trusted.
const pdfSignature = "%PDF-"

// maxHTMLSniff caps how much of an HTML body is scanned for a fallback link.
const maxHTMLSniff = 200 * 1024

// hrefPDFPattern finds anchor targets ending in .pdf inside an HTML page.
var hrefPDFPattern = regexp.MustCompile(`(?i)href=["']([^"']+\.pdf)["']`)

// ValidationError reports a payload that failed the structural PDF check.
// DerivedURL, when non-empty, is a heuristic alternate link worth one retry.
type ValidationError struct {
	URL        string
	Reason     string
	DerivedURL string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed for %s: %s", e.URL, e.Reason)
}

// HasPDFSignature reports whether data begins with the PDF file signature.
func HasPDFSignature(data []byte) bool {
	return len(data) >= len(pdfSignature) && string(data[:len(pdfSignature)]) == pdfSignature
}

// looksLikeHTML reports whether data starts like a markup page.
func looksLikeHTML(data []byte) bool {
	head := strings.ToLower(strings.TrimSpace(string(data)))
	return strings.HasPrefix(head, "<!doctype") || strings.HasPrefix(head, "<html") ||
		strings.HasPrefix(head, "<head") || strings.HasPrefix(head, "<?xml")
}

// derivePDFLink returns a heuristic alternate download link for a URL whose
// response was not a PDF: a .pdf href sniffed from the HTML body when one is
// present, otherwise an abstract-page-to-file rewrite (arXiv /abs/ → /pdf/).
// It returns an empty string when no alternate can be derived.
func derivePDFLink(rawURL string, htmlBody []byte) string {
	if len(htmlBody) > maxHTMLSniff {
		htmlBody = htmlBody[:maxHTMLSniff]
	}
	if m := hrefPDFPattern.FindSubmatch(htmlBody); m != nil {
		return resolveHref(rawURL, string(m[1]))
	}
	return rewriteAbstractURL(rawURL)
}

// rewriteAbstractURL maps known abstract-page URLs to direct-file URLs.
func rewriteAbstractURL(rawURL string) string {
	if strings.Contains(rawURL, "arxiv.org/abs/") {
		return strings.Replace(rawURL, "/abs/", "/pdf/", 1)
	}
	return ""
}

// resolveHref resolves href against base, returning href unchanged when it
// is already absolute and empty on parse failure.
func resolveHref(base, href string) string {
	b, err := url.Parse(base)
	if err != nil {
		return ""
	}
	h, err := url.Parse(href)
	if err != nil {
		return ""
	}
	return b.ResolveReference(h).String()
}
