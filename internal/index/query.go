// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package index

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"strings"
)

// Hit is one full-text query result with a highlighted snippet.
type Hit struct {
	PaperID string   `json:"paper_id"`
	Title   string   `json:"title"`
	Authors []string `json:"authors,omitempty"`
	Year    int      `json:"year,omitempty"`
	Venue   string   `json:"venue,omitempty"`
	Snippet string   `json:"snippet"`
	Rank    float64  `json:"-"`
}

// Query runs an FTS5 match over titles, abstracts, and extracted text,
// ranked by relevance. maxResults of zero uses the store default.
func (s *Store) Query(ctx context.Context, query string, maxResults int) ([]Hit, error) {
	if strings.TrimSpace(query) == "" {
		return nil, fmt.Errorf("empty query")
	}
	if maxResults <= 0 {
		maxResults = s.maxResults
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT d.paper_id, p.title, p.authors, p.year, p.venue,
			snippet(docs_fts, 2, '[', ']', '…', 12), docs_fts.rank
		 FROM docs_fts
		 JOIN docs d ON d.rowid = docs_fts.rowid
		 LEFT JOIN papers p ON d.paper_id = p.id
		 WHERE docs_fts MATCH ?
		 ORDER BY docs_fts.rank
		 LIMIT ?`,
		query, maxResults,
	)
	if err != nil {
		return nil, fmt.Errorf("querying index: %w", err)
	}
	defer rows.Close()

	var hits []Hit
	for rows.Next() {
		var (
			h           Hit
			title       sql.NullString
			authorsJSON sql.NullString
			year        sql.NullInt64
			venue       sql.NullString
		)
		if err := rows.Scan(&h.PaperID, &title, &authorsJSON, &year, &venue, &h.Snippet, &h.Rank); err != nil {
			return nil, fmt.Errorf("scanning row: %w", err)
		}
		if title.Valid {
			h.Title = title.String
		}
		if authorsJSON.Valid {
			json.Unmarshal([]byte(authorsJSON.String), &h.Authors)
		}
		if year.Valid {
			h.Year = int(year.Int64)
		}
		if venue.Valid {
			h.Venue = venue.String
		}
		hits = append(hits, h)
	}
	return hits, rows.Err()
}

// FormatHits writes query results as a readable list.
func FormatHits(w io.Writer, hits []Hit) {
	if len(hits) == 0 {
		fmt.Fprintln(w, "no matches")
		return
	}
	for i, h := range hits {
		title := h.Title
		if title == "" {
			title = h.PaperID
		}
		fmt.Fprintf(w, "%2d. %s", i+1, title)
		if h.Year > 0 {
			fmt.Fprintf(w, " (%d)", h.Year)
		}
		fmt.Fprintln(w)
		if h.Snippet != "" {
			fmt.Fprintf(w, "    %s\n", strings.ReplaceAll(h.Snippet, "\n", " "))
		}
	}
}
