// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package index persists the paper collection into SQLite and builds a
// full-text retrieval index over titles, abstracts, and extracted text.
package index

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/pdiddy/paper-pipeline/pkg/types"
)

const dbFile = "papers.db"

// Store manages the paper index SQLite database.
type Store struct {
	db         *sql.DB
	maxResults int
}

// NewStore opens or creates the index database at dataDir/index/papers.db
// and ensures the schema exists.
func NewStore(cfg types.IndexConfig, dataDir string) (*Store, error) {
	dbDir := filepath.Join(dataDir, types.IndexDir)
	if err := os.MkdirAll(dbDir, 0o755); err != nil {
		return nil, fmt.Errorf("creating index directory: %w", err)
	}

	dbPath := filepath.Join(dbDir, dbFile)
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	maxResults := cfg.MaxResults
	if maxResults <= 0 {
		maxResults = 20
	}

	s := &Store{db: db, maxResults: maxResults}
	if err := s.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}
	return s, nil
}

// Close releases the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) createSchema() error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS papers (
			id TEXT PRIMARY KEY,
			title TEXT,
			authors TEXT,
			year INTEGER,
			venue TEXT,
			citation_count INTEGER,
			relevance REAL,
			abstract TEXT,
			pdf_path TEXT,
			text_path TEXT,
			download_status TEXT,
			extraction_status TEXT
		)`,
		`CREATE TABLE IF NOT EXISTS docs (
			rowid INTEGER PRIMARY KEY AUTOINCREMENT,
			paper_id TEXT NOT NULL UNIQUE REFERENCES papers(id),
			title TEXT,
			abstract TEXT,
			body TEXT
		)`,
		`CREATE TABLE IF NOT EXISTS indexing_status (
			paper_id TEXT PRIMARY KEY,
			fingerprint TEXT
		)`,
	}
	for _, stmt := range statements {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("executing schema statement: %w", err)
		}
	}

	// FTS5 virtual table with triggers for sync.
	var ftsExists int
	if err := s.db.QueryRow(
		`SELECT count(*) FROM sqlite_master WHERE type='table' AND name='docs_fts'`,
	).Scan(&ftsExists); err != nil {
		return fmt.Errorf("checking FTS table: %w", err)
	}
	if ftsExists == 0 {
		ftsStatements := []string{
			`CREATE VIRTUAL TABLE docs_fts USING fts5(title, abstract, body, content=docs, content_rowid=rowid)`,
			`CREATE TRIGGER docs_ai AFTER INSERT ON docs BEGIN
				INSERT INTO docs_fts(rowid, title, abstract, body) VALUES (new.rowid, new.title, new.abstract, new.body);
			END`,
			`CREATE TRIGGER docs_ad AFTER DELETE ON docs BEGIN
				INSERT INTO docs_fts(docs_fts, rowid, title, abstract, body) VALUES('delete', old.rowid, old.title, old.abstract, old.body);
			END`,
			`CREATE TRIGGER docs_au AFTER UPDATE ON docs BEGIN
				INSERT INTO docs_fts(docs_fts, rowid, title, abstract, body) VALUES('delete', old.rowid, old.title, old.abstract, old.body);
				INSERT INTO docs_fts(rowid, title, abstract, body) VALUES (new.rowid, new.title, new.abstract, new.body);
			END`,
		}
		for _, stmt := range ftsStatements {
			if _, err := s.db.Exec(stmt); err != nil {
				return fmt.Errorf("creating FTS infrastructure: %w", err)
			}
		}
	}
	return nil
}

// SyncSummary holds counts from an index sync run.
type SyncSummary struct {
	Indexed int
	Updated int
	Skipped int
	Failed  int
}

// Total returns the number of records processed.
func (s SyncSummary) Total() int {
	return s.Indexed + s.Updated + s.Skipped + s.Failed
}

// Sync mirrors the collection into the database. Unchanged records are
// detected through a per-record fingerprint and skipped; changed records
// replace their previous rows inside one transaction each.
func (s *Store) Sync(ctx context.Context, col *types.Collection, w io.Writer) (SyncSummary, error) {
	var summary SyncSummary

	for i := range col.Records {
		rec := &col.Records[i]

		select {
		case <-ctx.Done():
			return summary, ctx.Err()
		default:
		}

		fp := fingerprint(rec)

		var stored string
		err := s.db.QueryRowContext(ctx,
			`SELECT fingerprint FROM indexing_status WHERE paper_id = ?`, rec.PaperID,
		).Scan(&stored)
		if err == nil && stored == fp {
			fmt.Fprintf(w, "skipped %s\n", rec.PaperID)
			summary.Skipped++
			continue
		}
		isUpdate := err == nil

		body := ""
		if rec.TextPath != "" {
			data, readErr := os.ReadFile(rec.TextPath)
			if readErr == nil {
				body = string(data)
			}
		}

		if err := s.syncRecord(ctx, rec, body, fp); err != nil {
			fmt.Fprintf(w, "failed  %s: %v\n", rec.PaperID, err)
			summary.Failed++
			continue
		}

		if isUpdate {
			fmt.Fprintf(w, "updated %s\n", rec.PaperID)
			summary.Updated++
		} else {
			fmt.Fprintf(w, "indexing %s\n", rec.PaperID)
			summary.Indexed++
		}
	}

	fmt.Fprintf(w, "\nindexed: %d, updated: %d, skipped: %d, failed: %d\n",
		summary.Indexed, summary.Updated, summary.Skipped, summary.Failed)
	return summary, nil
}

func (s *Store) syncRecord(ctx context.Context, rec *types.PaperRecord, body, fp string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	authorsJSON, _ := json.Marshal(rec.Authors)
	_, err = tx.ExecContext(ctx,
		`INSERT INTO papers (id, title, authors, year, venue, citation_count, relevance,
			abstract, pdf_path, text_path, download_status, extraction_status)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET
			title=excluded.title, authors=excluded.authors, year=excluded.year,
			venue=excluded.venue, citation_count=excluded.citation_count,
			relevance=excluded.relevance, abstract=excluded.abstract,
			pdf_path=excluded.pdf_path, text_path=excluded.text_path,
			download_status=excluded.download_status,
			extraction_status=excluded.extraction_status`,
		rec.PaperID, rec.Title, string(authorsJSON), rec.Year, rec.Venue,
		rec.CitationCount, rec.RelevanceScore, rec.Abstract, rec.PDFPath,
		rec.TextPath, string(rec.DownloadStatus), string(rec.ExtractionStatus),
	)
	if err != nil {
		return fmt.Errorf("upserting paper: %w", err)
	}

	// Replace the searchable document; the FTS triggers keep the index
	// in step.
	if _, err := tx.ExecContext(ctx, `DELETE FROM docs WHERE paper_id = ?`, rec.PaperID); err != nil {
		return fmt.Errorf("deleting old document: %w", err)
	}
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO docs (paper_id, title, abstract, body) VALUES (?, ?, ?, ?)`,
		rec.PaperID, rec.Title, rec.Abstract, body,
	); err != nil {
		return fmt.Errorf("inserting document: %w", err)
	}

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO indexing_status (paper_id, fingerprint) VALUES (?, ?)
		 ON CONFLICT(paper_id) DO UPDATE SET fingerprint=excluded.fingerprint`,
		rec.PaperID, fp,
	); err != nil {
		return fmt.Errorf("updating indexing status: %w", err)
	}

	return tx.Commit()
}

// fingerprint captures the record fields and text-file state that affect
// the index, so unchanged records can be skipped.
func fingerprint(rec *types.PaperRecord) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "%s|%s|%d|%d|%s|%s|%s",
		rec.Title, rec.Venue, rec.Year, rec.CitationCount,
		rec.DownloadStatus, rec.ExtractionStatus, rec.SHA256)
	if rec.TextPath != "" {
		if info, err := os.Stat(rec.TextPath); err == nil {
			fmt.Fprintf(&sb, "|%s|%d", info.ModTime().UTC().Format(time.RFC3339Nano), info.Size())
		}
	}
	return sb.String()
}
