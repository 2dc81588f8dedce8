// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// Collection is the persisted JSON envelope every stage reads and writes.
// Records are keyed by PaperID; no stage ever removes a record.
type Collection struct {
	// GeneratedAt is the time the envelope was last written.
	GeneratedAt time.Time `json:"generated_at"`

	// Total is the record count, kept in sync by Save.
	Total int `json:"total"`

	// Records holds every paper the pipeline has seen, in insertion order.
	Records []PaperRecord `json:"records"`
}

// LoadCollection reads the collection at path. A missing file yields an
// empty collection; a file that exists but cannot be read or parsed is a
// batch-fatal configuration error.
func LoadCollection(path string) (*Collection, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return &Collection{}, nil
		}
		return nil, fmt.Errorf("reading collection %s: %w", path, err)
	}

	var c Collection
	if err := json.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("parsing collection %s: %w", path, err)
	}
	return &c, nil
}

// Save writes the collection to path via a temp file and rename, updating
// GeneratedAt and Total.
func (c *Collection) Save(path string) error {
	c.GeneratedAt = time.Now().UTC()
	c.Total = len(c.Records)

	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling collection: %w", err)
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating directory %s: %w", dir, err)
	}

	tmp, err := os.CreateTemp(dir, ".collection-*.tmp")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	tmpPath := tmp.Name()

	_, writeErr := tmp.Write(data)
	closeErr := tmp.Close()
	if writeErr != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("writing collection: %w", writeErr)
	}
	if closeErr != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("closing temp file: %w", closeErr)
	}

	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("renaming temp file: %w", err)
	}
	return nil
}

// Find returns a pointer to the record with the given PaperID, or nil.
// Stages mutate records in place through this pointer.
func (c *Collection) Find(paperID string) *PaperRecord {
	for i := range c.Records {
		if c.Records[i].PaperID == paperID {
			return &c.Records[i]
		}
	}
	return nil
}

// Merge folds search results into the collection. New records are appended;
// for existing records only empty descriptive fields are filled, so fields
// populated by an earlier search stay immutable and acquisition and derived
// fields are untouched. It returns the number of records added.
func (c *Collection) Merge(records []PaperRecord) int {
	added := 0
	for _, r := range records {
		existing := c.Find(r.PaperID)
		if existing == nil {
			if r.DownloadStatus == "" {
				r.DownloadStatus = DownloadPending
			}
			c.Records = append(c.Records, r)
			added++
			continue
		}

		if existing.Title == "" {
			existing.Title = r.Title
		}
		if len(existing.Authors) == 0 {
			existing.Authors = r.Authors
		}
		if existing.Abstract == "" {
			existing.Abstract = r.Abstract
		}
		if existing.Year == 0 {
			existing.Year = r.Year
		}
		if existing.Venue == "" {
			existing.Venue = r.Venue
		}
		if existing.CitationCount == 0 {
			existing.CitationCount = r.CitationCount
		}
		if existing.PDFURL == "" {
			existing.PDFURL = r.PDFURL
		}
		if r.RelevanceScore > existing.RelevanceScore {
			existing.RelevanceScore = r.RelevanceScore
		}
	}
	return added
}
