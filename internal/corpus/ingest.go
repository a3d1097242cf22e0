// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package corpus

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
)

// ChunkRecord is one entry in a processed chunk dump. Paper metadata rides
// along with each chunk; papers are reconstructed during ingestion.
type ChunkRecord struct {
	ID         string   `json:"id"`
	PaperID    string   `json:"paper_id"`
	PaperTitle string   `json:"paper_title"`
	Authors    []string `json:"authors"`
	Section    string   `json:"section"`
	ChunkIndex int      `json:"chunk_index"`
	Text       string   `json:"text"`
	TokenCount int      `json:"token_count"`
}

// IngestSummary holds counts from a corpus ingestion run.
type IngestSummary struct {
	Papers  int
	Chunks  int
	Skipped int
}

// Ingest loads a JSON chunk dump into the corpus. Papers are upserted from
// the metadata carried on their chunks; chunks replace any previous chunk
// with the same id. Records without a paper id or text are skipped with a
// note on w. The whole load runs in one transaction.
func (s *Store) Ingest(ctx context.Context, chunksPath string, w io.Writer) (IngestSummary, error) {
	data, err := os.ReadFile(chunksPath)
	if err != nil {
		return IngestSummary{}, fmt.Errorf("reading chunk dump %s: %w", chunksPath, err)
	}

	var records []ChunkRecord
	if err := json.Unmarshal(data, &records); err != nil {
		return IngestSummary{}, fmt.Errorf("parsing chunk dump %s: %w", chunksPath, err)
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return IngestSummary{}, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	paperStmt, err := tx.PrepareContext(ctx,
		`INSERT INTO papers (id, title, authors, arxiv_url) VALUES (?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET
			title=excluded.title, authors=excluded.authors, arxiv_url=excluded.arxiv_url`)
	if err != nil {
		return IngestSummary{}, fmt.Errorf("preparing paper upsert: %w", err)
	}
	defer paperStmt.Close()

	chunkStmt, err := tx.PrepareContext(ctx,
		`INSERT OR REPLACE INTO chunks (id, paper_id, section, chunk_index, text, token_count)
		 VALUES (?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return IngestSummary{}, fmt.Errorf("preparing chunk insert: %w", err)
	}
	defer chunkStmt.Close()

	var summary IngestSummary
	seenPapers := make(map[string]bool)

	for i, rec := range records {
		select {
		case <-ctx.Done():
			return summary, ctx.Err()
		default:
		}

		if rec.PaperID == "" || strings.TrimSpace(rec.Text) == "" {
			fmt.Fprintf(w, "skipped record %d: missing paper_id or text\n", i)
			summary.Skipped++
			continue
		}

		if !seenPapers[rec.PaperID] {
			authorsJSON, _ := json.Marshal(rec.Authors)
			_, err := paperStmt.ExecContext(ctx,
				rec.PaperID, rec.PaperTitle, string(authorsJSON), ArxivURL(rec.PaperID))
			if err != nil {
				return summary, fmt.Errorf("upserting paper %s: %w", rec.PaperID, err)
			}
			seenPapers[rec.PaperID] = true
			summary.Papers++
		}

		chunkID := rec.ID
		if chunkID == "" {
			chunkID = fmt.Sprintf("%s-%04d", rec.PaperID, rec.ChunkIndex)
		}
		tokens := rec.TokenCount
		if tokens == 0 {
			tokens = len(strings.Fields(rec.Text))
		}

		_, err := chunkStmt.ExecContext(ctx,
			chunkID, rec.PaperID, rec.Section, rec.ChunkIndex, rec.Text, tokens)
		if err != nil {
			return summary, fmt.Errorf("inserting chunk %s: %w", chunkID, err)
		}
		summary.Chunks++
	}

	if err := tx.Commit(); err != nil {
		return summary, fmt.Errorf("committing ingestion: %w", err)
	}

	fmt.Fprintf(w, "\npapers: %d, chunks: %d, skipped: %d\n",
		summary.Papers, summary.Chunks, summary.Skipped)
	return summary, nil
}
