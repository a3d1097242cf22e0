// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package corpus exposes the processed paper corpus as an addressable,
// read-only collection backed by SQLite. Rebuilding the store (Ingest,
// StoreEmbeddings) is an offline concern; no mutation is exposed at
// query time.
package corpus

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"

	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"

	"github.com/pdiddy/scholar-engine/pkg/types"
)

// ErrNotFound is returned when a chunk or paper id is absent from the corpus.
var ErrNotFound = errors.New("not found")

// Store manages the corpus SQLite database.
type Store struct {
	db *sqlx.DB
}

// NewStore opens or creates the corpus database at cfg.DBPath and creates the
// schema if it does not exist.
func NewStore(cfg types.CorpusConfig) (*Store, error) {
	dbPath := cfg.DBPath
	if dbPath == "" {
		dbPath = filepath.Join("corpus", "scholar.db")
	}
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("creating corpus directory: %w", err)
	}

	db, err := sqlx.Open("sqlite3", dbPath+"?_journal_mode=WAL&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	s := &Store{db: db}
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
			arxiv_url TEXT
		)`,
		`CREATE TABLE IF NOT EXISTS chunks (
			id TEXT PRIMARY KEY,
			paper_id TEXT NOT NULL REFERENCES papers(id),
			section TEXT,
			chunk_index INTEGER,
			text TEXT NOT NULL,
			embedding TEXT,
			token_count INTEGER
		)`,
		`CREATE INDEX IF NOT EXISTS idx_chunks_paper_id ON chunks(paper_id)`,
	}
	for _, stmt := range statements {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("executing schema statement: %w", err)
		}
	}
	return nil
}

// chunkRow is the raw database row; JSON columns are decoded into types.Chunk.
type chunkRow struct {
	ID         string         `db:"id"`
	PaperID    string         `db:"paper_id"`
	Section    sql.NullString `db:"section"`
	ChunkIndex int            `db:"chunk_index"`
	Text       string         `db:"text"`
	Embedding  sql.NullString `db:"embedding"`
	TokenCount int            `db:"token_count"`
}

func (r chunkRow) toChunk() (types.Chunk, error) {
	c := types.Chunk{
		ID:         r.ID,
		PaperID:    r.PaperID,
		Section:    r.Section.String,
		Index:      r.ChunkIndex,
		Text:       r.Text,
		TokenCount: r.TokenCount,
	}
	if r.Embedding.Valid && r.Embedding.String != "" {
		if err := json.Unmarshal([]byte(r.Embedding.String), &c.Embedding); err != nil {
			return c, fmt.Errorf("decoding embedding for chunk %s: %w", r.ID, err)
		}
	}
	return c, nil
}

type paperRow struct {
	ID       string         `db:"id"`
	Title    sql.NullString `db:"title"`
	Authors  sql.NullString `db:"authors"`
	ArxivURL sql.NullString `db:"arxiv_url"`
}

func (r paperRow) toPaper() types.Paper {
	p := types.Paper{
		ID:       r.ID,
		Title:    r.Title.String,
		ArxivURL: r.ArxivURL.String,
	}
	if r.Authors.Valid {
		json.Unmarshal([]byte(r.Authors.String), &p.Authors)
	}
	return p
}

// GetChunk returns the chunk with the given id, or ErrNotFound.
func (s *Store) GetChunk(ctx context.Context, id string) (types.Chunk, error) {
	var row chunkRow
	err := s.db.GetContext(ctx, &row,
		`SELECT id, paper_id, section, chunk_index, text, embedding, token_count
		 FROM chunks WHERE id = ?`, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return types.Chunk{}, fmt.Errorf("chunk %s: %w", id, ErrNotFound)
		}
		return types.Chunk{}, fmt.Errorf("querying chunk %s: %w", id, err)
	}
	return row.toChunk()
}

// ChunksForPaper returns all chunks belonging to a paper, in chunk order.
func (s *Store) ChunksForPaper(ctx context.Context, paperID string) ([]types.Chunk, error) {
	var rows []chunkRow
	err := s.db.SelectContext(ctx, &rows,
		`SELECT id, paper_id, section, chunk_index, text, embedding, token_count
		 FROM chunks WHERE paper_id = ? ORDER BY chunk_index`, paperID)
	if err != nil {
		return nil, fmt.Errorf("querying chunks for paper %s: %w", paperID, err)
	}
	chunks := make([]types.Chunk, 0, len(rows))
	for _, r := range rows {
		c, err := r.toChunk()
		if err != nil {
			return nil, err
		}
		chunks = append(chunks, c)
	}
	return chunks, nil
}

// GetPaper returns the paper with the given id, or ErrNotFound.
func (s *Store) GetPaper(ctx context.Context, id string) (types.Paper, error) {
	var row paperRow
	err := s.db.GetContext(ctx, &row,
		`SELECT id, title, authors, arxiv_url FROM papers WHERE id = ?`, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return types.Paper{}, fmt.Errorf("paper %s: %w", id, ErrNotFound)
		}
		return types.Paper{}, fmt.Errorf("querying paper %s: %w", id, err)
	}
	return row.toPaper(), nil
}

// Papers returns all papers in the corpus ordered by id.
func (s *Store) Papers(ctx context.Context) ([]types.Paper, error) {
	var rows []paperRow
	err := s.db.SelectContext(ctx, &rows,
		`SELECT id, title, authors, arxiv_url FROM papers ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("querying papers: %w", err)
	}
	papers := make([]types.Paper, 0, len(rows))
	for _, r := range rows {
		papers = append(papers, r.toPaper())
	}
	return papers, nil
}

// PaperIDSet returns the set of paper ids known to the corpus. The evaluation
// harness uses it to validate ground-truth mappings.
func (s *Store) PaperIDSet(ctx context.Context) (map[string]bool, error) {
	var ids []string
	if err := s.db.SelectContext(ctx, &ids, `SELECT id FROM papers`); err != nil {
		return nil, fmt.Errorf("querying paper ids: %w", err)
	}
	set := make(map[string]bool, len(ids))
	for _, id := range ids {
		set[id] = true
	}
	return set, nil
}

// AllEmbeddings returns the chunk id → vector mapping for every embedded
// chunk. The vector index consumes this at build time.
func (s *Store) AllEmbeddings(ctx context.Context) (map[string][]float32, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, embedding FROM chunks WHERE embedding IS NOT NULL AND embedding != ''`)
	if err != nil {
		return nil, fmt.Errorf("querying embeddings: %w", err)
	}
	defer rows.Close()

	out := make(map[string][]float32)
	for rows.Next() {
		var id, blob string
		if err := rows.Scan(&id, &blob); err != nil {
			return nil, fmt.Errorf("scanning embedding row: %w", err)
		}
		var vec []float32
		if err := json.Unmarshal([]byte(blob), &vec); err != nil {
			return nil, fmt.Errorf("decoding embedding for chunk %s: %w", id, err)
		}
		out[id] = vec
	}
	return out, rows.Err()
}

// MissingEmbeddings returns the chunks that have no stored vector yet, in id
// order, for the embedding backfill.
func (s *Store) MissingEmbeddings(ctx context.Context) ([]types.Chunk, error) {
	var rows []chunkRow
	err := s.db.SelectContext(ctx, &rows,
		`SELECT id, paper_id, section, chunk_index, text, embedding, token_count
		 FROM chunks WHERE embedding IS NULL OR embedding = '' ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("querying unembedded chunks: %w", err)
	}
	chunks := make([]types.Chunk, 0, len(rows))
	for _, r := range rows {
		c, err := r.toChunk()
		if err != nil {
			return nil, err
		}
		chunks = append(chunks, c)
	}
	return chunks, nil
}

// StoreEmbeddings persists vectors for the given chunk ids in one transaction.
func (s *Store) StoreEmbeddings(ctx context.Context, vectors map[string][]float32) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `UPDATE chunks SET embedding = ? WHERE id = ?`)
	if err != nil {
		return fmt.Errorf("preparing update: %w", err)
	}
	defer stmt.Close()

	for id, vec := range vectors {
		blob, err := json.Marshal(vec)
		if err != nil {
			return fmt.Errorf("encoding embedding for chunk %s: %w", id, err)
		}
		res, err := stmt.ExecContext(ctx, string(blob), id)
		if err != nil {
			return fmt.Errorf("storing embedding for chunk %s: %w", id, err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return fmt.Errorf("chunk %s: %w", id, ErrNotFound)
		}
	}
	return tx.Commit()
}

// Stats summarizes the corpus contents.
type Stats struct {
	Papers   int
	Chunks   int
	Embedded int
}

// CorpusStats returns paper, chunk, and embedded-chunk counts.
func (s *Store) CorpusStats(ctx context.Context) (Stats, error) {
	var st Stats
	if err := s.db.GetContext(ctx, &st.Papers, `SELECT count(*) FROM papers`); err != nil {
		return st, fmt.Errorf("counting papers: %w", err)
	}
	if err := s.db.GetContext(ctx, &st.Chunks, `SELECT count(*) FROM chunks`); err != nil {
		return st, fmt.Errorf("counting chunks: %w", err)
	}
	err := s.db.GetContext(ctx, &st.Embedded,
		`SELECT count(*) FROM chunks WHERE embedding IS NOT NULL AND embedding != ''`)
	if err != nil {
		return st, fmt.Errorf("counting embedded chunks: %w", err)
	}
	return st, nil
}

// versionSuffix matches the trailing arXiv version marker (e.g. "v8").
var versionSuffix = regexp.MustCompile(`v\d+$`)

// ArxivURL derives the abstract page URL from a paper id by stripping the
// version suffix. Applied once at the ingestion boundary.
func ArxivURL(paperID string) string {
	if paperID == "" {
		return ""
	}
	return "https://arxiv.org/abs/" + versionSuffix.ReplaceAllString(paperID, "")
}
