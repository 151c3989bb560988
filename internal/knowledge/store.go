// Package knowledge maintains the local vector index of astrology reference
// documents and serves similarity search for prompt grounding.
package knowledge

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"sort"
	"sync"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/Jasperb3/TransitReader/internal/embedding"
)

// Store is the SQLite-backed vector index. Embeddings are stored as JSON
// arrays and scored with cosine similarity in Go; the corpus is a few
// thousand chunks at most, well under the point where an ANN index pays.
type Store struct {
	db *sql.DB
	mu sync.RWMutex
}

// Result is one search hit.
type Result struct {
	Source  string
	Content string
	Score   float64
}

const schema = `
CREATE TABLE IF NOT EXISTS chunks (
	id         TEXT PRIMARY KEY,
	source     TEXT NOT NULL,
	ordinal    INTEGER NOT NULL,
	content    TEXT NOT NULL,
	embedding  TEXT NOT NULL,
	created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
);
CREATE INDEX IF NOT EXISTS idx_chunks_source ON chunks(source);
`

// Open opens or creates the index at path. Use ":memory:" for tests.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open knowledge index: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("init knowledge schema: %w", err)
	}
	return &Store{db: db}, nil
}

// Close releases the database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

// HasSource reports whether any chunks from the named source document are
// already indexed. Dedup key for ingestion.
func (s *Store) HasSource(ctx context.Context, source string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var n int
	err := s.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM chunks WHERE source = ?", source).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("check source %q: %w", source, err)
	}
	return n > 0, nil
}

// DeleteSource removes every chunk of a source, for reindexing after edits.
func (s *Store) DeleteSource(ctx context.Context, source string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, "DELETE FROM chunks WHERE source = ?", source)
	if err != nil {
		return fmt.Errorf("delete source %q: %w", source, err)
	}
	return nil
}

// AddChunks stores a source's chunks with their embeddings, in one
// transaction so a failed document never half-indexes.
func (s *Store) AddChunks(ctx context.Context, source string, texts []string, vectors [][]float32) error {
	if len(texts) != len(vectors) {
		return fmt.Errorf("add chunks: %d texts but %d vectors", len(texts), len(vectors))
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx,
		"INSERT INTO chunks (id, source, ordinal, content, embedding) VALUES (?, ?, ?, ?, ?)")
	if err != nil {
		return err
	}
	defer stmt.Close()

	for i, text := range texts {
		embJSON, err := json.Marshal(vectors[i])
		if err != nil {
			return fmt.Errorf("serialize embedding: %w", err)
		}
		if _, err := stmt.ExecContext(ctx, uuid.NewString(), source, i, text, string(embJSON)); err != nil {
			return fmt.Errorf("insert chunk %d of %q: %w", i, source, err)
		}
	}
	return tx.Commit()
}

// Search returns the limit nearest chunks to the query vector, best first,
// dropping hits under the score threshold.
func (s *Store) Search(ctx context.Context, query []float32, limit int, threshold float64) ([]Result, error) {
	if limit <= 0 {
		limit = 5
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, "SELECT source, content, embedding FROM chunks")
	if err != nil {
		return nil, fmt.Errorf("scan chunks: %w", err)
	}
	defer rows.Close()

	var results []Result
	for rows.Next() {
		var source, content, embJSON string
		if err := rows.Scan(&source, &content, &embJSON); err != nil {
			return nil, err
		}
		var vec []float32
		if err := json.Unmarshal([]byte(embJSON), &vec); err != nil {
			continue // a corrupt row should not sink the whole search
		}
		score, err := embedding.CosineSimilarity(query, vec)
		if err != nil {
			continue
		}
		if score < threshold {
			continue
		}
		results = append(results, Result{Source: source, Content: content, Score: score})
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	sort.Slice(results, func(i, j int) bool { return results[i].Score > results[j].Score })
	if len(results) > limit {
		results = results[:limit]
	}
	return results, nil
}

// Sources lists the indexed documents.
func (s *Store) Sources(ctx context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, "SELECT DISTINCT source FROM chunks ORDER BY source")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var sources []string
	for rows.Next() {
		var src string
		if err := rows.Scan(&src); err != nil {
			return nil, err
		}
		sources = append(sources, src)
	}
	return sources, rows.Err()
}
