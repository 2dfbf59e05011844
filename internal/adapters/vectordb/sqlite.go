package vectordb

import (
	"context"
	"database/sql"
	"fmt"
	"sync"

	"github.com/0xcro3dile/docqa-go/internal/domain/entities"
	"github.com/0xcro3dile/docqa-go/internal/domain/ports"
	_ "github.com/mattn/go-sqlite3" // SQLite driver
)

// SQLiteStore implements ports.VectorStore on a private in-memory SQLite
// database. Similarity is computed brute force in Go.
type SQLiteStore struct {
	mu sync.RWMutex
	db *sql.DB
}

// NewSQLiteStore opens a fresh in-memory database.
func NewSQLiteStore() (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", ":memory:")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	// every connection to :memory: is a separate database
	db.SetMaxOpenConns(1)
	db.SetConnMaxLifetime(0)
	db.SetConnMaxIdleTime(0)

	store := &SQLiteStore{db: db}
	if err := store.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("initializing schema: %w", err)
	}
	return store, nil
}

func (s *SQLiteStore) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS chunks (
		seq INTEGER PRIMARY KEY,
		id TEXT NOT NULL,
		document_id TEXT NOT NULL,
		content TEXT NOT NULL,
		embedding BLOB NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_document_id ON chunks(document_id);
	`
	_, err := s.db.Exec(schema)
	return err
}

// Store saves chunks with their embeddings.
func (s *SQLiteStore) Store(ctx context.Context, chunks []entities.Chunk) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("starting transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO chunks (seq, id, document_id, content, embedding)
		VALUES (?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("preparing statement: %w", err)
	}
	defer stmt.Close()

	for _, chunk := range chunks {
		_, err = stmt.ExecContext(ctx,
			chunk.Index,
			chunk.ID,
			chunk.DocumentID,
			chunk.Content,
			encodeVector(chunk.Embedding),
		)
		if err != nil {
			return fmt.Errorf("inserting chunk: %w", err)
		}
	}

	return tx.Commit()
}

// Search finds the most similar chunks to a query embedding.
func (s *SQLiteStore) Search(ctx context.Context, embedding []float32, topK int) ([]entities.QueryResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT seq, id, document_id, content, embedding
		FROM chunks
		ORDER BY seq
	`)
	if err != nil {
		return nil, fmt.Errorf("querying chunks: %w", err)
	}
	defer rows.Close()

	var candidates []scored
	for rows.Next() {
		var chunk entities.Chunk
		var blob []byte
		if err := rows.Scan(&chunk.Index, &chunk.ID, &chunk.DocumentID, &chunk.Content, &blob); err != nil {
			return nil, fmt.Errorf("scanning row: %w", err)
		}
		if chunk.Embedding, err = decodeVector(blob); err != nil {
			return nil, fmt.Errorf("decoding chunk %s: %w", chunk.ID, err)
		}
		candidates = append(candidates, scored{chunk: chunk, score: cosineSimilarity(embedding, chunk.Embedding)})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("reading rows: %w", err)
	}

	return rank(candidates, topK), nil
}

// Delete removes all chunks for a document.
func (s *SQLiteStore) Delete(ctx context.Context, documentID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, "DELETE FROM chunks WHERE document_id = ?", documentID)
	return err
}

// Clear removes all data from the store.
func (s *SQLiteStore) Clear(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, "DELETE FROM chunks")
	return err
}

// Count returns the number of stored chunks.
func (s *SQLiteStore) Count(ctx context.Context) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM chunks").Scan(&count)
	return count, err
}

// Close closes the database; its contents are gone afterwards.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

var _ ports.VectorStore = (*SQLiteStore)(nil)
