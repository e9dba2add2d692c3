// Package storage provides vector storage implementations for document chunks.
package storage

import (
	"database/sql"
	"encoding/binary"
	"errors"
	"fmt"
	"log"
	"math"
	"strings"

	pipeerrors "legal-team-rag/internal/errors"
	"legal-team-rag/internal/models"

	sqlite_vec "github.com/asg017/sqlite-vec-go-bindings/cgo"
	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3" // Import sqlite3 driver
)

func init() {
	sqlite_vec.Auto()
}

// SQLiteVectorStore implements a SQLite-based vector storage system using sqlite-vec
type SQLiteVectorStore struct {
	db              *sql.DB
	embeddingLength int
}

// NewSQLiteVectorStore creates a new SQLite-based vector store with sqlite-vec support
func NewSQLiteVectorStore(dsn string) (*SQLiteVectorStore, error) {
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Test the connection
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	store := &SQLiteVectorStore{
		db:              db,
		embeddingLength: 768, // Default for nomic-embed-text, updated on first insert
	}

	if err := store.initDB(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	return store, nil
}

// initDB creates the necessary tables for storing chunks and embeddings using sqlite-vec
func (s *SQLiteVectorStore) initDB() error {
	// Create metadata table for chunks
	metadataQuery := `
	CREATE TABLE IF NOT EXISTS chunks (
		id TEXT PRIMARY KEY,
		document_id TEXT NOT NULL,
		chunk_index INTEGER NOT NULL,
		content TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_chunks_document ON chunks(document_id);
	`

	if _, err := s.db.Exec(metadataQuery); err != nil {
		return fmt.Errorf("failed to create chunks table: %w", err)
	}

	// vec_chunks will be created dynamically on first insert
	// when we know the embedding dimension

	return nil
}

// Close closes the database connection
func (s *SQLiteVectorStore) Close() error {
	return s.db.Close()
}

// serializeFloat32Vector converts a float32 slice to the byte format expected by sqlite-vec
func serializeFloat32Vector(vec []float32) []byte {
	buf := make([]byte, len(vec)*4)
	for i, v := range vec {
		binary.LittleEndian.PutUint32(buf[i*4:(i+1)*4], math.Float32bits(v))
	}
	return buf
}

// vecTableDimension reports the embedding dimension of an existing
// vec_chunks table, read back from its DDL so it survives reopening the
// database.
func (s *SQLiteVectorStore) vecTableDimension() (int, bool, error) {
	var ddl string
	err := s.db.QueryRow("SELECT sql FROM sqlite_master WHERE type='table' AND name='vec_chunks'").Scan(&ddl)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("failed to check vec_chunks existence: %w", err)
	}

	idx := strings.Index(ddl, "FLOAT[")
	if idx < 0 {
		return 0, true, fmt.Errorf("vec_chunks table has unexpected schema: %s", ddl)
	}
	var dim int
	if _, err := fmt.Sscanf(ddl[idx:], "FLOAT[%d]", &dim); err != nil {
		return 0, true, fmt.Errorf("failed to parse vec_chunks dimension: %w", err)
	}
	return dim, true, nil
}

// ensureVecTableExists creates the vec_chunks table if it doesn't exist.
// The table's dimension is fixed at creation; an embedding of a
// different dimension is rejected outright rather than surfacing as
// retried insert failures.
func (s *SQLiteVectorStore) ensureVecTableExists(embeddingLen int) error {
	dim, exists, err := s.vecTableDimension()
	if err != nil {
		return err
	}

	if exists {
		if dim != embeddingLen {
			return pipeerrors.New(pipeerrors.KindConfig, fmt.Sprintf(
				"embedding has %d dimensions but the knowledge base stores %d; use a fresh database path when switching embedding models",
				embeddingLen, dim))
		}
		s.embeddingLength = dim
		return nil
	}

	s.embeddingLength = embeddingLen
	vecQuery := fmt.Sprintf(`
		CREATE VIRTUAL TABLE vec_chunks USING vec0(
			id TEXT PRIMARY KEY,
			embedding FLOAT[%d]
		)
	`, s.embeddingLength)

	if _, err := s.db.Exec(vecQuery); err != nil {
		return fmt.Errorf("failed to create vec_chunks table: %w", err)
	}

	return nil
}

// ReplaceDocumentChunks atomically replaces the full chunk set of a document.
// Prior chunks for the document are removed in the same transaction, so
// re-indexing never leaves duplicates or stale leftovers.
func (s *SQLiteVectorStore) ReplaceDocumentChunks(documentID string, chunks []models.Chunk) error {
	if len(chunks) > 0 {
		if err := s.ensureVecTableExists(len(chunks[0].Embedding)); err != nil {
			return fmt.Errorf("failed to ensure vec table exists: %w", err)
		}
	}

	// Start transaction
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if err := s.deleteDocumentTx(tx, documentID); err != nil {
		return err
	}

	for i := range chunks {
		chunk := &chunks[i]
		if chunk.ID == uuid.Nil {
			chunk.ID = uuid.New()
		}

		metadataQuery := `INSERT INTO chunks (id, document_id, chunk_index, content) VALUES (?, ?, ?, ?)`
		if _, err := tx.Exec(metadataQuery, chunk.ID.String(), chunk.DocumentID, chunk.Index, chunk.Content); err != nil {
			return fmt.Errorf("failed to insert chunk metadata: %w", err)
		}

		embeddingBytes := serializeFloat32Vector(chunk.Embedding)
		vecQuery := `INSERT INTO vec_chunks (id, embedding) VALUES (?, ?)`
		if _, err := tx.Exec(vecQuery, chunk.ID.String(), embeddingBytes); err != nil {
			return fmt.Errorf("failed to insert chunk vector: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

// DeleteDocument removes every chunk belonging to the document.
func (s *SQLiteVectorStore) DeleteDocument(documentID string) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if err := s.deleteDocumentTx(tx, documentID); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

// deleteDocumentTx removes the document's chunks inside an open transaction.
// vec0 tables cannot join on delete, so vector rows are removed by ID.
func (s *SQLiteVectorStore) deleteDocumentTx(tx *sql.Tx, documentID string) error {
	rows, err := tx.Query(`SELECT id FROM chunks WHERE document_id = ?`, documentID)
	if err != nil {
		return fmt.Errorf("failed to list prior chunks: %w", err)
	}

	var priorIDs []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			_ = rows.Close()
			return fmt.Errorf("failed to scan chunk id: %w", err)
		}
		priorIDs = append(priorIDs, id)
	}
	if err := rows.Err(); err != nil {
		_ = rows.Close()
		return fmt.Errorf("error iterating prior chunks: %w", err)
	}
	_ = rows.Close()

	for _, id := range priorIDs {
		if _, err := tx.Exec(`DELETE FROM vec_chunks WHERE id = ?`, id); err != nil {
			return fmt.Errorf("failed to delete old vector: %w", err)
		}
	}

	if _, err := tx.Exec(`DELETE FROM chunks WHERE document_id = ?`, documentID); err != nil {
		return fmt.Errorf("failed to delete old chunks: %w", err)
	}

	return nil
}

// SearchSimilar performs KNN vector search using sqlite-vec and returns
// chunks ordered by ascending distance (descending relevance).
func (s *SQLiteVectorStore) SearchSimilar(embedding []float32, topK int) ([]models.Chunk, error) {
	// An empty knowledge base has no vec table yet; that is not an error.
	var tableExists int
	err := s.db.QueryRow("SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name='vec_chunks'").Scan(&tableExists)
	if err != nil {
		return nil, fmt.Errorf("failed to check vec_chunks existence: %w", err)
	}
	if tableExists == 0 {
		return []models.Chunk{}, nil
	}

	embeddingBytes := serializeFloat32Vector(embedding)

	// Use sqlite-vec's KNN search with distance calculation
	// Note: sqlite-vec requires the k parameter to be passed as part of the MATCH expression
	query := `
		SELECT
			c.id,
			c.document_id,
			c.chunk_index,
			c.content,
			v.distance
		FROM vec_chunks v
		JOIN chunks c ON c.id = v.id
		WHERE v.embedding MATCH ? AND k = ?
		ORDER BY v.distance
	`

	rows, err := s.db.Query(query, embeddingBytes, topK)
	if err != nil {
		return nil, fmt.Errorf("failed to perform vector search: %w", err)
	}
	defer func() { _ = rows.Close() }()

	results := []models.Chunk{}
	for rows.Next() {
		var id, documentID, content string
		var index int
		var distance float32

		if err := rows.Scan(&id, &documentID, &index, &content, &distance); err != nil {
			log.Printf("Error scanning row: %v", err)
			continue
		}

		chunkID, err := uuid.Parse(id)
		if err != nil {
			log.Printf("Error parsing UUID %s: %v", id, err)
			continue
		}

		results = append(results, models.Chunk{
			ID:         chunkID,
			DocumentID: documentID,
			Index:      index,
			Content:    content,
			// The embedding is not fetched back to save memory
		})
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating results: %w", err)
	}

	return results, nil
}

// CountChunks returns the number of stored chunks for a document.
func (s *SQLiteVectorStore) CountChunks(documentID string) (int, error) {
	var count int
	err := s.db.QueryRow(`SELECT COUNT(*) FROM chunks WHERE document_id = ?`, documentID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count chunks: %w", err)
	}
	return count, nil
}
