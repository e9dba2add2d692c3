// Package models defines the domain types shared across the pipeline.
package models

import "github.com/google/uuid"

// Chunk is a contiguous span of document text with its embedding.
// Chunks are immutable once created; re-indexing a document replaces
// its chunk set wholesale.
type Chunk struct {
	ID         uuid.UUID `json:"id"`
	DocumentID string    `json:"document_id"`
	Index      int       `json:"index"`
	Content    string    `json:"content"`
	Embedding  []float32 `json:"-"`
}

// NewChunk creates a chunk for the given document with a fresh ID.
func NewChunk(documentID string, index int, content string) Chunk {
	return Chunk{
		ID:         uuid.New(),
		DocumentID: documentID,
		Index:      index,
		Content:    content,
	}
}
