package index

import (
	"context"
	"log"
	"time"

	"legal-team-rag/internal/embeddings"
	pipeerrors "legal-team-rag/internal/errors"
	"legal-team-rag/internal/extract"
	"legal-team-rag/internal/models"
	"legal-team-rag/internal/storage"
)

// Indexer turns an uploaded document into an embedded chunk set in the
// knowledge base. Re-indexing the same document identifier fully
// replaces its prior chunks.
type Indexer struct {
	store    storage.VectorStore
	embedder embeddings.Embedder
	retries  int
	backoff  time.Duration
}

func NewIndexer(store storage.VectorStore, embedder embeddings.Embedder, retries int) *Indexer {
	if retries < 1 {
		retries = 3
	}
	return &Indexer{
		store:    store,
		embedder: embedder,
		retries:  retries,
		backoff:  time.Second,
	}
}

// Index extracts text from the document, splits it into overlapping
// chunks, embeds each chunk, and replaces the document's chunk set in
// one atomic store operation. The store is left untouched on any
// failure before the final replace.
func (ix *Indexer) Index(ctx context.Context, documentID string, data []byte, chunkSize, overlap int) error {
	// Parameter validation happens before any I/O.
	if err := ValidateChunking(chunkSize, overlap); err != nil {
		return err
	}

	text, err := extract.Text(data)
	if err != nil {
		return err
	}

	return ix.IndexText(ctx, documentID, text, chunkSize, overlap)
}

// IndexText indexes already-extracted text.
func (ix *Indexer) IndexText(ctx context.Context, documentID, text string, chunkSize, overlap int) error {
	parts, err := SplitText(text, chunkSize, overlap)
	if err != nil {
		return err
	}

	chunks := make([]models.Chunk, 0, len(parts))
	for i, part := range parts {
		chunk := models.NewChunk(documentID, i, part)

		embedding, err := ix.embedText(ctx, part)
		if err != nil {
			return err
		}
		chunk.Embedding = embedding
		chunks = append(chunks, chunk)
	}

	if err := ix.replaceChunks(ctx, documentID, chunks); err != nil {
		return err
	}

	log.Printf("Indexed document %q: %d chunks (chunk_size=%d overlap=%d)", documentID, len(chunks), chunkSize, overlap)
	return nil
}

// embedText calls the embedding service with bounded retries.
func (ix *Indexer) embedText(ctx context.Context, text string) ([]float32, error) {
	var lastErr error
	for attempt := 0; attempt < ix.retries; attempt++ {
		if attempt > 0 {
			if err := sleepCtx(ctx, ix.backoff*time.Duration(attempt)); err != nil {
				return nil, err
			}
		}

		embedding, err := ix.embedder.GetEmbedding(ctx, text)
		if err == nil {
			return embedding, nil
		}
		lastErr = err
		if ctx.Err() != nil {
			break
		}
		log.Printf("Embedding attempt %d/%d failed: %v", attempt+1, ix.retries, err)
	}
	return nil, pipeerrors.Wrap(pipeerrors.KindService, "embedding service unavailable", lastErr)
}

// replaceChunks writes the new chunk set with bounded retries.
func (ix *Indexer) replaceChunks(ctx context.Context, documentID string, chunks []models.Chunk) error {
	var lastErr error
	for attempt := 0; attempt < ix.retries; attempt++ {
		if attempt > 0 {
			if err := sleepCtx(ctx, ix.backoff*time.Duration(attempt)); err != nil {
				return err
			}
		}

		if err := ix.store.ReplaceDocumentChunks(documentID, chunks); err != nil {
			// A parameter rejection will not heal with retries.
			if pipeerrors.IsKind(err, pipeerrors.KindConfig) {
				return err
			}
			lastErr = err
			log.Printf("Store attempt %d/%d failed: %v", attempt+1, ix.retries, err)
			continue
		}
		return nil
	}
	return pipeerrors.Wrap(pipeerrors.KindService, "vector store unavailable", lastErr)
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
