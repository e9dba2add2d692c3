// Package retrieval answers similarity queries against the knowledge base.
package retrieval

import (
	"context"

	"legal-team-rag/internal/embeddings"
	pipeerrors "legal-team-rag/internal/errors"
	"legal-team-rag/internal/models"
	"legal-team-rag/internal/storage"
)

// Retriever embeds a query and delegates similarity search to the
// vector store. Relevance scoring is the store's business.
type Retriever struct {
	embedder embeddings.Embedder
	store    storage.VectorStore
	topK     int
}

func NewRetriever(embedder embeddings.Embedder, store storage.VectorStore, topK int) *Retriever {
	if topK < 1 {
		topK = 5
	}
	return &Retriever{
		embedder: embedder,
		store:    store,
		topK:     topK,
	}
}

// Retrieve returns the top-K most relevant chunks for the query,
// ordered by descending relevance. An empty knowledge base yields an
// empty result, never an error.
func (r *Retriever) Retrieve(ctx context.Context, query string) ([]models.Chunk, error) {
	embedding, err := r.embedder.GetEmbedding(ctx, query)
	if err != nil {
		return nil, pipeerrors.Wrap(pipeerrors.KindService, "failed to embed query", err)
	}

	chunks, err := r.store.SearchSimilar(embedding, r.topK)
	if err != nil {
		return nil, pipeerrors.Wrap(pipeerrors.KindService, "similarity search failed", err)
	}

	return chunks, nil
}
