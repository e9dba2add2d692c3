package storage

import (
	"math"
	"sort"
	"sync"

	"legal-team-rag/internal/models"
)

// VectorStore is the knowledge base: every indexed chunk across all
// documents, addressable by similarity query. A document's chunk set is
// only ever replaced wholesale, never patched.
type VectorStore interface {
	ReplaceDocumentChunks(documentID string, chunks []models.Chunk) error
	SearchSimilar(embedding []float32, topK int) ([]models.Chunk, error)
	DeleteDocument(documentID string) error
	CountChunks(documentID string) (int, error)
}

// MemoryVectorStore is an in-memory knowledge base using cosine
// similarity. Used in tests and as a development fallback.
type MemoryVectorStore struct {
	chunks map[string][]models.Chunk // keyed by document ID
	mu     sync.RWMutex
}

func NewMemoryVectorStore() *MemoryVectorStore {
	return &MemoryVectorStore{
		chunks: make(map[string][]models.Chunk),
	}
}

func (m *MemoryVectorStore) ReplaceDocumentChunks(documentID string, chunks []models.Chunk) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	replacement := make([]models.Chunk, len(chunks))
	copy(replacement, chunks)
	m.chunks[documentID] = replacement
	return nil
}

func (m *MemoryVectorStore) SearchSimilar(embedding []float32, topK int) ([]models.Chunk, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	type scoredChunk struct {
		chunk models.Chunk
		score float32
	}

	var scores []scoredChunk
	for _, docChunks := range m.chunks {
		for _, chunk := range docChunks {
			similarity := cosineSimilarity(embedding, chunk.Embedding)
			scores = append(scores, scoredChunk{chunk: chunk, score: similarity})
		}
	}

	// Empty knowledge base yields an empty result, not an error.
	if len(scores) == 0 {
		return []models.Chunk{}, nil
	}

	sort.Slice(scores, func(i, j int) bool {
		return scores[i].score > scores[j].score
	})

	if topK > len(scores) {
		topK = len(scores)
	}

	results := make([]models.Chunk, topK)
	for i := 0; i < topK; i++ {
		results[i] = scores[i].chunk
	}

	return results, nil
}

func (m *MemoryVectorStore) DeleteDocument(documentID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.chunks, documentID)
	return nil
}

func (m *MemoryVectorStore) CountChunks(documentID string) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.chunks[documentID]), nil
}

func cosineSimilarity(a, b []float32) float32 {
	if len(a) != len(b) {
		return 0
	}

	var dotProduct, normA, normB float32
	for i := range a {
		dotProduct += a[i] * b[i]
		normA += a[i] * a[i]
		normB += b[i] * b[i]
	}

	if normA == 0 || normB == 0 {
		return 0
	}

	return dotProduct / (float32(math.Sqrt(float64(normA))) * float32(math.Sqrt(float64(normB))))
}
