package index

import (
	"context"
	"fmt"
	"strings"
	"testing"

	pipeerrors "legal-team-rag/internal/errors"
	"legal-team-rag/internal/models"
	"legal-team-rag/internal/storage"
)

// stubEmbedder returns a fixed-dimension embedding, optionally failing
// for the first N calls.
type stubEmbedder struct {
	calls     int
	failFirst int
}

func (e *stubEmbedder) GetEmbedding(_ context.Context, text string) ([]float32, error) {
	e.calls++
	if e.calls <= e.failFirst {
		return nil, fmt.Errorf("connection refused")
	}
	return []float32{float32(len(text)), 0.5, 0.25}, nil
}

// failingStore rejects every write.
type failingStore struct {
	storage.MemoryVectorStore
	attempts int
}

func (f *failingStore) ReplaceDocumentChunks(string, []models.Chunk) error {
	f.attempts++
	return fmt.Errorf("database is locked")
}

func newTestIndexer(store storage.VectorStore, embedder *stubEmbedder) *Indexer {
	ix := NewIndexer(store, embedder, 3)
	ix.backoff = 0 // no need to wait in tests
	return ix
}

func TestIndexTextStoresChunks(t *testing.T) {
	store := storage.NewMemoryVectorStore()
	ix := newTestIndexer(store, &stubEmbedder{})

	text := strings.Repeat("contract clause ", 100)
	if err := ix.IndexText(context.Background(), "contract.pdf", text, 100, 20); err != nil {
		t.Fatalf("IndexText failed: %v", err)
	}

	count, err := store.CountChunks("contract.pdf")
	if err != nil {
		t.Fatalf("CountChunks failed: %v", err)
	}
	if count == 0 {
		t.Fatal("Expected chunks in the store after indexing")
	}
}

func TestReindexReplacesChunks(t *testing.T) {
	store := storage.NewMemoryVectorStore()
	ix := newTestIndexer(store, &stubEmbedder{})

	text := strings.Repeat("indemnification obligations ", 50)

	if err := ix.IndexText(context.Background(), "contract.pdf", text, 100, 20); err != nil {
		t.Fatalf("first IndexText failed: %v", err)
	}
	firstCount, _ := store.CountChunks("contract.pdf")

	// Re-index with different parameters: only the second
	// parameterization's chunks survive.
	if err := ix.IndexText(context.Background(), "contract.pdf", text, 500, 50); err != nil {
		t.Fatalf("second IndexText failed: %v", err)
	}
	secondCount, _ := store.CountChunks("contract.pdf")

	if secondCount >= firstCount {
		t.Errorf("Expected fewer chunks with larger chunk size: first=%d second=%d", firstCount, secondCount)
	}

	expected, err := SplitText(text, 500, 50)
	if err != nil {
		t.Fatalf("SplitText failed: %v", err)
	}
	if secondCount != len(expected) {
		t.Errorf("Expected exactly %d chunks after re-index, got %d", len(expected), secondCount)
	}
}

func TestIndexRejectsInvalidParams(t *testing.T) {
	store := storage.NewMemoryVectorStore()
	embedder := &stubEmbedder{}
	ix := newTestIndexer(store, embedder)

	err := ix.Index(context.Background(), "contract.pdf", []byte("some text"), 100, 100)
	if !pipeerrors.IsKind(err, pipeerrors.KindConfig) {
		t.Fatalf("Expected CONFIG_ERROR, got %v", err)
	}
	if embedder.calls != 0 {
		t.Error("Validation failure must happen before any service call")
	}
}

func TestIndexCorruptDocumentLeavesStoreUntouched(t *testing.T) {
	store := storage.NewMemoryVectorStore()
	ix := newTestIndexer(store, &stubEmbedder{})

	// Index a good version first.
	if err := ix.IndexText(context.Background(), "contract.pdf", "valid contract text goes here", 20, 5); err != nil {
		t.Fatalf("IndexText failed: %v", err)
	}
	before, _ := store.CountChunks("contract.pdf")

	// A corrupt PDF upload must not disturb the existing chunk set.
	corrupt := append([]byte("%PDF-"), 0xde, 0xad, 0xbe, 0xef)
	err := ix.Index(context.Background(), "contract.pdf", corrupt, 20, 5)
	if !pipeerrors.IsKind(err, pipeerrors.KindExtract) {
		t.Fatalf("Expected EXTRACT_ERROR, got %v", err)
	}

	after, _ := store.CountChunks("contract.pdf")
	if after != before {
		t.Errorf("Store changed after failed extraction: before=%d after=%d", before, after)
	}
}

func TestEmbeddingRetriesThenSucceeds(t *testing.T) {
	store := storage.NewMemoryVectorStore()
	embedder := &stubEmbedder{failFirst: 2}
	ix := newTestIndexer(store, embedder)

	if err := ix.IndexText(context.Background(), "contract.pdf", "short text", 20, 5); err != nil {
		t.Fatalf("Expected retries to recover, got %v", err)
	}
}

func TestEmbeddingExhaustsRetries(t *testing.T) {
	store := storage.NewMemoryVectorStore()
	embedder := &stubEmbedder{failFirst: 100}
	ix := newTestIndexer(store, embedder)

	err := ix.IndexText(context.Background(), "contract.pdf", "short text", 20, 5)
	if !pipeerrors.IsKind(err, pipeerrors.KindService) {
		t.Fatalf("Expected SERVICE_ERROR after exhausted retries, got %v", err)
	}
	if embedder.calls != 3 {
		t.Errorf("Expected exactly 3 attempts, got %d", embedder.calls)
	}

	count, _ := store.CountChunks("contract.pdf")
	if count != 0 {
		t.Errorf("Store must stay empty after failed indexing, got %d chunks", count)
	}
}

func TestStoreFailureSurfacesAsServiceError(t *testing.T) {
	store := &failingStore{}
	ix := newTestIndexer(store, &stubEmbedder{})

	err := ix.IndexText(context.Background(), "contract.pdf", "short text", 20, 5)
	if !pipeerrors.IsKind(err, pipeerrors.KindService) {
		t.Fatalf("Expected SERVICE_ERROR, got %v", err)
	}
	if store.attempts != 3 {
		t.Errorf("Expected 3 store attempts, got %d", store.attempts)
	}
}

// rejectingStore fails every write with a parameter rejection.
type rejectingStore struct {
	storage.MemoryVectorStore
	attempts int
}

func (f *rejectingStore) ReplaceDocumentChunks(string, []models.Chunk) error {
	f.attempts++
	return pipeerrors.New(pipeerrors.KindConfig, "embedding has 4 dimensions but the knowledge base stores 3")
}

func TestStoreParameterRejectionNotRetried(t *testing.T) {
	store := &rejectingStore{}
	ix := newTestIndexer(store, &stubEmbedder{})

	err := ix.IndexText(context.Background(), "contract.pdf", "short text", 20, 5)
	if !pipeerrors.IsKind(err, pipeerrors.KindConfig) {
		t.Fatalf("Expected CONFIG_ERROR, got %v", err)
	}
	if store.attempts != 1 {
		t.Errorf("A parameter rejection must not be retried, got %d attempts", store.attempts)
	}
}

func TestIndexPlainTextDocument(t *testing.T) {
	store := storage.NewMemoryVectorStore()
	ix := newTestIndexer(store, &stubEmbedder{})

	data := []byte("This agreement is entered into by the parties named below.")
	if err := ix.Index(context.Background(), "notes.txt", data, 30, 5); err != nil {
		t.Fatalf("Index failed for plain text: %v", err)
	}

	count, _ := store.CountChunks("notes.txt")
	if count == 0 {
		t.Error("Expected chunks for plain text document")
	}
}
