// Package index splits documents into overlapping chunks and writes them,
// embedded, into the knowledge base.
package index

import (
	"fmt"

	pipeerrors "legal-team-rag/internal/errors"
)

// Default chunking parameters, matching the upload form defaults.
const (
	DefaultChunkSize = 1000
	DefaultOverlap   = 200
)

// SplitText splits text into chunks of at most chunkSize characters
// (runes), with overlap characters shared between consecutive chunks.
// The chunks cover the text with no gaps; only the last chunk may be
// shorter. Requires 1 <= overlap < chunkSize.
func SplitText(text string, chunkSize, overlap int) ([]string, error) {
	if err := ValidateChunking(chunkSize, overlap); err != nil {
		return nil, err
	}

	runes := []rune(text)
	if len(runes) == 0 {
		return nil, nil
	}

	step := chunkSize - overlap
	chunks := make([]string, 0, len(runes)/step+1)

	for start := 0; start < len(runes); start += step {
		end := start + chunkSize
		if end > len(runes) {
			end = len(runes)
		}
		chunks = append(chunks, string(runes[start:end]))
		if end == len(runes) {
			break
		}
	}

	return chunks, nil
}

// ValidateChunking rejects invalid chunking parameters before any I/O.
func ValidateChunking(chunkSize, overlap int) error {
	if chunkSize < 1 || chunkSize > 5000 {
		return pipeerrors.New(pipeerrors.KindConfig,
			fmt.Sprintf("chunk size must be in [1,5000], got %d", chunkSize))
	}
	if overlap < 1 || overlap > 1000 {
		return pipeerrors.New(pipeerrors.KindConfig,
			fmt.Sprintf("overlap must be in [1,1000], got %d", overlap))
	}
	if overlap >= chunkSize {
		return pipeerrors.New(pipeerrors.KindConfig,
			fmt.Sprintf("overlap (%d) must be smaller than chunk size (%d)", overlap, chunkSize))
	}
	return nil
}
