package models

// DocumentStatus tracks a document through the indexing lifecycle.
type DocumentStatus string

const (
	StatusUnprocessed DocumentStatus = "unprocessed"
	StatusIndexing    DocumentStatus = "indexing"
	StatusIndexed     DocumentStatus = "indexed"
	StatusFailed      DocumentStatus = "failed"
)

// Document is an uploaded source file. The name doubles as the stable
// identifier: re-uploading the same name re-indexes and supersedes the
// prior chunk set.
type Document struct {
	Name   string         `json:"name"`
	Status DocumentStatus `json:"status"`
}
