package models

// QueryRequest is the body of POST /query.
type QueryRequest struct {
	AnalysisType AnalysisType `json:"analysis_type"`
	Question     string       `json:"question,omitempty"`
	KeyPoints    bool         `json:"key_points,omitempty"`
	Recommends   bool         `json:"recommendations,omitempty"`
}

// QueryResponse wraps the report returned by POST /query.
type QueryResponse struct {
	Report Report `json:"report"`
}

// DeriveRequest is the body of the lazy report-view endpoints.
type DeriveRequest struct {
	Report string `json:"report"`
}

// DeriveResponse carries a single derived report view.
type DeriveResponse struct {
	Content string `json:"content"`
}

// DocumentResponse acknowledges a document upload.
type DocumentResponse struct {
	Name    string `json:"name"`
	Status  string `json:"status"`
	Message string `json:"message"`
}

// DocumentListResponse lists the documents known to a session.
type DocumentListResponse struct {
	Documents []Document `json:"documents"`
	Count     int        `json:"count"`
	Session   string     `json:"session"`
}

// HealthResponse is returned by GET /health.
type HealthResponse struct {
	Status string `json:"status"`
}
