package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"legal-team-rag/internal/config"
	pipeerrors "legal-team-rag/internal/errors"
	"legal-team-rag/internal/index"
	"legal-team-rag/internal/models"
	"legal-team-rag/internal/session"
	"legal-team-rag/internal/storage"
)

// mockOrchestrator records queries and serves canned results.
type mockOrchestrator struct {
	queries       []string
	report        models.Report
	keyPoints     string
	recommends    string
	analyzeErr    error
	deriveErr     error
	deriveReports []string
}

func (m *mockOrchestrator) Analyze(_ context.Context, query string) (models.Report, error) {
	m.queries = append(m.queries, query)
	if m.analyzeErr != nil {
		return models.Report{}, m.analyzeErr
	}
	return m.report, nil
}

func (m *mockOrchestrator) KeyPoints(_ context.Context, report string) (string, error) {
	m.deriveReports = append(m.deriveReports, report)
	if m.deriveErr != nil {
		return "", m.deriveErr
	}
	return m.keyPoints, nil
}

func (m *mockOrchestrator) Recommendations(_ context.Context, report string) (string, error) {
	m.deriveReports = append(m.deriveReports, report)
	if m.deriveErr != nil {
		return "", m.deriveErr
	}
	return m.recommends, nil
}

type stubEmbedder struct{}

func (stubEmbedder) GetEmbedding(_ context.Context, text string) ([]float32, error) {
	return []float32{float32(len(text)), 1, 0}, nil
}

func setupTestServer(orch Orchestrator) *Server {
	store := storage.NewMemoryVectorStore()
	sessions := session.NewManager(index.NewIndexer(store, stubEmbedder{}, 3))
	return NewServer(sessions, orch, true)
}

func multipartUpload(t *testing.T, filename, content string, fields map[string]string) *http.Request {
	t.Helper()

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)

	part, err := writer.CreateFormFile("file", filename)
	if err != nil {
		t.Fatalf("Failed to create form file: %v", err)
	}
	if _, err := part.Write([]byte(content)); err != nil {
		t.Fatalf("Failed to write form file: %v", err)
	}
	for key, value := range fields {
		if err := writer.WriteField(key, value); err != nil {
			t.Fatalf("Failed to write field %s: %v", key, err)
		}
	}
	if err := writer.Close(); err != nil {
		t.Fatalf("Failed to close multipart writer: %v", err)
	}

	req := httptest.NewRequest(http.MethodPost, "/documents", &buf)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	return req
}

func TestUploadDocument(t *testing.T) {
	server := setupTestServer(&mockOrchestrator{})

	req := multipartUpload(t, "contract.txt", "The parties agree to the following terms and conditions.", nil)
	rec := httptest.NewRecorder()
	server.mux.ServeHTTP(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("Expected 201, got %d: %s", rec.Code, rec.Body.String())
	}

	var resp models.DocumentResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if resp.Name != "contract.txt" {
		t.Errorf("Expected document name in response, got %q", resp.Name)
	}
	if resp.Status != string(models.StatusIndexed) {
		t.Errorf("Expected status %q, got %q", models.StatusIndexed, resp.Status)
	}
}

func TestUploadDocumentCustomChunking(t *testing.T) {
	server := setupTestServer(&mockOrchestrator{})

	req := multipartUpload(t, "contract.txt", strings.Repeat("clause ", 50),
		map[string]string{"chunk_size": "50", "overlap": "10"})
	rec := httptest.NewRecorder()
	server.mux.ServeHTTP(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("Expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
}

func TestUploadDocumentInvalidChunking(t *testing.T) {
	server := setupTestServer(&mockOrchestrator{})

	req := multipartUpload(t, "contract.txt", "some text",
		map[string]string{"chunk_size": "100", "overlap": "100"})
	rec := httptest.NewRecorder()
	server.mux.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("Expected 400 for overlap >= chunk size, got %d", rec.Code)
	}
}

func TestUploadDocumentNonIntegerChunking(t *testing.T) {
	server := setupTestServer(&mockOrchestrator{})

	req := multipartUpload(t, "contract.txt", "some text",
		map[string]string{"chunk_size": "big"})
	rec := httptest.NewRecorder()
	server.mux.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("Expected 400 for non-integer chunk_size, got %d", rec.Code)
	}
}

func TestUploadDocumentMissingFile(t *testing.T) {
	server := setupTestServer(&mockOrchestrator{})

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	_ = writer.WriteField("chunk_size", "100")
	_ = writer.Close()

	req := httptest.NewRequest(http.MethodPost, "/documents", &buf)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	rec := httptest.NewRecorder()
	server.mux.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("Expected 400 for missing file, got %d", rec.Code)
	}
}

func TestUploadCorruptDocument(t *testing.T) {
	server := setupTestServer(&mockOrchestrator{})

	req := multipartUpload(t, "broken.pdf", "%PDF-\xde\xad\xbe\xef", nil)
	rec := httptest.NewRecorder()
	server.mux.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("Expected 400 for corrupt document, got %d", rec.Code)
	}
}

func TestListDocumentsPerSession(t *testing.T) {
	server := setupTestServer(&mockOrchestrator{})

	req := multipartUpload(t, "contract.txt", "The parties agree to the terms.", nil)
	req.Header.Set("X-Session-ID", "alice")
	rec := httptest.NewRecorder()
	server.mux.ServeHTTP(rec, req)
	if rec.Code != http.StatusCreated {
		t.Fatalf("Upload failed: %d", rec.Code)
	}

	// Alice sees her document.
	listReq := httptest.NewRequest(http.MethodGet, "/documents", nil)
	listReq.Header.Set("X-Session-ID", "alice")
	rec = httptest.NewRecorder()
	server.mux.ServeHTTP(rec, listReq)

	var aliceList models.DocumentListResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &aliceList); err != nil {
		t.Fatalf("Failed to decode list: %v", err)
	}
	if aliceList.Count != 1 || aliceList.Session != "alice" {
		t.Errorf("Expected 1 document for alice, got %+v", aliceList)
	}

	// Bob's session has no records of alice's upload.
	listReq = httptest.NewRequest(http.MethodGet, "/documents", nil)
	listReq.Header.Set("X-Session-ID", "bob")
	rec = httptest.NewRecorder()
	server.mux.ServeHTTP(rec, listReq)

	var bobList models.DocumentListResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &bobList); err != nil {
		t.Fatalf("Failed to decode list: %v", err)
	}
	if bobList.Count != 0 {
		t.Errorf("Expected no documents for bob, got %d", bobList.Count)
	}
}

func postJSON(t *testing.T, server *Server, path string, body any) *httptest.ResponseRecorder {
	t.Helper()

	data, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("Failed to marshal body: %v", err)
	}
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(data))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	server.mux.ServeHTTP(rec, req)
	return rec
}

func TestQueryPredefinedAnalysis(t *testing.T) {
	orch := &mockOrchestrator{report: models.Report{Analysis: "full report"}}
	server := setupTestServer(orch)

	rec := postJSON(t, server, "/query", models.QueryRequest{AnalysisType: models.ContractReview})

	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var resp models.QueryResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if resp.Report.Analysis != "full report" {
		t.Errorf("Unexpected analysis: %q", resp.Report.Analysis)
	}

	if len(orch.queries) != 1 {
		t.Fatalf("Expected one pipeline run, got %d", len(orch.queries))
	}
	if !strings.Contains(orch.queries[0], "Identify key terms, obligations, and risks") {
		t.Errorf("Predefined query text not forwarded: %q", orch.queries[0])
	}
}

func TestQueryCustomQuestion(t *testing.T) {
	orch := &mockOrchestrator{report: models.Report{Analysis: "report"}}
	server := setupTestServer(orch)

	rec := postJSON(t, server, "/query", models.QueryRequest{
		AnalysisType: models.CustomQuery,
		Question:     "What happens if either party breaches?",
	})

	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", rec.Code)
	}
	if orch.queries[0] != "What happens if either party breaches?" {
		t.Errorf("Custom question not forwarded as-is: %q", orch.queries[0])
	}
}

func TestQueryBlankCustomQuestionNeverReachesAgents(t *testing.T) {
	orch := &mockOrchestrator{}
	server := setupTestServer(orch)

	rec := postJSON(t, server, "/query", models.QueryRequest{
		AnalysisType: models.CustomQuery,
		Question:     "   ",
	})

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("Expected 400 for blank custom query, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "Please enter a query") {
		t.Errorf("Expected warning message, got: %s", rec.Body.String())
	}
	if len(orch.queries) != 0 {
		t.Error("No agent may be invoked for a blank custom query")
	}
}

func TestQueryUnknownAnalysisType(t *testing.T) {
	orch := &mockOrchestrator{}
	server := setupTestServer(orch)

	rec := postJSON(t, server, "/query", models.QueryRequest{AnalysisType: "divination"})

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("Expected 400 for unknown analysis type, got %d", rec.Code)
	}
	if len(orch.queries) != 0 {
		t.Error("No agent may be invoked for an unknown analysis type")
	}
}

func TestQueryWithDerivedViews(t *testing.T) {
	orch := &mockOrchestrator{
		report:     models.Report{Analysis: "full report"},
		keyPoints:  "the key points",
		recommends: "the recommendations",
	}
	server := setupTestServer(orch)

	rec := postJSON(t, server, "/query", models.QueryRequest{
		AnalysisType: models.RiskAssessment,
		KeyPoints:    true,
		Recommends:   true,
	})

	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var resp models.QueryResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if resp.Report.KeyPoints != "the key points" {
		t.Errorf("Missing key points view: %+v", resp.Report)
	}
	if resp.Report.Recommendations != "the recommendations" {
		t.Errorf("Missing recommendations view: %+v", resp.Report)
	}

	// Both derivations read the report text, not the raw query.
	for _, input := range orch.deriveReports {
		if input != "full report" {
			t.Errorf("Derived view must read the report text, got %q", input)
		}
	}
}

func TestQueryPipelineFailure(t *testing.T) {
	orch := &mockOrchestrator{
		analyzeErr: pipeerrors.New(pipeerrors.KindInference, "Contract Analyst inference failed"),
	}
	server := setupTestServer(orch)

	rec := postJSON(t, server, "/query", models.QueryRequest{AnalysisType: models.ContractReview})

	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("Expected 500 for inference failure, got %d", rec.Code)
	}
}

func TestQueryServiceFailure(t *testing.T) {
	orch := &mockOrchestrator{
		analyzeErr: pipeerrors.New(pipeerrors.KindService, "failed to embed query"),
	}
	server := setupTestServer(orch)

	rec := postJSON(t, server, "/query", models.QueryRequest{AnalysisType: models.ContractReview})

	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("Expected 500 for service failure, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "External service unavailable") {
		t.Errorf("Expected service failure reason, got: %s", rec.Body.String())
	}
}

func TestKeyPointsEndpoint(t *testing.T) {
	orch := &mockOrchestrator{keyPoints: "the key points"}
	server := setupTestServer(orch)

	rec := postJSON(t, server, "/reports/key-points", models.DeriveRequest{Report: "full report text"})

	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var resp models.DeriveResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if resp.Content != "the key points" {
		t.Errorf("Unexpected content: %q", resp.Content)
	}
	if len(orch.deriveReports) != 1 || orch.deriveReports[0] != "full report text" {
		t.Errorf("Derivation input mismatch: %v", orch.deriveReports)
	}
}

func TestRecommendationsEndpoint(t *testing.T) {
	orch := &mockOrchestrator{recommends: "the recommendations"}
	server := setupTestServer(orch)

	rec := postJSON(t, server, "/reports/recommendations", models.DeriveRequest{Report: "full report text"})

	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", rec.Code)
	}

	var resp models.DeriveResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if resp.Content != "the recommendations" {
		t.Errorf("Unexpected content: %q", resp.Content)
	}
}

func TestDeriveRequiresReportText(t *testing.T) {
	orch := &mockOrchestrator{}
	server := setupTestServer(orch)

	rec := postJSON(t, server, "/reports/key-points", models.DeriveRequest{Report: "  "})

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("Expected 400 for blank report, got %d", rec.Code)
	}
	if len(orch.deriveReports) != 0 {
		t.Error("No derivation may run on a blank report")
	}
}

func TestDeriveFailure(t *testing.T) {
	orch := &mockOrchestrator{
		deriveErr: pipeerrors.New(pipeerrors.KindInference, "synthesis inference failed"),
	}
	server := setupTestServer(orch)

	rec := postJSON(t, server, "/reports/key-points", models.DeriveRequest{Report: "report"})

	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("Expected 500, got %d", rec.Code)
	}
}

func TestHTTPServerCarriesConfiguredTimeoutsAndTLS(t *testing.T) {
	server := setupTestServer(&mockOrchestrator{})

	cfg := config.ServerConfig{
		Host:         "localhost",
		Port:         8443,
		ReadTimeout:  30,
		WriteTimeout: 300,
	}
	cfg.TLS.Enabled = true
	cfg.TLS.MinTLS = "1.3"

	srv := server.httpServer(cfg)
	if srv.Addr != "localhost:8443" {
		t.Errorf("Unexpected address %q", srv.Addr)
	}
	if srv.ReadTimeout != 30*time.Second || srv.WriteTimeout != 300*time.Second {
		t.Errorf("Configured timeouts not applied: read=%v write=%v", srv.ReadTimeout, srv.WriteTimeout)
	}
	if srv.TLSConfig == nil {
		t.Error("TLS enabled in config must yield a TLS-configured server")
	}

	cfg.TLS.Enabled = false
	if server.httpServer(cfg).TLSConfig != nil {
		t.Error("TLS disabled in config must yield a plain server")
	}
}

func TestProductionHidesErrorCauses(t *testing.T) {
	orch := &mockOrchestrator{
		analyzeErr: pipeerrors.Wrap(pipeerrors.KindService, "failed to embed query",
			fmt.Errorf("dial tcp 127.0.0.1:11434: connection refused")),
	}
	store := storage.NewMemoryVectorStore()
	sessions := session.NewManager(index.NewIndexer(store, stubEmbedder{}, 3))
	server := NewServer(sessions, orch, false)

	rec := postJSON(t, server, "/query", models.QueryRequest{AnalysisType: models.ContractReview})

	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("Expected 500, got %d", rec.Code)
	}
	body := rec.Body.String()
	if !strings.Contains(body, "External service unavailable") {
		t.Errorf("Expected generic reason, got: %s", body)
	}
	if strings.Contains(body, "connection refused") {
		t.Errorf("Underlying cause leaked in production mode: %s", body)
	}
}

func TestUploadDocumentTooLarge(t *testing.T) {
	server := setupTestServer(&mockOrchestrator{})

	req := multipartUpload(t, "huge.txt", strings.Repeat("a", maxUploadBytes+1), nil)
	rec := httptest.NewRecorder()
	server.mux.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("Expected 400 for oversize upload, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "upload limit") {
		t.Errorf("Expected upload limit reason, got: %s", rec.Body.String())
	}
}

func TestHealthCheck(t *testing.T) {
	server := setupTestServer(&mockOrchestrator{})

	rec := httptest.NewRecorder()
	server.mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", rec.Code)
	}

	var resp models.HealthResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if resp.Status != "healthy" {
		t.Errorf("Unexpected status %q", resp.Status)
	}
}

func TestMethodNotAllowed(t *testing.T) {
	server := setupTestServer(&mockOrchestrator{})

	paths := []struct {
		method string
		path   string
	}{
		{http.MethodDelete, "/documents"},
		{http.MethodGet, "/query"},
		{http.MethodGet, "/reports/key-points"},
		{http.MethodPost, "/health"},
	}
	for _, tt := range paths {
		rec := httptest.NewRecorder()
		server.mux.ServeHTTP(rec, httptest.NewRequest(tt.method, tt.path, nil))
		if rec.Code != http.StatusMethodNotAllowed {
			t.Errorf("%s %s: expected 405, got %d", tt.method, tt.path, rec.Code)
		}
	}
}

func TestUploadThenQueryFlow(t *testing.T) {
	orch := &mockOrchestrator{
		report:    models.Report{Analysis: "synthesized analysis"},
		keyPoints: "distilled points",
	}
	server := setupTestServer(orch)

	upload := multipartUpload(t, "agreement.txt",
		"This service agreement obligates the vendor to deliver monthly reports.", nil)
	rec := httptest.NewRecorder()
	server.mux.ServeHTTP(rec, upload)
	if rec.Code != http.StatusCreated {
		t.Fatalf("Upload failed: %d %s", rec.Code, rec.Body.String())
	}

	rec = postJSON(t, server, "/query", models.QueryRequest{AnalysisType: models.ContractReview})
	if rec.Code != http.StatusOK {
		t.Fatalf("Query failed: %d %s", rec.Code, rec.Body.String())
	}

	var queryResp models.QueryResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &queryResp); err != nil {
		t.Fatalf("Failed to decode query response: %v", err)
	}

	rec = postJSON(t, server, "/reports/key-points", models.DeriveRequest{Report: queryResp.Report.Analysis})
	if rec.Code != http.StatusOK {
		t.Fatalf("Key points derivation failed: %d", rec.Code)
	}

	var derived models.DeriveResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &derived); err != nil {
		t.Fatalf("Failed to decode derive response: %v", err)
	}
	if derived.Content != "distilled points" {
		t.Errorf("Unexpected derived content: %q", derived.Content)
	}
	if fmt.Sprintf("%v", orch.deriveReports) != "[synthesized analysis]" {
		t.Errorf("Derivation must read the returned report: %v", orch.deriveReports)
	}
}
