package api

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/ory/herodot"

	"legal-team-rag/internal/config"
	pipeerrors "legal-team-rag/internal/errors"
	"legal-team-rag/internal/index"
	"legal-team-rag/internal/models"
	"legal-team-rag/internal/session"
)

// maxUploadBytes bounds the accepted document size (32 MiB).
const maxUploadBytes = 32 << 20

// Orchestrator is the query pipeline from the server's point of view.
type Orchestrator interface {
	Analyze(ctx context.Context, query string) (models.Report, error)
	KeyPoints(ctx context.Context, report string) (string, error)
	Recommendations(ctx context.Context, report string) (string, error)
}

type Server struct {
	mux      *http.ServeMux
	sessions *session.Manager
	orch     Orchestrator
	writer   *herodot.JSONWriter

	// debug exposes underlying error causes in 5xx responses. Off in
	// production.
	debug bool
}

func NewServer(sessions *session.Manager, orch Orchestrator, debug bool) *Server {
	s := &Server{
		mux:      http.NewServeMux(),
		sessions: sessions,
		orch:     orch,
		writer:   herodot.NewJSONWriter(nil),
		debug:    debug,
	}

	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	s.mux.Handle("/documents", session.Middleware(http.HandlerFunc(s.handleDocuments)))
	s.mux.Handle("/query", session.Middleware(http.HandlerFunc(s.handleQuery)))
	s.mux.Handle("/reports/key-points", session.Middleware(http.HandlerFunc(s.handleKeyPoints)))
	s.mux.Handle("/reports/recommendations", session.Middleware(http.HandlerFunc(s.handleRecommendations)))
	s.mux.HandleFunc("/health", s.healthCheck)
}

// httpServer builds the configured http.Server.
func (s *Server) httpServer(cfg config.ServerConfig) *http.Server {
	return &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Handler:      loggingMiddleware(s.mux),
		ReadTimeout:  time.Duration(cfg.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.WriteTimeout) * time.Second,
		TLSConfig:    cfg.GetTLSConfig(),
	}
}

func (s *Server) Run(cfg config.ServerConfig) error {
	srv := s.httpServer(cfg)

	if cfg.TLS.Enabled {
		log.Printf("Server starting on https://%s", srv.Addr)
		return srv.ListenAndServeTLS(cfg.TLS.CertFile, cfg.TLS.KeyFile)
	}

	log.Printf("Server starting on http://%s", srv.Addr)
	return srv.ListenAndServe()
}

func (s *Server) handleDocuments(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		s.uploadDocument(w, r)
	case http.MethodGet:
		s.listDocuments(w, r)
	default:
		http.Error(w, `{"error": "Method not allowed"}`, http.StatusMethodNotAllowed)
	}
}

// uploadDocument accepts a multipart PDF upload with optional
// chunk_size and overlap form fields and indexes it into the knowledge
// base. Re-uploading the same filename replaces its prior chunks.
func (s *Server) uploadDocument(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		s.writer.WriteError(w, r, herodot.ErrBadRequest.WithReason("Invalid multipart form"))
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		s.writer.WriteError(w, r, herodot.ErrBadRequest.WithReason("Missing file upload"))
		return
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, maxUploadBytes+1))
	if err != nil {
		s.writer.WriteError(w, r, herodot.ErrBadRequest.WithReason("Failed to read upload"))
		return
	}
	if len(data) > maxUploadBytes {
		s.writer.WriteError(w, r, herodot.ErrBadRequest.WithReason("Document exceeds the 32 MiB upload limit"))
		return
	}

	chunkSize, err := formInt(r, "chunk_size", index.DefaultChunkSize)
	if err != nil {
		s.writer.WriteError(w, r, herodot.ErrBadRequest.WithReason("chunk_size must be an integer"))
		return
	}
	overlap, err := formInt(r, "overlap", index.DefaultOverlap)
	if err != nil {
		s.writer.WriteError(w, r, herodot.ErrBadRequest.WithReason("overlap must be an integer"))
		return
	}

	sess := s.sessions.Get(session.FromContext(r.Context()))

	name := header.Filename
	if err := s.sessions.IndexDocument(r.Context(), sess, name, data, chunkSize, overlap); err != nil {
		s.writePipelineError(w, r, err)
		return
	}

	response := &models.DocumentResponse{
		Name:    name,
		Status:  string(sess.Status(name)),
		Message: "Document parsed and added to the knowledge base",
	}
	s.writer.WriteCreated(w, r, "", response)
}

func (s *Server) listDocuments(w http.ResponseWriter, r *http.Request) {
	sess := s.sessions.Get(session.FromContext(r.Context()))

	docs := sess.Documents()
	response := &models.DocumentListResponse{
		Documents: docs,
		Count:     len(docs),
		Session:   sess.ID,
	}
	s.writer.Write(w, r, response)
}

// handleQuery runs the full analysis pipeline: three analysis agents,
// one synthesis, and optionally the two derived views.
func (s *Server) handleQuery(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, `{"error": "Method not allowed"}`, http.StatusMethodNotAllowed)
		return
	}

	var req models.QueryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writer.WriteError(w, r, herodot.ErrBadRequest.WithReason("Invalid request body"))
		return
	}

	if !req.AnalysisType.Valid() {
		s.writer.WriteError(w, r, herodot.ErrBadRequest.WithReason("Unknown analysis type"))
		return
	}

	// A blank custom query never reaches any agent.
	if req.AnalysisType == models.CustomQuery && strings.TrimSpace(req.Question) == "" {
		s.writer.WriteError(w, r, herodot.ErrBadRequest.WithReason("Please enter a query"))
		return
	}

	queryText := req.AnalysisType.QueryText(req.Question)

	report, err := s.orch.Analyze(r.Context(), queryText)
	if err != nil {
		s.writePipelineError(w, r, err)
		return
	}

	// The two derived views are independent of each other and of any
	// further retrieval; they only read the report text.
	if req.KeyPoints || req.Recommends {
		if err := s.deriveViews(r.Context(), &report, req.KeyPoints, req.Recommends); err != nil {
			s.writePipelineError(w, r, err)
			return
		}
	}

	s.writer.Write(w, r, &models.QueryResponse{Report: report})
}

// deriveViews fills the requested report views, running both
// derivations concurrently when both are asked for.
func (s *Server) deriveViews(ctx context.Context, report *models.Report, keyPoints, recommends bool) error {
	type derived struct {
		text string
		err  error
	}

	var keyPointsCh, recommendsCh chan derived
	if keyPoints {
		keyPointsCh = make(chan derived, 1)
		go func() {
			text, err := s.orch.KeyPoints(ctx, report.Analysis)
			keyPointsCh <- derived{text: text, err: err}
		}()
	}
	if recommends {
		recommendsCh = make(chan derived, 1)
		go func() {
			text, err := s.orch.Recommendations(ctx, report.Analysis)
			recommendsCh <- derived{text: text, err: err}
		}()
	}

	if keyPointsCh != nil {
		result := <-keyPointsCh
		if result.err != nil {
			return result.err
		}
		report.KeyPoints = result.text
	}
	if recommendsCh != nil {
		result := <-recommendsCh
		if result.err != nil {
			return result.err
		}
		report.Recommendations = result.text
	}
	return nil
}

func (s *Server) handleKeyPoints(w http.ResponseWriter, r *http.Request) {
	s.deriveFromReport(w, r, s.orch.KeyPoints)
}

func (s *Server) handleRecommendations(w http.ResponseWriter, r *http.Request) {
	s.deriveFromReport(w, r, s.orch.Recommendations)
}

// deriveFromReport handles the lazy report-view endpoints. Each call is
// independently retryable without re-running the research phase.
func (s *Server) deriveFromReport(w http.ResponseWriter, r *http.Request, derive func(context.Context, string) (string, error)) {
	if r.Method != http.MethodPost {
		http.Error(w, `{"error": "Method not allowed"}`, http.StatusMethodNotAllowed)
		return
	}

	var req models.DeriveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writer.WriteError(w, r, herodot.ErrBadRequest.WithReason("Invalid request body"))
		return
	}

	if strings.TrimSpace(req.Report) == "" {
		s.writer.WriteError(w, r, herodot.ErrBadRequest.WithReason("Report text is required"))
		return
	}

	content, err := derive(r.Context(), req.Report)
	if err != nil {
		s.writePipelineError(w, r, err)
		return
	}

	s.writer.Write(w, r, &models.DeriveResponse{Content: content})
}

func (s *Server) healthCheck(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, `{"error": "Method not allowed"}`, http.StatusMethodNotAllowed)
		return
	}

	response := &models.HealthResponse{Status: "healthy"}
	s.writer.Write(w, r, response)
}

// writePipelineError maps the pipeline error taxonomy onto HTTP
// responses.
func (s *Server) writePipelineError(w http.ResponseWriter, r *http.Request, err error) {
	switch pipeerrors.KindOf(err) {
	case pipeerrors.KindConfig:
		s.writer.WriteError(w, r, herodot.ErrBadRequest.WithReason(err.Error()))
	case pipeerrors.KindExtract:
		s.writer.WriteError(w, r, herodot.ErrBadRequest.WithReason(err.Error()))
	case pipeerrors.KindService:
		s.writer.WriteError(w, r, herodot.ErrInternalServerError.WithReason(s.reason("External service unavailable", err)))
	case pipeerrors.KindInference:
		s.writer.WriteError(w, r, herodot.ErrInternalServerError.WithReason(s.reason("Model inference failed", err)))
	default:
		s.writer.WriteError(w, r, herodot.ErrInternalServerError.WithReason(s.reason("Internal error", err)))
	}
}

// reason appends the underlying cause outside production.
func (s *Server) reason(message string, err error) string {
	if s.debug {
		return message + ": " + err.Error()
	}
	return message
}

// formInt parses an optional integer form field.
func formInt(r *http.Request, field string, fallback int) (int, error) {
	value := r.FormValue(field)
	if value == "" {
		return fallback, nil
	}
	return strconv.Atoi(value)
}

func loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		log.Printf("%s %s %s", r.Method, r.RequestURI, r.RemoteAddr)
		next.ServeHTTP(w, r)
	})
}
