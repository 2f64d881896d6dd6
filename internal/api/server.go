// Package api provides the RESTful HTTP API for pocket-problem.
//
// SYSTEM ARCHITECTURE ROLE:
// This module implements the HTTP interface layer of the system. Editors and
// scripts post markdown or filled templates and get LaTeX back; the library
// (problems, templates, problem sets) is exposed as JSON resources.
//
// INTEGRATION POINTS:
// - internal/service/service.go: every operation goes through the service
// - internal/errors/handlers.go: HTTPErrorHandler formats error responses and maps codes to statuses
// - internal/validation/middleware.go: RequestValidator checks bodies and query parameters per route
// - internal/api/openapi.go: OpenAPI spec at /api/openapi.json, docs at /api/docs
//
// MIDDLEWARE STACK:
// - Logging: Request logging with timing information
// - CORS: Cross-origin resource sharing for browser editors
// - Content-Type: Automatic JSON content type setting
// - Error Handling: Panic recovery and standardized error responses
//
// ENDPOINT STRUCTURE:
// - /api/v1/compile, /api/v1/resolve: markdown and template compilation
// - /api/v1/templates: template catalog and scaffolds
// - /api/v1/problems: problem CRUD and compilation
// - /api/v1/sets: problem sets
// - /api/v1/preview: PDF rendering
// - /api/v1/health: System health monitoring
package api

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/dpshade/pocket-problem/internal/errors"
	"github.com/dpshade/pocket-problem/internal/models"
	"github.com/dpshade/pocket-problem/internal/service"
	"github.com/dpshade/pocket-problem/internal/validation"
)

// APIServer serves the HTTP API
type APIServer struct {
	service      *service.Service
	errorHandler *errors.HTTPErrorHandler
	validator    *validation.RequestValidator
	port         int
	syncInterval time.Duration
	server       *http.Server
	ctx          context.Context
	cancel       context.CancelFunc
}

// NewAPIServer creates a new API server instance
func NewAPIServer(svc *service.Service, port int) *APIServer {
	ctx, cancel := context.WithCancel(context.Background())

	errorHandler := errors.NewHTTPErrorHandler(true) // Include details in responses
	errorHandler.Log = svc.ErrorLog()

	return &APIServer{
		service:      svc,
		errorHandler: errorHandler,
		validator:    validation.NewRequestValidator(),
		port:         port,
		syncInterval: 5 * time.Minute,
		ctx:          ctx,
		cancel:       cancel,
	}
}

// Handler returns the routed handler with middleware applied
func (s *APIServer) Handler() http.Handler {
	mux := http.NewServeMux()
	validate := s.validator.ValidateRequest

	mux.HandleFunc("GET /api/v1/health", s.withMiddleware(s.handleHealth))

	mux.HandleFunc("POST /api/v1/compile", s.withMiddleware(validate("compile")(s.handleCompile)))
	mux.HandleFunc("POST /api/v1/resolve", s.withMiddleware(validate("resolve")(s.handleResolve)))
	mux.HandleFunc("POST /api/v1/preview", s.withMiddleware(validate("compile")(s.handlePreview)))

	mux.HandleFunc("GET /api/v1/templates", s.withMiddleware(validate("search")(s.handleListTemplates)))
	mux.HandleFunc("POST /api/v1/templates", s.withMiddleware(validate("create_template")(s.handleCreateTemplate)))
	mux.HandleFunc("GET /api/v1/templates/{id}", s.withMiddleware(s.handleGetTemplate))
	mux.HandleFunc("DELETE /api/v1/templates/{id}", s.withMiddleware(s.handleDeleteTemplate))
	mux.HandleFunc("GET /api/v1/templates/{id}/scaffold", s.withMiddleware(s.handleScaffold))

	mux.HandleFunc("GET /api/v1/problems", s.withMiddleware(validate("search")(s.handleListProblems)))
	mux.HandleFunc("POST /api/v1/problems", s.withMiddleware(validate("create_problem")(s.handleCreateProblem)))
	mux.HandleFunc("GET /api/v1/problems/{id}", s.withMiddleware(s.handleGetProblem))
	mux.HandleFunc("PUT /api/v1/problems/{id}", s.withMiddleware(validate("create_problem")(s.handleUpdateProblem)))
	mux.HandleFunc("DELETE /api/v1/problems/{id}", s.withMiddleware(s.handleDeleteProblem))
	mux.HandleFunc("GET /api/v1/problems/{id}/latex", s.withMiddleware(s.handleProblemLatex))

	mux.HandleFunc("GET /api/v1/sets", s.withMiddleware(s.handleListSets))
	mux.HandleFunc("POST /api/v1/sets", s.withMiddleware(validate("save_set")(s.handleSaveSet)))
	mux.HandleFunc("DELETE /api/v1/sets/{name}", s.withMiddleware(s.handleDeleteSet))
	mux.HandleFunc("GET /api/v1/sets/{name}/latex", s.withMiddleware(s.handleSetLatex))

	// OpenAPI documentation
	mux.HandleFunc("GET /api/docs", s.withMiddleware(s.handleOpenAPI))
	mux.HandleFunc("GET /api/openapi.json", s.withMiddleware(s.handleOpenAPISpec))

	return mux
}

// SetSyncInterval sets how often the server pulls from the git remote; zero
// disables background sync
func (s *APIServer) SetSyncInterval(interval time.Duration) {
	s.syncInterval = interval
}

// Start begins serving HTTP requests
func (s *APIServer) Start() error {
	s.server = &http.Server{
		Addr:         fmt.Sprintf(":%d", s.port),
		Handler:      s.Handler(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 2 * time.Minute, // previews run pdflatex
		IdleTimeout:  60 * time.Second,
	}

	if s.service.IsGitSyncEnabled() && s.syncInterval > 0 {
		log.Printf("Git sync enabled (every %v)", s.syncInterval)
		s.service.StartBackgroundSync(s.ctx, s.syncInterval)
	}

	log.Printf("API server starting on http://localhost:%d", s.port)
	log.Printf("OpenAPI documentation: http://localhost:%d/api/docs", s.port)

	return s.server.ListenAndServe()
}

// Stop gracefully shuts down the server
func (s *APIServer) Stop(ctx context.Context) error {
	// Cancel background git sync
	s.cancel()
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}

// withMiddleware applies middleware to HTTP handlers
func (s *APIServer) withMiddleware(handler http.HandlerFunc) http.HandlerFunc {
	return s.loggingMiddleware(
		s.corsMiddleware(
			s.contentTypeMiddleware(
				s.errorMiddleware(handler),
			),
		),
	)
}

// loggingMiddleware logs HTTP requests
func (s *APIServer) loggingMiddleware(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next(w, r)
		log.Printf("[%s] %s %s - %v", r.Method, r.URL.Path, r.RemoteAddr, time.Since(start))
	}
}

// corsMiddleware handles CORS headers
func (s *APIServer) corsMiddleware(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		w.Header().Set("Access-Control-Max-Age", "86400")
		next(w, r)
	}
}

// contentTypeMiddleware sets default content type
func (s *APIServer) contentTypeMiddleware(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		next(w, r)
	}
}

// errorMiddleware recovers from panics in handlers
func (s *APIServer) errorMiddleware(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if err := recover(); err != nil {
				log.Printf("Panic in handler: %v", err)
				s.errorHandler.WriteHTTPError(w, errors.InternalError("Internal server error"))
			}
		}()
		next(w, r)
	}
}

// APIResponse represents a standardized API response
type APIResponse struct {
	Success   bool        `json:"success"`
	Data      interface{} `json:"data,omitempty"`
	Message   string      `json:"message,omitempty"`
	Timestamp time.Time   `json:"timestamp"`
}

// writeResponse writes a standardized JSON response
func (s *APIServer) writeResponse(w http.ResponseWriter, data interface{}, message string, statusCode int) {
	response := APIResponse{
		Success:   statusCode < 400,
		Data:      data,
		Message:   message,
		Timestamp: time.Now(),
	}

	w.WriteHeader(statusCode)

	jsonData, err := json.MarshalIndent(response, "", "  ")
	if err != nil {
		// Fallback to compact JSON if marshaling fails
		json.NewEncoder(w).Encode(response)
		return
	}
	w.Write(jsonData)
}

// writeError writes an error response using the error handler
func (s *APIServer) writeError(w http.ResponseWriter, err error) {
	s.errorHandler.WriteHTTPError(w, err)
}

// decode reads a JSON body into v
func (s *APIServer) decode(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		s.writeError(w, errors.ValidationError("Invalid JSON in request body").WithDetails(err.Error()))
		return false
	}
	return true
}

// CompileResult is the response body of compile and resolve
type CompileResult struct {
	LaTeX  string         `json:"latex"`
	Blocks []models.Block `json:"blocks"`
}

type compileRequest struct {
	Source string `json:"source"`
}

type resolveRequest struct {
	Template string          `json:"template"`
	Fillings models.Fillings `json:"fillings"`
}

// searchQuery returns the validated q parameter
func searchQuery(r *http.Request) string {
	q, _ := validation.ValidatedData(r)["q"].(string)
	return q
}

// handleHealth handles GET /api/v1/health
func (s *APIServer) handleHealth(w http.ResponseWriter, r *http.Request) {
	problems, err := s.service.ListProblems()
	if err != nil {
		s.writeError(w, err)
		return
	}
	gitStatus, _ := s.service.GetGitSyncStatus()

	s.writeResponse(w, map[string]interface{}{
		"status":    "healthy",
		"templates": len(s.service.ListTemplates()),
		"problems":  len(problems),
		"git":       gitStatus,
	}, "", http.StatusOK)
}

// handleCompile handles POST /api/v1/compile
func (s *APIServer) handleCompile(w http.ResponseWriter, r *http.Request) {
	var req compileRequest
	if !s.decode(w, r, &req) {
		return
	}

	doc := s.service.BuildSourceDocument(req.Source)
	s.writeResponse(w, CompileResult{LaTeX: s.service.Emit(doc), Blocks: doc.Blocks}, "", http.StatusOK)
}

// handleResolve handles POST /api/v1/resolve
func (s *APIServer) handleResolve(w http.ResponseWriter, r *http.Request) {
	var req resolveRequest
	if !s.decode(w, r, &req) {
		return
	}

	doc, err := s.service.BuildTemplateDocument(req.Template, req.Fillings)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeResponse(w, CompileResult{LaTeX: s.service.Emit(doc), Blocks: doc.Blocks}, "", http.StatusOK)
}

// handlePreview handles POST /api/v1/preview, answering with the PDF
func (s *APIServer) handlePreview(w http.ResponseWriter, r *http.Request) {
	var req compileRequest
	if !s.decode(w, r, &req) {
		return
	}

	result, err := s.service.Preview(r.Context(), s.service.CompileSource(req.Source))
	if err != nil {
		s.writeError(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/pdf")
	w.WriteHeader(http.StatusOK)
	w.Write(result.PDF)
}

// handleListTemplates handles GET /api/v1/templates?q=
func (s *APIServer) handleListTemplates(w http.ResponseWriter, r *http.Request) {
	defs := s.service.SearchTemplates(searchQuery(r))
	if defs == nil {
		defs = []*models.TemplateDefinition{}
	}
	s.writeResponse(w, defs, fmt.Sprintf("Found %d templates", len(defs)), http.StatusOK)
}

// handleCreateTemplate handles POST /api/v1/templates
func (s *APIServer) handleCreateTemplate(w http.ResponseWriter, r *http.Request) {
	var def models.TemplateDefinition
	if !s.decode(w, r, &def) {
		return
	}
	if err := s.service.RegisterTemplate(&def); err != nil {
		s.writeError(w, err)
		return
	}
	s.writeResponse(w, def, "Template registered", http.StatusCreated)
}

// handleGetTemplate handles GET /api/v1/templates/{id}
func (s *APIServer) handleGetTemplate(w http.ResponseWriter, r *http.Request) {
	def, err := s.service.GetTemplate(r.PathValue("id"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeResponse(w, def, "", http.StatusOK)
}

// handleDeleteTemplate handles DELETE /api/v1/templates/{id}
func (s *APIServer) handleDeleteTemplate(w http.ResponseWriter, r *http.Request) {
	if err := s.service.DeleteTemplate(r.PathValue("id")); err != nil {
		s.writeError(w, err)
		return
	}
	s.writeResponse(w, nil, "Template deleted", http.StatusOK)
}

// handleScaffold handles GET /api/v1/templates/{id}/scaffold
func (s *APIServer) handleScaffold(w http.ResponseWriter, r *http.Request) {
	fillings, err := s.service.ScaffoldFillings(r.PathValue("id"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeResponse(w, fillings, "", http.StatusOK)
}

// handleListProblems handles GET /api/v1/problems?q=
func (s *APIServer) handleListProblems(w http.ResponseWriter, r *http.Request) {
	problems, err := s.service.SearchProblems(searchQuery(r))
	if err != nil {
		s.writeError(w, err)
		return
	}
	if problems == nil {
		problems = []*models.Problem{}
	}
	s.writeResponse(w, problems, fmt.Sprintf("Found %d problems", len(problems)), http.StatusOK)
}

// handleCreateProblem handles POST /api/v1/problems
func (s *APIServer) handleCreateProblem(w http.ResponseWriter, r *http.Request) {
	var problem models.Problem
	if !s.decode(w, r, &problem) {
		return
	}
	if err := s.service.CreateProblem(&problem); err != nil {
		s.writeError(w, err)
		return
	}
	s.writeResponse(w, problem, "Problem created", http.StatusCreated)
}

// handleGetProblem handles GET /api/v1/problems/{id}
func (s *APIServer) handleGetProblem(w http.ResponseWriter, r *http.Request) {
	problem, err := s.service.GetProblem(r.PathValue("id"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeResponse(w, problem, "", http.StatusOK)
}

// handleUpdateProblem handles PUT /api/v1/problems/{id}
func (s *APIServer) handleUpdateProblem(w http.ResponseWriter, r *http.Request) {
	existing, err := s.service.GetProblem(r.PathValue("id"))
	if err != nil {
		s.writeError(w, err)
		return
	}

	var problem models.Problem
	if !s.decode(w, r, &problem) {
		return
	}
	problem.ID = existing.ID
	problem.FilePath = existing.FilePath
	problem.CreatedAt = existing.CreatedAt

	if err := s.service.SaveProblem(&problem); err != nil {
		s.writeError(w, err)
		return
	}
	s.writeResponse(w, problem, "Problem updated", http.StatusOK)
}

// handleDeleteProblem handles DELETE /api/v1/problems/{id}
func (s *APIServer) handleDeleteProblem(w http.ResponseWriter, r *http.Request) {
	if err := s.service.DeleteProblem(r.PathValue("id")); err != nil {
		s.writeError(w, err)
		return
	}
	s.writeResponse(w, nil, "Problem deleted", http.StatusOK)
}

// handleProblemLatex handles GET /api/v1/problems/{id}/latex
func (s *APIServer) handleProblemLatex(w http.ResponseWriter, r *http.Request) {
	latex, err := s.service.CompileProblem(r.PathValue("id"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeResponse(w, CompileResult{LaTeX: latex}, "", http.StatusOK)
}

// handleListSets handles GET /api/v1/sets
func (s *APIServer) handleListSets(w http.ResponseWriter, r *http.Request) {
	sets, err := s.service.ListProblemSets()
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeResponse(w, sets, "", http.StatusOK)
}

// handleSaveSet handles POST /api/v1/sets
func (s *APIServer) handleSaveSet(w http.ResponseWriter, r *http.Request) {
	var set models.ProblemSet
	if !s.decode(w, r, &set) {
		return
	}
	if err := s.service.SaveProblemSet(set); err != nil {
		s.writeError(w, err)
		return
	}
	s.writeResponse(w, set, "Problem set saved", http.StatusOK)
}

// handleDeleteSet handles DELETE /api/v1/sets/{name}
func (s *APIServer) handleDeleteSet(w http.ResponseWriter, r *http.Request) {
	if err := s.service.DeleteProblemSet(r.PathValue("name")); err != nil {
		s.writeError(w, err)
		return
	}
	s.writeResponse(w, nil, "Problem set deleted", http.StatusOK)
}

// handleSetLatex handles GET /api/v1/sets/{name}/latex
func (s *APIServer) handleSetLatex(w http.ResponseWriter, r *http.Request) {
	latex, err := s.service.CompileProblemSet(r.PathValue("name"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeResponse(w, CompileResult{LaTeX: latex}, "", http.StatusOK)
}
