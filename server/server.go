// Package server exposes spec validation over HTTP and NATS request/reply.
// Both transports run the same operations on documents carried in the
// request payload; the server never touches the filesystem.
package server

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/c360studio/speclint/document"
	"github.com/c360studio/speclint/document/parser"
	"github.com/c360studio/speclint/ears"
	"github.com/c360studio/speclint/report"
	"github.com/c360studio/speclint/trace"
	"github.com/c360studio/speclint/validation"
)

// ValidateRequest is the payload for validation endpoints. Companion
// documents are optional; cross-document rules degrade silently without
// them.
type ValidateRequest struct {
	Markdown     string `json:"markdown"`
	Language     string `json:"language,omitempty"`
	Requirements string `json:"requirements,omitempty"`
	Design       string `json:"design,omitempty"`
}

// ValidateResponse carries one validation result.
type ValidateResponse struct {
	ReportID      string             `json:"reportId"`
	Kind          string             `json:"kind"`
	Language      string             `json:"language"`
	IsValid       bool               `json:"isValid"`
	Summary       validation.Summary `json:"summary"`
	Issues        []validation.Issue `json:"issues"`
	Stats         map[string]any     `json:"stats"`
	FoundSections []string           `json:"foundSections"`
}

// TraceRequest is the payload for traceability matrix builds.
type TraceRequest struct {
	Requirements string `json:"requirements,omitempty"`
	Design       string `json:"design,omitempty"`
	Tasks        string `json:"tasks,omitempty"`
}

// TraceResponse carries one traceability matrix.
type TraceResponse struct {
	ReportID string        `json:"reportId"`
	Matrix   *trace.Matrix `json:"matrix"`
}

// EARSRequest is the payload for EARS compliance analysis.
type EARSRequest struct {
	Markdown string `json:"markdown"`
	Language string `json:"language,omitempty"`
}

// EARSResponse carries one EARS compliance result.
type EARSResponse struct {
	ReportID string      `json:"reportId"`
	Result   ears.Result `json:"result"`
}

// Server is the HTTP API server for speclint.
type Server struct {
	router chi.Router
	log    *slog.Logger
}

// NewServer creates and configures the HTTP server.
func NewServer(log *slog.Logger) *Server {
	if log == nil {
		log = slog.Default()
	}
	s := &Server{log: log}
	s.setupRoutes()
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) setupRoutes() {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(RequestLogger(s.log))
	r.Use(countInFlight)

	r.Get("/health", s.handleHealth)
	r.Handle("/metrics", promhttp.Handler())

	r.Post("/api/validate/{kind}", s.handleValidate)
	r.Post("/api/trace", s.handleTrace)
	r.Post("/api/ears", s.handleEARS)

	s.router = r
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Write([]byte(`{"status":"ok"}`))
}

func (s *Server) handleValidate(w http.ResponseWriter, r *http.Request) {
	kind := document.DocumentKind(chi.URLParam(r, "kind"))
	if !kind.IsValid() {
		jsonError(w, fmt.Sprintf("unknown document kind: %q", kind), http.StatusBadRequest)
		return
	}

	var req ValidateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		jsonError(w, "invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}
	if strings.TrimSpace(req.Markdown) == "" {
		jsonError(w, "markdown is required", http.StatusBadRequest)
		return
	}

	start := time.Now()
	res, err := runValidation(req, kind)
	if err != nil {
		jsonError(w, "validation failed: "+err.Error(), http.StatusUnprocessableEntity)
		return
	}
	recordValidation(res, time.Since(start))

	respondJSON(w, http.StatusOK, validateResponse(res))
}

func (s *Server) handleTrace(w http.ResponseWriter, r *http.Request) {
	var req TraceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		jsonError(w, "invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}
	if strings.TrimSpace(req.Requirements+req.Design+req.Tasks) == "" {
		jsonError(w, "at least one document is required", http.StatusBadRequest)
		return
	}

	matrix, err := report.BuildMatrix(req.Requirements, req.Design, req.Tasks)
	if err != nil {
		jsonError(w, "matrix build failed: "+err.Error(), http.StatusUnprocessableEntity)
		return
	}
	MatrixCount.Inc()

	respondJSON(w, http.StatusOK, TraceResponse{ReportID: newReportID(), Matrix: matrix})
}

func (s *Server) handleEARS(w http.ResponseWriter, r *http.Request) {
	var req EARSRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		jsonError(w, "invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}
	if strings.TrimSpace(req.Markdown) == "" {
		jsonError(w, "markdown is required", http.StatusBadRequest)
		return
	}

	res, err := analyzeEARS(req)
	if err != nil {
		jsonError(w, "parse failed: "+err.Error(), http.StatusUnprocessableEntity)
		return
	}

	respondJSON(w, http.StatusOK, EARSResponse{ReportID: newReportID(), Result: res})
}

func analyzeEARS(req EARSRequest) (ears.Result, error) {
	doc, err := parser.New().Parse(req.Markdown, document.Language(req.Language), document.KindRequirements)
	if err != nil {
		return ears.Result{}, err
	}
	return ears.AnalyzeDocument(doc), nil
}

func newReportID() string {
	return uuid.NewString()
}

// runValidation dispatches one validation request to the matching report
// entry point.
func runValidation(req ValidateRequest, kind document.DocumentKind) (*validation.Result, error) {
	lang := document.Language(req.Language)
	switch kind {
	case document.KindRequirements:
		return report.ValidateRequirements(req.Markdown, lang)
	case document.KindDesign:
		return report.ValidateDesign(req.Markdown, lang, req.Requirements)
	case document.KindTasks:
		return report.ValidateTasks(req.Markdown, lang, req.Requirements, req.Design)
	}
	return nil, fmt.Errorf("%w: %q", document.ErrUnsupportedKind, kind)
}

func validateResponse(res *validation.Result) ValidateResponse {
	issues := res.Issues
	if issues == nil {
		issues = []validation.Issue{}
	}
	sections := res.FoundSections
	if sections == nil {
		sections = []string{}
	}
	return ValidateResponse{
		ReportID:      newReportID(),
		Kind:          string(res.Kind),
		Language:      string(res.Language),
		IsValid:       res.IsValid,
		Summary:       res.Summary(),
		Issues:        issues,
		Stats:         res.Stats,
		FoundSections: sections,
	}
}

func respondJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}

func jsonError(w http.ResponseWriter, msg string, code int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(map[string]string{"error": msg})
}
