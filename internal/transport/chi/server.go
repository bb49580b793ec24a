// Package chi exposes the question-answering service over HTTP.
package chi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/pokelab/pokedex/internal/domain"
	domquery "github.com/pokelab/pokedex/internal/domain/query"
	evaluc "github.com/pokelab/pokedex/internal/usecase/eval"
	ingestuc "github.com/pokelab/pokedex/internal/usecase/ingest"
	queryuc "github.com/pokelab/pokedex/internal/usecase/query"
)

const maxIngestBatch = 200

// errorCode is the machine-readable error discriminator of the API.
type errorCode string

const (
	codeBadRequest       errorCode = "bad_request"
	codeValidationFailed errorCode = "validation_failed"
	codeNotFound         errorCode = "not_found"
	codeNotReady         errorCode = "not_ready"
	codeProviderError    errorCode = "provider_error"
	codeInternalError    errorCode = "internal_error"
)

// ErrorResponse is the error body of every non-2xx response.
type ErrorResponse struct {
	Code    errorCode `json:"code"`
	Message string    `json:"message"`
}

// errorHandler tries to handle a domain error. Returns true if handled.
type errorHandler func(w http.ResponseWriter, err error, msg string) bool

// Fetcher retrieves entity records from the upstream API.
type Fetcher interface {
	FetchAll(ctx context.Context, names []string) ([]domain.EntityRecord, error)
}

// Saver persists fetched records so they survive a restart.
type Saver interface {
	Save(records []domain.EntityRecord) error
}

// Server is the HTTP API server.
type Server struct {
	query         *queryuc.Service
	ingest        *ingestuc.Service
	eval          *evaluc.Evaluator
	interactions  *evaluc.InteractionLog
	fetcher       Fetcher
	saver         Saver
	logger        *zap.Logger
	errorHandlers []errorHandler
}

// NewServer creates an HTTP API server. The fetcher may be nil, which
// disables the upstream ingestion endpoint. The saver may be nil, which
// skips corpus persistence after ingestion.
func NewServer(
	query *queryuc.Service,
	ingest *ingestuc.Service,
	eval *evaluc.Evaluator,
	interactions *evaluc.InteractionLog,
	fetcher Fetcher,
	saver Saver,
	logger *zap.Logger,
) *Server {
	s := &Server{
		query:        query,
		ingest:       ingest,
		eval:         eval,
		interactions: interactions,
		fetcher:      fetcher,
		saver:        saver,
		logger:       logger,
	}
	s.errorHandlers = []errorHandler{
		sentinelHandler(domain.ErrNotReady, http.StatusServiceUnavailable, codeNotReady),
		sentinelHandler(domain.ErrNotFound, http.StatusNotFound, codeNotFound),
		sentinelHandler(domain.ErrInvalidRecord, http.StatusBadRequest, codeValidationFailed),
		sentinelHandler(domain.ErrDuplicateName, http.StatusBadRequest, codeValidationFailed),
		sentinelHandler(domain.ErrEmbeddingProviderError, http.StatusBadGateway, codeProviderError),
		sentinelHandler(domain.ErrGenerationFailed, http.StatusBadGateway, codeProviderError),
	}
	return s
}

// Register mounts the API routes on a router.
func (s *Server) Register(r chi.Router) {
	r.Get("/health", s.handleHealth)
	r.Get("/metrics", promhttp.Handler().ServeHTTP)

	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/query", s.handleQuery)
		r.Post("/evaluate", s.handleEvaluate)
		r.Post("/records", s.handleLoadRecords)
		if s.fetcher != nil {
			r.Post("/ingest", s.handleIngest)
		}
	})
}

// QueryRequest is the body of POST /api/v1/query.
type QueryRequest struct {
	Question string `json:"question"`
	Detailed bool   `json:"detailed,omitempty"`
}

// ContextItem is one retrieved snippet in a query response.
type ContextItem struct {
	Content  string            `json:"content"`
	Metadata map[string]string `json:"metadata,omitempty"`
	Score    float64           `json:"score"`
}

// QueryResponse is the body of a successful query.
type QueryResponse struct {
	Answer     string        `json:"answer"`
	SearchType string        `json:"search_type"`
	Context    []ContextItem `json:"context,omitempty"`
}

func (s *Server) handleQuery(w http.ResponseWriter, r *http.Request) {
	var req QueryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, codeBadRequest, "Invalid request body: "+err.Error())
		return
	}
	if req.Question == "" {
		writeError(w, http.StatusBadRequest, codeValidationFailed, "question is required")
		return
	}

	result, err := s.query.Query(r.Context(), req.Question, req.Detailed)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, queryResultToResponse(result))
}

// EvaluateItem is one labeled example in an evaluation request.
type EvaluateItem struct {
	Label      string   `json:"label"`
	Question   string   `json:"question,omitempty"`
	Prediction string   `json:"prediction"`
	Reference  string   `json:"reference"`
	Context    []string `json:"context,omitempty"`
	SearchType string   `json:"search_type,omitempty"`
}

// EvaluateRequest is the body of POST /api/v1/evaluate.
type EvaluateRequest struct {
	Items []EvaluateItem `json:"items"`
	TopN  int            `json:"top_n,omitempty"`
}

// EvaluateResponse carries per-example scores and the aggregate report.
type EvaluateResponse struct {
	Results []EvaluateResult               `json:"results"`
	Report  map[string]evaluc.MetricReport `json:"report"`
}

// EvaluateResult is one scored example.
type EvaluateResult struct {
	Label  string        `json:"label"`
	Scores evaluc.Scores `json:"scores"`
}

func (s *Server) handleEvaluate(w http.ResponseWriter, r *http.Request) {
	var req EvaluateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, codeBadRequest, "Invalid request body: "+err.Error())
		return
	}
	if len(req.Items) == 0 {
		writeError(w, http.StatusBadRequest, codeValidationFailed, "items is required")
		return
	}
	topN := req.TopN
	if topN <= 0 {
		topN = 5
	}

	results := make([]EvaluateResult, len(req.Items))
	batch := make([]evaluc.ScoredExample, len(req.Items))
	for i, item := range req.Items {
		scores := s.eval.Score(item.Prediction, item.Reference, item.Context)
		results[i] = EvaluateResult{Label: item.Label, Scores: scores}
		batch[i] = evaluc.ScoredExample{Label: item.Label, Scores: scores}

		if s.interactions != nil {
			s.interactions.Record(item.Question, item.Prediction, item.Reference, item.SearchType, scores)
		}
	}

	writeJSON(w, http.StatusOK, EvaluateResponse{
		Results: results,
		Report:  evaluc.Report(batch, topN),
	})
}

// LoadRecordsRequest is the body of POST /api/v1/records.
type LoadRecordsRequest struct {
	Records []domain.EntityRecord `json:"records"`
}

// LoadResponse reports how many records went live.
type LoadResponse struct {
	Loaded int `json:"loaded"`
}

func (s *Server) handleLoadRecords(w http.ResponseWriter, r *http.Request) {
	var req LoadRecordsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, codeBadRequest, "Invalid request body: "+err.Error())
		return
	}
	if len(req.Records) == 0 || len(req.Records) > maxIngestBatch {
		writeError(w, http.StatusBadRequest, codeValidationFailed,
			"records count must be between 1 and 200")
		return
	}

	if err := s.ingest.Load(r.Context(), req.Records); err != nil {
		s.handleDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, LoadResponse{Loaded: len(req.Records)})
}

// IngestRequest is the body of POST /api/v1/ingest.
type IngestRequest struct {
	Names []string `json:"names"`
}

func (s *Server) handleIngest(w http.ResponseWriter, r *http.Request) {
	var req IngestRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, codeBadRequest, "Invalid request body: "+err.Error())
		return
	}
	if len(req.Names) == 0 || len(req.Names) > maxIngestBatch {
		writeError(w, http.StatusBadRequest, codeValidationFailed,
			"names count must be between 1 and 200")
		return
	}

	records, err := s.fetcher.FetchAll(r.Context(), req.Names)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}
	if err := s.ingest.Load(r.Context(), records); err != nil {
		s.handleDomainError(w, err)
		return
	}

	// Persist so the refreshed corpus is reloaded on the next start.
	if s.saver != nil {
		if err := s.saver.Save(records); err != nil {
			s.logger.Warn("Failed to persist fetched records", zap.Error(err))
		}
	}

	writeJSON(w, http.StatusOK, LoadResponse{Loaded: len(records)})
}

// HealthResponse is the body of GET /health.
type HealthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	resp := HealthResponse{
		Status: "ok",
		Checks: map[string]string{"retriever": "ready"},
	}
	status := http.StatusOK
	if !s.query.Ready() {
		resp.Status = "not_ready"
		resp.Checks["retriever"] = "not_ready"
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, resp)
}

func queryResultToResponse(result domquery.Result) QueryResponse {
	resp := QueryResponse{
		Answer:     result.Answer(),
		SearchType: string(result.SearchType()),
	}
	for _, item := range result.Context() {
		resp.Context = append(resp.Context, ContextItem{
			Content:  item.Content(),
			Metadata: item.Metadata(),
			Score:    item.Score(),
		})
	}
	return resp
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code errorCode, message string) {
	writeJSON(w, status, ErrorResponse{Code: code, Message: message})
}

// safeDomainMessage returns a sentinel error message for the client without exposing internals.
func safeDomainMessage(err error) string {
	sentinels := []error{
		domain.ErrNotReady,
		domain.ErrNotFound,
		domain.ErrInvalidRecord,
		domain.ErrDuplicateName,
		domain.ErrEmbeddingProviderError,
		domain.ErrGenerationFailed,
	}
	for _, s := range sentinels {
		if errors.Is(err, s) {
			return s.Error()
		}
	}
	return "internal error"
}

// sentinelHandler returns an errorHandler that matches a single sentinel error.
func sentinelHandler(sentinel error, status int, code errorCode) errorHandler {
	return func(w http.ResponseWriter, err error, msg string) bool {
		if !errors.Is(err, sentinel) {
			return false
		}
		writeError(w, status, code, msg)
		return true
	}
}

func (s *Server) handleDomainError(w http.ResponseWriter, err error) {
	s.logger.Warn("domain error", zap.Error(err))
	msg := safeDomainMessage(err)
	for _, h := range s.errorHandlers {
		if h(w, err, msg) {
			return
		}
	}
	s.logger.Error("internal error", zap.Error(err))
	writeError(w, http.StatusInternalServerError, codeInternalError, "internal error")
}
