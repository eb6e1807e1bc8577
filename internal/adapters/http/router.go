package httpadapter

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/kirillkom/contextual-rag/internal/core/domain"
	"github.com/kirillkom/contextual-rag/internal/core/ports"
	"github.com/kirillkom/contextual-rag/internal/observability/metrics"
)

type Router struct {
	ingest   ports.DocumentIngestor
	repo     ports.DocumentRepository
	search   ports.SearchService
	rag      ports.RAGService
	settings ports.SettingsService

	httpMetrics *metrics.HTTPServerMetrics
	log         *slog.Logger

	configAPIKey     string
	rateLimitRPS     float64
	rateLimitBurst   int
	maxInFlight      int
	backpressureWait time.Duration
}

type RouterOptions struct {
	Ingest   ports.DocumentIngestor
	Repo     ports.DocumentRepository
	Search   ports.SearchService
	RAG      ports.RAGService
	Settings ports.SettingsService

	Metrics *metrics.HTTPServerMetrics
	Logger  *slog.Logger

	ConfigAPIKey     string
	RateLimitRPS     float64
	RateLimitBurst   int
	MaxInFlight      int
	BackpressureWait time.Duration
}

func NewRouter(options RouterOptions) *Router {
	log := options.Logger
	if log == nil {
		log = slog.Default()
	}
	return &Router{
		ingest:           options.Ingest,
		repo:             options.Repo,
		search:           options.Search,
		rag:              options.RAG,
		settings:         options.Settings,
		httpMetrics:      options.Metrics,
		log:              log,
		configAPIKey:     options.ConfigAPIKey,
		rateLimitRPS:     options.RateLimitRPS,
		rateLimitBurst:   options.RateLimitBurst,
		maxInFlight:      options.MaxInFlight,
		backpressureWait: options.BackpressureWait,
	}
}

func (rt *Router) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", rt.healthz)
	if rt.httpMetrics != nil {
		mux.Handle("GET /metrics", rt.httpMetrics.Handler())
	}

	mux.HandleFunc("POST /v1/documents", rt.ingestDocuments)
	mux.HandleFunc("GET /v1/documents/{id}", rt.getDocument)
	mux.HandleFunc("DELETE /v1/documents/{id}", rt.deleteDocument)
	mux.HandleFunc("POST /v1/search", rt.searchChunks)
	mux.HandleFunc("POST /v1/rag", rt.generateAnswer)

	mux.Handle("GET /v1/config/settings", rt.configAuth(rt.listSettings))
	mux.Handle("POST /v1/config/settings", rt.configAuth(rt.createSetting))
	mux.Handle("GET /v1/config/settings/{key}", rt.configAuth(rt.getSetting))
	mux.Handle("PUT /v1/config/settings/{key}", rt.configAuth(rt.updateSetting))
	mux.Handle("DELETE /v1/config/settings/{key}", rt.configAuth(rt.deleteSetting))
	mux.Handle("GET /v1/config/groups", rt.configAuth(rt.listGroups))
	mux.Handle("GET /v1/config/groups/{group}", rt.configAuth(rt.getGroup))
	mux.Handle("POST /v1/config/initialize", rt.configAuth(rt.initializeDefaults))

	var handler http.Handler = mux
	if rt.httpMetrics != nil {
		handler = rt.httpMetrics.Middleware("api", handler)
	}
	handler = backpressureMiddleware(handler, rt.maxInFlight, rt.backpressureWait)
	handler = rateLimitMiddleware(handler, rt.rateLimitRPS, rt.rateLimitBurst)
	handler = accessLogMiddleware(rt.log, handler)
	return requestIDMiddleware(handler)
}

func (rt *Router) healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type ingestRequest struct {
	Documents []struct {
		Text     string         `json:"text"`
		Metadata map[string]any `json:"metadata"`
	} `json:"documents"`
}

func (rt *Router) ingestDocuments(w http.ResponseWriter, r *http.Request) {
	var req ingestRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_input", "invalid json")
		return
	}
	if len(req.Documents) == 0 {
		writeError(w, http.StatusBadRequest, "invalid_input", "documents is required")
		return
	}

	docs := make([]ports.IngestDocument, 0, len(req.Documents))
	for _, d := range req.Documents {
		docs = append(docs, ports.IngestDocument{Text: d.Text, Metadata: d.Metadata})
	}

	results, err := rt.ingest.Ingest(r.Context(), docs)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]any{"results": results})
}

func (rt *Router) getDocument(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	doc, err := rt.repo.GetByID(r.Context(), id)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, doc)
}

func (rt *Router) deleteDocument(w http.ResponseWriter, r *http.Request) {
	if err := rt.ingest.Delete(r.Context(), r.PathValue("id")); err != nil {
		writeDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type searchRequest struct {
	Query             string         `json:"query"`
	NResults          int            `json:"n_results"`
	RerankMethod      string         `json:"rerank_method"`
	EmbeddingProvider string         `json:"embedding_provider"`
	Where             map[string]any `json:"where"`
}

func (rt *Router) searchChunks(w http.ResponseWriter, r *http.Request) {
	var req searchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_input", "invalid json")
		return
	}

	start := time.Now()
	results, err := rt.search.Search(r.Context(), ports.SearchRequest{
		Query:             req.Query,
		NResults:          req.NResults,
		RerankMethod:      req.RerankMethod,
		EmbeddingProvider: req.EmbeddingProvider,
		Filter:            domain.SearchFilter{Where: req.Where},
	})
	if err != nil {
		writeDomainError(w, err)
		return
	}

	if rt.httpMetrics != nil {
		rt.httpMetrics.RecordRAGObservation("api", "search", len(results), time.Since(start))
	}
	writeJSON(w, http.StatusOK, map[string]any{"results": results})
}

type generateRequest struct {
	Query             string         `json:"query"`
	NResults          int            `json:"n_results"`
	SystemPrompt      string         `json:"system_prompt"`
	Temperature       *float64       `json:"temperature"`
	LLMProvider       string         `json:"llm_provider"`
	EmbeddingProvider string         `json:"embedding_provider"`
	RerankMethod      string         `json:"rerank_method"`
	Where             map[string]any `json:"where"`
}

func (rt *Router) generateAnswer(w http.ResponseWriter, r *http.Request) {
	var req generateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_input", "invalid json")
		return
	}

	start := time.Now()
	answer, err := rt.rag.Generate(r.Context(), ports.GenerateRequest{
		Query:             req.Query,
		NResults:          req.NResults,
		SystemPrompt:      req.SystemPrompt,
		Temperature:       req.Temperature,
		LLMProvider:       req.LLMProvider,
		EmbeddingProvider: req.EmbeddingProvider,
		RerankMethod:      req.RerankMethod,
		Filter:            domain.SearchFilter{Where: req.Where},
	})
	if err != nil {
		writeDomainError(w, err)
		return
	}

	if rt.httpMetrics != nil {
		rt.httpMetrics.RecordRAGObservation("api", "rag", len(answer.Sources), time.Since(start))
		rt.httpMetrics.RecordRetrievalMode("api", "rag", answer.Retrieval.Mode)
		rt.httpMetrics.RecordRerankMethod("api", "rag", answer.Retrieval.RerankMethod)
	}
	rt.log.Info("rag_request",
		"request_id", requestIDFromContext(r.Context()),
		"retrieval_mode", answer.Retrieval.Mode,
		"rerank_method", answer.Retrieval.RerankMethod,
		"retrieved_chunks", len(answer.Sources),
		"duration_ms", float64(time.Since(start).Microseconds())/1000.0,
	)
	writeJSON(w, http.StatusOK, answer)
}

func (rt *Router) configAuth(next http.HandlerFunc) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if rt.configAPIKey == "" {
			next(w, r)
			return
		}
		if isAuthorizedBearerHeader(r.Header.Get("Authorization"), rt.configAPIKey) {
			next(w, r)
			return
		}
		writeError(w, http.StatusUnauthorized, "unauthorized", "unauthorized")
	})
}

func isAuthorizedBearerHeader(headerValue, expectedToken string) bool {
	headerValue = strings.TrimSpace(headerValue)
	if headerValue == "" || expectedToken == "" {
		return false
	}
	const bearerPrefix = "Bearer "
	if !strings.HasPrefix(headerValue, bearerPrefix) {
		return false
	}
	token := strings.TrimSpace(strings.TrimPrefix(headerValue, bearerPrefix))
	return token == expectedToken
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, map[string]string{"error": message, "error_code": code})
}

func writeDomainError(w http.ResponseWriter, err error) {
	writeJSON(w, mapErrorToHTTPStatus(err), map[string]string{
		"error":      err.Error(),
		"error_code": errorCode(err),
	})
}
