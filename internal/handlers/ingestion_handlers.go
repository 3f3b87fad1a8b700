package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/gorilla/mux"

	"regional-stats/internal/config"
	"regional-stats/internal/models"
	"regional-stats/internal/services"
	"regional-stats/pkg/logging"
	"regional-stats/pkg/metrics"
)

// IngestionHandler triggers statistical-agency ingestion on demand
type IngestionHandler struct {
	responder
	ingestion *services.IngestionService
	jobs      []config.JobConfig
}

// NewIngestionHandler creates a handler that runs jobs when a request
// names none of its own.
func NewIngestionHandler(ingestion *services.IngestionService, jobs []config.JobConfig, logger *logging.StructuredLogger, metricsCollector *metrics.Collector) *IngestionHandler {
	return &IngestionHandler{
		responder: responder{logger: logger, metrics: metricsCollector},
		ingestion: ingestion,
		jobs:      jobs,
	}
}

// IngestRequest optionally overrides the configured jobs
type IngestRequest struct {
	Jobs []config.JobConfig `json:"jobs"`
}

// Ingest handles POST /api/ingest/bps
func (h *IngestionHandler) Ingest(w http.ResponseWriter, r *http.Request) {
	const endpoint = "/api/ingest/bps"

	var req IngestRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		h.sendServiceError(w, r, endpoint, &models.ValidationError{Field: "body", Message: "invalid request body: " + err.Error()})
		return
	}
	jobs := req.Jobs
	if len(jobs) == 0 {
		jobs = append([]config.JobConfig(nil), h.jobs...)
	}
	if len(jobs) == 0 {
		h.sendServiceError(w, r, endpoint, &models.ValidationError{Field: "jobs", Message: "no ingestion jobs configured"})
		return
	}
	for i, job := range jobs {
		if job.CategoryID <= 0 {
			h.sendServiceError(w, r, endpoint, &models.ValidationError{Field: "category_id", Message: "every job needs a category_id"})
			return
		}
		if job.Name == "" {
			jobs[i].Name = job.Domain + "/" + job.Var
		}
	}

	result, err := h.ingestion.Run(r.Context(), jobs)
	if err != nil {
		h.sendServiceError(w, r, endpoint, err)
		return
	}
	h.sendJSON(w, result, http.StatusOK)
}

func (h *IngestionHandler) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/api/ingest/bps", h.Ingest).Methods("POST")
}
