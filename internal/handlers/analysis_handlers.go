package handlers

import (
	"net/http"

	"github.com/gorilla/mux"

	"regional-stats/internal/models"
	"regional-stats/internal/services"
	"regional-stats/pkg/logging"
	"regional-stats/pkg/metrics"
)

// AnalysisHandler serves regression analysis and prediction
type AnalysisHandler struct {
	responder
	analysis *services.AnalysisService
}

func NewAnalysisHandler(analysis *services.AnalysisService, logger *logging.StructuredLogger, metricsCollector *metrics.Collector) *AnalysisHandler {
	return &AnalysisHandler{
		responder: responder{logger: logger, metrics: metricsCollector},
		analysis:  analysis,
	}
}

// Analyze handles POST /api/analysis
func (h *AnalysisHandler) Analyze(w http.ResponseWriter, r *http.Request) {
	const endpoint = "/api/analysis"

	var req models.AnalysisRequest
	if err := decodeJSON(r, &req); err != nil {
		h.sendServiceError(w, r, endpoint, err)
		return
	}

	resp, err := h.analysis.Analyze(r.Context(), req)
	if err != nil {
		h.sendServiceError(w, r, endpoint, err)
		return
	}
	h.sendJSON(w, resp, http.StatusOK)
}

// Predict handles POST /api/predict
func (h *AnalysisHandler) Predict(w http.ResponseWriter, r *http.Request) {
	const endpoint = "/api/predict"

	var req models.PredictionRequest
	if err := decodeJSON(r, &req); err != nil {
		h.sendServiceError(w, r, endpoint, err)
		return
	}

	resp, err := h.analysis.Predict(r.Context(), req)
	if err != nil {
		h.sendServiceError(w, r, endpoint, err)
		return
	}
	h.sendJSON(w, resp, http.StatusOK)
}

func (h *AnalysisHandler) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/api/analysis", h.Analyze).Methods("POST")
	router.HandleFunc("/api/predict", h.Predict).Methods("POST")
}
