package handlers

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"

	"regional-stats/internal/models"
	"regional-stats/internal/repository"
	"regional-stats/internal/services"
	"regional-stats/pkg/logging"
	"regional-stats/pkg/metrics"
)

// ObservationHandler handles category and observation CRUD endpoints
type ObservationHandler struct {
	responder
	observations *services.ObservationService
}

// NewObservationHandler creates a new observation handler
func NewObservationHandler(observations *services.ObservationService, logger *logging.StructuredLogger, metricsCollector *metrics.Collector) *ObservationHandler {
	return &ObservationHandler{
		responder:    responder{logger: logger, metrics: metricsCollector},
		observations: observations,
	}
}

// CreateObservationResponse reports a single write
type CreateObservationResponse struct {
	Outcome     models.UpsertOutcome `json:"outcome"`
	Observation *models.Observation  `json:"observation"`
}

// RenameCategoryRequest is the body of PUT /api/categories/{id}
type RenameCategoryRequest struct {
	Name        string  `json:"name"`
	DisplayName *string `json:"display_name"`
}

// ListCategories handles GET /api/categories
func (h *ObservationHandler) ListCategories(w http.ResponseWriter, r *http.Request) {
	categories, err := h.observations.ListCategories(r.Context())
	if err != nil {
		h.sendServiceError(w, r, "/api/categories", err)
		return
	}
	h.sendJSON(w, ListResponse{Data: categories, Total: len(categories)}, http.StatusOK)
}

// CreateCategory handles POST /api/categories
func (h *ObservationHandler) CreateCategory(w http.ResponseWriter, r *http.Request) {
	const endpoint = "/api/categories"

	var category models.Category
	if err := decodeJSON(r, &category); err != nil {
		h.sendServiceError(w, r, endpoint, err)
		return
	}
	if err := h.observations.CreateCategory(r.Context(), &category); err != nil {
		h.sendServiceError(w, r, endpoint, err)
		return
	}
	h.sendJSON(w, category, http.StatusCreated)
}

// RenameCategory handles PUT /api/categories/{id}
func (h *ObservationHandler) RenameCategory(w http.ResponseWriter, r *http.Request) {
	const endpoint = "/api/categories/{id}"

	id, err := pathID(r)
	if err != nil {
		h.sendServiceError(w, r, endpoint, err)
		return
	}
	var req RenameCategoryRequest
	if err := decodeJSON(r, &req); err != nil {
		h.sendServiceError(w, r, endpoint, err)
		return
	}

	category, err := h.observations.RenameCategory(r.Context(), id, req.Name, req.DisplayName)
	if err != nil {
		h.sendServiceError(w, r, endpoint, err)
		return
	}
	h.sendJSON(w, category, http.StatusOK)
}

// GetObservations handles GET /api/observations
func (h *ObservationHandler) GetObservations(w http.ResponseWriter, r *http.Request) {
	const endpoint = "/api/observations"

	filter, page, limit, err := observationFilter(r)
	if err != nil {
		h.sendServiceError(w, r, endpoint, err)
		return
	}

	observations, total, err := h.observations.GetObservations(r.Context(), filter)
	if err != nil {
		h.sendServiceError(w, r, endpoint, err)
		return
	}

	h.sendJSON(w, PaginatedResponse{
		Data:       observations,
		Total:      total,
		Page:       page,
		Limit:      limit,
		TotalPages: (total + limit - 1) / limit,
	}, http.StatusOK)
}

// observationFilter parses category_id, region (city or "province:regency"),
// year_from, year_to, page and limit.
func observationFilter(r *http.Request) (repository.ObservationFilter, int, int, error) {
	q := r.URL.Query()
	page, limit := pagination(r)
	filter := repository.ObservationFilter{
		Limit:  limit,
		Offset: (page - 1) * limit,
	}

	if s := q.Get("category_id"); s != "" {
		id, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return filter, 0, 0, &models.ValidationError{Field: "category_id", Value: s, Message: "category_id must be an integer"}
		}
		filter.CategoryID = &id
	}

	region := q.Get("region")
	if region == "" {
		region = q.Get("city")
	}
	if region != "" {
		key, err := models.ParseRegion(region)
		if err != nil {
			return filter, 0, 0, err
		}
		if key.IsCode() {
			filter.ProvinceID = &key.ProvinceID
			filter.RegencyID = &key.RegencyID
		} else {
			filter.City = &key.City
		}
	}

	for name, dest := range map[string]**int{"year_from": &filter.YearFrom, "year_to": &filter.YearTo} {
		s := q.Get(name)
		if s == "" {
			continue
		}
		year, err := strconv.Atoi(s)
		if err != nil {
			return filter, 0, 0, &models.ValidationError{Field: name, Value: s, Message: name + " must be an integer year"}
		}
		*dest = &year
	}
	return filter, page, limit, nil
}

// GetObservation handles GET /api/observations/{id}
func (h *ObservationHandler) GetObservation(w http.ResponseWriter, r *http.Request) {
	const endpoint = "/api/observations/{id}"

	id, err := pathID(r)
	if err != nil {
		h.sendServiceError(w, r, endpoint, err)
		return
	}
	obs, err := h.observations.GetObservation(r.Context(), id)
	if err != nil {
		h.sendServiceError(w, r, endpoint, err)
		return
	}
	h.sendJSON(w, obs, http.StatusOK)
}

// CreateObservations handles POST /api/observations. The body is either
// one observation or an array written in a single transaction;
// ?on_duplicate= overrides the configured duplicate policy.
func (h *ObservationHandler) CreateObservations(w http.ResponseWriter, r *http.Request) {
	const endpoint = "/api/observations"
	ctx := r.Context()
	policy := r.URL.Query().Get("on_duplicate")

	body, err := io.ReadAll(r.Body)
	if err != nil {
		h.sendServiceError(w, r, endpoint, &models.ValidationError{Field: "body", Message: "failed to read request body"})
		return
	}

	trimmed := bytes.TrimSpace(body)
	if len(trimmed) > 0 && trimmed[0] == '[' {
		var batch []*models.Observation
		if err := json.Unmarshal(trimmed, &batch); err != nil {
			h.sendServiceError(w, r, endpoint, &models.ValidationError{Field: "body", Message: "invalid request body: " + err.Error()})
			return
		}
		result, err := h.observations.CreateObservations(ctx, batch, policy)
		if err != nil {
			h.sendServiceError(w, r, endpoint, err)
			return
		}
		h.sendJSON(w, result, http.StatusOK)
		return
	}

	var obs models.Observation
	if err := json.Unmarshal(trimmed, &obs); err != nil {
		h.sendServiceError(w, r, endpoint, &models.ValidationError{Field: "body", Message: "invalid request body: " + err.Error()})
		return
	}
	outcome, err := h.observations.CreateObservation(ctx, &obs, policy)
	if err != nil {
		h.sendServiceError(w, r, endpoint, err)
		return
	}

	status := http.StatusOK
	if outcome == models.OutcomeInserted {
		status = http.StatusCreated
	}
	h.sendJSON(w, CreateObservationResponse{Outcome: outcome, Observation: &obs}, status)
}

// UpdateObservation handles PUT /api/observations/{id}
func (h *ObservationHandler) UpdateObservation(w http.ResponseWriter, r *http.Request) {
	const endpoint = "/api/observations/{id}"

	id, err := pathID(r)
	if err != nil {
		h.sendServiceError(w, r, endpoint, err)
		return
	}
	var obs models.Observation
	if err := decodeJSON(r, &obs); err != nil {
		h.sendServiceError(w, r, endpoint, err)
		return
	}
	obs.ID = id

	if err := h.observations.UpdateObservation(r.Context(), &obs); err != nil {
		h.sendServiceError(w, r, endpoint, err)
		return
	}
	h.sendJSON(w, obs, http.StatusOK)
}

// DeleteObservation handles DELETE /api/observations/{id}
func (h *ObservationHandler) DeleteObservation(w http.ResponseWriter, r *http.Request) {
	const endpoint = "/api/observations/{id}"

	id, err := pathID(r)
	if err != nil {
		h.sendServiceError(w, r, endpoint, err)
		return
	}
	if err := h.observations.DeleteObservation(r.Context(), id); err != nil {
		h.sendServiceError(w, r, endpoint, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// HealthCheck handles GET /health
func (h *ObservationHandler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	status := map[string]string{
		"status":    "healthy",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	}

	if err := h.observations.HealthCheck(ctx); err != nil {
		h.logger.Warn(ctx, "[HEALTH_CHECK] Store unreachable", logging.Fields{"error": err.Error()})
		status["status"] = "unhealthy"
		h.sendJSON(w, status, http.StatusServiceUnavailable)
		return
	}

	h.logger.Debug(ctx, "[HEALTH_CHECK] Health check requested", logging.Fields{})
	h.sendJSON(w, status, http.StatusOK)
}

// RegisterRoutes registers the CRUD and health routes
func (h *ObservationHandler) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/api/categories", h.ListCategories).Methods("GET")
	router.HandleFunc("/api/categories", h.CreateCategory).Methods("POST")
	router.HandleFunc("/api/categories/{id}", h.RenameCategory).Methods("PUT")
	router.HandleFunc("/api/observations", h.GetObservations).Methods("GET")
	router.HandleFunc("/api/observations", h.CreateObservations).Methods("POST")
	router.HandleFunc("/api/observations/{id}", h.GetObservation).Methods("GET")
	router.HandleFunc("/api/observations/{id}", h.UpdateObservation).Methods("PUT")
	router.HandleFunc("/api/observations/{id}", h.DeleteObservation).Methods("DELETE")
	router.HandleFunc("/health", h.HealthCheck).Methods("GET")
}
