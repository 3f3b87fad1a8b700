package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"regional-stats/internal/models"
	"regional-stats/pkg/logging"
	"regional-stats/pkg/metrics"
)

// ErrorResponse represents an API error response
type ErrorResponse struct {
	Error string `json:"error"`
}

// PaginatedResponse represents a paginated API response
type PaginatedResponse struct {
	Data       interface{} `json:"data"`
	Total      int         `json:"total"`
	Page       int         `json:"page"`
	Limit      int         `json:"limit"`
	TotalPages int         `json:"total_pages"`
}

// ListResponse wraps an unpaginated collection
type ListResponse struct {
	Data  interface{} `json:"data"`
	Total int         `json:"total"`
}

const internalErrorMessage = "internal server error"

// responder carries the logger and metrics every handler writes through.
type responder struct {
	logger  *logging.StructuredLogger
	metrics *metrics.Collector
}

// sendJSON sends a JSON response. The body is encoded before the status is
// written so an unencodable value becomes a 500 rather than an empty reply.
func (h responder) sendJSON(w http.ResponseWriter, data interface{}, statusCode int) {
	body, err := json.Marshal(data)
	if err != nil {
		h.logger.Error(context.Background(), "[API_ENCODE_ERROR] Failed to encode response", logging.Fields{
			"status": statusCode,
		}, err)
		body, _ = json.Marshal(ErrorResponse{Error: internalErrorMessage})
		statusCode = http.StatusInternalServerError
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	w.Write(append(body, '\n'))
}

// sendError sends an error response
func (h responder) sendError(w http.ResponseWriter, endpoint, errorType, message string, statusCode int) {
	h.metrics.RecordAPIError(errorType, endpoint)
	h.sendJSON(w, ErrorResponse{Error: message}, statusCode)
}

// sendServiceError maps an error returned by a service onto a status code.
// Only unclassified errors are logged; their text never reaches the client.
func (h responder) sendServiceError(w http.ResponseWriter, r *http.Request, endpoint string, err error) {
	var (
		validation  *models.ValidationError
		notFound    *models.NotFoundError
		computation *models.ComputationError
		conflict    *models.ConflictError
	)
	switch {
	case errors.As(err, &validation):
		h.sendError(w, endpoint, "validation_error", validation.Error(), http.StatusBadRequest)
	case errors.As(err, &notFound):
		h.sendError(w, endpoint, "not_found", notFound.Error(), http.StatusNotFound)
	case errors.As(err, &computation):
		h.sendError(w, endpoint, "computation_error", computation.Error(), http.StatusUnprocessableEntity)
	case errors.As(err, &conflict):
		h.sendError(w, endpoint, "conflict", conflict.Error(), http.StatusConflict)
	default:
		h.logger.Error(r.Context(), "[API_INTERNAL_ERROR] Request failed", logging.Fields{
			"endpoint": endpoint,
			"method":   r.Method,
		}, err)
		h.sendError(w, endpoint, "internal_error", internalErrorMessage, http.StatusInternalServerError)
	}
}

// decodeJSON reads the request body into dest, reporting malformed input
// as a validation error.
func decodeJSON(r *http.Request, dest interface{}) error {
	if err := json.NewDecoder(r.Body).Decode(dest); err != nil {
		return &models.ValidationError{Field: "body", Message: "invalid request body: " + err.Error()}
	}
	return nil
}

// pagination reads page and limit, falling back to 1 and 100.
func pagination(r *http.Request) (page, limit int) {
	page, limit = 1, 100
	if p, err := strconv.Atoi(r.URL.Query().Get("page")); err == nil && p > 0 {
		page = p
	}
	if l, err := strconv.Atoi(r.URL.Query().Get("limit")); err == nil && l > 0 && l <= 1000 {
		limit = l
	}
	return page, limit
}

func pathID(r *http.Request) (int64, error) {
	raw := mux.Vars(r)["id"]
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, &models.ValidationError{Field: "id", Value: raw, Message: "id must be a positive integer"}
	}
	return id, nil
}
