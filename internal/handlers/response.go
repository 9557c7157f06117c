package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/juhojo/blabbermouth/internal/services"
	"github.com/juhojo/blabbermouth/pkg/utils"
)

const maxBodyBytes = 1 << 20

// ErrorResponse is the body of every 4xx/5xx answer.
type ErrorResponse struct {
	Success bool                     `json:"success"`
	Message string                   `json:"message"`
	Issues  []*utils.ValidationError `json:"issues,omitempty"`
}

// ListResponse wraps collection results.
type ListResponse[T any] struct {
	Items []T `json:"items"`
	Count int `json:"count"`
}

func newList[T any](items []T) ListResponse[T] {
	if items == nil {
		items = []T{}
	}
	return ListResponse[T]{Items: items, Count: len(items)}
}

// ItemResponse wraps a single optional result.
type ItemResponse[T any] struct {
	Item *T `json:"item"`
}

var emptyObject = struct{}{}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, ErrorResponse{Success: false, Message: message})
}

// writeValidation answers 400 with the field issues carried by err.
func writeValidation(w http.ResponseWriter, err error) {
	resp := ErrorResponse{Success: false, Message: "Validation failed"}

	var many utils.ValidationErrors
	var one *utils.ValidationError
	switch {
	case errors.As(err, &many):
		resp.Issues = many
	case errors.As(err, &one):
		resp.Issues = []*utils.ValidationError{one}
	default:
		resp.Message = err.Error()
	}
	writeJSON(w, http.StatusBadRequest, resp)
}

// writeServiceError maps service sentinels to status codes. Anything
// unrecognised is logged and answered with 500.
func writeServiceError(w http.ResponseWriter, r *http.Request, log *slog.Logger, err error) {
	switch {
	case errors.Is(err, services.ErrNotFound):
		writeError(w, http.StatusNotFound, "Not found")
	case errors.Is(err, services.ErrConflict):
		writeError(w, http.StatusConflict, "Already exists")
	case errors.Is(err, services.ErrUnauthorized):
		writeError(w, http.StatusUnauthorized, "Unauthorized")
	default:
		log.ErrorContext(r.Context(), "request failed", "method", r.Method, "path", r.URL.Path, "error", err)
		writeError(w, http.StatusInternalServerError, "Internal server error")
	}
}

// decodeJSON reads a size-limited JSON body into v.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		if errors.Is(err, io.EOF) {
			return errors.New("Request body is required")
		}
		return errors.New("Invalid request body")
	}
	return nil
}

// pathIDs parses the named positive integer URL parameters in order.
func pathIDs(r *http.Request, names ...string) ([]int64, error) {
	var issues utils.ValidationErrors
	ids := make([]int64, len(names))
	for i, name := range names {
		id, err := utils.ParseID(name, chi.URLParam(r, name))
		if err != nil {
			issues.Add(err)
			continue
		}
		ids[i] = id
	}
	return ids, issues.Err()
}
