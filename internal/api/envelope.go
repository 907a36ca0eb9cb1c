package api

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"

	"github.com/halvard/fehu/internal/apperr"
	"github.com/halvard/fehu/internal/catalog"
)

// Envelope is the wrapper every API response uses. Success responses
// carry Data (and Pagination for lists); error responses carry Errors.
type Envelope struct {
	Success    bool                `json:"success"`
	Code       int                 `json:"code"`
	Data       any                 `json:"data,omitempty"`
	Errors     []apperr.FieldError `json:"errors,omitempty"`
	Message    string              `json:"message,omitempty"`
	Pagination *catalog.Pagination `json:"pagination,omitempty"`
	Timestamp  string              `json:"timestamp"`
	RequestID  string              `json:"request_id"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("json encode failed", slog.String("error", err.Error()))
	}
}

// requestID prefers the chi RequestID middleware value and falls back to
// a fresh uuid when the middleware is not mounted (tests, MCP).
func requestID(r *http.Request) string {
	if id := middleware.GetReqID(r.Context()); id != "" {
		return id
	}
	return uuid.NewString()
}

func envelope(r *http.Request, code int) Envelope {
	return Envelope{
		Code:      code,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		RequestID: requestID(r),
	}
}

func writeSuccess(w http.ResponseWriter, r *http.Request, status int, data any, message string) {
	env := envelope(r, status)
	env.Success = true
	env.Data = data
	env.Message = message
	writeJSON(w, status, env)
}

func writePaginated(w http.ResponseWriter, r *http.Request, data any, pg catalog.Pagination) {
	env := envelope(r, http.StatusOK)
	env.Success = true
	env.Data = data
	env.Pagination = &pg
	writeJSON(w, http.StatusOK, env)
}

func writeError(w http.ResponseWriter, r *http.Request, status int, errs []apperr.FieldError, message string) {
	env := envelope(r, status)
	env.Success = false
	env.Errors = errs
	env.Message = message
	writeJSON(w, status, env)
}

func notFoundErrors(id int) []apperr.FieldError {
	return []apperr.FieldError{{
		Field:   "id",
		Message: fmt.Sprintf("Product with ID %d not found", id),
		Type:    "not_found",
	}}
}

// systemErrors hides the underlying detail unless development mode is on.
func systemErrors(err error, development bool) []apperr.FieldError {
	msg := "An unexpected error occurred"
	if development && err != nil {
		msg = err.Error()
	}
	return []apperr.FieldError{{Field: "system", Message: msg, Type: "system_error"}}
}
