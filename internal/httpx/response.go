// Package httpx writes the JSON envelopes every endpoint shares and maps the
// error taxonomy onto HTTP statuses.
package httpx

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/fintrack/backend/internal/common"
)

const maxBodyBytes = 1 << 20

// Pagination describes one page of a listing.
type Pagination struct {
	Page    int  `json:"page"`
	Limit   int  `json:"limit"`
	Total   int  `json:"total"`
	Pages   int  `json:"pages"`
	HasNext bool `json:"hasNext"`
	HasPrev bool `json:"hasPrev"`
}

func NewPagination(page, limit, total int) Pagination {
	pages := 0
	if limit > 0 {
		pages = (total + limit - 1) / limit
	}
	return Pagination{
		Page:    page,
		Limit:   limit,
		Total:   total,
		Pages:   pages,
		HasNext: page < pages,
		HasPrev: page > 1,
	}
}

type envelope struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
	Data    any    `json:"data,omitempty"`
}

type errorBody struct {
	Success bool     `json:"success"`
	Error   string   `json:"error"`
	Message string   `json:"message,omitempty"`
	Code    string   `json:"code,omitempty"`
	Details []string `json:"details,omitempty"`
}

func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// OK writes {success:true, data}.
func OK(w http.ResponseWriter, data any) {
	WriteJSON(w, http.StatusOK, envelope{Success: true, Data: data})
}

// Item writes {success:true, message, data:{item}}.
func Item(w http.ResponseWriter, status int, message string, item any) {
	WriteJSON(w, status, envelope{Success: true, Message: message, Data: map[string]any{"item": item}})
}

// Message writes {success:true, message} with no data.
func Message(w http.ResponseWriter, status int, message string) {
	WriteJSON(w, status, envelope{Success: true, Message: message})
}

// List writes {success:true, data:{items, pagination}}.
func List(w http.ResponseWriter, items any, p Pagination) {
	WriteJSON(w, http.StatusOK, envelope{Success: true, Data: map[string]any{
		"items":      items,
		"pagination": p,
	}})
}

// Fail writes an error envelope with an explicit status.
func Fail(w http.ResponseWriter, status int, errText, message, code string, details []string) {
	WriteJSON(w, status, errorBody{
		Success: false,
		Error:   errText,
		Message: message,
		Code:    code,
		Details: details,
	})
}

// Error maps err onto the error taxonomy. Unknown errors are logged and
// answered with a generic 500.
func Error(w http.ResponseWriter, log *slog.Logger, err error) {
	var authErr *common.AuthError
	var valErr *common.ValidationError
	switch {
	case errors.As(err, &authErr):
		Fail(w, http.StatusUnauthorized, "Unauthorized", authErr.Message, authErr.Reason, nil)
	case errors.As(err, &valErr):
		Fail(w, http.StatusBadRequest, "Validation failed", "", "", valErr.Details)
	case errors.Is(err, common.ErrValidation):
		Fail(w, http.StatusBadRequest, "Validation failed", err.Error(), "", nil)
	case errors.Is(err, common.ErrNotFound):
		Fail(w, http.StatusNotFound, "Not found", "resource not found", "", nil)
	case errors.Is(err, common.ErrConflict):
		Fail(w, http.StatusConflict, "Conflict", err.Error(), "", nil)
	case errors.Is(err, common.ErrServiceUnavailable):
		Fail(w, http.StatusServiceUnavailable, "Service unavailable", "please retry shortly", "", nil)
	case errors.Is(err, common.ErrProviderDegraded):
		if log != nil {
			log.Error("external provider degraded", "error", err)
		}
		Fail(w, http.StatusInternalServerError, "External provider error", err.Error(), "ExternalProviderDegraded", nil)
	default:
		if log != nil {
			log.Error("internal error", "error", err)
		}
		Fail(w, http.StatusInternalServerError, "Internal server error", "", "", nil)
	}
}

// DecodeJSON reads a bounded JSON body into dst. Malformed bodies are
// validation failures.
func DecodeJSON(r *http.Request, dst any) error {
	if r.Body == nil {
		return common.NewValidationError("request body is required")
	}
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return common.NewValidationError("request body is required")
		}
		return common.NewValidationError(fmt.Sprintf("invalid JSON body: %v", err))
	}
	return nil
}
