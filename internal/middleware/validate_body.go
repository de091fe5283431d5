package middleware

import (
	"bytes"
	"io"
	"log/slog"
	"net/http"

	"github.com/fintrack/backend/internal/common"
	"github.com/fintrack/backend/internal/httpx"
)

const maxValidatedBody = 1 << 20

// BodyValidator checks a raw JSON body against a named schema.
type BodyValidator interface {
	ValidateJSON(schema string, body []byte) error
}

// ValidateBody reads the body, validates it against schema and restores it
// so the handler can decode it again. Failures short-circuit with 400.
func ValidateBody(v BodyValidator, schema string, log *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Body == nil {
				httpx.Error(w, log, common.NewValidationError("request body is required"))
				return
			}
			body, err := io.ReadAll(io.LimitReader(r.Body, maxValidatedBody+1))
			r.Body.Close()
			if err != nil {
				httpx.Error(w, log, common.NewValidationError("failed to read body"))
				return
			}
			if len(body) > maxValidatedBody {
				httpx.Fail(w, http.StatusRequestEntityTooLarge, "Payload too large", "request body exceeds 1 MiB", "", nil)
				return
			}
			// Restore body for the handler.
			r.Body = io.NopCloser(bytes.NewReader(body))

			if err := v.ValidateJSON(schema, body); err != nil {
				httpx.Error(w, log, err)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
