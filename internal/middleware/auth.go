package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/fintrack/backend/internal/common"
	"github.com/fintrack/backend/internal/httpx"
	"github.com/fintrack/backend/internal/models"
)

type contextKey string

const ctxAccountKey contextKey = "account"

// TokenVerifier resolves a bearer credential to an active account.
type TokenVerifier interface {
	VerifyToken(ctx context.Context, token string) (*models.Account, error)
}

// RequireAuth rejects the request unless the bearer credential verifies.
// Authentication failures are 401 with a reason code; datastore faults are 503.
func RequireAuth(v TokenVerifier, log *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw := extractBearer(r)
			if raw == "" {
				httpx.Error(w, log, common.ErrAuthenticationRequired)
				return
			}
			acc, err := v.VerifyToken(r.Context(), raw)
			if err != nil {
				if log != nil {
					log.Debug("authentication rejected", "path", r.URL.Path, "error", err)
				}
				httpx.Error(w, log, err)
				return
			}
			next.ServeHTTP(w, r.WithContext(WithAccount(r.Context(), acc)))
		})
	}
}

// OptionalAuth attaches the account when the credential verifies and
// otherwise lets the request through as anonymous.
func OptionalAuth(v TokenVerifier, log *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw := extractBearer(r)
			if raw == "" {
				next.ServeHTTP(w, r)
				return
			}
			acc, err := v.VerifyToken(r.Context(), raw)
			if err != nil {
				if log != nil {
					log.Debug("optional authentication degraded to anonymous", "error", err)
				}
				next.ServeHTTP(w, r)
				return
			}
			next.ServeHTTP(w, r.WithContext(WithAccount(r.Context(), acc)))
		})
	}
}

// AccountFromCtx returns the authenticated account or nil.
func AccountFromCtx(ctx context.Context) *models.Account {
	acc, _ := ctx.Value(ctxAccountKey).(*models.Account)
	return acc
}

// WithAccount returns a context carrying the given account.
func WithAccount(ctx context.Context, acc *models.Account) context.Context {
	return context.WithValue(ctx, ctxAccountKey, acc)
}

// OwnerFromCtx returns the authenticated account's owner, or Anonymous.
func OwnerFromCtx(ctx context.Context) models.Owner {
	if acc := AccountFromCtx(ctx); acc != nil {
		return acc.Owner()
	}
	return models.Anonymous
}

func extractBearer(r *http.Request) string {
	h := r.Header.Get("Authorization")
	if len(h) > 7 && strings.EqualFold(h[:7], "bearer ") {
		return strings.TrimSpace(h[7:])
	}
	return ""
}
