package router

import (
	"log/slog"
	"net/http"

	"github.com/fintrack/backend/internal/auth"
	"github.com/fintrack/backend/internal/dashboard"
	"github.com/fintrack/backend/internal/middleware"
)

const Base = "/api/v1"

// New returns a mux serving the auth and account routes under /api/v1.
// Resource routes are added to the same mux by the caller.
func New(authHandler *auth.Handler, dashHandler *dashboard.Handler, verifier middleware.TokenVerifier, log *slog.Logger) *http.ServeMux {
	mux := http.NewServeMux()
	requireAuth := middleware.RequireAuth(verifier, log)

	mux.HandleFunc("POST "+Base+"/auth/register", authHandler.Register)
	mux.HandleFunc("POST "+Base+"/auth/login", authHandler.Login)

	mux.Handle("GET "+Base+"/account/me", requireAuth(http.HandlerFunc(dashHandler.GetMe)))
	mux.Handle("PATCH "+Base+"/account/settings", requireAuth(http.HandlerFunc(dashHandler.UpdateSettings)))
	mux.Handle("POST "+Base+"/account/password", requireAuth(http.HandlerFunc(dashHandler.ChangePassword)))
	mux.Handle("POST "+Base+"/account/deactivate", requireAuth(http.HandlerFunc(dashHandler.Deactivate)))

	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	return mux
}
