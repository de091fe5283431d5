// Package dashboard serves the signed-in account's own profile endpoints.
package dashboard

import (
	"log/slog"
	"net/http"

	"github.com/fintrack/backend/internal/auth"
	"github.com/fintrack/backend/internal/common"
	"github.com/fintrack/backend/internal/httpx"
	"github.com/fintrack/backend/internal/middleware"
	"github.com/fintrack/backend/internal/models"
)

// Profile is the account as shown to its owner.
type Profile struct {
	*models.Account
	HasAIKey bool `json:"hasAiKey"`
}

type PasswordRequest struct {
	CurrentPassword string `json:"currentPassword"`
	NewPassword     string `json:"newPassword"`
}

type Handler struct {
	authSvc auth.Service
	log     *slog.Logger
}

func NewHandler(authSvc auth.Service, log *slog.Logger) *Handler {
	if log == nil {
		log = slog.Default()
	}
	return &Handler{authSvc: authSvc, log: log}
}

func profile(acc *models.Account) Profile {
	return Profile{Account: acc, HasAIKey: acc.HasAIKey()}
}

// account is set by RequireAuth; a nil here means the route was wired
// without it.
func (h *Handler) account(w http.ResponseWriter, r *http.Request) (*models.Account, bool) {
	acc := middleware.AccountFromCtx(r.Context())
	if acc == nil {
		httpx.Error(w, h.log, common.ErrAuthenticationRequired)
		return nil, false
	}
	return acc, true
}

// GET /api/v1/account/me
func (h *Handler) GetMe(w http.ResponseWriter, r *http.Request) {
	acc, ok := h.account(w, r)
	if !ok {
		return
	}
	httpx.OK(w, map[string]any{"account": profile(acc)})
}

// PATCH /api/v1/account/settings
func (h *Handler) UpdateSettings(w http.ResponseWriter, r *http.Request) {
	acc, ok := h.account(w, r)
	if !ok {
		return
	}
	var body auth.SettingsInput
	if err := httpx.DecodeJSON(r, &body); err != nil {
		httpx.Error(w, h.log, err)
		return
	}
	updated, err := h.authSvc.UpdateSettings(r.Context(), acc, body)
	if err != nil {
		httpx.Error(w, h.log, err)
		return
	}
	h.log.Info("account settings updated", "account_id", acc.ID)
	httpx.Item(w, http.StatusOK, "Settings updated successfully", profile(updated))
}

// POST /api/v1/account/password
func (h *Handler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	acc, ok := h.account(w, r)
	if !ok {
		return
	}
	var body PasswordRequest
	if err := httpx.DecodeJSON(r, &body); err != nil {
		httpx.Error(w, h.log, err)
		return
	}
	token, err := h.authSvc.ChangePassword(r.Context(), acc, body.CurrentPassword, body.NewPassword)
	if err != nil {
		httpx.Error(w, h.log, err)
		return
	}
	h.log.Info("password changed", "account_id", acc.ID)
	httpx.WriteJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"message": "Password changed successfully",
		"data":    map[string]any{"token": token},
	})
}

// POST /api/v1/account/deactivate
func (h *Handler) Deactivate(w http.ResponseWriter, r *http.Request) {
	acc, ok := h.account(w, r)
	if !ok {
		return
	}
	if err := h.authSvc.Deactivate(r.Context(), acc); err != nil {
		httpx.Error(w, h.log, err)
		return
	}
	h.log.Info("account deactivated", "account_id", acc.ID)
	httpx.Message(w, http.StatusOK, "Account deactivated")
}
