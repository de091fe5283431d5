package auth

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/fintrack/backend/internal/common"
	"github.com/fintrack/backend/internal/httpx"
	"github.com/fintrack/backend/internal/models"
)

type LoginRequest struct {
	// Login accepts an email address or a username.
	Login    string `json:"login"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type SessionResponse struct {
	Account *models.Account `json:"account"`
	Token   string          `json:"token"`
}

type Handler struct {
	svc Service
	log *slog.Logger
}

func NewHandler(svc Service, log *slog.Logger) *Handler {
	if log == nil {
		log = slog.Default()
	}
	return &Handler{svc: svc, log: log}
}

// POST /api/v1/auth/register
func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var req RegisterInput
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Error(w, h.log, err)
		return
	}
	acc, token, err := h.svc.Register(r.Context(), req)
	if err != nil {
		httpx.Error(w, h.log, err)
		return
	}
	h.log.Info("account registered", "account_id", acc.ID)
	httpx.WriteJSON(w, http.StatusCreated, map[string]any{
		"success": true,
		"message": "account created",
		"data":    SessionResponse{Account: acc, Token: token},
	})
}

// POST /api/v1/auth/login
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Error(w, h.log, err)
		return
	}
	login := req.Login
	if login == "" {
		login = req.Email
	}
	if strings.TrimSpace(login) == "" || req.Password == "" {
		httpx.Error(w, h.log, common.NewValidationError("login and password are required"))
		return
	}
	acc, token, err := h.svc.Login(r.Context(), login, req.Password)
	if err != nil {
		httpx.Error(w, h.log, err)
		return
	}
	httpx.OK(w, SessionResponse{Account: acc, Token: token})
}
