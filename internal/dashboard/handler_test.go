package dashboard

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fintrack/backend/internal/auth"
	"github.com/fintrack/backend/internal/common"
	"github.com/fintrack/backend/internal/middleware"
	"github.com/fintrack/backend/internal/models"
)

// stubAuth implements the account-side methods; the rest are unused here.
type stubAuth struct {
	auth.Service
	settings    *auth.SettingsInput
	pwCurrent   string
	deactivated bool
}

func (s *stubAuth) UpdateSettings(_ context.Context, acc *models.Account, in auth.SettingsInput) (*models.Account, error) {
	s.settings = &in
	updated := *acc
	if in.PreferredCurrency != nil {
		if *in.PreferredCurrency == "JPY" {
			return nil, common.NewValidationError(`currency "JPY" is not supported`)
		}
		updated.PreferredCurrency = *in.PreferredCurrency
	}
	if in.AIAPIKey != nil {
		updated.AIAPIKey = in.AIAPIKey
	}
	return &updated, nil
}

func (s *stubAuth) ChangePassword(_ context.Context, _ *models.Account, current, _ string) (string, error) {
	s.pwCurrent = current
	if current != "old-password" {
		return "", common.NewValidationError("current password is incorrect")
	}
	return "fresh-token", nil
}

func (s *stubAuth) Deactivate(_ context.Context, acc *models.Account) error {
	s.deactivated = true
	acc.IsActive = false
	return nil
}

func setup() (*stubAuth, *http.ServeMux) {
	svc := &stubAuth{}
	h := NewHandler(svc, slog.New(slog.NewTextHandler(io.Discard, nil)))
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/v1/account/me", h.GetMe)
	mux.HandleFunc("PATCH /api/v1/account/settings", h.UpdateSettings)
	mux.HandleFunc("POST /api/v1/account/password", h.ChangePassword)
	mux.HandleFunc("POST /api/v1/account/deactivate", h.Deactivate)
	return svc, mux
}

func call(t *testing.T, mux http.Handler, acc *models.Account, method, target, body string) (int, map[string]any) {
	t.Helper()
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	if acc != nil {
		req = req.WithContext(middleware.WithAccount(req.Context(), acc))
	}
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	var out map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return rec.Code, out
}

func testAccount() *models.Account {
	key := "sk-secret"
	return &models.Account{
		ID: uuid.New(), Username: "ana_perez", Email: "ana@example.com",
		PasswordHash: "$2a$hash", PreferredCurrency: "UYU", IsActive: true, AIAPIKey: &key,
	}
}

func TestGetMe_HidesSecrets(t *testing.T) {
	_, mux := setup()
	code, out := call(t, mux, testAccount(), http.MethodGet, "/api/v1/account/me", "")
	require.Equal(t, http.StatusOK, code)

	acc := out["data"].(map[string]any)["account"].(map[string]any)
	assert.Equal(t, "ana_perez", acc["username"])
	assert.Equal(t, true, acc["hasAiKey"])
	assert.NotContains(t, acc, "passwordHash")
	assert.NotContains(t, acc, "aiApiKey")
}

func TestGetMe_WithoutAccountIs401(t *testing.T) {
	_, mux := setup()
	code, out := call(t, mux, nil, http.MethodGet, "/api/v1/account/me", "")
	assert.Equal(t, http.StatusUnauthorized, code)
	assert.Equal(t, "AuthenticationRequired", out["code"])
}

func TestUpdateSettings(t *testing.T) {
	svc, mux := setup()
	code, out := call(t, mux, testAccount(), http.MethodPatch, "/api/v1/account/settings",
		`{"preferredCurrency":"USD","aiApiKey":""}`)
	require.Equal(t, http.StatusOK, code, out)
	require.NotNil(t, svc.settings.AIAPIKey)
	assert.Equal(t, "", *svc.settings.AIAPIKey)
	assert.Nil(t, svc.settings.FirstName)

	item := out["data"].(map[string]any)["item"].(map[string]any)
	assert.Equal(t, "USD", item["preferredCurrency"])
	assert.Equal(t, false, item["hasAiKey"])

	code, out = call(t, mux, testAccount(), http.MethodPatch, "/api/v1/account/settings", `{"preferredCurrency":"JPY"}`)
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Len(t, out["details"], 1)

	code, _ = call(t, mux, testAccount(), http.MethodPatch, "/api/v1/account/settings", `{bad`)
	assert.Equal(t, http.StatusBadRequest, code)
}

func TestChangePassword(t *testing.T) {
	svc, mux := setup()
	code, out := call(t, mux, testAccount(), http.MethodPost, "/api/v1/account/password",
		`{"currentPassword":"old-password","newPassword":"new-password"}`)
	require.Equal(t, http.StatusOK, code, out)
	assert.Equal(t, "fresh-token", out["data"].(map[string]any)["token"])
	assert.Equal(t, "old-password", svc.pwCurrent)

	code, _ = call(t, mux, testAccount(), http.MethodPost, "/api/v1/account/password",
		`{"currentPassword":"guess","newPassword":"new-password"}`)
	assert.Equal(t, http.StatusBadRequest, code)
}

func TestDeactivate(t *testing.T) {
	svc, mux := setup()
	acc := testAccount()
	code, out := call(t, mux, acc, http.MethodPost, "/api/v1/account/deactivate", "")
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "Account deactivated", out["message"])
	assert.True(t, svc.deactivated)
	assert.False(t, acc.IsActive)
}
