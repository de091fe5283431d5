package middleware

import (
	"bytes"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/fintrack/backend/internal/common"
)

type stubBodyValidator struct {
	err      error
	gotName  string
	gotBody  []byte
	recorded bool
}

func (s *stubBodyValidator) ValidateJSON(name string, body []byte) error {
	s.recorded = true
	s.gotName = name
	s.gotBody = body
	return s.err
}

func TestValidateBody_PassesAndRestoresBody(t *testing.T) {
	v := &stubBodyValidator{}
	var handlerBody []byte
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		handlerBody, _ = io.ReadAll(r.Body)
		w.WriteHeader(http.StatusCreated)
	})

	payload := `{"name":"Food","type":"expense"}`
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(payload))
	rec := httptest.NewRecorder()
	ValidateBody(v, "category.create", nil)(next).ServeHTTP(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	if v.gotName != "category.create" {
		t.Errorf("expected schema name passed through, got %q", v.gotName)
	}
	if string(handlerBody) != payload {
		t.Errorf("handler should see the original body, got %q", handlerBody)
	}
}

func TestValidateBody_RejectsInvalidWithDetails(t *testing.T) {
	v := &stubBodyValidator{err: common.NewValidationError("/amount: expected number")}
	reached := false
	next := http.HandlerFunc(func(http.ResponseWriter, *http.Request) { reached = true })

	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"amount":"x"}`))
	rec := httptest.NewRecorder()
	ValidateBody(v, "transaction.create", slog.Default())(next).ServeHTTP(rec, req)

	if reached {
		t.Fatal("handler must not run after a validation failure")
	}
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "/amount: expected number") {
		t.Errorf("expected details in body, got %s", rec.Body.String())
	}
}

func TestValidateBody_TooLarge(t *testing.T) {
	v := &stubBodyValidator{}
	big := bytes.Repeat([]byte("a"), maxValidatedBody+10)
	req := httptest.NewRequest(http.MethodPost, "/", bytes.NewReader(big))
	rec := httptest.NewRecorder()
	ValidateBody(v, "x", nil)(okHandler).ServeHTTP(rec, req)

	if rec.Code != http.StatusRequestEntityTooLarge {
		t.Fatalf("expected 413, got %d", rec.Code)
	}
	if v.recorded {
		t.Error("validator should not run on oversized bodies")
	}
}

// ---------------------------------------------------------------------------
// Chain ordering
// ---------------------------------------------------------------------------

func TestChain_AuthenticateBeforeValidate(t *testing.T) {
	v := &stubBodyValidator{}
	h := Chain(okHandler,
		RequireAuth(&stubVerifier{err: common.ErrCredentialExpired}, nil),
		ValidateBody(v, "x", nil),
	)
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{}`))
	req.Header.Set("Authorization", "Bearer tok")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
	if v.recorded {
		t.Error("validation must not run when authentication fails")
	}
}

func TestRecover_ConvertsPanicTo500(t *testing.T) {
	boom := http.HandlerFunc(func(http.ResponseWriter, *http.Request) { panic("boom") })
	rec := httptest.NewRecorder()
	Recover(slog.New(slog.NewTextHandler(io.Discard, nil)))(boom).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", rec.Code)
	}
	if strings.Contains(rec.Body.String(), "boom") {
		t.Error("panic value must not leak to the client")
	}
}

func TestRequestLog_RecordsStatus(t *testing.T) {
	var buf bytes.Buffer
	log := slog.New(slog.NewJSONHandler(&buf, nil))
	next := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusTeapot) })

	RequestLog(log)(next).ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/ping", nil))

	if !strings.Contains(buf.String(), `"status":418`) || !strings.Contains(buf.String(), `"path":"/ping"`) {
		t.Errorf("unexpected log line: %s", buf.String())
	}
}
