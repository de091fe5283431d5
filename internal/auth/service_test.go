package auth

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/fintrack/backend/internal/common"
	"github.com/fintrack/backend/internal/models"
)

// ---------------------------------------------------------------------------
// Fakes
// ---------------------------------------------------------------------------

type memStore struct {
	mu       sync.Mutex
	accounts map[uuid.UUID]*models.Account
	failGet  error
}

func newMemStore() *memStore {
	return &memStore{accounts: make(map[uuid.UUID]*models.Account)}
}

func (m *memStore) Create(_ context.Context, a *models.Account) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.accounts {
		if existing.Username == a.Username || strings.EqualFold(existing.Email, a.Email) {
			return common.ErrConflict
		}
	}
	a.ID = uuid.New()
	a.CreatedAt = time.Now()
	a.UpdatedAt = a.CreatedAt
	cp := *a
	m.accounts[a.ID] = &cp
	return nil
}

func (m *memStore) GetByID(_ context.Context, id uuid.UUID) (*models.Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failGet != nil {
		return nil, m.failGet
	}
	a, ok := m.accounts[id]
	if !ok {
		return nil, common.ErrNotFound
	}
	cp := *a
	return &cp, nil
}

func (m *memStore) GetByLogin(_ context.Context, login string) (*models.Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, a := range m.accounts {
		if strings.EqualFold(a.Email, login) || a.Username == login {
			cp := *a
			return &cp, nil
		}
	}
	return nil, common.ErrNotFound
}

func (m *memStore) UpdateProfile(_ context.Context, a *models.Account) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.accounts[a.ID]; !ok {
		return common.ErrNotFound
	}
	cp := *a
	m.accounts[a.ID] = &cp
	return nil
}

func (m *memStore) UpdatePassword(_ context.Context, id uuid.UUID, hash string, changedAt time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.accounts[id]
	if !ok {
		return common.ErrNotFound
	}
	a.PasswordHash = hash
	a.PasswordChangedAt = &changedAt
	return nil
}

func (m *memStore) SetActive(_ context.Context, id uuid.UUID, active bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.accounts[id]
	if !ok {
		return common.ErrNotFound
	}
	a.IsActive = active
	return nil
}

type clock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

var testSecret = []byte("test-secret")

func newTestService(t *testing.T, store AccountStore, opts Options) (*service, *clock) {
	t.Helper()
	clk := &clock{now: time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)}
	if opts.Secret == nil {
		opts.Secret = testSecret
	}
	opts.BcryptCost = bcrypt.MinCost
	opts.Now = clk.Now
	return NewService(store, opts), clk
}

func register(t *testing.T, svc *service) (*models.Account, string) {
	t.Helper()
	acc, token, err := svc.Register(context.Background(), RegisterInput{
		Username: "ana_perez",
		Email:    "Ana@Example.com",
		Password: "correct-horse",
	})
	require.NoError(t, err)
	return acc, token
}

// ---------------------------------------------------------------------------
// Registration / login
// ---------------------------------------------------------------------------

func TestRegister_NormalizesAndDefaults(t *testing.T) {
	svc, _ := newTestService(t, newMemStore(), Options{})
	acc, token, err := svc.Register(context.Background(), RegisterInput{
		Username: "ana_perez",
		Email:    "  Ana@Example.COM ",
		Password: "correct-horse",
	})
	require.NoError(t, err)
	assert.NotEmpty(t, token)
	assert.Equal(t, "ana@example.com", acc.Email)
	assert.Equal(t, models.CurrencyUYU, acc.PreferredCurrency)
	assert.True(t, acc.IsActive)
	assert.NotEqual(t, "correct-horse", acc.PasswordHash)
}

func TestRegister_Validation(t *testing.T) {
	svc, _ := newTestService(t, newMemStore(), Options{})
	_, _, err := svc.Register(context.Background(), RegisterInput{
		Username:          "a!",
		Email:             "not-an-email",
		Password:          "short",
		PreferredCurrency: "JPY",
		Timezone:          "Mars/Olympus",
	})
	var ve *common.ValidationError
	require.True(t, errors.As(err, &ve))
	assert.Len(t, ve.Details, 5)
}

func TestRegister_DuplicateEmailIsConflict(t *testing.T) {
	svc, _ := newTestService(t, newMemStore(), Options{})
	register(t, svc)
	_, _, err := svc.Register(context.Background(), RegisterInput{
		Username: "other_user",
		Email:    "ANA@example.com",
		Password: "correct-horse",
	})
	assert.ErrorIs(t, err, common.ErrConflict)
}

func TestLogin(t *testing.T) {
	svc, _ := newTestService(t, newMemStore(), Options{})
	acc, _ := register(t, svc)

	got, token, err := svc.Login(context.Background(), "ana@example.com", "correct-horse")
	require.NoError(t, err)
	assert.Equal(t, acc.ID, got.ID)
	assert.NotEmpty(t, token)

	_, _, err = svc.Login(context.Background(), "ana_perez", "correct-horse")
	assert.NoError(t, err, "username login")

	_, _, err = svc.Login(context.Background(), "ana@example.com", "wrong-password")
	assert.ErrorIs(t, err, ErrInvalidLogin)

	_, _, err = svc.Login(context.Background(), "ghost@example.com", "whatever1")
	assert.ErrorIs(t, err, ErrInvalidLogin)

	require.NoError(t, svc.Deactivate(context.Background(), got))
	_, _, err = svc.Login(context.Background(), "ana@example.com", "correct-horse")
	assert.ErrorIs(t, err, common.ErrAccountDisabled)
}

// ---------------------------------------------------------------------------
// Credential verification
// ---------------------------------------------------------------------------

func TestVerifyToken_Valid(t *testing.T) {
	svc, _ := newTestService(t, newMemStore(), Options{})
	acc, token := register(t, svc)

	got, err := svc.VerifyToken(context.Background(), token)
	require.NoError(t, err)
	assert.Equal(t, acc.ID, got.ID)
}

func TestVerifyToken_Malformed(t *testing.T) {
	svc, _ := newTestService(t, newMemStore(), Options{})

	_, err := svc.VerifyToken(context.Background(), "")
	assert.ErrorIs(t, err, common.ErrAuthenticationRequired)

	_, err = svc.VerifyToken(context.Background(), "not.a.jwt")
	assert.ErrorIs(t, err, common.ErrInvalidCredential)
}

func TestVerifyToken_WrongSecret(t *testing.T) {
	store := newMemStore()
	svc, _ := newTestService(t, store, Options{})
	acc, _ := register(t, svc)

	other, _ := newTestService(t, store, Options{Secret: []byte("other-secret")})
	forged, err := other.IssueToken(acc)
	require.NoError(t, err)

	_, err = svc.VerifyToken(context.Background(), forged)
	assert.ErrorIs(t, err, common.ErrInvalidCredential)
}

func TestVerifyToken_RejectsOtherAlgorithms(t *testing.T) {
	svc, clk := newTestService(t, newMemStore(), Options{})
	acc, _ := register(t, svc)

	tok := jwt.NewWithClaims(jwt.SigningMethodHS512, jwt.RegisteredClaims{
		Subject:   acc.ID.String(),
		IssuedAt:  jwt.NewNumericDate(clk.Now()),
		ExpiresAt: jwt.NewNumericDate(clk.Now().Add(time.Hour)),
	})
	raw, err := tok.SignedString(testSecret)
	require.NoError(t, err)

	_, err = svc.VerifyToken(context.Background(), raw)
	assert.ErrorIs(t, err, common.ErrInvalidCredential)
}

func TestVerifyToken_Expired(t *testing.T) {
	svc, clk := newTestService(t, newMemStore(), Options{TTL: time.Hour})
	_, token := register(t, svc)

	clk.Advance(59 * time.Minute)
	_, err := svc.VerifyToken(context.Background(), token)
	require.NoError(t, err)

	clk.Advance(2 * time.Minute)
	_, err = svc.VerifyToken(context.Background(), token)
	assert.ErrorIs(t, err, common.ErrCredentialExpired)
}

func TestVerifyToken_NoExpiryMode(t *testing.T) {
	store := newMemStore()
	svc, clk := newTestService(t, store, Options{NoExpiry: true})
	acc, token := register(t, svc)

	clk.Advance(10 * 365 * 24 * time.Hour)
	_, err := svc.VerifyToken(context.Background(), token)
	assert.NoError(t, err)

	// a credential that carries exp is still accepted after it passes
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   acc.ID.String(),
		IssuedAt:  jwt.NewNumericDate(clk.Now().Add(-2 * time.Hour)),
		ExpiresAt: jwt.NewNumericDate(clk.Now().Add(-time.Hour)),
	})
	raw, err := tok.SignedString(testSecret)
	require.NoError(t, err)
	_, err = svc.VerifyToken(context.Background(), raw)
	assert.NoError(t, err)
}

func TestVerifyToken_AccountNotFound(t *testing.T) {
	svc, _ := newTestService(t, newMemStore(), Options{})
	ghost := &models.Account{ID: uuid.New()}
	token, err := svc.IssueToken(ghost)
	require.NoError(t, err)

	_, err = svc.VerifyToken(context.Background(), token)
	assert.ErrorIs(t, err, common.ErrAccountNotFound)
}

func TestVerifyToken_DatastoreFailureIsServiceUnavailable(t *testing.T) {
	store := newMemStore()
	svc, _ := newTestService(t, store, Options{})
	_, token := register(t, svc)

	store.failGet = errors.New("connection reset")
	_, err := svc.VerifyToken(context.Background(), token)
	assert.ErrorIs(t, err, common.ErrServiceUnavailable)

	var ae *common.AuthError
	assert.False(t, errors.As(err, &ae), "datastore faults are not auth failures")
}

func TestVerifyToken_AccountDisabled(t *testing.T) {
	svc, _ := newTestService(t, newMemStore(), Options{})
	acc, token := register(t, svc)

	require.NoError(t, svc.Deactivate(context.Background(), acc))
	_, err := svc.VerifyToken(context.Background(), token)
	assert.ErrorIs(t, err, common.ErrAccountDisabled)
}

func TestVerifyToken_SupersededByPasswordChange(t *testing.T) {
	svc, clk := newTestService(t, newMemStore(), Options{})
	acc, oldToken := register(t, svc)

	clk.Advance(5 * time.Second)
	newToken, err := svc.ChangePassword(context.Background(), acc, "correct-horse", "battery-staple")
	require.NoError(t, err)

	_, err = svc.VerifyToken(context.Background(), oldToken)
	assert.ErrorIs(t, err, common.ErrCredentialSuperseded)

	// issued in the same second as the change
	_, err = svc.VerifyToken(context.Background(), newToken)
	assert.NoError(t, err)

	clk.Advance(time.Second)
	_, later, err := svc.Login(context.Background(), "ana_perez", "battery-staple")
	require.NoError(t, err)
	_, err = svc.VerifyToken(context.Background(), later)
	assert.NoError(t, err)
}

func TestChangePassword_Validation(t *testing.T) {
	svc, _ := newTestService(t, newMemStore(), Options{})
	acc, _ := register(t, svc)

	_, err := svc.ChangePassword(context.Background(), acc, "wrong", "battery-staple")
	assert.ErrorIs(t, err, common.ErrValidation)

	_, err = svc.ChangePassword(context.Background(), acc, "correct-horse", "short")
	assert.ErrorIs(t, err, common.ErrValidation)
}

func TestUpdateSettings(t *testing.T) {
	svc, _ := newTestService(t, newMemStore(), Options{})
	acc, _ := register(t, svc)

	usd := "usd"
	key := "sk-test"
	updated, err := svc.UpdateSettings(context.Background(), acc, SettingsInput{PreferredCurrency: &usd, AIAPIKey: &key})
	require.NoError(t, err)
	assert.Equal(t, models.CurrencyUSD, updated.PreferredCurrency)
	assert.True(t, updated.HasAIKey())

	empty := ""
	updated, err = svc.UpdateSettings(context.Background(), updated, SettingsInput{AIAPIKey: &empty})
	require.NoError(t, err)
	assert.False(t, updated.HasAIKey())

	bad := "XYZ"
	_, err = svc.UpdateSettings(context.Background(), updated, SettingsInput{PreferredCurrency: &bad})
	assert.ErrorIs(t, err, common.ErrValidation)
}
