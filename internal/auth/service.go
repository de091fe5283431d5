package auth

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"
	_ "time/tzdata"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/fintrack/backend/internal/common"
	"github.com/fintrack/backend/internal/models"
)

// ErrInvalidLogin is returned by Login for an unknown account or a wrong password.
var ErrInvalidLogin = &common.AuthError{Reason: "InvalidLogin", Message: "invalid email or password"}

var (
	usernamePattern = regexp.MustCompile(`^[a-zA-Z0-9_]{3,30}$`)
	emailPattern    = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)
)

const minPasswordLen = 8

// AccountStore persists accounts. Lookups return common.ErrNotFound on a miss.
type AccountStore interface {
	Create(ctx context.Context, a *models.Account) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Account, error)
	GetByLogin(ctx context.Context, login string) (*models.Account, error)
	UpdateProfile(ctx context.Context, a *models.Account) error
	UpdatePassword(ctx context.Context, id uuid.UUID, hash string, changedAt time.Time) error
	SetActive(ctx context.Context, id uuid.UUID, active bool) error
}

type RegisterInput struct {
	Username          string `json:"username"`
	Email             string `json:"email"`
	Password          string `json:"password"`
	FirstName         string `json:"firstName"`
	LastName          string `json:"lastName"`
	PreferredCurrency string `json:"preferredCurrency"`
	Timezone          string `json:"timezone"`
}

// SettingsInput carries a partial profile update; nil fields are left alone.
// An empty AIAPIKey clears the stored key.
type SettingsInput struct {
	FirstName         *string `json:"firstName"`
	LastName          *string `json:"lastName"`
	PreferredCurrency *string `json:"preferredCurrency"`
	Timezone          *string `json:"timezone"`
	AIAPIKey          *string `json:"aiApiKey"`
}

type Service interface {
	Register(ctx context.Context, in RegisterInput) (*models.Account, string, error)
	Login(ctx context.Context, login, password string) (*models.Account, string, error)
	IssueToken(acc *models.Account) (string, error)
	VerifyToken(ctx context.Context, token string) (*models.Account, error)
	ChangePassword(ctx context.Context, acc *models.Account, current, next string) (string, error)
	UpdateSettings(ctx context.Context, acc *models.Account, in SettingsInput) (*models.Account, error)
	Deactivate(ctx context.Context, acc *models.Account) error
}

// Options configures credential minting and verification.
type Options struct {
	Secret []byte
	TTL    time.Duration
	// NoExpiry mints credentials without exp and skips the expiry check.
	NoExpiry   bool
	BcryptCost int
	Now        func() time.Time
}

type service struct {
	store    AccountStore
	secret   []byte
	ttl      time.Duration
	noExpiry bool
	cost     int
	now      func() time.Time
	parser   *jwt.Parser
}

func NewService(store AccountStore, opts Options) *service {
	if opts.TTL <= 0 {
		opts.TTL = 7 * 24 * time.Hour
	}
	if opts.BcryptCost == 0 {
		opts.BcryptCost = bcrypt.DefaultCost
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &service{
		store:    store,
		secret:   opts.Secret,
		ttl:      opts.TTL,
		noExpiry: opts.NoExpiry,
		cost:     opts.BcryptCost,
		now:      opts.Now,
		// Time-based claims are checked by VerifyToken against the injected clock.
		parser: jwt.NewParser(
			jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
			jwt.WithoutClaimsValidation(),
		),
	}
}

// Ensure service implements Service at compile time.
var _ Service = (*service)(nil)

func (s *service) Register(ctx context.Context, in RegisterInput) (*models.Account, string, error) {
	in.Username = strings.TrimSpace(in.Username)
	in.Email = strings.ToLower(strings.TrimSpace(in.Email))
	if in.PreferredCurrency == "" {
		in.PreferredCurrency = models.CurrencyUYU
	}
	in.PreferredCurrency = models.NormalizeCurrency(in.PreferredCurrency)
	if in.Timezone == "" {
		in.Timezone = "America/Montevideo"
	}

	var details []string
	if !usernamePattern.MatchString(in.Username) {
		details = append(details, "username must be 3-30 letters, digits or underscores")
	}
	if !emailPattern.MatchString(in.Email) {
		details = append(details, "email is not valid")
	}
	if len(in.Password) < minPasswordLen {
		details = append(details, fmt.Sprintf("password must be at least %d characters", minPasswordLen))
	}
	if !models.IsSupportedCurrency(in.PreferredCurrency) {
		details = append(details, fmt.Sprintf("currency %q is not supported", in.PreferredCurrency))
	}
	if _, err := time.LoadLocation(in.Timezone); err != nil {
		details = append(details, fmt.Sprintf("timezone %q is not valid", in.Timezone))
	}
	if len(details) > 0 {
		return nil, "", common.NewValidationError(details...)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), s.cost)
	if err != nil {
		return nil, "", err
	}
	acc := &models.Account{
		Username:          in.Username,
		Email:             in.Email,
		PasswordHash:      string(hash),
		FirstName:         strings.TrimSpace(in.FirstName),
		LastName:          strings.TrimSpace(in.LastName),
		PreferredCurrency: in.PreferredCurrency,
		Timezone:          in.Timezone,
		IsActive:          true,
	}
	if err := s.store.Create(ctx, acc); err != nil {
		return nil, "", err
	}
	token, err := s.IssueToken(acc)
	if err != nil {
		return nil, "", err
	}
	return acc, token, nil
}

func (s *service) Login(ctx context.Context, login, password string) (*models.Account, string, error) {
	acc, err := s.store.GetByLogin(ctx, strings.TrimSpace(login))
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return nil, "", ErrInvalidLogin
		}
		return nil, "", err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(acc.PasswordHash), []byte(password)); err != nil {
		return nil, "", ErrInvalidLogin
	}
	if !acc.IsActive {
		return nil, "", common.ErrAccountDisabled
	}
	token, err := s.IssueToken(acc)
	if err != nil {
		return nil, "", err
	}
	return acc, token, nil
}

// IssueToken mints an HS256 credential for acc. The subject is the account id.
func (s *service) IssueToken(acc *models.Account) (string, error) {
	now := s.now()
	c := jwt.RegisteredClaims{
		Subject:  acc.ID.String(),
		IssuedAt: jwt.NewNumericDate(now),
	}
	if !s.noExpiry {
		c.ExpiresAt = jwt.NewNumericDate(now.Add(s.ttl))
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, c).SignedString(s.secret)
}

// VerifyToken resolves a bearer credential to a live account. Failures are
// common.AuthError values, except datastore faults which wrap
// common.ErrServiceUnavailable.
func (s *service) VerifyToken(ctx context.Context, token string) (*models.Account, error) {
	if token == "" {
		return nil, common.ErrAuthenticationRequired
	}

	var c jwt.RegisteredClaims
	tok, err := s.parser.ParseWithClaims(token, &c, func(*jwt.Token) (any, error) {
		return s.secret, nil
	})
	if err != nil || !tok.Valid {
		return nil, common.ErrInvalidCredential
	}

	if !s.noExpiry {
		if c.ExpiresAt == nil || !s.now().Before(c.ExpiresAt.Time) {
			return nil, common.ErrCredentialExpired
		}
	}
	if c.IssuedAt == nil {
		return nil, common.ErrInvalidCredential
	}
	id, err := uuid.Parse(c.Subject)
	if err != nil {
		return nil, common.ErrInvalidCredential
	}

	acc, err := s.store.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return nil, common.ErrAccountNotFound
		}
		return nil, fmt.Errorf("%w: load account: %v", common.ErrServiceUnavailable, err)
	}
	if !acc.IsActive {
		return nil, common.ErrAccountDisabled
	}
	if acc.PasswordChangedAfter(c.IssuedAt.Time) {
		return nil, common.ErrCredentialSuperseded
	}
	return acc, nil
}

// ChangePassword replaces the password and returns a fresh credential.
// Credentials issued before the change stop verifying.
func (s *service) ChangePassword(ctx context.Context, acc *models.Account, current, next string) (string, error) {
	if err := bcrypt.CompareHashAndPassword([]byte(acc.PasswordHash), []byte(current)); err != nil {
		return "", common.NewValidationError("current password is incorrect")
	}
	if len(next) < minPasswordLen {
		return "", common.NewValidationError(fmt.Sprintf("password must be at least %d characters", minPasswordLen))
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(next), s.cost)
	if err != nil {
		return "", err
	}
	changedAt := s.now()
	if err := s.store.UpdatePassword(ctx, acc.ID, string(hash), changedAt); err != nil {
		return "", err
	}
	acc.PasswordHash = string(hash)
	acc.PasswordChangedAt = &changedAt
	return s.IssueToken(acc)
}

func (s *service) UpdateSettings(ctx context.Context, acc *models.Account, in SettingsInput) (*models.Account, error) {
	updated := *acc
	var details []string
	if in.FirstName != nil {
		updated.FirstName = strings.TrimSpace(*in.FirstName)
	}
	if in.LastName != nil {
		updated.LastName = strings.TrimSpace(*in.LastName)
	}
	if in.PreferredCurrency != nil {
		updated.PreferredCurrency = models.NormalizeCurrency(*in.PreferredCurrency)
		if !models.IsSupportedCurrency(updated.PreferredCurrency) {
			details = append(details, fmt.Sprintf("currency %q is not supported", updated.PreferredCurrency))
		}
	}
	if in.Timezone != nil {
		updated.Timezone = *in.Timezone
		if _, err := time.LoadLocation(updated.Timezone); err != nil {
			details = append(details, fmt.Sprintf("timezone %q is not valid", updated.Timezone))
		}
	}
	if in.AIAPIKey != nil {
		if *in.AIAPIKey == "" {
			updated.AIAPIKey = nil
		} else {
			key := *in.AIAPIKey
			updated.AIAPIKey = &key
		}
	}
	if len(details) > 0 {
		return nil, common.NewValidationError(details...)
	}
	if err := s.store.UpdateProfile(ctx, &updated); err != nil {
		return nil, err
	}
	return &updated, nil
}

// Deactivate soft-disables the account; its credentials stop verifying.
func (s *service) Deactivate(ctx context.Context, acc *models.Account) error {
	if err := s.store.SetActive(ctx, acc.ID, false); err != nil {
		return err
	}
	acc.IsActive = false
	return nil
}
