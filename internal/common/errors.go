// Package common holds the error taxonomy shared by stores, services and handlers.
package common

import (
	"errors"
	"strings"
)

var (
	ErrNotFound           = errors.New("resource not found")
	ErrConflict           = errors.New("resource already exists")
	ErrServiceUnavailable = errors.New("service temporarily unavailable")
	ErrProviderDegraded   = errors.New("external provider returned an unusable response")
	ErrValidation         = errors.New("validation failed")
)

// AuthError is an authentication failure carrying a machine-readable reason.
type AuthError struct {
	Reason  string
	Message string
}

func (e *AuthError) Error() string { return e.Message }

var (
	ErrAuthenticationRequired = &AuthError{Reason: "AuthenticationRequired", Message: "authentication required"}
	ErrInvalidCredential      = &AuthError{Reason: "InvalidCredential", Message: "invalid credential"}
	ErrCredentialExpired      = &AuthError{Reason: "CredentialExpired", Message: "credential expired"}
	ErrAccountNotFound        = &AuthError{Reason: "AccountNotFound", Message: "account no longer exists"}
	ErrAccountDisabled        = &AuthError{Reason: "AccountDisabled", Message: "account is disabled"}
	ErrCredentialSuperseded   = &AuthError{Reason: "CredentialSupersededByPasswordChange", Message: "password changed after the credential was issued"}
)

// ValidationError lists every field-level problem found in a request.
type ValidationError struct {
	Details []string
}

func NewValidationError(details ...string) *ValidationError {
	return &ValidationError{Details: details}
}

func (e *ValidationError) Error() string {
	if len(e.Details) == 0 {
		return ErrValidation.Error()
	}
	return ErrValidation.Error() + ": " + strings.Join(e.Details, "; ")
}

func (e *ValidationError) Is(target error) bool { return target == ErrValidation }
