package models

import (
	"time"

	"github.com/google/uuid"
)

type Account struct {
	ID                uuid.UUID  `json:"id"`
	Username          string     `json:"username"`
	Email             string     `json:"email"`
	PasswordHash      string     `json:"-"`
	FirstName         string     `json:"firstName"`
	LastName          string     `json:"lastName"`
	PreferredCurrency string     `json:"preferredCurrency"`
	Timezone          string     `json:"timezone"`
	IsActive          bool       `json:"isActive"`
	AIAPIKey          *string    `json:"-"`
	PasswordChangedAt *time.Time `json:"-"`
	CreatedAt         time.Time  `json:"createdAt"`
	UpdatedAt         time.Time  `json:"updatedAt"`
}

// Owner returns the partition this account's records live in.
func (a *Account) Owner() Owner { return OwnedBy(a.ID) }

// HasAIKey reports whether the account brought its own AI credential.
func (a *Account) HasAIKey() bool { return a.AIAPIKey != nil && *a.AIAPIKey != "" }

// PasswordChangedAfter reports whether the password changed after a
// credential issued at issuedAt. Compared at one-second granularity, so a
// credential issued in the same second as the change stays valid.
func (a *Account) PasswordChangedAfter(issuedAt time.Time) bool {
	if a.PasswordChangedAt == nil {
		return false
	}
	return issuedAt.Unix() < a.PasswordChangedAt.Unix()
}
