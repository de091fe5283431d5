package models

import (
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
)

// Owner identifies who a record belongs to: an account, or the shared
// Anonymous partition. The zero value is Anonymous.
type Owner struct {
	id uuid.UUID
}

// Anonymous owns records created without an authenticated account.
var Anonymous = Owner{}

// OwnedBy returns the owner for the given account id.
func OwnedBy(accountID uuid.UUID) Owner {
	return Owner{id: accountID}
}

func (o Owner) IsAnonymous() bool { return o.id == uuid.Nil }

// AccountID returns the owning account id and false for Anonymous.
func (o Owner) AccountID() (uuid.UUID, bool) {
	return o.id, o.id != uuid.Nil
}

func (o Owner) String() string {
	if o.IsAnonymous() {
		return "anonymous"
	}
	return o.id.String()
}

// Arg is the owner_id query argument: nil (SQL NULL) for Anonymous.
func (o Owner) Arg() any {
	if o.IsAnonymous() {
		return nil
	}
	return o.id
}

// OwnerFromColumn converts a nullable owner_id column back into an Owner.
func OwnerFromColumn(id *uuid.UUID) Owner {
	if id == nil {
		return Anonymous
	}
	return OwnedBy(*id)
}

func (o Owner) MarshalJSON() ([]byte, error) {
	if o.IsAnonymous() {
		return []byte("null"), nil
	}
	return json.Marshal(o.id.String())
}

func (o *Owner) UnmarshalJSON(b []byte) error {
	var s *string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	if s == nil || *s == "" {
		*o = Anonymous
		return nil
	}
	id, err := uuid.Parse(*s)
	if err != nil {
		return fmt.Errorf("owner: %w", err)
	}
	*o = OwnedBy(id)
	return nil
}
