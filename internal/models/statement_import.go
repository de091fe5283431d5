package models

import (
	"time"

	"github.com/google/uuid"
)

const (
	ImportStatusPending    = "pending"
	ImportStatusProcessing = "processing"
	ImportStatusCompleted  = "completed"
	ImportStatusFailed     = "failed"
)

// StatementImport tracks one uploaded bank statement through the import worker.
type StatementImport struct {
	ID        uuid.UUID `json:"id"`
	Owner     Owner     `json:"owner"`
	Filename  string    `json:"filename"`
	ObjectKey string    `json:"-"`
	Status    string    `json:"status"`
	Source    *string   `json:"source,omitempty"`
	ItemCount int       `json:"itemCount"`
	Error     *string   `json:"error,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}
