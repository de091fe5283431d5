package models

import (
	"time"

	"github.com/google/uuid"
)

// Rate sources.
const (
	RateSourceAPI      = "api"
	RateSourceManual   = "manual"
	RateSourceFallback = "fallback"
)

// ExchangeRate is one persisted observation. Records are never updated in place.
type ExchangeRate struct {
	ID           uuid.UUID `json:"id"`
	FromCurrency string    `json:"fromCurrency"`
	ToCurrency   string    `json:"toCurrency"`
	Rate         float64   `json:"rate"`
	Date         time.Time `json:"date"`
	Source       string    `json:"source"`
	IsActive     bool      `json:"isActive"`
	CreatedAt    time.Time `json:"createdAt"`
}
