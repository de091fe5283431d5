package models

import (
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/fintrack/backend/internal/common"
)

var colorPattern = regexp.MustCompile(`^#[0-9a-fA-F]{6}$`)

// Category groups transactions. Anonymous-owned categories are the public defaults.
type Category struct {
	ID        uuid.UUID `json:"id"`
	Owner     Owner     `json:"owner"`
	Name      string    `json:"name"`
	Type      string    `json:"type"`
	Color     string    `json:"color"`
	Icon      string    `json:"icon"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func (c *Category) Validate() error {
	c.Name = strings.TrimSpace(c.Name)
	if c.Color == "" {
		c.Color = "#6B7280"
	}

	var details []string
	if c.Name == "" || len(c.Name) > 50 {
		details = append(details, "name must be 1-50 characters")
	}
	if c.Type != TypeIncome && c.Type != TypeExpense {
		details = append(details, "type must be income or expense")
	}
	if !colorPattern.MatchString(c.Color) {
		details = append(details, "color must be a #RRGGBB hex value")
	}
	if len(details) > 0 {
		return common.NewValidationError(details...)
	}
	return nil
}
