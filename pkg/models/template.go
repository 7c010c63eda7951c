package models

import (
	"time"

	"github.com/google/uuid"
)

// PromptTemplate is a reusable prompt with {variable} placeholders.
type PromptTemplate struct {
	ID          uuid.UUID         `db:"id"          json:"id"`
	OwnerID     uuid.UUID         `db:"owner_id"    json:"owner_id"`
	Name        string            `db:"name"        json:"name"`
	Category    string            `db:"category"    json:"category"`
	Template    string            `db:"template"    json:"template"`
	Variables   map[string]string `db:"variables"   json:"variables"`
	Description *string           `db:"description" json:"description,omitempty"`
	UsageCount  int               `db:"usage_count" json:"usage_count"`
	CreatedAt   time.Time         `db:"created_at"  json:"created_at"`
	UpdatedAt   time.Time         `db:"updated_at"  json:"updated_at"`
}
