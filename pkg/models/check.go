package models

import (
	"time"

	"github.com/google/uuid"
)

const (
	CheckStatusPending   = "pending"
	CheckStatusRunning   = "running"
	CheckStatusCompleted = "completed"
	CheckStatusFailed    = "failed"
)

// ExecutionMode controls how provider calls are dispatched within a check.
type ExecutionMode string

const (
	ModeParallel   ExecutionMode = "parallel"
	ModeSequential ExecutionMode = "sequential"
)

// Check is one detection task: a prompt run against a brand list across providers.
// Results are only populated when the check is loaded with its children.
type Check struct {
	ID            uuid.UUID      `db:"id"             json:"id"`
	ProjectID     uuid.UUID      `db:"project_id"     json:"project_id"`
	UserID        uuid.UUID      `db:"user_id"        json:"user_id"`
	Prompt        string         `db:"prompt"         json:"prompt"`
	Brands        []string       `db:"brands"         json:"brands"`
	Providers     []string       `db:"providers"      json:"providers"`
	Status        string         `db:"status"         json:"status"`
	TotalMentions int            `db:"total_mentions" json:"total_mentions"`
	MentionRate   float64        `db:"mention_rate"   json:"mention_rate"`
	AvgConfidence float64        `db:"avg_confidence" json:"avg_confidence"`
	ErrorMessage  *string        `db:"error_message"  json:"error_message,omitempty"`
	Metadata      map[string]any `db:"metadata"       json:"metadata,omitempty"`
	CreatedAt     time.Time      `db:"created_at"     json:"created_at"`
	CompletedAt   *time.Time     `db:"completed_at"   json:"completed_at,omitempty"`
	Results       []Result       `db:"-"              json:"results,omitempty"`
}

// Result is one provider's response (or failure) within a check.
type Result struct {
	ID               uuid.UUID `db:"id"                 json:"id"`
	CheckID          uuid.UUID `db:"check_id"           json:"check_id"`
	Provider         string    `db:"provider"           json:"provider"`
	ResponseText     *string   `db:"response_text"      json:"response_text"`
	ProcessingTimeMS int64     `db:"processing_time_ms" json:"processing_time_ms"`
	ErrorKind        *string   `db:"error_kind"         json:"error_kind,omitempty"`
	ErrorMessage     *string   `db:"error_message"      json:"error_message,omitempty"`
	CreatedAt        time.Time `db:"created_at"         json:"created_at"`
	Mentions         []Mention `db:"-"                  json:"mentions"`
}

// Mention is one brand's analysis outcome within a result.
type Mention struct {
	ID                   uuid.UUID `db:"id"                    json:"id"`
	ResultID             uuid.UUID `db:"result_id"             json:"result_id"`
	Brand                string    `db:"brand"                 json:"brand"`
	Mentioned            bool      `db:"mentioned"             json:"mentioned"`
	Confidence           float64   `db:"confidence"            json:"confidence"`
	ContextSnippet       *string   `db:"context_snippet"       json:"context_snippet"`
	Position             *int      `db:"position"              json:"position"`
	MatchType            string    `db:"match_type"            json:"match_type"`
	MentionCount         int       `db:"mention_count"         json:"mention_count"`
	StrategyDisagreement bool      `db:"strategy_disagreement" json:"strategy_disagreement,omitempty"`
	CreatedAt            time.Time `db:"created_at"            json:"created_at"`
}

// IsTerminal reports whether status can no longer change.
func IsTerminal(status string) bool {
	return status == CheckStatusCompleted || status == CheckStatusFailed
}
