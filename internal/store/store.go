package store

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/kiranshivaraju/brandlens/pkg/models"
)

var ErrNotFound = errors.New("resource not found")
var ErrDuplicateKey = errors.New("duplicate key violation")
var ErrInvalidTransition = errors.New("invalid check status transition")

// Store is the data access interface. All database operations go through here.
type Store interface {
	Ping(ctx context.Context) error

	GetAPIKeyByPrefix(ctx context.Context, prefix string) ([]*models.APIKey, error)
	UpdateAPIKeyLastUsed(ctx context.Context, id uuid.UUID) error
	CreateAPIKey(ctx context.Context, key *models.APIKey) error
	ListAPIKeys(ctx context.Context, userID uuid.UUID) ([]*models.APIKey, error)
	RevokeAPIKey(ctx context.Context, id uuid.UUID, userID uuid.UUID) error

	CreateCheck(ctx context.Context, check *models.Check) error
	GetCheck(ctx context.Context, id uuid.UUID) (*models.Check, error)
	ListChecks(ctx context.Context, filter CheckFilter) ([]*models.Check, int, error)
	UpdateCheckStatus(ctx context.Context, id uuid.UUID, status string, opts ...CheckUpdateOption) error
	SaveResult(ctx context.Context, result *models.Result) error
	SaveMentions(ctx context.Context, mentions []models.Mention) error
	CompleteCheck(ctx context.Context, check *models.Check) error

	SaveTemplate(ctx context.Context, tpl *models.PromptTemplate) error
	GetTemplates(ctx context.Context, category string) ([]*models.PromptTemplate, error)
	GetTemplate(ctx context.Context, id uuid.UUID) (*models.PromptTemplate, error)
	IncrementTemplateUsage(ctx context.Context, id uuid.UUID) (int, error)

	ListMentionFacts(ctx context.Context, filter MentionFactFilter) ([]models.MentionFact, error)
}

// CheckFilter selects a page of checks for one project, newest first.
// Brand and Provider match case-insensitively against the check's lists.
type CheckFilter struct {
	ProjectID uuid.UUID
	Brand     string
	Provider  string
	Page      int
	Limit     int
}

// MentionFactFilter selects mention rows of completed checks in [From, To).
type MentionFactFilter struct {
	ProjectID uuid.UUID
	Brands    []string
	From      time.Time
	To        time.Time
}

const (
	DefaultPageSize = 20
	MaxPageSize     = 100
)

// NormalizePage clamps pagination input and returns (page, limit, offset).
func NormalizePage(page, limit int) (int, int, int) {
	if limit <= 0 {
		limit = DefaultPageSize
	}
	if limit > MaxPageSize {
		limit = MaxPageSize
	}
	if page <= 0 {
		page = 1
	}
	return page, limit, (page - 1) * limit
}

type checkUpdateParams struct {
	ErrorMessage *string
}

type CheckUpdateOption func(*checkUpdateParams)

func WithErrorMessage(msg string) CheckUpdateOption {
	return func(p *checkUpdateParams) {
		p.ErrorMessage = &msg
	}
}

var validTransitions = map[string][]string{
	models.CheckStatusPending: {models.CheckStatusRunning, models.CheckStatusFailed},
	models.CheckStatusRunning: {models.CheckStatusCompleted, models.CheckStatusFailed},
}

// CanTransition reports whether a check may move from one status to another.
func CanTransition(from, to string) bool {
	for _, a := range validTransitions[from] {
		if a == to {
			return true
		}
	}
	return false
}
