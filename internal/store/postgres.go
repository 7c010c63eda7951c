package store

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/kiranshivaraju/brandlens/pkg/models"
)

// PostgresStore implements the Store interface using pgx/v5.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore creates a new PostgresStore.
func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

// dbtx is satisfied by both the pool and a transaction.
type dbtx interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	CopyFrom(ctx context.Context, tableName pgx.Identifier, columnNames []string, rowSrc pgx.CopyFromSource) (int64, error)
}

// Ping checks database connectivity.
func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// --- API Keys ---

func (s *PostgresStore) GetAPIKeyByPrefix(ctx context.Context, prefix string) ([]*models.APIKey, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, user_id, name, key_hash, key_prefix, scopes, last_used_at, deleted_at, created_at, updated_at
		 FROM api_keys WHERE key_prefix = $1 AND deleted_at IS NULL`, prefix)
	if err != nil {
		return nil, fmt.Errorf("get api key by prefix: %w", err)
	}
	defer rows.Close()

	var keys []*models.APIKey
	for rows.Next() {
		var k models.APIKey
		if err := rows.Scan(&k.ID, &k.UserID, &k.Name, &k.KeyHash, &k.KeyPrefix, &k.Scopes,
			&k.LastUsedAt, &k.DeletedAt, &k.CreatedAt, &k.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan api key: %w", err)
		}
		keys = append(keys, &k)
	}
	return keys, rows.Err()
}

func (s *PostgresStore) UpdateAPIKeyLastUsed(ctx context.Context, id uuid.UUID) error {
	_, err := s.pool.Exec(ctx,
		`UPDATE api_keys SET last_used_at = NOW(), updated_at = NOW() WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("update api key last used: %w", err)
	}
	return nil
}

func (s *PostgresStore) CreateAPIKey(ctx context.Context, key *models.APIKey) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO api_keys (id, user_id, name, key_hash, key_prefix, scopes, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		key.ID, key.UserID, key.Name, key.KeyHash, key.KeyPrefix, key.Scopes, key.CreatedAt, key.UpdatedAt)
	if err != nil {
		if isDuplicateKeyError(err) {
			return ErrDuplicateKey
		}
		return fmt.Errorf("create api key: %w", err)
	}
	return nil
}

func (s *PostgresStore) ListAPIKeys(ctx context.Context, userID uuid.UUID) ([]*models.APIKey, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, user_id, name, key_hash, key_prefix, scopes, last_used_at, deleted_at, created_at, updated_at
		 FROM api_keys WHERE user_id = $1 AND deleted_at IS NULL ORDER BY created_at DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("list api keys: %w", err)
	}
	defer rows.Close()

	var keys []*models.APIKey
	for rows.Next() {
		var k models.APIKey
		if err := rows.Scan(&k.ID, &k.UserID, &k.Name, &k.KeyHash, &k.KeyPrefix, &k.Scopes,
			&k.LastUsedAt, &k.DeletedAt, &k.CreatedAt, &k.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan api key: %w", err)
		}
		keys = append(keys, &k)
	}
	return keys, rows.Err()
}

func (s *PostgresStore) RevokeAPIKey(ctx context.Context, id uuid.UUID, userID uuid.UUID) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE api_keys SET deleted_at = NOW(), updated_at = NOW()
		 WHERE id = $1 AND user_id = $2 AND deleted_at IS NULL`, id, userID)
	if err != nil {
		return fmt.Errorf("revoke api key: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// --- Checks ---

const checkColumns = `id, project_id, user_id, prompt, brands, providers, status, total_mentions,
	mention_rate, avg_confidence, error_message, metadata, created_at, completed_at`

func scanCheck(row pgx.Row) (*models.Check, error) {
	var c models.Check
	err := row.Scan(&c.ID, &c.ProjectID, &c.UserID, &c.Prompt, &c.Brands, &c.Providers, &c.Status,
		&c.TotalMentions, &c.MentionRate, &c.AvgConfidence, &c.ErrorMessage, &c.Metadata,
		&c.CreatedAt, &c.CompletedAt)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func (s *PostgresStore) CreateCheck(ctx context.Context, check *models.Check) error {
	metadata := check.Metadata
	if metadata == nil {
		metadata = map[string]any{}
	}
	_, err := s.pool.Exec(ctx,
		`INSERT INTO checks (id, project_id, user_id, prompt, brands, providers, status, metadata, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		check.ID, check.ProjectID, check.UserID, check.Prompt, check.Brands, check.Providers,
		check.Status, metadata, check.CreatedAt)
	if err != nil {
		if isDuplicateKeyError(err) {
			return ErrDuplicateKey
		}
		return fmt.Errorf("create check: %w", err)
	}
	return nil
}

// GetCheck loads a check with its results and mentions. Results follow the
// check's provider order and mentions follow its brand order.
func (s *PostgresStore) GetCheck(ctx context.Context, id uuid.UUID) (*models.Check, error) {
	c, err := scanCheck(s.pool.QueryRow(ctx, `SELECT `+checkColumns+` FROM checks WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get check: %w", err)
	}

	rows, err := s.pool.Query(ctx,
		`SELECT id, check_id, provider, response_text, processing_time_ms, error_kind, error_message, created_at
		 FROM results WHERE check_id = $1`, id)
	if err != nil {
		return nil, fmt.Errorf("list results: %w", err)
	}
	defer rows.Close()

	byID := make(map[uuid.UUID]int)
	for rows.Next() {
		var r models.Result
		if err := rows.Scan(&r.ID, &r.CheckID, &r.Provider, &r.ResponseText, &r.ProcessingTimeMS,
			&r.ErrorKind, &r.ErrorMessage, &r.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan result: %w", err)
		}
		r.Mentions = []models.Mention{}
		byID[r.ID] = len(c.Results)
		c.Results = append(c.Results, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list results: %w", err)
	}
	rows.Close()

	if len(c.Results) > 0 {
		mrows, err := s.pool.Query(ctx,
			`SELECT m.id, m.result_id, m.brand, m.mentioned, m.confidence, m.context_snippet, m.position,
			        m.match_type, m.mention_count, m.strategy_disagreement, m.created_at
			 FROM mentions m JOIN results r ON r.id = m.result_id
			 WHERE r.check_id = $1`, id)
		if err != nil {
			return nil, fmt.Errorf("list mentions: %w", err)
		}
		defer mrows.Close()

		for mrows.Next() {
			var m models.Mention
			if err := mrows.Scan(&m.ID, &m.ResultID, &m.Brand, &m.Mentioned, &m.Confidence,
				&m.ContextSnippet, &m.Position, &m.MatchType, &m.MentionCount, &m.StrategyDisagreement,
				&m.CreatedAt); err != nil {
				return nil, fmt.Errorf("scan mention: %w", err)
			}
			if idx, ok := byID[m.ResultID]; ok {
				c.Results[idx].Mentions = append(c.Results[idx].Mentions, m)
			}
		}
		if err := mrows.Err(); err != nil {
			return nil, fmt.Errorf("list mentions: %w", err)
		}
	}

	orderChildren(c)
	return c, nil
}

func orderChildren(c *models.Check) {
	providerRank := rankIndex(c.Providers)
	brandRank := rankIndex(c.Brands)

	sort.SliceStable(c.Results, func(i, j int) bool {
		return providerRank(c.Results[i].Provider) < providerRank(c.Results[j].Provider)
	})
	for i := range c.Results {
		ms := c.Results[i].Mentions
		sort.SliceStable(ms, func(a, b int) bool {
			return brandRank(ms[a].Brand) < brandRank(ms[b].Brand)
		})
	}
}

func rankIndex(values []string) func(string) int {
	idx := make(map[string]int, len(values))
	for i, v := range values {
		idx[strings.ToLower(v)] = i
	}
	return func(v string) int {
		if i, ok := idx[strings.ToLower(v)]; ok {
			return i
		}
		return len(values)
	}
}

func (s *PostgresStore) ListChecks(ctx context.Context, filter CheckFilter) ([]*models.Check, int, error) {
	// Build WHERE clause dynamically
	conditions := []string{"project_id = $1"}
	args := []any{filter.ProjectID}
	argIdx := 2

	if filter.Brand != "" {
		conditions = append(conditions, fmt.Sprintf(
			"EXISTS (SELECT 1 FROM jsonb_array_elements_text(brands) b WHERE lower(b) = lower($%d))", argIdx))
		args = append(args, filter.Brand)
		argIdx++
	}
	if filter.Provider != "" {
		conditions = append(conditions, fmt.Sprintf(
			"EXISTS (SELECT 1 FROM jsonb_array_elements_text(providers) p WHERE lower(p) = lower($%d))", argIdx))
		args = append(args, filter.Provider)
		argIdx++
	}

	where := strings.Join(conditions, " AND ")

	var total int
	if err := s.pool.QueryRow(ctx, "SELECT COUNT(*) FROM checks WHERE "+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count checks: %w", err)
	}

	_, limit, offset := NormalizePage(filter.Page, filter.Limit)

	dataQuery := fmt.Sprintf(
		`SELECT %s FROM checks WHERE %s ORDER BY created_at DESC, id DESC LIMIT $%d OFFSET $%d`,
		checkColumns, where, argIdx, argIdx+1)
	args = append(args, limit, offset)

	rows, err := s.pool.Query(ctx, dataQuery, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list checks: %w", err)
	}
	defer rows.Close()

	checks := []*models.Check{}
	for rows.Next() {
		c, err := scanCheck(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("scan check: %w", err)
		}
		checks = append(checks, c)
	}
	return checks, total, rows.Err()
}

// UpdateCheckStatus moves a check along its lifecycle. Moving to failed also
// discards any results already written for the check, so a failed check
// never carries partial data.
func (s *PostgresStore) UpdateCheckStatus(ctx context.Context, id uuid.UUID, status string, opts ...CheckUpdateOption) error {
	params := &checkUpdateParams{}
	for _, opt := range opts {
		opt(params)
	}

	return pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		if err := lockForTransition(ctx, tx, id, status); err != nil {
			return err
		}

		query := `UPDATE checks SET status = $2`
		args := []any{id, status}
		argIdx := 3

		if models.IsTerminal(status) {
			query += fmt.Sprintf(", completed_at = $%d", argIdx)
			args = append(args, time.Now().UTC())
			argIdx++
		}
		if params.ErrorMessage != nil {
			query += fmt.Sprintf(", error_message = $%d", argIdx)
			args = append(args, *params.ErrorMessage)
		}
		query += " WHERE id = $1"

		if status == models.CheckStatusFailed {
			if _, err := tx.Exec(ctx, `DELETE FROM results WHERE check_id = $1`, id); err != nil {
				return fmt.Errorf("discard results: %w", err)
			}
		}

		if _, err := tx.Exec(ctx, query, args...); err != nil {
			return fmt.Errorf("update check status: %w", err)
		}
		return nil
	})
}

// lockForTransition row-locks the check and validates the move to status.
func lockForTransition(ctx context.Context, tx pgx.Tx, id uuid.UUID, status string) error {
	var current string
	err := tx.QueryRow(ctx, `SELECT status FROM checks WHERE id = $1 FOR UPDATE`, id).Scan(&current)
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("get check status: %w", err)
	}
	if !CanTransition(current, status) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, current, status)
	}
	return nil
}

func (s *PostgresStore) SaveResult(ctx context.Context, result *models.Result) error {
	return insertResult(ctx, s.pool, result)
}

func (s *PostgresStore) SaveMentions(ctx context.Context, mentions []models.Mention) error {
	return copyMentions(ctx, s.pool, mentions)
}

// CompleteCheck writes every result and mention of check together with its
// summary and the completed status in one transaction. On any error nothing
// is written and the check keeps its previous status. check itself is not
// modified.
func (s *PostgresStore) CompleteCheck(ctx context.Context, check *models.Check) error {
	return pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		if err := lockForTransition(ctx, tx, check.ID, models.CheckStatusCompleted); err != nil {
			return err
		}

		var mentions []models.Mention
		for i := range check.Results {
			if err := insertResult(ctx, tx, &check.Results[i]); err != nil {
				return err
			}
			mentions = append(mentions, check.Results[i].Mentions...)
		}
		if err := copyMentions(ctx, tx, mentions); err != nil {
			return err
		}

		completedAt := time.Now().UTC()
		if check.CompletedAt != nil {
			completedAt = *check.CompletedAt
		}
		metadata := check.Metadata
		if metadata == nil {
			metadata = map[string]any{}
		}

		_, err := tx.Exec(ctx,
			`UPDATE checks SET status = $2, total_mentions = $3, mention_rate = $4, avg_confidence = $5,
			   metadata = $6, completed_at = $7
			 WHERE id = $1`,
			check.ID, models.CheckStatusCompleted, check.TotalMentions, check.MentionRate,
			check.AvgConfidence, metadata, completedAt)
		if err != nil {
			return fmt.Errorf("complete check: %w", err)
		}
		return nil
	})
}

func insertResult(ctx context.Context, db dbtx, r *models.Result) error {
	_, err := db.Exec(ctx,
		`INSERT INTO results (id, check_id, provider, response_text, processing_time_ms, error_kind, error_message, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		r.ID, r.CheckID, r.Provider, r.ResponseText, r.ProcessingTimeMS, r.ErrorKind, r.ErrorMessage, r.CreatedAt)
	if err != nil {
		if isDuplicateKeyError(err) {
			return ErrDuplicateKey
		}
		return fmt.Errorf("insert result: %w", err)
	}
	return nil
}

func copyMentions(ctx context.Context, db dbtx, mentions []models.Mention) error {
	if len(mentions) == 0 {
		return nil
	}
	rows := make([][]any, len(mentions))
	for i, m := range mentions {
		rows[i] = []any{m.ID, m.ResultID, m.Brand, m.Mentioned, m.Confidence, m.ContextSnippet,
			m.Position, m.MatchType, m.MentionCount, m.StrategyDisagreement, m.CreatedAt}
	}
	_, err := db.CopyFrom(ctx, pgx.Identifier{"mentions"},
		[]string{"id", "result_id", "brand", "mentioned", "confidence", "context_snippet",
			"position", "match_type", "mention_count", "strategy_disagreement", "created_at"},
		pgx.CopyFromRows(rows))
	if err != nil {
		if isDuplicateKeyError(err) {
			return ErrDuplicateKey
		}
		return fmt.Errorf("copy mentions: %w", err)
	}
	return nil
}

// --- Prompt Templates ---

func (s *PostgresStore) SaveTemplate(ctx context.Context, tpl *models.PromptTemplate) error {
	variables := tpl.Variables
	if variables == nil {
		variables = map[string]string{}
	}
	_, err := s.pool.Exec(ctx,
		`INSERT INTO prompt_templates (id, owner_id, name, category, template, variables, description, usage_count, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		tpl.ID, tpl.OwnerID, tpl.Name, tpl.Category, tpl.Template, variables, tpl.Description,
		tpl.UsageCount, tpl.CreatedAt, tpl.UpdatedAt)
	if err != nil {
		if isDuplicateKeyError(err) {
			return ErrDuplicateKey
		}
		return fmt.Errorf("save template: %w", err)
	}
	return nil
}

const templateColumns = `id, owner_id, name, category, template, variables, description, usage_count, created_at, updated_at`

func scanTemplate(row pgx.Row) (*models.PromptTemplate, error) {
	var t models.PromptTemplate
	if err := row.Scan(&t.ID, &t.OwnerID, &t.Name, &t.Category, &t.Template, &t.Variables,
		&t.Description, &t.UsageCount, &t.CreatedAt, &t.UpdatedAt); err != nil {
		return nil, err
	}
	return &t, nil
}

// GetTemplates lists templates, most used first. An empty category lists all.
func (s *PostgresStore) GetTemplates(ctx context.Context, category string) ([]*models.PromptTemplate, error) {
	query := `SELECT ` + templateColumns + ` FROM prompt_templates`
	var args []any
	if category != "" {
		query += ` WHERE category = $1`
		args = append(args, category)
	}
	query += ` ORDER BY usage_count DESC, name ASC`

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("get templates: %w", err)
	}
	defer rows.Close()

	templates := []*models.PromptTemplate{}
	for rows.Next() {
		t, err := scanTemplate(rows)
		if err != nil {
			return nil, fmt.Errorf("scan template: %w", err)
		}
		templates = append(templates, t)
	}
	return templates, rows.Err()
}

func (s *PostgresStore) GetTemplate(ctx context.Context, id uuid.UUID) (*models.PromptTemplate, error) {
	t, err := scanTemplate(s.pool.QueryRow(ctx, `SELECT `+templateColumns+` FROM prompt_templates WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get template: %w", err)
	}
	return t, nil
}

// IncrementTemplateUsage bumps usage_count in place and returns the new value.
func (s *PostgresStore) IncrementTemplateUsage(ctx context.Context, id uuid.UUID) (int, error) {
	var count int
	err := s.pool.QueryRow(ctx,
		`UPDATE prompt_templates SET usage_count = usage_count + 1, updated_at = NOW()
		 WHERE id = $1 RETURNING usage_count`, id).Scan(&count)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, ErrNotFound
	}
	if err != nil {
		return 0, fmt.Errorf("increment template usage: %w", err)
	}
	return count, nil
}

// --- Analytics ---

// ListMentionFacts returns mention rows of completed checks, oldest first.
func (s *PostgresStore) ListMentionFacts(ctx context.Context, filter MentionFactFilter) ([]models.MentionFact, error) {
	brands := make([]string, 0, len(filter.Brands))
	for _, b := range filter.Brands {
		brands = append(brands, strings.ToLower(strings.TrimSpace(b)))
	}

	rows, err := s.pool.Query(ctx,
		`SELECT c.id, c.created_at, r.provider, r.error_kind IS NOT NULL, r.processing_time_ms,
		        m.brand, m.mentioned, m.confidence, m.context_snippet
		 FROM mentions m
		 JOIN results r ON r.id = m.result_id
		 JOIN checks c ON c.id = r.check_id
		 WHERE c.project_id = $1 AND c.status = 'completed'
		   AND c.created_at >= $2 AND c.created_at < $3
		   AND lower(m.brand) = ANY($4)
		 ORDER BY c.created_at ASC, c.id ASC, r.provider ASC`,
		filter.ProjectID, filter.From, filter.To, brands)
	if err != nil {
		return nil, fmt.Errorf("list mention facts: %w", err)
	}
	defer rows.Close()

	facts := []models.MentionFact{}
	for rows.Next() {
		var f models.MentionFact
		if err := rows.Scan(&f.CheckID, &f.CheckCreatedAt, &f.Provider, &f.ProviderFailed, &f.ProcessingTimeMS,
			&f.Brand, &f.Mentioned, &f.Confidence, &f.ContextSnippet); err != nil {
			return nil, fmt.Errorf("scan mention fact: %w", err)
		}
		facts = append(facts, f)
	}
	return facts, rows.Err()
}

// isDuplicateKeyError checks if a pgx error is a unique constraint violation.
func isDuplicateKeyError(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
