// Package detection runs a prompt against several LLM providers, analyzes
// every response for brand mentions and persists the assembled check.
package detection

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/kiranshivaraju/brandlens/internal/ai"
	"github.com/kiranshivaraju/brandlens/internal/analysis"
	"github.com/kiranshivaraju/brandlens/internal/cache"
	"github.com/kiranshivaraju/brandlens/internal/config"
	"github.com/kiranshivaraju/brandlens/internal/metrics"
	"github.com/kiranshivaraju/brandlens/internal/store"
	"github.com/kiranshivaraju/brandlens/pkg/models"
	"golang.org/x/sync/errgroup"
)

const (
	MaxPromptRunes = 2000
	MaxBrands      = 10
	MaxProviders   = 5
	MaxBrandRunes  = 100

	RateBasisRequested = "requested"
	RateBasisResponded = "responded"

	statusTTL = 30 * time.Minute
)

// ProviderSource resolves configured providers by identifier.
type ProviderSource interface {
	Lookup(name string) (models.Provider, bool)
}

// Options are the service-wide defaults and policies.
type Options struct {
	Mode            models.ExecutionMode
	Strategy        string
	Params          models.CompletionParams
	ProviderTimeout time.Duration
	// CheckTimeout bounds the whole dispatch phase; zero means none.
	// Calls still pending when it fires settle as timeouts.
	CheckTimeout    time.Duration
	RateBasis       string
	FailOnAllErrors bool
}

// OptionsFromConfig maps server configuration onto Options.
func OptionsFromConfig(aiCfg config.AIConfig, cfg config.DetectionConfig) Options {
	return Options{
		Mode:     models.ExecutionMode(cfg.Mode),
		Strategy: cfg.Strategy,
		Params: models.CompletionParams{
			MaxTokens:   cfg.MaxTokens,
			Temperature: cfg.Temperature,
		},
		ProviderTimeout: aiCfg.RequestTimeout,
		CheckTimeout:    cfg.CheckTimeout,
		RateBasis:       cfg.RateBasis,
		FailOnAllErrors: cfg.FailOnAllErrors,
	}
}

// Request is one detection call. Optional fields fall back to Options.
type Request struct {
	ProjectID   uuid.UUID
	UserID      uuid.UUID
	Prompt      string
	Brands      []string
	Providers   []string
	Mode        models.ExecutionMode
	Strategy    string
	MaxTokens   *int
	Temperature *float64
	Metadata    map[string]any
}

// Service orchestrates detection checks.
type Service struct {
	providers ProviderSource
	store     store.Store
	cache     cache.Cache
	metrics   *metrics.Metrics
	opts      Options
	now       func() time.Time
}

// NewService creates a new Service. ca and m may be nil.
func NewService(providers ProviderSource, st store.Store, ca cache.Cache, m *metrics.Metrics, opts Options) *Service {
	if opts.Mode == "" {
		opts.Mode = models.ModeParallel
	}
	if opts.Strategy == "" {
		opts.Strategy = analysis.StrategyImproved
	}
	if opts.RateBasis == "" {
		opts.RateBasis = RateBasisRequested
	}
	if opts.Params.MaxTokens == 0 {
		opts.Params.MaxTokens = 300
	}
	return &Service{
		providers: providers,
		store:     st,
		cache:     ca,
		metrics:   m,
		opts:      opts,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// plan is a validated request.
type plan struct {
	prompt    string
	brands    []string
	providers []string
	mode      models.ExecutionMode
	strategy  analysis.MatchStrategy
	params    models.CompletionParams
}

// Execute runs one check end to end and returns it with results and mentions.
// Invalid input yields ErrValidation before anything is written. Systemic
// failures yield a *FaultError; the check is then failed with no results.
func (s *Service) Execute(ctx context.Context, req Request) (*models.Check, error) {
	p, err := s.validate(req)
	if err != nil {
		return nil, err
	}

	started := time.Now()
	metadata := map[string]any{}
	for k, v := range req.Metadata {
		metadata[k] = v
	}
	metadata["mode"] = string(p.mode)
	metadata["strategy"] = p.strategy.Name()
	metadata["max_tokens"] = p.params.MaxTokens
	metadata["temperature"] = p.params.Temperature
	metadata["rate_basis"] = s.opts.RateBasis

	check := &models.Check{
		ID:        uuid.New(),
		ProjectID: req.ProjectID,
		UserID:    req.UserID,
		Prompt:    p.prompt,
		Brands:    p.brands,
		Providers: p.providers,
		Status:    models.CheckStatusPending,
		Metadata:  metadata,
		CreatedAt: s.now(),
	}
	log := slog.With("check_id", check.ID, "project_id", check.ProjectID)

	if err := s.store.CreateCheck(ctx, check); err != nil {
		return nil, &FaultError{Reason: "create check", Err: fmt.Errorf("%w: %w", ErrPersistence, err)}
	}
	s.setStatus(ctx, check.ID, models.CheckStatusPending)

	resolved := make([]models.Provider, len(p.providers))
	configured := 0
	for i, name := range p.providers {
		if prov, ok := s.providers.Lookup(name); ok {
			resolved[i] = prov
			configured++
		}
	}
	if configured == 0 {
		return nil, s.fail(ctx, check, started, "no requested provider is configured", nil)
	}

	if err := s.store.UpdateCheckStatus(ctx, check.ID, models.CheckStatusRunning); err != nil {
		return nil, s.fail(ctx, check, started, "mark running", fmt.Errorf("%w: %w", ErrPersistence, err))
	}
	check.Status = models.CheckStatusRunning
	s.setStatus(ctx, check.ID, models.CheckStatusRunning)

	log.Info("dispatching check", "providers", p.providers, "brands", len(p.brands), "mode", p.mode)
	outcomes := s.dispatch(ctx, p, resolved)

	analyzer := analysis.NewAnalyzer(p.strategy)
	responded := 0
	for i, name := range p.providers {
		result := s.buildResult(check, name, outcomes[i], analyzer)
		if result.ErrorKind == nil {
			responded++
		} else {
			log.Warn("provider failed", "provider", name, "error_kind", *result.ErrorKind,
				"duration_ms", result.ProcessingTimeMS)
		}
		check.Results = append(check.Results, result)
	}

	if responded == 0 && s.opts.FailOnAllErrors {
		check.Results = nil
		return nil, s.fail(ctx, check, started, "all providers failed", nil)
	}

	summarize(check, s.opts.RateBasis, responded)
	completedAt := s.now()
	check.CompletedAt = &completedAt

	if err := s.store.CompleteCheck(ctx, check); err != nil {
		check.Results = nil
		return nil, s.fail(ctx, check, started, "persist results", fmt.Errorf("%w: %w", ErrPersistence, err))
	}
	check.Status = models.CheckStatusCompleted

	s.setStatus(ctx, check.ID, models.CheckStatusCompleted)
	s.invalidateAnalytics(ctx, check.ProjectID)
	s.metrics.ObserveCheck(models.CheckStatusCompleted, time.Since(started))
	for _, r := range check.Results {
		n := 0
		for _, m := range r.Mentions {
			if m.Mentioned {
				n++
			}
		}
		s.metrics.AddMentions(r.Provider, n)
	}

	log.Info("check completed",
		"total_mentions", check.TotalMentions,
		"mention_rate", check.MentionRate,
		"responded", responded,
		"duration_ms", time.Since(started).Milliseconds())
	return check, nil
}

// dispatch settles one outcome per provider, in input order. Unconfigured
// providers (nil entries) settle immediately as unavailable.
func (s *Service) dispatch(ctx context.Context, p *plan, resolved []models.Provider) []models.Outcome {
	if s.opts.CheckTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.opts.CheckTimeout)
		defer cancel()
	}

	outcomes := make([]models.Outcome, len(resolved))
	call := func(i int) {
		outcomes[i] = s.invoke(ctx, p, p.providers[i], resolved[i])
	}

	if p.mode == models.ModeSequential {
		for i := range resolved {
			call(i)
		}
		return outcomes
	}

	// Goroutines never return errors: every failure is already an Outcome,
	// so Wait only joins.
	var g errgroup.Group
	g.SetLimit(len(resolved))
	for i := range resolved {
		g.Go(func() error {
			call(i)
			return nil
		})
	}
	_ = g.Wait()
	return outcomes
}

func (s *Service) invoke(ctx context.Context, p *plan, name string, prov models.Provider) models.Outcome {
	var outcome models.Outcome
	switch {
	case prov == nil:
		outcome = models.Outcome{
			Provider: name,
			Failure: &models.Failure{
				Kind:    models.FailureProviderUnavailable,
				Message: fmt.Sprintf("provider %q is not configured", name),
			},
		}
	case errors.Is(ctx.Err(), context.DeadlineExceeded):
		outcome = models.Outcome{
			Provider: name,
			Failure:  &models.Failure{Kind: models.FailureTimeout, Message: "check deadline exceeded before dispatch"},
		}
	default:
		outcome = ai.Invoke(ctx, prov, p.prompt, p.params, s.opts.ProviderTimeout)
		outcome.Provider = name
	}

	label := "success"
	if outcome.Failure != nil {
		label = string(outcome.Failure.Kind)
	}
	s.metrics.ObserveProviderCall(name, label, time.Duration(outcome.LatencyMS)*time.Millisecond)
	return outcome
}

// buildResult turns one outcome into a Result with one Mention per brand.
// An empty response is tolerated as a successful, mention-free answer.
func (s *Service) buildResult(check *models.Check, provider string, o models.Outcome, analyzer *analysis.Analyzer) models.Result {
	now := s.now()
	result := models.Result{
		ID:               uuid.New(),
		CheckID:          check.ID,
		Provider:         provider,
		ProcessingTimeMS: max(o.LatencyMS, 0),
		CreatedAt:        now,
	}

	text, ok := "", false
	switch {
	case o.Completion != nil:
		text, ok = o.Completion.Text, true
	case o.Failure != nil && o.Failure.Kind == models.FailureEmptyResponse:
		ok = true
	}

	if !ok {
		kind := string(models.FailureProviderUnavailable)
		msg := "provider returned no outcome"
		if o.Failure != nil {
			kind, msg = string(o.Failure.Kind), o.Failure.Message
		}
		result.ErrorKind = &kind
		result.ErrorMessage = &msg
		result.Mentions = make([]models.Mention, len(check.Brands))
		for i, brand := range check.Brands {
			result.Mentions[i] = models.Mention{
				ID:        uuid.New(),
				ResultID:  result.ID,
				Brand:     brand,
				MatchType: string(analysis.MatchNone),
				CreatedAt: now,
			}
		}
		return result
	}

	result.ResponseText = &text
	analyzed := analyzer.Analyze(text, check.Brands)
	result.Mentions = make([]models.Mention, len(analyzed))
	for i, a := range analyzed {
		result.Mentions[i] = models.Mention{
			ID:                   uuid.New(),
			ResultID:             result.ID,
			Brand:                a.Brand,
			Mentioned:            a.Mentioned,
			Confidence:           a.Confidence,
			ContextSnippet:       a.ContextSnippet,
			Position:             a.Position,
			MatchType:            string(a.MatchType),
			MentionCount:         a.MentionCount,
			StrategyDisagreement: a.StrategyDisagreement,
			CreatedAt:            now,
		}
	}
	return result
}

// summarize fills the check's aggregate fields from its results.
func summarize(check *models.Check, basis string, responded int) {
	total := 0
	sum := 0.0
	for _, r := range check.Results {
		for _, m := range r.Mentions {
			if m.Mentioned {
				total++
				sum += m.Confidence
			}
		}
	}

	providers := len(check.Providers)
	if basis == RateBasisResponded {
		providers = responded
	}

	check.TotalMentions = total
	check.MentionRate = 0
	if denom := len(check.Brands) * providers; denom > 0 {
		check.MentionRate = min(float64(total)/float64(denom), 1)
	}
	check.AvgConfidence = 0
	if total > 0 {
		check.AvgConfidence = sum / float64(total)
	}
}

// fail marks the check failed and returns the fault to hand to the caller.
// It uses a context detached from cancellation so a cancelled request still
// leaves a terminal check behind.
func (s *Service) fail(ctx context.Context, check *models.Check, started time.Time, reason string, cause error) error {
	ctx = context.WithoutCancel(ctx)
	msg := reason
	if cause != nil {
		msg = fmt.Sprintf("%s: %v", reason, cause)
	}

	if err := s.store.UpdateCheckStatus(ctx, check.ID, models.CheckStatusFailed, store.WithErrorMessage(msg)); err != nil {
		slog.Error("marking check failed", "check_id", check.ID, "error", err)
	}
	completedAt := s.now()
	check.Status = models.CheckStatusFailed
	check.ErrorMessage = &msg
	check.CompletedAt = &completedAt

	s.setStatus(ctx, check.ID, models.CheckStatusFailed)
	s.metrics.ObserveCheck(models.CheckStatusFailed, time.Since(started))
	slog.Error("check failed", "check_id", check.ID, "reason", msg)

	return &FaultError{CheckID: check.ID, Reason: reason, Err: cause}
}

func (s *Service) setStatus(ctx context.Context, id uuid.UUID, status string) {
	if s.cache == nil {
		return
	}
	if err := s.cache.SetCheckStatus(ctx, id, status, statusTTL); err != nil {
		slog.Warn("caching check status", "check_id", id, "error", err)
	}
}

func (s *Service) invalidateAnalytics(ctx context.Context, projectID uuid.UUID) {
	if s.cache == nil {
		return
	}
	if err := s.cache.DeletePrefix(ctx, cache.AnalyticsPrefix(projectID)); err != nil {
		slog.Warn("invalidating analytics cache", "project_id", projectID, "error", err)
	}
}

// Status returns a check's lifecycle status, from cache when possible.
func (s *Service) Status(ctx context.Context, id uuid.UUID) (string, error) {
	if s.cache != nil {
		if status, found, err := s.cache.GetCheckStatus(ctx, id); err == nil && found {
			return status, nil
		}
	}
	check, err := s.store.GetCheck(ctx, id)
	if err != nil {
		return "", err
	}
	s.setStatus(ctx, id, check.Status)
	return check.Status, nil
}

func (s *Service) validate(req Request) (*plan, error) {
	p := &plan{
		prompt: strings.TrimSpace(req.Prompt),
		mode:   req.Mode,
		params: s.opts.Params,
	}

	if p.prompt == "" {
		return nil, validationErr("prompt is required")
	}
	if n := utf8.RuneCountInString(p.prompt); n > MaxPromptRunes {
		return nil, validationErr("prompt must be at most %d characters, got %d", MaxPromptRunes, n)
	}

	seen := make(map[string]bool)
	for _, b := range req.Brands {
		b = strings.TrimSpace(b)
		if b == "" {
			return nil, validationErr("brands must not contain empty names")
		}
		if utf8.RuneCountInString(b) > MaxBrandRunes {
			return nil, validationErr("brand %q exceeds %d characters", b, MaxBrandRunes)
		}
		key := strings.ToLower(b)
		if seen[key] {
			continue
		}
		seen[key] = true
		p.brands = append(p.brands, b)
	}
	if len(p.brands) == 0 {
		return nil, validationErr("at least one brand is required")
	}
	if len(p.brands) > MaxBrands {
		return nil, validationErr("at most %d brands are allowed, got %d", MaxBrands, len(p.brands))
	}

	seen = make(map[string]bool)
	for _, name := range req.Providers {
		canonical, ok := ai.Canonical(name)
		if !ok {
			return nil, validationErr("unknown provider %q: must be one of %s",
				name, strings.Join(ai.KnownProviders(), ", "))
		}
		if seen[canonical] {
			continue
		}
		seen[canonical] = true
		p.providers = append(p.providers, canonical)
	}
	if len(p.providers) == 0 {
		return nil, validationErr("at least one provider is required")
	}
	if len(p.providers) > MaxProviders {
		return nil, validationErr("at most %d providers are allowed, got %d", MaxProviders, len(p.providers))
	}

	if p.mode == "" {
		p.mode = s.opts.Mode
	}
	if p.mode != models.ModeParallel && p.mode != models.ModeSequential {
		return nil, validationErr("mode must be parallel or sequential, got %q", p.mode)
	}

	strategyName := req.Strategy
	if strategyName == "" {
		strategyName = s.opts.Strategy
	}
	strategy, err := analysis.LookupStrategy(strategyName)
	if err != nil {
		return nil, validationErr("%v", err)
	}
	p.strategy = strategy

	if req.MaxTokens != nil {
		p.params.MaxTokens = *req.MaxTokens
	}
	if req.Temperature != nil {
		p.params.Temperature = *req.Temperature
	}
	if err := ai.ValidateParams(p.prompt, p.params); err != nil {
		return nil, validationErr("%v", err)
	}

	return p, nil
}
