package handler

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/kiranshivaraju/brandlens/internal/detection"
	"github.com/kiranshivaraju/brandlens/internal/store"
	"github.com/kiranshivaraju/brandlens/pkg/models"
)

// --- fake detector ---

type fakeDetector struct {
	got   *detection.Request
	check *models.Check
	err   error
}

func (f *fakeDetector) Execute(_ context.Context, req detection.Request) (*models.Check, error) {
	f.got = &req
	if f.err != nil {
		return nil, f.err
	}
	if f.check != nil {
		return f.check, nil
	}
	return &models.Check{
		ID:        uuid.New(),
		ProjectID: req.ProjectID,
		UserID:    req.UserID,
		Prompt:    req.Prompt,
		Brands:    req.Brands,
		Providers: req.Providers,
		Status:    models.CheckStatusCompleted,
	}, nil
}

// --- fake store: templates, checks, keys ---

type fakeStore struct {
	mu        sync.Mutex
	templates map[uuid.UUID]*models.PromptTemplate
	checks    map[uuid.UUID]*models.Check
	keys      map[uuid.UUID]*models.APIKey

	listFilter store.CheckFilter
	listTotal  int
	err        error
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		templates: make(map[uuid.UUID]*models.PromptTemplate),
		checks:    make(map[uuid.UUID]*models.Check),
		keys:      make(map[uuid.UUID]*models.APIKey),
	}
}

func (f *fakeStore) SaveTemplate(_ context.Context, tpl *models.PromptTemplate) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	for _, t := range f.templates {
		if t.OwnerID == tpl.OwnerID && t.Name == tpl.Name {
			return store.ErrDuplicateKey
		}
	}
	cp := *tpl
	f.templates[tpl.ID] = &cp
	return nil
}

func (f *fakeStore) GetTemplates(_ context.Context, category string) ([]*models.PromptTemplate, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	var out []*models.PromptTemplate
	for _, t := range f.templates {
		if category == "" || t.Category == category {
			out = append(out, t)
		}
	}
	return out, nil
}

func (f *fakeStore) GetTemplate(_ context.Context, id uuid.UUID) (*models.PromptTemplate, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	t, ok := f.templates[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return t, nil
}

func (f *fakeStore) IncrementTemplateUsage(_ context.Context, id uuid.UUID) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	t, ok := f.templates[id]
	if !ok {
		return 0, store.ErrNotFound
	}
	t.UsageCount++
	return t.UsageCount, nil
}

func (f *fakeStore) addTemplate(owner uuid.UUID, name, category, text string) *models.PromptTemplate {
	tpl := &models.PromptTemplate{
		ID:        uuid.New(),
		OwnerID:   owner,
		Name:      name,
		Category:  category,
		Template:  text,
		Variables: map[string]string{},
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
	}
	f.templates[tpl.ID] = tpl
	return tpl
}

func (f *fakeStore) GetCheck(_ context.Context, id uuid.UUID) (*models.Check, error) {
	if f.err != nil {
		return nil, f.err
	}
	c, ok := f.checks[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return c, nil
}

func (f *fakeStore) ListChecks(_ context.Context, filter store.CheckFilter) ([]*models.Check, int, error) {
	f.listFilter = filter
	if f.err != nil {
		return nil, 0, f.err
	}
	var out []*models.Check
	for _, c := range f.checks {
		if c.ProjectID == filter.ProjectID {
			out = append(out, c)
		}
	}
	total := f.listTotal
	if total == 0 {
		total = len(out)
	}
	return out, total, nil
}

func (f *fakeStore) CreateAPIKey(_ context.Context, key *models.APIKey) error {
	if f.err != nil {
		return f.err
	}
	f.keys[key.ID] = key
	return nil
}

func (f *fakeStore) ListAPIKeys(_ context.Context, userID uuid.UUID) ([]*models.APIKey, error) {
	if f.err != nil {
		return nil, f.err
	}
	var out []*models.APIKey
	for _, k := range f.keys {
		if k.UserID == userID && k.DeletedAt == nil {
			out = append(out, k)
		}
	}
	return out, nil
}

func (f *fakeStore) RevokeAPIKey(_ context.Context, id uuid.UUID, userID uuid.UUID) error {
	k, ok := f.keys[id]
	if !ok || k.UserID != userID || k.DeletedAt != nil {
		return store.ErrNotFound
	}
	now := time.Now()
	k.DeletedAt = &now
	return nil
}

// --- fake status reader ---

type fakeStatus struct {
	status string
	err    error
}

func (f *fakeStatus) Status(_ context.Context, _ uuid.UUID) (string, error) {
	return f.status, f.err
}

// --- fake analytics ---

type fakeAnalytics struct {
	gotBrands []string
	gotTF     string
	err       error
}

func (f *fakeAnalytics) BrandStats(_ context.Context, projectID uuid.UUID, brand, timeframe string) (*models.BrandStats, error) {
	f.gotBrands = []string{brand}
	f.gotTF = timeframe
	if f.err != nil {
		return nil, f.err
	}
	return &models.BrandStats{
		ProjectID:     projectID,
		Brand:         brand,
		Timeframe:     "30d",
		TotalChecks:   4,
		TotalMentions: 2,
		MentionRate:   0.5,
		Providers:     map[string]models.ProviderBreakdown{},
		Trend:         []models.TrendBucket{},
		TopContexts:   []string{},
	}, nil
}

func (f *fakeAnalytics) CompareBrands(_ context.Context, _ uuid.UUID, brands []string, timeframe string) ([]models.BrandComparison, error) {
	f.gotBrands = brands
	f.gotTF = timeframe
	if f.err != nil {
		return nil, f.err
	}
	out := make([]models.BrandComparison, len(brands))
	for i, b := range brands {
		out[i] = models.BrandComparison{Rank: i + 1, Brand: strings.TrimSpace(b)}
	}
	return out, nil
}

var (
	_ Detector      = (*fakeDetector)(nil)
	_ TemplateStore = (*fakeStore)(nil)
	_ CheckReader   = (*fakeStore)(nil)
	_ KeyStore      = (*fakeStore)(nil)
	_ StatusReader  = (*fakeStatus)(nil)
	_ Analytics     = (*fakeAnalytics)(nil)
)
