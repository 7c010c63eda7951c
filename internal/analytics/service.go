// Package analytics computes brand visibility statistics from persisted
// mentions.
package analytics

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/kiranshivaraju/brandlens/internal/cache"
	"github.com/kiranshivaraju/brandlens/internal/store"
	"github.com/kiranshivaraju/brandlens/pkg/models"
)

const (
	DefaultTimeframe = "30d"
	MaxTimeframeDays = 365
	MaxCompareBrands = 10
)

var ErrInvalidInput = errors.New("invalid analytics input")

var timeframePattern = regexp.MustCompile(`^([0-9]{1,3})d$`)

// ParseTimeframe accepts "<N>d" with 1 <= N <= 365. Empty means 30d.
func ParseTimeframe(tf string) (string, int, error) {
	tf = strings.ToLower(strings.TrimSpace(tf))
	if tf == "" {
		tf = DefaultTimeframe
	}
	m := timeframePattern.FindStringSubmatch(tf)
	if m == nil {
		return "", 0, fmt.Errorf("%w: timeframe must look like 7d, 30d or 90d, got %q", ErrInvalidInput, tf)
	}
	days, _ := strconv.Atoi(m[1])
	if days < 1 || days > MaxTimeframeDays {
		return "", 0, fmt.Errorf("%w: timeframe must be between 1d and %dd", ErrInvalidInput, MaxTimeframeDays)
	}
	return fmt.Sprintf("%dd", days), days, nil
}

// Service serves brand statistics, caching computed payloads.
type Service struct {
	store store.Store
	cache cache.Cache
	ttl   time.Duration
	now   func() time.Time
}

// NewService creates a new Service. ca may be nil to disable caching.
func NewService(st store.Store, ca cache.Cache, ttl time.Duration) *Service {
	return &Service{
		store: st,
		cache: ca,
		ttl:   ttl,
		now:   func() time.Time { return time.Now().UTC() },
	}
}

// BrandStats summarizes one brand over the trailing timeframe.
func (s *Service) BrandStats(ctx context.Context, projectID uuid.UUID, brand, timeframe string) (*models.BrandStats, error) {
	brand = strings.TrimSpace(brand)
	if brand == "" {
		return nil, fmt.Errorf("%w: brand is required", ErrInvalidInput)
	}
	tf, days, err := ParseTimeframe(timeframe)
	if err != nil {
		return nil, err
	}

	key := cache.BrandStatsKey(projectID, brand, tf)
	var stats models.BrandStats
	if s.cached(ctx, key, &stats) {
		return &stats, nil
	}

	from, to := s.window(days)
	facts, err := s.store.ListMentionFacts(ctx, store.MentionFactFilter{
		ProjectID: projectID,
		Brands:    []string{brand},
		From:      from,
		To:        to,
	})
	if err != nil {
		return nil, fmt.Errorf("list mention facts: %w", err)
	}

	stats = Summarize(facts, brand, from, to)
	stats.ProjectID = projectID
	stats.Timeframe = tf
	s.remember(ctx, key, stats)
	return &stats, nil
}

// CompareBrands ranks brands by visibility over the trailing timeframe.
func (s *Service) CompareBrands(ctx context.Context, projectID uuid.UUID, brands []string, timeframe string) ([]models.BrandComparison, error) {
	var unique []string
	seen := make(map[string]bool)
	for _, b := range brands {
		b = strings.TrimSpace(b)
		if b == "" || seen[strings.ToLower(b)] {
			continue
		}
		seen[strings.ToLower(b)] = true
		unique = append(unique, b)
	}
	if len(unique) == 0 {
		return nil, fmt.Errorf("%w: at least one brand is required", ErrInvalidInput)
	}
	if len(unique) > MaxCompareBrands {
		return nil, fmt.Errorf("%w: at most %d brands can be compared", ErrInvalidInput, MaxCompareBrands)
	}
	tf, days, err := ParseTimeframe(timeframe)
	if err != nil {
		return nil, err
	}

	key := cache.CompareKey(projectID, unique, tf)
	var ranked []models.BrandComparison
	if s.cached(ctx, key, &ranked) {
		return ranked, nil
	}

	from, to := s.window(days)
	facts, err := s.store.ListMentionFacts(ctx, store.MentionFactFilter{
		ProjectID: projectID,
		Brands:    unique,
		From:      from,
		To:        to,
	})
	if err != nil {
		return nil, fmt.Errorf("list mention facts: %w", err)
	}

	stats := make([]models.BrandStats, len(unique))
	for i, b := range unique {
		stats[i] = Summarize(facts, b, from, to)
	}
	ranked = Rank(stats)
	s.remember(ctx, key, ranked)
	return ranked, nil
}

func (s *Service) window(days int) (time.Time, time.Time) {
	to := s.now()
	return to.AddDate(0, 0, -days), to
}

func (s *Service) cached(ctx context.Context, key string, dst any) bool {
	if s.cache == nil {
		return false
	}
	data, found, err := s.cache.Get(ctx, key)
	if err != nil {
		slog.Warn("analytics cache read failed", "key", key, "error", err)
		return false
	}
	if !found {
		return false
	}
	if err := json.Unmarshal(data, dst); err != nil {
		slog.Warn("analytics cache entry corrupt", "key", key, "error", err)
		return false
	}
	return true
}

func (s *Service) remember(ctx context.Context, key string, v any) {
	if s.cache == nil || s.ttl <= 0 {
		return
	}
	data, err := json.Marshal(v)
	if err != nil {
		return
	}
	if err := s.cache.Set(ctx, key, data, s.ttl); err != nil {
		slog.Warn("analytics cache write failed", "key", key, "error", err)
	}
}
