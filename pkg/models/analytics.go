package models

import (
	"time"

	"github.com/google/uuid"
)

// MentionFact is one mention row joined with its result and check, the unit
// the analytics aggregator scans.
type MentionFact struct {
	CheckID          uuid.UUID
	CheckCreatedAt   time.Time
	Provider         string
	ProviderFailed   bool
	ProcessingTimeMS int64
	Brand            string
	Mentioned        bool
	Confidence       float64
	ContextSnippet   *string
}

// BrandStats summarizes one brand's visibility over a time window.
type BrandStats struct {
	ProjectID     uuid.UUID                    `json:"project_id"`
	Brand         string                       `json:"brand"`
	Timeframe     string                       `json:"timeframe"`
	From          time.Time                    `json:"from"`
	To            time.Time                    `json:"to"`
	TotalChecks   int                          `json:"total_checks"`
	TotalMentions int                          `json:"total_mentions"`
	MentionRate   float64                      `json:"mention_rate"`
	AvgConfidence float64                      `json:"avg_confidence"`
	Providers     map[string]ProviderBreakdown `json:"providers"`
	Trend         []TrendBucket                `json:"trend"`
	TopContexts   []string                     `json:"top_contexts"`
}

// ProviderBreakdown is the per-provider slice of BrandStats.
type ProviderBreakdown struct {
	Checks        int     `json:"checks"`
	Mentions      int     `json:"mentions"`
	MentionRate   float64 `json:"mention_rate"`
	AvgConfidence float64 `json:"avg_confidence"`
	AvgLatencyMS  float64 `json:"avg_latency_ms"`
	SuccessRate   float64 `json:"success_rate"`
}

// TrendBucket aggregates one calendar day (UTC).
type TrendBucket struct {
	Date     string `json:"date"`
	Checks   int    `json:"checks"`
	Mentions int    `json:"mentions"`
}

// BrandComparison is one ranked row of a multi-brand comparison.
type BrandComparison struct {
	Rank          int     `json:"rank"`
	Brand         string  `json:"brand"`
	TotalChecks   int     `json:"total_checks"`
	TotalMentions int     `json:"total_mentions"`
	MentionRate   float64 `json:"mention_rate"`
	AvgConfidence float64 `json:"avg_confidence"`
}
