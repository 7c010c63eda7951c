package analytics

import (
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/kiranshivaraju/brandlens/pkg/models"
)

const maxTopContexts = 5

type tally struct {
	rows      int
	mentions  int
	confSum   float64
	succeeded int
	latencyMS int64
	checks    map[uuid.UUID]bool
}

func newTally() *tally {
	return &tally{checks: make(map[uuid.UUID]bool)}
}

func (t *tally) add(f models.MentionFact) {
	t.rows++
	t.checks[f.CheckID] = true
	if f.Mentioned {
		t.mentions++
		t.confSum += f.Confidence
	}
	if !f.ProviderFailed {
		t.succeeded++
		t.latencyMS += f.ProcessingTimeMS
	}
}

func (t *tally) rate() float64 {
	if t.rows == 0 {
		return 0
	}
	return float64(t.mentions) / float64(t.rows)
}

func (t *tally) avgConfidence() float64 {
	if t.mentions == 0 {
		return 0
	}
	return t.confSum / float64(t.mentions)
}

// Summarize aggregates the facts of one brand over [from, to). Facts of other
// brands are ignored. The mention rate counts one observation per provider
// result, so it stays within [0, 1].
func Summarize(facts []models.MentionFact, brand string, from, to time.Time) models.BrandStats {
	key := strings.ToLower(strings.TrimSpace(brand))
	total := newTally()
	perProvider := make(map[string]*tally)

	from, to = from.UTC(), to.UTC()
	buckets, index := dayBuckets(from, to)
	bucketChecks := make([]map[uuid.UUID]bool, len(buckets))

	var contexts []string
	seenContext := make(map[string]bool)

	for _, f := range facts {
		if strings.ToLower(f.Brand) != key {
			continue
		}
		total.add(f)

		pt, ok := perProvider[f.Provider]
		if !ok {
			pt = newTally()
			perProvider[f.Provider] = pt
		}
		pt.add(f)

		if i, ok := index[dayKey(f.CheckCreatedAt)]; ok {
			if bucketChecks[i] == nil {
				bucketChecks[i] = make(map[uuid.UUID]bool)
			}
			bucketChecks[i][f.CheckID] = true
			if f.Mentioned {
				buckets[i].Mentions++
			}
		}
	}
	for i, checks := range bucketChecks {
		buckets[i].Checks = len(checks)
	}

	// Most recent first; facts arrive oldest first.
	for i := len(facts) - 1; i >= 0 && len(contexts) < maxTopContexts; i-- {
		f := facts[i]
		if strings.ToLower(f.Brand) != key || !f.Mentioned || f.ContextSnippet == nil {
			continue
		}
		if s := *f.ContextSnippet; !seenContext[s] {
			seenContext[s] = true
			contexts = append(contexts, s)
		}
	}
	if contexts == nil {
		contexts = []string{}
	}

	providers := make(map[string]models.ProviderBreakdown, len(perProvider))
	for name, pt := range perProvider {
		b := models.ProviderBreakdown{
			Checks:        len(pt.checks),
			Mentions:      pt.mentions,
			MentionRate:   pt.rate(),
			AvgConfidence: pt.avgConfidence(),
		}
		if pt.succeeded > 0 {
			b.AvgLatencyMS = float64(pt.latencyMS) / float64(pt.succeeded)
		}
		if pt.rows > 0 {
			b.SuccessRate = float64(pt.succeeded) / float64(pt.rows)
		}
		providers[name] = b
	}

	return models.BrandStats{
		Brand:         strings.TrimSpace(brand),
		From:          from,
		To:            to,
		TotalChecks:   len(total.checks),
		TotalMentions: total.mentions,
		MentionRate:   total.rate(),
		AvgConfidence: total.avgConfidence(),
		Providers:     providers,
		Trend:         buckets,
		TopContexts:   contexts,
	}
}

// Rank orders brand stats by mention rate, then total mentions, both
// descending, then by brand name ascending, and numbers them from 1.
func Rank(stats []models.BrandStats) []models.BrandComparison {
	out := make([]models.BrandComparison, len(stats))
	for i, s := range stats {
		out[i] = models.BrandComparison{
			Brand:         s.Brand,
			TotalChecks:   s.TotalChecks,
			TotalMentions: s.TotalMentions,
			MentionRate:   s.MentionRate,
			AvgConfidence: s.AvgConfidence,
		}
	}

	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.MentionRate != b.MentionRate {
			return a.MentionRate > b.MentionRate
		}
		if a.TotalMentions != b.TotalMentions {
			return a.TotalMentions > b.TotalMentions
		}
		if la, lb := strings.ToLower(a.Brand), strings.ToLower(b.Brand); la != lb {
			return la < lb
		}
		return a.Brand < b.Brand
	})
	for i := range out {
		out[i].Rank = i + 1
	}
	return out
}

func dayKey(t time.Time) string {
	return t.UTC().Format(time.DateOnly)
}

// dayBuckets returns one zeroed bucket per UTC calendar day touched by
// [from, to), plus an index from day key to bucket.
func dayBuckets(from, to time.Time) ([]models.TrendBucket, map[string]int) {
	buckets := []models.TrendBucket{}
	index := make(map[string]int)
	if !to.After(from) {
		return buckets, index
	}

	day := time.Date(from.Year(), from.Month(), from.Day(), 0, 0, 0, 0, time.UTC)
	for day.Before(to) {
		key := dayKey(day)
		index[key] = len(buckets)
		buckets = append(buckets, models.TrendBucket{Date: key})
		day = day.AddDate(0, 0, 1)
	}
	return buckets, index
}
