// Package analysis detects brand mentions in LLM response text. Everything
// here is pure: no I/O, no clocks, no randomness.
package analysis

import (
	"sort"
)

// MentionResult is the analysis outcome for one brand in one response.
type MentionResult struct {
	Brand                string    `json:"brand"`
	Mentioned            bool      `json:"mentioned"`
	Confidence           float64   `json:"confidence"`
	ContextSnippet       *string   `json:"context_snippet"`
	Position             *int      `json:"position"`
	MatchType            MatchType `json:"match_type"`
	MentionCount         int       `json:"mention_count"`
	StrategyDisagreement bool      `json:"strategy_disagreement,omitempty"`
}

// Analyzer applies one MatchStrategy to response texts.
type Analyzer struct {
	strategy MatchStrategy
}

func NewAnalyzer(strategy MatchStrategy) *Analyzer {
	if strategy == nil {
		strategy = Improved{}
	}
	return &Analyzer{strategy: strategy}
}

func (a *Analyzer) Strategy() string { return a.strategy.Name() }

// Analyze returns one MentionResult per brand, in input order.
// Returns empty slice for empty brands (never nil).
func (a *Analyzer) Analyze(text string, brands []string) []MentionResult {
	results := make([]MentionResult, len(brands))
	if len(brands) == 0 {
		return results
	}

	t := NewText(text)
	starts := make([]int, len(brands))
	var mentioned []int

	for i, brand := range brands {
		span, ok := a.strategy.Match(t, brand)
		results[i] = MentionResult{
			Brand:                brand,
			MatchType:            MatchNone,
			StrategyDisagreement: span.Disagreement,
		}
		if !ok {
			continue
		}

		snippet := Snippet(t, span)
		results[i].Mentioned = true
		results[i].Confidence = Score(t, span)
		results[i].ContextSnippet = &snippet
		results[i].MatchType = span.Type
		results[i].MentionCount = span.Count
		starts[i] = span.Start
		mentioned = append(mentioned, i)
	}

	// Stable sort keeps input order for brands matched at the same offset.
	sort.SliceStable(mentioned, func(x, y int) bool {
		return starts[mentioned[x]] < starts[mentioned[y]]
	})
	for rank, idx := range mentioned {
		pos := rank + 1
		results[idx].Position = &pos
	}

	return results
}

// Analyze runs the named strategy once. Unknown names fall back to improved.
func Analyze(text string, brands []string, strategy string) []MentionResult {
	s, err := LookupStrategy(strategy)
	if err != nil {
		s = Improved{}
	}
	return NewAnalyzer(s).Analyze(text, brands)
}
