package analysis

import (
	"fmt"
	"strings"
)

// MatchType describes how a brand was found.
type MatchType string

const (
	MatchExact   MatchType = "exact"
	MatchVariant MatchType = "variant"
	MatchNone    MatchType = "none"
)

// Strategy names accepted by LookupStrategy.
const (
	StrategySimple   = "simple"
	StrategyImproved = "improved"
	StrategyHybrid   = "hybrid"
)

// MatchSpan is the first occurrence a strategy settled on, as rune offsets
// [Start, End) into the prepared Text.
type MatchSpan struct {
	Start     int
	End       int
	Term      string
	Type      MatchType
	WholeWord bool
	Count     int

	// Disagreement is set by the hybrid strategy when simple and improved
	// disagree on whether the brand is present. It is meaningful even when
	// no span was found.
	Disagreement bool
}

// MatchStrategy locates a brand in a prepared text.
type MatchStrategy interface {
	Name() string
	Match(t *Text, brand string) (MatchSpan, bool)
}

// LookupStrategy returns the strategy registered under name. An empty name selects improved.
func LookupStrategy(name string) (MatchStrategy, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case StrategySimple:
		return Simple{}, nil
	case "", StrategyImproved:
		return Improved{}, nil
	case StrategyHybrid:
		return Hybrid{}, nil
	default:
		return nil, fmt.Errorf("unknown match strategy %q: must be one of simple, improved, hybrid", name)
	}
}

// Simple is a case-insensitive substring search.
type Simple struct{}

func (Simple) Name() string { return StrategySimple }

func (Simple) Match(t *Text, brand string) (MatchSpan, bool) {
	term := []rune(Fold(brand))
	hits := t.findAll(term)
	if len(hits) == 0 {
		return MatchSpan{Type: MatchNone}, false
	}
	start := hits[0]
	end := start + len(term)
	return MatchSpan{
		Start:     start,
		End:       end,
		Term:      string(term),
		Type:      MatchExact,
		WholeWord: t.wholeWord(start, end),
		Count:     len(hits),
	}, true
}

// Improved only accepts whole-word occurrences and falls back to brand variants.
type Improved struct{}

func (Improved) Name() string { return StrategyImproved }

func (Improved) Match(t *Text, brand string) (MatchSpan, bool) {
	if span, ok := firstWholeWord(t, Fold(brand), MatchExact); ok {
		return span, true
	}

	var best MatchSpan
	found := false
	for _, v := range Variants(brand) {
		span, ok := firstWholeWord(t, v, MatchVariant)
		if !ok {
			continue
		}
		// Earliest occurrence wins; at the same offset the longer spelling wins.
		if !found || span.Start < best.Start || (span.Start == best.Start && span.End > best.End) {
			best = span
			found = true
		}
	}
	if !found {
		return MatchSpan{Type: MatchNone}, false
	}
	return best, true
}

func firstWholeWord(t *Text, term string, typ MatchType) (MatchSpan, bool) {
	runes := []rune(term)
	var span MatchSpan
	count := 0
	for _, start := range t.findAll(runes) {
		end := start + len(runes)
		if !t.wholeWord(start, end) {
			continue
		}
		if count == 0 {
			span = MatchSpan{Start: start, End: end, Term: term, Type: typ, WholeWord: true}
		}
		count++
	}
	if count == 0 {
		return MatchSpan{}, false
	}
	span.Count = count
	return span, true
}

// Hybrid reports the improved result and flags when simple would have decided otherwise.
type Hybrid struct{}

func (Hybrid) Name() string { return StrategyHybrid }

func (Hybrid) Match(t *Text, brand string) (MatchSpan, bool) {
	_, simpleOK := Simple{}.Match(t, brand)
	span, ok := Improved{}.Match(t, brand)
	span.Disagreement = simpleOK != ok
	return span, ok
}
