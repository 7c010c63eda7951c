package analysis

import "math"

const (
	baseConfidence      = 0.6
	wholeWordBonus      = 0.2
	positiveBonus       = 0.15
	negationPenalty     = 0.25
	confidenceFloor     = 0.05
	cueWindowWords      = 8
	directNegationWords = 3
)

// positiveCues and negationCues are folded stems; they match at a word start.
var positiveCues = []string{
	"recommend", "best", "great", "excellent", "ideal", "suitable", "popular", "love", "favorite", "favourite",
	"推荐", "建议", "优秀", "适合", "好用", "首选", "不错",
}

var negationCues = []string{
	"not recommend", "don't recommend", "do not recommend", "wouldn't recommend", "would not recommend",
	"can't recommend", "cannot recommend", "avoid", "don't use", "do not use", "stay away from", "not suitable",
	"不推荐", "不建议", "不适合", "避免", "别用", "不要用",
}

// Score computes the confidence of a found span. Cues are looked up in a window
// of cueWindowWords words either side of the match. A negation cue ending within
// directNegationWords words before the match negates it directly: the positive
// bonus is withheld and the penalty applies twice.
func Score(t *Text, span MatchSpan) float64 {
	score := baseConfidence
	if span.WholeWord {
		score += wholeWordBonus
	}

	winStart, winEnd := t.window(span.Start, span.End, cueWindowWords)
	positive := containsCue(t, positiveCues, winStart, winEnd, span)
	negated := containsCue(t, negationCues, winStart, winEnd, span)

	direct := false
	if negated {
		directStart, _ := t.window(span.Start, span.End, directNegationWords)
		direct = cueEndsIn(t, negationCues, directStart, span.Start)
	}

	switch {
	case direct:
		score -= 2 * negationPenalty
	case positive && negated:
		score += positiveBonus - negationPenalty
	case positive:
		score += positiveBonus
	case negated:
		score -= negationPenalty
	}

	score = math.Max(0, math.Min(1, score))
	score = math.Max(score, confidenceFloor)
	return math.Round(score*1e4) / 1e4
}

// containsCue reports whether any cue occurs inside [from, to) without overlapping the match itself.
func containsCue(t *Text, cues []string, from, to int, span MatchSpan) bool {
	for _, cue := range cues {
		runes := []rune(cue)
		for _, at := range t.findAll(runes) {
			end := at + len(runes)
			if at < from || end > to || !t.leftBoundary(at) {
				continue
			}
			if at < span.End && end > span.Start {
				continue
			}
			return true
		}
	}
	return false
}

// cueEndsIn reports whether a cue ends inside (from, to], i.e. directly before to.
func cueEndsIn(t *Text, cues []string, from, to int) bool {
	for _, cue := range cues {
		runes := []rune(cue)
		for _, at := range t.findAll(runes) {
			end := at + len(runes)
			if at >= from && end <= to && t.leftBoundary(at) {
				return true
			}
		}
	}
	return false
}
