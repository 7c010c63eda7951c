package analysis

import (
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

// Text is a response prepared for lexical matching. Original is the response
// as given; Folded holds the matching form of each of its runes. Offsets
// everywhere in this package are rune indexes into both.
type Text struct {
	Original []rune
	Folded   []rune
	tokens   []token
}

// token is a half-open rune span [start, end).
type token struct {
	start, end int
}

// NewText builds the folded form and token index of s. Snippets are cut from
// Original, so they are always substrings of s.
func NewText(s string) *Text {
	original := []rune(s)
	folded := make([]rune, len(original))
	for i, r := range original {
		folded[i] = foldRune(r)
	}
	t := &Text{Original: original, Folded: folded}
	t.tokens = tokenize(folded)
	return t
}

// Fold normalizes a search term the same way NewText normalizes a response.
func Fold(s string) string {
	s = strings.TrimSpace(s)
	var sb strings.Builder
	sb.Grow(len(s))
	for _, r := range s {
		sb.WriteRune(foldRune(r))
	}
	return sb.String()
}

// foldRune maps one rune to its lowercase NFKC form. Runes whose NFKC form is
// not a single rune (ligatures, circled numbers) are only lowercased, which
// keeps Folded aligned with Original.
func foldRune(r rune) rune {
	switch r {
	case '’', '‘', 'ʼ':
		return '\''
	}
	if nr := []rune(norm.NFKC.String(string(r))); len(nr) == 1 {
		r = nr[0]
	}
	return unicode.ToLower(r)
}

// findAll returns the start offsets of every occurrence of term in the folded text.
func (t *Text) findAll(term []rune) []int {
	if len(term) == 0 || len(term) > len(t.Folded) {
		return nil
	}
	var out []int
	for i := 0; i+len(term) <= len(t.Folded); i++ {
		if runesEqual(t.Folded[i:i+len(term)], term) {
			out = append(out, i)
		}
	}
	return out
}

// wholeWord reports whether [start, end) has no ASCII letter or digit on either side.
// Boundaries against non-ASCII runes always pass, so "推荐Notion和" counts as whole-word.
func (t *Text) wholeWord(start, end int) bool {
	if start > 0 && isASCIIWordRune(t.Folded[start-1]) && isASCIIWordRune(t.Folded[start]) {
		return false
	}
	if end < len(t.Folded) && isASCIIWordRune(t.Folded[end]) && isASCIIWordRune(t.Folded[end-1]) {
		return false
	}
	return true
}

// leftBoundary is wholeWord without the right-hand check, used for cue stems.
func (t *Text) leftBoundary(start int) bool {
	return start == 0 || !isASCIIWordRune(t.Folded[start-1]) || !isASCIIWordRune(t.Folded[start])
}

// tokenIndex returns the index of the token containing offset, or of the
// nearest token that starts after it.
func (t *Text) tokenIndex(offset int) int {
	for i, tok := range t.tokens {
		if offset < tok.end {
			return i
		}
	}
	return len(t.tokens) - 1
}

// window returns the rune span covering n tokens either side of [start, end).
func (t *Text) window(start, end, n int) (int, int) {
	if len(t.tokens) == 0 {
		return 0, len(t.Folded)
	}
	first := t.tokenIndex(start) - n
	last := t.tokenIndex(end-1) + n
	if first < 0 {
		first = 0
	}
	if last >= len(t.tokens) {
		last = len(t.tokens) - 1
	}
	return t.tokens[first].start, t.tokens[last].end
}

// tokenize splits folded text into words. Runs of letters and digits form one
// token (with inner apostrophes, so "don't" stays whole); each Han, Kana or
// Hangul rune is a token on its own.
func tokenize(folded []rune) []token {
	var out []token
	start := -1
	flush := func(i int) {
		if start >= 0 {
			out = append(out, token{start: start, end: i})
			start = -1
		}
	}
	for i, r := range folded {
		switch {
		case isIdeograph(r):
			flush(i)
			out = append(out, token{start: i, end: i + 1})
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			if start < 0 {
				start = i
			}
		case r == '\'' && start >= 0 && i+1 < len(folded) && unicode.IsLetter(folded[i+1]):
			// inner apostrophe, the token continues
		default:
			flush(i)
		}
	}
	flush(len(folded))
	return out
}

func isIdeograph(r rune) bool {
	return unicode.In(r, unicode.Han, unicode.Hiragana, unicode.Katakana, unicode.Hangul)
}

func isASCIIWordRune(r rune) bool {
	return r < unicode.MaxASCII && (r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z' || r >= '0' && r <= '9')
}

func runesEqual(a, b []rune) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
