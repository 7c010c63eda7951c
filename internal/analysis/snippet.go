package analysis

import "strings"

const snippetRadius = 40

// Snippet returns the text around span: up to snippetRadius runes either side,
// cut back to the enclosing sentence when a sentence boundary falls inside that range.
func Snippet(t *Text, span MatchSpan) string {
	n := len(t.Original)
	start := span.Start - snippetRadius
	if start < 0 {
		start = 0
	}
	end := span.End + snippetRadius
	if end > n {
		end = n
	}

	for i := span.Start - 1; i >= start; i-- {
		if isSentenceEnd(t.Original, i) {
			start = i + 1
			break
		}
	}
	for i := span.End; i < end; i++ {
		if isSentenceEnd(t.Original, i) {
			end = i + 1
			break
		}
	}

	return strings.TrimSpace(string(t.Original[start:end]))
}

// isSentenceEnd treats CJK terminators and newlines as boundaries everywhere,
// and ASCII terminators only when followed by whitespace or the end of text,
// so "obsidian.md" and "3.5" are not split.
func isSentenceEnd(rs []rune, i int) bool {
	switch rs[i] {
	case '。', '！', '？', '\n':
		return true
	case '.', '!', '?':
		return i+1 == len(rs) || rs[i+1] == ' ' || rs[i+1] == '\t' || rs[i+1] == '\n' || rs[i+1] == '\r'
	}
	return false
}
