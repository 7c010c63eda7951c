package analysis

import (
	"strings"
	"unicode"
)

// knownVariants lists alternate spellings for frequently tracked brands, keyed by folded name.
var knownVariants = map[string][]string{
	"notion":        {"notion.so", "notion app"},
	"obsidian":      {"obsidian.md", "黑曜石"},
	"roam research": {"roamresearch", "roamresearch.com"},
	"confluence":    {"atlassian confluence"},
	"logseq":        {"logseq app"},
	"remnote":       {"rem note"},
	"evernote":      {"印象笔记"},
	"onenote":       {"one note", "microsoft onenote"},
}

// Variants returns the folded alternate spellings tried after an exact match fails.
// The list is deterministic: table entries first, then generated spacing variants
// and the initialism, with duplicates and the brand itself removed.
func Variants(brand string) []string {
	folded := Fold(brand)
	if folded == "" {
		return nil
	}

	seen := map[string]bool{folded: true}
	var out []string
	add := func(v string) {
		v = Fold(v)
		if v != "" && !seen[v] {
			seen[v] = true
			out = append(out, v)
		}
	}

	for _, v := range knownVariants[folded] {
		add(v)
	}

	words := strings.FieldsFunc(folded, func(r rune) bool {
		return unicode.IsSpace(r) || r == '-' || r == '_'
	})
	if len(words) > 1 {
		add(strings.Join(words, ""))
		add(strings.Join(words, " "))
		add(strings.Join(words, "-"))
	}
	if len(words) >= 3 {
		var initials strings.Builder
		for _, w := range words {
			r := []rune(w)[0]
			if !unicode.IsLetter(r) {
				initials.Reset()
				break
			}
			initials.WriteRune(r)
		}
		add(initials.String())
	}

	return out
}
