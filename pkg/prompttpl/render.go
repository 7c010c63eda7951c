// Package prompttpl renders prompt templates with {variable} placeholders.
package prompttpl

import (
	"errors"
	"fmt"
	"regexp"
	"sort"
	"strings"
)

var ErrMissingVariable = errors.New("missing template variable")
var ErrEmptyTemplate = errors.New("template is empty")

var placeholder = regexp.MustCompile(`\{([A-Za-z_][A-Za-z0-9_]*)\}`)

// Variables returns the placeholder names in tpl, in order of first use.
func Variables(tpl string) []string {
	seen := make(map[string]bool)
	names := []string{}
	for _, m := range placeholder.FindAllStringSubmatch(tpl, -1) {
		if !seen[m[1]] {
			seen[m[1]] = true
			names = append(names, m[1])
		}
	}
	return names
}

// Render substitutes every placeholder in tpl. All placeholders must be
// supplied; extra values are ignored. Braces that do not form a valid
// placeholder are left untouched.
func Render(tpl string, values map[string]string) (string, error) {
	if strings.TrimSpace(tpl) == "" {
		return "", ErrEmptyTemplate
	}

	var missing []string
	for _, name := range Variables(tpl) {
		if _, ok := values[name]; !ok {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		return "", fmt.Errorf("%w: %s", ErrMissingVariable, strings.Join(missing, ", "))
	}

	return placeholder.ReplaceAllStringFunc(tpl, func(m string) string {
		return values[m[1:len(m)-1]]
	}), nil
}

// Undeclared returns placeholders used in tpl that are absent from declared,
// sorted by name.
func Undeclared(tpl string, declared map[string]string) []string {
	var out []string
	for _, name := range Variables(tpl) {
		if _, ok := declared[name]; !ok {
			out = append(out, name)
		}
	}
	sort.Strings(out)
	return out
}
