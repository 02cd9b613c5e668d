// Package strings parses list-valued settings such as broker addresses.
package strings

import "strings"

// SplitList splits raw on commas and returns the non-empty, trimmed entries
// in first-seen order without repeats.
func SplitList(raw string) []string {
	return Unique(strings.Split(raw, ","), strings.TrimSpace)
}

// Unique applies normalize to every value and keeps the first occurrence of
// each non-empty result. A nil normalize keeps values as they are.
func Unique(values []string, normalize func(string) string) []string {
	out := make([]string, 0, len(values))
	seen := make(map[string]struct{}, len(values))
	for _, v := range values {
		if normalize != nil {
			v = normalize(v)
		}
		if v == "" {
			continue
		}
		if _, dup := seen[v]; dup {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}
