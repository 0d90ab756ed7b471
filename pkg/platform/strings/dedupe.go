// Package strings normalizes client-supplied string lists.
package strings

import "strings"

// DedupeAndTrim trims every value and drops blanks and repeats. The first
// occurrence keeps its position.
func DedupeAndTrim(values []string) []string {
	if values == nil {
		return nil
	}
	seen := make(map[string]bool, len(values))
	out := make([]string, 0, len(values))
	for _, v := range values {
		v = strings.TrimSpace(v)
		if v == "" || seen[v] {
			continue
		}
		seen[v] = true
		out = append(out, v)
	}
	return out
}
