// Package strings provides small helpers for normalizing string slices.
package strings

import (
	"strings"
)

// DedupeAndTrim trims whitespace from each element and drops duplicates
// and empty strings, preserving first-seen order.
func DedupeAndTrim(values []string) []string {
	return normalize(values, strings.TrimSpace)
}

// DedupeAndTrimLower is DedupeAndTrim with lowercasing, for lists compared
// case-insensitively such as nation and industry tags.
func DedupeAndTrimLower(values []string) []string {
	return normalize(values, func(v string) string {
		return strings.ToLower(strings.TrimSpace(v))
	})
}

func normalize(values []string, canon func(string) string) []string {
	if len(values) == 0 {
		return values
	}

	seen := make(map[string]struct{}, len(values))
	result := make([]string, 0, len(values))
	for _, v := range values {
		c := canon(v)
		if c == "" {
			continue
		}
		if _, ok := seen[c]; ok {
			continue
		}
		seen[c] = struct{}{}
		result = append(result, c)
	}
	return result
}
