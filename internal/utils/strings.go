package utils

import "strings"

// ParseCSV splits a comma-separated list such as NEWS_FEEDS into trimmed,
// non-empty values. Repeated entries are dropped, keeping the first.
// Returns nil when nothing is left.
func ParseCSV(s string) []string {
	var result []string
	seen := make(map[string]bool)
	for _, v := range strings.Split(s, ",") {
		v = strings.TrimSpace(v)
		if v == "" || seen[v] {
			continue
		}
		seen[v] = true
		result = append(result, v)
	}
	return result
}
