package ui

import (
	"strings"

	"github.com/sahilm/fuzzy"

	"phonefield/internal/catalog"
)

// filterEntries returns the catalog indices matching the picker search
// query, best matches first. An empty query keeps the full sorted
// list. A digit query matches calling codes by prefix instead of
// display names.
func filterEntries(cat *catalog.Catalog, query string) []int {
	query = strings.TrimSpace(strings.ToLower(query))
	entries := cat.Entries()
	if query == "" {
		all := make([]int, len(entries))
		for i := range entries {
			all[i] = i
		}
		return all
	}

	if isDigits(query) {
		code := strings.TrimPrefix(query, "+")
		var out []int
		for i, entry := range entries {
			if strings.HasPrefix(entry.CallingCode, code) {
				out = append(out, i)
			}
		}
		return out
	}

	targets := make([]string, len(entries))
	for i, entry := range entries {
		targets[i] = strings.ToLower(entry.DisplayName)
	}
	matches := fuzzy.Find(query, targets)
	out := make([]int, 0, len(matches))
	for _, match := range matches {
		if match.Index >= 0 && match.Index < len(entries) {
			out = append(out, match.Index)
		}
	}
	return out
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for i, r := range s {
		if r == '+' && i == 0 {
			continue
		}
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
