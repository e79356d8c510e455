package merge

import "strings"

// placeholders are strings the extraction oracle emits when it has nothing:
// they carry no information and must never overwrite data or provenance.
var placeholders = map[string]bool{
	"not specified": true,
	"n/a":           true,
	"na":            true,
	"unknown":       true,
	"none":          true,
	"tbd":           true,
}

// isPlaceholder reports whether s is empty or a known no-information marker,
// case-insensitive and trimmed.
func isPlaceholder(s string) bool {
	s = strings.ToLower(strings.TrimSpace(s))
	return s == "" || placeholders[s]
}

// filterList drops placeholder and duplicate elements from a list value.
func filterList(items []string) []string {
	seen := make(map[string]bool, len(items))
	out := make([]string, 0, len(items))
	for _, it := range items {
		it = strings.TrimSpace(it)
		if isPlaceholder(it) || seen[strings.ToLower(it)] {
			continue
		}
		seen[strings.ToLower(it)] = true
		out = append(out, it)
	}
	return out
}
