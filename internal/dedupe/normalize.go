// Package dedupe detects buyer records that represent the same real-world
// company and collapses them onto a single surviving record. Grouping uses
// two signals: normalized website domain (higher confidence, checked first)
// and normalized company name.
package dedupe

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// legalSuffixes are trailing tokens stripped during name normalization so
// "Acme Holdings LLC" and "ACME Holdings" normalize to the same key.
var legalSuffixes = map[string]bool{
	"inc":          true,
	"incorporated": true,
	"llc":          true,
	"corp":         true,
	"corporation":  true,
	"co":           true,
	"ltd":          true,
	"limited":      true,
	"lp":           true,
	"llp":          true,
	"group":        true,
	"holdings":     true,
	"partners":     true,
}

var (
	namePunctRe  = regexp.MustCompile(`[^\p{L}\p{N}\s]+`)
	multiSpaceRe = regexp.MustCompile(`\s{2,}`)

	// foldAccents decomposes characters and drops combining marks so
	// "Café" and "Cafe" normalize identically.
	foldAccents = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
)

// NormalizeDomain reduces a website URL to a bare lowercased domain:
// protocol, www prefix, path, query, and trailing slash are stripped.
// Returns "" for an empty website.
func NormalizeDomain(rawURL string) string {
	d := strings.ToLower(strings.TrimSpace(rawURL))
	d = strings.TrimPrefix(d, "https://")
	d = strings.TrimPrefix(d, "http://")
	d = strings.TrimPrefix(d, "www.")
	for _, sep := range []string{"/", "?", "#"} {
		if i := strings.Index(d, sep); i >= 0 {
			d = d[:i]
		}
	}
	return d
}

// NormalizeName standardizes a company name for duplicate matching:
// lowercase, accents folded, punctuation stripped, trailing legal suffixes
// removed, whitespace collapsed.
func NormalizeName(name string) string {
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "" {
		return ""
	}

	if folded, _, err := transform.String(foldAccents, name); err == nil {
		name = folded
	}

	name = namePunctRe.ReplaceAllString(name, " ")
	name = multiSpaceRe.ReplaceAllString(name, " ")
	name = strings.TrimSpace(name)

	// Strip trailing legal/structure suffixes, repeatedly: "acme holdings llc"
	// loses both "llc" and "holdings".
	tokens := strings.Fields(name)
	for len(tokens) > 1 && legalSuffixes[tokens[len(tokens)-1]] {
		tokens = tokens[:len(tokens)-1]
	}

	return strings.Join(tokens, " ")
}
