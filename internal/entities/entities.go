// Package entities extracts structured tokens from free text and detects
// causal phrasing. Both entry points are pure and cheap enough to run on
// every graph insertion.
package entities

import (
	"regexp"
	"sort"
	"strings"
)

var (
	// File-path-like tokens: identifier chars plus a recognized extension.
	filePathRe = regexp.MustCompile(`(?i)[\w./\\-]+\.(?:py|js|ts|java|go|rs|sql|md|yaml|yml|json|toml|xml|html|css|sh|rb|c|cpp|h)\b`)

	// URLs; trailing punctuation is trimmed after matching.
	urlRe = regexp.MustCompile(`https?://[^\s<>"')\]]+`)

	// CamelCase identifiers: ChatStorage, MetaDB.
	camelCaseRe = regexp.MustCompile(`\b[A-Z][a-z]+(?:[A-Z][a-zA-Z]*)+\b`)

	// Mixed-case technical terms: SQLite, HTMLElement.
	mixedCaseRe = regexp.MustCompile(`\b[A-Z]{2,}[a-z]{2,}\w*\b`)

	// UPPER_CASE identifiers of length >= 3: JWT, API, HTTP_PROXY.
	upperIdentRe = regexp.MustCompile(`\b[A-Z][A-Z0-9_]{2,}\b`)
)

// causalKeywords are matched case-insensitively as substrings.
var causalKeywords = []string{
	"because",
	"therefore",
	"thus",
	"hence",
	"since",
	"so that",
	"caused by",
	"fixed by",
	"due to",
	"as a result",
	"leads to",
	"results in",
	"in order to",
	"resolved by",
	// Russian
	"потому что",
	"из-за",
	"в результате",
	"поэтому",
	"следовательно",
	"чтобы",
}

var causalRe = buildCausalRe()

func buildCausalRe() *regexp.Regexp {
	quoted := make([]string, len(causalKeywords))
	for i, kw := range causalKeywords {
		quoted[i] = regexp.QuoteMeta(kw)
	}
	return regexp.MustCompile(`(?i)` + strings.Join(quoted, "|"))
}

// noise lists common upper-case English words that are not identifiers.
var noise = map[string]bool{
	"THE": true, "AND": true, "FOR": true, "NOT": true, "BUT": true,
	"ALL": true, "ARE": true, "WAS": true, "HAS": true, "WITH": true,
	"THIS": true, "THAT": true, "FROM": true, "HAVE": true, "WILL": true,
	"CAN": true, "USE": true, "ALSO": true, "SOME": true, "EACH": true,
	"THEN": true, "THAN": true, "WHEN": true, "WHAT": true, "HOW": true,
	"WHO": true, "WHY": true, "WHERE": true, "WHICH": true, "DOES": true,
	"DID": true, "MAY": true, "SHOULD": true, "COULD": true, "WOULD": true,
	"INTO": true, "OVER": true, "YOUR": true, "JUST": true, "LIKE": true,
	"ANY": true, "NEW": true, "GET": true, "SET": true, "TWO": true,
	"WAY": true, "TODO": true, "NOTE": true, "FIXME": true, "HACK": true,
	"XXX": true,
}

// Extract pulls structured tokens out of text: file paths, URLs, CamelCase
// identifiers, mixed-case technical terms, and UPPER_CASE identifiers
// filtered against the noise list. The result is sorted and deduplicated;
// empty input yields an empty slice.
func Extract(text string) []string {
	seen := make(map[string]bool)

	for _, m := range filePathRe.FindAllString(text, -1) {
		seen[m] = true
	}
	for _, m := range urlRe.FindAllString(text, -1) {
		seen[strings.TrimRight(m, ".,;:")] = true
	}
	for _, m := range camelCaseRe.FindAllString(text, -1) {
		seen[m] = true
	}
	for _, m := range mixedCaseRe.FindAllString(text, -1) {
		seen[m] = true
	}
	for _, m := range upperIdentRe.FindAllString(text, -1) {
		if !noise[m] {
			seen[m] = true
		}
	}

	out := make([]string, 0, len(seen))
	for e := range seen {
		out = append(out, e)
	}
	sort.Strings(out)
	return out
}

// HasCausalLanguage reports whether text contains a causal connective,
// case-insensitively, in English or Russian.
func HasCausalLanguage(text string) bool {
	return causalRe.MatchString(text)
}
