// Package citation extracts structured (document, page-set) attributions
// from generated answer text.
//
// The upstream generator's output format is not guaranteed, so this is a
// deliberately lenient parser: a primary pattern, a looser fallback, and
// an empty result when nothing matches. Callers treat the empty result as
// "no citations produced" and apply their own fallback policy; it is
// never an error.
package citation

import (
	"regexp"
	"strings"
)

// Wildcard is the page token meaning "unspecified page"; any page of the
// document qualifies.
const Wildcard = "*"

var (
	sectionPattern = regexp.MustCompile(`(?is)CITED SOURCES:\s*(.+?)(?:\n\n|$)`)
	docPagePattern = regexp.MustCompile(`\[([a-zA-Z0-9._ -]+?)\s*-\s*page\s*(\d+)\]`)
	docLinkPattern = regexp.MustCompile(`\[([a-zA-Z0-9._ -]+?)\]\(`)
)

// Citations maps a normalized (lower-cased, trimmed) document name to the
// set of page tokens cited for it. A page token is either a decimal page
// number as text or the Wildcard.
type Citations map[string]map[string]struct{}

// Add records a page token for a document. Names are normalized; adding
// the same pair twice is a no-op.
func (c Citations) Add(document, page string) {
	document = strings.ToLower(strings.TrimSpace(document))
	if document == "" {
		return
	}
	pages, ok := c[document]
	if !ok {
		pages = make(map[string]struct{})
		c[document] = pages
	}
	pages[strings.TrimSpace(page)] = struct{}{}
}

// Pages returns the sorted-insensitive set of page tokens for a document,
// or nil if the document is not cited.
func (c Citations) Pages(document string) map[string]struct{} {
	return c[strings.ToLower(strings.TrimSpace(document))]
}

// Count returns the number of cited documents.
func (c Citations) Count() int {
	return len(c)
}

// Extract parses the CITED SOURCES section of an answer into Citations.
//
// The section is matched case-insensitively and runs to the next blank
// line or end of text. Within it the primary `[doc - page N]` pattern is
// tried first; if it yields nothing, the looser `[doc](...)` pattern
// records a Wildcard page per document. An absent section yields an empty
// map.
func Extract(answer string) Citations {
	cited := make(Citations)

	m := sectionPattern.FindStringSubmatch(answer)
	if m == nil {
		return cited
	}
	section := m[1]

	pairs := docPagePattern.FindAllStringSubmatch(section, -1)
	for _, pair := range pairs {
		cited.Add(pair[1], pair[2])
	}
	if len(pairs) > 0 {
		return cited
	}

	// Fallback: bare markdown links without explicit pages.
	for _, link := range docLinkPattern.FindAllStringSubmatch(section, -1) {
		cited.Add(link[1], Wildcard)
	}

	return cited
}
