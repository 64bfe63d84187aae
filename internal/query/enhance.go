package query

import (
	"regexp"
	"strings"
)

// brandExpansions maps a single-word query to a richer phrase before any
// other rewrite runs. Closed dictionary by design: growing it is a code
// change, not a config change.
var brandExpansions = map[string]string{
	"revolut":   "revolut card payment transaction bank",
	"paypal":    "paypal payment transaction online",
	"stripe":    "stripe payment processing charge",
	"amazon":    "amazon purchase order shopping",
	"uber":      "uber ride transport taxi",
	"starbucks": "starbucks coffee cafe purchase",
	"walmart":   "walmart store shopping purchase",
	"target":    "target store shopping retail",
}

type patternRule struct {
	pattern     *regexp.Regexp
	replacement string
}

// queryPatterns rewrite surface forms (currency, dates, intent phrases)
// into the vocabulary the embedder was trained to weight. Order matters:
// the bare "50 dollars" form runs before the dollar-sign form, so it never
// re-rewrites the "amount 50 dollars" text that the dollar-sign form emits.
var queryPatterns = []patternRule{
	{regexp.MustCompile(`(?i)(\d+(?:\.\d{2})?)\s*dollars?`), "amount $1"},
	{regexp.MustCompile(`(?i)\$(\d+(?:\.\d{2})?)`), "amount $1 dollars"},
	{regexp.MustCompile(`(?i)(\d{1,2}[/-]\d{1,2}[/-]\d{2,4})`), "date $1"},
	{regexp.MustCompile(`(?i)how much`), "amount cost total"},
	{regexp.MustCompile(`(?i)who paid`), "vendor merchant company"},
	{regexp.MustCompile(`(?i)what for`), "category description purpose"},
}

// facetSynonyms groups words that refer to the same expense facet. When a
// query word belongs to one of these groups, the rest of the group is
// appended so the embedder sees the full semantic cluster.
var facetSynonyms = map[string][]string{
	"amount":   {"total", "cost", "price", "sum", "charge", "fee"},
	"vendor":   {"merchant", "company", "business", "store", "supplier"},
	"date":     {"when", "date", "time", "day", "month", "year"},
	"category": {"type", "category", "kind", "classification"},
	"payment":  {"paid", "payment", "transaction", "purchase", "buy"},
}

// synonymLookup maps every synonym word back to its facet's full word set,
// built once so Enhance doesn't rebuild it per call.
var synonymLookup = buildSynonymLookup()

func buildSynonymLookup() map[string][]string {
	lookup := make(map[string][]string)
	for _, synonyms := range facetSynonyms {
		for _, w := range synonyms {
			lookup[w] = synonyms
		}
	}
	return lookup
}

// Enhance rewrites a raw query for retrieval: brand expansion, pattern
// rewrites, then facet synonym expansion, in that order.
func Enhance(q string) string {
	enhanced := strings.ToLower(strings.TrimSpace(q))
	if enhanced == "" {
		return enhanced
	}

	words := strings.Fields(enhanced)
	if len(words) == 1 {
		if expanded, ok := brandExpansions[words[0]]; ok {
			enhanced = expanded
		}
	}

	for _, rule := range queryPatterns {
		enhanced = rule.pattern.ReplaceAllString(enhanced, rule.replacement)
	}

	expanded := make([]string, 0, len(words))
	for _, w := range strings.Fields(enhanced) {
		expanded = append(expanded, w)
		if synonyms, ok := synonymLookup[w]; ok {
			for _, s := range synonyms {
				if s != w {
					expanded = append(expanded, s)
				}
			}
		}
	}
	return strings.Join(expanded, " ")
}
