package query

import (
	"regexp"
	"sort"
	"strings"
)

// highlightPatterns mark up currency, dates, and expense vocabulary that
// the caller probably cares about even when it wasn't in their query terms.
var highlightPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)\$\d+(?:\.\d{2})?`),
	regexp.MustCompile(`(?i)\d{1,2}[/-]\d{1,2}[/-]\d{2,4}`),
	regexp.MustCompile(`(?i)total|amount|sum|cost|price`),
	regexp.MustCompile(`(?i)invoice|receipt|bill|statement`),
}

// highlight wraps occurrences of each query term (length > 2) and of the
// currency/date/amount/document-type patterns in "**...**".
func highlight(content, query string) string {
	out := content
	for _, term := range strings.Fields(strings.ToLower(query)) {
		if len(term) <= 2 {
			continue
		}
		pattern := regexp.MustCompile(`(?i)` + regexp.QuoteMeta(term))
		out = pattern.ReplaceAllStringFunc(out, func(match string) string {
			return "**" + match + "**"
		})
	}
	for _, pattern := range highlightPatterns {
		out = pattern.ReplaceAllStringFunc(out, func(match string) string {
			return "**" + match + "**"
		})
	}
	return out
}

// normalizeContent collapses whitespace and lower-cases content for
// duplicate comparison.
func normalizeContent(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(s)), " ")
}

// jaccardSimilarity is the token-set overlap ratio between two normalized
// strings.
func jaccardSimilarity(a, b string) float64 {
	setA := tokenSet(a)
	setB := tokenSet(b)
	if len(setA) == 0 && len(setB) == 0 {
		return 1.0
	}
	intersection := 0
	for t := range setA {
		if setB[t] {
			intersection++
		}
	}
	union := len(setA) + len(setB) - intersection
	if union == 0 {
		return 0
	}
	return float64(intersection) / float64(union)
}

func tokenSet(s string) map[string]bool {
	set := make(map[string]bool)
	for _, t := range strings.Fields(s) {
		set[t] = true
	}
	return set
}

// deduplicate drops results whose normalized content exactly matches, or
// whose token-set Jaccard similarity exceeds 0.9, an already-kept result.
func deduplicate(items []ResultItem) []ResultItem {
	kept := make([]ResultItem, 0, len(items))
	seen := make([]string, 0, len(items))

	for _, item := range items {
		normalized := normalizeContent(item.Content)
		duplicate := false
		for _, s := range seen {
			if normalized == s || jaccardSimilarity(normalized, s) > 0.9 {
				duplicate = true
				break
			}
		}
		if !duplicate {
			kept = append(kept, item)
			seen = append(seen, normalized)
		}
	}
	return kept
}

// sortByScoreDesc sorts in place by descending score, fragment ID as a
// deterministic tiebreaker.
func sortByScoreDesc(items []ResultItem) {
	sort.SliceStable(items, func(i, j int) bool {
		if items[i].Score != items[j].Score {
			return items[i].Score > items[j].Score
		}
		return items[i].FragmentID < items[j].FragmentID
	})
}

// keywordScore is the fraction of query terms that appear as a substring of
// content, case-insensitive. Duplicated query terms count once per
// occurrence in the term list, matching the source scoring behaviour this
// is carried over from.
func keywordScore(query, content string) float64 {
	terms := strings.Fields(strings.ToLower(query))
	if len(terms) == 0 {
		return 0
	}
	contentLower := strings.ToLower(content)
	matches := 0
	for _, t := range terms {
		if strings.Contains(contentLower, t) {
			matches++
		}
	}
	return float64(matches) / float64(len(terms))
}
