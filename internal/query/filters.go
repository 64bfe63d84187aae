package query

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"expenseindex/internal/model"
	"expenseindex/internal/vectorstore"
)

var (
	amountFilterPattern   = regexp.MustCompile(`(?i)amount\s*([><=]+)\s*(\d+(?:\.\d{2})?)`)
	dateFilterPattern     = regexp.MustCompile(`(?i)(after|before|on)\s*(\d{1,2}[/-]\d{1,2}[/-]\d{2,4})`)
	categoryFilterPattern = regexp.MustCompile(`(?i)category[:\s]+([^\s,]+)`)
	whitespacePattern     = regexp.MustCompile(`\s+`)
)

// dateFilter is extracted from the query text but, unlike amount and
// category, has no typed column in the vector store: it is applied as a
// post-retrieval filter over each result's ExpenseDate.
type dateFilter struct {
	op    string // "after", "before", "on"
	value time.Time
}

// dateLayouts are the surface forms accepted both in queries and in stored
// ExpenseDate values.
var dateLayouts = []string{"1/2/2006", "01/02/2006", "1-2-2006", "01-02-2006"}

func parseQueryDate(s string) (time.Time, bool) {
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// extractFilters parses amount, date, and category predicates out of an
// enhanced query, returning the query text with those predicates stripped,
// the vector-store filter to apply, any date filter to apply post-retrieval,
// and a map describing what was extracted (for the response envelope).
func extractFilters(q string) (cleaned string, vf vectorstore.Filters, df *dateFilter, applied map[string]any) {
	cleaned = q
	applied = map[string]any{}

	if m := amountFilterPattern.FindStringSubmatch(cleaned); m != nil {
		if value, err := strconv.ParseFloat(m[2], 64); err == nil {
			vf.Amount = &vectorstore.AmountFilter{Op: model.AmountFilterOp(m[1]), Value: value}
			applied["amount_filter"] = map[string]any{"operator": m[1], "value": value}
		}
		cleaned = amountFilterPattern.ReplaceAllString(cleaned, "")
	}

	if m := dateFilterPattern.FindStringSubmatch(cleaned); m != nil {
		if parsed, ok := parseQueryDate(m[2]); ok {
			df = &dateFilter{op: strings.ToLower(m[1]), value: parsed}
			applied["date_filter"] = m[2]
		}
		cleaned = dateFilterPattern.ReplaceAllString(cleaned, "")
	}

	if m := categoryFilterPattern.FindStringSubmatch(cleaned); m != nil {
		vf.Category = m[1]
		applied["category"] = m[1]
		cleaned = categoryFilterPattern.ReplaceAllString(cleaned, "")
	}

	cleaned = strings.TrimSpace(whitespacePattern.ReplaceAllString(cleaned, " "))
	return cleaned, vf, df, applied
}

// matchesDate reports whether a fragment's ExpenseDate satisfies df.
// Fragments with an unparsable or empty ExpenseDate never match a date
// filter: the predicate only narrows results it can actually evaluate.
func matchesDate(expenseDate string, df *dateFilter) bool {
	if df == nil {
		return true
	}
	parsed, ok := parseQueryDate(expenseDate)
	if !ok {
		return false
	}
	switch df.op {
	case "after":
		return parsed.After(df.value)
	case "before":
		return parsed.Before(df.value)
	case "on":
		return parsed.Equal(df.value)
	default:
		return true
	}
}
