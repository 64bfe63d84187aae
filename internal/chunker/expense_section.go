package chunker

import (
	"regexp"
	"sort"
	"strings"

	"expenseindex/internal/model"
)

// sectionPattern pairs a section tag with the regex that finds it. Scanned
// in this fixed order: header, vendor, amount, date, items, tax, footer.
type sectionPattern struct {
	name string
	re   *regexp.Regexp
}

var expenseSectionPatterns = []sectionPattern{
	{"header", regexp.MustCompile(`(?im)^.*(receipt|invoice)\s*#?.*$`)},
	{"vendor", regexp.MustCompile(`(?im)^(vendor|merchant|store|sold by)\s*:.*$`)},
	{"amount", regexp.MustCompile(`(?im)^(total|amount|subtotal|balance due)\s*:.*$`)},
	{"date", regexp.MustCompile(`(?im)^(date|transaction date|purchased on)\s*:.*$`)},
	{"items", regexp.MustCompile(`(?ims)^items?\s*:.*?(?:\n\n|\z)`)},
	{"tax", regexp.MustCompile(`(?im)^(tax|vat|gst)\s*:.*$`)},
	{"footer", regexp.MustCompile(`(?im)^(thank you|footer|terms).*$`)},
}

// ExpenseSectionStrategy pattern-matches section headers as multi-line
// regex scans in a fixed order. Matched spans may not overlap; text not
// covered by any match falls back to the supplied Fallback strategy,
// tagged expense_general.
type ExpenseSectionStrategy struct {
	Fallback Strategy
}

type span struct {
	start, end int
	name       string
}

func (s *ExpenseSectionStrategy) Chunk(text string) ([]Chunk, error) {
	var spans []span
	for _, p := range expenseSectionPatterns {
		for _, loc := range p.re.FindAllStringIndex(text, -1) {
			if overlapsAny(spans, loc[0], loc[1]) {
				continue
			}
			spans = append(spans, span{start: loc[0], end: loc[1], name: p.name})
		}
	}
	sort.Slice(spans, func(i, j int) bool { return spans[i].start < spans[j].start })

	var out []Chunk
	for _, sp := range spans {
		content := strings.TrimSpace(text[sp.start:sp.end])
		if content == "" {
			continue
		}
		out = append(out, Chunk{
			Text:             content,
			ChunkType:        model.ChunkType("expense_section_" + sp.name),
			StartChar:        sp.start,
			EndChar:          sp.end,
			ParentChunkIndex: -1,
		})
	}

	for _, gap := range uncoveredGaps(len(text), spans) {
		segment := text[gap.start:gap.end]
		if strings.TrimSpace(segment) == "" {
			continue
		}
		fallback := s.Fallback
		if fallback == nil {
			fallback = &FixedSizeStrategy{Params: Params{Target: 800, Overlap: 100}}
		}
		chunks, err := fallback.Chunk(segment)
		if err != nil {
			return nil, err
		}
		for _, c := range chunks {
			c.ChunkType = model.ChunkExpenseGeneral
			c.StartChar += gap.start
			c.EndChar += gap.start
			out = append(out, c)
		}
	}

	sort.Slice(out, func(i, j int) bool { return out[i].StartChar < out[j].StartChar })
	return out, nil
}

func overlapsAny(spans []span, start, end int) bool {
	for _, s := range spans {
		if start < s.end && s.start < end {
			return true
		}
	}
	return false
}

func uncoveredGaps(textLen int, spans []span) []span {
	if len(spans) == 0 {
		return []span{{start: 0, end: textLen}}
	}
	sorted := make([]span, len(spans))
	copy(sorted, spans)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].start < sorted[j].start })

	var gaps []span
	cursor := 0
	for _, s := range sorted {
		if s.start > cursor {
			gaps = append(gaps, span{start: cursor, end: s.start})
		}
		if s.end > cursor {
			cursor = s.end
		}
	}
	if cursor < textLen {
		gaps = append(gaps, span{start: cursor, end: textLen})
	}
	return gaps
}
