package query

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHighlight_WrapsQueryTermsAndCurrency(t *testing.T) {
	t.Parallel()
	out := highlight("Starbucks receipt for $4.50", "starbucks coffee")
	assert.Contains(t, out, "**Starbucks**")
	assert.Contains(t, out, "**$4.50**")
	assert.Contains(t, out, "**receipt**")
}

func TestHighlight_SkipsShortTerms(t *testing.T) {
	t.Parallel()
	out := highlight("a quick purchase at a store", "at")
	assert.NotContains(t, out, "**at**")
}

func TestDeduplicate_DropsExactNormalizedDuplicates(t *testing.T) {
	t.Parallel()
	items := []ResultItem{
		{FragmentID: "a", Content: "Coffee   at Starbucks", Score: 0.9},
		{FragmentID: "b", Content: "coffee at starbucks", Score: 0.8},
	}
	out := deduplicate(items)
	assert.Len(t, out, 1)
	assert.Equal(t, "a", out[0].FragmentID)
}

func TestDeduplicate_DropsNearDuplicatesAboveJaccardThreshold(t *testing.T) {
	t.Parallel()
	items := []ResultItem{
		{FragmentID: "a", Content: "coffee and a muffin at starbucks downtown on main street today", Score: 0.9},
		{FragmentID: "b", Content: "coffee and a muffin at starbucks downtown on main street", Score: 0.8},
	}
	out := deduplicate(items)
	assert.Len(t, out, 1)
}

func TestDeduplicate_KeepsDissimilarResults(t *testing.T) {
	t.Parallel()
	items := []ResultItem{
		{FragmentID: "a", Content: "coffee at starbucks", Score: 0.9},
		{FragmentID: "b", Content: "flight ticket to denver", Score: 0.8},
	}
	out := deduplicate(items)
	assert.Len(t, out, 2)
}

func TestKeywordScore_CountsSubstringMatches(t *testing.T) {
	t.Parallel()
	score := keywordScore("coffee starbucks", "a receipt from starbucks downtown")
	assert.Equal(t, 0.5, score)
}
