package query

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEnhance_ExpandsSingleWordBrand(t *testing.T) {
	t.Parallel()
	enhanced := Enhance("starbucks")
	assert.Contains(t, enhanced, "coffee")
	assert.Contains(t, enhanced, "cafe")
}

func TestEnhance_RewritesCurrencyPattern(t *testing.T) {
	t.Parallel()
	enhanced := Enhance("$50.00 receipt")
	assert.Contains(t, enhanced, "amount 50.00 dollars")
}

func TestEnhance_RewritesIntentPhrase(t *testing.T) {
	t.Parallel()
	enhanced := Enhance("how much did I spend at amazon")
	assert.Contains(t, enhanced, "amount cost total")
}

func TestEnhance_ExpandsFacetSynonyms(t *testing.T) {
	t.Parallel()
	enhanced := Enhance("merchant")
	assert.Contains(t, enhanced, "business")
	assert.Contains(t, enhanced, "supplier")
}
