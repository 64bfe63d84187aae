package query

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractFilters_Amount(t *testing.T) {
	t.Parallel()
	cleaned, vf, df, applied := extractFilters("amount > 50 at amazon")
	require.NotNil(t, vf.Amount)
	assert.Equal(t, ">", string(vf.Amount.Op))
	assert.Equal(t, 50.0, vf.Amount.Value)
	assert.Nil(t, df)
	assert.NotContains(t, cleaned, "amount")
	assert.Contains(t, applied, "amount_filter")
}

func TestExtractFilters_Category(t *testing.T) {
	t.Parallel()
	cleaned, vf, _, applied := extractFilters("category: meals coffee run")
	assert.Equal(t, "meals", vf.Category)
	assert.NotContains(t, cleaned, "category")
	assert.Contains(t, applied, "category")
}

func TestExtractFilters_Date(t *testing.T) {
	t.Parallel()
	_, _, df, applied := extractFilters("after 01/15/2024 purchases")
	require.NotNil(t, df)
	assert.Equal(t, "after", df.op)
	assert.Contains(t, applied, "date_filter")
}

func TestMatchesDate_AfterFilterExcludesEarlierDates(t *testing.T) {
	t.Parallel()
	_, _, df, _ := extractFilters("after 06/01/2024")
	require.NotNil(t, df)
	assert.False(t, matchesDate("01/01/2024", df))
	assert.True(t, matchesDate("12/01/2024", df))
}

func TestMatchesDate_UnparsableExpenseDateNeverMatches(t *testing.T) {
	t.Parallel()
	_, _, df, _ := extractFilters("after 06/01/2024")
	require.NotNil(t, df)
	assert.False(t, matchesDate("not-a-date", df))
}
