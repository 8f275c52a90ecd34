package classifier

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestResultCategoryDefaultAllow(t *testing.T) {
	t.Parallel()

	c := New(DefaultKeywords())

	require.True(t, c.IsFinancial("Result", "Unaudited Financial Results for Q1"))
	require.True(t, c.IsFinancial("RESULT", "Audited results enclosed"))
}

func TestExclusionDominance(t *testing.T) {
	t.Parallel()

	c := New(DefaultKeywords())

	// Noise phrases win even in a result-flavored headline and category.
	require.False(t, c.IsFinancial("Result", "Unaudited Financial Results - Schedule of Earnings Call"))
	require.False(t, c.IsFinancial("Board Meeting", "Audited Financial Results - Newspaper Advertisement"))
	require.False(t, c.IsFinancial("Company Update", "Earnings Call - dial-in details"))
}

func TestBoardMeetingOutcomeEdgeCase(t *testing.T) {
	t.Parallel()

	c := New(DefaultKeywords())

	// A bare board-meeting outcome with no results language is not financial,
	// even in the Result category.
	require.False(t, c.IsFinancial("Result", "Outcome of Board Meeting"))
	require.True(t, c.IsFinancial("Result", "Outcome of Board Meeting - Audited Financial Results"))
}

func TestBoardMeetingCategoryRequiresKeyword(t *testing.T) {
	t.Parallel()

	c := New(DefaultKeywords())

	require.False(t, c.IsFinancial("Board Meeting", "Intimation of Board Meeting"))
	require.True(t, c.IsFinancial("Board Meeting", "Unaudited Financial Results for the quarter ended"))
}

func TestCompanyUpdateRequiresFinancialKeyword(t *testing.T) {
	t.Parallel()

	c := New(DefaultKeywords())

	require.False(t, c.IsFinancial("Company Update", "New office inauguration"))
	require.True(t, c.IsFinancial("Company Update", "Annual Report 2024-25"))
	require.True(t, c.IsFinancial("Company Update", "Transcript of Earnings Call held on May 5"))
}

func TestUnknownCategoryRejected(t *testing.T) {
	t.Parallel()

	c := New(DefaultKeywords())

	require.False(t, c.IsFinancial("Insider Trading", "Unaudited Financial Results"))
	require.False(t, c.IsFinancial("", "Unaudited Financial Results"))
}

func TestEmptyFieldsNeverMatch(t *testing.T) {
	t.Parallel()

	c := New(DefaultKeywords())

	require.False(t, c.IsFinancial("", ""))
	require.False(t, c.IsFinancial("Board Meeting", ""))
	require.True(t, c.IsFinancial("Result", ""))
}

func TestDeterminism(t *testing.T) {
	t.Parallel()

	c := New(DefaultKeywords())
	first := c.IsFinancial("Result", "Unaudited Financial Results for Q1")
	for i := 0; i < 100; i++ {
		require.Equal(t, first, c.IsFinancial("Result", "Unaudited Financial Results for Q1"))
	}
}

func TestInjectedKeywordLists(t *testing.T) {
	t.Parallel()

	c := New(Keywords{
		Exclude:             []string{"webinar"},
		BoardMeetingResults: []string{"dividend"},
		Financial:           []string{"prospectus"},
	})

	require.True(t, c.IsFinancial("Board Meeting", "Declaration of Dividend"))
	require.False(t, c.IsFinancial("Board Meeting", "Declaration of Dividend Webinar"))
	require.True(t, c.IsFinancial("Company Update", "Draft Prospectus filed"))
	// Default lists are not consulted once custom lists are injected.
	require.False(t, c.IsFinancial("Company Update", "Annual Report 2024"))
}
