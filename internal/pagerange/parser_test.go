package pagerange

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/local/pdftools/internal/apperr"
)

func TestParseAllAndEmpty(t *testing.T) {
	for _, mode := range []Mode{Strict, Lenient} {
		for _, expr := range []string{"all", "ALL", " All ", "", "   "} {
			set, err := Parse(expr, 5, mode)
			require.NoError(t, err, "%s %q", mode, expr)
			assert.Equal(t, []int{1, 2, 3, 4, 5}, set.Pages())
		}
	}
}

func TestParseCoalescesOverlaps(t *testing.T) {
	for _, mode := range []Mode{Strict, Lenient} {
		set, err := Parse("1-3,2-4", 10, mode)
		require.NoError(t, err)
		assert.Equal(t, []int{1, 2, 3, 4}, set.Pages())
	}
}

func TestParseAscendingRegardlessOfInputOrder(t *testing.T) {
	set, err := Parse(" 9 , 4-5,1 ", 10, Strict)
	require.NoError(t, err)
	assert.Equal(t, []int{1, 4, 5, 9}, set.Pages())
	assert.True(t, set.Contains(4))
	assert.False(t, set.Contains(2))
}

func TestParseWhitespaceInsideTokens(t *testing.T) {
	set, err := Parse("1 - 3, 5", 10, Strict)
	require.NoError(t, err)
	assert.Equal(t, []int{1, 2, 3, 5}, set.Pages())
}

func TestParseStrictRejectsWholeExpression(t *testing.T) {
	tests := []string{
		"7-3",
		"0-2",
		"1,0",
		"1,11",
		"3-11",
		"abc",
		"1,2,x",
		"1-2-3",
		"-3",
		"2-",
	}
	for _, expr := range tests {
		_, err := Parse(expr, 10, Strict)
		require.Error(t, err, expr)
		assert.Equal(t, apperr.KindMalformedExpression, apperr.KindOf(err), expr)
	}
}

func TestParseStrictSkipsEmptyTokens(t *testing.T) {
	set, err := Parse("1,,3,", 5, Strict)
	require.NoError(t, err)
	assert.Equal(t, []int{1, 3}, set.Pages())

	_, err = Parse(",", 5, Strict)
	assert.Equal(t, apperr.KindEmptyResult, apperr.KindOf(err))
}

func TestParseLenientDropsAndClips(t *testing.T) {
	set, err := Parse("8-12, x, 0, 2, 6-4", 10, Lenient)
	require.NoError(t, err)
	assert.Equal(t, []int{2, 8, 9, 10}, set.Pages())
}

func TestParseLenientEmptyResult(t *testing.T) {
	for _, expr := range []string{"7-3", "0-0", "foo", "11-20"} {
		_, err := Parse(expr, 10, Lenient)
		require.Error(t, err, expr)
		assert.Equal(t, apperr.KindEmptyResult, apperr.KindOf(err), expr)
	}
}

func TestParseAllOfEmptyDocument(t *testing.T) {
	_, err := Parse("all", 0, Lenient)
	assert.Equal(t, apperr.KindEmptyResult, apperr.KindOf(err))
}

func TestParseMembersAlwaysInRange(t *testing.T) {
	exprs := []string{"1-100", "5,50,500", "all", "3-4,2-9", "-1-2"}
	for _, expr := range exprs {
		set, err := Parse(expr, 7, Lenient)
		if err != nil {
			continue
		}
		pages := set.Pages()
		for i, p := range pages {
			assert.GreaterOrEqual(t, p, 1)
			assert.LessOrEqual(t, p, 7)
			if i > 0 {
				assert.Greater(t, p, pages[i-1])
			}
		}
	}
}
