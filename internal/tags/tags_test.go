package tags

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperr "github.com/acmduel/duelbot/internal/errors"
	"github.com/acmduel/duelbot/internal/judge"
)

func problem(contestID int64, rating int, tagList ...string) judge.Problem {
	return judge.Problem{ContestID: contestID, Index: "A", Rating: rating, Tags: tagList}
}

func TestParse_Classification(t *testing.T) {
	expr, err := Parse([]string{"greedy", "!math", "new", "not-seen", "two_pointers"})
	require.NoError(t, err)

	assert.Equal(t, []string{"greedy", "two pointers"}, expr.Positive)
	assert.Equal(t, []string{"math"}, expr.Negative)
	assert.True(t, expr.New)
	assert.True(t, expr.NotSeen)
}

func TestParse_UnknownTagSuggestion(t *testing.T) {
	_, err := Parse([]string{"gredy"})
	require.ErrorIs(t, err, apperr.ErrValidation)
	assert.Contains(t, err.Error(), "did you mean greedy")

	_, err = Parse([]string{"xqzw"})
	require.ErrorIs(t, err, apperr.ErrValidation)
	assert.NotContains(t, err.Error(), "did you mean")
}

func TestParse_NegatedUnknownTag(t *testing.T) {
	_, err := Parse([]string{"!nosuchtag"})
	assert.ErrorIs(t, err, apperr.ErrValidation)
}

func TestValidateRating(t *testing.T) {
	for _, r := range []int{800, 900, 1500, 3500} {
		assert.NoError(t, ValidateRating(r), "rating %d", r)
	}
	for _, r := range []int{799, 850, 3501, 0, -800, 1234} {
		assert.ErrorIs(t, ValidateRating(r), apperr.ErrValidation, "rating %d", r)
	}
}

func TestFilter_RatingExactMatch(t *testing.T) {
	problems := []judge.Problem{
		problem(2000, 1800, "geometry"),
		problem(2001, 1900, "geometry"),
	}

	got := Filter(problems, Expression{}, 1800, nil, MatchAny)
	require.Len(t, got, 1)
	assert.Equal(t, int64(2000), got[0].ContestID)
}

func TestFilter_Negation(t *testing.T) {
	problems := []judge.Problem{
		problem(2000, 1800, "geometry", "math"),
		problem(2001, 1800, "geometry"),
	}

	expr, err := Parse([]string{"!math", "geometry"})
	require.NoError(t, err)

	got := Filter(problems, expr, 1800, nil, MatchAny)
	require.Len(t, got, 1)
	assert.Equal(t, int64(2001), got[0].ContestID)
	for _, p := range got {
		assert.False(t, p.HasTag("math"))
	}
}

func TestFilter_NewExcludesOldContests(t *testing.T) {
	problems := []judge.Problem{
		problem(999, 1500, "dp"),
		problem(1000, 1500, "dp"),
		problem(1001, 1500, "dp"),
	}

	expr, err := Parse([]string{"new"})
	require.NoError(t, err)

	got := Filter(problems, expr, 1500, nil, MatchAny)
	require.Len(t, got, 1)
	assert.Equal(t, int64(1001), got[0].ContestID)
}

func TestFilter_NotSeen(t *testing.T) {
	problems := []judge.Problem{
		problem(2000, 1500, "dp"),
		problem(2001, 1500, "dp"),
	}
	seen := map[judge.ProblemKey]bool{
		{ContestID: 2000, Index: "A"}: true,
	}

	expr := Expression{NotSeen: true}
	got := Filter(problems, expr, 1500, seen, MatchAny)
	require.Len(t, got, 1)
	assert.Equal(t, int64(2001), got[0].ContestID)
}

func TestFilter_SpecialAlwaysExcluded(t *testing.T) {
	problems := []judge.Problem{
		problem(2000, 1500, "implementation", "*special"),
		problem(2001, 1500, "implementation"),
	}

	got := Filter(problems, Expression{}, 1500, nil, MatchAny)
	require.Len(t, got, 1)
	assert.Equal(t, int64(2001), got[0].ContestID)
}

func TestMatches_Modes(t *testing.T) {
	p := problem(2000, 1500, "greedy", "math")

	expr := Expression{Positive: []string{"greedy", "dp"}}
	assert.True(t, Matches(p, expr, nil, MatchAny))
	assert.False(t, Matches(p, expr, nil, MatchAll))

	expr = Expression{Positive: []string{"greedy", "math"}}
	assert.True(t, Matches(p, expr, nil, MatchAll))
}
