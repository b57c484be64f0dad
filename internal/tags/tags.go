// Package tags parses and applies user-supplied tag expressions against the
// problem catalog.
package tags

import (
	"strings"

	"github.com/agnivade/levenshtein"

	apperr "github.com/acmduel/duelbot/internal/errors"
	"github.com/acmduel/duelbot/internal/judge"
)

// Sentinel tokens. They are stripped before tag matching and applied as
// extra predicates.
const (
	// TokenNew excludes problems from contests numbered 1000 and below.
	TokenNew = "new"
	// TokenNotSeen excludes problems the user already has an accepted run
	// for. Requires a bound judge handle.
	TokenNotSeen = "not-seen"
)

// Known is the judge's tag vocabulary.
var Known = []string{
	"2-sat",
	"binary search",
	"bitmasks",
	"brute force",
	"chinese remainder theorem",
	"combinatorics",
	"constructive algorithms",
	"data structures",
	"dfs and similar",
	"divide and conquer",
	"dp",
	"dsu",
	"expression parsing",
	"fft",
	"flows",
	"games",
	"geometry",
	"graph matchings",
	"graphs",
	"greedy",
	"hashing",
	"implementation",
	"interactive",
	"math",
	"matrices",
	"meet-in-the-middle",
	"number theory",
	"probabilities",
	"schedules",
	"shortest paths",
	"sortings",
	"string suffix structures",
	"strings",
	"ternary search",
	"trees",
	"two pointers",
	"*special",
}

var known = func() map[string]bool {
	m := make(map[string]bool, len(Known))
	for _, t := range Known {
		m[t] = true
	}
	return m
}()

// Expression is a parsed tag expression.
type Expression struct {
	Positive []string
	Negative []string
	New      bool
	NotSeen  bool
}

// Empty reports whether the expression constrains tags at all.
func (e Expression) Empty() bool {
	return len(e.Positive) == 0 && len(e.Negative) == 0
}

// Parse normalizes (underscores become spaces) and classifies raw tokens.
// Unknown tags fail validation; when a known tag is similar enough the
// error suggests it.
func Parse(raw []string) (Expression, error) {
	var expr Expression
	for _, tok := range raw {
		switch tok {
		case TokenNew:
			expr.New = true
			continue
		case TokenNotSeen:
			expr.NotSeen = true
			continue
		}

		negative := strings.HasPrefix(tok, "!")
		tag := Normalize(strings.TrimPrefix(tok, "!"))

		if !known[tag] {
			if similar, sim := closest(tag); sim > 0.6 {
				return Expression{}, apperr.Validationf("%s is not a valid tag, did you mean %s?", tag, similar)
			}
			return Expression{}, apperr.Validationf("%s is not a valid tag", tag)
		}

		if negative {
			expr.Negative = append(expr.Negative, tag)
		} else {
			expr.Positive = append(expr.Positive, tag)
		}
	}
	return expr, nil
}

// Normalize maps the chat-friendly token form to the judge's tag form.
func Normalize(tok string) string {
	return strings.ReplaceAll(tok, "_", " ")
}

// closest returns the known tag with the highest normalized similarity.
func closest(tag string) (string, float64) {
	best, bestSim := "", -1.0
	for _, t := range Known {
		if sim := similarity(t, tag); sim > bestSim {
			best, bestSim = t, sim
		}
	}
	return best, bestSim
}

func similarity(a, b string) float64 {
	la, lb := len([]rune(a)), len([]rune(b))
	longer := la
	if lb > longer {
		longer = lb
	}
	if longer == 0 {
		return 1
	}
	return 1 - float64(levenshtein.ComputeDistance(a, b))/float64(longer)
}

// ValidateRating enforces the judge's problem rating domain.
func ValidateRating(r int) error {
	if r < 800 || r > 3500 || r%100 != 0 {
		return apperr.Validationf("rating must be a multiple of 100 between 800 and 3500")
	}
	return nil
}

// MatchMode selects how positive tags combine.
type MatchMode int

const (
	// MatchAny keeps problems carrying at least one positive tag.
	MatchAny MatchMode = iota
	// MatchAll keeps problems carrying every positive tag.
	MatchAll
)

// Filter applies the expression to the catalog at an exact target rating.
// seen may be nil when the expression has no not-seen sentinel. Problems
// tagged *special never pass.
func Filter(problems []judge.Problem, expr Expression, rating int, seen map[judge.ProblemKey]bool, mode MatchMode) []judge.Problem {
	var out []judge.Problem
	for _, p := range problems {
		if p.Rating != rating {
			continue
		}
		if Matches(p, expr, seen, mode) {
			out = append(out, p)
		}
	}
	return out
}

// Matches applies the tag predicates of the expression to one problem.
func Matches(p judge.Problem, expr Expression, seen map[judge.ProblemKey]bool, mode MatchMode) bool {
	if p.HasTag(judge.SpecialTag) {
		return false
	}
	if expr.New && p.ContestID <= 1000 {
		return false
	}
	if expr.NotSeen && seen[p.Key()] {
		return false
	}
	for _, tag := range expr.Negative {
		if p.HasTag(tag) {
			return false
		}
	}
	if len(expr.Positive) == 0 {
		return true
	}

	switch mode {
	case MatchAll:
		for _, tag := range expr.Positive {
			if !p.HasTag(tag) {
				return false
			}
		}
		return true
	default:
		for _, tag := range expr.Positive {
			if p.HasTag(tag) {
				return true
			}
		}
		return false
	}
}
