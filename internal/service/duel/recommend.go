package duel

import (
	"context"
	"fmt"
	"strings"

	apperr "github.com/acmduel/duelbot/internal/errors"
	"github.com/acmduel/duelbot/internal/judge"
	"github.com/acmduel/duelbot/internal/tags"
)

// Difficulty presets for the recommender, relative to the caller's rating.
const (
	DifficultyEasy      = "easy"
	DifficultyModerate  = "moderate"
	DifficultyDifficult = "difficult"
)

// maxRecommend caps how many problems one call may return.
const maxRecommend = 10

// RecommendOptions are the parsed flags of the recommend command.
type RecommendOptions struct {
	// Difficulty is one of the preset names; empty means moderate.
	Difficulty string
	// Count is how many problems to return; 0 means 1, capped at 10.
	Count int
	// Rating, when nonzero, pins an exact problem rating and disables the
	// preset ranges and the weighted ordering.
	Rating int
	// ExcludeSolved drops problems the caller already has an accepted run for.
	ExcludeSolved bool
	// Tags is an optional raw tag expression further narrowing candidates.
	Tags []string
}

// preset maps a difficulty name to its rating window and weighting target,
// both relative to the user's rating.
type preset struct {
	lo, hi, target int
}

var presets = map[string]preset{
	DifficultyEasy:      {lo: -400, hi: -100, target: -250},
	DifficultyModerate:  {lo: -200, hi: 200, target: 0},
	DifficultyDifficult: {lo: 100, hi: 600, target: 350},
}

// Recommend picks problems for the caller.
//
// Behavior:
//   - The caller must have a bound handle; their recent submissions feed
//     both the solved set and the tag histogram.
//   - The histogram counts tags of non-accepted attempts, so problems in
//     areas the user struggles with weigh more.
//   - With an exact rating the result is a uniform draw; otherwise
//     candidates are drawn by weight without replacement, where weight
//     grows with histogram score and shrinks with distance from the
//     target rating.
//   - Returned problems are pairwise distinct; the count never exceeds
//     min(requested, 10, candidates).
func (s *Service) Recommend(ctx context.Context, caller int64, opts RecommendOptions) (string, error) {
	user, err := s.users.GetOrCreate(ctx, caller)
	if err != nil {
		return "", apperr.Map(err)
	}
	if !user.Bound() {
		return "", apperr.Validationf("bind a judge handle first, recommendations are based on your submissions")
	}

	difficulty := opts.Difficulty
	if difficulty == "" {
		difficulty = DifficultyModerate
	}
	pr, ok := presets[strings.ToLower(difficulty)]
	if !ok {
		return "", apperr.Validationf("unknown difficulty %q, pick easy, moderate or difficult", opts.Difficulty)
	}

	expr, err := tags.Parse(opts.Tags)
	if err != nil {
		return "", err
	}

	lo := clampRating(user.Rating + pr.lo)
	hi := clampRating(user.Rating + pr.hi)
	target := user.Rating + pr.target
	if opts.Rating != 0 {
		if err := tags.ValidateRating(opts.Rating); err != nil {
			return "", err
		}
		lo, hi, target = opts.Rating, opts.Rating, opts.Rating
	}

	subs, err := s.appCtx.Judge.UserStatus(ctx, *user.CFHandle, 0)
	if err != nil {
		return "", err
	}
	solved, histogram := digest(subs)

	seen := map[judge.ProblemKey]bool{}
	if expr.NotSeen {
		seen = solved
	}

	all, err := s.appCtx.Catalog.Problems(ctx)
	if err != nil {
		return "", err
	}

	var candidates []judge.Problem
	for _, p := range all {
		if p.Rating < lo || p.Rating > hi {
			continue
		}
		if opts.ExcludeSolved && solved[p.Key()] {
			continue
		}
		if !tags.Matches(p, expr, seen, tags.MatchAny) {
			continue
		}
		candidates = append(candidates, p)
	}
	if len(candidates) == 0 {
		return "", apperr.Validationf("no problem found")
	}

	count := opts.Count
	if count <= 0 {
		count = 1
	}
	if count > maxRecommend {
		count = maxRecommend
	}
	if count > len(candidates) {
		count = len(candidates)
	}

	var picked []judge.Problem
	if opts.Rating != 0 {
		s.shuffleProblems(candidates)
		picked = candidates[:count]
	} else {
		picked = s.sampleWeighted(candidates, histogram, target, count)
	}

	return formatRecommendation(picked), nil
}

// RandomProblem draws one uniformly random problem for the caller at an
// exact rating, the ad-hoc counterpart of the duel draw.
func (s *Service) RandomProblem(ctx context.Context, caller int64, rawTags []string, rating int) (string, error) {
	problem, err := s.drawProblem(ctx, rawTags, rating, caller)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%s (rated %d)", problem.URL(), problem.Rating), nil
}

// digest folds the submission history into the solved set and the
// non-accepted tag histogram.
func digest(subs []judge.Submission) (map[judge.ProblemKey]bool, map[string]int) {
	solved := make(map[judge.ProblemKey]bool)
	histogram := make(map[string]int)
	for _, sub := range subs {
		if sub.IsAccepted() {
			solved[sub.Problem.Key()] = true
			continue
		}
		for _, tag := range sub.Problem.Tags {
			histogram[tag]++
		}
	}
	return solved, histogram
}

// weight scores a candidate: problems whose tags the user keeps failing
// weigh more, problems far from the target rating weigh less.
func weight(p judge.Problem, histogram map[string]int, target int) float64 {
	score := 0
	for _, tag := range p.Tags {
		score += histogram[tag]
	}
	diff := p.Rating - target
	if diff < 0 {
		diff = -diff
	}
	return float64(score+1) / (1 + float64(diff)/100)
}

// sampleWeighted draws count distinct problems by weight without
// replacement. Falls back to a uniform shuffle if the total weight ever
// degenerates.
func (s *Service) sampleWeighted(candidates []judge.Problem, histogram map[string]int, target, count int) []judge.Problem {
	weights := make([]float64, len(candidates))
	total := 0.0
	for i, p := range candidates {
		weights[i] = weight(p, histogram, target)
		total += weights[i]
	}

	picked := make([]judge.Problem, 0, count)
	for len(picked) < count {
		if total <= 1e-9 {
			s.shuffleProblems(candidates)
			need := count - len(picked)
			if need > len(candidates) {
				need = len(candidates)
			}
			picked = append(picked, candidates[:need]...)
			break
		}
		r := s.randFloat(total)
		idx := len(candidates) - 1
		for i, w := range weights {
			if r < w {
				idx = i
				break
			}
			r -= w
		}
		picked = append(picked, candidates[idx])
		total -= weights[idx]
		candidates = append(candidates[:idx], candidates[idx+1:]...)
		weights = append(weights[:idx], weights[idx+1:]...)
	}
	return picked
}

func formatRecommendation(problems []judge.Problem) string {
	if len(problems) == 1 {
		p := problems[0]
		return fmt.Sprintf("try this one: %s (rated %d)", p.URL(), p.Rating)
	}
	var b strings.Builder
	b.WriteString("here you go:")
	for i, p := range problems {
		fmt.Fprintf(&b, "\n%d. %s (rated %d)", i+1, p.URL(), p.Rating)
	}
	return b.String()
}

func clampRating(r int) int {
	if r < 800 {
		return 800
	}
	if r > 3500 {
		return 3500
	}
	return r
}
