// Package duel implements the duel engine: matchmaking, adjudication,
// account binding and problem recommendation on top of the catalog, the
// judge client and the persistence layer.
package duel

import (
	"context"
	"encoding/json"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/acmduel/duelbot/internal/app"
	apperr "github.com/acmduel/duelbot/internal/errors"
	"github.com/acmduel/duelbot/internal/judge"
	"github.com/acmduel/duelbot/internal/repository"
	"github.com/acmduel/duelbot/internal/tags"
)

// Service holds the duel engine's dependencies. Each exported method is one
// command entry point: it validates its arguments, mutates state
// transactionally and returns display text for the chat frontend.
type Service struct {
	appCtx *app.AppContext
	users  *repository.UserRepository
	duels  *repository.DuelRepository
	daily  *repository.DailyProblemRepository

	// createMu serializes challenge creation so the check-then-act between
	// two concurrent challenges cannot interleave.
	createMu sync.Mutex
	// dailyMu collapses concurrent daily-problem selection into one writer.
	dailyMu sync.Mutex

	rndMu sync.Mutex
	rnd   *rand.Rand
}

// NewDuelService creates the service with dependencies from AppContext.
func NewDuelService(appCtx *app.AppContext) *Service {
	return &Service{
		appCtx: appCtx,
		users:  repository.NewUserRepository(appCtx.DB),
		duels:  repository.NewDuelRepository(appCtx.DB),
		daily:  repository.NewDailyProblemRepository(appCtx.DB),
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func (s *Service) randIntn(n int) int {
	s.rndMu.Lock()
	defer s.rndMu.Unlock()
	return s.rnd.Intn(n)
}

func (s *Service) randFloat(max float64) float64 {
	s.rndMu.Lock()
	defer s.rndMu.Unlock()
	return s.rnd.Float64() * max
}

func (s *Service) shuffleProblems(problems []judge.Problem) {
	s.rndMu.Lock()
	defer s.rndMu.Unlock()
	s.rnd.Shuffle(len(problems), func(i, j int) {
		problems[i], problems[j] = problems[j], problems[i]
	})
}

// GetProblemsBy filters the catalog by a raw tag expression at an exact
// rating, on behalf of the given user (the not-seen sentinel needs their
// bound handle). A problem must carry every positive tag; the recommender
// uses the looser any-of matching instead.
func (s *Service) GetProblemsBy(ctx context.Context, rawTags []string, rating int, qq int64) ([]judge.Problem, error) {
	if err := tags.ValidateRating(rating); err != nil {
		return nil, err
	}
	expr, err := tags.Parse(rawTags)
	if err != nil {
		return nil, err
	}

	var seen map[judge.ProblemKey]bool
	if expr.NotSeen {
		seen, err = s.solvedSet(ctx, qq)
		if err != nil {
			return nil, err
		}
	}

	problems, err := s.appCtx.Catalog.Problems(ctx)
	if err != nil {
		return nil, err
	}

	return tags.Filter(problems, expr, rating, seen, tags.MatchAll), nil
}

// solvedSet returns the keys of every problem the user has an accepted run
// for. Fails with a validation error when the user has no bound handle.
func (s *Service) solvedSet(ctx context.Context, qq int64) (map[judge.ProblemKey]bool, error) {
	user, err := s.users.GetOrCreate(ctx, qq)
	if err != nil {
		return nil, apperr.Map(err)
	}
	if !user.Bound() {
		return nil, apperr.Validationf("you need a bound judge handle to use the not-seen tag")
	}

	subs, err := s.appCtx.Judge.UserStatus(ctx, *user.CFHandle, 0)
	if err != nil {
		// Mirrors the original behavior: an unreachable judge degrades the
		// not-seen filter instead of failing the draw.
		s.appCtx.Logger.Warn("could not fetch submissions for not-seen filter", "qq", qq, "err", err)
		return map[judge.ProblemKey]bool{}, nil
	}

	seen := make(map[judge.ProblemKey]bool)
	for _, sub := range subs {
		if sub.IsAccepted() {
			seen[sub.Problem.Key()] = true
		}
	}
	return seen, nil
}

// drawProblem picks a uniformly random problem matching the expression.
func (s *Service) drawProblem(ctx context.Context, rawTags []string, rating int, qq int64) (judge.Problem, error) {
	problems, err := s.GetProblemsBy(ctx, rawTags, rating, qq)
	if err != nil {
		return judge.Problem{}, err
	}
	if len(problems) == 0 {
		return judge.Problem{}, apperr.Validationf("no problem found")
	}
	return problems[s.randIntn(len(problems))], nil
}

// displayName prefers the bound handle over the raw platform id.
func displayName(qq int64, handle *string) string {
	if handle != nil && *handle != "" {
		return *handle
	}
	return fmt.Sprintf("user %d", qq)
}

func encodeTags(rawTags []string) string {
	if len(rawTags) == 0 {
		return "[]"
	}
	raw, _ := json.Marshal(rawTags)
	return string(raw)
}

func decodeTags(s string) []string {
	var out []string
	if s == "" {
		return out
	}
	_ = json.Unmarshal([]byte(s), &out)
	return out
}
