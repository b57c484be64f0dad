package duel

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/acmduel/duelbot/internal/db"
	apperr "github.com/acmduel/duelbot/internal/errors"
	"github.com/acmduel/duelbot/internal/judge"
)

const (
	dateLayout  = "2006-01-02"
	ranklistTTL = 5 * time.Minute
	boardSize   = 20
)

func today() string {
	return time.Now().UTC().Format(dateLayout)
}

// DailyProblem returns today's pinned problem, selecting one first if no
// problem has been pinned yet.
//
// Behavior:
//   - Selection draws uniformly from rated problems up to the configured
//     ceiling, excluding tag-less specials.
//   - Selection is race-safe twice over: a local mutex collapses
//     concurrent callers, and the date primary key stops a second
//     process, whose loser re-reads the winner's pick.
//   - Once pinned, the problem never changes for the rest of the day.
func (s *Service) DailyProblem(ctx context.Context) (string, error) {
	dp, err := s.todayProblem(ctx)
	if err != nil {
		return "", err
	}
	p := dp.Problem()
	return fmt.Sprintf("today's problem is %s (rated %d)\nsolve it and send daily_finish to score %d points",
		p.URL(), p.Rating, p.Rating/100), nil
}

func (s *Service) todayProblem(ctx context.Context) (*db.DailyProblem, error) {
	s.dailyMu.Lock()
	defer s.dailyMu.Unlock()

	date := today()
	dp, err := s.daily.Get(ctx, date)
	if err == nil {
		return dp, nil
	}
	if !apperr.IsNotFound(err) {
		return nil, apperr.Map(err)
	}

	all, err := s.appCtx.Catalog.Problems(ctx)
	if err != nil {
		return nil, err
	}
	var candidates []judge.Problem
	for _, p := range all {
		if p.Rating <= 0 || p.Rating > s.appCtx.Cfg.Duel.MaxDailyRating {
			continue
		}
		if p.HasTag(judge.SpecialTag) {
			continue
		}
		candidates = append(candidates, p)
	}
	if len(candidates) == 0 {
		return nil, apperr.Validationf("no problem found")
	}

	pick := candidates[s.randIntn(len(candidates))]
	dp = &db.DailyProblem{Date: date, ContestID: pick.ContestID, Index: pick.Index, Rating: pick.Rating}
	if err := s.daily.Set(ctx, dp); err != nil {
		// Another process pinned first; serve its pick.
		if dp, rerr := s.daily.Get(ctx, date); rerr == nil {
			return dp, nil
		}
		return nil, apperr.Map(err)
	}

	s.appCtx.Logger.Info("daily problem pinned", "date", date, "problem", pick.URL())
	return dp, nil
}

// DailyFinish credits the caller for solving today's problem.
//
// Behavior:
//   - The caller's latest submission must be an accepted run of today's
//     problem, made today.
//   - One claim per user per day; the score is rating/100 points.
func (s *Service) DailyFinish(ctx context.Context, caller int64) (string, error) {
	user, err := s.users.GetOrCreate(ctx, caller)
	if err != nil {
		return "", apperr.Map(err)
	}
	if !user.Bound() {
		return "", apperr.Validationf("bind a judge handle before claiming the daily problem")
	}

	date := today()
	if user.LastDaily == date {
		return "", apperr.Conflictf("you already claimed today's problem")
	}

	dp, err := s.daily.Get(ctx, date)
	if err != nil {
		if apperr.IsNotFound(err) {
			return "", apperr.Conflictf("no problem has been picked today, send daily_problem first")
		}
		return "", apperr.Map(err)
	}

	sub, err := s.appCtx.Judge.LastSubmission(ctx, *user.CFHandle)
	if err != nil {
		return "", err
	}
	target := judge.ProblemKey{ContestID: dp.ContestID, Index: dp.Index}
	if sub.Problem.Key() != target {
		return "", apperr.Validationf("your latest submission is not to today's problem")
	}
	if !sub.IsAccepted() {
		return "", apperr.Validationf("your latest submission is not accepted")
	}
	if time.Unix(sub.CreationTimeSeconds, 0).UTC().Format(dateLayout) != date {
		return "", apperr.Validationf("only a submission made today counts")
	}

	points := int64(dp.Rating / 100)
	if err := s.users.AwardDaily(ctx, caller, points, date); err != nil {
		return "", apperr.Map(err)
	}

	s.appCtx.Logger.Info("daily problem claimed", "qq", caller, "points", points)
	return fmt.Sprintf("well done! +%d points, your daily score is now %d", points, user.DailyScore+points), nil
}

// Ranklist renders the top rating board. The rendered board is cached in
// redis for a few minutes since ratings only move when duels finish.
func (s *Service) Ranklist(ctx context.Context) (string, error) {
	key := s.appCtx.RedisCache.KeyForRanklist()
	if cached, err := s.appCtx.RedisCache.Get(ctx, key); err == nil {
		return cached, nil
	} else if !errors.Is(err, redis.Nil) {
		s.appCtx.Logger.Warn("ranklist cache read failed", "err", err)
	}

	users, err := s.users.TopByRating(ctx, boardSize)
	if err != nil {
		return "", apperr.Map(err)
	}
	board := renderBoard("rating board", users, func(u db.User) int64 { return int64(u.Rating) })

	if err := s.appCtx.RedisCache.Set(ctx, key, board, ranklistTTL); err != nil {
		s.appCtx.Logger.Warn("ranklist cache write failed", "err", err)
	}
	return board, nil
}

// DailyRanklist renders the daily-score board. Not cached; daily scores
// change all day long.
func (s *Service) DailyRanklist(ctx context.Context) (string, error) {
	users, err := s.users.TopByDailyScore(ctx, boardSize)
	if err != nil {
		return "", apperr.Map(err)
	}
	return renderBoard("daily board", users, func(u db.User) int64 { return u.DailyScore }), nil
}

func renderBoard(title string, users []db.User, value func(db.User) int64) string {
	var b strings.Builder
	b.WriteString(title)
	for i, u := range users {
		fmt.Fprintf(&b, "\n%d. %s  %d", i+1, displayName(u.QQ, u.CFHandle), value(u))
	}
	if len(users) == 0 {
		b.WriteString("\n(empty)")
	}
	return b.String()
}
