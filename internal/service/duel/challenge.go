package duel

import (
	"context"
	"fmt"

	"github.com/acmduel/duelbot/internal/db"
	apperr "github.com/acmduel/duelbot/internal/errors"
	"github.com/acmduel/duelbot/internal/rating"
	"github.com/acmduel/duelbot/internal/tags"
)

// Challenge creates a Pending duel from caller to opponent at the given
// target rating, with an optional tag expression constraining the problem
// drawn on accept.
//
// Behavior:
//   - Rejects self-challenges and unbound participants.
//   - Tag expression and rating are validated up front, before any write.
//   - At most one non-finished duel per user; creation is serialized so two
//     concurrent challenges cannot both pass the check.
func (s *Service) Challenge(ctx context.Context, caller, opponent int64, targetRating int, rawTags []string) (string, error) {
	if caller == opponent {
		return "", apperr.Validationf("you cannot challenge yourself")
	}
	if err := tags.ValidateRating(targetRating); err != nil {
		return "", err
	}
	if _, err := tags.Parse(rawTags); err != nil {
		return "", err
	}

	challenger, err := s.users.GetOrCreate(ctx, caller)
	if err != nil {
		return "", apperr.Map(err)
	}
	challenged, err := s.users.GetOrCreate(ctx, opponent)
	if err != nil {
		return "", apperr.Map(err)
	}
	if !challenger.Bound() {
		return "", apperr.Validationf("bind a judge handle before challenging")
	}
	if !challenged.Bound() {
		return "", apperr.Validationf("your opponent has not bound a judge handle yet")
	}

	s.createMu.Lock()
	defer s.createMu.Unlock()

	duel := &db.Duel{
		User1:        caller,
		User2:        opponent,
		TargetRating: targetRating,
		Tags:         encodeTags(rawTags),
		StatusKind:   db.StatusPending,
	}
	if err := s.duels.Create(ctx, duel); err != nil {
		return "", apperr.Map(err)
	}

	s.appCtx.Logger.Info("challenge created", "duel_id", duel.ID, "user1", caller, "user2", opponent, "rating", targetRating)
	return fmt.Sprintf("%s challenged %s to a %d-rated duel, waiting for them to accept",
		displayName(caller, challenger.CFHandle), displayName(opponent, challenged.CFHandle), targetRating), nil
}

// Accept starts the caller's pending duel. A problem matching the stored
// tag expression is drawn (the not-seen sentinel resolves against the
// challenger) and the duel goes Ongoing.
func (s *Service) Accept(ctx context.Context, caller int64) (string, error) {
	duel, err := s.pendingFor(ctx, caller, db.SideUser2)
	if err != nil {
		return "", err
	}

	problem, err := s.drawProblem(ctx, decodeTags(duel.Tags), duel.TargetRating, duel.User1)
	if err != nil {
		return "", err
	}
	if err := s.duels.Start(ctx, duel, problem); err != nil {
		return "", apperr.Map(err)
	}

	s.appCtx.Logger.Info("duel started", "duel_id", duel.ID, "problem", problem.URL())
	return fmt.Sprintf("duel on! your problem is %s\nfirst accepted submission wins, judge when you are done", problem.URL()), nil
}

// Decline removes a pending challenge aimed at the caller.
func (s *Service) Decline(ctx context.Context, caller int64) (string, error) {
	duel, err := s.pendingFor(ctx, caller, db.SideUser2)
	if err != nil {
		return "", err
	}
	if err := s.duels.Delete(ctx, duel); err != nil {
		return "", apperr.Map(err)
	}
	return fmt.Sprintf("challenge from user %d declined", duel.User1), nil
}

// Cancel withdraws a pending challenge the caller sent.
func (s *Service) Cancel(ctx context.Context, caller int64) (string, error) {
	duel, err := s.pendingFor(ctx, caller, db.SideUser1)
	if err != nil {
		return "", err
	}
	if err := s.duels.Delete(ctx, duel); err != nil {
		return "", apperr.Map(err)
	}
	return fmt.Sprintf("challenge to user %d cancelled", duel.User2), nil
}

// Change handles the two-step problem swap. The first caller records a
// change request; when the opponent calls Change too, a fresh problem is
// drawn and the duel returns to Ongoing. The same side asking twice is
// rejected.
func (s *Service) Change(ctx context.Context, caller int64) (string, error) {
	duel, err := s.activeFor(ctx, caller)
	if err != nil {
		return "", err
	}

	switch duel.StatusKind {
	case db.StatusPending:
		return "", apperr.Conflictf("the duel has not started yet")
	case db.StatusOngoing:
		if err := s.duels.RequestChange(ctx, duel, caller); err != nil {
			return "", apperr.Map(err)
		}
		return "change requested, waiting for your opponent to confirm", nil
	case db.StatusChangeProblem:
		if duel.StatusPayload != nil && *duel.StatusPayload == caller {
			return "", apperr.Conflictf("you already requested a change, waiting for your opponent")
		}
		problem, err := s.drawProblem(ctx, decodeTags(duel.Tags), duel.TargetRating, duel.User1)
		if err != nil {
			return "", err
		}
		if err := s.duels.ApplyChange(ctx, duel, problem); err != nil {
			return "", apperr.Map(err)
		}
		return fmt.Sprintf("problem changed, the new one is %s", problem.URL()), nil
	default:
		return "", apperr.Conflictf("the duel is already finished")
	}
}

// Judge adjudicates the caller's running duel from both players' latest
// submissions. Scores compare lexicographically: an accepted run beats a
// rejected one, and between two accepted runs the earlier wins. A tie on
// the full score goes to the challenged side.
func (s *Service) Judge(ctx context.Context, caller int64) (string, error) {
	duel, err := s.activeFor(ctx, caller)
	if err != nil {
		return "", err
	}
	if duel.StatusKind == db.StatusPending {
		return "", apperr.Conflictf("the duel has not started yet")
	}
	problem, ok := duel.Problem()
	if !ok {
		return "", apperr.Conflictf("the duel has no problem assigned")
	}

	user1, user2, err := s.duelUsers(ctx, duel)
	if err != nil {
		return "", err
	}

	sub1, err := s.appCtx.Judge.LastSubmission(ctx, *user1.CFHandle)
	if err != nil {
		return "", err
	}
	sub2, err := s.appCtx.Judge.LastSubmission(ctx, *user2.CFHandle)
	if err != nil {
		return "", err
	}

	score1 := sub1.ScoreAgainst(problem.Key())
	score2 := sub2.ScoreAgainst(problem.Key())
	if !score1.Passed && !score2.Passed {
		return "", apperr.Conflictf("neither of you has passed the problem yet")
	}

	return s.settle(ctx, duel, user1, user2, score1.Beats(score2))
}

// GiveUp forfeits the caller's running duel; the opponent wins.
func (s *Service) GiveUp(ctx context.Context, caller int64) (string, error) {
	duel, err := s.activeFor(ctx, caller)
	if err != nil {
		return "", err
	}
	if duel.StatusKind == db.StatusPending {
		return "", apperr.Conflictf("the duel has not started yet")
	}

	user1, user2, err := s.duelUsers(ctx, duel)
	if err != nil {
		return "", err
	}
	return s.settle(ctx, duel, user1, user2, caller == duel.User2)
}

// settle finishes the duel: ratings are exchanged zero-sum and both new
// values are written with the final status in one transaction.
func (s *Service) settle(ctx context.Context, duel *db.Duel, user1, user2 *db.User, firstWins bool) (string, error) {
	new1, new2 := rating.Update(user1.Rating, user2.Rating, firstWins)

	loserSide := db.SideUser1
	if firstWins {
		loserSide = db.SideUser2
	}
	if err := s.duels.Finish(ctx, duel, loserSide, new1, new2); err != nil {
		return "", apperr.Map(err)
	}

	winner, loser := user1, user2
	winnerNew, loserNew := new1, new2
	if !firstWins {
		winner, loser = user2, user1
		winnerNew, loserNew = new2, new1
	}

	s.appCtx.Logger.Info("duel finished", "duel_id", duel.ID,
		"winner", winner.QQ, "loser", loser.QQ)
	return fmt.Sprintf("%s wins the duel!\n%s: %d -> %d\n%s: %d -> %d",
		displayName(winner.QQ, winner.CFHandle),
		displayName(winner.QQ, winner.CFHandle), winner.Rating, winnerNew,
		displayName(loser.QQ, loser.CFHandle), loser.Rating, loserNew), nil
}

// activeFor returns the caller's non-finished duel or a conflict error.
func (s *Service) activeFor(ctx context.Context, caller int64) (*db.Duel, error) {
	duel, err := s.duels.ActiveByUser(ctx, caller)
	if err != nil {
		if apperr.IsNotFound(err) {
			return nil, apperr.Conflictf("you are not in a duel")
		}
		return nil, apperr.Map(err)
	}
	return duel, nil
}

// pendingFor returns the caller's Pending duel where they play the given
// side, or a conflict error.
func (s *Service) pendingFor(ctx context.Context, caller int64, side int64) (*db.Duel, error) {
	duel, err := s.activeFor(ctx, caller)
	if err != nil {
		return nil, err
	}
	if duel.StatusKind != db.StatusPending {
		return nil, apperr.Conflictf("the duel is already running")
	}
	if side == db.SideUser2 && duel.User2 != caller {
		return nil, apperr.Conflictf("this challenge is waiting for your opponent, not you")
	}
	if side == db.SideUser1 && duel.User1 != caller {
		return nil, apperr.Conflictf("only the challenger can cancel")
	}
	return duel, nil
}

// duelUsers loads both participants and checks they are still bound.
func (s *Service) duelUsers(ctx context.Context, duel *db.Duel) (*db.User, *db.User, error) {
	user1, err := s.users.Get(ctx, duel.User1)
	if err != nil {
		return nil, nil, apperr.Map(err)
	}
	user2, err := s.users.Get(ctx, duel.User2)
	if err != nil {
		return nil, nil, apperr.Map(err)
	}
	if !user1.Bound() || !user2.Bound() {
		return nil, nil, apperr.Conflictf("a participant no longer has a bound handle")
	}
	return user1, user2, nil
}
