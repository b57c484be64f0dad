package duel

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/acmduel/duelbot/internal/cache"
	apperr "github.com/acmduel/duelbot/internal/errors"
	"github.com/acmduel/duelbot/internal/judge"
)

// The binding canary. Any compile-error submission to this problem within
// the window proves control of the handle without asking for credentials.
const (
	bindContestID int64 = 1
	bindIndex           = "A"
)

// Bind opens a binding attempt for the caller: the claimed handle and the
// start timestamp are parked in redis until FinishBind consumes them.
//
// Behavior:
//   - One attempt at a time per user; a second Bind while one is pending
//     is rejected.
//   - Rebinding a different handle over an existing one is allowed; the
//     old handle is replaced only when the new attempt completes.
func (s *Service) Bind(ctx context.Context, caller int64, handle string) (string, error) {
	handle = strings.TrimSpace(handle)
	if handle == "" {
		return "", apperr.Validationf("usage: bind <handle>")
	}
	if _, err := s.users.GetOrCreate(ctx, caller); err != nil {
		return "", apperr.Map(err)
	}

	pending, err := s.appCtx.RedisCache.HasPendingBind(ctx, caller)
	if err != nil {
		return "", apperr.Map(err)
	}
	if pending {
		return "", apperr.Conflictf("you already have a binding in progress, finish it first")
	}

	window := s.appCtx.Cfg.Duel.BindWindow
	bind := cache.PendingBind{Handle: handle, StartAt: time.Now().Unix()}
	// The TTL is a backstop; the authoritative window check is the
	// submission timestamp against StartAt.
	if err := s.appCtx.RedisCache.PutPendingBind(ctx, caller, bind, window+time.Minute); err != nil {
		return "", apperr.Map(err)
	}

	s.appCtx.Logger.Info("binding started", "qq", caller, "handle", handle)
	canary := judge.Problem{ContestID: bindContestID, Index: bindIndex}
	return fmt.Sprintf("to prove the handle %s is yours, submit code that fails to compile (verdict CE) to %s within %.0f seconds, then send finish_bind",
		handle, canary.URL(), window.Seconds()), nil
}

// FinishBind completes the handshake. The attempt is consumed whether or
// not it succeeds; a failed check means starting over with Bind.
//
// The latest submission of the claimed handle must target the canary
// problem, carry the compile-error verdict, and fall inside the window.
func (s *Service) FinishBind(ctx context.Context, caller int64) (string, error) {
	bind, ok, err := s.appCtx.RedisCache.TakePendingBind(ctx, caller)
	if err != nil {
		return "", apperr.Map(err)
	}
	if !ok {
		return "", apperr.Conflictf("no binding in progress, send bind <handle> first")
	}

	sub, err := s.appCtx.Judge.LastSubmission(ctx, bind.Handle)
	if err != nil {
		return "", err
	}

	canary := judge.ProblemKey{ContestID: bindContestID, Index: bindIndex}
	if sub.Problem.Key() != canary {
		return "", apperr.Validationf("your latest submission is not to the designated problem (contest 1, problem A)")
	}
	if sub.Verdict == "" {
		return "", apperr.Validationf("your submission has no verdict yet, wait for the judge and try again")
	}
	if !sub.IsCompileError() {
		return "", apperr.Validationf("a compile-error (CE) submission is required, got verdict %s", sub.Verdict)
	}

	window := int64(s.appCtx.Cfg.Duel.BindWindow.Seconds())
	if sub.CreationTimeSeconds < bind.StartAt || sub.CreationTimeSeconds > bind.StartAt+window {
		return "", apperr.Validationf("the submission was not made within the %d second window, start over", window)
	}

	if err := s.users.BindHandle(ctx, caller, bind.Handle); err != nil {
		return "", apperr.Map(err)
	}

	s.appCtx.Logger.Info("binding complete", "qq", caller, "handle", bind.Handle)
	return fmt.Sprintf("binding complete, you are now %s", bind.Handle), nil
}
