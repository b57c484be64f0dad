// Package command maps chat commands onto the duel service. The transport
// hands in the caller id and the whitespace-split arguments; everything
// going back out is plain display text, errors included.
package command

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strconv"
	"strings"

	apperr "github.com/acmduel/duelbot/internal/errors"
	"github.com/acmduel/duelbot/internal/service/duel"
	"github.com/acmduel/duelbot/internal/tags"
)

// Handler processes one parsed command invocation.
type Handler func(ctx context.Context, caller int64, args []string) (string, error)

// Router owns the command table.
type Router struct {
	svc      *duel.Service
	log      *slog.Logger
	handlers map[string]Handler
}

func NewRouter(svc *duel.Service, log *slog.Logger) *Router {
	r := &Router{svc: svc, log: log, handlers: map[string]Handler{}}

	r.register("challenge", r.challenge)
	r.register("accept", noArgs(func(ctx context.Context, caller int64) (string, error) {
		return svc.Accept(ctx, caller)
	}))
	r.register("decline", noArgs(func(ctx context.Context, caller int64) (string, error) {
		return svc.Decline(ctx, caller)
	}))
	r.register("cancel", noArgs(func(ctx context.Context, caller int64) (string, error) {
		return svc.Cancel(ctx, caller)
	}))
	r.register("change", noArgs(func(ctx context.Context, caller int64) (string, error) {
		return svc.Change(ctx, caller)
	}))
	r.register("judge", noArgs(func(ctx context.Context, caller int64) (string, error) {
		return svc.Judge(ctx, caller)
	}))
	r.register("give_up", noArgs(func(ctx context.Context, caller int64) (string, error) {
		return svc.GiveUp(ctx, caller)
	}))
	r.register("bind", r.bind)
	r.register("finish_bind", noArgs(func(ctx context.Context, caller int64) (string, error) {
		return svc.FinishBind(ctx, caller)
	}))
	r.register("problem", r.problem)
	r.register("recommend", r.recommend)
	r.register("daily_problem", noArgs(func(ctx context.Context, caller int64) (string, error) {
		return svc.DailyProblem(ctx)
	}))
	r.register("daily_finish", noArgs(func(ctx context.Context, caller int64) (string, error) {
		return svc.DailyFinish(ctx, caller)
	}))
	r.register("ranklist", noArgs(func(ctx context.Context, caller int64) (string, error) {
		return svc.Ranklist(ctx)
	}))
	r.register("daily_ranklist", noArgs(func(ctx context.Context, caller int64) (string, error) {
		return svc.DailyRanklist(ctx)
	}))

	return r
}

func (r *Router) register(name string, h Handler) {
	r.handlers[name] = h
}

// Dispatch runs one command and always returns displayable text. Service
// errors are logged with their full detail, then collapsed to their user
// representation.
func (r *Router) Dispatch(ctx context.Context, name string, caller int64, args []string) string {
	h, ok := r.handlers[strings.ToLower(name)]
	if !ok {
		return fmt.Sprintf("unknown command %q, commands are: %s", name, strings.Join(r.Commands(), ", "))
	}

	out, err := h(ctx, caller, args)
	if err != nil {
		r.log.Warn("command failed", "command", name, "caller", caller, "err", err)
		return apperr.Display(err)
	}
	return out
}

// Commands returns the registered command names, sorted.
func (r *Router) Commands() []string {
	names := make([]string, 0, len(r.handlers))
	for name := range r.handlers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// noArgs adapts a zero-argument service call; extra arguments are ignored
// so chat mentions after the command do not break it.
func noArgs(f func(ctx context.Context, caller int64) (string, error)) Handler {
	return func(ctx context.Context, caller int64, _ []string) (string, error) {
		return f(ctx, caller)
	}
}

// challenge @<user> <rating> [tags...]
func (r *Router) challenge(ctx context.Context, caller int64, args []string) (string, error) {
	if len(args) < 2 {
		return "", apperr.Validationf("usage: challenge @<user> <rating> [tags...]")
	}
	opponent, err := parseUserRef(args[0])
	if err != nil {
		return "", err
	}
	rating, err := parseRating(args[1])
	if err != nil {
		return "", err
	}
	return r.svc.Challenge(ctx, caller, opponent, rating, args[2:])
}

// bind <handle>
func (r *Router) bind(ctx context.Context, caller int64, args []string) (string, error) {
	if len(args) != 1 {
		return "", apperr.Validationf("usage: bind <handle>")
	}
	return r.svc.Bind(ctx, caller, args[0])
}

// problem <rating> [tags...]
func (r *Router) problem(ctx context.Context, caller int64, args []string) (string, error) {
	if len(args) < 1 {
		return "", apperr.Validationf("usage: problem <rating> [tags...]")
	}
	rating, err := parseRating(args[0])
	if err != nil {
		return "", err
	}
	return r.svc.RandomProblem(ctx, caller, args[1:], rating)
}

// recommend [easy|moderate|difficult] [-c <count>] [-r <rating>] [-e] [tags...]
func (r *Router) recommend(ctx context.Context, caller int64, args []string) (string, error) {
	opts := duel.RecommendOptions{}
	for i := 0; i < len(args); i++ {
		arg := strings.ToLower(args[i])
		switch arg {
		case duel.DifficultyEasy, duel.DifficultyModerate, duel.DifficultyDifficult:
			if opts.Difficulty != "" {
				return "", apperr.Validationf("pick one difficulty, not several")
			}
			opts.Difficulty = arg
		case "-c":
			n, ferr := flagValue(args, &i, "-c")
			if ferr != nil {
				return "", ferr
			}
			count, cerr := strconv.Atoi(n)
			if cerr != nil || count < 1 {
				return "", apperr.Validationf("-c wants a positive number, got %q", n)
			}
			opts.Count = count
		case "-r":
			n, ferr := flagValue(args, &i, "-r")
			if ferr != nil {
				return "", ferr
			}
			rating, rerr := parseRating(n)
			if rerr != nil {
				return "", rerr
			}
			if rerr := tags.ValidateRating(rating); rerr != nil {
				return "", rerr
			}
			opts.Rating = rating
		case "-e":
			opts.ExcludeSolved = true
		default:
			opts.Tags = append(opts.Tags, args[i])
		}
	}
	return r.svc.Recommend(ctx, caller, opts)
}

func flagValue(args []string, i *int, flag string) (string, error) {
	if *i+1 >= len(args) {
		return "", apperr.Validationf("%s wants a value", flag)
	}
	*i++
	return args[*i], nil
}

// parseUserRef accepts a chat mention ("@123456") or a bare numeric id.
func parseUserRef(s string) (int64, error) {
	s = strings.TrimPrefix(s, "@")
	qq, err := strconv.ParseInt(s, 10, 64)
	if err != nil || qq <= 0 {
		return 0, apperr.Validationf("cannot read %q as a user, mention them like @123456", s)
	}
	return qq, nil
}

func parseRating(s string) (int, error) {
	rating, err := strconv.Atoi(s)
	if err != nil {
		return 0, apperr.Validationf("cannot read %q as a rating", s)
	}
	return rating, nil
}
