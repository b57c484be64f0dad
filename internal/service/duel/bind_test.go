package duel

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperr "github.com/acmduel/duelbot/internal/errors"
	"github.com/acmduel/duelbot/internal/judge"
)

func canaryProblem() judge.Problem {
	return judge.Problem{ContestID: 1, Index: "A", Rating: 1000}
}

func TestBindHappyPath(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	out, err := f.svc.Bind(ctx, 100, "alice")
	require.NoError(t, err)
	assert.Contains(t, out, "alice")
	assert.Contains(t, out, "problemset/problem/1/A")

	f.judge.pushSubmission("alice", judge.Submission{
		CreationTimeSeconds: time.Now().Unix(),
		Problem:             canaryProblem(),
		Verdict:             judge.VerdictCompileError,
	})

	out, err = f.svc.FinishBind(ctx, 100)
	require.NoError(t, err)
	assert.Contains(t, out, "alice")

	user, err := f.svc.users.Get(ctx, 100)
	require.NoError(t, err)
	require.True(t, user.Bound())
	assert.Equal(t, "alice", *user.CFHandle)

	// The attempt was consumed with the success.
	_, err = f.svc.FinishBind(ctx, 100)
	require.ErrorIs(t, err, apperr.ErrStateConflict)
}

func TestBindRejectsSecondAttempt(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.Bind(ctx, 100, "alice")
	require.NoError(t, err)
	_, err = f.svc.Bind(ctx, 100, "alice2")
	require.ErrorIs(t, err, apperr.ErrStateConflict)
}

func TestBindEmptyHandle(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.Bind(context.Background(), 100, "  ")
	require.ErrorIs(t, err, apperr.ErrValidation)
}

func TestFinishBindWithoutStart(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.FinishBind(context.Background(), 100)
	require.ErrorIs(t, err, apperr.ErrStateConflict)
}

func TestFinishBindChecks(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	cases := []struct {
		name string
		sub  judge.Submission
		want string
	}{
		{
			name: "wrong problem",
			sub: judge.Submission{
				CreationTimeSeconds: time.Now().Unix(),
				Problem:             judge.Problem{ContestID: 1500, Index: "B"},
				Verdict:             judge.VerdictCompileError,
			},
			want: "designated problem",
		},
		{
			name: "still judging",
			sub: judge.Submission{
				CreationTimeSeconds: time.Now().Unix(),
				Problem:             canaryProblem(),
			},
			want: "no verdict",
		},
		{
			name: "wrong verdict",
			sub: judge.Submission{
				CreationTimeSeconds: time.Now().Unix(),
				Problem:             canaryProblem(),
				Verdict:             judge.VerdictOK,
			},
			want: "compile-error",
		},
		{
			name: "submitted before the window opened",
			sub: judge.Submission{
				CreationTimeSeconds: time.Now().Unix() - 3600,
				Problem:             canaryProblem(),
				Verdict:             judge.VerdictCompileError,
			},
			want: "window",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := f.svc.Bind(ctx, 100, "alice")
			require.NoError(t, err)
			f.judge.pushSubmission("alice", tc.sub)

			_, err = f.svc.FinishBind(ctx, 100)
			require.ErrorIs(t, err, apperr.ErrValidation)
			assert.Contains(t, err.Error(), tc.want)

			user, err := f.svc.users.Get(ctx, 100)
			require.NoError(t, err)
			assert.False(t, user.Bound())
		})
	}
}

func TestFinishBindAfterWindowExpiry(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.Bind(ctx, 100, "alice")
	require.NoError(t, err)

	// The redis entry outlives the window only as a GC backstop; once it
	// expires the handshake is simply gone.
	f.mr.FastForward(f.svc.appCtx.Cfg.Duel.BindWindow + 2*time.Minute)

	_, err = f.svc.FinishBind(ctx, 100)
	require.ErrorIs(t, err, apperr.ErrStateConflict)
}

func TestRebindReplacesHandle(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.bindUser(t, 100, "alice")

	_, err := f.svc.Bind(ctx, 100, "alice_smurf")
	require.NoError(t, err)
	f.judge.pushSubmission("alice_smurf", judge.Submission{
		CreationTimeSeconds: time.Now().Unix(),
		Problem:             canaryProblem(),
		Verdict:             judge.VerdictCompileError,
	})

	_, err = f.svc.FinishBind(ctx, 100)
	require.NoError(t, err)

	user, err := f.svc.users.Get(ctx, 100)
	require.NoError(t, err)
	assert.Equal(t, "alice_smurf", *user.CFHandle)
}
