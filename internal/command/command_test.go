package command

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/acmduel/duelbot/internal/app"
	"github.com/acmduel/duelbot/internal/cache"
	"github.com/acmduel/duelbot/internal/catalog"
	"github.com/acmduel/duelbot/internal/config"
	"github.com/acmduel/duelbot/internal/db"
	"github.com/acmduel/duelbot/internal/judge"
	"github.com/acmduel/duelbot/internal/ratelimit"
	"github.com/acmduel/duelbot/internal/service/duel"
)

func newRouter(t *testing.T) *Router {
	gdb, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.Migrate(gdb))

	mr := miniredis.RunT(t)
	rc := &cache.RedisCache{Client: redis.NewClient(&redis.Options{Addr: mr.Addr()})}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var result any
		if r.URL.Path == "/problemset.problems" {
			result = map[string]any{"problems": []judge.Problem{
				{ContestID: 1500, Index: "B", Rating: 1500, Tags: []string{"dp"}},
			}}
		} else {
			result = []judge.Submission{}
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"status": "OK", "result": result})
	}))
	t.Cleanup(srv.Close)

	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	client := judge.NewClient(srv.URL, ratelimit.New(time.Millisecond, 4), log)
	cat := catalog.New(client, catalog.LogNotifier{Log: log}, 1, log)

	cfg := &config.Config{}
	cfg.Duel.BindWindow = 120 * time.Second
	cfg.Duel.MaxDailyRating = 2100

	svc := duel.NewDuelService(app.New(cfg, gdb, rc, client, cat, log))
	return NewRouter(svc, log)
}

func TestDispatchUnknownCommand(t *testing.T) {
	r := newRouter(t)
	out := r.Dispatch(context.Background(), "frobnicate", 100, nil)
	assert.Contains(t, out, "unknown command")
	assert.Contains(t, out, "challenge")
}

func TestDispatchCollapsesErrorsToText(t *testing.T) {
	r := newRouter(t)
	ctx := context.Background()

	// Validation text surfaces verbatim.
	out := r.Dispatch(ctx, "challenge", 100, []string{"@100", "1500"})
	assert.Equal(t, "you cannot challenge yourself", out)

	// Conflict text surfaces verbatim.
	out = r.Dispatch(ctx, "judge", 100, nil)
	assert.Equal(t, "you are not in a duel", out)
}

func TestDispatchCaseInsensitiveName(t *testing.T) {
	r := newRouter(t)
	out := r.Dispatch(context.Background(), "RANKLIST", 100, nil)
	assert.Contains(t, out, "rating board")
}

func TestChallengeArgParsing(t *testing.T) {
	r := newRouter(t)
	ctx := context.Background()

	out := r.Dispatch(ctx, "challenge", 100, nil)
	assert.Contains(t, out, "usage:")

	out = r.Dispatch(ctx, "challenge", 100, []string{"bob", "1500"})
	assert.Contains(t, out, "@123456")

	out = r.Dispatch(ctx, "challenge", 100, []string{"@200", "soon"})
	assert.Contains(t, out, "rating")
}

func TestProblemCommand(t *testing.T) {
	r := newRouter(t)
	out := r.Dispatch(context.Background(), "problem", 100, []string{"1500", "dp"})
	assert.Contains(t, out, "/1500/B")
}

func TestRecommendFlagParsing(t *testing.T) {
	r := newRouter(t)
	ctx := context.Background()

	out := r.Dispatch(ctx, "recommend", 100, []string{"easy", "difficult"})
	assert.Contains(t, out, "one difficulty")

	out = r.Dispatch(ctx, "recommend", 100, []string{"-c"})
	assert.Contains(t, out, "-c wants a value")

	out = r.Dispatch(ctx, "recommend", 100, []string{"-c", "zero"})
	assert.Contains(t, out, "positive number")

	out = r.Dispatch(ctx, "recommend", 100, []string{"-r", "1337"})
	assert.Contains(t, out, "multiple of 100")
}

func TestBindCommandRoundTrip(t *testing.T) {
	r := newRouter(t)
	ctx := context.Background()

	out := r.Dispatch(ctx, "bind", 100, nil)
	assert.Contains(t, out, "usage: bind")

	out = r.Dispatch(ctx, "bind", 100, []string{"alice"})
	assert.Contains(t, out, "alice")
	assert.Contains(t, out, "problemset/problem/1/A")

	// The fake judge has no submissions for alice, so finishing fails
	// with the collapsed fetch message.
	out = r.Dispatch(ctx, "finish_bind", 100, nil)
	assert.Equal(t, "query failed, please try again later", out)
}
