package main

import (
	"bufio"
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	"github.com/robfig/cron/v3"

	"github.com/acmduel/duelbot/internal/app"
	"github.com/acmduel/duelbot/internal/cache"
	"github.com/acmduel/duelbot/internal/catalog"
	"github.com/acmduel/duelbot/internal/command"
	"github.com/acmduel/duelbot/internal/config"
	"github.com/acmduel/duelbot/internal/db"
	"github.com/acmduel/duelbot/internal/judge"
	"github.com/acmduel/duelbot/internal/logger"
	"github.com/acmduel/duelbot/internal/ratelimit"
	"github.com/acmduel/duelbot/internal/service/duel"
)

func main() {
	cfg := config.New()

	// Init logger (global singleton)
	logger.InitFromConfig(cfg)
	log := logger.L()

	// Init DB
	database, err := db.NewDB(cfg)
	if err != nil {
		log.Error("failed to init db", "err", err)
		return
	}

	// Init Redis
	redisCache := cache.NewRedisCache(cfg)
	if err := redisCache.Ping(context.Background()); err != nil {
		log.Error("failed to connect to redis", "err", err)
		return
	}

	// Judge client behind the shared rate limiter
	limiter := ratelimit.New(cfg.Judge.CallGap, cfg.Judge.Burst)
	client := judge.NewClient(cfg.Judge.BaseURL, limiter, log)

	// Warm the catalog once, then refresh on the cron schedule
	cat := catalog.New(client, catalog.LogNotifier{Log: log}, cfg.Duel.RefreshRetries, log)
	cat.RefreshWithRetry(context.Background())

	scheduler := cron.New()
	if _, err := scheduler.AddFunc(cfg.Duel.RefreshSpec, func() {
		cat.RefreshWithRetry(context.Background())
	}); err != nil {
		log.Error("bad refresh schedule", "spec", cfg.Duel.RefreshSpec, "err", err)
		return
	}
	scheduler.Start()
	defer scheduler.Stop()

	appCtx := app.New(cfg, database, redisCache, client, cat, log)
	router := command.NewRouter(duel.NewDuelService(appCtx), log)

	log.Info("duel engine up", "catalog_size", cat.Size(), "commands", len(router.Commands()))
	runConsole(router, log)
}

// runConsole reads "<user-id> <command> [args...]" lines from stdin and
// prints the reply, standing in for a chat transport.
func runConsole(router *command.Router, log *slog.Logger) {
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-stop
		log.Info("shutting down")
		os.Exit(0)
	}()

	scanner := bufio.NewScanner(os.Stdin)
	fmt.Println("ready, talk to me: <user-id> <command> [args...]")
	for scanner.Scan() {
		fields := strings.Fields(scanner.Text())
		if len(fields) < 2 {
			fmt.Println("expected: <user-id> <command> [args...]")
			continue
		}
		caller, err := strconv.ParseInt(fields[0], 10, 64)
		if err != nil {
			fmt.Printf("bad user id %q\n", fields[0])
			continue
		}
		fmt.Println(router.Dispatch(context.Background(), fields[1], caller, fields[2:]))
	}
}
