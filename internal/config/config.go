package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Log struct {
		Level     string
		Format    string
		Component string
		Source    bool
	}

	DB struct {
		DSN      string
		Host     string
		Port     string
		User     string
		Password string
		Name     string
	}

	Redis struct {
		Addr     string
		Password string
		DB       int
	}

	Judge struct {
		BaseURL string
		// Minimum gap between two calls to the same named API.
		CallGap time.Duration
		// Calls allowed in flight before callers queue.
		Burst int
	}

	Duel struct {
		// Window for the canary compile-error submission.
		BindWindow time.Duration
		// Daily problems are drawn at or below this rating.
		MaxDailyRating int
		// Cron spec for the wholesale catalog refresh.
		RefreshSpec string
		// Fetch attempts before a refresh escalates to the operator.
		RefreshRetries int
	}
}

func New() *Config {
	// Optional .env for local development; real env vars win.
	_ = godotenv.Load()

	cfg := &Config{}

	// Logger
	cfg.Log.Level = getEnvDefault("LOG_LEVEL", "info")
	cfg.Log.Format = getEnvDefault("LOG_FORMAT", "text")
	cfg.Log.Component = getEnvDefault("LOG_COMPONENT", "duelbot")
	cfg.Log.Source = isTruthy(os.Getenv("LOG_SOURCE"))

	// Database
	cfg.DB.DSN = os.Getenv("MYSQL_DSN")
	if cfg.DB.DSN == "" {
		cfg.DB.Host = getEnvDefault("DB_HOST", "localhost")
		cfg.DB.Port = getEnvDefault("DB_PORT", "3306")
		cfg.DB.User = getEnvDefault("DB_USER", "root")
		cfg.DB.Password = getEnvDefault("DB_PASSWORD", "root")
		cfg.DB.Name = getEnvDefault("DB_NAME", "duelbot")

		cfg.DB.DSN = fmt.Sprintf(
			"%s:%s@tcp(%s:%s)/%s?parseTime=true&charset=utf8mb4&loc=UTC",
			cfg.DB.User, cfg.DB.Password, cfg.DB.Host, cfg.DB.Port, cfg.DB.Name,
		)
	}

	// Redis
	cfg.Redis.Addr = getEnvDefault("REDIS_ADDR", "localhost:6379")
	cfg.Redis.Password = getEnvDefault("REDIS_PASSWORD", "")
	if dbStr := getEnvDefault("REDIS_DB", "0"); dbStr != "" {
		if dbInt, err := strconv.Atoi(dbStr); err == nil {
			cfg.Redis.DB = dbInt
		}
	}

	// Judge API
	cfg.Judge.BaseURL = getEnvDefault("JUDGE_BASE_URL", "https://codeforces.com/api")
	cfg.Judge.CallGap = getEnvDuration("JUDGE_CALL_GAP", 2*time.Second)
	cfg.Judge.Burst = getEnvInt("JUDGE_BURST", 1)

	// Duel engine
	cfg.Duel.BindWindow = getEnvDuration("DUEL_BIND_WINDOW", 120*time.Second)
	cfg.Duel.MaxDailyRating = getEnvInt("DUEL_MAX_DAILY_RATING", 2100)
	cfg.Duel.RefreshSpec = getEnvDefault("DUEL_REFRESH_SPEC", "0 0 * * *")
	cfg.Duel.RefreshRetries = getEnvInt("DUEL_REFRESH_RETRIES", 3)

	return cfg
}

func getEnvDefault(k, def string) string {
	if v := strings.TrimSpace(os.Getenv(k)); v != "" {
		return v
	}
	return def
}

func getEnvInt(k string, def int) int {
	if v := strings.TrimSpace(os.Getenv(k)); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func getEnvDuration(k string, def time.Duration) time.Duration {
	if v := strings.TrimSpace(os.Getenv(k)); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}

func isTruthy(v string) bool {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "1", "true", "yes", "y", "on":
		return true
	}
	return false
}
