package app

import (
	"log/slog"

	"gorm.io/gorm"

	"github.com/acmduel/duelbot/internal/cache"
	"github.com/acmduel/duelbot/internal/catalog"
	"github.com/acmduel/duelbot/internal/config"
	"github.com/acmduel/duelbot/internal/judge"
)

// AppContext holds shared dependencies (DB, Redis, judge client, catalog,
// logger). Handlers receive it instead of reaching for globals.
type AppContext struct {
	Cfg        *config.Config
	DB         *gorm.DB
	RedisCache *cache.RedisCache
	Judge      *judge.Client
	Catalog    *catalog.Catalog
	Logger     *slog.Logger
}

// New creates a new AppContext
func New(cfg *config.Config, db *gorm.DB, rdb *cache.RedisCache, jc *judge.Client, cat *catalog.Catalog, logger *slog.Logger) *AppContext {
	return &AppContext{
		Cfg:        cfg,
		DB:         db,
		RedisCache: rdb,
		Judge:      jc,
		Catalog:    cat,
		Logger:     logger,
	}
}
