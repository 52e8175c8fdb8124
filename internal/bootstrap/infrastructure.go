package bootstrap

import (
	"context"
	"log/slog"
	"strings"

	"github.com/redis/go-redis/v9"
	"go.uber.org/fx"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const sqlitePrefix = "sqlite:"

// ProvideRedisClient returns nil when REDIS_ADDR is unset; session records are then skipped.
func ProvideRedisClient(lc fx.Lifecycle, cfg *Config, log *slog.Logger) *redis.Client {
	if cfg.RedisAddr == "" {
		log.Info("redis disabled, session records will not be kept")
		return nil
	}
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			return client.Close()
		},
	})
	return client
}

// ProvideDatabase returns nil when DATABASE_DSN is unset; translation history is then skipped.
// A DSN starting with "sqlite:" opens a local sqlite file instead of postgres.
func ProvideDatabase(cfg *Config, log *slog.Logger) (*gorm.DB, error) {
	if cfg.DatabaseDSN == "" {
		log.Info("database disabled, translation history will not be kept")
		return nil, nil
	}
	return openDatabase(cfg.DatabaseDSN)
}

func openDatabase(dsn string) (*gorm.DB, error) {
	gormCfg := &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	}
	if path, ok := strings.CutPrefix(dsn, sqlitePrefix); ok {
		return gorm.Open(sqlite.Open(path), gormCfg)
	}
	return gorm.Open(postgres.Open(dsn), gormCfg)
}

var InfrastructureModule = fx.Options(
	fx.Provide(
		ProvideRedisClient,
		ProvideDatabase,
	),
)
