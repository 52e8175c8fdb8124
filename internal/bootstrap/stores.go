package bootstrap

import (
	"log/slog"

	"github.com/eleven-am/live-translate/internal/history"
	"github.com/eleven-am/live-translate/internal/session"
	"github.com/redis/go-redis/v9"
	"go.uber.org/fx"
	"gorm.io/gorm"
)

func ProvideSessionStore(redisClient *redis.Client) *session.Store {
	if redisClient == nil {
		return nil
	}
	return session.NewStore(redisClient)
}

func ProvideSessionRecorder(store *session.Store, logger *slog.Logger) *session.Recorder {
	if store == nil {
		return nil
	}
	return session.NewRecorder(store, logger)
}

func ProvideHistoryStore(db *gorm.DB) *history.Store {
	if db == nil {
		return nil
	}
	return history.NewStore(db)
}

func RunMigrations(historyStore *history.Store) error {
	if historyStore == nil {
		return nil
	}
	return historyStore.Migrate()
}

var StoresModule = fx.Options(
	fx.Provide(
		ProvideSessionStore,
		ProvideSessionRecorder,
		ProvideHistoryStore,
	),
	fx.Invoke(RunMigrations),
)
