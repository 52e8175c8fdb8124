package bootstrap

import (
	"log/slog"
	"os"

	"github.com/eleven-am/live-translate/internal/history"
	"github.com/eleven-am/live-translate/internal/relay"
	"github.com/eleven-am/live-translate/internal/session"
	"github.com/labstack/echo/v4"
	"go.uber.org/fx"
)

type HandlerParams struct {
	fx.In

	RelayHandler   *relay.Handler
	SessionHandler *session.Handler `optional:"true"`
	HistoryHandler *history.Handler `optional:"true"`
}

func RegisterRoutes(e *echo.Echo, params HandlerParams) {
	params.RelayHandler.RegisterRoutes(e)

	api := e.Group("/v1")
	if params.SessionHandler != nil {
		params.SessionHandler.RegisterRoutes(api.Group("/relay"))
	}
	if params.HistoryHandler != nil {
		params.HistoryHandler.RegisterRoutes(api)
	}
}

func parseLogLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func ProvideLogger(cfg *Config) *slog.Logger {
	return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: parseLogLevel(cfg.LogLevel),
	}))
}

func ProvideSessionHandler(store *session.Store, logger *slog.Logger) *session.Handler {
	if store == nil {
		return nil
	}
	return session.NewHandler(store, logger.With("handler", "session"))
}

func ProvideHistoryHandler(store *history.Store, logger *slog.Logger) *history.Handler {
	if store == nil {
		return nil
	}
	return history.NewHandler(store, logger.With("handler", "history"))
}

var HandlersModule = fx.Options(
	fx.Provide(
		ProvideSessionHandler,
		ProvideHistoryHandler,
	),
	fx.Invoke(RegisterRoutes),
)
