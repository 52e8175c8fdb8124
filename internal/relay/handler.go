package relay

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/eleven-am/live-translate/internal/shared"
	"github.com/labstack/echo/v4"
)

type Handler struct {
	cfg     Config
	deps    Deps
	manager *Manager
	logger  *slog.Logger
}

func NewHandler(cfg Config, deps Deps, manager *Manager, logger *slog.Logger) *Handler {
	return &Handler{
		cfg:     cfg.withDefaults(),
		deps:    deps,
		manager: manager,
		logger:  logger.With("component", "relay"),
	}
}

// RegisterRoutes mounts the websocket endpoint at the root path and lists live sessions.
func (h *Handler) RegisterRoutes(e *echo.Echo) {
	e.GET("/", h.HandleConnect)
	e.GET("/relay/sessions", h.ListSessions)
	e.GET("/relay/sessions/:id", h.GetSession)
}

func (h *Handler) HandleConnect(c echo.Context) error {
	ws, err := upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		h.logger.Error("websocket upgrade failed", "error", err)
		return nil
	}

	conn := NewConn(ws, h.cfg.MaxMessageSize, h.logger)
	sess := NewSession(conn, h.cfg, h.deps, h.logger)

	h.manager.Add(sess)
	defer h.manager.Remove(sess.ID())

	h.logger.Info("client connected", "session_id", sess.ID(), "remote_addr", conn.RemoteAddr())

	err = sess.Run(c.Request().Context())
	if errors.Is(err, ErrProtocol) {
		h.logger.Warn("client closed for protocol violation", "session_id", sess.ID(), "error", err)
	} else if err != nil {
		h.logger.Error("session ended with error", "session_id", sess.ID(), "error", err)
	}

	h.logger.Info("client disconnected", "session_id", sess.ID())
	return nil
}

type SessionsResponse struct {
	Total    int    `json:"total"`
	Sessions []Info `json:"sessions"`
}

func (h *Handler) ListSessions(c echo.Context) error {
	sessions := h.manager.List()
	return c.JSON(http.StatusOK, SessionsResponse{Total: len(sessions), Sessions: sessions})
}

func (h *Handler) GetSession(c echo.Context) error {
	sess, ok := h.manager.Get(c.Param("id"))
	if !ok {
		return shared.NotFound("session_not_found", "no live session with that id")
	}
	return c.JSON(http.StatusOK, sess.Info())
}
