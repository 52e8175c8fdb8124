package session

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/eleven-am/live-translate/internal/shared"
	"github.com/labstack/echo/v4"
)

type Handler struct {
	store  *Store
	logger *slog.Logger
}

func NewHandler(store *Store, logger *slog.Logger) *Handler {
	return &Handler{
		store:  store,
		logger: logger,
	}
}

type SessionsResponse struct {
	Total    int        `json:"total"`
	Sessions []*Session `json:"sessions"`
}

type MetricsResponse struct {
	Hours   int        `json:"hours"`
	Metrics []*Metrics `json:"metrics"`
}

func (h *Handler) RegisterRoutes(g *echo.Group) {
	g.GET("/sessions", h.ListActive)
	g.GET("/sessions/:id", h.GetSession)
	g.GET("/metrics", h.GetMetrics)
}

func (h *Handler) ListActive(c echo.Context) error {
	sessions, err := h.store.ListActive(c.Request().Context())
	if err != nil {
		h.logger.Error("failed to list sessions", "error", err)
		return shared.InternalError("list_failed", "failed to list sessions")
	}
	if sessions == nil {
		sessions = []*Session{}
	}
	return c.JSON(http.StatusOK, SessionsResponse{Total: len(sessions), Sessions: sessions})
}

func (h *Handler) GetSession(c echo.Context) error {
	sess, err := h.store.GetSession(c.Request().Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return shared.NotFound("session_not_found", "session not found")
		}
		h.logger.Error("failed to get session", "error", err, "session_id", c.Param("id"))
		return shared.InternalError("get_failed", "failed to get session")
	}
	return c.JSON(http.StatusOK, sess)
}

func (h *Handler) GetMetrics(c echo.Context) error {
	hours := 24
	if hoursStr := c.QueryParam("hours"); hoursStr != "" {
		if hr, err := strconv.Atoi(hoursStr); err == nil && hr > 0 && hr <= 168 {
			hours = hr
		}
	}

	metrics, err := h.store.GetMetrics(c.Request().Context(), hours)
	if err != nil {
		h.logger.Error("failed to get metrics", "error", err)
		return shared.InternalError("get_metrics_failed", "failed to get metrics")
	}
	if metrics == nil {
		metrics = []*Metrics{}
	}
	return c.JSON(http.StatusOK, MetricsResponse{Hours: hours, Metrics: metrics})
}
