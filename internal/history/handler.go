package history

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
	return &Handler{store: store, logger: logger}
}

type ListResponse struct {
	Total   int      `json:"total"`
	Entries []*Entry `json:"entries"`
}

func (h *Handler) RegisterRoutes(g *echo.Group) {
	g.GET("/history", h.Recent)
	g.GET("/history/:id", h.Get)
	g.GET("/sessions/:id/history", h.BySession)
}

const (
	defaultLimit = 50
	maxLimit     = 500
)

func limitParam(c echo.Context) (int, error) {
	v := c.QueryParam("limit")
	if v == "" {
		return defaultLimit, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 || n > maxLimit {
		return 0, shared.NewAPIError("invalid_limit", "limit must be a positive integer").
			WithDetails(map[string]int{"max": maxLimit}).
			ToHTTP(http.StatusBadRequest)
	}
	return n, nil
}

func (h *Handler) Recent(c echo.Context) error {
	limit, err := limitParam(c)
	if err != nil {
		return err
	}
	entries, err := h.store.Recent(c.Request().Context(), limit)
	if err != nil {
		h.logger.Error("failed to list history", "error", err)
		return shared.InternalError("list_failed", "failed to list history")
	}
	return c.JSON(http.StatusOK, ListResponse{Total: len(entries), Entries: nonNil(entries)})
}

func (h *Handler) Get(c echo.Context) error {
	e, err := h.store.GetByID(c.Request().Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return shared.NotFound("entry_not_found", "history entry not found")
		}
		h.logger.Error("failed to get history entry", "error", err)
		return shared.InternalError("get_failed", "failed to get history entry")
	}
	return c.JSON(http.StatusOK, e)
}

func (h *Handler) BySession(c echo.Context) error {
	limit, err := limitParam(c)
	if err != nil {
		return err
	}
	entries, err := h.store.ListBySession(c.Request().Context(), c.Param("id"), limit)
	if err != nil {
		h.logger.Error("failed to list session history", "error", err, "session_id", c.Param("id"))
		return shared.InternalError("list_failed", "failed to list history")
	}
	return c.JSON(http.StatusOK, ListResponse{Total: len(entries), Entries: nonNil(entries)})
}

func nonNil(entries []*Entry) []*Entry {
	if entries == nil {
		return []*Entry{}
	}
	return entries
}
