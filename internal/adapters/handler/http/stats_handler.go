package http

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/comitanigiacomo/kanso-grid/internal/core/analytics"
	"github.com/comitanigiacomo/kanso-grid/internal/core/domain"
	"github.com/comitanigiacomo/kanso-grid/internal/core/services"
)

type StatsHandler struct {
	svc *services.AnalyticsService
	loc *time.Location
}

func NewStatsHandler(svc *services.AnalyticsService, loc *time.Location) *StatsHandler {
	if loc == nil {
		loc = time.Local
	}
	return &StatsHandler{svc: svc, loc: loc}
}

type connectionsResponse struct {
	Sufficient  bool                   `json:"sufficient"`
	Connections []analytics.Connection `json:"connections"`
}

func (h *StatsHandler) RegisterRoutes(r *gin.RouterGroup) {
	stats := r.Group("/stats")
	{
		stats.GET("/overview", h.Overview)
		stats.GET("/habits/:id", h.Habit)
		stats.GET("/connections", h.Connections)
		stats.GET("/streaks", h.Streaks)
	}
}

func (h *StatsHandler) Overview(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}

	today, ok := dateQuery(c, "today", domain.Today(h.loc))
	if !ok {
		return
	}

	period := 0
	if raw := c.Query("period"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "period must be a number of days"})
			return
		}
		period = n
	}

	ov, err := h.svc.Overview(c.Request.Context(), userID, today, period)
	if err != nil {
		handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, ov)
}

func (h *StatsHandler) Habit(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}

	today, ok := dateQuery(c, "today", domain.Today(h.loc))
	if !ok {
		return
	}

	detail, err := h.svc.Habit(c.Request.Context(), userID, c.Param("id"), today)
	if err != nil {
		handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, detail)
}

func (h *StatsHandler) Connections(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}

	today, ok := dateQuery(c, "today", domain.Today(h.loc))
	if !ok {
		return
	}

	conns, sufficient, err := h.svc.Connections(c.Request.Context(), userID, today)
	if err != nil {
		handleError(c, err)
		return
	}
	if conns == nil {
		conns = []analytics.Connection{}
	}

	c.JSON(http.StatusOK, connectionsResponse{Sufficient: sufficient, Connections: conns})
}

func (h *StatsHandler) Streaks(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}

	snaps, err := h.svc.Streaks(c.Request.Context(), userID)
	if err != nil {
		handleError(c, err)
		return
	}
	if snaps == nil {
		snaps = []domain.StreakSnapshot{}
	}

	c.JSON(http.StatusOK, snaps)
}
