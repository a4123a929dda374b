package http

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/comitanigiacomo/kanso-grid/internal/core/domain"
	"github.com/comitanigiacomo/kanso-grid/internal/core/services"
)

// defaultLogRange is how far back GET /logs reaches when from is omitted.
const defaultLogRange = 30

type LogHandler struct {
	svc *services.LogService
	loc *time.Location
}

func NewLogHandler(svc *services.LogService, loc *time.Location) *LogHandler {
	if loc == nil {
		loc = time.Local
	}
	return &LogHandler{
		svc: svc,
		loc: loc,
	}
}

type setLogRequest struct {
	Status domain.Status `json:"status" binding:"required"`
}

func (h *LogHandler) RegisterRoutes(router *gin.RouterGroup) {
	logs := router.Group("/logs")
	{
		logs.GET("", h.List)
		logs.PUT("/:habit_id/:date", h.Set)
		logs.DELETE("/:habit_id/:date", h.Clear)
	}
}

func (h *LogHandler) List(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}

	to, ok := dateQuery(c, "to", domain.Today(h.loc))
	if !ok {
		return
	}
	from, ok := dateQuery(c, "from", to.AddDays(-(defaultLogRange - 1)))
	if !ok {
		return
	}

	logs, err := h.svc.ListRange(c.Request.Context(), userID, from, to)
	if err != nil {
		handleError(c, err)
		return
	}
	if logs == nil {
		logs = []*domain.LogEntry{}
	}

	c.JSON(http.StatusOK, logs)
}

func (h *LogHandler) Set(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}

	date, err := domain.ParseDate(c.Param("date"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid date format, expected YYYY-MM-DD"})
		return
	}

	var req setLogRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	entry, err := h.svc.Set(c.Request.Context(), userID, c.Param("habit_id"), date, req.Status)
	if err != nil {
		handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, entry)
}

func (h *LogHandler) Clear(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}

	date, err := domain.ParseDate(c.Param("date"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid date format, expected YYYY-MM-DD"})
		return
	}

	deleted, err := h.svc.Clear(c.Request.Context(), userID, c.Param("habit_id"), date)
	if err != nil {
		handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"deleted": deleted})
}
