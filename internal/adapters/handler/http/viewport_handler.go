package http

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/comitanigiacomo/kanso-grid/internal/core/clock"
	"github.com/comitanigiacomo/kanso-grid/internal/core/domain"
	"github.com/comitanigiacomo/kanso-grid/internal/core/viewport"
)

type ViewportHandler struct {
	store viewport.Store
	clock clock.Clock
	loc   *time.Location
}

func NewViewportHandler(store viewport.Store, clk clock.Clock, loc *time.Location) *ViewportHandler {
	if loc == nil {
		loc = time.Local
	}
	if clk == nil {
		clk = clock.Real()
	}
	return &ViewportHandler{
		store: store,
		clock: clk,
		loc:   loc,
	}
}

type saveViewportRequest struct {
	X     float64     `json:"x"`
	Y     float64     `json:"y"`
	Today domain.Date `json:"today"`
}

func (h *ViewportHandler) RegisterRoutes(r *gin.RouterGroup) {
	vp := r.Group("/viewport")
	{
		vp.GET("", h.Open)
		vp.PUT("", h.Save)
		vp.GET("/state", h.GetState)
		vp.PUT("/state", h.PutState)
	}
}

func (h *ViewportHandler) today() domain.Date {
	return domain.DateOf(h.clock.Now().In(h.loc))
}

func floatQuery(c *gin.Context, name string) (float64, bool) {
	raw := c.Query(name)
	if raw == "" {
		return 0, true
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil || v < 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid " + name})
		return 0, false
	}
	return v, true
}

// Open returns the position the grid should open at and records the visit.
func (h *ViewportHandler) Open(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}

	today, ok := dateQuery(c, "today", h.today())
	if !ok {
		return
	}
	todayIndex, err := strconv.Atoi(c.DefaultQuery("today_index", "0"))
	if err != nil || todayIndex < 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid today_index"})
		return
	}
	width, ok := floatQuery(c, "viewport_width")
	if !ok {
		return
	}
	cellSize, ok := floatQuery(c, "cell_size")
	if !ok {
		return
	}

	p := viewport.NewPersister(h.store, userID, 0, h.clock)
	defer p.Close()

	pos, err := p.Restore(c.Request.Context(), today, todayIndex, width, cellSize)
	if err != nil {
		handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, pos)
}

func (h *ViewportHandler) Save(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}

	var req saveViewportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if req.Today.IsZero() {
		req.Today = h.today()
	}

	state := viewport.Saved{LastOpened: req.Today, Offset: &viewport.Offset{X: req.X, Y: req.Y}}
	if err := h.store.SaveViewport(c.Request.Context(), userID, state); err != nil {
		handleError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *ViewportHandler) GetState(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}

	state, err := h.store.LoadViewport(c.Request.Context(), userID)
	if err != nil {
		handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, state)
}

func (h *ViewportHandler) PutState(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}

	var state viewport.Saved
	if err := c.ShouldBindJSON(&state); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.store.SaveViewport(c.Request.Context(), userID, state); err != nil {
		handleError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
