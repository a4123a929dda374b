package http

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/comitanigiacomo/kanso-grid/internal/core/services"
)

// maxImportBytes bounds the request body accepted by POST /import.
const maxImportBytes = 16 << 20

type PortabilityHandler struct {
	svc *services.PortabilityService
}

func NewPortabilityHandler(svc *services.PortabilityService) *PortabilityHandler {
	return &PortabilityHandler{svc: svc}
}

func (h *PortabilityHandler) RegisterRoutes(r *gin.RouterGroup) {
	r.GET("/export", h.Export)
	r.POST("/import", h.Import)
}

func (h *PortabilityHandler) Export(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}

	file, err := h.svc.Export(c.Request.Context(), userID)
	if err != nil {
		handleError(c, err)
		return
	}

	name := fmt.Sprintf("kanso-export-%s.json", file.ExportedAt.Format("2006-01-02"))
	c.Header("Content-Disposition", `attachment; filename="`+name+`"`)
	c.JSON(http.StatusOK, file)
}

func (h *PortabilityHandler) Import(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}

	body := http.MaxBytesReader(c.Writer, c.Request.Body, maxImportBytes)
	file, err := services.Decode(body)
	if err != nil {
		handleError(c, err)
		return
	}

	res, err := h.svc.Import(c.Request.Context(), userID, file)
	if err != nil {
		handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, res)
}
