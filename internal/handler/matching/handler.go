package matching

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/nidahp/portal-api/internal/handler"
	"github.com/nidahp/portal-api/internal/middleware"
	"github.com/nidahp/portal-api/internal/model"
	matchingService "github.com/nidahp/portal-api/internal/service/matching"
)

type Handler struct {
	service matchingService.MatchingServicer
}

func NewHandler(service matchingService.MatchingServicer) *Handler {
	return &Handler{service: service}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	matching := r.Group("/matching", middleware.RequireRole(model.RoleAdmin))
	{
		matching.POST("/run", h.Run)
		matching.GET("/preview", h.Preview)
	}
}

// Run computes proposals over the current registrations and stores them.
func (h *Handler) Run(c *gin.Context) {
	report, err := h.service.Run(c.Request.Context())
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, handler.NewSuccessResponse(report))
}

// Preview computes proposals without storing them.
func (h *Handler) Preview(c *gin.Context) {
	res, err := h.service.Compute(c.Request.Context())
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, handler.NewSuccessResponse(res))
}
