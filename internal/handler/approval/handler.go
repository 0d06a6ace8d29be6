package approval

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/nidahp/portal-api/internal/handler"
	"github.com/nidahp/portal-api/internal/middleware"
	"github.com/nidahp/portal-api/internal/model"
	approvalService "github.com/nidahp/portal-api/internal/service/approval"
)

type Handler struct {
	service approvalService.ApprovalServicer
}

func NewHandler(service approvalService.ApprovalServicer) *Handler {
	return &Handler{service: service}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	approvals := r.Group("/approvals", middleware.RequireRole(model.RoleAdmin))
	{
		approvals.GET("/pending", h.ListPending)
		approvals.POST("/assignments/:professionalId/approve", h.ApproveAssignment)
		approvals.POST("/assignments/:professionalId/reject", h.RejectAssignment)
		approvals.POST("/interests/:id/approve", h.ApproveInterest)
		approvals.POST("/interests/:id/reject", h.RejectInterest)
	}
}

func (h *Handler) ListPending(c *gin.Context) {
	items, err := h.service.PendingItems(c.Request.Context())
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, handler.NewSuccessResponse(items))
}

func (h *Handler) ApproveAssignment(c *gin.Context) {
	h.decideAssignment(c, h.service.ApproveAssignment)
}

func (h *Handler) RejectAssignment(c *gin.Context) {
	h.decideAssignment(c, h.service.RejectAssignment)
}

func (h *Handler) ApproveInterest(c *gin.Context) {
	h.decideInterest(c, h.service.ApproveInterest)
}

func (h *Handler) RejectInterest(c *gin.Context) {
	h.decideInterest(c, h.service.RejectInterest)
}

func (h *Handler) decideAssignment(c *gin.Context, decide func(ctx context.Context, professionalID int64) (*model.Assignment, error)) {
	id, err := handler.ParseID(c, "professionalId")
	if err != nil {
		_ = c.Error(err)
		return
	}

	a, err := decide(c.Request.Context(), id)
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, handler.NewSuccessResponse(a))
}

func (h *Handler) decideInterest(c *gin.Context, decide func(ctx context.Context, interestID int64) (*model.Interest, error)) {
	id, err := handler.ParseID(c, "id")
	if err != nil {
		_ = c.Error(err)
		return
	}

	i, err := decide(c.Request.Context(), id)
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, handler.NewSuccessResponse(i))
}
