package interest

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/nidahp/portal-api/internal/handler"
	"github.com/nidahp/portal-api/internal/middleware"
	"github.com/nidahp/portal-api/internal/model"
	interestService "github.com/nidahp/portal-api/internal/service/interest"
	apperrors "github.com/nidahp/portal-api/pkg/errors"
)

type Handler struct {
	service interestService.InterestServicer
}

func NewHandler(service interestService.InterestServicer) *Handler {
	return &Handler{service: service}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	professional := middleware.RequireRole(model.RoleIndividual, model.RoleAssociation)

	r.POST("/needs/:id/interests", professional, h.ExpressInterest)

	me := r.Group("/me", professional)
	{
		me.GET("/engagements", h.ListEngagements)
		me.GET("/trainings", h.ListTrainings)
	}

	r.PUT("/interests/:id/training", middleware.RequireRole(model.RoleAdmin), h.RecordTraining)
}

type trainingRequest struct {
	Title  string `json:"title" binding:"required"`
	Status string `json:"status" binding:"required,training_status"`
}

func (h *Handler) ExpressInterest(c *gin.Context) {
	professionalID, _, _ := middleware.Actor(c)

	needID, err := handler.ParseID(c, "id")
	if err != nil {
		_ = c.Error(err)
		return
	}

	i, err := h.service.Express(c.Request.Context(), professionalID, needID)
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusCreated, handler.NewSuccessResponse(i))
}

func (h *Handler) ListEngagements(c *gin.Context) {
	professionalID, _, _ := middleware.Actor(c)

	list, err := h.service.ListApprovedFor(c.Request.Context(), professionalID)
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, handler.NewSuccessResponse(nonNil(list)))
}

func (h *Handler) ListTrainings(c *gin.Context) {
	professionalID, _, _ := middleware.Actor(c)

	list, err := h.service.ListTrainingsFor(c.Request.Context(), professionalID)
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, handler.NewSuccessResponse(nonNil(list)))
}

func (h *Handler) RecordTraining(c *gin.Context) {
	id, err := handler.ParseID(c, "id")
	if err != nil {
		_ = c.Error(err)
		return
	}

	var req trainingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		_ = c.Error(apperrors.BadRequest("invalid request body", err))
		return
	}

	i, err := h.service.RecordTrainingProgress(c.Request.Context(), id, req.Title, model.TrainingStatus(req.Status))
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, handler.NewSuccessResponse(i))
}

func nonNil(list []*model.InterestView) []*model.InterestView {
	if list == nil {
		return []*model.InterestView{}
	}
	return list
}
