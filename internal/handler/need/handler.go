package need

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/nidahp/portal-api/internal/handler"
	"github.com/nidahp/portal-api/internal/middleware"
	"github.com/nidahp/portal-api/internal/model"
	needService "github.com/nidahp/portal-api/internal/service/need"
	apperrors "github.com/nidahp/portal-api/pkg/errors"
)

type Handler struct {
	service needService.NeedServicer
}

func NewHandler(service needService.NeedServicer) *Handler {
	return &Handler{service: service}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	needs := r.Group("/needs")
	{
		needs.GET("", h.ListNeeds)
		needs.GET("/:id", h.GetNeed)

		owner := needs.Group("", middleware.RequireRole(model.RoleFacility))
		owner.POST("", h.SubmitNeed)
		owner.PUT("/:id", h.UpdateNeed)
		owner.DELETE("/:id", h.DeleteNeed)
	}

	r.GET("/facility/needs", middleware.RequireRole(model.RoleFacility), h.ListFacilityNeeds)
}

type submitNeedRequest struct {
	Description string   `json:"description" binding:"required"`
	Quantity    *int     `json:"quantity"`
	Tags        []string `json:"tags"`
}

type updateNeedRequest struct {
	Description string `json:"description" binding:"required"`
	Quantity    int    `json:"quantity" binding:"required"`
}

type listNeedsQuery struct {
	ProgramType string `form:"program_type" binding:"omitempty,program_type"`
	Search      string `form:"q" binding:"omitempty,max=100"`
}

// needView exposes the stored tag string as a list.
type needView struct {
	*model.Need
	Tags []string `json:"tags"`
}

func newNeedView(n *model.Need) needView {
	return needView{Need: n, Tags: n.TagSet().Sorted()}
}

func (h *Handler) SubmitNeed(c *gin.Context) {
	facilityID, _, _ := middleware.Actor(c)

	var req submitNeedRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		_ = c.Error(apperrors.BadRequest("invalid request body", err))
		return
	}

	quantity := 1
	if req.Quantity != nil {
		quantity = *req.Quantity
	}

	n, err := h.service.Submit(c.Request.Context(), facilityID, req.Description, quantity, req.Tags)
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusCreated, handler.NewSuccessResponse(newNeedView(n)))
}

func (h *Handler) UpdateNeed(c *gin.Context) {
	facilityID, _, _ := middleware.Actor(c)

	id, err := handler.ParseID(c, "id")
	if err != nil {
		_ = c.Error(err)
		return
	}

	var req updateNeedRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		_ = c.Error(apperrors.BadRequest("invalid request body", err))
		return
	}

	n, err := h.service.Update(c.Request.Context(), id, facilityID, req.Description, req.Quantity)
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, handler.NewSuccessResponse(newNeedView(n)))
}

func (h *Handler) DeleteNeed(c *gin.Context) {
	facilityID, _, _ := middleware.Actor(c)

	id, err := handler.ParseID(c, "id")
	if err != nil {
		_ = c.Error(err)
		return
	}

	if err := h.service.Delete(c.Request.Context(), id, facilityID); err != nil {
		_ = c.Error(err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handler) GetNeed(c *gin.Context) {
	id, err := handler.ParseID(c, "id")
	if err != nil {
		_ = c.Error(err)
		return
	}

	n, err := h.service.Get(c.Request.Context(), id)
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, handler.NewSuccessResponse(newNeedView(n)))
}

// ListNeeds backs the programs page: all needs, optionally of one program
// type and matching a description search.
func (h *Handler) ListNeeds(c *gin.Context) {
	var q listNeedsQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		_ = c.Error(apperrors.BadRequest("invalid query", err))
		return
	}

	needs, err := h.service.ListByProgram(c.Request.Context(), model.ProgramType(q.ProgramType), q.Search)
	if err != nil {
		_ = c.Error(err)
		return
	}
	if needs == nil {
		needs = []*model.NeedWithFacility{}
	}
	c.JSON(http.StatusOK, handler.NewSuccessResponse(needs))
}

func (h *Handler) ListFacilityNeeds(c *gin.Context) {
	facilityID, _, _ := middleware.Actor(c)

	needs, err := h.service.ListByFacility(c.Request.Context(), facilityID)
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, handler.NewSuccessResponse(needs))
}
