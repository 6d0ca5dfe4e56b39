package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/sma-adp-curriculum/internal/dto"
	"github.com/noah-isme/sma-adp-curriculum/internal/models"
	"github.com/noah-isme/sma-adp-curriculum/internal/service"
	appErrors "github.com/noah-isme/sma-adp-curriculum/pkg/errors"
	"github.com/noah-isme/sma-adp-curriculum/pkg/response"
)

type materialService interface {
	ListMaterials(ctx context.Context, subjectID models.ID, refresh bool) (service.Fetched[[]models.Material], error)
	GetMaterial(ctx context.Context, id models.ID, refresh bool) (service.Fetched[models.Material], error)
	CreateMaterial(ctx context.Context, req dto.CreateMaterialRequest) (*models.Material, error)
	UpdateMaterial(ctx context.Context, id models.ID, req dto.UpdateMaterialRequest) (*models.Material, error)
	DeleteMaterial(ctx context.Context, id models.ID) error
	ReorderMaterials(ctx context.Context, subjectID models.ID, req dto.ReorderMaterialsRequest) error
}

// MaterialHandler exposes learning materials.
type MaterialHandler struct {
	service materialService
}

// NewMaterialHandler builds a material handler.
func NewMaterialHandler(service materialService) *MaterialHandler {
	return &MaterialHandler{service: service}
}

// ListBySubject godoc
// @Summary List materials of a subject
// @Tags Materials
// @Produce json
// @Param id path string true "Subject ID"
// @Success 200 {object} response.Envelope
// @Router /subjects/{id}/materials [get]
func (h *MaterialHandler) ListBySubject(c *gin.Context) {
	res, err := h.service.ListMaterials(c.Request.Context(), pathID(c, "id"), refreshRequested(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, res.Data, cacheMeta(c, res))
}

// Get godoc
// @Summary Get material
// @Tags Materials
// @Produce json
// @Param id path string true "Material ID"
// @Success 200 {object} response.Envelope
// @Router /materials/{id} [get]
func (h *MaterialHandler) Get(c *gin.Context) {
	res, err := h.service.GetMaterial(c.Request.Context(), pathID(c, "id"), refreshRequested(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, res.Data, cacheMeta(c, res))
}

// Create godoc
// @Summary Create material
// @Tags Materials
// @Accept json
// @Produce json
// @Param payload body dto.CreateMaterialRequest true "Material payload"
// @Success 201 {object} response.Envelope
// @Router /materials [post]
func (h *MaterialHandler) Create(c *gin.Context) {
	var req dto.CreateMaterialRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid material payload"))
		return
	}
	created, err := h.service.CreateMaterial(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, created)
}

// Update godoc
// @Summary Update material
// @Tags Materials
// @Accept json
// @Produce json
// @Param id path string true "Material ID"
// @Param payload body dto.UpdateMaterialRequest true "Material payload"
// @Success 200 {object} response.Envelope
// @Router /materials/{id} [put]
func (h *MaterialHandler) Update(c *gin.Context) {
	var req dto.UpdateMaterialRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid material payload"))
		return
	}
	updated, err := h.service.UpdateMaterial(c.Request.Context(), pathID(c, "id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, updated)
}

// Delete godoc
// @Summary Delete material
// @Tags Materials
// @Param id path string true "Material ID"
// @Success 204
// @Router /materials/{id} [delete]
func (h *MaterialHandler) Delete(c *gin.Context) {
	if err := h.service.DeleteMaterial(c.Request.Context(), pathID(c, "id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// Reorder godoc
// @Summary Reorder materials of a subject
// @Tags Materials
// @Accept json
// @Param id path string true "Subject ID"
// @Param payload body dto.ReorderMaterialsRequest true "Material order"
// @Success 204
// @Router /subjects/{id}/materials/reorder [post]
func (h *MaterialHandler) Reorder(c *gin.Context) {
	var req dto.ReorderMaterialsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid reorder payload"))
		return
	}
	if err := h.service.ReorderMaterials(c.Request.Context(), pathID(c, "id"), req); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
