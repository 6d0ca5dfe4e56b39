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

type adoptionService interface {
	List(ctx context.Context) (*dto.AdoptionsResponse, error)
	Sync(ctx context.Context) (*dto.AdoptionsResponse, error)
	Adopt(ctx context.Context, id models.ID) (*dto.AdoptionsResponse, error)
	Customize(ctx context.Context, id models.ID, req dto.CustomizeAdoptionRequest) (*dto.AdoptionsResponse, error)
	Skip(ctx context.Context, id models.ID) (*dto.AdoptionsResponse, error)
	ExportHistory(ctx context.Context, format string) (*service.ExportFile, error)
}

// AdoptionHandler exposes the template adoption workflow.
type AdoptionHandler struct {
	service adoptionService
}

// NewAdoptionHandler builds an adoption handler.
func NewAdoptionHandler(service adoptionService) *AdoptionHandler {
	return &AdoptionHandler{service: service}
}

// List godoc
// @Summary Pending adoptions, history and counters
// @Tags Adoptions
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /adoptions [get]
func (h *AdoptionHandler) List(c *gin.Context) {
	view, err := h.service.List(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, view)
}

// Sync godoc
// @Summary Reload adoptions from the server
// @Tags Adoptions
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /adoptions/sync [post]
func (h *AdoptionHandler) Sync(c *gin.Context) {
	view, err := h.service.Sync(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, view)
}

// Adopt godoc
// @Summary Adopt a template as is
// @Tags Adoptions
// @Produce json
// @Param id path string true "Adoption ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /adoptions/{id}/adopt [post]
func (h *AdoptionHandler) Adopt(c *gin.Context) {
	view, err := h.service.Adopt(c.Request.Context(), pathID(c, "id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, view)
}

// Customize godoc
// @Summary Adopt a template with customization notes
// @Tags Adoptions
// @Accept json
// @Produce json
// @Param id path string true "Adoption ID"
// @Param payload body dto.CustomizeAdoptionRequest true "Customization notes"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /adoptions/{id}/customize [post]
func (h *AdoptionHandler) Customize(c *gin.Context) {
	var req dto.CustomizeAdoptionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid customization payload"))
		return
	}
	view, err := h.service.Customize(c.Request.Context(), pathID(c, "id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, view)
}

// Skip godoc
// @Summary Skip a template
// @Tags Adoptions
// @Produce json
// @Param id path string true "Adoption ID"
// @Success 200 {object} response.Envelope
// @Router /adoptions/{id}/skip [post]
func (h *AdoptionHandler) Skip(c *gin.Context) {
	view, err := h.service.Skip(c.Request.Context(), pathID(c, "id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, view)
}

// ExportHistory godoc
// @Summary Export adoption history
// @Tags Adoptions
// @Produce text/csv
// @Produce application/pdf
// @Param format query string false "csv or pdf"
// @Success 200 {file} file
// @Router /adoptions/history/export [get]
func (h *AdoptionHandler) ExportHistory(c *gin.Context) {
	file, err := h.service.ExportHistory(c.Request.Context(), c.Query("format"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.File(c, file.Filename, file.ContentType, file.Content)
}
