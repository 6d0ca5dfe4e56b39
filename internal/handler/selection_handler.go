package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/sma-adp-curriculum/internal/dto"
	"github.com/noah-isme/sma-adp-curriculum/internal/models"
	"github.com/noah-isme/sma-adp-curriculum/internal/selection"
	appErrors "github.com/noah-isme/sma-adp-curriculum/pkg/errors"
	"github.com/noah-isme/sma-adp-curriculum/pkg/response"
)

var selectionLevels = map[string]selection.Level{
	"curriculum":  selection.LevelCurriculum,
	"grade-level": selection.LevelGradeLevel,
	"class":       selection.LevelClass,
	"subject":     selection.LevelSubject,
}

type selectionService interface {
	Selection() selection.State
	Select(ctx context.Context, level selection.Level, ref *selection.Ref) (selection.State, error)
	ClearSelection() selection.State
	EffectiveCurriculumID(ctx context.Context, routeID models.ID) (models.ID, string, error)
	Breadcrumbs() []models.Breadcrumb
}

// SelectionHandler exposes the curriculum -> grade level -> class -> subject selection.
type SelectionHandler struct {
	service selectionService
}

// NewSelectionHandler builds a selection handler.
func NewSelectionHandler(service selectionService) *SelectionHandler {
	return &SelectionHandler{service: service}
}

// Get godoc
// @Summary Current selection
// @Tags Selection
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /selection [get]
func (h *SelectionHandler) Get(c *gin.Context) {
	response.OK(c, dto.SelectionResponse{Selection: h.service.Selection().Tuple()})
}

// Select godoc
// @Summary Select a level
// @Description Setting a level clears every level below it. A null id clears the level.
// @Tags Selection
// @Accept json
// @Produce json
// @Param level path string true "curriculum, grade-level, class or subject"
// @Param payload body dto.SelectRequest true "Selection payload"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /selection/{level} [put]
func (h *SelectionHandler) Select(c *gin.Context) {
	level, ok := selectionLevels[c.Param("level")]
	if !ok {
		response.Error(c, appErrors.Clone(appErrors.ErrNotFound, "unknown selection level"))
		return
	}
	var req dto.SelectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid selection payload"))
		return
	}
	var ref *selection.Ref
	if req.ID != nil {
		ref = &selection.Ref{ID: *req.ID, ParentID: req.ParentID}
	}
	state, err := h.service.Select(c.Request.Context(), level, ref)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, dto.SelectionResponse{Selection: state.Tuple()})
}

// Clear godoc
// @Summary Clear the selection
// @Tags Selection
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /selection [delete]
func (h *SelectionHandler) Clear(c *gin.Context) {
	response.OK(c, dto.SelectionResponse{Selection: h.service.ClearSelection().Tuple()})
}

// EffectiveCurriculum godoc
// @Summary Resolve the effective curriculum
// @Tags Selection
// @Produce json
// @Param curriculum_id query string false "Curriculum id from the current route"
// @Success 200 {object} response.Envelope
// @Router /selection/effective-curriculum [get]
func (h *SelectionHandler) EffectiveCurriculum(c *gin.Context) {
	id, source, err := h.service.EffectiveCurriculumID(c.Request.Context(), models.ID(c.Query("curriculum_id")))
	if err != nil {
		response.Error(c, err)
		return
	}
	resp := dto.EffectiveCurriculumResponse{Source: source}
	if id != "" {
		resp.CurriculumID = &id
	}
	response.OK(c, resp)
}

// Breadcrumbs godoc
// @Summary Selection breadcrumbs
// @Tags Selection
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /selection/breadcrumbs [get]
func (h *SelectionHandler) Breadcrumbs(c *gin.Context) {
	response.OK(c, h.service.Breadcrumbs())
}
