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

type curriculumService interface {
	ListCurricula(ctx context.Context, refresh bool) (service.Fetched[[]models.Curriculum], error)
	GetCurriculum(ctx context.Context, id models.ID, refresh bool) (service.Fetched[models.Curriculum], error)
	CurriculumStatistics(ctx context.Context, id models.ID, refresh bool) (service.Fetched[models.CurriculumStatistics], error)
	ListGradeLevels(ctx context.Context, curriculumID models.ID, refresh bool) (service.Fetched[[]models.GradeLevel], error)
	ListClasses(ctx context.Context, gradeLevelID models.ID, refresh bool) (service.Fetched[[]models.Class], error)
	ListSubjects(ctx context.Context, classID models.ID, refresh bool) (service.Fetched[[]models.Subject], error)
	CreateCurriculum(ctx context.Context, req dto.CurriculumRequest) (*models.Curriculum, error)
	UpdateCurriculum(ctx context.Context, id models.ID, req dto.CurriculumRequest) (*models.Curriculum, error)
	ActivateCurriculum(ctx context.Context, id models.ID) (*models.Curriculum, error)
	DeleteCurriculum(ctx context.Context, id models.ID) error
}

// CurriculumHandler exposes curricula and the grade level / class / subject hierarchy.
type CurriculumHandler struct {
	service curriculumService
}

// NewCurriculumHandler builds a curriculum handler.
func NewCurriculumHandler(service curriculumService) *CurriculumHandler {
	return &CurriculumHandler{service: service}
}

// List godoc
// @Summary List curricula
// @Tags Curriculum
// @Produce json
// @Param refresh query bool false "Bypass the cache"
// @Success 200 {object} response.Envelope
// @Router /curricula [get]
func (h *CurriculumHandler) List(c *gin.Context) {
	res, err := h.service.ListCurricula(c.Request.Context(), refreshRequested(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, res.Data, cacheMeta(c, res))
}

// Get godoc
// @Summary Get curriculum
// @Tags Curriculum
// @Produce json
// @Param id path string true "Curriculum ID"
// @Success 200 {object} response.Envelope
// @Router /curricula/{id} [get]
func (h *CurriculumHandler) Get(c *gin.Context) {
	res, err := h.service.GetCurriculum(c.Request.Context(), pathID(c, "id"), refreshRequested(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, res.Data, cacheMeta(c, res))
}

// Statistics godoc
// @Summary Curriculum statistics
// @Tags Curriculum
// @Produce json
// @Param id path string true "Curriculum ID"
// @Success 200 {object} response.Envelope
// @Router /curricula/{id}/statistics [get]
func (h *CurriculumHandler) Statistics(c *gin.Context) {
	res, err := h.service.CurriculumStatistics(c.Request.Context(), pathID(c, "id"), refreshRequested(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, res.Data, cacheMeta(c, res))
}

// GradeLevels godoc
// @Summary List grade levels of a curriculum
// @Tags Curriculum
// @Produce json
// @Param id path string true "Curriculum ID"
// @Success 200 {object} response.Envelope
// @Router /curricula/{id}/grade-levels [get]
func (h *CurriculumHandler) GradeLevels(c *gin.Context) {
	res, err := h.service.ListGradeLevels(c.Request.Context(), pathID(c, "id"), refreshRequested(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, res.Data, cacheMeta(c, res))
}

// Classes godoc
// @Summary List classes of a grade level
// @Tags Curriculum
// @Produce json
// @Param id path string true "Grade level ID"
// @Success 200 {object} response.Envelope
// @Router /grade-levels/{id}/classes [get]
func (h *CurriculumHandler) Classes(c *gin.Context) {
	res, err := h.service.ListClasses(c.Request.Context(), pathID(c, "id"), refreshRequested(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, res.Data, cacheMeta(c, res))
}

// Subjects godoc
// @Summary List subjects of a class
// @Tags Curriculum
// @Produce json
// @Param id path string true "Class ID"
// @Success 200 {object} response.Envelope
// @Router /classes/{id}/subjects [get]
func (h *CurriculumHandler) Subjects(c *gin.Context) {
	res, err := h.service.ListSubjects(c.Request.Context(), pathID(c, "id"), refreshRequested(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, res.Data, cacheMeta(c, res))
}

// Create godoc
// @Summary Create curriculum
// @Tags Curriculum
// @Accept json
// @Produce json
// @Param payload body dto.CurriculumRequest true "Curriculum payload"
// @Success 201 {object} response.Envelope
// @Router /curricula [post]
func (h *CurriculumHandler) Create(c *gin.Context) {
	var req dto.CurriculumRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid curriculum payload"))
		return
	}
	created, err := h.service.CreateCurriculum(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, created)
}

// Update godoc
// @Summary Update curriculum
// @Tags Curriculum
// @Accept json
// @Produce json
// @Param id path string true "Curriculum ID"
// @Param payload body dto.CurriculumRequest true "Curriculum payload"
// @Success 200 {object} response.Envelope
// @Router /curricula/{id} [put]
func (h *CurriculumHandler) Update(c *gin.Context) {
	var req dto.CurriculumRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid curriculum payload"))
		return
	}
	updated, err := h.service.UpdateCurriculum(c.Request.Context(), pathID(c, "id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, updated)
}

// Activate godoc
// @Summary Activate curriculum
// @Description Only one curriculum per branch is active; every cached curriculum is refreshed.
// @Tags Curriculum
// @Produce json
// @Param id path string true "Curriculum ID"
// @Success 200 {object} response.Envelope
// @Router /curricula/{id}/activate [post]
func (h *CurriculumHandler) Activate(c *gin.Context) {
	activated, err := h.service.ActivateCurriculum(c.Request.Context(), pathID(c, "id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, activated)
}

// Delete godoc
// @Summary Delete curriculum
// @Tags Curriculum
// @Param id path string true "Curriculum ID"
// @Success 204
// @Router /curricula/{id} [delete]
func (h *CurriculumHandler) Delete(c *gin.Context) {
	if err := h.service.DeleteCurriculum(c.Request.Context(), pathID(c, "id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
