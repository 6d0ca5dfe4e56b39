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

type semesterService interface {
	ListSemesters(ctx context.Context, curriculumID models.ID, academicYear string, refresh bool) (service.Fetched[[]models.Semester], error)
	CreateSemester(ctx context.Context, req dto.SemesterRequest) (*models.Semester, error)
	UpdateSemester(ctx context.Context, id models.ID, req dto.SemesterRequest) (*models.Semester, error)
	DeleteSemester(ctx context.Context, id models.ID) error
}

// SemesterHandler exposes semesters.
type SemesterHandler struct {
	service semesterService
}

// NewSemesterHandler builds a semester handler.
func NewSemesterHandler(service semesterService) *SemesterHandler {
	return &SemesterHandler{service: service}
}

// List godoc
// @Summary List semesters
// @Tags Semesters
// @Produce json
// @Param curriculum_id query string false "Curriculum ID"
// @Param academic_year query string false "Academic year, e.g. 2024/2025"
// @Success 200 {object} response.Envelope
// @Router /semesters [get]
func (h *SemesterHandler) List(c *gin.Context) {
	res, err := h.service.ListSemesters(c.Request.Context(), models.ID(c.Query("curriculum_id")), c.Query("academic_year"), refreshRequested(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, res.Data, cacheMeta(c, res))
}

// Create godoc
// @Summary Create semester
// @Tags Semesters
// @Accept json
// @Produce json
// @Param payload body dto.SemesterRequest true "Semester payload"
// @Success 201 {object} response.Envelope
// @Router /semesters [post]
func (h *SemesterHandler) Create(c *gin.Context) {
	var req dto.SemesterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid semester payload"))
		return
	}
	created, err := h.service.CreateSemester(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, created)
}

// Update godoc
// @Summary Update semester
// @Tags Semesters
// @Accept json
// @Produce json
// @Param id path string true "Semester ID"
// @Param payload body dto.SemesterRequest true "Semester payload"
// @Success 200 {object} response.Envelope
// @Router /semesters/{id} [put]
func (h *SemesterHandler) Update(c *gin.Context) {
	var req dto.SemesterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid semester payload"))
		return
	}
	updated, err := h.service.UpdateSemester(c.Request.Context(), pathID(c, "id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, updated)
}

// Delete godoc
// @Summary Delete semester
// @Tags Semesters
// @Param id path string true "Semester ID"
// @Success 204
// @Router /semesters/{id} [delete]
func (h *SemesterHandler) Delete(c *gin.Context) {
	if err := h.service.DeleteSemester(c.Request.Context(), pathID(c, "id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
