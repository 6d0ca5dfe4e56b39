package dto

import (
	"time"

	"github.com/noah-isme/sma-adp-curriculum/internal/models"
)

// CurriculumRequest is the payload for creating or updating a curriculum.
type CurriculumRequest struct {
	Name        string `json:"name" validate:"required,max=120"`
	Year        int    `json:"year" validate:"required,gte=2000,lte=2100"`
	Description string `json:"description" validate:"max=1000"`
}

// CreateMaterialRequest is the payload for adding a material to a subject.
type CreateMaterialRequest struct {
	SubjectID    models.ID             `json:"subject_id" validate:"required"`
	CurriculumID models.ID             `json:"curriculum_id,omitempty"`
	Title        string                `json:"title" validate:"required,max=200"`
	Description  string                `json:"description" validate:"max=2000"`
	Sequence     int                   `json:"sequence" validate:"gte=0"`
	Status       models.MaterialStatus `json:"status" validate:"omitempty,oneof=draft published archived"`
	FileURL      string                `json:"file_url" validate:"omitempty,url"`
}

// UpdateMaterialRequest is the payload for editing a material.
type UpdateMaterialRequest struct {
	Title       string                `json:"title" validate:"required,max=200"`
	Description string                `json:"description" validate:"max=2000"`
	Sequence    int                   `json:"sequence" validate:"gte=0"`
	Status      models.MaterialStatus `json:"status" validate:"omitempty,oneof=draft published archived"`
	FileURL     string                `json:"file_url" validate:"omitempty,url"`
}

// ReorderMaterialsRequest lists material ids in their new order.
type ReorderMaterialsRequest struct {
	MaterialIDs []models.ID `json:"material_ids" validate:"required,min=1,dive,required"`
}

// SemesterRequest is the payload for creating or updating a semester.
type SemesterRequest struct {
	CurriculumID models.ID  `json:"curriculum_id" validate:"required"`
	Name         string     `json:"name" validate:"required,max=60"`
	AcademicYear string     `json:"academic_year" validate:"required,max=9"`
	StartDate    *time.Time `json:"start_date,omitempty"`
	EndDate      *time.Time `json:"end_date,omitempty"`
	IsActive     bool       `json:"is_active"`
}
