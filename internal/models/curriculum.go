package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// ID is an opaque identifier. The remote API emits ids either as JSON numbers
// or strings; both decode into the same value.
type ID string

// UnmarshalJSON accepts string, number, or null ids.
func (id *ID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*id = ""
		return nil
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*id = ID(strings.TrimSpace(s))
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("id must be a string or number: %w", err)
	}
	*id = ID(n.String())
	return nil
}

// String returns the raw identifier.
func (id ID) String() string {
	return string(id)
}

// Curriculum is the top-level instructional program for a branch. At most one
// curriculum per branch is active at a time.
type Curriculum struct {
	ID              ID         `json:"id"`
	Name            string     `json:"name"`
	Year            int        `json:"year"`
	Description     string     `json:"description,omitempty"`
	IsActive        bool       `json:"is_active"`
	GradeLevelCount int        `json:"grade_level_count"`
	MaterialCount   int        `json:"material_count"`
	UpdatedAt       *time.Time `json:"updated_at,omitempty"`
}

// GradeLevel is an educational stage (jenjang) under a curriculum.
type GradeLevel struct {
	ID           ID     `json:"id"`
	CurriculumID ID     `json:"curriculum_id"`
	Name         string `json:"name"`
	ClassCount   int    `json:"class_count"`
}

// Class is a grade grouping (kelas) under a grade level.
type Class struct {
	ID           ID     `json:"id"`
	GradeLevelID ID     `json:"grade_level_id"`
	Name         string `json:"name"`
	SubjectCount int    `json:"subject_count"`
}

// Subject is a taught subject (mata pelajaran) under a class.
type Subject struct {
	ID            ID     `json:"id"`
	ClassID       ID     `json:"class_id"`
	Name          string `json:"name"`
	MaterialCount int    `json:"material_count"`
}

// MaterialStatus captures the lifecycle of a learning material.
type MaterialStatus string

const (
	MaterialStatusDraft     MaterialStatus = "draft"
	MaterialStatusPublished MaterialStatus = "published"
	MaterialStatusArchived  MaterialStatus = "archived"
)

// Valid reports whether the status is a known lifecycle value.
func (s MaterialStatus) Valid() bool {
	switch s {
	case MaterialStatusDraft, MaterialStatusPublished, MaterialStatusArchived:
		return true
	}
	return false
}

// Material is a learning-content unit (materi) under a subject.
type Material struct {
	ID           ID             `json:"id"`
	SubjectID    ID             `json:"subject_id"`
	CurriculumID ID             `json:"curriculum_id,omitempty"`
	Title        string         `json:"title"`
	Description  string         `json:"description,omitempty"`
	Sequence     int            `json:"sequence"`
	Status       MaterialStatus `json:"status"`
	FileURL      string         `json:"file_url,omitempty"`
	UpdatedAt    *time.Time     `json:"updated_at,omitempty"`
}

// Semester references a curriculum for an academic period.
type Semester struct {
	ID           ID         `json:"id"`
	CurriculumID ID         `json:"curriculum_id"`
	Name         string     `json:"name"`
	AcademicYear string     `json:"academic_year"`
	StartDate    *time.Time `json:"start_date,omitempty"`
	EndDate      *time.Time `json:"end_date,omitempty"`
	IsActive     bool       `json:"is_active"`
}

// CurriculumStatistics is the rollup shown on the curriculum dashboard.
type CurriculumStatistics struct {
	CurriculumID       ID  `json:"curriculum_id"`
	GradeLevels        int `json:"grade_levels"`
	Classes            int `json:"classes"`
	Subjects           int `json:"subjects"`
	Materials          int `json:"materials"`
	PublishedMaterials int `json:"published_materials"`
	DraftMaterials     int `json:"draft_materials"`
	Semesters          int `json:"semesters"`
}

// Breadcrumb is one resolved step of the current selection path.
type Breadcrumb struct {
	Level string `json:"level"`
	ID    ID     `json:"id"`
	Name  string `json:"name"`
}
