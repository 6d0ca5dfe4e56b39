package models

import (
	"strings"
	"time"
)

// AdoptionStatus captures workflow states for template adoptions.
type AdoptionStatus string

const (
	AdoptionStatusPending    AdoptionStatus = "pending"
	AdoptionStatusAdopted    AdoptionStatus = "adopted"
	AdoptionStatusCustomized AdoptionStatus = "customized"
	AdoptionStatusSkipped    AdoptionStatus = "skipped"
)

// ParseAdoptionStatus normalises casing and whitespace.
func ParseAdoptionStatus(raw string) AdoptionStatus {
	return AdoptionStatus(strings.ToLower(strings.TrimSpace(raw)))
}

// Terminal reports whether the status ends the workflow.
func (s AdoptionStatus) Terminal() bool {
	switch s {
	case AdoptionStatusAdopted, AdoptionStatusCustomized, AdoptionStatusSkipped:
		return true
	}
	return false
}

// Template is centrally distributed content offered to branches.
type Template struct {
	ID             ID         `json:"id"`
	Title          string     `json:"title"`
	Description    string     `json:"description,omitempty"`
	SubjectName    string     `json:"subject_name,omitempty"`
	GradeLevelName string     `json:"grade_level_name,omitempty"`
	DistributedAt  *time.Time `json:"distributed_at,omitempty"`
}

// TemplateAdoption records a branch decision about a distributed template.
type TemplateAdoption struct {
	ID                 ID             `json:"id"`
	SourceTemplateID   ID             `json:"source_template_id"`
	TemplateTitle      string         `json:"template_title,omitempty"`
	Status             AdoptionStatus `json:"status"`
	CustomizationNotes *string        `json:"customization_notes,omitempty"`
	AdoptedAt          *time.Time     `json:"adopted_at,omitempty"`
}

// AdoptionCounters are the derived badges for the adoption screens.
type AdoptionCounters struct {
	Pending    int `json:"pending"`
	Adopted    int `json:"adopted"`
	Customized int `json:"customized"`
	Skipped    int `json:"skipped"`
}

// Total returns the number of adoptions across every status.
func (c AdoptionCounters) Total() int {
	return c.Pending + c.Adopted + c.Customized + c.Skipped
}

// Add shifts the counter for status by delta.
func (c *AdoptionCounters) Add(status AdoptionStatus, delta int) {
	switch status {
	case AdoptionStatusPending:
		c.Pending += delta
	case AdoptionStatusAdopted:
		c.Adopted += delta
	case AdoptionStatusCustomized:
		c.Customized += delta
	case AdoptionStatusSkipped:
		c.Skipped += delta
	}
}
