package dto

import "github.com/noah-isme/sma-adp-curriculum/internal/models"

// CustomizeAdoptionRequest carries the notes required by a customization.
type CustomizeAdoptionRequest struct {
	Notes string `json:"customization_notes"`
}

// AdoptionsResponse is the adoption screen payload.
type AdoptionsResponse struct {
	Pending  []models.TemplateAdoption `json:"pending"`
	History  []models.TemplateAdoption `json:"history"`
	Counters models.AdoptionCounters   `json:"counters"`
}
