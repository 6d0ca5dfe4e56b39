package dto

import (
	"github.com/noah-isme/sma-adp-curriculum/internal/models"
	"github.com/noah-isme/sma-adp-curriculum/internal/selection"
)

// SelectRequest sets one selection slot. A null or missing id clears it.
type SelectRequest struct {
	ID       *models.ID `json:"id"`
	ParentID models.ID  `json:"parent_id,omitempty"`
}

// SelectionResponse is the selection view returned by every selection action.
type SelectionResponse struct {
	Selection selection.Tuple `json:"selection"`
}

// EffectiveCurriculumResponse reports the resolved curriculum id.
type EffectiveCurriculumResponse struct {
	CurriculumID *models.ID `json:"curriculum_id"`
	Source       string     `json:"source"`
}
