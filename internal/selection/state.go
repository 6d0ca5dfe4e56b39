// Package selection tracks the chosen curriculum, grade level, class, and
// subject. The four slots are ordered; setting any slot, including to nil,
// clears every slot below it in the same transition.
package selection

import (
	"strings"

	"github.com/noah-isme/sma-adp-curriculum/internal/models"
	appErrors "github.com/noah-isme/sma-adp-curriculum/pkg/errors"
)

// Level identifies a selection slot. Lower values are ancestors.
type Level int

const (
	LevelCurriculum Level = iota
	LevelGradeLevel
	LevelClass
	LevelSubject

	levelCount = 4
)

var levelNames = [levelCount]string{"curriculum", "grade_level", "class", "subject"}

// String returns the slot name used in breadcrumbs and logs.
func (l Level) String() string {
	if l < 0 || l >= levelCount {
		return "unknown"
	}
	return levelNames[l]
}

// Levels lists every slot from root to leaf.
func Levels() []Level {
	return []Level{LevelCurriculum, LevelGradeLevel, LevelClass, LevelSubject}
}

// Ref points at a cached entity. ParentID is optional and, when present, must
// match the selected parent.
type Ref struct {
	ID       models.ID `json:"id"`
	ParentID models.ID `json:"parent_id,omitempty"`
}

// State is an immutable snapshot of the selection.
type State struct {
	slots    [levelCount]Ref
	set      [levelCount]bool
	epochs   [levelCount]uint64
	Orphaned bool
}

// Tuple is the UI-facing view of the selection.
type Tuple struct {
	CurriculumID *models.ID `json:"curriculum_id"`
	GradeLevelID *models.ID `json:"grade_level_id"`
	ClassID      *models.ID `json:"class_id"`
	SubjectID    *models.ID `json:"subject_id"`
	Orphaned     bool       `json:"orphaned"`
}

// Slot returns the reference held at level.
func (s State) Slot(l Level) (Ref, bool) {
	if l < 0 || l >= levelCount || !s.set[l] {
		return Ref{}, false
	}
	return s.slots[l], true
}

// ID returns the selected id at level or an empty id.
func (s State) ID(l Level) models.ID {
	ref, _ := s.Slot(l)
	return ref.ID
}

// Epoch returns the change counter of a slot.
func (s State) Epoch(l Level) uint64 {
	if l < 0 || l >= levelCount {
		return 0
	}
	return s.epochs[l]
}

// Empty reports whether nothing is selected.
func (s State) Empty() bool {
	for _, set := range s.set {
		if set {
			return false
		}
	}
	return true
}

// Tuple returns the nullable id view.
func (s State) Tuple() Tuple {
	ptr := func(l Level) *models.ID {
		if !s.set[l] {
			return nil
		}
		id := s.slots[l].ID
		return &id
	}
	return Tuple{
		CurriculumID: ptr(LevelCurriculum),
		GradeLevelID: ptr(LevelGradeLevel),
		ClassID:      ptr(LevelClass),
		SubjectID:    ptr(LevelSubject),
		Orphaned:     s.Orphaned,
	}
}

// Policy decides how a child selection without a selected parent is treated.
type Policy struct {
	AllowOrphans bool
}

// ActionType enumerates reducer actions.
type ActionType string

const (
	ActionSet      ActionType = "set"
	ActionClearAll ActionType = "clear_all"
)

// Action is a selection intent. A nil Ref on ActionSet clears the slot.
type Action struct {
	Type  ActionType
	Level Level
	Ref   *Ref
}

// SetCurriculum builds an action selecting (or clearing, with nil) the curriculum.
func SetCurriculum(ref *Ref) Action {
	return Action{Type: ActionSet, Level: LevelCurriculum, Ref: ref}
}

// SetGradeLevel builds an action for the grade level slot.
func SetGradeLevel(ref *Ref) Action {
	return Action{Type: ActionSet, Level: LevelGradeLevel, Ref: ref}
}

// SetClass builds an action for the class slot.
func SetClass(ref *Ref) Action {
	return Action{Type: ActionSet, Level: LevelClass, Ref: ref}
}

// SetSubject builds an action for the subject slot.
func SetSubject(ref *Ref) Action {
	return Action{Type: ActionSet, Level: LevelSubject, Ref: ref}
}

// ClearAll builds an action resetting every slot.
func ClearAll() Action {
	return Action{Type: ActionClearAll}
}

// Reduce applies action to state. It is pure: on error the input state is
// returned unchanged.
func Reduce(state State, action Action, policy Policy) (State, error) {
	switch action.Type {
	case ActionClearAll:
		next := state
		for _, l := range Levels() {
			next.clear(l)
		}
		next.Orphaned = false
		return next, nil
	case ActionSet:
	default:
		return state, appErrors.Clone(appErrors.ErrValidation, "unknown selection action")
	}

	level := action.Level
	if level < 0 || level >= levelCount {
		return state, appErrors.Clone(appErrors.ErrValidation, "unknown selection level")
	}

	next := state
	if action.Ref == nil {
		next.clear(level)
	} else {
		ref := Ref{
			ID:       models.ID(strings.TrimSpace(string(action.Ref.ID))),
			ParentID: models.ID(strings.TrimSpace(string(action.Ref.ParentID))),
		}
		if ref.ID == "" {
			return state, appErrors.Clone(appErrors.ErrValidation, level.String()+" id is required")
		}
		if level > LevelCurriculum {
			parent, hasParent := state.Slot(level - 1)
			switch {
			case !hasParent && !policy.AllowOrphans:
				return state, appErrors.Clone(appErrors.ErrValidation, "select a "+(level-1).String()+" before choosing a "+level.String())
			case hasParent && ref.ParentID != "" && ref.ParentID != parent.ID:
				return state, appErrors.Clone(appErrors.ErrValidation, level.String()+" does not belong to the selected "+(level-1).String())
			}
		}
		next.assign(level, ref)
	}

	for l := level + 1; l < levelCount; l++ {
		next.clear(l)
	}
	next.Orphaned = next.orphaned()
	return next, nil
}

func (s *State) assign(l Level, ref Ref) {
	if s.set[l] && s.slots[l] == ref {
		return
	}
	s.slots[l] = ref
	s.set[l] = true
	s.epochs[l]++
}

func (s *State) clear(l Level) {
	if !s.set[l] {
		return
	}
	s.slots[l] = Ref{}
	s.set[l] = false
	s.epochs[l]++
}

func (s State) orphaned() bool {
	for l := LevelGradeLevel; l < levelCount; l++ {
		if s.set[l] && !s.set[l-1] {
			return true
		}
	}
	return false
}

// EffectiveCurriculumID resolves the curriculum a screen operates on. The
// route-provided id wins, then the explicit selection, then the branch's
// active curriculum. The first non-empty value is returned.
func EffectiveCurriculumID(routeID models.ID, state State, activeID models.ID) models.ID {
	candidates := []models.ID{routeID, state.ID(LevelCurriculum), activeID}
	for _, id := range candidates {
		if trimmed := models.ID(strings.TrimSpace(string(id))); trimmed != "" {
			return trimmed
		}
	}
	return ""
}
