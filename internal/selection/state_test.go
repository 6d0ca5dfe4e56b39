package selection

import (
	"errors"
	"fmt"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/sma-adp-curriculum/internal/models"
	appErrors "github.com/noah-isme/sma-adp-curriculum/pkg/errors"
)

func ref(id string) *Ref {
	return &Ref{ID: models.ID(id)}
}

func mustSelect(t *testing.T, s *Store, actions ...Action) State {
	t.Helper()
	var state State
	for _, a := range actions {
		var err error
		state, err = s.Dispatch(a)
		require.NoError(t, err)
	}
	return state
}

func TestSettingSlotClearsEveryDescendant(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	for round := 0; round < 200; round++ {
		state := State{}
		var err error
		state, err = Reduce(state, SetCurriculum(ref("k-root")), Policy{})
		require.NoError(t, err)
		for step := 0; step < 10; step++ {
			level := Level(rng.Intn(levelCount))
			var r *Ref
			if rng.Intn(4) > 0 {
				r = ref(fmt.Sprintf("%s-%d", level, rng.Intn(3)))
			}
			next, err := Reduce(state, Action{Type: ActionSet, Level: level, Ref: r}, Policy{AllowOrphans: true})
			require.NoError(t, err)
			for l := level + 1; l < levelCount; l++ {
				_, set := next.Slot(l)
				assert.False(t, set, "slot %s must be cleared after setting %s", l, level)
			}
			state = next
		}
	}
}

func TestSameValueStillCascades(t *testing.T) {
	s := NewStore(State{})
	mustSelect(t, s, SetCurriculum(ref("k-1")), SetGradeLevel(ref("g-1")), SetClass(ref("c-1")))

	state, err := s.SetCurriculum(ref("k-1"))

	require.NoError(t, err)
	assert.Equal(t, models.ID("k-1"), state.ID(LevelCurriculum))
	assert.True(t, state.ID(LevelGradeLevel) == "" && state.ID(LevelClass) == "")
}

func TestChangingCurriculumResetsTupleEndToEnd(t *testing.T) {
	s := NewStore(State{})
	mustSelect(t, s, SetCurriculum(ref("C1")), SetGradeLevel(ref("G1")), SetClass(ref("K1")))

	state, err := s.SetCurriculum(ref("C2"))
	require.NoError(t, err)

	tuple := state.Tuple()
	require.NotNil(t, tuple.CurriculumID)
	assert.Equal(t, models.ID("C2"), *tuple.CurriculumID)
	assert.Nil(t, tuple.GradeLevelID)
	assert.Nil(t, tuple.ClassID)
	assert.Nil(t, tuple.SubjectID)
	assert.Equal(t, models.ID("C2"), EffectiveCurriculumID("", state, "C1"))
}

func TestChildWithoutParentRejectedByDefault(t *testing.T) {
	s := NewStore(State{})

	state, err := s.SetGradeLevel(ref("g-1"))

	require.Error(t, err)
	assert.True(t, errors.Is(err, appErrors.ErrValidation))
	assert.True(t, state.Empty())
}

func TestChildWithoutParentMarkedOrphanedWhenAllowed(t *testing.T) {
	s := NewStore(State{}, WithPolicy(Policy{AllowOrphans: true}))

	state, err := s.SetGradeLevel(ref("g-1"))
	require.NoError(t, err)
	assert.True(t, state.Orphaned)

	state, err = s.SetCurriculum(ref("k-1"))
	require.NoError(t, err)
	assert.False(t, state.Orphaned)
	assert.Equal(t, models.ID(""), state.ID(LevelGradeLevel))
}

func TestChildFromAnotherParentRejected(t *testing.T) {
	s := NewStore(State{})
	mustSelect(t, s, SetCurriculum(ref("k-1")))

	_, err := s.SetGradeLevel(&Ref{ID: "g-9", ParentID: "k-2"})
	require.Error(t, err)
	assert.Equal(t, appErrors.KindValidation, appErrors.Kind(err))

	state, err := s.SetGradeLevel(&Ref{ID: "g-1", ParentID: "k-1"})
	require.NoError(t, err)
	assert.Equal(t, models.ID("g-1"), state.ID(LevelGradeLevel))
}

func TestBlankIDRejected(t *testing.T) {
	_, err := Reduce(State{}, SetCurriculum(ref("  ")), Policy{})
	assert.Equal(t, appErrors.KindValidation, appErrors.Kind(err))
}

func TestClearingSlotWithNil(t *testing.T) {
	s := NewStore(State{})
	mustSelect(t, s, SetCurriculum(ref("k")), SetGradeLevel(ref("g")), SetClass(ref("c")), SetSubject(ref("s")))

	state, err := s.SetGradeLevel(nil)

	require.NoError(t, err)
	assert.Equal(t, models.ID("k"), state.ID(LevelCurriculum))
	for _, l := range []Level{LevelGradeLevel, LevelClass, LevelSubject} {
		_, set := state.Slot(l)
		assert.False(t, set)
	}
}

func TestClearAll(t *testing.T) {
	s := NewStore(State{})
	mustSelect(t, s, SetCurriculum(ref("k")), SetGradeLevel(ref("g")))

	assert.True(t, s.ClearAll().Empty())
}

func TestSetSubjectIsLeaf(t *testing.T) {
	s := NewStore(State{})
	mustSelect(t, s, SetCurriculum(ref("k")), SetGradeLevel(ref("g")), SetClass(ref("c")))

	state, err := s.SetSubject(ref("s"))

	require.NoError(t, err)
	assert.Equal(t, models.ID("c"), state.ID(LevelClass))
	assert.Equal(t, models.ID("s"), state.ID(LevelSubject))
}

func TestEffectiveCurriculumIDPriority(t *testing.T) {
	selected, err := Reduce(State{}, SetCurriculum(ref("selected")), Policy{})
	require.NoError(t, err)

	assert.Equal(t, models.ID("route"), EffectiveCurriculumID("route", selected, "active"))
	assert.Equal(t, models.ID("selected"), EffectiveCurriculumID("", selected, "active"))
	assert.Equal(t, models.ID("active"), EffectiveCurriculumID(" ", State{}, "active"))
	assert.Equal(t, models.ID(""), EffectiveCurriculumID("", State{}, ""))
}

func TestGuardTracksAncestorChanges(t *testing.T) {
	s := NewStore(State{})
	mustSelect(t, s, SetCurriculum(ref("k")), SetGradeLevel(ref("g")), SetClass(ref("c")), SetSubject(ref("s")))

	subjectGuard := s.Guard(LevelSubject)
	curriculumGuard := s.Guard(LevelCurriculum)
	require.True(t, subjectGuard())

	_, err := s.SetClass(ref("c"))
	require.NoError(t, err)

	assert.False(t, subjectGuard(), "subject was cleared by the class cascade")
	assert.True(t, curriculumGuard())

	_, err = s.SetCurriculum(ref("k-2"))
	require.NoError(t, err)
	assert.False(t, curriculumGuard())
}

func TestListenersSeeCommittedTransitions(t *testing.T) {
	s := NewStore(State{})
	var seen []models.ID
	cancel := s.Subscribe(func(prev, next State) {
		seen = append(seen, next.ID(LevelCurriculum))
	})

	mustSelect(t, s, SetCurriculum(ref("k-1")))
	_, _ = s.SetGradeLevel(&Ref{ID: "g", ParentID: "other"})
	cancel()
	mustSelect(t, s, SetCurriculum(ref("k-2")))

	assert.Equal(t, []models.ID{"k-1"}, seen)
}
