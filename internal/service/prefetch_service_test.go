package service

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/sma-adp-curriculum/internal/querycache"
	"github.com/noah-isme/sma-adp-curriculum/internal/selection"
	appErrors "github.com/noah-isme/sma-adp-curriculum/pkg/errors"
)

func newPrefetchFixture(t *testing.T, up *fakeUpstream, enabled bool) (*PrefetchService, *selection.Store, *querycache.Client) {
	t.Helper()
	queries := newQueries(up)
	sel := selection.NewStore(selection.State{})
	svc := NewPrefetchService(queries, sel, PrefetchConfig{Enabled: enabled, Workers: 1, RetryDelay: 5 * time.Millisecond}, nil)
	svc.Start(context.Background())
	t.Cleanup(svc.Stop)
	return svc, sel, queries
}

func TestPrefetchDisabledSchedulesNothing(t *testing.T) {
	up := newFakeUpstream()
	svc, _, _ := newPrefetchFixture(t, up, false)

	assert.False(t, svc.Schedule(selection.LevelCurriculum, "c-1"))
	assert.Equal(t, 0, up.count(querycache.OpListGradeLevels))
}

func TestPrefetchWarmsChildList(t *testing.T) {
	up := newFakeUpstream()
	up.respond(querycache.OpListClasses, []map[string]interface{}{{"id": "k-1", "grade_level_id": "g-1"}})
	svc, sel, queries := newPrefetchFixture(t, up, true)
	_, err := sel.SetCurriculum(&selection.Ref{ID: "c-1"})
	require.NoError(t, err)
	_, err = sel.SetGradeLevel(&selection.Ref{ID: "g-1"})
	require.NoError(t, err)

	require.True(t, svc.Schedule(selection.LevelGradeLevel, "g-1"))

	params := querycache.Params{querycache.ParamGradeLevelID: "g-1"}
	assert.Eventually(t, func() bool { return queries.IsFresh(querycache.OpListClasses, params) }, time.Second, 5*time.Millisecond)
	assert.False(t, svc.Schedule(selection.LevelGradeLevel, "g-1"), "fresh lists are not prefetched again")
	assert.Equal(t, 1, up.count(querycache.OpListClasses))
}

func TestPrefetchDropsResponseAfterSelectionMoves(t *testing.T) {
	up := newFakeUpstream()
	up.respond(querycache.OpListGradeLevels, []map[string]interface{}{{"id": "g-1", "curriculum_id": "c-1"}})
	release := up.gate(querycache.OpListGradeLevels)
	svc, sel, queries := newPrefetchFixture(t, up, true)
	_, err := sel.SetCurriculum(&selection.Ref{ID: "c-1"})
	require.NoError(t, err)

	require.True(t, svc.Schedule(selection.LevelCurriculum, "c-1"))
	require.Equal(t, querycache.OpListGradeLevels, <-up.entered)
	_, err = sel.SetCurriculum(&selection.Ref{ID: "c-2"})
	require.NoError(t, err)
	close(release)

	assert.Eventually(t, func() bool { return svc.Stats().Processed == 1 }, time.Second, 5*time.Millisecond)
	assert.False(t, queries.IsFresh(querycache.OpListGradeLevels, querycache.Params{querycache.ParamCurriculumID: "c-1"}))
}

func TestRetryablePrefetch(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want bool
	}{
		{"server failure", appErrors.NewRemoteFailure("upstream down", "", http.StatusServiceUnavailable), true},
		{"client failure", appErrors.NewRemoteFailure("bad filter", "E_FILTER", http.StatusBadRequest), false},
		{"validation", appErrors.Clone(appErrors.ErrValidation, "id is required"), false},
		{"untyped", errors.New("boom"), false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, retryablePrefetch(tc.err))
		})
	}
}
