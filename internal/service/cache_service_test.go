package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/sma-adp-curriculum/internal/querycache"
	appErrors "github.com/noah-isme/sma-adp-curriculum/pkg/errors"
)

type fakeCacheRepo struct {
	enabled bool
	purged  int
	err     error
}

func (f *fakeCacheRepo) Enabled() bool { return f.enabled }

func (f *fakeCacheRepo) Purge(context.Context) error {
	f.purged++
	return f.err
}

func TestCacheFreshnessOnlyForQueries(t *testing.T) {
	svc := NewCacheService(newQueries(newFakeUpstream()), nil, nil)

	_, err := svc.Freshness(querycache.OpCreateMaterial, nil)
	assert.True(t, errors.Is(err, appErrors.ErrValidation))

	_, err = svc.Freshness("listStudents", nil)
	assert.True(t, errors.Is(err, appErrors.ErrValidation))

	report, err := svc.Freshness(querycache.OpListCurricula, nil)
	require.NoError(t, err)
	assert.False(t, report.Present)
}

func TestCacheInvalidateByTag(t *testing.T) {
	up := newFakeUpstream()
	up.respond(querycache.OpListCurricula, []map[string]interface{}{{"id": "c-1"}})
	queries := newQueries(up)
	svc := NewCacheService(queries, nil, nil)
	ctx := context.Background()

	_, err := queries.Query(ctx, querycache.OpListCurricula, nil)
	require.NoError(t, err)

	_, err = svc.Invalidate(ctx, []string{" ", ""})
	assert.True(t, errors.Is(err, appErrors.ErrValidation))

	affected, err := svc.Invalidate(ctx, []string{"Curriculum:c-1"})
	require.NoError(t, err)
	assert.Equal(t, 1, affected)
	assert.False(t, queries.IsFresh(querycache.OpListCurricula, nil))
}

func TestCacheClearPurgesPersistedCopies(t *testing.T) {
	up := newFakeUpstream()
	up.respond(querycache.OpListSemesters, []map[string]interface{}{})
	queries := newQueries(up)
	repo := &fakeCacheRepo{enabled: true}
	svc := NewCacheService(queries, repo, nil)
	ctx := context.Background()

	_, err := queries.Query(ctx, querycache.OpListSemesters, nil)
	require.NoError(t, err)
	require.Equal(t, 1, svc.Entries())

	require.NoError(t, svc.Clear(ctx))
	assert.Equal(t, 0, svc.Entries())
	assert.Equal(t, 1, repo.purged)

	repo.err = errors.New("redis down")
	assert.True(t, errors.Is(svc.Clear(ctx), appErrors.ErrInternal))
}

func TestCacheWarmWithoutPersistence(t *testing.T) {
	svc := NewCacheService(newQueries(newFakeUpstream()), &fakeCacheRepo{enabled: false}, nil)

	restored, err := svc.Warm(context.Background())

	require.NoError(t, err)
	assert.Zero(t, restored)
	assert.False(t, svc.Persistent())
}
