package service

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/sma-adp-curriculum/internal/adoption"
	"github.com/noah-isme/sma-adp-curriculum/internal/querycache"
)

var (
	_ querycache.Recorder = (*MetricsService)(nil)
	_ adoption.Recorder   = (*MetricsService)(nil)
)

func TestMetricsSnapshotAggregates(t *testing.T) {
	m := NewMetricsService()
	m.TrackEntries(func() int { return 7 })

	m.RecordCacheLookup(querycache.OpListCurricula, true)
	m.RecordCacheLookup(querycache.OpListCurricula, true)
	m.RecordCacheLookup(querycache.OpListCurricula, true)
	m.RecordCacheLookup(querycache.OpListMaterials, false)
	m.ObserveExecution(querycache.OpListMaterials, querycache.OutcomeSuccess, 20*time.Millisecond)
	m.ObserveExecution(querycache.OpListMaterials, querycache.OutcomeFailure, 40*time.Millisecond)
	m.RecordDiscarded(querycache.OpListClasses, querycache.DiscardIrrelevant)
	m.RecordAdoptionTransition("adopted", adoption.OutcomeCommitted)
	m.RecordAdoptionTransition("skipped", adoption.OutcomeRolledBack)
	m.ObserveHTTPRequest(http.MethodGet, "/api/v1/curricula", http.StatusOK, 10*time.Millisecond)

	snap := m.Snapshot()

	assert.InDelta(t, 0.75, snap.CacheHitRatio, 0.0001)
	assert.Equal(t, uint64(3), snap.CacheHits)
	assert.Equal(t, uint64(1), snap.CacheMisses)
	assert.Equal(t, 7, snap.CacheEntries)
	assert.Equal(t, uint64(1), snap.DiscardedResponses)
	assert.Equal(t, uint64(2), snap.UpstreamCalls)
	assert.InDelta(t, 30.0, snap.AverageUpstreamMs, 0.001)
	assert.Equal(t, uint64(1), snap.AdoptionRollbacks)
	assert.Equal(t, uint64(1), snap.RequestsTotal)
}

func TestMetricsHandlerExposesCollectors(t *testing.T) {
	m := NewMetricsService()
	m.RecordAdoptionTransition("customized", adoption.OutcomeRejected)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.True(t, strings.Contains(body, `adoption_transitions_total{outcome="rejected",target="customized"} 1`))
}

func TestNilMetricsServiceIsSafe(t *testing.T) {
	var m *MetricsService

	m.RecordCacheLookup("x", true)
	m.ObserveExecution("x", querycache.OutcomeSuccess, time.Millisecond)
	m.RecordAdoptionTransition("adopted", adoption.OutcomeCommitted)

	assert.Zero(t, m.Snapshot().CacheHits)
	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}
