package adoption

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/sma-adp-curriculum/internal/models"
	"github.com/noah-isme/sma-adp-curriculum/internal/querycache"
	appErrors "github.com/noah-isme/sma-adp-curriculum/pkg/errors"
)

type mutateCall struct {
	name   string
	params querycache.Params
	body   interface{}
}

type gatewayStub struct {
	mu       sync.Mutex
	calls    []mutateCall
	mutateFn func(name string) error
	queryFn  func(name string) (interface{}, error)
	entered  chan struct{}
	release  chan struct{}
}

func (g *gatewayStub) Query(ctx context.Context, name string, params querycache.Params, opts ...querycache.QueryOption) (*querycache.Result, error) {
	payload, err := g.queryFn(name)
	if err != nil {
		return nil, err
	}
	return &querycache.Result{Key: name, Payload: payload}, nil
}

func (g *gatewayStub) Mutate(ctx context.Context, name string, params querycache.Params, body interface{}) (*querycache.Result, error) {
	g.mu.Lock()
	g.calls = append(g.calls, mutateCall{name: name, params: params, body: body})
	g.mu.Unlock()
	if g.entered != nil {
		g.entered <- struct{}{}
	}
	if g.release != nil {
		<-g.release
	}
	if g.mutateFn != nil {
		if err := g.mutateFn(name); err != nil {
			return nil, err
		}
	}
	return &querycache.Result{}, nil
}

func (g *gatewayStub) callCount() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.calls)
}

type transitionRecorder struct {
	mu       sync.Mutex
	outcomes []string
}

func (r *transitionRecorder) RecordAdoptionTransition(target, outcome string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.outcomes = append(r.outcomes, target+":"+outcome)
}

var fixedNow = time.Date(2024, 8, 12, 9, 30, 0, 0, time.UTC)

func threePending() []models.TemplateAdoption {
	return []models.TemplateAdoption{
		{ID: "1", SourceTemplateID: "t-1", TemplateTitle: "Matematika Dasar", Status: models.AdoptionStatusPending},
		{ID: "2", SourceTemplateID: "t-2", TemplateTitle: "Bahasa Indonesia", Status: models.AdoptionStatusPending},
		{ID: "3", SourceTemplateID: "t-3", TemplateTitle: "IPA Terpadu", Status: models.AdoptionStatusPending},
	}
}

func newLoadedMachine(gateway Gateway, opts ...Option) *Machine {
	opts = append([]Option{WithClock(func() time.Time { return fixedNow })}, opts...)
	m := NewMachine(gateway, opts...)
	m.Load(threePending(), nil)
	return m
}

func pendingIDs(m *Machine) []models.ID {
	var ids []models.ID
	for _, a := range m.Pending() {
		ids = append(ids, a.ID)
	}
	return ids
}

func TestCustomizeMovesAdoptionToHistory(t *testing.T) {
	gateway := &gatewayStub{}
	m := newLoadedMachine(gateway)
	require.Equal(t, models.AdoptionCounters{Pending: 3}, m.Counters())

	record, err := m.Customize(context.Background(), "2", "trimmed chapter 4")

	require.NoError(t, err)
	assert.Equal(t, models.AdoptionCounters{Pending: 2, Customized: 1}, m.Counters())
	history := m.History()
	require.Len(t, history, 1)
	assert.Equal(t, models.ID("2"), history[0].ID)
	assert.Equal(t, models.AdoptionStatusCustomized, history[0].Status)
	require.NotNil(t, history[0].CustomizationNotes)
	assert.Equal(t, "trimmed chapter 4", *history[0].CustomizationNotes)
	require.NotNil(t, history[0].AdoptedAt)
	assert.True(t, fixedNow.Equal(*history[0].AdoptedAt))
	assert.Equal(t, history[0], record)

	require.Len(t, gateway.calls, 1)
	assert.Equal(t, querycache.OpCustomizeTemplate, gateway.calls[0].name)
	assert.Equal(t, "2", gateway.calls[0].params[querycache.ParamID])
	assert.Equal(t, map[string]string{"customization_notes": "trimmed chapter 4"}, gateway.calls[0].body)
	assert.Equal(t, []models.ID{"1", "3"}, pendingIDs(m))
}

func TestRemoteFailureRollsBack(t *testing.T) {
	failure := appErrors.NewRemoteFailure("template sudah tidak tersedia", "GONE", http.StatusGone)
	gateway := &gatewayStub{mutateFn: func(string) error { return failure }}
	rec := &transitionRecorder{}
	m := newLoadedMachine(gateway, WithRecorder(rec))

	_, err := m.Adopt(context.Background(), "2")

	require.Error(t, err)
	assert.True(t, errors.Is(err, appErrors.ErrRemoteFailure))
	assert.Equal(t, "GONE", appErrors.FromError(err).RemoteCode)
	assert.Equal(t, models.AdoptionCounters{Pending: 3}, m.Counters())
	assert.Equal(t, []models.ID{"1", "2", "3"}, pendingIDs(m), "record returns to its original position")
	assert.Empty(t, m.History())
	assert.False(t, m.InFlight("2"))
	assert.Equal(t, []string{"adopted:rolled_back"}, rec.outcomes)
}

func TestRetryAfterRollbackSucceeds(t *testing.T) {
	attempts := 0
	gateway := &gatewayStub{mutateFn: func(string) error {
		attempts++
		if attempts == 1 {
			return appErrors.NewRemoteFailure("timeout", "", http.StatusGatewayTimeout)
		}
		return nil
	}}
	m := newLoadedMachine(gateway)

	_, err := m.Skip(context.Background(), "1")
	require.Error(t, err)
	_, err = m.Skip(context.Background(), "1")
	require.NoError(t, err)

	assert.Equal(t, models.AdoptionCounters{Pending: 2, Skipped: 1}, m.Counters())
}

func TestConcurrentTransitionOnSameIDConflicts(t *testing.T) {
	gateway := &gatewayStub{entered: make(chan struct{}, 1), release: make(chan struct{})}
	rec := &transitionRecorder{}
	m := newLoadedMachine(gateway, WithRecorder(rec))

	done := make(chan error, 1)
	go func() {
		_, err := m.Adopt(context.Background(), "1")
		done <- err
	}()
	<-gateway.entered
	require.True(t, m.InFlight("1"))

	_, err := m.Skip(context.Background(), "1")

	require.Error(t, err)
	assert.True(t, errors.Is(err, appErrors.ErrConflict))
	assert.Equal(t, models.AdoptionCounters{Pending: 2, Adopted: 1}, m.Counters())

	close(gateway.release)
	require.NoError(t, <-done)
	assert.Equal(t, models.AdoptionCounters{Pending: 2, Adopted: 1}, m.Counters())
	assert.Equal(t, 1, gateway.callCount())
	assert.Equal(t, []string{"skipped:rejected", "adopted:committed"}, rec.outcomes)
}

func TestUnknownIDIsNotFound(t *testing.T) {
	gateway := &gatewayStub{}
	m := newLoadedMachine(gateway)

	_, err := m.Adopt(context.Background(), "99")

	assert.Equal(t, appErrors.KindNotFound, appErrors.Kind(err))
	assert.Equal(t, 0, gateway.callCount())
}

func TestAlreadyTransitionedIDIsNotFound(t *testing.T) {
	gateway := &gatewayStub{}
	m := newLoadedMachine(gateway)
	_, err := m.Adopt(context.Background(), "1")
	require.NoError(t, err)

	_, err = m.Skip(context.Background(), "1")

	assert.Equal(t, appErrors.KindNotFound, appErrors.Kind(err))
}

func TestLocalValidationNeverReachesNetwork(t *testing.T) {
	cases := []struct {
		name   string
		id     models.ID
		target models.AdoptionStatus
		notes  string
	}{
		{name: "blank notes", id: "2", target: models.AdoptionStatusCustomized, notes: "   "},
		{name: "blank id", id: " ", target: models.AdoptionStatusAdopted},
		{name: "pending is not a target", id: "2", target: models.AdoptionStatusPending},
		{name: "unknown status", id: "2", target: "archived"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			gateway := &gatewayStub{}
			m := newLoadedMachine(gateway)

			_, err := m.BeginTransition(context.Background(), tc.id, tc.target, Payload{Notes: tc.notes})

			assert.Equal(t, appErrors.KindValidation, appErrors.Kind(err))
			assert.Equal(t, 0, gateway.callCount())
			assert.Equal(t, models.AdoptionCounters{Pending: 3}, m.Counters())
		})
	}
}

func TestSyncReloadsFromQueryCache(t *testing.T) {
	notes := "dipersingkat"
	gateway := &gatewayStub{queryFn: func(name string) (interface{}, error) {
		switch name {
		case querycache.OpListPendingAdoptions:
			return []models.TemplateAdoption{{ID: "3", Status: models.AdoptionStatusPending}}, nil
		default:
			return []models.TemplateAdoption{
				{ID: "1", Status: models.AdoptionStatusAdopted},
				{ID: "2", Status: models.AdoptionStatusCustomized, CustomizationNotes: &notes},
			}, nil
		}
	}}
	m := NewMachine(gateway)

	require.NoError(t, m.Sync(context.Background()))

	assert.Equal(t, models.AdoptionCounters{Pending: 1, Adopted: 1, Customized: 1}, m.Counters())
}

func TestSyncPropagatesQueryFailure(t *testing.T) {
	failure := appErrors.NewRemoteFailure("down", "", http.StatusServiceUnavailable)
	gateway := &gatewayStub{queryFn: func(string) (interface{}, error) { return nil, failure }}
	m := newLoadedMachine(gateway)

	err := m.Sync(context.Background())

	assert.Same(t, failure, err)
	assert.Equal(t, models.AdoptionCounters{Pending: 3}, m.Counters())
}

func TestLoadKeepsInFlightRecordsOptimistic(t *testing.T) {
	gateway := &gatewayStub{entered: make(chan struct{}, 1), release: make(chan struct{})}
	m := newLoadedMachine(gateway)

	done := make(chan error, 1)
	go func() {
		_, err := m.Adopt(context.Background(), "1")
		done <- err
	}()
	<-gateway.entered

	m.Load(threePending(), nil)

	assert.Equal(t, []models.ID{"2", "3"}, pendingIDs(m))
	require.Len(t, m.History(), 1)
	assert.Equal(t, models.AdoptionStatusAdopted, m.History()[0].Status)

	close(gateway.release)
	require.NoError(t, <-done)
}

func TestLoadPrefersHistoryOverStalePending(t *testing.T) {
	m := NewMachine(&gatewayStub{})

	m.Load(threePending(), []models.TemplateAdoption{
		{ID: "2", SourceTemplateID: "t-2", Status: models.AdoptionStatusAdopted},
	})

	assert.Equal(t, []models.ID{"1", "3"}, pendingIDs(m))
	require.Len(t, m.History(), 1)
	assert.Equal(t, models.ID("2"), m.History()[0].ID)
	assert.Equal(t, models.AdoptionCounters{Pending: 2, Adopted: 1}, m.Counters())
}

func TestSyncDropsPendingRecordAlreadyInHistory(t *testing.T) {
	gateway := &gatewayStub{queryFn: func(name string) (interface{}, error) {
		if name == querycache.OpListPendingAdoptions {
			return threePending(), nil
		}
		return []models.TemplateAdoption{{ID: "2", Status: models.AdoptionStatusAdopted}}, nil
	}}
	m := NewMachine(gateway)

	require.NoError(t, m.Sync(context.Background()))

	assert.Equal(t, []models.ID{"1", "3"}, pendingIDs(m))
	assert.Equal(t, models.AdoptionCounters{Pending: 2, Adopted: 1}, m.Counters())
}
