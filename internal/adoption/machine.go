// Package adoption drives template adoptions through
// pending -> {adopted, customized, skipped}. Transitions are applied locally
// before the remote call and reverted if the remote side rejects them.
package adoption

import (
	"context"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/sma-adp-curriculum/internal/models"
	"github.com/noah-isme/sma-adp-curriculum/internal/optimistic"
	"github.com/noah-isme/sma-adp-curriculum/internal/querycache"
	appErrors "github.com/noah-isme/sma-adp-curriculum/pkg/errors"
)

// Transition outcomes reported to the Recorder.
const (
	OutcomeCommitted  = "committed"
	OutcomeRolledBack = "rolled_back"
	OutcomeRejected   = "rejected"
)

// Gateway is the slice of the query cache the machine needs.
type Gateway interface {
	Query(ctx context.Context, name string, params querycache.Params, opts ...querycache.QueryOption) (*querycache.Result, error)
	Mutate(ctx context.Context, name string, params querycache.Params, body interface{}) (*querycache.Result, error)
}

// Recorder observes transition outcomes.
type Recorder interface {
	RecordAdoptionTransition(target, outcome string)
}

// Payload carries transition input.
type Payload struct {
	Notes string
}

// Option configures a Machine.
type Option func(*Machine)

// WithClock injects the time source used to stamp history records.
func WithClock(now func() time.Time) Option {
	return func(m *Machine) {
		if now != nil {
			m.now = now
		}
	}
}

// WithLogger sets the logger.
func WithLogger(logger *zap.Logger) Option {
	return func(m *Machine) {
		if logger != nil {
			m.logger = logger
		}
	}
}

// WithRecorder sets the metrics recorder.
func WithRecorder(r Recorder) Option {
	return func(m *Machine) { m.recorder = r }
}

// Machine holds the pending working set and the history set.
type Machine struct {
	mu       sync.Mutex
	pending  []models.TemplateAdoption
	history  []models.TemplateAdoption
	inFlight map[models.ID]models.AdoptionStatus

	gateway  Gateway
	now      func() time.Time
	logger   *zap.Logger
	recorder Recorder
}

// NewMachine constructs an empty Machine.
func NewMachine(gateway Gateway, opts ...Option) *Machine {
	m := &Machine{
		inFlight: make(map[models.ID]models.AdoptionStatus),
		gateway:  gateway,
		now:      time.Now,
		logger:   zap.NewNop(),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(m)
		}
	}
	return m
}

var transitionOps = map[models.AdoptionStatus]string{
	models.AdoptionStatusAdopted:    querycache.OpAdoptTemplate,
	models.AdoptionStatusCustomized: querycache.OpCustomizeTemplate,
	models.AdoptionStatusSkipped:    querycache.OpSkipTemplate,
}

// Load replaces both sets with server truth. Records with a transition in
// flight keep their optimistic placement. A record present in both lists is
// kept in history only, since a terminal status is never undone.
func (m *Machine) Load(pending, history []models.TemplateAdoption) {
	m.mu.Lock()
	defer m.mu.Unlock()

	seen := make(map[models.ID]struct{}, len(history))
	for _, a := range history {
		seen[a.ID] = struct{}{}
	}

	nextPending := make([]models.TemplateAdoption, 0, len(pending))
	for _, a := range pending {
		if _, busy := m.inFlight[a.ID]; busy {
			continue
		}
		if _, decided := seen[a.ID]; decided {
			continue
		}
		nextPending = append(nextPending, a)
	}

	nextHistory := make([]models.TemplateAdoption, 0, len(history)+len(m.inFlight))
	for _, a := range m.history {
		if _, busy := m.inFlight[a.ID]; !busy {
			continue
		}
		if _, ok := seen[a.ID]; !ok {
			nextHistory = append(nextHistory, a)
		}
	}
	nextHistory = append(nextHistory, history...)

	m.pending = nextPending
	m.history = nextHistory
}

// Sync re-reads both lists through the query cache and reloads the machine.
func (m *Machine) Sync(ctx context.Context) error {
	pending, err := queryAdoptions(ctx, m.gateway, querycache.OpListPendingAdoptions)
	if err != nil {
		return err
	}
	history, err := queryAdoptions(ctx, m.gateway, querycache.OpListAdoptionHistory)
	if err != nil {
		return err
	}
	m.Load(pending, history)
	m.logger.Debug("adoptions synced", zap.Int("pending", len(pending)), zap.Int("history", len(history)))
	return nil
}

func queryAdoptions(ctx context.Context, gateway Gateway, name string) ([]models.TemplateAdoption, error) {
	res, err := gateway.Query(ctx, name, nil)
	if err != nil {
		return nil, err
	}
	items, ok := res.Payload.([]models.TemplateAdoption)
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrInternal, "unexpected "+name+" payload")
	}
	return items, nil
}

// Adopt moves a pending adoption to adopted.
func (m *Machine) Adopt(ctx context.Context, id models.ID) (models.TemplateAdoption, error) {
	return m.BeginTransition(ctx, id, models.AdoptionStatusAdopted, Payload{})
}

// Customize moves a pending adoption to customized. Notes are required.
func (m *Machine) Customize(ctx context.Context, id models.ID, notes string) (models.TemplateAdoption, error) {
	return m.BeginTransition(ctx, id, models.AdoptionStatusCustomized, Payload{Notes: notes})
}

// Skip moves a pending adoption to skipped.
func (m *Machine) Skip(ctx context.Context, id models.ID) (models.TemplateAdoption, error) {
	return m.BeginTransition(ctx, id, models.AdoptionStatusSkipped, Payload{})
}

// BeginTransition applies the transition locally, runs the remote mutation,
// and rolls back if it fails. Local rejections never reach the network.
func (m *Machine) BeginTransition(ctx context.Context, id models.ID, target models.AdoptionStatus, payload Payload) (models.TemplateAdoption, error) {
	id = models.ID(strings.TrimSpace(string(id)))
	notes := strings.TrimSpace(payload.Notes)

	opName, known := transitionOps[target]
	switch {
	case id == "":
		return m.reject(target, appErrors.Clone(appErrors.ErrValidation, "adoption id is required"))
	case !known:
		return m.reject(target, appErrors.Clone(appErrors.ErrValidation, "unsupported adoption status "+string(target)))
	case target == models.AdoptionStatusCustomized && notes == "":
		return m.reject(target, appErrors.Clone(appErrors.ErrValidation, "customization notes are required"))
	}

	m.mu.Lock()
	if _, busy := m.inFlight[id]; busy {
		m.mu.Unlock()
		return m.reject(target, appErrors.Clone(appErrors.ErrConflict, "adoption "+string(id)+" already has a transition in flight"))
	}
	index := m.pendingIndexLocked(id)
	if index < 0 {
		m.mu.Unlock()
		return m.reject(target, appErrors.Clone(appErrors.ErrNotFound, "adoption "+string(id)+" is not pending"))
	}

	record := m.pending[index]
	now := m.now()
	record.Status = target
	record.AdoptedAt = &now
	record.CustomizationNotes = nil
	if target == models.AdoptionStatusCustomized {
		record.CustomizationNotes = &notes
	}

	m.inFlight[id] = target
	txn := optimistic.Begin(func() func() {
		original := m.pending[index]
		m.pending = append(m.pending[:index:index], m.pending[index+1:]...)
		m.history = append([]models.TemplateAdoption{record}, m.history...)
		return func() {
			m.mu.Lock()
			defer m.mu.Unlock()
			m.removeHistoryLocked(id, target)
			at := index
			if at > len(m.pending) {
				at = len(m.pending)
			}
			m.pending = append(m.pending[:at], append([]models.TemplateAdoption{original}, m.pending[at:]...)...)
		}
	})
	m.mu.Unlock()

	defer func() {
		m.mu.Lock()
		delete(m.inFlight, id)
		m.mu.Unlock()
	}()

	params := querycache.Params{querycache.ParamID: string(id)}
	var body interface{}
	if target == models.AdoptionStatusCustomized {
		body = map[string]string{"customization_notes": notes}
	}
	if _, err := m.gateway.Mutate(ctx, opName, params, body); err != nil {
		txn.Rollback()
		m.record(target, OutcomeRolledBack)
		m.logger.Warn("adoption transition rolled back",
			zap.String("adoption_id", string(id)),
			zap.String("target", string(target)),
			zap.Error(err),
		)
		return models.TemplateAdoption{}, err
	}
	txn.Commit()
	m.record(target, OutcomeCommitted)
	return record, nil
}

func (m *Machine) reject(target models.AdoptionStatus, err error) (models.TemplateAdoption, error) {
	m.record(target, OutcomeRejected)
	return models.TemplateAdoption{}, err
}

func (m *Machine) record(target models.AdoptionStatus, outcome string) {
	if m.recorder != nil {
		m.recorder.RecordAdoptionTransition(string(target), outcome)
	}
}

func (m *Machine) pendingIndexLocked(id models.ID) int {
	for i, a := range m.pending {
		if a.ID == id {
			return i
		}
	}
	return -1
}

func (m *Machine) removeHistoryLocked(id models.ID, status models.AdoptionStatus) {
	for i, a := range m.history {
		if a.ID == id && a.Status == status {
			m.history = append(m.history[:i:i], m.history[i+1:]...)
			return
		}
	}
}

// Pending returns a copy of the pending working set.
func (m *Machine) Pending() []models.TemplateAdoption {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]models.TemplateAdoption(nil), m.pending...)
}

// History returns a copy of the history set, newest transitions first.
func (m *Machine) History() []models.TemplateAdoption {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]models.TemplateAdoption(nil), m.history...)
}

// Counters derives the badge counts from both sets.
func (m *Machine) Counters() models.AdoptionCounters {
	m.mu.Lock()
	defer m.mu.Unlock()
	counters := models.AdoptionCounters{Pending: len(m.pending)}
	for _, a := range m.history {
		counters.Add(a.Status, 1)
	}
	return counters
}

// InFlight reports whether id has a transition awaiting the remote side.
func (m *Machine) InFlight(id models.ID) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, busy := m.inFlight[id]
	return busy
}
