package selection

import (
	"sync"

	"go.uber.org/zap"

	appErrors "github.com/noah-isme/sma-adp-curriculum/pkg/errors"
)

// Listener observes committed transitions.
type Listener func(prev, next State)

// Store holds the selection and serialises dispatched actions.
type Store struct {
	mu        sync.RWMutex
	state     State
	policy    Policy
	logger    *zap.Logger
	listeners map[int]Listener
	nextID    int
}

// StoreOption configures a Store.
type StoreOption func(*Store)

// WithPolicy sets the orphan policy.
func WithPolicy(p Policy) StoreOption {
	return func(s *Store) { s.policy = p }
}

// WithLogger sets the logger.
func WithLogger(logger *zap.Logger) StoreOption {
	return func(s *Store) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// NewStore constructs a Store from an initial state.
func NewStore(initial State, opts ...StoreOption) *Store {
	s := &Store{
		state:     initial,
		logger:    zap.NewNop(),
		listeners: make(map[int]Listener),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s
}

// State returns the current snapshot.
func (s *Store) State() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// Dispatch runs the reducer and notifies listeners after the state is committed.
func (s *Store) Dispatch(action Action) (State, error) {
	s.mu.Lock()
	prev := s.state
	next, err := Reduce(prev, action, s.policy)
	if err != nil {
		s.mu.Unlock()
		s.logger.Debug("selection rejected",
			zap.String("level", action.Level.String()),
			zap.String("kind", appErrors.Kind(err)),
			zap.Error(err),
		)
		return prev, err
	}
	s.state = next
	listeners := make([]Listener, 0, len(s.listeners))
	for _, l := range s.listeners {
		listeners = append(listeners, l)
	}
	s.mu.Unlock()

	for _, l := range listeners {
		l(prev, next)
	}
	return next, nil
}

// Subscribe registers a listener and returns its cancel func.
func (s *Store) Subscribe(l Listener) func() {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := s.nextID
	s.nextID++
	s.listeners[id] = l
	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.listeners, id)
	}
}

// Guard captures the slots from root down to level and returns a check that
// stays true only while none of them changed. Queries scoped to a selection
// use it to drop responses that arrive after the user navigated away.
func (s *Store) Guard(level Level) func() bool {
	s.mu.RLock()
	captured := s.state
	s.mu.RUnlock()
	return func() bool {
		current := s.State()
		for l := LevelCurriculum; l <= level && l < levelCount; l++ {
			if current.Epoch(l) != captured.Epoch(l) {
				return false
			}
		}
		return true
	}
}

// SetCurriculum selects a curriculum, clearing every descendant.
func (s *Store) SetCurriculum(ref *Ref) (State, error) {
	return s.Dispatch(SetCurriculum(ref))
}

// SetGradeLevel selects a grade level, clearing class and subject.
func (s *Store) SetGradeLevel(ref *Ref) (State, error) {
	return s.Dispatch(SetGradeLevel(ref))
}

// SetClass selects a class, clearing the subject.
func (s *Store) SetClass(ref *Ref) (State, error) {
	return s.Dispatch(SetClass(ref))
}

// SetSubject selects the leaf subject.
func (s *Store) SetSubject(ref *Ref) (State, error) {
	return s.Dispatch(SetSubject(ref))
}

// ClearAll resets the selection.
func (s *Store) ClearAll() State {
	next, _ := s.Dispatch(ClearAll())
	return next
}
