// Package store holds fetched collections and entities keyed by request
// signature. Entries carry a fetch time and a tag set; freshness is evaluated
// lazily against a TTL and a per-tag invalidation version.
package store

import (
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"
)

const (
	// DefaultTTL is the freshness window for cached entries.
	DefaultTTL = 5 * time.Minute
	// DefaultMaxEntries bounds the number of retained entries.
	DefaultMaxEntries = 512
)

// Entry is a cached payload stamped with its fetch time and tags.
type Entry struct {
	Key         string
	Payload     interface{}
	FetchedAt   time.Time
	Tags        []string
	Version     uint64
	Sequence    uint64
	Invalidated bool
}

// Ticket is handed out before a request is issued. Committing it applies the
// response only when no newer response for the same key has landed.
type Ticket struct {
	Key      string
	Sequence uint64
	Version  uint64
}

// Freshness describes the cache state for a key.
type Freshness struct {
	Key       string        `json:"key"`
	Present   bool          `json:"present"`
	Fresh     bool          `json:"fresh"`
	Age       time.Duration `json:"age"`
	ExpiresIn time.Duration `json:"expires_in"`
	Tags      []string      `json:"tags,omitempty"`
}

// Option configures a Store.
type Option func(*Store)

// WithTTL overrides the freshness window.
func WithTTL(ttl time.Duration) Option {
	return func(s *Store) {
		if ttl > 0 {
			s.ttl = ttl
		}
	}
}

// WithClock injects the time source.
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		if now != nil {
			s.now = now
		}
	}
}

// WithMaxEntries bounds the number of retained entries.
func WithMaxEntries(n int) Option {
	return func(s *Store) {
		if n > 0 {
			s.maxEntries = n
		}
	}
}

// WithLogger sets the logger.
func WithLogger(logger *zap.Logger) Option {
	return func(s *Store) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// Store is the resource cache. It is safe for concurrent use.
type Store struct {
	mu         sync.Mutex
	ttl        time.Duration
	maxEntries int
	now        func() time.Time
	logger     *zap.Logger

	entries     map[string]*Entry
	invalidated map[string]uint64
	version     uint64
	issued      map[string]uint64
	applied     map[string]uint64
	outstanding map[string]int
	reservedAt  map[string]uint64
}

// New constructs an empty Store.
func New(opts ...Option) *Store {
	s := &Store{
		ttl:         DefaultTTL,
		maxEntries:  DefaultMaxEntries,
		now:         time.Now,
		logger:      zap.NewNop(),
		entries:     make(map[string]*Entry),
		invalidated: make(map[string]uint64),
		issued:      make(map[string]uint64),
		applied:     make(map[string]uint64),
		outstanding: make(map[string]int),
		reservedAt:  make(map[string]uint64),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s
}

// TTL returns the configured freshness window.
func (s *Store) TTL() time.Duration {
	return s.ttl
}

// Get returns the entry for key whether or not it is still fresh.
func (s *Store) Get(key string) (Entry, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entries[key]
	if !ok {
		return Entry{}, false
	}
	return e.clone(), true
}

// Lookup returns the payload for key when present and of type T.
func Lookup[T any](s *Store, key string) (T, bool) {
	var zero T
	e, ok := s.Get(key)
	if !ok {
		return zero, false
	}
	v, ok := e.Payload.(T)
	if !ok {
		return zero, false
	}
	return v, true
}

// Put stores or overwrites the entry and stamps it with the current time. A
// direct Put supersedes every outstanding ticket for the key.
func (s *Store) Put(key string, payload interface{}, tags []string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.issued[key]++
	seq := s.issued[key]
	s.setLocked(key, payload, tags, s.now(), s.version, seq)
	s.applied[key] = seq
	s.sweepLocked()
}

// PutAt stores an entry with an explicit fetch time. It is used to replay
// persisted entries and never replaces a newer fetch.
func (s *Store) PutAt(key string, payload interface{}, tags []string, fetchedAt time.Time) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if existing, ok := s.entries[key]; ok && !existing.FetchedAt.Before(fetchedAt) {
		return false
	}
	s.issued[key]++
	seq := s.issued[key]
	s.setLocked(key, payload, tags, fetchedAt, s.version, seq)
	s.applied[key] = seq
	s.sweepLocked()
	return true
}

// Reserve allocates the next request sequence for key and records the
// invalidation version at issue time.
func (s *Store) Reserve(key string) Ticket {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.issued[key]++
	if s.outstanding[key] == 0 {
		s.reservedAt[key] = s.version
	}
	s.outstanding[key]++
	return Ticket{Key: key, Sequence: s.issued[key], Version: s.version}
}

// Release gives back a ticket whose request failed.
func (s *Store) Release(t Ticket) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.finishLocked(t.Key)
}

// Commit applies a response for a reserved ticket. It returns false and leaves
// the store untouched when a response with a newer sequence already landed.
func (s *Store) Commit(t Ticket, payload interface{}, tags []string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	defer s.finishLocked(t.Key)
	if t.Sequence <= s.applied[t.Key] {
		s.logger.Debug("discarding out-of-order response",
			zap.String("key", t.Key),
			zap.Uint64("sequence", t.Sequence),
			zap.Uint64("applied", s.applied[t.Key]),
		)
		return false
	}
	s.setLocked(t.Key, payload, tags, s.now(), t.Version, t.Sequence)
	s.applied[t.Key] = t.Sequence
	s.sweepLocked()
	return true
}

// Superseded reports whether a newer response than the ticket has been applied.
func (s *Store) Superseded(t Ticket) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return t.Sequence <= s.applied[t.Key]
}

// IsFresh is false when the entry is absent, older than the TTL, or carries a
// tag invalidated after it was requested.
func (s *Store) IsFresh(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entries[key]
	if !ok {
		return false
	}
	return s.freshLocked(e, s.now())
}

// Freshness returns a descriptive freshness report for key.
func (s *Store) Freshness(key string) Freshness {
	s.mu.Lock()
	defer s.mu.Unlock()
	report := Freshness{Key: key}
	e, ok := s.entries[key]
	if !ok {
		return report
	}
	now := s.now()
	report.Present = true
	report.Fresh = s.freshLocked(e, now)
	report.Age = now.Sub(e.FetchedAt)
	if report.Fresh {
		report.ExpiresIn = s.ttl - report.Age
	}
	report.Tags = append([]string(nil), e.Tags...)
	return report
}

// Invalidate marks tags invalidated. Entries are not evicted; they read as
// stale on the next freshness check. It returns the number of entries affected.
func (s *Store) Invalidate(tags ...string) int {
	if len(tags) == 0 {
		return 0
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.version++
	for _, tag := range tags {
		if tag != "" {
			s.invalidated[tag] = s.version
		}
	}
	affected := 0
	for _, e := range s.entries {
		if e.hasAnyTag(tags) {
			affected++
		}
	}
	s.sweepLocked()
	return affected
}

// InvalidateKey marks a single entry stale.
func (s *Store) InvalidateKey(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entries[key]
	if !ok {
		return false
	}
	e.Invalidated = true
	s.sweepLocked()
	return true
}

// EvictExpired removes entries whose freshness window elapsed and enforces the
// entry bound. It returns the number of evicted entries.
func (s *Store) EvictExpired() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sweepLocked()
}

// Keys returns the cached keys in sorted order.
func (s *Store) Keys() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	keys := make([]string, 0, len(s.entries))
	for k := range s.entries {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// KeysWithTag returns cached keys carrying tag.
func (s *Store) KeysWithTag(tag string) []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	var keys []string
	for k, e := range s.entries {
		if e.hasAnyTag([]string{tag}) {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	return keys
}

// Len returns the number of cached entries.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

// Clear drops every entry and invalidation mark. Outstanding tickets stay
// ordered so late responses cannot resurrect data.
func (s *Store) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = make(map[string]*Entry)
	s.invalidated = make(map[string]uint64)
	for k, seq := range s.issued {
		s.applied[k] = seq
	}
}

func (s *Store) setLocked(key string, payload interface{}, tags []string, fetchedAt time.Time, version, seq uint64) {
	s.entries[key] = &Entry{
		Key:       key,
		Payload:   payload,
		FetchedAt: fetchedAt,
		Tags:      dedupe(tags),
		Version:   version,
		Sequence:  seq,
	}
}

func (s *Store) freshLocked(e *Entry, now time.Time) bool {
	if e.Invalidated {
		return false
	}
	if now.Sub(e.FetchedAt) >= s.ttl {
		return false
	}
	for _, tag := range e.Tags {
		if v, ok := s.invalidated[tag]; ok && v > e.Version {
			return false
		}
	}
	return true
}

// sweepLocked runs on every write so growth stays bounded without a timer.
func (s *Store) sweepLocked() int {
	now := s.now()
	evicted := 0
	for k, e := range s.entries {
		if now.Sub(e.FetchedAt) >= s.ttl {
			delete(s.entries, k)
			evicted++
		}
	}

	if over := len(s.entries) - s.maxEntries; over > 0 {
		oldest := make([]*Entry, 0, len(s.entries))
		for _, e := range s.entries {
			oldest = append(oldest, e)
		}
		sort.Slice(oldest, func(i, j int) bool {
			if oldest[i].FetchedAt.Equal(oldest[j].FetchedAt) {
				return oldest[i].Key < oldest[j].Key
			}
			return oldest[i].FetchedAt.Before(oldest[j].FetchedAt)
		})
		for _, e := range oldest[:over] {
			delete(s.entries, e.Key)
			evicted++
		}
	}

	s.pruneLocked()
	if evicted > 0 {
		s.logger.Debug("cache sweep evicted entries", zap.Int("evicted", evicted), zap.Int("remaining", len(s.entries)))
	}
	return evicted
}

func (s *Store) finishLocked(key string) {
	s.outstanding[key]--
	if s.outstanding[key] <= 0 {
		delete(s.outstanding, key)
		delete(s.reservedAt, key)
	}
}

// pruneLocked drops tag marks that can no longer affect any entry or any
// outstanding request. Sequence bookkeeping is kept for the process lifetime:
// a superseded response may still be in flight after its key was evicted.
func (s *Store) pruneLocked() {
	if len(s.entries) == 0 && len(s.reservedAt) == 0 {
		s.invalidated = make(map[string]uint64)
		return
	}
	minVersion := ^uint64(0)
	for _, e := range s.entries {
		if e.Version < minVersion {
			minVersion = e.Version
		}
	}
	for _, v := range s.reservedAt {
		if v < minVersion {
			minVersion = v
		}
	}
	for tag, v := range s.invalidated {
		if v <= minVersion {
			delete(s.invalidated, tag)
		}
	}
}

func (e *Entry) clone() Entry {
	c := *e
	c.Tags = append([]string(nil), e.Tags...)
	return c
}

func (e *Entry) hasAnyTag(tags []string) bool {
	for _, want := range tags {
		for _, have := range e.Tags {
			if want == have {
				return true
			}
		}
	}
	return false
}

func dedupe(tags []string) []string {
	if len(tags) == 0 {
		return nil
	}
	seen := make(map[string]struct{}, len(tags))
	out := make([]string, 0, len(tags))
	for _, t := range tags {
		if t == "" {
			continue
		}
		if _, ok := seen[t]; ok {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}
	sort.Strings(out)
	return out
}
