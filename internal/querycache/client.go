package querycache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/noah-isme/sma-adp-curriculum/internal/store"
	"github.com/noah-isme/sma-adp-curriculum/pkg/executor"
	appErrors "github.com/noah-isme/sma-adp-curriculum/pkg/errors"
)

// Execution outcomes reported to the Recorder.
const (
	OutcomeSuccess   = "success"
	OutcomeFailure   = "failure"
	OutcomeMalformed = "malformed"
)

// Discard reasons reported to the Recorder.
const (
	DiscardSuperseded = "superseded"
	DiscardIrrelevant = "irrelevant"
)

// Recorder receives cache and executor observations.
type Recorder interface {
	RecordCacheLookup(operation string, hit bool)
	ObserveExecution(operation, outcome string, elapsed time.Duration)
	RecordDiscarded(operation, reason string)
}

type nopRecorder struct{}

func (nopRecorder) RecordCacheLookup(string, bool)                 {}
func (nopRecorder) ObserveExecution(string, string, time.Duration) {}
func (nopRecorder) RecordDiscarded(string, string)                 {}

// Record is a raw query response kept outside the process for warm starts.
type Record struct {
	Key       string          `json:"key"`
	Operation string          `json:"operation"`
	Params    Params          `json:"params,omitempty"`
	Raw       json.RawMessage `json:"raw"`
	FetchedAt time.Time       `json:"fetched_at"`
}

// Persister writes query responses through to durable storage.
type Persister interface {
	Save(ctx context.Context, record Record, ttl time.Duration) error
	Delete(ctx context.Context, keys ...string) error
	Load(ctx context.Context) ([]Record, error)
}

// Result is a query or mutation outcome.
type Result struct {
	Key       string
	Payload   interface{}
	CacheHit  bool
	FetchedAt time.Time
}

// Option configures a Client.
type Option func(*Client)

// WithPersister enables write-through persistence of query responses.
func WithPersister(p Persister) Option {
	return func(c *Client) { c.persister = p }
}

// WithRecorder sets the metrics recorder.
func WithRecorder(r Recorder) Option {
	return func(c *Client) {
		if r != nil {
			c.recorder = r
		}
	}
}

// WithLogger sets the logger.
func WithLogger(logger *zap.Logger) Option {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// QueryOption tunes a single query.
type QueryOption func(*queryOptions)

type queryOptions struct {
	guard   func() bool
	refresh bool
}

// WithGuard attaches a relevance check evaluated when the response arrives. A
// response whose guard fails is not applied and the caller gets STALE_RESPONSE.
func WithGuard(guard func() bool) QueryOption {
	return func(o *queryOptions) { o.guard = guard }
}

// WithForceRefresh bypasses the freshness check.
func WithForceRefresh() QueryOption {
	return func(o *queryOptions) { o.refresh = true }
}

// Client issues named operations through the executor and caches query
// results in the resource store.
type Client struct {
	registry  *Registry
	executor  executor.Executor
	store     *store.Store
	persister Persister
	recorder  Recorder
	logger    *zap.Logger

	group      singleflight.Group
	mu         sync.Mutex
	generation uint64
	flights    map[string]*flight
}

// flight collects the relevance guards of every caller sharing one request.
type flight struct {
	mu        sync.Mutex
	guards    []func() bool
	unguarded bool
}

func (f *flight) add(guard func() bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if guard == nil {
		f.unguarded = true
		return
	}
	f.guards = append(f.guards, guard)
}

// relevant reports whether any caller still wants the response.
func (f *flight) relevant() bool {
	f.mu.Lock()
	if f.unguarded {
		f.mu.Unlock()
		return true
	}
	guards := append([]func() bool(nil), f.guards...)
	f.mu.Unlock()
	for _, guard := range guards {
		if guard() {
			return true
		}
	}
	return false
}

// New constructs a Client.
func New(registry *Registry, exec executor.Executor, cache *store.Store, opts ...Option) *Client {
	if registry == nil {
		registry = DefaultRegistry()
	}
	if cache == nil {
		cache = store.New()
	}
	c := &Client{
		registry: registry,
		executor: exec,
		store:    cache,
		recorder: nopRecorder{},
		logger:   zap.NewNop(),
		flights:  make(map[string]*flight),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(c)
		}
	}
	return c
}

// Store exposes the underlying resource store.
func (c *Client) Store() *store.Store {
	return c.store
}

// Registry exposes the operation catalog.
func (c *Client) Registry() *Registry {
	return c.registry
}

// Query returns the cached payload when fresh, otherwise fetches it. Identical
// concurrent queries share one outstanding request until the next invalidation.
func (c *Client) Query(ctx context.Context, name string, params Params, opts ...QueryOption) (*Result, error) {
	op, err := c.registry.Lookup(name)
	if err != nil {
		return nil, err
	}
	if op.Kind != KindQuery {
		return nil, appErrors.Clone(appErrors.ErrValidation, name+" is not a query")
	}
	var options queryOptions
	for _, opt := range opts {
		opt(&options)
	}

	key := Key(name, params)
	if !options.refresh && c.store.IsFresh(key) {
		if entry, ok := c.store.Get(key); ok {
			c.recorder.RecordCacheLookup(name, true)
			return &Result{Key: key, Payload: entry.Payload, CacheHit: true, FetchedAt: entry.FetchedAt}, nil
		}
	}
	c.recorder.RecordCacheLookup(name, false)

	flightKey := fmt.Sprintf("%s#%d", key, c.currentGeneration())
	if options.refresh {
		flightKey += "#refresh"
	}
	fl := c.joinFlight(flightKey, options.guard)
	ch := c.group.DoChan(flightKey, func() (interface{}, error) {
		defer c.leaveFlight(flightKey, fl)
		return c.fetch(context.WithoutCancel(ctx), op, key, params.Clone(), fl.relevant)
	})

	select {
	case <-ctx.Done():
		return nil, cancelled(name, ctx.Err())
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		if options.guard != nil && !options.guard() {
			c.recorder.RecordDiscarded(name, DiscardIrrelevant)
			return nil, appErrors.Clone(appErrors.ErrStaleResponse, name+" finished after its selection changed")
		}
		result := *res.Val.(*Result)
		return &result, nil
	}
}

func (c *Client) joinFlight(flightKey string, guard func() bool) *flight {
	c.mu.Lock()
	fl, ok := c.flights[flightKey]
	if !ok {
		fl = &flight{}
		c.flights[flightKey] = fl
	}
	c.mu.Unlock()
	fl.add(guard)
	return fl
}

func (c *Client) leaveFlight(flightKey string, fl *flight) {
	c.mu.Lock()
	if c.flights[flightKey] == fl {
		delete(c.flights, flightKey)
	}
	c.mu.Unlock()
}

// fetch runs one shared request. The response is applied when at least one
// joined caller still finds it relevant; each caller checks its own guard
// afterwards.
func (c *Client) fetch(ctx context.Context, op Operation, key string, params Params, relevant func() bool) (*Result, error) {
	desc, err := op.Build(params, nil)
	if err != nil {
		return nil, err
	}
	ticket := c.store.Reserve(key)

	started := time.Now()
	res, err := c.executor.Execute(ctx, desc)
	if err != nil {
		c.store.Release(ticket)
		c.recorder.ObserveExecution(op.Name, OutcomeFailure, time.Since(started))
		c.logger.Warn("query failed", zap.String("operation", op.Name), zap.String("key", key), zap.Error(err))
		return nil, remoteFailure(err)
	}

	raw := resultData(res)
	payload, err := op.Normalize(raw)
	if err != nil {
		c.store.Release(ticket)
		c.recorder.ObserveExecution(op.Name, OutcomeMalformed, time.Since(started))
		return nil, appErrors.Wrap(err, appErrors.KindRemoteFailure, appErrors.ErrRemoteFailure.Status, "malformed "+op.Name+" response")
	}
	c.recorder.ObserveExecution(op.Name, OutcomeSuccess, time.Since(started))

	if !relevant() {
		c.store.Release(ticket)
		c.logger.Debug("discarding irrelevant response", zap.String("operation", op.Name), zap.String("key", key))
		c.recorder.RecordDiscarded(op.Name, DiscardIrrelevant)
		return nil, appErrors.Clone(appErrors.ErrStaleResponse, op.Name+" finished after its selection changed")
	}

	var tags []string
	if op.Tags != nil {
		tags = op.Tags(params, payload)
	}
	if !c.store.Commit(ticket, payload, tags) {
		c.recorder.RecordDiscarded(op.Name, DiscardSuperseded)
		if entry, ok := c.store.Get(key); ok {
			return &Result{Key: key, Payload: entry.Payload, FetchedAt: entry.FetchedAt}, nil
		}
		return nil, appErrors.Clone(appErrors.ErrStaleResponse, op.Name+" was superseded")
	}

	entry, _ := c.store.Get(key)
	c.persist(ctx, Record{Key: key, Operation: op.Name, Params: params, Raw: raw, FetchedAt: entry.FetchedAt})
	return &Result{Key: key, Payload: payload, FetchedAt: entry.FetchedAt}, nil
}

// Mutate runs a mutation and invalidates the tags it declares. Mutations are
// never served from cache.
func (c *Client) Mutate(ctx context.Context, name string, params Params, body interface{}) (*Result, error) {
	op, err := c.registry.Lookup(name)
	if err != nil {
		return nil, err
	}
	if op.Kind != KindMutation {
		return nil, appErrors.Clone(appErrors.ErrValidation, name+" is not a mutation")
	}
	desc, err := op.Build(params, body)
	if err != nil {
		return nil, err
	}

	started := time.Now()
	res, err := c.executor.Execute(ctx, desc)
	if err != nil {
		c.recorder.ObserveExecution(name, OutcomeFailure, time.Since(started))
		c.logger.Warn("mutation failed", zap.String("operation", name), zap.Error(err))
		return nil, remoteFailure(err)
	}
	c.recorder.ObserveExecution(name, OutcomeSuccess, time.Since(started))

	var payload interface{}
	if op.Normalize != nil {
		payload, err = op.Normalize(resultData(res))
		if err != nil {
			// The mutation already happened remotely; keep going so caches reconcile.
			c.logger.Warn("malformed mutation response", zap.String("operation", name), zap.Error(err))
			payload = nil
		}
	}
	if op.Invalidates != nil {
		c.Invalidate(ctx, op.Invalidates(params, payload)...)
	}
	return &Result{Payload: payload}, nil
}

// Invalidate marks tags stale, drops persisted copies of affected entries, and
// detaches in-flight queries from later callers.
func (c *Client) Invalidate(ctx context.Context, tags ...string) int {
	if len(tags) == 0 {
		return 0
	}
	var keys []string
	if c.persister != nil {
		seen := make(map[string]struct{})
		for _, tag := range tags {
			for _, k := range c.store.KeysWithTag(tag) {
				if _, ok := seen[k]; !ok {
					seen[k] = struct{}{}
					keys = append(keys, k)
				}
			}
		}
	}

	c.mu.Lock()
	c.generation++
	c.mu.Unlock()
	affected := c.store.Invalidate(tags...)

	if len(keys) > 0 {
		if err := c.persister.Delete(ctx, keys...); err != nil {
			c.logger.Warn("failed to drop persisted entries", zap.Strings("keys", keys), zap.Error(err))
		}
	}
	c.logger.Debug("tags invalidated", zap.Strings("tags", tags), zap.Int("affected", affected))
	return affected
}

// Clear drops every cached entry and detaches in-flight queries from later
// callers, so a query issued after the clear starts a new request.
func (c *Client) Clear() {
	c.mu.Lock()
	c.generation++
	c.mu.Unlock()
	c.store.Clear()
}

// IsFresh reports whether the query result for params is cached and fresh.
func (c *Client) IsFresh(name string, params Params) bool {
	return c.store.IsFresh(Key(name, params))
}

// Peek returns the cached payload regardless of freshness.
func (c *Client) Peek(name string, params Params) (interface{}, bool) {
	entry, ok := c.store.Get(Key(name, params))
	if !ok {
		return nil, false
	}
	return entry.Payload, true
}

// Freshness returns the store's freshness report for a query.
func (c *Client) Freshness(name string, params Params) store.Freshness {
	return c.store.Freshness(Key(name, params))
}

// Hydrate replays persisted responses into the store, keeping their original
// fetch time so the TTL keeps counting from the real fetch.
func (c *Client) Hydrate(ctx context.Context) (int, error) {
	if c.persister == nil {
		return 0, nil
	}
	records, err := c.persister.Load(ctx)
	if err != nil {
		return 0, err
	}
	restored := 0
	for _, rec := range records {
		op, err := c.registry.Lookup(rec.Operation)
		if err != nil || op.Kind != KindQuery {
			continue
		}
		payload, err := op.Normalize(rec.Raw)
		if err != nil {
			c.logger.Debug("skipping unreadable persisted entry", zap.String("key", rec.Key), zap.Error(err))
			continue
		}
		var tags []string
		if op.Tags != nil {
			tags = op.Tags(rec.Params, payload)
		}
		if c.store.PutAt(Key(rec.Operation, rec.Params), payload, tags, rec.FetchedAt) {
			restored++
		}
	}
	c.logger.Info("query cache hydrated", zap.Int("records", len(records)), zap.Int("restored", restored))
	return restored, nil
}

func (c *Client) persist(ctx context.Context, rec Record) {
	if c.persister == nil {
		return
	}
	if err := c.persister.Save(ctx, rec, c.store.TTL()); err != nil {
		c.logger.Warn("failed to persist query result", zap.String("key", rec.Key), zap.Error(err))
	}
}

func (c *Client) currentGeneration() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.generation
}

func resultData(res *executor.Result) json.RawMessage {
	if res == nil {
		return nil
	}
	return res.Data
}

// remoteFailure keeps typed failures unchanged and wraps anything else.
func remoteFailure(err error) error {
	var typed *appErrors.Error
	if errors.As(err, &typed) {
		return err
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return cancelled("request", err)
	}
	failure := appErrors.NewRemoteFailure(err.Error(), "", 0)
	failure.Err = err
	return failure
}

// cancelled reports a request abandoned before its response arrived.
func cancelled(name string, err error) *appErrors.Error {
	return appErrors.Wrap(err, appErrors.KindRemoteFailure, http.StatusGatewayTimeout, name+" was cancelled before the response arrived")
}

// QueryAs runs Query and asserts the payload type.
func QueryAs[T any](ctx context.Context, c *Client, name string, params Params, opts ...QueryOption) (T, *Result, error) {
	var zero T
	res, err := c.Query(ctx, name, params, opts...)
	if err != nil {
		return zero, nil, err
	}
	v, ok := res.Payload.(T)
	if !ok {
		return zero, res, appErrors.Clone(appErrors.ErrInternal, fmt.Sprintf("unexpected %s payload %T", name, res.Payload))
	}
	return v, res, nil
}

// MutateAs runs Mutate and asserts the payload type when one was returned.
func MutateAs[T any](ctx context.Context, c *Client, name string, params Params, body interface{}) (T, error) {
	var zero T
	res, err := c.Mutate(ctx, name, params, body)
	if err != nil {
		return zero, err
	}
	if res.Payload == nil {
		return zero, nil
	}
	v, ok := res.Payload.(T)
	if !ok {
		return zero, appErrors.Clone(appErrors.ErrInternal, fmt.Sprintf("unexpected %s payload %T", name, res.Payload))
	}
	return v, nil
}
