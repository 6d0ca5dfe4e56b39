// Package optimistic applies local state changes ahead of a remote round-trip
// and either keeps or reverts them once the outcome is known.
package optimistic

import (
	"context"
	"sync"
)

// Status reports how a transaction ended.
type Status int

const (
	StatusPending Status = iota
	StatusCommitted
	StatusRolledBack
)

func (s Status) String() string {
	switch s {
	case StatusCommitted:
		return "committed"
	case StatusRolledBack:
		return "rolled_back"
	default:
		return "pending"
	}
}

// Txn is an applied local change and its inverse. The first of Commit or
// Rollback wins; later calls are no-ops.
type Txn struct {
	mu     sync.Mutex
	undo   func()
	status Status
}

// Begin runs apply immediately and remembers the inverse it returns.
func Begin(apply func() (undo func())) *Txn {
	var undo func()
	if apply != nil {
		undo = apply()
	}
	return &Txn{undo: undo}
}

// Commit keeps the applied change. It reports whether this call settled the txn.
func (t *Txn) Commit() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.status != StatusPending {
		return false
	}
	t.status = StatusCommitted
	t.undo = nil
	return true
}

// Rollback reverts the applied change. It reports whether this call settled the txn.
func (t *Txn) Rollback() bool {
	t.mu.Lock()
	if t.status != StatusPending {
		t.mu.Unlock()
		return false
	}
	t.status = StatusRolledBack
	undo := t.undo
	t.undo = nil
	t.mu.Unlock()

	if undo != nil {
		undo()
	}
	return true
}

// Status returns the current settlement state.
func (t *Txn) Status() Status {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.status
}

// Run applies the change, calls remote, and commits on success or rolls back
// and returns the remote error on failure.
func Run(ctx context.Context, apply func() (undo func()), remote func(ctx context.Context) error) error {
	txn := Begin(apply)
	if err := remote(ctx); err != nil {
		txn.Rollback()
		return err
	}
	txn.Commit()
	return nil
}
