// Package executor defines the request execution boundary consumed by the
// curriculum core. The core issues named operations and receives either a raw
// success payload or a typed RemoteFailure; it never sees transport details.
package executor

import (
	"context"
	"encoding/json"
	"net/http"
)

// Operation is an HTTP-agnostic description of a remote call.
type Operation struct {
	Name   string
	Method string
	Path   string
	Params map[string]string
	Body   interface{}
}

// Result carries the raw success payload returned by the remote side.
type Result struct {
	Status int
	Data   json.RawMessage
}

// Executor runs operations against the remote API.
type Executor interface {
	Execute(ctx context.Context, op Operation) (*Result, error)
}

// Func adapts a plain function into an Executor.
type Func func(ctx context.Context, op Operation) (*Result, error)

// Execute implements Executor.
func (f Func) Execute(ctx context.Context, op Operation) (*Result, error) {
	return f(ctx, op)
}

// IsRead reports whether the operation is a read according to its method.
func (op Operation) IsRead() bool {
	return op.Method == "" || op.Method == http.MethodGet
}

// JSON builds a success result from any JSON-marshalable value. It is mostly
// useful for fakes.
func JSON(v interface{}) (*Result, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return &Result{Status: http.StatusOK, Data: raw}, nil
}
