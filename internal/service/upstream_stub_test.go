package service

import (
	"context"
	"sync"

	"github.com/noah-isme/sma-adp-curriculum/internal/querycache"
	"github.com/noah-isme/sma-adp-curriculum/internal/store"
	"github.com/noah-isme/sma-adp-curriculum/pkg/executor"
)

// fakeUpstream answers operations by name. Gated operations block until the
// test closes their channel.
type fakeUpstream struct {
	mu        sync.Mutex
	calls     map[string]int
	ops       []executor.Operation
	responses map[string]interface{}
	errs      map[string]error
	gates     map[string]chan struct{}
	entered   chan string
}

func newFakeUpstream() *fakeUpstream {
	return &fakeUpstream{
		calls:     make(map[string]int),
		responses: make(map[string]interface{}),
		errs:      make(map[string]error),
		gates:     make(map[string]chan struct{}),
		entered:   make(chan string, 16),
	}
}

func (f *fakeUpstream) Execute(ctx context.Context, op executor.Operation) (*executor.Result, error) {
	f.mu.Lock()
	f.calls[op.Name]++
	f.ops = append(f.ops, op)
	resp := f.responses[op.Name]
	err := f.errs[op.Name]
	gate := f.gates[op.Name]
	f.mu.Unlock()

	select {
	case f.entered <- op.Name:
	default:
	}
	if gate != nil {
		<-gate
	}
	if err != nil {
		return nil, err
	}
	return executor.JSON(resp)
}

func (f *fakeUpstream) respond(name string, v interface{}) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.responses[name] = v
}

func (f *fakeUpstream) fail(name string, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.errs[name] = err
}

func (f *fakeUpstream) gate(name string) chan struct{} {
	f.mu.Lock()
	defer f.mu.Unlock()
	ch := make(chan struct{})
	f.gates[name] = ch
	return ch
}

func (f *fakeUpstream) count(name string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[name]
}

func (f *fakeUpstream) lastOp(name string) (executor.Operation, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := len(f.ops) - 1; i >= 0; i-- {
		if f.ops[i].Name == name {
			return f.ops[i], true
		}
	}
	return executor.Operation{}, false
}

func newQueries(up *fakeUpstream) *querycache.Client {
	return querycache.New(nil, up, store.New())
}
