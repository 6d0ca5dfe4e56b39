// Package querycache is a normalized cache of server-backed collections. Each
// named operation declares how it is requested, how its response is
// normalized, which tags the stored payload carries, and which tags a mutation
// invalidates.
package querycache

import (
	"encoding/json"
	"net/http"
	"net/url"
	"sort"
	"strings"

	"github.com/noah-isme/sma-adp-curriculum/internal/models"
	"github.com/noah-isme/sma-adp-curriculum/pkg/executor"
	appErrors "github.com/noah-isme/sma-adp-curriculum/pkg/errors"
)

// Kind separates cacheable reads from mutations.
type Kind string

const (
	KindQuery    Kind = "query"
	KindMutation Kind = "mutation"
)

// Params are the signature of a request: path placeholders and query filters.
type Params map[string]string

// Clone returns a copy of the params.
func (p Params) Clone() Params {
	out := make(Params, len(p))
	for k, v := range p {
		out[k] = v
	}
	return out
}

// TagFunc derives tags from a request signature and its normalized payload.
type TagFunc func(params Params, payload interface{}) []string

// Operation describes one remote call.
type Operation struct {
	Name        string
	Kind        Kind
	Method      string
	Path        string
	Normalize   func(raw json.RawMessage) (interface{}, error)
	Tags        TagFunc
	Invalidates TagFunc
}

// Build resolves the path placeholders and returns the executor descriptor.
// For queries the remaining params become query filters.
func (op Operation) Build(params Params, body interface{}) (executor.Operation, error) {
	path, used, err := expandPath(op.Path, params)
	if err != nil {
		return executor.Operation{}, err
	}
	method := op.Method
	if method == "" {
		method = http.MethodGet
	}
	desc := executor.Operation{Name: op.Name, Method: method, Path: path, Body: body}
	if op.Kind == KindQuery {
		for k, v := range params {
			if _, ok := used[k]; ok || v == "" {
				continue
			}
			if desc.Params == nil {
				desc.Params = make(map[string]string)
			}
			desc.Params[k] = v
		}
	}
	return desc, nil
}

func expandPath(template string, params Params) (string, map[string]struct{}, error) {
	used := make(map[string]struct{})
	var b strings.Builder
	rest := template
	for {
		open := strings.IndexByte(rest, '{')
		if open < 0 {
			b.WriteString(rest)
			break
		}
		closing := strings.IndexByte(rest[open:], '}')
		if closing < 0 {
			b.WriteString(rest)
			break
		}
		name := rest[open+1 : open+closing]
		value := strings.TrimSpace(params[name])
		if value == "" {
			return "", nil, appErrors.Clone(appErrors.ErrValidation, name+" is required")
		}
		b.WriteString(rest[:open])
		b.WriteString(url.PathEscape(value))
		used[name] = struct{}{}
		rest = rest[open+closing+1:]
	}
	return b.String(), used, nil
}

// Key computes the deterministic cache key for an operation and its params:
// the name followed by the params sorted by key. Empty values are ignored.
func Key(name string, params Params) string {
	keys := make([]string, 0, len(params))
	for k, v := range params {
		if v == "" {
			continue
		}
		keys = append(keys, k)
	}
	if len(keys) == 0 {
		return name
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, url.QueryEscape(k)+"="+url.QueryEscape(params[k]))
	}
	return name + "?" + strings.Join(parts, "&")
}

// Tag returns the detail tag for an entity, e.g. "Material:42".
func Tag(entity string, id models.ID) string {
	return entity + ":" + string(id)
}

// ListTag returns the collection tag for an entity type, e.g. "Material:LIST".
func ListTag(entity string) string {
	return entity + ":LIST"
}

// Registry holds the operation catalog.
type Registry struct {
	ops map[string]Operation
}

// NewRegistry builds a registry from operations. Later duplicates win.
func NewRegistry(ops ...Operation) *Registry {
	r := &Registry{ops: make(map[string]Operation, len(ops))}
	for _, op := range ops {
		r.Register(op)
	}
	return r
}

// Register adds or replaces an operation.
func (r *Registry) Register(op Operation) {
	r.ops[op.Name] = op
}

// Lookup returns the operation registered under name.
func (r *Registry) Lookup(name string) (Operation, error) {
	op, ok := r.ops[name]
	if !ok {
		return Operation{}, appErrors.Clone(appErrors.ErrValidation, "unknown operation "+name)
	}
	return op, nil
}

// Names lists registered operations in sorted order.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.ops))
	for name := range r.ops {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
