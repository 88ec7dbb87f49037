// Package router is the worker's handler registry: path bytes in,
// HandlerFunc out. Exact-match lookup on the request path is the
// primary, required mode. A second, optional mode layers a prefix/param
// radix tree on top for callers who want path parameters.
package router

import (
	"github.com/searchktools/reactor-server/internal/httpwire"
)

// HandlerFunc handles one parsed exchange. It must call
// exchange.Conn.AppendResponse exactly once.
type HandlerFunc func(*httpwire.Exchange)

// Mode selects how Registry.Find resolves a path.
type Mode int

const (
	// ModeExact is the default: exact byte match on the request path,
	// no parameters, no wildcards.
	ModeExact Mode = iota
	// ModeRadixParams additionally consults a radix/param/wildcard tree
	// when no exact match exists.
	ModeRadixParams
)

// Registry maps request paths to handlers. It is broadcast to every
// worker and applied locally by each worker's own thread — never shared
// or mutex-guarded.
type Registry struct {
	mode  Mode
	exact map[string]HandlerFunc
	radix *node
}

// New creates an empty Registry in the given mode.
func New(mode Mode) *Registry {
	r := &Registry{mode: mode, exact: make(map[string]HandlerFunc)}
	if mode == ModeRadixParams {
		r.radix = &node{}
	}
	return r
}

// Add registers handler for path. In ModeRadixParams, paths containing
// `:name` or `*name` segments are additionally indexed in the param
// tree; exact-match always wins when both could match.
func (r *Registry) Add(path string, handler HandlerFunc) {
	r.exact[path] = handler
	if r.radix != nil {
		r.radix.insert(path, handler)
	}
}

// AddAll registers a batch of (path, handler) pairs, the bulk variant of
// handler registration.
func (r *Registry) AddAll(entries map[string]HandlerFunc) {
	for path, h := range entries {
		r.Add(path, h)
	}
}

// Find looks up the handler for path, matching against registered paths
// exactly first. Params, when ModeRadixParams is active and no exact
// match exists, are returned alongside the handler.
func (r *Registry) Find(path string) (HandlerFunc, map[string]string, bool) {
	if h, ok := r.exact[path]; ok {
		return h, nil, true
	}
	if r.radix != nil {
		if h, params, ok := r.radix.find(path); ok {
			return h, params, true
		}
	}
	return nil, nil, false
}
