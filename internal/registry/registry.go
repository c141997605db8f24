// Package registry maps element kinds to the handlers that materialize and
// synchronize them.
//
// Every kind exposes Materialize; kinds with a surface visual also implement
// Syncer. Unknown kinds resolve to "no handler" and callers skip them.
// Registration normally happens once at startup, but the registry stays open
// so collaborators can register additional kinds at any time.
package registry

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/roach88/canvasync/internal/media"
	"github.com/roach88/canvasync/internal/model"
	"github.com/roach88/canvasync/internal/surface"
)

// Sink receives the handles produced by a materialization. Add returns false
// when the write belongs to a superseded rebuild and was dropped.
type Sink interface {
	Add(h *surface.Handle) bool
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(h *surface.Handle) bool

// Add implements Sink.
func (f SinkFunc) Add(h *surface.Handle) bool {
	return f(h)
}

// Params carries everything a handler needs to materialize one element.
// ZOrder is fixed by the caller at call time, never at completion time.
type Params struct {
	Element    model.Element
	ZOrder     float64
	SampleTime float64
	Meta       model.SurfaceMetadata
	Project    model.Size
	Captions   model.CaptionStyle
	Sampler    media.Sampler
	Sink       Sink
}

// Handler constructs zero or more surface visuals for an element.
type Handler interface {
	Materialize(ctx context.Context, p Params) error
}

// HandlerFunc adapts a function to Handler.
type HandlerFunc func(ctx context.Context, p Params) error

// Materialize implements Handler.
func (f HandlerFunc) Materialize(ctx context.Context, p Params) error {
	return f(ctx, p)
}

// Operation names a side channel a sync result must be routed to.
type Operation string

const (
	// OpNone is a plain element update.
	OpNone Operation = ""
	// OpCaptionStyleApplyToAll restyles every caption.
	OpCaptionStyleApplyToAll Operation = "captionStyleApplyToAll"
	// OpWatermarkUpdated replaces the shared watermark state.
	OpWatermarkUpdated Operation = "watermarkUpdated"
	// OpZOrderChanged reports a stacking change.
	OpZOrderChanged Operation = "zOrderChanged"
)

// SyncContext is the read-only context of a gesture commit.
type SyncContext struct {
	Meta       model.SurfaceMetadata
	Project    model.Size
	SampleTime float64
	Captions   model.CaptionStyle
}

// SyncResult is the declarative outcome of a committed gesture.
type SyncResult struct {
	Element   model.Element
	Operation Operation
	Payload   any
}

// Syncer converts a handle's final transform back into an element update.
// It must be synchronous.
type Syncer interface {
	SyncFromSurface(h *surface.Handle, el model.Element, sc SyncContext) (SyncResult, error)
}

// Registry maps kinds to handlers. Safe for concurrent use.
type Registry struct {
	mu       sync.RWMutex
	handlers map[model.Kind]Handler
}

// New creates an empty registry.
func New() *Registry {
	return &Registry{handlers: make(map[model.Kind]Handler)}
}

// Register adds a handler for kind.
// Panics if h is nil or kind is already registered, like init-time
// registration mistakes elsewhere in the ecosystem.
func (r *Registry) Register(kind model.Kind, h Handler) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if h == nil {
		panic(fmt.Sprintf("registry: Register handler is nil for kind %s", kind))
	}
	if _, exists := r.handlers[kind]; exists {
		panic(fmt.Sprintf("registry: Register called twice for kind %s", kind))
	}
	r.handlers[kind] = h
}

// Replace installs h for kind, overriding any existing handler.
func (r *Registry) Replace(kind model.Kind, h Handler) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if h == nil {
		delete(r.handlers, kind)
		return
	}
	r.handlers[kind] = h
}

// Lookup returns the handler for kind.
func (r *Registry) Lookup(kind model.Kind) (Handler, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	h, ok := r.handlers[kind]
	return h, ok
}

// Syncer returns the sync capability for kind, if the handler has one.
func (r *Registry) Syncer(kind model.Kind) (Syncer, bool) {
	h, ok := r.Lookup(kind)
	if !ok {
		return nil, false
	}
	s, ok := h.(Syncer)
	return s, ok
}

// IsRegistered reports whether kind has a handler.
func (r *Registry) IsRegistered(kind model.Kind) bool {
	_, ok := r.Lookup(kind)
	return ok
}

// Kinds returns the registered kinds, sorted.
func (r *Registry) Kinds() []model.Kind {
	r.mu.RLock()
	defer r.mu.RUnlock()

	kinds := make([]model.Kind, 0, len(r.handlers))
	for k := range r.handlers {
		kinds = append(kinds, k)
	}
	sort.Slice(kinds, func(i, j int) bool { return kinds[i] < kinds[j] })
	return kinds
}
