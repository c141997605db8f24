package engine

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/roach88/canvasync/internal/handlers"
	"github.com/roach88/canvasync/internal/interaction"
	"github.com/roach88/canvasync/internal/media"
	"github.com/roach88/canvasync/internal/model"
	"github.com/roach88/canvasync/internal/registry"
	"github.com/roach88/canvasync/internal/surface"
)

// Config is the surface configuration supplied by the host.
type Config struct {
	Surface    model.Size
	Project    model.Size
	Background string
}

// RebuildOptions carries the per-rebuild inputs beside the elements.
type RebuildOptions struct {
	Captions  model.CaptionStyle
	Watermark *model.Element
	Clean     bool
}

// Engine is the editor-facing synchronization engine.
//
// Thread-safety model:
//   - every exported method is safe from any goroutine
//   - materializations run concurrently inside a rebuild
//   - gesture commits are synchronous and route through the outbox
type Engine struct {
	mu         sync.Mutex
	zmu        sync.Mutex // orders stacking commands with their updates
	cfg        Config
	meta       model.SurfaceMetadata
	sampleTime float64
	elements   map[string]model.Element
	order      []string
	captions   model.CaptionStyle
	watermark  *model.Element

	reg         *registry.Registry
	canvas      *surface.Canvas
	sampler     media.Sampler
	clock       SeqSource
	builder     *SceneBuilder
	zorder      *ZOrderManager
	interaction *interaction.Controller
	outbox      *Outbox
	journal     Journal
	sessionGen  SessionIDGenerator
	session     string

	subMu       sync.RWMutex
	subscribers []func(Update)
}

// EngineOption allows configuration of engine collaborators.
type EngineOption func(*Engine)

// WithClock replaces the logical clock, typically with a deterministic one.
func WithClock(c SeqSource) EngineOption {
	return func(e *Engine) {
		e.clock = c
	}
}

// WithJournal records rebuilds and updates.
func WithJournal(j Journal) EngineOption {
	return func(e *Engine) {
		e.journal = j
	}
}

// WithRegistry replaces the default kind registry.
func WithRegistry(r *registry.Registry) EngineOption {
	return func(e *Engine) {
		e.reg = r
	}
}

// WithCanvas replaces the default in-memory canvas, e.g. to attach a
// renderer.
func WithCanvas(c *surface.Canvas) EngineOption {
	return func(e *Engine) {
		e.canvas = c
	}
}

// WithIDGenerator sets the session id generator.
func WithIDGenerator(g SessionIDGenerator) EngineOption {
	return func(e *Engine) {
		e.sessionGen = g
	}
}

// New builds the surface for cfg. Invalid sizes are configuration errors.
func New(cfg Config, sampler media.Sampler, opts ...EngineOption) (*Engine, error) {
	meta, err := model.NewSurfaceMetadata(cfg.Surface, cfg.Project)
	if err != nil {
		return nil, NewConfigError(err)
	}

	e := &Engine{
		cfg:        cfg,
		meta:       meta,
		elements:   make(map[string]model.Element),
		sampler:    sampler,
		clock:      NewClock(),
		outbox:     newOutbox(),
		sessionGen: UUIDv7Generator{},
	}
	for _, opt := range opts {
		opt(e)
	}

	if e.reg == nil {
		e.reg = registry.New()
		handlers.RegisterDefaults(e.reg)
	}
	if e.canvas == nil {
		e.canvas = surface.NewCanvas()
	}
	if cfg.Background != "" {
		e.canvas.SetBackground(cfg.Background)
	}

	e.zorder = NewZOrderManager(e.canvas)
	e.builder = NewSceneBuilder(e.reg, e.canvas, e.zorder, sampler, e.clock)
	e.interaction = interaction.NewController(e.reg, e, interaction.RouterFunc(e.route))
	e.session = e.sessionGen.Generate()

	slog.Info("engine ready",
		"session", e.session,
		"surface", fmt.Sprintf("%vx%v", cfg.Surface.Width, cfg.Surface.Height),
		"project", fmt.Sprintf("%vx%v", cfg.Project.Width, cfg.Project.Height),
	)
	return e, nil
}

// Session returns the session id used for journal entries.
func (e *Engine) Session() string {
	return e.session
}

// Canvas returns the live canvas.
func (e *Engine) Canvas() *surface.Canvas {
	return e.canvas
}

// Registry returns the kind registry so hosts can register more kinds.
func (e *Engine) Registry() *registry.Registry {
	return e.reg
}

// Metadata returns the current SurfaceMetadata.
func (e *Engine) Metadata() model.SurfaceMetadata {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.meta
}

// Updates returns the outbound update stream.
func (e *Engine) Updates() *Outbox {
	return e.outbox
}

// Subscribe registers a callback invoked synchronously for every update,
// after it is queued.
func (e *Engine) Subscribe(fn func(Update)) {
	e.subMu.Lock()
	defer e.subMu.Unlock()
	e.subscribers = append(e.subscribers, fn)
}

// Order returns element ids back to front.
func (e *Engine) Order() []string {
	return e.zorder.Order()
}

// RebuildScene materializes elements at sampleTime.
func (e *Engine) RebuildScene(ctx context.Context, elements []model.Element, sampleTime float64, opts RebuildOptions) (RebuildReport, error) {
	e.mu.Lock()
	if opts.Clean {
		e.elements = make(map[string]model.Element, len(elements))
		e.order = e.order[:0]
	}
	for _, el := range elements {
		if _, seen := e.elements[el.ID]; !seen {
			e.order = append(e.order, el.ID)
		}
		e.elements[el.ID] = el.Clone()
	}
	e.sampleTime = sampleTime
	e.captions = opts.Captions
	if opts.Watermark != nil {
		wm := opts.Watermark.Clone()
		e.watermark = &wm
	} else if opts.Clean {
		e.watermark = nil
	}
	req := e.requestLocked(elements, opts.Clean)
	e.mu.Unlock()

	report, err := e.builder.Rebuild(ctx, req)
	if err != nil {
		return report, err
	}
	if e.journal != nil {
		if jerr := e.journal.RecordRebuild(ctx, e.session, report); jerr != nil {
			slog.Warn("journal rebuild failed", "generation", report.Generation, "error", jerr)
		}
	}
	return report, nil
}

// AddElement materializes one element without a clean rebuild.
func (e *Engine) AddElement(ctx context.Context, el model.Element, z float64) error {
	e.mu.Lock()
	if _, seen := e.elements[el.ID]; !seen {
		e.order = append(e.order, el.ID)
	}
	el = el.Clone()
	el.ZOrder = model.Float(z)
	e.elements[el.ID] = el
	req := e.requestLocked(nil, false)
	e.mu.Unlock()

	return e.builder.Add(ctx, req, el, z)
}

// RemoveElement destroys the handles of an element and forgets it.
func (e *Engine) RemoveElement(id string) bool {
	e.mu.Lock()
	delete(e.elements, id)
	for i, oid := range e.order {
		if oid == id {
			e.order = append(e.order[:i], e.order[i+1:]...)
			break
		}
	}
	e.mu.Unlock()

	return e.builder.Remove(id) > 0
}

// Resize recomputes SurfaceMetadata for a new surface size and rebuilds the
// known elements against it.
func (e *Engine) Resize(ctx context.Context, size model.Size) (RebuildReport, error) {
	meta, err := model.NewSurfaceMetadata(size, e.cfg.Project)
	if err != nil {
		return RebuildReport{}, NewConfigError(err)
	}

	e.mu.Lock()
	e.cfg.Surface = size
	e.meta = meta
	elements := make([]model.Element, 0, len(e.order))
	for _, id := range e.order {
		elements = append(elements, e.elements[id])
	}
	opts := RebuildOptions{Captions: e.captions, Watermark: e.watermark, Clean: true}
	sampleTime := e.sampleTime
	e.mu.Unlock()

	slog.Info("surface resized", "width", size.Width, "height", size.Height)
	return e.RebuildScene(ctx, elements, sampleTime, opts)
}

func (e *Engine) requestLocked(elements []model.Element, clean bool) RebuildRequest {
	return RebuildRequest{
		Elements:   elements,
		SampleTime: e.sampleTime,
		Captions:   e.captions,
		Watermark:  e.watermark,
		Clean:      clean,
		Meta:       e.meta,
		Project:    e.cfg.Project,
	}
}

// BringToFront raises id above every element. Returns false when id has no
// live handle.
func (e *Engine) BringToFront(id string) (float64, bool) {
	return e.reorder(e.zorder.BringToFront, id)
}

// SendToBack lowers id below every element.
func (e *Engine) SendToBack(id string) (float64, bool) {
	return e.reorder(e.zorder.SendToBack, id)
}

// BringForward swaps id with the element directly above it.
func (e *Engine) BringForward(id string) (float64, bool) {
	return e.reorder(e.zorder.BringForward, id)
}

// SendBackward swaps id with the element directly below it.
func (e *Engine) SendBackward(id string) (float64, bool) {
	return e.reorder(e.zorder.SendBackward, id)
}

// reorder runs one stacking command. Commands are applied to the surface,
// the known elements and the update stream in the same order.
func (e *Engine) reorder(cmd func(string) (Move, bool), id string) (float64, bool) {
	e.zmu.Lock()
	defer e.zmu.Unlock()

	m, ok := cmd(id)
	if !ok {
		return 0, false
	}
	if !m.Changed() {
		return m.ZOrder, true
	}

	e.mu.Lock()
	e.setZLocked(m.ElementID, m.ZOrder)
	if m.Neighbor != "" {
		e.setZLocked(m.Neighbor, m.NeighborZOrder)
	}
	e.mu.Unlock()

	e.emit(UpdateZOrderChanged, m.ElementID, m)
	return m.ZOrder, true
}

func (e *Engine) setZLocked(id string, z float64) {
	if el, ok := e.elements[id]; ok {
		el.ZOrder = model.Float(z)
		e.elements[id] = el
	}
}

// Begin starts a gesture on the given elements. Several ids form a marquee
// selection.
func (e *Engine) Begin(ids ...string) (*interaction.Gesture, error) {
	return e.interaction.Begin(ids...)
}

// Capabilities reports which gestures the surface should offer for id.
func (e *Engine) Capabilities(id string) (surface.Caps, error) {
	h, ok := e.canvas.Find(id)
	if !ok {
		return surface.CapsNone, NewNotMaterializedError(id)
	}
	if _, ok := e.reg.Syncer(h.Kind); !ok {
		return surface.CapsNone, NewSyncUnsupportedError(id, string(h.Kind))
	}
	return h.Caps, nil
}

// Handle implements interaction.Source.
func (e *Engine) Handle(id string) (*surface.Handle, bool) {
	return e.canvas.Find(id)
}

// ZOrder implements interaction.Source.
func (e *Engine) ZOrder(id string) float64 {
	z, _ := e.canvas.ZOrder(id)
	return z
}

// Element implements interaction.Source.
func (e *Engine) Element(id string) (model.Element, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if el, ok := e.elements[id]; ok {
		return el, true
	}
	if e.watermark != nil && e.watermark.ID == id {
		return *e.watermark, true
	}
	return model.Element{}, false
}

// SyncContext implements interaction.Source.
func (e *Engine) SyncContext() registry.SyncContext {
	e.mu.Lock()
	defer e.mu.Unlock()
	return registry.SyncContext{
		Meta:       e.meta,
		Project:    e.cfg.Project,
		SampleTime: e.sampleTime,
		Captions:   e.captions,
	}
}

// route turns a commit outcome into updates and refreshes the known
// elements so the next gesture starts from the committed state.
func (e *Engine) route(o interaction.Outcome) {
	if len(o.Selected) > 0 {
		e.emit(UpdateItemSelected, o.Selected[0], Selection{IDs: o.Selected})
		return
	}

	for _, r := range o.Results {
		e.mu.Lock()
		switch r.Operation {
		case registry.OpCaptionStyleApplyToAll:
			if style, ok := r.Payload.(model.CaptionStyle); ok {
				e.captions = style
			}
		case registry.OpWatermarkUpdated:
			wm := r.Element
			e.watermark = &wm
		default:
			if _, ok := e.elements[r.ElementID]; ok {
				e.elements[r.ElementID] = r.Element
			}
		}
		e.mu.Unlock()

		switch r.Operation {
		case registry.OpCaptionStyleApplyToAll:
			e.emit(UpdateCaptionStyleAll, r.ElementID, r.Payload)
		case registry.OpWatermarkUpdated:
			e.emit(UpdateWatermark, r.ElementID, r.Payload)
		default:
			e.emit(UpdateElement, r.ElementID, r.Element)
		}
	}
}

func (e *Engine) emit(kind UpdateKind, elementID string, payload any) {
	u := Update{
		Seq:       e.clock.Next(),
		Kind:      kind,
		ElementID: elementID,
		Payload:   payload,
	}
	if !e.outbox.Enqueue(u) {
		slog.Debug("update dropped: outbox closed", "kind", kind, "element_id", elementID)
	}

	slog.Debug("update emitted", "seq", u.Seq, "kind", kind, "element_id", elementID)

	if e.journal != nil {
		if err := e.journal.RecordUpdate(context.Background(), e.session, u); err != nil {
			slog.Warn("journal update failed", "seq", u.Seq, "error", err)
		}
	}

	e.subMu.RLock()
	subs := e.subscribers
	e.subMu.RUnlock()
	for _, fn := range subs {
		fn(u)
	}
}

// Close stops the outbound stream. Queued updates stay readable.
func (e *Engine) Close() {
	e.outbox.Close()
}
