package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/sourcegraph/conc"
	"github.com/sourcegraph/conc/panics"

	"github.com/roach88/canvasync/internal/coords"
	"github.com/roach88/canvasync/internal/media"
	"github.com/roach88/canvasync/internal/model"
	"github.com/roach88/canvasync/internal/registry"
	"github.com/roach88/canvasync/internal/surface"
)

// RebuildRequest describes one scene rebuild.
type RebuildRequest struct {
	Elements   []model.Element
	SampleTime float64
	Captions   model.CaptionStyle
	Watermark  *model.Element
	// Clean discards every live handle first. The background color is kept.
	Clean bool

	Meta    model.SurfaceMetadata
	Project model.Size
}

// SkipReason records why an element has no handle after a rebuild. Skips
// are logged as they are recorded.
type SkipReason struct {
	ElementID string     `json:"element_id"`
	Kind      model.Kind `json:"kind"`
	Code      ErrorCode  `json:"code"`
	Message   string     `json:"message"`
}

// RebuildReport summarizes a settled rebuild.
type RebuildReport struct {
	Generation   int64        `json:"generation"`
	SampleTime   float64      `json:"sample_time"`
	Materialized int          `json:"materialized"`
	Skipped      []SkipReason `json:"skipped,omitempty"`
	// Order lists element ids back to front after the final resort.
	Order []string `json:"order"`
}

// SceneBuilder materializes elements onto the canvas.
//
// Thread-safety: Rebuild and Add may be called from any goroutine. A rebuild
// that starts while another is in flight supersedes it: the older rebuild
// keeps running but its writes are dropped.
type SceneBuilder struct {
	reg     *registry.Registry
	canvas  *surface.Canvas
	zorder  *ZOrderManager
	sampler media.Sampler
	clock   SeqSource

	mu         sync.Mutex // guards generation and canvas writes
	generation int64
}

// NewSceneBuilder wires a builder.
func NewSceneBuilder(reg *registry.Registry, canvas *surface.Canvas, zorder *ZOrderManager, sampler media.Sampler, clock SeqSource) *SceneBuilder {
	return &SceneBuilder{
		reg:     reg,
		canvas:  canvas,
		zorder:  zorder,
		sampler: sampler,
		clock:   clock,
	}
}

// Generation returns the current rebuild generation.
func (b *SceneBuilder) Generation() int64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.generation
}

// generationSink writes handles for one generation and drops them once a
// newer generation has started.
type generationSink struct {
	b   *SceneBuilder
	gen int64
}

func (s generationSink) Add(h *surface.Handle) bool {
	s.b.mu.Lock()
	defer s.b.mu.Unlock()

	if s.gen != s.b.generation {
		slog.Debug("dropping stale handle",
			"element_id", h.ElementID,
			"generation", s.gen,
			"current", s.b.generation,
		)
		return false
	}
	h.Generation = s.gen
	s.b.canvas.Add(h)
	return true
}

// Rebuild materializes every element concurrently, waits for all of them to
// settle, resorts once, adds the watermark on top and requests a render.
// Per-element failures are recorded in the report; Rebuild itself only
// fails when ctx is already done.
func (b *SceneBuilder) Rebuild(ctx context.Context, req RebuildRequest) (RebuildReport, error) {
	if err := ctx.Err(); err != nil {
		return RebuildReport{}, err
	}

	b.mu.Lock()
	gen := b.clock.Next()
	b.generation = gen
	if req.Clean {
		b.canvas.Clear()
	}
	b.mu.Unlock()

	sink := generationSink{b: b, gen: gen}
	report := RebuildReport{Generation: gen, SampleTime: req.SampleTime}

	slog.Debug("rebuild starting",
		"generation", gen,
		"elements", len(req.Elements),
		"clean", req.Clean,
	)

	failures := make([]error, len(req.Elements))
	var wg conc.WaitGroup
	for i, el := range req.Elements {
		h, ok := b.reg.Lookup(el.Kind)
		if !ok {
			failures[i] = NewUnknownKindError(el.ID, string(el.Kind))
			continue
		}

		p := b.params(req, el, el.ZOrderOr(float64(i)), sink)
		if el.IsScene() {
			sink.Add(sceneBackground(p))
		}
		wg.Go(func() {
			failures[i] = materialize(ctx, h, p)
		})
	}
	wg.Wait()

	for i, err := range failures {
		el := req.Elements[i]
		if err == nil {
			report.Materialized++
			continue
		}
		report.Skipped = append(report.Skipped, skip(el, err))
	}

	b.zorder.Resort()
	if req.Watermark != nil {
		if err := b.addWatermark(ctx, req, sink); err != nil {
			report.Skipped = append(report.Skipped, skip(*req.Watermark, err))
		}
	}
	if err := b.canvas.RequestRender(); err != nil {
		slog.Warn("render after rebuild failed", "generation", gen, "error", err)
	}
	report.Order = b.zorder.Order()

	slog.Info("rebuild settled",
		"generation", gen,
		"materialized", report.Materialized,
		"skipped", len(report.Skipped),
	)
	return report, nil
}

// Add materializes a single element without clearing the canvas. Any live
// handle for the same element is replaced.
func (b *SceneBuilder) Add(ctx context.Context, req RebuildRequest, el model.Element, z float64) error {
	h, ok := b.reg.Lookup(el.Kind)
	if !ok {
		err := NewUnknownKindError(el.ID, string(el.Kind))
		skip(el, err)
		return err
	}

	sink := generationSink{b: b, gen: b.Generation()}
	p := b.params(req, el, z, sink)
	if el.IsScene() {
		sink.Add(sceneBackground(p))
	}
	if err := materialize(ctx, h, p); err != nil {
		skip(el, err)
		return err
	}

	b.zorder.Resort()
	if err := b.canvas.RequestRender(); err != nil {
		slog.Warn("render after add failed", "element_id", el.ID, "error", err)
	}
	return nil
}

// Remove destroys every handle of an element and re-renders.
func (b *SceneBuilder) Remove(id string) int {
	b.mu.Lock()
	n := b.canvas.Remove(id)
	b.mu.Unlock()

	if n > 0 {
		if err := b.canvas.RequestRender(); err != nil {
			slog.Warn("render after remove failed", "element_id", id, "error", err)
		}
	}
	return n
}

func (b *SceneBuilder) params(req RebuildRequest, el model.Element, z float64, sink registry.Sink) registry.Params {
	return registry.Params{
		Element:    el.Clone(),
		ZOrder:     z,
		SampleTime: req.SampleTime,
		Meta:       req.Meta,
		Project:    req.Project,
		Captions:   req.Captions,
		Sampler:    b.sampler,
		Sink:       sink,
	}
}

func (b *SceneBuilder) addWatermark(ctx context.Context, req RebuildRequest, sink registry.Sink) error {
	wm := *req.Watermark
	h, ok := b.reg.Lookup(wm.Kind)
	if !ok {
		return NewUnknownKindError(wm.ID, string(wm.Kind))
	}
	return materialize(ctx, h, b.params(req, wm, 0, sink))
}

// materialize runs one handler, turning errors and panics into an *Error.
func materialize(ctx context.Context, h registry.Handler, p registry.Params) error {
	var (
		pc  panics.Catcher
		err error
	)
	pc.Try(func() {
		err = h.Materialize(ctx, p)
	})
	if r := pc.Recovered(); r != nil {
		err = fmt.Errorf("handler panicked: %v", r.Value)
	}
	if err != nil {
		return NewMaterializeError(p.Element.ID, string(p.Element.Kind), err)
	}
	return nil
}

// sceneBackground creates the full-bleed fill drawn directly behind a
// scene element.
func sceneBackground(p registry.Params) *surface.Handle {
	el := p.Element
	h := surface.NewHandle(el.ID, el.Kind, surface.RoleSceneBackground)
	h.ZOrder = p.ZOrder - 0.5
	h.Caps = surface.CapsNone
	h.Transform = surface.NewTransform(
		coords.ToSurface(0, 0, p.Meta),
		coords.SizeToSurface(p.Project, p.Meta),
		0,
	)
	h.Visual.Kind = surface.VisualRect
	h.Visual.Fill = el.Props.Background
	return h
}

func skip(el model.Element, err error) SkipReason {
	s := SkipReason{ElementID: el.ID, Kind: el.Kind, Code: ErrCodeMaterializeFailed, Message: err.Error()}
	var ee *Error
	if errors.As(err, &ee) {
		s.Code = ee.Code
		if ee.Err != nil {
			s.Message = ee.Err.Error()
		}
	}
	logSkip(s)
	return s
}

func logSkip(s SkipReason) {
	slog.Warn("element skipped",
		"element_id", s.ElementID,
		"kind", s.Kind,
		"code", s.Code,
		"error", s.Message,
	)
}
