package handlers

import (
	"context"
	"errors"
	"fmt"

	"github.com/roach88/canvasync/internal/coords"
	"github.com/roach88/canvasync/internal/frame"
	"github.com/roach88/canvasync/internal/media"
	"github.com/roach88/canvasync/internal/model"
	"github.com/roach88/canvasync/internal/registry"
	"github.com/roach88/canvasync/internal/surface"
)

// Media handles video and image elements as frame composites.
type Media struct{}

// Materialize samples the media at the element's local time and composes it
// into its resolved frame.
func (Media) Materialize(ctx context.Context, p registry.Params) error {
	el := p.Element.Clone()
	mp := el.Props.Media
	if mp == nil {
		return fmt.Errorf("%s element %s has no media props", el.Kind, el.ID)
	}
	if p.Sampler == nil {
		return errors.New("no media sampler configured")
	}

	localTime := 0.0
	if el.Kind == model.KindVideo {
		localTime = media.LocalTime(el, p.SampleTime)
	}
	img, err := p.Sampler.Sample(ctx, mp.Src, localTime)
	if err != nil {
		return fmt.Errorf("sample %s at %.3f: %w", mp.Src, localTime, err)
	}
	native, err := p.Sampler.NativeSize(mp.Src)
	if err != nil {
		return err
	}

	g, _ := frame.Select(el, p.SampleTime)
	g.Size = frameSize(g, native)
	fitted, err := frame.Fit(mp.Fit, g.Size, native)
	if err != nil {
		return err
	}

	p.Sink.Add(frame.Compose(frame.ComposeParams{
		Element:     el,
		ZOrder:      p.ZOrder,
		Meta:        p.Meta,
		Geometry:    g,
		MediaCenter: model.Point{X: el.Props.X, Y: el.Props.Y},
		MediaSize:   fitted,
		NativeSize:  native,
		Image:       img,
	}))
	return nil
}

// SyncFromSurface writes the composite's new position and rotation back to
// the geometry that was active at the sample time. Dragging a base frame
// moves the media with it; dragging an effect window moves only the window.
func (Media) SyncFromSurface(h *surface.Handle, el model.Element, sc registry.SyncContext) (registry.SyncResult, error) {
	el = el.Clone()
	g, src := frame.Select(el, sc.SampleTime)
	c := center(h, sc)
	dx, dy := c.X-g.Center.X, c.Y-g.Center.Y

	switch src.Kind {
	case frame.SourceEffect:
		fx := &el.FrameEffects[src.Index]
		fx.Props.FramePosition = c
		if rot := syncAngle(g.Rotation, h.Transform.Angle); fx.Props.Rotation != nil || rot != g.Rotation {
			fx.Props.Rotation = model.Float(rot)
		}
	case frame.SourceFrame:
		el.Frame.X, el.Frame.Y = c.X, c.Y
		el.Frame.Rotation = syncAngle(el.Frame.Rotation, h.Transform.Angle)
		el.Props.X = coords.Round2(el.Props.X + dx)
		el.Props.Y = coords.Round2(el.Props.Y + dy)
	case frame.SourceBox:
		el.Props.X, el.Props.Y = c.X, c.Y
		el.Props.Rotation = syncAngle(el.Props.Rotation, h.Transform.Angle)
	}

	if err := relayout(h, el, sc); err != nil {
		return registry.SyncResult{}, err
	}
	return registry.SyncResult{Element: el}, nil
}

// relayout recomputes the inner media fit against the updated geometry so
// the surface matches the committed element without a rebuild.
func relayout(h *surface.Handle, el model.Element, sc registry.SyncContext) error {
	if h.Media == nil {
		return nil
	}
	native := h.Media.Visual.Native
	if native.Width <= 0 || native.Height <= 0 {
		native = model.Size{
			Width:  h.Media.Transform.Width / sc.Meta.ScaleX,
			Height: h.Media.Transform.Height / sc.Meta.ScaleY,
		}
	}

	g, _ := frame.Select(el, sc.SampleTime)
	g.Size = frameSize(g, native)
	fit := model.FitStrategy("")
	if el.Props.Media != nil {
		fit = el.Props.Media.Fit
	}
	fitted, err := frame.Fit(fit, g.Size, native)
	if err != nil {
		return err
	}
	frame.Layout(h, g, model.Point{X: el.Props.X, Y: el.Props.Y}, fitted, sc.Meta)
	return nil
}

// frameSize falls back to the native media size for an unsized frame.
func frameSize(g frame.Geometry, native model.Size) model.Size {
	if g.Size.Width <= 0 || g.Size.Height <= 0 {
		return native
	}
	return g.Size
}
