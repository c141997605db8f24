package handlers

import (
	"context"
	"fmt"

	"github.com/roach88/canvasync/internal/coords"
	"github.com/roach88/canvasync/internal/model"
	"github.com/roach88/canvasync/internal/registry"
	"github.com/roach88/canvasync/internal/surface"
)

// Watermark handles the project watermark: a text or image overlay that is
// always stacked last.
type Watermark struct{}

// Materialize implements registry.Handler.
func (Watermark) Materialize(ctx context.Context, p registry.Params) error {
	el := p.Element
	wp := el.Props.Watermark
	if wp == nil {
		return fmt.Errorf("watermark element %s has no watermark props", el.ID)
	}

	size := model.Size{Width: el.Props.Width, Height: el.Props.Height}
	fontSize := orDefault(wp.FontSize, defaultFontSize)
	content := normalize(wp.Text)
	if size.Height == 0 {
		size.Height = textHeight(content, fontSize)
	}

	h := boxHandle(p, surface.RoleWatermark, surface.CapsDragScale, size)
	h.Transform.Angle = 0

	if wp.Src != "" && p.Sampler != nil {
		img, err := p.Sampler.Sample(ctx, wp.Src, 0)
		if err != nil {
			return fmt.Errorf("sample watermark %s: %w", wp.Src, err)
		}
		h.Visual.Kind = surface.VisualImage
		h.Visual.Image = img
		if native, err := p.Sampler.NativeSize(wp.Src); err == nil {
			h.Visual.Native = native
			if size.Width == 0 && el.Props.Height == 0 {
				h.Transform.Width = coords.LengthToSurface(native.Width, p.Meta.ScaleX)
				h.Transform.Height = coords.LengthToSurface(native.Height, p.Meta.ScaleY)
			}
		}
	} else {
		h.Visual.Kind = surface.VisualText
		h.Visual.Text = content
		h.Visual.FontSize = coords.LengthToSurface(fontSize, p.Meta.ScaleY)
		h.Visual.Color = wp.Color
	}

	p.Sink.Add(h)
	return nil
}

// SyncFromSurface implements registry.Syncer. The result is routed as
// watermarkUpdated with the updated element as payload. Sizes left to their
// defaults at materialization are resolved before the gesture scale is
// applied.
func (Watermark) SyncFromSurface(h *surface.Handle, el model.Element, sc registry.SyncContext) (registry.SyncResult, error) {
	el = el.Clone()
	c := center(h, sc)
	el.Props.X, el.Props.Y = c.X, c.Y

	t := h.Transform
	if h.Visual.Kind == surface.VisualImage && el.Props.Width == 0 && el.Props.Height == 0 {
		// Sized from the image's native size.
		scaled := t.ScaledSize()
		el.Props.Width = coords.LengthToProject(scaled.Width, sc.Meta.ScaleX)
		el.Props.Height = coords.LengthToProject(scaled.Height, sc.Meta.ScaleY)
	} else {
		el.Props.Width = coords.Round2(el.Props.Width * t.ScaleX)
		el.Props.Height = coords.Round2(el.Props.Height * t.ScaleY)
	}

	if wp := el.Props.Watermark; wp != nil && h.Visual.Kind == surface.VisualText {
		if wp.FontSize > 0 || t.ScaleY != 1 {
			wp.FontSize = coords.Round2(orDefault(wp.FontSize, defaultFontSize) * t.ScaleY)
		}
	}
	return registry.SyncResult{
		Element:   el,
		Operation: registry.OpWatermarkUpdated,
		Payload:   el,
	}, nil
}
