package handlers

import (
	"context"
	"fmt"

	"github.com/roach88/canvasync/internal/coords"
	"github.com/roach88/canvasync/internal/model"
	"github.com/roach88/canvasync/internal/registry"
	"github.com/roach88/canvasync/internal/surface"
)

// Caption handles caption cues. Attached captions share one style; moving
// or scaling any of them restyles all of them.
type Caption struct{}

// Materialize implements registry.Handler.
func (Caption) Materialize(_ context.Context, p registry.Params) error {
	el := p.Element.Clone()
	cp := el.Props.Caption
	if cp == nil {
		return fmt.Errorf("caption element %s has no caption props", el.ID)
	}

	style := captionStyle(cp, p.Captions)
	content := normalize(cp.Text)
	el.Props.X, el.Props.Y = style.X, style.Y

	size := model.Size{Width: el.Props.Width, Height: el.Props.Height}
	if size.Width == 0 {
		size.Width = p.Project.Width * 0.8
	}
	if size.Height == 0 {
		size.Height = textHeight(content, style.FontSize)
	}

	p.Element = el
	h := boxHandle(p, surface.RoleElement, surface.CapsDragScale, size)
	h.Transform.Angle = 0
	h.Visual.Kind = surface.VisualText
	h.Visual.Text = content
	h.Visual.FontSize = coords.LengthToSurface(style.FontSize, p.Meta.ScaleY)
	h.Visual.Color = style.Color
	h.Visual.Fill = style.Background
	h.Visual.Align = "center"
	p.Sink.Add(h)
	return nil
}

// SyncFromSurface implements registry.Syncer. Attached captions produce a
// captionStyleApplyToAll result whose payload is the new shared style.
func (Caption) SyncFromSurface(h *surface.Handle, el model.Element, sc registry.SyncContext) (registry.SyncResult, error) {
	el = el.Clone()
	cp := el.Props.Caption
	if cp == nil {
		return registry.SyncResult{}, fmt.Errorf("caption element %s has no caption props", el.ID)
	}

	style := captionStyle(cp, sc.Captions)
	c := center(h, sc)
	style.X, style.Y = c.X, c.Y
	style.FontSize = coords.Round2(style.FontSize * h.Transform.ScaleY)

	if cp.Detached {
		cp.Style = &style
		return registry.SyncResult{Element: el}, nil
	}
	return registry.SyncResult{
		Element:   el,
		Operation: registry.OpCaptionStyleApplyToAll,
		Payload:   style,
	}, nil
}

func captionStyle(cp *model.CaptionProps, defaults model.CaptionStyle) model.CaptionStyle {
	var own model.CaptionStyle
	if cp.Style != nil {
		own = *cp.Style
	}
	style := own.Merge(defaults)
	style.FontSize = orDefault(style.FontSize, defaultCaptionSize)
	return style
}
