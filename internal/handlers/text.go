package handlers

import (
	"context"
	"fmt"
	"strings"

	"github.com/roach88/canvasync/internal/coords"
	"github.com/roach88/canvasync/internal/model"
	"github.com/roach88/canvasync/internal/registry"
	"github.com/roach88/canvasync/internal/surface"
)

// Text handles free text elements.
type Text struct{}

// Materialize implements registry.Handler.
func (Text) Materialize(_ context.Context, p registry.Params) error {
	el := p.Element
	tp := el.Props.Text
	if tp == nil {
		return fmt.Errorf("text element %s has no text props", el.ID)
	}

	content := normalize(tp.Text)
	fontSize := orDefault(tp.FontSize, defaultFontSize)
	size := model.Size{Width: el.Props.Width, Height: el.Props.Height}
	if size.Height == 0 {
		size.Height = textHeight(content, fontSize)
	}

	h := boxHandle(p, surface.RoleElement, surface.CapsAll, size)
	h.Visual.Kind = surface.VisualText
	h.Visual.Text = content
	h.Visual.FontSize = coords.LengthToSurface(fontSize, p.Meta.ScaleY)
	h.Visual.Color = tp.Color
	h.Visual.Align = tp.Align
	p.Sink.Add(h)
	return nil
}

// SyncFromSurface scales the box width horizontally and the font size
// vertically.
func (Text) SyncFromSurface(h *surface.Handle, el model.Element, sc registry.SyncContext) (registry.SyncResult, error) {
	el = el.Clone()
	c := center(h, sc)
	el.Props.X, el.Props.Y = c.X, c.Y
	el.Props.Width = coords.Round2(el.Props.Width * h.Transform.ScaleX)
	el.Props.Rotation = syncAngle(el.Props.Rotation, h.Transform.Angle)
	if tp := el.Props.Text; tp != nil && h.Transform.ScaleY != 1 {
		tp.FontSize = coords.Round2(orDefault(tp.FontSize, defaultFontSize) * h.Transform.ScaleY)
	}
	return registry.SyncResult{Element: el}, nil
}

func textHeight(s string, fontSize float64) float64 {
	lines := strings.Count(s, "\n") + 1
	return float64(lines) * fontSize * lineHeight
}
