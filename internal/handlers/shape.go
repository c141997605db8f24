package handlers

import (
	"context"
	"fmt"

	"github.com/roach88/canvasync/internal/coords"
	"github.com/roach88/canvasync/internal/model"
	"github.com/roach88/canvasync/internal/registry"
	"github.com/roach88/canvasync/internal/surface"
)

// Shape handles rect, circle, ellipse and triangle elements.
type Shape struct{}

// Materialize implements registry.Handler.
func (Shape) Materialize(_ context.Context, p registry.Params) error {
	el := p.Element
	sp := el.Props.Shape
	if sp == nil {
		return fmt.Errorf("shape element %s has no shape props", el.ID)
	}
	kind, err := shapeVisual(sp.Shape)
	if err != nil {
		return err
	}

	size := model.Size{Width: el.Props.Width, Height: el.Props.Height}
	if sp.Shape == "circle" && size.Height == 0 {
		size.Height = size.Width
	}

	h := boxHandle(p, surface.RoleElement, surface.CapsAll, size)
	h.Visual.Kind = kind
	h.Visual.Fill = sp.Fill
	h.Visual.Stroke = sp.Stroke
	h.Visual.StrokeWidth = coords.LengthToSurface(sp.StrokeWidth, p.Meta.ScaleX)
	h.Visual.Radius = coords.LengthToSurface(sp.Radius, p.Meta.ScaleX)
	p.Sink.Add(h)
	return nil
}

// SyncFromSurface implements registry.Syncer.
func (Shape) SyncFromSurface(h *surface.Handle, el model.Element, sc registry.SyncContext) (registry.SyncResult, error) {
	el = el.Clone()
	c := center(h, sc)
	el.Props.X, el.Props.Y = c.X, c.Y
	el.Props.Width = coords.Round2(el.Props.Width * h.Transform.ScaleX)
	el.Props.Height = coords.Round2(el.Props.Height * h.Transform.ScaleY)
	el.Props.Rotation = syncAngle(el.Props.Rotation, h.Transform.Angle)
	return registry.SyncResult{Element: el}, nil
}

func shapeVisual(shape string) (surface.VisualKind, error) {
	switch shape {
	case "", "rect":
		return surface.VisualRect, nil
	case "circle", "ellipse":
		return surface.VisualEllipse, nil
	case "triangle":
		return surface.VisualTriangle, nil
	default:
		return "", fmt.Errorf("unknown shape %q", shape)
	}
}
