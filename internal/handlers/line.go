package handlers

import (
	"context"
	"fmt"
	"math"

	"github.com/roach88/canvasync/internal/coords"
	"github.com/roach88/canvasync/internal/model"
	"github.com/roach88/canvasync/internal/registry"
	"github.com/roach88/canvasync/internal/surface"
)

const defaultHeadSize = 12

// Line handles line and arrow elements. The handle spans the endpoints: its
// width is the surface length and its angle the surface direction.
type Line struct{}

// Materialize implements registry.Handler.
func (Line) Materialize(_ context.Context, p registry.Params) error {
	el := p.Element
	lp := el.Props.Line
	if lp == nil {
		return fmt.Errorf("%s element %s has no line props", el.Kind, el.ID)
	}

	a := coords.ToSurface(lp.X1, lp.Y1, p.Meta)
	b := coords.ToSurface(lp.X2, lp.Y2, p.Meta)
	dx, dy := b.X-a.X, b.Y-a.Y
	stroke := coords.LengthToSurface(orDefault(lp.StrokeWidth, 2), p.Meta.ScaleX)

	h := surface.NewHandle(el.ID, el.Kind, surface.RoleElement)
	h.ZOrder = p.ZOrder
	h.Caps = surface.CapsAll
	h.Transform = surface.NewTransform(
		model.Point{X: (a.X + b.X) / 2, Y: (a.Y + b.Y) / 2},
		model.Size{Width: math.Hypot(dx, dy), Height: stroke},
		math.Atan2(dy, dx)*180/math.Pi,
	)
	h.Visual.Kind = surface.VisualLine
	h.Visual.Opacity = el.Props.OpacityOr()
	h.Visual.Stroke = lp.Stroke
	h.Visual.StrokeWidth = stroke
	if el.Kind == model.KindArrow {
		h.Visual.HeadSize = coords.LengthToSurface(orDefault(lp.HeadSize, defaultHeadSize), p.Meta.ScaleX)
	}
	p.Sink.Add(h)
	return nil
}

// SyncFromSurface recomputes both endpoints from the handle's center,
// scaled length and angle.
func (Line) SyncFromSurface(h *surface.Handle, el model.Element, sc registry.SyncContext) (registry.SyncResult, error) {
	el = el.Clone()
	lp := el.Props.Line
	if lp == nil {
		return registry.SyncResult{}, fmt.Errorf("%s element %s has no line props", el.Kind, el.ID)
	}

	c := center(h, sc)
	half := h.Transform.Width * h.Transform.ScaleX / 2
	rad := h.Transform.Angle * math.Pi / 180
	hx := half * math.Cos(rad) / sc.Meta.ScaleX
	hy := half * math.Sin(rad) / sc.Meta.ScaleY

	lp.X1, lp.Y1 = coords.Round2(c.X-hx), coords.Round2(c.Y-hy)
	lp.X2, lp.Y2 = coords.Round2(c.X+hx), coords.Round2(c.Y+hy)
	return registry.SyncResult{Element: el}, nil
}
