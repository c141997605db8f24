// Package handlers implements the built-in element kinds.
//
// Each handler turns an element into surface handles (Materialize) and a
// committed gesture back into an element update (SyncFromSurface). Handlers
// work on clones and never mutate the element they were given.
package handlers

import (
	"context"

	"golang.org/x/text/unicode/norm"

	"github.com/roach88/canvasync/internal/coords"
	"github.com/roach88/canvasync/internal/model"
	"github.com/roach88/canvasync/internal/registry"
	"github.com/roach88/canvasync/internal/surface"
)

const (
	defaultFontSize    = 48
	defaultCaptionSize = 42
	lineHeight         = 1.2
)

// RegisterDefaults registers every built-in kind on reg.
func RegisterDefaults(reg *registry.Registry) {
	reg.Register(model.KindVideo, Media{})
	reg.Register(model.KindImage, Media{})
	reg.Register(model.KindShape, Shape{})
	reg.Register(model.KindText, Text{})
	reg.Register(model.KindCaption, Caption{})
	reg.Register(model.KindWatermark, Watermark{})
	reg.Register(model.KindLine, Line{})
	reg.Register(model.KindArrow, Line{})
	reg.Register(model.KindEffect, Effect{})
}

// Effect is the export-time effect marker. It has no surface visual.
type Effect struct{}

// Materialize implements registry.Handler.
func (Effect) Materialize(context.Context, registry.Params) error {
	return nil
}

// boxHandle creates a top-level handle from the element's props box.
func boxHandle(p registry.Params, role surface.Role, caps surface.Caps, size model.Size) *surface.Handle {
	el := p.Element
	h := surface.NewHandle(el.ID, el.Kind, role)
	h.ZOrder = p.ZOrder
	h.Caps = caps
	h.Transform = surface.NewTransform(
		coords.ToSurface(el.Props.X, el.Props.Y, p.Meta),
		coords.SizeToSurface(size, p.Meta),
		el.Props.Rotation,
	)
	h.Visual.Opacity = el.Props.OpacityOr()
	return h
}

// center converts the handle's current center back to project space.
func center(h *surface.Handle, sc registry.SyncContext) model.Point {
	return coords.ToProject(h.Transform.CenterX, h.Transform.CenterY, sc.Meta, sc.Project)
}

// syncAngle returns the committed rotation. An unchanged angle keeps its
// original representation; a changed one is folded into [0, 360).
func syncAngle(before, after float64) float64 {
	if coords.Round2(before) == coords.Round2(after) {
		return before
	}
	return coords.NormalizeAngle(after)
}

func normalize(s string) string {
	return norm.NFC.String(s)
}

func orDefault(v, def float64) float64 {
	if v > 0 {
		return v
	}
	return def
}
