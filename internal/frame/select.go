// Package frame resolves the crop/mask geometry of media elements and
// composes the frame composite handle.
//
// Geometry resolution order at a sample time: the first frame effect whose
// window contains the time, then the element's base frame, then the
// element's own box. Effect windows are inclusive at both ends, so at a
// shared boundary the earlier entry in the list wins.
package frame

import (
	"fmt"

	"github.com/roach88/canvasync/internal/model"
)

// SourceKind records where a Geometry came from.
type SourceKind string

const (
	SourceEffect SourceKind = "effect"
	SourceFrame  SourceKind = "frame"
	SourceBox    SourceKind = "box"
)

// Source identifies the origin of a Geometry so a gesture can be written
// back to the same place. Index is only meaningful for SourceEffect.
type Source struct {
	Kind  SourceKind
	Index int
}

func (s Source) String() string {
	if s.Kind == SourceEffect {
		return fmt.Sprintf("effect[%d]", s.Index)
	}
	return string(s.Kind)
}

// Geometry is a resolved frame in project space.
type Geometry struct {
	Center    model.Point
	Size      model.Size
	Rotation  float64
	Shape     string
	Stroke    string
	LineWidth float64
	Radius    float64
}

// Select resolves the frame geometry of el at time t.
func Select(el model.Element, t float64) (Geometry, Source) {
	base := baseGeometry(el)

	for i, fx := range el.FrameEffects {
		if !fx.Active(t) {
			continue
		}
		g := base
		g.Center = fx.Props.FramePosition
		g.Size = model.Size{Width: fx.Props.FrameSize[0], Height: fx.Props.FrameSize[1]}
		if fx.Props.Rotation != nil {
			g.Rotation = *fx.Props.Rotation
		}
		if fx.Props.Shape != "" {
			g.Shape = fx.Props.Shape
		}
		return g, Source{Kind: SourceEffect, Index: i}
	}

	if el.Frame != nil {
		return base, Source{Kind: SourceFrame}
	}
	return base, Source{Kind: SourceBox}
}

func baseGeometry(el model.Element) Geometry {
	box := Geometry{
		Center:   model.Point{X: el.Props.X, Y: el.Props.Y},
		Size:     model.Size{Width: el.Props.Width, Height: el.Props.Height},
		Rotation: el.Props.Rotation,
		Shape:    "rect",
	}
	f := el.Frame
	if f == nil {
		return box
	}

	g := Geometry{
		Center:    model.Point{X: f.X, Y: f.Y},
		Size:      box.Size,
		Rotation:  f.Rotation,
		Shape:     "rect",
		Stroke:    f.Stroke,
		LineWidth: f.LineWidth,
		Radius:    f.Radius,
	}
	if f.Size != nil {
		g.Size = model.Size{Width: f.Size[0], Height: f.Size[1]}
	}
	return g
}
