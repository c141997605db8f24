package frame

import (
	"image"

	"github.com/roach88/canvasync/internal/coords"
	"github.com/roach88/canvasync/internal/model"
	"github.com/roach88/canvasync/internal/surface"
)

// ComposeParams describes one frame composite.
type ComposeParams struct {
	Element model.Element
	ZOrder  float64
	Meta    model.SurfaceMetadata

	Geometry Geometry
	// MediaCenter is the media's own center in project space.
	MediaCenter model.Point
	// MediaSize is the fitted media size in project space.
	MediaSize model.Size
	// NativeSize is the intrinsic media size, kept on the media visual.
	NativeSize model.Size
	Image      image.Image
}

// Compose builds the composite handle: a group holding the media visual and
// the frame boundary. The group carries the interaction capabilities; the
// children carry none.
func Compose(p ComposeParams) *surface.Handle {
	g := p.Geometry
	el := p.Element

	h := surface.NewHandle(el.ID, el.Kind, surface.RoleElement)
	h.ZOrder = p.ZOrder
	h.Caps = surface.CapsDragRotate
	h.Transform = surface.NewTransform(
		coords.ToSurface(g.Center.X, g.Center.Y, p.Meta),
		coords.SizeToSurface(g.Size, p.Meta),
		g.Rotation,
	)
	h.Visual.Kind = surface.VisualGroup
	h.Visual.Opacity = el.Props.OpacityOr()

	clip := ClipKind(g.Shape)

	media := surface.NewHandle(el.ID, el.Kind, surface.RoleElement)
	media.Visual.Kind = surface.VisualImage
	media.Visual.Image = p.Image
	media.Visual.Native = p.NativeSize
	media.Visual.Clip = clip
	media.Visual.Radius = coords.LengthToSurface(g.Radius, p.Meta.ScaleX)

	boundary := surface.NewHandle(el.ID, el.Kind, surface.RoleElement)
	boundary.Visual.Kind = clip
	boundary.Visual.Stroke = g.Stroke
	boundary.Visual.StrokeWidth = coords.LengthToSurface(g.LineWidth, p.Meta.ScaleX)
	boundary.Visual.Radius = media.Visual.Radius
	boundary.Visual.Hidden = g.Stroke == ""

	h.Children = []*surface.Handle{media, boundary}
	h.Media = media
	h.Boundary = boundary

	Layout(h, g, p.MediaCenter, p.MediaSize, p.Meta)
	return h
}

// Layout positions the inner media of a composite relative to the frame
// center and resizes it. Used at composition and after a committed gesture.
func Layout(h *surface.Handle, g Geometry, mediaCenter model.Point, mediaSize model.Size, meta model.SurfaceMetadata) {
	if h.Media == nil {
		return
	}
	offset := model.Point{
		X: coords.LengthToSurface(mediaCenter.X-g.Center.X, meta.ScaleX),
		Y: coords.LengthToSurface(mediaCenter.Y-g.Center.Y, meta.ScaleY),
	}
	h.Media.Transform = surface.NewTransform(offset, coords.SizeToSurface(mediaSize, meta), 0)
	if h.Boundary != nil {
		h.Boundary.Transform = surface.NewTransform(model.Point{}, coords.SizeToSurface(g.Size, meta), 0)
	}
}

// ClipKind maps a frame shape name to the clip visual.
func ClipKind(shape string) surface.VisualKind {
	switch shape {
	case "circle", "ellipse":
		return surface.VisualEllipse
	default:
		return surface.VisualRect
	}
}
