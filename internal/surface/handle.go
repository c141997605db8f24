// Package surface holds the ephemeral visual proxies of materialized
// elements and the in-memory canvas they live on.
//
// A Handle is never a source of truth. Handles are discarded and rebuilt
// wholesale on structural changes and only carry a transient transform while
// a gesture is in progress. Identity is re-established on every rebuild from
// the element id.
package surface

import (
	"image"

	"github.com/google/uuid"

	"github.com/roach88/canvasync/internal/model"
)

// Role tells the z-order manager how a handle participates in stacking.
type Role string

const (
	// RoleElement is the primary visual of an element.
	RoleElement Role = "element"
	// RoleSceneBackground is the full-bleed fill generated behind a scene element.
	RoleSceneBackground Role = "scene_background"
	// RoleWatermark is always stacked last.
	RoleWatermark Role = "watermark"
)

// Caps are the per-object interaction capabilities interpreted by the
// surface adapter.
type Caps struct {
	AllowDrag   bool `json:"allow_drag"`
	AllowRotate bool `json:"allow_rotate"`
	AllowScale  bool `json:"allow_scale"`
}

var (
	// CapsNone disables every control, used for children and backgrounds.
	CapsNone = Caps{}
	// CapsDragRotate is used by media composites: no independent scale.
	CapsDragRotate = Caps{AllowDrag: true, AllowRotate: true}
	// CapsDragScale is used by overlays that never rotate.
	CapsDragScale = Caps{AllowDrag: true, AllowScale: true}
	// CapsAll enables drag, rotate and scale.
	CapsAll = Caps{AllowDrag: true, AllowRotate: true, AllowScale: true}
)

// Transform is the visual transform of a handle in surface pixels. Center
// coordinates of top-level handles are absolute; for children they are
// offsets from the parent center. Width and Height are the unscaled size;
// ScaleX/ScaleY only change during a gesture.
type Transform struct {
	CenterX float64 `json:"center_x"`
	CenterY float64 `json:"center_y"`
	Width   float64 `json:"width"`
	Height  float64 `json:"height"`
	ScaleX  float64 `json:"scale_x"`
	ScaleY  float64 `json:"scale_y"`
	Angle   float64 `json:"angle"`
}

// NewTransform returns a transform centered at c with unit scale.
func NewTransform(c model.Point, size model.Size, angle float64) Transform {
	return Transform{
		CenterX: c.X,
		CenterY: c.Y,
		Width:   size.Width,
		Height:  size.Height,
		ScaleX:  1,
		ScaleY:  1,
		Angle:   angle,
	}
}

// ScaledSize returns the displayed size including gesture scale.
func (t Transform) ScaledSize() model.Size {
	return model.Size{Width: t.Width * t.ScaleX, Height: t.Height * t.ScaleY}
}

// VisualKind identifies what a handle draws.
type VisualKind string

const (
	VisualGroup    VisualKind = "group"
	VisualImage    VisualKind = "image"
	VisualRect     VisualKind = "rect"
	VisualEllipse  VisualKind = "ellipse"
	VisualTriangle VisualKind = "triangle"
	VisualText     VisualKind = "text"
	VisualLine     VisualKind = "line"
)

// Visual is the drawable payload of a handle.
type Visual struct {
	Kind        VisualKind  `json:"kind"`
	Fill        string      `json:"fill,omitempty"`
	Stroke      string      `json:"stroke,omitempty"`
	StrokeWidth float64     `json:"stroke_width,omitempty"`
	Radius      float64     `json:"radius,omitempty"`
	Opacity     float64     `json:"opacity"`
	Hidden      bool        `json:"hidden,omitempty"`
	Text        string      `json:"text,omitempty"`
	FontSize    float64     `json:"font_size,omitempty"`
	Color       string      `json:"color,omitempty"`
	Align       string      `json:"align,omitempty"`
	HeadSize    float64     `json:"head_size,omitempty"`
	Clip        VisualKind  `json:"clip,omitempty"`
	Image       image.Image `json:"-"`
	// Native is the intrinsic media size in project units, kept for refits.
	Native model.Size `json:"-"`
}

// Handle is the surface-side proxy of an element (a SceneObjectHandle).
type Handle struct {
	ID         string     `json:"id"`
	ElementID  string     `json:"element_id"`
	Kind       model.Kind `json:"kind"`
	Role       Role       `json:"role"`
	ZOrder     float64    `json:"z_order"`
	Generation int64      `json:"generation"`
	Transform  Transform  `json:"transform"`
	Caps       Caps       `json:"caps"`
	Visual     Visual     `json:"visual"`
	Children   []*Handle  `json:"children,omitempty"`

	// Media and Boundary point into Children for frame composites.
	Media    *Handle `json:"-"`
	Boundary *Handle `json:"-"`
}

// NewHandle creates a handle with a fresh id.
func NewHandle(elementID string, kind model.Kind, role Role) *Handle {
	return &Handle{
		ID:        uuid.NewString(),
		ElementID: elementID,
		Kind:      kind,
		Role:      role,
		Visual:    Visual{Opacity: 1},
	}
}

// Interactive reports whether the handle accepts any gesture.
func (h *Handle) Interactive() bool {
	return h.Caps.AllowDrag || h.Caps.AllowRotate || h.Caps.AllowScale
}
