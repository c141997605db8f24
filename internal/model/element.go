package model

// Kind tags the element variant. Handlers are registered per Kind.
type Kind string

const (
	KindVideo     Kind = "video"
	KindImage     Kind = "image"
	KindText      Kind = "text"
	KindShape     Kind = "shape"
	KindCaption   Kind = "caption"
	KindWatermark Kind = "watermark"
	KindLine      Kind = "line"
	KindArrow     Kind = "arrow"
	KindEffect    Kind = "effect" // export-time marker, no surface visual
)

// IsMedia reports whether elements of this kind are sampled from a media source.
func (k Kind) IsMedia() bool {
	return k == KindVideo || k == KindImage
}

// TimelineType distinguishes full scenes from plain elements.
type TimelineType string

const (
	TimelineElement TimelineType = "element"
	// TimelineScene implies a generated full-bleed background rendered
	// directly behind the element.
	TimelineScene TimelineType = "scene"
)

// Element is a declarative, time-ranged unit of the edited project.
type Element struct {
	ID           string        `json:"id" yaml:"id"`
	Kind         Kind          `json:"kind" yaml:"kind"`
	S            float64       `json:"s" yaml:"s"`
	E            float64       `json:"e" yaml:"e"`
	Props        Props         `json:"props" yaml:"props"`
	ZOrder       *float64      `json:"z_order,omitempty" yaml:"z_order,omitempty"`
	TimelineType TimelineType  `json:"timeline_type,omitempty" yaml:"timeline_type,omitempty"`
	Frame        *Frame        `json:"frame,omitempty" yaml:"frame,omitempty"`
	FrameEffects []FrameEffect `json:"frame_effects,omitempty" yaml:"frame_effects,omitempty"`
}

// Active reports whether t falls inside [S, E].
func (e Element) Active(t float64) bool {
	return e.S <= t && t <= e.E
}

// IsScene reports whether the element carries a generated scene background.
func (e Element) IsScene() bool {
	return e.TimelineType == TimelineScene
}

// Clone returns a deep copy of the element.
func (e Element) Clone() Element {
	c := e
	c.Props = e.Props.clone()
	if e.ZOrder != nil {
		z := *e.ZOrder
		c.ZOrder = &z
	}
	if e.Frame != nil {
		f := e.Frame.clone()
		c.Frame = &f
	}
	if e.FrameEffects != nil {
		c.FrameEffects = make([]FrameEffect, len(e.FrameEffects))
		for i, fx := range e.FrameEffects {
			c.FrameEffects[i] = fx.clone()
		}
	}
	return c
}

// Frame is a crop/mask window in project space applied to a media element.
type Frame struct {
	Size      *[2]float64 `json:"size,omitempty" yaml:"size,omitempty"`
	X         float64     `json:"x" yaml:"x"`
	Y         float64     `json:"y" yaml:"y"`
	Rotation  float64     `json:"rotation,omitempty" yaml:"rotation,omitempty"`
	Stroke    string      `json:"stroke,omitempty" yaml:"stroke,omitempty"`
	LineWidth float64     `json:"line_width,omitempty" yaml:"line_width,omitempty"`
	Radius    float64     `json:"radius,omitempty" yaml:"radius,omitempty"`
}

func (f Frame) clone() Frame {
	c := f
	if f.Size != nil {
		s := *f.Size
		c.Size = &s
	}
	return c
}

// FrameEffect overrides Frame geometry during [S, E].
type FrameEffect struct {
	S     float64          `json:"s" yaml:"s"`
	E     float64          `json:"e" yaml:"e"`
	Props FrameEffectProps `json:"props" yaml:"props"`
}

// Active reports whether t falls inside [S, E].
func (fx FrameEffect) Active(t float64) bool {
	return fx.S <= t && t <= fx.E
}

func (fx FrameEffect) clone() FrameEffect {
	c := fx
	if fx.Props.Rotation != nil {
		r := *fx.Props.Rotation
		c.Props.Rotation = &r
	}
	return c
}

// FrameEffectProps is the geometry a FrameEffect applies.
type FrameEffectProps struct {
	FrameSize     [2]float64 `json:"frame_size" yaml:"frame_size"`
	FramePosition Point      `json:"frame_position" yaml:"frame_position"`
	Rotation      *float64   `json:"rotation,omitempty" yaml:"rotation,omitempty"`
	Shape         string     `json:"shape,omitempty" yaml:"shape,omitempty"`
}

// ZOrderOr returns the element's explicit zOrder or fallback.
func (e Element) ZOrderOr(fallback float64) float64 {
	if e.ZOrder != nil {
		return *e.ZOrder
	}
	return fallback
}

// Float returns a pointer to v, for optional fields.
func Float(v float64) *float64 {
	return &v
}
