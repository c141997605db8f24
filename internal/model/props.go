package model

// FitStrategy selects how media is sized inside its frame.
type FitStrategy string

const (
	FitNone    FitStrategy = "none"
	FitContain FitStrategy = "contain"
	FitCover   FitStrategy = "cover"
	FitFill    FitStrategy = "fill"
)

// Props is the element property bag. The common geometry applies to every
// kind; exactly one of the kind bags is expected to be set.
type Props struct {
	X          float64  `json:"x" yaml:"x"`
	Y          float64  `json:"y" yaml:"y"`
	Width      float64  `json:"width,omitempty" yaml:"width,omitempty"`
	Height     float64  `json:"height,omitempty" yaml:"height,omitempty"`
	Rotation   float64  `json:"rotation,omitempty" yaml:"rotation,omitempty"`
	Opacity    *float64 `json:"opacity,omitempty" yaml:"opacity,omitempty"`
	Background string   `json:"background,omitempty" yaml:"background,omitempty"`

	Media     *MediaProps     `json:"media,omitempty" yaml:"media,omitempty"`
	Shape     *ShapeProps     `json:"shape,omitempty" yaml:"shape,omitempty"`
	Text      *TextProps      `json:"text,omitempty" yaml:"text,omitempty"`
	Caption   *CaptionProps   `json:"caption,omitempty" yaml:"caption,omitempty"`
	Watermark *WatermarkProps `json:"watermark,omitempty" yaml:"watermark,omitempty"`
	Line      *LineProps      `json:"line,omitempty" yaml:"line,omitempty"`
}

// OpacityOr returns the explicit opacity or 1.
func (p Props) OpacityOr() float64 {
	if p.Opacity != nil {
		return *p.Opacity
	}
	return 1
}

func (p Props) clone() Props {
	c := p
	if p.Opacity != nil {
		o := *p.Opacity
		c.Opacity = &o
	}
	if p.Media != nil {
		m := *p.Media
		c.Media = &m
	}
	if p.Shape != nil {
		s := *p.Shape
		c.Shape = &s
	}
	if p.Text != nil {
		t := *p.Text
		c.Text = &t
	}
	if p.Caption != nil {
		cp := *p.Caption
		if p.Caption.Style != nil {
			st := *p.Caption.Style
			cp.Style = &st
		}
		c.Caption = &cp
	}
	if p.Watermark != nil {
		w := *p.Watermark
		c.Watermark = &w
	}
	if p.Line != nil {
		l := *p.Line
		c.Line = &l
	}
	return c
}

// MediaProps describes a video or image source.
type MediaProps struct {
	Src          string      `json:"src" yaml:"src"`
	PlaybackRate float64     `json:"playback_rate,omitempty" yaml:"playback_rate,omitempty"`
	StartOffset  float64     `json:"start_offset,omitempty" yaml:"start_offset,omitempty"`
	Fit          FitStrategy `json:"fit,omitempty" yaml:"fit,omitempty"`
}

// Rate returns the playback rate, defaulting to 1.
func (m MediaProps) Rate() float64 {
	if m.PlaybackRate <= 0 {
		return 1
	}
	return m.PlaybackRate
}

// ShapeProps describes a plain vector shape.
type ShapeProps struct {
	Shape       string  `json:"shape" yaml:"shape"` // rect | circle | ellipse | triangle
	Fill        string  `json:"fill,omitempty" yaml:"fill,omitempty"`
	Stroke      string  `json:"stroke,omitempty" yaml:"stroke,omitempty"`
	StrokeWidth float64 `json:"stroke_width,omitempty" yaml:"stroke_width,omitempty"`
	Radius      float64 `json:"radius,omitempty" yaml:"radius,omitempty"`
}

// TextProps describes a free text element.
type TextProps struct {
	Text       string  `json:"text" yaml:"text"`
	FontFamily string  `json:"font_family,omitempty" yaml:"font_family,omitempty"`
	FontSize   float64 `json:"font_size,omitempty" yaml:"font_size,omitempty"`
	FontWeight string  `json:"font_weight,omitempty" yaml:"font_weight,omitempty"`
	Color      string  `json:"color,omitempty" yaml:"color,omitempty"`
	Align      string  `json:"align,omitempty" yaml:"align,omitempty"`
}

// CaptionProps describes one caption cue. Unless Detached, the caption
// follows the shared caption style and gestures on it restyle every caption.
type CaptionProps struct {
	Text     string        `json:"text" yaml:"text"`
	Style    *CaptionStyle `json:"style,omitempty" yaml:"style,omitempty"`
	Detached bool          `json:"detached,omitempty" yaml:"detached,omitempty"`
}

// CaptionStyle is the style shared by captions. Zero fields inherit.
type CaptionStyle struct {
	X              float64 `json:"x" yaml:"x"`
	Y              float64 `json:"y" yaml:"y"`
	FontSize       float64 `json:"font_size,omitempty" yaml:"font_size,omitempty"`
	Color          string  `json:"color,omitempty" yaml:"color,omitempty"`
	HighlightColor string  `json:"highlight_color,omitempty" yaml:"highlight_color,omitempty"`
	Background     string  `json:"background,omitempty" yaml:"background,omitempty"`
}

// Merge returns s with zero fields filled from defaults. Position is taken
// from s only when s sets either coordinate.
func (s CaptionStyle) Merge(defaults CaptionStyle) CaptionStyle {
	out := defaults
	if s.X != 0 || s.Y != 0 {
		out.X, out.Y = s.X, s.Y
	}
	if s.FontSize != 0 {
		out.FontSize = s.FontSize
	}
	if s.Color != "" {
		out.Color = s.Color
	}
	if s.HighlightColor != "" {
		out.HighlightColor = s.HighlightColor
	}
	if s.Background != "" {
		out.Background = s.Background
	}
	return out
}

// WatermarkProps describes the project watermark overlay.
type WatermarkProps struct {
	Text     string  `json:"text,omitempty" yaml:"text,omitempty"`
	Src      string  `json:"src,omitempty" yaml:"src,omitempty"`
	FontSize float64 `json:"font_size,omitempty" yaml:"font_size,omitempty"`
	Color    string  `json:"color,omitempty" yaml:"color,omitempty"`
}

// LineProps describes a line or arrow by its endpoints in project space.
type LineProps struct {
	X1          float64 `json:"x1" yaml:"x1"`
	Y1          float64 `json:"y1" yaml:"y1"`
	X2          float64 `json:"x2" yaml:"x2"`
	Y2          float64 `json:"y2" yaml:"y2"`
	Stroke      string  `json:"stroke,omitempty" yaml:"stroke,omitempty"`
	StrokeWidth float64 `json:"stroke_width,omitempty" yaml:"stroke_width,omitempty"`
	HeadSize    float64 `json:"head_size,omitempty" yaml:"head_size,omitempty"`
}
