// Package raster draws canvas snapshots into images for previews.
//
// Rendering is approximate: shapes are filled without anti-aliasing and
// text uses a fixed bitmap face. It exists so the CLI and tests can see
// what the surface would show.
package raster

import (
	"fmt"
	"image"
	"image/color"
	"image/png"
	"io"
	"math"
	"os"
	"sync"

	"golang.org/x/image/draw"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/f64"
	"golang.org/x/image/math/fixed"

	"github.com/roach88/canvasync/internal/surface"
)

// Renderer implements surface.Renderer by drawing into an RGBA image.
type Renderer struct {
	width, height int
	face          font.Face

	mu   sync.Mutex
	last *image.RGBA
}

// New creates a renderer for a surface of the given pixel size.
func New(width, height int) *Renderer {
	return &Renderer{width: width, height: height, face: basicfont.Face7x13}
}

// placement is a handle's resolved transform in surface pixels.
type placement struct {
	cx, cy  float64
	w, h    float64
	angle   float64 // radians
	opacity float64
}

// Render implements surface.Renderer.
func (r *Renderer) Render(background string, handles []*surface.Handle) error {
	img := image.NewRGBA(image.Rect(0, 0, r.width, r.height))
	if bg, ok := ParseColor(background); ok {
		draw.Draw(img, img.Bounds(), image.NewUniform(bg), image.Point{}, draw.Src)
	}

	for _, h := range handles {
		if err := r.drawHandle(img, h, placement{cx: 0, cy: 0, w: 1, h: 1, opacity: 1}, true); err != nil {
			return fmt.Errorf("draw %s: %w", h.ElementID, err)
		}
	}

	r.mu.Lock()
	r.last = img
	r.mu.Unlock()
	return nil
}

// Image returns the last rendered frame, or nil before the first render.
func (r *Renderer) Image() *image.RGBA {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.last
}

// Encode writes the last frame as PNG.
func (r *Renderer) Encode(w io.Writer) error {
	img := r.Image()
	if img == nil {
		return fmt.Errorf("nothing rendered yet")
	}
	return png.Encode(w, img)
}

// WriteFile writes the last frame as a PNG file.
func (r *Renderer) WriteFile(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := r.Encode(f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func place(h *surface.Handle, parent placement, top bool) placement {
	t := h.Transform
	p := placement{
		w:       t.Width * t.ScaleX,
		h:       t.Height * t.ScaleY,
		angle:   t.Angle * math.Pi / 180,
		opacity: parent.opacity * h.Visual.Opacity,
	}
	if top {
		p.cx, p.cy = t.CenterX, t.CenterY
		return p
	}
	// Children are offsets in the parent's rotated frame.
	sin, cos := math.Sincos(parent.angle)
	p.cx = parent.cx + cos*t.CenterX - sin*t.CenterY
	p.cy = parent.cy + sin*t.CenterX + cos*t.CenterY
	p.angle += parent.angle
	return p
}

func (r *Renderer) drawHandle(dst *image.RGBA, h *surface.Handle, parent placement, top bool) error {
	if h.Visual.Hidden && h.Visual.Kind != surface.VisualGroup {
		return nil
	}
	p := place(h, parent, top)
	v := h.Visual

	switch v.Kind {
	case surface.VisualGroup:
		var clip *image.Alpha
		if h.Boundary != nil {
			bp := place(h.Boundary, p, false)
			clip = shapeMask(dst.Bounds(), h.Boundary.Visual.Kind, bp, 0, p.opacity)
		}
		for _, c := range h.Children {
			if c == h.Media && c.Visual.Image != nil {
				drawImage(dst, c.Visual.Image, place(c, p, false), clip)
				continue
			}
			if err := r.drawHandle(dst, c, p, false); err != nil {
				return err
			}
		}
	case surface.VisualImage:
		if v.Image != nil {
			drawImage(dst, v.Image, p, shapeMask(dst.Bounds(), surface.VisualRect, p, 0, p.opacity))
		}
	case surface.VisualRect, surface.VisualEllipse, surface.VisualTriangle:
		if fill, ok := ParseColor(v.Fill); ok {
			fillMask(dst, shapeMask(dst.Bounds(), v.Kind, p, 0, 1), withOpacity(fill, p.opacity))
		}
		if stroke, ok := ParseColor(v.Stroke); ok && v.StrokeWidth > 0 {
			fillMask(dst, shapeMask(dst.Bounds(), v.Kind, p, v.StrokeWidth, 1), withOpacity(stroke, p.opacity))
		}
	case surface.VisualLine:
		stroke, ok := ParseColor(v.Stroke)
		if !ok {
			stroke = color.NRGBA{A: 255}
		}
		fillMask(dst, lineMask(dst.Bounds(), p, math.Max(v.StrokeWidth, 1), v.HeadSize), withOpacity(stroke, p.opacity))
	case surface.VisualText:
		if bg, ok := ParseColor(v.Fill); ok {
			fillMask(dst, shapeMask(dst.Bounds(), surface.VisualRect, p, 0, 1), withOpacity(bg, p.opacity))
		}
		fg, ok := ParseColor(v.Color)
		if !ok {
			fg = color.NRGBA{R: 255, G: 255, B: 255, A: 255}
		}
		r.drawText(dst, v.Text, p, withOpacity(fg, p.opacity))
	default:
		return fmt.Errorf("unknown visual kind %q", v.Kind)
	}
	return nil
}

// drawImage maps src onto the placement box, rotated about its center.
func drawImage(dst *image.RGBA, src image.Image, p placement, clip *image.Alpha) {
	b := src.Bounds()
	iw, ih := float64(b.Dx()), float64(b.Dy())
	if iw == 0 || ih == 0 || p.w == 0 || p.h == 0 {
		return
	}
	kx, ky := p.w/iw, p.h/ih
	sin, cos := math.Sincos(p.angle)
	s2d := f64.Aff3{
		cos * kx, -sin * ky, p.cx - cos*kx*(iw/2+float64(b.Min.X)) + sin*ky*(ih/2+float64(b.Min.Y)),
		sin * kx, cos * ky, p.cy - sin*kx*(iw/2+float64(b.Min.X)) - cos*ky*(ih/2+float64(b.Min.Y)),
	}
	opts := &draw.Options{}
	if clip != nil {
		opts.DstMask = clip
	}
	draw.BiLinear.Transform(dst, s2d, src, b, draw.Over, opts)
}

func (r *Renderer) drawText(dst *image.RGBA, s string, p placement, c color.NRGBA) {
	if s == "" {
		return
	}
	d := &font.Drawer{Dst: dst, Src: image.NewUniform(c), Face: r.face}
	width := d.MeasureString(s).Round()
	m := r.face.Metrics()
	height := (m.Ascent + m.Descent).Round()
	d.Dot = fixed.Point26_6{
		X: fixed.I(int(p.cx) - width/2),
		Y: fixed.I(int(p.cy) + height/2 - m.Descent.Round()),
	}
	d.DrawString(s)
}

func fillMask(dst *image.RGBA, mask *image.Alpha, c color.NRGBA) {
	if mask == nil {
		return
	}
	draw.DrawMask(dst, dst.Bounds(), image.NewUniform(c), image.Point{}, mask, image.Point{}, draw.Over)
}

// shapeMask rasterizes a shape at p. A positive stroke yields only the
// outline band of that width.
func shapeMask(bounds image.Rectangle, kind surface.VisualKind, p placement, stroke, alpha float64) *image.Alpha {
	mask := image.NewAlpha(bounds)
	hw, hh := p.w/2, p.h/2
	if hw <= 0 || hh <= 0 {
		return mask
	}
	a := uint8(255*clamp01(alpha) + 0.5)
	sin, cos := math.Sincos(-p.angle)
	reach := math.Hypot(hw, hh) + stroke

	x0, x1 := int(math.Floor(p.cx-reach)), int(math.Ceil(p.cx+reach))
	y0, y1 := int(math.Floor(p.cy-reach)), int(math.Ceil(p.cy+reach))
	area := image.Rect(x0, y0, x1, y1).Intersect(bounds)
	for y := area.Min.Y; y < area.Max.Y; y++ {
		for x := area.Min.X; x < area.Max.X; x++ {
			dx, dy := float64(x)+0.5-p.cx, float64(y)+0.5-p.cy
			lx, ly := cos*dx-sin*dy, sin*dx+cos*dy
			in := inside(kind, lx, ly, hw, hh)
			if stroke > 0 {
				in = in && !inside(kind, lx, ly, hw-stroke, hh-stroke)
			}
			if in {
				mask.SetAlpha(x, y, color.Alpha{A: a})
			}
		}
	}
	return mask
}

func inside(kind surface.VisualKind, x, y, hw, hh float64) bool {
	if hw <= 0 || hh <= 0 {
		return false
	}
	switch kind {
	case surface.VisualEllipse:
		return (x*x)/(hw*hw)+(y*y)/(hh*hh) <= 1
	case surface.VisualTriangle:
		if y < -hh || y > hh {
			return false
		}
		// Apex at top center, base along the bottom edge.
		half := hw * (y + hh) / (2 * hh)
		return math.Abs(x) <= half
	default:
		return math.Abs(x) <= hw && math.Abs(y) <= hh
	}
}

// lineMask rasterizes a segment along the placement's x axis, with an
// optional arrow head at the far end.
func lineMask(bounds image.Rectangle, p placement, width, head float64) *image.Alpha {
	mask := image.NewAlpha(bounds)
	half := p.w / 2
	sin, cos := math.Sincos(-p.angle)
	reach := half + width + head

	x0, x1 := int(math.Floor(p.cx-reach)), int(math.Ceil(p.cx+reach))
	y0, y1 := int(math.Floor(p.cy-reach)), int(math.Ceil(p.cy+reach))
	area := image.Rect(x0, y0, x1, y1).Intersect(bounds)
	for y := area.Min.Y; y < area.Max.Y; y++ {
		for x := area.Min.X; x < area.Max.X; x++ {
			dx, dy := float64(x)+0.5-p.cx, float64(y)+0.5-p.cy
			lx, ly := cos*dx-sin*dy, sin*dx+cos*dy
			onShaft := math.Abs(lx) <= half && math.Abs(ly) <= width/2
			onHead := false
			if head > 0 {
				// Head tip at +half, base head long.
				t := half - lx
				onHead = t >= 0 && t <= head && math.Abs(ly) <= t/2
			}
			if onShaft || onHead {
				mask.SetAlpha(x, y, color.Alpha{A: 255})
			}
		}
	}
	return mask
}
