package raster

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/canvasync/internal/model"
	"github.com/roach88/canvasync/internal/surface"
)

func shape(kind surface.VisualKind, cx, cy, w, h float64, fill string) *surface.Handle {
	hd := surface.NewHandle("el", model.KindShape, surface.RoleElement)
	hd.Transform = surface.NewTransform(model.Point{X: cx, Y: cy}, model.Size{Width: w, Height: h}, 0)
	hd.Visual.Kind = kind
	hd.Visual.Fill = fill
	return hd
}

func rgba(img *image.RGBA, x, y int) color.RGBA {
	return img.RGBAAt(x, y)
}

func solid(c color.RGBA) image.Image {
	img := image.NewRGBA(image.Rect(0, 0, 4, 4))
	for y := 0; y < 4; y++ {
		for x := 0; x < 4; x++ {
			img.SetRGBA(x, y, c)
		}
	}
	return img
}

func TestParseColor(t *testing.T) {
	tests := []struct {
		in   string
		want color.NRGBA
		ok   bool
	}{
		{"#fff", color.NRGBA{255, 255, 255, 255}, true},
		{"#102030", color.NRGBA{0x10, 0x20, 0x30, 255}, true},
		{"#10203080", color.NRGBA{0x10, 0x20, 0x30, 0x80}, true},
		{" Black ", color.NRGBA{0, 0, 0, 255}, true},
		{"transparent", color.NRGBA{}, true},
		{"#12", color.NRGBA{}, false},
		{"#zzzzzz", color.NRGBA{}, false},
		{"chartreuse", color.NRGBA{}, false},
		{"", color.NRGBA{}, false},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, ok := ParseColor(tt.in)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestRender_Background(t *testing.T) {
	r := New(20, 10)
	assert.Nil(t, r.Image())

	require.NoError(t, r.Render("#0000ff", nil))
	img := r.Image()
	require.NotNil(t, img)
	assert.Equal(t, image.Rect(0, 0, 20, 10), img.Bounds())
	assert.Equal(t, color.RGBA{0, 0, 255, 255}, rgba(img, 0, 0))
	assert.Equal(t, color.RGBA{0, 0, 255, 255}, rgba(img, 19, 9))
}

func TestRender_Rect(t *testing.T) {
	r := New(100, 100)
	require.NoError(t, r.Render("#000000", []*surface.Handle{shape(surface.VisualRect, 50, 50, 20, 20, "#ff0000")}))
	img := r.Image()

	assert.Equal(t, color.RGBA{255, 0, 0, 255}, rgba(img, 50, 50))
	assert.Equal(t, color.RGBA{255, 0, 0, 255}, rgba(img, 41, 41))
	assert.Equal(t, color.RGBA{0, 0, 0, 255}, rgba(img, 38, 38))
}

func TestRender_EllipseLeavesCorners(t *testing.T) {
	r := New(100, 100)
	require.NoError(t, r.Render("#000000", []*surface.Handle{shape(surface.VisualEllipse, 50, 50, 40, 40, "#ffffff")}))
	img := r.Image()

	assert.Equal(t, color.RGBA{255, 255, 255, 255}, rgba(img, 50, 50))
	assert.Equal(t, color.RGBA{0, 0, 0, 255}, rgba(img, 31, 31), "corner of the bounding box stays empty")
}

func TestRender_RotatedRect(t *testing.T) {
	r := New(100, 100)
	h := shape(surface.VisualRect, 50, 50, 60, 4, "#ffffff")
	h.Transform.Angle = 90
	require.NoError(t, r.Render("#000000", []*surface.Handle{h}))
	img := r.Image()

	assert.Equal(t, color.RGBA{255, 255, 255, 255}, rgba(img, 50, 25), "long axis is vertical")
	assert.Equal(t, color.RGBA{0, 0, 0, 255}, rgba(img, 25, 50))
}

func TestRender_HiddenSkipped(t *testing.T) {
	r := New(50, 50)
	h := shape(surface.VisualRect, 25, 25, 50, 50, "#ffffff")
	h.Visual.Hidden = true
	require.NoError(t, r.Render("#000000", []*surface.Handle{h}))

	assert.Equal(t, color.RGBA{0, 0, 0, 255}, rgba(r.Image(), 25, 25))
}

func TestRender_StackingOrder(t *testing.T) {
	r := New(50, 50)
	back := shape(surface.VisualRect, 25, 25, 40, 40, "#ff0000")
	front := shape(surface.VisualRect, 25, 25, 10, 10, "#00ff00")
	require.NoError(t, r.Render("#000000", []*surface.Handle{back, front}))
	img := r.Image()

	assert.Equal(t, color.RGBA{0, 255, 0, 255}, rgba(img, 25, 25))
	assert.Equal(t, color.RGBA{255, 0, 0, 255}, rgba(img, 10, 10))
}

func TestRender_MediaClippedToBoundary(t *testing.T) {
	group := surface.NewHandle("v1", model.KindVideo, surface.RoleElement)
	group.Visual.Kind = surface.VisualGroup
	group.Transform = surface.NewTransform(model.Point{X: 50, Y: 50}, model.Size{Width: 40, Height: 40}, 0)

	media := surface.NewHandle("v1", model.KindVideo, surface.RoleElement)
	media.Visual.Kind = surface.VisualImage
	media.Visual.Image = solid(color.RGBA{0, 0, 255, 255})
	media.Transform = surface.NewTransform(model.Point{}, model.Size{Width: 80, Height: 80}, 0)

	boundary := surface.NewHandle("v1", model.KindVideo, surface.RoleElement)
	boundary.Visual.Kind = surface.VisualEllipse
	boundary.Visual.Hidden = true
	boundary.Transform = surface.NewTransform(model.Point{}, model.Size{Width: 40, Height: 40}, 0)

	group.Children = []*surface.Handle{media, boundary}
	group.Media, group.Boundary = media, boundary

	r := New(100, 100)
	require.NoError(t, r.Render("#000000", []*surface.Handle{group}))
	img := r.Image()

	assert.Equal(t, color.RGBA{0, 0, 255, 255}, rgba(img, 50, 50))
	assert.Equal(t, color.RGBA{0, 0, 0, 255}, rgba(img, 32, 32), "outside the ellipse clip")
	assert.Equal(t, color.RGBA{0, 0, 0, 255}, rgba(img, 15, 50), "media overflow is clipped")
}

func TestRender_TextDrawsPixels(t *testing.T) {
	h := surface.NewHandle("t1", model.KindText, surface.RoleElement)
	h.Visual.Kind = surface.VisualText
	h.Visual.Text = "Hello"
	h.Visual.Color = "#ffffff"
	h.Transform = surface.NewTransform(model.Point{X: 50, Y: 20}, model.Size{Width: 80, Height: 20}, 0)

	r := New(100, 40)
	require.NoError(t, r.Render("#000000", []*surface.Handle{h}))
	img := r.Image()

	lit := 0
	for y := 0; y < 40; y++ {
		for x := 0; x < 100; x++ {
			if img.RGBAAt(x, y).R > 0 {
				lit++
			}
		}
	}
	assert.Positive(t, lit)
}

func TestRender_UnknownVisual(t *testing.T) {
	h := shape("sparkle", 10, 10, 5, 5, "#fff")
	r := New(20, 20)
	err := r.Render("#000", []*surface.Handle{h})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "sparkle")
}

func TestEncode(t *testing.T) {
	r := New(8, 6)
	var buf bytes.Buffer
	require.Error(t, r.Encode(&buf), "nothing rendered yet")

	require.NoError(t, r.Render("#ff0000", nil))
	require.NoError(t, r.Encode(&buf))

	img, err := png.Decode(&buf)
	require.NoError(t, err)
	assert.Equal(t, image.Rect(0, 0, 8, 6), img.Bounds())
}
