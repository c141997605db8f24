package frame

import (
	"image"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/canvasync/internal/model"
	"github.com/roach88/canvasync/internal/surface"
)

func effect(s, e, x float64) model.FrameEffect {
	return model.FrameEffect{
		S: s,
		E: e,
		Props: model.FrameEffectProps{
			FrameSize:     [2]float64{100, 100},
			FramePosition: model.Point{X: x},
		},
	}
}

func TestSelect_FirstMatchWinsAtSharedBoundary(t *testing.T) {
	el := model.Element{
		ID:           "v1",
		Kind:         model.KindVideo,
		FrameEffects: []model.FrameEffect{effect(0, 2, 10), effect(2, 4, 20)},
	}

	g, src := Select(el, 2)
	assert.Equal(t, Source{Kind: SourceEffect, Index: 0}, src)
	assert.Equal(t, 10.0, g.Center.X)

	g, src = Select(el, 3)
	assert.Equal(t, Source{Kind: SourceEffect, Index: 1}, src)
	assert.Equal(t, 20.0, g.Center.X)
}

func TestSelect_FallsBackToFrameThenBox(t *testing.T) {
	el := model.Element{
		ID:           "v1",
		Kind:         model.KindVideo,
		Props:        model.Props{X: 5, Y: 6, Width: 300, Height: 200, Rotation: 15},
		FrameEffects: []model.FrameEffect{effect(0, 1, 10)},
	}

	g, src := Select(el, 5)
	assert.Equal(t, SourceBox, src.Kind)
	assert.Equal(t, model.Point{X: 5, Y: 6}, g.Center)
	assert.Equal(t, model.Size{Width: 300, Height: 200}, g.Size)
	assert.Equal(t, 15.0, g.Rotation)

	el.Frame = &model.Frame{Size: &[2]float64{120, 80}, X: -10, Y: 4, Rotation: 30, Stroke: "#fff", LineWidth: 2}
	g, src = Select(el, 5)
	assert.Equal(t, SourceFrame, src.Kind)
	assert.Equal(t, model.Point{X: -10, Y: 4}, g.Center)
	assert.Equal(t, model.Size{Width: 120, Height: 80}, g.Size)
	assert.Equal(t, 30.0, g.Rotation)
	assert.Equal(t, "#fff", g.Stroke)
}

func TestSelect_EffectInheritsBaseStyleAndRotation(t *testing.T) {
	fx := effect(0, 1, 10)
	fx.Props.Shape = "circle"
	el := model.Element{
		Frame:        &model.Frame{Rotation: 45, Stroke: "red"},
		FrameEffects: []model.FrameEffect{fx},
	}

	g, _ := Select(el, 0.5)
	assert.Equal(t, 45.0, g.Rotation)
	assert.Equal(t, "red", g.Stroke)
	assert.Equal(t, "circle", g.Shape)

	el.FrameEffects[0].Props.Rotation = model.Float(90)
	g, _ = Select(el, 0.5)
	assert.Equal(t, 90.0, g.Rotation)
}

func TestFit(t *testing.T) {
	frame := model.Size{Width: 200, Height: 300}
	media := model.Size{Width: 400, Height: 200}

	tests := []struct {
		strategy model.FitStrategy
		want     model.Size
	}{
		{model.FitCover, model.Size{Width: 600, Height: 300}},
		{model.FitContain, model.Size{Width: 200, Height: 100}},
		{"", model.Size{Width: 200, Height: 100}},
		{model.FitFill, frame},
		{model.FitNone, media},
	}
	for _, tt := range tests {
		t.Run(string(tt.strategy), func(t *testing.T) {
			got, err := Fit(tt.strategy, frame, media)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestFit_UnknownStrategy(t *testing.T) {
	_, err := Fit("stretchy", model.Size{Width: 1, Height: 1}, model.Size{Width: 1, Height: 1})
	assert.ErrorContains(t, err, "stretchy")
}

func TestFit_DegenerateMediaUsesFrame(t *testing.T) {
	got, err := Fit(model.FitCover, model.Size{Width: 20, Height: 10}, model.Size{})
	require.NoError(t, err)
	assert.Equal(t, model.Size{Width: 20, Height: 10}, got)
}

func TestCompose(t *testing.T) {
	meta := model.SurfaceMetadata{Width: 960, Height: 540, ScaleX: 0.5, ScaleY: 0.5}
	el := model.Element{ID: "v1", Kind: model.KindVideo}
	img := image.NewRGBA(image.Rect(0, 0, 4, 4))

	h := Compose(ComposeParams{
		Element: el,
		ZOrder:  3,
		Meta:    meta,
		Geometry: Geometry{
			Center: model.Point{X: 100, Y: 0},
			Size:   model.Size{Width: 200, Height: 300},
			Shape:  "circle",
		},
		MediaCenter: model.Point{X: 120, Y: -20},
		MediaSize:   model.Size{Width: 600, Height: 300},
		Image:       img,
	})

	assert.Equal(t, "v1", h.ElementID)
	assert.Equal(t, 3.0, h.ZOrder)
	assert.Equal(t, surface.CapsDragRotate, h.Caps)
	assert.Equal(t, 530.0, h.Transform.CenterX)
	assert.Equal(t, 270.0, h.Transform.CenterY)
	assert.Equal(t, 100.0, h.Transform.Width)
	assert.Equal(t, 150.0, h.Transform.Height)

	require.Len(t, h.Children, 2)
	require.Same(t, h.Children[0], h.Media)
	require.Same(t, h.Children[1], h.Boundary)

	assert.Equal(t, surface.CapsNone, h.Media.Caps)
	assert.Equal(t, surface.CapsNone, h.Boundary.Caps)
	assert.Equal(t, 10.0, h.Media.Transform.CenterX)
	assert.Equal(t, -10.0, h.Media.Transform.CenterY)
	assert.Equal(t, 300.0, h.Media.Transform.Width)
	assert.Equal(t, 150.0, h.Media.Transform.Height)
	assert.Equal(t, surface.VisualEllipse, h.Media.Visual.Clip)
	assert.Same(t, img, h.Media.Visual.Image.(*image.RGBA))

	assert.True(t, h.Boundary.Visual.Hidden, "no stroke means invisible boundary")
	assert.NotEqual(t, h.ID, h.Media.ID)
}
