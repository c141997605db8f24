package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestElement_CloneIsDeep(t *testing.T) {
	el := Element{
		ID:     "v1",
		Kind:   KindVideo,
		ZOrder: Float(2),
		Props: Props{
			Opacity: Float(0.5),
			Media:   &MediaProps{Src: "a.mp4"},
			Caption: &CaptionProps{Style: &CaptionStyle{FontSize: 10}},
		},
		Frame:        &Frame{Size: &[2]float64{10, 20}},
		FrameEffects: []FrameEffect{{Props: FrameEffectProps{Rotation: Float(5)}}},
	}

	c := el.Clone()
	*c.ZOrder = 9
	*c.Props.Opacity = 1
	c.Props.Media.Src = "b.mp4"
	c.Props.Caption.Style.FontSize = 99
	c.Frame.Size[0] = 99
	*c.FrameEffects[0].Props.Rotation = 99

	assert.Equal(t, 2.0, *el.ZOrder)
	assert.Equal(t, 0.5, *el.Props.Opacity)
	assert.Equal(t, "a.mp4", el.Props.Media.Src)
	assert.Equal(t, 10.0, el.Props.Caption.Style.FontSize)
	assert.Equal(t, 10.0, el.Frame.Size[0])
	assert.Equal(t, 5.0, *el.FrameEffects[0].Props.Rotation)
}

func TestElement_ActiveIsInclusive(t *testing.T) {
	el := Element{S: 1, E: 3}
	assert.True(t, el.Active(1))
	assert.True(t, el.Active(3))
	assert.False(t, el.Active(3.01))
	assert.False(t, el.Active(0.99))
}

func TestElement_Defaults(t *testing.T) {
	el := Element{}
	assert.Equal(t, 4.0, el.ZOrderOr(4))
	assert.Equal(t, 1.0, el.Props.OpacityOr())
	assert.False(t, el.IsScene())
	assert.Equal(t, 1.0, MediaProps{}.Rate())
	assert.True(t, KindImage.IsMedia())
	assert.False(t, KindText.IsMedia())
}

func TestNewSurfaceMetadata(t *testing.T) {
	meta, err := NewSurfaceMetadata(Size{Width: 960, Height: 540}, Size{Width: 1920, Height: 1080})
	require.NoError(t, err)
	assert.Equal(t, 0.5, meta.ScaleX)
	assert.Equal(t, 0.5, meta.ScaleY)
	assert.InDelta(t, 16.0/9.0, meta.AspectRatio, 1e-9)

	_, err = NewSurfaceMetadata(Size{Width: 0, Height: 540}, Size{Width: 1920, Height: 1080})
	assert.ErrorContains(t, err, "surface size")

	_, err = NewSurfaceMetadata(Size{Width: 960, Height: 540}, Size{Width: 1920})
	assert.ErrorContains(t, err, "project size")
}

func TestCaptionStyle_Merge(t *testing.T) {
	defaults := CaptionStyle{X: 0, Y: 400, FontSize: 40, Color: "#fff", Background: "#000"}

	assert.Equal(t, defaults, CaptionStyle{}.Merge(defaults))

	got := CaptionStyle{Y: 100, Color: "#f00"}.Merge(defaults)
	assert.Equal(t, CaptionStyle{X: 0, Y: 100, FontSize: 40, Color: "#f00", Background: "#000"}, got)
}
