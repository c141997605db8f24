package testutil

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/canvasync/internal/media"
	"github.com/roach88/canvasync/internal/model"
)

var _ media.Sampler = (*FakeSampler)(nil)

func TestFakeSampler_DefaultsAndOverrides(t *testing.T) {
	s := NewFakeSampler().WithSize("small.png", model.Size{Width: 40, Height: 20})

	size, err := s.NativeSize("any.mp4")
	require.NoError(t, err)
	assert.Equal(t, model.Size{Width: 1920, Height: 1080}, size)

	size, err = s.NativeSize("small.png")
	require.NoError(t, err)
	assert.Equal(t, model.Size{Width: 40, Height: 20}, size)

	img, err := s.Sample(context.Background(), "small.png", 1.5)
	require.NoError(t, err)
	assert.Equal(t, 2, img.Bounds().Dx())
	assert.Equal(t, []SampleCall{{Src: "small.png", LocalTime: 1.5}}, s.Calls())
}

func TestFakeSampler_Fail(t *testing.T) {
	boom := errors.New("decoder crashed")
	s := NewFakeSampler().Fail("bad.mp4", boom)

	_, err := s.Sample(context.Background(), "bad.mp4", 0)
	assert.ErrorIs(t, err, boom)

	_, err = s.NativeSize("bad.mp4")
	assert.ErrorIs(t, err, boom)
}

func TestFakeSampler_DelayHonorsContext(t *testing.T) {
	s := NewFakeSampler().Delay("slow.mp4", time.Hour)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := s.Sample(ctx, "slow.mp4", 0)
	assert.ErrorIs(t, err, context.Canceled)
}
