package testutil

import (
	"context"
	"fmt"
	"image"
	"image/color"
	"sync"
	"time"

	"github.com/roach88/canvasync/internal/model"
)

// SampleCall records one Sample invocation.
type SampleCall struct {
	Src       string
	LocalTime float64
}

// FakeSampler is a media.Sampler with scriptable sizes, failures and delays.
// Unknown sources succeed with DefaultSize.
type FakeSampler struct {
	DefaultSize model.Size

	mu       sync.Mutex
	sizes    map[string]model.Size
	failures map[string]error
	delays   map[string]time.Duration
	calls    []SampleCall
}

// NewFakeSampler creates a sampler whose sources are 1920x1080 by default.
func NewFakeSampler() *FakeSampler {
	return &FakeSampler{
		DefaultSize: model.Size{Width: 1920, Height: 1080},
		sizes:       make(map[string]model.Size),
		failures:    make(map[string]error),
		delays:      make(map[string]time.Duration),
	}
}

// WithSize sets the native size of src.
func (f *FakeSampler) WithSize(src string, size model.Size) *FakeSampler {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sizes[src] = size
	return f
}

// Fail makes every Sample of src return err.
func (f *FakeSampler) Fail(src string, err error) *FakeSampler {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failures[src] = err
	return f
}

// Delay makes Sample of src wait d before returning, so tests can control
// completion order.
func (f *FakeSampler) Delay(src string, d time.Duration) *FakeSampler {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.delays[src] = d
	return f
}

// Sample implements media.Sampler. The image is a 2x2 mid-gray tile.
func (f *FakeSampler) Sample(ctx context.Context, src string, localTime float64) (image.Image, error) {
	f.mu.Lock()
	f.calls = append(f.calls, SampleCall{Src: src, LocalTime: localTime})
	delay := f.delays[src]
	failure := f.failures[src]
	f.mu.Unlock()

	if delay > 0 {
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if failure != nil {
		return nil, failure
	}

	img := image.NewRGBA(image.Rect(0, 0, 2, 2))
	for x := 0; x < 2; x++ {
		for y := 0; y < 2; y++ {
			img.Set(x, y, color.RGBA{R: 128, G: 128, B: 128, A: 255})
		}
	}
	return img, nil
}

// NativeSize implements media.Sampler.
func (f *FakeSampler) NativeSize(src string) (model.Size, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err, ok := f.failures[src]; ok {
		return model.Size{}, fmt.Errorf("native size of %s: %w", src, err)
	}
	if s, ok := f.sizes[src]; ok {
		return s, nil
	}
	return f.DefaultSize, nil
}

// Calls returns the recorded Sample calls in invocation order.
func (f *FakeSampler) Calls() []SampleCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]SampleCall, len(f.calls))
	copy(out, f.calls)
	return out
}
