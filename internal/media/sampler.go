// Package media defines the media-sampling collaborator boundary and a
// file-backed implementation for still images.
//
// Decoding video is owned by an external pipeline; the engine only asks a
// Sampler for an image at a local time. Scope is the explicit resource
// scope: everything it decodes is released on Close.
package media

import (
	"context"
	"errors"
	"image"

	"github.com/roach88/canvasync/internal/model"
)

// ErrClosed is returned by a Scope after Close.
var ErrClosed = errors.New("media scope closed")

// Sampler produces image samples for media sources.
type Sampler interface {
	// Sample returns the image shown by src at localTime seconds.
	Sample(ctx context.Context, src string, localTime float64) (image.Image, error)
	// NativeSize returns the intrinsic pixel size of src.
	NativeSize(src string) (model.Size, error)
}

// LocalTime maps a timeline sample time to the media's own clock, honoring
// playback rate and trim start.
func LocalTime(el model.Element, sampleTime float64) float64 {
	rate, offset := 1.0, 0.0
	if el.Props.Media != nil {
		rate = el.Props.Media.Rate()
		offset = el.Props.Media.StartOffset
	}
	return (sampleTime-el.S)*rate + offset
}
