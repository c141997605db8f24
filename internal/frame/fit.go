package frame

import (
	"fmt"
	"math"

	"github.com/roach88/canvasync/internal/model"
)

// Fit sizes media of the given native size inside a frame.
// An empty strategy means contain.
func Fit(strategy model.FitStrategy, frame, media model.Size) (model.Size, error) {
	if strategy == "" {
		strategy = model.FitContain
	}

	switch strategy {
	case model.FitNone:
		return media, nil
	case model.FitFill:
		return frame, nil
	case model.FitContain, model.FitCover:
	default:
		return model.Size{}, fmt.Errorf("unknown fit strategy %q", strategy)
	}

	if media.Width <= 0 || media.Height <= 0 {
		return frame, nil
	}

	sx := frame.Width / media.Width
	sy := frame.Height / media.Height
	scale := math.Min(sx, sy)
	if strategy == model.FitCover {
		scale = math.Max(sx, sy)
	}
	return model.Size{Width: media.Width * scale, Height: media.Height * scale}, nil
}
