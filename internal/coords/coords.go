// Package coords maps positions and lengths between project space and
// surface space.
//
// Project space is centered on the output frame; surface space is the pixel
// space of the editing surface with its origin at the top-left corner. The
// mapping is a per-axis scale plus a half-size offset, described by
// model.SurfaceMetadata. ToProject rounds to two decimals so that a round
// trip through the surface is stable.
package coords

import (
	"math"

	"github.com/roach88/canvasync/internal/model"
)

// ToSurface maps a project-space point to surface pixels.
func ToSurface(x, y float64, meta model.SurfaceMetadata) model.Point {
	return model.Point{
		X: x*meta.ScaleX + meta.Width/2,
		Y: y*meta.ScaleY + meta.Height/2,
	}
}

// ToProject maps a surface point back to project space, rounded to two
// decimals.
func ToProject(x, y float64, meta model.SurfaceMetadata, project model.Size) model.Point {
	return model.Point{
		X: Round2(x/meta.ScaleX - project.Width/2),
		Y: Round2(y/meta.ScaleY - project.Height/2),
	}
}

// Round2 rounds to two decimals with halves going toward +Inf, so -0.125
// becomes -0.12 and 0.125 becomes 0.13.
func Round2(v float64) float64 {
	r := math.Floor(v*100+0.5) / 100
	if r == 0 {
		return 0 // no negative zero in committed values
	}
	return r
}

// LengthToSurface scales a project-space length onto one surface axis.
func LengthToSurface(v, scale float64) float64 {
	return v * scale
}

// LengthToProject scales a surface length back to project space, rounded.
func LengthToProject(v, scale float64) float64 {
	return Round2(v / scale)
}

// SizeToSurface scales a project-space size to surface pixels.
func SizeToSurface(s model.Size, meta model.SurfaceMetadata) model.Size {
	return model.Size{
		Width:  s.Width * meta.ScaleX,
		Height: s.Height * meta.ScaleY,
	}
}

// NormalizeAngle folds degrees into [0, 360).
func NormalizeAngle(deg float64) float64 {
	a := math.Mod(deg, 360)
	if a < 0 {
		a += 360
	}
	return Round2(a)
}
