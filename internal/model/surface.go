package model

import "fmt"

// Size is a width/height pair.
type Size struct {
	Width  float64 `json:"width" yaml:"width"`
	Height float64 `json:"height" yaml:"height"`
}

// Aspect returns Width/Height, or 0 for a degenerate size.
func (s Size) Aspect() float64 {
	if s.Height == 0 {
		return 0
	}
	return s.Width / s.Height
}

// Point is a 2D position.
type Point struct {
	X float64 `json:"x" yaml:"x"`
	Y float64 `json:"y" yaml:"y"`
}

// SurfaceMetadata is derived whenever the surface pixel size or the
// project resolution changes.
type SurfaceMetadata struct {
	Width       float64 `json:"width"`
	Height      float64 `json:"height"`
	AspectRatio float64 `json:"aspect_ratio"`
	ScaleX      float64 `json:"scale_x"`
	ScaleY      float64 `json:"scale_y"`
}

// NewSurfaceMetadata derives metadata for a surface showing a project.
// Both sizes must be positive; anything else is a configuration error.
func NewSurfaceMetadata(surface, project Size) (SurfaceMetadata, error) {
	if surface.Width <= 0 || surface.Height <= 0 {
		return SurfaceMetadata{}, fmt.Errorf("surface size must be positive, got %vx%v", surface.Width, surface.Height)
	}
	if project.Width <= 0 || project.Height <= 0 {
		return SurfaceMetadata{}, fmt.Errorf("project size must be positive, got %vx%v", project.Width, project.Height)
	}
	return SurfaceMetadata{
		Width:       surface.Width,
		Height:      surface.Height,
		AspectRatio: surface.Width / surface.Height,
		ScaleX:      surface.Width / project.Width,
		ScaleY:      surface.Height / project.Height,
	}, nil
}
