package media

import (
	"context"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
	"golang.org/x/sync/singleflight"

	"github.com/roach88/canvasync/internal/model"
)

// Scope decodes still images from disk and keeps them until Close.
//
// Sources are resolved relative to the scope root. Concurrent requests for
// the same source share one decode. Any time value samples the same still.
type Scope struct {
	root string

	mu     sync.RWMutex
	cache  map[string]image.Image
	closed bool

	group singleflight.Group
}

// NewScope creates a scope resolving relative sources against root.
func NewScope(root string) *Scope {
	return &Scope{
		root:  root,
		cache: make(map[string]image.Image),
	}
}

// Sample implements Sampler.
func (s *Scope) Sample(ctx context.Context, src string, localTime float64) (image.Image, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return s.load(src)
}

// NativeSize implements Sampler.
func (s *Scope) NativeSize(src string) (model.Size, error) {
	img, err := s.load(src)
	if err != nil {
		return model.Size{}, err
	}
	b := img.Bounds()
	return model.Size{Width: float64(b.Dx()), Height: float64(b.Dy())}, nil
}

// Len returns the number of cached images.
func (s *Scope) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.cache)
}

// Close releases every cached image. Later calls fail with ErrClosed.
func (s *Scope) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	slog.Debug("media scope closed", "root", s.root, "released", len(s.cache))
	s.closed = true
	s.cache = nil
	return nil
}

func (s *Scope) load(src string) (image.Image, error) {
	s.mu.RLock()
	if s.closed {
		s.mu.RUnlock()
		return nil, ErrClosed
	}
	if img, ok := s.cache[src]; ok {
		s.mu.RUnlock()
		return img, nil
	}
	s.mu.RUnlock()

	v, err, _ := s.group.Do(src, func() (any, error) {
		img, err := decodeFile(s.resolve(src))
		if err != nil {
			return nil, err
		}

		s.mu.Lock()
		defer s.mu.Unlock()
		if s.closed {
			return nil, ErrClosed
		}
		s.cache[src] = img
		return img, nil
	})
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", src, err)
	}
	return v.(image.Image), nil
}

func (s *Scope) resolve(src string) string {
	if filepath.IsAbs(src) || s.root == "" {
		return src
	}
	return filepath.Join(s.root, src)
}

func decodeFile(path string) (image.Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	img, format, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("decode: %w", err)
	}
	slog.Debug("media decoded", "path", path, "format", format, "bounds", img.Bounds().String())
	return img, nil
}
