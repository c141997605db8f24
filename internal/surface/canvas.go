package surface

import (
	"fmt"
	"sort"
	"sync"
)

// Renderer draws a snapshot of the canvas. Handles are passed in stacking
// order, back-most first.
type Renderer interface {
	Render(background string, handles []*Handle) error
}

// RendererFunc adapts a function to Renderer.
type RendererFunc func(background string, handles []*Handle) error

// Render implements Renderer.
func (f RendererFunc) Render(background string, handles []*Handle) error {
	return f(background, handles)
}

// Canvas is the in-memory surface. It owns the live handle set.
//
// Thread-safety: all methods are safe for concurrent use; materializations
// complete on arbitrary goroutines and add their handles here.
type Canvas struct {
	mu         sync.Mutex
	handles    []*Handle
	background string
	renderer   Renderer
	renders    int
}

// CanvasOption configures a Canvas.
type CanvasOption func(*Canvas)

// WithRenderer attaches a renderer invoked on every RequestRender.
func WithRenderer(r Renderer) CanvasOption {
	return func(c *Canvas) {
		c.renderer = r
	}
}

// WithBackground sets the global background color.
func WithBackground(color string) CanvasOption {
	return func(c *Canvas) {
		c.background = color
	}
}

// NewCanvas creates an empty canvas.
func NewCanvas(opts ...CanvasOption) *Canvas {
	c := &Canvas{}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Add inserts h, replacing any live handle with the same element id and role.
func (c *Canvas) Add(h *Handle) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for i, existing := range c.handles {
		if existing.ElementID == h.ElementID && existing.Role == h.Role {
			c.handles[i] = h
			return
		}
	}
	c.handles = append(c.handles, h)
}

// Remove destroys every handle of an element. Returns how many were removed.
func (c *Canvas) Remove(elementID string) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	kept := c.handles[:0]
	removed := 0
	for _, h := range c.handles {
		if h.ElementID == elementID {
			removed++
			continue
		}
		kept = append(kept, h)
	}
	for i := len(kept); i < len(c.handles); i++ {
		c.handles[i] = nil
	}
	c.handles = kept
	return removed
}

// Clear drops every handle. The global background color is kept.
func (c *Canvas) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.handles = nil
}

// Handles returns the live handles in current stacking order.
func (c *Canvas) Handles() []*Handle {
	c.mu.Lock()
	defer c.mu.Unlock()

	out := make([]*Handle, len(c.handles))
	copy(out, c.handles)
	return out
}

// Len returns the number of live handles.
func (c *Canvas) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.handles)
}

// Find returns the primary handle of an element (element or watermark role).
func (c *Canvas) Find(elementID string) (*Handle, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for _, h := range c.handles {
		if h.ElementID == elementID && (h.Role == RoleElement || h.Role == RoleWatermark) {
			return h, true
		}
	}
	return nil, false
}

// FindRole returns the handle of an element with the given role.
func (c *Canvas) FindRole(elementID string, role Role) (*Handle, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for _, h := range c.handles {
		if h.ElementID == elementID && h.Role == role {
			return h, true
		}
	}
	return nil, false
}

// ZOrder returns the zOrder of an element's primary handle.
func (c *Canvas) ZOrder(elementID string) (float64, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for _, h := range c.handles {
		if h.ElementID == elementID && (h.Role == RoleElement || h.Role == RoleWatermark) {
			return h.ZOrder, true
		}
	}
	return 0, false
}

// SetZ moves an element's handle to z and its scene background, if any, to
// z - 0.5. The stacking order is not changed until the next Sort.
func (c *Canvas) SetZ(elementID string, z float64) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	found := false
	for _, h := range c.handles {
		if h.ElementID != elementID {
			continue
		}
		switch h.Role {
		case RoleElement:
			h.ZOrder = z
			found = true
		case RoleSceneBackground:
			h.ZOrder = z - 0.5
		}
	}
	return found
}

// Sort reorders the handle set with a stable sort.
func (c *Canvas) Sort(less func(a, b *Handle) bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	sort.SliceStable(c.handles, func(i, j int) bool {
		return less(c.handles[i], c.handles[j])
	})
}

// SetBackground sets the global background color.
func (c *Canvas) SetBackground(color string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.background = color
}

// Background returns the global background color.
func (c *Canvas) Background() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.background
}

// RequestRender draws the current snapshot with the attached renderer.
func (c *Canvas) RequestRender() error {
	c.mu.Lock()
	c.renders++
	renderer := c.renderer
	bg := c.background
	snapshot := make([]*Handle, len(c.handles))
	copy(snapshot, c.handles)
	c.mu.Unlock()

	if renderer == nil {
		return nil
	}
	if err := renderer.Render(bg, snapshot); err != nil {
		return fmt.Errorf("render: %w", err)
	}
	return nil
}

// Renders returns how many renders were requested.
func (c *Canvas) Renders() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.renders
}
