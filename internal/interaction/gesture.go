// Package interaction turns direct manipulation on the surface into
// declarative element updates.
//
// A Gesture moves through idle -> selected -> dragging|scaling|rotating and
// ends committed or cancelled. Only a commit produces updates: every member
// is converted through its kind's Syncer in ascending zOrder and the outcome
// is handed to the Router. Transforms applied during the gesture are
// transient and are restored on Cancel.
package interaction

import (
	"errors"
	"fmt"
	"log/slog"
	"math"
	"sort"
	"sync"

	"github.com/roach88/canvasync/internal/model"
	"github.com/roach88/canvasync/internal/registry"
	"github.com/roach88/canvasync/internal/surface"
)

var (
	// ErrCapability is returned when a gesture needs a capability the
	// selection does not grant.
	ErrCapability = errors.New("capability not allowed")
	// ErrGestureDone is returned for any call after Commit or Cancel.
	ErrGestureDone = errors.New("gesture already finished")
	// ErrNotMaterialized is returned by Begin for ids without a live handle.
	ErrNotMaterialized = errors.New("element not materialized")
)

// State is the gesture lifecycle state.
type State string

const (
	StateIdle      State = "idle"
	StateSelected  State = "selected"
	StateDragging  State = "dragging"
	StateScaling   State = "scaling"
	StateRotating  State = "rotating"
	StateCommitted State = "committed"
	StateCancelled State = "cancelled"
)

// Modifier is the keyboard modifier held during a move.
type Modifier uint8

const (
	ModNone Modifier = iota
	// ModAxisLock constrains the drag to its dominant axis.
	ModAxisLock
)

type axis uint8

const (
	axisFree axis = iota
	axisX
	axisY
)

// Source gives the controller read access to live handles and elements.
type Source interface {
	Handle(elementID string) (*surface.Handle, bool)
	Element(elementID string) (model.Element, bool)
	ZOrder(elementID string) float64
	SyncContext() registry.SyncContext
}

// Result is one converted member of a committed gesture.
type Result struct {
	ElementID string
	registry.SyncResult
}

// Outcome is what a commit produced. Selected is set instead of Results when
// the gesture did not change anything.
type Outcome struct {
	Selected []string
	Results  []Result
}

// Router receives commit outcomes.
type Router interface {
	Route(o Outcome)
}

// RouterFunc adapts a function to Router.
type RouterFunc func(o Outcome)

// Route implements Router.
func (f RouterFunc) Route(o Outcome) {
	f(o)
}

// Controller starts gestures against a Source.
type Controller struct {
	reg    *registry.Registry
	src    Source
	router Router
}

// NewController creates a controller. router may be nil.
func NewController(reg *registry.Registry, src Source, router Router) *Controller {
	return &Controller{reg: reg, src: src, router: router}
}

type member struct {
	handle *surface.Handle
	elem   model.Element
	orig   surface.Transform
	z      float64
}

// Gesture is one in-progress manipulation of one or more handles.
type Gesture struct {
	c *Controller

	mu      sync.Mutex
	state   State
	members []member
	caps    surface.Caps

	dx, dy  float64
	lock    axis
	angle   float64
	sx, sy  float64
	rotated bool
	scaled  bool
}

// Begin selects the given elements. A single id is a plain selection; more
// than one is a marquee selection, on which scaling is disabled.
func (c *Controller) Begin(ids ...string) (*Gesture, error) {
	if len(ids) == 0 {
		return nil, errors.New("begin gesture: no elements selected")
	}

	g := &Gesture{c: c, state: StateIdle, sx: 1, sy: 1}
	seen := make(map[string]bool, len(ids))
	caps := surface.CapsAll
	for _, id := range ids {
		if seen[id] {
			continue
		}
		seen[id] = true

		h, ok := c.src.Handle(id)
		if !ok {
			return nil, fmt.Errorf("begin gesture on %s: %w", id, ErrNotMaterialized)
		}
		el, ok := c.src.Element(id)
		if !ok {
			return nil, fmt.Errorf("begin gesture on %s: %w", id, ErrNotMaterialized)
		}
		z := c.src.ZOrder(id)
		if h.Role == surface.RoleWatermark {
			z = math.Inf(1)
		}
		g.members = append(g.members, member{handle: h, elem: el, orig: h.Transform, z: z})
		caps = intersect(caps, h.Caps)
	}
	if len(g.members) > 1 {
		caps.AllowScale = false
	}

	sort.SliceStable(g.members, func(i, j int) bool { return g.members[i].z < g.members[j].z })
	g.caps = caps
	g.state = StateSelected
	return g, nil
}

func intersect(a, b surface.Caps) surface.Caps {
	return surface.Caps{
		AllowDrag:   a.AllowDrag && b.AllowDrag,
		AllowRotate: a.AllowRotate && b.AllowRotate,
		AllowScale:  a.AllowScale && b.AllowScale,
	}
}

// State returns the current lifecycle state.
func (g *Gesture) State() State {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.state
}

// Caps returns the capabilities of the selection.
func (g *Gesture) Caps() surface.Caps {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.caps
}

// IDs returns the member element ids in ascending zOrder.
func (g *Gesture) IDs() []string {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.ids()
}

func (g *Gesture) ids() []string {
	ids := make([]string, len(g.members))
	for i, m := range g.members {
		ids[i] = m.handle.ElementID
	}
	return ids
}

func (g *Gesture) active() error {
	if g.state == StateCommitted || g.state == StateCancelled {
		return ErrGestureDone
	}
	return nil
}

// Move sets the cumulative displacement in surface pixels. With ModAxisLock
// the dominant axis of the first non-zero displacement is latched and the
// other axis stays at its original value.
func (g *Gesture) Move(dx, dy float64, mod Modifier) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if err := g.active(); err != nil {
		return err
	}
	if !g.caps.AllowDrag {
		return fmt.Errorf("drag: %w", ErrCapability)
	}

	if mod != ModAxisLock {
		g.lock = axisFree
	} else if g.lock == axisFree && (dx != 0 || dy != 0) {
		g.lock = axisY
		if math.Abs(dx) >= math.Abs(dy) {
			g.lock = axisX
		}
	}

	switch g.lock {
	case axisX:
		dy = 0
	case axisY:
		dx = 0
	}
	g.dx, g.dy = dx, dy
	g.state = StateDragging
	g.apply()
	return nil
}

// Rotate sets the cumulative rotation in degrees.
func (g *Gesture) Rotate(deg float64) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if err := g.active(); err != nil {
		return err
	}
	if !g.caps.AllowRotate {
		return fmt.Errorf("rotate: %w", ErrCapability)
	}
	g.angle = deg
	g.rotated = deg != 0
	g.state = StateRotating
	g.apply()
	return nil
}

// Scale sets the cumulative scale factors.
func (g *Gesture) Scale(sx, sy float64) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if err := g.active(); err != nil {
		return err
	}
	if !g.caps.AllowScale {
		return fmt.Errorf("scale: %w", ErrCapability)
	}
	if sx <= 0 || sy <= 0 {
		return fmt.Errorf("scale factors must be positive, got %v,%v", sx, sy)
	}
	g.sx, g.sy = sx, sy
	g.scaled = sx != 1 || sy != 1
	g.state = StateScaling
	g.apply()
	return nil
}

func (g *Gesture) apply() {
	for _, m := range g.members {
		t := m.orig
		t.CenterX += g.dx
		t.CenterY += g.dy
		t.Angle += g.angle
		t.ScaleX *= g.sx
		t.ScaleY *= g.sy
		m.handle.Transform = t
	}
}

// Cancel restores every member's original transform.
func (g *Gesture) Cancel() error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if err := g.active(); err != nil {
		return err
	}
	for _, m := range g.members {
		m.handle.Transform = m.orig
	}
	g.state = StateCancelled
	return nil
}

// Commit finishes the gesture and routes its outcome. A gesture that neither
// moved, rotated nor scaled reports a selection. Members whose kind has no
// Syncer are dropped.
func (g *Gesture) Commit() (Outcome, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if err := g.active(); err != nil {
		return Outcome{}, err
	}
	g.state = StateCommitted

	var out Outcome
	if g.dx == 0 && g.dy == 0 && !g.rotated && !g.scaled {
		for _, m := range g.members {
			m.handle.Transform = m.orig
		}
		out.Selected = g.ids()
		g.route(out)
		return out, nil
	}

	sc := g.c.src.SyncContext()
	for _, m := range g.members {
		syncer, ok := g.c.reg.Syncer(m.elem.Kind)
		if !ok {
			slog.Debug("sync dropped: kind has no syncer",
				"element_id", m.elem.ID,
				"kind", m.elem.Kind,
			)
			continue
		}

		res, err := syncer.SyncFromSurface(m.handle, m.elem, sc)
		if err != nil {
			slog.Warn("sync from surface failed",
				"element_id", m.elem.ID,
				"kind", m.elem.Kind,
				"error", err,
			)
			continue
		}
		bake(m.handle)
		out.Results = append(out.Results, Result{ElementID: m.elem.ID, SyncResult: res})
	}

	g.route(out)
	return out, nil
}

func (g *Gesture) route(o Outcome) {
	if g.c.router != nil {
		g.c.router.Route(o)
	}
}

// bake folds the gesture scale into the handle size so the handle matches
// the committed element.
func bake(h *surface.Handle) {
	t := &h.Transform
	t.Width *= t.ScaleX
	t.Height *= t.ScaleY
	t.ScaleX, t.ScaleY = 1, 1
}
