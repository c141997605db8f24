package engine

import (
	"log/slog"
	"sort"
	"sync"

	"github.com/roach88/canvasync/internal/surface"
)

// Move describes a stacking change. Neighbor is set when a command swapped
// places with an adjacent element.
type Move struct {
	ElementID      string  `json:"element_id"`
	From           float64 `json:"from"`
	ZOrder         float64 `json:"z_order"`
	Neighbor       string  `json:"neighbor,omitempty"`
	NeighborZOrder float64 `json:"neighbor_z_order,omitempty"`
}

// Changed reports whether the command moved anything.
func (m Move) Changed() bool {
	return m.From != m.ZOrder
}

// ZOrderManager keeps a total stacking order over the live handles.
//
// Order rules: lower zOrder is further back; the watermark is always last;
// a scene background sits at its owner's zOrder - 0.5 and always sorts
// directly behind its owner; ties are broken by element id and then role so
// completion order never matters.
//
// Thread-safety: commands and Resort are serialized; zOrder writes go
// through the canvas lock.
type ZOrderManager struct {
	mu     sync.Mutex
	canvas *surface.Canvas
}

// NewZOrderManager creates a manager over canvas.
func NewZOrderManager(canvas *surface.Canvas) *ZOrderManager {
	return &ZOrderManager{canvas: canvas}
}

func roleRank(r surface.Role) int {
	switch r {
	case surface.RoleSceneBackground:
		return 0
	case surface.RoleWatermark:
		return 2
	default:
		return 1
	}
}

// stacking returns the order over hs. A scene background takes its owner's
// zOrder as its key, so no other handle can sort between the two.
func stacking(hs []*surface.Handle) func(a, b *surface.Handle) bool {
	owners := make(map[string]float64, len(hs))
	for _, h := range hs {
		if h.Role == surface.RoleElement {
			owners[h.ElementID] = h.ZOrder
		}
	}
	key := func(h *surface.Handle) float64 {
		if h.Role != surface.RoleSceneBackground {
			return h.ZOrder
		}
		if z, ok := owners[h.ElementID]; ok {
			return z
		}
		return h.ZOrder + 0.5
	}

	return func(a, b *surface.Handle) bool {
		aw, bw := a.Role == surface.RoleWatermark, b.Role == surface.RoleWatermark
		if aw != bw {
			return bw
		}
		if ka, kb := key(a), key(b); ka != kb {
			return ka < kb
		}
		if a.ElementID != b.ElementID {
			return a.ElementID < b.ElementID
		}
		return roleRank(a.Role) < roleRank(b.Role)
	}
}

// Resort re-stacks the canvas.
func (m *ZOrderManager) Resort() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.resort()
}

func (m *ZOrderManager) resort() {
	m.canvas.Sort(stacking(m.canvas.Handles()))
}

// Order returns the ids of element-role handles, front-most last.
func (m *ZOrderManager) Order() []string {
	var ids []string
	for _, h := range m.canvas.Handles() {
		if h.Role == surface.RoleElement {
			ids = append(ids, h.ElementID)
		}
	}
	return ids
}

// siblings returns element-role handles sorted back to front.
func (m *ZOrderManager) siblings() []*surface.Handle {
	var hs []*surface.Handle
	for _, h := range m.canvas.Handles() {
		if h.Role == surface.RoleElement {
			hs = append(hs, h)
		}
	}
	less := stacking(hs)
	sort.SliceStable(hs, func(i, j int) bool { return less(hs[i], hs[j]) })
	return hs
}

// BringToFront moves id above every other element. Returns false when id
// is not materialized.
func (m *ZOrderManager) BringToFront(id string) (Move, bool) {
	return m.toEdge(id, true)
}

// SendToBack moves id below every other element.
func (m *ZOrderManager) SendToBack(id string) (Move, bool) {
	return m.toEdge(id, false)
}

// BringForward swaps id with the element directly above it.
func (m *ZOrderManager) BringForward(id string) (Move, bool) {
	return m.step(id, 1)
}

// SendBackward swaps id with the element directly below it.
func (m *ZOrderManager) SendBackward(id string) (Move, bool) {
	return m.step(id, -1)
}

func (m *ZOrderManager) toEdge(id string, front bool) (Move, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	sibs := m.siblings()
	idx := indexOf(sibs, id)
	if idx < 0 {
		slog.Debug("zorder command on element without handle", "element_id", id)
		return Move{}, false
	}
	h := sibs[idx]
	move := Move{ElementID: id, From: h.ZOrder, ZOrder: h.ZOrder}

	edge := 0
	if front {
		edge = len(sibs) - 1
	}
	if idx == edge {
		return move, true
	}

	if front {
		move.ZOrder = sibs[edge].ZOrder + 1
	} else {
		move.ZOrder = sibs[edge].ZOrder - 1
	}
	m.canvas.SetZ(id, move.ZOrder)
	m.commit()
	return move, true
}

func (m *ZOrderManager) step(id string, dir int) (Move, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	sibs := m.siblings()
	idx := indexOf(sibs, id)
	if idx < 0 {
		slog.Debug("zorder command on element without handle", "element_id", id)
		return Move{}, false
	}
	h := sibs[idx]
	move := Move{ElementID: id, From: h.ZOrder, ZOrder: h.ZOrder}

	n := idx + dir
	if n < 0 || n >= len(sibs) {
		return move, true
	}
	neighbor := sibs[n]

	if neighbor.ZOrder != h.ZOrder {
		move.ZOrder, move.Neighbor, move.NeighborZOrder = neighbor.ZOrder, neighbor.ElementID, h.ZOrder
		m.canvas.SetZ(neighbor.ElementID, h.ZOrder)
		m.canvas.SetZ(id, move.ZOrder)
	} else {
		// Equal zOrder: step past the neighbor without disturbing it.
		beyond := n + dir
		if beyond >= 0 && beyond < len(sibs) {
			move.ZOrder = (neighbor.ZOrder + sibs[beyond].ZOrder) / 2
		} else {
			move.ZOrder = neighbor.ZOrder + float64(dir)
		}
		m.canvas.SetZ(id, move.ZOrder)
	}
	m.commit()
	return move, true
}

func (m *ZOrderManager) commit() {
	m.resort()
	if err := m.canvas.RequestRender(); err != nil {
		slog.Warn("render after zorder change failed", "error", err)
	}
}

func indexOf(hs []*surface.Handle, id string) int {
	for i, h := range hs {
		if h.ElementID == id {
			return i
		}
	}
	return -1
}
