package harness

import (
	"encoding/json"

	"github.com/roach88/canvasync/internal/engine"
)

// TraceEvent is one journaled update. Payload is the raw JSON the journal
// stored.
type TraceEvent struct {
	Seq       int64           `json:"seq"`
	Kind      string          `json:"kind"`
	ElementID string          `json:"element_id,omitempty"`
	Payload   json.RawMessage `json:"payload,omitempty"`
}

// Result is the outcome of a scenario execution.
type Result struct {
	// Pass indicates overall success: every step ran and every assertion held.
	Pass bool `json:"pass"`

	// Session is the journal session the scenario ran under.
	Session string `json:"session"`

	// Rebuilds are the journaled rebuild reports in generation order.
	Rebuilds []engine.RebuildReport `json:"rebuilds"`

	// Trace contains every update in seq order.
	Trace []TraceEvent `json:"trace"`

	// Order is the final back-to-front element order.
	Order []string `json:"order"`

	// Errors contains step and assertion failures.
	Errors []string `json:"errors,omitempty"`
}

// NewResult creates a new passing result.
func NewResult() *Result {
	return &Result{
		Pass:     true,
		Rebuilds: []engine.RebuildReport{},
		Trace:    []TraceEvent{},
		Order:    []string{},
		Errors:   []string{},
	}
}

// AddError adds a failure and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}

// LastRebuild returns the most recent rebuild report.
func (r *Result) LastRebuild() (engine.RebuildReport, bool) {
	if len(r.Rebuilds) == 0 {
		return engine.RebuildReport{}, false
	}
	return r.Rebuilds[len(r.Rebuilds)-1], true
}
