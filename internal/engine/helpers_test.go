package engine

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/roach88/canvasync/internal/model"
	"github.com/roach88/canvasync/internal/surface"
	"github.com/roach88/canvasync/internal/testutil"
)

var testConfig = Config{
	Surface: model.Size{Width: 960, Height: 540},
	Project: model.Size{Width: 1920, Height: 1080},
}

func newTestEngine(t *testing.T, sampler *testutil.FakeSampler, opts ...EngineOption) *Engine {
	t.Helper()
	if sampler == nil {
		sampler = testutil.NewFakeSampler()
	}
	opts = append([]EngineOption{
		WithClock(testutil.NewDeterministicClock()),
		WithIDGenerator(NewFixedGenerator("session-1")),
	}, opts...)

	e, err := New(testConfig, sampler, opts...)
	require.NoError(t, err)
	t.Cleanup(e.Close)
	return e
}

func shapeEl(id string, x float64) model.Element {
	return model.Element{
		ID:    id,
		Kind:  model.KindShape,
		E:     10,
		Props: model.Props{X: x, Width: 100, Height: 100, Shape: &model.ShapeProps{Shape: "rect"}},
	}
}

func videoEl(id string) model.Element {
	return model.Element{
		ID:    id,
		Kind:  model.KindVideo,
		E:     10,
		Props: model.Props{Width: 320, Height: 180, Media: &model.MediaProps{Src: id + ".mp4"}},
	}
}

func withZ(el model.Element, z float64) model.Element {
	el.ZOrder = model.Float(z)
	return el
}

// snapshot renders the canvas stacking without handle ids.
func snapshot(c *surface.Canvas) []string {
	var out []string
	for _, h := range c.Handles() {
		out = append(out, fmt.Sprintf("%s/%s z=%.2f c=%.2f,%.2f s=%.2fx%.2f a=%.2f",
			h.ElementID, h.Role, h.ZOrder,
			h.Transform.CenterX, h.Transform.CenterY,
			h.Transform.Width, h.Transform.Height, h.Transform.Angle))
	}
	return out
}

type memJournal struct {
	mu       sync.Mutex
	rebuilds []RebuildReport
	updates  []Update
	sessions map[string]bool
}

func (j *memJournal) RecordRebuild(_ context.Context, session string, r RebuildReport) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.mark(session)
	j.rebuilds = append(j.rebuilds, r)
	return nil
}

func (j *memJournal) RecordUpdate(_ context.Context, session string, u Update) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.mark(session)
	j.updates = append(j.updates, u)
	return nil
}

func (j *memJournal) mark(session string) {
	if j.sessions == nil {
		j.sessions = make(map[string]bool)
	}
	j.sessions[session] = true
}
