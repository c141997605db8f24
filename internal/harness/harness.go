package harness

import (
	"context"
	"errors"
	"fmt"

	"github.com/roach88/canvasync/internal/engine"
	"github.com/roach88/canvasync/internal/fixture"
	"github.com/roach88/canvasync/internal/interaction"
	"github.com/roach88/canvasync/internal/model"
	"github.com/roach88/canvasync/internal/store"
	"github.com/roach88/canvasync/internal/testutil"
)

// DefaultSession is the session id used when a scenario names none.
const DefaultSession = "scenario-session"

// Harness is the scenario execution engine.
// It runs steps with a deterministic clock, a fixed session and a fake
// sampler.
type Harness struct {
	scene   *fixture.Scene
	store   *store.Store
	engine  *engine.Engine
	clock   *testutil.DeterministicClock
	sampler *testutil.FakeSampler
}

// Run executes a scenario and returns the result.
//
// Each scenario runs in a fresh in-memory journal for isolation.
//
// Execution flow:
// 1. Load the fixture and script the fake sampler
// 2. Create the engine journaling into an in-memory store
// 3. Execute steps in order, stopping at the first failing step
// 4. Read the trace back from the journal and evaluate assertions
func Run(scenario *Scenario) (*Result, error) {
	return RunContext(context.Background(), scenario)
}

// RunContext is Run with a caller context.
func RunContext(ctx context.Context, scenario *Scenario) (*Result, error) {
	scene, err := fixture.Load(scenario.Fixture)
	if err != nil {
		return nil, fmt.Errorf("failed to load fixture: %w", err)
	}

	st, err := store.Open(":memory:")
	if err != nil {
		return nil, fmt.Errorf("failed to create in-memory store: %w", err)
	}
	defer st.Close()

	sampler := testutil.NewFakeSampler()
	for _, m := range scenario.Media {
		if m.Width > 0 && m.Height > 0 {
			sampler.WithSize(m.Src, model.Size{Width: m.Width, Height: m.Height})
		}
		if m.Fail != "" {
			sampler.Fail(m.Src, errors.New(m.Fail))
		}
	}

	session := scenario.Session
	if session == "" {
		session = DefaultSession
	}

	clock := testutil.NewDeterministicClock()
	eng, err := engine.New(engine.Config{
		Surface:    scene.Surface,
		Project:    scene.Project,
		Background: scene.Background,
	}, sampler,
		engine.WithClock(clock),
		engine.WithJournal(st),
		engine.WithIDGenerator(engine.NewFixedGenerator(session)),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create engine: %w", err)
	}
	defer eng.Close()

	h := &Harness{
		scene:   scene,
		store:   st,
		engine:  eng,
		clock:   clock,
		sampler: sampler,
	}

	result := NewResult()
	result.Session = session
	for i, step := range scenario.Steps {
		if err := h.executeStep(ctx, step); err != nil {
			result.AddError(fmt.Sprintf("steps[%d]: %v", i, err))
			break
		}
	}

	if err := h.collect(ctx, result); err != nil {
		return nil, err
	}

	for _, errMsg := range EvaluateAssertions(result, scenario.Assertions) {
		result.AddError(errMsg)
	}

	return result, nil
}

func (h *Harness) executeStep(ctx context.Context, step Step) error {
	switch {
	case step.Rebuild != nil:
		t := h.scene.SampleTime
		if step.Rebuild.SampleTime != nil {
			t = *step.Rebuild.SampleTime
		}
		var visible []model.Element
		for _, el := range h.scene.Elements {
			if el.Active(t) {
				visible = append(visible, el)
			}
		}
		_, err := h.engine.RebuildScene(ctx, visible, t, engine.RebuildOptions{
			Captions:  h.scene.Captions,
			Watermark: h.scene.Watermark,
			Clean:     !step.Rebuild.Dirty,
		})
		return err

	case step.Add != nil:
		el, ok := h.scene.Find(step.Add.Element)
		if !ok {
			return fmt.Errorf("fixture has no element %q", step.Add.Element)
		}
		return h.engine.AddElement(ctx, el, step.Add.Z)

	case step.Gesture != nil:
		return h.runGesture(step.Gesture)

	case step.ZOrder != nil:
		var ok bool
		switch step.ZOrder.Command {
		case CommandFront:
			_, ok = h.engine.BringToFront(step.ZOrder.ID)
		case CommandBack:
			_, ok = h.engine.SendToBack(step.ZOrder.ID)
		case CommandForward:
			_, ok = h.engine.BringForward(step.ZOrder.ID)
		case CommandBackward:
			_, ok = h.engine.SendBackward(step.ZOrder.ID)
		}
		if !ok {
			return engine.NewNotMaterializedError(step.ZOrder.ID)
		}
		return nil

	case step.Resize != nil:
		_, err := h.engine.Resize(ctx, model.Size{Width: step.Resize.Width, Height: step.Resize.Height})
		return err
	}
	return fmt.Errorf("empty step")
}

func (h *Harness) runGesture(gs *GestureStep) error {
	g, err := h.engine.Begin(gs.IDs...)
	if err != nil {
		return err
	}

	if gs.Move != nil {
		mod := interaction.ModNone
		if gs.AxisLock {
			mod = interaction.ModAxisLock
		}
		if err := g.Move(gs.Move[0], gs.Move[1], mod); err != nil {
			return err
		}
	}
	if gs.Rotate != 0 {
		if err := g.Rotate(gs.Rotate); err != nil {
			return err
		}
	}
	if gs.Scale != nil {
		if err := g.Scale(gs.Scale[0], gs.Scale[1]); err != nil {
			return err
		}
	}

	if gs.Cancel {
		return g.Cancel()
	}
	_, err = g.Commit()
	return err
}

// collect reads the journal back into the result.
func (h *Harness) collect(ctx context.Context, result *Result) error {
	rebuilds, err := h.store.ListRebuilds(ctx, result.Session)
	if err != nil {
		return fmt.Errorf("failed to read rebuilds: %w", err)
	}
	for _, r := range rebuilds {
		result.Rebuilds = append(result.Rebuilds, r.RebuildReport)
	}

	updates, err := h.store.ListUpdates(ctx, result.Session)
	if err != nil {
		return fmt.Errorf("failed to read updates: %w", err)
	}
	for _, u := range updates {
		result.Trace = append(result.Trace, TraceEvent{
			Seq:       u.Seq,
			Kind:      string(u.Kind),
			ElementID: u.ElementID,
			Payload:   u.Payload,
		})
	}

	if order := h.engine.Order(); order != nil {
		result.Order = order
	}
	return nil
}
