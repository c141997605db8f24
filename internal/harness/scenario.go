package harness

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"gopkg.in/yaml.v3"
)

// Scenario defines a conformance scenario.
type Scenario struct {
	// Name uniquely identifies this scenario and names its golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Fixture is the scene fixture path, relative to the scenario file.
	Fixture string `yaml:"fixture"`

	// Session is an optional fixed session id. Defaults to "scenario-session".
	Session string `yaml:"session,omitempty"`

	// Media scripts the fake sampler.
	Media []MediaStub `yaml:"media,omitempty"`

	// Steps run in order against one engine.
	Steps []Step `yaml:"steps"`

	// Assertions validate the final trace and order.
	Assertions []Assertion `yaml:"assertions"`
}

// MediaStub sets the native size of a source or makes it fail.
type MediaStub struct {
	Src    string  `yaml:"src"`
	Width  float64 `yaml:"width,omitempty"`
	Height float64 `yaml:"height,omitempty"`
	Fail   string  `yaml:"fail,omitempty"`
}

// Step is one engine operation. Exactly one field must be set.
type Step struct {
	Rebuild *RebuildStep `yaml:"rebuild,omitempty"`
	Add     *AddStep     `yaml:"add,omitempty"`
	Gesture *GestureStep `yaml:"gesture,omitempty"`
	ZOrder  *ZOrderStep  `yaml:"zorder,omitempty"`
	Resize  *ResizeStep  `yaml:"resize,omitempty"`
}

// RebuildStep rebuilds the fixture's visible elements.
type RebuildStep struct {
	// SampleTime overrides the fixture sample time.
	SampleTime *float64 `yaml:"sample_time,omitempty"`
	// Dirty skips the canvas clear.
	Dirty bool `yaml:"dirty,omitempty"`
}

// AddStep materializes one fixture element without a rebuild.
type AddStep struct {
	Element string  `yaml:"element"`
	Z       float64 `yaml:"z"`
}

// GestureStep drives one gesture from begin to commit (or cancel).
type GestureStep struct {
	IDs      []string    `yaml:"ids"`
	Move     *[2]float64 `yaml:"move,omitempty"`
	AxisLock bool        `yaml:"axis_lock,omitempty"`
	Rotate   float64     `yaml:"rotate,omitempty"`
	Scale    *[2]float64 `yaml:"scale,omitempty"`
	Cancel   bool        `yaml:"cancel,omitempty"`
}

// ZOrderStep runs one stacking command.
type ZOrderStep struct {
	ID      string `yaml:"id"`
	Command string `yaml:"command"` // front | back | forward | backward
}

// ResizeStep changes the surface pixel size.
type ResizeStep struct {
	Width  float64 `yaml:"width"`
	Height float64 `yaml:"height"`
}

// Assertion validates the trace or final state.
type Assertion struct {
	Type  string   `yaml:"type"`
	Kind  string   `yaml:"kind,omitempty"`
	Count int      `yaml:"count,omitempty"`
	IDs   []string `yaml:"ids,omitempty"`
	Expr  string   `yaml:"expr,omitempty"`
}

// Assertion type constants.
const (
	AssertUpdateCount = "update_count"
	AssertUpdateOrder = "update_order"
	AssertZOrder      = "z_order"
	AssertSkipped     = "skipped"
	AssertExpr        = "expr"
)

// Z-order commands.
const (
	CommandFront    = "front"
	CommandBack     = "back"
	CommandForward  = "forward"
	CommandBackward = "backward"
)

// LoadScenario reads and parses a scenario YAML file. The fixture path is
// resolved relative to the scenario file.
// Returns an error if the file doesn't exist, is malformed,
// contains unknown fields (typos), or is missing required fields.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}

	// Strict field validation catches typos like "assertion:" vs "assertions:".
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if scenario.Fixture != "" && !filepath.IsAbs(scenario.Fixture) {
		scenario.Fixture = filepath.Join(filepath.Dir(path), scenario.Fixture)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}

	return &scenario, nil
}

// FindScenarios returns the scenario files (*.yaml, *.yml) directly inside
// dir, sorted by name.
func FindScenarios(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	var out []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		switch filepath.Ext(e.Name()) {
		case ".yaml", ".yml":
			out = append(out, filepath.Join(dir, e.Name()))
		}
	}
	sort.Strings(out)
	return out, nil
}

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}

	if s.Description == "" {
		return fmt.Errorf("description is required")
	}

	if s.Fixture == "" {
		return fmt.Errorf("fixture is required")
	}
	if _, err := os.Stat(s.Fixture); os.IsNotExist(err) {
		return fmt.Errorf("fixture file not found: %s", s.Fixture)
	}

	if len(s.Steps) == 0 {
		return fmt.Errorf("steps list is required and must be non-empty")
	}

	if len(s.Assertions) == 0 {
		return fmt.Errorf("assertions list is required and must be non-empty")
	}

	for i, m := range s.Media {
		if m.Src == "" {
			return fmt.Errorf("media[%d]: src is required", i)
		}
	}

	for i, step := range s.Steps {
		if err := validateStep(i, &step); err != nil {
			return err
		}
	}

	for i, assertion := range s.Assertions {
		if err := validateAssertion(i, &assertion); err != nil {
			return err
		}
	}

	return nil
}

func validateStep(index int, s *Step) error {
	set := 0
	for _, present := range []bool{s.Rebuild != nil, s.Add != nil, s.Gesture != nil, s.ZOrder != nil, s.Resize != nil} {
		if present {
			set++
		}
	}
	if set != 1 {
		return fmt.Errorf("steps[%d]: exactly one of rebuild, add, gesture, zorder, resize is required", index)
	}

	switch {
	case s.Add != nil:
		if s.Add.Element == "" {
			return fmt.Errorf("steps[%d]: add.element is required", index)
		}
	case s.Gesture != nil:
		if len(s.Gesture.IDs) == 0 {
			return fmt.Errorf("steps[%d]: gesture.ids is required", index)
		}
	case s.ZOrder != nil:
		if s.ZOrder.ID == "" {
			return fmt.Errorf("steps[%d]: zorder.id is required", index)
		}
		switch s.ZOrder.Command {
		case CommandFront, CommandBack, CommandForward, CommandBackward:
		default:
			return fmt.Errorf("steps[%d]: unknown zorder command %q", index, s.ZOrder.Command)
		}
	}
	return nil
}

// validateAssertion validates a single assertion based on its type.
func validateAssertion(index int, a *Assertion) error {
	if a.Type == "" {
		return fmt.Errorf("assertions[%d]: type is required", index)
	}

	switch a.Type {
	case AssertUpdateCount:
		if a.Count < 0 {
			return fmt.Errorf("assertions[%d]: count must be non-negative for update_count", index)
		}
	case AssertUpdateOrder, AssertZOrder:
		if len(a.IDs) == 0 {
			return fmt.Errorf("assertions[%d]: ids list is required for %s", index, a.Type)
		}
	case AssertSkipped:
	case AssertExpr:
		if a.Expr == "" {
			return fmt.Errorf("assertions[%d]: expr is required for expr", index)
		}
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}

	return nil
}
