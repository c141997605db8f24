// Package fixture loads scene fixtures: a project, a surface and the
// elements visible at one sample time.
//
// Fixtures are YAML. They are checked against an embedded CUE schema first,
// so errors carry file positions, then decoded strictly into model types.
package fixture

import (
	"bytes"
	_ "embed"
	"fmt"
	"os"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"cuelang.org/go/cue/errors"
	"cuelang.org/go/cue/token"
	cueyaml "cuelang.org/go/encoding/yaml"
	"gopkg.in/yaml.v3"

	"github.com/roach88/canvasync/internal/model"
)

//go:embed schema.cue
var schemaSource string

// Validation error codes (F100-F199)
const (
	ErrCodeRead        = "F100" // fixture file unreadable
	ErrCodeSyntax      = "F101" // not valid YAML
	ErrCodeSchema      = "F102" // schema violation
	ErrCodeDecode      = "F103" // strict decode failed
	ErrCodeDuplicateID = "F104" // element ids must be unique
	ErrCodeInterval    = "F105" // element ends before it starts
)

// Scene is a decoded fixture.
type Scene struct {
	Project    model.Size         `yaml:"project"`
	Surface    model.Size         `yaml:"surface"`
	SampleTime float64            `yaml:"sample_time"`
	Background string             `yaml:"background"`
	Captions   model.CaptionStyle `yaml:"captions"`
	Watermark  *model.Element     `yaml:"watermark"`
	Elements   []model.Element    `yaml:"elements"`
}

// Visible returns the elements active at the scene's sample time.
func (s *Scene) Visible() []model.Element {
	var out []model.Element
	for _, el := range s.Elements {
		if el.Active(s.SampleTime) {
			out = append(out, el)
		}
	}
	return out
}

// Find returns the element with the given id.
func (s *Scene) Find(id string) (model.Element, bool) {
	for _, el := range s.Elements {
		if el.ID == id {
			return el, true
		}
	}
	return model.Element{}, false
}

// Error is a fixture error with source position.
type Error struct {
	Code    string
	Message string
	Pos     token.Pos
}

func (e *Error) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: [%s] %s",
			e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(), e.Code, e.Message)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Load reads and parses a fixture file.
func Load(path string) (*Scene, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &Error{Code: ErrCodeRead, Message: err.Error()}
	}
	return Parse(path, data)
}

// Parse validates and decodes fixture data. filename is only used in
// error positions.
func Parse(filename string, data []byte) (*Scene, error) {
	if err := validate(filename, data); err != nil {
		return nil, err
	}

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	var scene Scene
	if err := dec.Decode(&scene); err != nil {
		return nil, &Error{Code: ErrCodeDecode, Message: err.Error()}
	}

	seen := make(map[string]bool, len(scene.Elements))
	for _, el := range scene.Elements {
		if seen[el.ID] {
			return nil, &Error{Code: ErrCodeDuplicateID, Message: fmt.Sprintf("duplicate element id %q", el.ID)}
		}
		seen[el.ID] = true
		if el.E < el.S {
			return nil, &Error{Code: ErrCodeInterval, Message: fmt.Sprintf("element %q ends at %v before it starts at %v", el.ID, el.E, el.S)}
		}
	}
	return &scene, nil
}

func validate(filename string, data []byte) error {
	ctx := cuecontext.New()
	schema := ctx.CompileString(schemaSource, cue.Filename("schema.cue"))
	if err := schema.Err(); err != nil {
		return fmt.Errorf("compile fixture schema: %w", err)
	}

	file, err := cueyaml.Extract(filename, data)
	if err != nil {
		return formatCUEError(ErrCodeSyntax, err)
	}
	v := ctx.BuildFile(file)
	if err := v.Err(); err != nil {
		return formatCUEError(ErrCodeSyntax, err)
	}

	unified := schema.LookupPath(cue.ParsePath("#Scene")).Unify(v)
	if err := unified.Validate(cue.Concrete(true)); err != nil {
		return formatCUEError(ErrCodeSchema, err)
	}
	return nil
}

// formatCUEError keeps the first CUE error and its position, preferring a
// position inside the fixture over one inside the schema.
func formatCUEError(code string, err error) error {
	errs := errors.Errors(err)
	if len(errs) == 0 {
		return &Error{Code: code, Message: err.Error()}
	}

	first := errs[0]
	out := &Error{Code: code, Message: first.Error()}
	for _, pos := range errors.Positions(first) {
		if pos.Filename() != "schema.cue" {
			out.Pos = pos
			break
		}
	}
	return out
}
