package cli

import (
	"errors"

	"github.com/spf13/cobra"

	"github.com/roach88/canvasync/internal/fixture"
)

// FixtureReport is the validation outcome of one fixture file.
type FixtureReport struct {
	File     string           `json:"file"`
	Valid    bool             `json:"valid"`
	Elements int              `json:"elements,omitempty"`
	Errors   []FixtureProblem `json:"errors,omitempty"`
}

// FixtureProblem is a single fixture error with its position, when known.
type FixtureProblem struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Line    int    `json:"line,omitempty"`
	Column  int    `json:"column,omitempty"`
}

// ValidationResult holds validation results for every file.
type ValidationResult struct {
	Valid bool            `json:"valid"`
	Files []FixtureReport `json:"files"`
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate <fixture>...",
		Short: "Validate scene fixtures",
		Long: `Validate scene fixtures against the embedded schema without
materializing anything.

Checks YAML syntax, field types and enums, unknown fields, duplicate
element ids and active intervals.

Exit codes:
  0 - All fixtures are valid
  1 - One or more fixtures are invalid`,
		Args:          cobra.MinimumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(rootOpts, args, cmd)
		},
	}

	return cmd
}

func runValidate(opts *RootOptions, files []string, cmd *cobra.Command) error {
	f := newFormatter(opts, cmd)
	result := ValidationResult{Valid: true, Files: make([]FixtureReport, 0, len(files))}

	for _, path := range files {
		f.VerboseLog("Validating %s", path)
		report := validateFixture(path)
		result.Files = append(result.Files, report)
		if !report.Valid {
			result.Valid = false
		}

		if report.Valid {
			f.Printf("✓ %s (%d elements)\n", path, report.Elements)
			continue
		}
		f.Printf("✗ %s\n", path)
		for _, p := range report.Errors {
			if p.Line > 0 {
				f.Printf("  line %d:%d [%s] %s\n", p.Line, p.Column, p.Code, p.Message)
			} else {
				f.Printf("  [%s] %s\n", p.Code, p.Message)
			}
		}
	}

	if f.JSON() {
		if err := f.Result(result.Valid, result); err != nil {
			return err
		}
	}
	if !result.Valid {
		return reportedExit(ExitFailure, "validation failed")
	}
	return nil
}

func validateFixture(path string) FixtureReport {
	scene, err := fixture.Load(path)
	if err == nil {
		return FixtureReport{File: path, Valid: true, Elements: len(scene.Elements)}
	}

	var ferr *fixture.Error
	if !errors.As(err, &ferr) {
		return FixtureReport{File: path, Errors: []FixtureProblem{{
			Code:    ErrCodeGeneric,
			Message: err.Error(),
		}}}
	}
	p := FixtureProblem{Code: ferr.Code, Message: ferr.Message}
	if ferr.Pos.IsValid() {
		p.Line, p.Column = ferr.Pos.Line(), ferr.Pos.Column()
	}
	return FixtureReport{File: path, Errors: []FixtureProblem{p}}
}
