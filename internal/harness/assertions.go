package harness

import (
	"encoding/json"
	"fmt"
	"slices"
	"strings"

	"github.com/expr-lang/expr"
)

// AssertionError is returned when an assertion fails.
// It includes detailed context to help debug the failure.
type AssertionError struct {
	Type     string       // Assertion type for categorization
	Expected string       // Human-readable expected outcome
	Actual   string       // Human-readable actual outcome
	Trace    []TraceEvent // Full trace for debugging context
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder

	fmt.Fprintf(&buf, "Assertion failed: %s\n", e.Type)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s\n", e.Actual)

	fmt.Fprintf(&buf, "\nFull trace:\n")
	for _, event := range e.Trace {
		fmt.Fprintf(&buf, "  [%d] %s %s\n", event.Seq, event.Kind, event.ElementID)
	}

	return buf.String()
}

// EvaluateAssertions runs every assertion and returns the failure messages.
func EvaluateAssertions(result *Result, assertions []Assertion) []string {
	var failures []string
	for i, a := range assertions {
		if err := evaluate(result, a); err != nil {
			failures = append(failures, fmt.Sprintf("assertions[%d]: %v", i, err))
		}
	}
	return failures
}

func evaluate(result *Result, a Assertion) error {
	switch a.Type {
	case AssertUpdateCount:
		return assertUpdateCount(result.Trace, a)
	case AssertUpdateOrder:
		return assertUpdateOrder(result.Trace, a)
	case AssertZOrder:
		return assertZOrder(result, a)
	case AssertSkipped:
		return assertSkipped(result, a)
	case AssertExpr:
		return assertExpr(result, a)
	default:
		return fmt.Errorf("unknown assertion type %q", a.Type)
	}
}

func filterKind(trace []TraceEvent, kind string) []TraceEvent {
	if kind == "" {
		return trace
	}
	var out []TraceEvent
	for _, ev := range trace {
		if ev.Kind == kind {
			out = append(out, ev)
		}
	}
	return out
}

func describeKind(kind string) string {
	if kind == "" {
		return "updates"
	}
	return kind + " updates"
}

// assertUpdateCount checks the number of updates, optionally of one kind.
func assertUpdateCount(trace []TraceEvent, a Assertion) error {
	n := len(filterKind(trace, a.Kind))
	if n != a.Count {
		return &AssertionError{
			Type:     AssertUpdateCount,
			Expected: fmt.Sprintf("%d %s", a.Count, describeKind(a.Kind)),
			Actual:   fmt.Sprintf("%d %s", n, describeKind(a.Kind)),
			Trace:    trace,
		}
	}
	return nil
}

// assertUpdateOrder checks the element ids of the (kind-filtered) updates
// exactly, in seq order.
func assertUpdateOrder(trace []TraceEvent, a Assertion) error {
	var ids []string
	for _, ev := range filterKind(trace, a.Kind) {
		ids = append(ids, ev.ElementID)
	}
	if !slices.Equal(ids, a.IDs) {
		return &AssertionError{
			Type:     AssertUpdateOrder,
			Expected: fmt.Sprintf("%s for %v", describeKind(a.Kind), a.IDs),
			Actual:   fmt.Sprintf("%v", ids),
			Trace:    trace,
		}
	}
	return nil
}

// assertZOrder checks the final back-to-front order.
func assertZOrder(result *Result, a Assertion) error {
	if !slices.Equal(result.Order, a.IDs) {
		return &AssertionError{
			Type:     AssertZOrder,
			Expected: fmt.Sprintf("order %v", a.IDs),
			Actual:   fmt.Sprintf("order %v", result.Order),
			Trace:    result.Trace,
		}
	}
	return nil
}

// assertSkipped checks which elements the last rebuild skipped.
func assertSkipped(result *Result, a Assertion) error {
	var got []string
	if last, ok := result.LastRebuild(); ok {
		for _, s := range last.Skipped {
			got = append(got, s.ElementID)
		}
	}
	slices.Sort(got)
	want := slices.Clone(a.IDs)
	slices.Sort(want)
	if !slices.Equal(got, want) {
		return &AssertionError{
			Type:     AssertSkipped,
			Expected: fmt.Sprintf("skipped %v", want),
			Actual:   fmt.Sprintf("skipped %v", got),
			Trace:    result.Trace,
		}
	}
	return nil
}

// assertExpr evaluates a boolean expr-lang expression. The environment has
// updates (seq, kind, element_id, payload), rebuilds and order.
func assertExpr(result *Result, a Assertion) error {
	env, err := exprEnv(result)
	if err != nil {
		return err
	}
	program, err := expr.Compile(a.Expr, expr.Env(env), expr.AsBool())
	if err != nil {
		return fmt.Errorf("compile %q: %w", a.Expr, err)
	}
	out, err := expr.Run(program, env)
	if err != nil {
		return fmt.Errorf("run %q: %w", a.Expr, err)
	}
	if ok, _ := out.(bool); !ok {
		return &AssertionError{
			Type:     AssertExpr,
			Expected: a.Expr,
			Actual:   "false",
			Trace:    result.Trace,
		}
	}
	return nil
}

// exprEnv converts the result into plain maps so expressions see the same
// snake_case names as the journal.
func exprEnv(result *Result) (map[string]any, error) {
	data, err := json.Marshal(map[string]any{
		"updates":  result.Trace,
		"rebuilds": result.Rebuilds,
		"order":    result.Order,
	})
	if err != nil {
		return nil, fmt.Errorf("build expr env: %w", err)
	}
	var env map[string]any
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("build expr env: %w", err)
	}
	return env, nil
}
