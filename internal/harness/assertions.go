package harness

import (
	"fmt"
	"strings"
)

// AssertionError is returned when an assertion fails.
type AssertionError struct {
	Type     string
	Expected string
	Actual   string
	Trace    []TraceEvent
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder

	fmt.Fprintf(&buf, "Assertion failed: %s\n", e.Type)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s\n", e.Actual)

	if len(e.Trace) > 0 {
		fmt.Fprintf(&buf, "\nFull trace:\n")
		for _, ev := range e.Trace {
			fmt.Fprintf(&buf, "  [%d] %s\n", ev.Seq, describeEvent(ev))
		}
	}

	return buf.String()
}

func describeEvent(ev TraceEvent) string {
	switch ev.Type {
	case EventWant:
		return fmt.Sprintf("want %s (%s)", ev.Key, ev.RequestID)
	case EventFetch:
		return fmt.Sprintf("fetch %s (%s): %s", ev.Key, ev.RequestID, ev.Outcome)
	case EventReport:
		return fmt.Sprintf("report %d %q", ev.Status, ev.Message)
	case EventRender:
		if ev.Code != 0 {
			return fmt.Sprintf("render %s %s", ev.View, ev.Title)
		}
		return fmt.Sprintf("render %s loading=%t", ev.View, ev.Loading)
	default:
		return ev.Type
	}
}

// EvaluateAssertions runs every assertion against result and returns the
// failure messages.
func EvaluateAssertions(result *Result, assertions []Assertion) []string {
	var errs []string
	for i, a := range assertions {
		if err := evaluateAssertion(result, a); err != nil {
			errs = append(errs, fmt.Sprintf("assertion %d (%s): %v", i, a.Type, err))
		}
	}
	return errs
}

func evaluateAssertion(result *Result, a Assertion) error {
	switch a.Type {
	case AssertFetchCount:
		return assertFetchCount(result.Trace, a)
	case AssertOutcomeCount:
		return assertCount(result.Trace, a, func(ev TraceEvent) bool {
			return ev.Type == EventFetch && ev.Outcome == a.Outcome
		}, fmt.Sprintf("fetch outcome %s", a.Outcome))
	case AssertReportCount:
		return assertCount(result.Trace, a, func(ev TraceEvent) bool {
			return ev.Type == EventReport
		}, "report events")
	case AssertRenderCount:
		return assertCount(result.Trace, a, func(ev TraceEvent) bool {
			return ev.Type == EventRender
		}, "render events")
	case AssertView:
		return assertView(result, a)
	default:
		return fmt.Errorf("unknown assertion type %q", a.Type)
	}
}

func assertFetchCount(trace []TraceEvent, a Assertion) error {
	what := "want events"
	if a.Def != "" {
		what = fmt.Sprintf("want events for %s", a.Def)
	}
	return assertCount(trace, a, func(ev TraceEvent) bool {
		return ev.Type == EventWant && (a.Def == "" || ev.Key.Def == a.Def)
	}, what)
}

func assertCount(trace []TraceEvent, a Assertion, match func(TraceEvent) bool, what string) error {
	count := 0
	for _, ev := range trace {
		if match(ev) {
			count++
		}
	}
	if count != a.Count {
		return &AssertionError{
			Type:     a.Type,
			Expected: fmt.Sprintf("%d %s", a.Count, what),
			Actual:   fmt.Sprintf("%d %s", count, what),
			Trace:    trace,
		}
	}
	return nil
}

// assertView checks the final view. Unset assertion fields are ignored.
func assertView(result *Result, a Assertion) error {
	v := result.View
	var mismatches []string

	if a.Kind != "" && v.Kind != a.Kind {
		mismatches = append(mismatches, fmt.Sprintf("kind %q != %q", v.Kind, a.Kind))
	}
	if a.Title != "" && v.Title != a.Title {
		mismatches = append(mismatches, fmt.Sprintf("title %q != %q", v.Title, a.Title))
	}
	if a.Subtitle != "" && v.Subtitle != a.Subtitle {
		mismatches = append(mismatches, fmt.Sprintf("subtitle %q != %q", v.Subtitle, a.Subtitle))
	}
	if a.Code != 0 && v.Code != a.Code {
		mismatches = append(mismatches, fmt.Sprintf("code %d != %d", v.Code, a.Code))
	}

	if len(mismatches) > 0 {
		return &AssertionError{
			Type:     AssertView,
			Expected: fmt.Sprintf("kind=%q title=%q subtitle=%q code=%d", a.Kind, a.Title, a.Subtitle, a.Code),
			Actual:   strings.Join(mismatches, "; "),
			Trace:    result.Trace,
		}
	}
	return nil
}
