package harness

import (
	"testing"

	"github.com/sebdah/goldie/v2"

	"github.com/roach88/withdef/internal/ir"
)

// TraceSnapshot captures the complete trace for a scenario execution.
type TraceSnapshot struct {
	ScenarioName string       `json:"scenario_name"`
	Trace        []TraceEvent `json:"trace"`
}

// toCanonicalMap converts a TraceSnapshot to the generic form
// ir.MarshalCanonical accepts. Each event carries only the fields of its
// type.
func (s *TraceSnapshot) toCanonicalMap() map[string]any {
	traceList := make([]any, len(s.Trace))
	for i, ev := range s.Trace {
		m := map[string]any{
			"seq":  ev.Seq,
			"type": ev.Type,
		}
		switch ev.Type {
		case EventWant:
			m["key"] = ev.Key
			m["request_id"] = ev.RequestID
		case EventFetch:
			m["key"] = ev.Key
			m["request_id"] = ev.RequestID
			m["outcome"] = ev.Outcome
		case EventReport:
			m["status"] = ev.Status
			m["message"] = ev.Message
		case EventRender:
			m["view"] = ev.View
			if ev.Code != 0 {
				m["code"] = ev.Code
				m["title"] = ev.Title
				m["subtitle"] = ev.Subtitle
			} else {
				m["loading"] = ev.Loading
			}
		}
		traceList[i] = m
	}

	return map[string]any{
		"scenario_name": s.ScenarioName,
		"trace":         traceList,
	}
}

// MarshalTrace renders a trace as canonical JSON.
func MarshalTrace(name string, trace []TraceEvent) ([]byte, error) {
	snapshot := TraceSnapshot{ScenarioName: name, Trace: trace}
	return ir.MarshalCanonical(snapshot.toCanonicalMap())
}

// RunWithGolden executes a scenario and compares the trace against a golden
// file in testdata/golden/{scenario.Name}.golden.
//
// To regenerate golden files, run:
//
//	go test ./internal/harness -update
func RunWithGolden(t *testing.T, scenario *Scenario) (*Result, error) {
	t.Helper()

	result, err := Run(scenario)
	if err != nil {
		return nil, err
	}

	if err := AssertGolden(t, scenario.Name, result); err != nil {
		return nil, err
	}
	return result, nil
}

// AssertGolden compares an existing result's trace against a golden file.
func AssertGolden(t *testing.T, scenarioName string, result *Result) error {
	t.Helper()

	traceJSON, err := MarshalTrace(scenarioName, result.Trace)
	if err != nil {
		return err
	}

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, scenarioName, traceJSON)

	return nil
}
