package harness

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/withdef/internal/ir"
	"github.com/roach88/withdef/internal/withdef"
)

func sampleResult() *Result {
	r := NewResult()
	r.Trace = []TraceEvent{
		{Seq: 1, Type: EventWant, Key: ir.DefKey{Repo: "r", Rev: "v", Def: "a"}, RequestID: "req-1"},
		{Seq: 2, Type: EventRender, View: "normal", Loading: true},
		{Seq: 3, Type: EventFetch, Key: ir.DefKey{Repo: "r", Rev: "v", Def: "a"}, RequestID: "req-1", Outcome: "not_found"},
		{Seq: 4, Type: EventReport, Status: 404, Message: "not found"},
		{Seq: 5, Type: EventRender, View: "unavailable", Title: "404", Subtitle: withdef.UnavailableSubtitle, Code: 404},
	}
	r.View = withdef.View{Kind: "unavailable", Title: "404", Subtitle: withdef.UnavailableSubtitle, Code: 404}
	return r
}

func TestEvaluateAssertions_Pass(t *testing.T) {
	errs := EvaluateAssertions(sampleResult(), []Assertion{
		{Type: AssertFetchCount, Count: 1},
		{Type: AssertFetchCount, Def: "a", Count: 1},
		{Type: AssertFetchCount, Def: "b", Count: 0},
		{Type: AssertOutcomeCount, Outcome: "not_found", Count: 1},
		{Type: AssertReportCount, Count: 1},
		{Type: AssertRenderCount, Count: 2},
		{Type: AssertView, Kind: "unavailable", Code: 404},
	})
	assert.Empty(t, errs)
}

func TestEvaluateAssertions_Failures(t *testing.T) {
	errs := EvaluateAssertions(sampleResult(), []Assertion{
		{Type: AssertReportCount, Count: 2},
		{Type: AssertView, Title: "500"},
		{Type: "bogus"},
	})
	require.Len(t, errs, 3)
	assert.Contains(t, errs[0], "assertion 0 (report_count)")
	assert.Contains(t, errs[0], "[3] fetch r@v/-/def/a (req-1): not_found")
	assert.Contains(t, errs[1], `title "404" != "500"`)
	assert.Contains(t, errs[2], `unknown assertion type "bogus"`)
}

func TestResult_Count(t *testing.T) {
	r := sampleResult()
	assert.Equal(t, 2, r.Count(EventRender))
	assert.Equal(t, 0, NewResult().Count(EventWant))
}
