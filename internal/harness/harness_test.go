package harness

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/withdef/internal/withdef"
)

func mustParse(t *testing.T, src string) *Scenario {
	t.Helper()
	s, err := ParseScenario([]byte(src))
	require.NoError(t, err)
	return s
}

func TestRun_DefChangeWantsOnlyNewDef(t *testing.T) {
	s := mustParse(t, `
name: def_change
index:
  - {repo: r, rev: v, path: d1, name: One}
  - {repo: r, rev: v, path: d2, name: Two}
steps:
  - props: {repo: r, rev: v, def: d1}
  - fetch: true
  - props: {repo: r, rev: v, def: d2}
  - fetch: true
assertions:
  - {type: fetch_count, count: 2}
  - {type: fetch_count, def: d1, count: 1}
  - {type: fetch_count, def: d2, count: 1}
  - {type: outcome_count, outcome: found, count: 2}
  - {type: view, kind: normal}
`)
	result, err := Run(s)
	require.NoError(t, err)
	assert.True(t, result.Pass, result.Errors)

	summary, ok := result.View.Body.(withdef.Summary)
	require.True(t, ok)
	assert.Equal(t, "Two", summary.Name)
	assert.False(t, summary.Loading)
}

func TestRun_HeldRecordIsSkippedByBackend(t *testing.T) {
	s := mustParse(t, `
name: held
steps:
  - put: {repo: r, rev: v, path: d, name: D}
  - props: {repo: r, rev: v, def: d}
  - fetch: true
assertions:
  - {type: fetch_count, count: 1}
  - {type: outcome_count, outcome: skipped, count: 1}
  - {type: render_count, count: 1}
`)
	result, err := Run(s)
	require.NoError(t, err)
	assert.True(t, result.Pass, result.Errors)
}

func TestRun_AbsentDefStillWants(t *testing.T) {
	s := mustParse(t, `
name: absent
steps:
  - props: {repo: r, rev: v, splat: ["only-one"]}
  - fetch: true
assertions:
  - {type: fetch_count, def: "", count: 1}
  - {type: outcome_count, outcome: skipped, count: 1}
`)
	result, err := Run(s)
	require.NoError(t, err)
	assert.True(t, result.Pass, result.Errors)

	require.NotEmpty(t, result.Trace)
	assert.Equal(t, EventWant, result.Trace[0].Type)
	assert.Equal(t, "", result.Trace[0].Key.Def)
}

func TestRun_ErrorRecordPutDirectly(t *testing.T) {
	s := mustParse(t, `
name: put_error
steps:
  - props: {repo: r, rev: v, def: d}
  - put: {repo: r, rev: v, path: d, error: {message: "permission denied"}}
  - clear_highlight: true
assertions:
  - {type: report_count, count: 1}
  - {type: view, kind: unavailable, code: 403, title: "403"}
`)
	result, err := Run(s)
	require.NoError(t, err)
	assert.True(t, result.Pass, result.Errors)
}

func TestRun_RecoveryAfterError(t *testing.T) {
	s := mustParse(t, `
name: recovery
steps:
  - put: {repo: r, rev: v, path: d, error: {status: 500, message: boom}}
  - props: {repo: r, rev: v, def: d}
  - put: {repo: r, rev: v, path: d, name: D}
assertions:
  - {type: report_count, count: 1}
  - {type: view, kind: normal}
`)
	result, err := Run(s)
	require.NoError(t, err)
	assert.True(t, result.Pass, result.Errors)
}

func TestRun_FailingAssertionsAreReported(t *testing.T) {
	s := mustParse(t, `
name: failing
steps:
  - props: {repo: r, rev: v, def: d}
assertions:
  - {type: fetch_count, count: 5}
  - {type: view, kind: unavailable}
`)
	result, err := Run(s)
	require.NoError(t, err)
	assert.False(t, result.Pass)
	require.Len(t, result.Errors, 2)
	assert.Contains(t, result.Errors[0], "Expected: 5 want events")
	assert.Contains(t, result.Errors[0], "Actual: 1 want events")
	assert.Contains(t, result.Errors[1], `kind "normal" != "unavailable"`)
}

func TestRun_Deterministic(t *testing.T) {
	s, err := LoadScenario("testdata/scenarios/not_found_reports_once.yaml")
	require.NoError(t, err)

	first, err := Run(s)
	require.NoError(t, err)
	second, err := Run(s)
	require.NoError(t, err)

	a, err := MarshalTrace(s.Name, first.Trace)
	require.NoError(t, err)
	b, err := MarshalTrace(s.Name, second.Trace)
	require.NoError(t, err)
	assert.Equal(t, string(a), string(b))
}
