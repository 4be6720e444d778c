package harness

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/withdef/internal/ir"
)

func TestLoadScenario_Valid(t *testing.T) {
	s, err := LoadScenario("testdata/scenarios/fetch_then_render.yaml")
	require.NoError(t, err)

	assert.Equal(t, "fetch_then_render", s.Name)
	require.Len(t, s.Index, 1)
	assert.Equal(t, ir.DefKey{
		Repo: "github.com/a/b",
		Rev:  "main",
		Def:  "GoPackage/github.com/a/b/-/Foo",
	}, s.Index[0].Def().Key)
	assert.Equal(t, int64(10), s.Index[0].StartLine)

	require.Len(t, s.Steps, 2)
	assert.Equal(t, "props", s.Steps[0].Kind())
	props := s.Steps[0].Props.Props()
	require.NotNil(t, props.Params)
	assert.Equal(t, "GoPackage/github.com/a/b/-/Foo", props.Params.DefIdentifier())
	assert.Equal(t, "fetch", s.Steps[1].Kind())

	require.Len(t, s.Assertions, 4)
	assert.Equal(t, AssertOutcomeCount, s.Assertions[1].Type)
}

func TestLoadScenario_MissingFile(t *testing.T) {
	_, err := LoadScenario(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read scenario file")
}

func TestParseScenario_UnknownField(t *testing.T) {
	_, err := ParseScenario([]byte(`
name: typo
steps:
  - fetch: true
assertion:
  - type: render_count
`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse YAML")
}

func TestParseScenario_Invalid(t *testing.T) {
	tests := []struct {
		name string
		yaml string
		want string
	}{
		{
			name: "missing name",
			yaml: "steps:\n  - fetch: true\n",
			want: "name is required",
		},
		{
			name: "no steps",
			yaml: "name: x\n",
			want: "at least one step",
		},
		{
			name: "two actions in one step",
			yaml: "name: x\nsteps:\n  - fetch: true\n    unmount: true\n",
			want: "steps[0]: exactly one of",
		},
		{
			name: "empty step",
			yaml: "name: x\nsteps:\n  - {}\n",
			want: "steps[0]: exactly one of",
		},
		{
			name: "put without path",
			yaml: "name: x\nsteps:\n  - put: {repo: r, rev: v}\n",
			want: "put needs repo and path",
		},
		{
			name: "index without repo",
			yaml: "name: x\nindex:\n  - {path: p}\nsteps:\n  - fetch: true\n",
			want: "index[0]: repo and path are required",
		},
		{
			name: "unknown assertion",
			yaml: "name: x\nsteps:\n  - fetch: true\nassertions:\n  - type: bogus\n",
			want: `unknown assertion type "bogus"`,
		},
		{
			name: "outcome_count without outcome",
			yaml: "name: x\nsteps:\n  - fetch: true\nassertions:\n  - type: outcome_count\n    count: 1\n",
			want: "outcome is required",
		},
		{
			name: "empty view assertion",
			yaml: "name: x\nsteps:\n  - fetch: true\nassertions:\n  - type: view\n",
			want: "view needs at least one of",
		},
		{
			name: "negative count",
			yaml: "name: x\nsteps:\n  - fetch: true\nassertions:\n  - type: render_count\n    count: -1\n",
			want: "count must be non-negative",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseScenario([]byte(tt.yaml))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestDefEntry_DefWithError(t *testing.T) {
	e := DefEntry{Repo: "r", Rev: "v", Path: "p", Error: &ErrorEntry{Status: 410, Message: "gone"}}
	d := e.Def()
	require.NotNil(t, d.Error)
	assert.Equal(t, 410, d.Error.Status)
	assert.True(t, d.Failed())
}

func TestPropsEntry_NoSplatMeansNoParams(t *testing.T) {
	p := PropsEntry{Repo: "r", Rev: "v", Def: "d"}.Props()
	assert.Nil(t, p.Params)
	assert.Equal(t, "d", p.Def)
}

func TestFindScenarioFiles(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"a.yaml", "b.yml", "c.txt", "cart-1.yaml"} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte("name: x\n"), 0644))
	}

	files, err := FindScenarioFiles(dir, "")
	require.NoError(t, err)
	assert.Len(t, files, 3)

	files, err = FindScenarioFiles(dir, "cart-*")
	require.NoError(t, err)
	require.Len(t, files, 1)
	assert.Equal(t, "cart-1.yaml", filepath.Base(files[0]))

	_, err = FindScenarioFiles(dir, "[")
	require.Error(t, err)
}
