package withdef

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/withdef/internal/ir"
)

func TestSelect(t *testing.T) {
	f := HTTPStatusFormatter{}

	s := reconciled("A", "r1", "d1")
	assert.Equal(t, Selection{Kind: SelectNormal}, Select(s, f), "absent record renders normally")

	s.Record = &ir.Def{Key: keyD1, Name: "D1"}
	assert.Equal(t, Selection{Kind: SelectNormal}, Select(s, f))

	s.Record = &ir.Def{Key: keyD1, Error: &ir.DefError{}}
	assert.Equal(t, Selection{Kind: SelectNormal}, Select(s, f), "empty error renders normally")

	s.Record = &ir.Def{Key: keyD1, Error: &ir.DefError{Message: "not found"}}
	assert.Equal(t, Selection{Kind: SelectUnavailable, Code: 404, Message: UnavailableSubtitle}, Select(s, f))
}

func TestRender_Unavailable(t *testing.T) {
	called := false
	comp := ComponentFunc(func(ViewProps) any {
		called = true
		return nil
	})

	v := Render(Selection{Kind: SelectUnavailable, Code: 404, Message: UnavailableSubtitle}, Props{}, State{}, comp)

	assert.False(t, called, "wrapped component must not render in the error branch")
	assert.True(t, v.Unavailable())
	assert.Equal(t, "404", v.Title)
	assert.Equal(t, "Definition is not available.", v.Subtitle)
	assert.Nil(t, v.Body)
}

func TestRender_NormalMergesPropsAndState(t *testing.T) {
	var got ViewProps
	comp := ComponentFunc(func(p ViewProps) any {
		got = p
		return "body"
	})

	props := Props{Repo: "A", Rev: "r1", Def: "stale", Params: &Params{Splat: []string{"A@r1", "d1"}}}
	s := reconciled("A", "r1", "d1")

	v := Render(Selection{Kind: SelectNormal}, props, s, comp)

	assert.Equal(t, "normal", v.Kind)
	assert.Equal(t, "body", v.Body)
	assert.Equal(t, "d1", got.Def, "state shadows props")
	assert.Same(t, props.Params, got.Params, "non-state props pass through")
}

func TestSummaryComponent(t *testing.T) {
	s := reconciled("A", "r1", "d1")
	out, ok := SummaryComponent.Render(ViewProps{State: s}).(Summary)
	require.True(t, ok)
	assert.True(t, out.Loading)
	assert.Equal(t, keyD1, out.Key)

	s.Record = &ir.Def{Key: keyD1, Name: "D1", Kind: "func", File: "d.go", StartLine: 3, EndLine: 9}
	out = SummaryComponent.Render(ViewProps{State: s}).(Summary)
	assert.False(t, out.Loading)
	assert.Equal(t, "D1", out.Name)
	assert.Equal(t, "func", out.Kind)
	assert.Equal(t, int64(9), out.EndLine)
}

func TestHTTPStatusFormatter(t *testing.T) {
	f := HTTPStatusFormatter{}
	tests := []struct {
		err  *ir.DefError
		want int
	}{
		{nil, 200},
		{&ir.DefError{Status: 418, Message: "not found"}, 418},
		{&ir.DefError{Message: "not found"}, 404},
		{&ir.DefError{Message: "Repo Not Found"}, 404},
		{&ir.DefError{Message: "unauthorized"}, 401},
		{&ir.DefError{Message: "forbidden"}, 403},
		{&ir.DefError{Message: "context deadline exceeded"}, 504},
		{&ir.DefError{Message: "disk on fire"}, 500},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, f.Code(tt.err), "%v", tt.err)
	}
}

func TestStatusRecorder_IgnoresEmpty(t *testing.T) {
	r := &StatusRecorder{}
	r.Error(nil)
	r.Error(&ir.DefError{})
	assert.Empty(t, r.Errors())
	assert.Nil(t, r.Last())

	r.Error(&ir.DefError{Message: "x"})
	require.NotNil(t, r.Last())
	assert.Equal(t, "x", r.Last().Message)

	assert.NotPanics(t, func() { LogReporter{}.Error(nil) })
}
