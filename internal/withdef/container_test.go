package withdef

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/withdef/internal/defstore"
	"github.com/roach88/withdef/internal/ir"
)

func TestContainer_MissingRecordRendersComponentAndWantsOnce(t *testing.T) {
	f := newFixture(t)

	require.NoError(t, f.c.Mount(Props{
		Repo:   "A",
		Rev:    "r1",
		Params: &Params{Splat: []string{"x", "d1"}},
	}))
	assert.Equal(t, 1, f.c.Drain())

	st := f.c.State()
	assert.Nil(t, st.Record)
	assert.Equal(t, "normal", f.c.View().Kind)
	assert.Equal(t, []ir.DefKey{keyD1}, f.dispatch.keys())
}

func TestContainer_SamePropsDoNotRefetch(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.c.Mount(splatProps("A", "r1", "d1")))
	f.c.Drain()

	f.c.SetProps(splatProps("A", "r1", "d1"))
	f.c.SetProps(Props{Repo: "A", Rev: "r1", Def: "d1"})
	f.c.Drain()

	assert.Equal(t, []ir.DefKey{keyD1}, f.dispatch.keys())
}

func TestContainer_ErrorRecordReportsAndRendersUnavailable(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.c.Mount(splatProps("A", "r1", "d1")))
	f.c.Drain()

	f.store.Put(ir.Def{Key: keyD1, Error: &ir.DefError{Message: "not found"}})
	assert.Equal(t, 1, f.c.Drain())

	st := f.c.State()
	require.NotNil(t, st.Record)
	assert.Equal(t, "not found", st.Record.Error.Message)
	assert.Equal(t, []ir.DefError{{Message: "not found"}}, f.status.Errors())

	v := f.c.View()
	assert.True(t, v.Unavailable())
	assert.Equal(t, "404", v.Title)
	assert.Equal(t, UnavailableSubtitle, v.Subtitle)
	assert.Nil(t, v.Body)

	// An unrelated store change re-renders but does not re-report.
	f.store.Put(ir.Def{Key: keyD2})
	f.c.Drain()
	assert.Len(t, f.status.Errors(), 1)
	assert.True(t, f.c.View().Unavailable(), "branch is re-evaluated every render")
}

func TestContainer_DefChangeWantsOnlyNewDef(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.c.Mount(splatProps("A", "r1", "d1")))
	f.c.Drain()
	f.dispatch.reset()

	f.c.SetProps(splatProps("A", "r1", "d2"))
	f.c.Drain()

	assert.Equal(t, []ir.DefKey{keyD2}, f.dispatch.keys())
}

func TestContainer_AbsentDefStillWants(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.c.Mount(splatProps("A", "r1", "d1")))
	f.c.Drain()
	f.dispatch.reset()

	f.c.SetProps(Props{Repo: "A", Rev: "r1"})
	f.c.Drain()

	assert.Equal(t, []ir.DefKey{{Repo: "A", Rev: "r1"}}, f.dispatch.keys())
	assert.Equal(t, "normal", f.c.View().Kind)
}

func TestContainer_HighlightWantsParsedKey(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.c.Mount(splatProps("A", "r1", "d1")))
	f.c.Drain()
	f.dispatch.reset()

	f.store.SetHighlighted("r/rev/-/d")
	f.c.Drain()

	hk := ir.DefKey{Repo: "r", Rev: "rev", Def: "d"}
	assert.Equal(t, []ir.DefKey{hk}, f.dispatch.keys())
	assert.Nil(t, f.c.State().HighlightedRecord)

	f.store.Put(ir.Def{Key: hk, Name: "H"})
	f.c.Drain()

	assert.Equal(t, []ir.DefKey{hk}, f.dispatch.keys(), "record arrival does not refetch")
	require.NotNil(t, f.c.State().HighlightedRecord)
	assert.Same(t, f.store.Get("r", "rev", "d"), f.c.State().HighlightedRecord)
}

func TestContainer_IdempotentReconcile(t *testing.T) {
	f := newFixture(t)
	f.store.Put(ir.Def{Key: keyD1, Error: &ir.DefError{Message: "not found"}})
	require.NoError(t, f.c.Mount(splatProps("A", "r1", "d1")))
	f.c.Drain()

	first := f.c.State()
	wants := len(f.dispatch.keys())
	reports := len(f.status.Errors())

	f.c.SetProps(splatProps("A", "r1", "d1"))
	f.c.Drain()

	assert.Equal(t, first, f.c.State())
	assert.Len(t, f.dispatch.keys(), wants)
	assert.Len(t, f.status.Errors(), reports)
}

func TestContainer_LateResultForOldDefIsIgnored(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.c.Mount(splatProps("A", "r1", "d1")))
	f.c.SetProps(splatProps("A", "r1", "d2"))
	f.c.Drain()
	f.dispatch.reset()

	f.store.Put(ir.Def{Key: keyD1, Error: &ir.DefError{Message: "not found"}})
	f.c.Drain()

	assert.Nil(t, f.c.State().Record)
	assert.Empty(t, f.status.Errors())
	assert.Empty(t, f.dispatch.keys())
	assert.Equal(t, "normal", f.c.View().Kind)
}

func TestContainer_MountTwice(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.c.Mount(splatProps("A", "r1", "d1")))
	assert.ErrorIs(t, f.c.Mount(splatProps("A", "r1", "d1")), ErrMounted)
}

func TestContainer_UnmountUnsubscribes(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.c.Mount(splatProps("A", "r1", "d1")))
	assert.Equal(t, 1, f.store.Subscribers())
	f.c.Drain()

	f.store.Put(ir.Def{Key: keyD1})
	f.c.Unmount()

	assert.Equal(t, 0, f.store.Subscribers())
	assert.Equal(t, 0, f.c.Drain(), "queued events are discarded")
	assert.False(t, f.c.SetProps(splatProps("A", "r1", "d2")))

	_, err := f.c.Await(context.Background(), func(State) bool { return false })
	assert.ErrorIs(t, err, ErrUnmounted)
}

func TestContainer_RenderHook(t *testing.T) {
	var views []View
	f := newFixture(t, WithRenderHook(func(v View, _ State) {
		views = append(views, v)
	}))
	require.NoError(t, f.c.Mount(splatProps("A", "r1", "d1")))
	f.c.Drain()
	f.store.Put(ir.Def{Key: keyD1, Error: &ir.DefError{Status: 403}})
	f.c.Drain()

	require.Len(t, views, 2)
	assert.Equal(t, "normal", views[0].Kind)
	assert.Equal(t, "403", views[1].Title)
	assert.Equal(t, 2, f.c.Renders())
}

func TestContainer_RunAndAwait(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.c.Mount(splatProps("A", "r1", "d1")))

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- f.c.Run(ctx) }()

	// Play the fetch layer: answer the first request.
	require.Eventually(t, func() bool { return len(f.dispatch.keys()) == 1 }, time.Second, 5*time.Millisecond)
	f.store.Put(ir.Def{Key: keyD1, Name: "D1"})

	v, err := f.c.Await(ctx, State.Settled)
	require.NoError(t, err)
	body, ok := v.Body.(Summary)
	require.True(t, ok)
	assert.Equal(t, "D1", body.Name)

	f.c.Unmount()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("Run did not return after Unmount")
	}
}

func TestContainer_AwaitTimeout(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.c.Mount(splatProps("A", "r1", "d1")))
	f.c.Drain()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	v, err := f.c.Await(ctx, State.Settled)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, "normal", v.Kind, "the latest view is still returned")
}

func TestResolve_AnsweredByStore(t *testing.T) {
	store := defstore.New()
	answer := dispatcherFunc(func(req ir.WantDef) {
		// Answer off the container goroutine, like a real fetch layer.
		go store.Put(ir.Def{Key: req.Key, Name: "Answered"})
	})

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	v, err := Resolve(ctx, store, answer, SummaryComponent, splatProps("A", "r1", "d1"))
	require.NoError(t, err)
	body, ok := v.Body.(Summary)
	require.True(t, ok)
	assert.Equal(t, "Answered", body.Name)
	assert.Equal(t, 0, store.Subscribers(), "Resolve unsubscribes")
}

func TestResolve_Timeout(t *testing.T) {
	store := defstore.New()
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	v, err := Resolve(ctx, store, dispatcherFunc(func(ir.WantDef) {}), SummaryComponent, splatProps("A", "r1", "d1"))
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, "normal", v.Kind)
}

type dispatcherFunc func(ir.WantDef)

func (f dispatcherFunc) Dispatch(req ir.WantDef) { f(req) }
