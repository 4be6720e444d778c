package withdef

import (
	"sync"
	"testing"

	"github.com/roach88/withdef/internal/defstore"
	"github.com/roach88/withdef/internal/ir"
)

// recordingDispatcher captures dispatched requests.
type recordingDispatcher struct {
	mu   sync.Mutex
	reqs []ir.WantDef
}

func (d *recordingDispatcher) Dispatch(req ir.WantDef) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.reqs = append(d.reqs, req)
}

func (d *recordingDispatcher) keys() []ir.DefKey {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]ir.DefKey, len(d.reqs))
	for i, r := range d.reqs {
		out[i] = r.Key
	}
	return out
}

func (d *recordingDispatcher) reset() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.reqs = nil
}

type fixture struct {
	store    *defstore.Store
	dispatch *recordingDispatcher
	status   *StatusRecorder
	c        *Container
}

func newFixture(t *testing.T, opts ...Option) *fixture {
	t.Helper()
	f := &fixture{
		store:    defstore.New(),
		dispatch: &recordingDispatcher{},
		status:   &StatusRecorder{},
	}
	opts = append([]Option{WithStatusReporter(f.status)}, opts...)
	f.c = New(f.store, f.dispatch, SummaryComponent, opts...)
	t.Cleanup(f.c.Unmount)
	return f
}

func splatProps(repo, rev, def string) Props {
	return Props{
		Repo:   repo,
		Rev:    rev,
		Params: &Params{Splat: []string{repo + "@" + rev, def}},
	}
}

var (
	keyD1 = ir.DefKey{Repo: "A", Rev: "r1", Def: "d1"}
	keyD2 = ir.DefKey{Repo: "A", Rev: "r1", Def: "d2"}
)
