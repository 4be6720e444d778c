package harness

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/roach88/withdef/internal/backend"
	"github.com/roach88/withdef/internal/defdb"
	"github.com/roach88/withdef/internal/defstore"
	"github.com/roach88/withdef/internal/dispatch"
	"github.com/roach88/withdef/internal/ir"
	"github.com/roach88/withdef/internal/testutil"
	"github.com/roach88/withdef/internal/withdef"
)

// Harness is the scenario execution engine. One Harness runs one scenario.
type Harness struct {
	store      *defstore.Store
	index      *defdb.DB
	dispatcher *dispatch.Dispatcher
	container  *withdef.Container
	ids        *testutil.SequentialIDs
	seq        *testutil.Sequence
	logger     *slog.Logger

	result    *Result
	mounted   bool
	lastFetch int64
}

// Run executes a scenario and returns the result.
//
// Each scenario runs against a fresh in-memory index and a fresh store.
// Execution is single-threaded: the harness drains the container and the
// dispatcher itself instead of running their loops.
func Run(scenario *Scenario) (*Result, error) {
	ctx := context.Background()

	index, err := defdb.Open(":memory:")
	if err != nil {
		return nil, fmt.Errorf("failed to create in-memory index: %w", err)
	}
	defer index.Close()

	if len(scenario.Index) > 0 {
		defs := make([]ir.Def, len(scenario.Index))
		for i, e := range scenario.Index {
			defs[i] = e.Def()
		}
		if err := index.WriteDefs(ctx, defs); err != nil {
			return nil, fmt.Errorf("failed to seed index: %w", err)
		}
	}

	h := &Harness{
		store:  defstore.New(),
		index:  index,
		ids:    testutil.NewSequentialIDs("req"),
		seq:    testutil.NewSequence(),
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
		result: NewResult(),
	}
	h.dispatcher = dispatch.New(h.ids)
	h.dispatcher.Register(backend.NewDefBackend(index, h.store))
	defer h.dispatcher.Stop()

	h.container = withdef.New(h.store, tracingDispatcher{h}, withdef.SummaryComponent,
		withdef.WithStatusReporter(withdef.StatusReporterFunc(h.recordReport)),
		withdef.WithRenderHook(h.recordRender),
	)
	defer h.container.Unmount()

	for i, step := range scenario.Steps {
		if err := h.executeStep(ctx, step); err != nil {
			return nil, fmt.Errorf("step %d (%s): %w", i, step.Kind(), err)
		}
		h.logger.Info("step completed",
			"step", i,
			"kind", step.Kind(),
			"events", len(h.result.Trace),
		)
	}

	h.result.View = h.container.View()

	for _, msg := range EvaluateAssertions(h.result, scenario.Assertions) {
		h.result.AddError(msg)
	}

	return h.result, nil
}

func (h *Harness) executeStep(ctx context.Context, step Step) error {
	switch step.Kind() {
	case "props":
		props := step.Props.Props()
		if !h.mounted {
			if err := h.container.Mount(props); err != nil {
				return err
			}
			h.mounted = true
		} else if !h.container.SetProps(props) {
			h.logger.Info("props after unmount ignored")
		}

	case "put":
		h.store.Put(step.Put.Def())

	case "highlight":
		h.store.SetHighlighted(step.Highlight)

	case "clear_highlight":
		h.store.ClearHighlighted()

	case "fetch":
		return h.settle(ctx)

	case "unmount":
		h.container.Unmount()

	default:
		return fmt.Errorf("invalid step")
	}

	h.container.Drain()
	return nil
}

// settle delivers queued requests and processes the resulting store
// changes until neither side has work left.
func (h *Harness) settle(ctx context.Context) error {
	for {
		delivered := h.dispatcher.Drain(ctx)
		if err := h.collectFetches(ctx); err != nil {
			return err
		}
		processed := h.container.Drain()
		if delivered == 0 && processed == 0 {
			return nil
		}
	}
}

// collectFetches appends fetch-log rows written since the last call.
func (h *Harness) collectFetches(ctx context.Context) error {
	fetches, err := h.index.ReadFetches(ctx, 0)
	if err != nil {
		return fmt.Errorf("failed to read fetch log: %w", err)
	}
	for _, f := range fetches {
		if f.Seq <= h.lastFetch {
			continue
		}
		h.lastFetch = f.Seq
		h.record(TraceEvent{
			Type:      EventFetch,
			Key:       f.Key,
			RequestID: f.RequestID,
			Outcome:   f.Outcome,
		})
	}
	return nil
}

func (h *Harness) record(ev TraceEvent) {
	ev.Seq = h.seq.Next()
	h.result.Trace = append(h.result.Trace, ev)
}

func (h *Harness) recordReport(err *ir.DefError) {
	if err.IsZero() {
		return
	}
	h.record(TraceEvent{
		Type:    EventReport,
		Status:  err.Status,
		Message: err.Message,
	})
}

func (h *Harness) recordRender(view withdef.View, s withdef.State) {
	ev := TraceEvent{Type: EventRender, View: view.Kind}
	if view.Unavailable() {
		ev.Title = view.Title
		ev.Subtitle = view.Subtitle
		ev.Code = view.Code
	} else {
		ev.Loading = s.Record == nil
	}
	h.record(ev)
}

// tracingDispatcher records each request as a want event before handing it
// to the real dispatcher. IDs are stamped here so the trace carries them.
type tracingDispatcher struct {
	h *Harness
}

func (d tracingDispatcher) Dispatch(req ir.WantDef) {
	if req.ID == "" {
		req.ID = d.h.ids.Generate()
	}
	d.h.record(TraceEvent{
		Type:      EventWant,
		Key:       req.Key,
		RequestID: req.ID,
	})
	d.h.dispatcher.Dispatch(req)
}
