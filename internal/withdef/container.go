package withdef

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/roach88/withdef/internal/queue"
)

// ErrUnmounted is returned by Await once the container is unmounted.
var ErrUnmounted = errors.New("withdef: container unmounted")

// ErrMounted is returned by Mount on a container that was already mounted.
var ErrMounted = errors.New("withdef: container already mounted")

type eventKind int

const (
	eventMount eventKind = iota + 1
	eventProps
	eventStoreChanged
)

func (k eventKind) String() string {
	switch k {
	case eventMount:
		return "mount"
	case eventProps:
		return "props"
	case eventStoreChanged:
		return "store_changed"
	default:
		return "unknown"
	}
}

type event struct {
	kind  eventKind
	props Props
}

// Container wraps a Component with a def from the shared store.
//
// Thread-safety model:
//   - Mount(): call once, before Run or Drain
//   - SetProps(), Unmount(), View(), State(), Await(): safe from any goroutine
//   - Run() or Drain(): exactly one goroutine, never both
//
// INVARIANTS:
//   - one reconciliation and one reaction per processed event
//   - the reaction always sees the (prev, next) pair of its reconciliation
//   - no event is processed after Unmount
type Container struct {
	store     Store
	component Component
	reactor   Reactor
	formatter StatusFormatter
	onRender  func(View, State)

	queue       *queue.Queue[event]
	unsubscribe func()
	mounted     bool

	// Owned by the processing goroutine.
	props Props
	state State

	// Published snapshot for readers on other goroutines.
	mu       sync.Mutex
	view     View
	snapshot State
	renders  int
	changed  chan struct{}
	done     chan struct{}
	doneOnce sync.Once
}

// Option configures a Container.
type Option func(*Container)

// WithParser sets the parser for highlighted def specs.
// Default: DefaultParser.
func WithParser(p KeyParser) Option {
	return func(c *Container) {
		c.reactor.Parser = p
	}
}

// WithStatusReporter sets the collaborator that receives record errors.
// Default: LogReporter.
func WithStatusReporter(r StatusReporter) Option {
	return func(c *Container) {
		c.reactor.Status = r
	}
}

// WithStatusFormatter sets the error-to-code mapping of the unavailable
// view. Default: HTTPStatusFormatter.
func WithStatusFormatter(f StatusFormatter) Option {
	return func(c *Container) {
		c.formatter = f
	}
}

// WithRenderHook calls fn with every rendered View and the State it was
// rendered from, on the processing goroutine.
func WithRenderHook(fn func(View, State)) Option {
	return func(c *Container) {
		c.onRender = fn
	}
}

// New creates an unmounted Container. The store handle is held for the
// container's lifetime; Mount subscribes to it and Unmount unsubscribes.
func New(store Store, dispatcher Dispatcher, component Component, opts ...Option) *Container {
	c := &Container{
		store:     store,
		component: component,
		reactor: Reactor{
			Dispatcher: dispatcher,
			Status:     LogReporter{},
			Parser:     DefaultParser,
		},
		formatter: HTTPStatusFormatter{},
		queue:     queue.New[event](),
		changed:   make(chan struct{}),
		done:      make(chan struct{}),
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// Mount sets the initial props and subscribes to the store. The first
// cycle runs when the queue is next processed.
func (c *Container) Mount(props Props) error {
	if c.mounted {
		return ErrMounted
	}
	c.mounted = true
	c.props = props

	// Queue the mount event before subscribing so it is processed first.
	c.queue.Push(event{kind: eventMount})
	c.unsubscribe = c.store.Subscribe(func() {
		c.queue.Push(event{kind: eventStoreChanged})
	})

	slog.Debug("container mounted",
		"repo", props.Repo,
		"rev", props.Rev,
		"def", resolveDef(props),
	)
	return nil
}

// SetProps queues a property update. Returns false after Unmount.
func (c *Container) SetProps(props Props) bool {
	return c.queue.Push(event{kind: eventProps, props: props})
}

// Unmount unsubscribes from the store and stops processing. Queued events
// are discarded. Safe to call more than once.
func (c *Container) Unmount() {
	c.doneOnce.Do(func() {
		if c.unsubscribe != nil {
			c.unsubscribe()
		}
		c.queue.Close()
		close(c.done)
		slog.Debug("container unmounted")
	})
}

// Run processes events until ctx is cancelled or Unmount is called.
func (c *Container) Run(ctx context.Context) error {
	for {
		if c.queue.Closed() {
			return nil
		}
		if ev, ok := c.queue.TryPop(); ok {
			c.process(ev)
			continue
		}

		select {
		case <-ctx.Done():
			c.Unmount()
			return ctx.Err()
		case <-c.queue.Wait():
		}
	}
}

// Drain processes every queued event in the caller's goroutine, including
// events queued while draining, and returns how many were processed.
func (c *Container) Drain() int {
	n := 0
	for !c.queue.Closed() {
		ev, ok := c.queue.TryPop()
		if !ok {
			break
		}
		c.process(ev)
		n++
	}
	return n
}

// View returns the most recent render.
func (c *Container) View() View {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.view
}

// State returns the most recent derived state.
func (c *Container) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshot
}

// Renders returns how many render passes have completed.
func (c *Container) Renders() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.renders
}

// Await blocks until a render whose State satisfies ready, then returns
// that View. It returns the latest View with ctx.Err() or ErrUnmounted if
// neither happens first.
func (c *Container) Await(ctx context.Context, ready func(State) bool) (View, error) {
	for {
		c.mu.Lock()
		view, state, rendered, changed := c.view, c.snapshot, c.renders > 0, c.changed
		c.mu.Unlock()

		if rendered && ready(state) {
			return view, nil
		}

		select {
		case <-ctx.Done():
			return view, ctx.Err()
		case <-c.done:
			return view, ErrUnmounted
		case <-changed:
		}
	}
}

// process runs one reconcile/react/render cycle.
// CRITICAL: called only from the processing goroutine.
func (c *Container) process(ev event) {
	if ev.kind == eventProps {
		c.props = ev.props
	}

	prev := c.state
	next := Reconcile(c.store, c.reactor.Parser, c.props)
	c.state = next

	c.reactor.React(prev, next)

	view := Render(Select(next, c.formatter), c.props, next, c.component)

	slog.Debug("container rendered",
		"event", ev.kind.String(),
		"repo", next.Repo,
		"rev", next.Rev,
		"def", next.Def,
		"view", view.Kind,
	)

	c.publish(view, next)
	if c.onRender != nil {
		c.onRender(view, next)
	}
}

func (c *Container) publish(view View, s State) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.view = view
	c.snapshot = s
	c.renders++
	close(c.changed)
	c.changed = make(chan struct{})
}

// Resolve mounts a container for props, runs it until its state settles or
// ctx ends, and returns the last view. The container is unmounted before
// Resolve returns.
func Resolve(ctx context.Context, store Store, dispatcher Dispatcher, component Component, props Props, opts ...Option) (View, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	c := New(store, dispatcher, component, opts...)
	if err := c.Mount(props); err != nil {
		return View{}, err
	}
	defer c.Unmount()

	go c.Run(ctx)

	view, err := c.Await(ctx, State.Settled)
	if errors.Is(err, ErrUnmounted) && ctx.Err() != nil {
		// Run unmounts on cancel; report the cancellation itself.
		err = ctx.Err()
	}
	return view, err
}
