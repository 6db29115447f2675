package pipeline

import (
	"context"
	stderrors "errors"
	"sync"
	"time"

	"github.com/charmbracelet/log"

	"github.com/Adirelle/docker-graph/pkg/debounce"
	"github.com/Adirelle/docker-graph/pkg/errors"
	"github.com/Adirelle/docker-graph/pkg/events"
	"github.com/Adirelle/docker-graph/pkg/observability"
	"github.com/Adirelle/docker-graph/pkg/topology"
)

var (
	// ErrInputClosed is returned by Submit after CloseInput.
	ErrInputClosed = errors.New(errors.ErrCodeUnavailable, "pipeline input closed")

	// ErrStopped is returned when the dispatch loop has exited.
	ErrStopped = errors.New(errors.ErrCodeUnavailable, "pipeline stopped")
)

// Sink receives a snapshot on every flush.
type Sink interface {
	Flush(ctx context.Context, snap topology.Snapshot) error
}

// SinkFunc adapts a function to [Sink].
type SinkFunc func(ctx context.Context, snap topology.Snapshot) error

// Flush calls f.
func (f SinkFunc) Flush(ctx context.Context, snap topology.Snapshot) error { return f(ctx, snap) }

// Runner is the single dispatch loop owning a graph store.
type Runner struct {
	store     *topology.Store
	processor *topology.Processor
	debouncer *debounce.Debouncer
	sinks     []Sink
	logger    *log.Logger

	events  chan events.Event
	layouts chan map[string]topology.Layout
	flush   chan struct{}

	closeOnce sync.Once
	closed    chan struct{}
	done      chan struct{}
}

// NewRunner validates opts and builds a runner flushing into sinks.
func NewRunner(opts Options, sinks ...Sink) (*Runner, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}

	store := topology.NewStore(
		topology.WithLogger(opts.Logger),
		topology.WithHiddenKinds(opts.Hide...),
	)
	r := &Runner{
		store:     store,
		processor: topology.NewProcessor(store, opts.Logger),
		sinks:     sinks,
		logger:    opts.Logger,
		events:    make(chan events.Event, opts.EventBuffer),
		layouts:   make(chan map[string]topology.Layout),
		flush:     make(chan struct{}, 1),
		closed:    make(chan struct{}),
		done:      make(chan struct{}),
	}
	r.debouncer = debounce.New(opts.Debounce, r.signalFlush)
	return r, nil
}

// AddSink appends a sink. It must be called before Run.
func (r *Runner) AddSink(s Sink) { r.sinks = append(r.sinks, s) }

func (r *Runner) signalFlush() {
	select {
	case r.flush <- struct{}{}:
	default:
	}
}

// Submit posts an event to the dispatch loop. It blocks while the event
// buffer is full.
func (r *Runner) Submit(ctx context.Context, e events.Event) error {
	select {
	case <-r.closed:
		return ErrInputClosed
	default:
	}
	select {
	case r.events <- e:
		return nil
	case <-r.closed:
		return ErrInputClosed
	case <-r.done:
		return ErrStopped
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Handler returns a callback submitting events, for use with event
// sources. Events submitted after ctx is done are dropped.
func (r *Runner) Handler(ctx context.Context) func(events.Event) {
	return func(e events.Event) {
		if err := r.Submit(ctx, e); err != nil && ctx.Err() == nil {
			r.logger.Warn("dropped event", "id", e.TargetID, "error", err)
		}
	}
}

// CloseInput signals that no more events will be submitted. Run drains
// the buffered events, flushes a last time and returns nil.
func (r *Runner) CloseInput() {
	r.closeOnce.Do(func() { close(r.closed) })
}

// UpdateLayout posts coordinates computed by an external layout engine.
// Unknown ids are ignored. The sinks are flushed after the usual quiet
// period so the new positions get published.
func (r *Runner) UpdateLayout(ctx context.Context, layout map[string]topology.Layout) error {
	select {
	case r.layouts <- layout:
		return nil
	case <-r.done:
		return ErrStopped
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Done is closed when Run returns.
func (r *Runner) Done() <-chan struct{} { return r.done }

// Run executes the dispatch loop until ctx is done or the input is closed.
func (r *Runner) Run(ctx context.Context) error {
	defer close(r.done)
	defer r.debouncer.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case e := <-r.events:
			r.process(ctx, e)

		case layout := <-r.layouts:
			r.applyLayout(layout)

		case <-r.flush:
			r.flushSinks(ctx)

		case <-r.closed:
		drain:
			for {
				select {
				case e := <-r.events:
					r.process(ctx, e)
				default:
					break drain
				}
			}
			r.debouncer.Stop()
			r.flushSinks(ctx)
			return nil
		}
	}
}

func (r *Runner) process(ctx context.Context, e events.Event) {
	changed := r.processor.Process(e)
	observability.Pipeline().OnEvent(ctx, e.Type, changed)
	if changed {
		r.debouncer.Trigger()
	}
}

func (r *Runner) applyLayout(layout map[string]topology.Layout) {
	applied := 0
	for id, l := range layout {
		if r.store.SetLayout(id, l) {
			applied++
		}
	}
	r.logger.Debug("applied layout", "nodes", applied, "ignored", len(layout)-applied)
	if applied > 0 {
		r.debouncer.Trigger()
	}
}

func (r *Runner) flushSinks(ctx context.Context) {
	start := time.Now()
	snap := r.store.Data()

	var errs []error
	for _, s := range r.sinks {
		if err := s.Flush(ctx, snap); err != nil {
			errs = append(errs, err)
		}
	}
	err := stderrors.Join(errs...)
	elapsed := time.Since(start)

	observability.Pipeline().OnFlush(ctx, len(snap.Nodes), len(snap.Links), elapsed, err)
	if err != nil {
		r.logger.Error("flush failed", "error", err)
		return
	}
	r.logger.Debug("flushed graph", "nodes", len(snap.Nodes), "links", len(snap.Links), "duration", elapsed)
}
