package docker

import (
	"context"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/docker/docker/api/types/container"
	dockerevents "github.com/docker/docker/api/types/events"
	"github.com/docker/docker/api/types/filters"
	"github.com/docker/docker/errdefs"

	"github.com/Adirelle/docker-graph/pkg/debounce"
	"github.com/Adirelle/docker-graph/pkg/errors"
	"github.com/Adirelle/docker-graph/pkg/events"
	"github.com/Adirelle/docker-graph/pkg/retry"
)

const (
	// DefaultInspectDelay debounces inspections of a single container.
	DefaultInspectDelay = 200 * time.Millisecond

	// DefaultInspectTimeout bounds one inspection call.
	DefaultInspectTimeout = 5 * time.Second

	// resubscribeDelay is the pause before following the daemon events
	// again after the stream failed.
	resubscribeDelay = time.Second
)

// Source turns Docker daemon state and events into domain events.
type Source struct {
	client APIClient
	logger *log.Logger

	// InspectDelay is the per-container debounce delay.
	InspectDelay time.Duration

	// InspectTimeout bounds each inspection.
	InspectTimeout time.Duration

	mu       sync.Mutex
	trackers map[string]*tracker
	out      chan events.Event
	ctx      context.Context
}

// tracker debounces the inspections of one container.
type tracker struct {
	debouncer *debounce.Debouncer
	when      time.Time
}

// New returns a Source reading from cli.
func New(cli APIClient, logger *log.Logger) *Source {
	if logger == nil {
		logger = log.Default()
	}
	return &Source{
		client:         cli,
		logger:         logger,
		InspectDelay:   DefaultInspectDelay,
		InspectTimeout: DefaultInspectTimeout,
		trackers:       make(map[string]*tracker),
	}
}

// Run emits the current containers then follows the daemon events until ctx
// is done. handle is only called from the calling goroutine.
func (s *Source) Run(ctx context.Context, handle func(events.Event)) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	s.mu.Lock()
	s.ctx = ctx
	s.out = make(chan events.Event, 64)
	s.mu.Unlock()
	defer s.stopAll()

	since := time.Now()
	for {
		if err := s.prime(ctx, handle); err != nil {
			return err
		}
		last, err := s.follow(ctx, since, handle)
		if ctx.Err() != nil {
			return ctx.Err()
		}
		s.logger.Warn("docker event stream failed", "err", err)
		since = last
		if err := retry.Sleep(ctx, resubscribeDelay); err != nil {
			return err
		}
	}
}

// prime emits an updated event for every existing container.
func (s *Source) prime(ctx context.Context, handle func(events.Event)) error {
	var list []container.Summary
	err := retry.WithBackoff(ctx, func() error {
		var err error
		list, err = s.client.ContainerList(ctx, container.ListOptions{All: true})
		if err != nil && ctx.Err() == nil {
			return retry.Retryable(err)
		}
		return err
	})
	if err != nil {
		return errors.Wrap(errors.ErrCodeUnavailable, err, "list containers")
	}

	now := time.Now()
	for _, summary := range list {
		if e, ok := s.inspect(ctx, summary.ID, now); ok {
			handle(e)
		}
	}
	s.logger.Info("listed containers", "count", len(list))
	return nil
}

// follow consumes the daemon event stream. It returns the time of the last
// message seen, so the next subscription can resume from there.
func (s *Source) follow(ctx context.Context, since time.Time, handle func(events.Event)) (time.Time, error) {
	msgs, errs := s.client.Events(ctx, dockerevents.ListOptions{
		Since: strconv.FormatInt(since.Unix(), 10),
		Filters: filters.NewArgs(
			filters.Arg("type", string(dockerevents.ContainerEventType)),
			filters.Arg("type", string(dockerevents.NetworkEventType)),
		),
	})

	last := since
	for {
		select {
		case <-ctx.Done():
			return last, ctx.Err()
		case err := <-errs:
			return last, err
		case msg, ok := <-msgs:
			if !ok {
				return last, errors.New(errors.ErrCodeUnavailable, "docker event stream closed")
			}
			if msg.TimeNano > 0 {
				last = time.Unix(0, msg.TimeNano)
			}
			if e, ok := s.handleMessage(msg); ok {
				handle(e)
			}
		case e := <-s.out:
			handle(e)
		}
	}
}

// action classifies daemon messages.
type action int

const (
	actionIgnore action = iota
	actionInspect
	actionRemove
)

// classify decides what a daemon message means for the graph and which
// container it concerns.
func classify(msg dockerevents.Message) (action, string) {
	switch msg.Type {
	case dockerevents.ContainerEventType:
		switch {
		case msg.Action == dockerevents.ActionDestroy:
			return actionRemove, msg.Actor.ID
		case msg.Action == dockerevents.ActionAttach,
			msg.Action == dockerevents.ActionDetach,
			strings.HasPrefix(string(msg.Action), "exec_"):
			return actionIgnore, ""
		default:
			return actionInspect, msg.Actor.ID
		}
	case dockerevents.NetworkEventType:
		if msg.Action == dockerevents.ActionConnect || msg.Action == dockerevents.ActionDisconnect {
			return actionInspect, msg.Actor.Attributes["container"]
		}
	}
	return actionIgnore, ""
}

// handleMessage applies msg. Removals are returned directly; inspections are
// scheduled and delivered later through s.out.
func (s *Source) handleMessage(msg dockerevents.Message) (events.Event, bool) {
	act, id := classify(msg)
	if id == "" {
		act = actionIgnore
	}
	when := time.Unix(0, msg.TimeNano)

	switch act {
	case actionRemove:
		s.untrack(id)
		s.logger.Debug("container destroyed", "id", id)
		return events.Removed(id, when), true
	case actionInspect:
		s.schedule(id, when)
		s.logger.Debug("container changed", "id", id, "type", msg.Type, "action", msg.Action)
	default:
		s.logger.Debug("ignored docker event", "type", msg.Type, "action", msg.Action)
	}
	return events.Event{}, false
}

// schedule (re)starts the inspect debouncer of a container.
func (s *Source) schedule(id string, when time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.trackers[id]
	if !ok {
		t = &tracker{}
		t.debouncer = debounce.New(s.InspectDelay, func() { s.inspectLater(id) })
		s.trackers[id] = t
	}
	t.when = when
	t.debouncer.Trigger()
}

func (s *Source) untrack(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if t, ok := s.trackers[id]; ok {
		t.debouncer.Stop()
		delete(s.trackers, id)
	}
}

func (s *Source) stopAll() {
	s.mu.Lock()
	defer s.mu.Unlock()

	for id, t := range s.trackers {
		t.debouncer.Stop()
		delete(s.trackers, id)
	}
}

// inspectLater runs on a debouncer goroutine and hands the result to the
// Run goroutine.
func (s *Source) inspectLater(id string) {
	s.mu.Lock()
	ctx, out := s.ctx, s.out
	var when time.Time
	if t, ok := s.trackers[id]; ok {
		when = t.when
	}
	s.mu.Unlock()

	if ctx == nil || ctx.Err() != nil {
		return
	}
	if e, ok := s.inspect(ctx, id, when); ok {
		select {
		case out <- e:
		case <-ctx.Done():
		}
	}
}

// inspect fetches one container and converts it.
func (s *Source) inspect(ctx context.Context, id string, when time.Time) (events.Event, bool) {
	ictx, cancel := context.WithTimeout(ctx, s.InspectTimeout)
	defer cancel()

	info, err := s.client.ContainerInspect(ictx, id)
	if err != nil {
		if errdefs.IsNotFound(err) {
			s.logger.Debug("container vanished before inspection", "id", id)
		} else if ctx.Err() == nil {
			s.logger.Warn("cannot inspect container", "id", id, "err", err)
		}
		return events.Event{}, false
	}

	if when.IsZero() {
		when = time.Now()
	}
	if isRemoving(info) {
		return events.Removed(id, when), true
	}
	return events.Updated(Convert(info, s.logger), when), true
}
