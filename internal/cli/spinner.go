package cli

import (
	"context"
	"fmt"
	"io"
	"sync"
	"sync/atomic"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
)

// replaySpinner animates a status line while a capture is replayed. The
// feeding goroutine reports its counters with Observe; the line shows them
// on the next frame.
type replaySpinner struct {
	w       io.Writer
	message string
	frames  spinner.Spinner

	events  atomic.Int64
	skipped atomic.Int64

	parent   context.Context
	ctx      context.Context
	cancel   context.CancelFunc
	started  atomic.Bool
	stopOnce sync.Once
	stopped  chan struct{}

	mu    sync.Mutex
	width int
}

func newReplaySpinner(parent context.Context, w io.Writer, message string) *replaySpinner {
	ctx, cancel := context.WithCancel(parent)
	return &replaySpinner{
		w:       w,
		message: message,
		frames:  spinner.MiniDot,
		parent:  parent,
		ctx:     ctx,
		cancel:  cancel,
		stopped: make(chan struct{}),
	}
}

// Observe records the number of events read so far.
func (s *replaySpinner) Observe(events, skipped int) {
	s.events.Store(int64(events))
	s.skipped.Store(int64(skipped))
}

// line renders one frame.
func (s *replaySpinner) line(frame int) string {
	text := fmt.Sprintf("%s (%d events", s.message, s.events.Load())
	if n := s.skipped.Load(); n > 0 {
		text += fmt.Sprintf(", %d skipped", n)
	}
	text += ")"
	f := s.frames.Frames[frame%len(s.frames.Frames)]
	return styleIconSpinner.Render(f) + " " + StyleDim.Render(text)
}

// Start draws frames until Stop or until the context ends.
func (s *replaySpinner) Start() {
	s.started.Store(true)
	go func() {
		defer close(s.stopped)
		ticker := time.NewTicker(s.frames.FPS)
		defer ticker.Stop()

		for i := 0; ; i++ {
			select {
			case <-s.ctx.Done():
				s.clear()
				return
			case <-ticker.C:
				s.draw(s.line(i))
			}
		}
	}()
}

func (s *replaySpinner) draw(line string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fmt.Fprintf(s.w, "\r%s", line)
	s.width = max(s.width, len(line))
}

func (s *replaySpinner) clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.width > 0 {
		fmt.Fprintf(s.w, "\r%*s\r", s.width, "")
		s.width = 0
	}
}

// Stop ends the animation and clears the line. It may be called more than
// once.
func (s *replaySpinner) Stop() {
	s.stopOnce.Do(func() {
		s.cancel()
		if s.started.Load() {
			<-s.stopped
		}
	})
}

// StopWithSuccess stops the animation and prints the outcome.
func (s *replaySpinner) StopWithSuccess(message string) {
	s.Stop()
	printSuccess("%s", message)
}

// StopWithError stops the animation and prints the failure.
func (s *replaySpinner) StopWithError(message string) {
	s.Stop()
	printError("%s", message)
}

// Cancelled reports whether the parent context ended the animation.
func (s *replaySpinner) Cancelled() bool {
	return s.parent.Err() != nil
}
