package pipeline

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/Adirelle/docker-graph/pkg/cache"
	"github.com/Adirelle/docker-graph/pkg/errors"
	"github.com/Adirelle/docker-graph/pkg/events"
	"github.com/Adirelle/docker-graph/pkg/render/nodelink"
	"github.com/Adirelle/docker-graph/pkg/topology"
)

func container(id string, networks ...string) events.Event {
	ctn := events.Container{ID: id, Name: id, Status: "running", Networks: map[string]events.Network{}}
	for _, n := range networks {
		ctn.Networks[n] = events.Network{ID: n, Name: n}
	}
	return events.Updated(ctn, time.Unix(1700000000, 0))
}

// recorder is a sink remembering the node ids of every flush.
type recorder struct {
	mu      sync.Mutex
	flushes [][]string
	signal  chan struct{}
}

func newRecorder() *recorder { return &recorder{signal: make(chan struct{}, 16)} }

func (r *recorder) Flush(_ context.Context, snap topology.Snapshot) error {
	ids := make([]string, 0, len(snap.Nodes))
	for _, n := range snap.Nodes {
		ids = append(ids, n.ID)
	}
	r.mu.Lock()
	r.flushes = append(r.flushes, ids)
	r.mu.Unlock()
	r.signal <- struct{}{}
	return nil
}

func (r *recorder) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.flushes)
}

func (r *recorder) last() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.flushes) == 0 {
		return nil
	}
	return r.flushes[len(r.flushes)-1]
}

func (r *recorder) wait(t *testing.T) {
	t.Helper()
	select {
	case <-r.signal:
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for a flush")
	}
}

func TestValidateFormats(t *testing.T) {
	tests := []struct {
		formats []string
		wantErr bool
	}{
		{[]string{"json"}, false},
		{[]string{"json", "dot", "svg", "png", "pdf"}, false},
		{[]string{"svg", "gif"}, true},
		{[]string{"SVG"}, true}, // case-sensitive
		{nil, true},
	}

	for _, tt := range tests {
		err := ValidateFormats(tt.formats)
		if (err != nil) != tt.wantErr {
			t.Errorf("ValidateFormats(%v) error = %v, wantErr %v", tt.formats, err, tt.wantErr)
		}
		if err != nil && !errors.Is(err, errors.ErrCodeInvalidFormat) {
			t.Errorf("ValidateFormats(%v) code = %s, want INVALID_FORMAT", tt.formats, errors.GetCode(err))
		}
	}
}

func TestRequireConverter(t *testing.T) {
	missing := func() bool { return false }
	if err := requireConverter([]string{"json", "dot", "svg"}, missing); err != nil {
		t.Errorf("requireConverter(json,dot,svg) = %v, want nil", err)
	}
	err := requireConverter([]string{"svg", "png"}, missing)
	if !errors.Is(err, errors.ErrCodeUnsupported) {
		t.Errorf("requireConverter(png) code = %s, want UNSUPPORTED", errors.GetCode(err))
	}
	if err := requireConverter([]string{"pdf"}, func() bool { return true }); err != nil {
		t.Errorf("requireConverter(pdf) with converter = %v, want nil", err)
	}
}

func TestOptionsDefaults(t *testing.T) {
	var o Options
	if err := o.Validate(); err != nil {
		t.Fatalf("Validate() error = %v", err)
	}
	if o.Debounce != DefaultDebounce {
		t.Errorf("Debounce = %v, want %v", o.Debounce, DefaultDebounce)
	}
	if o.EventBuffer != DefaultEventBuffer {
		t.Errorf("EventBuffer = %d, want %d", o.EventBuffer, DefaultEventBuffer)
	}
	if o.Logger == nil {
		t.Error("Logger should default to a discard logger")
	}

	bad := Options{Hide: []topology.Kind{topology.Kind(200)}}
	if err := bad.Validate(); err == nil {
		t.Error("Validate() should reject unknown kinds")
	}
}

func TestRunnerCoalescesBurst(t *testing.T) {
	rec := newRecorder()
	r, err := NewRunner(Options{Debounce: 30 * time.Millisecond}, rec)
	if err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go r.Run(ctx)

	for i := 0; i < 5; i++ {
		if err := r.Submit(ctx, container("c1", "n1")); err != nil {
			t.Fatalf("Submit: %v", err)
		}
	}
	rec.wait(t)
	time.Sleep(80 * time.Millisecond)

	if got := rec.count(); got != 1 {
		t.Errorf("flushes = %d, want 1", got)
	}
	if got := strings.Join(rec.last(), ","); got != "c1,n1" {
		t.Errorf("nodes = %s, want c1,n1", got)
	}
}

func TestRunnerIgnoresNoops(t *testing.T) {
	rec := newRecorder()
	r, _ := NewRunner(Options{Debounce: 20 * time.Millisecond}, rec)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go r.Run(ctx)

	_ = r.Submit(ctx, container("c1"))
	rec.wait(t)

	// Same record again, and a non-container event.
	_ = r.Submit(ctx, container("c1"))
	_ = r.Submit(ctx, events.Event{TargetID: "n1", TargetType: "network", Type: events.TypeUpdated})
	time.Sleep(60 * time.Millisecond)

	if got := rec.count(); got != 1 {
		t.Errorf("flushes = %d, want 1", got)
	}
}

func TestRunnerCloseInputFlushes(t *testing.T) {
	rec := newRecorder()
	r, _ := NewRunner(Options{Debounce: time.Hour}, rec)

	ctx := context.Background()
	errc := make(chan error, 1)
	go func() { errc <- r.Run(ctx) }()

	_ = r.Submit(ctx, container("c1"))
	_ = r.Submit(ctx, container("c2"))
	_ = r.Submit(ctx, events.Removed("c1", time.Unix(1700000001, 0)))
	r.CloseInput()

	select {
	case err := <-errc:
		if err != nil {
			t.Fatalf("Run() = %v, want nil", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after CloseInput")
	}

	if got := rec.count(); got != 1 {
		t.Fatalf("flushes = %d, want 1", got)
	}
	if got := strings.Join(rec.last(), ","); got != "c2" {
		t.Errorf("nodes = %s, want c2", got)
	}
	if err := r.Submit(ctx, container("c3")); err != ErrInputClosed {
		t.Errorf("Submit after close = %v, want ErrInputClosed", err)
	}
}

func TestRunnerContextCancel(t *testing.T) {
	r, _ := NewRunner(Options{})
	ctx, cancel := context.WithCancel(context.Background())
	errc := make(chan error, 1)
	go func() { errc <- r.Run(ctx) }()
	cancel()

	if err := <-errc; err != context.Canceled {
		t.Errorf("Run() = %v, want context.Canceled", err)
	}
	<-r.Done()
	if err := r.UpdateLayout(context.Background(), nil); err != ErrStopped {
		t.Errorf("UpdateLayout after stop = %v, want ErrStopped", err)
	}
}

func TestRunnerLayoutTriggersFlush(t *testing.T) {
	var (
		mu  sync.Mutex
		got topology.Layout
	)
	rec := newRecorder()
	capture := SinkFunc(func(_ context.Context, snap topology.Snapshot) error {
		mu.Lock()
		defer mu.Unlock()
		for _, n := range snap.Nodes {
			if n.ID == "c1" {
				got = n.Layout
			}
		}
		return nil
	})
	r, _ := NewRunner(Options{Debounce: 20 * time.Millisecond}, capture, rec)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go r.Run(ctx)

	_ = r.Submit(ctx, container("c1"))
	rec.wait(t)

	err := r.UpdateLayout(ctx, map[string]topology.Layout{
		"c1":      {X: 10, Y: 20},
		"missing": {X: 1},
	})
	if err != nil {
		t.Fatalf("UpdateLayout: %v", err)
	}
	rec.wait(t)

	mu.Lock()
	defer mu.Unlock()
	if got.X != 10 || got.Y != 20 {
		t.Errorf("layout = %+v, want X=10 Y=20", got)
	}
}

func TestRendererFormats(t *testing.T) {
	store := topology.NewStore()
	p := topology.NewProcessor(store, nil)
	p.Process(container("api", "backend"))
	snap := store.Data()

	r := NewRenderer(nil, nodelink.Options{}, nil)
	artifacts, err := r.Render(context.Background(), snap, []string{FormatJSON, FormatDOT})
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	if !strings.Contains(string(artifacts[FormatDOT]), `"api" -> "backend";`) {
		t.Errorf("DOT missing link:\n%s", artifacts[FormatDOT])
	}
	if !strings.Contains(string(artifacts[FormatJSON]), `"nodes"`) {
		t.Errorf("JSON missing nodes: %s", artifacts[FormatJSON])
	}

	if _, err := r.Render(context.Background(), snap, []string{"gif"}); err == nil {
		t.Error("Render(gif) should fail")
	}
}

func TestRendererUsesCache(t *testing.T) {
	ctx := context.Background()
	store := topology.NewStore()
	topology.NewProcessor(store, nil).Process(container("api"))
	snap := store.Data()

	c, err := cache.NewFileCache(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	opts := nodelink.Options{}
	key := cache.ArtifactKey(cache.Hash([]byte(nodelink.ToDOT(snap, opts))), FormatSVG)
	if err := c.Set(ctx, key, []byte("<svg>cached</svg>"), 0); err != nil {
		t.Fatal(err)
	}

	r := NewRenderer(c, opts, nil)
	artifacts, err := r.Render(ctx, snap, []string{FormatSVG})
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	if got := string(artifacts[FormatSVG]); got != "<svg>cached</svg>" {
		t.Errorf("svg = %q, want the cached artifact", got)
	}
}

func TestRendererFillsCache(t *testing.T) {
	ctx := context.Background()
	store := topology.NewStore()
	topology.NewProcessor(store, nil).Process(container("api", "backend"))
	snap := store.Data()

	c, _ := cache.NewFileCache(t.TempDir())
	r := NewRenderer(c, nodelink.Options{}, nil)
	artifacts, err := r.Render(ctx, snap, []string{FormatSVG})
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	if !strings.Contains(string(artifacts[FormatSVG]), "<svg") {
		t.Fatalf("not an SVG: %.80s", artifacts[FormatSVG])
	}

	key := cache.ArtifactKey(cache.Hash([]byte(nodelink.ToDOT(snap, r.DOT))), FormatSVG)
	if _, hit, _ := c.Get(ctx, key); !hit {
		t.Error("rendered SVG should be cached")
	}
}

func TestFileSink(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "out")
	store := topology.NewStore()
	topology.NewProcessor(store, nil).Process(container("api", "backend"))

	sink := NewFileSink(dir, NewRenderer(nil, nodelink.Options{}, nil), []string{FormatJSON, FormatDOT}, nil)
	if err := sink.Flush(context.Background(), store.Data()); err != nil {
		t.Fatalf("Flush: %v", err)
	}

	for _, name := range []string{"graph.json", "graph.dot"} {
		data, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			t.Errorf("read %s: %v", name, err)
			continue
		}
		if len(data) == 0 {
			t.Errorf("%s is empty", name)
		}
	}
	if _, err := os.Stat(filepath.Join(dir, "graph.svg")); !os.IsNotExist(err) {
		t.Error("graph.svg should not be written")
	}
}
