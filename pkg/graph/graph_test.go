package graph

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/Adirelle/docker-graph/pkg/errors"
	"github.com/Adirelle/docker-graph/pkg/events"
	"github.com/Adirelle/docker-graph/pkg/topology"
)

func sampleSnapshot(opts ...topology.Option) topology.Snapshot {
	s := topology.NewStore(opts...)
	p := topology.NewProcessor(s, nil)
	p.Process(events.Updated(events.Container{
		ID:     "c1",
		Name:   "web",
		Status: "exited",
		Image:  "redis",
		Ports:  map[string]events.Port{"6379/tcp": {HostIP: "127.0.0.1", HostPort: 6379}},
	}, time.Now()))
	return s.Data()
}

func TestFromSnapshot(t *testing.T) {
	g := FromSnapshot(sampleSnapshot())

	ids := make([]string, len(g.Nodes))
	for i, n := range g.Nodes {
		ids[i] = n.ID
	}
	want := []string{"IP:127.0.0.1", "c1", "c1:6379/tcp", "image:redis"}
	if strings.Join(ids, ",") != strings.Join(want, ",") {
		t.Errorf("node ids = %v, want %v", ids, want)
	}
	if len(g.Links) != 3 {
		t.Errorf("links = %d, want 3", len(g.Links))
	}

	c := g.Nodes[1]
	if c.Kind != "container" || c.Type != "container" || c.Label != "web" || c.Color != "#999" {
		t.Errorf("container node = %+v", c)
	}
	if c.Icon != topology.KindContainer.Icon() {
		t.Errorf("Icon = %q, want %q", c.Icon, topology.KindContainer.Icon())
	}
	if ip := g.Nodes[0]; ip.Type != "Host IP" || ip.Kind != "host-ip" {
		t.Errorf("host ip node kind/type = %q/%q", ip.Kind, ip.Type)
	}

	counts := g.CountByKind()
	if counts["container"] != 1 || counts["port"] != 1 || counts["image"] != 1 {
		t.Errorf("CountByKind() = %v", counts)
	}
}

func TestGraphVisible(t *testing.T) {
	g := FromSnapshot(sampleSnapshot(topology.WithHiddenKinds(topology.KindPort)))
	v := g.Visible()

	if len(v.Nodes) != 3 {
		t.Errorf("visible nodes = %d, want 3", len(v.Nodes))
	}
	for _, l := range v.Links {
		if strings.Contains(l.Source, "6379") || strings.Contains(l.Target, "6379") {
			t.Errorf("visible link %v touches hidden port", l)
		}
	}
	if len(v.Links) != 1 {
		t.Errorf("visible links = %d, want 1", len(v.Links))
	}
}

func TestMarshalGraph(t *testing.T) {
	data, err := MarshalGraph(sampleSnapshot())
	if err != nil {
		t.Fatalf("MarshalGraph() error: %v", err)
	}
	out := string(data)
	for _, want := range []string{
		`"id": "c1"`,
		`"tooltip": "container: web<br/>status: exited"`,
		`"source": "c1"`,
		`"x": 0`,
	} {
		if !strings.Contains(out, want) {
			t.Errorf("MarshalGraph() output missing %s", want)
		}
	}

	g, err := UnmarshalGraph(data)
	if err != nil {
		t.Fatalf("UnmarshalGraph() error: %v", err)
	}
	if len(g.Nodes) != 4 || g.Nodes[1].Label != "web" {
		t.Errorf("UnmarshalGraph() = %+v", g)
	}
}

func TestWriteGraphFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "graph.json")

	if err := WriteGraphFile(sampleSnapshot(), path); err != nil {
		t.Fatalf("WriteGraphFile() error: %v", err)
	}
	g, err := ReadGraphFile(path)
	if err != nil {
		t.Fatalf("ReadGraphFile() error: %v", err)
	}
	if len(g.Nodes) != 4 {
		t.Errorf("nodes = %d, want 4", len(g.Nodes))
	}

	entries, _ := os.ReadDir(dir)
	if len(entries) != 1 {
		t.Errorf("directory has %d entries, want only graph.json", len(entries))
	}

	if _, err := ReadGraphFile(filepath.Join(dir, "missing.json")); err == nil {
		t.Error("ReadGraphFile(missing) error = nil, want error")
	}
}

func TestUnmarshalLayout(t *testing.T) {
	layouts, err := UnmarshalLayout([]byte(`{"nodes":[{"id":"c1","x":1.5,"y":-2,"fx":1.5},{"id":"n1","vx":0.25}]}`))
	if err != nil {
		t.Fatalf("UnmarshalLayout() error: %v", err)
	}
	c1 := layouts["c1"]
	if c1.X != 1.5 || c1.Y != -2 || c1.FX == nil || *c1.FX != 1.5 || c1.FY != nil {
		t.Errorf("c1 layout = %+v", c1)
	}
	if layouts["n1"].VX != 0.25 {
		t.Errorf("n1 layout = %+v", layouts["n1"])
	}

	tests := []string{`{"nodes":[{"x":1}]}`, `not json`}
	for _, in := range tests {
		if _, err := UnmarshalLayout([]byte(in)); !errors.Is(err, errors.ErrCodeInvalidInput) {
			t.Errorf("UnmarshalLayout(%s) error = %v, want INVALID_INPUT", in, err)
		}
	}
}
