package graph_test

import (
	"bytes"
	"fmt"
	"time"

	"github.com/Adirelle/docker-graph/pkg/events"
	"github.com/Adirelle/docker-graph/pkg/graph"
	"github.com/Adirelle/docker-graph/pkg/topology"
)

func ExampleWriteGraph() {
	store := topology.NewStore()
	proc := topology.NewProcessor(store, nil)
	proc.Process(events.Updated(events.Container{
		ID:       "app",
		Status:   "running",
		Networks: map[string]events.Network{"bridge": {ID: "net", Name: "bridge"}},
	}, time.Now()))

	var buf bytes.Buffer
	if err := graph.WriteGraph(store.Data(), &buf); err != nil {
		fmt.Println("Error:", err)
		return
	}

	parsed, _ := graph.UnmarshalGraph(buf.Bytes())
	for _, n := range parsed.Nodes {
		fmt.Printf("%s (%s): %s\n", n.ID, n.Kind, n.Tooltip)
	}
	for _, l := range parsed.Links {
		fmt.Printf("%s -> %s\n", l.Source, l.Target)
	}
	// Output:
	// app (container): container: app<br/>status: running
	// net (network): network: bridge
	// app -> net
}

func ExampleUnmarshalLayout() {
	layouts, err := graph.UnmarshalLayout([]byte(`{"nodes": [{"id": "app", "x": 12, "y": 34}]}`))
	if err != nil {
		fmt.Println("Error:", err)
		return
	}
	fmt.Println(layouts["app"].X, layouts["app"].Y)
	// Output:
	// 12 34
}
