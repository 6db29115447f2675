package nodelink_test

import (
	"fmt"
	"strings"
	"time"

	"github.com/Adirelle/docker-graph/pkg/events"
	"github.com/Adirelle/docker-graph/pkg/render/nodelink"
	"github.com/Adirelle/docker-graph/pkg/topology"
)

func ExampleToDOT() {
	store := topology.NewStore()
	proc := topology.NewProcessor(store, nil)
	proc.Process(events.Updated(events.Container{
		ID:     "api",
		Status: "running",
		Mounts: []events.Mount{{Name: "data", Type: events.MountVolume, Destination: "/data"}},
	}, time.Now()))

	dot := nodelink.ToDOT(store.Data(), nodelink.Options{})

	for _, line := range strings.Split(dot, "\n") {
		if strings.Contains(line, "->") {
			fmt.Println(strings.TrimSpace(line))
		}
	}
	// Output:
	// "api" -> "data";
}
