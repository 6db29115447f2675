// Package graph provides the serialization format of container graphs.
//
// This package defines the wire format of [topology.Snapshot] values, used
// for the /api/graph endpoint, the graph.json output of the watch command,
// and layout coordinates posted back by an external layout engine.
//
// # Architecture
//
// The package sits at the serialization boundary between the engine and
// external consumers:
//
//   - [Graph], [Node], [Link]: serialization types (this package)
//   - topology.Snapshot: internal representation, holding node pointers
//
// Use [FromSnapshot] to convert a snapshot; the result is a plain value that
// can be marshalled later or on another goroutine.
//
// # Graph Serialization
//
// Graphs use a node-link JSON format matching what force-directed layout
// libraries expect:
//
//	{
//	  "nodes": [{"id": "c1", "kind": "container", "label": "web", ...}],
//	  "links": [{"source": "c1", "target": "n1"}]
//	}
//
// Common operations:
//
//	data, _ := graph.MarshalGraph(snap)         // Snapshot → []byte
//	graph.WriteGraphFile(snap, "graph.json")    // Snapshot → File
//	parsed, _ := graph.UnmarshalGraph(data)     // []byte → Graph
//
// # Layout Coordinates
//
// Layout engines post nodes back with their coordinates only:
//
//	{"nodes": [{"id": "c1", "x": 10.5, "y": -3, "fx": 10.5}]}
//
// [UnmarshalLayout] decodes such a document into per-node [topology.Layout]
// values ready for [topology.Store.SetLayout].
package graph
