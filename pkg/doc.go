// Package pkg holds the libraries behind docker-graph, a live topology
// viewer for container hosts.
//
// # Overview
//
// Containers, networks, volumes, bind mounts, images, published ports and
// host IPs are kept as a typed graph that is updated incrementally from a
// stream of container change events. The packages are:
//
//   - [events]: the event and container record wire types
//   - [topology]: graph store, relationship reconciler and event processor
//   - [pipeline]: the dispatch loop feeding the store and flushing sinks
//   - [stream]: Server-Sent Events client and broadcast hub
//   - [source/docker]: events produced from a Docker Engine
//   - [render/nodelink]: Graphviz DOT and SVG rendering
//   - [graph]: JSON snapshot serialization
//   - [cache]: render artifact cache
//   - [observability]: metrics hooks
//
// # Data flow
//
//	Docker Engine ── source/docker ──┐
//	                                 ├─→ pipeline.Runner ─→ topology.Store
//	SSE endpoint ──── stream ────────┘          │
//	                                            ↓ (debounced flush)
//	                              sinks: files, HTTP server, dashboard
package pkg
