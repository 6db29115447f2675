// Package topology maintains the typed graph of a container host.
//
// The graph is fed by domain events (see package events) and kept minimal:
// nodes keep their identity across updates, links are diffed per
// relationship, and a dirty flag tells the caller when a redraw is due.
//
// # Model
//
// A [Node] has a [Kind] (container, network, image, volume, bind mount, port
// or host IP), display fields derived from its latest [Payload], and layout
// coordinates that belong to the external layout engine. A [Link] is an
// ordered (source, target) pair; it is visible when both endpoints are.
//
// Payloads form a closed set of types, one per kind. Projection and
// reconciliation dispatch on the payload type with a type switch.
//
// # Store
//
// [Store] owns the nodes and links. It is not safe for concurrent use: one
// dispatch goroutine owns it and every mutation runs to completion before
// the next event is looked at.
//
//	store := topology.NewStore()
//	proc := topology.NewProcessor(store, logger)
//	if proc.Process(event) {
//	    trigger.Trigger() // schedule a redraw
//	}
//	snap := store.Data()  // read-and-clear
//
// # Relationships
//
// Each outgoing edge type of a node is described by a [Relation]: which raw
// items to accept, how an item maps to a target identity and payload, how to
// build the target node and how to recognize links owned by the relation.
// [Relation.Reconcile] creates missing targets and links, then prunes links
// of its own type whose target is no longer wanted. Pruning removes the link
// only; the target node stays in the store until process exit.
//
// Containers own five relations (network, port, volume, bind mount, image);
// ports own one (host IP). Every other kind is a leaf.
package topology
