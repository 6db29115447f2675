package graph

import (
	"github.com/Adirelle/docker-graph/pkg/topology"
)

// =============================================================================
// Graph - Container Graph Serialization
// =============================================================================

// Graph is the serialization format of a topology snapshot.
type Graph struct {
	Nodes []Node `json:"nodes"`
	Links []Link `json:"links"`
}

// Node is one serialized vertex. Layout coordinates are inlined.
type Node struct {
	ID      string `json:"id"`
	Kind    string `json:"kind,omitempty"`
	Type    string `json:"type,omitempty"`
	Icon    string `json:"icon,omitempty"`
	Label   string `json:"label,omitempty"`
	Color   string `json:"color,omitempty"`
	Tooltip string `json:"tooltip,omitempty"`
	Hidden  bool   `json:"hidden,omitempty"`

	topology.Layout
}

// DisplayLabel returns the label if set, otherwise the ID.
func (n *Node) DisplayLabel() string {
	if n.Label != "" {
		return n.Label
	}
	return n.ID
}

// Link is a directed edge between two node ids.
type Link struct {
	Source string `json:"source"`
	Target string `json:"target"`
}

// =============================================================================
// Snapshot ↔ Graph Conversion
// =============================================================================

// FromSnapshot converts a snapshot to its serialization format.
// The snapshot order (nodes by id, links by source) is preserved.
func FromSnapshot(snap topology.Snapshot) Graph {
	out := Graph{
		Nodes: make([]Node, len(snap.Nodes)),
		Links: make([]Link, len(snap.Links)),
	}
	for i, n := range snap.Nodes {
		out.Nodes[i] = Node{
			ID:      n.ID,
			Kind:    n.Kind.String(),
			Type:    n.Kind.Type(),
			Icon:    n.Kind.Icon(),
			Label:   n.Label,
			Color:   n.Color,
			Tooltip: n.Tooltip,
			Hidden:  n.Hidden,
			Layout:  n.Layout,
		}
	}
	for i, l := range snap.Links {
		out.Links[i] = Link{Source: l.Source.ID, Target: l.Target.ID}
	}
	return out
}

// Visible returns a copy of g without hidden nodes and the links touching
// them.
func (g Graph) Visible() Graph {
	hidden := make(map[string]bool)
	out := Graph{Nodes: make([]Node, 0, len(g.Nodes)), Links: make([]Link, 0, len(g.Links))}
	for _, n := range g.Nodes {
		if n.Hidden {
			hidden[n.ID] = true
			continue
		}
		out.Nodes = append(out.Nodes, n)
	}
	for _, l := range g.Links {
		if hidden[l.Source] || hidden[l.Target] {
			continue
		}
		out.Links = append(out.Links, l)
	}
	return out
}

// CountByKind returns the number of nodes of each kind name.
func (g Graph) CountByKind() map[string]int {
	counts := make(map[string]int)
	for _, n := range g.Nodes {
		counts[n.Kind]++
	}
	return counts
}
