package topology

// Relation describes one kind of outgoing edge of a node: which raw items
// are accepted, how an item maps to a target node and how links owned by
// the relation are recognized among the parent's outgoing links.
//
// Relations hold no state; everything is recomputed from the items passed
// to [Relation.Reconcile].
type Relation[I any] struct {
	// Accept filters raw items. A nil Accept accepts everything.
	Accept func(item I) bool

	// Target maps an accepted item to the identity and payload of its
	// target node. Items mapping to the same id collapse into one target.
	Target func(parent *Node, item I) (id string, p Payload)

	// Build constructs target nodes on first reference.
	Build Builder

	// Owns reports whether a link target belongs to this relation. Links
	// whose target it rejects are never pruned by this relation.
	Owns func(target *Node) bool
}

// Reconcile makes the parent's links of this relation match items.
//
// Missing target nodes and links are created through the store, which marks
// itself dirty on its own. Links of this relation whose target is not wanted
// any more are removed. The result reports removals only.
func (r Relation[I]) Reconcile(s *Store, parent *Node, items []I) bool {
	wanted := make(map[*Node]struct{}, len(items))
	for _, item := range items {
		if r.Accept != nil && !r.Accept(item) {
			continue
		}
		id, p := r.Target(parent, item)
		target := s.GetOrCreateNode(id, r.Build, p)
		s.GetOrCreateLink(parent, target)
		wanted[target] = struct{}{}
	}

	changed := false
	for _, l := range s.LinksFrom(parent) {
		if !r.Owns(l.Target) {
			continue
		}
		if _, ok := wanted[l.Target]; ok {
			continue
		}
		if s.RemoveLink(l) {
			changed = true
		}
	}
	return changed
}

// OfKind returns a link-target guard matching nodes of kind k.
func OfKind(k Kind) func(*Node) bool {
	return func(n *Node) bool { return n.Kind == k }
}
