package topology

import (
	"cmp"
	"io"
	"slices"

	"github.com/charmbracelet/log"
)

// Snapshot is the materialized graph handed to renderers.
// Nodes are sorted by id and links by (source id, target id).
type Snapshot struct {
	Nodes []*Node
	Links []*Link
}

// CountByKind returns the number of nodes of each kind.
func (s Snapshot) CountByKind() map[Kind]int {
	counts := make(map[Kind]int, len(kindInfo))
	for _, n := range s.Nodes {
		counts[n.Kind]++
	}
	return counts
}

// Store is the canonical id → node mapping plus the link set.
//
// It is not safe for concurrent use.
type Store struct {
	nodes  map[string]*Node
	out    map[*Node]map[*Node]*Link
	in     map[*Node]map[*Node]*Link
	dirty  bool
	hidden map[Kind]bool
	logger *log.Logger
}

// Option configures a [Store].
type Option func(*Store)

// WithLogger sets the logger used for debug traces of graph mutations.
func WithLogger(l *log.Logger) Option {
	return func(s *Store) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithHiddenKinds marks nodes of the given kinds hidden when they are
// created. Hidden nodes are still tracked and linked; renderers skip them
// and every link touching them.
func WithHiddenKinds(kinds ...Kind) Option {
	return func(s *Store) {
		for _, k := range kinds {
			s.hidden[k] = true
		}
	}
}

// NewStore returns an empty store.
func NewStore(opts ...Option) *Store {
	s := &Store{
		nodes:  make(map[string]*Node),
		out:    make(map[*Node]map[*Node]*Link),
		in:     make(map[*Node]map[*Node]*Link),
		hidden: make(map[Kind]bool),
		logger: log.New(io.Discard),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Dirty reports whether the graph changed since the last [Store.Data] call.
func (s *Store) Dirty() bool { return s.dirty }

// Len returns the number of nodes and links.
func (s *Store) Len() (nodes, links int) {
	for _, targets := range s.out {
		links += len(targets)
	}
	return len(s.nodes), links
}

// Node returns the node registered for id, or nil.
func (s *Store) Node(id string) *Node { return s.nodes[id] }

func (s *Store) markDirty() {
	if !s.dirty {
		s.logger.Debug("graph is dirty")
		s.dirty = true
	}
}

// GetOrCreateNode returns the node registered for id, building and
// registering it with build on first reference. The payload is applied in
// both cases; the store is marked dirty when the node is created or when
// applying the payload changed anything, including owned relationships.
//
// build is called at most once per id for the lifetime of the store, unless
// the node is removed in between.
func (s *Store) GetOrCreateNode(id string, build Builder, p Payload) *Node {
	n := s.nodes[id]
	if n == nil {
		n = build(id, p)
		n.Hidden = n.Hidden || s.hidden[n.Kind]
		s.nodes[id] = n
		s.logger.Debug("new node", "id", id, "kind", n.Kind)
		s.markDirty()
	}
	if n.Kind != p.Kind() {
		s.logger.Warn("payload kind mismatch", "id", id, "node", n.Kind, "payload", p.Kind())
		return n
	}
	if apply(s, n, p) {
		s.markDirty()
	}
	return n
}

// RemoveNode unregisters n and every link whose source or target is n.
// It reports whether the node was registered.
func (s *Store) RemoveNode(n *Node) bool {
	if n == nil || s.nodes[n.ID] != n {
		return false
	}
	delete(s.nodes, n.ID)
	for target := range s.out[n] {
		delete(s.in[target], n)
	}
	for source := range s.in[n] {
		delete(s.out[source], n)
	}
	delete(s.out, n)
	delete(s.in, n)
	s.logger.Debug("removed node", "id", n.ID, "kind", n.Kind)
	s.markDirty()
	return true
}

// GetOrCreateLink returns the link from source to target, creating it when
// missing.
func (s *Store) GetOrCreateLink(source, target *Node) *Link {
	if l := s.out[source][target]; l != nil {
		return l
	}
	l := &Link{Source: source, Target: target}
	if s.out[source] == nil {
		s.out[source] = make(map[*Node]*Link)
	}
	if s.in[target] == nil {
		s.in[target] = make(map[*Node]*Link)
	}
	s.out[source][target] = l
	s.in[target][source] = l
	s.logger.Debug("new link", "source", source.ID, "target", target.ID)
	s.markDirty()
	return l
}

// RemoveLink unregisters l and reports whether it was registered.
func (s *Store) RemoveLink(l *Link) bool {
	if l == nil || s.out[l.Source][l.Target] != l {
		return false
	}
	delete(s.out[l.Source], l.Target)
	delete(s.in[l.Target], l.Source)
	s.logger.Debug("removed link", "source", l.Source.ID, "target", l.Target.ID)
	s.markDirty()
	return true
}

// LinksFrom returns the current outgoing links of source, sorted by target
// id. The slice is a copy: removing links while iterating it is safe.
func (s *Store) LinksFrom(source *Node) []*Link {
	targets := s.out[source]
	links := make([]*Link, 0, len(targets))
	for _, l := range targets {
		links = append(links, l)
	}
	slices.SortFunc(links, func(a, b *Link) int { return cmp.Compare(a.Target.ID, b.Target.ID) })
	return links
}

// LinksTo returns the current incoming links of target, sorted by source id.
func (s *Store) LinksTo(target *Node) []*Link {
	sources := s.in[target]
	links := make([]*Link, 0, len(sources))
	for _, l := range sources {
		links = append(links, l)
	}
	slices.SortFunc(links, func(a, b *Link) int { return cmp.Compare(a.Source.ID, b.Source.ID) })
	return links
}

// SetLayout records coordinates computed by the layout engine for id.
// Layout changes do not mark the store dirty.
func (s *Store) SetLayout(id string, l Layout) bool {
	n := s.nodes[id]
	if n == nil {
		return false
	}
	n.Layout = l
	return true
}

// Data materializes the graph and resets the dirty flag.
func (s *Store) Data() Snapshot {
	s.dirty = false

	snap := Snapshot{Nodes: make([]*Node, 0, len(s.nodes))}
	for _, n := range s.nodes {
		snap.Nodes = append(snap.Nodes, n)
	}
	slices.SortFunc(snap.Nodes, func(a, b *Node) int { return cmp.Compare(a.ID, b.ID) })

	for _, n := range snap.Nodes {
		snap.Links = append(snap.Links, s.LinksFrom(n)...)
	}
	return snap
}
