package topology

import "github.com/Adirelle/docker-graph/pkg/events"

// Display holds the fields a renderer shows for a node. They are derived
// from the node payload by a pure projection.
type Display struct {
	Label   string
	Color   string
	Tooltip string
}

// Layout holds coordinates owned by the external layout engine. The store
// never computes them; it keeps whatever [Store.SetLayout] was given and
// forwards it in snapshots. FX and FY pin the node when set.
type Layout struct {
	X  float64  `json:"x"`
	Y  float64  `json:"y"`
	VX float64  `json:"vx"`
	VY float64  `json:"vy"`
	FX *float64 `json:"fx,omitempty"`
	FY *float64 `json:"fy,omitempty"`
}

// Node is a vertex of the topology graph.
//
// A node is created once per id and updated in place afterwards, so
// pointers to it stay valid for the lifetime of the store.
type Node struct {
	ID   string
	Kind Kind
	Display
	Layout Layout
	Hidden bool

	payload Payload
}

// Payload returns the latest payload applied to the node.
func (n *Node) Payload() Payload { return n.payload }

// Visible reports whether the node should be drawn.
func (n *Node) Visible() bool { return !n.Hidden }

// setDisplay replaces the display fields and reports whether any changed.
func (n *Node) setDisplay(d Display) bool {
	if n.Display == d {
		return false
	}
	n.Display = d
	return true
}

// Link is a directed edge between two nodes.
type Link struct {
	Source *Node
	Target *Node
}

// Visible reports whether both endpoints are visible.
func (l *Link) Visible() bool {
	return l.Source.Visible() && l.Target.Visible()
}

// Builder constructs the node registered for id on its first reference.
type Builder func(id string, p Payload) *Node

// NewNode is the default [Builder]: an empty node of the payload's kind.
func NewNode(id string, p Payload) *Node {
	return &Node{ID: id, Kind: p.Kind()}
}

// =============================================================================
// Payloads
// =============================================================================

// Payload is the raw data a node is projected from. The set of
// implementations is closed: one type per [Kind].
type Payload interface {
	Kind() Kind
	sealed()
}

// ContainerPayload is the payload of container nodes.
type ContainerPayload struct {
	events.Container
}

// NetworkPayload is the payload of network nodes.
type NetworkPayload struct {
	ID      string
	Name    string
	Project *events.Project
}

// ImagePayload is the payload of image nodes.
type ImagePayload struct {
	Ref     string
	Project *events.Project
}

// VolumePayload is the payload of volume nodes. A volume is shared by every
// container mounting it, so mount points and modes stay on the containers.
type VolumePayload struct {
	Name    string
	Source  string
	Project *events.Project
}

// BindMountPayload is the payload of bind mount nodes.
type BindMountPayload struct {
	Source  string
	Project *events.Project
}

// PortPayload is the payload of port nodes. Name is "port/proto".
type PortPayload struct {
	Name    string
	Binding events.Port
}

// HostIPPayload is the payload of host IP nodes.
type HostIPPayload struct {
	Addr string
}

func (ContainerPayload) Kind() Kind { return KindContainer }
func (NetworkPayload) Kind() Kind   { return KindNetwork }
func (ImagePayload) Kind() Kind     { return KindImage }
func (VolumePayload) Kind() Kind    { return KindVolume }
func (BindMountPayload) Kind() Kind { return KindBindMount }
func (PortPayload) Kind() Kind      { return KindPort }
func (HostIPPayload) Kind() Kind    { return KindHostIP }

func (ContainerPayload) sealed() {}
func (NetworkPayload) sealed()   {}
func (ImagePayload) sealed()     {}
func (VolumePayload) sealed()    {}
func (BindMountPayload) sealed() {}
func (PortPayload) sealed()      {}
func (HostIPPayload) sealed()    {}
