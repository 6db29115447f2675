package topology

import (
	"cmp"
	"fmt"
	"maps"
	"slices"

	"github.com/Adirelle/docker-graph/pkg/events"
)

const defaultColor = "black"

var statusColors = map[string]string{
	"running": "#0C0",
	"exited":  "#999",
}

// apply projects p onto n and reconciles the relations n owns. The result
// is the logical OR of the display diff and every relation's signal.
func apply(s *Store, n *Node, p Payload) bool {
	p = keepProject(n.payload, p)
	n.payload = p
	changed := n.setDisplay(project(n, p))

	switch p := p.(type) {
	case ContainerPayload:
		changed = networkRelation.Reconcile(s, n, containerNetworks(p)) || changed
		changed = portRelation.Reconcile(s, n, containerPorts(p)) || changed
		changed = volumeRelation.Reconcile(s, n, p.Mounts) || changed
		changed = bindMountRelation.Reconcile(s, n, p.Mounts) || changed
		changed = imageRelation.Reconcile(s, n, containerImages(p)) || changed
	case PortPayload:
		changed = hostIPRelation.Reconcile(s, n, []events.Port{p.Binding}) || changed
	}
	return changed
}

// project computes the display fields of n for payload p.
func project(n *Node, p Payload) Display {
	d := Display{Color: defaultColor}
	var extra [][2]string

	switch p := p.(type) {
	case ContainerPayload:
		d.Label = p.Service
		if d.Label == "" {
			d.Label = shortName(cmp.Or(p.Name, n.ID), p.Project)
		}
		if c, ok := statusColors[p.Status]; ok {
			d.Color = c
		}
		extra = append(extra, [2]string{"status", p.Status})
		if p.Healthy != "" {
			extra = append(extra, [2]string{"health", p.Healthy})
		}
		if p.Project != nil && p.Project.Name != "" {
			extra = append(extra, [2]string{"project", p.Project.Name})
		}

	case NetworkPayload:
		d.Label = shortName(cmp.Or(p.Name, p.ID), p.Project)

	case ImagePayload:
		ref := parseImage(p.Ref)
		d.Label = shortName(ref.Name, p.Project)
		extra = append(extra,
			[2]string{"registry", ref.Registry},
			[2]string{"name", ref.Name},
			[2]string{"tag", ref.Tag},
		)

	case VolumePayload:
		d.Label = shortName(cmp.Or(p.Name, shortIDOrName(n.ID)), p.Project)
		if p.Source != "" {
			extra = append(extra, [2]string{"source", p.Source})
		}

	case BindMountPayload:
		d.Label = shortPath(p.Source, p.Project)
		extra = append(extra, [2]string{"path", p.Source})

	case PortPayload:
		d.Label = p.Name
		if p.Binding.HostPort > 0 {
			extra = append(extra, [2]string{"host", fmt.Sprintf("%s:%d", p.Binding.HostIP, p.Binding.HostPort)})
		}

	case HostIPPayload:
		d.Label = p.Addr
	}

	if d.Label == "" {
		d.Label = shortIDOrName(n.ID)
	}
	d.Tooltip = tooltip(append([][2]string{{n.Kind.Type(), d.Label}}, extra...)...)
	return d
}

// =============================================================================
// Container relations
// =============================================================================

type portEntry struct {
	name    string
	binding events.Port
}

func containerNetworks(c ContainerPayload) []events.Network {
	nets := make([]events.Network, 0, len(c.Networks))
	for _, key := range slices.Sorted(maps.Keys(c.Networks)) {
		nets = append(nets, c.Networks[key])
	}
	return nets
}

func containerPorts(c ContainerPayload) []portEntry {
	ports := make([]portEntry, 0, len(c.Ports))
	for _, name := range slices.Sorted(maps.Keys(c.Ports)) {
		ports = append(ports, portEntry{name: name, binding: c.Ports[name]})
	}
	return ports
}

func containerImages(c ContainerPayload) []string {
	if c.Image == "" {
		return nil
	}
	return []string{c.Image}
}

// keepProject returns p carrying the compose project of prev when prev is a
// payload of the same kind that already has one. Shared resources keep the
// project of the first container that referenced them, so containers of
// different projects agree on their display.
func keepProject(prev, p Payload) Payload {
	switch p := p.(type) {
	case NetworkPayload:
		if q, ok := prev.(NetworkPayload); ok && q.Project != nil {
			p.Project = q.Project
		}
		return p
	case ImagePayload:
		if q, ok := prev.(ImagePayload); ok && q.Project != nil {
			p.Project = q.Project
		}
		return p
	case VolumePayload:
		if q, ok := prev.(VolumePayload); ok && q.Project != nil {
			p.Project = q.Project
		}
		return p
	case BindMountPayload:
		if q, ok := prev.(BindMountPayload); ok && q.Project != nil {
			p.Project = q.Project
		}
		return p
	}
	return p
}

// projectOf returns the compose project of a container node, if any.
func projectOf(n *Node) *events.Project {
	if c, ok := n.payload.(ContainerPayload); ok {
		return c.Project
	}
	return nil
}

var networkRelation = Relation[events.Network]{
	Accept: func(net events.Network) bool { return net.ID != "" },
	Target: func(parent *Node, net events.Network) (string, Payload) {
		return net.ID, NetworkPayload{ID: net.ID, Name: net.Name, Project: projectOf(parent)}
	},
	Build: NewNode,
	Owns:  OfKind(KindNetwork),
}

var portRelation = Relation[portEntry]{
	Target: func(parent *Node, port portEntry) (string, Payload) {
		return parent.ID + ":" + port.name, PortPayload{Name: port.name, Binding: port.binding}
	},
	Build: NewNode,
	Owns:  OfKind(KindPort),
}

var volumeRelation = Relation[events.Mount]{
	Accept: func(m events.Mount) bool { return m.Type == events.MountVolume && m.Name != "" },
	Target: func(parent *Node, m events.Mount) (string, Payload) {
		return m.Name, VolumePayload{Name: m.Name, Source: m.Source, Project: projectOf(parent)}
	},
	Build: NewNode,
	Owns:  OfKind(KindVolume),
}

var bindMountRelation = Relation[events.Mount]{
	Accept: func(m events.Mount) bool { return m.Type == events.MountBind && m.Source != "" },
	Target: func(parent *Node, m events.Mount) (string, Payload) {
		return m.Source, BindMountPayload{Source: m.Source, Project: projectOf(parent)}
	},
	Build: NewNode,
	Owns:  OfKind(KindBindMount),
}

var imageRelation = Relation[string]{
	Target: func(parent *Node, ref string) (string, Payload) {
		return "image:" + ref, ImagePayload{Ref: ref, Project: projectOf(parent)}
	},
	Build: NewNode,
	Owns:  OfKind(KindImage),
}

// =============================================================================
// Port relations
// =============================================================================

var hostIPRelation = Relation[events.Port]{
	Accept: func(b events.Port) bool { return b.HostIP != "" },
	Target: func(_ *Node, b events.Port) (string, Payload) {
		return "IP:" + b.HostIP, HostIPPayload{Addr: b.HostIP}
	},
	Build: NewNode,
	Owns:  OfKind(KindHostIP),
}
