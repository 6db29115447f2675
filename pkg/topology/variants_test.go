package topology

import (
	"testing"

	"github.com/Adirelle/docker-graph/pkg/events"
)

func TestProjectContainer(t *testing.T) {
	shop := &events.Project{Name: "shop", WorkingDir: "/srv/shop"}
	tests := []struct {
		name        string
		ctn         events.Container
		wantLabel   string
		wantColor   string
		wantTooltip string
	}{
		{
			name:        "running service",
			ctn:         events.Container{Name: "shop-web-1", Status: "running", Service: "web", Project: shop},
			wantLabel:   "web",
			wantColor:   "#0C0",
			wantTooltip: "container: web<br/>status: running<br/>project: shop",
		},
		{
			name:        "exited plain container",
			ctn:         events.Container{Name: "shop-db-1", Status: "exited", Project: shop},
			wantLabel:   "db-1",
			wantColor:   "#999",
			wantTooltip: "container: db-1<br/>status: exited<br/>project: shop",
		},
		{
			name:        "unknown status with health",
			ctn:         events.Container{Name: "job", Status: "created", Healthy: "starting"},
			wantLabel:   "job",
			wantColor:   "black",
			wantTooltip: "container: job<br/>status: created<br/>health: starting",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			n := &Node{ID: "c", Kind: KindContainer}
			d := project(n, ContainerPayload{Container: tt.ctn})
			if d.Label != tt.wantLabel {
				t.Errorf("Label = %q, want %q", d.Label, tt.wantLabel)
			}
			if d.Color != tt.wantColor {
				t.Errorf("Color = %q, want %q", d.Color, tt.wantColor)
			}
			if d.Tooltip != tt.wantTooltip {
				t.Errorf("Tooltip = %q, want %q", d.Tooltip, tt.wantTooltip)
			}
		})
	}
}

func TestProjectLeaves(t *testing.T) {
	shop := &events.Project{Name: "shop", WorkingDir: "/srv/shop"}
	longID := "0123456789abcdef0123456789abcdef0123456789abcdef0123456789abcdef"
	tests := []struct {
		name        string
		node        *Node
		payload     Payload
		wantLabel   string
		wantTooltip string
	}{
		{
			name:        "network strips project",
			node:        &Node{ID: "n1", Kind: KindNetwork},
			payload:     NetworkPayload{ID: "n1", Name: "shop_default", Project: shop},
			wantLabel:   "default",
			wantTooltip: "network: default",
		},
		{
			name:        "network without name",
			node:        &Node{ID: longID, Kind: KindNetwork},
			payload:     NetworkPayload{ID: longID},
			wantLabel:   "01234567",
			wantTooltip: "network: 01234567",
		},
		{
			name:        "image",
			node:        &Node{ID: "image:ghcr.io/acme/api:2", Kind: KindImage},
			payload:     ImagePayload{Ref: "ghcr.io/acme/api:2"},
			wantLabel:   "acme/api",
			wantTooltip: "image: acme/api<br/>registry: ghcr.io<br/>name: acme/api<br/>tag: 2",
		},
		{
			name:        "volume",
			node:        &Node{ID: "shop_data", Kind: KindVolume},
			payload:     VolumePayload{Name: "shop_data", Source: "/var/lib/docker/volumes/shop_data/_data", Project: shop},
			wantLabel:   "data",
			wantTooltip: "volume: data<br/>source: /var/lib/docker/volumes/shop_data/_data",
		},
		{
			name:        "bind mount in project",
			node:        &Node{ID: "/srv/shop/conf", Kind: KindBindMount},
			payload:     BindMountPayload{Source: "/srv/shop/conf", Project: shop},
			wantLabel:   "./conf",
			wantTooltip: "Bind mount: ./conf<br/>path: /srv/shop/conf",
		},
		{
			name:        "published port",
			node:        &Node{ID: "c:80/tcp", Kind: KindPort},
			payload:     PortPayload{Name: "80/tcp", Binding: events.Port{HostIP: "0.0.0.0", HostPort: 8080}},
			wantLabel:   "80/tcp",
			wantTooltip: "port: 80/tcp<br/>host: 0.0.0.0:8080",
		},
		{
			name:        "host ip",
			node:        &Node{ID: "IP:::", Kind: KindHostIP},
			payload:     HostIPPayload{Addr: "::"},
			wantLabel:   "::",
			wantTooltip: "Host IP: ::",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := project(tt.node, tt.payload)
			if d.Label != tt.wantLabel {
				t.Errorf("Label = %q, want %q", d.Label, tt.wantLabel)
			}
			if d.Color != "black" {
				t.Errorf("Color = %q, want black", d.Color)
			}
			if d.Tooltip != tt.wantTooltip {
				t.Errorf("Tooltip = %q, want %q", d.Tooltip, tt.wantTooltip)
			}
		})
	}
}

func TestContainerRelationsUseProject(t *testing.T) {
	s := NewStore()
	p := NewProcessor(s, nil)
	p.Process(updated(events.Container{
		ID:       "C1",
		Project:  &events.Project{Name: "shop", WorkingDir: "/srv/shop"},
		Networks: map[string]events.Network{"shop_default": {ID: "n1", Name: "shop_default"}},
		Mounts:   []events.Mount{{Type: events.MountBind, Source: "/srv/shop", Destination: "/app"}},
	}))

	if got := s.Node("n1").Label; got != "default" {
		t.Errorf("network Label = %q, want default", got)
	}
	if got := s.Node("/srv/shop").Label; got != "." {
		t.Errorf("bind mount Label = %q, want .", got)
	}
}

func TestNetworkRelationRejectsEmptyID(t *testing.T) {
	s := NewStore()
	p := NewProcessor(s, nil)
	p.Process(updated(events.Container{
		ID:       "C1",
		Networks: map[string]events.Network{"none": {Name: "none"}},
	}))

	if _, links := s.Len(); links != 0 {
		t.Errorf("links = %d, want 0", links)
	}
}
