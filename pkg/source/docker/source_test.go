package docker

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/charmbracelet/log"
	"github.com/docker/docker/api/types/container"
	dockerevents "github.com/docker/docker/api/types/events"
	"github.com/docker/docker/api/types/mount"
	"github.com/docker/docker/api/types/network"
	"github.com/docker/docker/errdefs"
	"github.com/docker/go-connections/nat"

	"github.com/Adirelle/docker-graph/pkg/events"
)

type fakeClient struct {
	mu        sync.Mutex
	list      []container.Summary
	infos     map[string]container.InspectResponse
	inspected map[string]int
	msgs      chan dockerevents.Message
	errs      chan error
}

func newFakeClient() *fakeClient {
	return &fakeClient{
		infos:     map[string]container.InspectResponse{},
		inspected: map[string]int{},
		msgs:      make(chan dockerevents.Message, 16),
		errs:      make(chan error, 1),
	}
}

func (f *fakeClient) ContainerList(context.Context, container.ListOptions) ([]container.Summary, error) {
	return f.list, nil
}

func (f *fakeClient) ContainerInspect(_ context.Context, id string) (container.InspectResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.inspected[id]++
	info, ok := f.infos[id]
	if !ok {
		return container.InspectResponse{}, errdefs.NotFound(fmt.Errorf("no such container: %s", id))
	}
	return info, nil
}

func (f *fakeClient) Events(context.Context, dockerevents.ListOptions) (<-chan dockerevents.Message, <-chan error) {
	return f.msgs, f.errs
}

func (f *fakeClient) inspections(id string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.inspected[id]
}

func quietLogger() *log.Logger { return log.New(io.Discard) }

func inspectResponse(id, name, status string) container.InspectResponse {
	return container.InspectResponse{
		ContainerJSONBase: &container.ContainerJSONBase{
			ID:    id,
			Name:  "/" + name,
			State: &container.State{Status: status, Running: status == "running"},
		},
		Config:          &container.Config{Image: "nginx:1.25"},
		NetworkSettings: &container.NetworkSettings{},
	}
}

func TestConvert(t *testing.T) {
	info := container.InspectResponse{
		ContainerJSONBase: &container.ContainerJSONBase{
			ID:   "c1",
			Name: "/shop-web-1",
			State: &container.State{
				Status:  "running",
				Running: true,
				Health:  &container.Health{Status: "healthy"},
			},
		},
		Config: &container.Config{
			Image: "nginx:1.25",
			Labels: map[string]string{
				LabelProject:    "shop",
				LabelService:    "web",
				LabelWorkingDir: "/srv/shop",
			},
		},
		Mounts: []container.MountPoint{
			{Type: mount.TypeVolume, Name: "shop_data", Source: "/var/lib/docker/volumes/shop_data/_data", Destination: "/data", RW: true},
			{Type: mount.TypeBind, Source: "/srv/shop/conf", Destination: "/etc/nginx", RW: false},
		},
		NetworkSettings: &container.NetworkSettings{
			NetworkSettingsBase: container.NetworkSettingsBase{
				Ports: nat.PortMap{
					"80/tcp":  {{HostIP: "0.0.0.0", HostPort: "8080"}, {HostIP: "::", HostPort: "8080"}},
					"443/tcp": nil,
					"53/udp":  {{HostIP: "127.0.0.1", HostPort: "bogus"}},
				},
			},
			Networks: map[string]*network.EndpointSettings{
				"shop_default": {NetworkID: "n1"},
				"broken":       nil,
			},
		},
	}

	got := Convert(info, quietLogger())

	if got.ID != "c1" || got.Name != "shop-web-1" || got.Status != "running" {
		t.Errorf("identity = %q/%q/%q, want c1/shop-web-1/running", got.ID, got.Name, got.Status)
	}
	if got.Healthy != "healthy" {
		t.Errorf("Healthy = %q, want healthy", got.Healthy)
	}
	if got.Image != "nginx:1.25" || got.Service != "web" {
		t.Errorf("Image/Service = %q/%q, want nginx:1.25/web", got.Image, got.Service)
	}
	if got.Project == nil || got.Project.Name != "shop" || got.Project.WorkingDir != "/srv/shop" {
		t.Errorf("Project = %+v, want shop at /srv/shop", got.Project)
	}
	if len(got.Networks) != 1 || got.Networks["shop_default"] != (events.Network{ID: "n1", Name: "shop_default"}) {
		t.Errorf("Networks = %+v, want only shop_default/n1", got.Networks)
	}
	if len(got.Mounts) != 2 {
		t.Fatalf("Mounts = %d, want 2", len(got.Mounts))
	}
	if m := got.Mounts[0]; m.Type != events.MountVolume || m.Name != "shop_data" || !m.ReadWrite {
		t.Errorf("Mounts[0] = %+v, want writable volume shop_data", m)
	}
	if m := got.Mounts[1]; m.Type != events.MountBind || m.Source != "/srv/shop/conf" || m.ReadWrite {
		t.Errorf("Mounts[1] = %+v, want read-only bind of /srv/shop/conf", m)
	}
	if len(got.Ports) != 1 || got.Ports["80/tcp"] != (events.Port{HostIP: "0.0.0.0", HostPort: 8080}) {
		t.Errorf("Ports = %+v, want only 80/tcp on 0.0.0.0:8080", got.Ports)
	}
}

func TestConvertStoppedHasNoHealth(t *testing.T) {
	info := inspectResponse("c1", "job", "exited")
	info.State.Health = &container.Health{Status: "unhealthy"}

	got := Convert(info, quietLogger())
	if got.Healthy != "" {
		t.Errorf("Healthy = %q, want empty for a stopped container", got.Healthy)
	}
	if got.Project != nil {
		t.Errorf("Project = %+v, want nil without compose labels", got.Project)
	}
	if got.Networks == nil || got.Mounts == nil || got.Ports == nil {
		t.Error("collections must never be nil")
	}
}

func TestClassify(t *testing.T) {
	msg := func(typ dockerevents.Type, act dockerevents.Action, id string, attrs map[string]string) dockerevents.Message {
		return dockerevents.Message{Type: typ, Action: act, Actor: dockerevents.Actor{ID: id, Attributes: attrs}}
	}
	tests := []struct {
		name    string
		msg     dockerevents.Message
		wantAct action
		wantID  string
	}{
		{"start", msg(dockerevents.ContainerEventType, dockerevents.ActionStart, "c1", nil), actionInspect, "c1"},
		{"die", msg(dockerevents.ContainerEventType, dockerevents.ActionDie, "c1", nil), actionInspect, "c1"},
		{"destroy", msg(dockerevents.ContainerEventType, dockerevents.ActionDestroy, "c1", nil), actionRemove, "c1"},
		{"attach", msg(dockerevents.ContainerEventType, dockerevents.ActionAttach, "c1", nil), actionIgnore, ""},
		{"detach", msg(dockerevents.ContainerEventType, dockerevents.ActionDetach, "c1", nil), actionIgnore, ""},
		{"exec", msg(dockerevents.ContainerEventType, "exec_start: sh", "c1", nil), actionIgnore, ""},
		{"network connect", msg(dockerevents.NetworkEventType, dockerevents.ActionConnect, "n1", map[string]string{"container": "c2"}), actionInspect, "c2"},
		{"network disconnect", msg(dockerevents.NetworkEventType, dockerevents.ActionDisconnect, "n1", map[string]string{"container": "c2"}), actionInspect, "c2"},
		{"network create", msg(dockerevents.NetworkEventType, dockerevents.ActionCreate, "n1", nil), actionIgnore, ""},
		{"image pull", msg(dockerevents.ImageEventType, dockerevents.ActionPull, "nginx", nil), actionIgnore, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			act, id := classify(tt.msg)
			if act != tt.wantAct || id != tt.wantID {
				t.Errorf("classify() = %v, %q, want %v, %q", act, id, tt.wantAct, tt.wantID)
			}
		})
	}
}

func TestSourceRun(t *testing.T) {
	f := newFakeClient()
	f.list = []container.Summary{{ID: "c1"}}
	f.infos["c1"] = inspectResponse("c1", "web", "running")
	f.infos["c2"] = inspectResponse("c2", "db", "running")

	src := New(f, quietLogger())
	src.InspectDelay = 20 * time.Millisecond

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	received := make(chan events.Event, 16)
	done := make(chan error, 1)
	go func() { done <- src.Run(ctx, func(e events.Event) { received <- e }) }()

	next := func() events.Event {
		t.Helper()
		select {
		case e := <-received:
			return e
		case <-time.After(2 * time.Second):
			t.Fatal("no event received")
			return events.Event{}
		}
	}

	if e := next(); e.TargetID != "c1" || e.Type != events.TypeUpdated || e.Details.Name != "web" {
		t.Fatalf("primed event = %+v, want updated c1/web", e)
	}

	now := time.Now().UnixNano()
	for _, act := range []dockerevents.Action{dockerevents.ActionCreate, dockerevents.ActionStart, "exec_create: sh"} {
		f.msgs <- dockerevents.Message{Type: dockerevents.ContainerEventType, Action: act, Actor: dockerevents.Actor{ID: "c2"}, TimeNano: now}
	}
	f.msgs <- dockerevents.Message{Type: dockerevents.ContainerEventType, Action: dockerevents.ActionDestroy, Actor: dockerevents.Actor{ID: "c1"}, TimeNano: now}

	if e := next(); e.TargetID != "c1" || !e.IsRemoval() {
		t.Errorf("event = %+v, want removal of c1", e)
	}
	if e := next(); e.TargetID != "c2" || e.Type != events.TypeUpdated || e.Details.Name != "db" {
		t.Errorf("event = %+v, want updated c2/db", e)
	}
	if n := f.inspections("c2"); n != 1 {
		t.Errorf("c2 inspected %d times, want 1", n)
	}

	f.msgs <- dockerevents.Message{
		Type:     dockerevents.NetworkEventType,
		Action:   dockerevents.ActionConnect,
		Actor:    dockerevents.Actor{ID: "n1", Attributes: map[string]string{"container": "gone"}},
		TimeNano: now,
	}
	deadline := time.After(time.Second)
	for f.inspections("gone") == 0 {
		select {
		case <-deadline:
			t.Fatal("vanished container never inspected")
		case <-time.After(5 * time.Millisecond):
		}
	}
	select {
	case e := <-received:
		t.Errorf("unexpected event %+v for a vanished container", e)
	case <-time.After(50 * time.Millisecond):
	}

	cancel()
	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("Run() error = %v, want context.Canceled", err)
		}
	case <-time.After(time.Second):
		t.Fatal("Run() did not return")
	}
}

func TestSourceInspectRemoving(t *testing.T) {
	f := newFakeClient()
	f.list = []container.Summary{{ID: "c1"}}
	f.infos["c1"] = inspectResponse("c1", "web", "removing")

	src := New(f, quietLogger())
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var got []events.Event
	if err := src.prime(ctx, func(e events.Event) { got = append(got, e) }); err != nil {
		t.Fatalf("prime() error: %v", err)
	}
	if len(got) != 1 || !got[0].IsRemoval() {
		t.Errorf("prime() events = %+v, want one removal", got)
	}
}
