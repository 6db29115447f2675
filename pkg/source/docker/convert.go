package docker

import (
	"strconv"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/docker/docker/api/types/container"
	"github.com/docker/go-connections/nat"

	"github.com/Adirelle/docker-graph/pkg/events"
)

// Compose labels.
const (
	LabelProject    = "com.docker.compose.project"
	LabelService    = "com.docker.compose.service"
	LabelWorkingDir = "com.docker.compose.project.working_dir"
)

// statusRemoving is reported while a container is being deleted.
const statusRemoving = "removing"

// Convert maps an inspection result to a container record.
func Convert(info container.InspectResponse, logger *log.Logger) events.Container {
	ctn := events.Container{
		Networks: map[string]events.Network{},
		Mounts:   []events.Mount{},
		Ports:    map[string]events.Port{},
	}
	if info.ContainerJSONBase != nil {
		ctn.ID = info.ID
		ctn.Name = strings.TrimPrefix(info.Name, "/")
		if st := info.State; st != nil {
			ctn.Status = st.Status
			if st.Running && st.Health != nil {
				ctn.Healthy = st.Health.Status
			}
		}
	}

	if cfg := info.Config; cfg != nil {
		ctn.Image = cfg.Image
		ctn.Service = cfg.Labels[LabelService]
		if name := cfg.Labels[LabelProject]; name != "" {
			ctn.Project = &events.Project{Name: name, WorkingDir: cfg.Labels[LabelWorkingDir]}
		}
	}

	for _, mp := range info.Mounts {
		ctn.Mounts = append(ctn.Mounts, events.Mount{
			Name:        mp.Name,
			Type:        string(mp.Type),
			Source:      mp.Source,
			Destination: mp.Destination,
			ReadWrite:   mp.RW,
		})
	}

	if ns := info.NetworkSettings; ns != nil {
		for name, ep := range ns.Networks {
			if ep == nil {
				continue
			}
			ctn.Networks[name] = events.Network{ID: ep.NetworkID, Name: name}
		}
		ctn.Ports = convertPorts(ns.Ports, logger)
	}
	return ctn
}

// convertPorts keeps the first binding of every published port. Exposed
// ports without a binding are dropped.
func convertPorts(ports nat.PortMap, logger *log.Logger) map[string]events.Port {
	out := make(map[string]events.Port, len(ports))
	for port, bindings := range ports {
		if len(bindings) == 0 {
			continue
		}
		b := bindings[0]
		num, err := strconv.Atoi(b.HostPort)
		if err != nil {
			logger.Warn("invalid host port", "port", port, "value", b.HostPort)
			continue
		}
		out[string(port)] = events.Port{HostIP: b.HostIP, HostPort: num}
	}
	return out
}

// isRemoving reports whether the inspection caught the container mid-deletion.
func isRemoving(info container.InspectResponse) bool {
	return info.ContainerJSONBase != nil && info.State != nil && info.State.Status == statusRemoving
}
