package events

import (
	"encoding/json"
	"time"
)

// Event types.
const (
	TypeUpdated = "updated"
	TypeRemoved = "removed"
)

// Target types.
const (
	TargetContainer = "container"
)

// Event is a change notification about one tracked entity.
type Event struct {
	TargetID   string     `json:"TargetID"`
	TargetType string     `json:"TargetType"`
	Type       string     `json:"Type"`
	Time       string     `json:"Time"`
	Details    *Container `json:"Details,omitempty"`
}

// Updated builds a container "updated" event carrying ctn. Absent
// collections are sent as empty ones.
func Updated(ctn Container, when time.Time) Event {
	ctn.normalize()
	return Event{
		TargetID:   ctn.ID,
		TargetType: TargetContainer,
		Type:       TypeUpdated,
		Time:       when.UTC().Format(time.RFC3339Nano),
		Details:    &ctn,
	}
}

// Removed builds a container "removed" event.
func Removed(id string, when time.Time) Event {
	return Event{
		TargetID:   id,
		TargetType: TargetContainer,
		Type:       TypeRemoved,
		Time:       when.UTC().Format(time.RFC3339Nano),
	}
}

// IsContainer reports whether the event targets a container.
func (e Event) IsContainer() bool { return e.TargetType == TargetContainer }

// IsRemoval reports whether the event announces the removal of its target.
func (e Event) IsRemoval() bool { return e.Type == TypeRemoved }

// When parses the event timestamp. A missing or malformed timestamp yields
// the zero time.
func (e Event) When() time.Time {
	t, err := time.Parse(time.RFC3339Nano, e.Time)
	if err != nil {
		return time.Time{}
	}
	return t
}

// Container is the record carried by container "updated" events.
type Container struct {
	ID     string `json:"ID"`
	Name   string `json:"Name"`
	Status string `json:"Status"`
	Image  string `json:"Image"`
	// Healthy is the health check status. The wire key keeps the historical
	// "Healty" spelling used by the event producers.
	Healthy  string             `json:"Healty"`
	Service  string             `json:"Service,omitempty"`
	Project  *Project           `json:"Project,omitempty"`
	Networks map[string]Network `json:"Networks"`
	Mounts   []Mount            `json:"Mounts"`
	Ports    map[string]Port    `json:"Ports"`
}

// Project identifies the compose project a container belongs to.
type Project struct {
	Name       string `json:"Name"`
	WorkingDir string `json:"WorkingDir"`
}

// Network is a network endpoint of a container, keyed by network id.
type Network struct {
	ID   string `json:"ID"`
	Name string `json:"Name"`
}

// Mount types.
const (
	MountVolume = "volume"
	MountBind   = "bind"
)

// Mount is a filesystem mount of a container.
type Mount struct {
	Name        string `json:"Name"`
	Type        string `json:"Type"`
	Source      string `json:"Source"`
	Destination string `json:"Destination"`
	ReadWrite   bool   `json:"ReadWrite"`
}

// Port is the host binding of an exposed container port.
type Port struct {
	HostIP   string `json:"HostIp"`
	HostPort int    `json:"HostPort"`
}

// Running reports whether the container status is "running".
func (c *Container) Running() bool { return c.Status == "running" }

// normalize replaces absent collections with empty ones.
func (c *Container) normalize() {
	if c.Networks == nil {
		c.Networks = map[string]Network{}
	}
	if c.Mounts == nil {
		c.Mounts = []Mount{}
	}
	if c.Ports == nil {
		c.Ports = map[string]Port{}
	}
}

// UnmarshalJSON decodes a container record and normalizes optional fields.
func (c *Container) UnmarshalJSON(data []byte) error {
	type plain Container
	var p plain
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}
	*c = Container(p)
	c.normalize()
	return nil
}
