// Package events defines the domain events consumed by the topology engine.
//
// An [Event] reports that a tracked entity was updated or removed. The only
// target type the engine reacts to today is [TargetContainer]; its updated
// events carry a [Container] record describing the container and every
// resource it references (networks, mounts, published ports, image).
//
// # Wire Format
//
// Events travel as JSON, one object per message:
//
//	{
//	  "TargetID": "3f2a...",
//	  "TargetType": "container",
//	  "Type": "updated",
//	  "Time": "2024-05-01T12:00:00.123456789Z",
//	  "Details": {"ID": "3f2a...", "Name": "web", "Status": "running", ...}
//	}
//
// Over Server-Sent Events each message is framed by [WriteSSE] as
//
//	id:<unix nanoseconds>
//	data:<json>
//
// Optional container fields (Networks, Mounts, Ports, Project, Service) may be
// absent; [Decode] normalizes them to empty collections so consumers never
// need nil checks.
package events
