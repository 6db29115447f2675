// Package docker produces domain events from a Docker daemon.
//
// A [Source] first lists every container, including stopped ones, and emits
// an updated event for each. It then follows the daemon event stream:
//
//   - container destroy becomes a removed event
//   - container attach, detach and exec_* are ignored
//   - any other container action, and network connect/disconnect, schedules
//     an inspection of the container
//
// Inspections are debounced per container ([DefaultInspectDelay]), so the
// burst of actions Docker emits when a container starts yields one inspect
// and one updated event. Compose labels fill the service and project fields.
//
// All events reach the handler from the goroutine that called [Source.Run].
package docker
