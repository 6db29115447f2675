// Package stream moves domain events over Server-Sent Events.
//
// The client side is [Connector]: it opens an SSE connection to an event
// server, hands every decoded [events.Event] to a handler in arrival order,
// and reopens the connection when it fails. Reconnects never happen more
// often than [Connector.MinInterval], measured from the previous open time,
// so a server that keeps failing fast is polled at most once per interval.
// Connection state changes are reported through [Connector.OnStatus],
// independently of the events themselves.
//
// The server side is [Hub]: an [http.Handler] that fans published events out
// to every subscriber. The hub retains the latest event of each live
// container and replays them to new subscribers first, so a client that
// connects late still builds the complete graph.
package stream
