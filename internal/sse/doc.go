// Package sse is the streaming core of sselay: the chunk data model, the
// wire-format encoder and the per-connection subscription loop that relays
// chunks published on a pub/sub bus to one long-lived HTTP response.
//
// The package consumes the bus through the Bus interface and the transport
// through io.Writer (plus http.Flusher when available); it implements
// neither. One Stream call runs per open connection and owns it until the
// client disconnects, the server drains or a write fails.
package sse
