// Package events carries domain events from committed workflows to
// interested components.
//
// Workflows emit an Event only after their unit of work commits, so handlers
// never observe state that was rolled back. Handlers run synchronously on the
// emitting goroutine and must not block for long.
//
// The primary components are:
// - Event: a typed notification that something happened, with a JSON payload
// - EventHandler: Interface for components that can handle events
// - EventEmitter: Interface for components that can emit events
// - Bus: the in-process emitter, routing each event to the handlers
//   subscribed to its type
package events
