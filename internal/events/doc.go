// Package events provides the in-process event bus that decouples task
// mutations from their asynchronous reactions.
//
// Services collect events in an Outbox while their write transaction is
// open and flush it only after the transaction commits, so subscribers
// never observe an event for a write that was rolled back. The Bus delivers
// each event to the subscribers registered for its type on a bounded
// worker pool.
//
// The primary components are:
// - Event: envelope carrying a typed JSON payload
// - Handler: interface for components that react to events
// - Bus: publish/subscribe dispatcher
// - Outbox: after-commit event buffer
package events
