// Package service contains the application use cases behind the HTTP surface.
//
// Services coordinate domain objects and the repository interfaces from
// internal/store. Writes run inside a store.Transactor unit of work and buffer
// their domain events in an events.Outbox, which is flushed only after the
// transaction commits. Subscribers therefore never observe a change that was
// rolled back.
package service
