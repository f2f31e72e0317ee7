// Package audit implements async event dispatching for security-relevant
// operations.
//
//   - [Event] is the structured audit record: timestamp, type, identity,
//     client, tenant, session, IP, outcome.
//   - [Sink] is the consumer interface (channel, JSON writer, no-op).
//   - [Dispatcher] is a buffered async relay with drop-if-full or
//     block-if-full semantics.
//
// The package owns buffering and delivery only. Deciding which events to
// emit belongs to the engine; it never filters or suppresses events, and it
// performs no I/O beyond what a caller-supplied Sink does.
package audit
