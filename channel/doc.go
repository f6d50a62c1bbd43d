// Package channel defines the remote value abstraction consumed by positioners.
//
// A Channel is a named, typed remote value supporting read, write (returning once the remote
// side acknowledged the write), connection-state queries and value-change subscriptions.
// Transports such as Channel Access or PV Access implement it outside this module; the package
// itself ships:
//
//   - StateMgr: a connection state manager with change handlers and WaitState, for transports
//     that want the usual connected/disconnected bookkeeping.
//   - SimChannel: an in-memory channel whose remote side is driven by Put. It is used by the
//     simulated motor, by examples and by tests, and it records how many writes it accepted.
//
// Delivery contract: events for a single channel are delivered in the order the values were
// produced, but on whatever goroutine produced them. Callbacks must not assume a particular
// goroutine and must not block for long.
package channel
