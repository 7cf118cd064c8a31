// Package hub applies client events to the shared word cloud and fans the
// resulting updates out to every connected session.
//
// A Hub owns one state.Store. All work that touches the store runs on the
// single goroutine started by Run:
//   - registering a session and sending it the initialize snapshot
//   - applying addWord, updateConnections, changeColor and reset events
//   - administrative resets and snapshot queries
//   - removing sessions that disconnect or fall behind
//
// Because each of these runs to completion before the next one starts, every
// session observes the same linear history of state changes, and a joining
// session's snapshot is never interleaved with a broadcast.
//
// Sessions are transport agnostic. The websocket layer in internal/server
// reads frames into Dispatch and drains Session.Outbound onto the wire.
package hub
