// Package server provides the word cloud's HTTP surface.
//
// Browsers load the embedded web client, open a websocket and exchange
// protocol events with the hub. The embedding service is mounted under a
// path prefix so the whole application is reachable through one origin.
//
// # Endpoints
//
//   - GET /ws - Websocket session, one JSON event envelope per text frame
//   - POST /admin/reset - Clear the word cloud and broadcast the empty state
//   - /spacy/* - Pass-through to the embedding service (prefix configurable)
//   - GET /health - Session, word and submission counts
//   - GET /metrics - Prometheus metrics
//   - GET / - Serve embedded web assets
//
// # Sessions
//
// Each websocket connection becomes a hub.Session. The handler goroutine reads
// frames and dispatches them to the hub; a second goroutine writes the
// session's outbound queue and sends pings. When the hub drops a session the
// writer sends a close frame and both goroutines exit.
package server
