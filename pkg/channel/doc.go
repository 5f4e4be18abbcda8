// Package channel provides the bidirectional, message-oriented channel the
// session runs on.
//
// A Channel delivers lifecycle events and inbound binary messages to a single
// Handler and accepts outbound binary messages. The production
// implementation is a WebSocket in binary mode:
//
//	┌────────────────────────────────┐
//	│   Frames (6-byte header)       │
//	├────────────────────────────────┤
//	│   WebSocket binary messages    │
//	├────────────────────────────────┤
//	│   TCP (TLS for wss://)         │
//	└────────────────────────────────┘
//
// # Events
//
// A channel reports, in order:
//   - OnOpen once the connection is established
//   - OnMessage for every inbound binary message
//   - OnError for failures (dial errors, read errors, keep-alive timeout)
//   - OnClose exactly once, as the final event
//
// A failed dial produces OnError followed by OnClose without OnOpen.
//
// # Keep-Alive
//
// When configured, liveness is monitored with WebSocket ping/pong control
// frames carrying a sequence number. After MaxMissedPongs unanswered pings
// the channel reports ErrKeepAliveTimeout and closes.
package channel
