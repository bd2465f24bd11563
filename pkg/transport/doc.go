// Package transport provides stream framing and liveness primitives
// shared by the mesh's stream-oriented bearers (GATT proxy, IP-based
// test bearers).
//
// It handles:
//   - Length-prefixed message framing
//   - Keep-alive ping/pong for connection liveness
//
// # Protocol Stack
//
//	┌────────────────────────────────┐
//	│   Bearer-level PDUs            │
//	├────────────────────────────────┤
//	│   Length-Prefix Framing (4B)   │
//	├────────────────────────────────┤
//	│   Stream transport (TCP, L2CAP)│
//	└────────────────────────────────┘
//
// This package carries no mesh-specific framing of its own; pkg/bearer
// wraps it with a one-byte PDU type tag per spec.md §6 before handing
// frames to the rest of the stack.
//
// # Keep-Alive
//
// Connection liveness is monitored using ping/pong messages:
//   - Ping interval: 30 seconds
//   - Pong timeout: 5 seconds
//   - Max missed pongs: 3
//   - Maximum detection delay: 95 seconds
package transport
