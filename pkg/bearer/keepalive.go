package bearer

import (
	"context"

	"github.com/meshcore/mesh-go/pkg/transport"
)

// pingPDUMarker and pongPDUMarker tag the single-byte-plus-sequence
// liveness messages exchanged over PduTypeProxyConfiguration. These are
// a private keepalive sub-protocol for the GATT stream itself, distinct
// from any mesh-level Proxy Configuration message and distinct from the
// mesh routing heartbeat in pkg/lowertransport, which monitors liveness
// hop-by-hop across the mesh rather than link-by-link on one stream.
const (
	pingPDUMarker byte = 0xF0
	pongPDUMarker byte = 0xF1
)

// Keepalive monitors a GattProxyBearer's stream-level liveness with
// ping/pong, adapted from pkg/transport's generic keep-alive loop.
type Keepalive struct {
	ka *transport.KeepAlive
}

// NewKeepalive creates a Keepalive that pings over bearer and calls
// onTimeout after config.MaxMissedPongs consecutive misses.
func NewKeepalive(bearer *GattProxyBearer, config transport.KeepAliveConfig, onTimeout func()) *Keepalive {
	ka := transport.NewKeepAlive(config, func(seq uint32) error {
		return bearer.Send(encodePing(seq), PduTypeProxyConfiguration)
	}, onTimeout)
	return &Keepalive{ka: ka}
}

// Start begins sending pings until ctx is done or Stop is called.
func (k *Keepalive) Start(ctx context.Context) { k.ka.Start(ctx) }

// Stop halts the ping loop.
func (k *Keepalive) Stop() { k.ka.Stop() }

// Stats returns the underlying ping/pong statistics.
func (k *Keepalive) Stats() transport.KeepAliveStats { return k.ka.Stats() }

// HandleInbound inspects a PduTypeProxyConfiguration payload and feeds
// any pong it finds to the keep-alive loop. Non-pong payloads are
// ignored so the caller can share one inbound handler for all proxy
// configuration traffic.
func (k *Keepalive) HandleInbound(pdu []byte) {
	seq, ok := decodePong(pdu)
	if ok {
		k.ka.PongReceived(seq)
	}
}

// HandlePing answers a peer-initiated ping with a pong carrying the
// same sequence number, for the rare case the proxy side pings us.
func HandlePing(pdu []byte, send func(pdu []byte, typ PduType) error) error {
	seq, ok := decodePing(pdu)
	if !ok {
		return nil
	}
	return send(encodePong(seq), PduTypeProxyConfiguration)
}

func encodePing(seq uint32) []byte {
	return []byte{pingPDUMarker, byte(seq >> 24), byte(seq >> 16), byte(seq >> 8), byte(seq)}
}

func decodePing(pdu []byte) (uint32, bool) {
	return decodeMarked(pdu, pingPDUMarker)
}

func encodePong(seq uint32) []byte {
	return []byte{pongPDUMarker, byte(seq >> 24), byte(seq >> 16), byte(seq >> 8), byte(seq)}
}

func decodePong(pdu []byte) (uint32, bool) {
	return decodeMarked(pdu, pongPDUMarker)
}

func decodeMarked(pdu []byte, marker byte) (uint32, bool) {
	if len(pdu) != 5 || pdu[0] != marker {
		return 0, false
	}
	return uint32(pdu[1])<<24 | uint32(pdu[2])<<16 | uint32(pdu[3])<<8 | uint32(pdu[4]), true
}
