// Package lowertransport implements the Bluetooth Mesh lower transport
// layer: single-segment and segmented access/control PDU framing,
// outbound segmentation-and-reassembly (SAR) with block-ack driven
// retransmission, inbound reassembly with its incomplete/ack timer pair,
// and the small set of lower transport control messages (segment
// acknowledgment, heartbeat).
package lowertransport
