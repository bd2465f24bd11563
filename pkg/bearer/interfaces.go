package bearer

import "sync"

// PduType identifies the kind of PDU a Bearer carries (spec.md §6).
// The bearer itself never inspects payload contents beyond this tag.
type PduType uint8

const (
	PduTypeNetwork PduType = iota
	PduTypeMeshBeacon
	PduTypeProxyConfiguration
	PduTypeProvisioning
)

func (t PduType) String() string {
	switch t {
	case PduTypeNetwork:
		return "networkPdu"
	case PduTypeMeshBeacon:
		return "meshBeacon"
	case PduTypeProxyConfiguration:
		return "proxyConfiguration"
	case PduTypeProvisioning:
		return "provisioningPdu"
	default:
		return "unknown"
	}
}

// Bearer is the interface the rest of the stack consumes (spec.md §6):
// send a whole PDU out, and register a handler for whole PDUs arriving
// in. A bearer may fragment and reassemble its own on-air framing; the
// caller always sees complete PDUs in both directions.
type Bearer interface {
	Send(pdu []byte, typ PduType) error
	SetInboundHandler(handler func(pdu []byte, typ PduType))
}

// inboundDispatch is the mutex-guarded inbound-handler slot shared by
// both bearer implementations.
type inboundDispatch struct {
	mu      sync.Mutex
	handler func(pdu []byte, typ PduType)
}

func (d *inboundDispatch) SetInboundHandler(handler func(pdu []byte, typ PduType)) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.handler = handler
}

func (d *inboundDispatch) dispatch(pdu []byte, typ PduType) {
	d.mu.Lock()
	handler := d.handler
	d.mu.Unlock()
	if handler != nil {
		handler(pdu, typ)
	}
}
