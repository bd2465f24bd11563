package bearer

// AdvertisingBearer adapts a host-supplied PB-ADV advertising/scanning
// pair to the Bearer interface. The host platform owns the BLE radio,
// advertising set rotation and scan filtering; this type only forwards
// whole PDUs across that boundary. BLE radio control is out of scope
// (spec.md §1) — sendRaw is expected to already know how to wrap a PDU
// in the PB-ADV advertising structure and transmit it.
type AdvertisingBearer struct {
	inboundDispatch

	sendRaw func(pdu []byte, typ PduType) error
}

var _ Bearer = (*AdvertisingBearer)(nil)

// NewAdvertisingBearer creates an AdvertisingBearer backed by sendRaw.
func NewAdvertisingBearer(sendRaw func(pdu []byte, typ PduType) error) *AdvertisingBearer {
	return &AdvertisingBearer{sendRaw: sendRaw}
}

// Send transmits pdu via the host's advertising stack.
func (b *AdvertisingBearer) Send(pdu []byte, typ PduType) error {
	return b.sendRaw(pdu, typ)
}

// Deliver is called by the host platform when a scan callback yields a
// complete PDU (after the host's own PB-ADV segment reassembly).
func (b *AdvertisingBearer) Deliver(pdu []byte, typ PduType) {
	b.dispatch(pdu, typ)
}
