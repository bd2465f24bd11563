package access

// KeySet identifies which key material an outbound/inbound access
// message used, for correlating a request with its reply (spec.md §4.F).
type KeySet struct {
	NetKeyIndex uint16
	AppKeyIndex uint16
	DeviceKey   bool
}

// CorrelationKey identifies one outstanding acknowledged request.
type CorrelationKey struct {
	Opcode uint32
	Src    uint16
	Dst    uint16
	Keys   KeySet
}
