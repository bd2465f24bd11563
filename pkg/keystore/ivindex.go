package keystore

// IVIndexState is the node's current IV Index and IV Update flag
// (spec.md §3.A, §7). It is mutated only by pkg/beacon's FSM in response
// to Secure Network Beacons; every other package treats it as read-only.
type IVIndexState struct {
	Value    uint32
	Updating bool
}

// TxIVIndex returns the IV Index to use when transmitting.
func (s IVIndexState) TxIVIndex() uint32 {
	return s.Value
}
