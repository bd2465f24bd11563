package keystore

// DeviceKey is the per-node DevKey established during provisioning
// (spec.md §4.H) and used by the upper transport for device-local
// configuration traffic instead of an AppKey.
type DeviceKey struct {
	UnicastAddr uint16
	Key         [16]byte
}
