// Package meshconfig decodes and encodes the persisted mesh-network
// configuration document (spec.md §6), matching the Bluetooth SIG "Mesh
// Configuration Database Profile" JSON schema: hex-encoded network and
// application keys, provisioners with allocated address ranges, and
// nodes with their UUID, unicast address, element span and bound keys.
//
// The core treats the document as opaque outside decoding; persistence
// itself (reading/writing the bytes) is delegated to the consumed
// DataSource interface, exactly as bearer I/O is delegated to Bearer.
package meshconfig
