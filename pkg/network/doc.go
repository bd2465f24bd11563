// Package network implements the Bluetooth Mesh network layer: address
// classification, Network PDU obfuscation/encryption and decode, the
// per-source replay cache, and local sequence-number allocation.
//
// The layer is stateless with respect to any single PDU — all durable
// state (keys, IV Index, replay high-water marks, SEQ counters) lives in
// pkg/keystore and the types in this package, addressed by Layer.
package network
