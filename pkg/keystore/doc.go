// Package keystore holds the network, application and device key material a
// node needs to run the mesh stack: raw key bytes plus everything derived
// from them via pkg/crypto (NID, EncryptionKey, PrivacyKey, NetworkID,
// BeaconKey, IdentityKey, AID), and the current IV Index / IV Update state.
//
// Keys are recomputed once, at Add time, rather than on every use — the
// access/network/beacon layers only ever read the derived fields.
package keystore
