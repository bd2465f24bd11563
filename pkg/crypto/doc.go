// Package crypto implements the primitive operations the Bluetooth Mesh
// profile builds everything else on: AES-CMAC, AES-CCM, the s1/k1/k2/k3/k4
// key derivation chain, and P-256 ECDH for the provisioning handshake.
//
// Nothing in this package knows about network PDUs, transport layers or
// provisioning state — it is pure, allocation-light, and side-effect free
// so that every other package can treat it as a trusted primitive library.
package crypto
