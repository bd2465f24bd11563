// Package provisioning implements the provisioner side of the Bluetooth
// Mesh provisioning protocol: an ECDH-based handshake that admits an
// unprovisioned device into a mesh network.
//
// # Overview
//
// Provisioning establishes a shared DeviceKey and delivers network
// credentials (NetKey, NetKeyIndex, IV Index, unicast address) to a
// device without ever transmitting them in the clear. It proceeds in
// three phases:
//
//  1. Invitation and capability exchange (Invite/Capabilities/Start).
//  2. ECDH public key exchange and out-of-band authenticated confirmation
//     (Public Key/Confirmation/Random).
//  3. Encrypted provisioning data delivery (Data/Complete).
//
// # State Machine
//
// FSM drives the provisioner side of the exchange one inbound PDU at a
// time: each call to HandleInboundPDU advances the state machine and may
// synchronously invoke the outbound-send callback zero or more times
// before returning, mirroring the single-threaded, non-blocking core
// the rest of this module assumes. No network I/O happens inside this
// package; a bearer delivers PDUs in and reads them back out via
// callback.
//
// # Authentication Methods
//
// Three out-of-band authentication methods are supported: no-OOB (a
// fixed, attacker-known authValue — used only for test/debug networks),
// static OOB (a pre-shared secret string), and input/output OOB (a
// numeric value displayed by one side and entered on the other).
package provisioning
