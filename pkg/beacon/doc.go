// Package beacon implements the Secure Network Beacon PDU (encode,
// decode, and CMAC authentication against a subnet's current and old
// NetworkKey derivatives) and the IV-Index / Key-Refresh acceptance
// state machine driven by received beacons (spec.md §4.G).
package beacon
