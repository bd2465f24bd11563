// Package uppertransport implements the Bluetooth Mesh upper transport
// layer: access-payload encryption and authentication under AppKeys and
// DevKeys, virtual-address AAD handling, and the Application/Device/
// Proxy-config nonce constructions consumed by pkg/crypto's CCM wrapper.
package uppertransport
