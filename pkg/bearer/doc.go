// Package bearer implements the bearer abstraction consumed by the rest
// of the stack (spec.md §6): a thin carrier for four PDU types —
// network, mesh beacon, proxy configuration and provisioning — that
// knows nothing about their contents.
//
// Two concrete bearers are provided. AdvertisingBearer adapts a host
// platform's PB-ADV advertising/scanning implementation, which already
// delivers whole PDUs; it does no framing of its own. GattProxyBearer
// carries PDUs over a length-prefixed, type-tagged byte stream (the
// logical transport underneath a GATT Proxy connection once the host's
// ATT layer has reassembled writes into a stream), with automatic
// reconnect-with-backoff.
package bearer
