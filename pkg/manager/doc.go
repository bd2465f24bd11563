// Package manager wires the network, lower transport, upper transport,
// access, and beacon layers (spec.md §4.C-§4.G) together behind a single
// Manager type, plus a provisioner-role driver for the provisioning FSM
// (spec.md §4.H). It is the module's top-level entry point: a host
// application constructs a Manager with a Bearer, a key store, and a
// Delegate, and talks to the mesh purely through Manager's Send/Provision
// methods and the Delegate callbacks it receives in return.
//
// The Manager itself owns no goroutines. Every inbound PDU, timer fire,
// and outbound call runs synchronously on whatever goroutine invoked it,
// matching the single-threaded cooperative model of spec.md §5; a host
// that needs serialization across multiple real threads supplies a
// Notify function that posts delegate callbacks onto its own queue.
package manager
