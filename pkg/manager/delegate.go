package manager

import "github.com/meshcore/mesh-go/pkg/access"

// ReceivedMessage describes an inbound access-layer message delivered to
// the Delegate once decrypted and dispatched, whether or not a registered
// model handled it (spec.md §6 "Manager delegate interface").
type ReceivedMessage struct {
	Src, Dst    uint16
	Opcode      access.Opcode
	Params      []byte
	AppKeyIndex *uint16 // nil when DevKey is true
	DevKey      bool
	NetKeyIndex uint16
}

// Delegate receives the three outcomes a Manager-driven access message
// can have: exposed per spec.md §6 as callbacks on message received,
// message delivered, and message failed-to-send.
type Delegate interface {
	// OnMessageReceived is called for every inbound access message after
	// upper-transport decryption, regardless of whether a model was
	// registered to handle its opcode.
	OnMessageReceived(msg ReceivedMessage)

	// OnMessageDelivered is called once an outbound message enqueued via
	// Manager.Send completes: for an unsegmented send, once the bearer
	// accepts it; for a segmented send, once every segment is
	// acknowledged. Application-level responses to acknowledged requests
	// are not tracked here; they are correlated through Manager.Tracker.
	OnMessageDelivered(handle uint64)

	// OnMessageFailed is called instead of OnMessageDelivered when an
	// outbound message could not be delivered: bearer send error, SAR
	// timeout, BusyAck, or cancellation.
	OnMessageFailed(handle uint64, err error)
}

// NoopDelegate discards every callback. Useful for a Manager that only
// drives a beacon/provisioning role and never sends or receives access
// traffic.
type NoopDelegate struct{}

func (NoopDelegate) OnMessageReceived(ReceivedMessage)    {}
func (NoopDelegate) OnMessageDelivered(uint64)            {}
func (NoopDelegate) OnMessageFailed(uint64, error)        {}

var _ Delegate = NoopDelegate{}
