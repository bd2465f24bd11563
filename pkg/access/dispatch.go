package access

import "sync"

// Message is a parsed access-layer message: the opcode plus its
// parameters.
type Message struct {
	Opcode Opcode
	Params []byte
}

// ModelDelegate is implemented by a Mesh model to receive dispatched
// messages for the opcodes it registers. Grounded on the teacher's
// pkg/service/interfaces.go idiom of small, handler-shaped interfaces
// satisfied by one concrete type per role.
type ModelDelegate interface {
	// HandleMessage processes an inbound message addressed to this
	// model's element. If the message is acknowledged, the returned
	// Message (non-nil) is enqueued as the reply with the same key set
	// the request arrived under.
	HandleMessage(msg Message, src, dst uint16) (*Message, error)
}

// DispatchTable maps (element address, opcode) pairs to the model that
// handles them.
type DispatchTable struct {
	mu       sync.RWMutex
	elements map[uint16]map[uint32]ModelDelegate
}

// NewDispatchTable creates an empty table.
func NewDispatchTable() *DispatchTable {
	return &DispatchTable{elements: make(map[uint16]map[uint32]ModelDelegate)}
}

// RegisterModel binds a model delegate to every opcode it declares on
// one element.
func (d *DispatchTable) RegisterModel(elementAddr uint16, opcodes []uint32, delegate ModelDelegate) {
	d.mu.Lock()
	defer d.mu.Unlock()

	models, ok := d.elements[elementAddr]
	if !ok {
		models = make(map[uint32]ModelDelegate)
		d.elements[elementAddr] = models
	}
	for _, op := range opcodes {
		models[op] = delegate
	}
}

// Dispatch parses the opcode from an access PDU, looks up the model
// bound to (dst, opcode), and invokes it.
func (d *DispatchTable) Dispatch(pdu []byte, src, dst uint16) (*Message, error) {
	opcode, params, err := ParseOpcode(pdu)
	if err != nil {
		return nil, err
	}

	d.mu.RLock()
	models, elementExists := d.elements[dst]
	var delegate ModelDelegate
	var handled bool
	if elementExists {
		delegate, handled = models[opcode.Value]
	}
	d.mu.RUnlock()

	if !elementExists {
		return nil, ErrNoElement
	}
	if !handled {
		return nil, ErrOpcodeNotHandled
	}

	msg := Message{Opcode: opcode, Params: params}
	return delegate.HandleMessage(msg, src, dst)
}
