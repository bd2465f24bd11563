package access

import "errors"

var (
	// ErrCancelled is delivered to a MessageHandle's failure callback when
	// the caller cancels an in-flight outbound message.
	ErrCancelled = errors.New("access: message cancelled")

	// ErrTimeout is delivered when an acknowledged message receives no
	// response within its deadline.
	ErrTimeout = errors.New("access: acknowledged message timed out")

	// ErrNoElement is returned when no element owns the destination
	// address a message is dispatched to.
	ErrNoElement = errors.New("access: no element at destination address")

	// ErrOpcodeNotHandled is returned when the model at the destination
	// element does not declare the received opcode.
	ErrOpcodeNotHandled = errors.New("access: opcode not handled by any model")

	errOpcodeTooShort = errors.New("access: opcode buffer too short")
	errInvalidOpcode  = errors.New("access: invalid 1-byte opcode encoding (0x7F reserved)")
)
