// Package access implements the Bluetooth Mesh access layer: opcode
// parsing, model dispatch by (element, opcode), an outbound per-
// destination message queue with cancellation, and acknowledged-message
// correlation and timeout tracking.
package access
