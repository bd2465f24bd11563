package network

import "errors"

var (
	errLabelSize       = errors.New("network: virtual address label must be 16 bytes")
	errNoMatchingNID    = errors.New("network: no network key matches PDU NID")
	errPDUTooShort      = errors.New("network: PDU shorter than minimum header+MIC size")
	errSeqExhausted     = errors.New("network: sequence number space exhausted, IV update required")
	errReplaySuppressed = errors.New("network: PDU rejected by replay cache")
)

// ErrSeqExhausted is returned by Sequencer.Next once the 24-bit sequence
// number space for an element has been exhausted under the current IV
// Index (spec.md §4.C).
var ErrSeqExhausted = errSeqExhausted

// ErrReplaySuppressed is returned by Layer.Decode when a PDU fails the
// replay cache check.
var ErrReplaySuppressed = errReplaySuppressed
