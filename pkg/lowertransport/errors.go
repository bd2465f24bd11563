package lowertransport

import "errors"

var (
	// ErrTimeout is surfaced when an outbound segmented message exhausts
	// its retransmission limit without a full block-ack.
	ErrTimeout = errors.New("lowertransport: segmented message timed out")

	// ErrBusy is surfaced when the peer responds with a BusyAck; the
	// message is not retried.
	ErrBusy = errors.New("lowertransport: peer busy, segmented message aborted")

	errPDUTooShort  = errors.New("lowertransport: PDU too short")
	errSegOutOfRange = errors.New("lowertransport: segment offset exceeds SegN")
	errUnknownSeqZero = errors.New("lowertransport: segment ack for unknown SeqZero")
)
