package lowertransport

import (
	"sync"
	"time"
)

// DefaultRetransmitLimit is the number of additional retransmission
// rounds attempted after the first send before a segmented message gives
// up with ErrTimeout (spec.md §4.D).
const DefaultRetransmitLimit = 2

// SegmentPacingInterval is the delay between consecutive segment sends
// within one transmission round, avoiding back-to-back radio congestion.
const SegmentPacingInterval = 20 * time.Millisecond

// ackTimerDelayOutbound returns the outbound ack timer delay:
// max(200ms, 200+50*TTL ms).
func ackTimerDelayOutbound(ttl uint8) time.Duration {
	d := 200*time.Millisecond + time.Duration(ttl)*50*time.Millisecond
	if d < 200*time.Millisecond {
		return 200 * time.Millisecond
	}
	return d
}

// outboundTransmit is one in-flight segmented transmission: its encoded
// segments and which of them have been acknowledged.
type outboundTransmit struct {
	mu sync.Mutex

	dst      uint16
	ttl      uint8
	seqZero  uint16
	segN     uint8
	segments [][]byte

	acked       map[uint8]bool
	retriesLeft int

	ackTimer *time.Timer

	send func(segIndex uint8, data []byte)
	done func(error)
}

// SAR drives outbound segmentation-and-reassembly: it sends every
// segment of a message with SegmentPacingInterval spacing, waits for a
// block-ack, retransmits unacknowledged segments up to the configured
// retransmit limit, and resolves the caller's done callback with nil,
// ErrBusy, or ErrTimeout. Grounded on pkg/pase/window.go's single-timer
// state shape and pkg/connection/backoff.go's bounded-retry idiom.
type SAR struct {
	mu         sync.Mutex
	transmits  map[uint16]*outboundTransmit
	retryLimit int
}

// NewSAR creates a SAR with DefaultRetransmitLimit.
func NewSAR() *SAR {
	return &SAR{
		transmits:  make(map[uint16]*outboundTransmit),
		retryLimit: DefaultRetransmitLimit,
	}
}

// SetRetransmitLimit overrides the number of additional retransmission
// rounds attempted.
func (s *SAR) SetRetransmitLimit(n int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.retryLimit = n
}

// SendSegmented begins transmitting a segmented message. send is called
// once per segment per round (paced by SegmentPacingInterval); done is
// called exactly once, with nil on success.
func (s *SAR) SendSegmented(dst uint16, ttl uint8, seqZero uint16, segN uint8, segments [][]byte, send func(segIndex uint8, data []byte), done func(error)) {
	s.mu.Lock()
	t := &outboundTransmit{
		dst: dst, ttl: ttl, seqZero: seqZero, segN: segN,
		segments:    segments,
		acked:       make(map[uint8]bool),
		retriesLeft: s.retryLimit,
		send:        send,
		done:        done,
	}
	s.transmits[seqZero] = t
	s.mu.Unlock()

	s.sendRound(t, allIndexes(segN))
}

// sendRound transmits the given segment indexes with pacing, then arms
// the ack timer.
func (s *SAR) sendRound(t *outboundTransmit, indexes []uint8) {
	s.paceSend(t, indexes, 0)
}

func (s *SAR) paceSend(t *outboundTransmit, indexes []uint8, i int) {
	if i >= len(indexes) {
		t.mu.Lock()
		seqZero := t.seqZero
		ttl := t.ttl
		t.ackTimer = time.AfterFunc(ackTimerDelayOutbound(ttl), func() {
			s.handleAckTimeout(seqZero)
		})
		t.mu.Unlock()
		return
	}

	idx := indexes[i]
	t.mu.Lock()
	data := t.segments[idx]
	sendFn := t.send
	t.mu.Unlock()

	sendFn(idx, data)

	if i+1 < len(indexes) {
		time.AfterFunc(SegmentPacingInterval, func() {
			s.paceSend(t, indexes, i+1)
		})
	} else {
		s.paceSend(t, indexes, i+1)
	}
}

func allIndexes(segN uint8) []uint8 {
	out := make([]uint8, 0, int(segN)+1)
	for i := uint8(0); i <= segN; i++ {
		out = append(out, i)
	}
	return out
}

// HandleAck processes an inbound Segment Acknowledgment for an
// in-flight transmission.
func (s *SAR) HandleAck(seqZero uint16, ack SegmentAck) {
	s.mu.Lock()
	t, ok := s.transmits[seqZero]
	s.mu.Unlock()
	if !ok {
		return
	}

	if ack.IsBusyAck() {
		s.finish(seqZero, t, ErrBusy)
		return
	}

	t.mu.Lock()
	if t.ackTimer != nil {
		t.ackTimer.Stop()
	}
	for i := uint8(0); i <= t.segN; i++ {
		if ack.Block&(1<<i) != 0 {
			t.acked[i] = true
		}
	}
	complete := IsComplete(blockFromAcked(t.acked, t.segN), t.segN)
	t.mu.Unlock()

	if complete {
		s.finish(seqZero, t, nil)
		return
	}

	s.retransmitMissing(t)
}

func blockFromAcked(acked map[uint8]bool, segN uint8) uint32 {
	return BlockAckBitmap(segN, acked)
}

func (s *SAR) retransmitMissing(t *outboundTransmit) {
	t.mu.Lock()
	if t.retriesLeft <= 0 {
		t.mu.Unlock()
		s.finish(t.seqZero, t, ErrTimeout)
		return
	}
	t.retriesLeft--
	var missing []uint8
	for i := uint8(0); i <= t.segN; i++ {
		if !t.acked[i] {
			missing = append(missing, i)
		}
	}
	t.mu.Unlock()

	s.sendRound(t, missing)
}

func (s *SAR) handleAckTimeout(seqZero uint16) {
	s.mu.Lock()
	t, ok := s.transmits[seqZero]
	s.mu.Unlock()
	if !ok {
		return
	}
	s.retransmitMissing(t)
}

func (s *SAR) finish(seqZero uint16, t *outboundTransmit, err error) {
	s.mu.Lock()
	delete(s.transmits, seqZero)
	s.mu.Unlock()

	t.mu.Lock()
	if t.ackTimer != nil {
		t.ackTimer.Stop()
	}
	doneFn := t.done
	t.mu.Unlock()

	if doneFn != nil {
		doneFn(err)
	}
}

// Cancel aborts an in-flight transmission without invoking done.
func (s *SAR) Cancel(seqZero uint16) {
	s.mu.Lock()
	t, ok := s.transmits[seqZero]
	if ok {
		delete(s.transmits, seqZero)
	}
	s.mu.Unlock()
	if !ok {
		return
	}
	t.mu.Lock()
	if t.ackTimer != nil {
		t.ackTimer.Stop()
	}
	t.mu.Unlock()
}
