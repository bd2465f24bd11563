package lowertransport

import (
	"sync"
	"time"
)

// DefaultIncompleteTimeout is the minimum time a partially-reassembled
// message is kept before being dropped without an ack (spec.md §4.D).
const DefaultIncompleteTimeout = 10 * time.Second

// ackTimerDelay returns the inbound ack timer delay: max(150ms, 150+50*TTL ms).
func ackTimerDelay(ttl uint8) time.Duration {
	d := 150*time.Millisecond + time.Duration(ttl)*50*time.Millisecond
	if d < 150*time.Millisecond {
		return 150 * time.Millisecond
	}
	return d
}

type reassemblyKey struct {
	src     uint16
	seqZero uint16
}

// ReassembledMessage is delivered once every segment of a message has
// arrived.
type ReassembledMessage struct {
	Src     uint16
	Dst     uint16
	AKF     bool
	AID     byte
	SZMIC   bool
	Payload []byte

	// SeqZero identifies the transaction, needed by the caller to look up
	// the sequence number of the first segment for upper-transport nonce
	// reconstruction (spec.md §4.D/§4.E).
	SeqZero uint16
}

type reassemblyEntry struct {
	mu sync.Mutex

	src, dst uint16
	ttl      uint8
	akf      bool
	aid      byte
	szmic    bool
	segN     uint8
	segments map[uint8][]byte

	incompleteTimer *time.Timer
	ackTimer        *time.Timer
}

// Reassembler holds one reassemblyEntry per (src, SeqZero) in flight and
// drives the incomplete/ack timer pair from spec.md §4.D, grounded on
// pkg/pase/window.go's single-timer-field, reset-on-activity state
// machine shape.
type Reassembler struct {
	mu      sync.Mutex
	entries map[reassemblyKey]*reassemblyEntry

	incompleteTimeout time.Duration

	onComplete func(ReassembledMessage)
	onAckDue   func(src uint16, ack SegmentAck, destIsUnicast bool)
	onDrop     func(src uint16, seqZero uint16)
}

// NewReassembler creates a Reassembler using DefaultIncompleteTimeout.
func NewReassembler() *Reassembler {
	return &Reassembler{
		entries:           make(map[reassemblyKey]*reassemblyEntry),
		incompleteTimeout: DefaultIncompleteTimeout,
	}
}

// SetIncompleteTimeout overrides the incomplete-message timeout; spec.md
// requires at least DefaultIncompleteTimeout.
func (r *Reassembler) SetIncompleteTimeout(d time.Duration) {
	if d < DefaultIncompleteTimeout {
		d = DefaultIncompleteTimeout
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.incompleteTimeout = d
}

// OnComplete registers the callback invoked once a message fully
// reassembles.
func (r *Reassembler) OnComplete(fn func(ReassembledMessage)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.onComplete = fn
}

// OnAckDue registers the callback invoked when a block-ack should be
// sent, either because the bitmap filled or the ack timer fired.
// destIsUnicast tells the caller whether to actually transmit it (group
// and virtual destinations never get an ack, per spec.md §4.D).
func (r *Reassembler) OnAckDue(fn func(src uint16, ack SegmentAck, destIsUnicast bool)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.onAckDue = fn
}

// OnDrop registers the callback invoked when the incomplete timer fires.
func (r *Reassembler) OnDrop(fn func(src uint16, seqZero uint16)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.onDrop = fn
}

// ReceiveSegment processes one inbound segment of an access message.
func (r *Reassembler) ReceiveSegment(src, dst uint16, ttl uint8, seg AccessSegment) {
	key := reassemblyKey{src: src, seqZero: seg.Header.SeqZero}

	r.mu.Lock()
	entry, ok := r.entries[key]
	if !ok {
		entry = &reassemblyEntry{
			src: src, dst: dst, ttl: ttl,
			akf: seg.AKF, aid: seg.AID, szmic: seg.Header.SZMIC,
			segN:     seg.Header.SegN,
			segments: make(map[uint8][]byte),
		}
		r.entries[key] = entry
		entry.incompleteTimer = time.AfterFunc(r.incompleteTimeout, func() {
			r.handleIncompleteTimeout(key)
		})
	}
	r.mu.Unlock()

	entry.mu.Lock()
	entry.segments[seg.Header.SegO] = seg.Payload
	complete := IsComplete(BlockAckBitmap(entry.segN, receivedSet(entry.segments)), entry.segN)

	if entry.ackTimer != nil {
		entry.ackTimer.Stop()
	}
	if complete {
		entry.ackTimer = nil
	} else {
		entry.ackTimer = time.AfterFunc(ackTimerDelay(ttl), func() {
			r.emitAck(key)
		})
	}
	entry.mu.Unlock()

	if complete {
		r.finish(key, entry)
	}
}

func receivedSet(segments map[uint8][]byte) map[uint8]bool {
	out := make(map[uint8]bool, len(segments))
	for seg := range segments {
		out[seg] = true
	}
	return out
}

func (r *Reassembler) finish(key reassemblyKey, entry *reassemblyEntry) {
	entry.mu.Lock()
	if entry.incompleteTimer != nil {
		entry.incompleteTimer.Stop()
	}
	payload := make([]byte, 0, int(entry.segN+1)*MaxSegmentPayload)
	for i := uint8(0); i <= entry.segN; i++ {
		payload = append(payload, entry.segments[i]...)
	}
	msg := ReassembledMessage{
		Src: entry.src, Dst: entry.dst,
		AKF: entry.akf, AID: entry.aid, SZMIC: entry.szmic,
		Payload: payload,
		SeqZero: key.seqZero,
	}
	entry.mu.Unlock()

	r.mu.Lock()
	delete(r.entries, key)
	onComplete := r.onComplete
	onAckDue := r.onAckDue
	r.mu.Unlock()

	if onAckDue != nil {
		onAckDue(entry.src, SegmentAck{SeqZero: key.seqZero, Block: fullBlock(entry.segN)}, isUnicast(entry.dst))
	}
	if onComplete != nil {
		onComplete(msg)
	}
}

func (r *Reassembler) emitAck(key reassemblyKey) {
	r.mu.Lock()
	entry, ok := r.entries[key]
	onAckDue := r.onAckDue
	r.mu.Unlock()
	if !ok {
		return
	}

	entry.mu.Lock()
	block := BlockAckBitmap(entry.segN, receivedSet(entry.segments))
	dst := entry.dst
	entry.mu.Unlock()

	if onAckDue != nil {
		onAckDue(entry.src, SegmentAck{SeqZero: key.seqZero, Block: block}, isUnicast(dst))
	}
}

func (r *Reassembler) handleIncompleteTimeout(key reassemblyKey) {
	r.mu.Lock()
	entry, ok := r.entries[key]
	if ok {
		delete(r.entries, key)
	}
	onDrop := r.onDrop
	r.mu.Unlock()
	if !ok {
		return
	}
	entry.mu.Lock()
	if entry.ackTimer != nil {
		entry.ackTimer.Stop()
	}
	entry.mu.Unlock()

	if onDrop != nil {
		onDrop(key.src, key.seqZero)
	}
}

func fullBlock(segN uint8) uint32 {
	return uint32(1)<<(uint32(segN)+1) - 1
}

func isUnicast(addr uint16) bool {
	return addr >= 0x0001 && addr <= 0x7FFF
}
