package lowertransport

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestReassembler_OutOfOrderSegments reproduces the spec.md §8 item 4
// scenario: a two-segment access PDU (SegN=1) delivered out of order
// (segment 1 then segment 0); the reassembled payload must still be
// A‖B and the resulting block-ack bitmap must be 0b11.
func TestReassembler_OutOfOrderSegments(t *testing.T) {
	r := NewReassembler()

	completed := make(chan ReassembledMessage, 1)
	acked := make(chan SegmentAck, 2)

	r.OnComplete(func(msg ReassembledMessage) { completed <- msg })
	r.OnAckDue(func(src uint16, ack SegmentAck, unicast bool) {
		require.True(t, unicast)
		acked <- ack
	})

	payloadA := []byte("ABCDEFGHIJKL") // 12 bytes
	payloadB := []byte("MN")

	segOne := SegmentHeader{SeqZero: 0x0042, SegO: 1, SegN: 1}
	segZero := SegmentHeader{SeqZero: 0x0042, SegO: 0, SegN: 1}

	r.ReceiveSegment(0x0010, 0x0001, 2, AccessSegment{AKF: true, AID: 0x01, Header: segOne, Payload: payloadB})
	r.ReceiveSegment(0x0010, 0x0001, 2, AccessSegment{AKF: true, AID: 0x01, Header: segZero, Payload: payloadA})

	select {
	case msg := <-completed:
		assert.Equal(t, append(append([]byte{}, payloadA...), payloadB...), msg.Payload)
		assert.Equal(t, uint16(0x0010), msg.Src)
	case <-time.After(time.Second):
		t.Fatal("reassembly did not complete")
	}

	select {
	case ack := <-acked:
		assert.Equal(t, uint32(0b11), ack.Block)
		assert.Equal(t, uint16(0x0042), ack.SeqZero)
	case <-time.After(time.Second):
		t.Fatal("no ack emitted on completion")
	}
}

func TestReassembler_IncompleteTimeoutDropsWithoutAck(t *testing.T) {
	r := NewReassembler()
	r.SetIncompleteTimeout(50 * time.Millisecond)

	dropped := make(chan uint16, 1)
	r.OnDrop(func(src uint16, seqZero uint16) { dropped <- seqZero })
	r.OnComplete(func(ReassembledMessage) { t.Fatal("must not complete") })

	r.ReceiveSegment(0x0020, 0x0001, 0, AccessSegment{
		Header:  SegmentHeader{SeqZero: 0x0007, SegO: 0, SegN: 1},
		Payload: []byte("partial"),
	})

	select {
	case seqZero := <-dropped:
		assert.Equal(t, uint16(0x0007), seqZero)
	// A configured 50ms is raised to DefaultIncompleteTimeout, so the wait
	// must outlast that minimum.
	case <-time.After(DefaultIncompleteTimeout + time.Second):
		t.Fatal("incomplete timer never fired")
	}
}

func TestReassembler_GroupDestinationNeverAcked(t *testing.T) {
	r := NewReassembler()

	acked := make(chan bool, 1)
	r.OnAckDue(func(src uint16, ack SegmentAck, unicast bool) { acked <- unicast })

	r.ReceiveSegment(0x0030, 0xC000 /* group address */, 0, AccessSegment{
		Header:  SegmentHeader{SeqZero: 0x0003, SegO: 0, SegN: 0},
		Payload: []byte("x"),
	})

	select {
	case unicast := <-acked:
		assert.False(t, unicast)
	case <-time.After(time.Second):
		t.Fatal("ack callback never fired for single-segment completion")
	}
}
