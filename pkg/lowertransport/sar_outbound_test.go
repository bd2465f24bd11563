package lowertransport

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSAR_CompletesOnFullAck(t *testing.T) {
	s := NewSAR()

	var mu sync.Mutex
	sent := map[uint8][]byte{}

	done := make(chan error, 1)
	s.SendSegmented(0x0001, 0, 0x0001, 1,
		[][]byte{[]byte("seg0"), []byte("seg1")},
		func(idx uint8, data []byte) {
			mu.Lock()
			sent[idx] = data
			mu.Unlock()
		},
		func(err error) { done <- err })

	time.Sleep(50 * time.Millisecond)
	mu.Lock()
	require.Len(t, sent, 2)
	mu.Unlock()

	s.HandleAck(0x0001, SegmentAck{SeqZero: 0x0001, Block: 0b11})

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("transmission never completed")
	}
}

func TestSAR_BusyAckAbortsWithoutRetry(t *testing.T) {
	s := NewSAR()
	done := make(chan error, 1)

	s.SendSegmented(0x0001, 0, 0x0002, 0,
		[][]byte{[]byte("seg0")},
		func(uint8, []byte) {},
		func(err error) { done <- err })

	time.Sleep(20 * time.Millisecond)
	s.HandleAck(0x0002, SegmentAck{OBO: true, SeqZero: 0x0002, Block: 0})

	select {
	case err := <-done:
		assert.ErrorIs(t, err, ErrBusy)
	case <-time.After(time.Second):
		t.Fatal("busy ack did not abort transmission")
	}
}

func TestSAR_RetransmitsMissingSegmentsThenTimesOut(t *testing.T) {
	s := NewSAR()
	s.SetRetransmitLimit(1)

	var mu sync.Mutex
	sendCount := map[uint8]int{}

	done := make(chan error, 1)
	s.SendSegmented(0x0001, 0, 0x0003, 1,
		[][]byte{[]byte("seg0"), []byte("seg1")},
		func(idx uint8, data []byte) {
			mu.Lock()
			sendCount[idx]++
			mu.Unlock()
		},
		func(err error) { done <- err })

	// Never ack any segment; wait past the ack timer (200ms) and the
	// single retransmit round, then past the final ack timer.
	select {
	case err := <-done:
		assert.ErrorIs(t, err, ErrTimeout)
	case <-time.After(2 * time.Second):
		t.Fatal("transmission never timed out")
	}

	mu.Lock()
	assert.GreaterOrEqual(t, sendCount[1], 2, "unacked segment should have been retransmitted")
	mu.Unlock()
}

func TestSAR_CancelStopsTimer(t *testing.T) {
	s := NewSAR()
	done := make(chan error, 1)
	s.SendSegmented(0x0001, 0, 0x0004, 0,
		[][]byte{[]byte("seg0")},
		func(uint8, []byte) {},
		func(err error) { done <- err })

	s.Cancel(0x0004)

	select {
	case <-done:
		t.Fatal("done should not fire after Cancel")
	case <-time.After(300 * time.Millisecond):
	}
}
