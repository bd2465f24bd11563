package access

import "sync"

// SendFunc hands one queued message's id, destination, and payload to
// the lower layers (typically the outbound SAR) for transmission.
type SendFunc func(id uint64, dst uint16, payload []byte)

type queuedMessage struct {
	id       uint64
	dst      uint16
	payload  []byte
	onFailed func(error)
}

// Queue is a per-destination outbound FIFO: only the message at the
// head of each destination's queue is in flight at a time, matching the
// outbound SAR's single-transmission-per-destination model (spec.md
// §4.F). Grounded on pkg/connection's mutex-guarded-state-plus-callback
// shape, adapted from per-connection state to per-destination queues.
type Queue struct {
	mu      sync.Mutex
	nextID  uint64
	pending map[uint16][]*queuedMessage
	send    SendFunc
}

// NewQueue creates a Queue that invokes send whenever a message becomes
// the head of its destination's queue.
func NewQueue(send SendFunc) *Queue {
	return &Queue{pending: make(map[uint16][]*queuedMessage), send: send}
}

// MessageHandle is returned synchronously from Enqueue for cancellation.
type MessageHandle struct {
	id    uint64
	queue *Queue
}

// ID returns the handle's internal message ID.
func (h *MessageHandle) ID() uint64 { return h.id }

// Cancel removes the message from its destination queue, whether it is
// the in-flight head or still waiting, and onFailed (if any) fires with
// ErrCancelled. If it was the head of the queue, the next message is
// sent.
func (h *MessageHandle) Cancel() {
	h.queue.cancel(h.id)
}

// Enqueue appends a message to dst's FIFO. If the queue for dst was
// empty, the message is sent immediately.
func (q *Queue) Enqueue(dst uint16, payload []byte, onFailed func(error)) *MessageHandle {
	q.mu.Lock()
	q.nextID++
	id := q.nextID
	msg := &queuedMessage{id: id, dst: dst, payload: payload, onFailed: onFailed}
	q.pending[dst] = append(q.pending[dst], msg)
	isHead := len(q.pending[dst]) == 1
	sendFn := q.send
	q.mu.Unlock()

	if isHead && sendFn != nil {
		sendFn(id, dst, payload)
	}
	return &MessageHandle{id: id, queue: q}
}

// Complete marks the in-flight message id as successfully delivered and
// advances its destination's queue.
func (q *Queue) Complete(id uint64) {
	q.advance(id, nil)
}

// Fail marks the in-flight message id as failed, invoking its onFailed
// callback with err, and advances its destination's queue.
func (q *Queue) Fail(id uint64, err error) {
	q.advance(id, err)
}

func (q *Queue) advance(id uint64, err error) {
	q.mu.Lock()
	var found *queuedMessage
	var dst uint16
	for d, list := range q.pending {
		if len(list) > 0 && list[0].id == id {
			found = list[0]
			dst = d
			q.pending[d] = list[1:]
			break
		}
	}
	var next *queuedMessage
	if found != nil && len(q.pending[dst]) > 0 {
		next = q.pending[dst][0]
	}
	sendFn := q.send
	q.mu.Unlock()

	if found == nil {
		return
	}
	if err != nil && found.onFailed != nil {
		found.onFailed(err)
	}
	if next != nil && sendFn != nil {
		sendFn(next.id, next.dst, next.payload)
	}
}

func (q *Queue) cancel(id uint64) {
	q.mu.Lock()
	var found *queuedMessage
	var dst uint16
	var wasHead bool
	for d, list := range q.pending {
		for i, m := range list {
			if m.id == id {
				found = m
				dst = d
				wasHead = i == 0
				q.pending[d] = append(list[:i:i], list[i+1:]...)
				break
			}
		}
		if found != nil {
			break
		}
	}
	var next *queuedMessage
	if found != nil && wasHead && len(q.pending[dst]) > 0 {
		next = q.pending[dst][0]
	}
	sendFn := q.send
	q.mu.Unlock()

	if found == nil {
		return
	}
	if found.onFailed != nil {
		found.onFailed(ErrCancelled)
	}
	if next != nil && sendFn != nil {
		sendFn(next.id, next.dst, next.payload)
	}
}
