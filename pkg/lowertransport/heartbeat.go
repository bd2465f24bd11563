package lowertransport

import (
	"sync"
	"time"
)

// HeartbeatOpcode is the lower transport control opcode for a Heartbeat
// message.
const HeartbeatOpcode = 0x0A

// HeartbeatMessage is the 3-byte Heartbeat control payload:
// InitTTL(1) || Features(2).
type HeartbeatMessage struct {
	InitTTL  uint8
	Features uint16
}

// Encode serializes the Heartbeat payload.
func (h HeartbeatMessage) Encode() []byte {
	return []byte{h.InitTTL, byte(h.Features >> 8), byte(h.Features)}
}

// DecodeHeartbeatMessage parses a 3-byte Heartbeat payload.
func DecodeHeartbeatMessage(b []byte) (*HeartbeatMessage, error) {
	if len(b) < 3 {
		return nil, errPDUTooShort
	}
	return &HeartbeatMessage{
		InitTTL:  b[0],
		Features: uint16(b[1])<<8 | uint16(b[2]),
	}, nil
}

// HopCount derives the number of hops a Heartbeat traveled, given the TTL
// it carried on arrival.
func (h HeartbeatMessage) HopCount(rxTTL uint8) uint8 {
	if h.InitTTL < rxTTL {
		return 0
	}
	return h.InitTTL - rxTTL + 1
}

// HeartbeatPublisher periodically emits Heartbeat messages on a
// configured period and TTL, grounded on pkg/connection/backoff.go's
// periodic-retry idiom reused here for a fixed-period publish loop
// rather than a backoff schedule.
type HeartbeatPublisher struct {
	mu sync.Mutex

	dst      uint16
	netIdx   uint16
	ttl      uint8
	features uint16
	period   time.Duration
	countLeft uint16 // 0 = indefinite (0xFFFF in the wire encoding)

	timer *time.Timer
	send  func(dst uint16, netIdx uint16, ttl uint8, msg HeartbeatMessage)
}

// NewHeartbeatPublisher creates a publisher that is not yet started.
func NewHeartbeatPublisher(send func(dst uint16, netIdx uint16, ttl uint8, msg HeartbeatMessage)) *HeartbeatPublisher {
	return &HeartbeatPublisher{send: send}
}

// Start begins publishing Heartbeats to dst every period, with the given
// TTL and feature bitmap, for count periods (0 means indefinitely).
func (p *HeartbeatPublisher) Start(dst, netIdx uint16, ttl uint8, features uint16, period time.Duration, count uint16) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.timer != nil {
		p.timer.Stop()
	}
	p.dst = dst
	p.netIdx = netIdx
	p.ttl = ttl
	p.features = features
	p.period = period
	p.countLeft = count

	p.timer = time.AfterFunc(period, p.tick)
}

func (p *HeartbeatPublisher) tick() {
	p.mu.Lock()
	if p.countLeft == 1 {
		p.countLeft = 0
		p.timer = nil
		dst, netIdx, ttl, features := p.dst, p.netIdx, p.ttl, p.features
		sendFn := p.send
		p.mu.Unlock()
		if sendFn != nil {
			sendFn(dst, netIdx, ttl, HeartbeatMessage{InitTTL: ttl, Features: features})
		}
		return
	}
	if p.countLeft > 1 {
		p.countLeft--
	}
	dst, netIdx, ttl, features, period := p.dst, p.netIdx, p.ttl, p.features, p.period
	sendFn := p.send
	p.timer = time.AfterFunc(period, p.tick)
	p.mu.Unlock()

	if sendFn != nil {
		sendFn(dst, netIdx, ttl, HeartbeatMessage{InitTTL: ttl, Features: features})
	}
}

// Stop halts publication.
func (p *HeartbeatPublisher) Stop() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.timer != nil {
		p.timer.Stop()
		p.timer = nil
	}
	p.countLeft = 0
}

// HeartbeatSubscription tracks Heartbeats received from a source over a
// subscription period, recording the minimum and maximum hop counts seen
// and expiring after the configured period with no traffic required to
// keep it alive.
type HeartbeatSubscription struct {
	mu sync.Mutex

	src, dst uint16
	count    uint16
	minHops  uint8
	maxHops  uint8

	timer    *time.Timer
	onExpire func()
}

// NewHeartbeatSubscription creates a subscription watching for Heartbeats
// from src addressed to dst, active for period.
func NewHeartbeatSubscription(src, dst uint16, period time.Duration, onExpire func()) *HeartbeatSubscription {
	s := &HeartbeatSubscription{src: src, dst: dst, onExpire: onExpire}
	s.timer = time.AfterFunc(period, s.expire)
	return s
}

// Receive records one observed Heartbeat.
func (s *HeartbeatSubscription) Receive(msg HeartbeatMessage, rxTTL uint8) {
	hops := msg.HopCount(rxTTL)

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.count == 0 || hops < s.minHops {
		s.minHops = hops
	}
	if s.count == 0 || hops > s.maxHops {
		s.maxHops = hops
	}
	s.count++
}

// Stats returns the Heartbeat count and hop range observed so far.
func (s *HeartbeatSubscription) Stats() (count uint16, minHops, maxHops uint8) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.count, s.minHops, s.maxHops
}

func (s *HeartbeatSubscription) expire() {
	s.mu.Lock()
	onExpire := s.onExpire
	s.mu.Unlock()
	if onExpire != nil {
		onExpire()
	}
}

// Cancel stops the subscription timer without invoking onExpire.
func (s *HeartbeatSubscription) Cancel() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.timer != nil {
		s.timer.Stop()
	}
}
