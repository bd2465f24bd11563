package manager

import (
	"github.com/meshcore/mesh-go/pkg/access"
	"github.com/meshcore/mesh-go/pkg/bearer"
	"github.com/meshcore/mesh-go/pkg/crypto"
	"github.com/meshcore/mesh-go/pkg/log"
	"github.com/meshcore/mesh-go/pkg/lowertransport"
	"github.com/meshcore/mesh-go/pkg/uppertransport"
)

// SendParams describes one outbound access-layer message (spec.md §4.F).
type SendParams struct {
	Dst         uint16
	NetKeyIndex uint16
	AppKeyIndex uint16
	DeviceKey   bool
	Opcode      access.Opcode
	Params      []byte

	// TTL, if zero, uses the Manager's configured default.
	TTL uint8
}

// Send encrypts and transmits one access-layer message, returning a
// handle passed to the Delegate's OnMessageDelivered/OnMessageFailed
// once the send resolves: immediately for an unsegmented PDU the bearer
// accepts, or once every segment is acknowledged for a segmented one.
func (m *Manager) Send(p SendParams) (uint64, error) {
	return m.sendAccessMessage(p.Dst, access.KeySet{
		NetKeyIndex: p.NetKeyIndex,
		AppKeyIndex: p.AppKeyIndex,
		DeviceKey:   p.DeviceKey,
	}, p.Opcode, p.Params, p.TTL)
}

func (m *Manager) sendAccessMessage(dst uint16, keys access.KeySet, opcode access.Opcode, params []byte, ttl uint8) (uint64, error) {
	if ttl == 0 {
		ttl = m.defaultTTL
	}

	var key [16]byte
	var aid byte
	if keys.DeviceKey {
		dk, ok := m.keys.DeviceKeyByAddr(dst)
		if !ok {
			return 0, ErrNoDeviceKey
		}
		key = dk.Key
	} else {
		ak, ok := m.keys.AppKeyByIndex(keys.AppKeyIndex)
		if !ok {
			return 0, ErrUnknownAppKey
		}
		key, aid = ak.Key, ak.AID
	}

	seq, _, err := m.netLayer.ReserveSeq()
	if err != nil {
		return 0, err
	}

	// Whether the message will need segmenting is decided on plaintext
	// length, before encryption, since unsegmented PDUs always carry a
	// 32-bit TransMIC while segmented ones use the larger 64-bit TransMIC
	// this stack prefers (spec.md §4.E) — the MIC size has to be fixed
	// before SealCCM runs, not discovered from the ciphertext it produces.
	plaintext := append(opcode.Encode(), params...)
	segmented := len(plaintext)+crypto.MICSizeSmall > lowertransport.MaxUnsegmentedAccessPayload

	ciphertext, err := uppertransport.EncryptAccessPayload(uppertransport.EncryptParams{
		Key: key, DeviceKey: keys.DeviceKey, Seq: seq, SZMIC: segmented,
		Src: m.primaryElement(), Dst: dst, IVIndex: m.keys.IVIndex().Value,
		Plaintext: plaintext,
	})
	if err != nil {
		return 0, err
	}

	action := &pendingOutbound{
		dst: dst, ttl: ttl, netKeyIndex: keys.NetKeyIndex,
		akf: !keys.DeviceKey, aid: aid,
	}

	if !segmented {
		transportPDU := lowertransport.UnsegmentedAccessPDU{AKF: !keys.DeviceKey, AID: aid, Payload: ciphertext}.Encode()
		pdu, err := m.netLayer.EncodeWithSeq(keys.NetKeyIndex, false, ttl, m.primaryElement(), dst, transportPDU, seq)
		if err != nil {
			return 0, err
		}
		action.unsegmentedPDU = pdu
	} else {
		segments := lowertransport.SplitSegments(ciphertext)
		segN := len(segments) - 1
		if segN > lowertransport.MaxSegN {
			return 0, ErrPayloadTooLarge
		}
		action.segmented = true
		action.szmic = true
		action.seq = seq
		action.seqZero = uint16(seq & lowertransport.MaxSeqZero)
		action.segN = uint8(segN)
		action.segmentPayloads = segments
	}

	id := m.registerPending(action)
	handle := m.queue.Enqueue(dst, ciphertext, func(err error) {
		m.mu.Lock()
		delete(m.pending, id)
		m.mu.Unlock()
		m.notify(func() { m.delegate.OnMessageFailed(id, err) })
	})

	m.mu.Lock()
	action.handle = handle
	m.mu.Unlock()

	return id, nil
}

// sendQueuedPayload is access.Queue's SendFunc: it performs the actual
// transmission for whichever action registerPending stored under id.
func (m *Manager) sendQueuedPayload(id uint64, dst uint16, _ []byte) {
	m.mu.Lock()
	action, ok := m.pending[id]
	m.mu.Unlock()
	if !ok {
		return
	}

	if !action.segmented {
		if err := m.bearer.Send(action.unsegmentedPDU, bearer.PduTypeNetwork); err != nil {
			m.finishOutbound(id, err)
			return
		}
		m.finishOutbound(id, nil)
		return
	}

	m.sar.SendSegmented(dst, action.ttl, action.seqZero, action.segN, action.segmentPayloads,
		func(segIndex uint8, data []byte) { m.sendSegment(action, segIndex, data) },
		func(err error) { m.finishOutbound(id, err) },
	)
}

func (m *Manager) sendSegment(action *pendingOutbound, segIndex uint8, data []byte) {
	seq := action.seq
	if segIndex != 0 {
		s, _, err := m.netLayer.ReserveSeq()
		if err != nil {
			m.logError(log.LayerNetwork, "reserve seq for segment retransmit", err)
			return
		}
		seq = s
	}

	seg := lowertransport.AccessSegment{
		AKF: action.akf, AID: action.aid,
		Header: lowertransport.SegmentHeader{
			SZMIC: action.szmic, SeqZero: action.seqZero, SegO: segIndex, SegN: action.segN,
		},
		Payload: data,
	}
	pdu, err := m.netLayer.EncodeWithSeq(action.netKeyIndex, false, action.ttl, m.primaryElement(), action.dst, seg.Encode(), seq)
	if err != nil {
		m.logError(log.LayerNetwork, "encode access segment", err)
		return
	}
	if err := m.bearer.Send(pdu, bearer.PduTypeNetwork); err != nil {
		m.logError(log.LayerNetwork, "send access segment", err)
	}
}

// finishOutbound resolves the queue entry for id and, on success, tells
// the Delegate. Failure notification runs through the onFailed closure
// Enqueue registered, so it isn't duplicated here.
func (m *Manager) finishOutbound(id uint64, err error) {
	m.mu.Lock()
	delete(m.pending, id)
	m.mu.Unlock()

	if err != nil {
		m.queue.Fail(id, err)
		return
	}
	m.queue.Complete(id)
	m.notify(func() { m.delegate.OnMessageDelivered(id) })
}

// Cancel aborts an in-flight outbound message: the SAR transmission, if
// one is running, and the queue entry either way. OnMessageFailed fires
// with access.ErrCancelled.
func (m *Manager) Cancel(id uint64) {
	m.mu.Lock()
	action, ok := m.pending[id]
	m.mu.Unlock()
	if !ok {
		return
	}
	if action.segmented {
		m.sar.Cancel(action.seqZero)
	}
	if action.handle != nil {
		action.handle.Cancel()
	}
}
