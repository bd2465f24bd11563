package manager

import (
	"github.com/meshcore/mesh-go/pkg/access"
	"github.com/meshcore/mesh-go/pkg/beacon"
	"github.com/meshcore/mesh-go/pkg/bearer"
	"github.com/meshcore/mesh-go/pkg/log"
	"github.com/meshcore/mesh-go/pkg/lowertransport"
	"github.com/meshcore/mesh-go/pkg/network"
	"github.com/meshcore/mesh-go/pkg/uppertransport"
)

// handleInboundPDU is the Bearer's single inbound entry point, routing
// on PduType to the layer that owns it (spec.md §6).
func (m *Manager) handleInboundPDU(pdu []byte, typ bearer.PduType) {
	switch typ {
	case bearer.PduTypeNetwork:
		m.handleNetworkPDU(pdu)
	case bearer.PduTypeMeshBeacon:
		m.handleBeaconPDU(pdu)
	case bearer.PduTypeProvisioning:
		m.handleProvisioningPDU(pdu)
	case bearer.PduTypeProxyConfiguration:
		m.handleProxyConfigPDU(pdu)
	}
}

func (m *Manager) handleNetworkPDU(pdu []byte) {
	decoded, err := m.netLayer.Decode(pdu)
	if err != nil {
		m.logError(log.LayerNetwork, "decode network pdu", err)
		return
	}

	m.logEvent(log.Event{
		Direction: log.DirectionIn,
		Layer:     log.LayerNetwork,
		Category:  log.CategoryMessage,
		Frame:     &log.FrameEvent{Size: len(pdu)},
	})

	if decoded.Control {
		m.handleControlTransportPDU(decoded)
		return
	}
	m.handleAccessTransportPDU(decoded)
}

func (m *Manager) handleAccessTransportPDU(decoded *network.InboundPDU) {
	tp := decoded.TransportPDU
	if len(tp) == 0 {
		return
	}

	if tp[0]&0x80 != 0 {
		seg, err := lowertransport.DecodeAccessSegment(tp)
		if err != nil {
			m.logError(log.LayerLowerTransport, "decode access segment", err)
			return
		}
		key := segKey{src: decoded.Src, seqZero: seg.Header.SeqZero}
		if seg.Header.SegO == 0 {
			m.mu.Lock()
			m.firstSegSeq[key] = firstSegInfo{seq: decoded.Seq, netKeyIndex: decoded.NetKeyIndex}
			m.mu.Unlock()
		}
		m.reassembler.ReceiveSegment(decoded.Src, decoded.Dst, decoded.TTL, *seg)
		return
	}

	u, err := lowertransport.DecodeUnsegmentedAccessPDU(tp)
	if err != nil {
		m.logError(log.LayerLowerTransport, "decode unsegmented access pdu", err)
		return
	}
	m.deliverAccessPayload(decoded.Src, decoded.Dst, decoded.Seq, decoded.NetKeyIndex, u.AKF, u.AID, false, u.Payload)
}

func (m *Manager) handleControlTransportPDU(decoded *network.InboundPDU) {
	tp := decoded.TransportPDU
	if len(tp) == 0 {
		return
	}

	if tp[0]&0x80 != 0 {
		// Segmented control PDUs (friend poll/update/clear, large
		// heartbeat subscription bookkeeping) are out of scope: Segment
		// Ack and Heartbeat, the two control messages this stack
		// originates and consumes, are always single-segment.
		return
	}

	u, err := lowertransport.DecodeUnsegmentedControlPDU(tp)
	if err != nil {
		m.logError(log.LayerLowerTransport, "decode unsegmented control pdu", err)
		return
	}

	switch u.Opcode {
	case lowertransport.SegmentAckOpcode:
		m.handleSegmentAck(u.Payload)
	case lowertransport.HeartbeatOpcode:
		m.handleHeartbeat(decoded.Src, decoded.TTL, u.Payload)
	}
}

func (m *Manager) handleSegmentAck(payload []byte) {
	ack, err := lowertransport.DecodeSegmentAck(payload)
	if err != nil {
		m.logError(log.LayerLowerTransport, "decode segment ack", err)
		return
	}
	m.logEvent(log.Event{
		Direction:  log.DirectionIn,
		Layer:      log.LayerLowerTransport,
		Category:   log.CategoryControl,
		ControlMsg: &log.ControlMsgEvent{Type: log.ControlMsgSegmentAck, Obo: ack.OBO},
	})
	m.sar.HandleAck(ack.SeqZero, *ack)
}

func (m *Manager) handleHeartbeat(src uint16, rxTTL uint8, payload []byte) {
	hb, err := lowertransport.DecodeHeartbeatMessage(payload)
	if err != nil {
		m.logError(log.LayerLowerTransport, "decode heartbeat", err)
		return
	}
	m.logEvent(log.Event{
		Direction:  log.DirectionIn,
		Layer:      log.LayerLowerTransport,
		Category:   log.CategoryControl,
		ControlMsg: &log.ControlMsgEvent{Type: log.ControlMsgHeartbeat},
	})

	m.mu.Lock()
	handler := m.heartbeatHandler
	m.mu.Unlock()
	if handler != nil {
		handler(src, *hb, rxTTL)
	}
}

// handleReassembledAccess is the Reassembler's OnComplete callback: the
// upper-transport nonce for a segmented message uses the SEQ recorded
// when its first segment (SegO=0) arrived, not the SEQ of whichever
// segment happened to complete the transaction.
func (m *Manager) handleReassembledAccess(msg lowertransport.ReassembledMessage) {
	key := segKey{src: msg.Src, seqZero: msg.SeqZero}
	m.mu.Lock()
	info, ok := m.firstSegSeq[key]
	if ok {
		delete(m.firstSegSeq, key)
	}
	m.mu.Unlock()

	if !ok {
		m.logError(log.LayerLowerTransport, "reassembled message", errUnknownSegment)
		return
	}
	m.deliverAccessPayload(msg.Src, msg.Dst, info.seq, info.netKeyIndex, msg.AKF, msg.AID, msg.SZMIC, msg.Payload)
}

// handleAckDue is the Reassembler's OnAckDue callback.
func (m *Manager) handleAckDue(src uint16, ack lowertransport.SegmentAck, destIsUnicast bool) {
	if !destIsUnicast {
		return
	}
	netKeyIndex := m.firstSegNetKeyIndex(src, ack.SeqZero)
	pdu := lowertransport.UnsegmentedControlPDU{Opcode: lowertransport.SegmentAckOpcode, Payload: ack.Encode()}.Encode()
	out, err := m.netLayer.Encode(netKeyIndex, true, m.defaultTTL, m.primaryElement(), src, pdu)
	if err != nil {
		m.logError(log.LayerLowerTransport, "encode segment ack", err)
		return
	}
	if err := m.bearer.Send(out.Bytes, bearer.PduTypeNetwork); err != nil {
		m.logError(log.LayerLowerTransport, "send segment ack", err)
	}
}

// firstSegNetKeyIndex looks up the subnet a segmented message's first
// segment arrived on, falling back to the default subnet for an ack
// sent after the transaction already completed and was cleaned up.
func (m *Manager) firstSegNetKeyIndex(src uint16, seqZero uint16) uint16 {
	m.mu.Lock()
	defer m.mu.Unlock()
	if info, ok := m.firstSegSeq[segKey{src: src, seqZero: seqZero}]; ok {
		return info.netKeyIndex
	}
	return m.defaultNetKeyIndex
}

// handleReassemblyDrop is the Reassembler's OnDrop callback.
func (m *Manager) handleReassemblyDrop(src uint16, seqZero uint16) {
	m.mu.Lock()
	delete(m.firstSegSeq, segKey{src: src, seqZero: seqZero})
	m.mu.Unlock()

	m.logEvent(log.Event{
		Direction: log.DirectionIn,
		Layer:     log.LayerLowerTransport,
		Category:  log.CategoryState,
		StateChange: &log.StateChangeEvent{
			Entity:   log.StateEntitySAR,
			NewState: "dropped",
			Reason:   "incomplete reassembly timeout",
		},
	})
}

func (m *Manager) handleBeaconPDU(pdu []byte) {
	b, err := beacon.Decode(pdu)
	if err != nil {
		m.logError(log.LayerBeacon, "decode beacon", err)
		return
	}

	current, _, ok := m.keys.NetworkKeyByNetworkID(b.NetworkID)
	if !ok {
		return // not a subnet this node has a NetKey for
	}

	if _, err := beacon.Verify(b, current); err != nil {
		m.logError(log.LayerBeacon, "verify beacon", err)
		return
	}

	if err := m.beaconFSM.Accept(beacon.State{Value: b.IVIndex, Active: b.IVUpdateActive()}); err != nil {
		m.logError(log.LayerBeacon, "accept beacon iv state", err)
	}
}

func (m *Manager) handleProvisioningPDU(pdu []byte) {
	m.mu.Lock()
	fsm := m.prov
	m.mu.Unlock()

	if fsm == nil {
		m.logError(log.LayerProvisioning, "inbound provisioning pdu", ErrNoProvisioningSession)
		return
	}
	if err := fsm.HandleInboundPDU(pdu); err != nil {
		m.logError(log.LayerProvisioning, "handle inbound provisioning pdu", err)
	}
}

// handleProxyConfigPDU logs inbound Proxy Configuration messages. This
// stack does not act as a GATT proxy server and carries no proxy filter
// list to update, so there is nothing further to do with one.
func (m *Manager) handleProxyConfigPDU(pdu []byte) {
	m.logEvent(log.Event{
		Direction: log.DirectionIn,
		Layer:     log.LayerNetwork,
		Category:  log.CategoryMessage,
		Frame:     &log.FrameEvent{Size: len(pdu)},
	})
}

// deliverAccessPayload decrypts one access-layer payload (unsegmented or
// reassembled), notifies the Delegate, dispatches it to any registered
// model, and sends back the model's reply (if any) under the same key
// set (spec.md §4.E/§4.F).
func (m *Manager) deliverAccessPayload(src, dst uint16, seq uint32, netKeyIndex uint16, akf bool, aid byte, szmic bool, ciphertext []byte) {
	base := uppertransport.DecryptParams{
		Seq: seq, Src: src, Dst: dst, IVIndex: m.keys.IVIndex().Value, SZMIC: szmic,
		Ciphertext: ciphertext,
	}

	var plaintext []byte
	var err error
	var appKeyIndexPtr *uint16
	devKey := false

	if akf {
		var idx uint16
		plaintext, idx, err = uppertransport.DecryptWithAppKeyCandidates(m.keys.AppKeysByAID(netKeyIndex, aid), aid, base)
		if err == nil {
			appKeyIndexPtr = &idx
		}
	} else {
		dk, ok := m.keys.DeviceKeyByAddr(src)
		if !ok {
			err = uppertransport.ErrNoMatchingKey
		} else {
			plaintext, err = uppertransport.DecryptWithDeviceKey(dk, base)
			devKey = true
		}
	}

	if err != nil {
		m.logError(log.LayerUpperTransport, "decrypt access payload", err)
		return
	}

	opcode, params, err := access.ParseOpcode(plaintext)
	if err != nil {
		m.logError(log.LayerAccess, "parse opcode", err)
		return
	}

	m.notify(func() {
		m.delegate.OnMessageReceived(ReceivedMessage{
			Src: src, Dst: dst, Opcode: opcode, Params: params,
			AppKeyIndex: appKeyIndexPtr, DevKey: devKey, NetKeyIndex: netKeyIndex,
		})
	})

	resp, err := m.dispatch.Dispatch(plaintext, src, dst)
	if err != nil || resp == nil {
		return
	}

	keySet := access.KeySet{NetKeyIndex: netKeyIndex, DeviceKey: devKey}
	if appKeyIndexPtr != nil {
		keySet.AppKeyIndex = *appKeyIndexPtr
	}
	if _, err := m.sendAccessMessage(src, keySet, resp.Opcode, resp.Params, 0); err != nil {
		m.logError(log.LayerAccess, "send dispatch reply", err)
	}
}
