package network

import (
	"fmt"

	"github.com/meshcore/mesh-go/pkg/keystore"
)

// Layer ties the network layer's address handling, PDU codec, replay
// cache and sequence-number allocation together into the single
// Encode/Decode surface pkg/manager talks to.
type Layer struct {
	keys      *keystore.Store
	replay    *ReplayCache
	sequencer *Sequencer
}

// NewLayer creates a Layer backed by the given key store. seqStart should
// be restored from persisted state (0 for a fresh node).
func NewLayer(keys *keystore.Store, seqStart uint32) *Layer {
	return &Layer{
		keys:      keys,
		replay:    NewReplayCache(),
		sequencer: NewSequencer(seqStart),
	}
}

// OutboundPDU is what Encode returns: the wire bytes plus the SEQ
// allocated for them, so the caller can record seqAuth for segmentation.
type OutboundPDU struct {
	Bytes         []byte
	Seq           uint32
	NeedsIVUpdate bool
}

// Encode allocates a SEQ, selects transmit key material for netKeyIndex
// and produces a ready-to-send Network PDU.
func (l *Layer) Encode(netKeyIndex uint16, control bool, ttl uint8, src, dst uint16, transportPDU []byte) (*OutboundPDU, error) {
	seq, needsIVUpdate, err := l.sequencer.Next()
	if err != nil {
		return nil, err
	}

	pdu, err := l.EncodeWithSeq(netKeyIndex, control, ttl, src, dst, transportPDU, seq)
	if err != nil {
		return nil, err
	}

	return &OutboundPDU{Bytes: pdu, Seq: seq, NeedsIVUpdate: needsIVUpdate}, nil
}

// ReserveSeq allocates the next SEQ from the sequencer without building a
// PDU. The upper transport's segmentation path needs this: a segmented
// message's nonce is fixed at the SEQ of its first segment, which must be
// known before that segment's Network PDU is built.
func (l *Layer) ReserveSeq() (uint32, bool, error) {
	return l.sequencer.Next()
}

// EncodeWithSeq builds a Network PDU using an already-allocated SEQ,
// for every segment of a segmented message after the first (spec.md
// §4.D): the upper-transport SeqAuth is fixed at the first segment's
// SEQ, but each network PDU still carries its own incrementing SEQ in
// the clear header.
func (l *Layer) EncodeWithSeq(netKeyIndex uint16, control bool, ttl uint8, src, dst uint16, transportPDU []byte, seq uint32) ([]byte, error) {
	nk, ok := l.keys.NetworkKeyByIndex(netKeyIndex)
	if !ok {
		return nil, fmt.Errorf("network: unknown net key index %d", netKeyIndex)
	}
	tx := nk.TransmitKeys()

	ivState := l.keys.IVIndex()
	return Encode(EncodeParams{
		Control:       control,
		TTL:           ttl,
		Seq:           seq,
		Src:           src,
		Dst:           dst,
		TransportPDU:  transportPDU,
		IVIndex:       ivState.TxIVIndex(),
		EncryptionKey: tx.EncryptionKey,
		PrivacyKey:    tx.PrivacyKey,
		NID:           tx.NID,
	})
}

// InboundPDU is what Decode returns on success: the decoded fields plus
// which subnet (NetKey index) matched.
type InboundPDU struct {
	Decoded
	NetKeyIndex uint16
}

// Decode selects the first known NetworkKey whose current or old NID
// matches the PDU, then deobfuscates, decrypts and checks the replay
// cache (spec.md §4.C). Other subnets whose NID also matches are not
// tried.
func (l *Layer) Decode(pdu []byte) (*InboundPDU, error) {
	if len(pdu) < 1 {
		return nil, errPDUTooShort
	}
	nid := pdu[0] & 0x7f

	current, matched, ok := l.keys.NetworkKeyByNID(nid)
	if !ok {
		return nil, errNoMatchingNID
	}

	ivState := l.keys.IVIndex()
	decoded, err := tryDecode(pdu, ivState, matched)
	if err != nil {
		return nil, err
	}

	if !l.replay.Accept(decoded.Src, decoded.Seq, ivState.Value) {
		return nil, ErrReplaySuppressed
	}

	return &InboundPDU{Decoded: *decoded, NetKeyIndex: current.Index}, nil
}

// tryDecode attempts both access (32-bit MIC) and control (64-bit MIC)
// interpretations, since the network layer cannot know which applies
// until decryption succeeds.
func tryDecode(pdu []byte, ivState keystore.IVIndexState, nk *keystore.NetworkKey) (*Decoded, error) {
	for _, control := range []bool{false, true} {
		decoded, err := Decode(DecodeParams{
			PDU:           pdu,
			IVIndex:       ivState.Value,
			EncryptionKey: nk.EncryptionKey,
			PrivacyKey:    nk.PrivacyKey,
			Control:       control,
		})
		if err == nil {
			return decoded, nil
		}
	}
	if ivState.Updating {
		for _, control := range []bool{false, true} {
			decoded, err := Decode(DecodeParams{
				PDU:           pdu,
				IVIndex:       ivState.Value + 1,
				EncryptionKey: nk.EncryptionKey,
				PrivacyKey:    nk.PrivacyKey,
				Control:       control,
			})
			if err == nil {
				return decoded, nil
			}
		}
	}
	return nil, fmt.Errorf("network: decode failed under both access and control MIC sizes")
}
