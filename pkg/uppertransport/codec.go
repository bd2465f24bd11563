package uppertransport

import (
	"github.com/meshcore/mesh-go/pkg/crypto"
	"github.com/meshcore/mesh-go/pkg/keystore"
)

// EncryptParams bundles everything needed to seal an access payload
// under either an AppKey or a DevKey.
type EncryptParams struct {
	Key          [16]byte
	DeviceKey    bool // true selects the Device nonce instead of Application
	Seq          uint32
	Src, Dst     uint16
	IVIndex      uint32
	SZMIC        bool   // true selects a 64-bit MIC (segmented messages)
	VirtualLabel []byte // 16-byte AAD when Dst is a virtual address, else nil
	Plaintext    []byte
}

func (p EncryptParams) micSize() int {
	if p.SZMIC {
		return crypto.MICSizeLarge
	}
	return crypto.MICSizeSmall
}

func (p EncryptParams) nonce() []byte {
	np := NonceParams{SZMIC: p.SZMIC, Seq: p.Seq, Src: p.Src, Dst: p.Dst, IVIndex: p.IVIndex}
	if p.DeviceKey {
		return DeviceNonce(np)
	}
	return ApplicationNonce(np)
}

// EncryptAccessPayload seals an access-layer payload, returning
// ciphertext‖MIC ready to hand to the lower transport for segmentation.
func EncryptAccessPayload(p EncryptParams) ([]byte, error) {
	return crypto.SealCCM(p.Key[:], p.nonce(), p.Plaintext, p.VirtualLabel, p.micSize())
}

// DecryptParams mirrors EncryptParams for the receive path.
type DecryptParams struct {
	Key          [16]byte
	DeviceKey    bool
	Seq          uint32
	Src, Dst     uint16
	IVIndex      uint32
	SZMIC        bool
	VirtualLabel []byte
	Ciphertext   []byte
}

func (p DecryptParams) micSize() int {
	if p.SZMIC {
		return crypto.MICSizeLarge
	}
	return crypto.MICSizeSmall
}

func (p DecryptParams) nonce() []byte {
	np := NonceParams{SZMIC: p.SZMIC, Seq: p.Seq, Src: p.Src, Dst: p.Dst, IVIndex: p.IVIndex}
	if p.DeviceKey {
		return DeviceNonce(np)
	}
	return ApplicationNonce(np)
}

// DecryptAccessPayload opens an access-layer payload with one specific
// key.
func DecryptAccessPayload(p DecryptParams) ([]byte, error) {
	return crypto.OpenCCM(p.Key[:], p.nonce(), p.Ciphertext, p.VirtualLabel, p.micSize())
}

// DecryptWithAppKeyCandidates tries every AppKey (current, and old during
// key refresh) matching the access PDU's aid, per spec.md §4.E's "Key
// selection on receive". It returns the plaintext and the AppKey index
// that succeeded.
func DecryptWithAppKeyCandidates(candidates []*keystore.AppKey, aid byte, base DecryptParams) ([]byte, uint16, error) {
	for _, ak := range candidates {
		key, ok := ak.MatchAID(aid)
		if !ok {
			continue
		}
		p := base
		p.Key = key.Key
		p.DeviceKey = false
		if pt, err := DecryptAccessPayload(p); err == nil {
			return pt, ak.Index, nil
		}
	}
	return nil, 0, ErrNoMatchingKey
}

// DecryptWithDeviceKey opens DevKey (AKF=0) access traffic.
func DecryptWithDeviceKey(dk *keystore.DeviceKey, base DecryptParams) ([]byte, error) {
	p := base
	p.Key = dk.Key
	p.DeviceKey = true
	pt, err := DecryptAccessPayload(p)
	if err != nil {
		return nil, ErrNoMatchingKey
	}
	return pt, nil
}

// EncryptProxyConfig seals a Proxy Configuration message under a
// NetworkKey-derived device key, using the Proxy-config nonce
// (spec.md §4.E) which carries no destination address.
func EncryptProxyConfig(key [16]byte, seq uint32, src uint16, ivIndex uint32, plaintext []byte) ([]byte, error) {
	return crypto.SealCCM(key[:], ProxyConfigNonce(seq, src, ivIndex), plaintext, nil, crypto.MICSizeSmall)
}

// DecryptProxyConfig opens a Proxy Configuration message.
func DecryptProxyConfig(key [16]byte, seq uint32, src uint16, ivIndex uint32, ciphertext []byte) ([]byte, error) {
	return crypto.OpenCCM(key[:], ProxyConfigNonce(seq, src, ivIndex), ciphertext, nil, crypto.MICSizeSmall)
}
