package beacon

import (
	"github.com/meshcore/mesh-go/pkg/crypto"
	"github.com/meshcore/mesh-go/pkg/keystore"
)

// SecureNetworkBeaconType is the single mesh beacon type this package
// handles.
const SecureNetworkBeaconType = 0x01

// KeyRefreshFlag and IVUpdateFlag are the two bits of the beacon's flags
// octet (spec.md §4.G).
const (
	KeyRefreshFlag byte = 1 << 0
	IVUpdateFlag   byte = 1 << 1
)

// SecureNetworkBeacon is a parsed, as-yet-unauthenticated beacon PDU.
type SecureNetworkBeacon struct {
	Flags     byte
	NetworkID []byte // 8 bytes
	IVIndex   uint32
	AuthValue []byte // 8 bytes
}

// KeyRefreshInProgress reports the Key Refresh flag.
func (b SecureNetworkBeacon) KeyRefreshInProgress() bool {
	return b.Flags&KeyRefreshFlag != 0
}

// IVUpdateActive reports the IV Update flag.
func (b SecureNetworkBeacon) IVUpdateActive() bool {
	return b.Flags&IVUpdateFlag != 0
}

func (b SecureNetworkBeacon) signedFields() []byte {
	out := make([]byte, 0, 1+8+4)
	out = append(out, b.Flags)
	out = append(out, b.NetworkID...)
	out = append(out, byte(b.IVIndex>>24), byte(b.IVIndex>>16), byte(b.IVIndex>>8), byte(b.IVIndex))
	return out
}

// Encode serializes the beacon, computing authValue under beaconKey.
func Encode(flags byte, networkID []byte, ivIndex uint32, beaconKey []byte) ([]byte, error) {
	b := SecureNetworkBeacon{Flags: flags, NetworkID: networkID, IVIndex: ivIndex}
	mac, err := crypto.AESCMAC(beaconKey, b.signedFields())
	if err != nil {
		return nil, err
	}
	b.AuthValue = mac[:8]

	out := make([]byte, 0, 1+len(b.signedFields())+8)
	out = append(out, SecureNetworkBeaconType)
	out = append(out, b.signedFields()...)
	out = append(out, b.AuthValue...)
	return out, nil
}

// Decode parses the wire bytes into a SecureNetworkBeacon without
// verifying authValue.
func Decode(pdu []byte) (*SecureNetworkBeacon, error) {
	if len(pdu) < 1+1+8+4+8 {
		return nil, errPDUTooShort
	}
	if pdu[0] != SecureNetworkBeaconType {
		return nil, errWrongType
	}
	return &SecureNetworkBeacon{
		Flags:     pdu[1],
		NetworkID: append([]byte(nil), pdu[2:10]...),
		IVIndex:   uint32(pdu[10])<<24 | uint32(pdu[11])<<16 | uint32(pdu[12])<<8 | uint32(pdu[13]),
		AuthValue: append([]byte(nil), pdu[14:22]...),
	}, nil
}

// Verify tries the NetworkKey's current and old beacon keys, returning
// whichever one authenticates the beacon.
func Verify(b *SecureNetworkBeacon, nk *keystore.NetworkKey) (*keystore.NetworkKey, error) {
	candidates := []*keystore.NetworkKey{nk}
	if nk.Old != nil {
		candidates = append(candidates, nk.Old)
	}
	for _, candidate := range candidates {
		mac, err := crypto.AESCMAC(candidate.BeaconKey, b.signedFields())
		if err != nil {
			return nil, err
		}
		if constantTimeEqual(mac[:8], b.AuthValue) {
			return candidate, nil
		}
	}
	return nil, ErrAuthFailed
}

func constantTimeEqual(a, b []byte) bool {
	if len(a) != len(b) {
		return false
	}
	var diff byte
	for i := range a {
		diff |= a[i] ^ b[i]
	}
	return diff == 0
}
