package keystore

import (
	"fmt"
	"time"

	"github.com/meshcore/mesh-go/pkg/crypto"
)

// NetworkKeyPhase is a NetKey's key-refresh phase (spec.md §3's
// `phase ∈ {normalOperation, distributingKeys, finalizing}`).
type NetworkKeyPhase uint8

const (
	PhaseNormalOperation NetworkKeyPhase = iota
	PhaseDistributingKeys
	PhaseFinalizing
)

func (p NetworkKeyPhase) String() string {
	switch p {
	case PhaseNormalOperation:
		return "normalOperation"
	case PhaseDistributingKeys:
		return "distributingKeys"
	case PhaseFinalizing:
		return "finalizing"
	default:
		return "unknown"
	}
}

// NetworkKey holds a subnet's NetKey together with everything derived from
// it: the obfuscation/encryption material used by the network layer
// (spec.md §3.A) and the beacon/identity keys used by the Secure Network
// Beacon and node identity advertising.
type NetworkKey struct {
	Index uint16
	Key   [16]byte

	NID           byte
	EncryptionKey []byte
	PrivacyKey    []byte
	NetworkID     []byte
	BeaconKey     []byte
	IdentityKey   []byte

	Phase           NetworkKeyPhase
	LastPhaseChange time.Time

	// Old holds the previous key during key-refresh (distributingKeys and
	// finalizing phases), so both old and new NID/keys can be tried on
	// receive, and so transmit can still use the old key while in
	// distributingKeys (spec.md §3.B).
	Old *NetworkKey
}

// NewNetworkKey derives all material for a fresh NetKey, in
// normalOperation phase.
func NewNetworkKey(index uint16, key [16]byte) (*NetworkKey, error) {
	nk := &NetworkKey{Index: index, Key: key, LastPhaseChange: time.Now()}
	if err := nk.derive(); err != nil {
		return nil, fmt.Errorf("keystore: derive network key %d: %w", index, err)
	}
	return nk, nil
}

func (nk *NetworkKey) derive() error {
	k2out, err := crypto.K2(nk.Key[:], []byte{0x00})
	if err != nil {
		return fmt.Errorf("k2: %w", err)
	}
	nk.NID = k2out.NID
	nk.EncryptionKey = k2out.EncryptionKey
	nk.PrivacyKey = k2out.PrivacyKey

	netID, err := crypto.K3(nk.Key[:])
	if err != nil {
		return fmt.Errorf("k3: %w", err)
	}
	nk.NetworkID = netID

	beaconSalt, err := crypto.S1([]byte("nkbk"))
	if err != nil {
		return fmt.Errorf("s1(nkbk): %w", err)
	}
	beaconKey, err := crypto.K1(nk.Key[:], beaconSalt, []byte("id128\x01"))
	if err != nil {
		return fmt.Errorf("k1(beacon): %w", err)
	}
	nk.BeaconKey = beaconKey

	identitySalt, err := crypto.S1([]byte("nkik"))
	if err != nil {
		return fmt.Errorf("s1(nkik): %w", err)
	}
	identityKey, err := crypto.K1(nk.Key[:], identitySalt, []byte("id128\x01"))
	if err != nil {
		return fmt.Errorf("k1(identity): %w", err)
	}
	nk.IdentityKey = identityKey

	return nil
}

// BeginKeyRefresh moves the current key to Old and derives a fresh one,
// entering the distributingKeys phase (spec.md §3.B): both keys are valid
// for receive, but TransmitKeys still returns the old key's material
// until BeginFinalizing is called.
func (nk *NetworkKey) BeginKeyRefresh(newKey [16]byte) error {
	old := *nk
	fresh := &NetworkKey{Index: nk.Index, Key: newKey}
	if err := fresh.derive(); err != nil {
		return fmt.Errorf("keystore: derive refreshed network key %d: %w", nk.Index, err)
	}
	*nk = *fresh
	nk.Old = &old
	nk.Phase = PhaseDistributingKeys
	nk.LastPhaseChange = time.Now()
	return nil
}

// BeginFinalizing moves a NetKey from distributingKeys to finalizing
// (spec.md §3): TransmitKeys switches from the old key's material to the
// new one, while receive keeps accepting both until CompleteKeyRefresh.
func (nk *NetworkKey) BeginFinalizing() {
	nk.Phase = PhaseFinalizing
	nk.LastPhaseChange = time.Now()
}

// CompleteKeyRefresh discards the old key, returning to normalOperation
// once every node has switched to transmitting with the new NetKey.
func (nk *NetworkKey) CompleteKeyRefresh() {
	nk.Old = nil
	nk.Phase = PhaseNormalOperation
	nk.LastPhaseChange = time.Now()
}

// TransmitKeys returns the key material outbound Network PDUs should be
// encoded with: the old key's material while still distributingKeys
// (spec.md §3: "in distributingKeys phase the node transmits with the
// old keys"), the current (new) key's material once finalizing or back
// to normalOperation ("in finalizing and normalOperation with the new
// keys").
func (nk *NetworkKey) TransmitKeys() *NetworkKey {
	if nk.Phase == PhaseDistributingKeys && nk.Old != nil {
		return nk.Old
	}
	return nk
}

// MatchNID reports whether NID identifies either the current or the old
// key, and returns which one matched.
func (nk *NetworkKey) MatchNID(nid byte) (*NetworkKey, bool) {
	if nk.NID == nid {
		return nk, true
	}
	if nk.Old != nil && nk.Old.NID == nid {
		return nk.Old, true
	}
	return nil, false
}
