package keystore

import (
	"fmt"

	"github.com/meshcore/mesh-go/pkg/crypto"
)

// AppKey holds an application key and its derived AID (spec.md §3.C), bound
// to the NetKey it was bound to at AppKeyAdd time.
type AppKey struct {
	Index      uint16
	NetKeyIndex uint16
	Key        [16]byte
	AID        byte

	// Old holds the previous AppKey bytes/AID during key refresh, mirroring
	// NetworkKey.Old.
	Old *AppKey
}

// NewAppKey derives the AID for a fresh AppKey.
func NewAppKey(index, netKeyIndex uint16, key [16]byte) (*AppKey, error) {
	ak := &AppKey{Index: index, NetKeyIndex: netKeyIndex, Key: key}
	aid, err := crypto.K4(key[:])
	if err != nil {
		return nil, fmt.Errorf("keystore: derive app key %d AID: %w", index, err)
	}
	ak.AID = aid
	return ak, nil
}

// BeginKeyRefresh derives a new AppKey value while keeping the old one
// available for receive during key-refresh Phase 2.
func (ak *AppKey) BeginKeyRefresh(newKey [16]byte) error {
	old := *ak
	fresh, err := NewAppKey(ak.Index, ak.NetKeyIndex, newKey)
	if err != nil {
		return err
	}
	*ak = *fresh
	ak.Old = &old
	return nil
}

// CompleteKeyRefresh discards the old AppKey.
func (ak *AppKey) CompleteKeyRefresh() {
	ak.Old = nil
}

// MatchAID reports whether aid identifies the current or old key.
func (ak *AppKey) MatchAID(aid byte) (*AppKey, bool) {
	if ak.AID == aid {
		return ak, true
	}
	if ak.Old != nil && ak.Old.AID == aid {
		return ak.Old, true
	}
	return nil, false
}
