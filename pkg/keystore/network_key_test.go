package keystore

import (
	"encoding/hex"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewNetworkKey_SIGSampleVector(t *testing.T) {
	raw, err := hex.DecodeString("7dd7364cd842ad18c17c2b820c84c3d6")
	require.NoError(t, err)
	var key [16]byte
	copy(key[:], raw)

	nk, err := NewNetworkKey(0, key)
	require.NoError(t, err)

	assert.Equal(t, byte(0x68), nk.NID)
	assert.Len(t, nk.EncryptionKey, 16)
	assert.Len(t, nk.PrivacyKey, 16)
	assert.Len(t, nk.NetworkID, 8)
	assert.Len(t, nk.BeaconKey, 16)
	assert.Len(t, nk.IdentityKey, 16)
}

func TestNetworkKey_BeginKeyRefreshPreservesOldForReceive(t *testing.T) {
	var key1, key2 [16]byte
	key1[0] = 0x01
	key2[0] = 0x02

	nk, err := NewNetworkKey(0, key1)
	require.NoError(t, err)
	oldNID := nk.NID

	require.NoError(t, nk.BeginKeyRefresh(key2))
	assert.NotNil(t, nk.Old)
	assert.Equal(t, oldNID, nk.Old.NID)

	matched, ok := nk.MatchNID(oldNID)
	require.True(t, ok, "old NID must still match during key refresh")
	assert.Equal(t, oldNID, matched.NID)

	nk.CompleteKeyRefresh()
	assert.Nil(t, nk.Old)
}

func TestNetworkKey_PhaseControlsTransmitKeys(t *testing.T) {
	var key1, key2 [16]byte
	key1[0] = 0x01
	key2[0] = 0x02

	nk, err := NewNetworkKey(0, key1)
	require.NoError(t, err)
	assert.Equal(t, PhaseNormalOperation, nk.Phase)
	assert.Same(t, nk, nk.TransmitKeys(), "normalOperation transmits with the only key on file")

	oldEncryptionKey := nk.EncryptionKey

	require.NoError(t, nk.BeginKeyRefresh(key2))
	assert.Equal(t, PhaseDistributingKeys, nk.Phase)
	tx := nk.TransmitKeys()
	assert.Equal(t, oldEncryptionKey, tx.EncryptionKey, "distributingKeys still transmits with the old key")
	assert.NotEqual(t, nk.EncryptionKey, tx.EncryptionKey, "the new key must already be derived and current for receive")

	nk.BeginFinalizing()
	assert.Equal(t, PhaseFinalizing, nk.Phase)
	assert.Same(t, nk, nk.TransmitKeys(), "finalizing transmits with the new key")

	nk.CompleteKeyRefresh()
	assert.Equal(t, PhaseNormalOperation, nk.Phase)
	assert.Nil(t, nk.Old)
	assert.Same(t, nk, nk.TransmitKeys())
}

func TestNetworkKey_BeginKeyRefreshRecordsPhaseChangeTime(t *testing.T) {
	var key1, key2 [16]byte
	key1[0] = 0x01
	key2[0] = 0x02

	nk, err := NewNetworkKey(0, key1)
	require.NoError(t, err)
	firstChange := nk.LastPhaseChange
	require.False(t, firstChange.IsZero())

	require.NoError(t, nk.BeginKeyRefresh(key2))
	assert.True(t, nk.LastPhaseChange.After(firstChange) || nk.LastPhaseChange.Equal(firstChange))
}

func TestNetworkKey_MatchNIDNoMatch(t *testing.T) {
	var key [16]byte
	nk, err := NewNetworkKey(0, key)
	require.NoError(t, err)

	_, ok := nk.MatchNID(nk.NID ^ 0x7f)
	assert.False(t, ok)
}
