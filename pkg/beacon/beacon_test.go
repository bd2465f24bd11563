package beacon

import (
	"testing"

	"github.com/meshcore/mesh-go/pkg/keystore"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testNetworkKey(t *testing.T) *keystore.NetworkKey {
	t.Helper()
	var key [16]byte
	for i := range key {
		key[i] = byte(i + 1)
	}
	nk, err := keystore.NewNetworkKey(0, key)
	require.NoError(t, err)
	return nk
}

func TestEncodeDecodeVerify_RoundTrip(t *testing.T) {
	nk := testNetworkKey(t)

	pdu, err := Encode(IVUpdateFlag, nk.NetworkID, 0x12345678, nk.BeaconKey)
	require.NoError(t, err)

	decoded, err := Decode(pdu)
	require.NoError(t, err)
	assert.True(t, decoded.IVUpdateActive())
	assert.False(t, decoded.KeyRefreshInProgress())
	assert.Equal(t, uint32(0x12345678), decoded.IVIndex)

	verified, err := Verify(decoded, nk)
	require.NoError(t, err)
	assert.Same(t, nk, verified)
}

func TestVerify_TriesOldKeyDuringRefresh(t *testing.T) {
	nk := testNetworkKey(t)
	oldBeaconKey := nk.BeaconKey

	pdu, err := Encode(0, nk.NetworkID, 1, oldBeaconKey)
	require.NoError(t, err)

	var newKey [16]byte
	for i := range newKey {
		newKey[i] = byte(100 + i)
	}
	require.NoError(t, nk.BeginKeyRefresh(newKey))

	decoded, err := Decode(pdu)
	require.NoError(t, err)

	verified, err := Verify(decoded, nk)
	require.NoError(t, err)
	assert.Same(t, nk.Old, verified)
}

func TestVerify_FailsWithWrongKey(t *testing.T) {
	nk := testNetworkKey(t)
	other := testNetworkKey(t)
	other.BeaconKey = []byte("0123456789abcdef")

	pdu, err := Encode(0, nk.NetworkID, 1, other.BeaconKey)
	require.NoError(t, err)
	decoded, err := Decode(pdu)
	require.NoError(t, err)

	_, err = Verify(decoded, nk)
	assert.ErrorIs(t, err, ErrAuthFailed)
}

func TestDecode_RejectsWrongTypeAndShortPDU(t *testing.T) {
	wrongType := make([]byte, 22)
	wrongType[0] = 0x02
	_, err := Decode(wrongType)
	assert.ErrorIs(t, err, errWrongType)

	_, err = Decode(make([]byte, 5))
	assert.ErrorIs(t, err, errPDUTooShort)
}
