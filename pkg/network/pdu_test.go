package network

import (
	"encoding/hex"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestEncode_SampleVector reproduces the Bluetooth Mesh sample Network PDU:
// NetKey 7dd7364cd842ad18c17c2b820c84c3d6 (NID 0x68, EncryptionKey
// 0953fa93e7caac9638f58820220a398e, PrivacyKey 8b84eedec100067d670971dd2aa700cf),
// SRC 0x1201, DST 0xFFFD, a control PDU (NetMIC 64-bit), TTL 0, SEQ 1,
// IVIndex 0x12345678, transport payload 034b50057e400000010000.
func TestEncode_SampleVector(t *testing.T) {
	encKey, err := hex.DecodeString("0953fa93e7caac9638f58820220a398e")
	require.NoError(t, err)
	privKey, err := hex.DecodeString("8b84eedec100067d670971dd2aa700cf")
	require.NoError(t, err)
	transportPDU, err := hex.DecodeString("034b50057e400000010000")
	require.NoError(t, err)

	pdu, err := Encode(EncodeParams{
		Control:       true,
		TTL:           0,
		Seq:           1,
		Src:           0x1201,
		Dst:           0xFFFD,
		TransportPDU:  transportPDU,
		IVIndex:       0x12345678,
		EncryptionKey: encKey,
		PrivacyKey:    privKey,
		NID:           0x68,
	})
	require.NoError(t, err)

	want, err := hex.DecodeString("68eca487516765b5e5bfdacbaf6cb7fb6bff871f035444ce83a670df")
	require.NoError(t, err)
	assert.Equal(t, want, pdu)
}

func TestEncodeDecode_RoundTrip(t *testing.T) {
	var encKey, privKey [16]byte
	for i := range encKey {
		encKey[i] = byte(i)
		privKey[i] = byte(i + 100)
	}
	transportPDU := []byte{0x01, 0x02, 0x03, 0x04, 0x05}

	pdu, err := Encode(EncodeParams{
		Control:       false,
		TTL:           5,
		Seq:           42,
		Src:           0x0010,
		Dst:           0x0020,
		TransportPDU:  transportPDU,
		IVIndex:       7,
		EncryptionKey: encKey[:],
		PrivacyKey:    privKey[:],
		NID:           0x12,
	})
	require.NoError(t, err)

	decoded, err := Decode(DecodeParams{
		PDU:           pdu,
		IVIndex:       7,
		EncryptionKey: encKey[:],
		PrivacyKey:    privKey[:],
		Control:       false,
	})
	require.NoError(t, err)

	assert.False(t, decoded.Control)
	assert.Equal(t, uint8(5), decoded.TTL)
	assert.Equal(t, uint32(42), decoded.Seq)
	assert.Equal(t, uint16(0x0010), decoded.Src)
	assert.Equal(t, uint16(0x0020), decoded.Dst)
	assert.Equal(t, transportPDU, decoded.TransportPDU)
}

func TestDecode_RejectsShortPDU(t *testing.T) {
	_, err := Decode(DecodeParams{PDU: make([]byte, 3)})
	assert.ErrorIs(t, err, errPDUTooShort)
}

func TestDecode_TamperedPDUFailsMIC(t *testing.T) {
	var encKey, privKey [16]byte
	encKey[0] = 1
	privKey[0] = 2

	pdu, err := Encode(EncodeParams{
		TTL: 1, Seq: 1, Src: 1, Dst: 2,
		TransportPDU: []byte{0xAA},
		IVIndex:      1, EncryptionKey: encKey[:], PrivacyKey: privKey[:], NID: 0x01,
	})
	require.NoError(t, err)

	pdu[len(pdu)-1] ^= 0xff

	_, err = Decode(DecodeParams{
		PDU: pdu, IVIndex: 1, EncryptionKey: encKey[:], PrivacyKey: privKey[:], Control: false,
	})
	assert.Error(t, err)
}
