package uppertransport

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestApplicationNonce_Layout(t *testing.T) {
	n := ApplicationNonce(NonceParams{SZMIC: true, Seq: 0x000123, Src: 0x1201, Dst: 0xFFFD, IVIndex: 0x12345678})
	require.Len(t, n, 13)
	assert.Equal(t, byte(0x01), n[0])
	assert.Equal(t, byte(0x80), n[1])
	assert.Equal(t, []byte{0x00, 0x01, 0x23}, n[2:5])
	assert.Equal(t, []byte{0x12, 0x01}, n[5:7])
	assert.Equal(t, []byte{0xFF, 0xFD}, n[7:9])
	assert.Equal(t, []byte{0x12, 0x34, 0x56, 0x78}, n[9:13])
}

func TestDeviceNonce_TypeOctet(t *testing.T) {
	n := DeviceNonce(NonceParams{Seq: 1, Src: 1, Dst: 2, IVIndex: 0})
	assert.Equal(t, byte(0x02), n[0])
	assert.Equal(t, byte(0x00), n[1], "ASZMIC must be clear when SZMIC is false")
}

func TestProxyConfigNonce_NoDestination(t *testing.T) {
	n := ProxyConfigNonce(5, 0x1201, 0x12345678)
	require.Len(t, n, 13)
	assert.Equal(t, byte(0x03), n[0])
	assert.Equal(t, byte(0x00), n[1])
	assert.Equal(t, []byte{0x00, 0x00}, n[7:9], "proxy nonce carries no destination")
}
