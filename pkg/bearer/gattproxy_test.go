package bearer

import (
	"context"
	"io"
	"net"
	"testing"
	"time"

	"github.com/meshcore/mesh-go/pkg/connection"
	"github.com/meshcore/mesh-go/pkg/transport"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func pipeDialer(server io.ReadWriteCloser) func(ctx context.Context) (io.ReadWriteCloser, error) {
	return func(ctx context.Context) (io.ReadWriteCloser, error) {
		return server, nil
	}
}

func TestGattProxyBearer_OpenAndRoundTrip(t *testing.T) {
	clientConn, serverConn := net.Pipe()
	defer clientConn.Close()
	defer serverConn.Close()

	bearerSide, testSide := clientConn, transport.NewFramer(serverConn)

	b := NewGattProxyBearer(pipeDialer(bearerSide))
	require.NoError(t, b.Open(context.Background()))
	defer b.Close()

	received := make(chan []byte, 1)
	b.SetInboundHandler(func(pdu []byte, typ PduType) {
		assert.Equal(t, PduTypeProvisioning, typ)
		received <- pdu
	})

	go func() {
		require.NoError(t, b.Send([]byte{0xDE, 0xAD}, PduTypeNetwork))
	}()
	frame, err := testSide.ReadFrame()
	require.NoError(t, err)
	assert.Equal(t, byte(PduTypeNetwork), frame[0])
	assert.Equal(t, []byte{0xDE, 0xAD}, frame[1:])

	require.NoError(t, testSide.WriteFrame(append([]byte{byte(PduTypeProvisioning)}, 0xBE, 0xEF)))

	select {
	case pdu := <-received:
		assert.Equal(t, []byte{0xBE, 0xEF}, pdu)
	case <-time.After(time.Second):
		t.Fatal("inbound handler never fired")
	}
}

func TestGattProxyBearer_SendWithoutConnectionFails(t *testing.T) {
	b := NewGattProxyBearer(func(ctx context.Context) (io.ReadWriteCloser, error) {
		return nil, assertErr
	})
	err := b.Send([]byte{1}, PduTypeNetwork)
	assert.ErrorIs(t, err, connection.ErrNotConnected)
}

func TestGattProxyBearer_NotifyConnectionLostEntersReconnecting(t *testing.T) {
	clientConn, serverConn := net.Pipe()
	defer serverConn.Close()

	b := NewGattProxyBearer(pipeDialer(clientConn))
	require.NoError(t, b.Open(context.Background()))
	defer b.Close()

	assert.Equal(t, connection.StateConnected, b.State())

	clientConn.Close()
	_, err := transport.NewFramer(serverConn).ReadFrame()
	require.Error(t, err)

	b.connMgr.NotifyConnectionLost()
	assert.Equal(t, connection.StateReconnecting, b.State())
}

var assertErr = errOpenFailed{}

type errOpenFailed struct{}

func (errOpenFailed) Error() string { return "dial failed" }
