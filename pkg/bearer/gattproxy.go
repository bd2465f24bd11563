package bearer

import (
	"context"
	"fmt"
	"io"
	"sync"

	"github.com/meshcore/mesh-go/pkg/connection"
	"github.com/meshcore/mesh-go/pkg/transport"
)

// GattProxyBearer carries PDUs over a single length-prefixed,
// type-tagged stream connection — the logical transport once the
// host's GATT/ATT layer has reassembled characteristic writes into a
// byte stream. Each frame is one PDU prefixed with a single PduType
// byte. Connection loss triggers reconnect-with-backoff, adapted from
// pkg/connection's generic reconnect manager.
type GattProxyBearer struct {
	inboundDispatch

	dial func(ctx context.Context) (io.ReadWriteCloser, error)

	mu     sync.Mutex
	conn   io.ReadWriteCloser
	framer *transport.Framer

	connMgr *connection.Manager
}

var _ Bearer = (*GattProxyBearer)(nil)

// NewGattProxyBearer creates a bearer that dials conn on Open and
// redials it with backoff whenever the stream breaks.
func NewGattProxyBearer(dial func(ctx context.Context) (io.ReadWriteCloser, error)) *GattProxyBearer {
	b := &GattProxyBearer{dial: dial}
	b.connMgr = connection.NewManager(b.connect)
	b.connMgr.OnConnected(b.startReading)
	return b
}

// Open establishes the initial connection and arms the background
// reconnect loop for subsequent drops.
func (b *GattProxyBearer) Open(ctx context.Context) error {
	b.connMgr.StartReconnectLoop()
	return b.connMgr.Connect(ctx)
}

// Close tears down the connection and stops reconnecting.
func (b *GattProxyBearer) Close() error {
	b.connMgr.Close()
	b.mu.Lock()
	conn := b.conn
	b.conn = nil
	b.framer = nil
	b.mu.Unlock()
	if conn != nil {
		return conn.Close()
	}
	return nil
}

// State reports the underlying connection manager's lifecycle state.
func (b *GattProxyBearer) State() connection.State {
	return b.connMgr.State()
}

// OnStateChange registers a callback for connection lifecycle changes.
func (b *GattProxyBearer) OnStateChange(fn func(old, new connection.State)) {
	b.connMgr.OnStateChange(fn)
}

func (b *GattProxyBearer) connect(ctx context.Context) error {
	conn, err := b.dial(ctx)
	if err != nil {
		return err
	}
	b.mu.Lock()
	b.conn = conn
	b.framer = transport.NewFramer(conn)
	b.mu.Unlock()
	return nil
}

func (b *GattProxyBearer) startReading() {
	b.mu.Lock()
	framer := b.framer
	b.mu.Unlock()
	go b.readLoop(framer)
}

func (b *GattProxyBearer) readLoop(framer *transport.Framer) {
	for {
		frame, err := framer.ReadFrame()
		if err != nil {
			b.connMgr.NotifyConnectionLost()
			return
		}
		if len(frame) < 1 {
			continue
		}
		b.dispatch(frame[1:], PduType(frame[0]))
	}
}

// Send frames pdu with its type tag and writes it to the current
// connection. Returns connection.ErrNotConnected if no stream is up.
func (b *GattProxyBearer) Send(pdu []byte, typ PduType) error {
	b.mu.Lock()
	framer := b.framer
	b.mu.Unlock()
	if framer == nil {
		return connection.ErrNotConnected
	}
	framed := make([]byte, 0, len(pdu)+1)
	framed = append(framed, byte(typ))
	framed = append(framed, pdu...)
	if err := framer.WriteFrame(framed); err != nil {
		return fmt.Errorf("gattproxy: write frame: %w", err)
	}
	return nil
}
