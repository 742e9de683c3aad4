package modbus

import (
	"context"
	"net"
	"sync"
	"time"

	"github.com/goburrow/serial"
)

// Transport is the byte-stream contract the engine consumes. A context
// passed to Read or Write bounds that one call; cancellation unblocks a
// pending call by forcing the underlying deadline, the same trick the
// reference module's network type uses for net.Conn.
type Transport interface {
	Read(ctx context.Context, buf []byte) (int, error)
	Write(ctx context.Context, buf []byte) (int, error)
	Close() error
}

// deadliner is satisfied by net.Conn and *serial.Port alike.
type deadliner interface {
	SetReadDeadline(time.Time) error
	SetWriteDeadline(time.Time) error
}

// connTransport adapts a net.Conn (TCP, TLS, or anything else satisfying
// the interface) to Transport by racing the blocking Read/Write against the
// caller's context, forcing an immediate deadline to unblock it on
// cancellation. Grounded in the reference module's network.read/write.
type connTransport struct {
	conn interface {
		deadliner
		Read([]byte) (int, error)
		Write([]byte) (int, error)
		Close() error
	}
}

// NewNetTransport wraps a net.Conn (including *tls.Conn) as a Transport.
func NewNetTransport(conn net.Conn) Transport {
	return &connTransport{conn: conn}
}

// OpenSerialPort opens an RTU serial port via github.com/goburrow/serial and
// wraps it as a Transport. The concrete serial driver remains an external
// collaborator; this constructor only adapts it to the engine's contract.
func OpenSerialPort(cfg serial.Config) (Transport, error) {
	port, err := serial.Open(&cfg)
	if err != nil {
		return nil, err
	}
	return &connTransport{conn: port}, nil
}

func (t *connTransport) Read(ctx context.Context, buf []byte) (int, error) {
	return raceDeadline(ctx, t.conn, t.conn.SetReadDeadline, func() (int, error) {
		return t.conn.Read(buf)
	})
}

func (t *connTransport) Write(ctx context.Context, buf []byte) (int, error) {
	return raceDeadline(ctx, t.conn, t.conn.SetWriteDeadline, func() (int, error) {
		return t.conn.Write(buf)
	})
}

func (t *connTransport) Close() error {
	return t.conn.Close()
}

// raceDeadline runs op, and concurrently watches ctx: if ctx is done before
// op returns, it forces an immediate deadline so the blocking op unblocks
// with an I/O timeout error instead of hanging forever.
func raceDeadline(ctx context.Context, d deadliner, setDeadline func(time.Time) error, op func() (int, error)) (int, error) {
	done := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		select {
		case <-done:
		case <-ctx.Done():
			setDeadline(time.Unix(1, 0))
		}
	}()
	setDeadline(time.Time{})
	n, err := op()
	close(done)
	wg.Wait()
	if err != nil {
		select {
		case <-ctx.Done():
			return n, ctx.Err()
		default:
		}
	}
	return n, err
}
