package modbus

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/GoAethereal/cancel"
	"github.com/stretchr/testify/require"
)

func TestClientServerRTUWriteSingleRegister(t *testing.T) {
	a, b := net.Pipe()
	clientT, serverT := NewNetTransport(a), NewNetTransport(b)

	var gotAddr Address
	var gotVal Word
	mux := &Mux{
		WriteSingleRegister: func(ctx context.Context, address Address, value Word) error {
			gotAddr, gotVal = address, value
			return nil
		},
	}
	srv := &Server{Service: mux, Framer: rtuFramer{}}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go srv.ServeConn(ctx, serverT)

	client, err := NewClient(clientT, "rtu", nil)
	require.NoError(t, err)
	defer client.Disconnect()

	reqCtx, reqCancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer reqCancel()
	resp, err := client.Call(reqCtx, 0x11, NewWriteSingleRegister(0x03, 0x1234))
	require.NoError(t, err)
	require.EqualValues(t, 0x03, resp.Address)
	require.EqualValues(t, 0x1234, resp.Word)
	require.EqualValues(t, 0x03, gotAddr)
	require.EqualValues(t, 0x1234, gotVal)
}

// fixedReplyTransport discards every Write and delivers one fixed frame
// across its Reads, then blocks until ctx is done, for testing client-side
// correlation logic in isolation from a real server loop.
type fixedReplyTransport struct {
	reply  []byte
	offset int
}

func (f *fixedReplyTransport) Read(ctx context.Context, buf []byte) (int, error) {
	if f.offset >= len(f.reply) {
		<-ctx.Done()
		return 0, ctx.Err()
	}
	n := copy(buf, f.reply[f.offset:])
	f.offset += n
	return n, nil
}

func (f *fixedReplyTransport) Write(ctx context.Context, buf []byte) (int, error) {
	return len(buf), nil
}

func (f *fixedReplyTransport) Close() error { return nil }

func TestClientRTUMismatchedSlaveError(t *testing.T) {
	// Reply carries slave 0x12, but the request addressed 0x11.
	reply, err := EncodeRTUFrame(RTUADU{Slave: 0x12, PDU: []byte{0x06, 0x00, 0x01, 0x00, 0x01}})
	require.NoError(t, err)

	client, err := NewClient(&fixedReplyTransport{reply: reply}, "rtu", nil)
	require.NoError(t, err)

	reqCtx, reqCancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer reqCancel()
	_, err = client.Call(reqCtx, 0x11, NewWriteSingleRegister(0x01, 0x0001))
	require.ErrorIs(t, err, ErrMismatchedSlave)
}

func TestServerServeUntilAborts(t *testing.T) {
	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := l.Addr().String()
	require.NoError(t, l.Close())

	mux := &Mux{
		ReadHoldingRegisters: func(ctx context.Context, address Address, quantity Quantity) ([]Word, error) {
			return make([]Word, quantity), nil
		},
	}
	srv := &Server{Service: mux}

	abort := cancel.New()
	connected := make(chan net.Addr, 1)
	done := make(chan struct{})
	var term Termination
	var serveErr error
	go func() {
		defer close(done)
		term, serveErr = srv.ServeUntil(addr, func(remote net.Addr) (Service, bool) {
			connected <- remote
			return mux, true
		}, abort)
	}()

	client, err := NewClient(mustDialRetry(t, addr), "tcp", nil)
	require.NoError(t, err)

	select {
	case <-connected:
	case <-time.After(2 * time.Second):
		t.Fatal("server never accepted the connection")
	}

	reqCtx, reqCancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer reqCancel()
	resp, err := client.Call(reqCtx, 0x01, NewReadHoldingRegisters(0, 2))
	require.NoError(t, err)
	require.Len(t, resp.Words, 2)

	abort.Cancel()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("ServeUntil did not return after abort fired")
	}
	require.Equal(t, Aborted, term)
	require.NoError(t, serveErr)

	// The pre-existing connection's socket is now closed server-side; the
	// next call on it must fail rather than hang.
	failCtx, failCancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer failCancel()
	_, err = client.Call(failCtx, 0x01, NewReadHoldingRegisters(0, 2))
	require.Error(t, err)

	// New connections are refused once the listener has been closed.
	_, dialErr := net.DialTimeout("tcp", addr, time.Second)
	require.Error(t, dialErr)
}

func TestServerOnConnectedRejectsPeer(t *testing.T) {
	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := l.Addr().String()
	require.NoError(t, l.Close())

	srv := &Server{Service: &Mux{}}
	abort := cancel.New()
	defer abort.Cancel()
	done := make(chan struct{})
	go func() {
		defer close(done)
		srv.ServeUntil(addr, func(remote net.Addr) (Service, bool) {
			return nil, false
		}, abort)
	}()

	conn := mustDialRetry(t, addr)
	reqCtx, reqCancel := context.WithTimeout(context.Background(), time.Second)
	defer reqCancel()
	_, err = conn.Read(reqCtx, make([]byte, 16))
	require.Error(t, err, "rejected connection's socket should be closed, not served")
}

func mustDialRetry(t *testing.T, addr string) Transport {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		conn, err := net.Dial("tcp", addr)
		if err == nil {
			return NewNetTransport(conn)
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("could not dial server")
	return nil
}
