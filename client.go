package modbus

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sync"
	"sync/atomic"
	"syscall"

	"go.uber.org/zap"
)

// Client is a Modbus master bound to one Transport and wire mode. At most
// one exchange may be in flight at a time (mu enforces this); Call blocks
// until the matching response, an exception, or a transport error arrives.
//
//	t := modbus.NewNetTransport(conn)
//	c, _ := modbus.NewClient(t, "tcp", nil)
//	defer c.Disconnect()
//	resp, err := c.Call(ctx, modbus.MinDevice, modbus.NewReadHoldingRegisters(0x082B, 2))
type Client struct {
	mu      sync.Mutex
	t       Transport
	f       framer
	fr      *frameReader
	rtu     bool
	transID uint32
	log     *zap.SugaredLogger
}

// NewClient builds a Client over an already-connected Transport. mode is
// "tcp" or "rtu" and selects the framer; log may be nil.
func NewClient(t Transport, mode string, log *zap.SugaredLogger) (*Client, error) {
	var f framer
	switch mode {
	case "tcp":
		f = tcpFramer{}
	case "rtu":
		f = rtuFramer{}
	default:
		return nil, ErrInvalidParameter
	}
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	return &Client{t: t, f: f, fr: newFrameReader(t), rtu: mode == "rtu", log: log}, nil
}

// Call sends req to slave and waits for the matching response. Broadcasts
// (slave == Broadcast) return immediately once the write completes; no read
// is attempted. A returned error that is an *ExceptionResponse is the
// Modbus-level exception; any other error poisons the client (see
// Disconnect).
func (c *Client) Call(ctx context.Context, slave Slave, req Request) (Response, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	pdu, err := EncodeRequest(req)
	if err != nil {
		return Response{}, err
	}

	transID := uint16(atomic.AddUint32(&c.transID, 1) - 1)
	frame, err := c.f.encode(slave, transID, pdu)
	if err != nil {
		return Response{}, err
	}

	if _, err := c.t.Write(ctx, frame); err != nil {
		return Response{}, err
	}

	if slave.IsBroadcast() {
		return Response{}, nil
	}

	wantFC := req.FunctionCode()
	for {
		gotSlave, gotTransID, respPDU, err := c.f.decode(ctx, c.fr, RoleClient)
		if err != nil {
			return Response{}, err
		}

		if c.rtu {
			if gotSlave != slave {
				return Response{}, ErrMismatchedSlave
			}
		} else {
			if gotTransID != transID {
				c.log.Debugw("mismatched tcp transaction id", "want", transID, "got", gotTransID)
				return Response{}, fmt.Errorf("%w: mismatched transaction id %d, expected %d", ErrInvalidData, gotTransID, transID)
			}
			if gotSlave != slave {
				return Response{}, ErrMismatchedUnitID
			}
		}

		resp, err := DecodeResponsePDU(respPDU)
		if err != nil {
			var exc *ExceptionResponse
			if errors.As(err, &exc) {
				if exc.Function != wantFC {
					return Response{}, ErrMismatchedFunction
				}
				return Response{}, exc
			}
			return Response{}, err
		}
		if resp.FunctionCode() != wantFC {
			return Response{}, ErrMismatchedFunction
		}
		return resp, nil
	}
}

// Disconnect closes the underlying transport. "Not connected" and "broken
// pipe" kinds are treated as already-disconnected successes, matching a
// graceful shutdown that races its own close against a peer that is already
// gone.
func (c *Client) Disconnect() error {
	err := c.t.Close()
	if err == nil || isAlreadyDisconnected(err) {
		return nil
	}
	return err
}

func isAlreadyDisconnected(err error) bool {
	return errors.Is(err, net.ErrClosed) ||
		errors.Is(err, syscall.EPIPE) ||
		errors.Is(err, syscall.ENOTCONN)
}
