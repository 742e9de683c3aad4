package modbus

import (
	"context"
	"errors"
	"net"
	"sync"

	"github.com/GoAethereal/cancel"
	"go.uber.org/zap"
)

// Termination reports why a Server's accept loop returned.
type Termination int

const (
	// Finished means the listener stopped on its own (typically a real
	// Accept error); Aborted means abort was canceled.
	Finished Termination = iota
	Aborted
)

// OnConnected is called once per accepted connection before it is served. It
// returns the Service to use for that peer and whether to accept the
// connection at all; returning ok == false closes the socket immediately
// without serving it. A nil OnConnected falls back to the Server's own
// Service for every connection.
type OnConnected func(remote net.Addr) (svc Service, ok bool)

// Server answers requests from one or more connections by decoding a frame,
// dispatching the PDU to Service, and encoding the reply. Framer selects the
// wire format: tcpFramer{} (the zero value) for Modbus TCP, rtuFramer{} for
// RTU, whether over a serial Transport or a raw TCP socket carrying RTU
// framing.
//
// The reference module ran one Serve call per listener with its own
// accept loop and its own connection type (see the original server.go and
// connection.go); that shape is collapsed here into one Server type serving
// any number of listeners or direct connections; nothing about request
// handling differs between them.
type Server struct {
	Service Service
	Framer  framer
	Log     *zap.SugaredLogger
}

func (s *Server) framer() framer {
	if s.Framer == nil {
		return tcpFramer{}
	}
	return s.Framer
}

func (s *Server) logger() *zap.SugaredLogger {
	if s.Log == nil {
		return zap.NewNop().Sugar()
	}
	return s.Log
}

// ServeUntil listens on addr and serves accepted connections until abort is
// canceled. onConnected, if non-nil, is called for each accepted
// connection. It returns Aborted once abort fires and every in-flight
// connection has drained, or Finished with the Accept error if the listener
// failed on its own.
func (s *Server) ServeUntil(addr string, onConnected OnConnected, abort cancel.Context) (Termination, error) {
	l, err := net.Listen("tcp", addr)
	if err != nil {
		return Finished, err
	}

	ctx, release := cancel.Promote(abort)
	defer release()

	go func() {
		<-abort.Done()
		l.Close()
	}()

	var wg sync.WaitGroup
	for {
		conn, err := l.Accept()
		if err != nil {
			select {
			case <-abort.Done():
				wg.Wait()
				return Aborted, nil
			default:
				wg.Wait()
				return Finished, err
			}
		}
		svc := s.Service
		if onConnected != nil {
			var ok bool
			svc, ok = onConnected(conn.RemoteAddr())
			if !ok {
				conn.Close()
				continue
			}
		}
		wg.Add(1)
		go func(conn net.Conn, svc Service) {
			defer wg.Done()
			defer conn.Close()
			s.serve(ctx, NewNetTransport(conn), svc)
		}(conn, svc)
	}
}

// ServeConn serves a single already-established Transport (an accepted TCP
// connection, a serial port, or an RTU-over-TCP socket) against s.Service
// until ctx is canceled or the transport returns a read error, then returns.
func (s *Server) ServeConn(ctx context.Context, t Transport) {
	s.serve(ctx, t, s.Service)
}

// serve runs the per-connection request loop against svc, which may differ
// per connection (see OnConnected) from s.Service.
func (s *Server) serve(ctx context.Context, t Transport, svc Service) {
	f := s.framer()
	fr := newFrameReader(t)
	log := s.logger()
	for {
		slave, transID, pdu, err := f.decode(ctx, fr, RoleServer)
		if err != nil {
			if !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded) {
				log.Debugw("connection closed", "error", err)
			}
			return
		}

		req, err := DecodeRequest(pdu)
		if err != nil {
			log.Debugw("closing connection on malformed request", "error", err)
			return
		}

		resp, callErr := svc.Call(ctx, slave, req)

		if slave.IsBroadcast() {
			continue
		}

		var replyPDU []byte
		switch {
		case callErr != nil:
			var exc ExceptionCode
			if !errors.As(callErr, &exc) {
				log.Errorw("service call failed", "error", callErr)
				return
			}
			replyPDU = EncodeExceptionResponse(&ExceptionResponse{Function: req.FunctionCode(), Exception: exc})
		case resp == nil:
			// Service suppressed the reply (e.g. a foreign slave address on
			// a shared bus); loop without writing anything.
			continue
		default:
			resp.Kind = requestKindToResponseKind(req.Kind)
			if resp.Kind == RespCustom {
				resp.FuncCode = req.FuncCode
			}
			replyPDU, err = EncodeResponse(*resp)
			if err != nil {
				log.Errorw("encoding response failed", "error", err)
				return
			}
		}

		frame, err := f.encode(slave, transID, replyPDU)
		if err != nil {
			log.Errorw("encoding frame failed", "error", err)
			return
		}
		if _, err := t.Write(ctx, frame); err != nil {
			log.Debugw("write failed", "error", err)
			return
		}
	}
}
