package modbus

import (
	"net"

	"github.com/GoAethereal/cancel"
	"github.com/goburrow/serial"
	"go.uber.org/zap"
)

// Config configures a modbus client or server's transport and framing.
type Config struct {
	// Mode selects the wire framing: "tcp" for MBAP or "rtu" for RTU,
	// including RTU encapsulated in a TCP socket.
	Mode string
	// Kind selects the transport: "tcp" dials/listens with net, "serial"
	// opens a local serial port via Serial.
	Kind string
	// Endpoint is the dial/listen address for Kind == "tcp", unused for
	// "serial".
	Endpoint string
	// Serial configures the port for Kind == "serial".
	Serial serial.Config
	// UnitID is the slave/unit identifier a client addresses by default.
	UnitID Slave
	// Log receives structured logs; nil is replaced with a no-op logger.
	Log *zap.SugaredLogger
}

// Verify checks cfg for an unrecognized Mode/Kind combination.
func (cfg *Config) Verify() error {
	switch cfg.Mode {
	case "tcp", "rtu":
	default:
		return ErrInvalidParameter
	}
	switch cfg.Kind {
	case "tcp", "serial":
	default:
		return ErrInvalidParameter
	}
	if cfg.Kind == "serial" && cfg.Mode != "rtu" {
		return ErrInvalidParameter
	}
	return nil
}

func (cfg Config) framer() framer {
	if cfg.Mode == "rtu" {
		return rtuFramer{}
	}
	return tcpFramer{}
}

func (cfg Config) logger() *zap.SugaredLogger {
	if cfg.Log == nil {
		return zap.NewNop().Sugar()
	}
	return cfg.Log
}

// Dial opens the configured transport as a client, promoting abort to a
// plain context.Context for the dial's deadline.
func (cfg Config) Dial(abort cancel.Context) (*Client, error) {
	if err := cfg.Verify(); err != nil {
		return nil, err
	}
	t, err := cfg.transport(abort)
	if err != nil {
		return nil, err
	}
	return NewClient(t, cfg.Mode, cfg.logger())
}

func (cfg Config) transport(abort cancel.Context) (Transport, error) {
	switch cfg.Kind {
	case "serial":
		return OpenSerialPort(cfg.Serial)
	case "tcp":
		ctx, release := cancel.Promote(abort)
		defer release()
		conn, err := new(net.Dialer).DialContext(ctx, "tcp", cfg.Endpoint)
		if err != nil {
			cfg.logger().Errorw("dial failed", "endpoint", cfg.Endpoint, "error", err)
			return nil, err
		}
		return NewNetTransport(conn), nil
	}
	return nil, ErrInvalidParameter
}

// Listen creates a Server bound to svc and serves cfg.Endpoint until abort
// fires. Kind must be "tcp"; a serial-backed server is served directly via
// Server.ServeConn over a Transport from OpenSerialPort instead.
func (cfg Config) Listen(svc Service, onConnected OnConnected, abort cancel.Context) (Termination, error) {
	if err := cfg.Verify(); err != nil {
		return Finished, err
	}
	if cfg.Kind != "tcp" {
		return Finished, ErrInvalidParameter
	}
	s := &Server{Service: svc, Framer: cfg.framer(), Log: cfg.logger()}
	return s.ServeUntil(cfg.Endpoint, onConnected, abort)
}
