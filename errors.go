package modbus

import "errors"

// Sentinel errors returned by the codec and framers. Call sites wrap these
// with fmt.Errorf("...: %w", Err...) so errors.Is still matches after
// context is added.
var (
	// ErrPDUSizeExceeded is returned when an encoded PDU would exceed
	// MaxPDUSize, or a decoded one already does; the codec and framers
	// also return it for an empty PDU.
	ErrPDUSizeExceeded = errors.New("modbus: pdu size exceeds 253 bytes")
	// ErrInvalidData marks a malformed PDU or frame: bad byte_count,
	// trailing bytes, an out-of-range coil/run-indication sentinel, a
	// CRC mismatch, or a non-zero TCP protocol id.
	ErrInvalidData = errors.New("modbus: invalid data")
	// ErrNeedMoreData is returned by a framer decode when the buffer does
	// not yet hold a complete frame; the buffer is left untouched.
	ErrNeedMoreData = errors.New("modbus: need more data")
	// ErrMismatchedUnitID signals a response unit id differing from the
	// request's.
	ErrMismatchedUnitID = errors.New("modbus: mismatched unit id")
	// ErrMismatchedSlave signals an RTU response whose slave address
	// differs from the one the request was sent to.
	ErrMismatchedSlave = errors.New("modbus: mismatched slave address")
	// ErrMismatchedFunction signals a response function code that
	// disagrees with the outgoing request's, and is not an exception
	// response of that code.
	ErrMismatchedFunction = errors.New("modbus: mismatched function code")
	// ErrInvalidParameter signals a malformed configuration or call
	// argument.
	ErrInvalidParameter = errors.New("modbus: invalid parameter")
)
