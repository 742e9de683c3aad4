package modbus

import "fmt"

// Address is a 16-bit Modbus data address.
type Address = uint16

// Quantity is a 16-bit count of coils, discretes or registers.
type Quantity = uint16

// Coil is a single-bit datum; true is on-wire 0xFF00, false is 0x0000.
type Coil = bool

// Word is a 16-bit register value, big-endian on the wire.
type Word = uint16

// FunctionCode identifies the operation carried by a PDU. Values 0x80-0xFF
// are reserved for exception responses: 0x80|code.
type FunctionCode byte

// Standard function codes recognized by the codec. Unrecognized codes below
// 0x80 are carried through as Custom.
const (
	ReadCoils                  FunctionCode = 0x01
	ReadDiscreteInputs         FunctionCode = 0x02
	ReadHoldingRegisters       FunctionCode = 0x03
	ReadInputRegisters         FunctionCode = 0x04
	WriteSingleCoil            FunctionCode = 0x05
	WriteSingleRegister        FunctionCode = 0x06
	WriteMultipleCoils         FunctionCode = 0x0F
	WriteMultipleRegisters     FunctionCode = 0x10
	ReportServerID             FunctionCode = 0x11
	MaskWriteRegister          FunctionCode = 0x16
	ReadWriteMultipleRegisters FunctionCode = 0x17
)

// exceptionBit marks a function code as carrying an ExceptionResponse.
const exceptionBit FunctionCode = 0x80

// IsException reports whether fc has the high bit set.
func (fc FunctionCode) IsException() bool {
	return fc&exceptionBit != 0
}

// AsException returns fc with the exception bit set.
func (fc FunctionCode) AsException() FunctionCode {
	return fc | exceptionBit
}

// Unexception strips the exception bit, returning the originating code.
func (fc FunctionCode) Unexception() FunctionCode {
	return fc &^ exceptionBit
}

func (fc FunctionCode) String() string {
	base := fc
	suffix := ""
	if fc.IsException() {
		base = fc.Unexception()
		suffix = "+exception"
	}
	switch base {
	case ReadCoils:
		return "ReadCoils" + suffix
	case ReadDiscreteInputs:
		return "ReadDiscreteInputs" + suffix
	case ReadHoldingRegisters:
		return "ReadHoldingRegisters" + suffix
	case ReadInputRegisters:
		return "ReadInputRegisters" + suffix
	case WriteSingleCoil:
		return "WriteSingleCoil" + suffix
	case WriteSingleRegister:
		return "WriteSingleRegister" + suffix
	case WriteMultipleCoils:
		return "WriteMultipleCoils" + suffix
	case WriteMultipleRegisters:
		return "WriteMultipleRegisters" + suffix
	case ReportServerID:
		return "ReportServerID" + suffix
	case MaskWriteRegister:
		return "MaskWriteRegister" + suffix
	case ReadWriteMultipleRegisters:
		return "ReadWriteMultipleRegisters" + suffix
	}
	return fmt.Sprintf("Custom(%#02x)%s", byte(base), suffix)
}

// Slave is the 8-bit Modbus unit/slave addressing field.
type Slave byte

// Reserved slave addresses.
const (
	Broadcast Slave = 0
	MinDevice Slave = 1
	MaxDevice Slave = 247
	TCPDevice Slave = 255 // "any"/directly-connected device on a TCP gateway
)

// IsBroadcast reports whether s is the broadcast address; broadcast requests
// receive no reply.
func (s Slave) IsBroadcast() bool {
	return s == Broadcast
}

// IsSingleDevice reports whether s addresses one device (1..=247).
func (s Slave) IsSingleDevice() bool {
	return s >= MinDevice && s <= MaxDevice
}

// IsReserved reports whether s is neither broadcast, a single device nor the
// TCP "any device" address.
func (s Slave) IsReserved() bool {
	return !s.IsBroadcast() && !s.IsSingleDevice() && s != TCPDevice
}
