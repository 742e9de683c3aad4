package modbus

// RequestKind discriminates the Request union.
type RequestKind byte

const (
	ReqReadCoils RequestKind = iota
	ReqReadDiscreteInputs
	ReqReadHoldingRegisters
	ReqReadInputRegisters
	ReqWriteSingleCoil
	ReqWriteSingleRegister
	ReqWriteMultipleCoils
	ReqWriteMultipleRegisters
	ReqReportServerID
	ReqMaskWriteRegister
	ReqReadWriteMultipleRegisters
	ReqCustom
)

// Request is a tagged union over every function code the codec understands,
// plus Custom for vendor-specific pass-through. Only the fields relevant to
// Kind are meaningful; the rest are zero. Slices are referenced as given by
// the caller on the encode path (no defensive copy).
type Request struct {
	Kind RequestKind

	Address  Address
	Quantity Quantity

	Coil  Coil
	Word  Word
	Coils []Coil
	Words []Word

	WriteAddress  Address
	WriteQuantity Quantity
	WriteWords    []Word

	AndMask Word
	OrMask  Word

	// Custom carries the raw function code and payload for Kind ==
	// ReqCustom; FuncCode is also populated for Kind == ReqCustom only.
	FuncCode FunctionCode
	Data     []byte
}

// FunctionCode returns the wire function code for the request.
func (r Request) FunctionCode() FunctionCode {
	switch r.Kind {
	case ReqReadCoils:
		return ReadCoils
	case ReqReadDiscreteInputs:
		return ReadDiscreteInputs
	case ReqReadHoldingRegisters:
		return ReadHoldingRegisters
	case ReqReadInputRegisters:
		return ReadInputRegisters
	case ReqWriteSingleCoil:
		return WriteSingleCoil
	case ReqWriteSingleRegister:
		return WriteSingleRegister
	case ReqWriteMultipleCoils:
		return WriteMultipleCoils
	case ReqWriteMultipleRegisters:
		return WriteMultipleRegisters
	case ReqReportServerID:
		return ReportServerID
	case ReqMaskWriteRegister:
		return MaskWriteRegister
	case ReqReadWriteMultipleRegisters:
		return ReadWriteMultipleRegisters
	default:
		return r.FuncCode
	}
}

// NewReadCoils builds a ReadCoils request for 1..=2000 contiguous coils.
func NewReadCoils(address Address, quantity Quantity) Request {
	return Request{Kind: ReqReadCoils, Address: address, Quantity: quantity}
}

// NewReadDiscreteInputs builds a ReadDiscreteInputs request for 1..=2000
// contiguous discrete inputs.
func NewReadDiscreteInputs(address Address, quantity Quantity) Request {
	return Request{Kind: ReqReadDiscreteInputs, Address: address, Quantity: quantity}
}

// NewReadHoldingRegisters builds a ReadHoldingRegisters request for 1..=125
// contiguous registers.
func NewReadHoldingRegisters(address Address, quantity Quantity) Request {
	return Request{Kind: ReqReadHoldingRegisters, Address: address, Quantity: quantity}
}

// NewReadInputRegisters builds a ReadInputRegisters request for 1..=125
// contiguous registers.
func NewReadInputRegisters(address Address, quantity Quantity) Request {
	return Request{Kind: ReqReadInputRegisters, Address: address, Quantity: quantity}
}

// NewWriteSingleCoil builds a WriteSingleCoil request.
func NewWriteSingleCoil(address Address, value Coil) Request {
	return Request{Kind: ReqWriteSingleCoil, Address: address, Coil: value}
}

// NewWriteSingleRegister builds a WriteSingleRegister request.
func NewWriteSingleRegister(address Address, value Word) Request {
	return Request{Kind: ReqWriteSingleRegister, Address: address, Word: value}
}

// NewWriteMultipleCoils builds a WriteMultipleCoils request for 1..=1968
// coils. coils is referenced, not copied.
func NewWriteMultipleCoils(address Address, coils []Coil) Request {
	return Request{Kind: ReqWriteMultipleCoils, Address: address, Quantity: Quantity(len(coils)), Coils: coils}
}

// NewWriteMultipleRegisters builds a WriteMultipleRegisters request for
// 1..=123 registers. words is referenced, not copied.
func NewWriteMultipleRegisters(address Address, words []Word) Request {
	return Request{Kind: ReqWriteMultipleRegisters, Address: address, Quantity: Quantity(len(words)), Words: words}
}

// NewReportServerID builds a ReportServerID request, which carries no
// payload.
func NewReportServerID() Request {
	return Request{Kind: ReqReportServerID}
}

// NewMaskWriteRegister builds a MaskWriteRegister request: the server
// computes current & andMask | orMask & ^andMask.
func NewMaskWriteRegister(address Address, andMask, orMask Word) Request {
	return Request{Kind: ReqMaskWriteRegister, Address: address, AndMask: andMask, OrMask: orMask}
}

// NewReadWriteMultipleRegisters builds a combined read/write request: up to
// 125 registers are read from readAddress, and writeWords are written at
// writeAddress (1..=121 words) in the same transaction.
func NewReadWriteMultipleRegisters(readAddress Address, readQuantity Quantity, writeAddress Address, writeWords []Word) Request {
	return Request{
		Kind:          ReqReadWriteMultipleRegisters,
		Address:       readAddress,
		Quantity:      readQuantity,
		WriteAddress:  writeAddress,
		WriteQuantity: Quantity(len(writeWords)),
		WriteWords:    writeWords,
	}
}

// NewCustomRequest builds a pass-through request for a function code the
// codec does not otherwise recognize. data is referenced, not copied.
func NewCustomRequest(code FunctionCode, data []byte) Request {
	return Request{Kind: ReqCustom, FuncCode: code, Data: data}
}
