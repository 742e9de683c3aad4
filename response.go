package modbus

// ResponseKind discriminates the Response union; its values mirror
// RequestKind.
type ResponseKind byte

const (
	RespReadCoils ResponseKind = iota
	RespReadDiscreteInputs
	RespReadHoldingRegisters
	RespReadInputRegisters
	RespWriteSingleCoil
	RespWriteSingleRegister
	RespWriteMultipleCoils
	RespWriteMultipleRegisters
	RespReportServerID
	RespMaskWriteRegister
	RespReadWriteMultipleRegisters
	RespCustom
)

// Response mirrors Request, holding a server's successful reply payload.
// Decoded responses always own their slices; a response built by a Service
// may reference caller-owned slices.
type Response struct {
	Kind ResponseKind

	Address  Address
	Quantity Quantity

	Coils []Coil
	Words []Word

	Coil Coil
	Word Word

	ServerID      byte
	RunIndication bool
	Data          []byte

	FuncCode FunctionCode
}

// FunctionCode returns the wire function code for the response.
func (r Response) FunctionCode() FunctionCode {
	switch r.Kind {
	case RespReadCoils:
		return ReadCoils
	case RespReadDiscreteInputs:
		return ReadDiscreteInputs
	case RespReadHoldingRegisters:
		return ReadHoldingRegisters
	case RespReadInputRegisters:
		return ReadInputRegisters
	case RespWriteSingleCoil:
		return WriteSingleCoil
	case RespWriteSingleRegister:
		return WriteSingleRegister
	case RespWriteMultipleCoils:
		return WriteMultipleCoils
	case RespWriteMultipleRegisters:
		return WriteMultipleRegisters
	case RespReportServerID:
		return ReportServerID
	case RespMaskWriteRegister:
		return MaskWriteRegister
	case RespReadWriteMultipleRegisters:
		return ReadWriteMultipleRegisters
	default:
		return r.FuncCode
	}
}

// requestKindToResponseKind maps a request's discriminant to the response
// discriminant the server must answer with; Custom requests answer with a
// Custom response of the same function code.
func requestKindToResponseKind(k RequestKind) ResponseKind {
	switch k {
	case ReqReadCoils:
		return RespReadCoils
	case ReqReadDiscreteInputs:
		return RespReadDiscreteInputs
	case ReqReadHoldingRegisters:
		return RespReadHoldingRegisters
	case ReqReadInputRegisters:
		return RespReadInputRegisters
	case ReqWriteSingleCoil:
		return RespWriteSingleCoil
	case ReqWriteSingleRegister:
		return RespWriteSingleRegister
	case ReqWriteMultipleCoils:
		return RespWriteMultipleCoils
	case ReqWriteMultipleRegisters:
		return RespWriteMultipleRegisters
	case ReqReportServerID:
		return RespReportServerID
	case ReqMaskWriteRegister:
		return RespMaskWriteRegister
	case ReqReadWriteMultipleRegisters:
		return RespReadWriteMultipleRegisters
	default:
		return RespCustom
	}
}
