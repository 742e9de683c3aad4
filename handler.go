package modbus

import "context"

// Service answers one decoded Request addressed to slave. A returned error
// that is an ExceptionCode (or wraps one, via errors.As) is encoded back to
// the caller as a Modbus exception response; any other error aborts the
// connection, matching the reference module's Handler contract but
// operating on typed Requests instead of raw bytes, since codec.go already
// owns wire framing. A nil *Response with a nil error suppresses the reply
// entirely (beyond the broadcast case the server already handles), for a
// service sharing one RTU bus connection across slave addresses it does not
// all answer for.
type Service interface {
	Call(ctx context.Context, slave Slave, req Request) (*Response, error)
}

// ServiceFunc adapts a plain function to Service.
type ServiceFunc func(ctx context.Context, slave Slave, req Request) (*Response, error)

func (f ServiceFunc) Call(ctx context.Context, slave Slave, req Request) (*Response, error) {
	return f(ctx, slave, req)
}

var _ Service = (*Mux)(nil)

// Mux dispatches a decoded Request to one callback per function, mirroring
// the reference module's request multiplexer. A nil callback answers
// IllegalFunction; Fallback, if set, handles Custom requests only, and is
// not consulted for a standard function whose callback is nil. All
// callbacks must be safe for concurrent use.
//
// Filter, if set, is consulted before dispatch; it returning false suppresses
// the reply entirely rather than answering with an exception, for a Mux
// shared across several slave addresses on one RTU bus connection where
// only some addresses are this device's own.
type Mux struct {
	Filter                     func(slave Slave) bool
	Fallback                   func(ctx context.Context, req Request) (Response, error)
	ReadCoils                  func(ctx context.Context, address Address, quantity Quantity) ([]Coil, error)
	ReadDiscreteInputs         func(ctx context.Context, address Address, quantity Quantity) ([]Coil, error)
	ReadHoldingRegisters       func(ctx context.Context, address Address, quantity Quantity) ([]Word, error)
	ReadInputRegisters         func(ctx context.Context, address Address, quantity Quantity) ([]Word, error)
	WriteSingleCoil            func(ctx context.Context, address Address, value Coil) error
	WriteSingleRegister        func(ctx context.Context, address Address, value Word) error
	WriteMultipleCoils         func(ctx context.Context, address Address, values []Coil) error
	WriteMultipleRegisters     func(ctx context.Context, address Address, values []Word) error
	ReportServerID             func(ctx context.Context) (id byte, runIndication bool, data []byte, err error)
	MaskWriteRegister          func(ctx context.Context, address Address, andMask, orMask Word) error
	ReadWriteMultipleRegisters func(ctx context.Context, readAddress Address, readQuantity Quantity, writeAddress Address, writeValues []Word) ([]Word, error)
}

// Call dispatches req to the matching callback, or suppresses the reply if
// Filter rejects slave. Address-range overflow is checked here, since the
// codec only validates quantity bounds; the per-function quantity/byte_count
// agreement was already checked by DecodeRequest before Call is reached.
func (m *Mux) Call(ctx context.Context, slave Slave, req Request) (*Response, error) {
	if m.Filter != nil && !m.Filter(slave) {
		return nil, nil
	}

	var resp Response
	var err error
	switch req.Kind {
	case ReqReadCoils:
		resp, err = m.readBits(ctx, req, m.ReadCoils, RespReadCoils)
	case ReqReadDiscreteInputs:
		resp, err = m.readBits(ctx, req, m.ReadDiscreteInputs, RespReadDiscreteInputs)
	case ReqReadHoldingRegisters:
		resp, err = m.readWords(ctx, req, m.ReadHoldingRegisters, RespReadHoldingRegisters)
	case ReqReadInputRegisters:
		resp, err = m.readWords(ctx, req, m.ReadInputRegisters, RespReadInputRegisters)
	case ReqWriteSingleCoil:
		resp, err = m.writeSingleCoil(ctx, req)
	case ReqWriteSingleRegister:
		resp, err = m.writeSingleRegister(ctx, req)
	case ReqWriteMultipleCoils:
		resp, err = m.writeMultipleCoils(ctx, req)
	case ReqWriteMultipleRegisters:
		resp, err = m.writeMultipleRegisters(ctx, req)
	case ReqReportServerID:
		resp, err = m.reportServerID(ctx)
	case ReqMaskWriteRegister:
		resp, err = m.maskWriteRegister(ctx, req)
	case ReqReadWriteMultipleRegisters:
		resp, err = m.readWriteMultipleRegisters(ctx, req)
	default:
		resp, err = m.fallback(ctx, req)
	}
	if err != nil {
		return nil, err
	}
	return &resp, nil
}

func (m *Mux) fallback(ctx context.Context, req Request) (Response, error) {
	if m.Fallback == nil {
		return Response{}, IllegalFunction
	}
	return m.Fallback(ctx, req)
}

func addressInRange(address Address, quantity Quantity) bool {
	return int(address)+int(quantity) <= 0xFFFF
}

func (m *Mux) readBits(ctx context.Context, req Request, fn func(context.Context, Address, Quantity) ([]Coil, error), kind ResponseKind) (Response, error) {
	if fn == nil {
		return Response{}, IllegalFunction
	}
	if !addressInRange(req.Address, req.Quantity) {
		return Response{}, IllegalDataAddress
	}
	values, err := fn(ctx, req.Address, req.Quantity)
	if err != nil {
		return Response{}, err
	}
	if len(values) != int(req.Quantity) {
		return Response{}, ServerDeviceFailure
	}
	return Response{Kind: kind, Coils: values}, nil
}

func (m *Mux) readWords(ctx context.Context, req Request, fn func(context.Context, Address, Quantity) ([]Word, error), kind ResponseKind) (Response, error) {
	if fn == nil {
		return Response{}, IllegalFunction
	}
	if !addressInRange(req.Address, req.Quantity) {
		return Response{}, IllegalDataAddress
	}
	values, err := fn(ctx, req.Address, req.Quantity)
	if err != nil {
		return Response{}, err
	}
	if len(values) != int(req.Quantity) {
		return Response{}, ServerDeviceFailure
	}
	return Response{Kind: kind, Words: values}, nil
}

func (m *Mux) writeSingleCoil(ctx context.Context, req Request) (Response, error) {
	if m.WriteSingleCoil == nil {
		return Response{}, IllegalFunction
	}
	if err := m.WriteSingleCoil(ctx, req.Address, req.Coil); err != nil {
		return Response{}, err
	}
	return Response{Kind: RespWriteSingleCoil, Address: req.Address, Coil: req.Coil}, nil
}

func (m *Mux) writeSingleRegister(ctx context.Context, req Request) (Response, error) {
	if m.WriteSingleRegister == nil {
		return Response{}, IllegalFunction
	}
	if err := m.WriteSingleRegister(ctx, req.Address, req.Word); err != nil {
		return Response{}, err
	}
	return Response{Kind: RespWriteSingleRegister, Address: req.Address, Word: req.Word}, nil
}

func (m *Mux) writeMultipleCoils(ctx context.Context, req Request) (Response, error) {
	if m.WriteMultipleCoils == nil {
		return Response{}, IllegalFunction
	}
	if !addressInRange(req.Address, req.Quantity) {
		return Response{}, IllegalDataAddress
	}
	if err := m.WriteMultipleCoils(ctx, req.Address, req.Coils); err != nil {
		return Response{}, err
	}
	return Response{Kind: RespWriteMultipleCoils, Address: req.Address, Quantity: req.Quantity}, nil
}

func (m *Mux) writeMultipleRegisters(ctx context.Context, req Request) (Response, error) {
	if m.WriteMultipleRegisters == nil {
		return Response{}, IllegalFunction
	}
	if !addressInRange(req.Address, req.Quantity) {
		return Response{}, IllegalDataAddress
	}
	if err := m.WriteMultipleRegisters(ctx, req.Address, req.Words); err != nil {
		return Response{}, err
	}
	return Response{Kind: RespWriteMultipleRegisters, Address: req.Address, Quantity: req.Quantity}, nil
}

func (m *Mux) reportServerID(ctx context.Context) (Response, error) {
	if m.ReportServerID == nil {
		return Response{}, IllegalFunction
	}
	id, run, data, err := m.ReportServerID(ctx)
	if err != nil {
		return Response{}, err
	}
	return Response{Kind: RespReportServerID, ServerID: id, RunIndication: run, Data: data}, nil
}

func (m *Mux) maskWriteRegister(ctx context.Context, req Request) (Response, error) {
	if m.MaskWriteRegister == nil {
		return Response{}, IllegalFunction
	}
	if err := m.MaskWriteRegister(ctx, req.Address, req.AndMask, req.OrMask); err != nil {
		return Response{}, err
	}
	return Response{Kind: RespMaskWriteRegister, Address: req.Address, Words: []Word{req.AndMask, req.OrMask}}, nil
}

func (m *Mux) readWriteMultipleRegisters(ctx context.Context, req Request) (Response, error) {
	if m.ReadWriteMultipleRegisters == nil {
		return Response{}, IllegalFunction
	}
	if !addressInRange(req.Address, req.Quantity) || !addressInRange(req.WriteAddress, req.WriteQuantity) {
		return Response{}, IllegalDataAddress
	}
	values, err := m.ReadWriteMultipleRegisters(ctx, req.Address, req.Quantity, req.WriteAddress, req.WriteWords)
	if err != nil {
		return Response{}, err
	}
	if len(values) != int(req.Quantity) {
		return Response{}, ServerDeviceFailure
	}
	return Response{Kind: RespReadWriteMultipleRegisters, Words: values}, nil
}
