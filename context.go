package modbus

import gocontext "context"

// Context binds a Client to one target Slave and exposes one typed method
// per standard function, matching the reference module's sync/async client
// surface instead of making every caller build a Request by hand.
type Context struct {
	Slave  Slave
	Client *Client
}

// NewContext returns a Context addressing slave through c.
func NewContext(c *Client, slave Slave) *Context {
	return &Context{Slave: slave, Client: c}
}

func (x *Context) call(ctx gocontext.Context, req Request) (Response, error) {
	return x.Client.Call(ctx, x.Slave, req)
}

// ReadCoils reads quantity coils starting at address. The returned slice is
// truncated to exactly quantity entries even though the wire response is
// byte_count*8-padded.
func (x *Context) ReadCoils(ctx gocontext.Context, address Address, quantity Quantity) ([]Coil, error) {
	resp, err := x.call(ctx, NewReadCoils(address, quantity))
	if err != nil {
		return nil, err
	}
	return truncateCoils(resp.Coils, int(quantity)), nil
}

// ReadDiscreteInputs reads quantity discrete inputs starting at address.
func (x *Context) ReadDiscreteInputs(ctx gocontext.Context, address Address, quantity Quantity) ([]Coil, error) {
	resp, err := x.call(ctx, NewReadDiscreteInputs(address, quantity))
	if err != nil {
		return nil, err
	}
	return truncateCoils(resp.Coils, int(quantity)), nil
}

// ReadHoldingRegisters reads quantity holding registers starting at address.
func (x *Context) ReadHoldingRegisters(ctx gocontext.Context, address Address, quantity Quantity) ([]Word, error) {
	resp, err := x.call(ctx, NewReadHoldingRegisters(address, quantity))
	if err != nil {
		return nil, err
	}
	return resp.Words, nil
}

// ReadInputRegisters reads quantity input registers starting at address.
func (x *Context) ReadInputRegisters(ctx gocontext.Context, address Address, quantity Quantity) ([]Word, error) {
	resp, err := x.call(ctx, NewReadInputRegisters(address, quantity))
	if err != nil {
		return nil, err
	}
	return resp.Words, nil
}

// WriteSingleCoil writes one coil at address.
func (x *Context) WriteSingleCoil(ctx gocontext.Context, address Address, value Coil) error {
	_, err := x.call(ctx, NewWriteSingleCoil(address, value))
	return err
}

// WriteSingleRegister writes one register at address.
func (x *Context) WriteSingleRegister(ctx gocontext.Context, address Address, value Word) error {
	_, err := x.call(ctx, NewWriteSingleRegister(address, value))
	return err
}

// WriteMultipleCoils writes coils starting at address.
func (x *Context) WriteMultipleCoils(ctx gocontext.Context, address Address, coils []Coil) error {
	_, err := x.call(ctx, NewWriteMultipleCoils(address, coils))
	return err
}

// WriteMultipleRegisters writes words starting at address.
func (x *Context) WriteMultipleRegisters(ctx gocontext.Context, address Address, words []Word) error {
	_, err := x.call(ctx, NewWriteMultipleRegisters(address, words))
	return err
}

// MaskWriteRegister applies (current & andMask) | (orMask &^ andMask) to the
// register at address.
func (x *Context) MaskWriteRegister(ctx gocontext.Context, address Address, andMask, orMask Word) error {
	_, err := x.call(ctx, NewMaskWriteRegister(address, andMask, orMask))
	return err
}

// ReadWriteMultipleRegisters writes writeWords at writeAddress, then reads
// quantity registers starting at readAddress, atomically from the slave's
// point of view.
func (x *Context) ReadWriteMultipleRegisters(ctx gocontext.Context, readAddress Address, quantity Quantity, writeAddress Address, writeWords []Word) ([]Word, error) {
	resp, err := x.call(ctx, NewReadWriteMultipleRegisters(readAddress, quantity, writeAddress, writeWords))
	if err != nil {
		return nil, err
	}
	return resp.Words, nil
}

// ReportServerID issues the diagnostic "report server id" request.
func (x *Context) ReportServerID(ctx gocontext.Context) (id byte, runIndication bool, data []byte, err error) {
	resp, err := x.call(ctx, NewReportServerID())
	if err != nil {
		return 0, false, nil, err
	}
	return resp.ServerID, resp.RunIndication, resp.Data, nil
}

func truncateCoils(coils []Coil, n int) []Coil {
	if n >= len(coils) {
		return coils
	}
	return coils[:n]
}
