package modbus

import (
	"encoding/binary"
	"fmt"
)

// MaxPDUSize is the largest a Modbus PDU (function code + payload) may be,
// on both encode and decode.
const MaxPDUSize = 253

// PackCoils packs coils into bytes, LSB-first within each byte: coil i lives
// in byte i/8, bit i%8. The result is ⌈len(coils)/8⌉ bytes; unused trailing
// bits are zero.
func PackCoils(coils []Coil) []byte {
	out := make([]byte, byteCount(len(coils)))
	for i, c := range coils {
		if c {
			out[i/8] |= 1 << uint(i%8)
		}
	}
	return out
}

// UnpackCoils unpacks the first count coils from data, LSB-first within each
// byte.
func UnpackCoils(data []byte, count int) []Coil {
	out := make([]Coil, count)
	for i := range out {
		out[i] = data[i/8]&(1<<uint(i%8)) != 0
	}
	return out
}

func byteCount(bitCount int) int {
	return (bitCount + 7) / 8
}

func putWords(buf []byte, words []Word) {
	for i, w := range words {
		binary.BigEndian.PutUint16(buf[2*i:], w)
	}
}

func getWords(data []byte, count int) []Word {
	out := make([]Word, count)
	for i := range out {
		out[i] = binary.BigEndian.Uint16(data[2*i:])
	}
	return out
}

func coilWire(c Coil) Word {
	if c {
		return 0xFF00
	}
	return 0x0000
}

func wireCoil(w Word) (Coil, error) {
	switch w {
	case 0xFF00:
		return true, nil
	case 0x0000:
		return false, nil
	default:
		return false, fmt.Errorf("%w: coil value %#04x", ErrInvalidData, w)
	}
}

// EncodeRequest encodes req into a fresh PDU (function code + payload). It
// fails with ErrPDUSizeExceeded before allocating if the result would exceed
// MaxPDUSize.
func EncodeRequest(req Request) ([]byte, error) {
	switch req.Kind {
	case ReqReadCoils, ReqReadDiscreteInputs:
		return encodeAddrQty(req.FunctionCode(), req.Address, req.Quantity)
	case ReqReadHoldingRegisters, ReqReadInputRegisters:
		return encodeAddrQty(req.FunctionCode(), req.Address, req.Quantity)
	case ReqWriteSingleCoil:
		return encodeAddrWord(WriteSingleCoil, req.Address, coilWire(req.Coil))
	case ReqWriteSingleRegister:
		return encodeAddrWord(WriteSingleRegister, req.Address, req.Word)
	case ReqWriteMultipleCoils:
		packed := PackCoils(req.Coils)
		return sizeChecked(func(buf []byte) {
			buf[0] = byte(WriteMultipleCoils)
			binary.BigEndian.PutUint16(buf[1:], req.Address)
			binary.BigEndian.PutUint16(buf[3:], Quantity(len(req.Coils)))
			buf[5] = byte(len(packed))
			copy(buf[6:], packed)
		}, 6+len(packed))
	case ReqWriteMultipleRegisters:
		n := len(req.Words)
		return sizeChecked(func(buf []byte) {
			buf[0] = byte(WriteMultipleRegisters)
			binary.BigEndian.PutUint16(buf[1:], req.Address)
			binary.BigEndian.PutUint16(buf[3:], Quantity(n))
			buf[5] = byte(2 * n)
			putWords(buf[6:], req.Words)
		}, 6+2*n)
	case ReqReportServerID:
		return []byte{byte(ReportServerID)}, nil
	case ReqMaskWriteRegister:
		return sizeChecked(func(buf []byte) {
			buf[0] = byte(MaskWriteRegister)
			binary.BigEndian.PutUint16(buf[1:], req.Address)
			binary.BigEndian.PutUint16(buf[3:], req.AndMask)
			binary.BigEndian.PutUint16(buf[5:], req.OrMask)
		}, 7)
	case ReqReadWriteMultipleRegisters:
		n := len(req.WriteWords)
		return sizeChecked(func(buf []byte) {
			buf[0] = byte(ReadWriteMultipleRegisters)
			binary.BigEndian.PutUint16(buf[1:], req.Address)
			binary.BigEndian.PutUint16(buf[3:], req.Quantity)
			binary.BigEndian.PutUint16(buf[5:], req.WriteAddress)
			binary.BigEndian.PutUint16(buf[7:], Quantity(n))
			buf[9] = byte(2 * n)
			putWords(buf[10:], req.WriteWords)
		}, 10+2*n)
	case ReqCustom:
		return sizeChecked(func(buf []byte) {
			buf[0] = byte(req.FuncCode)
			copy(buf[1:], req.Data)
		}, 1+len(req.Data))
	default:
		return nil, fmt.Errorf("%w: unknown request kind %d", ErrInvalidParameter, req.Kind)
	}
}

func encodeAddrQty(fc FunctionCode, address Address, quantity Quantity) ([]byte, error) {
	return sizeChecked(func(buf []byte) {
		buf[0] = byte(fc)
		binary.BigEndian.PutUint16(buf[1:], address)
		binary.BigEndian.PutUint16(buf[3:], quantity)
	}, 5)
}

func encodeAddrWord(fc FunctionCode, address Address, value Word) ([]byte, error) {
	return sizeChecked(func(buf []byte) {
		buf[0] = byte(fc)
		binary.BigEndian.PutUint16(buf[1:], address)
		binary.BigEndian.PutUint16(buf[3:], value)
	}, 5)
}

func sizeChecked(fill func(buf []byte), size int) ([]byte, error) {
	if size > MaxPDUSize {
		return nil, ErrPDUSizeExceeded
	}
	buf := make([]byte, size)
	fill(buf)
	return buf, nil
}

// DecodeRequest decodes pdu (function code + payload) into a Request. It
// validates byte_count/quantity agreement and rejects trailing bytes.
func DecodeRequest(pdu []byte) (Request, error) {
	if len(pdu) == 0 || len(pdu) > MaxPDUSize {
		return Request{}, ErrPDUSizeExceeded
	}
	fc := FunctionCode(pdu[0])
	if fc.IsException() {
		return Request{}, fmt.Errorf("%w: request cannot carry the exception bit", ErrInvalidData)
	}
	data := pdu[1:]
	switch fc {
	case ReadCoils:
		return decodeReadReq(ReqReadCoils, data)
	case ReadDiscreteInputs:
		return decodeReadReq(ReqReadDiscreteInputs, data)
	case ReadHoldingRegisters:
		return decodeReadReq(ReqReadHoldingRegisters, data)
	case ReadInputRegisters:
		return decodeReadReq(ReqReadInputRegisters, data)
	case WriteSingleCoil:
		if len(data) != 4 {
			return Request{}, trailingErr(len(data), 4)
		}
		coil, err := wireCoil(binary.BigEndian.Uint16(data[2:]))
		if err != nil {
			return Request{}, err
		}
		return NewWriteSingleCoil(binary.BigEndian.Uint16(data), coil), nil
	case WriteSingleRegister:
		if len(data) != 4 {
			return Request{}, trailingErr(len(data), 4)
		}
		return NewWriteSingleRegister(binary.BigEndian.Uint16(data), binary.BigEndian.Uint16(data[2:])), nil
	case WriteMultipleCoils:
		if len(data) < 5 {
			return Request{}, fmt.Errorf("%w: short write_multiple_coils request", ErrInvalidData)
		}
		address := binary.BigEndian.Uint16(data)
		qty := binary.BigEndian.Uint16(data[2:])
		bc := int(data[4])
		if qty < 1 || qty > 1968 || bc != byteCount(int(qty)) || len(data[5:]) != bc {
			return Request{}, fmt.Errorf("%w: write_multiple_coils byte_count/quantity mismatch", ErrInvalidData)
		}
		return NewWriteMultipleCoils(address, UnpackCoils(data[5:], int(qty))), nil
	case WriteMultipleRegisters:
		if len(data) < 5 {
			return Request{}, fmt.Errorf("%w: short write_multiple_registers request", ErrInvalidData)
		}
		address := binary.BigEndian.Uint16(data)
		qty := binary.BigEndian.Uint16(data[2:])
		bc := int(data[4])
		if qty < 1 || qty > 123 || bc != 2*int(qty) || len(data[5:]) != bc {
			return Request{}, fmt.Errorf("%w: write_multiple_registers byte_count/quantity mismatch", ErrInvalidData)
		}
		return NewWriteMultipleRegisters(address, getWords(data[5:], int(qty))), nil
	case ReportServerID:
		if len(data) != 0 {
			return Request{}, trailingErr(len(data), 0)
		}
		return NewReportServerID(), nil
	case MaskWriteRegister:
		if len(data) != 6 {
			return Request{}, trailingErr(len(data), 6)
		}
		return NewMaskWriteRegister(binary.BigEndian.Uint16(data), binary.BigEndian.Uint16(data[2:]), binary.BigEndian.Uint16(data[4:])), nil
	case ReadWriteMultipleRegisters:
		if len(data) < 9 {
			return Request{}, fmt.Errorf("%w: short read_write_multiple_registers request", ErrInvalidData)
		}
		rAddr := binary.BigEndian.Uint16(data)
		rQty := binary.BigEndian.Uint16(data[2:])
		wAddr := binary.BigEndian.Uint16(data[4:])
		wQty := binary.BigEndian.Uint16(data[6:])
		bc := int(data[8])
		if rQty < 1 || rQty > 125 || wQty < 1 || wQty > 121 || bc != 2*int(wQty) || len(data[9:]) != bc {
			return Request{}, fmt.Errorf("%w: read_write_multiple_registers byte_count/quantity mismatch", ErrInvalidData)
		}
		return NewReadWriteMultipleRegisters(rAddr, rQty, wAddr, getWords(data[9:], int(wQty))), nil
	default:
		return NewCustomRequest(fc, append([]byte(nil), data...)), nil
	}
}

func decodeReadReq(kind RequestKind, data []byte) (Request, error) {
	if len(data) != 4 {
		return Request{}, trailingErr(len(data), 4)
	}
	qty := binary.BigEndian.Uint16(data[2:])
	max := Quantity(125)
	if kind == ReqReadCoils || kind == ReqReadDiscreteInputs {
		max = 2000
	}
	if qty < 1 || qty > max {
		return Request{}, fmt.Errorf("%w: quantity %d out of range", ErrInvalidData, qty)
	}
	return Request{Kind: kind, Address: binary.BigEndian.Uint16(data), Quantity: qty}, nil
}

func trailingErr(got, want int) error {
	if got < want {
		return fmt.Errorf("%w: short payload (%d of %d bytes)", ErrInvalidData, got, want)
	}
	return fmt.Errorf("%w: trailing unconsumed bytes (%d, expected %d)", ErrInvalidData, got, want)
}

// EncodeResponse encodes resp into a fresh PDU.
func EncodeResponse(resp Response) ([]byte, error) {
	switch resp.Kind {
	case RespReadCoils, RespReadDiscreteInputs:
		packed := PackCoils(resp.Coils)
		return sizeChecked(func(buf []byte) {
			buf[0] = byte(resp.FunctionCode())
			buf[1] = byte(len(packed))
			copy(buf[2:], packed)
		}, 2+len(packed))
	case RespReadHoldingRegisters, RespReadInputRegisters:
		n := len(resp.Words)
		return sizeChecked(func(buf []byte) {
			buf[0] = byte(resp.FunctionCode())
			buf[1] = byte(2 * n)
			putWords(buf[2:], resp.Words)
		}, 2+2*n)
	case RespWriteSingleCoil:
		return encodeAddrWord(WriteSingleCoil, resp.Address, coilWire(resp.Coil))
	case RespWriteSingleRegister:
		return encodeAddrWord(WriteSingleRegister, resp.Address, resp.Word)
	case RespWriteMultipleCoils:
		return encodeAddrQty(WriteMultipleCoils, resp.Address, resp.Quantity)
	case RespWriteMultipleRegisters:
		return encodeAddrQty(WriteMultipleRegisters, resp.Address, resp.Quantity)
	case RespReportServerID:
		n := len(resp.Data)
		return sizeChecked(func(buf []byte) {
			buf[0] = byte(ReportServerID)
			buf[1] = byte(2 + n)
			buf[2] = resp.ServerID
			if resp.RunIndication {
				buf[3] = 0xFF
			}
			copy(buf[4:], resp.Data)
		}, 4+n)
	case RespMaskWriteRegister:
		return sizeChecked(func(buf []byte) {
			buf[0] = byte(MaskWriteRegister)
			binary.BigEndian.PutUint16(buf[1:], resp.Address)
			binary.BigEndian.PutUint16(buf[3:], resp.Words[0])
			binary.BigEndian.PutUint16(buf[5:], resp.Words[1])
		}, 7)
	case RespReadWriteMultipleRegisters:
		n := len(resp.Words)
		return sizeChecked(func(buf []byte) {
			buf[0] = byte(ReadWriteMultipleRegisters)
			buf[1] = byte(2 * n)
			putWords(buf[2:], resp.Words)
		}, 2+2*n)
	case RespCustom:
		return sizeChecked(func(buf []byte) {
			buf[0] = byte(resp.FuncCode)
			copy(buf[1:], resp.Data)
		}, 1+len(resp.Data))
	default:
		return nil, fmt.Errorf("%w: unknown response kind %d", ErrInvalidParameter, resp.Kind)
	}
}

// EncodeExceptionResponse encodes an exception response PDU: the function
// code with its high bit set, followed by the exception byte.
func EncodeExceptionResponse(e *ExceptionResponse) []byte {
	return []byte{byte(e.Function.AsException()), byte(e.Exception)}
}

// DecodeResponsePDU decodes pdu as either a normal Response or an
// ExceptionResponse, dispatching on the function code's high bit. If the
// frame is an exception, the returned error is *ExceptionResponse
// (errors.As matches); the Response is then the zero value.
func DecodeResponsePDU(pdu []byte) (Response, error) {
	if len(pdu) == 0 || len(pdu) > MaxPDUSize {
		return Response{}, ErrPDUSizeExceeded
	}
	fc := FunctionCode(pdu[0])
	if fc.IsException() {
		if len(pdu) != 2 {
			return Response{}, trailingErr(len(pdu)-1, 1)
		}
		return Response{}, &ExceptionResponse{Function: fc.Unexception(), Exception: ExceptionCode(pdu[1])}
	}
	return decodeResponse(fc, pdu[1:])
}

func decodeResponse(fc FunctionCode, data []byte) (Response, error) {
	switch fc {
	case ReadCoils, ReadDiscreteInputs:
		return decodeReadBitsResp(fc, data)
	case ReadHoldingRegisters, ReadInputRegisters:
		return decodeReadWordsResp(fc, data)
	case WriteSingleCoil:
		if len(data) != 4 {
			return Response{}, trailingErr(len(data), 4)
		}
		coil, err := wireCoil(binary.BigEndian.Uint16(data[2:]))
		if err != nil {
			return Response{}, err
		}
		return Response{Kind: RespWriteSingleCoil, Address: binary.BigEndian.Uint16(data), Coil: coil}, nil
	case WriteSingleRegister:
		if len(data) != 4 {
			return Response{}, trailingErr(len(data), 4)
		}
		return Response{Kind: RespWriteSingleRegister, Address: binary.BigEndian.Uint16(data), Word: binary.BigEndian.Uint16(data[2:])}, nil
	case WriteMultipleCoils:
		if len(data) != 4 {
			return Response{}, trailingErr(len(data), 4)
		}
		return Response{Kind: RespWriteMultipleCoils, Address: binary.BigEndian.Uint16(data), Quantity: binary.BigEndian.Uint16(data[2:])}, nil
	case WriteMultipleRegisters:
		if len(data) != 4 {
			return Response{}, trailingErr(len(data), 4)
		}
		return Response{Kind: RespWriteMultipleRegisters, Address: binary.BigEndian.Uint16(data), Quantity: binary.BigEndian.Uint16(data[2:])}, nil
	case ReportServerID:
		if len(data) < 2 {
			return Response{}, fmt.Errorf("%w: short report_server_id response", ErrInvalidData)
		}
		bc := int(data[0])
		if bc != len(data[1:]) || bc < 2 {
			return Response{}, fmt.Errorf("%w: report_server_id byte_count mismatch", ErrInvalidData)
		}
		run := data[2]
		if run != 0x00 && run != 0xFF {
			return Response{}, fmt.Errorf("%w: run_indication %#02x", ErrInvalidData, run)
		}
		return Response{
			Kind:          RespReportServerID,
			ServerID:      data[1],
			RunIndication: run == 0xFF,
			Data:          append([]byte(nil), data[3:]...),
		}, nil
	case MaskWriteRegister:
		if len(data) != 6 {
			return Response{}, trailingErr(len(data), 6)
		}
		return Response{
			Kind:    RespMaskWriteRegister,
			Address: binary.BigEndian.Uint16(data),
			Words:   []Word{binary.BigEndian.Uint16(data[2:]), binary.BigEndian.Uint16(data[4:])},
		}, nil
	case ReadWriteMultipleRegisters:
		return decodeReadWordsResp(fc, data)
	default:
		return Response{Kind: RespCustom, FuncCode: fc, Data: append([]byte(nil), data...)}, nil
	}
}

func decodeReadBitsResp(fc FunctionCode, data []byte) (Response, error) {
	if len(data) < 1 {
		return Response{}, fmt.Errorf("%w: short read-bits response", ErrInvalidData)
	}
	bc := int(data[0])
	if bc != len(data[1:]) {
		return Response{}, fmt.Errorf("%w: byte_count mismatch", ErrInvalidData)
	}
	// The wire format only carries whole bytes, so bc*8 coils are decoded;
	// Context.ReadCoils/ReadDiscreteInputs truncate to the requested count,
	// Client.Call does not.
	kind := RespReadCoils
	if fc == ReadDiscreteInputs {
		kind = RespReadDiscreteInputs
	}
	return Response{Kind: kind, Coils: UnpackCoils(data[1:], bc*8)}, nil
}

func decodeReadWordsResp(fc FunctionCode, data []byte) (Response, error) {
	if len(data) < 1 {
		return Response{}, fmt.Errorf("%w: short read-words response", ErrInvalidData)
	}
	bc := int(data[0])
	if bc != len(data[1:]) || bc%2 != 0 {
		return Response{}, fmt.Errorf("%w: byte_count mismatch", ErrInvalidData)
	}
	kind := RespReadHoldingRegisters
	switch fc {
	case ReadInputRegisters:
		kind = RespReadInputRegisters
	case ReadWriteMultipleRegisters:
		kind = RespReadWriteMultipleRegisters
	}
	return Response{Kind: kind, Words: getWords(data[1:], bc/2)}, nil
}
