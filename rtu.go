package modbus

import (
	"encoding/binary"
	"fmt"
)

// RTUADU is one Modbus RTU application data unit: a slave address, a PDU,
// and its CRC-16 (recomputed on encode, verified on decode).
type RTUADU struct {
	Slave Slave
	PDU   []byte
}

// Role selects which length-prediction table an RTU decoder consults: a
// client predicts the shape of an incoming response, a server predicts the
// shape of an incoming request.
type Role int

const (
	RoleClient Role = iota
	RoleServer
)

// minRTUFrame is address(1) + function code(1) + crc(2); the RTU decoder's
// length tables report how many bytes follow the function code, and a full
// frame is always minRTUFrame + that count.
const minRTUFrame = 4

// CRC16 computes the Modbus RTU CRC-16 over data: seed 0xFFFF, XOR each byte
// into the low byte, 8 rounds of shift-right-and-conditionally-XOR-0xA001,
// then a final byte swap, so that writing the result big-endian puts the
// register's low byte first on the wire.
func CRC16(data []byte) uint16 {
	crc := uint16(0xFFFF)
	for _, b := range data {
		crc ^= uint16(b)
		for i := 0; i < 8; i++ {
			if crc&1 != 0 {
				crc = crc>>1 ^ 0xA001
			} else {
				crc >>= 1
			}
		}
	}
	return crc<<8 | crc>>8
}

// EncodeRTUFrame wraps adu.PDU with the slave address and a trailing CRC-16.
func EncodeRTUFrame(adu RTUADU) ([]byte, error) {
	if len(adu.PDU) == 0 || len(adu.PDU) > MaxPDUSize {
		return nil, ErrPDUSizeExceeded
	}
	frame := make([]byte, 1+len(adu.PDU)+2)
	frame[0] = byte(adu.Slave)
	copy(frame[1:], adu.PDU)
	crc := CRC16(frame[:1+len(adu.PDU)])
	binary.BigEndian.PutUint16(frame[1+len(adu.PDU):], crc)
	return frame, nil
}

// DecodeRTUFrame attempts to split one complete frame off the front of buf.
// It returns ErrNeedMoreData (consumed == 0, buf untouched) when the prefix
// is too short to predict a length or too short to hold the predicted
// frame, and ErrInvalidData for an unrecognized function code, a request
// carrying the exception bit, or a CRC mismatch. On success it returns the
// decoded ADU and the number of bytes consumed from buf's front; on a CRC
// mismatch it still reports consumed so the caller can choose to discard
// exactly that frame, though clearing the whole buffer is the safer
// resynchronization policy (see package docs / design notes).
func DecodeRTUFrame(buf []byte, role Role) (RTUADU, int, error) {
	if len(buf) < 2 {
		return RTUADU{}, 0, ErrNeedMoreData
	}

	var payloadLen int
	var err error
	if role == RoleServer {
		payloadLen, err = requestPayloadLen(buf)
	} else {
		payloadLen, err = responsePayloadLen(buf)
	}
	if err != nil {
		return RTUADU{}, 0, err
	}

	total := minRTUFrame + payloadLen
	if len(buf) < total {
		return RTUADU{}, 0, ErrNeedMoreData
	}

	frame := buf[:total]
	pdu := frame[1 : 2+payloadLen]
	wantCRC := binary.BigEndian.Uint16(frame[total-2:])
	gotCRC := CRC16(frame[:total-2])
	if gotCRC != wantCRC {
		return RTUADU{}, total, fmt.Errorf("%w: rtu crc mismatch", ErrInvalidData)
	}

	return RTUADU{Slave: Slave(frame[0]), PDU: append([]byte(nil), pdu...)}, total, nil
}

// requestPayloadLen predicts, from an ADU prefix (address, function code,
// and for variable-length codes one more length-bearing byte), how many
// bytes follow the function code in an incoming request. For 0x0F/0x10 the
// byte_count is the 5th byte after the function code (ADU index 6, after
// the 2-byte start address and 2-byte quantity); for 0x17 it is the 9th
// (ADU index 10).
func requestPayloadLen(buf []byte) (int, error) {
	fc := buf[1]
	if fc&0x80 != 0 {
		return 0, fmt.Errorf("%w: request function code carries the exception bit", ErrInvalidData)
	}
	switch fc {
	case 0x01, 0x02, 0x03, 0x04, 0x05, 0x06, 0x0B, 0x11:
		return 4, nil
	case 0x0F, 0x10:
		if len(buf) <= 4 {
			return 0, ErrNeedMoreData
		}
		return 5 + int(buf[4]), nil
	case 0x16:
		return 6, nil
	case 0x17:
		if len(buf) <= 10 {
			return 0, ErrNeedMoreData
		}
		return 9 + int(buf[10]), nil
	default:
		return 0, fmt.Errorf("%w: unrecognized rtu request function code %#02x", ErrInvalidData, fc)
	}
}

// responsePayloadLen is requestPayloadLen's mirror for the client role: an
// incoming response's shape.
func responsePayloadLen(buf []byte) (int, error) {
	fc := buf[1]
	if fc&0x80 != 0 {
		return 1, nil
	}
	switch fc {
	case 0x01, 0x02, 0x03, 0x04, 0x0C, 0x17:
		if len(buf) <= 2 {
			return 0, ErrNeedMoreData
		}
		return 1 + int(buf[2]), nil
	case 0x05, 0x06, 0x0B, 0x0F, 0x10:
		return 4, nil
	case 0x07:
		return 1, nil
	default:
		return 0, fmt.Errorf("%w: unrecognized rtu response function code %#02x", ErrInvalidData, fc)
	}
}
