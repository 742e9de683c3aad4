package modbus

import (
	"encoding/binary"
	"fmt"
)

// mbapHeaderLen is the fixed 7-byte MBAP header: transaction id, protocol
// id, length, unit id.
const mbapHeaderLen = 7

// TCPADU is one Modbus TCP (MBAP-framed) application data unit.
type TCPADU struct {
	TransactionID uint16
	UnitID        byte
	PDU           []byte
}

// EncodeTCPFrame emits the 7-byte MBAP header followed by adu.PDU, with
// length = len(PDU) + 1 (the +1 accounts for UnitID).
func EncodeTCPFrame(adu TCPADU) ([]byte, error) {
	if len(adu.PDU) == 0 || len(adu.PDU) > MaxPDUSize {
		return nil, ErrPDUSizeExceeded
	}
	frame := make([]byte, mbapHeaderLen+len(adu.PDU))
	binary.BigEndian.PutUint16(frame[0:], adu.TransactionID)
	binary.BigEndian.PutUint16(frame[2:], 0) // protocol id is always 0
	binary.BigEndian.PutUint16(frame[4:], uint16(len(adu.PDU)+1))
	frame[6] = adu.UnitID
	copy(frame[mbapHeaderLen:], adu.PDU)
	return frame, nil
}

// DecodeTCPFrame splits one complete MBAP frame off the front of buf. It
// returns ErrNeedMoreData (consumed == 0) until the 7-byte header and then
// the declared body are both present, and ErrInvalidData if protocol_id is
// nonzero.
func DecodeTCPFrame(buf []byte) (TCPADU, int, error) {
	if len(buf) < mbapHeaderLen {
		return TCPADU{}, 0, ErrNeedMoreData
	}
	protocolID := binary.BigEndian.Uint16(buf[2:])
	if protocolID != 0 {
		return TCPADU{}, 0, fmt.Errorf("%w: mbap protocol id %d != 0", ErrInvalidData, protocolID)
	}
	length := binary.BigEndian.Uint16(buf[4:])
	if length == 0 {
		return TCPADU{}, 0, fmt.Errorf("%w: mbap length field is zero", ErrInvalidData)
	}
	total := mbapHeaderLen + int(length) - 1
	if len(buf) < total {
		return TCPADU{}, 0, ErrNeedMoreData
	}
	pduLen := total - mbapHeaderLen
	if pduLen == 0 || pduLen > MaxPDUSize {
		return TCPADU{}, 0, ErrPDUSizeExceeded
	}
	return TCPADU{
		TransactionID: binary.BigEndian.Uint16(buf[0:]),
		UnitID:        buf[6],
		PDU:           append([]byte(nil), buf[mbapHeaderLen:total]...),
	}, total, nil
}
