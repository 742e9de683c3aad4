package modbus

import "context"

// framer bridges a Transport's byte stream to ADUs, hiding whether the wire
// format is RTU or TCP from the client and server engines. transID is
// meaningful only for TCP; RTU implementations ignore it on encode and
// always report 0 on decode.
type framer interface {
	encode(unit Slave, transID uint16, pdu []byte) ([]byte, error)
	decode(ctx context.Context, fr *frameReader, role Role) (unit Slave, transID uint16, pdu []byte, err error)
}

type tcpFramer struct{}

func (tcpFramer) encode(unit Slave, transID uint16, pdu []byte) ([]byte, error) {
	return EncodeTCPFrame(TCPADU{TransactionID: transID, UnitID: byte(unit), PDU: pdu})
}

func (tcpFramer) decode(ctx context.Context, fr *frameReader, _ Role) (Slave, uint16, []byte, error) {
	var adu TCPADU
	err := fr.readFrame(ctx, func(buf []byte) (int, error) {
		a, consumed, err := DecodeTCPFrame(buf)
		if err == nil {
			adu = a
		}
		return consumed, err
	})
	if err != nil {
		return 0, 0, nil, err
	}
	return Slave(adu.UnitID), adu.TransactionID, adu.PDU, nil
}

type rtuFramer struct{}

func (rtuFramer) encode(unit Slave, _ uint16, pdu []byte) ([]byte, error) {
	return EncodeRTUFrame(RTUADU{Slave: unit, PDU: pdu})
}

func (rtuFramer) decode(ctx context.Context, fr *frameReader, role Role) (Slave, uint16, []byte, error) {
	var adu RTUADU
	err := fr.readFrame(ctx, func(buf []byte) (int, error) {
		a, consumed, err := DecodeRTUFrame(buf, role)
		if err == nil {
			adu = a
		}
		return consumed, err
	})
	if err != nil {
		return 0, 0, nil, err
	}
	return adu.Slave, 0, adu.PDU, nil
}
