package modbus

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestEncodeDecodeTCPFrame(t *testing.T) {
	adu := TCPADU{TransactionID: 0x0007, UnitID: 0x06, PDU: []byte{0x03, 0x00, 0x6B, 0x00, 0x03}}
	frame, err := EncodeTCPFrame(adu)
	require.NoError(t, err)
	require.Equal(t, []byte{0x00, 0x07, 0x00, 0x00, 0x00, 0x06, 0x06}, frame[:7])

	got, consumed, err := DecodeTCPFrame(frame)
	require.NoError(t, err)
	require.Equal(t, len(frame), consumed)
	require.Equal(t, adu, got)
}

func TestDecodeTCPFrameNeedsMoreData(t *testing.T) {
	adu := TCPADU{TransactionID: 1, UnitID: 1, PDU: []byte{0x03, 0x00, 0x00, 0x00, 0x02}}
	frame, err := EncodeTCPFrame(adu)
	require.NoError(t, err)
	for n := 0; n < len(frame); n++ {
		_, consumed, err := DecodeTCPFrame(frame[:n])
		require.ErrorIs(t, err, ErrNeedMoreData)
		require.Zero(t, consumed)
	}
}

func TestDecodeTCPFrameRejectsNonzeroProtocolID(t *testing.T) {
	buf := []byte{0x00, 0x01, 0x00, 0x01, 0x00, 0x02, 0x01, 0x03}
	_, _, err := DecodeTCPFrame(buf)
	require.ErrorIs(t, err, ErrInvalidData)
}

func TestDecodeTCPFrameRejectsZeroLength(t *testing.T) {
	buf := []byte{0x00, 0x01, 0x00, 0x00, 0x00, 0x00, 0x01}
	_, _, err := DecodeTCPFrame(buf)
	require.ErrorIs(t, err, ErrInvalidData)
}

func TestEncodeTCPFrameRejectsEmptyPDU(t *testing.T) {
	_, err := EncodeTCPFrame(TCPADU{PDU: nil})
	require.ErrorIs(t, err, ErrPDUSizeExceeded)
}
