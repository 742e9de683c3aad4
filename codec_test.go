package modbus

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

func TestPackUnpackCoils(t *testing.T) {
	cases := []struct {
		coils []Coil
		want  []byte
	}{
		{[]Coil{}, []byte{}},
		{[]Coil{true}, []byte{0x01}},
		{[]Coil{false, true, false, true, false, false, false, false, true}, []byte{0x0A, 0x01}},
		{[]Coil{true, true, true, true, true, true, true, true}, []byte{0xFF}},
	}
	for _, c := range cases {
		got := PackCoils(c.coils)
		require.Equal(t, c.want, got)
		require.Equal(t, c.coils, UnpackCoils(got, len(c.coils)))
	}
}

func TestPackCoilsRoundTrip(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		n := rapid.IntRange(0, 64).Draw(t, "n")
		coils := make([]Coil, n)
		for i := range coils {
			coils[i] = rapid.Bool().Draw(t, "bit")
		}
		packed := PackCoils(coils)
		require.Len(t, packed, byteCount(n))
		require.Equal(t, coils, UnpackCoils(packed, n))
	})
}

func TestEncodeDecodeReadCoilsRequest(t *testing.T) {
	req := NewReadCoils(0x0013, 0x0025)
	pdu, err := EncodeRequest(req)
	require.NoError(t, err)
	require.Equal(t, []byte{0x01, 0x00, 0x13, 0x00, 0x25}, pdu)

	got, err := DecodeRequest(pdu)
	require.NoError(t, err)
	require.Equal(t, req, got)
}

func TestEncodeDecodeReadHoldingRegistersResponse(t *testing.T) {
	resp := Response{Kind: RespReadHoldingRegisters, Words: []Word{0x0016, 0x0064}}
	pdu, err := EncodeResponse(resp)
	require.NoError(t, err)
	require.Equal(t, []byte{0x03, 0x04, 0x00, 0x16, 0x00, 0x64}, pdu)

	got, err := DecodeResponsePDU(pdu)
	require.NoError(t, err)
	require.Equal(t, resp, got)
}

func TestEncodeDecodeWriteMultipleCoilsRequest(t *testing.T) {
	coils := []Coil{true, false, true, true, false, false, true, true, true, false}
	req := NewWriteMultipleCoils(0x0013, coils)
	pdu, err := EncodeRequest(req)
	require.NoError(t, err)
	require.Equal(t, []byte{0x0F, 0x00, 0x13, 0x00, 0x0A, 0x02, 0xCD, 0x01}, pdu)

	got, err := DecodeRequest(pdu)
	require.NoError(t, err)
	require.Equal(t, req, got)
}

func TestDecodeExceptionResponse(t *testing.T) {
	pdu := []byte{0x83, 0x02}
	_, err := DecodeResponsePDU(pdu)
	var exc *ExceptionResponse
	require.True(t, errors.As(err, &exc))
	require.Equal(t, ReadHoldingRegisters, exc.Function)
	require.Equal(t, IllegalDataAddress, exc.Exception)
}

func TestDecodeRequestRejectsQuantityOutOfRange(t *testing.T) {
	pdu := []byte{0x01, 0x00, 0x00, 0x07, 0xD1} // 2001 coils
	_, err := DecodeRequest(pdu)
	require.ErrorIs(t, err, ErrInvalidData)
}

func TestDecodeRequestRejectsTrailingBytes(t *testing.T) {
	pdu := []byte{0x06, 0x00, 0x01, 0x00, 0x02, 0xFF}
	_, err := DecodeRequest(pdu)
	require.ErrorIs(t, err, ErrInvalidData)
}

func TestEncodeRequestRejectsOversizedPDU(t *testing.T) {
	words := make([]Word, 200)
	_, err := EncodeRequest(NewWriteMultipleRegisters(0, words))
	require.ErrorIs(t, err, ErrPDUSizeExceeded)
}

func TestMaskWriteRegisterRoundTrip(t *testing.T) {
	req := NewMaskWriteRegister(0x0004, 0x00F2, 0x0025)
	pdu, err := EncodeRequest(req)
	require.NoError(t, err)
	require.Equal(t, []byte{0x16, 0x00, 0x04, 0x00, 0xF2, 0x00, 0x25}, pdu)

	got, err := DecodeRequest(pdu)
	require.NoError(t, err)
	require.Equal(t, req, got)
}

func TestReportServerIDResponse(t *testing.T) {
	resp := Response{Kind: RespReportServerID, ServerID: 0x0A, RunIndication: true, Data: []byte("ok")}
	pdu, err := EncodeResponse(resp)
	require.NoError(t, err)

	got, err := DecodeResponsePDU(pdu)
	require.NoError(t, err)
	require.Equal(t, resp, got)
}

func TestCustomRequestPassthrough(t *testing.T) {
	req := NewCustomRequest(0x41, []byte{0xDE, 0xAD})
	pdu, err := EncodeRequest(req)
	require.NoError(t, err)
	require.Equal(t, []byte{0x41, 0xDE, 0xAD}, pdu)

	got, err := DecodeRequest(pdu)
	require.NoError(t, err)
	require.Equal(t, req, got)
}

func TestFunctionCodeString(t *testing.T) {
	require.Equal(t, "ReadCoils", ReadCoils.String())
	require.Equal(t, "ReadCoils+exception", ReadCoils.AsException().String())
	require.Equal(t, "Custom(0x41)", FunctionCode(0x41).String())
}
