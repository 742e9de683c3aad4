package modbus

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestMuxReadHoldingRegisters(t *testing.T) {
	mux := &Mux{
		ReadHoldingRegisters: func(ctx context.Context, address Address, quantity Quantity) ([]Word, error) {
			require.Equal(t, Address(2), address)
			require.Equal(t, Quantity(3), quantity)
			return []Word{10, 20, 30}, nil
		},
	}
	resp, err := mux.Call(context.Background(), MinDevice, NewReadHoldingRegisters(2, 3))
	require.NoError(t, err)
	require.Equal(t, []Word{10, 20, 30}, resp.Words)
}

func TestMuxUnsetCallbackIsIllegalFunction(t *testing.T) {
	mux := &Mux{}
	_, err := mux.Call(context.Background(), MinDevice, NewReadCoils(0, 1))
	require.ErrorIs(t, err, IllegalFunction)
}

func TestMuxAddressOverflowIsIllegalDataAddress(t *testing.T) {
	mux := &Mux{
		ReadHoldingRegisters: func(ctx context.Context, address Address, quantity Quantity) ([]Word, error) {
			t.Fatal("should not be called")
			return nil, nil
		},
	}
	_, err := mux.Call(context.Background(), MinDevice, NewReadHoldingRegisters(0xFFFE, 5))
	require.ErrorIs(t, err, IllegalDataAddress)
}

func TestMuxShortResultIsServerDeviceFailure(t *testing.T) {
	mux := &Mux{
		ReadCoils: func(ctx context.Context, address Address, quantity Quantity) ([]Coil, error) {
			return []Coil{true}, nil
		},
	}
	_, err := mux.Call(context.Background(), MinDevice, NewReadCoils(0, 3))
	require.ErrorIs(t, err, ServerDeviceFailure)
}

func TestMuxFallbackHandlesCustom(t *testing.T) {
	var gotCode FunctionCode
	mux := &Mux{
		Fallback: func(ctx context.Context, req Request) (Response, error) {
			gotCode = req.FuncCode
			return Response{Kind: RespCustom, FuncCode: req.FuncCode, Data: []byte{0x01}}, nil
		},
	}
	resp, err := mux.Call(context.Background(), MinDevice, NewCustomRequest(0x41, []byte{0x00}))
	require.NoError(t, err)
	require.Equal(t, FunctionCode(0x41), gotCode)
	require.Equal(t, []byte{0x01}, resp.Data)
}

func TestMuxWriteSingleCoilEchoesAddress(t *testing.T) {
	var gotAddr Address
	var gotVal Coil
	mux := &Mux{
		WriteSingleCoil: func(ctx context.Context, address Address, value Coil) error {
			gotAddr, gotVal = address, value
			return nil
		},
	}
	resp, err := mux.Call(context.Background(), MinDevice, NewWriteSingleCoil(5, true))
	require.NoError(t, err)
	require.Equal(t, Address(5), gotAddr)
	require.True(t, gotVal)
	require.Equal(t, Address(5), resp.Address)
	require.True(t, resp.Coil)
}

func TestMuxFilterSuppressesForeignSlave(t *testing.T) {
	called := false
	mux := &Mux{
		Filter: func(slave Slave) bool { return slave == 0x11 },
		ReadHoldingRegisters: func(ctx context.Context, address Address, quantity Quantity) ([]Word, error) {
			called = true
			return make([]Word, quantity), nil
		},
	}
	resp, err := mux.Call(context.Background(), 0x12, NewReadHoldingRegisters(0, 1))
	require.NoError(t, err)
	require.Nil(t, resp)
	require.False(t, called)
}
