// Package modbus implements an asynchronous Modbus protocol engine speaking
// both RTU (serial, CRC-16 framed) and TCP (MBAP framed) in client and
// server roles.
//
// The package is organized leaves-first: codec.go encodes and decodes the
// Modbus PDU, rtu.go and tcp.go frame it onto the wire, and client.go /
// server.go bridge framed bytes to typed Request/Response values over a
// Transport (transport.go).
package modbus
