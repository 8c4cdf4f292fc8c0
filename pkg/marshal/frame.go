// Package marshal serializes request/response/confirm/indication primitives
// across the application-processor/radio-processor boundary: a frame header
// (subsystem id, command id) followed by a pointer-free payload with any
// variable-length field (NSDU, attribute value) inlined length-prefixed.
package marshal

import (
	"encoding/binary"
	"fmt"
	"io"
)

// Subsystem identifies which co-layer a frame's command id is scoped to.
type Subsystem uint8

const (
	SubsystemRCN Subsystem = 0x01
	SubsystemRTI Subsystem = 0x02
	SubsystemGDP Subsystem = 0x03
	SubsystemZID Subsystem = 0x04
)

const frameStartByte = 0xFE

// Frame is the pointer-free wire form of one primitive: a 2-byte header
// (subsystem, command) and a length-prefixed payload.
type Frame struct {
	Subsystem Subsystem
	CommandID uint8
	Payload   []byte
}

// WriteFrame serializes f as: start-byte, length (1 byte, payload only),
// subsystem, command, payload, checksum (XOR of length..payload).
func WriteFrame(w io.Writer, f Frame) error {
	if len(f.Payload) > 255 {
		return fmt.Errorf("marshal: payload length %d exceeds 255-byte frame limit", len(f.Payload))
	}
	buf := make([]byte, 0, 5+len(f.Payload))
	buf = append(buf, frameStartByte, byte(len(f.Payload)), byte(f.Subsystem), f.CommandID)
	buf = append(buf, f.Payload...)
	buf = append(buf, checksum(buf[1:]))
	_, err := w.Write(buf)
	return err
}

// ReadFrame blocks until one complete frame is read from r.
func ReadFrame(r io.Reader) (Frame, error) {
	hdr := make([]byte, 4)
	if _, err := io.ReadFull(r, hdr); err != nil {
		return Frame{}, err
	}
	if hdr[0] != frameStartByte {
		return Frame{}, fmt.Errorf("marshal: bad start byte 0x%02x", hdr[0])
	}
	length := hdr[1]
	payload := make([]byte, length)
	if length > 0 {
		if _, err := io.ReadFull(r, payload); err != nil {
			return Frame{}, err
		}
	}
	var fcs [1]byte
	if _, err := io.ReadFull(r, fcs[:]); err != nil {
		return Frame{}, err
	}
	want := checksum(append(append([]byte{}, hdr[1:]...), payload...))
	if fcs[0] != want {
		return Frame{}, fmt.Errorf("marshal: checksum mismatch")
	}
	return Frame{Subsystem: Subsystem(hdr[2]), CommandID: hdr[3], Payload: payload}, nil
}

func checksum(b []byte) byte {
	var c byte
	for _, x := range b {
		c ^= x
	}
	return c
}

// PutUint16 / Uint16 and PutUint32 / Uint32 are little-endian helpers used
// by the per-primitive encoders in this package, matching the NSDU and
// attribute-value byte order used on the air interface.
func PutUint16(b []byte, v uint16) { binary.LittleEndian.PutUint16(b, v) }
func Uint16(b []byte) uint16       { return binary.LittleEndian.Uint16(b) }
func PutUint32(b []byte, v uint32) { binary.LittleEndian.PutUint32(b, v) }
func Uint32(b []byte) uint32       { return binary.LittleEndian.Uint32(b) }
