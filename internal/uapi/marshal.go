package uapi

import (
	"encoding/binary"
	"errors"
)

// ErrInsufficientData is returned when a byte slice is too short to hold
// the struct being unmarshaled.
var ErrInsufficientData = errors.New("uapi: insufficient data for unmarshaling")

// trapFrameWireSize is the on-wire size of a marshaled TrapFrame: one
// 4-byte syscall number plus five 8-byte argument slots.
const trapFrameWireSize = 4 + 5*8

// MarshalTrapFrame converts a TrapFrame to bytes using little-endian
// encoding, field by field, so the wire layout is stable regardless of
// the padding the Go compiler inserts in the in-memory struct. This
// mirrors the teacher's hand-rolled marshalCtrlCmd/marshalIOCmd: for the
// one struct that crosses the trap boundary, an explicit field-by-field
// encoder is preferred over a generic reflect-based copy.
func MarshalTrapFrame(f *TrapFrame) []byte {
	buf := make([]byte, trapFrameWireSize)
	binary.LittleEndian.PutUint32(buf[0:4], uint32(f.Number))
	binary.LittleEndian.PutUint64(buf[4:12], f.Arg1)
	binary.LittleEndian.PutUint64(buf[12:20], f.Arg2)
	binary.LittleEndian.PutUint64(buf[20:28], f.Arg3)
	binary.LittleEndian.PutUint64(buf[28:36], f.Arg4)
	binary.LittleEndian.PutUint64(buf[36:44], f.Arg5)
	return buf
}

// UnmarshalTrapFrame parses bytes produced by MarshalTrapFrame back into f.
func UnmarshalTrapFrame(data []byte, f *TrapFrame) error {
	if len(data) < trapFrameWireSize {
		return ErrInsufficientData
	}
	f.Number = SyscallNumber(binary.LittleEndian.Uint32(data[0:4]))
	f.Arg1 = binary.LittleEndian.Uint64(data[4:12])
	f.Arg2 = binary.LittleEndian.Uint64(data[12:20])
	f.Arg3 = binary.LittleEndian.Uint64(data[20:28])
	f.Arg4 = binary.LittleEndian.Uint64(data[28:36])
	f.Arg5 = binary.LittleEndian.Uint64(data[36:44])
	return nil
}
