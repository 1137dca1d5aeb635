// Package uapi defines the wire-level structs that cross the simulated
// user/kernel trap boundary and the simulated device boundary: the trap
// frame (spec.md §6) and the device-request layout consumed by the Clock
// and Disk device simulators.
package uapi

import "unsafe"

// TrapFrame is the argument struct the simulator presents to the syscall
// handler (spec.md §6). Each Arg field is pointer-sized on the reference
// platform (uint64); Number is 4 bytes followed by padding. Packing per
// syscall follows the table in spec.md §6.
type TrapFrame struct {
	Number SyscallNumber
	_      [4]byte // padding to keep Arg1 8-byte aligned
	Arg1   uint64
	Arg2   uint64
	Arg3   uint64
	Arg4   uint64
	Arg5   uint64
}

// Compile-time layout sanity check, in the spirit of the fixed-size
// wire structs this package's fields are modeled on: the frame must stay
// a flat, fixed-size value so it can be copied across the trap boundary
// without aliasing the caller's stack.
var _ [48]byte = [unsafe.Sizeof(TrapFrame{})]byte{}

// DeviceRequest is the request layout consumed by simulated devices:
// Clock supports DeviceInput (returns microseconds); Disk supports SEEK
// (Reg1=track), READ/WRITE (Reg1=sector, Reg2=buffer), TRACKS
// (Reg1=&count). See spec.md §6.
type DeviceRequest struct {
	Opr  uint32
	Reg1 uint64
	Reg2 uint64
}

// ProcInfo mirrors the Layer 1 procinfo record UPS's GetProcInfo copies
// out to callers (spec.md §4.1).
type ProcInfo struct {
	Pid      int
	ParentID int
	Priority int
	Name     string
}
