package uapi

// SyscallNumber identifies a syscall trapped from user mode. The valid
// range is a discrete allow-list (spec.md §6); any other number is
// rejected by the trap handler and routed to the illegal-instruction path.
type SyscallNumber int32

const (
	SyscallSpawn        SyscallNumber = 3
	SyscallWait         SyscallNumber = 4
	SyscallTerminate    SyscallNumber = 5
	SyscallGetTimeOfDay SyscallNumber = 20
	SyscallGetProcInfo  SyscallNumber = 21
	SyscallGetPid       SyscallNumber = 22
	SyscallSleep        SyscallNumber = 30
	SyscallDiskRead     SyscallNumber = 31
	SyscallDiskWrite    SyscallNumber = 32
	SyscallDiskSize     SyscallNumber = 33

	// MaxSyscall bounds the dense handler table; it must stay above the
	// largest syscall number above.
	MaxSyscall SyscallNumber = 34
)

// Valid reports whether n falls within the dense handler table range.
// It does not imply a handler is registered for n.
func (n SyscallNumber) Valid() bool {
	return n >= 0 && n < MaxSyscall
}

// Device request opcodes (spec.md §6, "Device-request layout").
const (
	DevOpSeek        uint32 = 1
	DevOpRead        uint32 = 2
	DevOpWrite       uint32 = 3
	DevOpTracks      uint32 = 4
	DevOpClockInput  uint32 = 5
)
