package ups

import "errors"

// Sentinel failures from the public contract (spec.md §4.1's table).
// Callers compare with errors.Is; syscall stubs translate these into
// uapi.ResultCode values for the trap frame.
var (
	ErrTooManyProcesses = errors.New("ups: too many processes")
	ErrNoChildren       = errors.New("ups: no children")
	ErrInvalidPid       = errors.New("ups: invalid pid")
	ErrInvalidSyscall   = errors.New("ups: invalid syscall number")
)
