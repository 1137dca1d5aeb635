package kernel2

import (
	"errors"

	"github.com/oslab/kernel2/internal/disk"
	"github.com/oslab/kernel2/internal/ups"
)

// translateUPSError maps a ups sentinel error onto a *Fault, preserving
// the underlying error via Inner so callers can still errors.Is against
// the internal sentinel if they have a reason to.
func translateUPSError(op string, err error) error {
	switch {
	case errors.Is(err, ups.ErrTooManyProcesses):
		return newFault(op, KindTooManyProcesses, "process table is full", err)
	case errors.Is(err, ups.ErrNoChildren):
		return newFault(op, KindNoChildren, "caller has no children", err)
	case errors.Is(err, ups.ErrInvalidPid):
		return newFault(op, KindInvalidPid, "pid does not name a live process", err)
	case errors.Is(err, ups.ErrInvalidSyscall):
		return newFault(op, KindInvalidSyscall, "syscall number out of range", err)
	default:
		return newFault(op, KindInvalidPid, "unexpected UPS error", err)
	}
}

// translateDiskError maps a disk sentinel error onto a *Fault carrying
// the offending unit index.
func translateDiskError(op string, unit int, err error) error {
	f := func(kind ErrorKind, detail string) *Fault {
		return &Fault{Op: op, Kind: kind, Unit: unit, Pid: -1, Detail: detail, Inner: err}
	}
	switch {
	case errors.Is(err, disk.ErrInvalidUnit):
		return f(KindInvalidUnit, "unit index out of range")
	case errors.Is(err, disk.ErrInvalidTrack):
		return f(KindInvalidTrack, "track out of range")
	case errors.Is(err, disk.ErrInvalidFirst):
		return f(KindInvalidFirst, "starting sector out of range")
	case errors.Is(err, disk.ErrInvalidSectors):
		return f(KindInvalidSectors, "request crosses the last track")
	case errors.Is(err, disk.ErrNullAddress):
		return f(KindNullAddress, "nil buffer")
	default:
		return f(KindInvalidUnit, "unexpected disk error")
	}
}
