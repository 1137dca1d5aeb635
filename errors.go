// Package kernel2 wires the Layer-2 services (User-Process Services,
// Clock Service, Disk Service) on top of a Layer 1 process abstraction.
package kernel2

import (
	"errors"
	"fmt"
)

// ErrorKind enumerates the result-code taxonomy every syscall in this
// kernel can report, mirroring internal/uapi.ResultCode's error values
// at the Go-native API boundary.
type ErrorKind int

const (
	KindInvalidSyscall ErrorKind = iota
	KindTooManyProcesses
	KindNoChildren
	KindInvalidPid
	KindInvalidUnit
	KindInvalidTrack
	KindInvalidFirst
	KindInvalidSectors
	KindNullAddress
	KindInvalidSeconds
)

func (k ErrorKind) String() string {
	switch k {
	case KindInvalidSyscall:
		return "InvalidSyscall"
	case KindTooManyProcesses:
		return "TooManyProcesses"
	case KindNoChildren:
		return "NoChildren"
	case KindInvalidPid:
		return "InvalidPid"
	case KindInvalidUnit:
		return "InvalidUnit"
	case KindInvalidTrack:
		return "InvalidTrack"
	case KindInvalidFirst:
		return "InvalidFirst"
	case KindInvalidSectors:
		return "InvalidSectors"
	case KindNullAddress:
		return "NullAddress"
	case KindInvalidSeconds:
		return "InvalidSeconds"
	default:
		return "Unknown"
	}
}

// Fault is the structured error every public kernel2 operation returns,
// carrying enough context to diagnose which process or unit triggered
// which failure without parsing a message string.
type Fault struct {
	Op     string    // operation that failed (e.g. "Spawn", "DiskRead")
	Kind   ErrorKind // error category
	Unit   int       // disk unit, -1 if not applicable
	Pid    int       // user pid, -1 if not applicable
	Detail string    // human-readable detail
	Inner  error     // wrapped error, if any
}

func (f *Fault) Error() string {
	msg := f.Detail
	if msg == "" {
		msg = f.Kind.String()
	}
	switch {
	case f.Unit >= 0:
		return fmt.Sprintf("kernel2: %s: %s (unit=%d)", f.Op, msg, f.Unit)
	case f.Pid >= 0:
		return fmt.Sprintf("kernel2: %s: %s (pid=%d)", f.Op, msg, f.Pid)
	default:
		return fmt.Sprintf("kernel2: %s: %s", f.Op, msg)
	}
}

func (f *Fault) Unwrap() error { return f.Inner }

// Is supports errors.Is by comparing ErrorKind, so callers can test
// errors.Is(err, kernel2.ErrNoChildren) without type-asserting *Fault.
func (f *Fault) Is(target error) bool {
	if k, ok := target.(kindSentinel); ok {
		return f.Kind == k.kind
	}
	var other *Fault
	if errors.As(target, &other) {
		return f.Kind == other.Kind
	}
	return false
}

type kindSentinel struct{ kind ErrorKind }

func (k kindSentinel) Error() string { return k.kind.String() }

// Sentinel errors for each ErrorKind, for use with errors.Is against a
// returned *Fault.
var (
	ErrInvalidSyscall   error = kindSentinel{KindInvalidSyscall}
	ErrTooManyProcesses error = kindSentinel{KindTooManyProcesses}
	ErrNoChildren       error = kindSentinel{KindNoChildren}
	ErrInvalidPid       error = kindSentinel{KindInvalidPid}
	ErrInvalidUnit      error = kindSentinel{KindInvalidUnit}
	ErrInvalidTrack     error = kindSentinel{KindInvalidTrack}
	ErrInvalidFirst     error = kindSentinel{KindInvalidFirst}
	ErrInvalidSectors   error = kindSentinel{KindInvalidSectors}
	ErrNullAddress      error = kindSentinel{KindNullAddress}
	ErrInvalidSeconds   error = kindSentinel{KindInvalidSeconds}
)

// newFault builds a *Fault with Unit/Pid defaulted to -1 (not applicable).
func newFault(op string, kind ErrorKind, detail string, inner error) *Fault {
	return &Fault{Op: op, Kind: kind, Unit: -1, Pid: -1, Detail: detail, Inner: inner}
}
