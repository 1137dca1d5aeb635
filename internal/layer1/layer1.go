// Package layer1 defines the boundary this repository builds on: the
// kernel process abstraction (fork, join, quit, semaphores, per-device
// wait queues, procinfo) that spec.md §1 names as an external
// collaborator supplied outside this core. UPS, CS, and DS depend only on
// the Kernel and Proc interfaces here, never on a concrete scheduler, so
// the reference simulator in layer1/sim (or any real Layer 1) can back
// them interchangeably.
package layer1

import (
	"github.com/oslab/kernel2/internal/constants"
	"github.com/oslab/kernel2/internal/uapi"
)

// Pid is a Layer 1 process id. It is distinct from (and opaque to) the
// compact user-pid UPS hands out to user code.
type Pid int

// SemID identifies a Layer 1 semaphore.
type SemID int

// Device identifies a wait-queue device a process can block on.
type Device int

const (
	DeviceClock Device = iota
	diskDeviceBase
)

// DiskDevice returns the Device id for disk unit u.
func DiskDevice(unit int) Device {
	return diskDeviceBase + Device(unit)
}

// WaitResult is returned by WaitDevice.
type WaitResult int

const (
	WaitOK WaitResult = iota
	WaitAborted
)

// StartFunc is a kernel-process entry point: the routine a forked process
// begins executing. self is the new process's own handle; a process uses
// it for every operation that depends on "the calling process" (Join,
// Quit, SemP, WaitDevice, mode transitions).
type StartFunc func(self Proc, arg any)

// Proc is a running Layer 1 process's handle onto itself. Every
// Layer 1 primitive that the spec describes as acting on "the caller"
// (Join, Quit, SemP, WaitDevice, the mode bit) is a method here instead
// of relying on implicit goroutine-local state.
type Proc interface {
	// Pid returns this process's Layer 1 pid.
	Pid() Pid

	// Tag returns the process's fixed population tag (kernel or user),
	// set at Fork time and never changed.
	Tag() constants.Tag

	// Mode returns the process's current CPU privilege level. For
	// kernel-tagged processes this is always constants.KernelTag. For a
	// user-tagged process it starts at constants.KernelTag (the
	// trampoline runs in kernel mode) until DropToUser is called, and
	// flips back to constants.KernelTag for the duration of a syscall
	// trap.
	Mode() constants.Tag

	// DropToUser performs the one-way mode-bit transition out of the
	// trampoline into user code. Spec.md §9: this read-modify-write must
	// happen under no lock.
	DropToUser()

	// EnterKernelMode and ReturnToUserMode bracket a syscall trap: the
	// trap handler raises the mode bit on entry and lowers it again on a
	// normal return (not called for Terminate, which never returns).
	EnterKernelMode()
	ReturnToUserMode()

	// Fork creates a new process tagged with tag, running start(child,
	// arg) at priority, and returns its handle. Fork may schedule the
	// child to run immediately if its priority is higher than the
	// caller's (spec.md §5).
	Fork(name string, tag constants.Tag, priority int, start StartFunc, arg any) (Proc, error)

	// Join blocks until a child whose tag matches filter terminates, and
	// returns its pid and exit status. Returns an error (sim.ErrNoChildren
	// in the reference simulator) if the caller currently has no live
	// children of that tag and none pending reap.
	Join(filter constants.Tag) (Pid, int, error)

	// Quit terminates the calling process with the given status. It
	// does not return.
	Quit(status int)

	// Children returns the pids of the caller's currently live children.
	Children() []Pid

	// SemP (wait/decrement) blocks the caller until the semaphore's
	// count is positive, then decrements it.
	SemP(id SemID)

	// SemV (signal/increment) increments the semaphore's count, waking
	// one blocked waiter if any.
	SemV(id SemID)

	// WaitDevice blocks the caller on the given device's wait queue
	// until an interrupt or WakeupDevice(abort=true) occurs.
	WaitDevice(d Device) WaitResult
}

// Kernel is the Layer 1 service the rest of this repository is
// bootstrapped from: it creates semaphores, answers procinfo and clock
// queries, delivers device interrupts, and hands out the root process
// handle UPS/CS/DS use to fork their first driver processes.
type Kernel interface {
	// Root returns the boot-time process handle: the kernel's own
	// kernel-tagged context. Init forks the driver processes from it,
	// and code running outside any spawned process uses it as the caller
	// identity (to spawn and wait on user processes, or to signal
	// semaphores).
	Root() Proc

	// GetProcInfo fills info for pid.
	GetProcInfo(pid Pid, info *uapi.ProcInfo) error

	// SemCreate allocates a semaphore with the given initial count.
	SemCreate(initial int) SemID

	// WakeupDevice delivers a device interrupt (or, with abort=true, a
	// shutdown signal) to whichever process is currently blocked in
	// WaitDevice(d).
	WakeupDevice(d Device, abort bool)

	// Now returns the current time in microseconds, monotonic.
	Now() uint64
}
