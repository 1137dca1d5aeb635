// Package ups implements User-Process Services: the supervisor layer
// that projects Layer 1's untagged processes into kernel- and
// user-tagged populations, enforces the privilege boundary on every
// mode transition, routes syscall traps to registered handlers, and
// implements spawn/wait/terminate with orphan semantics.
//
// Grounded on the teacher's internal/queue/runner.go for the shape of a
// mutex-guarded fixed-size table driving a small state machine per
// slot, and on backend.go's Device/Metrics/Logger composition for how
// a service struct wires its dependencies.
package ups

import (
	"sync"
	"time"

	"github.com/oslab/kernel2/internal/constants"
	"github.com/oslab/kernel2/internal/layer1"
	"github.com/oslab/kernel2/internal/logging"
	"github.com/oslab/kernel2/internal/uapi"
)

var log = logging.Default().Named("ups")

// SyscallHandler is a registered stub: it unpacks frame's input
// arguments, invokes the in-kernel routine, and packs the result back
// into frame (spec.md §1's data-flow description). caller is already in
// kernel mode by the time a handler runs.
type SyscallHandler func(svc *Service, caller layer1.Proc, frame *uapi.TrapFrame)

// Service is the UPS singleton: the user-process table, the syscall
// handler table, and the kernel-pid index that lets Terminate walk a
// caller's children without the table storing parent pointers directly
// (spec.md §9's "no direct pointer between them").
type Service struct {
	kernel layer1.Kernel

	mu           sync.Mutex
	table        [constants.MaxProc]record
	kernelToUser map[layer1.Pid]int

	handlers [uapi.MaxSyscall]SyscallHandler

	Metrics *Metrics
}

// New constructs a Service bound to kernel. Call RegisterDefaultSyscalls
// to install the Spawn/Wait/Terminate/GetProcInfo/GetPid/GetTimeOfDay
// stubs.
func New(kernel layer1.Kernel) *Service {
	return &Service{
		kernel:       kernel,
		kernelToUser: make(map[layer1.Pid]int),
		Metrics:      NewMetrics(),
	}
}

// Spawn claims a table slot, forks a user-tagged trampoline process
// running start(arg), and returns the new user-pid. Calling a UPS entry
// point is itself the simulated trap: it raises the caller's mode bit
// to kernel for the duration of the call and lowers it again on return
// (spec.md §4.1's "every entry point first asserts the CPU is in kernel
// mode").
func (s *Service) Spawn(caller layer1.Proc, name string, start UserStart, arg any, priority int) (int, error) {
	caller.EnterKernelMode()
	defer caller.ReturnToUserMode()

	s.mu.Lock()
	slot := -1
	for i := range s.table {
		if s.table[i].state == stateUnused {
			slot = i
			break
		}
	}
	if slot < 0 {
		s.mu.Unlock()
		s.Metrics.SpawnErrors.Add(1)
		return 0, ErrTooManyProcesses
	}
	s.table[slot] = record{
		state:    stateInitialized,
		name:     name,
		priority: priority,
		start:    start,
		arg:      arg,
	}
	s.mu.Unlock()

	child, err := caller.Fork(name, constants.UserTag, priority, s.trampoline, trampolineArg{slot: slot})
	if err != nil {
		s.mu.Lock()
		s.table[slot].reset()
		s.mu.Unlock()
		s.Metrics.SpawnErrors.Add(1)
		return 0, err
	}

	s.mu.Lock()
	s.table[slot].kernelPid = child.Pid()
	s.kernelToUser[child.Pid()] = slot
	s.mu.Unlock()

	s.Metrics.SpawnOps.Add(1)
	log.Debug("spawn", "userPid", slot, "kernelPid", child.Pid(), "name", name, "priority", priority)
	return slot, nil
}

type trampolineArg struct {
	slot int
}

// trampoline is the entry point Fork runs for every user-tagged
// process: it executes in kernel mode, drops to user mode, runs the
// stored start routine, and invokes Terminate — never Layer 1's Quit
// directly — on return (spec.md §4.1's privilege protocol).
func (s *Service) trampoline(self layer1.Proc, arg any) {
	ta := arg.(trampolineArg)

	s.mu.Lock()
	start := s.table[ta.slot].start
	startArg := s.table[ta.slot].arg
	s.mu.Unlock()

	self.DropToUser()
	status := start(self, startArg)
	s.Terminate(self, status)
}

// Wait delegates to Layer 1's Join filtered by the user tag, resolves
// the returned kernel pid to a user-pid, and reaps its slot.
func (s *Service) Wait(caller layer1.Proc) (int, int, error) {
	caller.EnterKernelMode()
	defer caller.ReturnToUserMode()

	kpid, status, err := caller.Join(constants.UserTag)
	if err != nil {
		s.Metrics.WaitErrors.Add(1)
		return 0, 0, ErrNoChildren
	}

	s.mu.Lock()
	upid, ok := s.kernelToUser[kpid]
	if !ok || s.table[upid].state != stateTerminated {
		s.mu.Unlock()
		// A Join returning a kernel pid not in our table (or not in
		// Terminated state) is an impossible invariant violation, not a
		// user-facing error: halt via the illegal-instruction path.
		s.IllegalInstruction(caller)
		return 0, 0, ErrInvalidPid
	}
	exitStatus := s.table[upid].exitStatus
	s.table[upid].reset()
	delete(s.kernelToUser, kpid)
	s.mu.Unlock()

	s.Metrics.WaitOps.Add(1)
	_ = status
	log.Debug("wait", "childUserPid", upid, "status", exitStatus)
	return upid, exitStatus, nil
}

// Terminate records the caller's exit status, orphans its live
// children, and calls Layer 1 Quit. It never returns.
func (s *Service) Terminate(caller layer1.Proc, status int) {
	caller.EnterKernelMode()
	start := time.Now()
	kpid := caller.Pid()

	s.mu.Lock()
	if upid, ok := s.kernelToUser[kpid]; ok {
		rec := &s.table[upid]
		rec.exitStatus = status
		if rec.orphan {
			rec.reset()
			delete(s.kernelToUser, kpid)
		} else {
			rec.state = stateTerminated
		}
	}

	for _, ckpid := range caller.Children() {
		cupid, ok := s.kernelToUser[ckpid]
		if !ok {
			continue
		}
		crec := &s.table[cupid]
		crec.orphan = true
		s.Metrics.OrphansMade.Add(1)
		if crec.state == stateTerminated {
			crec.reset()
			delete(s.kernelToUser, ckpid)
		}
	}
	s.mu.Unlock()

	s.Metrics.TerminateOps.Add(1)
	s.Metrics.recordDispatch(uint64(time.Since(start).Nanoseconds()))
	log.Debug("terminate", "kernelPid", kpid, "status", status)
	caller.Quit(status)
}

// GetProcInfo fills info for the given user-pid, translating the
// underlying Layer 1 parent kernel-pid back to a user-pid (-1 if the
// parent is gone or was never a UPS-tracked process).
func (s *Service) GetProcInfo(caller layer1.Proc, pid int, info *uapi.ProcInfo) error {
	caller.EnterKernelMode()
	defer caller.ReturnToUserMode()

	s.mu.Lock()
	if pid < 0 || pid >= constants.MaxProc || s.table[pid].state == stateUnused {
		s.mu.Unlock()
		return ErrInvalidPid
	}
	kpid := s.table[pid].kernelPid
	s.mu.Unlock()

	var raw uapi.ProcInfo
	if err := s.kernel.GetProcInfo(kpid, &raw); err != nil {
		return ErrInvalidPid
	}

	parentUser := -1
	s.mu.Lock()
	if up, ok := s.kernelToUser[layer1.Pid(raw.ParentID)]; ok {
		parentUser = up
	}
	s.mu.Unlock()

	*info = uapi.ProcInfo{
		Pid:      pid,
		ParentID: parentUser,
		Priority: raw.Priority,
		Name:     raw.Name,
	}
	return nil
}

// GetPid returns the caller's own user-pid.
func (s *Service) GetPid(caller layer1.Proc) int {
	caller.EnterKernelMode()
	defer caller.ReturnToUserMode()

	s.mu.Lock()
	defer s.mu.Unlock()
	return s.kernelToUser[caller.Pid()]
}

// GetTimeOfDay returns the current monotonic time in microseconds.
func (s *Service) GetTimeOfDay(caller layer1.Proc) uint64 {
	caller.EnterKernelMode()
	defer caller.ReturnToUserMode()
	return s.kernel.Now()
}

// SetSyscallHandler installs h for syscall number num. Called only
// during initialization (spec.md §9's "written only during
// initialization").
func (s *Service) SetSyscallHandler(num uapi.SyscallNumber, h SyscallHandler) error {
	if !num.Valid() {
		return ErrInvalidSyscall
	}
	s.mu.Lock()
	s.handlers[num] = h
	s.mu.Unlock()
	return nil
}

// IllegalInstruction is the fault path for any attempt to execute a
// kernel-only operation from user mode, or to trap with an unregistered
// or out-of-range syscall number. It distinguishes kernel vs user fault
// and applies the matching terminator so a buggy user process cannot
// crash the kernel.
func (s *Service) IllegalInstruction(caller layer1.Proc) {
	s.Metrics.IllegalTraps.Add(1)
	log.Warn("illegal instruction", "pid", caller.Pid(), "tag", caller.Tag().String())
	if caller.Tag() == constants.KernelTag {
		caller.Quit(KernelFaultStatus)
		return
	}
	s.Terminate(caller, UserFaultStatus)
}

// Exit statuses applied by the illegal-instruction handler, matching
// spec.md §8's scenario 5/6 expectation that a faulted user process's
// parent observes exit status 2048.
const (
	KernelFaultStatus = 1024
	UserFaultStatus   = 2048
)
