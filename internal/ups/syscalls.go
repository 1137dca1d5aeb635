package ups

import (
	"sync"
	"sync/atomic"

	"github.com/oslab/kernel2/internal/layer1"
	"github.com/oslab/kernel2/internal/uapi"
)

// spawnRequest carries the non-integer Spawn arguments (name, start
// routine, opaque argument) that a trap frame's fixed integer registers
// cannot hold directly. The user-mode trampoline that packs arguments
// into the trap frame is declared out of scope (spec.md §1); this
// registry plays its role for the syscall ABI exercised in this
// repository's own tests, standing in for "a pointer into simulated
// user memory" without implementing a full address space.
type spawnRequest struct {
	name     string
	start    UserStart
	arg      any
	priority int
}

var (
	spawnRegistryMu  sync.Mutex
	spawnRegistry    = make(map[uint64]spawnRequest)
	spawnRegistryNum atomic.Uint64
)

// RegisterSpawnRequest stashes a pending Spawn's non-integer arguments
// and returns a handle to pass as SyscallSpawn's Arg1.
func RegisterSpawnRequest(name string, start UserStart, arg any, priority int) uint64 {
	handle := spawnRegistryNum.Add(1)
	spawnRegistryMu.Lock()
	spawnRegistry[handle] = spawnRequest{name: name, start: start, arg: arg, priority: priority}
	spawnRegistryMu.Unlock()
	return handle
}

func takeSpawnRequest(handle uint64) (spawnRequest, bool) {
	spawnRegistryMu.Lock()
	defer spawnRegistryMu.Unlock()
	req, ok := spawnRegistry[handle]
	if ok {
		delete(spawnRegistry, handle)
	}
	return req, ok
}

// RegisterDefaultSyscalls installs the Spawn/Wait/Terminate/
// GetTimeOfDay/GetProcInfo/GetPid stubs (spec.md §4.1's public
// contract). CS and DS register their own Sleep/DiskRead/DiskWrite/
// DiskSize stubs separately during their own initialization.
func RegisterDefaultSyscalls(s *Service) {
	s.SetSyscallHandler(uapi.SyscallSpawn, syscallSpawn)
	s.SetSyscallHandler(uapi.SyscallWait, syscallWait)
	s.SetSyscallHandler(uapi.SyscallTerminate, syscallTerminate)
	s.SetSyscallHandler(uapi.SyscallGetTimeOfDay, syscallGetTimeOfDay)
	s.SetSyscallHandler(uapi.SyscallGetProcInfo, syscallGetProcInfo)
	s.SetSyscallHandler(uapi.SyscallGetPid, syscallGetPid)
}

// syscallSpawn packs {arg1=pid, arg4=rc} (spec.md §6). The in-packing
// {arg1=func, arg2=arg, arg3=stackSize, arg4=priority, arg5=name} has no
// direct Go analogue — a trap frame's Arg slots are fixed-width
// integers, not pointers into a process's address space — so callers
// pre-register those non-integer arguments via RegisterSpawnRequest and
// pass the resulting handle as Arg1.
func syscallSpawn(s *Service, caller layer1.Proc, frame *uapi.TrapFrame) {
	req, ok := takeSpawnRequest(frame.Arg1)
	if !ok {
		frame.Arg4 = uint64(uapi.ErrInvalidPid)
		return
	}
	upid, err := s.Spawn(caller, req.name, req.start, req.arg, req.priority)
	if err != nil {
		frame.Arg4 = uint64(uapi.ErrTooManyProcesses)
		return
	}
	frame.Arg1 = uint64(upid)
	frame.Arg4 = uint64(uapi.Success)
}

// syscallWait packs {arg1=pid, arg2=status, arg4=rc} (spec.md §6).
func syscallWait(s *Service, caller layer1.Proc, frame *uapi.TrapFrame) {
	upid, status, err := s.Wait(caller)
	if err != nil {
		frame.Arg4 = uint64(uapi.ErrNoChildren)
		return
	}
	frame.Arg1 = uint64(upid)
	frame.Arg2 = uint64(int64(status))
	frame.Arg4 = uint64(uapi.Success)
}

// syscallTerminate never returns: Terminate calls Layer 1 Quit. Takes
// {arg1=status} with no return (spec.md §6).
func syscallTerminate(s *Service, caller layer1.Proc, frame *uapi.TrapFrame) {
	status := int(int64(frame.Arg1))
	s.Terminate(caller, status)
}

// syscallGetTimeOfDay packs {arg1=microseconds}; this operation cannot
// fail, so spec.md §6 lists no rc field for it.
func syscallGetTimeOfDay(s *Service, caller layer1.Proc, frame *uapi.TrapFrame) {
	frame.Arg1 = s.GetTimeOfDay(caller)
}

// syscallGetProcInfo takes {arg1=pid} and packs {arg4=rc}. A trap frame
// cannot carry a pointer to a ProcInfo, so on success the record's
// parent user-pid is packed into Arg2 and its priority into Arg3.
func syscallGetProcInfo(s *Service, caller layer1.Proc, frame *uapi.TrapFrame) {
	pid := int(frame.Arg1)
	var info uapi.ProcInfo
	if err := s.GetProcInfo(caller, pid, &info); err != nil {
		frame.Arg4 = uint64(uapi.ErrInvalidPid)
		return
	}
	frame.Arg2 = uint64(int64(info.ParentID))
	frame.Arg3 = uint64(info.Priority)
	frame.Arg4 = uint64(uapi.Success)
}

// syscallGetPid packs {arg1=pid}; this operation cannot fail, so
// spec.md §6 lists no rc field for it.
func syscallGetPid(s *Service, caller layer1.Proc, frame *uapi.TrapFrame) {
	frame.Arg1 = uint64(s.GetPid(caller))
}
