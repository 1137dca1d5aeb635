package ups

import (
	"time"

	"github.com/oslab/kernel2/internal/constants"
	"github.com/oslab/kernel2/internal/layer1"
	"github.com/oslab/kernel2/internal/uapi"
)

// HandleTrap is the interrupt-vector entry point the simulator calls
// when a user process executes the trap instruction (spec.md §1's data
// flow: "simulator vectors to the syscall handler installed by UPS").
// It validates the syscall number and dispatches to the registered
// stub; the stub's own call into a Service method (Spawn, Wait, ...)
// performs the actual kernel-mode bracketing (spec.md §9's mode-drop
// note — the read-modify-write happens under no lock, and happens once,
// at the point of entry into kernel code, not redundantly here).
func (s *Service) HandleTrap(caller layer1.Proc, frame *uapi.TrapFrame) {
	start := time.Now()

	if caller.Tag() != constants.UserTag {
		s.IllegalInstruction(caller)
		return
	}
	if !frame.Number.Valid() {
		frame.Arg4 = uint64(uapi.ErrInvalidSyscall)
		s.IllegalInstruction(caller)
		return
	}

	s.mu.Lock()
	handler := s.handlers[frame.Number]
	s.mu.Unlock()
	if handler == nil {
		frame.Arg4 = uint64(uapi.ErrInvalidSyscall)
		s.IllegalInstruction(caller)
		return
	}

	handler(s, caller, frame)
	s.Metrics.recordDispatch(uint64(time.Since(start).Nanoseconds()))
}
