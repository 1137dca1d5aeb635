package clock

import (
	"github.com/oslab/kernel2/internal/layer1"
	"github.com/oslab/kernel2/internal/uapi"
	"github.com/oslab/kernel2/internal/ups"
)

// syscallSleep unpacks {arg1=seconds} and packs back {arg4=rc}
// (spec.md §6), blocking the caller via P2Sleep.
func (s *Service) syscallSleep(upsSvc *ups.Service, caller layer1.Proc, frame *uapi.TrapFrame) {
	seconds := int(frame.Arg1)
	if err := s.P2Sleep(caller, seconds); err != nil {
		frame.Arg4 = uint64(uapi.ErrInvalidSeconds)
		return
	}
	frame.Arg4 = uint64(uapi.Success)
}
