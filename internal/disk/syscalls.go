package disk

import (
	"sync"
	"sync/atomic"

	"github.com/oslab/kernel2/internal/layer1"
	"github.com/oslab/kernel2/internal/uapi"
	"github.com/oslab/kernel2/internal/ups"
)

// bufferRegistry stands in for a pointer into simulated user memory,
// exactly as ups.RegisterSpawnRequest does for Spawn's non-integer
// arguments: a trap frame's Arg slots are fixed-width integers, so the
// caller's []byte buffer is registered here and looked up by handle.
var (
	bufferRegistryMu  sync.Mutex
	bufferRegistry    = make(map[uint64][]byte)
	bufferRegistryNum atomic.Uint64
)

// RegisterBuffer stashes buf and returns a handle to pass as a disk
// syscall's buffer-register argument.
func RegisterBuffer(buf []byte) uint64 {
	handle := bufferRegistryNum.Add(1)
	bufferRegistryMu.Lock()
	bufferRegistry[handle] = buf
	bufferRegistryMu.Unlock()
	return handle
}

func takeBuffer(handle uint64) ([]byte, bool) {
	bufferRegistryMu.Lock()
	defer bufferRegistryMu.Unlock()
	buf, ok := bufferRegistry[handle]
	return buf, ok
}

// syscallDiskRead unpacks {arg1=buffer, arg2=sectors, arg3=track,
// arg4=first, arg5=unit} from the trap frame (spec.md §6) and submits a
// read.
func (s *Service) syscallDiskRead(upsSvc *ups.Service, caller layer1.Proc, frame *uapi.TrapFrame) {
	s.dispatchRW(caller, frame, opRead)
}

func (s *Service) syscallDiskWrite(upsSvc *ups.Service, caller layer1.Proc, frame *uapi.TrapFrame) {
	s.dispatchRW(caller, frame, opWrite)
}

func (s *Service) dispatchRW(caller layer1.Proc, frame *uapi.TrapFrame, op opKind) {
	bufferHandle := frame.Arg1
	sectors := int(int32(frame.Arg2))
	track := int(int32(frame.Arg3))
	first := int(int32(frame.Arg4))
	unitIdx := int(frame.Arg5)

	buf, ok := takeBuffer(bufferHandle)
	if !ok {
		frame.Arg4 = uint64(uapi.ErrNullAddress)
		return
	}

	var err error
	if op == opRead {
		err = s.Read(caller, unitIdx, track, first, sectors, buf)
	} else {
		err = s.Write(caller, unitIdx, track, first, sectors, buf)
	}
	frame.Arg4 = uint64(translateError(err))
}

// syscallDiskSize unpacks {arg1=unit} and packs back {arg1=sectorSize,
// arg2=sectorsPerTrack, arg3=tracksPerDisk, arg4=rc} (spec.md §6) —
// three distinct geometry fields, not their product.
func (s *Service) syscallDiskSize(upsSvc *ups.Service, caller layer1.Proc, frame *uapi.TrapFrame) {
	geom, err := s.Geometry(int(frame.Arg1))
	if err != nil {
		frame.Arg4 = uint64(uapi.ErrInvalidUnit)
		return
	}
	frame.Arg1 = uint64(geom.SectorSize)
	frame.Arg2 = uint64(geom.SectorsPerTrack)
	frame.Arg3 = uint64(geom.NumTracks)
	frame.Arg4 = uint64(uapi.Success)
}

func translateError(err error) uapi.ResultCode {
	switch err {
	case nil:
		return uapi.Success
	case ErrInvalidUnit:
		return uapi.ErrInvalidUnit
	case ErrInvalidTrack:
		return uapi.ErrInvalidTrack
	case ErrInvalidFirst:
		return uapi.ErrInvalidFirst
	case ErrInvalidSectors:
		return uapi.ErrInvalidSectors
	case ErrNullAddress:
		return uapi.ErrNullAddress
	default:
		return uapi.ErrInvalidUnit
	}
}
