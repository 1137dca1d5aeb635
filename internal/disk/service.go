// Package disk implements the Disk Service: one kernel driver process
// per disk unit, serializing block-I/O requests from user processes
// into seek + sector-read/write micro-operations against a simulated
// device.
package disk

import (
	"errors"
	"sync"

	"github.com/oslab/kernel2/internal/constants"
	"github.com/oslab/kernel2/internal/device"
	"github.com/oslab/kernel2/internal/layer1"
	"github.com/oslab/kernel2/internal/logging"
	"github.com/oslab/kernel2/internal/uapi"
	"github.com/oslab/kernel2/internal/ups"
)

var log = logging.Default().Named("disk")

var ErrTooManyUnits = errors.New("disk: too many units")

// Service is the Disk Service singleton: the set of per-unit drivers
// and the syscall handlers that validate and submit requests to them.
type Service struct {
	kernel layer1.Kernel
	ups    *ups.Service

	mu    sync.Mutex
	units []*unit

	Metrics *Metrics
}

// New constructs a Service bound to kernel and upsSvc.
func New(kernel layer1.Kernel, upsSvc *ups.Service) *Service {
	return &Service{kernel: kernel, ups: upsSvc, Metrics: NewMetrics()}
}

// Init probes each hardware unit's geometry, allocates its submission
// ring and semaphores, forks its driver process at
// constants.DriverPriority, and registers the Read/Write/Size syscalls
// (spec.md §4.3's "Initialization"). queueCapacity is C, the per-unit
// ring size (spec.md §3 requires C >= 8).
func (s *Service) Init(hardware []*device.DiskHardware, queueCapacity int) error {
	if len(hardware) > constants.MaxDiskUnits {
		return ErrTooManyUnits
	}

	s.mu.Lock()
	s.units = make([]*unit, len(hardware))
	s.mu.Unlock()

	for i, hw := range hardware {
		u := newUnit(i, hw, s.kernel, queueCapacity, s.Metrics)
		root := s.kernel.Root()
		driver, err := root.Fork("disk-driver", constants.KernelTag, constants.DriverPriority, u.driverLoop, nil)
		if err != nil {
			return err
		}
		u.driver = driver
		s.mu.Lock()
		s.units[i] = u
		s.mu.Unlock()
		log.Debug("disk unit initialized", "unit", i, "tracks", u.geometry.NumTracks)
	}

	s.ups.SetSyscallHandler(uapi.SyscallDiskRead, s.syscallDiskRead)
	s.ups.SetSyscallHandler(uapi.SyscallDiskWrite, s.syscallDiskWrite)
	s.ups.SetSyscallHandler(uapi.SyscallDiskSize, s.syscallDiskSize)
	return nil
}

func (s *Service) unitAt(index int) (*unit, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if index < 0 || index >= len(s.units) {
		return nil, ErrInvalidUnit
	}
	return s.units[index], nil
}

// Read submits a read request for sectors sectors starting at
// (track, first) on the given unit into buf, and blocks until it
// completes.
func (s *Service) Read(caller layer1.Proc, unitIdx, track, first, sectors int, buf []byte) error {
	u, err := s.unitAt(unitIdx)
	if err != nil {
		s.Metrics.InvalidRequests.Add(1)
		return err
	}
	ok, err := u.submit(caller, opRead, track, first, sectors, buf)
	if err != nil {
		s.Metrics.InvalidRequests.Add(1)
		return err
	}
	if ok {
		s.Metrics.ReadOps.Add(1)
		s.Metrics.ReadBytes.Add(uint64(sectors * u.geometry.SectorSize))
	}
	return nil
}

// Write submits a write request, blocking until it completes.
func (s *Service) Write(caller layer1.Proc, unitIdx, track, first, sectors int, buf []byte) error {
	u, err := s.unitAt(unitIdx)
	if err != nil {
		s.Metrics.InvalidRequests.Add(1)
		return err
	}
	ok, err := u.submit(caller, opWrite, track, first, sectors, buf)
	if err != nil {
		s.Metrics.InvalidRequests.Add(1)
		return err
	}
	if ok {
		s.Metrics.WriteOps.Add(1)
		s.Metrics.WriteBytes.Add(uint64(sectors * u.geometry.SectorSize))
	}
	return nil
}

// Geometry returns the unit's probed geometry: sector size, sectors per
// track, and tracks per disk (spec.md §4.3's DiskSize — three distinct
// values, not their product).
func (s *Service) Geometry(unitIdx int) (Geometry, error) {
	u, err := s.unitAt(unitIdx)
	if err != nil {
		return Geometry{}, err
	}
	return u.geometry, nil
}

// Shutdown stops every unit's driver process: it sets the shutdown
// flag and wakes the blocked pending-request wait so the loop observes
// the flag instead of servicing another request.
func (s *Service) Shutdown() {
	s.mu.Lock()
	units := append([]*unit(nil), s.units...)
	s.mu.Unlock()

	root := s.kernel.Root()
	for _, u := range units {
		u.shutdown.Store(true)
		root.SemV(u.pendingSem)
	}
}
