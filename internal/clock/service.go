// Package clock implements the Clock Service: a single kernel driver
// process that fields simulated clock-device interrupts and a
// multi-client Sleep primitive with monotonic wakeup ordering.
//
// Grounded on the teacher's internal/queue/runner.go ioLoop — a single
// goroutine blocking on a queue/device primitive and draining a table
// of pending work on each wakeup — generalized from one completion
// queue to the sleeper table spec.md §3 describes.
package clock

import (
	"errors"
	"sync"

	"github.com/oslab/kernel2/internal/constants"
	"github.com/oslab/kernel2/internal/layer1"
	"github.com/oslab/kernel2/internal/logging"
	"github.com/oslab/kernel2/internal/uapi"
	"github.com/oslab/kernel2/internal/ups"
)

var log = logging.Default().Named("clock")

// ErrInvalidSeconds is returned for a negative sleep duration.
var ErrInvalidSeconds = errors.New("clock: invalid seconds")

// ErrSleeperTableFull is returned when every sleeper slot is active.
// constants.MaxSleepers equals constants.MaxProc, so every user process
// can sleep at once, but the table is still fixed-size.
var ErrSleeperTableFull = errors.New("clock: sleeper table full")

type sleeperRecord struct {
	active   bool
	signaled bool
	start    uint64
	seconds  int
	sem      layer1.SemID
}

// Service is the Clock Service singleton: the sleeper table and the
// driver process that scans it on every clock interrupt.
type Service struct {
	kernel layer1.Kernel
	ups    *ups.Service

	mu       sync.Mutex
	sleepers [constants.MaxSleepers]sleeperRecord

	driver layer1.Proc

	Metrics *Metrics
}

// New constructs a Service bound to kernel and upsSvc. Call Init to
// allocate the per-slot semaphores, fork the driver, and register the
// Sleep syscall.
func New(kernel layer1.Kernel, upsSvc *ups.Service) *Service {
	return &Service{kernel: kernel, ups: upsSvc, Metrics: NewMetrics()}
}

// Init allocates one completion semaphore per sleeper slot, forks the
// driver process at constants.DriverPriority, and registers the Sleep
// syscall stub.
func (s *Service) Init() error {
	for i := range s.sleepers {
		s.sleepers[i].sem = s.kernel.SemCreate(0)
	}

	root := s.kernel.Root()
	driver, err := root.Fork("clock-driver", constants.KernelTag, constants.DriverPriority, s.driverLoop, nil)
	if err != nil {
		return err
	}
	s.driver = driver

	return s.ups.SetSyscallHandler(uapi.SyscallSleep, s.syscallSleep)
}

// driverLoop is CS's single driver process (spec.md §4.2): block on
// WaitDevice(Clock); on wakeup, scan the sleeper table and signal every
// record whose deadline has passed. WaitAborted terminates the driver.
func (s *Service) driverLoop(self layer1.Proc, arg any) {
	for {
		result := self.WaitDevice(layer1.DeviceClock)
		if result == layer1.WaitAborted {
			log.Debug("clock driver shutting down")
			return
		}

		s.Metrics.DriverPasses.Add(1)
		now := s.kernel.Now()

		s.mu.Lock()
		for i := range s.sleepers {
			rec := &s.sleepers[i]
			if !rec.active || rec.signaled {
				continue
			}
			if now-rec.start >= uint64(rec.seconds)*1_000_000 {
				rec.signaled = true
				self.SemV(rec.sem)
				s.Metrics.SleepersWoken.Add(1)
			}
		}
		s.mu.Unlock()
	}
}

// P2Sleep blocks the caller for at least seconds seconds of monotonic
// clock time (spec.md §4.2). Sleep(0) still registers a slot and blocks
// until the next driver pass observes it, satisfying "returns success
// promptly (no later than the next clock tick)".
func (s *Service) P2Sleep(caller layer1.Proc, seconds int) error {
	if seconds < 0 {
		s.Metrics.SleepErrors.Add(1)
		return ErrInvalidSeconds
	}

	s.mu.Lock()
	slot := -1
	for i := range s.sleepers {
		if !s.sleepers[i].active {
			slot = i
			break
		}
	}
	if slot < 0 {
		s.mu.Unlock()
		s.Metrics.SleeperTableFull.Add(1)
		return ErrSleeperTableFull
	}
	rec := &s.sleepers[slot]
	rec.active = true
	rec.signaled = false
	rec.start = s.kernel.Now()
	rec.seconds = seconds
	sem := rec.sem
	s.mu.Unlock()

	s.Metrics.SleepCalls.Add(1)
	caller.SemP(sem)

	s.mu.Lock()
	rec.active = false
	rec.signaled = false
	s.mu.Unlock()

	return nil
}

// Shutdown aborts the driver's current WaitDevice, terminating its loop
// (spec.md §4.2). No new sleepers are expected after Shutdown is called.
func (s *Service) Shutdown() {
	s.kernel.WakeupDevice(layer1.DeviceClock, true)
}
