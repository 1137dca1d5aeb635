package kernel2

import (
	"github.com/oslab/kernel2/internal/clock"
	"github.com/oslab/kernel2/internal/constants"
	"github.com/oslab/kernel2/internal/device"
	"github.com/oslab/kernel2/internal/disk"
	"github.com/oslab/kernel2/internal/layer1"
	"github.com/oslab/kernel2/internal/layer1/sim"
	"github.com/oslab/kernel2/internal/logging"
	"github.com/oslab/kernel2/internal/uapi"
	"github.com/oslab/kernel2/internal/ups"
)

var log = logging.Default().Named("kernel2")

// Kernel is the assembled Layer-2 system: a Layer 1 simulator plus the
// three services built on it (UPS, CS, DS) and the simulated hardware
// that drives CS's and DS's driver processes. It is the public entry
// point equivalent to the teacher's Device — one call brings the whole
// stack up, one call tears it down.
type Kernel struct {
	cfg Config

	l1 layer1.Kernel

	ups   *ups.Service
	clock *clock.Service
	disk  *disk.Service

	clockHW *device.ClockHardware
	diskHW  []*device.DiskHardware

	Metrics *Metrics
}

// New brings up a full kernel from cfg: constructs the Layer 1
// simulator, wires UPS, starts the clock hardware and CS's driver, and
// probes/starts NumDiskUnits disk units and DS's per-unit drivers.
// Grounded on the teacher's CreateAndServe: create controller, configure,
// start runners, register, start serving — in that order, with cleanup
// on any failure.
func New(cfg Config) (*Kernel, error) {
	if cfg.MaxProc != constants.MaxProc {
		return nil, newFault("New", KindInvalidPid, "MaxProc must match the compiled-in UPS table size", nil)
	}
	if cfg.MaxSleepers != constants.MaxSleepers {
		return nil, newFault("New", KindInvalidSeconds, "MaxSleepers must match the compiled-in CS table size", nil)
	}

	l1 := sim.New()
	upsSvc := ups.New(l1)
	ups.RegisterDefaultSyscalls(upsSvc)

	clockSvc := clock.New(l1, upsSvc)
	if err := clockSvc.Init(); err != nil {
		return nil, newFault("New", KindInvalidSeconds, "clock service init failed", err)
	}
	clockHW := device.NewClockHardware(l1, cfg.ClockTick)
	clockHW.Start()

	diskHW := make([]*device.DiskHardware, cfg.NumDiskUnits)
	for i := range diskHW {
		diskHW[i] = device.NewDiskHardware(l1, i, cfg.NumTracks, cfg.TrackSize, cfg.SectorSize, cfg.DiskLatency)
	}
	diskSvc := disk.New(l1, upsSvc)
	if err := diskSvc.Init(diskHW, cfg.DiskQueueCapacity); err != nil {
		clockHW.Stop()
		clockSvc.Shutdown()
		return nil, newFault("New", KindInvalidUnit, "disk service init failed", err)
	}

	log.Info("kernel started", "disk_units", cfg.NumDiskUnits, "max_proc", cfg.MaxProc)

	return &Kernel{
		cfg:     cfg,
		l1:      l1,
		ups:     upsSvc,
		clock:   clockSvc,
		disk:    diskSvc,
		clockHW: clockHW,
		diskHW:  diskHW,
		Metrics: newMetrics(upsSvc, clockSvc, diskSvc),
	}, nil
}

// Root returns the Layer 1 handle for the root process, the caller
// identity used by demo/test code that issues kernel operations outside
// of any spawned user process.
func (k *Kernel) Root() layer1.Proc { return k.l1.Root() }

// Spawn creates a new user process running start with arg, returning its
// user pid.
func (k *Kernel) Spawn(caller layer1.Proc, name string, start ups.UserStart, arg any, priority int) (int, error) {
	pid, err := k.ups.Spawn(caller, name, start, arg, priority)
	if err != nil {
		return 0, translateUPSError("Spawn", err)
	}
	return pid, nil
}

// Wait blocks the caller until any of its children terminates, returning
// the child's user pid and exit status.
func (k *Kernel) Wait(caller layer1.Proc) (int, int, error) {
	pid, status, err := k.ups.Wait(caller)
	if err != nil {
		return 0, 0, translateUPSError("Wait", err)
	}
	return pid, status, nil
}

// GetProcInfo copies the named process's process-info record to info.
func (k *Kernel) GetProcInfo(caller layer1.Proc, pid int, info *ProcInfo) error {
	var raw uapi.ProcInfo
	if err := k.ups.GetProcInfo(caller, pid, &raw); err != nil {
		return translateUPSError("GetProcInfo", err)
	}
	*info = ProcInfo{Pid: raw.Pid, ParentPid: raw.ParentID, Priority: raw.Priority, Name: raw.Name}
	return nil
}

// GetPid returns the caller's own user pid.
func (k *Kernel) GetPid(caller layer1.Proc) int { return k.ups.GetPid(caller) }

// HandleTrap dispatches a syscall trap exactly as the simulator's trap
// vector would: an invalid syscall number or a kernel-tagged caller
// both route to the illegal-instruction path.
func (k *Kernel) HandleTrap(caller layer1.Proc, frame *uapi.TrapFrame) {
	k.ups.HandleTrap(caller, frame)
}

// IllegalInstruction terminates caller via the illegal-instruction path:
// a user-tagged caller is terminated with UserFaultStatus, a
// kernel-tagged one is quit with KernelFaultStatus. It is the entry point a spawned
// process uses to represent "executed a privileged instruction" since
// this simulator has no real instruction decoder to trap that on its
// own.
func (k *Kernel) IllegalInstruction(caller layer1.Proc) {
	k.ups.IllegalInstruction(caller)
}

// GetTimeOfDay returns the simulator's monotonic clock reading in
// microseconds.
func (k *Kernel) GetTimeOfDay(caller layer1.Proc) uint64 { return k.ups.GetTimeOfDay(caller) }

// Sleep blocks the caller for at least the given number of seconds.
func (k *Kernel) Sleep(caller layer1.Proc, seconds int) error {
	if err := k.clock.P2Sleep(caller, seconds); err != nil {
		return newFault("Sleep", KindInvalidSeconds, err.Error(), err)
	}
	return nil
}

// DiskRead reads sectors sectors from (track, first) on unitIdx into buf.
func (k *Kernel) DiskRead(caller layer1.Proc, unitIdx, track, first, sectors int, buf []byte) error {
	if err := k.disk.Read(caller, unitIdx, track, first, sectors, buf); err != nil {
		return translateDiskError("DiskRead", unitIdx, err)
	}
	return nil
}

// DiskWrite writes sectors sectors from buf to (track, first) on unitIdx.
func (k *Kernel) DiskWrite(caller layer1.Proc, unitIdx, track, first, sectors int, buf []byte) error {
	if err := k.disk.Write(caller, unitIdx, track, first, sectors, buf); err != nil {
		return translateDiskError("DiskWrite", unitIdx, err)
	}
	return nil
}

// DiskSize returns unitIdx's sector size in bytes, sectors per track,
// and tracks per disk (spec.md §4.3 — three distinct values, not their
// product).
func (k *Kernel) DiskSize(unitIdx int) (sectorSize, sectorsPerTrack, tracksPerDisk int, err error) {
	geom, err := k.disk.Geometry(unitIdx)
	if err != nil {
		return 0, 0, 0, translateDiskError("DiskSize", unitIdx, err)
	}
	return geom.SectorSize, geom.SectorsPerTrack, geom.NumTracks, nil
}

// Shutdown stops every driver process and the simulated hardware behind
// them. Grounded on the teacher's StopAndDelete: cancel, let goroutines
// observe it, then tear down in reverse-of-startup order.
func (k *Kernel) Shutdown() {
	k.disk.Shutdown()
	k.clock.Shutdown()
	k.clockHW.Stop()
	log.Info("kernel stopped")
}

// ProcInfo is the public process-info record returned by GetProcInfo.
type ProcInfo struct {
	Pid       int
	ParentPid int
	Priority  int
	Name      string
}
