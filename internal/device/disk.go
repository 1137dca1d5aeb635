package device

import (
	"time"

	"github.com/oslab/kernel2/internal/layer1"
	"github.com/oslab/kernel2/internal/logging"
)

var diskLog = logging.Default().Named("device/disk")

// DiskHardware simulates one disk unit's medium: a fixed number of
// tracks, each holding a fixed number of fixed-size sectors. It is
// grounded on the teacher's backend/mem.go in-memory Memory backend —
// the same flat byte-slice-per-region storage model, here sharded by
// track instead of by shard index — generalized to the seek/read/write
// micro-operation sequence spec.md §4.3's driver loop issues.
//
// Seek/Read/Write are asynchronous: a read or write copies its sector
// at once, and each operation then delivers a device interrupt via
// WakeupDevice after a small simulated latency. The caller (the per-unit driver process) issues the
// operation and then blocks in WaitDevice, exactly as spec.md §4.3
// describes ("Seek to the request's starting track (SeekTrack +
// WaitDevice)").
type DiskHardware struct {
	kernel          layer1.Kernel
	unit            int
	tracks          int
	sectorsPerTrack int
	sectorSize      int
	latency         time.Duration

	media [][]byte // one []byte per track, len == sectorsPerTrack*sectorSize
}

// NewDiskHardware constructs a disk unit with the given geometry.
func NewDiskHardware(k layer1.Kernel, unit, tracks, sectorsPerTrack, sectorSize int, latency time.Duration) *DiskHardware {
	media := make([][]byte, tracks)
	for i := range media {
		media[i] = make([]byte, sectorsPerTrack*sectorSize)
	}
	return &DiskHardware{
		kernel:          k,
		unit:            unit,
		tracks:          tracks,
		sectorsPerTrack: sectorsPerTrack,
		sectorSize:      sectorSize,
		latency:         latency,
		media:           media,
	}
}

// Tracks is the once-at-init geometry probe (spec.md §4.3
// "Initialization"). It is synchronous: probing geometry does not model
// a device interrupt round-trip.
func (d *DiskHardware) Tracks() int { return d.tracks }

// SectorsPerTrack and SectorSize expose the rest of the probed geometry
// for DS's DiskSize computation.
func (d *DiskHardware) SectorsPerTrack() int { return d.sectorsPerTrack }
func (d *DiskHardware) SectorSize() int      { return d.sectorSize }

func (d *DiskHardware) device() layer1.Device { return layer1.DiskDevice(d.unit) }

// SeekTrack schedules a seek completion interrupt. The caller must
// follow it with kernel.WaitDevice(unit's device).
func (d *DiskHardware) SeekTrack(track int) {
	diskLog.Debug("seek", "unit", d.unit, "track", track)
	d.complete()
}

// ReadSector copies one sector from the medium into buf (which must be
// at least SectorSize bytes) and schedules a completion interrupt.
func (d *DiskHardware) ReadSector(track, index int, buf []byte) {
	n := copy(buf, d.media[track][index*d.sectorSize:(index+1)*d.sectorSize])
	_ = n
	d.complete()
}

// WriteSector copies buf (at least SectorSize bytes) into the medium at
// the given track/sector and schedules a completion interrupt.
func (d *DiskHardware) WriteSector(track, index int, buf []byte) {
	copy(d.media[track][index*d.sectorSize:(index+1)*d.sectorSize], buf)
	d.complete()
}

func (d *DiskHardware) complete() {
	go func() {
		if d.latency > 0 {
			time.Sleep(d.latency)
		}
		d.kernel.WakeupDevice(d.device(), false)
	}()
}
