package disk

import (
	"sync"
	"sync/atomic"

	"github.com/oslab/kernel2/internal/device"
	"github.com/oslab/kernel2/internal/layer1"
)

type opKind int

const (
	opRead opKind = iota
	opWrite
)

// requestSlot is one entry of a unit's bounded submission ring
// (spec.md §3, "Disk Request Slot"). buffer is the caller's buffer,
// borrowed for the duration of the request: for a read it is the
// destination, for a write the source.
type requestSlot struct {
	op            opKind
	track         int
	first         int
	sectors       int
	buffer        []byte
	success       bool
	completionSem layer1.SemID
}

// unit drives one disk device: a submission ring, the per-unit
// producer-side mutex, the request-pending semaphore the driver blocks
// on, and the driver process itself. Grounded directly on the teacher's
// internal/queue/runner.go Runner: a mutex-guarded ring of per-tag
// state plus a single goroutine draining it strictly in order, here
// generalized from I/O tags to disk request slots.
type unit struct {
	index    int
	hw       *device.DiskHardware
	geometry Geometry

	submissionMu sync.Mutex
	slots        []requestSlot
	head         int
	tail         int
	pendingSem   layer1.SemID

	driver   layer1.Proc
	shutdown atomic.Bool

	metrics *Metrics
}

func newUnit(index int, hw *device.DiskHardware, kernel layer1.Kernel, capacity int, metrics *Metrics) *unit {
	u := &unit{
		index: index,
		hw:    hw,
		geometry: Geometry{
			NumTracks:       hw.Tracks(),
			SectorsPerTrack: hw.SectorsPerTrack(),
			SectorSize:      hw.SectorSize(),
		},
		slots:      make([]requestSlot, capacity),
		pendingSem: kernel.SemCreate(0),
		metrics:    metrics,
	}
	for i := range u.slots {
		u.slots[i].completionSem = kernel.SemCreate(0)
	}
	return u
}

// capacity returns the ring's slot count (C in spec.md §3).
func (u *unit) capacity() int { return len(u.slots) }

// submit validates and enqueues a request, then blocks the caller on
// the slot's completion semaphore (spec.md §4.3's "Submission path").
func (u *unit) submit(caller layer1.Proc, op opKind, track, first, sectors int, buffer []byte) (bool, error) {
	if track < 0 || track >= u.geometry.NumTracks {
		return false, ErrInvalidTrack
	}
	if first < 0 || first >= u.geometry.SectorsPerTrack {
		return false, ErrInvalidFirst
	}
	if buffer == nil {
		return false, ErrNullAddress
	}

	u.submissionMu.Lock()
	slotIdx := u.tail
	u.tail = (u.tail + 1) % u.capacity()
	slot := &u.slots[slotIdx]
	slot.op = op
	slot.track = track
	slot.first = first
	slot.sectors = sectors
	slot.buffer = buffer
	u.submissionMu.Unlock()

	u.metrics.RequestsQueued.Add(1)
	caller.SemV(u.pendingSem)

	caller.SemP(slot.completionSem)

	success := slot.success
	u.metrics.RequestsServiced.Add(1)
	if !success {
		return false, ErrInvalidSectors
	}
	return true, nil
}

// driverLoop is the per-unit driver process (spec.md §4.3's "Driver
// loop (per unit)"): block on the request-pending semaphore, pick the
// head slot, seek and read/write sector by sector, then signal
// completion and advance head.
func (u *unit) driverLoop(self layer1.Proc, arg any) {
	sectorSize := u.geometry.SectorSize
	trackSize := u.geometry.SectorsPerTrack

	for {
		self.SemP(u.pendingSem)
		if u.shutdown.Load() {
			return
		}

		slotIdx := u.head
		slot := &u.slots[slotIdx]

		currentTrack := slot.track
		index := slot.first
		success := true

		u.hw.SeekTrack(currentTrack)
		self.WaitDevice(layer1.DiskDevice(u.index))

		for i := 0; i < slot.sectors; i++ {
			if index == trackSize {
				currentTrack++
				if currentTrack >= u.geometry.NumTracks {
					success = false
					break
				}
				u.hw.SeekTrack(currentTrack)
				self.WaitDevice(layer1.DiskDevice(u.index))
				index = 0
			}

			buf := slot.buffer[i*sectorSize : (i+1)*sectorSize]
			if slot.op == opRead {
				u.hw.ReadSector(currentTrack, index, buf)
			} else {
				u.hw.WriteSector(currentTrack, index, buf)
			}
			self.WaitDevice(layer1.DiskDevice(u.index))
			index++
		}

		slot.success = success
		self.SemV(slot.completionSem)
		u.head = (u.head + 1) % u.capacity()
	}
}

var (
	ErrInvalidTrack   = trackErr{}
	ErrInvalidFirst   = firstErr{}
	ErrInvalidSectors = sectorsErr{}
	ErrNullAddress    = nullErr{}
	ErrInvalidUnit    = unitErr{}
)

type trackErr struct{}

func (trackErr) Error() string { return "disk: invalid track" }

type firstErr struct{}

func (firstErr) Error() string { return "disk: invalid starting sector" }

type sectorsErr struct{}

func (sectorsErr) Error() string { return "disk: request crossed the last track" }

type nullErr struct{}

func (nullErr) Error() string { return "disk: null buffer" }

type unitErr struct{}

func (unitErr) Error() string { return "disk: invalid unit" }
