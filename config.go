package kernel2

import (
	"time"

	"github.com/oslab/kernel2/internal/constants"
)

// Config bundles the tunables needed to bring up a Kernel, mirroring the
// teacher's DeviceParams/DefaultParams shape: a plain struct with a
// constructor that fills in sensible defaults, rather than functional
// options (the teacher's public API doesn't use those either).
type Config struct {
	// MaxProc is the UPS process-table size.
	MaxProc int

	// MaxSleepers is the CS sleeper-table size.
	MaxSleepers int

	// DiskQueueCapacity is the per-unit disk request ring size.
	DiskQueueCapacity int

	// NumDiskUnits is how many disk units Init creates.
	NumDiskUnits int

	// TrackSize is sectors per track, and NumTracks is tracks per unit,
	// for every unit Init creates.
	TrackSize int
	NumTracks int
	// SectorSize is bytes per sector.
	SectorSize int

	// DriverPriority records the Layer 1 priority of the clock and disk
	// driver processes. New does not read it: both services always fork
	// their drivers at constants.DriverPriority.
	DriverPriority int

	// ClockTick is the simulated hardware clock's interrupt period.
	ClockTick time.Duration

	// DiskLatency is the simulated per-operation seek/read/write latency.
	DiskLatency time.Duration
}

// DefaultConfig returns a Config sized for the pack's default constants
// and a single disk unit, suitable for tests and the demo binary.
func DefaultConfig() Config {
	return Config{
		MaxProc:           constants.MaxProc,
		MaxSleepers:       constants.MaxSleepers,
		DiskQueueCapacity: constants.DiskQueueCapacity,
		NumDiskUnits:      1,
		TrackSize:         constants.DefaultTrackSize,
		NumTracks:         64,
		SectorSize:        constants.DefaultSectorSize,
		DriverPriority:    constants.DriverPriority,
		ClockTick:         time.Millisecond,
		DiskLatency:       time.Millisecond,
	}
}
