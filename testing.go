package kernel2

import "time"

// NewTestKernel constructs a Kernel sized for fast, deterministic tests:
// one small disk unit and a sub-millisecond clock tick, rather than
// DefaultConfig's production-sized disk. It is the equivalent of the
// teacher's NewMockBackend — a lightweight stand-in other packages'
// tests reach for instead of wiring a full kernel by hand each time.
//
// Callers are responsible for calling Shutdown on the returned Kernel
// (typically via t.Cleanup).
func NewTestKernel() (*Kernel, error) {
	cfg := DefaultConfig()
	cfg.NumDiskUnits = 1
	cfg.NumTracks = 4
	cfg.ClockTick = 200 * time.Microsecond
	cfg.DiskLatency = 200 * time.Microsecond
	return New(cfg)
}
