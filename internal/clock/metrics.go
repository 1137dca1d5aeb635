package clock

import "sync/atomic"

// Metrics tracks Clock Service activity: how many sleepers have been
// registered, how many driver passes have run, and how many sleepers
// have been signaled in total. Grounded on the teacher's per-device Metrics
// struct, generalized from I/O counters to sleeper-table counters.
type Metrics struct {
	SleepCalls      atomic.Uint64
	SleepErrors     atomic.Uint64
	DriverPasses    atomic.Uint64
	SleepersWoken   atomic.Uint64
	SleeperTableFull atomic.Uint64
}

func NewMetrics() *Metrics { return &Metrics{} }
