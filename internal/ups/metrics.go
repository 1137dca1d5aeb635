package ups

import (
	"sync/atomic"
	"time"
)

// latencyBuckets mirrors the teacher's device Metrics histogram: a
// logarithmic spread from 1us to 10s, cumulative per bucket.
var latencyBuckets = []uint64{
	1_000,
	10_000,
	100_000,
	1_000_000,
	10_000_000,
	100_000_000,
	1_000_000_000,
	10_000_000_000,
}

const numLatencyBuckets = 8

// Metrics tracks UPS-wide operational counters: how many processes have
// been spawned, waited on, terminated, and how long syscall dispatch
// takes. Grounded on the teacher's per-device Metrics struct, generalized
// from block-I/O counters to syscall counters.
type Metrics struct {
	SpawnOps     atomic.Uint64
	SpawnErrors  atomic.Uint64
	WaitOps      atomic.Uint64
	WaitErrors   atomic.Uint64
	TerminateOps atomic.Uint64
	OrphansMade  atomic.Uint64
	IllegalTraps atomic.Uint64

	TotalDispatchNs atomic.Uint64
	DispatchCount   atomic.Uint64
	LatencyBuckets  [numLatencyBuckets]atomic.Uint64

	StartTime atomic.Int64
}

func NewMetrics() *Metrics {
	m := &Metrics{}
	m.StartTime.Store(time.Now().UnixNano())
	return m
}

func (m *Metrics) recordDispatch(latencyNs uint64) {
	m.TotalDispatchNs.Add(latencyNs)
	m.DispatchCount.Add(1)
	for i, bound := range latencyBuckets {
		if latencyNs <= bound {
			m.LatencyBuckets[i].Add(1)
		}
	}
}

// AverageDispatchNs returns the mean syscall dispatch latency in
// nanoseconds, or 0 if no dispatch has completed yet.
func (m *Metrics) AverageDispatchNs() uint64 {
	count := m.DispatchCount.Load()
	if count == 0 {
		return 0
	}
	return m.TotalDispatchNs.Load() / count
}
