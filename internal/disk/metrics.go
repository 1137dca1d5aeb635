package disk

import "sync/atomic"

// Metrics tracks Disk Service activity per the whole service (not
// per-unit, to keep the surface small); counters are summed across
// units. Grounded on the teacher's per-device Metrics struct.
type Metrics struct {
	ReadOps          atomic.Uint64
	WriteOps         atomic.Uint64
	ReadBytes        atomic.Uint64
	WriteBytes       atomic.Uint64
	InvalidRequests  atomic.Uint64
	RequestsQueued   atomic.Uint64
	RequestsServiced atomic.Uint64
}

func NewMetrics() *Metrics { return &Metrics{} }
