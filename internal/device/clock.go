// Package device models the simulator-level hardware CS and DS drive:
// a free-running clock interrupt source and a per-unit disk medium with
// seek/read/write semantics. These sit below layer1.Kernel (which only
// models the process/semaphore/wait-queue abstraction) and are grounded
// on the teacher's internal/ctrl device-probing shape and backend/mem.go's
// sharded in-memory medium.
package device

import (
	"sync"
	"time"

	"github.com/oslab/kernel2/internal/layer1"
)

// ClockHardware simulates the periodic timer interrupt CS's driver
// process blocks waiting for. It does not track wall-clock time itself
// (layer1.Kernel.Now does that); it only fires WakeupDevice(DeviceClock)
// at a fixed cadence, standing in for "the timer chip raised an
// interrupt."
type ClockHardware struct {
	kernel layer1.Kernel
	tick   time.Duration

	mu      sync.Mutex
	stopCh  chan struct{}
	running bool
}

// NewClockHardware constructs a clock interrupt source. tick is the
// simulated interrupt period.
func NewClockHardware(k layer1.Kernel, tick time.Duration) *ClockHardware {
	return &ClockHardware{kernel: k, tick: tick}
}

// Start begins delivering interrupts in a background goroutine. Calling
// Start twice without an intervening Stop is a no-op.
func (c *ClockHardware) Start() {
	c.mu.Lock()
	if c.running {
		c.mu.Unlock()
		return
	}
	c.running = true
	c.stopCh = make(chan struct{})
	stop := c.stopCh
	c.mu.Unlock()

	go func() {
		ticker := time.NewTicker(c.tick)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				c.kernel.WakeupDevice(layer1.DeviceClock, false)
			case <-stop:
				return
			}
		}
	}()
}

// Stop halts interrupt delivery. It does not wake any process still
// blocked in WaitDevice; CS's Shutdown is responsible for that via
// WakeupDevice(abort=true).
func (c *ClockHardware) Stop() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.running {
		return
	}
	close(c.stopCh)
	c.running = false
}
