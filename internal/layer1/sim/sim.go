// Package sim is the reference Layer 1 simulator: a process table, a
// Go-goroutine-per-process scheduler, counting semaphores, and
// per-device wait queues. It is grounded on the teacher's
// internal/queue/runner.go: that file drives one I/O tag through a
// small state machine under a per-queue mutex plus condition signaling;
// this package generalizes the same shape from one I/O tag to one
// kernel process, and from a single completion queue to an arbitrary
// set of named devices.
//
// The simulator does not attempt cooperative single-CPU scheduling —
// each Layer 1 process is a real goroutine — but the Kernel/Proc
// interface it implements hides that choice from every caller, so the
// rest of this repository is exactly as correct against a true
// single-threaded Layer 1 as against this one.
package sim

import (
	"runtime"
	"sync"
	"time"

	"golang.org/x/sys/unix"

	"github.com/oslab/kernel2/internal/constants"
	"github.com/oslab/kernel2/internal/layer1"
	"github.com/oslab/kernel2/internal/logging"
	"github.com/oslab/kernel2/internal/uapi"
)

var log = logging.Default().Named("layer1/sim")

var ErrNoChildren = layer1NoChildrenError{}

type layer1NoChildrenError struct{}

func (layer1NoChildrenError) Error() string { return "layer1: no children of requested tag" }

// exitRecord is one terminated-but-not-yet-joined child.
type exitRecord struct {
	pid    layer1.Pid
	status int
}

type proc struct {
	k    *Kernel
	pid  layer1.Pid
	name string
	tag  constants.Tag

	mu       sync.Mutex
	mode     constants.Tag
	priority int
	parent   layer1.Pid
	hasParent bool

	cond        *sync.Cond
	liveChildren map[constants.Tag]map[layer1.Pid]bool
	pending      map[constants.Tag][]exitRecord
}

func newProc(k *Kernel, pid layer1.Pid, name string, tag constants.Tag, priority int, parent layer1.Pid, hasParent bool) *proc {
	p := &proc{
		k:            k,
		pid:          pid,
		name:         name,
		tag:          tag,
		mode:         constants.KernelTag,
		priority:     priority,
		parent:       parent,
		hasParent:    hasParent,
		liveChildren: map[constants.Tag]map[layer1.Pid]bool{constants.KernelTag: {}, constants.UserTag: {}},
		pending:      map[constants.Tag][]exitRecord{constants.KernelTag: nil, constants.UserTag: nil},
	}
	p.cond = sync.NewCond(&p.mu)
	return p
}

func (p *proc) Pid() layer1.Pid       { return p.pid }
func (p *proc) Tag() constants.Tag    { return p.tag }

func (p *proc) Mode() constants.Tag {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.mode
}

// DropToUser is the one-way mode-bit transition documented on
// layer1.Proc: no lock is held while it executes, only while the bit
// itself is flipped.
func (p *proc) DropToUser() {
	p.mu.Lock()
	p.mode = constants.UserTag
	p.mu.Unlock()
}

func (p *proc) EnterKernelMode() {
	p.mu.Lock()
	p.mode = constants.KernelTag
	p.mu.Unlock()
}

func (p *proc) ReturnToUserMode() {
	if p.tag == constants.KernelTag {
		return
	}
	p.mu.Lock()
	p.mode = constants.UserTag
	p.mu.Unlock()
}

func (p *proc) Fork(name string, tag constants.Tag, priority int, start layer1.StartFunc, arg any) (layer1.Proc, error) {
	child := p.k.newProc(name, tag, priority, p.pid)

	p.mu.Lock()
	p.liveChildren[tag][child.pid] = true
	p.mu.Unlock()

	log.Debug("fork", "parent", p.pid, "child", child.pid, "name", name, "tag", tag.String(), "priority", priority)
	go func() {
		start(child, arg)
	}()
	return child, nil
}

func (p *proc) Join(filter constants.Tag) (layer1.Pid, int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for {
		if pend := p.pending[filter]; len(pend) > 0 {
			rec := pend[0]
			p.pending[filter] = pend[1:]
			return rec.pid, rec.status, nil
		}
		if len(p.liveChildren[filter]) == 0 {
			return 0, 0, ErrNoChildren
		}
		p.cond.Wait()
	}
}

// Quit marks the process terminated, notifies its parent (if any) so a
// blocked Join can wake up, and then ends the goroutine via
// runtime.Goexit so control never returns to the caller — matching the
// spec's "Quit never returns."
func (p *proc) Quit(status int) {
	log.Debug("quit", "pid", p.pid, "status", status)
	p.k.deregister(p.pid)

	if p.hasParent {
		if parent := p.k.lookup(p.parent); parent != nil {
			parent.mu.Lock()
			delete(parent.liveChildren[p.tag], p.pid)
			parent.pending[p.tag] = append(parent.pending[p.tag], exitRecord{pid: p.pid, status: status})
			parent.cond.Broadcast()
			parent.mu.Unlock()
		}
	}
	runtime.Goexit()
}

func (p *proc) Children() []layer1.Pid {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]layer1.Pid, 0, len(p.liveChildren[constants.KernelTag])+len(p.liveChildren[constants.UserTag]))
	for pid := range p.liveChildren[constants.KernelTag] {
		out = append(out, pid)
	}
	for pid := range p.liveChildren[constants.UserTag] {
		out = append(out, pid)
	}
	return out
}

func (p *proc) SemP(id layer1.SemID) { p.k.semP(id) }
func (p *proc) SemV(id layer1.SemID) { p.k.semV(id) }

func (p *proc) WaitDevice(d layer1.Device) layer1.WaitResult { return p.k.waitDevice(d) }

// semaphore is a classic counting semaphore built on a mutex and a FIFO
// of waiter channels, the same shape the teacher uses for per-tag
// completion handshakes in internal/queue/runner.go.
type semaphore struct {
	mu      sync.Mutex
	count   int
	waiters []chan struct{}
}

type deviceQueue struct {
	mu      sync.Mutex
	waiters []chan layer1.WaitResult
}

// Kernel is the concrete reference Layer 1 simulator.
type Kernel struct {
	mu      sync.Mutex
	procs   map[layer1.Pid]*proc
	nextPid layer1.Pid

	semMu   sync.Mutex
	sems    map[layer1.SemID]*semaphore
	nextSem layer1.SemID

	devMu   sync.Mutex
	devices map[layer1.Device]*deviceQueue

	root *proc
}

// New constructs a Layer 1 simulator and its boot-time root process.
func New() *Kernel {
	k := &Kernel{
		procs:   make(map[layer1.Pid]*proc),
		sems:    make(map[layer1.SemID]*semaphore),
		devices: make(map[layer1.Device]*deviceQueue),
	}
	k.root = newProc(k, 0, "boot", constants.KernelTag, constants.DriverPriority, 0, false)
	k.nextPid = 1
	k.procs[0] = k.root
	return k
}

func (k *Kernel) newProc(name string, tag constants.Tag, priority int, parent layer1.Pid) *proc {
	k.mu.Lock()
	pid := k.nextPid
	k.nextPid++
	p := newProc(k, pid, name, tag, priority, parent, true)
	k.procs[pid] = p
	k.mu.Unlock()
	return p
}

func (k *Kernel) deregister(pid layer1.Pid) {
	k.mu.Lock()
	delete(k.procs, pid)
	k.mu.Unlock()
}

func (k *Kernel) lookup(pid layer1.Pid) *proc {
	k.mu.Lock()
	defer k.mu.Unlock()
	return k.procs[pid]
}

func (k *Kernel) Root() layer1.Proc { return k.root }

func (k *Kernel) GetProcInfo(pid layer1.Pid, info *uapi.ProcInfo) error {
	p := k.lookup(pid)
	if p == nil {
		return ErrNoChildren
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	parent := -1
	if p.hasParent {
		parent = int(p.parent)
	}
	*info = uapi.ProcInfo{
		Pid:      int(p.pid),
		ParentID: parent,
		Priority: p.priority,
		Name:     p.name,
	}
	return nil
}

func (k *Kernel) SemCreate(initial int) layer1.SemID {
	k.semMu.Lock()
	defer k.semMu.Unlock()
	id := k.nextSem
	k.nextSem++
	k.sems[id] = &semaphore{count: initial}
	return id
}

func (k *Kernel) semP(id layer1.SemID) {
	k.semMu.Lock()
	s := k.sems[id]
	k.semMu.Unlock()
	if s == nil {
		return
	}
	s.mu.Lock()
	if s.count > 0 {
		s.count--
		s.mu.Unlock()
		return
	}
	ch := make(chan struct{})
	s.waiters = append(s.waiters, ch)
	s.mu.Unlock()
	<-ch
}

func (k *Kernel) semV(id layer1.SemID) {
	k.semMu.Lock()
	s := k.sems[id]
	k.semMu.Unlock()
	if s == nil {
		return
	}
	s.mu.Lock()
	if len(s.waiters) > 0 {
		w := s.waiters[0]
		s.waiters = s.waiters[1:]
		s.mu.Unlock()
		close(w)
		return
	}
	s.count++
	s.mu.Unlock()
}

func (k *Kernel) deviceQueueFor(d layer1.Device) *deviceQueue {
	k.devMu.Lock()
	defer k.devMu.Unlock()
	dq := k.devices[d]
	if dq == nil {
		dq = &deviceQueue{}
		k.devices[d] = dq
	}
	return dq
}

func (k *Kernel) waitDevice(d layer1.Device) layer1.WaitResult {
	dq := k.deviceQueueFor(d)
	ch := make(chan layer1.WaitResult, 1)
	dq.mu.Lock()
	dq.waiters = append(dq.waiters, ch)
	dq.mu.Unlock()
	return <-ch
}

func (k *Kernel) WakeupDevice(d layer1.Device, abort bool) {
	dq := k.deviceQueueFor(d)
	result := layer1.WaitOK
	if abort {
		result = layer1.WaitAborted
	}
	dq.mu.Lock()
	waiters := dq.waiters
	dq.waiters = nil
	dq.mu.Unlock()
	for _, w := range waiters {
		w <- result
	}
}

// Now returns the current monotonic time in microseconds, read via
// CLOCK_MONOTONIC the same way the teacher's device backends time I/O
// completions.
func (k *Kernel) Now() uint64 {
	var ts unix.Timespec
	if err := unix.ClockGettime(unix.CLOCK_MONOTONIC, &ts); err != nil {
		return uint64(time.Now().UnixMicro())
	}
	return uint64(ts.Sec)*1_000_000 + uint64(ts.Nsec)/1000
}
