package ups

import "github.com/oslab/kernel2/internal/layer1"

// state is a user-process record's lifecycle stage (spec.md §3,
// "User-Process Record"). Transitions follow Unused -> Initialized ->
// Terminated -> Unused.
type state int

const (
	stateUnused state = iota
	stateInitialized
	stateTerminated
)

// UserStart is a spawned user process's entry routine. self is the
// process's own Layer 1 handle (needed to Spawn further children, Wait,
// or otherwise act as a caller); arg is the opaque argument passed to
// Spawn. Its return value becomes the implicit Terminate status when
// the trampoline returns control to the kernel (spec.md §4.1's
// privilege protocol).
type UserStart func(self layer1.Proc, arg any) int

// record is one entry of the fixed-size user-process table, indexed by
// the compact user-pid exposed to user code.
type record struct {
	state     state
	kernelPid layer1.Pid
	name      string
	priority  int
	start     UserStart
	arg       any
	exitStatus int
	orphan    bool
}

func (r *record) reset() {
	*r = record{}
}
