package ups

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oslab/kernel2/internal/constants"
	"github.com/oslab/kernel2/internal/layer1"
	"github.com/oslab/kernel2/internal/layer1/sim"
	"github.com/oslab/kernel2/internal/uapi"
)

func newTestService() (*Service, layer1.Kernel) {
	k := sim.New()
	svc := New(k)
	RegisterDefaultSyscalls(svc)
	return svc, k
}

func TestSpawnWaitRoundTrip(t *testing.T) {
	svc, k := newTestService()
	root := k.Root()

	upid, err := svc.Spawn(root, "child", func(self layer1.Proc, arg any) int {
		return 7
	}, nil, 1)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, upid, 0)

	gotPid, status, err := svc.Wait(root)
	require.NoError(t, err)
	assert.Equal(t, upid, gotPid)
	assert.Equal(t, 7, status)

	_, _, err = svc.Wait(root)
	assert.ErrorIs(t, err, ErrNoChildren)
}

func TestSpawnTableExhaustion(t *testing.T) {
	svc, k := newTestService()
	root := k.Root()
	block := make(chan struct{})

	for i := 0; i < constants.MaxProc; i++ {
		_, err := svc.Spawn(root, "filler", func(self layer1.Proc, arg any) int {
			<-block
			return 0
		}, nil, 1)
		require.NoError(t, err)
	}

	_, err := svc.Spawn(root, "overflow", func(self layer1.Proc, arg any) int { return 0 }, nil, 1)
	assert.ErrorIs(t, err, ErrTooManyProcesses)
	close(block)
}

// TestOrphanCollapse mirrors the scenario spec.md §8 names: a parent
// spawns two children (priority 2) and returns before they run; both
// children must still run to completion as orphans, and a second Wait
// must report NoChildren.
func TestOrphanCollapse(t *testing.T) {
	svc, k := newTestService()
	root := k.Root()

	var mu sync.Mutex
	counter := 5
	grandchildrenDone := make(chan struct{}, 2)

	orphanBody := func(self layer1.Proc, arg any) int {
		mu.Lock()
		counter *= 3
		mu.Unlock()
		grandchildrenDone <- struct{}{}
		return 0
	}

	parentPid, err := svc.Spawn(root, "parent", func(self layer1.Proc, arg any) int {
		_, _ = svc.Spawn(self, "orphan1", orphanBody, nil, 2)
		_, _ = svc.Spawn(self, "orphan2", orphanBody, nil, 2)
		return 42
	}, nil, 3)
	require.NoError(t, err)

	gotPid, status, err := svc.Wait(root)
	require.NoError(t, err)
	assert.Equal(t, parentPid, gotPid)
	assert.Equal(t, 42, status)

	select {
	case <-grandchildrenDone:
	case <-time.After(time.Second):
		t.Fatal("orphan1 never ran")
	}
	select {
	case <-grandchildrenDone:
	case <-time.After(time.Second):
		t.Fatal("orphan2 never ran")
	}

	mu.Lock()
	assert.Equal(t, 45, counter)
	mu.Unlock()

	_, _, err = svc.Wait(root)
	assert.ErrorIs(t, err, ErrNoChildren)
}

func TestIllegalInstructionTerminatesUserProcess(t *testing.T) {
	svc, k := newTestService()
	root := k.Root()

	selfCh := make(chan layer1.Proc, 1)
	upid, err := svc.Spawn(root, "faulting", func(self layer1.Proc, arg any) int {
		selfCh <- self
		<-make(chan struct{})
		return 0
	}, nil, 1)
	require.NoError(t, err)

	self := <-selfCh
	// The user fault path ends in Quit, which never returns to its
	// goroutine, so it runs on a goroutine of its own.
	go svc.IllegalInstruction(self)

	gotPid, status, err := svc.Wait(root)
	require.NoError(t, err)
	assert.Equal(t, upid, gotPid)
	assert.Equal(t, UserFaultStatus, status)
}

func TestIllegalInstructionHaltsKernelProcess(t *testing.T) {
	svc, k := newTestService()
	root := k.Root()

	faulted := make(chan int, 1)
	child, err := root.Fork("kernel-helper", constants.KernelTag, constants.DriverPriority, func(self layer1.Proc, arg any) {
		done := make(chan struct{})
		go func() {
			svc.IllegalInstruction(self)
			close(done)
		}()
		<-done
		faulted <- 1
	}, nil)
	require.NoError(t, err)
	_ = child

	select {
	case <-faulted:
		t.Fatal("kernel fault path should not resume the faulting goroutine")
	case <-time.After(50 * time.Millisecond):
	}
	assert.Equal(t, uint64(1), svc.Metrics.IllegalTraps.Load())
}

func TestGetProcInfoReportsParentUserPid(t *testing.T) {
	svc, k := newTestService()
	root := k.Root()

	reported := make(chan int, 1)
	block := make(chan struct{})
	parentPid, err := svc.Spawn(root, "parent", func(self layer1.Proc, arg any) int {
		upid, spawnErr := svc.Spawn(self, "child", func(self layer1.Proc, arg any) int {
			<-block
			return 0
		}, nil, 1)
		require.NoError(t, spawnErr)
		reported <- upid
		<-block
		return 0
	}, nil, 2)
	require.NoError(t, err)

	childUpid := <-reported

	var info uapi.ProcInfo
	require.NoError(t, svc.GetProcInfo(root, childUpid, &info))
	assert.Equal(t, parentPid, info.ParentID)
	assert.Equal(t, "child", info.Name)
	close(block)
}

// TestHandleTrapPacksResultIntoArg4 exercises HandleTrap end to end for
// Spawn, Wait, GetPid, and GetTimeOfDay, asserting the trap frame comes
// back packed exactly per spec.md §6's table: rc (when present) lands
// in Arg4, never Arg5. The traps are issued as a user-tagged process,
// since HandleTrap routes kernel-tagged callers to the fault path.
func TestHandleTrapPacksResultIntoArg4(t *testing.T) {
	svc, k := newTestService()
	caller, err := k.Root().Fork("trapper", constants.UserTag, 1, func(self layer1.Proc, arg any) {
		<-make(chan struct{})
	}, nil)
	require.NoError(t, err)

	spawnHandle := RegisterSpawnRequest("child", func(self layer1.Proc, arg any) int { return 9 }, nil, 1)
	spawnFrame := &uapi.TrapFrame{Number: uapi.SyscallSpawn, Arg1: spawnHandle}
	svc.HandleTrap(caller, spawnFrame)
	require.Equal(t, uint64(uapi.Success), spawnFrame.Arg4)
	childPid := spawnFrame.Arg1
	assert.Equal(t, uint64(0), spawnFrame.Arg5, "Arg5 must be untouched by Spawn's result packing")

	waitFrame := &uapi.TrapFrame{Number: uapi.SyscallWait}
	svc.HandleTrap(caller, waitFrame)
	assert.Equal(t, uint64(uapi.Success), waitFrame.Arg4)
	assert.Equal(t, childPid, waitFrame.Arg1)
	assert.Equal(t, uint64(9), waitFrame.Arg2)

	noChildFrame := &uapi.TrapFrame{Number: uapi.SyscallWait}
	svc.HandleTrap(caller, noChildFrame)
	assert.Equal(t, uint64(uapi.ErrNoChildren), noChildFrame.Arg4)

	pidFrame := &uapi.TrapFrame{Number: uapi.SyscallGetPid}
	svc.HandleTrap(caller, pidFrame)
	assert.Equal(t, uint64(svc.GetPid(caller)), pidFrame.Arg1)
	assert.Equal(t, uint64(0), pidFrame.Arg4, "GetPid has no rc field in spec.md §6")

	todFrame := &uapi.TrapFrame{Number: uapi.SyscallGetTimeOfDay}
	svc.HandleTrap(caller, todFrame)
	assert.Greater(t, todFrame.Arg1, uint64(0))
	assert.Equal(t, uint64(0), todFrame.Arg4, "GetTimeOfDay has no rc field in spec.md §6")
}

func TestSetSyscallHandlerRejectsOutOfRange(t *testing.T) {
	svc, _ := newTestService()
	err := svc.SetSyscallHandler(uapi.SyscallNumber(999), func(s *Service, caller layer1.Proc, frame *uapi.TrapFrame) {})
	assert.ErrorIs(t, err, ErrInvalidSyscall)
}
