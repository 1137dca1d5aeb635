package sim

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oslab/kernel2/internal/constants"
	"github.com/oslab/kernel2/internal/layer1"
	"github.com/oslab/kernel2/internal/uapi"
)

func TestForkJoinReturnsExitStatus(t *testing.T) {
	k := New()
	root := k.Root()

	child, err := root.Fork("child", constants.UserTag, 1, func(self layer1.Proc, arg any) {
		self.Quit(42)
	}, nil)
	require.NoError(t, err)
	require.NotNil(t, child)

	pid, status, err := root.Join(constants.UserTag)
	require.NoError(t, err)
	assert.Equal(t, child.Pid(), pid)
	assert.Equal(t, 42, status)
}

func TestJoinNoChildrenReturnsImmediately(t *testing.T) {
	k := New()
	root := k.Root()

	_, _, err := root.Join(constants.UserTag)
	assert.ErrorIs(t, err, ErrNoChildren)
}

func TestJoinBlocksUntilChildExits(t *testing.T) {
	k := New()
	root := k.Root()

	release := make(chan struct{})
	_, err := root.Fork("slow", constants.UserTag, 1, func(self layer1.Proc, arg any) {
		<-release
		self.Quit(7)
	}, nil)
	require.NoError(t, err)

	done := make(chan int, 1)
	go func() {
		_, status, err := root.Join(constants.UserTag)
		require.NoError(t, err)
		done <- status
	}()

	select {
	case <-done:
		t.Fatal("join returned before child quit")
	case <-time.After(20 * time.Millisecond):
	}

	close(release)
	select {
	case status := <-done:
		assert.Equal(t, 7, status)
	case <-time.After(time.Second):
		t.Fatal("join never returned after child quit")
	}
}

func TestJoinFiltersByTag(t *testing.T) {
	k := New()
	root := k.Root()

	_, err := root.Fork("kid", constants.KernelTag, constants.DriverPriority, func(self layer1.Proc, arg any) {
		self.Quit(1)
	}, nil)
	require.NoError(t, err)

	time.Sleep(10 * time.Millisecond)
	_, _, err = root.Join(constants.UserTag)
	assert.ErrorIs(t, err, ErrNoChildren)

	pid, status, err := root.Join(constants.KernelTag)
	require.NoError(t, err)
	assert.Equal(t, 1, status)
	_ = pid
}

func TestSemaphoreBlocksAndSignals(t *testing.T) {
	k := New()
	id := k.SemCreate(0)

	var order []int
	var mu sync.Mutex
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		k.semP(id)
		mu.Lock()
		order = append(order, 1)
		mu.Unlock()
	}()

	time.Sleep(10 * time.Millisecond)
	mu.Lock()
	order = append(order, 0)
	mu.Unlock()
	k.semV(id)
	wg.Wait()

	assert.Equal(t, []int{0, 1}, order)
}

func TestWaitDeviceWakesOnInterrupt(t *testing.T) {
	k := New()
	result := make(chan layer1.WaitResult, 1)
	go func() {
		result <- k.waitDevice(layer1.DeviceClock)
	}()
	time.Sleep(10 * time.Millisecond)
	k.WakeupDevice(layer1.DeviceClock, false)
	assert.Equal(t, layer1.WaitOK, <-result)
}

func TestWaitDeviceAbort(t *testing.T) {
	k := New()
	result := make(chan layer1.WaitResult, 1)
	go func() {
		result <- k.waitDevice(layer1.DiskDevice(0))
	}()
	time.Sleep(10 * time.Millisecond)
	k.WakeupDevice(layer1.DiskDevice(0), true)
	assert.Equal(t, layer1.WaitAborted, <-result)
}

func TestModeTransitions(t *testing.T) {
	k := New()
	root := k.Root()
	doneCh := make(chan constants.Tag, 3)

	_, err := root.Fork("user-proc", constants.UserTag, 1, func(self layer1.Proc, arg any) {
		doneCh <- self.Mode()
		self.DropToUser()
		doneCh <- self.Mode()
		self.EnterKernelMode()
		doneCh <- self.Mode()
		self.Quit(0)
	}, nil)
	require.NoError(t, err)

	assert.Equal(t, constants.KernelTag, <-doneCh)
	assert.Equal(t, constants.UserTag, <-doneCh)
	assert.Equal(t, constants.KernelTag, <-doneCh)
}

func TestNowIsMonotonicallyIncreasing(t *testing.T) {
	k := New()
	a := k.Now()
	time.Sleep(time.Millisecond)
	b := k.Now()
	assert.Greater(t, b, a)
}

func TestGetProcInfo(t *testing.T) {
	k := New()
	root := k.Root()
	child, err := root.Fork("worker", constants.UserTag, 3, func(self layer1.Proc, arg any) {
		<-make(chan struct{})
	}, nil)
	require.NoError(t, err)

	var info uapi.ProcInfo
	require.NoError(t, k.GetProcInfo(child.Pid(), &info))
	assert.Equal(t, "worker", info.Name)
	assert.Equal(t, 3, info.Priority)
	assert.Equal(t, int(root.Pid()), info.ParentID)
}
