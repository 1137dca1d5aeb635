package disk

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oslab/kernel2/internal/constants"
	"github.com/oslab/kernel2/internal/device"
	"github.com/oslab/kernel2/internal/layer1"
	"github.com/oslab/kernel2/internal/layer1/sim"
	"github.com/oslab/kernel2/internal/uapi"
	"github.com/oslab/kernel2/internal/ups"
)

func TestMultiTrackReadWriteRoundTrip(t *testing.T) {
	k := sim.New()
	upsSvc := ups.New(k)
	ups.RegisterDefaultSyscalls(upsSvc)
	svc := New(k, upsSvc)

	hw := device.NewDiskHardware(k, 0, 10, constants.DefaultTrackSize, constants.DefaultSectorSize, time.Millisecond)
	require.NoError(t, svc.Init([]*device.DiskHardware{hw}, constants.DiskQueueCapacity))
	defer svc.Shutdown()

	root := k.Root()
	sectorSize := constants.DefaultSectorSize
	n := 20
	written := make([]byte, n*sectorSize)
	for i := 0; i < n; i++ {
		written[i*sectorSize] = byte(i)
	}

	require.NoError(t, svc.Write(root, 0, 0, 0, n, written))

	readBuf := make([]byte, n*sectorSize)
	require.NoError(t, svc.Read(root, 0, 0, 0, n, readBuf))

	assert.Equal(t, written, readBuf)
}

func TestWriteCrossingLastTrackFails(t *testing.T) {
	k := sim.New()
	upsSvc := ups.New(k)
	ups.RegisterDefaultSyscalls(upsSvc)
	svc := New(k, upsSvc)

	hw := device.NewDiskHardware(k, 0, 2, constants.DefaultTrackSize, constants.DefaultSectorSize, time.Millisecond)
	require.NoError(t, svc.Init([]*device.DiskHardware{hw}, constants.DiskQueueCapacity))
	defer svc.Shutdown()

	root := k.Root()
	sectorSize := constants.DefaultSectorSize
	totalSectors := 2 * constants.DefaultTrackSize
	buf := make([]byte, (totalSectors+1)*sectorSize)

	err := svc.Write(root, 0, 0, 0, totalSectors+1, buf)
	assert.ErrorIs(t, err, ErrInvalidSectors)
}

func TestWriteEndingExactlyOnLastSectorSucceeds(t *testing.T) {
	k := sim.New()
	upsSvc := ups.New(k)
	ups.RegisterDefaultSyscalls(upsSvc)
	svc := New(k, upsSvc)

	hw := device.NewDiskHardware(k, 0, 2, constants.DefaultTrackSize, constants.DefaultSectorSize, time.Millisecond)
	require.NoError(t, svc.Init([]*device.DiskHardware{hw}, constants.DiskQueueCapacity))
	defer svc.Shutdown()

	root := k.Root()
	sectorSize := constants.DefaultSectorSize
	totalSectors := 2 * constants.DefaultTrackSize
	buf := make([]byte, totalSectors*sectorSize)

	err := svc.Write(root, 0, 0, 0, totalSectors, buf)
	assert.NoError(t, err)
}

func TestInvalidUnitRejected(t *testing.T) {
	k := sim.New()
	upsSvc := ups.New(k)
	ups.RegisterDefaultSyscalls(upsSvc)
	svc := New(k, upsSvc)

	hw := device.NewDiskHardware(k, 0, 4, constants.DefaultTrackSize, constants.DefaultSectorSize, time.Millisecond)
	require.NoError(t, svc.Init([]*device.DiskHardware{hw}, constants.DiskQueueCapacity))
	defer svc.Shutdown()

	root := k.Root()
	err := svc.Write(root, 5, 0, 0, 1, make([]byte, constants.DefaultSectorSize))
	assert.ErrorIs(t, err, ErrInvalidUnit)
}

// TestDiskSyscallsPackFramesPerSpec exercises DiskWrite, DiskRead, and
// DiskSize through HandleTrap, asserting the trap frame matches
// spec.md §6's table exactly: read/write take
// {arg1=buffer, arg2=sectors, arg3=track, arg4=first, arg5=unit} and
// return {arg4=rc}; Size takes {arg1=unit} and returns
// {arg1=sectorSize, arg2=sectorsPerTrack, arg3=tracksPerDisk, arg4=rc}.
// The traps are issued as a user-tagged process, since HandleTrap routes
// kernel-tagged callers to the fault path.
func TestDiskSyscallsPackFramesPerSpec(t *testing.T) {
	k := sim.New()
	upsSvc := ups.New(k)
	ups.RegisterDefaultSyscalls(upsSvc)
	svc := New(k, upsSvc)

	hw := device.NewDiskHardware(k, 0, 4, constants.DefaultTrackSize, constants.DefaultSectorSize, time.Millisecond)
	require.NoError(t, svc.Init([]*device.DiskHardware{hw}, constants.DiskQueueCapacity))
	defer svc.Shutdown()

	caller, err := k.Root().Fork("trapper", constants.UserTag, 1, func(self layer1.Proc, arg any) {
		<-make(chan struct{})
	}, nil)
	require.NoError(t, err)
	written := make([]byte, constants.DefaultSectorSize)
	copy(written, "frame-packing-check")
	writeHandle := RegisterBuffer(written)

	writeFrame := &uapi.TrapFrame{
		Number: uapi.SyscallDiskWrite,
		Arg1:   writeHandle,
		Arg2:   1,
		Arg3:   0,
		Arg4:   0,
		Arg5:   0,
	}
	upsSvc.HandleTrap(caller, writeFrame)
	assert.Equal(t, uint64(uapi.Success), writeFrame.Arg4)

	readBuf := make([]byte, constants.DefaultSectorSize)
	readHandle := RegisterBuffer(readBuf)
	readFrame := &uapi.TrapFrame{
		Number: uapi.SyscallDiskRead,
		Arg1:   readHandle,
		Arg2:   1,
		Arg3:   0,
		Arg4:   0,
		Arg5:   0,
	}
	upsSvc.HandleTrap(caller, readFrame)
	assert.Equal(t, uint64(uapi.Success), readFrame.Arg4)
	assert.Equal(t, written, readBuf)

	sizeFrame := &uapi.TrapFrame{Number: uapi.SyscallDiskSize, Arg1: 0}
	upsSvc.HandleTrap(caller, sizeFrame)
	assert.Equal(t, uint64(constants.DefaultSectorSize), sizeFrame.Arg1)
	assert.Equal(t, uint64(constants.DefaultTrackSize), sizeFrame.Arg2)
	assert.Equal(t, uint64(4), sizeFrame.Arg3)
	assert.Equal(t, uint64(uapi.Success), sizeFrame.Arg4)

	badUnitFrame := &uapi.TrapFrame{Number: uapi.SyscallDiskSize, Arg1: 9}
	upsSvc.HandleTrap(caller, badUnitFrame)
	assert.Equal(t, uint64(uapi.ErrInvalidUnit), badUnitFrame.Arg4)
}

func TestSizeReflectsProbedGeometry(t *testing.T) {
	k := sim.New()
	upsSvc := ups.New(k)
	ups.RegisterDefaultSyscalls(upsSvc)
	svc := New(k, upsSvc)

	hw := device.NewDiskHardware(k, 0, 10, constants.DefaultTrackSize, constants.DefaultSectorSize, time.Millisecond)
	require.NoError(t, svc.Init([]*device.DiskHardware{hw}, constants.DiskQueueCapacity))
	defer svc.Shutdown()

	geom, err := svc.Geometry(0)
	require.NoError(t, err)
	assert.Equal(t, constants.DefaultSectorSize, geom.SectorSize)
	assert.Equal(t, constants.DefaultTrackSize, geom.SectorsPerTrack)
	assert.Equal(t, 10, geom.NumTracks)
}

func TestConcurrentRequestsSerializePerUnit(t *testing.T) {
	k := sim.New()
	upsSvc := ups.New(k)
	ups.RegisterDefaultSyscalls(upsSvc)
	svc := New(k, upsSvc)

	hw := device.NewDiskHardware(k, 0, 20, constants.DefaultTrackSize, constants.DefaultSectorSize, time.Millisecond)
	require.NoError(t, svc.Init([]*device.DiskHardware{hw}, constants.DiskQueueCapacity))
	defer svc.Shutdown()

	root := k.Root()
	sectorSize := constants.DefaultSectorSize
	const n = 8
	done := make(chan error, n)
	for i := 0; i < n; i++ {
		i := i
		go func() {
			buf := make([]byte, sectorSize)
			buf[0] = byte(i)
			done <- svc.Write(root, 0, i%10, 0, 1, buf)
		}()
	}
	for i := 0; i < n; i++ {
		select {
		case err := <-done:
			assert.NoError(t, err)
		case <-time.After(2 * time.Second):
			t.Fatal("request never completed")
		}
	}
}
