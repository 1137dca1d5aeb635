package uapi

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTrapFrameRoundTrip(t *testing.T) {
	f := &TrapFrame{
		Number: SyscallSpawn,
		Arg1:   0xdeadbeef,
		Arg2:   42,
		Arg3:   4096,
		Arg4:   5,
		Arg5:   7,
	}

	data := MarshalTrapFrame(f)
	require.Len(t, data, trapFrameWireSize)

	var got TrapFrame
	require.NoError(t, UnmarshalTrapFrame(data, &got))
	assert.Equal(t, *f, got)
}

func TestUnmarshalTrapFrameShortBuffer(t *testing.T) {
	var got TrapFrame
	err := UnmarshalTrapFrame(make([]byte, 4), &got)
	assert.ErrorIs(t, err, ErrInsufficientData)
}

func TestSyscallNumberValid(t *testing.T) {
	assert.True(t, SyscallSpawn.Valid())
	assert.True(t, SyscallDiskSize.Valid())
	assert.False(t, SyscallNumber(99).Valid())
	assert.False(t, SyscallNumber(-1).Valid())
}
