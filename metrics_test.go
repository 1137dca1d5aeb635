package kernel2

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oslab/kernel2/internal/layer1"
)

func TestSnapshotAggregatesAllThreeServices(t *testing.T) {
	k, err := NewTestKernel()
	require.NoError(t, err)
	defer k.Shutdown()

	root := k.Root()
	require.NoError(t, k.Sleep(root, 0))

	buf := make([]byte, 512)
	require.NoError(t, k.DiskWrite(root, 0, 0, 0, 1, buf))

	_, err = k.Spawn(root, "child", func(self layer1.Proc, arg any) int { return 0 }, nil, 1)
	require.NoError(t, err)
	_, _, err = k.Wait(root)
	require.NoError(t, err)

	snap := k.Metrics.Snapshot()
	assert.GreaterOrEqual(t, snap.SleepCalls, uint64(1))
	assert.GreaterOrEqual(t, snap.DiskWriteOps, uint64(1))
	assert.Greater(t, snap.UptimeNs, uint64(0))
}
