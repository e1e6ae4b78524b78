package fatx_test

import (
	"encoding/binary"
	"os"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/gofatx/gofatx/pkg/fatx"
)

// TestChain_CycleDetected corrupts the on-disk FAT so a file's first cluster
// points back at itself and confirms the engine reports Corrupt instead of
// silently looping or reading garbage data.
func TestChain_CycleDetected(t *testing.T) {
	path := buildImage(t)

	vol, err := fatx.Open(path, fatx.Options{})
	require.NoError(t, err)
	_, err = vol.Create("/cyclic", false)
	require.NoError(t, err)
	// Two clusters' worth of data forces a chain of length 2 (first=2,
	// second=3), so a corrupted "next" pointer is actually exercised on
	// read instead of satisfied entirely out of the first cluster.
	data := make([]byte, 0x4000+10)
	_, err = vol.Write("/cyclic", data, 0)
	require.NoError(t, err)
	require.NoError(t, vol.Close())

	// Directly corrupt the FAT entry of the file's first cluster so it
	// points back at itself, forming a cycle once chained through the
	// engine's normal traversal.
	b, err := os.ReadFile(path)
	require.NoError(t, err)

	const fatStart = 0x1000
	first := firstClusterOf(t)
	binary.LittleEndian.PutUint16(b[fatStart+int(first)*2:], uint16(first))
	require.NoError(t, os.WriteFile(path, b, 0644))

	vol, err = fatx.Open(path, fatx.Options{})
	require.NoError(t, err)
	defer vol.Close()

	buf := make([]byte, len(data))
	_, err = vol.Read("/cyclic", buf, 0)
	require.Error(t, err)
	kind, ok := fatx.KindOf(err)
	require.True(t, ok)
	require.Equal(t, fatx.KindCorrupt, kind)
}

// firstClusterOf returns the cluster index the first file created on a
// freshly built image always lands on: cluster 1 is permanently reserved
// for the root directory, so allocation starts at cluster 2.
func firstClusterOf(t *testing.T) uint32 {
	t.Helper()
	return 2
}
