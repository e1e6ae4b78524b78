package fatx_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/gofatx/gofatx/pkg/fatx"
)

func TestOpen_DerivesLayout(t *testing.T) {
	vol := openTestVolume(t)

	info := vol.Info()
	require.Equal(t, int64(0x1000), info.FATStart)
	require.Equal(t, int64(0x2000), info.RootDirOffset)
	require.Equal(t, 2, info.EntryWidth)
	require.Equal(t, uint32(7), info.EntryCount)
	require.False(t, info.BigEndian)
	require.Equal(t, uint32(0xCAFEBABE), info.VolumeID)
	// Cluster 1 is permanently the root directory and is reserved at
	// Open even though this synthetic image's FAT starts zeroed.
	require.Equal(t, uint32(6), info.FreeClusters)
	require.Equal(t, uint32(1), info.UsedClusters)
}

func TestOpen_RejectsBadMagic(t *testing.T) {
	path := buildImage(t)
	b, err := readWhole(path)
	require.NoError(t, err)
	b[0] = 'X' // corrupt the magic
	require.NoError(t, writeWhole(path, b))

	_, err = fatx.Open(path, fatx.Options{})
	require.Error(t, err)
	kind, ok := fatx.KindOf(err)
	require.True(t, ok)
	require.Equal(t, fatx.KindNotFATX, kind)
}

func TestStat_Root(t *testing.T) {
	vol := openTestVolume(t)

	info, err := vol.Stat("/")
	require.NoError(t, err)
	require.True(t, info.IsDir)
	require.Equal(t, uint64(0), info.Size)
}

func TestStat_TimestampGranularity(t *testing.T) {
	vol := openTestVolume(t)

	_, err := vol.Create("/a", false)
	require.NoError(t, err)

	info, err := vol.Stat("/a")
	require.NoError(t, err)
	// The on-disk format only has 2-second resolution; the decoded value
	// must land on an even second.
	require.Equal(t, 0, info.Created.Second()%2)
}
