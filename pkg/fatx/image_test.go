package fatx_test

import (
	"encoding/binary"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/gofatx/gofatx/pkg/fatx"
)

// buildImage synthesizes a minimal little-endian FATX image on disk with an
// empty root directory, following the engine's layout derivation: a total
// size large enough that the engine computes entryWidth=2, a root
// directory offset, and at least a handful of free data clusters.
//
// Layout for size=0x20000 (131072):
//
//	fatStart      = 0x1000
//	rootDirOffset = 0x2000
//	entryCount    = 7
func buildImage(t *testing.T) string {
	t.Helper()

	const totalSize = 0x20000
	const rootDirOffset = 0x2000
	const clusterSize = 0x4000

	buf := make([]byte, totalSize)

	// Superblock: magic "FATX" (big-endian reading of these literal ASCII
	// bytes equals 0x46415458, which per detectByteOrder means the volume's
	// integers are little-endian).
	copy(buf[0:4], []byte("FATX"))
	binary.LittleEndian.PutUint32(buf[4:8], 0xCAFEBABE) // volume id
	binary.LittleEndian.PutUint32(buf[8:12], 32)         // sectors per cluster
	binary.LittleEndian.PutUint32(buf[12:16], 1)         // FAT copies

	// Root directory's single cluster: every slot starts as 0xFF
	// (end-of-directory).
	for i := rootDirOffset; i < rootDirOffset+clusterSize; i++ {
		buf[i] = 0xFF
	}

	dir := t.TempDir()
	path := filepath.Join(dir, "volume.img")
	require.NoError(t, os.WriteFile(path, buf, 0644))
	return path
}

// openTestVolume opens a freshly synthesized image read-write and registers
// a cleanup that closes it.
func openTestVolume(t *testing.T) *fatx.Volume {
	t.Helper()
	path := buildImage(t)
	vol, err := fatx.Open(path, fatx.Options{})
	require.NoError(t, err)
	t.Cleanup(func() { _ = vol.Close() })
	return vol
}

func readWhole(path string) ([]byte, error) {
	return os.ReadFile(path)
}

func writeWhole(path string, b []byte) error {
	return os.WriteFile(path, b, 0644)
}
