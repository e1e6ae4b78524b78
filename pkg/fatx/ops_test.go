package fatx_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/gofatx/gofatx/pkg/fatx"
)

func TestCreate_WriteReadRoundTrip(t *testing.T) {
	vol := openTestVolume(t)

	_, err := vol.Create("/hello.txt", false)
	require.NoError(t, err)

	data := []byte("hello, fatx")
	n, err := vol.Write("/hello.txt", data, 0)
	require.NoError(t, err)
	require.Equal(t, len(data), n)

	buf := make([]byte, len(data))
	n, err = vol.Read("/hello.txt", buf, 0)
	require.NoError(t, err)
	require.Equal(t, len(data), n)
	require.Equal(t, data, buf)

	info, err := vol.Stat("/hello.txt")
	require.NoError(t, err)
	require.Equal(t, uint64(len(data)), info.Size)
}

func TestWrite_CrossClusterBoundary(t *testing.T) {
	vol := openTestVolume(t)

	_, err := vol.Create("/big.bin", false)
	require.NoError(t, err)

	// Larger than one cluster (0x4000) so the write spans a FAT chain
	// extension and the read walks across clusters.
	data := make([]byte, 0x4000+100)
	for i := range data {
		data[i] = byte(i)
	}

	n, err := vol.Write("/big.bin", data, 0)
	require.NoError(t, err)
	require.Equal(t, len(data), n)

	buf := make([]byte, len(data))
	n, err = vol.Read("/big.bin", buf, 0)
	require.NoError(t, err)
	require.Equal(t, len(data), n)
	require.Equal(t, data, buf)
}

func TestRead_ClipsAtEOF(t *testing.T) {
	vol := openTestVolume(t)

	_, err := vol.Create("/f", false)
	require.NoError(t, err)
	_, err = vol.Write("/f", []byte("12345"), 0)
	require.NoError(t, err)

	buf := make([]byte, 100)
	n, err := vol.Read("/f", buf, 2)
	require.NoError(t, err)
	require.Equal(t, 3, n)
	require.Equal(t, []byte("345"), buf[:n])

	n, err = vol.Read("/f", buf, 10)
	require.NoError(t, err)
	require.Equal(t, 0, n)
}

func TestCreate_DuplicateFails(t *testing.T) {
	vol := openTestVolume(t)

	_, err := vol.Create("/dup", false)
	require.NoError(t, err)

	_, err = vol.Create("/dup", false)
	require.Error(t, err)
	kind, ok := fatx.KindOf(err)
	require.True(t, ok)
	require.Equal(t, fatx.KindExists, kind)
}

func TestMkdir_AndNestedFile(t *testing.T) {
	vol := openTestVolume(t)

	_, err := vol.Mkdir("/dir")
	require.NoError(t, err)

	_, err = vol.Create("/dir/child.txt", false)
	require.NoError(t, err)

	var names []string
	err = vol.List("/dir", func(info fatx.FileInfo) {
		names = append(names, info.Name)
	})
	require.NoError(t, err)
	require.Equal(t, []string{"child.txt"}, names)
}

func TestResolve_NonDirectoryComponentFails(t *testing.T) {
	vol := openTestVolume(t)

	_, err := vol.Create("/notadir", false)
	require.NoError(t, err)

	_, err = vol.Create("/notadir/child", false)
	require.Error(t, err)
	kind, ok := fatx.KindOf(err)
	require.True(t, ok)
	require.Equal(t, fatx.KindNotDirectory, kind)
}

func TestUnlink_RemovesEntry(t *testing.T) {
	vol := openTestVolume(t)

	_, err := vol.Create("/gone", false)
	require.NoError(t, err)
	require.NoError(t, vol.Unlink("/gone"))

	_, err = vol.Stat("/gone")
	require.Error(t, err)
	kind, ok := fatx.KindOf(err)
	require.True(t, ok)
	require.Equal(t, fatx.KindNotFound, kind)
}

func TestUnlink_ReusesDeletedSlot(t *testing.T) {
	vol := openTestVolume(t)

	_, err := vol.Create("/a", false)
	require.NoError(t, err)
	require.NoError(t, vol.Unlink("/a"))

	_, err = vol.Create("/b", false)
	require.NoError(t, err)

	var names []string
	err = vol.List("/", func(info fatx.FileInfo) { names = append(names, info.Name) })
	require.NoError(t, err)
	require.Equal(t, []string{"b"}, names)
}

func TestRmdir_FailsWhenNotEmpty(t *testing.T) {
	vol := openTestVolume(t)

	_, err := vol.Mkdir("/d")
	require.NoError(t, err)
	_, err = vol.Create("/d/x", false)
	require.NoError(t, err)

	err = vol.Rmdir("/d")
	require.Error(t, err)
	kind, ok := fatx.KindOf(err)
	require.True(t, ok)
	require.Equal(t, fatx.KindNotEmpty, kind)
}

func TestRmdir_Empty(t *testing.T) {
	vol := openTestVolume(t)

	_, err := vol.Mkdir("/d")
	require.NoError(t, err)
	require.NoError(t, vol.Rmdir("/d"))

	_, err = vol.Stat("/d")
	require.Error(t, err)
}

func TestTruncate_GrowAndShrink(t *testing.T) {
	vol := openTestVolume(t)

	_, err := vol.Create("/t", false)
	require.NoError(t, err)
	_, err = vol.Write("/t", []byte("abc"), 0)
	require.NoError(t, err)

	require.NoError(t, vol.Truncate("/t", 0x5000)) // spans 2 clusters
	info, err := vol.Stat("/t")
	require.NoError(t, err)
	require.Equal(t, uint64(0x5000), info.Size)

	buf := make([]byte, 3)
	n, err := vol.Read("/t", buf, 0)
	require.NoError(t, err)
	require.Equal(t, 3, n)
	require.Equal(t, []byte("abc"), buf)

	require.NoError(t, vol.Truncate("/t", 1))
	info, err = vol.Stat("/t")
	require.NoError(t, err)
	require.Equal(t, uint64(1), info.Size)
}

func TestRename_SameDirectory(t *testing.T) {
	vol := openTestVolume(t)

	_, err := vol.Create("/old", false)
	require.NoError(t, err)
	require.NoError(t, vol.Rename("/old", "/new"))

	_, err = vol.Stat("/old")
	require.Error(t, err)

	info, err := vol.Stat("/new")
	require.NoError(t, err)
	require.Equal(t, "new", info.Name)
}

func TestRename_CrossDirectory(t *testing.T) {
	vol := openTestVolume(t)

	_, err := vol.Mkdir("/src")
	require.NoError(t, err)
	_, err = vol.Mkdir("/dst")
	require.NoError(t, err)
	_, err = vol.Create("/src/file", false)
	require.NoError(t, err)
	_, err = vol.Write("/src/file", []byte("payload"), 0)
	require.NoError(t, err)

	require.NoError(t, vol.Rename("/src/file", "/dst/file"))

	_, err = vol.Stat("/src/file")
	require.Error(t, err)

	buf := make([]byte, len("payload"))
	n, err := vol.Read("/dst/file", buf, 0)
	require.NoError(t, err)
	require.Equal(t, "payload", string(buf[:n]))
}

func TestReadOnlyVolume_RejectsMutation(t *testing.T) {
	path := buildImage(t)
	vol, err := fatx.Open(path, fatx.Options{ReadOnly: true})
	require.NoError(t, err)
	t.Cleanup(func() { _ = vol.Close() })

	_, err = vol.Create("/x", false)
	require.Error(t, err)
	kind, ok := fatx.KindOf(err)
	require.True(t, ok)
	require.Equal(t, fatx.KindReadOnly, kind)
}

func TestNameTooLong(t *testing.T) {
	vol := openTestVolume(t)

	longName := make([]byte, 43)
	for i := range longName {
		longName[i] = 'a'
	}

	_, err := vol.Create("/"+string(longName), false)
	require.Error(t, err)
	kind, ok := fatx.KindOf(err)
	require.True(t, ok)
	require.Equal(t, fatx.KindNameTooLong, kind)
}
