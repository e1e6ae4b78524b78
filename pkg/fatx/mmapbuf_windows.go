//go:build windows
// +build windows

package fatx

// Windows raw-volume handles can't be exposed as an *os.File descriptor
// number suitable for mmap, so the FAT region always uses the owned-buffer
// backing there; see fsdev.winFile.Fd.
func tryMmapFATBacking(fd uintptr, offset int64, size int) (fatBacking, bool) {
	return nil, false
}
