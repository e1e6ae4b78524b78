//go:build !windows
// +build !windows

package fatx

import (
	"syscall"

	"golang.org/x/sys/unix"
)

// mmapFATBacking memory-maps the FAT region read-write where the backing
// store supports it, so FAT mutations write straight into the mapping, and
// flush()es via unix.Msync instead of a positional WriteAt since the dirty
// pages already live in the backing file's page cache.
type mmapFATBacking struct {
	data []byte
}

// newMmapFATBacking maps size bytes of fd starting at offset, which must be
// page-aligned for the mapping to succeed; callers only ever pass the FAT
// start offset (partition start + 0x1000). When that offset is not a
// multiple of the host page size (an unaligned partition start, or pages
// larger than 4 KiB), Mmap fails and an error is returned.
func newMmapFATBacking(fd uintptr, offset int64, size int) (*mmapFATBacking, error) {
	data, err := unix.Mmap(int(fd), offset, size, syscall.PROT_READ|syscall.PROT_WRITE, syscall.MAP_SHARED)
	if err != nil {
		return nil, newErr(KindIO, "open", "", err)
	}
	return &mmapFATBacking{data: data}, nil
}

func (m *mmapFATBacking) bytes() []byte { return m.data }

func (m *mmapFATBacking) flush() error {
	if err := unix.Msync(m.data, unix.MS_SYNC); err != nil {
		return newErr(KindIO, "flush", "", err)
	}
	return nil
}

func (m *mmapFATBacking) close() error {
	if m.data == nil {
		return nil
	}
	err := unix.Munmap(m.data)
	m.data = nil
	if err != nil {
		return newErr(KindIO, "close", "", err)
	}
	return nil
}

// tryMmapFATBacking attempts to map the FAT region; ok is false only when
// mmap itself fails (e.g. unsupported backing, alignment), in which case
// Volume.Open falls back to ownedFATBacking.
func tryMmapFATBacking(fd uintptr, offset int64, size int) (fatBacking, bool) {
	b, err := newMmapFATBacking(fd, offset, size)
	if err != nil {
		return nil, false
	}
	return b, true
}
