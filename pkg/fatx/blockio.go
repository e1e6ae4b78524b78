package fatx

import (
	"github.com/gofatx/gofatx/internal/fsdev"
)

// BlockDevice is the positional I/O surface the volume engine needs from
// its backing store. fsdev.File offers the same reads, writes and Sync but
// reports its size through Size; a BlockDevice additionally enforces
// read-only mode and reports its fixed size (Len) without another
// Stat/ioctl round trip.
type BlockDevice interface {
	ReadAt(p []byte, off int64) (int, error)
	WriteAt(p []byte, off int64) (int, error)
	Len() int64
	Sync() error
}

// fileBlockDevice adapts an fsdev.File, captured size, and the volume's
// read-only flag into a BlockDevice.
type fileBlockDevice struct {
	f        fsdev.File
	size     int64
	readOnly bool
}

func newFileBlockDevice(f fsdev.File, readOnly bool) (*fileBlockDevice, error) {
	size, err := f.Size()
	if err != nil {
		return nil, newErr(KindIO, "open", "", err)
	}
	return &fileBlockDevice{f: f, size: size, readOnly: readOnly}, nil
}

// ReadAt passes straight through to the backing file; a short read at EOF
// surfaces as (n, io.EOF) exactly as fsdev/os.File report it.
func (d *fileBlockDevice) ReadAt(p []byte, off int64) (int, error) {
	return d.f.ReadAt(p, off)
}

func (d *fileBlockDevice) WriteAt(p []byte, off int64) (int, error) {
	if d.readOnly {
		return 0, newErr(KindReadOnly, "write_at", "", nil)
	}
	return d.f.WriteAt(p, off)
}

func (d *fileBlockDevice) Len() int64 { return d.size }

func (d *fileBlockDevice) Sync() error {
	if d.readOnly {
		return nil
	}
	return d.f.Sync()
}
