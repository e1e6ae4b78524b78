//go:build windows
// +build windows

package fsdev

import (
	"fmt"
	"strings"
	"syscall"
	"unicode"
	"unsafe"

	"golang.org/x/sys/windows"
)

// winFile wraps a raw Windows handle, used for both regular image files and
// \\.\PhysicalDriveN / \\.\C: raw volumes. Reads and writes go through
// ReadFile/WriteFile with an OVERLAPPED offset rather than a Go *os.File,
// since raw volumes require sector-aligned I/O that os.File doesn't do.
type winFile struct {
	handle windows.Handle
}

// Open opens path for use as a FATX backing store, normalizing bare drive
// letters (e.g. "E:") into the \\.\E: device-namespace form Windows
// requires for raw volume access.
func Open(path string, readOnly bool) (File, error) {
	access := uint32(windows.GENERIC_READ)
	if !readOnly {
		access |= windows.GENERIC_WRITE
	}

	h, err := windows.CreateFile(
		windows.StringToUTF16Ptr(normalizeVolumePath(path)),
		access,
		windows.FILE_SHARE_READ|windows.FILE_SHARE_WRITE,
		nil,
		windows.OPEN_EXISTING,
		0,
		0,
	)
	if err != nil {
		return nil, fmt.Errorf("fsdev: open %q: %w", path, err)
	}
	return &winFile{handle: h}, nil
}

// normalizeVolumePath rewrites a bare drive letter ("C:", "c:\") into the
// \\.\C: raw-device form. A path already in the \\.\ form is returned
// upper-cased; any other path is returned with surrounding spaces trimmed
// and forward slashes turned into backslashes.
func normalizeVolumePath(path string) string {
	path = strings.TrimSpace(path)
	path = strings.ReplaceAll(path, "/", `\`)
	upper := strings.ToUpper(path)

	if strings.HasPrefix(upper, `\\.\`) {
		return upper
	}
	bare := len(upper) == 2 || (len(upper) == 3 && upper[2] == '\\')
	if bare && upper[1] == ':' && unicode.IsLetter(rune(upper[0])) {
		return `\\.\` + string(upper[0]) + `:`
	}
	return path
}

func (w *winFile) ReadAt(p []byte, off int64) (int, error) {
	const sectorSize = 512

	alignedOffset := off / sectorSize * sectorSize
	alignmentDiff := int(off - alignedOffset)
	alignedSize := ((len(p) + alignmentDiff + sectorSize - 1) / sectorSize) * sectorSize

	buf := make([]byte, alignedSize)

	var n uint32
	ov := &windows.Overlapped{Offset: uint32(alignedOffset), OffsetHigh: uint32(alignedOffset >> 32)}
	err := windows.ReadFile(w.handle, buf, &n, ov)
	if err != nil {
		if err == syscall.ERROR_IO_PENDING {
			err = windows.GetOverlappedResult(w.handle, ov, &n, true)
		}
		if err != nil {
			return 0, fmt.Errorf("fsdev: aligned read failed: %w", err)
		}
	}
	return copy(p, buf[alignmentDiff:]), nil
}

func (w *winFile) WriteAt(p []byte, off int64) (int, error) {
	const sectorSize = 512

	alignedOffset := off / sectorSize * sectorSize
	alignmentDiff := int(off - alignedOffset)
	alignedSize := ((len(p) + alignmentDiff + sectorSize - 1) / sectorSize) * sectorSize

	buf := make([]byte, alignedSize)
	if _, err := w.ReadAt(buf, alignedOffset); err != nil {
		return 0, err
	}
	copy(buf[alignmentDiff:], p)

	var n uint32
	ov := &windows.Overlapped{Offset: uint32(alignedOffset), OffsetHigh: uint32(alignedOffset >> 32)}
	if err := windows.WriteFile(w.handle, buf, &n, ov); err != nil {
		if err == syscall.ERROR_IO_PENDING {
			if err = windows.GetOverlappedResult(w.handle, ov, &n, true); err != nil {
				return 0, fmt.Errorf("fsdev: aligned write failed: %w", err)
			}
		} else {
			return 0, fmt.Errorf("fsdev: aligned write failed: %w", err)
		}
	}
	return len(p), nil
}

func (w *winFile) Close() error { return windows.CloseHandle(w.handle) }

func (w *winFile) Sync() error { return windows.FlushFileBuffers(w.handle) }

// Fd is unsupported: raw volume handles can't be mmap'd through the Go
// runtime's file-descriptor path, so Volume always falls back to an owned
// in-memory FAT buffer on Windows.
func (w *winFile) Fd() (uintptr, bool) { return 0, false }

type diskGeometry struct {
	Cylinders         int64
	MediaType         uint32
	TracksPerCylinder uint32
	SectorsPerTrack   uint32
	BytesPerSector    uint32
}

const ioctlDiskGetDriveGeometry = 0x70000

func (w *winFile) Size() (int64, error) {
	var fileSize int64
	if err := windows.GetFileSizeEx(w.handle, &fileSize); err == nil && fileSize > 0 {
		return fileSize, nil
	}

	var geom diskGeometry
	var returned uint32
	err := windows.DeviceIoControl(
		w.handle, ioctlDiskGetDriveGeometry, nil, 0,
		(*byte)(unsafe.Pointer(&geom)), uint32(unsafe.Sizeof(geom)), &returned, nil,
	)
	if err != nil {
		return 0, fmt.Errorf("fsdev: DeviceIoControl(IOCTL_DISK_GET_DRIVE_GEOMETRY) failed: %w", err)
	}
	return geom.Cylinders * int64(geom.TracksPerCylinder) * int64(geom.SectorsPerTrack) * int64(geom.BytesPerSector), nil
}
