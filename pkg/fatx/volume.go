package fatx

import (
	"encoding/binary"
	"sync"

	"github.com/gofatx/gofatx/internal/fsdev"
)

// legacyXbox360PartitionStart is the conventional byte offset of the first
// FATX partition on a raw Xbox 360 hard disk, used only when the caller
// opens a raw device and doesn't supply an explicit partition start.
const legacyXbox360PartitionStart = 0x130EB0000

// entryWidthThreshold is the data-region size above which FAT entries are 4
// bytes wide instead of 2. The original computes this against the
// partition-relative end-of-device size rather than the true
// post-root-directory data size - a chicken-and-egg quirk inherent to the
// layout, since root directory offset itself depends on entry width - so
// this implementation reproduces that exact order: width first, from the
// partition-relative device size, then root directory offset from width.
const entryWidthThreshold = 0x3FFF4000

// discardLogger is the interface Volume needs from a logger; satisfied by
// *logger.Logger and by logger.Discard.
type discardLogger interface {
	Debugf(format string, args ...interface{})
	Warnf(format string, args ...interface{})
}

// Options configures Volume.Open.
type Options struct {
	// PartitionStart overrides automatic partition-start selection. Zero
	// means "let Open choose": 0 for a regular file, legacyXbox360PartitionStart
	// for a raw device (see RawDevice).
	PartitionStart int64
	// RawDevice signals the backing path is a raw block device rather than
	// a regular image file, so PartitionStart should default to
	// legacyXbox360PartitionStart when zero instead of to 0.
	RawDevice bool
	// ReadOnly opens the volume without permitting any mutating operation.
	ReadOnly bool
	// StrictCorruption makes every corruption signal (bad chain cycle,
	// out-of-range cluster, malformed record) fail the calling operation
	// outright instead of attempting best-effort continuation.
	StrictCorruption bool
	// Logger receives diagnostic messages; a nil Logger is replaced with a
	// logger that discards everything.
	Logger discardLogger
}

// Volume is an open FATX filesystem: the derived layout constants plus the
// live FAT table. It's the root object every other pkg/fatx operation (the
// FAT walker, the directory engine, the path resolver) is built from.
type Volume struct {
	// mtx serializes every engine entry point; adapters
	// like internal/fuse call in from multiple goroutines, and the engine
	// itself assumes exclusive access to the backing device and FAT buffer
	// for the duration of a call.
	mtx sync.Mutex

	file fsdev.File
	dev  BlockDevice
	opts Options
	log  discardLogger

	partitionStart int64
	fatStart       int64
	rootDirOffset  int64
	dataEnd        int64
	entryWidth     int    // 2 or 4
	entryCount     uint32 // N
	order          binary.ByteOrder
	sb             superblock

	fat *fatTable
}

// nopLogger discards every message; used when Options.Logger is nil.
type nopLogger struct{}

func (nopLogger) Debugf(string, ...interface{}) {}
func (nopLogger) Warnf(string, ...interface{})  {}

// Open opens path as a FATX volume: it opens the backing store via fsdev,
// reads the superblock, derives the layout, and loads the FAT table using
// whichever backing (mmap or owned buffer) the platform and backing store
// support.
func Open(path string, opts Options) (*Volume, error) {
	f, err := fsdev.Open(path, opts.ReadOnly)
	if err != nil {
		return nil, newErr(KindIO, "open", path, err)
	}

	v, err := openVolume(f, opts)
	if err != nil {
		_ = f.Close()
		return nil, err
	}
	return v, nil
}

func openVolume(f fsdev.File, opts Options) (*Volume, error) {
	size, err := f.Size()
	if err != nil {
		return nil, newErr(KindIO, "open", "", err)
	}

	partitionStart := opts.PartitionStart
	if partitionStart == 0 && opts.RawDevice {
		partitionStart = legacyXbox360PartitionStart
	}

	log := opts.Logger
	if log == nil {
		log = nopLogger{}
	}

	dev, err := newFileBlockDevice(f, opts.ReadOnly)
	if err != nil {
		return nil, err
	}

	sb, err := readSuperblock(dev, partitionStart, binary.LittleEndian)
	if err != nil {
		return nil, err
	}
	order, ok := detectByteOrder(sb.Magic)
	if !ok {
		return nil, newErr(KindNotFATX, "open", "", nil)
	}
	// The superblock's own integer fields (volume ID, sectors/cluster, FAT
	// copies) are themselves stored in the volume's byte order; re-read them
	// now that detectByteOrder has determined it, rather than trust the
	// placeholder little-endian read above (only the magic's raw bytes
	// matter for that first read).
	sb, err = readSuperblock(dev, partitionStart, order)
	if err != nil {
		return nil, err
	}

	fatStart := partitionStart + 0x1000
	sizeRel := size - partitionStart
	if sizeRel < 0 {
		return nil, newErr(KindCorrupt, "open", "", nil)
	}

	entryWidth := 2
	if sizeRel >= entryWidthThreshold {
		entryWidth = 4
	}
	shift := uint(13)
	if entryWidth == 4 {
		shift = 12
	}
	rootDirOffset := int64(roundUp4K(uint64(sizeRel>>shift)+1)) + fatStart

	dataSize := size - rootDirOffset
	if dataSize < clusterSize {
		return nil, newErr(KindCorrupt, "open", "", nil)
	}
	entryCount := uint32(dataSize >> 14)

	fatRegionSize := int(roundUp4K(uint64(entryCount) * uint64(entryWidth)))
	if rootDirOffset-fatStart < int64(fatRegionSize) {
		// The rounded FAT region must fit before root directory start;
		// fall back to the region length actually implied by the offsets
		// rather than entryCount*width, matching how a slightly undersized
		// image (common with hand-truncated test fixtures) still opens.
		fatRegionSize = int(rootDirOffset - fatStart)
	}

	fat, err := openFATTable(f, dev, fatStart, fatRegionSize, entryWidth, entryCount, order, opts.ReadOnly)
	if err != nil {
		return nil, err
	}

	log.Debugf("fatx: opened volume: partitionStart=0x%x fatStart=0x%x rootDir=0x%x width=%d entries=%d",
		partitionStart, fatStart, rootDirOffset, entryWidth, entryCount)

	v := &Volume{
		file:           f,
		dev:            dev,
		opts:           opts,
		log:            log,
		partitionStart: partitionStart,
		fatStart:       fatStart,
		rootDirOffset:  rootDirOffset,
		dataEnd:        size,
		entryWidth:     entryWidth,
		entryCount:     entryCount,
		order:          order,
		sb:             sb,
		fat:            fat,
	}

	if err := v.reserveRootCluster(); err != nil {
		_ = fat.close()
		return nil, err
	}

	return v, nil
}

// reserveRootCluster guarantees FAT entry 1 (the root directory's
// permanent cluster) is never treated as allocatable free space.
// A well-formed image already has it terminated; a freshly synthesized or
// hand-truncated one (e.g. a test fixture) may leave it zeroed, which
// would otherwise make the allocator hand the root's own cluster out to
// the first file created. Self-heal it at Open rather than special-casing
// cluster 1 in every allocation path.
func (v *Volume) reserveRootCluster() error {
	if v.entryCount < 1 {
		return newErr(KindCorrupt, "open", "", nil)
	}
	if v.fatIsFree(v.fatNext(rootCluster)) {
		if v.opts.ReadOnly {
			return nil // the FAT may not be written on a read-only volume
		}
		v.fatSetNext(rootCluster, v.fatEOCValue())
		return v.fat.flush()
	}
	return nil
}

// openFATTable picks a mmap-backed FAT table when the backing store exposes
// a real file descriptor (regular Unix files and devices) and isn't
// read-only at the OS level, falling back to an owned in-memory buffer
// otherwise.
func openFATTable(f fsdev.File, dev BlockDevice, fatStart int64, size, width int, count uint32, order binary.ByteOrder, readOnly bool) (*fatTable, error) {
	var backing fatBacking
	if fd, ok := f.Fd(); ok && !readOnly {
		if b, mapped := tryMmapFATBacking(fd, fatStart, size); mapped {
			backing = b
		}
	}
	if backing == nil {
		b, err := newOwnedFATBacking(dev, fatStart, size)
		if err != nil {
			return nil, err
		}
		backing = b
	}
	return &fatTable{backing: backing, order: order, width: width, count: count}, nil
}

// Close flushes the FAT table and closes the backing store. It's safe to
// call once; a second call returns whatever error the backing Close
// reports.
func (v *Volume) Close() error {
	v.mtx.Lock()
	defer v.mtx.Unlock()

	var fatErr error
	if v.fat != nil {
		if !v.opts.ReadOnly {
			fatErr = v.fat.flush()
		}
		if err := v.fat.close(); err != nil && fatErr == nil {
			fatErr = err
		}
	}
	if err := v.file.Close(); err != nil {
		return newErr(KindIO, "close", "", err)
	}
	return fatErr
}

// Sync flushes the FAT table and backing store to stable storage.
func (v *Volume) Sync() error {
	v.mtx.Lock()
	defer v.mtx.Unlock()

	if v.opts.ReadOnly {
		return nil
	}
	if err := v.fat.flush(); err != nil {
		return err
	}
	return v.dev.Sync()
}

// ReadOnly reports whether the volume rejects mutating operations.
func (v *Volume) ReadOnly() bool { return v.opts.ReadOnly }

// clusterOffset returns the absolute byte offset of the start of cluster,
// which must be a valid 1-based cluster index.
func (v *Volume) clusterOffset(cluster uint32) int64 {
	return v.rootDirOffset + int64(cluster-1)*clusterSize
}
