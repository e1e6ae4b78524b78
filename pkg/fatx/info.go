package fatx

// VolumeInfo is a read-only snapshot of the layout fields a Volume derived
// at Open, mirroring the original implementation's fatx_fs_info struct
// (partition start, byte order, entry width, FAT offset/size, volume end,
// data size, root directory offset). It exists purely for observability -
// the "gofatx info" subcommand and diagnostics - and isn't consulted by any
// other engine operation.
type VolumeInfo struct {
	PartitionStart int64
	BigEndian      bool
	EntryWidth     int
	FATStart       int64
	FATRegionSize  int64
	VolumeEnd      int64
	DataSize       int64
	RootDirOffset  int64
	EntryCount     uint32
	ReadOnly       bool
	VolumeID       uint32

	FreeClusters uint32
	UsedClusters uint32
	BadClusters  uint32
}

// Info reports the volume's derived layout and a full scan of the FAT's
// cluster-state counts. The scan is O(entryCount); callers displaying it
// interactively (e.g. the info CLI command) should expect it to take
// proportionally longer on larger volumes.
func (v *Volume) Info() VolumeInfo {
	v.mtx.Lock()
	defer v.mtx.Unlock()

	info := VolumeInfo{
		PartitionStart: v.partitionStart,
		BigEndian:      isBigEndian(v.order),
		EntryWidth:     v.entryWidth,
		FATStart:       v.fatStart,
		FATRegionSize:  int64(v.fat.count) * int64(v.entryWidth),
		VolumeEnd:      v.dataEnd,
		DataSize:       v.dataEnd - v.rootDirOffset,
		RootDirOffset:  v.rootDirOffset,
		EntryCount:     v.entryCount,
		ReadOnly:       v.opts.ReadOnly,
		VolumeID:       v.sb.VolumeID,
	}

	for c := uint32(1); c <= v.entryCount; c++ {
		e := v.fatNext(c)
		switch {
		case v.fatIsFree(e):
			info.FreeClusters++
		case v.fatIsBad(e):
			info.BadClusters++
		default:
			info.UsedClusters++
		}
	}
	return info
}

func isBigEndian(order interface{ String() string }) bool {
	return order.String() == "BigEndian"
}
