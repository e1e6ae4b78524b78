package fatx

import "encoding/binary"

// superblockSize is the span of fixed fields at partition start + 0; the
// rest of the first 0x1000 bytes is reserved and ignored on read.
const superblockSize = 4 + 4 + 4 + 4 + 2

// superblock mirrors the fixed fields of the FATX superblock. It's
// read at Open purely to validate the magic and surface volume
// metadata through Volume.Info(); nothing else in the engine consults it
// (unlike a PC FAT boot sector, FATX derives every other offset from the
// partition/device size, not from fields here).
type superblock struct {
	Magic       [4]byte
	VolumeID    uint32
	SectorsPerCluster uint32
	FATCopies   uint32
}

func readSuperblock(dev BlockDevice, partitionStart int64, order binary.ByteOrder) (superblock, error) {
	buf := make([]byte, superblockSize)
	if _, err := dev.ReadAt(buf, partitionStart); err != nil {
		return superblock{}, newErr(KindIO, "open", "", err)
	}
	var sb superblock
	copy(sb.Magic[:], buf[0:4])
	sb.VolumeID = order.Uint32(buf[4:8])
	sb.SectorsPerCluster = order.Uint32(buf[8:12])
	sb.FATCopies = order.Uint32(buf[12:16])
	return sb, nil
}
