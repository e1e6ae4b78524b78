package fatx

import "encoding/binary"

// fatBacking is the storage an in-memory fatTable reads and writes through:
// either a read-write mmap of the FAT region, or an owned buffer flushed
// back to the block device explicitly. The choice between the two is left
// to the implementation as long as a clean close leaves the on-disk FAT
// consistent; Volume picks one at Open and never mixes the two for a
// single FAT region.
type fatBacking interface {
	bytes() []byte
	flush() error
	close() error
}

// fatTable is the raw N x W byte array, interpreted through the volume's
// detected byte order and entry width. It has no cluster-semantics of its
// own (0 meaning free, etc.) - that's Volume's job one layer up; fatTable
// only knows how to get/set the raw integer at a given 1-based cluster
// index.
type fatTable struct {
	backing fatBacking
	order   binary.ByteOrder
	width   int // 2 or 4, per Volume.entryWidth
	count   uint32
}

func (t *fatTable) get(cluster uint32) uint32 {
	b := t.backing.bytes()
	off := int(cluster) * t.width
	if t.width == 4 {
		return t.order.Uint32(b[off : off+4])
	}
	return uint32(t.order.Uint16(b[off : off+2]))
}

func (t *fatTable) set(cluster uint32, value uint32) {
	b := t.backing.bytes()
	off := int(cluster) * t.width
	if t.width == 4 {
		t.order.PutUint32(b[off:off+4], value)
		return
	}
	t.order.PutUint16(b[off:off+2], uint16(value))
}

func (t *fatTable) flush() error { return t.backing.flush() }
func (t *fatTable) close() error { return t.backing.close() }
