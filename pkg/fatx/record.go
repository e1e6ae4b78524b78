package fatx

import "time"

// recordSize is the fixed on-disk size of a directory record.
const recordSize = 64

// attrDirectory is the record attribute bit marking a directory.
const attrDirectory = 0x10

// Name-length sentinels.
const (
	nameLenEndOfDir = 0xFF
	nameLenDeleted  = 0xE5
)

// record is the decoded form of a 64-byte directory record. It's the unit
// the directory engine reads, searches, and rewrites in place; once a
// directory cluster has been initialized, its records are only changed on
// disk through writeSlot.
type record struct {
	nameLen  uint8
	attr     uint8
	name     [maxNameLen]byte
	first    uint32
	size     uint32
	modified uint32
	created  uint32
	accessed uint32
}

func (r *record) isEndOfDir() bool { return r.nameLen == nameLenEndOfDir }
func (r *record) isDeleted() bool  { return r.nameLen == nameLenDeleted }
func (r *record) isActive() bool   { return r.nameLen >= 1 && r.nameLen <= maxNameLen }
func (r *record) isDir() bool      { return r.attr&attrDirectory != 0 }

func (r *record) nameString() string { return decodeName(r.name, r.nameLen) }

func decodeRecord(buf []byte) record {
	var r record
	r.nameLen = buf[0]
	r.attr = buf[1]
	copy(r.name[:], buf[2:2+maxNameLen])
	off := 2 + maxNameLen
	r.first = le32(buf[off:])
	r.size = le32(buf[off+4:])
	r.modified = le32(buf[off+8:])
	r.created = le32(buf[off+12:])
	r.accessed = le32(buf[off+16:])
	return r
}

func encodeRecord(r record, buf []byte) {
	buf[0] = r.nameLen
	buf[1] = r.attr
	copy(buf[2:2+maxNameLen], r.name[:])
	off := 2 + maxNameLen
	putLE32(buf[off:], r.first)
	putLE32(buf[off+4:], r.size)
	putLE32(buf[off+8:], r.modified)
	putLE32(buf[off+12:], r.created)
	putLE32(buf[off+16:], r.accessed)
}

// le32/putLE32 store the multi-byte record fields. Unlike the FAT table and
// the superblock, directory record integers are defined by the format to
// always be little-endian regardless of the volume's overall byte order;
// only the FAT table and the superblock magic are byte-order-sensitive.
func le32(b []byte) uint32 {
	return uint32(b[0]) | uint32(b[1])<<8 | uint32(b[2])<<16 | uint32(b[3])<<24
}

func putLE32(b []byte, v uint32) {
	b[0] = byte(v)
	b[1] = byte(v >> 8)
	b[2] = byte(v >> 16)
	b[3] = byte(v >> 24)
}

// mutation is a sum type describing how a record is changed in place before
// writeSlot persists it. It replaces the original's function-pointer
// "modify_file_record" dispatch: instead of passing a callback that edits an
// in-memory record, callers describe the intended change as one of these
// variants and a single routine (applyMutation, below) interprets it.
type mutation struct {
	kind mutationKind

	// Create fields.
	name    string
	isDir   bool
	first   uint32
	created time.Time

	// Rename field.
	newName string

	// Truncate field.
	newSize uint32
}

type mutationKind int

const (
	mutationCreate mutationKind = iota
	mutationRename
	mutationTruncate
	mutationUnlink
	mutationTouch // updates modified/accessed without changing size
)

func createMutation(name string, isDir bool, first uint32, now time.Time) mutation {
	return mutation{kind: mutationCreate, name: name, isDir: isDir, first: first, created: now}
}

func renameMutation(newName string) mutation {
	return mutation{kind: mutationRename, newName: newName}
}

func truncateMutation(newSize uint32) mutation {
	return mutation{kind: mutationTruncate, newSize: newSize}
}

func unlinkMutation() mutation {
	return mutation{kind: mutationUnlink}
}

func touchMutation() mutation {
	return mutation{kind: mutationTouch}
}

// applyMutation interprets m against the record at *r, in place, using now
// for any timestamp fields the mutation kind updates. It never touches the
// FAT or performs I/O; callers are responsible for persisting *r via
// writeSlot and for any FAT chain changes a Truncate/Unlink implies.
func applyMutation(r *record, m mutation, now time.Time) {
	ts := encodeFATXTime(now)
	switch m.kind {
	case mutationCreate:
		buf, n := encodeName(m.name)
		r.name = buf
		r.nameLen = n
		r.attr = 0
		if m.isDir {
			r.attr = attrDirectory
		}
		r.first = m.first
		r.size = 0
		r.created = encodeFATXTime(m.created)
		r.modified = r.created
		r.accessed = r.created
	case mutationRename:
		buf, n := encodeName(m.newName)
		r.name = buf
		r.nameLen = n
		r.modified = ts
	case mutationTruncate:
		r.size = m.newSize
		r.modified = ts
	case mutationUnlink:
		r.nameLen = nameLenDeleted
	case mutationTouch:
		r.modified = ts
		r.accessed = ts
	}
}
