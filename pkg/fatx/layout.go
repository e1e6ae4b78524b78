package fatx

import (
	"encoding/binary"
	"strings"
	"time"
)

// clusterSize is the fixed FATX allocation unit: 16 KiB.
const clusterSize = 0x4000

// maxNameLen is the longest name a 64-byte directory record can hold.
const maxNameLen = 42

// fatxMagic is "FATX" read as a big-endian uint32.
const fatxMagic = 0x46415458

// detectByteOrder inspects the 4-byte superblock magic at the start of the
// partition and returns the byte order the volume stores its integers in:
// a big-endian read of "FATX" means the volume is little-endian (the magic
// is stored as the literal ASCII bytes F,A,T,X); a little-endian read of
// the same bytes ("XTAF") means the volume is big-endian.
func detectByteOrder(magic [4]byte) (binary.ByteOrder, bool) {
	if binary.BigEndian.Uint32(magic[:]) == fatxMagic {
		return binary.LittleEndian, true
	}
	if binary.LittleEndian.Uint32(magic[:]) == fatxMagic {
		return binary.BigEndian, true
	}
	return nil, false
}

// encodeName converts an on-disk name into its 42-byte, 0xFF-padded record
// form. The caller is responsible for length validation (KindNameTooLong);
// encodeName itself only truncates defensively.
func encodeName(name string) (buf [maxNameLen]byte, length uint8) {
	for i := range buf {
		buf[i] = 0xFF
	}
	n := copy(buf[:], name)
	return buf, uint8(n)
}

// decodeName extracts the name from its padded on-disk form given the
// record's name-length byte.
func decodeName(buf [maxNameLen]byte, length uint8) string {
	if length > maxNameLen {
		length = maxNameLen
	}
	return string(buf[:length])
}

// namesEqual implements the case-insensitive, exact-length comparison that
// resolves the original's ambiguous strncmp-with-max(len, fnsize) behavior:
// a match requires the candidate name's length equal the record's
// name_length, then a case-insensitive byte comparison.
func namesEqual(candidate string, recordName [maxNameLen]byte, recordLen uint8) bool {
	if len(candidate) != int(recordLen) {
		return false
	}
	return strings.EqualFold(candidate, string(recordName[:recordLen]))
}

// timeInUTC selects UTC for all FATX<->Unix time conversions. The original
// implementation used localtime_r/mktime (platform- and TZ-dependent), a
// known source of drift across hosts; this constant pins the conversion to
// UTC instead. Flip it to use time.Local if byte-for-byte compatibility
// with the original tool's on-disk timestamps on this host's timezone is
// required instead.
const timeInUTC = true

func timeLocation() *time.Location {
	if timeInUTC {
		return time.UTC
	}
	return time.Local
}

// encodeFATXTime packs a time.Time into the 32-bit FATX timestamp format:
// 5 bits seconds/2, 6 bits minute, 5 bits hour, 5 bits day, 4 bits
// month, 7 bits year-since-1980, LSB to MSB in that order.
func encodeFATXTime(t time.Time) uint32 {
	t = t.In(timeLocation())

	year := uint32(t.Year() - 1980)
	month := uint32(t.Month())
	day := uint32(t.Day())
	hour := uint32(t.Hour())
	minute := uint32(t.Minute())
	sec2 := uint32(t.Second() / 2)

	return (sec2 & 0x1F) |
		(minute&0x3F)<<5 |
		(hour&0x1F)<<11 |
		(day&0x1F)<<16 |
		(month&0xF)<<21 |
		(year&0x7F)<<25
}

// decodeFATXTime is the inverse of encodeFATXTime.
func decodeFATXTime(v uint32) time.Time {
	year := 1980 + int((v>>25)&0x7F)
	month := time.Month((v >> 21) & 0xF)
	day := int((v >> 16) & 0x1F)
	hour := int((v >> 11) & 0x1F)
	minute := int((v >> 5) & 0x3F)
	sec := int(v&0x1F) * 2

	if month == 0 {
		month = 1
	}
	if day == 0 {
		day = 1
	}
	return time.Date(year, month, day, hour, minute, sec, 0, timeLocation())
}

// roundUp4K rounds x up to the next multiple of 0x1000, matching the
// original's `-(-x & -0x1000)` two's-complement trick used to round the FAT
// region length up to a 4-KiB boundary.
func roundUp4K(x uint64) uint64 {
	const mask = 0xFFF
	return (x + mask) &^ mask
}
