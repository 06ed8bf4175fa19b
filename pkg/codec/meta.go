// ABOUTME: Database metadata blob codec (metadata.mdb)
// ABOUTME: magic | version | created_at | name | tables_count | reserved | crc32

package codec

import (
	"encoding/binary"
	"fmt"
	"hash/crc32"
	"unicode/utf8"
)

var metaMagic = [4]byte{'M', 'D', 'B', '0'}

// MetaVersion is the current metadata format version.
const MetaVersion = 1

// metaMinLen is the structural minimum: all fixed fields with an empty name.
const metaMinLen = 4 + 4 + 8 + 2 + 4 + 4 + 4

// Meta is the decoded content of a metadata.mdb blob.
type Meta struct {
	Name        string
	CreatedAt   uint64
	Version     uint32
	TablesCount uint32
}

// EncodeMeta builds a metadata blob.
func EncodeMeta(name string, createdAt uint64, tablesCount uint32) []byte {
	buf := make([]byte, 0, metaMinLen+len(name))

	buf = append(buf, metaMagic[:]...)
	buf = binary.LittleEndian.AppendUint32(buf, MetaVersion)
	buf = binary.LittleEndian.AppendUint64(buf, createdAt)

	buf = binary.LittleEndian.AppendUint16(buf, uint16(len(name)))
	buf = append(buf, name...)

	buf = binary.LittleEndian.AppendUint32(buf, tablesCount)
	buf = binary.LittleEndian.AppendUint32(buf, 0) // reserved

	buf = binary.LittleEndian.AppendUint32(buf, crc32.ChecksumIEEE(buf))
	return buf
}

// DecodeMeta parses and CRC-verifies a metadata blob.
func DecodeMeta(b []byte) (*Meta, error) {
	if len(b) < metaMinLen {
		return nil, fmt.Errorf("%w: need at least %d bytes, got %d", ErrMetaTooShort, metaMinLen, len(b))
	}
	if [4]byte(b[0:4]) != metaMagic {
		return nil, fmt.Errorf("%w: %q", ErrBadMagic, b[0:4])
	}

	version := binary.LittleEndian.Uint32(b[4:8])
	if version == 0 || version > MetaVersion {
		return nil, fmt.Errorf("%w: %d", ErrBadVersion, version)
	}

	createdAt := binary.LittleEndian.Uint64(b[8:16])
	nameLen := int(binary.LittleEndian.Uint16(b[16:18]))

	// name + tables_count + reserved + crc32
	if len(b) < 18+nameLen+4+4+4 {
		return nil, fmt.Errorf("%w: name of %d bytes does not fit", ErrTruncated, nameLen)
	}
	nameBytes := b[18 : 18+nameLen]
	if !utf8.Valid(nameBytes) {
		return nil, ErrBadUtf8
	}

	rest := b[18+nameLen:]
	tablesCount := binary.LittleEndian.Uint32(rest[0:4])

	stored := binary.LittleEndian.Uint32(b[len(b)-4:])
	expect := crc32.ChecksumIEEE(b[:len(b)-4])
	if stored != expect {
		return nil, &ChecksumError{Expected: expect, Got: stored}
	}

	return &Meta{
		Name:        string(nameBytes),
		CreatedAt:   createdAt,
		Version:     version,
		TablesCount: tablesCount,
	}, nil
}
