// ABOUTME: Table schema blob codec (schema.tbl)
// ABOUTME: magic | version | table name | columns | table_flags | crc32

package codec

import (
	"encoding/binary"
	"fmt"
	"hash/crc32"
	"unicode/utf8"

	"github.com/meridb/meridb/pkg/record"
)

var schemaMagic = [4]byte{'T', 'B', 'L', '0'}

// SchemaVersion is the current schema format version.
const SchemaVersion = 1

// schemaMinLen: magic + version + name_len + column_count + flags + crc32.
const schemaMinLen = 4 + 4 + 2 + 2 + 4 + 4

// EncodeSchema builds a schema.tbl blob for a table.
func EncodeSchema(tableName string, columns []record.Column) []byte {
	buf := make([]byte, 0, 64+len(columns)*32)

	buf = append(buf, schemaMagic[:]...)
	buf = binary.LittleEndian.AppendUint32(buf, SchemaVersion)

	buf = binary.LittleEndian.AppendUint16(buf, uint16(len(tableName)))
	buf = append(buf, tableName...)

	buf = binary.LittleEndian.AppendUint16(buf, uint16(len(columns)))
	for _, col := range columns {
		buf = binary.LittleEndian.AppendUint16(buf, uint16(len(col.Name)))
		buf = append(buf, col.Name...)
		buf = binary.LittleEndian.AppendUint16(buf, uint16(col.Type))
		if col.Nullable {
			buf = append(buf, 1)
		} else {
			buf = append(buf, 0)
		}
		buf = append(buf, 0) // reserved per-column
	}

	buf = binary.LittleEndian.AppendUint32(buf, 0) // table_flags

	buf = binary.LittleEndian.AppendUint32(buf, crc32.ChecksumIEEE(buf))
	return buf
}

// DecodeSchema parses and CRC-verifies a schema blob, returning the table
// name and its column list.
func DecodeSchema(b []byte) (string, []record.Column, error) {
	if len(b) < schemaMinLen {
		return "", nil, fmt.Errorf("%w: need at least %d bytes, got %d", ErrMetaTooShort, schemaMinLen, len(b))
	}
	if [4]byte(b[0:4]) != schemaMagic {
		return "", nil, fmt.Errorf("%w: %q", ErrBadMagic, b[0:4])
	}

	version := binary.LittleEndian.Uint32(b[4:8])
	if version != SchemaVersion {
		return "", nil, fmt.Errorf("%w: %d", ErrBadVersion, version)
	}

	// Verify the checksum before walking the variable-length body.
	stored := binary.LittleEndian.Uint32(b[len(b)-4:])
	expect := crc32.ChecksumIEEE(b[:len(b)-4])
	if stored != expect {
		return "", nil, &ChecksumError{Expected: expect, Got: stored}
	}

	rest := b[8:]
	nameLen := int(binary.LittleEndian.Uint16(rest[0:2]))
	rest = rest[2:]
	if len(rest) < nameLen+2 {
		return "", nil, fmt.Errorf("%w: table name of %d bytes does not fit", ErrTruncated, nameLen)
	}
	if !utf8.Valid(rest[:nameLen]) {
		return "", nil, ErrBadUtf8
	}
	tableName := string(rest[:nameLen])
	rest = rest[nameLen:]

	colCount := int(binary.LittleEndian.Uint16(rest[0:2]))
	rest = rest[2:]

	columns := make([]record.Column, 0, colCount)
	for i := 0; i < colCount; i++ {
		if len(rest) < 2 {
			return "", nil, fmt.Errorf("%w: column %d header", ErrTruncated, i)
		}
		colNameLen := int(binary.LittleEndian.Uint16(rest[0:2]))
		rest = rest[2:]
		if len(rest) < colNameLen+2+1+1 {
			return "", nil, fmt.Errorf("%w: column %d body", ErrTruncated, i)
		}
		if !utf8.Valid(rest[:colNameLen]) {
			return "", nil, ErrBadUtf8
		}
		colName := string(rest[:colNameLen])
		rest = rest[colNameLen:]

		code := binary.LittleEndian.Uint16(rest[0:2])
		dt, err := record.DataTypeFromCode(code)
		if err != nil {
			return "", nil, err
		}
		nullable := rest[2] != 0
		rest = rest[4:] // code + nullable + reserved

		columns = append(columns, record.NewColumn(colName, dt, nullable))
	}

	if len(rest) < 4+4 {
		return "", nil, fmt.Errorf("%w: missing table flags", ErrTruncated)
	}

	return tableName, columns, nil
}
