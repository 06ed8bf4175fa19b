// Package codec encodes and decodes the database metadata and table schema
// blobs: little-endian fields framed by a magic, a version, and a trailing
// CRC32 over every preceding byte.
package codec

import (
	"errors"
	"fmt"
)

var (
	// ErrMetaTooShort indicates a blob below the minimum structural size.
	ErrMetaTooShort = errors.New("codec: blob too short")

	// ErrBadMagic indicates an unrecognized magic header.
	ErrBadMagic = errors.New("codec: bad magic")

	// ErrBadVersion indicates an unsupported format version.
	ErrBadVersion = errors.New("codec: unsupported version")

	// ErrTruncated indicates a blob that ends inside a field.
	ErrTruncated = errors.New("codec: truncated blob")

	// ErrBadUtf8 indicates a name field holding invalid UTF-8.
	ErrBadUtf8 = errors.New("codec: invalid utf-8 in name")
)

// ChecksumError reports a CRC32 mismatch between the stored checksum and
// the one recomputed over the blob.
type ChecksumError struct {
	Expected uint32
	Got      uint32
}

func (e *ChecksumError) Error() string {
	return fmt.Sprintf("codec: checksum mismatch: expected %08x, got %08x", e.Expected, e.Got)
}
