// ABOUTME: Fixed-size slotted heap page over a raw byte buffer
// ABOUTME: Header + forward payload area + backward-growing slot directory

package page

import (
	"encoding/binary"
	"errors"
	"fmt"
)

const (
	// Size is the fixed page size in bytes.
	Size = 8192

	// HeaderLen is the page header length.
	// Layout: magic[4] | version u32 | page_id u32 | record_count u16 |
	// free_space_off u16 | flags u16
	HeaderLen = 18

	// SlotLen is one slot directory entry: off u16 | len u16 | flags u8.
	SlotLen = 5

	// Version is the current page format version.
	Version = 1
)

// Magic identifies a heap page.
var Magic = [4]byte{'H', 'P', 'G', '0'}

var (
	// ErrPageFull indicates the payload plus its slot does not fit.
	ErrPageFull = errors.New("page: not enough free space")

	// ErrBadSlot indicates a slot id out of range or tombstoned.
	ErrBadSlot = errors.New("page: bad slot")

	// ErrCorruptPage indicates a page whose header or slot directory is
	// inconsistent with the fixed layout.
	ErrCorruptPage = errors.New("page: corrupt page")
)

// TombstoneFlag marks a dead slot. Readers must treat any non-zero flag
// byte as a tombstone.
const TombstoneFlag = 1

// Slot is a decoded slot directory entry.
type Slot struct {
	Off   uint16
	Len   uint16
	Flags uint8
}

// Live reports whether the slot holds a visible record.
func (s Slot) Live() bool {
	return s.Flags == 0
}

// Page is a raw 8 KiB page buffer. All accessors read and write the buffer
// in place; little-endian throughout.
type Page []byte

// New returns a zeroed page with the header initialized.
func New(id uint32) Page {
	p := Page(make([]byte, Size))
	copy(p[0:4], Magic[:])
	binary.LittleEndian.PutUint32(p[4:8], Version)
	binary.LittleEndian.PutUint32(p[8:12], id)
	p.setFreeSpaceOff(HeaderLen)
	return p
}

// ID returns the page id stored in the header.
func (p Page) ID() uint32 {
	return binary.LittleEndian.Uint32(p[8:12])
}

// RecordCount returns the number of slots in the directory.
func (p Page) RecordCount() uint16 {
	return binary.LittleEndian.Uint16(p[12:14])
}

func (p Page) setRecordCount(n uint16) {
	binary.LittleEndian.PutUint16(p[12:14], n)
}

// FreeSpaceOff returns the offset where the payload area ends.
func (p Page) FreeSpaceOff() uint16 {
	return binary.LittleEndian.Uint16(p[14:16])
}

func (p Page) setFreeSpaceOff(off int) {
	binary.LittleEndian.PutUint16(p[14:16], uint16(off))
}

// payloadEnd is the first byte past the payload area, never below the header.
func (p Page) payloadEnd() int {
	end := int(p.FreeSpaceOff())
	if end < HeaderLen {
		end = HeaderLen
	}
	return end
}

func (p Page) slotDirStart() int {
	return Size - int(p.RecordCount())*SlotLen
}

// slotOff returns the byte offset of slot i. Slot 0 sits at the very end of
// the page; later slots grow backward, so higher slot ids always belong to
// later appends.
func slotOff(i uint16) int {
	return Size - (int(i)+1)*SlotLen
}

// FreeBytes returns the bytes available between the payload area and the
// slot directory.
func (p Page) FreeBytes() int {
	free := p.slotDirStart() - p.payloadEnd()
	if free < 0 {
		return 0
	}
	return free
}

func (p Page) validate() error {
	if len(p) < Size {
		return fmt.Errorf("%w: buffer is %d bytes, want %d", ErrCorruptPage, len(p), Size)
	}
	if [4]byte(p[0:4]) != Magic {
		return fmt.Errorf("%w: bad magic %q", ErrCorruptPage, p[0:4])
	}
	if p.slotDirStart() < HeaderLen {
		return fmt.Errorf("%w: slot directory overlaps header", ErrCorruptPage)
	}
	return nil
}

// Slot decodes slot directory entry i.
func (p Page) Slot(i uint16) (Slot, error) {
	if i >= p.RecordCount() {
		return Slot{}, fmt.Errorf("%w: slot %d of %d", ErrBadSlot, i, p.RecordCount())
	}
	off := slotOff(i)
	return Slot{
		Off:   binary.LittleEndian.Uint16(p[off : off+2]),
		Len:   binary.LittleEndian.Uint16(p[off+2 : off+4]),
		Flags: p[off+4],
	}, nil
}

func (p Page) writeSlot(i uint16, s Slot) {
	off := slotOff(i)
	binary.LittleEndian.PutUint16(p[off:off+2], s.Off)
	binary.LittleEndian.PutUint16(p[off+2:off+4], s.Len)
	p[off+4] = s.Flags
}

// Slots validates the page and decodes the full slot directory in append
// order (slot 0 first).
func (p Page) Slots() ([]Slot, error) {
	if err := p.validate(); err != nil {
		return nil, err
	}
	n := p.RecordCount()
	out := make([]Slot, n)
	for i := uint16(0); i < n; i++ {
		out[i], _ = p.Slot(i)
	}
	return out, nil
}

// Payload returns the payload bytes a slot points to.
func (p Page) Payload(s Slot) []byte {
	return p[int(s.Off) : int(s.Off)+int(s.Len)]
}

// Append writes a payload into the free area and extends the slot directory,
// returning the new slot id.
func (p Page) Append(payload []byte) (uint16, error) {
	if err := p.validate(); err != nil {
		return 0, err
	}
	need := len(payload) + SlotLen
	if need > p.FreeBytes() {
		return 0, fmt.Errorf("%w: need %d, have %d", ErrPageFull, need, p.FreeBytes())
	}

	off := p.payloadEnd()
	copy(p[off:], payload)

	id := p.RecordCount()
	p.setRecordCount(id + 1)
	p.writeSlot(id, Slot{Off: uint16(off), Len: uint16(len(payload)), Flags: 0})
	p.setFreeSpaceOff(off + len(payload))
	return id, nil
}

// OverwriteIfFits rewrites a live slot's payload in place when the new
// payload is no longer than the old one. Returns false without mutating the
// page when it does not fit.
func (p Page) OverwriteIfFits(id uint16, payload []byte) (bool, error) {
	s, err := p.Slot(id)
	if err != nil {
		return false, err
	}
	if !s.Live() {
		return false, fmt.Errorf("%w: slot %d is tombstoned", ErrBadSlot, id)
	}
	if len(payload) > int(s.Len) {
		return false, nil
	}
	copy(p[int(s.Off):], payload)
	s.Len = uint16(len(payload))
	p.writeSlot(id, s)
	return true, nil
}

// SetTombstone marks a slot dead. The payload bytes stay in place; this
// layout does not reclaim space.
func (p Page) SetTombstone(id uint16) error {
	s, err := p.Slot(id)
	if err != nil {
		return err
	}
	s.Flags = TombstoneFlag
	p.writeSlot(id, s)
	return nil
}

// MaxPayloadEnd recomputes the end of the payload area from the slot
// directory itself, independent of the header field.
func (p Page) MaxPayloadEnd() (int, error) {
	slots, err := p.Slots()
	if err != nil {
		return 0, err
	}
	end := HeaderLen
	for _, s := range slots {
		if e := int(s.Off) + int(s.Len); e > end {
			end = e
		}
	}
	return end, nil
}
