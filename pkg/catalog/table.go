// ABOUTME: Table registry entry, physical tuple locations, per-table state
// ABOUTME: TupleLoc is a value; the row index holds copies, never references

package catalog

import (
	"github.com/meridb/meridb/pkg/heap"
	"github.com/meridb/meridb/pkg/record"
)

// Table is a registered table: its name and column schema.
type Table struct {
	Name    string
	Columns []record.Column
}

// Column returns the schema column with the given name.
func (t *Table) Column(name string) (record.Column, bool) {
	for _, c := range t.Columns {
		if c.Name == name {
			return c, true
		}
	}
	return record.Column{}, false
}

// TupleLoc is the physical address of the currently-live copy of a row.
// Seg is always 1 until segment rollover exists.
type TupleLoc struct {
	Seg    uint32
	PageID uint32
	SlotID uint16
	Flags  uint8
}

// After reports whether l is a strictly later address than o in
// (page_id, slot_id) lexicographic order.
func (l TupleLoc) After(o TupleLoc) bool {
	if l.PageID != o.PageID {
		return l.PageID > o.PageID
	}
	return l.SlotID > o.SlotID
}

// SamePlace reports whether two locations address the same slot.
func (l TupleLoc) SamePlace(o TupleLoc) bool {
	return l.PageID == o.PageID && l.SlotID == o.SlotID
}

// tableState is the in-memory bookkeeping for one table: where each live
// row is, how much room each known page has (including room for one more
// slot), and the id allocators.
type tableState struct {
	rowIndex   map[uint64]TupleLoc
	freeSpace  map[uint32]int
	nextPageID uint32
	nextRowID  uint64
	seg        *heap.Segment
}

func newTableState(seg *heap.Segment) *tableState {
	return &tableState{
		rowIndex:  make(map[uint64]TupleLoc),
		freeSpace: make(map[uint32]int),
		nextRowID: 1,
		seg:       seg,
	}
}
