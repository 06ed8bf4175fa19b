// ABOUTME: Row operation protocol and crash recovery over the heap layers
// ABOUTME: Best-fit page choice, in-place/relocating updates, latest-wins scan

package catalog

import (
	"fmt"
	"sort"

	"github.com/meridb/meridb/pkg/page"
	"github.com/meridb/meridb/pkg/record"
)

// NextRowID allocates the next row id for a table. Ids start at 1. An id
// written to the heap, tombstoned or not, is never handed out again, also
// across restarts; an id handed out but never written is not remembered
// across a restart.
func (c *FileCatalog) NextRowID(table string) (uint64, error) {
	ts, err := c.state(table)
	if err != nil {
		return 0, err
	}
	id := ts.nextRowID
	ts.nextRowID++
	return id, nil
}

// GetTupleLoc returns the live location of a row, if any.
func (c *FileCatalog) GetTupleLoc(table string, rowID uint64) (TupleLoc, bool, error) {
	ts, err := c.state(table)
	if err != nil {
		return TupleLoc{}, false, err
	}
	loc, ok := ts.rowIndex[rowID]
	return loc, ok, nil
}

// Insert validates a row against the schema, allocates a row id, and
// appends the record. Validation happens before the id allocation so a
// rejected insert burns nothing.
func (c *FileCatalog) Insert(table string, values record.Row) (uint64, error) {
	t, err := c.Table(table)
	if err != nil {
		return 0, err
	}
	ts, err := c.state(table)
	if err != nil {
		return 0, err
	}

	if err := c.checkRow(t, values); err != nil {
		return 0, err
	}

	rowID := ts.nextRowID
	ts.nextRowID++

	if _, err := c.AppendRecord(table, rowID, values); err != nil {
		return 0, err
	}
	return rowID, nil
}

// checkRow enforces arity, known columns, NOT NULL, and type compatibility.
func (c *FileCatalog) checkRow(t *Table, values record.Row) error {
	if len(values) != len(t.Columns) {
		return fmt.Errorf("%w: table %q has %d columns, got %d values",
			ErrColumnCountMismatch, t.Name, len(t.Columns), len(values))
	}
	for name := range values {
		if _, ok := t.Column(name); !ok {
			return &UnknownColumnError{Table: t.Name, Column: name}
		}
	}
	for _, col := range t.Columns {
		v, ok := values[col.Name]
		if !ok {
			v = record.Null()
		}
		if err := record.CheckValue(col, v); err != nil {
			return err
		}
	}
	return nil
}

// AppendRecord serializes a row and appends it to a page chosen by best
// fit, then points the row index at the new slot.
func (c *FileCatalog) AppendRecord(table string, rowID uint64, values record.Row) (TupleLoc, error) {
	t, err := c.Table(table)
	if err != nil {
		return TupleLoc{}, err
	}
	ts, err := c.state(table)
	if err != nil {
		return TupleLoc{}, err
	}

	payload, err := record.Serialize(rowID, t.Columns, values)
	if err != nil {
		return TupleLoc{}, err
	}
	loc, err := appendPayload(ts, payload, 0)
	if err != nil {
		return TupleLoc{}, err
	}
	ts.rowIndex[rowID] = loc
	return loc, nil
}

// appendPayload writes a payload into the heap. Only pages with id >=
// minPageID are considered, so relocated rows always land at a strictly
// greater (page_id, slot_id) than the slot they replace.
func appendPayload(ts *tableState, payload []byte, minPageID uint32) (TupleLoc, error) {
	need := len(payload) + page.SlotLen

	// Best fit: the smallest known free region that still holds the
	// payload plus its slot.
	chosen := uint32(0)
	found := false
	best := 0
	for pid, free := range ts.freeSpace {
		if pid < minPageID || free < need {
			continue
		}
		if !found || free < best {
			chosen, best, found = pid, free, true
		}
	}

	var p page.Page
	if found {
		var err error
		p, err = ts.seg.ReadPage(chosen)
		if err != nil {
			return TupleLoc{}, err
		}
	} else {
		chosen = ts.nextPageID
		ts.nextPageID++
		p = page.New(chosen)
	}

	sid, err := p.Append(payload)
	if err != nil {
		return TupleLoc{}, err
	}
	if err := ts.seg.WritePage(chosen, p); err != nil {
		return TupleLoc{}, err
	}
	if err := refreshFreeSpace(ts, chosen, p); err != nil {
		return TupleLoc{}, err
	}
	return TupleLoc{Seg: 1, PageID: chosen, SlotID: sid}, nil
}

// refreshFreeSpace recomputes a page's free bytes from its actual slot
// directory rather than trusting the header.
func refreshFreeSpace(ts *tableState, pid uint32, p page.Page) error {
	maxEnd, err := p.MaxPayloadEnd()
	if err != nil {
		return err
	}
	ts.freeSpace[pid] = page.Size - int(p.RecordCount())*page.SlotLen - maxEnd
	return nil
}

// UpdateRecord rewrites a row in place when the new payload fits the old
// slot; otherwise it relocates the row to a later address and tombstones
// the old slot. Either way the row index ends up at the surviving copy.
func (c *FileCatalog) UpdateRecord(table string, old TupleLoc, rowID uint64, values record.Row) (TupleLoc, error) {
	t, err := c.Table(table)
	if err != nil {
		return TupleLoc{}, err
	}
	ts, err := c.state(table)
	if err != nil {
		return TupleLoc{}, err
	}

	if err := c.checkRow(t, values); err != nil {
		return TupleLoc{}, err
	}

	payload, err := record.Serialize(rowID, t.Columns, values)
	if err != nil {
		return TupleLoc{}, err
	}

	p, err := ts.seg.ReadPage(old.PageID)
	if err != nil {
		return TupleLoc{}, err
	}
	fits, err := p.OverwriteIfFits(old.SlotID, payload)
	if err != nil {
		return TupleLoc{}, err
	}
	if fits {
		if err := ts.seg.WritePage(old.PageID, p); err != nil {
			return TupleLoc{}, err
		}
		if err := refreshFreeSpace(ts, old.PageID, p); err != nil {
			return TupleLoc{}, err
		}
		newLoc := TupleLoc{Seg: 1, PageID: old.PageID, SlotID: old.SlotID}
		ts.rowIndex[rowID] = newLoc
		return newLoc, nil
	}

	// Relocate first, tombstone second. If the tombstone write is lost,
	// the scan still resolves to the relocated copy because its address
	// is strictly greater.
	newLoc, err := appendPayload(ts, payload, old.PageID)
	if err != nil {
		return TupleLoc{}, err
	}

	oldPage, err := ts.seg.ReadPage(old.PageID)
	if err != nil {
		return TupleLoc{}, err
	}
	if err := oldPage.SetTombstone(old.SlotID); err != nil {
		return TupleLoc{}, err
	}
	if err := ts.seg.WritePage(old.PageID, oldPage); err != nil {
		return TupleLoc{}, err
	}

	ts.rowIndex[rowID] = newLoc
	return newLoc, nil
}

// Tombstone marks a slot dead and drops the row-index entry pointing at it.
func (c *FileCatalog) Tombstone(table string, old TupleLoc) error {
	ts, err := c.state(table)
	if err != nil {
		return err
	}

	p, err := ts.seg.ReadPage(old.PageID)
	if err != nil {
		return err
	}
	if err := p.SetTombstone(old.SlotID); err != nil {
		return err
	}
	if err := ts.seg.WritePage(old.PageID, p); err != nil {
		return err
	}

	for rowID, loc := range ts.rowIndex {
		if loc.SamePlace(old) {
			delete(ts.rowIndex, rowID)
			break
		}
	}
	return nil
}

// SeqScanPages streams the table's heap pages front to back.
func (c *FileCatalog) SeqScanPages(table string, fn func(pid uint32, p page.Page) (bool, error)) error {
	ts, err := c.state(table)
	if err != nil {
		return err
	}
	return ts.seg.ScanPages(fn)
}

// SyncTable fsyncs the table's segment and its directory.
func (c *FileCatalog) SyncTable(table string) error {
	ts, err := c.state(table)
	if err != nil {
		return err
	}
	return ts.seg.Sync()
}

// Scan reads every live record matching pred, keeping only the latest
// version of each row: the highest (page_id, slot_id), with the in-memory
// row index breaking ties in favor of the authoritative pointer. Results
// are sorted by row id.
func (c *FileCatalog) Scan(table string, pred Predicate) ([]*record.Record, error) {
	t, err := c.Table(table)
	if err != nil {
		return nil, err
	}
	ts, err := c.state(table)
	if err != nil {
		return nil, err
	}

	type candidate struct {
		loc TupleLoc
		rec *record.Record
	}
	latest := make(map[uint64]candidate)

	err = ts.seg.ScanPages(func(pid uint32, p page.Page) (bool, error) {
		slots, err := p.Slots()
		if err != nil {
			return false, err
		}
		for sid, s := range slots {
			if !s.Live() {
				continue
			}
			rowID, values, err := record.Deserialize(t.Columns, p.Payload(s))
			if err != nil {
				return false, err
			}
			rec := &record.Record{ID: rowID, Values: values}
			if pred != nil && !pred(rec) {
				continue
			}
			loc := TupleLoc{Seg: 1, PageID: pid, SlotID: uint16(sid)}
			prev, seen := latest[rowID]
			authoritative := false
			if idx, ok := ts.rowIndex[rowID]; ok && idx.SamePlace(loc) {
				authoritative = true
			}
			if !seen || loc.After(prev.loc) || authoritative {
				latest[rowID] = candidate{loc: loc, rec: rec}
			}
		}
		return true, nil
	})
	if err != nil {
		return nil, err
	}

	out := make([]*record.Record, 0, len(latest))
	for _, cand := range latest {
		out = append(out, cand.rec)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// recoverState rebuilds a table's row index, free-space map, and id
// allocators from one pass over its segment. After a restart that lost
// only in-memory state, the reconstructed state satisfies the same
// invariants the live session maintained.
func recoverState(ts *tableState) error {
	maxRowID := uint64(0)
	maxPageID := int64(-1)

	err := ts.seg.ScanPages(func(pid uint32, p page.Page) (bool, error) {
		slots, err := p.Slots()
		if err != nil {
			return false, err
		}
		maxEnd := page.HeaderLen
		for sid, s := range slots {
			if e := int(s.Off) + int(s.Len); e > maxEnd {
				maxEnd = e
			}
			// Tombstoned payloads stay in place, so their row ids still
			// count toward the allocator floor.
			rowID, err := record.ParseRowID(p.Payload(s))
			if err != nil {
				if !s.Live() {
					continue
				}
				return false, err
			}
			if rowID > maxRowID {
				maxRowID = rowID
			}
			if !s.Live() {
				continue
			}
			loc := TupleLoc{Seg: 1, PageID: pid, SlotID: uint16(sid)}
			if prev, ok := ts.rowIndex[rowID]; !ok || loc.After(prev) {
				ts.rowIndex[rowID] = loc
			}
		}
		ts.freeSpace[pid] = page.Size - len(slots)*page.SlotLen - maxEnd
		if int64(pid) > maxPageID {
			maxPageID = int64(pid)
		}
		return true, nil
	})
	if err != nil {
		return err
	}

	ts.nextPageID = uint32(maxPageID + 1)
	ts.nextRowID = maxRowID + 1
	return nil
}
