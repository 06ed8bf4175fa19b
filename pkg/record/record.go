// ABOUTME: Row payload codec for heap pages
// ABOUTME: Layout: row_id u64 | null bitmap | per-column encodings (LE)

package record

import (
	"encoding/binary"
	"fmt"
	"math"
	"time"
	"unicode/utf8"
)

// Row maps column names to values.
type Row map[string]Value

// Record is a row with its stable identity. CreatedAt is assigned when the
// row is first built and is not persisted in the page payload.
type Record struct {
	ID        uint64
	Values    Row
	CreatedAt uint64
}

// NewRecord builds a record stamped with the current time.
func NewRecord(id uint64) *Record {
	return &Record{
		ID:        id,
		Values:    make(Row),
		CreatedAt: uint64(time.Now().Unix()),
	}
}

// Set stores a value under a column name.
func (r *Record) Set(column string, v Value) {
	r.Values[column] = v
}

// Get returns the value for a column; NULL if the column is absent.
func (r *Record) Get(column string) Value {
	if v, ok := r.Values[column]; ok {
		return v
	}
	return Null()
}

// Serialize encodes a row for page storage. The row id leads the payload so
// scans can recover it without a side index; bit i of the bitmap is set iff
// column i is NULL or absent.
func Serialize(rowID uint64, columns []Column, values Row) ([]byte, error) {
	n := len(columns)
	bitmapLen := (n + 7) / 8

	out := make([]byte, 8+bitmapLen, 8+bitmapLen+16*n)
	binary.LittleEndian.PutUint64(out[0:8], rowID)

	bitmap := out[8 : 8+bitmapLen]
	for i, col := range columns {
		v, ok := values[col.Name]
		if !ok || v.IsNull() {
			bitmap[i/8] |= 1 << (i % 8)
		}
	}

	for _, col := range columns {
		v, ok := values[col.Name]
		if !ok || v.IsNull() {
			continue
		}
		switch {
		case col.Type == Integer && v.Kind == KindInt:
			out = binary.LittleEndian.AppendUint64(out, uint64(v.Int))
		case col.Type == Float && v.Kind == KindFloat:
			out = binary.LittleEndian.AppendUint64(out, math.Float64bits(v.Float))
		case col.Type == Boolean && v.Kind == KindBool:
			if v.Bool {
				out = append(out, 1)
			} else {
				out = append(out, 0)
			}
		case varlenType(col.Type) && v.Kind == KindString:
			b := []byte(v.Str)
			if len(b) > int(^uint32(0)) {
				return nil, fmt.Errorf("%w: column %q", ErrValueTooLong, col.Name)
			}
			out = binary.LittleEndian.AppendUint32(out, uint32(len(b)))
			out = append(out, b...)
		default:
			if !col.Type.Encodable() {
				return nil, fmt.Errorf("%w: %s (column %q)", ErrUnsupportedType, col.Type, col.Name)
			}
			return nil, &TypeMismatchError{Column: col.Name, Want: col.Type, Got: v.Kind}
		}
	}

	return out, nil
}

// Deserialize is the inverse of Serialize.
func Deserialize(columns []Column, payload []byte) (uint64, Row, error) {
	if len(payload) < 8 {
		return 0, nil, fmt.Errorf("%w: missing row id", ErrTruncated)
	}
	rowID := binary.LittleEndian.Uint64(payload[0:8])
	p := payload[8:]

	n := len(columns)
	bitmapLen := (n + 7) / 8
	if len(p) < bitmapLen {
		return 0, nil, fmt.Errorf("%w: missing null bitmap", ErrTruncated)
	}
	bitmap := p[:bitmapLen]
	p = p[bitmapLen:]

	values := make(Row, n)
	for i, col := range columns {
		if bitmap[i/8]&(1<<(i%8)) != 0 {
			values[col.Name] = Null()
			continue
		}
		switch col.Type {
		case Integer:
			if len(p) < 8 {
				return 0, nil, fmt.Errorf("%w: column %q (INTEGER)", ErrTruncated, col.Name)
			}
			values[col.Name] = NewInt(int64(binary.LittleEndian.Uint64(p[:8])))
			p = p[8:]
		case Float:
			if len(p) < 8 {
				return 0, nil, fmt.Errorf("%w: column %q (FLOAT)", ErrTruncated, col.Name)
			}
			values[col.Name] = NewFloat(math.Float64frombits(binary.LittleEndian.Uint64(p[:8])))
			p = p[8:]
		case Boolean:
			if len(p) < 1 {
				return 0, nil, fmt.Errorf("%w: column %q (BOOLEAN)", ErrTruncated, col.Name)
			}
			values[col.Name] = NewBool(p[0] != 0)
			p = p[1:]
		case Text, Char, Blob, JSON:
			if len(p) < 4 {
				return 0, nil, fmt.Errorf("%w: column %q (length prefix)", ErrTruncated, col.Name)
			}
			l := int(binary.LittleEndian.Uint32(p[:4]))
			p = p[4:]
			if len(p) < l {
				return 0, nil, fmt.Errorf("%w: column %q (%d value bytes)", ErrTruncated, col.Name, l)
			}
			b := p[:l]
			if col.Type != Blob && !utf8.Valid(b) {
				return 0, nil, fmt.Errorf("%w: column %q", ErrBadUtf8, col.Name)
			}
			values[col.Name] = NewString(string(b))
			p = p[l:]
		default:
			return 0, nil, fmt.Errorf("%w: %s (column %q)", ErrUnsupportedType, col.Type, col.Name)
		}
	}

	return rowID, values, nil
}

// ParseRowID reads the row id prefix without decoding the full payload.
func ParseRowID(payload []byte) (uint64, error) {
	if len(payload) < 8 {
		return 0, fmt.Errorf("%w: missing row id", ErrTruncated)
	}
	return binary.LittleEndian.Uint64(payload[0:8]), nil
}

func varlenType(dt DataType) bool {
	switch dt {
	case Text, Char, Blob, JSON:
		return true
	}
	return false
}
