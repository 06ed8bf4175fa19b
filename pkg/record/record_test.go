// ABOUTME: Tests for the row payload codec and value checks
// ABOUTME: Round-trips, null bitmaps, truncation, type enforcement

package record

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func testColumns() []Column {
	return []Column{
		NewColumn("id", Integer, false),
		NewColumn("name", Text, true),
		NewColumn("score", Float, true),
		NewColumn("active", Boolean, true),
		NewColumn("payload", Blob, true),
		NewColumn("config", JSON, true),
	}
}

func TestSerializeRoundTrip(t *testing.T) {
	columns := testColumns()
	values := Row{
		"id":      NewInt(-42),
		"name":    NewString("héllo"),
		"score":   NewFloat(3.25),
		"active":  NewBool(true),
		"payload": NewString("\x00\xff raw bytes"),
		"config":  NewString(`{"k":1}`),
	}

	payload, err := Serialize(7, columns, values)
	if err != nil {
		t.Fatalf("serialize failed: %v", err)
	}

	rowID, decoded, err := Deserialize(columns, payload)
	if err != nil {
		t.Fatalf("deserialize failed: %v", err)
	}
	if rowID != 7 {
		t.Errorf("expected row id 7, got %d", rowID)
	}
	if diff := cmp.Diff(values, decoded); diff != "" {
		t.Errorf("round trip mismatch (-want +got):\n%s", diff)
	}
}

func TestSerializeNulls(t *testing.T) {
	columns := testColumns()
	values := Row{
		"id":      NewInt(1),
		"name":    Null(),
		"score":   Null(),
		"active":  Null(),
		"payload": Null(),
		"config":  Null(),
	}

	payload, err := Serialize(9, columns, values)
	if err != nil {
		t.Fatalf("serialize failed: %v", err)
	}
	// row id + bitmap + one INTEGER, nothing else.
	if want := 8 + 1 + 8; len(payload) != want {
		t.Errorf("expected %d payload bytes, got %d", want, len(payload))
	}

	rowID, decoded, err := Deserialize(columns, payload)
	if err != nil {
		t.Fatalf("deserialize failed: %v", err)
	}
	if rowID != 9 {
		t.Errorf("expected row id 9, got %d", rowID)
	}
	for _, col := range columns[1:] {
		if !decoded[col.Name].IsNull() {
			t.Errorf("column %q should be NULL", col.Name)
		}
	}
}

// Absent columns serialize the same as explicit NULLs.
func TestSerializeAbsentEqualsNull(t *testing.T) {
	columns := testColumns()
	explicit := Row{
		"id": NewInt(5), "name": Null(), "score": Null(),
		"active": Null(), "payload": Null(), "config": Null(),
	}
	absent := Row{"id": NewInt(5)}

	a, err := Serialize(5, columns, explicit)
	if err != nil {
		t.Fatalf("serialize explicit: %v", err)
	}
	b, err := Serialize(5, columns, absent)
	if err != nil {
		t.Fatalf("serialize absent: %v", err)
	}
	if diff := cmp.Diff(a, b); diff != "" {
		t.Errorf("payloads differ (-explicit +absent):\n%s", diff)
	}
}

func TestSerializeTypeMismatch(t *testing.T) {
	columns := []Column{NewColumn("id", Integer, false)}
	_, err := Serialize(1, columns, Row{"id": NewString("not an int")})
	var tm *TypeMismatchError
	if !errors.As(err, &tm) {
		t.Fatalf("expected TypeMismatchError, got %v", err)
	}
}

func TestSerializeUnsupportedType(t *testing.T) {
	columns := []Column{NewColumn("when", Timestamp, false)}
	_, err := Serialize(1, columns, Row{"when": NewInt(0)})
	if !errors.Is(err, ErrUnsupportedType) {
		t.Fatalf("expected ErrUnsupportedType, got %v", err)
	}
}

func TestDeserializeTruncated(t *testing.T) {
	columns := testColumns()
	values := Row{"id": NewInt(1), "name": NewString("abc")}
	payload, err := Serialize(1, columns, values)
	if err != nil {
		t.Fatalf("serialize failed: %v", err)
	}

	for _, cut := range []int{0, 4, 8, len(payload) - 1} {
		if _, _, err := Deserialize(columns, payload[:cut]); !errors.Is(err, ErrTruncated) {
			t.Errorf("cut at %d: expected ErrTruncated, got %v", cut, err)
		}
	}
}

func TestDeserializeBadUtf8(t *testing.T) {
	columns := []Column{NewColumn("s", Text, false)}
	payload, err := Serialize(1, []Column{NewColumn("s", Blob, false)}, Row{"s": NewString("\xff\xfe")})
	if err != nil {
		t.Fatalf("serialize failed: %v", err)
	}
	// The same bytes decoded as TEXT must be rejected.
	if _, _, err := Deserialize(columns, payload); !errors.Is(err, ErrBadUtf8) {
		t.Fatalf("expected ErrBadUtf8, got %v", err)
	}
}

func TestParseRowID(t *testing.T) {
	columns := []Column{NewColumn("a", Integer, false)}
	payload, _ := Serialize(123456, columns, Row{"a": NewInt(0)})
	id, err := ParseRowID(payload)
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	if id != 123456 {
		t.Errorf("expected 123456, got %d", id)
	}

	if _, err := ParseRowID([]byte{1, 2, 3}); !errors.Is(err, ErrTruncated) {
		t.Fatalf("expected ErrTruncated, got %v", err)
	}
}

func TestCheckValue(t *testing.T) {
	tests := []struct {
		name    string
		col     Column
		v       Value
		wantErr bool
	}{
		{"int ok", NewColumn("a", Integer, false), NewInt(1), false},
		{"float ok", NewColumn("a", Float, false), NewFloat(1.5), false},
		{"bool ok", NewColumn("a", Boolean, false), NewBool(true), false},
		{"text ok", NewColumn("a", Text, false), NewString("x"), false},
		{"null into nullable", NewColumn("a", Text, true), Null(), false},
		{"null into not null", NewColumn("a", Text, false), Null(), true},
		{"int into text", NewColumn("a", Text, false), NewInt(1), true},
		{"string into int", NewColumn("a", Integer, false), NewString("1"), true},
		{"valid json", NewColumn("a", JSON, false), NewString(`{"x":[1,2]}`), false},
		{"invalid json", NewColumn("a", JSON, false), NewString(`{"x":`), true},
		{"reserved type", NewColumn("a", Decimal, false), NewFloat(1), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := CheckValue(tt.col, tt.v)
			if (err != nil) != tt.wantErr {
				t.Errorf("CheckValue = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestDataTypeCodes(t *testing.T) {
	// The on-disk enumeration is fixed.
	want := map[DataType]uint16{
		Integer: 1, Float: 2, Text: 3, Boolean: 4, Date: 5, Time: 6,
		Timestamp: 7, DateTime: 8, Char: 9, Blob: 10, JSON: 11,
		Decimal: 12, Double: 13, Real: 14, Numeric: 15, TinyInt: 16,
		SmallInt: 17, MediumInt: 18, BigInt: 19,
	}
	for dt, code := range want {
		if uint16(dt) != code {
			t.Errorf("%s: expected code %d, got %d", dt, code, uint16(dt))
		}
		back, err := DataTypeFromCode(code)
		if err != nil || back != dt {
			t.Errorf("code %d: expected %s, got %s (%v)", code, dt, back, err)
		}
	}

	if _, err := DataTypeFromCode(99); !errors.Is(err, ErrUnknownTypeCode) {
		t.Fatalf("expected ErrUnknownTypeCode, got %v", err)
	}
}
