// ABOUTME: Column data types and schema column definitions
// ABOUTME: Type codes are a stable on-disk enumeration; do not renumber

package record

import "fmt"

// DataType identifies a column type. The numeric values are written into
// schema.tbl and must stay stable across versions.
type DataType uint16

const (
	Integer   DataType = 1
	Float     DataType = 2
	Text      DataType = 3
	Boolean   DataType = 4
	Date      DataType = 5
	Time      DataType = 6
	Timestamp DataType = 7
	DateTime  DataType = 8
	Char      DataType = 9
	Blob      DataType = 10
	JSON      DataType = 11
	Decimal   DataType = 12
	Double    DataType = 13
	Real      DataType = 14
	Numeric   DataType = 15
	TinyInt   DataType = 16
	SmallInt  DataType = 17
	MediumInt DataType = 18
	BigInt    DataType = 19
)

var typeNames = map[DataType]string{
	Integer:   "INTEGER",
	Float:     "FLOAT",
	Text:      "TEXT",
	Boolean:   "BOOLEAN",
	Date:      "DATE",
	Time:      "TIME",
	Timestamp: "TIMESTAMP",
	DateTime:  "DATETIME",
	Char:      "CHAR",
	Blob:      "BLOB",
	JSON:      "JSON",
	Decimal:   "DECIMAL",
	Double:    "DOUBLE",
	Real:      "REAL",
	Numeric:   "NUMERIC",
	TinyInt:   "TINYINT",
	SmallInt:  "SMALLINT",
	MediumInt: "MEDIUMINT",
	BigInt:    "BIGINT",
}

func (dt DataType) String() string {
	if name, ok := typeNames[dt]; ok {
		return name
	}
	return fmt.Sprintf("DataType(%d)", uint16(dt))
}

// Valid reports whether dt is a known type code.
func (dt DataType) Valid() bool {
	_, ok := typeNames[dt]
	return ok
}

// Encodable reports whether row values of this type can be written into a
// heap page. The remaining codes round-trip through the schema codec only.
func (dt DataType) Encodable() bool {
	switch dt {
	case Integer, Float, Boolean, Text, Char, Blob, JSON:
		return true
	}
	return false
}

// DataTypeFromName maps an upper-case SQL type name to a DataType.
func DataTypeFromName(name string) (DataType, bool) {
	for dt, n := range typeNames {
		if n == name {
			return dt, true
		}
	}
	return 0, false
}

// DataTypeFromCode maps an on-disk type code back to a DataType.
func DataTypeFromCode(code uint16) (DataType, error) {
	dt := DataType(code)
	if !dt.Valid() {
		return 0, fmt.Errorf("%w: %d", ErrUnknownTypeCode, code)
	}
	return dt, nil
}

// Column is one schema column.
type Column struct {
	Name     string
	Type     DataType
	Nullable bool
}

// NewColumn builds a column definition.
func NewColumn(name string, dt DataType, nullable bool) Column {
	return Column{Name: name, Type: dt, Nullable: nullable}
}
