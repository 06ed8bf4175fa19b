// ABOUTME: Statement and expression tree produced by the parser
// ABOUTME: Literals carry record.Value so the executor never re-parses

package sql

import "github.com/meridb/meridb/pkg/record"

// Statement is any parsed SQL statement.
type Statement interface {
	stmt()
}

// CreateDatabase is CREATE DATABASE <name>.
type CreateDatabase struct {
	Name string
}

// UseDatabase is USE <name>.
type UseDatabase struct {
	Name string
}

// ShowType selects what SHOW lists.
type ShowType int

const (
	ShowDatabases ShowType = iota
	ShowTables
)

// Show is SHOW DATABASES | SHOW TABLES.
type Show struct {
	What ShowType
}

// ColumnDef is one column in CREATE TABLE.
type ColumnDef struct {
	Name     string
	Type     record.DataType
	Nullable bool
}

// CreateTable is CREATE TABLE <name> (<columns>).
type CreateTable struct {
	Name    string
	Columns []ColumnDef
}

// Insert is INSERT INTO <table> VALUES (<literals>), positional in schema
// order.
type Insert struct {
	Table  string
	Values []record.Value
}

// Select is SELECT <cols|*> FROM <table> [WHERE <expr>].
type Select struct {
	Columns []string
	Star    bool
	Table   string
	Where   Expr
}

// Assignment is one SET <column> = <literal> pair.
type Assignment struct {
	Column string
	Value  record.Value
}

// Update is UPDATE <table> SET ... [WHERE <expr>].
type Update struct {
	Table       string
	Assignments []Assignment
	Where       Expr
}

// Delete is DELETE FROM <table> [WHERE <expr>].
type Delete struct {
	Table string
	Where Expr
}

func (*CreateDatabase) stmt() {}
func (*UseDatabase) stmt()    {}
func (*Show) stmt()           {}
func (*CreateTable) stmt()    {}
func (*Insert) stmt()         {}
func (*Select) stmt()         {}
func (*Update) stmt()         {}
func (*Delete) stmt()         {}

// Expr is a predicate expression over one row.
type Expr interface {
	expr()
}

// ColumnRef names a column.
type ColumnRef struct {
	Name string
}

// Literal is a constant value.
type Literal struct {
	Value record.Value
}

// Op is a binary operator.
type Op int

const (
	OpEq Op = iota
	OpNe
	OpLt
	OpLe
	OpGt
	OpGe
	OpAnd
	OpOr
)

func (o Op) String() string {
	switch o {
	case OpEq:
		return "="
	case OpNe:
		return "!="
	case OpLt:
		return "<"
	case OpLe:
		return "<="
	case OpGt:
		return ">"
	case OpGe:
		return ">="
	case OpAnd:
		return "AND"
	case OpOr:
		return "OR"
	}
	return "?"
}

// BinaryExpr combines two operands with an operator.
type BinaryExpr struct {
	Op    Op
	Left  Expr
	Right Expr
}

func (*ColumnRef) expr()  {}
func (*Literal) expr()    {}
func (*BinaryExpr) expr() {}
