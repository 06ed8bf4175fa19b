// ABOUTME: Tests for the statement parser
// ABOUTME: One test per statement form plus malformed-input errors

package sql

import (
	"errors"
	"testing"

	"github.com/meridb/meridb/pkg/record"
)

func mustParse(t *testing.T, input string) Statement {
	t.Helper()
	stmt, err := Parse(input)
	if err != nil {
		t.Fatalf("parse %q failed: %v", input, err)
	}
	return stmt
}

func TestParseCreateDatabase(t *testing.T) {
	stmt := mustParse(t, "CREATE DATABASE db1;")
	cd, ok := stmt.(*CreateDatabase)
	if !ok {
		t.Fatalf("expected CreateDatabase, got %T", stmt)
	}
	if cd.Name != "db1" {
		t.Errorf("expected db1, got %q", cd.Name)
	}
}

func TestParseUse(t *testing.T) {
	stmt := mustParse(t, "use db1")
	u, ok := stmt.(*UseDatabase)
	if !ok || u.Name != "db1" {
		t.Fatalf("expected UseDatabase db1, got %#v", stmt)
	}
}

func TestParseShow(t *testing.T) {
	if s := mustParse(t, "SHOW DATABASES;").(*Show); s.What != ShowDatabases {
		t.Error("expected ShowDatabases")
	}
	if s := mustParse(t, "show tables").(*Show); s.What != ShowTables {
		t.Error("expected ShowTables")
	}
}

func TestParseCreateTable(t *testing.T) {
	stmt := mustParse(t, "CREATE TABLE t (a INTEGER NOT NULL, b TEXT NULL, c FLOAT);")
	ct, ok := stmt.(*CreateTable)
	if !ok {
		t.Fatalf("expected CreateTable, got %T", stmt)
	}
	if ct.Name != "t" {
		t.Errorf("expected table t, got %q", ct.Name)
	}
	want := []ColumnDef{
		{Name: "a", Type: record.Integer, Nullable: false},
		{Name: "b", Type: record.Text, Nullable: true},
		{Name: "c", Type: record.Float, Nullable: true},
	}
	if len(ct.Columns) != len(want) {
		t.Fatalf("expected %d columns, got %d", len(want), len(ct.Columns))
	}
	for i, w := range want {
		if ct.Columns[i] != w {
			t.Errorf("column %d: expected %+v, got %+v", i, w, ct.Columns[i])
		}
	}
}

func TestParseCreateTableUnknownType(t *testing.T) {
	_, err := Parse("CREATE TABLE t (a WIBBLE)")
	var pe *ParseError
	if !errors.As(err, &pe) {
		t.Fatalf("expected ParseError, got %v", err)
	}
}

func TestParseInsert(t *testing.T) {
	stmt := mustParse(t, "INSERT INTO t VALUES (7, 'hi', 2.5, true, NULL, -3);")
	ins, ok := stmt.(*Insert)
	if !ok {
		t.Fatalf("expected Insert, got %T", stmt)
	}
	want := []record.Value{
		record.NewInt(7),
		record.NewString("hi"),
		record.NewFloat(2.5),
		record.NewBool(true),
		record.Null(),
		record.NewInt(-3),
	}
	if len(ins.Values) != len(want) {
		t.Fatalf("expected %d values, got %d", len(want), len(ins.Values))
	}
	for i, w := range want {
		if ins.Values[i] != w {
			t.Errorf("value %d: expected %+v, got %+v", i, w, ins.Values[i])
		}
	}
}

func TestParseSelect(t *testing.T) {
	stmt := mustParse(t, "SELECT a, b FROM t WHERE a = 1 AND (b != 'x' OR b < 'm');")
	sel, ok := stmt.(*Select)
	if !ok {
		t.Fatalf("expected Select, got %T", stmt)
	}
	if sel.Star || len(sel.Columns) != 2 {
		t.Errorf("expected 2 projected columns, got %v", sel.Columns)
	}
	root, ok := sel.Where.(*BinaryExpr)
	if !ok || root.Op != OpAnd {
		t.Fatalf("expected AND at root, got %#v", sel.Where)
	}
	right, ok := root.Right.(*BinaryExpr)
	if !ok || right.Op != OpOr {
		t.Fatalf("expected parenthesized OR on the right, got %#v", root.Right)
	}
}

func TestParseSelectStar(t *testing.T) {
	sel := mustParse(t, "SELECT * FROM t").(*Select)
	if !sel.Star {
		t.Error("expected star select")
	}
	if sel.Where != nil {
		t.Error("expected no where clause")
	}
}

func TestParseUpdate(t *testing.T) {
	stmt := mustParse(t, "UPDATE t SET a = 9, b = 'new' WHERE row_id = 1;")
	up, ok := stmt.(*Update)
	if !ok {
		t.Fatalf("expected Update, got %T", stmt)
	}
	if len(up.Assignments) != 2 {
		t.Fatalf("expected 2 assignments, got %d", len(up.Assignments))
	}
	if up.Assignments[0] != (Assignment{Column: "a", Value: record.NewInt(9)}) {
		t.Errorf("unexpected first assignment: %+v", up.Assignments[0])
	}
	cmp, ok := up.Where.(*BinaryExpr)
	if !ok || cmp.Op != OpEq {
		t.Fatalf("expected equality where, got %#v", up.Where)
	}
	if col, ok := cmp.Left.(*ColumnRef); !ok || col.Name != "row_id" {
		t.Errorf("expected row_id column ref, got %#v", cmp.Left)
	}
}

func TestParseDelete(t *testing.T) {
	stmt := mustParse(t, "DELETE FROM t WHERE a > 5")
	del, ok := stmt.(*Delete)
	if !ok || del.Table != "t" || del.Where == nil {
		t.Fatalf("unexpected delete: %#v", stmt)
	}

	del = mustParse(t, "DELETE FROM t").(*Delete)
	if del.Where != nil {
		t.Error("expected no where clause")
	}
}

func TestParseErrors(t *testing.T) {
	inputs := []string{
		"",
		"CREATE",
		"CREATE TABLE",
		"CREATE TABLE t",
		"CREATE TABLE t ()",
		"INSERT t VALUES (1)",
		"SELECT FROM t",
		"SELECT a FROM",
		"UPDATE t a = 1",
		"DELETE t",
		"SELECT a FROM t WHERE",
		"SELECT a FROM t trailing",
	}
	for _, input := range inputs {
		_, err := Parse(input)
		var pe *ParseError
		if !errors.As(err, &pe) {
			t.Errorf("%q: expected ParseError, got %v", input, err)
		}
	}
}
