// ABOUTME: Compiles a WHERE expression into a predicate over records
// ABOUTME: NULL operands make any comparison false; no three-valued logic

package exec

import (
	"github.com/meridb/meridb/pkg/catalog"
	"github.com/meridb/meridb/pkg/record"
	"github.com/meridb/meridb/pkg/sql"
)

// rowIDColumn is the pseudo-column exposing a record's stable id to
// predicates.
const rowIDColumn = "row_id"

// compilePredicate turns an expression tree into a catalog predicate,
// validating column references against the table up front. A nil expression
// compiles to a nil predicate (match all).
func compilePredicate(t *catalog.Table, expr sql.Expr) (catalog.Predicate, error) {
	if expr == nil {
		return nil, nil
	}
	if err := checkExprColumns(t, expr); err != nil {
		return nil, err
	}
	return func(rec *record.Record) bool {
		return evalBool(rec, expr)
	}, nil
}

func checkExprColumns(t *catalog.Table, expr sql.Expr) error {
	switch e := expr.(type) {
	case *sql.ColumnRef:
		if e.Name == rowIDColumn {
			return nil
		}
		if _, ok := t.Column(e.Name); !ok {
			return &catalog.UnknownColumnError{Table: t.Name, Column: e.Name}
		}
	case *sql.BinaryExpr:
		if err := checkExprColumns(t, e.Left); err != nil {
			return err
		}
		return checkExprColumns(t, e.Right)
	}
	return nil
}

func evalBool(rec *record.Record, expr sql.Expr) bool {
	be, ok := expr.(*sql.BinaryExpr)
	if !ok {
		return false
	}
	switch be.Op {
	case sql.OpAnd:
		return evalBool(rec, be.Left) && evalBool(rec, be.Right)
	case sql.OpOr:
		return evalBool(rec, be.Left) || evalBool(rec, be.Right)
	default:
		left, lok := evalValue(rec, be.Left)
		right, rok := evalValue(rec, be.Right)
		if !lok || !rok {
			return false
		}
		return compareValues(left, right, be.Op)
	}
}

func evalValue(rec *record.Record, expr sql.Expr) (record.Value, bool) {
	switch e := expr.(type) {
	case *sql.ColumnRef:
		if e.Name == rowIDColumn {
			return record.NewInt(int64(rec.ID)), true
		}
		return rec.Get(e.Name), true
	case *sql.Literal:
		return e.Value, true
	}
	return record.Value{}, false
}

func compareValues(left, right record.Value, op sql.Op) bool {
	if left.IsNull() || right.IsNull() {
		return false
	}

	// Numeric operands compare across INT and FLOAT.
	if isNumeric(left) && isNumeric(right) {
		return compareFloats(asFloat(left), asFloat(right), op)
	}

	switch {
	case left.Kind == record.KindString && right.Kind == record.KindString:
		switch op {
		case sql.OpEq:
			return left.Str == right.Str
		case sql.OpNe:
			return left.Str != right.Str
		case sql.OpLt:
			return left.Str < right.Str
		case sql.OpLe:
			return left.Str <= right.Str
		case sql.OpGt:
			return left.Str > right.Str
		case sql.OpGe:
			return left.Str >= right.Str
		}
	case left.Kind == record.KindBool && right.Kind == record.KindBool:
		switch op {
		case sql.OpEq:
			return left.Bool == right.Bool
		case sql.OpNe:
			return left.Bool != right.Bool
		}
	}
	return false
}

func isNumeric(v record.Value) bool {
	return v.Kind == record.KindInt || v.Kind == record.KindFloat
}

func asFloat(v record.Value) float64 {
	if v.Kind == record.KindInt {
		return float64(v.Int)
	}
	return v.Float
}

func compareFloats(l, r float64, op sql.Op) bool {
	switch op {
	case sql.OpEq:
		return l == r
	case sql.OpNe:
		return l != r
	case sql.OpLt:
		return l < r
	case sql.OpLe:
		return l <= r
	case sql.OpGt:
		return l > r
	case sql.OpGe:
		return l >= r
	}
	return false
}
