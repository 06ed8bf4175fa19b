// ABOUTME: Statement executor over the catalog API
// ABOUTME: Reads go through Scan; writes through Insert/UpdateRecord/Tombstone

package exec

import (
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/meridb/meridb/internal/metrics"
	"github.com/meridb/meridb/pkg/catalog"
	"github.com/meridb/meridb/pkg/record"
	"github.com/meridb/meridb/pkg/sql"
)

// Executor orchestrates statements against one catalog. It owns no storage
// state of its own; everything flows through the catalog interface.
type Executor struct {
	cat     catalog.Catalog
	log     zerolog.Logger
	metrics *metrics.Metrics
}

// New creates an executor bound to a catalog.
func New(cat catalog.Catalog, log zerolog.Logger, m *metrics.Metrics) *Executor {
	return &Executor{cat: cat, log: log, metrics: m}
}

// Execute runs one parsed statement.
func (e *Executor) Execute(stmt sql.Statement) (*Result, error) {
	start := time.Now()
	op := statementName(stmt)

	res, err := e.dispatch(stmt)

	if e.metrics != nil {
		e.metrics.ObserveOperation(op, err, start)
	}
	if err != nil {
		e.log.Debug().Str("statement", op).Err(err).Msg("statement failed")
		return nil, err
	}
	e.log.Debug().Str("statement", op).Dur("elapsed", time.Since(start)).Msg("statement ok")
	return res, nil
}

func (e *Executor) dispatch(stmt sql.Statement) (*Result, error) {
	switch s := stmt.(type) {
	case *sql.CreateDatabase:
		if err := e.cat.CreateDatabase(s.Name); err != nil {
			return nil, err
		}
		return &Result{Kind: ResultCreate}, nil
	case *sql.UseDatabase:
		if err := e.cat.UseDatabase(s.Name); err != nil {
			return nil, err
		}
		return &Result{Kind: ResultUse, Database: s.Name}, nil
	case *sql.Show:
		return e.executeShow(s)
	case *sql.CreateTable:
		return e.executeCreateTable(s)
	case *sql.Insert:
		return e.executeInsert(s)
	case *sql.Select:
		return e.executeSelect(s)
	case *sql.Update:
		return e.executeUpdate(s)
	case *sql.Delete:
		return e.executeDelete(s)
	default:
		return nil, fmt.Errorf("exec: unhandled statement %T", stmt)
	}
}

func (e *Executor) executeShow(s *sql.Show) (*Result, error) {
	var names []string
	var err error
	if s.What == sql.ShowDatabases {
		names, err = e.cat.ListDatabases()
	} else {
		names, err = e.cat.ListTables()
	}
	if err != nil {
		return nil, err
	}
	return &Result{Kind: ResultShow, Names: names}, nil
}

func (e *Executor) executeCreateTable(s *sql.CreateTable) (*Result, error) {
	columns := make([]record.Column, 0, len(s.Columns))
	for _, def := range s.Columns {
		columns = append(columns, record.NewColumn(def.Name, def.Type, def.Nullable))
	}
	if err := e.cat.CreateTable(s.Name, columns); err != nil {
		return nil, err
	}
	if e.metrics != nil {
		e.metrics.TablesTotal.Inc()
	}
	return &Result{Kind: ResultCreate}, nil
}

func (e *Executor) executeInsert(s *sql.Insert) (*Result, error) {
	t, err := e.cat.Table(s.Table)
	if err != nil {
		return nil, err
	}
	if len(s.Values) != len(t.Columns) {
		return nil, fmt.Errorf("%w: table %q has %d columns, got %d values",
			catalog.ErrColumnCountMismatch, t.Name, len(t.Columns), len(s.Values))
	}

	values := make(record.Row, len(t.Columns))
	for i, col := range t.Columns {
		values[col.Name] = s.Values[i]
	}

	rowID, err := e.cat.Insert(s.Table, values)
	if err != nil {
		return nil, err
	}
	if err := e.cat.SyncTable(s.Table); err != nil {
		return nil, err
	}
	if e.metrics != nil {
		e.metrics.RowsInsertedTotal.Inc()
	}
	e.log.Debug().Str("table", s.Table).Uint64("row_id", rowID).Msg("row inserted")
	return &Result{Kind: ResultInsert, Affected: 1}, nil
}

func (e *Executor) executeSelect(s *sql.Select) (*Result, error) {
	t, err := e.cat.Table(s.Table)
	if err != nil {
		return nil, err
	}

	columns := s.Columns
	if s.Star {
		columns = make([]string, 0, len(t.Columns))
		for _, c := range t.Columns {
			columns = append(columns, c.Name)
		}
	}
	for _, name := range columns {
		if _, ok := t.Column(name); !ok && name != rowIDColumn {
			return nil, &catalog.UnknownColumnError{Table: t.Name, Column: name}
		}
	}

	pred, err := compilePredicate(t, s.Where)
	if err != nil {
		return nil, err
	}

	recs, err := e.cat.Scan(s.Table, pred)
	if err != nil {
		return nil, err
	}
	if e.metrics != nil {
		e.metrics.ScansTotal.Inc()
	}

	rows := make([][]record.Value, 0, len(recs))
	for _, rec := range recs {
		row := make([]record.Value, len(columns))
		for i, name := range columns {
			if name == rowIDColumn {
				row[i] = record.NewInt(int64(rec.ID))
			} else {
				row[i] = rec.Get(name)
			}
		}
		rows = append(rows, row)
	}

	return &Result{Kind: ResultSelect, Columns: columns, Rows: rows}, nil
}

func (e *Executor) executeUpdate(s *sql.Update) (*Result, error) {
	t, err := e.cat.Table(s.Table)
	if err != nil {
		return nil, err
	}
	for _, a := range s.Assignments {
		if _, ok := t.Column(a.Column); !ok {
			return nil, &catalog.UnknownColumnError{Table: t.Name, Column: a.Column}
		}
	}

	pred, err := compilePredicate(t, s.Where)
	if err != nil {
		return nil, err
	}
	recs, err := e.cat.Scan(s.Table, pred)
	if err != nil {
		return nil, err
	}

	var updated uint64
	for _, rec := range recs {
		loc, ok, err := e.cat.GetTupleLoc(s.Table, rec.ID)
		if err != nil {
			return nil, err
		}
		if !ok {
			continue
		}

		values := make(record.Row, len(rec.Values))
		for k, v := range rec.Values {
			values[k] = v
		}
		for _, a := range s.Assignments {
			values[a.Column] = a.Value
		}

		if _, err := e.cat.UpdateRecord(s.Table, loc, rec.ID, values); err != nil {
			return nil, err
		}
		updated++
	}

	if updated > 0 {
		if err := e.cat.SyncTable(s.Table); err != nil {
			return nil, err
		}
	}
	if e.metrics != nil {
		e.metrics.RowsUpdatedTotal.Add(float64(updated))
	}
	return &Result{Kind: ResultUpdate, Affected: updated}, nil
}

func (e *Executor) executeDelete(s *sql.Delete) (*Result, error) {
	t, err := e.cat.Table(s.Table)
	if err != nil {
		return nil, err
	}
	pred, err := compilePredicate(t, s.Where)
	if err != nil {
		return nil, err
	}
	recs, err := e.cat.Scan(s.Table, pred)
	if err != nil {
		return nil, err
	}

	var deleted uint64
	for _, rec := range recs {
		loc, ok, err := e.cat.GetTupleLoc(s.Table, rec.ID)
		if err != nil {
			return nil, err
		}
		if !ok {
			continue
		}
		if err := e.cat.Tombstone(s.Table, loc); err != nil {
			return nil, err
		}
		deleted++
	}

	if deleted > 0 {
		if err := e.cat.SyncTable(s.Table); err != nil {
			return nil, err
		}
	}
	if e.metrics != nil {
		e.metrics.RowsDeletedTotal.Add(float64(deleted))
	}
	return &Result{Kind: ResultDelete, Affected: deleted}, nil
}

func statementName(stmt sql.Statement) string {
	switch stmt.(type) {
	case *sql.CreateDatabase:
		return "create_database"
	case *sql.UseDatabase:
		return "use_database"
	case *sql.Show:
		return "show"
	case *sql.CreateTable:
		return "create_table"
	case *sql.Insert:
		return "insert"
	case *sql.Select:
		return "select"
	case *sql.Update:
		return "update"
	case *sql.Delete:
		return "delete"
	}
	return "unknown"
}
