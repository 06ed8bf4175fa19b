// ABOUTME: Execution results and their plain-text rendering for the REPL
// ABOUTME: Select results carry projected values, mutations carry counts

package exec

import (
	"fmt"
	"strings"

	"github.com/meridb/meridb/pkg/record"
)

// ResultKind discriminates Result variants.
type ResultKind int

const (
	ResultSelect ResultKind = iota
	ResultInsert
	ResultUpdate
	ResultDelete
	ResultCreate
	ResultUse
	ResultShow
)

// Result is the outcome of one executed statement.
type Result struct {
	Kind     ResultKind
	Columns  []string
	Rows     [][]record.Value
	Affected uint64
	Names    []string
	Database string
}

// Render formats a result for terminal output.
func (r *Result) Render() string {
	switch r.Kind {
	case ResultSelect:
		return renderTable(r.Columns, r.Rows)
	case ResultInsert:
		return fmt.Sprintf("%d row(s) inserted", r.Affected)
	case ResultUpdate:
		return fmt.Sprintf("%d row(s) updated", r.Affected)
	case ResultDelete:
		return fmt.Sprintf("%d row(s) deleted", r.Affected)
	case ResultCreate:
		return "created"
	case ResultUse:
		return fmt.Sprintf("using %s", r.Database)
	case ResultShow:
		if len(r.Names) == 0 {
			return "(none)"
		}
		return strings.Join(r.Names, "\n")
	}
	return ""
}

func renderTable(columns []string, rows [][]record.Value) string {
	widths := make([]int, len(columns))
	for i, c := range columns {
		widths[i] = len(c)
	}
	cells := make([][]string, len(rows))
	for ri, row := range rows {
		cells[ri] = make([]string, len(row))
		for ci, v := range row {
			s := v.String()
			cells[ri][ci] = s
			if ci < len(widths) && len(s) > widths[ci] {
				widths[ci] = len(s)
			}
		}
	}

	var b strings.Builder
	writeRow := func(vals []string) {
		for i, v := range vals {
			if i > 0 {
				b.WriteString("  ")
			}
			b.WriteString(v)
			if pad := widths[i] - len(v); pad > 0 && i < len(vals)-1 {
				b.WriteString(strings.Repeat(" ", pad))
			}
		}
		b.WriteByte('\n')
	}

	writeRow(columns)
	seps := make([]string, len(columns))
	for i := range columns {
		seps[i] = strings.Repeat("-", widths[i])
	}
	writeRow(seps)
	for _, row := range cells {
		writeRow(row)
	}
	fmt.Fprintf(&b, "%d row(s)", len(rows))
	return b.String()
}
