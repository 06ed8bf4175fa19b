// ABOUTME: End-to-end statement tests over a file-backed catalog
// ABOUTME: Replays the create/insert/update/delete/select lifecycles

package exec

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/meridb/meridb/pkg/catalog"
	"github.com/meridb/meridb/pkg/record"
	"github.com/meridb/meridb/pkg/sql"
)

type session struct {
	exec *Executor
	cat  *catalog.FileCatalog
	root string
}

func newSession(t *testing.T, root string) *session {
	t.Helper()
	cat := catalog.NewFileCatalog(root)
	t.Cleanup(func() { cat.Close() })
	// Metrics stay nil in tests; promauto registration is process-global.
	return &session{
		exec: New(cat, zerolog.Nop(), nil),
		cat:  cat,
		root: root,
	}
}

func (s *session) run(t *testing.T, stmtText string) *Result {
	t.Helper()
	stmt, err := sql.Parse(stmtText)
	require.NoError(t, err, stmtText)
	res, err := s.exec.Execute(stmt)
	require.NoError(t, err, stmtText)
	return res
}

func (s *session) runErr(t *testing.T, stmtText string) error {
	t.Helper()
	stmt, err := sql.Parse(stmtText)
	require.NoError(t, err, stmtText)
	_, err = s.exec.Execute(stmt)
	require.Error(t, err, stmtText)
	return err
}

func seed(t *testing.T, s *session) {
	s.run(t, "CREATE DATABASE db1")
	s.run(t, "USE db1")
	s.run(t, "CREATE TABLE t (a INTEGER NOT NULL, b TEXT NULL)")
	s.run(t, "INSERT INTO t VALUES (7, 'hi')")
	s.run(t, "INSERT INTO t VALUES (8, NULL)")
}

func TestScenarioCreateInsertSelect(t *testing.T) {
	s := newSession(t, t.TempDir())
	seed(t, s)

	res := s.run(t, "SELECT a, b FROM t")
	require.Equal(t, []string{"a", "b"}, res.Columns)
	want := [][]record.Value{
		{record.NewInt(7), record.NewString("hi")},
		{record.NewInt(8), record.Null()},
	}
	if diff := cmp.Diff(want, res.Rows); diff != "" {
		t.Errorf("rows mismatch (-want +got):\n%s", diff)
	}
}

func TestScenarioInPlaceUpdate(t *testing.T) {
	s := newSession(t, t.TempDir())
	seed(t, s)

	before, ok, err := s.cat.GetTupleLoc("t", 1)
	require.NoError(t, err)
	require.True(t, ok)

	res := s.run(t, "UPDATE t SET a = 9 WHERE row_id = 1")
	require.Equal(t, uint64(1), res.Affected)

	after, ok, err := s.cat.GetTupleLoc("t", 1)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, before, after, "fixed-width update must stay in place")

	res = s.run(t, "SELECT a, b FROM t")
	want := [][]record.Value{
		{record.NewInt(9), record.NewString("hi")},
		{record.NewInt(8), record.Null()},
	}
	if diff := cmp.Diff(want, res.Rows); diff != "" {
		t.Errorf("rows mismatch (-want +got):\n%s", diff)
	}
}

func TestScenarioRelocatingUpdate(t *testing.T) {
	s := newSession(t, t.TempDir())
	seed(t, s)

	before, _, err := s.cat.GetTupleLoc("t", 1)
	require.NoError(t, err)

	s.run(t, "UPDATE t SET b = 'a much longer string than before' WHERE row_id = 1")

	after, ok, err := s.cat.GetTupleLoc("t", 1)
	require.NoError(t, err)
	require.True(t, ok)
	require.True(t, after.After(before), "grown row must relocate forward")

	res := s.run(t, "SELECT a, b FROM t")
	want := [][]record.Value{
		{record.NewInt(7), record.NewString("a much longer string than before")},
		{record.NewInt(8), record.Null()},
	}
	if diff := cmp.Diff(want, res.Rows); diff != "" {
		t.Errorf("rows mismatch (-want +got):\n%s", diff)
	}
}

func TestScenarioDeleteReinsert(t *testing.T) {
	s := newSession(t, t.TempDir())
	seed(t, s)

	res := s.run(t, "DELETE FROM t WHERE row_id = 1")
	require.Equal(t, uint64(1), res.Affected)

	res = s.run(t, "SELECT a FROM t")
	require.Len(t, res.Rows, 1)
	require.Equal(t, record.NewInt(8), res.Rows[0][0])

	s.run(t, "INSERT INTO t VALUES (10, 'x')")
	res = s.run(t, "SELECT row_id, a FROM t")
	want := [][]record.Value{
		{record.NewInt(2), record.NewInt(8)},
		{record.NewInt(3), record.NewInt(10)},
	}
	if diff := cmp.Diff(want, res.Rows); diff != "" {
		t.Errorf("rows mismatch (-want +got):\n%s", diff)
	}
}

func TestScenarioCrashRecovery(t *testing.T) {
	root := t.TempDir()
	s := newSession(t, root)
	seed(t, s)
	s.run(t, "UPDATE t SET b = 'a much longer string than before' WHERE row_id = 1")
	require.NoError(t, s.cat.Close())

	// Restart: fresh session over the same data directory.
	s2 := newSession(t, root)
	s2.run(t, "USE db1")

	res := s2.run(t, "SELECT a, b FROM t")
	want := [][]record.Value{
		{record.NewInt(7), record.NewString("a much longer string than before")},
		{record.NewInt(8), record.Null()},
	}
	if diff := cmp.Diff(want, res.Rows); diff != "" {
		t.Errorf("rows mismatch (-want +got):\n%s", diff)
	}

	next, err := s2.cat.NextRowID("t")
	require.NoError(t, err)
	require.Equal(t, uint64(3), next)
}

func TestShowStatements(t *testing.T) {
	s := newSession(t, t.TempDir())
	s.run(t, "CREATE DATABASE bbb")
	s.run(t, "CREATE DATABASE aaa")

	res := s.run(t, "SHOW DATABASES")
	require.Equal(t, []string{"aaa", "bbb"}, res.Names)

	s.run(t, "USE aaa")
	s.run(t, "CREATE TABLE t2 (x INTEGER)")
	s.run(t, "CREATE TABLE t1 (x INTEGER)")
	res = s.run(t, "SHOW TABLES")
	require.Equal(t, []string{"t1", "t2"}, res.Names)
}

func TestSelectStarAndProjection(t *testing.T) {
	s := newSession(t, t.TempDir())
	seed(t, s)

	res := s.run(t, "SELECT * FROM t")
	require.Equal(t, []string{"a", "b"}, res.Columns)

	res = s.run(t, "SELECT b FROM t WHERE a = 7")
	require.Len(t, res.Rows, 1)
	require.Equal(t, record.NewString("hi"), res.Rows[0][0])

	err := s.runErr(t, "SELECT nope FROM t")
	var uc *catalog.UnknownColumnError
	require.ErrorAs(t, err, &uc)
}

func TestPredicateOperators(t *testing.T) {
	s := newSession(t, t.TempDir())
	s.run(t, "CREATE DATABASE db")
	s.run(t, "USE db")
	s.run(t, "CREATE TABLE n (v INTEGER NOT NULL, s TEXT NULL)")
	for _, stmt := range []string{
		"INSERT INTO n VALUES (1, 'one')",
		"INSERT INTO n VALUES (2, 'two')",
		"INSERT INTO n VALUES (3, NULL)",
	} {
		s.run(t, stmt)
	}

	cases := []struct {
		where string
		want  int
	}{
		{"v = 2", 1},
		{"v != 2", 2},
		{"v < 3", 2},
		{"v <= 3", 3},
		{"v > 3", 0},
		{"v >= 1 AND v < 3", 2},
		{"v = 1 OR v = 3", 2},
		{"s = 'one'", 1},
		// NULL never compares equal, not even to itself.
		{"s = s", 2},
	}
	for _, tc := range cases {
		res := s.run(t, "SELECT v FROM n WHERE "+tc.where)
		require.Len(t, res.Rows, tc.want, tc.where)
	}
}

func TestInsertErrors(t *testing.T) {
	s := newSession(t, t.TempDir())
	seed(t, s)

	require.ErrorIs(t, s.runErr(t, "INSERT INTO t VALUES (1)"), catalog.ErrColumnCountMismatch)

	var nn *record.NotNullError
	require.ErrorAs(t, s.runErr(t, "INSERT INTO t VALUES (NULL, 'x')"), &nn)

	var tm *record.TypeMismatchError
	require.ErrorAs(t, s.runErr(t, "INSERT INTO t VALUES ('str', 'x')"), &tm)

	var nf *catalog.TableNotFoundError
	require.ErrorAs(t, s.runErr(t, "INSERT INTO ghost VALUES (1)"), &nf)
}

func TestUpdateMultipleRows(t *testing.T) {
	s := newSession(t, t.TempDir())
	seed(t, s)

	res := s.run(t, "UPDATE t SET a = 0")
	require.Equal(t, uint64(2), res.Affected)

	res = s.run(t, "SELECT a FROM t")
	for _, row := range res.Rows {
		require.Equal(t, record.NewInt(0), row[0])
	}
}

func TestJSONColumnValidation(t *testing.T) {
	s := newSession(t, t.TempDir())
	s.run(t, "CREATE DATABASE db")
	s.run(t, "USE db")
	s.run(t, "CREATE TABLE cfg (doc JSON NOT NULL)")

	s.run(t, `INSERT INTO cfg VALUES ('{"retries": 3}')`)

	var tm *record.TypeMismatchError
	require.ErrorAs(t, s.runErr(t, "INSERT INTO cfg VALUES ('{broken')"), &tm)
}
