// ABOUTME: File-backed catalog: database directories, table registry,
// ABOUTME: metadata/schema persistence, and in-memory state lifecycle

package catalog

import (
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"time"

	"github.com/meridb/meridb/pkg/codec"
	"github.com/meridb/meridb/pkg/heap"
	"github.com/meridb/meridb/pkg/page"
	"github.com/meridb/meridb/pkg/record"
)

const (
	metadataFile = "metadata.mdb"
	metadataTmp  = "metadata.tmp"
	schemaFile   = "schema.tbl"
	schemaTmp    = "schema.tmp"
	tablesDir    = "tables"
	dataDir      = "data"
)

var (
	dbNameRe    = regexp.MustCompile(`^[A-Za-z0-9_-]{1,128}$`)
	tableNameRe = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]{0,127}$`)
)

// Predicate filters decoded records during a scan. A nil predicate accepts
// every record.
type Predicate func(*record.Record) bool

// Catalog is the storage core's public surface. A session owns exactly one
// catalog; all mutation is sequentialized through it.
type Catalog interface {
	CreateDatabase(name string) error
	UseDatabase(name string) error
	CurrentDatabase() (string, bool)
	ListDatabases() ([]string, error)
	ListTables() ([]string, error)
	CreateTable(name string, columns []record.Column) error
	Table(name string) (*Table, error)

	NextRowID(table string) (uint64, error)
	GetTupleLoc(table string, rowID uint64) (TupleLoc, bool, error)
	AppendRecord(table string, rowID uint64, values record.Row) (TupleLoc, error)
	UpdateRecord(table string, old TupleLoc, rowID uint64, values record.Row) (TupleLoc, error)
	Tombstone(table string, old TupleLoc) error
	SeqScanPages(table string, fn func(pid uint32, p page.Page) (bool, error)) error
	SyncTable(table string) error

	Insert(table string, values record.Row) (uint64, error)
	Scan(table string, pred Predicate) ([]*record.Record, error)

	Close() error
}

// FileCatalog is the on-disk catalog rooted at a data directory:
//
//	<root>/<database>/metadata.mdb
//	<root>/<database>/tables/<table>/schema.tbl
//	<root>/<database>/tables/<table>/data/heap.0001
type FileCatalog struct {
	root      string
	currentDB string
	tables    map[string]*Table
	states    map[string]*tableState
}

var _ Catalog = (*FileCatalog)(nil)

// NewFileCatalog creates a catalog over root. No current database is
// selected until CreateDatabase or UseDatabase.
func NewFileCatalog(root string) *FileCatalog {
	return &FileCatalog{
		root:   root,
		tables: make(map[string]*Table),
		states: make(map[string]*tableState),
	}
}

// CurrentDatabase returns the selected database, if any.
func (c *FileCatalog) CurrentDatabase() (string, bool) {
	return c.currentDB, c.currentDB != ""
}

// CreateDatabase creates <root>/<name>/tables/, writes metadata.mdb
// atomically, and selects the new database.
func (c *FileCatalog) CreateDatabase(name string) error {
	if !dbNameRe.MatchString(name) {
		return &InvalidNameError{Name: name}
	}

	dbDir := filepath.Join(c.root, name)
	if _, err := os.Stat(dbDir); err == nil {
		return &AlreadyExistsError{Name: name, Path: dbDir}
	}

	tDir := filepath.Join(dbDir, tablesDir)
	if err := os.MkdirAll(tDir, 0o755); err != nil {
		return &FSError{Op: OpCreateDir, Path: tDir, Err: err}
	}

	meta := codec.EncodeMeta(name, uint64(time.Now().Unix()), 0)
	tmp := filepath.Join(dbDir, metadataTmp)
	final := filepath.Join(dbDir, metadataFile)
	if err := atomicWriteFile(tmp, final, meta); err != nil {
		return err
	}

	c.reset(name)
	return nil
}

// UseDatabase verifies the database directory and metadata, selects it, and
// rebuilds the in-memory registry and per-table state from disk.
func (c *FileCatalog) UseDatabase(name string) error {
	dbDir := filepath.Join(c.root, name)
	st, err := os.Stat(dbDir)
	if err != nil {
		if os.IsNotExist(err) {
			return ErrDatabaseDirMissing
		}
		return &FSError{Op: OpOpenFile, Path: dbDir, Err: err}
	}
	if !st.IsDir() {
		return ErrDatabaseDirNotDir
	}

	metaPath := filepath.Join(dbDir, metadataFile)
	metaBytes, err := os.ReadFile(metaPath)
	if err != nil {
		if os.IsNotExist(err) {
			return ErrMetadataMissing
		}
		return &FSError{Op: OpReadFile, Path: metaPath, Err: err}
	}
	if _, err := codec.DecodeMeta(metaBytes); err != nil {
		return &InvalidMetadataError{Path: metaPath, Err: err}
	}

	c.reset(name)

	tDir := filepath.Join(dbDir, tablesDir)
	entries, err := os.ReadDir(tDir)
	if err != nil {
		if os.IsNotExist(err) {
			return ErrTablesDirMissing
		}
		return &FSError{Op: OpReadDir, Path: tDir, Err: err}
	}

	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		if err := c.loadTable(filepath.Join(tDir, e.Name())); err != nil {
			return err
		}
	}
	return nil
}

// loadTable registers one table from its directory and rebuilds its state
// by scanning the heap segment.
func (c *FileCatalog) loadTable(tableDir string) error {
	schemaPath := filepath.Join(tableDir, schemaFile)
	blob, err := os.ReadFile(schemaPath)
	if err != nil {
		return &FSError{Op: OpReadFile, Path: schemaPath, Err: err}
	}
	name, columns, err := codec.DecodeSchema(blob)
	if err != nil {
		return &InvalidMetadataError{Path: schemaPath, Err: err}
	}

	seg, err := heap.Open(filepath.Join(tableDir, dataDir))
	if err != nil {
		return err
	}

	ts := newTableState(seg)
	if err := recoverState(ts); err != nil {
		seg.Close()
		return err
	}

	c.tables[name] = &Table{Name: name, Columns: columns}
	c.states[name] = ts
	return nil
}

// CreateTable creates the table directory tree under the current database,
// writes schema.tbl atomically, and registers an empty state.
func (c *FileCatalog) CreateTable(name string, columns []record.Column) error {
	if c.currentDB == "" {
		return ErrNoCurrentDatabase
	}
	if !tableNameRe.MatchString(name) {
		return &InvalidNameError{Name: name}
	}

	tableDir := filepath.Join(c.root, c.currentDB, tablesDir, name)
	if _, err := os.Stat(tableDir); err == nil {
		return &AlreadyExistsError{Name: name, Path: tableDir}
	}

	dDir := filepath.Join(tableDir, dataDir)
	if err := os.MkdirAll(dDir, 0o755); err != nil {
		return &FSError{Op: OpCreateDir, Path: dDir, Err: err}
	}

	blob := codec.EncodeSchema(name, columns)
	tmp := filepath.Join(tableDir, schemaTmp)
	final := filepath.Join(tableDir, schemaFile)
	if err := atomicWriteFile(tmp, final, blob); err != nil {
		return err
	}

	seg, err := heap.Open(dDir)
	if err != nil {
		return err
	}

	c.tables[name] = &Table{Name: name, Columns: columns}
	c.states[name] = newTableState(seg)
	return nil
}

// ListDatabases enumerates root subdirectories holding a valid
// metadata.mdb and returns their stored names, sorted.
func (c *FileCatalog) ListDatabases() ([]string, error) {
	st, err := os.Stat(c.root)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrRootMissing
		}
		return nil, &FSError{Op: OpOpenFile, Path: c.root, Err: err}
	}
	if !st.IsDir() {
		return nil, ErrRootNotDir
	}

	entries, err := os.ReadDir(c.root)
	if err != nil {
		return nil, &FSError{Op: OpReadDir, Path: c.root, Err: err}
	}

	var names []string
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		metaPath := filepath.Join(c.root, e.Name(), metadataFile)
		blob, err := os.ReadFile(metaPath)
		if err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return nil, &FSError{Op: OpReadFile, Path: metaPath, Err: err}
		}
		meta, err := codec.DecodeMeta(blob)
		if err != nil {
			return nil, &InvalidMetadataError{Path: metaPath, Err: err}
		}
		names = append(names, meta.Name)
	}
	sort.Strings(names)
	return names, nil
}

// ListTables enumerates table directories of the current database, sorted.
// Schema integrity is not verified here.
func (c *FileCatalog) ListTables() ([]string, error) {
	if c.currentDB == "" {
		return nil, ErrNoCurrentDatabase
	}
	tDir := filepath.Join(c.root, c.currentDB, tablesDir)
	st, err := os.Stat(tDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrTablesDirMissing
		}
		return nil, &FSError{Op: OpOpenFile, Path: tDir, Err: err}
	}
	if !st.IsDir() {
		return nil, ErrTablesDirNotDir
	}

	entries, err := os.ReadDir(tDir)
	if err != nil {
		return nil, &FSError{Op: OpReadDir, Path: tDir, Err: err}
	}
	var names []string
	for _, e := range entries {
		if e.IsDir() {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)
	return names, nil
}

// Table returns the registered table.
func (c *FileCatalog) Table(name string) (*Table, error) {
	t, ok := c.tables[name]
	if !ok {
		return nil, &TableNotFoundError{Table: name}
	}
	return t, nil
}

func (c *FileCatalog) state(table string) (*tableState, error) {
	ts, ok := c.states[table]
	if !ok {
		return nil, &TableNotFoundError{Table: table}
	}
	return ts, nil
}

// reset selects a database and drops all in-memory table state, closing
// open segments.
func (c *FileCatalog) reset(db string) {
	for _, ts := range c.states {
		ts.seg.Close()
	}
	c.currentDB = db
	c.tables = make(map[string]*Table)
	c.states = make(map[string]*tableState)
}

// Close releases every open segment handle.
func (c *FileCatalog) Close() error {
	var firstErr error
	for _, ts := range c.states {
		if err := ts.seg.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	c.states = make(map[string]*tableState)
	c.tables = make(map[string]*Table)
	return firstErr
}
