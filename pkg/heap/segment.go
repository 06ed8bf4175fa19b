// ABOUTME: Page-addressed heap segment file (data/heap.0001)
// ABOUTME: Page pid lives at byte offset pid * page.Size; length is k * page.Size

package heap

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/meridb/meridb/pkg/page"
)

// SegmentFile is the fixed name of the first (and currently only) heap
// segment. The 4-digit suffix leaves room for rollover.
const SegmentFile = "heap.0001"

var (
	// ErrEndOfFile indicates a read past the last full page.
	ErrEndOfFile = errors.New("heap: page beyond end of segment")

	// ErrShortPage names a trailing region shorter than one page. No
	// function in this package returns it: ReadPage reports such a page as
	// ErrEndOfFile and ScanPages stops before it.
	ErrShortPage = errors.New("heap: segment ends inside a page")
)

// Segment is an open heap segment. One writer at a time; the catalog
// sequentializes all access.
type Segment struct {
	path string
	f    *os.File
}

// Open opens (creating if missing) the segment file under dataDir. A newly
// created segment is empty; the parent directory is fsynced so the file
// survives a crash.
func Open(dataDir string) (*Segment, error) {
	path := filepath.Join(dataDir, SegmentFile)
	_, statErr := os.Stat(path)
	created := os.IsNotExist(statErr)

	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0o644)
	if err != nil {
		return nil, fmt.Errorf("heap: open %s: %w", path, err)
	}
	if created {
		if err := fsyncDir(dataDir); err != nil {
			f.Close()
			return nil, err
		}
	}
	return &Segment{path: path, f: f}, nil
}

// Path returns the segment file path.
func (s *Segment) Path() string {
	return s.path
}

// NumPages returns the number of full pages in the segment.
func (s *Segment) NumPages() (uint32, error) {
	st, err := s.f.Stat()
	if err != nil {
		return 0, fmt.Errorf("heap: stat %s: %w", s.path, err)
	}
	return uint32(st.Size() / page.Size), nil
}

// ReadPage reads page pid into a fresh buffer.
func (s *Segment) ReadPage(pid uint32) (page.Page, error) {
	buf := make([]byte, page.Size)
	_, err := s.f.ReadAt(buf, int64(pid)*page.Size)
	if err != nil {
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			return nil, fmt.Errorf("%w: page %d of %s", ErrEndOfFile, pid, s.path)
		}
		return nil, fmt.Errorf("heap: read page %d of %s: %w", pid, s.path, err)
	}
	return page.Page(buf), nil
}

// WritePage writes a full page at its offset. Durability is deferred to
// Sync; the caller chooses the boundaries.
func (s *Segment) WritePage(pid uint32, p page.Page) error {
	if len(p) != page.Size {
		return fmt.Errorf("heap: write page %d of %s: buffer is %d bytes, want %d", pid, s.path, len(p), page.Size)
	}
	if _, err := s.f.WriteAt(p, int64(pid)*page.Size); err != nil {
		return fmt.Errorf("heap: write page %d of %s: %w", pid, s.path, err)
	}
	return nil
}

// ScanPages reads the segment front to back, invoking fn for each full
// page. An incomplete trailing region terminates the scan cleanly; other
// I/O errors propagate. fn returning false stops the scan.
func (s *Segment) ScanPages(fn func(pid uint32, p page.Page) (bool, error)) error {
	n, err := s.NumPages()
	if err != nil {
		return err
	}
	for pid := uint32(0); pid < n; pid++ {
		p, err := s.ReadPage(pid)
		if err != nil {
			if errors.Is(err, ErrEndOfFile) {
				return nil
			}
			return err
		}
		keep, err := fn(pid, p)
		if err != nil {
			return err
		}
		if !keep {
			return nil
		}
	}
	return nil
}

// Sync fsyncs the segment file and its parent directory. Called at
// durability boundaries chosen by the caller.
func (s *Segment) Sync() error {
	if err := s.f.Sync(); err != nil {
		return fmt.Errorf("heap: fsync %s: %w", s.path, err)
	}
	return fsyncDir(filepath.Dir(s.path))
}

// Close closes the underlying file.
func (s *Segment) Close() error {
	return s.f.Close()
}

func fsyncDir(dir string) error {
	d, err := os.Open(dir)
	if err != nil {
		return fmt.Errorf("heap: open dir %s: %w", dir, err)
	}
	defer d.Close()
	if err := d.Sync(); err != nil {
		return fmt.Errorf("heap: fsync dir %s: %w", dir, err)
	}
	return nil
}
