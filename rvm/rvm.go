// Package rvm implements a recoverable virtual memory library: named,
// fixed-size byte segments backed by files on disk, mapped into ordinary
// Go byte slices, with transactional commit/abort and crash recovery via
// an append-only redo log.
package rvm

import (
	"errors"
	"fmt"
	"os"
	"sync"
	"unsafe"
)

// RVM is one instance of the library: a backing directory, its segment
// table, and its transaction-id counter (§9's redesign note — the
// reference implementation's process-wide singleton state becomes an
// instance here so multiple RVM directories can coexist in one process).
type RVM struct {
	dir      string
	dirMode  os.FileMode
	fileMode os.FileMode

	mu       sync.Mutex
	segments map[uintptr]*Segment // C3: base address -> segment
	byName   map[string]*Segment  // detects double-mapping of a live name

	txCounter int64
}

// Option configures an RVM instance constructed by Init.
type Option func(*RVM)

// WithDirMode overrides the backing directory's permission bits (default
// 0755, per spec.md §4.2).
func WithDirMode(mode os.FileMode) Option {
	return func(rv *RVM) { rv.dirMode = mode }
}

// WithFileMode overrides the data/log files' permission bits (default
// 0644, per spec.md §4.2).
func WithFileMode(mode os.FileMode) Option {
	return func(rv *RVM) { rv.fileMode = mode }
}

// Init ensures the backing directory exists and returns an RVM handle
// rooted at it (§4.2, §6 rvm_init).
func Init(dir string, opts ...Option) (*RVM, error) {
	rv := &RVM{
		dir:       dir,
		dirMode:   defaultDirMode,
		fileMode:  defaultFileMode,
		segments:  make(map[uintptr]*Segment),
		byName:    make(map[string]*Segment),
		txCounter: 1,
	}

	for _, opt := range opts {
		opt(rv)
	}

	if err := ensureDir(rv.dir, rv.dirMode); err != nil {
		return nil, err
	}

	return rv, nil
}

// baseKey derives the segment-table key from the byte slice handed back
// to the host by Map: the address of the backing array, standing in for
// the raw pointer the original C API returns (§9).
func baseKey(base []byte) uintptr {
	if len(base) == 0 {
		return 0
	}
	return uintptr(unsafe.Pointer(&base[0]))
}

// Map opens (creating if absent) the named segment's backing files,
// extends the data file to requestedSize if it is shorter, copies it into
// memory, replays the log over that memory, and returns the mapped byte
// slice — the host's direct read/write handle onto the segment (§4.4).
//
// Mapping a name that is already mapped in this RVM instance fails with
// ErrSegmentMapped.
func (rv *RVM) Map(name string, requestedSize int64) (base []byte, rerr error) {
	rv.mu.Lock()
	defer rv.mu.Unlock()

	if _, ok := rv.byName[name]; ok {
		return nil, fmt.Errorf("%w: %q", ErrSegmentMapped, name)
	}

	data, logf, err := openSegmentFiles(rv.dir, name, rv.fileMode)
	if err != nil {
		return nil, err
	}

	defer func() {
		if rerr != nil {
			_ = data.Close()
			_ = logf.Close()
		}
	}()

	seg, err := loadSegment(name, data, logf, requestedSize)
	if err != nil {
		return nil, err
	}

	key := baseKey(seg.memory)
	rv.segments[key] = seg
	rv.byName[name] = seg

	return seg.memory, nil
}

// Unmap releases the in-memory buffer for base and closes its file
// handles, without touching the backing files (§4.4). Calling Unmap while
// a transaction is live on the segment is a host contract violation; the
// library does not guard against it.
func (rv *RVM) Unmap(base []byte) error {
	rv.mu.Lock()
	defer rv.mu.Unlock()

	seg, ok := rv.segments[baseKey(base)]
	if !ok {
		return ErrUnknownSegment
	}

	delete(rv.segments, baseKey(base))
	delete(rv.byName, seg.name)

	return seg.close()
}

// Destroy unlinks a segment's backing files. The caller must ensure the
// segment is not currently mapped (§4.2); Destroy tolerates either file
// already being absent.
func (rv *RVM) Destroy(name string) error {
	var errs error
	if err := os.Remove(dataPath(rv.dir, name)); err != nil && !os.IsNotExist(err) {
		errs = errors.Join(errs, fmt.Errorf("remove data file for segment %q: %w", name, err))
	}
	if err := os.Remove(logPath(rv.dir, name)); err != nil && !os.IsNotExist(err) {
		errs = errors.Join(errs, fmt.Errorf("remove log file for segment %q: %w", name, err))
	}
	return errs
}

// lookup resolves base to its segment, under the caller's held lock.
func (rv *RVM) lookup(base []byte) (*Segment, bool) {
	seg, ok := rv.segments[baseKey(base)]
	return seg, ok
}
