package rvm

import (
	"errors"
	"fmt"
	"os"
)

// undoRecord is the pre-transaction snapshot of the single contiguous
// byte range a live transaction has declared it will modify (§4.5, §3
// invariant 3).
type undoRecord struct {
	start int64
	end   int64
	data  []byte
}

// Segment is the in-memory representation of one mapped RVM segment: the
// data model of spec.md §3. A Segment exists only between a successful
// Map and the matching Unmap.
type Segment struct {
	name   string
	length int64
	memory []byte

	dataFile *os.File
	logFile  *os.File

	txID TxID
	undo *undoRecord
}

// Name returns the segment's identifier.
func (s *Segment) Name() string { return s.name }

// Len returns the segment's current byte length.
func (s *Segment) Len() int64 { return s.length }

// openSegmentFiles opens (creating if needed) the data and log files for
// name under dir, per §4.2's backing-store layout and §4.4 step 1.
func openSegmentFiles(dir, name string, mode os.FileMode) (data, logf *os.File, err error) {
	data, err = os.OpenFile(dataPath(dir, name), os.O_RDWR|os.O_CREATE, mode)
	if err != nil {
		return nil, nil, fmt.Errorf("open data file for segment %q: %w", name, err)
	}

	// O_APPEND: commits always land at the log's current end, even after
	// TruncateLog has emptied it through another handle.
	logf, err = os.OpenFile(logPath(dir, name), os.O_RDWR|os.O_CREATE|os.O_APPEND, mode)
	if err != nil {
		_ = data.Close()
		return nil, nil, fmt.Errorf("open log file for segment %q: %w", name, err)
	}

	return data, logf, nil
}

// loadSegment performs §4.4 steps 2–4: size the data file to at least
// requestedSize, copy its bytes into memory, then replay the log into
// memory (never touching the data file).
func loadSegment(name string, data, logf *os.File, requestedSize int64) (*Segment, error) {
	info, err := data.Stat()
	if err != nil {
		return nil, fmt.Errorf("stat data file for segment %q: %w", name, err)
	}

	length := info.Size()
	if length < requestedSize {
		if err := data.Truncate(requestedSize); err != nil {
			return nil, fmt.Errorf("extend data file for segment %q: %w", name, err)
		}
		length = requestedSize
	}

	memory := make([]byte, length)
	if length > 0 {
		if _, err := data.ReadAt(memory, 0); err != nil {
			return nil, fmt.Errorf("read data file for segment %q: %w", name, err)
		}
	}

	seg := &Segment{
		name:     name,
		length:   length,
		memory:   memory,
		dataFile: data,
		logFile:  logf,
		txID:     NoTransaction,
	}

	if err := seg.replayLogIntoMemory(); err != nil {
		return nil, fmt.Errorf("replay log for segment %q: %w", name, err)
	}

	return seg, nil
}

// replayLogIntoMemory folds every committed transaction record in the
// segment's log file into its in-memory buffer, in file order (§4.4 step
// 4, §4.7). It does not modify the data file.
func (s *Segment) replayLogIntoMemory() error {
	if _, err := s.logFile.Seek(0, 0); err != nil {
		return fmt.Errorf("seek log: %w", err)
	}

	return replayLog(s.logFile, func(offset, length uint32, data []byte) error {
		end := int64(offset) + int64(length)
		if end > s.length {
			return fmt.Errorf("%w: update [%d,%d) out of bounds for segment %q of length %d",
				ErrCorruptLog, offset, end, s.name, s.length)
		}
		copy(s.memory[offset:end], data)
		return nil
	})
}

// close releases the in-memory buffer and closes both file handles,
// without touching the backing files (§4.4 unmap).
func (s *Segment) close() error {
	var errs error
	if err := s.dataFile.Close(); err != nil {
		errs = errors.Join(errs, fmt.Errorf("close data file for segment %q: %w", s.name, err))
	}
	if err := s.logFile.Close(); err != nil {
		errs = errors.Join(errs, fmt.Errorf("close log file for segment %q: %w", s.name, err))
	}
	s.memory = nil
	return errs
}
