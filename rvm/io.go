package rvm

import (
	"encoding/binary"
	"fmt"
	"io"
)

// readAll loops on short reads from r until len(buf) bytes have been
// transferred or an unrecoverable error occurs. Any EOF reached before buf
// is full is reported as an error: callers that need to distinguish a
// clean end-of-log from corruption must pre-check for a zero-byte read
// themselves (see readRecordCount).
func readAll(r io.Reader, buf []byte) error {
	for len(buf) > 0 {
		n, err := r.Read(buf)
		if n > 0 {
			buf = buf[n:]
		}
		if err != nil {
			if err == io.EOF {
				if len(buf) == 0 {
					return nil
				}
				return fmt.Errorf("%w: short read", ErrCorruptLog)
			}
			return err
		}
	}
	return nil
}

// writeAll loops on short writes to w until len(buf) bytes have been
// transferred or an unrecoverable error occurs.
func writeAll(w io.Writer, buf []byte) error {
	for len(buf) > 0 {
		n, err := w.Write(buf)
		if n > 0 {
			buf = buf[n:]
		}
		if err != nil {
			return err
		}
	}
	return nil
}

// update is one (offset, length, bytes) triple within a log transaction
// record, as laid out in spec.md §4.7.
type update struct {
	offset uint32
	length uint32
	data   []byte
}

// readRecordCount reads the leading u32 transaction-record count from the
// log. A zero-byte read (clean EOF) is reported via ok=false, err=nil: that
// is the only place the log format allows EOF. Anything else short of a
// full 4 bytes is corruption.
func readRecordCount(r io.Reader) (count uint32, ok bool, err error) {
	var hdr [4]byte
	n, err := io.ReadFull(r, hdr[:])
	if n == 0 && err == io.EOF {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("%w: short transaction header: %v", ErrCorruptLog, err)
	}
	return binary.LittleEndian.Uint32(hdr[:]), true, nil
}

// readUpdate reads one update record (offset, length, raw bytes) from r.
func readUpdate(r io.Reader) (update, error) {
	var hdr [8]byte
	if err := readAll(r, hdr[:]); err != nil {
		return update{}, fmt.Errorf("read update header: %w", err)
	}
	off := binary.LittleEndian.Uint32(hdr[0:4])
	length := binary.LittleEndian.Uint32(hdr[4:8])

	data := make([]byte, length)
	if length > 0 {
		if err := readAll(r, data); err != nil {
			return update{}, fmt.Errorf("read update payload: %w", err)
		}
	}
	return update{offset: off, length: length, data: data}, nil
}

// replayLog reads a full record_stream (§4.7: transaction* where each
// transaction is a u32 count followed by count updates) from r, calling
// apply for each update in file order. A short read at any point within a
// transaction is corruption and stops replay immediately; a zero-byte read
// exactly at a transaction boundary is a clean end of log.
func replayLog(r io.Reader, apply func(offset, length uint32, data []byte) error) error {
	for {
		count, ok, err := readRecordCount(r)
		if err != nil {
			return err
		}
		if !ok {
			return nil
		}

		for i := uint32(0); i < count; i++ {
			upd, err := readUpdate(r)
			if err != nil {
				return err
			}
			if err := apply(upd.offset, upd.length, upd.data); err != nil {
				return err
			}
		}
	}
}

// writeTransaction appends one transaction record with a single update to
// w: §4.7 and §4.6 both note the current design always coalesces a
// transaction's redo data into exactly one update record per segment.
func writeTransaction(w io.Writer, off, length uint32, data []byte) error {
	var hdr [12]byte
	binary.LittleEndian.PutUint32(hdr[0:4], 1) // record count
	binary.LittleEndian.PutUint32(hdr[4:8], off)
	binary.LittleEndian.PutUint32(hdr[8:12], length)

	if err := writeAll(w, hdr[:]); err != nil {
		return fmt.Errorf("write transaction header: %w", err)
	}
	if err := writeAll(w, data); err != nil {
		return fmt.Errorf("write transaction payload: %w", err)
	}
	return nil
}
