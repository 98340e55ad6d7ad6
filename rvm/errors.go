package rvm

import "errors"

var (
	// ErrUnknownSegment is returned when a base address is not present in
	// the segment table.
	ErrUnknownSegment = errors.New("rvm: unknown segment")

	// ErrSegmentMapped is returned by Map when the segment name is already
	// mapped in this RVM instance.
	ErrSegmentMapped = errors.New("rvm: segment already mapped")

	// ErrTransactionConflict is returned (wrapped) by BeginTrans, together
	// with NoTransaction (-1), when a segment enrolled in it already has a
	// live transaction.
	ErrTransactionConflict = errors.New("rvm: segment already has a live transaction")

	// ErrCorruptLog is returned when a log file contains a short read mid
	// record, or an update record whose offset/length fall outside the
	// segment.
	ErrCorruptLog = errors.New("rvm: corrupt log record")

	// ErrUnknownTransaction is returned by CommitTrans/AbortTrans when no
	// segment is enrolled under the given transaction id.
	ErrUnknownTransaction = errors.New("rvm: unknown transaction")
)
