package rvm

import (
	"errors"
	"fmt"
	"log"
	"os"
	"strings"

	mapset "github.com/deckarep/golang-set/v2"
)

// TruncateLog checkpoints every segment in the backing directory: it
// folds each segment's committed log records into its data file (using
// positioned writes, not touching any in-memory segment — truncation is
// safe to run while segments are mapped, per §4.8) and then shrinks the
// log file to zero length. It is safe to call with no intervening
// transactions; a second call is a no-op.
func (rv *RVM) TruncateLog() error {
	entries, err := os.ReadDir(rv.dir)
	if err != nil {
		return fmt.Errorf("truncate_log: read backing directory: %w", err)
	}

	segNames := mapset.NewSet[string]()
	logNames := mapset.NewSet[string]()
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		name := e.Name()
		if stem, ok := segmentNameFromDataFile(name); ok {
			segNames.Add(stem)
			continue
		}
		if strings.HasPrefix(name, logPrefix) {
			logNames.Add(strings.TrimPrefix(name, logPrefix))
		}
	}

	// Diagnostic only (§9's directory-scan note): a seg.* with no log.*
	// companion, or vice versa, never happens in normal operation since
	// Map always creates both, but is worth flagging if it does.
	if missing := segNames.Difference(logNames); missing.Cardinality() > 0 {
		log.Printf("truncate_log: segments with no log file: %v", missing.ToSlice())
	}
	if orphans := logNames.Difference(segNames); orphans.Cardinality() > 0 {
		log.Printf("truncate_log: log files with no matching segment: %v", orphans.ToSlice())
	}

	var errs error
	for _, name := range segNames.ToSlice() {
		if err := rv.truncateSegmentLog(name); err != nil {
			errs = errors.Join(errs, fmt.Errorf("truncate segment %q: %w", name, err))
		}
	}
	return errs
}

// truncateSegmentLog folds one segment's log into its data file and
// empties the log, per §4.8 and the original rvm_truncate_log/
// _rvm_truncate_log.
func (rv *RVM) truncateSegmentLog(name string) error {
	data, err := os.OpenFile(dataPath(rv.dir, name), os.O_RDWR|os.O_CREATE, rv.fileMode)
	if err != nil {
		return fmt.Errorf("open data file: %w", err)
	}
	defer data.Close()

	logf, err := os.OpenFile(logPath(rv.dir, name), os.O_RDWR|os.O_CREATE, rv.fileMode)
	if err != nil {
		return fmt.Errorf("open log file: %w", err)
	}
	defer logf.Close()

	before, err := checksumFile(data)
	if err != nil {
		return fmt.Errorf("checksum data file before replay: %w", err)
	}

	if _, err := logf.Seek(0, 0); err != nil {
		return fmt.Errorf("seek log file: %w", err)
	}

	err = replayLog(logf, func(offset, length uint32, payload []byte) error {
		if _, err := data.WriteAt(payload, int64(offset)); err != nil {
			return fmt.Errorf("write data file at offset %d: %w", offset, err)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("replay log: %w", err)
	}

	// Flush the data file before truncating the log (§4.8's durability
	// note), so a crash between the two still leaves the fold durable.
	if err := data.Sync(); err != nil {
		return fmt.Errorf("sync data file: %w", err)
	}

	after, err := checksumFile(data)
	if err != nil {
		return fmt.Errorf("checksum data file after replay: %w", err)
	}
	if before != after {
		log.Printf("truncate_log: segment %q checksum %x -> %x", name, before, after)
	}

	if err := logf.Truncate(0); err != nil {
		return fmt.Errorf("truncate log file: %w", err)
	}

	return nil
}
