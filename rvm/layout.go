package rvm

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

const (
	segPrefix = "seg."
	logPrefix = "log."

	// dirMode/fileMode are the spec-mandated defaults (§4.2, §6); both are
	// overridable via WithDirMode/WithFileMode.
	defaultDirMode  = 0o755
	defaultFileMode = 0o644
)

func dataPath(dir, name string) string {
	return filepath.Join(dir, segPrefix+name)
}

func logPath(dir, name string) string {
	return filepath.Join(dir, logPrefix+name)
}

// segmentNameFromDataFile extracts the segment name suffix from a seg.*
// filename, as used by the directory scan in TruncateLog (C8).
func segmentNameFromDataFile(filename string) (name string, ok bool) {
	if !strings.HasPrefix(filename, segPrefix) {
		return "", false
	}
	return strings.TrimPrefix(filename, segPrefix), true
}

// ensureDir creates the backing directory with the configured mode. An
// already-existing directory is not an error (§4.2).
func ensureDir(dir string, mode os.FileMode) error {
	if err := os.Mkdir(dir, mode); err != nil {
		if os.IsExist(err) {
			return nil
		}
		return fmt.Errorf("mkdir %q: %w", dir, err)
	}
	return nil
}
