package rvm

import (
	"os"
	"testing"
)

// setupTempRVM creates a temp backing directory, opens an RVM rooted at
// it, and registers cleanup — the rvm-domain equivalent of
// core.SetupTempDB in the teacher repo.
func setupTempRVM(tb testing.TB, opts ...Option) (rv *RVM, dir string) {
	tb.Helper()

	dir, err := os.MkdirTemp("", "rvm_test_*")
	if err != nil {
		tb.Fatalf("MkdirTemp failed: %v", err)
	}

	rv, err = Init(dir, opts...)
	if err != nil {
		_ = os.RemoveAll(dir)
		tb.Fatalf("Init(%q) failed: %v", dir, err)
	}

	tb.Cleanup(func() {
		_ = os.RemoveAll(dir)
	})

	return rv, dir
}
